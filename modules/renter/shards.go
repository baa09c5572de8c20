package renter

import (
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/persist"

	"gitlab.com/NebulousLabs/errors"
	bolt "go.etcd.io/bbolt"
)

// bucketShards maps blob name to shardMeta.
var bucketShards = []byte("Shards")

// shardMeta is the index entry for one stored blob.
type shardMeta struct {
	Size     uint64      `json:"size"`
	Checksum crypto.Hash `json:"checksum"`
	StoredAt time.Time   `json:"stored_at"`
}

// validBlobName rejects names that resolve outside the storage dir and
// names reserved for the renter itself. Blob names arrive from the
// network, so they are treated as hostile until proven flat.
func validBlobName(blobName string) bool {
	if blobName == "" || blobName == "." || blobName == ".." {
		return false
	}
	if strings.ContainsRune(blobName, os.PathSeparator) || strings.ContainsRune(blobName, '/') {
		return false
	}
	if filepath.Base(filepath.Clean(blobName)) != blobName {
		return false
	}
	return blobName != blockerFileName
}

// StoreShard writes a blob to the storage dir and records it in the shard
// index. Storing a name that already exists overwrites the previous blob,
// which makes upload retries idempotent.
func (r *Renter) StoreShard(blobName string, src io.Reader) error {
	if err := r.tg.Add(); err != nil {
		return err
	}
	defer r.tg.Done()
	if !validBlobName(blobName) {
		return modules.ErrInvalidBlobName
	}

	// Assemble under a temporary name so a failed transfer never replaces
	// a good blob.
	tmpPath := r.blobPath(blobName) + "_tmp_" + persist.RandomSuffix()
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return errors.AddContext(err, "could not create blob file")
	}
	hasher := crypto.NewHash()
	size, err := io.Copy(f, io.TeeReader(src, hasher))
	if err != nil {
		err = errors.Compose(err, f.Close(), os.Remove(tmpPath))
		return errors.AddContext(err, "could not write blob")
	}
	if err := errors.Compose(f.Sync(), f.Close()); err != nil {
		return errors.Compose(err, os.Remove(tmpPath))
	}
	if err := os.Rename(tmpPath, r.blobPath(blobName)); err != nil {
		return errors.Compose(err, os.Remove(tmpPath))
	}

	meta := shardMeta{
		Size:     uint64(size),
		StoredAt: time.Now(),
	}
	copy(meta.Checksum[:], hasher.Sum(nil))
	err = r.db.Update(func(tx *bolt.Tx) error {
		value, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		return tx.Bucket(bucketShards).Put([]byte(blobName), value)
	})
	if err != nil {
		return errors.AddContext(err, "could not index blob")
	}
	r.log.Printf("stored blob %v (%v bytes)", blobName, size)
	return nil
}

// RetrieveShard opens a stored blob. The size from the index is returned
// alongside the stream; a blob whose on-disk size disagrees with its index
// entry is reported as corrupt rather than served.
func (r *Renter) RetrieveShard(blobName string) (io.ReadCloser, uint64, error) {
	if err := r.tg.Add(); err != nil {
		return nil, 0, err
	}
	defer r.tg.Done()
	if !validBlobName(blobName) {
		return nil, 0, modules.ErrUnknownShard
	}

	var meta shardMeta
	err := r.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(bucketShards).Get([]byte(blobName))
		if value == nil {
			return modules.ErrUnknownShard
		}
		return json.Unmarshal(value, &meta)
	})
	if err != nil {
		return nil, 0, err
	}

	f, err := os.Open(r.blobPath(blobName))
	if os.IsNotExist(err) {
		r.log.Println("WARN: indexed blob is missing from disk:", blobName)
		return nil, 0, modules.ErrUnknownShard
	}
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return nil, 0, errors.Compose(err, f.Close())
	}
	if uint64(info.Size()) != meta.Size {
		err = errors.New("blob does not match its index entry")
		r.log.Printf("WARN: blob %v is %v bytes on disk, index says %v", blobName, info.Size(), meta.Size)
		return nil, 0, errors.Compose(err, f.Close())
	}
	return f, meta.Size, nil
}

// DeleteShard removes a blob and its index entry. Deleting a blob the
// renter does not hold is a no-op.
func (r *Renter) DeleteShard(blobName string) error {
	if err := r.tg.Add(); err != nil {
		return err
	}
	defer r.tg.Done()
	if !validBlobName(blobName) {
		return nil
	}

	err := r.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketShards).Delete([]byte(blobName))
	})
	if err != nil {
		return err
	}
	err = os.Remove(r.blobPath(blobName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	r.log.Println("deleted blob", blobName)
	return nil
}

// ShardCount returns the number of blobs in the shard index.
func (r *Renter) ShardCount() (uint64, error) {
	if err := r.tg.Add(); err != nil {
		return 0, err
	}
	defer r.tg.Done()

	var count uint64
	err := r.db.View(func(tx *bolt.Tx) error {
		count = uint64(tx.Bucket(bucketShards).Stats().KeyN)
		return nil
	})
	return count, err
}
