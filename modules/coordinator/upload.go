package coordinator

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/modules/coordinator/placement"
	"github.com/ScatterLabs/Scatter/persist"

	"gitlab.com/NebulousLabs/errors"
)

// cleanFilename reduces a client-supplied filename to its base name.
// Placement records, shard blob names, and staged artifact paths all embed
// the filename, so anything that could escape a directory is rejected.
func cleanFilename(filename string) (string, error) {
	name := filepath.Base(filepath.Clean(filename))
	if name == "." || name == ".." || name == string(filepath.Separator) || name == "" {
		return "", modules.ErrInvalidFilename
	}
	return name, nil
}

// stageUpload copies the incoming blob to scratch space and reports its
// size. On success the caller owns the returned file and its path.
func (c *Coordinator) stageUpload(r io.Reader, filename string) (*os.File, uint64, error) {
	path := c.scratchPath(filename + "_" + persist.RandomSuffix())
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return nil, 0, err
	}
	size, err := io.Copy(f, r)
	if err != nil {
		f.Close()
		os.Remove(path)
		return nil, 0, errors.AddContext(err, "could not stage the upload")
	}
	return f, uint64(size), nil
}

// Upload splits the file into shards, distributes replicas of every shard
// across the registered renters, and records the placement. Any renter
// transport error fails the whole upload; replicas already pushed are left
// behind and overwritten by blob name if the upload is retried.
func (c *Coordinator) Upload(r io.Reader, filename string, payment float64) (modules.UploadReceipt, error) {
	if err := c.tg.Add(); err != nil {
		return modules.UploadReceipt{}, err
	}
	defer c.tg.Done()

	filename, err := cleanFilename(filename)
	if err != nil {
		return modules.UploadReceipt{}, err
	}
	if payment <= 0 {
		return modules.UploadReceipt{}, modules.ErrInvalidPayment
	}

	// Stage the blob to scratch space. The bytes have to land on disk
	// before splitting because shard ranges are read back by offset, once
	// per replica.
	scratch, size, err := c.stageUpload(r, filename)
	if err != nil {
		return modules.UploadReceipt{}, err
	}
	defer func() {
		scratch.Close()
		if err := os.Remove(scratch.Name()); err != nil {
			c.log.Println("WARN: could not remove upload scratch", scratch.Name(), ":", err)
		}
	}()

	numShards, err := placement.ShardCount(size)
	if err != nil {
		return modules.UploadReceipt{}, err
	}
	ranges := placement.ShardRanges(size, numShards)

	snap := c.membership.Snapshot()
	assignments, err := c.picker.Pick(snap, numShards)
	if err != nil {
		return modules.UploadReceipt{}, err
	}

	// Hash every shard up front. The digests gate reconstruction, and the
	// Merkle root over them commits the upload to its exact split.
	leaves := make([]crypto.Hash, numShards)
	for i, rng := range ranges {
		h := crypto.NewHash()
		section := io.NewSectionReader(scratch, int64(rng.Offset), int64(rng.Length))
		if _, err := io.Copy(h, section); err != nil {
			return modules.UploadReceipt{}, errors.AddContext(err, "could not hash a shard")
		}
		copy(leaves[i][:], h.Sum(nil))
	}

	// Push every replica of every shard to its renter.
	descriptors := make([]modules.ShardDescriptor, 0, numShards*len(assignments[0]))
	for i, rng := range ranges {
		for j, renterID := range assignments[i] {
			record, exists := snap.Renters[renterID]
			if !exists {
				// Pick only returns ids from the snapshot.
				return modules.UploadReceipt{}, errors.New("placement references a renter missing from the snapshot")
			}
			blobName := modules.ShardBlobName(i, j, filename)
			section := io.NewSectionReader(scratch, int64(rng.Offset), int64(rng.Length))
			if err := c.renters.storeShard(record.URL, blobName, section); err != nil {
				return modules.UploadReceipt{}, errors.AddContext(err, "could not scatter shard "+blobName)
			}
			descriptors = append(descriptors, modules.ShardDescriptor{
				ShardIndex:   i,
				ReplicaIndex: j,
				RenterID:     renterID,
				BlobName:     blobName,
				Checksum:     leaves[i],
			})
		}
	}

	// The payment divides across the renters actually holding shards.
	unique := make(map[modules.RenterID]struct{})
	for _, desc := range descriptors {
		unique[desc.RenterID] = struct{}{}
	}

	record := &modules.PlacementRecord{
		Filename:       filename,
		Shards:         descriptors,
		NumShards:      numShards,
		ShardSize:      size / uint64(numShards),
		MerkleRoot:     crypto.MerkleRoot(leaves),
		Payment:        payment,
		PerRenterShare: payment / float64(len(unique)),
		Retrieved:      false,
		UploadedAt:     time.Now(),
	}
	c.mu.Lock()
	c.placements[filename] = record
	c.mu.Unlock()

	c.log.Printf("scattered %v: %v bytes, %v shards x %v replicas across %v renters, merkle root %v",
		filename, size, numShards, len(assignments[0]), len(unique), record.MerkleRoot)
	return modules.UploadReceipt{
		Filename:          filename,
		NumShards:         numShards,
		ReplicationFactor: len(assignments[0]),
		ShardSize:         record.ShardSize,
	}, nil
}
