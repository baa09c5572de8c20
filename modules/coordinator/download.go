package coordinator

import (
	"encoding/base64"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/persist"

	"github.com/google/uuid"
	"gitlab.com/NebulousLabs/errors"
)

// Download reconstructs the named file from the renter fleet, stages it,
// and returns a challenge encrypted under the user's registered key. The
// challenge is only stored once reconstruction has succeeded, so a failed
// download leaves no nonce behind.
func (c *Coordinator) Download(username, filename string) (modules.DownloadChallenge, error) {
	if err := c.tg.Add(); err != nil {
		return modules.DownloadChallenge{}, err
	}
	defer c.tg.Done()

	c.mu.Lock()
	keyPEM, keyExists := c.pubKeys[username]
	var record modules.PlacementRecord
	recordPtr, fileExists := c.placements[filename]
	if fileExists {
		record = *recordPtr
		record.Shards = append([]modules.ShardDescriptor(nil), recordPtr.Shards...)
	}
	c.mu.Unlock()
	if !keyExists {
		return modules.DownloadChallenge{}, modules.ErrUnknownPublicKey
	}
	if !fileExists {
		return modules.DownloadChallenge{}, modules.ErrUnknownFilename
	}
	pub, err := crypto.ParsePublicKeyPEM([]byte(keyPEM))
	if err != nil {
		return modules.DownloadChallenge{}, errors.AddContext(err, "registered key is unusable")
	}

	if err := c.managedReconstruct(record); err != nil {
		return modules.DownloadChallenge{}, err
	}

	nonce := uuid.New().String()
	encrypted, err := crypto.EncryptOAEP(pub, []byte(nonce))
	if err != nil {
		return modules.DownloadChallenge{}, errors.AddContext(err, "could not encrypt the challenge")
	}

	c.mu.Lock()
	c.challenges[username] = activeChallenge{
		nonce:  nonce,
		expiry: time.Now().Add(stagedTTL),
	}
	c.mu.Unlock()

	c.log.Printf("issued download challenge to %v for %v", username, filename)
	return modules.DownloadChallenge{
		Challenge: base64.StdEncoding.EncodeToString(encrypted),
		Filename:  filename,
	}, nil
}

// managedReconstruct rebuilds a file from its placement and stages it for
// delivery. Shards are fetched in index order; replicas of a shard are
// tried in recorded order until one passes the integrity check.
func (c *Coordinator) managedReconstruct(record modules.PlacementRecord) error {
	snap := c.membership.Snapshot()

	// Assemble under a unique name, then rename into place, so that a
	// half-written artifact can never be mistaken for a staged one and
	// concurrent reconstructions of the same file do not interleave.
	finalPath := c.stagedPath(record.Filename)
	tmpPath := finalPath + "_" + persist.RandomSuffix()
	f, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return err
	}
	assembled := false
	defer func() {
		f.Close()
		if !assembled {
			os.Remove(tmpPath)
		}
	}()

	for index := 0; index < record.NumShards; index++ {
		shard, err := c.fetchShard(snap, record, index)
		if err != nil {
			return err
		}
		if _, err := f.Write(shard); err != nil {
			return errors.AddContext(err, "could not write the reconstructed file")
		}
	}

	if err := f.Sync(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return err
	}
	assembled = true

	c.mu.Lock()
	c.staged[finalPath] = time.Now().Add(stagedTTL)
	c.mu.Unlock()
	c.log.Printf("reconstructed %v and staged it for delivery", record.Filename)
	return nil
}

// fetchShard returns the bytes of one shard, trying its replicas in
// recorded order. Replicas on departed renters, replicas that fail to
// transfer, empty bodies, and bodies that do not match the recorded digest
// all count as failed attempts.
func (c *Coordinator) fetchShard(snap modules.MembershipSnapshot, record modules.PlacementRecord, index int) ([]byte, error) {
	for _, desc := range record.Shards {
		if desc.ShardIndex != index {
			continue
		}
		renter, live := snap.Renters[desc.RenterID]
		if !live {
			c.log.Printf("skipping replica %v of shard %v of %v: renter %v no longer registered",
				desc.ReplicaIndex, index, record.Filename, desc.RenterID)
			continue
		}
		body, err := c.renters.retrieveShard(renter.URL, desc.BlobName)
		if err != nil {
			c.log.Printf("WARN: replica %v of shard %v of %v unavailable from %v: %v",
				desc.ReplicaIndex, index, record.Filename, desc.RenterID, err)
			continue
		}
		shard, err := io.ReadAll(body)
		body.Close()
		if err != nil {
			c.log.Printf("WARN: replica %v of shard %v of %v truncated by %v: %v",
				desc.ReplicaIndex, index, record.Filename, desc.RenterID, err)
			continue
		}
		if len(shard) == 0 {
			c.log.Printf("WARN: replica %v of shard %v of %v is empty at %v",
				desc.ReplicaIndex, index, record.Filename, desc.RenterID)
			continue
		}
		if crypto.HashBytes(shard) != desc.Checksum {
			c.log.Printf("WARN: replica %v of shard %v of %v failed its integrity check at %v",
				desc.ReplicaIndex, index, record.Filename, desc.RenterID)
			continue
		}
		return shard, nil
	}
	return nil, errors.Extend(errors.New("no live replica of shard "+strconv.Itoa(index)), modules.ErrIncompleteFile)
}
