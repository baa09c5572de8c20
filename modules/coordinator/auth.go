package coordinator

import (
	"io"
	"os"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"

	"gitlab.com/NebulousLabs/errors"
)

// RegisterPublicKey stores a user's PEM encoded RSA public key. Keys may
// be overwritten; downloads always verify against the latest key. The
// registry is persisted before the call returns.
func (c *Coordinator) RegisterPublicKey(username, publicKeyPEM string) error {
	if err := c.tg.Add(); err != nil {
		return err
	}
	defer c.tg.Done()

	// Reject keys that could never verify a challenge.
	if _, err := crypto.ParsePublicKeyPEM([]byte(publicKeyPEM)); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pubKeys[username] = publicKeyPEM
	if err := c.savePubKeys(); err != nil {
		return errors.AddContext(err, "could not persist the public-key registry")
	}
	c.log.Printf("registered public key for %v", username)
	return nil
}

// VerifyChallenge checks a user's response to their outstanding challenge.
// The challenge is consumed whether or not verification succeeds. On
// success the staged file is returned as a stream and, on the first
// settled download of the file, payment is sent to the renters that hold
// it. The caller must close the stream.
func (c *Coordinator) VerifyChallenge(username, filename, response string) (io.ReadCloser, error) {
	if err := c.tg.Add(); err != nil {
		return nil, err
	}
	defer c.tg.Done()

	now := time.Now()
	c.mu.Lock()
	challenge, exists := c.challenges[username]
	delete(c.challenges, username)
	c.mu.Unlock()

	if !exists || now.After(challenge.expiry) {
		return nil, modules.ErrNoActiveChallenge
	}
	if response != challenge.nonce {
		c.log.Printf("rejected challenge response from %v for %v", username, filename)
		return nil, modules.ErrChallengeMismatch
	}

	c.mu.Lock()
	record, fileExists := c.placements[filename]
	if !fileExists {
		c.mu.Unlock()
		return nil, modules.ErrUnknownFilename
	}
	f, err := os.Open(c.stagedPath(filename))
	if err != nil {
		c.mu.Unlock()
		if os.IsNotExist(err) {
			return nil, modules.ErrArtifactExpired
		}
		return nil, err
	}
	settle := !record.Retrieved
	record.Retrieved = true
	var settleRecord modules.PlacementRecord
	if settle {
		settleRecord = *record
		settleRecord.Shards = append([]modules.ShardDescriptor(nil), record.Shards...)
	}
	c.mu.Unlock()

	// Settlement runs after the body is staged and before delivery. Only
	// the first verified download of a file settles; later downloads are
	// served without another round of payments.
	if settle {
		c.managedSettle(settleRecord)
	}

	c.log.Printf("released %v to %v", filename, username)
	return f, nil
}
