package coordinator

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"
	"github.com/ScatterLabs/Scatter/modules"

	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/fastrand"
)

// registerTestKey generates an RSA keypair and registers its public half
// under the given username.
func registerTestKey(t *testing.T, c *Coordinator, username string) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	pem, err := crypto.EncodePublicKeyPEM(&key.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.RegisterPublicKey(username, string(pem)); err != nil {
		t.Fatal(err)
	}
	return key
}

// solveChallenge decrypts the encrypted nonce of a download challenge.
func solveChallenge(t *testing.T, key *rsa.PrivateKey, challenge modules.DownloadChallenge) string {
	t.Helper()
	encrypted, err := base64.StdEncoding.DecodeString(challenge.Challenge)
	if err != nil {
		t.Fatal(err)
	}
	nonce, err := crypto.DecryptOAEP(key, encrypted)
	if err != nil {
		t.Fatal(err)
	}
	return string(nonce)
}

// TestDownloadRoundTrip uploads a file and walks the full challenge dance:
// download, decrypt the nonce, verify, and compare the released bytes.
func TestDownloadRoundTrip(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 3)
	defer ct.Close()

	key := registerTestKey(t, ct.coordinator, "alice")
	data := fastrand.Bytes(2<<20 + 33)
	if _, err := ct.coordinator.Upload(bytes.NewReader(data), "photo.raw", 6); err != nil {
		t.Fatal(err)
	}

	challenge, err := ct.coordinator.Download("alice", "photo.raw")
	if err != nil {
		t.Fatal(err)
	}
	if challenge.Filename != "photo.raw" {
		t.Error("challenge names the wrong file:", challenge.Filename)
	}

	stream, err := ct.coordinator.VerifyChallenge("alice", "photo.raw", solveChallenge(t, key, challenge))
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	released, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(released, data) {
		t.Fatal("released file does not match the upload")
	}

	record, exists := ct.coordinator.Placement("photo.raw")
	if !exists {
		t.Fatal("placement record vanished")
	}
	if !record.Retrieved {
		t.Error("verified download did not mark the placement retrieved")
	}
}

// TestDownloadGuards checks the two lookup failures of the download phase.
func TestDownloadGuards(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 1)
	defer ct.Close()

	if _, err := ct.coordinator.Download("nobody", "a.bin"); err != modules.ErrUnknownPublicKey {
		t.Fatal("expected ErrUnknownPublicKey, got", err)
	}
	registerTestKey(t, ct.coordinator, "bob")
	if _, err := ct.coordinator.Download("bob", "a.bin"); err != modules.ErrUnknownFilename {
		t.Fatal("expected ErrUnknownFilename, got", err)
	}
}

// TestDownloadPartialLoss kills two of three renters and checks that the
// surviving replicas still reconstruct the file.
func TestDownloadPartialLoss(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 3)
	defer ct.Close()

	key := registerTestKey(t, ct.coordinator, "alice")
	data := fastrand.Bytes(64e3)
	if _, err := ct.coordinator.Upload(bytes.NewReader(data), "resilient.bin", 3); err != nil {
		t.Fatal(err)
	}

	ct.renters[0].srv.Close()
	ct.renters[1].srv.Close()

	challenge, err := ct.coordinator.Download("alice", "resilient.bin")
	if err != nil {
		t.Fatal(err)
	}
	stream, err := ct.coordinator.VerifyChallenge("alice", "resilient.bin", solveChallenge(t, key, challenge))
	if err != nil {
		t.Fatal(err)
	}
	defer stream.Close()
	released, err := io.ReadAll(stream)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(released, data) {
		t.Fatal("reconstruction from the surviving renter is corrupt")
	}
}

// TestDownloadTotalShardLoss kills the only holder of every shard and
// checks that the download fails cleanly without consuming state.
func TestDownloadTotalShardLoss(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 1)
	defer ct.Close()

	registerTestKey(t, ct.coordinator, "alice")
	if _, err := ct.coordinator.Upload(bytes.NewReader(fastrand.Bytes(9000)), "lost.bin", 1); err != nil {
		t.Fatal(err)
	}
	ct.renters[0].srv.Close()

	_, err := ct.coordinator.Download("alice", "lost.bin")
	if !errors.Contains(err, modules.ErrIncompleteFile) {
		t.Fatal("expected ErrIncompleteFile, got", err)
	}

	// The failed download must not leave a usable nonce behind.
	if _, err := ct.coordinator.VerifyChallenge("alice", "lost.bin", "guess"); err != modules.ErrNoActiveChallenge {
		t.Fatal("expected ErrNoActiveChallenge, got", err)
	}

	// The record survives so the uploader can still delete the file.
	if _, exists := ct.coordinator.Placement("lost.bin"); !exists {
		t.Error("failed download destroyed the placement record")
	}
	if err := ct.coordinator.Delete("lost.bin"); err != nil {
		t.Error("delete after total loss failed:", err)
	}
}

// TestChallengeReplay checks that a nonce is consumed by verification,
// successful or not.
func TestChallengeReplay(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 2)
	defer ct.Close()

	key := registerTestKey(t, ct.coordinator, "alice")
	if _, err := ct.coordinator.Upload(bytes.NewReader(fastrand.Bytes(5000)), "once.bin", 2); err != nil {
		t.Fatal(err)
	}

	challenge, err := ct.coordinator.Download("alice", "once.bin")
	if err != nil {
		t.Fatal(err)
	}
	response := solveChallenge(t, key, challenge)
	stream, err := ct.coordinator.VerifyChallenge("alice", "once.bin", response)
	if err != nil {
		t.Fatal(err)
	}
	stream.Close()

	// Replaying the same response must fail: the nonce is gone.
	if _, err := ct.coordinator.VerifyChallenge("alice", "once.bin", response); err != modules.ErrNoActiveChallenge {
		t.Fatal("replay was not rejected, got", err)
	}

	// A wrong response consumes the nonce too.
	challenge, err = ct.coordinator.Download("alice", "once.bin")
	if err != nil {
		t.Fatal(err)
	}
	response = solveChallenge(t, key, challenge)
	if _, err := ct.coordinator.VerifyChallenge("alice", "once.bin", "wrong-nonce"); err != modules.ErrChallengeMismatch {
		t.Fatal("expected ErrChallengeMismatch, got", err)
	}
	if _, err := ct.coordinator.VerifyChallenge("alice", "once.bin", response); err != modules.ErrNoActiveChallenge {
		t.Fatal("correct response after a failed attempt should find no challenge, got", err)
	}
}

// TestChallengeExpiry checks that nonces and staged artifacts expire
// together once the staging window passes.
func TestChallengeExpiry(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 2)
	defer ct.Close()

	key := registerTestKey(t, ct.coordinator, "alice")
	if _, err := ct.coordinator.Upload(bytes.NewReader(fastrand.Bytes(5000)), "stale.bin", 2); err != nil {
		t.Fatal(err)
	}
	challenge, err := ct.coordinator.Download("alice", "stale.bin")
	if err != nil {
		t.Fatal(err)
	}
	response := solveChallenge(t, key, challenge)

	// Let the staging window lapse and the janitor run.
	time.Sleep(stagedTTL + 4*janitorInterval)

	if _, err := ct.coordinator.VerifyChallenge("alice", "stale.bin", response); err != modules.ErrNoActiveChallenge {
		t.Fatal("expired challenge was accepted, got", err)
	}
	assertEmptyDir(t, filepath.Join(ct.dir, modules.CoordinatorDir, stagedDirName))
}

// TestRegisterPublicKey checks PEM validation and that registered keys
// survive a coordinator restart.
func TestRegisterPublicKey(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	ct := newCoordinatorTester(t, 1)
	defer ct.Close()

	if err := ct.coordinator.RegisterPublicKey("mallory", "not a key"); err == nil {
		t.Fatal("garbage PEM was accepted")
	}
	registerTestKey(t, ct.coordinator, "alice")

	// Restart the coordinator on the same persist dir.
	if err := ct.coordinator.Close(); err != nil {
		t.Fatal(err)
	}
	c, err := New(ct.membership, nil, filepath.Join(ct.dir, modules.CoordinatorDir))
	if err != nil {
		t.Fatal(err)
	}
	ct.coordinator = c

	// The reloaded registry must recognize alice; the failure has to come
	// from the filename lookup, not the key lookup.
	if _, err := c.Download("alice", "missing.bin"); err != modules.ErrUnknownFilename {
		t.Fatal("expected ErrUnknownFilename after restart, got", err)
	}
}
