package modules

import (
	"fmt"
	"io"
	"time"

	"github.com/ScatterLabs/Scatter/crypto"

	"gitlab.com/NebulousLabs/errors"
)

const (
	// CoordinatorDir is the name of the directory that is used to store the
	// coordinator's persistent data.
	CoordinatorDir = "coordinator"
)

var (
	// ErrNoRenters is returned when an upload is attempted while no live
	// renters are registered.
	ErrNoRenters = errors.New("no renters are available to accept shards")

	// ErrEmptyFile is returned when an upload contains no data.
	ErrEmptyFile = errors.New("refusing to scatter an empty file")

	// ErrInvalidPayment is returned when an upload offers a zero or
	// negative payment.
	ErrInvalidPayment = errors.New("payment amount must be positive")

	// ErrInvalidFilename is returned when an upload's filename is empty or
	// reduces to a directory reference.
	ErrInvalidFilename = errors.New("filename is empty or invalid")

	// ErrUnknownFilename is returned when an operation references a
	// filename with no placement record.
	ErrUnknownFilename = errors.New("no placement record for that filename")

	// ErrUnknownPublicKey is returned when a download is requested for a
	// username with no registered public key.
	ErrUnknownPublicKey = errors.New("no public key registered for that user")

	// ErrNoActiveChallenge is returned when a challenge response arrives
	// for a user with no outstanding challenge.
	ErrNoActiveChallenge = errors.New("no active challenge for that user")

	// ErrChallengeMismatch is returned when a challenge response does not
	// match the issued nonce. The challenge is consumed either way.
	ErrChallengeMismatch = errors.New("challenge response does not match")

	// ErrIncompleteFile is returned when reconstruction cannot recover
	// every shard of a file. The placement record is preserved so that the
	// download can be retried once renters return.
	ErrIncompleteFile = errors.New("could not retrieve all shards of the file")

	// ErrArtifactExpired is returned when a verified challenge finds that
	// the staged artifact has already been cleaned up.
	ErrArtifactExpired = errors.New("reconstructed file is no longer staged")
)

type (
	// A ShardDescriptor records where one replica of one shard lives. The
	// shard and replica indices, together with the filename, determine the
	// blob name the replica is stored under on the renter.
	ShardDescriptor struct {
		ShardIndex   int         `json:"shard_index"`
		ReplicaIndex int         `json:"replica_index"`
		RenterID     RenterID    `json:"renter_id"`
		BlobName     string      `json:"blob_name"`
		Checksum     crypto.Hash `json:"checksum"`
	}

	// A PlacementRecord is the coordinator's durable memory of one stored
	// file: which renters hold which shard replicas, what the uploader
	// paid, and whether a settled download has already happened.
	PlacementRecord struct {
		Filename       string            `json:"filename"`
		Shards         []ShardDescriptor `json:"shards"`
		NumShards      int               `json:"num_shards"`
		ShardSize      uint64            `json:"shard_size"`
		MerkleRoot     crypto.Hash       `json:"merkle_root"`
		Payment        float64           `json:"payment"`
		PerRenterShare float64           `json:"renter_share"`
		Retrieved      bool              `json:"retrieved"`
		UploadedAt     time.Time         `json:"uploaded_at"`
	}

	// An UploadReceipt reports the outcome of a successful upload.
	UploadReceipt struct {
		Filename          string `json:"filename"`
		NumShards         int    `json:"num_shards"`
		ReplicationFactor int    `json:"replication_factor"`
		ShardSize         uint64 `json:"shard_size"`
	}

	// A DownloadChallenge is phase one of a download: the requested file
	// has been reconstructed and staged, and the caller must prove key
	// ownership by decrypting the challenge before the file is released.
	DownloadChallenge struct {
		Challenge string `json:"challenge"`
		Filename  string `json:"filename"`
	}

	// A Coordinator accepts files, scatters them across the renter fleet
	// as replicated shards, and releases reconstructed files to downloaders
	// who prove ownership of a registered key.
	Coordinator interface {
		// Upload splits the file into shards, distributes replicas of
		// every shard across the registered renters, and records the
		// placement. The reader is drained even on error.
		Upload(r io.Reader, filename string, payment float64) (UploadReceipt, error)

		// Download reconstructs the named file from the renter fleet,
		// stages it, and returns an encrypted challenge for the named
		// user. The staged file is released by VerifyChallenge.
		Download(username, filename string) (DownloadChallenge, error)

		// VerifyChallenge checks a challenge response. On success it
		// settles payment with the renters that served the file and
		// returns a stream of the staged artifact. The caller must close
		// the stream.
		VerifyChallenge(username, filename, response string) (io.ReadCloser, error)

		// Delete removes the file's shards from its renters, tolerating
		// renters that have already departed, and drops the placement
		// record.
		Delete(filename string) error

		// RegisterPublicKey stores the PEM encoded RSA public key that
		// future downloads by this username must prove ownership of.
		RegisterPublicKey(username, publicKeyPEM string) error

		// Placement returns the placement record for a filename.
		Placement(filename string) (PlacementRecord, bool)

		// LedgerConnected reports whether the coordinator reached its
		// settlement ledger at startup.
		LedgerConnected() bool

		// LedgerAddress returns the coordinator's own ledger address, or
		// an empty string when running without a ledger.
		LedgerAddress() string

		// Close shuts the module down.
		Close() error
	}
)

// ShardBlobName returns the canonical name a shard replica is stored under
// on a renter. Renters address blobs exclusively by this name.
func ShardBlobName(shardIndex, replicaIndex int, filename string) string {
	return fmt.Sprintf("shard_%d_replica_%d_%s", shardIndex, replicaIndex, filename)
}

// StagedArtifactName returns the name a reconstructed file is staged under
// while it waits for challenge verification.
func StagedArtifactName(filename string) string {
	return "reconstructed_" + filename
}
