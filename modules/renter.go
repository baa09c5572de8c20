package modules

import (
	"io"

	"gitlab.com/NebulousLabs/errors"
)

const (
	// RenterDir is the name of the directory that is used to store the
	// renter's persistent data.
	RenterDir = "renter"
)

var (
	// ErrUnknownShard is returned when a shard request names a blob the
	// renter does not hold.
	ErrUnknownShard = errors.New("no shard stored under that name")

	// ErrInvalidBlobName is returned for blob names that would escape the
	// storage dir or collide with the renter's own files.
	ErrInvalidBlobName = errors.New("invalid blob name")
)

type (
	// A Renter is the storage side of the network: it keeps shard blobs on
	// local disk for the coordinator, advertises its capacity, and
	// maintains its registration with heartbeats.
	Renter interface {
		// StoreShard writes a shard blob to local storage, overwriting any
		// existing blob with the same name.
		StoreShard(blobName string, r io.Reader) error

		// RetrieveShard opens a stored shard blob for reading. The caller
		// must close the returned stream. ErrUnknownShard is returned for
		// blobs the renter does not hold.
		RetrieveShard(blobName string) (io.ReadCloser, uint64, error)

		// DeleteShard removes a shard blob. Deleting a blob that does not
		// exist is not an error.
		DeleteShard(blobName string) error

		// ID returns the renter's identifier.
		ID() RenterID

		// URL returns the base URL the renter advertises to its
		// coordinator.
		URL() RenterURL

		// ShardCount returns the number of shard blobs currently held.
		ShardCount() (uint64, error)

		// LedgerAddress returns the renter's ledger address, or an empty
		// string when running without a ledger.
		LedgerAddress() string

		// Close shuts the module down, stopping the heartbeat loop.
		Close() error
	}
)
