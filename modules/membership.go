package modules

import (
	"time"

	"github.com/ScatterLabs/Scatter/build"

	"gitlab.com/NebulousLabs/errors"
)

const (
	// MembershipDir is the name of the directory that is used to store the
	// membership module's persistent data.
	MembershipDir = "membership"
)

var (
	// RenterTimeout is how stale a renter's heartbeat may become before the
	// coordinator drops the renter from the membership table. The window is
	// part of the coordinator's contract with renters: a renter that
	// heartbeats at half this interval will never be dropped while healthy.
	RenterTimeout = build.Select(build.Var{
		Standard: 60 * time.Second,
		Dev:      20 * time.Second,
		Testing:  250 * time.Millisecond,
	}).(time.Duration)

	// ErrUnknownRenter is returned when an operation references a renter id
	// that is not in the membership table. Renters that miss their
	// heartbeat window are removed from the table, so a previously valid id
	// can become unknown.
	ErrUnknownRenter = errors.New("renter is not registered")

	// ErrInvalidRenterURL is returned when a renter tries to register with
	// a URL the coordinator could not place shards against.
	ErrInvalidRenterURL = errors.New("renter url is not a valid base url")
)

type (
	// A RenterID uniquely identifies a storage renter. Renters may supply
	// their own id when registering, so the id is an opaque string rather
	// than a structured value.
	RenterID string

	// A RenterRecord is the membership table's view of a single storage
	// renter.
	RenterRecord struct {
		ID               RenterID  `json:"renter_id"`
		URL              RenterURL `json:"url"`
		StorageAvailable uint64    `json:"storage_available"`
		LastHeartbeat    time.Time `json:"last_heartbeat"`
		Rack             string    `json:"rack"`
		LedgerAddress    string    `json:"blockchain_address,omitempty"`
	}

	// A RenterInfo is the public view of a registered renter, as reported
	// by the get-renters endpoint.
	RenterInfo struct {
		ID               RenterID  `json:"renter_id"`
		URL              RenterURL `json:"url"`
		StorageAvailable uint64    `json:"storage_available"`
		LedgerAddress    string    `json:"blockchain_address,omitempty"`
	}

	// A MembershipSnapshot is a point-in-time copy of the membership table.
	// Placement and retrieval decisions are made against a snapshot so that
	// renters arriving or expiring mid-decision cannot produce a view that
	// never existed. The maps are copies owned by the caller.
	MembershipSnapshot struct {
		Renters map[RenterID]RenterRecord
		Racks   map[string][]RenterID
	}

	// A Membership tracks which storage renters are alive, which rack each
	// one belongs to, and how to reach them. Expired renters are dropped
	// whenever the table is read, so placement decisions never see a
	// renter whose heartbeats have lapsed.
	Membership interface {
		// RegisterRenter adds a renter to the membership table and assigns
		// it a rack. If id is empty an id is generated. Re-registering an
		// existing id refreshes the record but keeps its rack assignment.
		RegisterRenter(id RenterID, url RenterURL, storageAvailable uint64, ledgerAddress string) (RenterID, error)

		// Heartbeat refreshes the liveness of a registered renter. The
		// ledger address is updated if a non-empty value is supplied.
		// Heartbeat returns ErrUnknownRenter for ids that are not
		// currently registered.
		Heartbeat(id RenterID, ledgerAddress string) error

		// Snapshot sweeps expired renters and returns a copy of the
		// surviving membership table.
		Snapshot() MembershipSnapshot

		// Renters sweeps expired renters and returns the public view of
		// the survivors.
		Renters() []RenterInfo

		// Close shuts the module down.
		Close() error
	}
)

// Live returns whether the record's last heartbeat is within the given
// timeout of now.
func (rr RenterRecord) Live(now time.Time, timeout time.Duration) bool {
	return now.Sub(rr.LastHeartbeat) <= timeout
}
