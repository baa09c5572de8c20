// Package coordinator implements the heart of Scatter. The coordinator
// accepts client files, splits them into shards, scatters replicated
// shards across the renter fleet, reconstructs files on demand behind a
// challenge/response gate, and settles payment with the renters that
// served a download.
package coordinator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/modules/coordinator/placement"
	"github.com/ScatterLabs/Scatter/persist"

	"gitlab.com/NebulousLabs/threadgroup"
)

type (
	// An activeChallenge is the single outstanding download challenge for
	// one user. A new download overwrites it; verification consumes it.
	activeChallenge struct {
		nonce  string
		expiry time.Time
	}

	// A Coordinator owns the placement index, the challenge table, and the
	// public-key registry, and orchestrates every upload, download, and
	// delete against the renter fleet described by the membership table.
	Coordinator struct {
		membership modules.Membership
		ledger     modules.LedgerClient
		picker     *placement.Picker
		renters    *renterClient

		// ledgerAddress is the coordinator's own account address, empty
		// when running without a ledger.
		ledgerAddress string

		placements map[string]*modules.PlacementRecord
		pubKeys    map[string]string
		challenges map[string]activeChallenge

		// staged maps reconstructed artifact paths to the deadline at
		// which the janitor removes them.
		staged map[string]time.Time

		persistDir string

		log *persist.Logger
		mu  sync.Mutex
		tg  threadgroup.ThreadGroup
	}
)

var _ modules.Coordinator = (*Coordinator)(nil)

// New creates a coordinator that scatters files across the renters in the
// given membership table. The ledger client may be nil, which disables
// settlement but nothing else. The caller keeps ownership of both
// collaborators and closes them after the coordinator.
func New(membership modules.Membership, ledger modules.LedgerClient, persistDir string) (*Coordinator, error) {
	if err := os.MkdirAll(persistDir, 0700); err != nil {
		return nil, err
	}
	log, err := persist.NewLogger(filepath.Join(persistDir, logFile))
	if err != nil {
		return nil, err
	}

	c := &Coordinator{
		membership: membership,
		ledger:     ledger,
		picker:     placement.NewPicker(),
		renters:    newRenterClient(),

		placements: make(map[string]*modules.PlacementRecord),
		pubKeys:    make(map[string]string),
		challenges: make(map[string]activeChallenge),
		staged:     make(map[string]time.Time),

		persistDir: persistDir,
		log:        log,
	}
	c.tg.AfterStop(func() error {
		return c.log.Close()
	})

	if err := c.initPersist(); err != nil {
		return nil, err
	}
	c.connectLedger()

	go c.threadedJanitorLoop()
	return c, nil
}

// connectLedger establishes the coordinator's own ledger account. Any
// failure downgrades the coordinator to running without settlement rather
// than aborting startup; the health endpoint reports the downgrade.
func (c *Coordinator) connectLedger() {
	if c.ledger == nil {
		c.log.Println("no ledger configured, settlement disabled")
		return
	}
	address, err := c.ledger.CreateAccount(coordinatorUsername, 0)
	if err == modules.ErrAccountExists {
		address = modules.LedgerAddressFor(coordinatorUsername)
	} else if err != nil {
		c.log.Println("WARN: could not establish a ledger account, settlement disabled:", err)
		c.ledger = nil
		return
	}
	c.ledgerAddress = address
	c.log.Println("settling through ledger account", address)
}

// scratchPath returns the path of a scratch artifact.
func (c *Coordinator) scratchPath(name string) string {
	return filepath.Join(c.persistDir, scratchDirName, name)
}

// stagedPath returns the path a reconstructed file is staged at while it
// waits for challenge verification.
func (c *Coordinator) stagedPath(filename string) string {
	return filepath.Join(c.persistDir, stagedDirName, modules.StagedArtifactName(filename))
}

// threadedJanitorLoop periodically removes staged artifacts whose TTL has
// passed.
func (c *Coordinator) threadedJanitorLoop() {
	if err := c.tg.Add(); err != nil {
		return
	}
	defer c.tg.Done()

	for {
		select {
		case <-c.tg.StopChan():
			return
		case <-time.After(janitorInterval):
		}
		c.managedSweepStaged(time.Now())
	}
}

// managedSweepStaged removes every staged artifact whose deadline has
// passed.
func (c *Coordinator) managedSweepStaged(now time.Time) {
	c.mu.Lock()
	var expired []string
	for path, deadline := range c.staged {
		if now.After(deadline) {
			expired = append(expired, path)
			delete(c.staged, path)
		}
	}
	c.mu.Unlock()

	for _, path := range expired {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			c.log.Println("WARN: could not remove staged artifact", path, ":", err)
			continue
		}
		c.log.Println("staged artifact expired:", filepath.Base(path))
	}
}

// LedgerConnected reports whether the coordinator reached its settlement
// ledger at startup.
func (c *Coordinator) LedgerConnected() bool {
	return c.ledger != nil
}

// LedgerAddress returns the coordinator's own ledger address, or an empty
// string when running without a ledger.
func (c *Coordinator) LedgerAddress() string {
	return c.ledgerAddress
}

// Placement returns a copy of the placement record for a filename.
func (c *Coordinator) Placement(filename string) (modules.PlacementRecord, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	record, exists := c.placements[filename]
	if !exists {
		return modules.PlacementRecord{}, false
	}
	cp := *record
	cp.Shards = append([]modules.ShardDescriptor(nil), record.Shards...)
	return cp, true
}

// Close shuts the coordinator down.
func (c *Coordinator) Close() error {
	return c.tg.Stop()
}
