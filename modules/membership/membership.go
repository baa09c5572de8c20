// Package membership tracks the storage renters known to the coordinator.
// Renters enter the table by registering and stay in it by heartbeating.
// Liveness is enforced lazily: every read of the table sweeps expired
// renters first, so correctness never depends on a timer firing. A
// background sweeper additionally prunes the table between reads.
package membership

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/persist"

	"github.com/google/uuid"
	"gitlab.com/NebulousLabs/demotemutex"
	"gitlab.com/NebulousLabs/threadgroup"
)

// A Membership is an in-memory table of registered renters and the rack
// index derived from it. The table is rebuilt from renter re-registrations
// after a restart; only the log survives.
type Membership struct {
	renters map[modules.RenterID]modules.RenterRecord
	racks   map[string][]modules.RenterID

	log *persist.Logger
	mu  demotemutex.DemoteMutex
	tg  threadgroup.ThreadGroup
}

// New creates an empty membership table that logs under persistDir.
func New(persistDir string) (*Membership, error) {
	// Create the persist directory if it does not yet exist.
	err := os.MkdirAll(persistDir, 0700)
	if err != nil {
		return nil, err
	}
	logger, err := persist.NewLogger(filepath.Join(persistDir, logFile))
	if err != nil {
		return nil, err
	}

	m := &Membership{
		renters: make(map[modules.RenterID]modules.RenterRecord),
		racks:   make(map[string][]modules.RenterID),
		log:     logger,
	}
	m.tg.AfterStop(func() error {
		return m.log.Close()
	})
	go m.threadedSweepLoop()
	return m, nil
}

// unlinkRack removes a renter id from its rack's member list, dropping the
// rack entirely once it is empty.
func (m *Membership) unlinkRack(rack string, id modules.RenterID) {
	members := m.racks[rack]
	for i, member := range members {
		if member == id {
			members = append(members[:i], members[i+1:]...)
			break
		}
	}
	if len(members) == 0 {
		delete(m.racks, rack)
		return
	}
	m.racks[rack] = members
}

// sweep removes every renter whose heartbeat is older than the renter
// timeout and unlinks it from its rack. The caller must hold the write
// lock. The number of removed renters is returned.
func (m *Membership) sweep(now time.Time) int {
	removed := 0
	for id, record := range m.renters {
		if record.Live(now, modules.RenterTimeout) {
			continue
		}
		delete(m.renters, id)
		m.unlinkRack(record.Rack, id)
		removed++
		m.log.Printf("renter %v expired: last heartbeat %v", id, record.LastHeartbeat.UTC().Format(time.RFC3339))
	}
	return removed
}

// threadedSweepLoop prunes expired renters between reads of the table.
func (m *Membership) threadedSweepLoop() {
	if m.tg.Add() != nil {
		return
	}
	defer m.tg.Done()

	for {
		select {
		case <-m.tg.StopChan():
			return
		case <-time.After(sweepInterval):
		}
		m.mu.Lock()
		m.sweep(time.Now())
		m.mu.Unlock()
	}
}

// RegisterRenter adds a renter to the table, assigning a rack round-robin
// over the current membership size. An empty id asks the table to generate
// one. Re-registering an existing id refreshes the record but keeps its
// rack, so placements referencing the id stay rack-consistent.
func (m *Membership) RegisterRenter(id modules.RenterID, url modules.RenterURL, storageAvailable uint64, ledgerAddress string) (modules.RenterID, error) {
	if err := m.tg.Add(); err != nil {
		return "", err
	}
	defer m.tg.Done()
	if !url.IsValid() {
		return "", modules.ErrInvalidRenterURL
	}
	if url.IsLocal() && build.Release != "testing" {
		m.log.Printf("WARN: renter url %v is a loopback address, only a same-machine coordinator can fetch shards from it", url)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if id == "" {
		id = modules.RenterID(uuid.New().String())
	}
	now := time.Now()
	if existing, exists := m.renters[id]; exists {
		existing.URL = url
		existing.StorageAvailable = storageAvailable
		existing.LastHeartbeat = now
		if ledgerAddress != "" {
			existing.LedgerAddress = ledgerAddress
		}
		m.renters[id] = existing
		m.log.Printf("renter %v re-registered from %v", id, url)
		return id, nil
	}

	rack := strconv.Itoa(len(m.renters) % rackCount)
	m.renters[id] = modules.RenterRecord{
		ID:               id,
		URL:              url,
		StorageAvailable: storageAvailable,
		LastHeartbeat:    now,
		Rack:             rack,
		LedgerAddress:    ledgerAddress,
	}
	m.racks[rack] = append(m.racks[rack], id)
	m.log.Printf("renter %v registered from %v on rack %v", id, url, rack)
	return id, nil
}

// Heartbeat stamps a renter's liveness. Renters that have already been
// swept get ErrUnknownRenter and are expected to re-register.
func (m *Membership) Heartbeat(id modules.RenterID, ledgerAddress string) error {
	if err := m.tg.Add(); err != nil {
		return err
	}
	defer m.tg.Done()

	m.mu.Lock()
	defer m.mu.Unlock()

	record, exists := m.renters[id]
	if !exists {
		return modules.ErrUnknownRenter
	}
	record.LastHeartbeat = time.Now()
	if ledgerAddress != "" {
		record.LedgerAddress = ledgerAddress
	}
	m.renters[id] = record
	return nil
}

// Snapshot sweeps the table and returns a copy of the survivors. The write
// lock is demoted while the copy is built so that heartbeats queue behind
// the sweep but not behind the copy.
func (m *Membership) Snapshot() modules.MembershipSnapshot {
	m.mu.Lock()
	m.sweep(time.Now())
	m.mu.Demote()
	defer m.mu.DemotedUnlock()

	snap := modules.MembershipSnapshot{
		Renters: make(map[modules.RenterID]modules.RenterRecord, len(m.renters)),
		Racks:   make(map[string][]modules.RenterID, len(m.racks)),
	}
	for id, record := range m.renters {
		snap.Renters[id] = record
	}
	for rack, members := range m.racks {
		snap.Racks[rack] = append([]modules.RenterID(nil), members...)
	}
	return snap
}

// Renters sweeps the table and returns the public view of the survivors.
func (m *Membership) Renters() []modules.RenterInfo {
	m.mu.Lock()
	m.sweep(time.Now())
	m.mu.Demote()
	defer m.mu.DemotedUnlock()

	infos := make([]modules.RenterInfo, 0, len(m.renters))
	for _, record := range m.renters {
		infos = append(infos, modules.RenterInfo{
			ID:               record.ID,
			URL:              record.URL,
			StorageAvailable: record.StorageAvailable,
			LedgerAddress:    record.LedgerAddress,
		})
	}
	return infos
}

// Close stops the sweeper and releases the log.
func (m *Membership) Close() error {
	return m.tg.Stop()
}
