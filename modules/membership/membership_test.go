package membership

import (
	"testing"
	"time"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"

	"github.com/google/uuid"
)

// newTestMembership creates a membership table backed by a fresh test
// directory.
func newTestMembership(t *testing.T) *Membership {
	m, err := New(build.TempDir("membership", t.Name()))
	if err != nil {
		t.Fatal(err)
	}
	return m
}

// TestRegisterRenter probes the RegisterRenter method of the Membership
// type.
func TestRegisterRenter(t *testing.T) {
	m := newTestMembership(t)
	defer m.Close()

	// Registering with an empty id should produce a generated one.
	id, err := m.RegisterRenter("", "http://localhost:9001", 5<<20, "addr-1")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := uuid.Parse(string(id)); err != nil {
		t.Error("generated renter id is not a uuid:", id)
	}

	// A caller-supplied id is kept verbatim.
	id2, err := m.RegisterRenter("renter-two", "http://localhost:9002", 5<<20, "")
	if err != nil {
		t.Fatal(err)
	}
	if id2 != "renter-two" {
		t.Error("caller supplied id was not kept:", id2)
	}

	// Invalid URLs are rejected.
	if _, err := m.RegisterRenter("", "localhost:9003", 5<<20, ""); err != modules.ErrInvalidRenterURL {
		t.Error("expected ErrInvalidRenterURL, got", err)
	}

	snap := m.Snapshot()
	if len(snap.Renters) != 2 {
		t.Fatal("expected 2 registered renters, got", len(snap.Renters))
	}
}

// TestRackAssignment checks the round-robin rack assignment policy.
func TestRackAssignment(t *testing.T) {
	m := newTestMembership(t)
	defer m.Close()

	ids := []modules.RenterID{"r0", "r1", "r2", "r3", "r4"}
	for _, id := range ids {
		_, err := m.RegisterRenter(id, "http://localhost:9001", 5<<20, "")
		if err != nil {
			t.Fatal(err)
		}
	}

	snap := m.Snapshot()
	expected := map[modules.RenterID]string{
		"r0": "0", "r1": "1", "r2": "2", "r3": "0", "r4": "1",
	}
	for id, rack := range expected {
		if snap.Renters[id].Rack != rack {
			t.Errorf("renter %v on rack %v, expected %v", id, snap.Renters[id].Rack, rack)
		}
	}
	if len(snap.Racks["0"]) != 2 || len(snap.Racks["1"]) != 2 || len(snap.Racks["2"]) != 1 {
		t.Error("rack index does not match assignments:", snap.Racks)
	}
}

// TestReRegistrationKeepsRack checks that re-registering an id refreshes
// the record without moving it to a new rack.
func TestReRegistrationKeepsRack(t *testing.T) {
	m := newTestMembership(t)
	defer m.Close()

	_, err := m.RegisterRenter("r0", "http://localhost:9001", 5<<20, "addr-old")
	if err != nil {
		t.Fatal(err)
	}
	_, err = m.RegisterRenter("r1", "http://localhost:9002", 5<<20, "")
	if err != nil {
		t.Fatal(err)
	}

	// Re-register r0 with a new URL and address.
	_, err = m.RegisterRenter("r0", "http://localhost:9009", 10<<20, "addr-new")
	if err != nil {
		t.Fatal(err)
	}

	snap := m.Snapshot()
	record := snap.Renters["r0"]
	if record.Rack != "0" {
		t.Error("re-registration moved the renter to rack", record.Rack)
	}
	if record.URL != "http://localhost:9009" || record.LedgerAddress != "addr-new" {
		t.Error("re-registration did not refresh the record")
	}
	if len(snap.Racks["0"]) != 1 {
		t.Error("re-registration duplicated the rack entry:", snap.Racks["0"])
	}
}

// TestHeartbeat probes the Heartbeat method of the Membership type.
func TestHeartbeat(t *testing.T) {
	m := newTestMembership(t)
	defer m.Close()

	if err := m.Heartbeat("ghost", ""); err != modules.ErrUnknownRenter {
		t.Error("expected ErrUnknownRenter, got", err)
	}

	id, err := m.RegisterRenter("r0", "http://localhost:9001", 5<<20, "")
	if err != nil {
		t.Fatal(err)
	}
	before := m.Snapshot().Renters[id].LastHeartbeat
	time.Sleep(10 * time.Millisecond)
	if err := m.Heartbeat(id, "addr-late"); err != nil {
		t.Fatal(err)
	}
	record := m.Snapshot().Renters[id]
	if !record.LastHeartbeat.After(before) {
		t.Error("heartbeat did not advance the liveness stamp")
	}
	if record.LedgerAddress != "addr-late" {
		t.Error("heartbeat did not refresh the ledger address")
	}
}

// TestMembershipChurn registers three renters, keeps only one of them
// heartbeating past the liveness window, and checks that the table
// converges to the survivor.
func TestMembershipChurn(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	m := newTestMembership(t)
	defer m.Close()

	for _, id := range []modules.RenterID{"a", "b", "c"} {
		_, err := m.RegisterRenter(id, "http://localhost:9001", 5<<20, "")
		if err != nil {
			t.Fatal(err)
		}
	}

	// Heartbeat only renter a for well over the liveness window.
	deadline := time.Now().Add(3 * modules.RenterTimeout)
	for time.Now().Before(deadline) {
		if err := m.Heartbeat("a", ""); err != nil {
			t.Fatal(err)
		}
		time.Sleep(modules.RenterTimeout / 5)
	}

	snap := m.Snapshot()
	if len(snap.Renters) != 1 {
		t.Fatal("expected only the heartbeating renter to survive, got", len(snap.Renters))
	}
	if _, exists := snap.Renters["a"]; !exists {
		t.Error("the heartbeating renter was swept")
	}

	// The expired renters must also have left the rack index.
	total := 0
	for _, members := range snap.Racks {
		total += len(members)
	}
	if total != 1 {
		t.Error("rack index still references swept renters:", snap.Racks)
	}
}

// TestSnapshotIsACopy verifies that mutating a snapshot does not affect
// the table.
func TestSnapshotIsACopy(t *testing.T) {
	m := newTestMembership(t)
	defer m.Close()

	_, err := m.RegisterRenter("r0", "http://localhost:9001", 5<<20, "")
	if err != nil {
		t.Fatal(err)
	}

	snap := m.Snapshot()
	delete(snap.Renters, "r0")
	snap.Racks["0"] = nil

	again := m.Snapshot()
	if _, exists := again.Renters["r0"]; !exists {
		t.Error("mutating a snapshot mutated the table")
	}
	if len(again.Racks["0"]) != 1 {
		t.Error("mutating a snapshot mutated the rack index")
	}
}
