package placement

import (
	"fmt"
	"math/rand"
	"strconv"
	"testing"
	"time"

	"github.com/ScatterLabs/Scatter/modules"
)

// testSnapshot builds a membership snapshot with the given number of
// renters on each rack.
func testSnapshot(rackSizes ...int) modules.MembershipSnapshot {
	snap := modules.MembershipSnapshot{
		Renters: make(map[modules.RenterID]modules.RenterRecord),
		Racks:   make(map[string][]modules.RenterID),
	}
	for rack, count := range rackSizes {
		label := strconv.Itoa(rack)
		for i := 0; i < count; i++ {
			id := modules.RenterID(fmt.Sprintf("renter-%v-%v", rack, i))
			snap.Renters[id] = modules.RenterRecord{
				ID:            id,
				Rack:          label,
				LastHeartbeat: time.Now(),
			}
			snap.Racks[label] = append(snap.Racks[label], id)
		}
	}
	return snap
}

// seededPicker returns a picker with a deterministic random source.
func seededPicker(seed int64) *Picker {
	return &Picker{intn: rand.New(rand.NewSource(seed)).Intn}
}

// TestShardCount probes the ShardCount function.
func TestShardCount(t *testing.T) {
	tests := []struct {
		size uint64
		n    int
	}{
		{1, 1},
		{2, 2},
		{3, 3},
		{1000, 3},
		{1 << 20, 3},
		{3 << 20, 3},
		{3<<20 + 1, 4},
		{7 << 20, 7},
		{10 << 20, 10},
		{10<<20 + 1, 10},
		{500 << 20, 10},
	}
	for _, test := range tests {
		n, err := ShardCount(test.size)
		if err != nil {
			t.Fatal(err)
		}
		if n != test.n {
			t.Errorf("size %v: got %v shards, expected %v", test.size, n, test.n)
		}
	}

	if _, err := ShardCount(0); err != modules.ErrEmptyFile {
		t.Error("expected ErrEmptyFile for a zero-byte file, got", err)
	}
}

// TestShardRanges checks that shard ranges tile the file exactly.
func TestShardRanges(t *testing.T) {
	sizes := []uint64{3, 10, 1000, 1 << 20, 3<<20 + 17, 10<<20 + 999}
	for _, size := range sizes {
		n, err := ShardCount(size)
		if err != nil {
			t.Fatal(err)
		}
		ranges := ShardRanges(size, n)
		if len(ranges) != n {
			t.Fatalf("size %v: got %v ranges, expected %v", size, len(ranges), n)
		}

		var offset uint64
		for i, r := range ranges {
			if r.Offset != offset {
				t.Errorf("size %v: range %v starts at %v, expected %v", size, i, r.Offset, offset)
			}
			if r.Length == 0 {
				t.Errorf("size %v: range %v is empty", size, i)
			}
			if i < n-1 && r.Length != size/uint64(n) {
				t.Errorf("size %v: range %v has length %v, expected %v", size, i, r.Length, size/uint64(n))
			}
			offset += r.Length
		}
		if offset != size {
			t.Errorf("size %v: ranges cover %v bytes", size, offset)
		}
	}
}

// TestPickSpreadsAcrossRacks checks that replicas of a shard land on
// distinct racks when enough racks exist.
func TestPickSpreadsAcrossRacks(t *testing.T) {
	snap := testSnapshot(2, 2, 2)
	assignments, err := seededPicker(1).Pick(snap, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(assignments) != 5 {
		t.Fatal("expected one assignment per shard, got", len(assignments))
	}
	for shard, replicas := range assignments {
		if len(replicas) != ReplicationFactor {
			t.Fatalf("shard %v has %v replicas, expected %v", shard, len(replicas), ReplicationFactor)
		}
		racks := make(map[string]struct{})
		renters := make(map[modules.RenterID]struct{})
		for _, id := range replicas {
			record, exists := snap.Renters[id]
			if !exists {
				t.Fatalf("shard %v assigned to unknown renter %v", shard, id)
			}
			racks[record.Rack] = struct{}{}
			renters[id] = struct{}{}
		}
		if len(renters) != ReplicationFactor {
			t.Errorf("shard %v has duplicate renters: %v", shard, replicas)
		}
		if len(racks) != ReplicationFactor {
			t.Errorf("shard %v is concentrated on racks %v", shard, racks)
		}
	}
}

// TestPickSingleRack checks that replica slots are filled from within a
// rack once every rack is represented.
func TestPickSingleRack(t *testing.T) {
	snap := testSnapshot(4)
	assignments, err := seededPicker(2).Pick(snap, 3)
	if err != nil {
		t.Fatal(err)
	}
	for shard, replicas := range assignments {
		if len(replicas) != ReplicationFactor {
			t.Fatalf("shard %v has %v replicas, expected %v", shard, len(replicas), ReplicationFactor)
		}
		renters := make(map[modules.RenterID]struct{})
		for _, id := range replicas {
			renters[id] = struct{}{}
		}
		if len(renters) != ReplicationFactor {
			t.Errorf("shard %v has duplicate renters: %v", shard, replicas)
		}
	}
}

// TestPickFewRenters checks that the effective replication factor drops to
// the size of the fleet.
func TestPickFewRenters(t *testing.T) {
	assignments, err := seededPicker(3).Pick(testSnapshot(1, 1), 4)
	if err != nil {
		t.Fatal(err)
	}
	for shard, replicas := range assignments {
		if len(replicas) != 2 {
			t.Errorf("shard %v has %v replicas, expected 2", shard, len(replicas))
		}
	}

	assignments, err = seededPicker(3).Pick(testSnapshot(1), 4)
	if err != nil {
		t.Fatal(err)
	}
	for shard, replicas := range assignments {
		if len(replicas) != 1 {
			t.Errorf("shard %v has %v replicas, expected 1", shard, len(replicas))
		}
	}

	if _, err := seededPicker(3).Pick(testSnapshot(), 4); err != modules.ErrNoRenters {
		t.Error("expected ErrNoRenters, got", err)
	}
}

// TestPickDeterministic checks that identical random sources produce
// identical assignments.
func TestPickDeterministic(t *testing.T) {
	snap := testSnapshot(3, 2, 1)
	first, err := seededPicker(7).Pick(snap, 6)
	if err != nil {
		t.Fatal(err)
	}
	second, err := seededPicker(7).Pick(snap, 6)
	if err != nil {
		t.Fatal(err)
	}
	for shard := range first {
		for replica := range first[shard] {
			if first[shard][replica] != second[shard][replica] {
				t.Fatal("seeded picks diverged at shard", shard)
			}
		}
	}
}
