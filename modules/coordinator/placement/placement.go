// Package placement decides how an uploaded file divides into shards and
// which renters receive the replicas of each shard. The decisions are pure
// functions of the file size and a membership snapshot, which keeps them
// easy to reason about and easy to test.
package placement

import (
	"sort"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"

	"gitlab.com/NebulousLabs/fastrand"
)

type (
	// A Range addresses one shard's bytes within the original file.
	Range struct {
		Offset uint64
		Length uint64
	}

	// A Picker selects renters for shard replicas. Randomness is taken
	// from an injected source so that selection can be made deterministic
	// under test.
	Picker struct {
		intn func(n int) int
	}
)

// NewPicker returns a Picker backed by fastrand.
func NewPicker() *Picker {
	return &Picker{intn: fastrand.Intn}
}

// ShardCount returns the number of shards a file of the given size divides
// into. Every shard holds at least one byte, so files smaller than the
// minimum shard count get one shard per byte instead.
func ShardCount(size uint64) (int, error) {
	if size == 0 {
		return 0, modules.ErrEmptyFile
	}
	n := int((size + TargetShardSize - 1) / TargetShardSize)
	if n < minShards {
		n = minShards
	}
	if n > maxShards {
		n = maxShards
	}
	if uint64(n) > size {
		n = int(size)
	}
	return n, nil
}

// ShardRanges divides a file of the given size into n contiguous ranges.
// Every range spans size/n bytes except the last, which absorbs the
// remainder.
func ShardRanges(size uint64, n int) []Range {
	if n <= 0 || uint64(n) > size {
		build.Critical("shard count", n, "is invalid for a file of", size, "bytes")
		return nil
	}
	base := size / uint64(n)
	ranges := make([]Range, n)
	var offset uint64
	for i := range ranges {
		length := base
		if i == n-1 {
			length = size - offset
		}
		ranges[i] = Range{Offset: offset, Length: length}
		offset += length
	}
	return ranges
}

// Pick assigns renters to every replica of every shard. Each shard gets
// min(ReplicationFactor, live renters) distinct renters, spread across as
// many racks as possible: racks are visited in sorted label order and
// contribute one uniformly chosen member each, then any remaining replica
// slots are filled uniformly from the renters not yet holding the shard.
func (p *Picker) Pick(snap modules.MembershipSnapshot, numShards int) ([][]modules.RenterID, error) {
	if len(snap.Renters) == 0 {
		return nil, modules.ErrNoRenters
	}
	rEffective := ReplicationFactor
	if len(snap.Renters) < rEffective {
		rEffective = len(snap.Renters)
	}

	racks := make([]string, 0, len(snap.Racks))
	for label := range snap.Racks {
		racks = append(racks, label)
	}
	sort.Strings(racks)

	assignments := make([][]modules.RenterID, numShards)
	for shard := range assignments {
		chosen := make(map[modules.RenterID]struct{}, rEffective)
		replicas := make([]modules.RenterID, 0, rEffective)

		// One replica per rack while slots remain. A renter belongs to
		// exactly one rack, so picks from distinct racks cannot collide.
		for _, label := range racks {
			if len(replicas) == rEffective {
				break
			}
			members := snap.Racks[label]
			if len(members) == 0 {
				continue
			}
			id := members[p.intn(len(members))]
			chosen[id] = struct{}{}
			replicas = append(replicas, id)
		}

		// Fill remaining slots from the renters not yet holding this
		// shard. The candidates are sorted so that an injected random
		// source yields reproducible assignments.
		if len(replicas) < rEffective {
			remainder := make([]modules.RenterID, 0, len(snap.Renters))
			for id := range snap.Renters {
				if _, exists := chosen[id]; !exists {
					remainder = append(remainder, id)
				}
			}
			sort.Slice(remainder, func(i, j int) bool { return remainder[i] < remainder[j] })
			for len(replicas) < rEffective {
				i := p.intn(len(remainder))
				replicas = append(replicas, remainder[i])
				remainder = append(remainder[:i], remainder[i+1:]...)
			}
		}
		assignments[shard] = replicas
	}
	return assignments, nil
}
