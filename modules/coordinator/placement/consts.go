package placement

const (
	// minShards and maxShards bound the shard count of a file. Small files
	// are still spread across several renters, and large files do not fan
	// out without limit.
	minShards = 3
	maxShards = 10

	// ReplicationFactor is the number of replicas kept of every shard. The
	// effective factor drops to the number of live renters when the fleet
	// is smaller than this.
	ReplicationFactor = 3
)

// TargetShardSize is the shard size the splitter aims for. A file
// contributes one shard per TargetShardSize bytes before clamping. The
// scatterd daemon sets this from its --shard-size flag before any uploads
// are accepted.
var TargetShardSize uint64 = 1 << 20
