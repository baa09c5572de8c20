package coordinator

import (
	"time"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"
)

const (
	// logFile is the name of the coordinator's log file.
	logFile = modules.CoordinatorDir + ".log"

	// pubKeyFile is the file the public-key registry is persisted to.
	pubKeyFile = "publickeys.json"

	// scratchDirName holds in-flight upload blobs; stagedDirName holds
	// reconstructed files awaiting challenge verification. Both live under
	// the coordinator's persist dir and are cleared at startup.
	scratchDirName = "scratch"
	stagedDirName  = "staged"

	// coordinatorUsername is the username the coordinator's own ledger
	// account is created under. Clients top this account up to fund
	// settlement; its address is returned by register-public-key.
	coordinatorUsername = "ScatterCoordinator"
)

var (
	// shardIOTimeout bounds every store-shard and retrieve-shard call to a
	// renter.
	shardIOTimeout = build.Select(build.Var{
		Standard: 300 * time.Second,
		Dev:      60 * time.Second,
		Testing:  5 * time.Second,
	}).(time.Duration)

	// quickTimeout bounds the small renter calls, currently only
	// delete-shard.
	quickTimeout = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      10 * time.Second,
		Testing:  2 * time.Second,
	}).(time.Duration)

	// stagedTTL is how long a reconstructed artifact stays on disk waiting
	// for challenge verification. Challenges expire on the same clock, so
	// an unexpired challenge finds its artifact unless verification raced
	// the janitor.
	stagedTTL = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      10 * time.Second,
		Testing:  500 * time.Millisecond,
	}).(time.Duration)

	// janitorInterval is how often expired staged artifacts are checked
	// for.
	janitorInterval = build.Select(build.Var{
		Standard: 5 * time.Second,
		Dev:      2 * time.Second,
		Testing:  100 * time.Millisecond,
	}).(time.Duration)
)
