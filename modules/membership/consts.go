package membership

import (
	"time"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"
)

const (
	// logFile is the name of the membership module's log file.
	logFile = modules.MembershipDir + ".log"

	// rackCount is the number of advisory rack labels that renters are
	// spread across at registration time. Rack labels are coordinator
	// internal; renters never learn which rack they were assigned.
	rackCount = 3
)

var (
	// sweepInterval is how often the background sweeper prunes the table.
	// Every read of the table sweeps first, so the loop only bounds how
	// long an expired renter can linger between reads.
	sweepInterval = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      5 * time.Second,
		Testing:  100 * time.Millisecond,
	}).(time.Duration)
)
