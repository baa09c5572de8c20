package ledger

import (
	"time"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"
)

const (
	// logFile is the name of the ledger service's log file.
	logFile = modules.LedgerDir + ".log"
)

var (
	// dialTimeout is how long the client waits for the TCP connection to
	// the ledger service to come up.
	dialTimeout = build.Select(build.Var{
		Standard: 10 * time.Second,
		Dev:      5 * time.Second,
		Testing:  2 * time.Second,
	}).(time.Duration)

	// callTimeout bounds every call issued over the ledger connection.
	callTimeout = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      15 * time.Second,
		Testing:  5 * time.Second,
	}).(time.Duration)
)
