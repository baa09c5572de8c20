package renter

import (
	"time"

	"github.com/ScatterLabs/Scatter/build"
	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/persist"
)

const (
	// MinStorage is the floor on advertised capacity. Registrations below
	// the floor are raised to it, so every renter in the fleet can hold at
	// least a handful of shards.
	MinStorage = 5 << 20

	// logFile is the name of the renter's log file.
	logFile = modules.RenterDir + ".log"

	// settingsFile is the name of the renter's settings file, which holds
	// the renter's identity.
	settingsFile = modules.RenterDir + ".json"

	// dbFile is the name of the shard index database.
	dbFile = "shards.db"

	// storageDirName is the directory shard blobs are stored in, relative
	// to the renter's persist dir.
	storageDirName = "storage"

	// blockerFileName is the name of the capacity blocker file. The file is
	// pre-sized to the advertised capacity inside the storage dir, so the
	// space a renter promises the fleet is reserved up front. Blobs may
	// never be stored under this name.
	blockerFileName = "storage_blocker.bin"
)

var (
	settingsMetadata = persist.Metadata{
		Header:  "Renter Settings",
		Version: "1.0",
	}
	dbMetadata = persist.Metadata{
		Header:  "Shard Index",
		Version: "1.0",
	}

	// heartbeatInterval is how often the renter refreshes its registration
	// with the coordinator. Heartbeating at half the coordinator's liveness
	// window means a single dropped heartbeat never expires the renter.
	heartbeatInterval = modules.RenterTimeout / 2

	// coordinatorTimeout bounds registration and heartbeat calls to the
	// coordinator.
	coordinatorTimeout = build.Select(build.Var{
		Standard: 30 * time.Second,
		Dev:      10 * time.Second,
		Testing:  2 * time.Second,
	}).(time.Duration)
)
