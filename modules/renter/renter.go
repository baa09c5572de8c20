// Package renter implements the storage side of the network. A renter
// reserves a slice of local disk, registers it with a coordinator, and then
// holds whatever shard blobs the coordinator sends its way. Renters know
// nothing about the files their shards belong to; all placement knowledge
// lives with the coordinator.
package renter

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ScatterLabs/Scatter/modules"
	"github.com/ScatterLabs/Scatter/persist"

	"github.com/google/uuid"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/threadgroup"
	bolt "go.etcd.io/bbolt"
)

var (
	// errNilConfig is returned when required configuration is missing.
	errNilConfig = errors.New("renter requires a coordinator URL and its own URL")
)

type (
	// A Config bundles what a renter needs to join a fleet.
	Config struct {
		// CoordinatorURL is the base URL of the coordinator to register
		// with.
		CoordinatorURL string

		// URL is the base URL this renter's shard server is reachable at.
		// It is advertised verbatim to the coordinator.
		URL modules.RenterURL

		// Capacity is the advertised storage capacity in bytes. Values
		// below MinStorage are raised to it.
		Capacity uint64

		// LedgerAddress is the ledger address storage payments should be
		// sent to. Leave empty to forgo payment.
		LedgerAddress string
	}

	// persistence is what the renter remembers across restarts. Keeping the
	// identity stable means a restarted renter slots back into the same
	// placement records it held before.
	persistence struct {
		ID modules.RenterID `json:"renter_id"`
	}

	// A Renter stores shard blobs in a local directory and maintains its
	// registration with a coordinator through periodic heartbeats.
	Renter struct {
		id            modules.RenterID
		url           modules.RenterURL
		capacity      uint64
		ledgerAddress string

		db          *persist.BoltDatabase
		coordinator *coordinatorClient

		persistDir string
		log        *persist.Logger
		mu         sync.Mutex
		tg         threadgroup.ThreadGroup
	}
)

var _ modules.Renter = (*Renter)(nil)

// New creates a renter rooted at persistDir, reserves its capacity on
// disk, and registers with the coordinator. Registration failures are not
// fatal; the heartbeat loop keeps retrying until the coordinator answers.
func New(config Config, persistDir string) (*Renter, error) {
	if config.CoordinatorURL == "" || config.URL == "" {
		return nil, errNilConfig
	}
	if !config.URL.IsValid() {
		return nil, modules.ErrInvalidRenterURL
	}
	if err := os.MkdirAll(filepath.Join(persistDir, storageDirName), 0700); err != nil {
		return nil, err
	}
	logger, err := persist.NewLogger(filepath.Join(persistDir, logFile))
	if err != nil {
		return nil, err
	}

	r := &Renter{
		url:           config.URL,
		capacity:      config.Capacity,
		ledgerAddress: config.LedgerAddress,
		coordinator:   newCoordinatorClient(config.CoordinatorURL),
		persistDir:    persistDir,
		log:           logger,
	}
	r.tg.AfterStop(func() error {
		return r.log.Close()
	})
	if r.capacity < MinStorage {
		r.log.Printf("advertised capacity %v bytes is below the %v byte floor, raising it", r.capacity, MinStorage)
		r.capacity = MinStorage
	}

	if err := r.initPersist(); err != nil {
		return nil, errors.Compose(err, logger.Close())
	}
	r.log.Printf("renter %v serving %v with %v bytes", r.id, r.url, r.capacity)

	r.managedRegister()
	go r.threadedHeartbeatLoop()
	return r, nil
}

// initPersist loads or creates the renter's identity, reserves the
// advertised capacity, and opens the shard index.
func (r *Renter) initPersist() error {
	// Identity.
	var p persistence
	err := persist.LoadJSON(settingsMetadata, &p, filepath.Join(r.persistDir, settingsFile))
	if os.IsNotExist(err) {
		p.ID = modules.RenterID(uuid.New().String())
		err = persist.SaveJSON(settingsMetadata, p, filepath.Join(r.persistDir, settingsFile))
	}
	if err != nil {
		return errors.AddContext(err, "could not load renter identity")
	}
	r.id = p.ID

	// Capacity reservation.
	if err := r.allocateBlocker(); err != nil {
		return errors.AddContext(err, "could not reserve storage capacity")
	}

	// Shard index.
	db, err := persist.OpenDatabase(dbMetadata, filepath.Join(r.persistDir, dbFile))
	if err != nil {
		return errors.AddContext(err, "could not open the shard index")
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketShards)
		return err
	})
	if err != nil {
		return errors.Compose(err, db.Close())
	}
	r.db = db
	r.tg.AfterStop(func() error {
		return r.db.Close()
	})
	return nil
}

// allocateBlocker sizes the capacity blocker file to the advertised
// capacity. An existing blocker of the right size is left alone.
func (r *Renter) allocateBlocker() error {
	path := r.blockerPath()
	if info, err := os.Stat(path); err == nil && uint64(info.Size()) == r.capacity {
		return nil
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE, 0600)
	if err != nil {
		return err
	}
	err = f.Truncate(int64(r.capacity))
	return errors.Compose(err, f.Close())
}

func (r *Renter) blockerPath() string {
	return filepath.Join(r.persistDir, storageDirName, blockerFileName)
}

// blobPath returns where a blob is stored on disk.
func (r *Renter) blobPath(blobName string) string {
	return filepath.Join(r.persistDir, storageDirName, blobName)
}

// managedRegister announces the renter to the coordinator under its
// persistent identity. Failures are logged and retried by the heartbeat
// loop, so a renter started before its coordinator still joins the fleet.
func (r *Renter) managedRegister() {
	id, err := r.coordinator.register(registerRequest{
		RenterID:         r.id,
		URL:              r.url,
		StorageAvailable: r.capacity,
		LedgerAddress:    r.ledgerAddress,
	})
	if err != nil {
		r.log.Println("WARN: could not register with the coordinator:", err)
		return
	}
	if id != r.id {
		r.log.Printf("WARN: coordinator recorded id %v instead of %v", id, r.id)
		return
	}
	r.log.Println("registered with the coordinator as", r.id)
}

// threadedHeartbeatLoop keeps the renter's registration alive. A heartbeat
// that comes back unknown means the coordinator swept this renter, so the
// loop re-registers under the same identity.
func (r *Renter) threadedHeartbeatLoop() {
	if r.tg.Add() != nil {
		return
	}
	defer r.tg.Done()

	for {
		select {
		case <-r.tg.StopChan():
			return
		case <-time.After(heartbeatInterval):
		}

		// A missing blocker file means the storage dir is gone or was
		// tampered with. Skipping the heartbeat lets the coordinator
		// retire this renter instead of placing shards on broken storage.
		if _, err := os.Stat(r.blockerPath()); err != nil {
			r.log.Println("WARN: storage reservation missing, withholding heartbeat:", err)
			continue
		}

		err := r.coordinator.heartbeat(r.id, r.ledgerAddress)
		if err == modules.ErrUnknownRenter {
			r.managedRegister()
		} else if err != nil {
			r.log.Println("WARN: heartbeat failed:", err)
		}
	}
}

// ID returns the renter's persistent identity.
func (r *Renter) ID() modules.RenterID {
	return r.id
}

// URL returns the base URL the renter advertises to its coordinator.
func (r *Renter) URL() modules.RenterURL {
	return r.url
}

// LedgerAddress returns the address storage payments are sent to, or an
// empty string when the renter runs unpaid.
func (r *Renter) LedgerAddress() string {
	return r.ledgerAddress
}

// Close stops the heartbeat loop and releases the shard index.
func (r *Renter) Close() error {
	return r.tg.Stop()
}
