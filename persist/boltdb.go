package persist

import (
	"time"

	bolt "go.etcd.io/bbolt"

	"gitlab.com/NebulousLabs/errors"
)

// BoltDatabase is a persist-level wrapper for the bolt database, providing
// a metadata check on open.
type BoltDatabase struct {
	Metadata
	*bolt.DB
}

var (
	// ErrNilBucket is returned when a bucket that should exist does not.
	ErrNilBucket = errors.New("bucket does not exist")

	// ErrNilEntry is returned when an entry that should exist does not.
	ErrNilEntry = errors.New("entry does not exist")
)

// updateMetadata will set the contents of the metadata bucket to be what is
// stored inside the metadata argument.
func (db *BoltDatabase) updateMetadata(tx *bolt.Tx) error {
	bucket, err := tx.CreateBucketIfNotExists([]byte("Metadata"))
	if err != nil {
		return err
	}
	err = bucket.Put([]byte("Header"), []byte(db.Header))
	if err != nil {
		return err
	}
	err = bucket.Put([]byte("Version"), []byte(db.Version))
	if err != nil {
		return err
	}
	return nil
}

// checkMetadata confirms that the metadata in the database is correct. If
// there is no metadata, correct metadata is inserted.
func (db *BoltDatabase) checkMetadata(md Metadata) error {
	err := db.Update(func(tx *bolt.Tx) error {
		// Check if the database has metadata. If not, create metadata for
		// the database.
		bucket := tx.Bucket([]byte("Metadata"))
		if bucket == nil {
			err := db.updateMetadata(tx)
			if err != nil {
				return err
			}
			return nil
		}

		// Verify that the metadata matches the expected metadata.
		header := bucket.Get([]byte("Header"))
		if string(header) != md.Header {
			return ErrBadHeader
		}
		version := bucket.Get([]byte("Version"))
		if string(version) != md.Version {
			return ErrBadVersion
		}
		return nil
	})
	return err
}

// CloseDatabase closes the bolt database.
func (db *BoltDatabase) CloseDatabase() error {
	return db.Close()
}

// OpenDatabase opens a database file and checks its metadata.
func OpenDatabase(md Metadata, filename string) (*BoltDatabase, error) {
	// Open the database using a 3 second timeout (without the timeout,
	// database will potentially hang indefinitely).
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}

	boltDB := &BoltDatabase{
		Metadata: md,
		DB:       db,
	}
	err = boltDB.checkMetadata(md)
	if err != nil {
		err = errors.Compose(err, db.Close())
		return nil, err
	}
	return boltDB, nil
}
