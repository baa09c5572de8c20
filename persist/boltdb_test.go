package persist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ScatterLabs/Scatter/build"

	"gitlab.com/NebulousLabs/errors"
	bolt "go.etcd.io/bbolt"
)

// TestOpenDatabase creates a database, writes to it, closes it, and then
// reopens it, checking that the metadata check passes and the data
// survived.
func TestOpenDatabase(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	testdir := build.TempDir(persistDir, t.Name())
	err := os.MkdirAll(testdir, 0700)
	if err != nil {
		t.Fatal(err)
	}

	md := Metadata{
		Header:  "Test Database",
		Version: "0.0.1",
	}
	dbFilename := filepath.Join(testdir, "test.db")
	db, err := OpenDatabase(md, dbFilename)
	if err != nil {
		t.Fatal(err)
	}

	// Write an entry into a bucket.
	err = db.Update(func(tx *bolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte("TestBucket"))
		if err != nil {
			return err
		}
		return bucket.Put([]byte("key"), []byte("value"))
	})
	if err != nil {
		t.Fatal(err)
	}
	err = db.CloseDatabase()
	if err != nil {
		t.Fatal(err)
	}

	// Reopen with matching metadata and read the entry back.
	db, err = OpenDatabase(md, dbFilename)
	if err != nil {
		t.Fatal(err)
	}
	err = db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket([]byte("TestBucket"))
		if bucket == nil {
			return ErrNilBucket
		}
		if string(bucket.Get([]byte("key"))) != "value" {
			return ErrNilEntry
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	err = db.CloseDatabase()
	if err != nil {
		t.Fatal(err)
	}
}

// TestOpenDatabaseBadMetadata checks that mismatched metadata is caught
// when a database is opened.
func TestOpenDatabaseBadMetadata(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	testdir := build.TempDir(persistDir, t.Name())
	err := os.MkdirAll(testdir, 0700)
	if err != nil {
		t.Fatal(err)
	}

	dbFilename := filepath.Join(testdir, "test.db")
	db, err := OpenDatabase(Metadata{Header: "One", Version: "1.0"}, dbFilename)
	if err != nil {
		t.Fatal(err)
	}
	err = db.CloseDatabase()
	if err != nil {
		t.Fatal(err)
	}

	_, err = OpenDatabase(Metadata{Header: "Two", Version: "1.0"}, dbFilename)
	if !errors.Contains(err, ErrBadHeader) {
		t.Error("expected ErrBadHeader, got", err)
	}
	_, err = OpenDatabase(Metadata{Header: "One", Version: "2.0"}, dbFilename)
	if !errors.Contains(err, ErrBadVersion) {
		t.Error("expected ErrBadVersion, got", err)
	}
}
