package persist

import (
	"encoding/base32"
	"path/filepath"
	"sync"

	"github.com/ScatterLabs/Scatter/build"

	"github.com/mitchellh/go-homedir"
	"gitlab.com/NebulousLabs/errors"
	"gitlab.com/NebulousLabs/fastrand"
)

const (
	// tempSuffix is the suffix given to the temporary file that SaveJSON
	// writes before overwriting the target file.
	tempSuffix = "_temp"
)

var (
	// ErrBadFilenameSuffix indicates that a file has been passed in with a
	// reserved filename suffix.
	ErrBadFilenameSuffix = errors.New("filename suffix is restricted")

	// ErrBadHeader indicates that the file opened is not the file that was
	// expected.
	ErrBadHeader = errors.New("wrong header")

	// ErrBadVersion indicates that the version number of the file is not
	// compatible with the current codebase.
	ErrBadVersion = errors.New("incompatible version")

	// ErrFileInUse is returned when two threads are trying to use the same
	// file at the same time.
	ErrFileInUse = errors.New("another thread is already using this file")
)

var (
	// activeFiles tracks which files are currently being used by SaveJSON
	// and LoadJSON, so that the same file is never used concurrently.
	activeFiles   = make(map[string]struct{})
	activeFilesMu sync.Mutex
)

// Metadata contains the header and version of the data being stored.
type Metadata struct {
	Header, Version string
}

// RandomSuffix returns a 20 character base32 suffix for a filename.
func RandomSuffix() string {
	str := base32.StdEncoding.EncodeToString(fastrand.Bytes(20))
	return str[:20]
}

// HomeFolder is the default parent directory for the daemon directories of
// the Scatter binaries.
var HomeFolder = func() string {
	// use a special folder during testing
	if build.Release == "testing" {
		return filepath.Join(build.ScatterTestingDir, "home")
	}

	home, err := homedir.Dir()
	if err != nil {
		build.Severe("could not find homedir:", err)
		return ""
	}
	return filepath.Join(home, ".config", "Scatter")
}()
