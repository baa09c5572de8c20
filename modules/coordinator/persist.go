package coordinator

import (
	"os"
	"path/filepath"

	"github.com/ScatterLabs/Scatter/persist"
)

// pubKeyMetadata identifies the persisted public-key registry. Membership,
// placements, and challenges are deliberately volatile; the registry is
// the one table that must survive a restart, because clients register keys
// once and expect downloads to keep working.
var pubKeyMetadata = persist.Metadata{
	Header:  "Public Key Registry",
	Version: "1.0",
}

// initPersist sets up the coordinator's folders and loads the public-key
// registry left by an earlier run.
func (c *Coordinator) initPersist() error {
	// Scratch and staged artifacts do not survive restarts. Anything left
	// over belongs to an interrupted operation and is unreferenced.
	for _, dir := range []string{scratchDirName, stagedDirName} {
		path := filepath.Join(c.persistDir, dir)
		if err := os.RemoveAll(path); err != nil {
			return err
		}
		if err := os.MkdirAll(path, 0700); err != nil {
			return err
		}
	}

	err := persist.LoadJSON(pubKeyMetadata, &c.pubKeys, filepath.Join(c.persistDir, pubKeyFile))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// savePubKeys writes the public-key registry to disk. The caller must hold
// the coordinator mutex.
func (c *Coordinator) savePubKeys() error {
	return persist.SaveJSON(pubKeyMetadata, c.pubKeys, filepath.Join(c.persistDir, pubKeyFile))
}
