package coordinator

import (
	"github.com/ScatterLabs/Scatter/modules"
)

// Delete removes a file from the fleet. Shard deletion at the renters is
// best-effort: replicas on departed renters are left behind, and a renter
// failing to delete does not abort the rest. The placement record itself
// is always removed.
func (c *Coordinator) Delete(filename string) error {
	if err := c.tg.Add(); err != nil {
		return err
	}
	defer c.tg.Done()

	c.mu.Lock()
	record, exists := c.placements[filename]
	delete(c.placements, filename)
	c.mu.Unlock()
	if !exists {
		return modules.ErrUnknownFilename
	}

	snap := c.membership.Snapshot()
	removed := 0
	for _, desc := range record.Shards {
		renter, live := snap.Renters[desc.RenterID]
		if !live {
			continue
		}
		if err := c.renters.deleteShard(renter.URL, desc.BlobName); err != nil {
			c.log.Printf("WARN: could not delete %v from %v: %v", desc.BlobName, desc.RenterID, err)
			continue
		}
		removed++
	}
	c.log.Printf("deleted %v: removed %v of %v replicas", filename, removed, len(record.Shards))
	return nil
}
