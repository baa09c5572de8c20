package coordinator

import (
	"github.com/ScatterLabs/Scatter/modules"
)

// managedSettle pays every renter holding part of a settled file its share
// of the upload payment. Each renter id is paid at most once regardless of
// how many replicas it holds. Transfers are independent: one failing is
// logged and the rest continue, and no failure blocks delivery.
func (c *Coordinator) managedSettle(record modules.PlacementRecord) {
	if c.ledger == nil {
		c.log.Printf("skipping settlement for %v: no ledger connection", record.Filename)
		return
	}

	snap := c.membership.Snapshot()
	paid := make(map[modules.RenterID]struct{})
	for _, desc := range record.Shards {
		if _, done := paid[desc.RenterID]; done {
			continue
		}
		paid[desc.RenterID] = struct{}{}

		renter, registered := snap.Renters[desc.RenterID]
		if !registered {
			c.log.Printf("not settling with %v for %v: renter no longer registered", desc.RenterID, record.Filename)
			continue
		}
		if renter.LedgerAddress == "" {
			c.log.Printf("not settling with %v for %v: no ledger address on record", desc.RenterID, record.Filename)
			continue
		}
		receipt, err := c.ledger.SendMoney(c.ledgerAddress, renter.LedgerAddress, record.PerRenterShare)
		if err != nil {
			c.log.Printf("settlement with %v for %v failed: %v", desc.RenterID, record.Filename, err)
			continue
		}
		c.log.Printf("settled %v with %v for %v: tx %v", record.PerRenterShare, desc.RenterID, record.Filename, receipt.TransactionHash)
	}
}
