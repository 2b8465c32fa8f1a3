/*
confirm.go - Landed-cost computation and confirmation against the store

PURPOSE:
  CostService glues the pure allocation math to persistence: Compute
  loads a shipment and its catalog slice and runs Allocate read-only;
  Confirm writes the resulting unit landed costs onto the catalog
  atomically, with a cost audit line per changed item.

IDEMPOTENCY:
  Confirming the same breakdown twice is a no-op on an unchanged
  catalog: items whose cost already equals the confirmed unit cost are
  skipped and produce no audit line.

SEE ALSO:
  - allocation.go: The pure computation Compute delegates to
  - store.go: AuditStore receiving the cost-change lines
*/
package pricing

import (
	"context"
	"time"
)

// CostService exposes the landed-cost operations against a store.
type CostService struct {
	Store TxStore
	Now   func() time.Time
}

func NewCostService(store TxStore) *CostService {
	return &CostService{Store: store, Now: time.Now}
}

// Compute runs the allocation for a shipment. Read-only: either a
// complete result or an error, never a partial allocation.
func (s *CostService) Compute(ctx context.Context, shipmentID ShipmentID, params CostParameters) (*AllocationResult, error) {
	items, err := s.Store.ListShipmentItems(ctx, shipmentID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrShipmentNotFound
	}
	catalog := make(map[ItemID]CatalogItem, len(items))
	for _, si := range items {
		ci, err := s.Store.GetItem(ctx, si.ItemID)
		if err != nil {
			return nil, err
		}
		catalog[si.ItemID] = *ci
	}
	return Allocate(shipmentID, items, catalog, params)
}

// Confirm writes each breakdown's unit landed cost (local currency) as
// the item's new catalog cost, inside one transaction. Returns the
// number of items actually updated; re-confirming identical results on
// an unchanged catalog updates zero items.
func (s *CostService) Confirm(ctx context.Context, result *AllocationResult) (int, error) {
	if result == nil || len(result.Items) == 0 {
		return 0, &InvalidParameterError{Field: "result", Reason: "no breakdowns to confirm"}
	}

	updated := 0
	at := s.Now()
	err := s.Store.WithTx(ctx, func(st Store) error {
		var audit []CostAuditEntry
		for _, b := range result.Items {
			if b.UnitLandedLocal.IsNegative() {
				return &InvalidParameterError{Field: "unit_landed_local", Reason: "must be >= 0 for item " + string(b.ItemID)}
			}
			item, err := st.GetItem(ctx, b.ItemID)
			if err != nil {
				return err
			}
			if item.Cost.Equal(b.UnitLandedLocal) {
				continue
			}
			if err := st.UpdateItemCost(ctx, b.ItemID, b.UnitLandedLocal); err != nil {
				return err
			}
			audit = append(audit, CostAuditEntry{
				ShipmentID: result.ShipmentID,
				ItemID:     b.ItemID,
				CostBefore: item.Cost,
				CostAfter:  b.UnitLandedLocal,
				At:         at,
			})
			updated++
		}
		if len(audit) == 0 {
			return nil
		}
		return st.AppendCostAudit(ctx, audit)
	})
	if err != nil {
		return 0, err
	}
	return updated, nil
}
