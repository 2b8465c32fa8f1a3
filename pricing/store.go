/*
store.go - Persistence interfaces between the engine and its stores

PURPOSE:
  Defines what the engine needs from a database. The engine owns the
  price-change lot history (append-only); catalog and shipment items are
  owned by external collaborators and only their cost/price fields are
  written here.

KEY INTERFACES:
  CatalogStore:  Catalog reads plus cost/price field writes
  ShipmentStore: Shipment line-item reads (immutable commercial terms)
  LotStore:      Price-change lot history (append-only)
  RuleStore:     Markup/discount rules (create + activation toggle only)
  AuditStore:    Cost-change audit lines written at confirmation time
  TxStore:       Atomic multi-write transactions over all of the above

APPEND-ONLY CONTRACT:
  Lots are never updated or deleted after apply; rollback flips the
  reverted flag and restores catalog prices, leaving the entries as the
  audit record. Rules are never deleted, only deactivated.

MUTATION DISCIPLINE:
  The only mutating paths are lot apply/rollback and cost confirmation,
  and all three run inside WithTx. Implementations must serialize
  transactions whose catalog write sets intersect (single-writer sqlite,
  ordered row locks in postgres).

IMPLEMENTATIONS:
  - pricing/store/memory.go: In-memory, for tests and demos
  - store/sqlite/sqlite.go:  Embedded default
  - store/postgres/postgres.go: Production, pgx pool

SEE ALSO:
  - lot.go: The lot manager driving WithTx
  - confirm.go: Cost confirmation driving WithTx
*/
package pricing

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// CATALOG
// =============================================================================

// CatalogFilter selects catalog items for listings and bulk previews.
// Nil fields match everything.
type CatalogFilter struct {
	Category   *string
	OEM        *bool
	MinCost    *decimal.Decimal
	MaxCost    *decimal.Decimal
	IDs        []ItemID
	OnlyActive bool
}

// Matches reports whether an item passes the filter. Store
// implementations may use it directly or push the predicate into SQL.
func (f CatalogFilter) Matches(ci CatalogItem) bool {
	if f.OnlyActive && !ci.Active {
		return false
	}
	if f.Category != nil && *f.Category != ci.Category {
		return false
	}
	if f.OEM != nil && *f.OEM != ci.OEM {
		return false
	}
	if f.MinCost != nil && ci.Cost.LessThan(*f.MinCost) {
		return false
	}
	if f.MaxCost != nil && ci.Cost.GreaterThan(*f.MaxCost) {
		return false
	}
	if len(f.IDs) > 0 {
		found := false
		for _, id := range f.IDs {
			if id == ci.ID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// CatalogStore reads catalog items and writes ONLY their cost and price
// fields. Everything else about an item belongs to the inventory system.
type CatalogStore interface {
	GetItem(ctx context.Context, id ItemID) (*CatalogItem, error)

	// ListItems returns matching items ordered by item id.
	ListItems(ctx context.Context, filter CatalogFilter) ([]CatalogItem, error)

	UpdateItemCost(ctx context.Context, id ItemID, cost decimal.Decimal) error
	UpdateItemPrice(ctx context.Context, id ItemID, price decimal.Decimal) error

	// PutItem creates or replaces an item. Used by scenario seeds and
	// tests; the production catalog is owned elsewhere.
	PutItem(ctx context.Context, item CatalogItem) error
}

// =============================================================================
// SHIPMENTS
// =============================================================================

// ShipmentStore reads immutable shipment line items.
type ShipmentStore interface {
	// ListShipmentItems returns the shipment's line items ordered by item
	// id. Empty result means the shipment is unknown.
	ListShipmentItems(ctx context.Context, shipmentID ShipmentID) ([]ShipmentItem, error)

	// PutShipmentItem records a line item. Seed/test path.
	PutShipmentItem(ctx context.Context, item ShipmentItem) error
}

// =============================================================================
// LOTS
// =============================================================================

// LotStore persists the price-change history. Append-only: lots are
// inserted once; the only later mutation is flipping reverted to true.
type LotStore interface {
	InsertLot(ctx context.Context, lot *PriceChangeLot) error
	GetLot(ctx context.Context, id LotID) (*PriceChangeLot, error)

	// ListLots returns lots newest first.
	ListLots(ctx context.Context) ([]PriceChangeLot, error)

	// MarkLotReverted sets reverted=true. Fails if already reverted.
	MarkLotReverted(ctx context.Context, id LotID, at time.Time) error
}

// =============================================================================
// RULES
// =============================================================================

// RuleStore persists pricing rules. Create and activation toggle only;
// rules are never deleted.
type RuleStore interface {
	ListMarkupRules(ctx context.Context) ([]MarkupRule, error)
	InsertMarkupRule(ctx context.Context, rule MarkupRule) error
	SetMarkupRuleActive(ctx context.Context, id RuleID, active bool) error

	ListDiscountRules(ctx context.Context) ([]DiscountRule, error)
	InsertDiscountRule(ctx context.Context, rule DiscountRule) error
	SetDiscountRuleActive(ctx context.Context, id RuleID, active bool) error
}

// =============================================================================
// COST AUDIT
// =============================================================================

// CostAuditEntry records one catalog cost change made by a confirmed
// allocation. Immutable.
type CostAuditEntry struct {
	ShipmentID ShipmentID
	ItemID     ItemID
	CostBefore decimal.Decimal
	CostAfter  decimal.Decimal
	At         time.Time
}

type AuditStore interface {
	AppendCostAudit(ctx context.Context, entries []CostAuditEntry) error
}

// =============================================================================
// COMBINED + TRANSACTIONAL
// =============================================================================

// Store is everything the engine persists through.
type Store interface {
	CatalogStore
	ShipmentStore
	LotStore
	RuleStore
	AuditStore
}

// TxStore wraps Store with transaction support.
// If fn returns an error the transaction is rolled back; the catalog and
// lot store are left exactly as before the call.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
