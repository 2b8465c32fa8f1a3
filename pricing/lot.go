/*
lot.go - Bulk price-change lots: preview, apply, rollback

PURPOSE:
  Orchestrates price changes across many catalog items as one versioned,
  auditable unit. Preview computes candidate prices without writing;
  apply writes every price atomically and persists the lot; rollback
  restores every price-before atomically.

LOT LIFECYCLE:
  draft (unpersisted) --apply--> applied --rollback--> reverted
  The applied and reverted flags move false->true exactly once and never
  reset. A reverted lot cannot be reapplied; create a new lot instead.
  Entries are never mutated: price-before/price-after stay as the audit
  record forever.

CONFLICT DETECTION:
  Apply re-reads each touched item inside the transaction and compares
  its current price with the draft's price-before. Any mismatch aborts
  the whole transaction with ErrConcurrentModification; the caller
  re-previews and retries. Together with store-level serialization of
  overlapping write sets this prevents lost updates between competing
  lots.

SEE ALSO:
  - markup.go: The rule-based pricing strategy
  - store.go: Transaction contract the manager relies on
*/
package pricing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// LOT TYPES
// =============================================================================

// PriceChangeEntry is one item's before/after pair inside a lot.
type PriceChangeEntry struct {
	ItemID      ItemID
	PriceBefore decimal.Decimal
	PriceAfter  decimal.Decimal

	// Unresolved marks a previewed item the strategy could not price
	// (no applicable markup rule). Unresolved entries are reported in
	// the draft but never applied.
	Unresolved bool
}

// PriceChangeLot is the persisted, append-only record of one applied
// batch. Margin snapshots are set once at apply time and never
// recomputed.
type PriceChangeLot struct {
	ID              LotID
	Description     string
	Applied         bool
	Reverted        bool
	ItemCount       int
	AvgMarginBefore decimal.Decimal
	AvgMarginAfter  decimal.Decimal
	CreatedAt       time.Time
	RevertedAt      *time.Time
	Entries         []PriceChangeEntry
}

// LotDraft is an unpersisted preview result. Applying it turns it into a
// PriceChangeLot.
type LotDraft struct {
	ID        LotID
	Strategy  string
	Filter    CatalogFilter
	Entries   []PriceChangeEntry
	Summary   PreviewSummary
	CreatedAt time.Time
}

// PreviewSummary aggregates what a draft would do.
type PreviewSummary struct {
	Rise            int
	Fall            int
	Same            int
	Unresolved      int
	AvgMarginBefore decimal.Decimal
	AvgMarginAfter  decimal.Decimal
}

// =============================================================================
// PRICING STRATEGIES
// =============================================================================

// PriceStrategy computes a candidate price for one catalog item.
type PriceStrategy interface {
	Name() string
	Price(item CatalogItem) (decimal.Decimal, error)
}

// RuleStrategy prices through the markup rule engine.
type RuleStrategy struct {
	Rules []MarkupRule
}

func (s RuleStrategy) Name() string { return "rules" }

func (s RuleStrategy) Price(item CatalogItem) (decimal.Decimal, error) {
	price, _, err := ResolveMarkup(item, s.Rules)
	return price, err
}

// FlatAdjustmentStrategy scales the current price by (1 + percent).
type FlatAdjustmentStrategy struct {
	Percent decimal.Decimal // fraction; -0.10 = 10% cut
}

func (s FlatAdjustmentStrategy) Name() string {
	return fmt.Sprintf("flat %s%%", s.Percent.Mul(decimal.NewFromInt(100)).StringFixed(2))
}

func (s FlatAdjustmentStrategy) Price(item CatalogItem) (decimal.Decimal, error) {
	factor := decimal.NewFromInt(1).Add(s.Percent)
	return truncateCurrency(item.RetailPrice.Mul(factor)), nil
}

// Validate rejects factors that would produce negative prices.
func (s FlatAdjustmentStrategy) Validate() error {
	if s.Percent.LessThanOrEqual(decimal.NewFromInt(-1)) {
		return &InvalidParameterError{Field: "percent", Reason: "must be > -1"}
	}
	return nil
}

// =============================================================================
// LOT MANAGER
// =============================================================================

// LotManager drives the preview/apply/rollback lifecycle against a
// transactional store.
type LotManager struct {
	Store TxStore

	// Now is swappable for tests.
	Now func() time.Time
}

func NewLotManager(store TxStore) *LotManager {
	return &LotManager{Store: store, Now: time.Now}
}

// Preview computes a lot draft for every active item matching the
// filter. Performs no writes and takes no locks; the draft reads a
// point-in-time snapshot and may go stale against a concurrent apply.
// Items the strategy cannot price are flagged unresolved, not fatal.
func (m *LotManager) Preview(ctx context.Context, filter CatalogFilter, strategy PriceStrategy) (*LotDraft, error) {
	if v, ok := strategy.(interface{ Validate() error }); ok {
		if err := v.Validate(); err != nil {
			return nil, err
		}
	}
	filter.OnlyActive = true
	items, err := m.Store.ListItems(ctx, filter)
	if err != nil {
		return nil, err
	}

	draft := &LotDraft{
		ID:        LotID(uuid.NewString()),
		Strategy:  strategy.Name(),
		Filter:    filter,
		CreatedAt: m.Now(),
	}

	marginBefore := decimal.Zero
	marginAfter := decimal.Zero
	priced := 0
	for _, item := range items {
		after, err := strategy.Price(item)
		if err != nil {
			if !errors.Is(err, ErrNoApplicableRule) {
				return nil, err
			}
			// No applicable rule: surface per item, keep going.
			draft.Entries = append(draft.Entries, PriceChangeEntry{
				ItemID:      item.ID,
				PriceBefore: item.RetailPrice,
				PriceAfter:  item.RetailPrice,
				Unresolved:  true,
			})
			draft.Summary.Unresolved++
			continue
		}
		draft.Entries = append(draft.Entries, PriceChangeEntry{
			ItemID:      item.ID,
			PriceBefore: item.RetailPrice,
			PriceAfter:  after,
		})
		switch {
		case after.GreaterThan(item.RetailPrice):
			draft.Summary.Rise++
		case after.LessThan(item.RetailPrice):
			draft.Summary.Fall++
		default:
			draft.Summary.Same++
		}
		marginBefore = marginBefore.Add(MarginOf(item.Cost, item.RetailPrice))
		marginAfter = marginAfter.Add(MarginOf(item.Cost, after))
		priced++
	}
	if priced > 0 {
		n := decimal.NewFromInt(int64(priced))
		draft.Summary.AvgMarginBefore = marginBefore.DivRound(n, 4)
		draft.Summary.AvgMarginAfter = marginAfter.DivRound(n, 4)
	}
	return draft, nil
}

// Apply turns a draft into an applied lot within one atomic transaction:
// every resolved entry's new price is written and the lot is persisted
// with applied=true, or nothing changes. Margin-after is computed from
// the updated catalog.
func (m *LotManager) Apply(ctx context.Context, draft *LotDraft, description string) (*PriceChangeLot, error) {
	if draft == nil || len(draft.Entries) == 0 {
		return nil, &InvalidParameterError{Field: "draft", Reason: "draft has no entries"}
	}
	if existing, err := m.Store.GetLot(ctx, draft.ID); err == nil && existing != nil {
		return nil, &LotStateError{LotID: draft.ID, Applied: existing.Applied, Reverted: existing.Reverted, Op: "apply"}
	}

	lot := &PriceChangeLot{
		ID:          draft.ID,
		Description: description,
		Applied:     true,
		CreatedAt:   m.Now(),
	}

	err := m.Store.WithTx(ctx, func(s Store) error {
		marginBefore := decimal.Zero
		marginAfter := decimal.Zero
		for _, e := range draft.Entries {
			if e.Unresolved {
				continue
			}
			item, err := s.GetItem(ctx, e.ItemID)
			if err != nil {
				return err
			}
			if !item.RetailPrice.Equal(e.PriceBefore) {
				return &ConcurrentModificationError{ItemID: e.ItemID}
			}
			if e.PriceAfter.IsNegative() {
				return &InvalidParameterError{Field: "price_after", Reason: "must be >= 0 for item " + string(e.ItemID)}
			}
			if err := s.UpdateItemPrice(ctx, e.ItemID, e.PriceAfter); err != nil {
				return err
			}
			lot.Entries = append(lot.Entries, PriceChangeEntry{
				ItemID:      e.ItemID,
				PriceBefore: e.PriceBefore,
				PriceAfter:  e.PriceAfter,
			})
			marginBefore = marginBefore.Add(MarginOf(item.Cost, e.PriceBefore))
			marginAfter = marginAfter.Add(MarginOf(item.Cost, e.PriceAfter))
		}
		if len(lot.Entries) == 0 {
			return &InvalidParameterError{Field: "draft", Reason: "draft has no resolved entries"}
		}
		n := decimal.NewFromInt(int64(len(lot.Entries)))
		lot.ItemCount = len(lot.Entries)
		lot.AvgMarginBefore = marginBefore.DivRound(n, 4)
		lot.AvgMarginAfter = marginAfter.DivRound(n, 4)
		return s.InsertLot(ctx, lot)
	})
	if err != nil {
		return nil, err
	}
	return lot, nil
}

// Rollback restores every entry's price-before within one transaction
// and marks the lot reverted. Rejected when the lot is not applied or
// already reverted; entries are never mutated.
func (m *LotManager) Rollback(ctx context.Context, id LotID) (*PriceChangeLot, error) {
	lot, err := m.Store.GetLot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !lot.Applied || lot.Reverted {
		return nil, &LotStateError{LotID: id, Applied: lot.Applied, Reverted: lot.Reverted, Op: "rollback"}
	}

	at := m.Now()
	err = m.Store.WithTx(ctx, func(s Store) error {
		for _, e := range lot.Entries {
			if _, err := s.GetItem(ctx, e.ItemID); err != nil {
				return err
			}
			if err := s.UpdateItemPrice(ctx, e.ItemID, e.PriceBefore); err != nil {
				return err
			}
		}
		return s.MarkLotReverted(ctx, id, at)
	})
	if err != nil {
		return nil, err
	}
	lot.Reverted = true
	lot.RevertedAt = &at
	return lot, nil
}
