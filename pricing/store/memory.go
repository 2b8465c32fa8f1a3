// Package store provides an in-memory Store implementation (for testing/dev).
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/pricing-engine/pricing"
)

// =============================================================================
// MEMORY STORE - In-memory implementation of pricing.TxStore
// =============================================================================

// Memory keeps everything in maps. WithTx runs against a deep copy and
// swaps it in on success, so a failed transaction leaves no trace. The
// single mutex serializes all transactions, which trivially satisfies the
// overlapping-write-set requirement.
type Memory struct {
	mu    sync.RWMutex
	state *state
}

type state struct {
	catalog       map[pricing.ItemID]pricing.CatalogItem
	shipments     map[pricing.ShipmentID][]pricing.ShipmentItem
	lots          map[pricing.LotID]pricing.PriceChangeLot
	lotOrder      []pricing.LotID
	markupRules   []pricing.MarkupRule
	discountRules []pricing.DiscountRule
	audit         []pricing.CostAuditEntry
}

func NewMemory() *Memory {
	return &Memory{state: &state{
		catalog:   make(map[pricing.ItemID]pricing.CatalogItem),
		shipments: make(map[pricing.ShipmentID][]pricing.ShipmentItem),
		lots:      make(map[pricing.LotID]pricing.PriceChangeLot),
	}}
}

func (st *state) clone() *state {
	c := &state{
		catalog:       make(map[pricing.ItemID]pricing.CatalogItem, len(st.catalog)),
		shipments:     make(map[pricing.ShipmentID][]pricing.ShipmentItem, len(st.shipments)),
		lots:          make(map[pricing.LotID]pricing.PriceChangeLot, len(st.lots)),
		lotOrder:      append([]pricing.LotID(nil), st.lotOrder...),
		markupRules:   append([]pricing.MarkupRule(nil), st.markupRules...),
		discountRules: append([]pricing.DiscountRule(nil), st.discountRules...),
		audit:         append([]pricing.CostAuditEntry(nil), st.audit...),
	}
	for k, v := range st.catalog {
		c.catalog[k] = v
	}
	for k, v := range st.shipments {
		c.shipments[k] = append([]pricing.ShipmentItem(nil), v...)
	}
	for k, v := range st.lots {
		v.Entries = append([]pricing.PriceChangeEntry(nil), v.Entries...)
		c.lots[k] = v
	}
	return c
}

// WithTx executes fn against a copy of the state and commits by swapping
// it in. Holding the write lock for the whole transaction serializes
// concurrent applies.
func (m *Memory) WithTx(ctx context.Context, fn func(pricing.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	staged := m.state.clone()
	if err := fn(&view{state: staged}); err != nil {
		return err
	}
	m.state = staged
	return nil
}

// Reset drops all data. Scenario loaders call this before seeding.
func (m *Memory) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = &state{
		catalog:   make(map[pricing.ItemID]pricing.CatalogItem),
		shipments: make(map[pricing.ShipmentID][]pricing.ShipmentItem),
		lots:      make(map[pricing.LotID]pricing.PriceChangeLot),
	}
	return nil
}

// =============================================================================
// LOCKED DELEGATION - Every plain call locks and delegates to the view
// =============================================================================

func (m *Memory) read(fn func(*view) error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn(&view{state: m.state})
}

func (m *Memory) write(fn func(*view) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(&view{state: m.state})
}

func (m *Memory) GetItem(ctx context.Context, id pricing.ItemID) (*pricing.CatalogItem, error) {
	var out *pricing.CatalogItem
	err := m.read(func(v *view) error {
		var err error
		out, err = v.GetItem(ctx, id)
		return err
	})
	return out, err
}

func (m *Memory) ListItems(ctx context.Context, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	var out []pricing.CatalogItem
	err := m.read(func(v *view) error {
		var err error
		out, err = v.ListItems(ctx, filter)
		return err
	})
	return out, err
}

func (m *Memory) UpdateItemCost(ctx context.Context, id pricing.ItemID, cost decimal.Decimal) error {
	return m.write(func(v *view) error { return v.UpdateItemCost(ctx, id, cost) })
}

func (m *Memory) UpdateItemPrice(ctx context.Context, id pricing.ItemID, price decimal.Decimal) error {
	return m.write(func(v *view) error { return v.UpdateItemPrice(ctx, id, price) })
}

func (m *Memory) PutItem(ctx context.Context, item pricing.CatalogItem) error {
	return m.write(func(v *view) error { return v.PutItem(ctx, item) })
}

func (m *Memory) ListShipmentItems(ctx context.Context, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	var out []pricing.ShipmentItem
	err := m.read(func(v *view) error {
		var err error
		out, err = v.ListShipmentItems(ctx, shipmentID)
		return err
	})
	return out, err
}

func (m *Memory) PutShipmentItem(ctx context.Context, item pricing.ShipmentItem) error {
	return m.write(func(v *view) error { return v.PutShipmentItem(ctx, item) })
}

func (m *Memory) InsertLot(ctx context.Context, lot *pricing.PriceChangeLot) error {
	return m.write(func(v *view) error { return v.InsertLot(ctx, lot) })
}

func (m *Memory) GetLot(ctx context.Context, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	var out *pricing.PriceChangeLot
	err := m.read(func(v *view) error {
		var err error
		out, err = v.GetLot(ctx, id)
		return err
	})
	return out, err
}

func (m *Memory) ListLots(ctx context.Context) ([]pricing.PriceChangeLot, error) {
	var out []pricing.PriceChangeLot
	err := m.read(func(v *view) error {
		var err error
		out, err = v.ListLots(ctx)
		return err
	})
	return out, err
}

func (m *Memory) MarkLotReverted(ctx context.Context, id pricing.LotID, at time.Time) error {
	return m.write(func(v *view) error { return v.MarkLotReverted(ctx, id, at) })
}

func (m *Memory) ListMarkupRules(ctx context.Context) ([]pricing.MarkupRule, error) {
	var out []pricing.MarkupRule
	err := m.read(func(v *view) error {
		var err error
		out, err = v.ListMarkupRules(ctx)
		return err
	})
	return out, err
}

func (m *Memory) InsertMarkupRule(ctx context.Context, rule pricing.MarkupRule) error {
	return m.write(func(v *view) error { return v.InsertMarkupRule(ctx, rule) })
}

func (m *Memory) SetMarkupRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return m.write(func(v *view) error { return v.SetMarkupRuleActive(ctx, id, active) })
}

func (m *Memory) ListDiscountRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	var out []pricing.DiscountRule
	err := m.read(func(v *view) error {
		var err error
		out, err = v.ListDiscountRules(ctx)
		return err
	})
	return out, err
}

func (m *Memory) InsertDiscountRule(ctx context.Context, rule pricing.DiscountRule) error {
	return m.write(func(v *view) error { return v.InsertDiscountRule(ctx, rule) })
}

func (m *Memory) SetDiscountRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return m.write(func(v *view) error { return v.SetDiscountRuleActive(ctx, id, active) })
}

func (m *Memory) AppendCostAudit(ctx context.Context, entries []pricing.CostAuditEntry) error {
	return m.write(func(v *view) error { return v.AppendCostAudit(ctx, entries) })
}

// CostAudit returns the audit trail. Test helper, not part of the Store
// interface.
func (m *Memory) CostAudit() []pricing.CostAuditEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]pricing.CostAuditEntry(nil), m.state.audit...)
}

// =============================================================================
// VIEW - Unlocked state access; used directly inside WithTx
// =============================================================================

type view struct {
	state *state
}

func (v *view) GetItem(_ context.Context, id pricing.ItemID) (*pricing.CatalogItem, error) {
	item, ok := v.state.catalog[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	return &item, nil
}

func (v *view) ListItems(_ context.Context, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	out := make([]pricing.CatalogItem, 0, len(v.state.catalog))
	for _, item := range v.state.catalog {
		if filter.Matches(item) {
			out = append(out, item)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (v *view) UpdateItemCost(ctx context.Context, id pricing.ItemID, cost decimal.Decimal) error {
	item, ok := v.state.catalog[id]
	if !ok {
		return fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	item.Cost = cost
	v.state.catalog[id] = item
	return nil
}

func (v *view) UpdateItemPrice(ctx context.Context, id pricing.ItemID, price decimal.Decimal) error {
	item, ok := v.state.catalog[id]
	if !ok {
		return fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	item.RetailPrice = price
	v.state.catalog[id] = item
	return nil
}

func (v *view) PutItem(_ context.Context, item pricing.CatalogItem) error {
	v.state.catalog[item.ID] = item
	return nil
}

func (v *view) ListShipmentItems(_ context.Context, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	items := append([]pricing.ShipmentItem(nil), v.state.shipments[shipmentID]...)
	sort.Slice(items, func(i, j int) bool { return items[i].ItemID < items[j].ItemID })
	return items, nil
}

func (v *view) PutShipmentItem(_ context.Context, item pricing.ShipmentItem) error {
	items := v.state.shipments[item.ShipmentID]
	for i := range items {
		if items[i].ItemID == item.ItemID {
			items[i] = item
			return nil
		}
	}
	v.state.shipments[item.ShipmentID] = append(items, item)
	return nil
}

func (v *view) InsertLot(_ context.Context, lot *pricing.PriceChangeLot) error {
	if _, exists := v.state.lots[lot.ID]; exists {
		return fmt.Errorf("lot %s already exists", lot.ID)
	}
	stored := *lot
	stored.Entries = append([]pricing.PriceChangeEntry(nil), lot.Entries...)
	v.state.lots[lot.ID] = stored
	v.state.lotOrder = append(v.state.lotOrder, lot.ID)
	return nil
}

func (v *view) GetLot(_ context.Context, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	lot, ok := v.state.lots[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", pricing.ErrLotNotFound, id)
	}
	lot.Entries = append([]pricing.PriceChangeEntry(nil), lot.Entries...)
	return &lot, nil
}

func (v *view) ListLots(_ context.Context) ([]pricing.PriceChangeLot, error) {
	out := make([]pricing.PriceChangeLot, 0, len(v.state.lotOrder))
	// Newest first.
	for i := len(v.state.lotOrder) - 1; i >= 0; i-- {
		lot := v.state.lots[v.state.lotOrder[i]]
		lot.Entries = append([]pricing.PriceChangeEntry(nil), lot.Entries...)
		out = append(out, lot)
	}
	return out, nil
}

func (v *view) MarkLotReverted(_ context.Context, id pricing.LotID, at time.Time) error {
	lot, ok := v.state.lots[id]
	if !ok {
		return fmt.Errorf("%w: %s", pricing.ErrLotNotFound, id)
	}
	if lot.Reverted {
		return &pricing.LotStateError{LotID: id, Applied: lot.Applied, Reverted: true, Op: "rollback"}
	}
	lot.Reverted = true
	lot.RevertedAt = &at
	v.state.lots[id] = lot
	return nil
}

func (v *view) ListMarkupRules(_ context.Context) ([]pricing.MarkupRule, error) {
	return append([]pricing.MarkupRule(nil), v.state.markupRules...), nil
}

func (v *view) InsertMarkupRule(_ context.Context, rule pricing.MarkupRule) error {
	v.state.markupRules = append(v.state.markupRules, rule)
	return nil
}

func (v *view) SetMarkupRuleActive(_ context.Context, id pricing.RuleID, active bool) error {
	for i := range v.state.markupRules {
		if v.state.markupRules[i].ID == id {
			v.state.markupRules[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("markup rule %s not found", id)
}

func (v *view) ListDiscountRules(_ context.Context) ([]pricing.DiscountRule, error) {
	return append([]pricing.DiscountRule(nil), v.state.discountRules...), nil
}

func (v *view) InsertDiscountRule(_ context.Context, rule pricing.DiscountRule) error {
	v.state.discountRules = append(v.state.discountRules, rule)
	return nil
}

func (v *view) SetDiscountRuleActive(_ context.Context, id pricing.RuleID, active bool) error {
	for i := range v.state.discountRules {
		if v.state.discountRules[i].ID == id {
			v.state.discountRules[i].Active = active
			return nil
		}
	}
	return fmt.Errorf("discount rule %s not found", id)
}

func (v *view) AppendCostAudit(_ context.Context, entries []pricing.CostAuditEntry) error {
	v.state.audit = append(v.state.audit, entries...)
	return nil
}
