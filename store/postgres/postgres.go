/*
Package postgres provides a PostgreSQL-backed implementation of the storage interfaces.

PURPOSE:
  Implements pricing.TxStore over a pgx connection pool for shared
  deployments. Schema mirrors store/sqlite with NUMERIC money columns.

CONCURRENCY:
  Unlike the sqlite store, transactions are NOT serialized in-process.
  Inside WithTx every catalog item read takes a row-level lock
  (SELECT ... FOR UPDATE). Lot applies read their items in ascending
  item-id order, so two applies with overlapping write sets queue on the
  first common row instead of deadlocking, and the later one sees the
  committed prices and fails its conflict check cleanly.

MONEY COLUMNS:
  NUMERIC(16,4), read back as text and parsed with shopspring/decimal.

SEE ALSO:
  - pricing/store.go: Interface contracts
  - store/sqlite/sqlite.go: Embedded variant, same table layout
*/
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/warp/pricing-engine/pricing"
)

// Store implements pricing.TxStore using a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New connects to the database and ensures the schema exists.
func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	s := &Store{pool: pool}
	if err := s.migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		cost NUMERIC(16,4) NOT NULL,
		retail_price NUMERIC(16,4) NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		oem BOOLEAN NOT NULL DEFAULT FALSE,
		weight NUMERIC(12,4),
		volume NUMERIC(12,4),
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS shipment_items (
		shipment_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		quantity BIGINT NOT NULL,
		fob_unit_price NUMERIC(16,4) NOT NULL,
		weight NUMERIC(12,4),
		volume NUMERIC(12,4),
		PRIMARY KEY (shipment_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS price_lots (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		applied BOOLEAN NOT NULL,
		reverted BOOLEAN NOT NULL DEFAULT FALSE,
		item_count INTEGER NOT NULL,
		avg_margin_before NUMERIC(12,6) NOT NULL,
		avg_margin_after NUMERIC(12,6) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		reverted_at TIMESTAMPTZ
	);

	CREATE TABLE IF NOT EXISTS price_lot_entries (
		lot_id TEXT NOT NULL REFERENCES price_lots(id),
		item_id TEXT NOT NULL,
		price_before NUMERIC(16,4) NOT NULL,
		price_after NUMERIC(16,4) NOT NULL,
		PRIMARY KEY (lot_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS markup_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		multiplier NUMERIC(12,6) NOT NULL,
		cost_from NUMERIC(16,4),
		cost_to NUMERIC(16,4),
		category TEXT,
		oem BOOLEAN,
		rounding TEXT NOT NULL,
		priority INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS discount_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price_list TEXT,
		condition_type TEXT NOT NULL,
		threshold NUMERIC(12,4) NOT NULL,
		match_value TEXT NOT NULL DEFAULT '',
		discount_type TEXT NOT NULL,
		value NUMERIC(16,4) NOT NULL,
		stackable BOOLEAN NOT NULL,
		priority INTEGER NOT NULL,
		active BOOLEAN NOT NULL DEFAULT TRUE
	);

	CREATE TABLE IF NOT EXISTS cost_audit (
		shipment_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		cost_before NUMERIC(16,4) NOT NULL,
		cost_after NUMERIC(16,4) NOT NULL,
		at TIMESTAMPTZ NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_items_category ON catalog_items(category);
	CREATE INDEX IF NOT EXISTS idx_shipment_items_shipment ON shipment_items(shipment_id);
	CREATE INDEX IF NOT EXISTS idx_lot_entries_item ON price_lot_entries(item_id);
	CREATE INDEX IF NOT EXISTS idx_cost_audit_item ON cost_audit(item_id);
	`
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// =============================================================================
// DECIMAL HELPERS
// =============================================================================

func decArg(d decimal.Decimal) string { return d.String() }

func decPtrArg(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func parseDec(s string) (decimal.Decimal, error) { return decimal.NewFromString(s) }

func parseDecPtr(s *string) (*decimal.Decimal, error) {
	if s == nil {
		return nil, nil
	}
	d, err := decimal.NewFromString(*s)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// CATALOG
// =============================================================================

const catalogSelect = `SELECT id, name, cost::text, retail_price::text, category, oem,
	weight::text, volume::text, active FROM catalog_items`

func scanCatalogItem(row pgx.Row) (*pricing.CatalogItem, error) {
	var (
		item           pricing.CatalogItem
		cost, price    string
		weight, volume *string
	)
	if err := row.Scan(&item.ID, &item.Name, &cost, &price, &item.Category, &item.OEM,
		&weight, &volume, &item.Active); err != nil {
		return nil, err
	}
	var err error
	if item.Cost, err = parseDec(cost); err != nil {
		return nil, err
	}
	if item.RetailPrice, err = parseDec(price); err != nil {
		return nil, err
	}
	if item.Weight, err = parseDecPtr(weight); err != nil {
		return nil, err
	}
	if item.Volume, err = parseDecPtr(volume); err != nil {
		return nil, err
	}
	return &item, nil
}

func getItem(ctx context.Context, q querier, id pricing.ItemID, forUpdate bool) (*pricing.CatalogItem, error) {
	query := catalogSelect + " WHERE id = $1"
	if forUpdate {
		query += " FOR UPDATE"
	}
	item, err := scanCatalogItem(q.QueryRow(ctx, query, string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	return item, err
}

func listItems(ctx context.Context, q querier, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	query := catalogSelect
	var conds []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.OnlyActive {
		conds = append(conds, "active")
	}
	if filter.Category != nil {
		conds = append(conds, "category = "+arg(*filter.Category))
	}
	if filter.OEM != nil {
		conds = append(conds, "oem = "+arg(*filter.OEM))
	}
	if filter.MinCost != nil {
		conds = append(conds, "cost >= "+arg(decArg(*filter.MinCost)))
	}
	if filter.MaxCost != nil {
		conds = append(conds, "cost <= "+arg(decArg(*filter.MaxCost)))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows)
		if err != nil {
			return nil, err
		}
		if filter.Matches(*item) { // id-set filtering stays in Go
			out = append(out, *item)
		}
	}
	return out, rows.Err()
}

func updateItemField(ctx context.Context, q querier, field string, id pricing.ItemID, value decimal.Decimal) error {
	tag, err := q.Exec(ctx, "UPDATE catalog_items SET "+field+" = $1 WHERE id = $2", decArg(value), string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	return nil
}

func putItem(ctx context.Context, q querier, item pricing.CatalogItem) error {
	_, err := q.Exec(ctx, `
		INSERT INTO catalog_items (id, name, cost, retail_price, category, oem, weight, volume, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name, cost = EXCLUDED.cost,
			retail_price = EXCLUDED.retail_price, category = EXCLUDED.category,
			oem = EXCLUDED.oem, weight = EXCLUDED.weight,
			volume = EXCLUDED.volume, active = EXCLUDED.active`,
		string(item.ID), item.Name, decArg(item.Cost), decArg(item.RetailPrice),
		item.Category, item.OEM, decPtrArg(item.Weight), decPtrArg(item.Volume), item.Active)
	return err
}

// =============================================================================
// SHIPMENTS
// =============================================================================

func listShipmentItems(ctx context.Context, q querier, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	rows, err := q.Query(ctx, `
		SELECT shipment_id, item_id, quantity, fob_unit_price::text, weight::text, volume::text
		FROM shipment_items WHERE shipment_id = $1 ORDER BY item_id`, string(shipmentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.ShipmentItem
	for rows.Next() {
		var (
			si             pricing.ShipmentItem
			fob            string
			weight, volume *string
		)
		if err := rows.Scan(&si.ShipmentID, &si.ItemID, &si.Quantity, &fob, &weight, &volume); err != nil {
			return nil, err
		}
		if si.FOBUnitPrice, err = parseDec(fob); err != nil {
			return nil, err
		}
		if si.Weight, err = parseDecPtr(weight); err != nil {
			return nil, err
		}
		if si.Volume, err = parseDecPtr(volume); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func putShipmentItem(ctx context.Context, q querier, item pricing.ShipmentItem) error {
	_, err := q.Exec(ctx, `
		INSERT INTO shipment_items (shipment_id, item_id, quantity, fob_unit_price, weight, volume)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (shipment_id, item_id) DO UPDATE SET
			quantity = EXCLUDED.quantity, fob_unit_price = EXCLUDED.fob_unit_price,
			weight = EXCLUDED.weight, volume = EXCLUDED.volume`,
		string(item.ShipmentID), string(item.ItemID), item.Quantity,
		decArg(item.FOBUnitPrice), decPtrArg(item.Weight), decPtrArg(item.Volume))
	return err
}

// =============================================================================
// LOTS
// =============================================================================

const lotSelect = `SELECT id, description, applied, reverted, item_count,
	avg_margin_before::text, avg_margin_after::text, created_at, reverted_at FROM price_lots`

func insertLot(ctx context.Context, q querier, lot *pricing.PriceChangeLot) error {
	_, err := q.Exec(ctx, `
		INSERT INTO price_lots (id, description, applied, reverted, item_count,
			avg_margin_before, avg_margin_after, created_at, reverted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		string(lot.ID), lot.Description, lot.Applied, lot.Reverted, lot.ItemCount,
		decArg(lot.AvgMarginBefore), decArg(lot.AvgMarginAfter), lot.CreatedAt, lot.RevertedAt)
	if err != nil {
		return err
	}
	for _, e := range lot.Entries {
		if _, err := q.Exec(ctx, `
			INSERT INTO price_lot_entries (lot_id, item_id, price_before, price_after)
			VALUES ($1, $2, $3, $4)`,
			string(lot.ID), string(e.ItemID), decArg(e.PriceBefore), decArg(e.PriceAfter)); err != nil {
			return err
		}
	}
	return nil
}

func scanLot(row pgx.Row) (*pricing.PriceChangeLot, error) {
	var (
		lot             pricing.PriceChangeLot
		mBefore, mAfter string
	)
	if err := row.Scan(&lot.ID, &lot.Description, &lot.Applied, &lot.Reverted, &lot.ItemCount,
		&mBefore, &mAfter, &lot.CreatedAt, &lot.RevertedAt); err != nil {
		return nil, err
	}
	var err error
	if lot.AvgMarginBefore, err = parseDec(mBefore); err != nil {
		return nil, err
	}
	if lot.AvgMarginAfter, err = parseDec(mAfter); err != nil {
		return nil, err
	}
	return &lot, nil
}

func getLot(ctx context.Context, q querier, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	lot, err := scanLot(q.QueryRow(ctx, lotSelect+" WHERE id = $1", string(id)))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", pricing.ErrLotNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, `
		SELECT item_id, price_before::text, price_after::text FROM price_lot_entries
		WHERE lot_id = $1 ORDER BY item_id`, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			e             pricing.PriceChangeEntry
			before, after string
		)
		if err := rows.Scan(&e.ItemID, &before, &after); err != nil {
			return nil, err
		}
		if e.PriceBefore, err = parseDec(before); err != nil {
			return nil, err
		}
		if e.PriceAfter, err = parseDec(after); err != nil {
			return nil, err
		}
		lot.Entries = append(lot.Entries, e)
	}
	return lot, rows.Err()
}

func listLots(ctx context.Context, q querier) ([]pricing.PriceChangeLot, error) {
	rows, err := q.Query(ctx, lotSelect+" ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.PriceChangeLot
	for rows.Next() {
		lot, err := scanLot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *lot)
	}
	return out, rows.Err()
}

func markLotReverted(ctx context.Context, q querier, id pricing.LotID, at time.Time) error {
	tag, err := q.Exec(ctx, `
		UPDATE price_lots SET reverted = TRUE, reverted_at = $1
		WHERE id = $2 AND NOT reverted`, at, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		lot, err := getLot(ctx, q, id)
		if err != nil {
			return err
		}
		return &pricing.LotStateError{LotID: id, Applied: lot.Applied, Reverted: lot.Reverted, Op: "rollback"}
	}
	return nil
}

// =============================================================================
// RULES
// =============================================================================

func listMarkupRules(ctx context.Context, q querier) ([]pricing.MarkupRule, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, multiplier::text, cost_from::text, cost_to::text, category, oem,
			rounding, priority, active
		FROM markup_rules ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.MarkupRule
	for rows.Next() {
		var (
			r        pricing.MarkupRule
			mult     string
			from, to *string
		)
		if err := rows.Scan(&r.ID, &r.Name, &mult, &from, &to, &r.Category, &r.OEM,
			&r.Rounding, &r.Priority, &r.Active); err != nil {
			return nil, err
		}
		if r.Multiplier, err = parseDec(mult); err != nil {
			return nil, err
		}
		if r.CostFrom, err = parseDecPtr(from); err != nil {
			return nil, err
		}
		if r.CostTo, err = parseDecPtr(to); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertMarkupRule(ctx context.Context, q querier, r pricing.MarkupRule) error {
	_, err := q.Exec(ctx, `
		INSERT INTO markup_rules (id, name, multiplier, cost_from, cost_to, category, oem, rounding, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		string(r.ID), r.Name, decArg(r.Multiplier), decPtrArg(r.CostFrom), decPtrArg(r.CostTo),
		r.Category, r.OEM, string(r.Rounding), r.Priority, r.Active)
	return err
}

func setRuleActive(ctx context.Context, q querier, table string, id pricing.RuleID, active bool) error {
	tag, err := q.Exec(ctx, "UPDATE "+table+" SET active = $1 WHERE id = $2", active, string(id))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("rule %s not found", id)
	}
	return nil
}

func listDiscountRules(ctx context.Context, q querier) ([]pricing.DiscountRule, error) {
	rows, err := q.Query(ctx, `
		SELECT id, name, price_list, condition_type, threshold::text, match_value,
			discount_type, value::text, stackable, priority, active
		FROM discount_rules ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.DiscountRule
	for rows.Next() {
		var (
			r                pricing.DiscountRule
			threshold, value string
		)
		if err := rows.Scan(&r.ID, &r.Name, &r.PriceList, &r.Condition, &threshold, &r.Match,
			&r.Type, &value, &r.Stackable, &r.Priority, &r.Active); err != nil {
			return nil, err
		}
		if r.Threshold, err = parseDec(threshold); err != nil {
			return nil, err
		}
		if r.Value, err = parseDec(value); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertDiscountRule(ctx context.Context, q querier, r pricing.DiscountRule) error {
	_, err := q.Exec(ctx, `
		INSERT INTO discount_rules (id, name, price_list, condition_type, threshold,
			match_value, discount_type, value, stackable, priority, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		string(r.ID), r.Name, r.PriceList, string(r.Condition), decArg(r.Threshold),
		r.Match, string(r.Type), decArg(r.Value), r.Stackable, r.Priority, r.Active)
	return err
}

// =============================================================================
// COST AUDIT
// =============================================================================

func appendCostAudit(ctx context.Context, q querier, entries []pricing.CostAuditEntry) error {
	for _, e := range entries {
		if _, err := q.Exec(ctx, `
			INSERT INTO cost_audit (shipment_id, item_id, cost_before, cost_after, at)
			VALUES ($1, $2, $3, $4, $5)`,
			string(e.ShipmentID), string(e.ItemID), decArg(e.CostBefore),
			decArg(e.CostAfter), e.At); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// STORE INTERFACE - pool paths
// =============================================================================

func (s *Store) q() querier { return s.pool }

func (s *Store) GetItem(ctx context.Context, id pricing.ItemID) (*pricing.CatalogItem, error) {
	return getItem(ctx, s.q(), id, false)
}

func (s *Store) ListItems(ctx context.Context, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	return listItems(ctx, s.q(), filter)
}

func (s *Store) UpdateItemCost(ctx context.Context, id pricing.ItemID, cost decimal.Decimal) error {
	return updateItemField(ctx, s.q(), "cost", id, cost)
}

func (s *Store) UpdateItemPrice(ctx context.Context, id pricing.ItemID, price decimal.Decimal) error {
	return updateItemField(ctx, s.q(), "retail_price", id, price)
}

func (s *Store) PutItem(ctx context.Context, item pricing.CatalogItem) error {
	return putItem(ctx, s.q(), item)
}

func (s *Store) ListShipmentItems(ctx context.Context, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	return listShipmentItems(ctx, s.q(), shipmentID)
}

func (s *Store) PutShipmentItem(ctx context.Context, item pricing.ShipmentItem) error {
	return putShipmentItem(ctx, s.q(), item)
}

func (s *Store) InsertLot(ctx context.Context, lot *pricing.PriceChangeLot) error {
	return insertLot(ctx, s.q(), lot)
}

func (s *Store) GetLot(ctx context.Context, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	return getLot(ctx, s.q(), id)
}

func (s *Store) ListLots(ctx context.Context) ([]pricing.PriceChangeLot, error) {
	return listLots(ctx, s.q())
}

func (s *Store) MarkLotReverted(ctx context.Context, id pricing.LotID, at time.Time) error {
	return markLotReverted(ctx, s.q(), id, at)
}

func (s *Store) ListMarkupRules(ctx context.Context) ([]pricing.MarkupRule, error) {
	return listMarkupRules(ctx, s.q())
}

func (s *Store) InsertMarkupRule(ctx context.Context, rule pricing.MarkupRule) error {
	return insertMarkupRule(ctx, s.q(), rule)
}

func (s *Store) SetMarkupRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, s.q(), "markup_rules", id, active)
}

func (s *Store) ListDiscountRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	return listDiscountRules(ctx, s.q())
}

func (s *Store) InsertDiscountRule(ctx context.Context, rule pricing.DiscountRule) error {
	return insertDiscountRule(ctx, s.q(), rule)
}

func (s *Store) SetDiscountRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, s.q(), "discount_rules", id, active)
}

func (s *Store) AppendCostAudit(ctx context.Context, entries []pricing.CostAuditEntry) error {
	return appendCostAudit(ctx, s.q(), entries)
}

// Reset clears all tables. Scenario loaders call this before seeding;
// never exposed in production configurations.
func (s *Store) Reset(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		TRUNCATE catalog_items, shipment_items, price_lot_entries, price_lots,
			markup_rules, discount_rules, cost_audit`)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. Catalog reads inside
// the transaction lock their rows (FOR UPDATE); the lot manager reads
// items in ascending id order, so overlapping applies queue instead of
// deadlocking.
func (s *Store) WithTx(ctx context.Context, fn func(store pricing.Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := fn(&txStore{q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

type txStore struct {
	q querier
}

func (ts *txStore) GetItem(ctx context.Context, id pricing.ItemID) (*pricing.CatalogItem, error) {
	return getItem(ctx, ts.q, id, true)
}

func (ts *txStore) ListItems(ctx context.Context, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	return listItems(ctx, ts.q, filter)
}

func (ts *txStore) UpdateItemCost(ctx context.Context, id pricing.ItemID, cost decimal.Decimal) error {
	return updateItemField(ctx, ts.q, "cost", id, cost)
}

func (ts *txStore) UpdateItemPrice(ctx context.Context, id pricing.ItemID, price decimal.Decimal) error {
	return updateItemField(ctx, ts.q, "retail_price", id, price)
}

func (ts *txStore) PutItem(ctx context.Context, item pricing.CatalogItem) error {
	return putItem(ctx, ts.q, item)
}

func (ts *txStore) ListShipmentItems(ctx context.Context, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	return listShipmentItems(ctx, ts.q, shipmentID)
}

func (ts *txStore) PutShipmentItem(ctx context.Context, item pricing.ShipmentItem) error {
	return putShipmentItem(ctx, ts.q, item)
}

func (ts *txStore) InsertLot(ctx context.Context, lot *pricing.PriceChangeLot) error {
	return insertLot(ctx, ts.q, lot)
}

func (ts *txStore) GetLot(ctx context.Context, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	return getLot(ctx, ts.q, id)
}

func (ts *txStore) ListLots(ctx context.Context) ([]pricing.PriceChangeLot, error) {
	return listLots(ctx, ts.q)
}

func (ts *txStore) MarkLotReverted(ctx context.Context, id pricing.LotID, at time.Time) error {
	return markLotReverted(ctx, ts.q, id, at)
}

func (ts *txStore) ListMarkupRules(ctx context.Context) ([]pricing.MarkupRule, error) {
	return listMarkupRules(ctx, ts.q)
}

func (ts *txStore) InsertMarkupRule(ctx context.Context, rule pricing.MarkupRule) error {
	return insertMarkupRule(ctx, ts.q, rule)
}

func (ts *txStore) SetMarkupRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, ts.q, "markup_rules", id, active)
}

func (ts *txStore) ListDiscountRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	return listDiscountRules(ctx, ts.q)
}

func (ts *txStore) InsertDiscountRule(ctx context.Context, rule pricing.DiscountRule) error {
	return insertDiscountRule(ctx, ts.q, rule)
}

func (ts *txStore) SetDiscountRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, ts.q, "discount_rules", id, active)
}

func (ts *txStore) AppendCostAudit(ctx context.Context, entries []pricing.CostAuditEntry) error {
	return appendCostAudit(ctx, ts.q, entries)
}
