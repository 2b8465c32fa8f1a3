/*
Package sqlite provides a SQLite-backed implementation of the storage interfaces.

PURPOSE:
  Implements pricing.TxStore using SQLite. The embedded default for
  single-node deployments; store/postgres carries the same schema for
  shared deployments.

KEY TABLES:
  catalog_items:    Cost/price fields the engine owns, plus attributes
  shipment_items:   Immutable commercial terms per shipment line
  price_lots:       Append-only lot headers
  price_lot_entries: Immutable before/after pairs per lot
  markup_rules, discount_rules: Rule definitions (never deleted)
  cost_audit:       Cost changes written by confirmed allocations

APPEND-ONLY ENFORCEMENT:
  price_lots rows are inserted once; the only UPDATE flips reverted from
  0 to 1. price_lot_entries and cost_audit have no UPDATE or DELETE
  paths at all.

CONCURRENCY:
  A sync.Mutex serializes WithTx, so two lot applies can never interleave
  regardless of their write sets. SQLite's single-writer WAL mode backs
  this up at the database level.

MONEY COLUMNS:
  Decimals are stored as TEXT and parsed with shopspring/decimal, so no
  precision is lost round-tripping.

SEE ALSO:
  - pricing/store.go: Interface contracts
  - store/postgres/postgres.go: pgx implementation with row-level locks
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/pricing-engine/pricing"
)

// Store implements pricing.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_items (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL DEFAULT '',
		cost TEXT NOT NULL,
		retail_price TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT '',
		oem INTEGER NOT NULL DEFAULT 0,
		weight TEXT,
		volume TEXT,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS shipment_items (
		shipment_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		fob_unit_price TEXT NOT NULL,
		weight TEXT,
		volume TEXT,
		PRIMARY KEY (shipment_id, item_id)
	);

	-- Lot headers (append-only; only the reverted flag ever updates)
	CREATE TABLE IF NOT EXISTS price_lots (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL,
		applied INTEGER NOT NULL,
		reverted INTEGER NOT NULL DEFAULT 0,
		item_count INTEGER NOT NULL,
		avg_margin_before TEXT NOT NULL,
		avg_margin_after TEXT NOT NULL,
		created_at TEXT NOT NULL,
		reverted_at TEXT
	);

	-- Immutable audit record of each lot's changes
	CREATE TABLE IF NOT EXISTS price_lot_entries (
		lot_id TEXT NOT NULL REFERENCES price_lots(id),
		item_id TEXT NOT NULL,
		price_before TEXT NOT NULL,
		price_after TEXT NOT NULL,
		PRIMARY KEY (lot_id, item_id)
	);

	CREATE TABLE IF NOT EXISTS markup_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		multiplier TEXT NOT NULL,
		cost_from TEXT,
		cost_to TEXT,
		category TEXT,
		oem INTEGER,
		rounding TEXT NOT NULL,
		priority INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS discount_rules (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		price_list TEXT,
		condition_type TEXT NOT NULL,
		threshold TEXT NOT NULL,
		match_value TEXT NOT NULL DEFAULT '',
		discount_type TEXT NOT NULL,
		value TEXT NOT NULL,
		stackable INTEGER NOT NULL,
		priority INTEGER NOT NULL,
		active INTEGER NOT NULL DEFAULT 1
	);

	CREATE TABLE IF NOT EXISTS cost_audit (
		shipment_id TEXT NOT NULL,
		item_id TEXT NOT NULL,
		cost_before TEXT NOT NULL,
		cost_after TEXT NOT NULL,
		at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_items_category ON catalog_items(category);
	CREATE INDEX IF NOT EXISTS idx_shipment_items_shipment ON shipment_items(shipment_id);
	CREATE INDEX IF NOT EXISTS idx_lot_entries_item ON price_lot_entries(item_id);
	CREATE INDEX IF NOT EXISTS idx_cost_audit_item ON cost_audit(item_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// dbtx is satisfied by both *sql.DB and *sql.Tx so the plain and
// transactional paths share the same query code.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// DECIMAL HELPERS - Money is TEXT in SQLite
// =============================================================================

func decToDB(d decimal.Decimal) string { return d.String() }

func decPtrToDB(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func decFromDB(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

func decPtrFromDB(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// =============================================================================
// CATALOG
// =============================================================================

const catalogColumns = "id, name, cost, retail_price, category, oem, weight, volume, active"

func scanCatalogItem(scan func(dest ...any) error) (*pricing.CatalogItem, error) {
	var (
		item           pricing.CatalogItem
		cost, price    string
		oem, active    int
		weight, volume sql.NullString
	)
	if err := scan(&item.ID, &item.Name, &cost, &price, &item.Category, &oem, &weight, &volume, &active); err != nil {
		return nil, err
	}
	var err error
	if item.Cost, err = decFromDB(cost); err != nil {
		return nil, err
	}
	if item.RetailPrice, err = decFromDB(price); err != nil {
		return nil, err
	}
	if item.Weight, err = decPtrFromDB(weight); err != nil {
		return nil, err
	}
	if item.Volume, err = decPtrFromDB(volume); err != nil {
		return nil, err
	}
	item.OEM = oem != 0
	item.Active = active != 0
	return &item, nil
}

func getItem(ctx context.Context, q dbtx, id pricing.ItemID) (*pricing.CatalogItem, error) {
	row := q.QueryRowContext(ctx, "SELECT "+catalogColumns+" FROM catalog_items WHERE id = ?", string(id))
	item, err := scanCatalogItem(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	return item, err
}

func listItems(ctx context.Context, q dbtx, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	query := "SELECT " + catalogColumns + " FROM catalog_items"
	var conds []string
	var args []any
	if filter.OnlyActive {
		conds = append(conds, "active = 1")
	}
	if filter.Category != nil {
		conds = append(conds, "category = ?")
		args = append(args, *filter.Category)
	}
	if filter.OEM != nil {
		conds = append(conds, "oem = ?")
		args = append(args, boolToInt(*filter.OEM))
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY id"

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.CatalogItem
	for rows.Next() {
		item, err := scanCatalogItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		// Cost bands and id sets filter in Go; the decimal TEXT columns
		// don't compare numerically in SQL.
		if filter.Matches(*item) {
			out = append(out, *item)
		}
	}
	return out, rows.Err()
}

func updateItemField(ctx context.Context, q dbtx, field string, id pricing.ItemID, value decimal.Decimal) error {
	res, err := q.ExecContext(ctx, "UPDATE catalog_items SET "+field+" = ? WHERE id = ?", decToDB(value), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", pricing.ErrItemNotFound, id)
	}
	return nil
}

func putItem(ctx context.Context, q dbtx, item pricing.CatalogItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO catalog_items (`+catalogColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, cost = excluded.cost,
			retail_price = excluded.retail_price, category = excluded.category,
			oem = excluded.oem, weight = excluded.weight,
			volume = excluded.volume, active = excluded.active`,
		string(item.ID), item.Name, decToDB(item.Cost), decToDB(item.RetailPrice),
		item.Category, boolToInt(item.OEM), decPtrToDB(item.Weight), decPtrToDB(item.Volume),
		boolToInt(item.Active))
	return err
}

// =============================================================================
// SHIPMENTS
// =============================================================================

func listShipmentItems(ctx context.Context, q dbtx, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT shipment_id, item_id, quantity, fob_unit_price, weight, volume
		FROM shipment_items WHERE shipment_id = ? ORDER BY item_id`, string(shipmentID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.ShipmentItem
	for rows.Next() {
		var (
			si             pricing.ShipmentItem
			fob            string
			weight, volume sql.NullString
		)
		if err := rows.Scan(&si.ShipmentID, &si.ItemID, &si.Quantity, &fob, &weight, &volume); err != nil {
			return nil, err
		}
		if si.FOBUnitPrice, err = decFromDB(fob); err != nil {
			return nil, err
		}
		if si.Weight, err = decPtrFromDB(weight); err != nil {
			return nil, err
		}
		if si.Volume, err = decPtrFromDB(volume); err != nil {
			return nil, err
		}
		out = append(out, si)
	}
	return out, rows.Err()
}

func putShipmentItem(ctx context.Context, q dbtx, item pricing.ShipmentItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO shipment_items (shipment_id, item_id, quantity, fob_unit_price, weight, volume)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(shipment_id, item_id) DO UPDATE SET
			quantity = excluded.quantity, fob_unit_price = excluded.fob_unit_price,
			weight = excluded.weight, volume = excluded.volume`,
		string(item.ShipmentID), string(item.ItemID), item.Quantity,
		decToDB(item.FOBUnitPrice), decPtrToDB(item.Weight), decPtrToDB(item.Volume))
	return err
}

// =============================================================================
// LOTS
// =============================================================================

const lotColumns = "id, description, applied, reverted, item_count, avg_margin_before, avg_margin_after, created_at, reverted_at"

func insertLot(ctx context.Context, q dbtx, lot *pricing.PriceChangeLot) error {
	var revertedAt any
	if lot.RevertedAt != nil {
		revertedAt = lot.RevertedAt.UTC().Format(time.RFC3339Nano)
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO price_lots (`+lotColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(lot.ID), lot.Description, boolToInt(lot.Applied), boolToInt(lot.Reverted),
		lot.ItemCount, decToDB(lot.AvgMarginBefore), decToDB(lot.AvgMarginAfter),
		lot.CreatedAt.UTC().Format(time.RFC3339Nano), revertedAt)
	if err != nil {
		return err
	}
	for _, e := range lot.Entries {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO price_lot_entries (lot_id, item_id, price_before, price_after)
			VALUES (?, ?, ?, ?)`,
			string(lot.ID), string(e.ItemID), decToDB(e.PriceBefore), decToDB(e.PriceAfter)); err != nil {
			return err
		}
	}
	return nil
}

func scanLot(scan func(dest ...any) error) (*pricing.PriceChangeLot, error) {
	var (
		lot               pricing.PriceChangeLot
		applied, reverted int
		mBefore, mAfter   string
		createdAt         string
		revertedAt        sql.NullString
	)
	if err := scan(&lot.ID, &lot.Description, &applied, &reverted, &lot.ItemCount,
		&mBefore, &mAfter, &createdAt, &revertedAt); err != nil {
		return nil, err
	}
	var err error
	if lot.AvgMarginBefore, err = decFromDB(mBefore); err != nil {
		return nil, err
	}
	if lot.AvgMarginAfter, err = decFromDB(mAfter); err != nil {
		return nil, err
	}
	if lot.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return nil, err
	}
	if revertedAt.Valid {
		at, err := time.Parse(time.RFC3339Nano, revertedAt.String)
		if err != nil {
			return nil, err
		}
		lot.RevertedAt = &at
	}
	lot.Applied = applied != 0
	lot.Reverted = reverted != 0
	return &lot, nil
}

func getLot(ctx context.Context, q dbtx, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	row := q.QueryRowContext(ctx, "SELECT "+lotColumns+" FROM price_lots WHERE id = ?", string(id))
	lot, err := scanLot(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", pricing.ErrLotNotFound, id)
	}
	if err != nil {
		return nil, err
	}

	rows, err := q.QueryContext(ctx, `
		SELECT item_id, price_before, price_after FROM price_lot_entries
		WHERE lot_id = ? ORDER BY item_id`, string(id))
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
		if e.PriceBefore, err = decFromDB(before); err != nil {
			return nil, err
		}
		if e.PriceAfter, err = decFromDB(after); err != nil {
			return nil, err
		}
		lot.Entries = append(lot.Entries, e)
	}
	return lot, rows.Err()
}

func listLots(ctx context.Context, q dbtx) ([]pricing.PriceChangeLot, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+lotColumns+" FROM price_lots ORDER BY created_at DESC, id DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.PriceChangeLot
	for rows.Next() {
		lot, err := scanLot(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, *lot)
	}
	return out, rows.Err()
}

func markLotReverted(ctx context.Context, q dbtx, id pricing.LotID, at time.Time) error {
	res, err := q.ExecContext(ctx, `
		UPDATE price_lots SET reverted = 1, reverted_at = ?
		WHERE id = ? AND reverted = 0`,
		at.UTC().Format(time.RFC3339Nano), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either missing or already reverted; distinguish for the caller.
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

func listMarkupRules(ctx context.Context, q dbtx) ([]pricing.MarkupRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, multiplier, cost_from, cost_to, category, oem, rounding, priority, active
		FROM markup_rules ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.MarkupRule
	for rows.Next() {
		var (
			r             pricing.MarkupRule
			mult          string
			from, to, cat sql.NullString
			oem           sql.NullInt64
			active        int
		)
		if err := rows.Scan(&r.ID, &r.Name, &mult, &from, &to, &cat, &oem, &r.Rounding, &r.Priority, &active); err != nil {
			return nil, err
		}
		if r.Multiplier, err = decFromDB(mult); err != nil {
			return nil, err
		}
		if r.CostFrom, err = decPtrFromDB(from); err != nil {
			return nil, err
		}
		if r.CostTo, err = decPtrFromDB(to); err != nil {
			return nil, err
		}
		if cat.Valid {
			c := cat.String
			r.Category = &c
		}
		if oem.Valid {
			b := oem.Int64 != 0
			r.OEM = &b
		}
		r.Active = active != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertMarkupRule(ctx context.Context, q dbtx, r pricing.MarkupRule) error {
	var oem any
	if r.OEM != nil {
		oem = boolToInt(*r.OEM)
	}
	var cat any
	if r.Category != nil {
		cat = *r.Category
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO markup_rules (id, name, multiplier, cost_from, cost_to, category, oem, rounding, priority, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), r.Name, decToDB(r.Multiplier), decPtrToDB(r.CostFrom), decPtrToDB(r.CostTo),
		cat, oem, string(r.Rounding), r.Priority, boolToInt(r.Active))
	return err
}

func setRuleActive(ctx context.Context, q dbtx, table string, id pricing.RuleID, active bool) error {
	res, err := q.ExecContext(ctx, "UPDATE "+table+" SET active = ? WHERE id = ?", boolToInt(active), string(id))
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("rule %s not found", id)
	}
	return nil
}

func listDiscountRules(ctx context.Context, q dbtx) ([]pricing.DiscountRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, price_list, condition_type, threshold, match_value,
			discount_type, value, stackable, priority, active
		FROM discount_rules ORDER BY priority, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []pricing.DiscountRule
	for rows.Next() {
		var (
			r                 pricing.DiscountRule
			priceList         sql.NullString
			threshold, value  string
			stackable, active int
		)
		if err := rows.Scan(&r.ID, &r.Name, &priceList, &r.Condition, &threshold, &r.Match,
			&r.Type, &value, &stackable, &r.Priority, &active); err != nil {
			return nil, err
		}
		if r.Threshold, err = decFromDB(threshold); err != nil {
			return nil, err
		}
		if r.Value, err = decFromDB(value); err != nil {
			return nil, err
		}
		if priceList.Valid {
			pl := priceList.String
			r.PriceList = &pl
		}
		r.Stackable = stackable != 0
		r.Active = active != 0
		out = append(out, r)
	}
	return out, rows.Err()
}

func insertDiscountRule(ctx context.Context, q dbtx, r pricing.DiscountRule) error {
	var priceList any
	if r.PriceList != nil {
		priceList = *r.PriceList
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO discount_rules (id, name, price_list, condition_type, threshold,
			match_value, discount_type, value, stackable, priority, active)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(r.ID), r.Name, priceList, string(r.Condition), decToDB(r.Threshold),
		r.Match, string(r.Type), decToDB(r.Value), boolToInt(r.Stackable), r.Priority,
		boolToInt(r.Active))
	return err
}

// =============================================================================
// COST AUDIT
// =============================================================================

func appendCostAudit(ctx context.Context, q dbtx, entries []pricing.CostAuditEntry) error {
	for _, e := range entries {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO cost_audit (shipment_id, item_id, cost_before, cost_after, at)
			VALUES (?, ?, ?, ?, ?)`,
			string(e.ShipmentID), string(e.ItemID), decToDB(e.CostBefore),
			decToDB(e.CostAfter), e.At.UTC().Format(time.RFC3339Nano)); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// STORE INTERFACE - plain (auto-commit) paths
// =============================================================================

func (s *Store) GetItem(ctx context.Context, id pricing.ItemID) (*pricing.CatalogItem, error) {
	return getItem(ctx, s.db, id)
}

func (s *Store) ListItems(ctx context.Context, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	return listItems(ctx, s.db, filter)
}

func (s *Store) UpdateItemCost(ctx context.Context, id pricing.ItemID, cost decimal.Decimal) error {
	return updateItemField(ctx, s.db, "cost", id, cost)
}

func (s *Store) UpdateItemPrice(ctx context.Context, id pricing.ItemID, price decimal.Decimal) error {
	return updateItemField(ctx, s.db, "retail_price", id, price)
}

func (s *Store) PutItem(ctx context.Context, item pricing.CatalogItem) error {
	return putItem(ctx, s.db, item)
}

func (s *Store) ListShipmentItems(ctx context.Context, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	return listShipmentItems(ctx, s.db, shipmentID)
}

func (s *Store) PutShipmentItem(ctx context.Context, item pricing.ShipmentItem) error {
	return putShipmentItem(ctx, s.db, item)
}

func (s *Store) InsertLot(ctx context.Context, lot *pricing.PriceChangeLot) error {
	return insertLot(ctx, s.db, lot)
}

func (s *Store) GetLot(ctx context.Context, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	return getLot(ctx, s.db, id)
}

func (s *Store) ListLots(ctx context.Context) ([]pricing.PriceChangeLot, error) {
	return listLots(ctx, s.db)
}

func (s *Store) MarkLotReverted(ctx context.Context, id pricing.LotID, at time.Time) error {
	return markLotReverted(ctx, s.db, id, at)
}

func (s *Store) ListMarkupRules(ctx context.Context) ([]pricing.MarkupRule, error) {
	return listMarkupRules(ctx, s.db)
}

func (s *Store) InsertMarkupRule(ctx context.Context, rule pricing.MarkupRule) error {
	return insertMarkupRule(ctx, s.db, rule)
}

func (s *Store) SetMarkupRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, s.db, "markup_rules", id, active)
}

func (s *Store) ListDiscountRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	return listDiscountRules(ctx, s.db)
}

func (s *Store) InsertDiscountRule(ctx context.Context, rule pricing.DiscountRule) error {
	return insertDiscountRule(ctx, s.db, rule)
}

func (s *Store) SetDiscountRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, s.db, "discount_rules", id, active)
}

func (s *Store) AppendCostAudit(ctx context.Context, entries []pricing.CostAuditEntry) error {
	return appendCostAudit(ctx, s.db, entries)
}

// Reset clears all data. Dev/demo only.
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM price_lot_entries;
		DELETE FROM price_lots;
		DELETE FROM cost_audit;
		DELETE FROM shipment_items;
		DELETE FROM catalog_items;
		DELETE FROM markup_rules;
		DELETE FROM discount_rules;`)
	return err
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a database transaction. The mutex serializes
// transactions entirely, so overlapping lot applies cannot interleave.
func (s *Store) WithTx(ctx context.Context, fn func(store pricing.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every Store call through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) GetItem(ctx context.Context, id pricing.ItemID) (*pricing.CatalogItem, error) {
	return getItem(ctx, ts.tx, id)
}

func (ts *txStore) ListItems(ctx context.Context, filter pricing.CatalogFilter) ([]pricing.CatalogItem, error) {
	return listItems(ctx, ts.tx, filter)
}

func (ts *txStore) UpdateItemCost(ctx context.Context, id pricing.ItemID, cost decimal.Decimal) error {
	return updateItemField(ctx, ts.tx, "cost", id, cost)
}

func (ts *txStore) UpdateItemPrice(ctx context.Context, id pricing.ItemID, price decimal.Decimal) error {
	return updateItemField(ctx, ts.tx, "retail_price", id, price)
}

func (ts *txStore) PutItem(ctx context.Context, item pricing.CatalogItem) error {
	return putItem(ctx, ts.tx, item)
}

func (ts *txStore) ListShipmentItems(ctx context.Context, shipmentID pricing.ShipmentID) ([]pricing.ShipmentItem, error) {
	return listShipmentItems(ctx, ts.tx, shipmentID)
}

func (ts *txStore) PutShipmentItem(ctx context.Context, item pricing.ShipmentItem) error {
	return putShipmentItem(ctx, ts.tx, item)
}

func (ts *txStore) InsertLot(ctx context.Context, lot *pricing.PriceChangeLot) error {
	return insertLot(ctx, ts.tx, lot)
}

func (ts *txStore) GetLot(ctx context.Context, id pricing.LotID) (*pricing.PriceChangeLot, error) {
	return getLot(ctx, ts.tx, id)
}

func (ts *txStore) ListLots(ctx context.Context) ([]pricing.PriceChangeLot, error) {
	return listLots(ctx, ts.tx)
}

func (ts *txStore) MarkLotReverted(ctx context.Context, id pricing.LotID, at time.Time) error {
	return markLotReverted(ctx, ts.tx, id, at)
}

func (ts *txStore) ListMarkupRules(ctx context.Context) ([]pricing.MarkupRule, error) {
	return listMarkupRules(ctx, ts.tx)
}

func (ts *txStore) InsertMarkupRule(ctx context.Context, rule pricing.MarkupRule) error {
	return insertMarkupRule(ctx, ts.tx, rule)
}

func (ts *txStore) SetMarkupRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, ts.tx, "markup_rules", id, active)
}

func (ts *txStore) ListDiscountRules(ctx context.Context) ([]pricing.DiscountRule, error) {
	return listDiscountRules(ctx, ts.tx)
}

func (ts *txStore) InsertDiscountRule(ctx context.Context, rule pricing.DiscountRule) error {
	return insertDiscountRule(ctx, ts.tx, rule)
}

func (ts *txStore) SetDiscountRuleActive(ctx context.Context, id pricing.RuleID, active bool) error {
	return setRuleActive(ctx, ts.tx, "discount_rules", id, active)
}

func (ts *txStore) AppendCostAudit(ctx context.Context, entries []pricing.CostAuditEntry) error {
	return appendCostAudit(ctx, ts.tx, entries)
}
