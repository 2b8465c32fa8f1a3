/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Provides pre-built scenarios that populate the store with realistic
	data for testing and demos. Each scenario seeds catalog items,
	shipments, and pricing rules that demonstrate specific features.

AVAILABLE SCENARIOS:

	brake-import:    One container of brake parts, VALUE allocation
	heavy-parts:     Mixed suspension shipment with weights and volumes,
	                 exercises WEIGHT and HYBRID bases
	seasonal-reprice: Catalog + markup/discount rules for bulk repricing
	thin-margins:    Catalog priced near the minimum margin, for
	                 simulation demos

HOW SCENARIOS WORK:
 1. Reset the store (clear all data)
 2. Seed catalog items
 3. Seed shipment line items and/or pricing rules

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "brake-import"}

ADDING NEW SCENARIOS:
 1. Add to 'scenarios' slice with ID, name, description
 2. Create loader function: loadXxxScenario(ctx, h)
 3. Add case to LoadScenario handler

NOTE:

	Scenarios reset the store. Only use in development/demo environments.

SEE ALSO:
  - handlers.go: Main endpoint handlers
  - pricing/store/memory.go: Reset support for dev runs
*/
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/warp/pricing-engine/pricing"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "brake-import",
		Name:        "Brake Import",
		Description: "One container of brake parts, VALUE-basis allocation",
		Category:    "costing",
	},
	{
		ID:          "heavy-parts",
		Name:        "Heavy Parts",
		Description: "Suspension shipment with weights and volumes for WEIGHT/HYBRID bases",
		Category:    "costing",
	},
	{
		ID:          "seasonal-reprice",
		Name:        "Seasonal Reprice",
		Description: "Catalog with markup and discount rules for bulk price changes",
		Category:    "pricing",
	},
	{
		ID:          "thin-margins",
		Name:        "Thin Margins",
		Description: "Catalog priced near the minimum margin for simulation demos",
		Category:    "simulation",
	},
}

// resettable is implemented by every store that supports scenario loads.
type resettable interface {
	Reset(ctx context.Context) error
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadScenario resets the store and seeds the requested scenario.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rs, ok := h.Store.(resettable)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support scenario loads", nil)
		return
	}

	ctx := r.Context()
	if err := rs.Reset(ctx); err != nil {
		h.writeDomainError(w, "Failed to reset store", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "brake-import":
		err = loadBrakeImportScenario(ctx, h)
	case "heavy-parts":
		err = loadHeavyPartsScenario(ctx, h)
	case "seasonal-reprice":
		err = loadSeasonalRepriceScenario(ctx, h)
	case "thin-margins":
		err = loadThinMarginsScenario(ctx, h)
	default:
		writeError(w, http.StatusBadRequest, "Unknown scenario: "+req.ScenarioID, nil)
		return
	}
	if err != nil {
		h.writeDomainError(w, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]any{"loaded": req.ScenarioID})
}

// ResetDatabase clears all data without loading a scenario.
// POST /api/scenarios/reset
func (h *Handler) ResetDatabase(w http.ResponseWriter, r *http.Request) {
	rs, ok := h.Store.(resettable)
	if !ok {
		writeError(w, http.StatusNotImplemented, "Store does not support reset", nil)
		return
	}
	if err := rs.Reset(r.Context()); err != nil {
		h.writeDomainError(w, "Failed to reset store", err)
		return
	}
	h.currentScenario = ""
	writeJSON(w, http.StatusOK, map[string]any{"reset": true})
}

// =============================================================================
// SEED HELPERS
// =============================================================================

func seedItem(ctx context.Context, h *Handler, id, name, cost, price, category string, oem bool, weight, volume string) error {
	item := pricing.CatalogItem{
		ID:          pricing.ItemID(id),
		Name:        name,
		Cost:        decimal.RequireFromString(cost),
		RetailPrice: decimal.RequireFromString(price),
		Category:    category,
		OEM:         oem,
		Active:      true,
	}
	if weight != "" {
		d := decimal.RequireFromString(weight)
		item.Weight = &d
	}
	if volume != "" {
		d := decimal.RequireFromString(volume)
		item.Volume = &d
	}
	return h.Store.PutItem(ctx, item)
}

func seedShipmentItem(ctx context.Context, h *Handler, shipmentID, itemID string, qty int64, fob string) error {
	return h.Store.PutShipmentItem(ctx, pricing.ShipmentItem{
		ShipmentID:   pricing.ShipmentID(shipmentID),
		ItemID:       pricing.ItemID(itemID),
		Quantity:     qty,
		FOBUnitPrice: decimal.RequireFromString(fob),
	})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadBrakeImportScenario: a single container of brake parts. FOB values
// dominate the spread, so VALUE-basis allocation tells the whole story.
func loadBrakeImportScenario(ctx context.Context, h *Handler) error {
	items := []struct {
		id, name, cost, price string
	}{
		{"BRK-PAD-001", "Front brake pad set", "42.00", "95.00"},
		{"BRK-DSC-002", "Brake disc 280mm", "68.50", "149.00"},
		{"BRK-CAL-003", "Brake caliper assembly", "210.00", "429.00"},
		{"BRK-HOS-004", "Braided brake hose kit", "18.75", "49.00"},
	}
	for _, it := range items {
		if err := seedItem(ctx, h, it.id, it.name, it.cost, it.price, "brakes", false, "", ""); err != nil {
			return err
		}
	}

	lines := []struct {
		id  string
		qty int64
		fob string
	}{
		{"BRK-PAD-001", 200, "38.00"},
		{"BRK-DSC-002", 120, "61.00"},
		{"BRK-CAL-003", 40, "195.00"},
		{"BRK-HOS-004", 300, "16.20"},
	}
	for _, l := range lines {
		if err := seedShipmentItem(ctx, h, "SHIP-2026-014", l.id, l.qty, l.fob); err != nil {
			return err
		}
	}
	return nil
}

// loadHeavyPartsScenario: suspension parts where weight and volume
// diverge sharply from value. Springs are cheap and heavy; sensors are
// expensive and nearly weightless.
func loadHeavyPartsScenario(ctx context.Context, h *Handler) error {
	items := []struct {
		id, name, cost, price, weight, volume string
	}{
		{"SUS-SPR-001", "Coil spring pair", "55.00", "119.00", "14.5", "0.030"},
		{"SUS-SHK-002", "Gas shock absorber", "88.00", "189.00", "4.2", "0.012"},
		{"SUS-ARM-003", "Control arm", "120.00", "259.00", "6.8", "0.020"},
		{"SUS-SEN-004", "Ride height sensor", "145.00", "315.00", "0.2", "0.001"},
	}
	for _, it := range items {
		if err := seedItem(ctx, h, it.id, it.name, it.cost, it.price, "suspension", true, it.weight, it.volume); err != nil {
			return err
		}
	}

	lines := []struct {
		id  string
		qty int64
		fob string
	}{
		{"SUS-SPR-001", 150, "48.00"},
		{"SUS-SHK-002", 100, "79.00"},
		{"SUS-ARM-003", 80, "108.00"},
		{"SUS-SEN-004", 60, "132.00"},
	}
	for _, l := range lines {
		if err := seedShipmentItem(ctx, h, "SHIP-2026-019", l.id, l.qty, l.fob); err != nil {
			return err
		}
	}
	return nil
}

// loadSeasonalRepriceScenario: catalog plus rules, ready for lot
// previews and quotes.
func loadSeasonalRepriceScenario(ctx context.Context, h *Handler) error {
	items := []struct {
		id, name, cost, price, category string
		oem                             bool
	}{
		{"FLT-OIL-001", "Oil filter", "6.40", "14.99", "filters", false},
		{"FLT-AIR-002", "Air filter", "11.20", "24.99", "filters", false},
		{"FLT-CAB-003", "Cabin filter", "14.80", "32.99", "filters", true},
		{"ELC-BAT-004", "AGM battery 70Ah", "98.00", "199.00", "electrical", true},
		{"ELC-ALT-005", "Alternator 120A", "185.00", "399.00", "electrical", true},
	}
	for _, it := range items {
		if err := seedItem(ctx, h, it.id, it.name, it.cost, it.price, it.category, it.oem, "", ""); err != nil {
			return err
		}
	}

	low := decimal.RequireFromString("0")
	mid := decimal.RequireFromString("50")
	high := decimal.RequireFromString("500")
	oem := true
	filters := "filters"
	markups := []pricing.MarkupRule{
		{ID: "mk-small", Name: "Small parts", Multiplier: decimal.RequireFromString("2.3"),
			CostFrom: &low, CostTo: &mid, Rounding: pricing.RoundEndIn99, Priority: 20, Active: true},
		{ID: "mk-large", Name: "Large parts", Multiplier: decimal.RequireFromString("2.0"),
			CostFrom: &mid, CostTo: &high, Rounding: pricing.RoundNearest10, Priority: 20, Active: true},
		{ID: "mk-oem-filters", Name: "OEM filters", Multiplier: decimal.RequireFromString("2.5"),
			Category: &filters, OEM: &oem, Rounding: pricing.RoundEndIn99, Priority: 10, Active: true},
	}
	for _, r := range markups {
		if err := h.Store.InsertMarkupRule(ctx, r); err != nil {
			return err
		}
	}

	wholesale := "wholesale"
	discounts := []pricing.DiscountRule{
		{ID: "ds-bulk", Name: "Bulk order", Condition: pricing.CondQuantity,
			Threshold: decimal.RequireFromString("50"), Type: pricing.DiscountPercentage,
			Value: decimal.RequireFromString("0.08"), Stackable: true, Priority: 10, Active: true},
		{ID: "ds-loyalty", Name: "Two-year account", Condition: pricing.CondAccountAge,
			Threshold: decimal.RequireFromString("24"), Type: pricing.DiscountPercentage,
			Value: decimal.RequireFromString("0.05"), Stackable: true, Priority: 20, Active: true},
		{ID: "ds-fleet", Name: "Fleet plan", Condition: pricing.CondPlan, Match: "fleet",
			PriceList: &wholesale, Type: pricing.DiscountPercentage,
			Value: decimal.RequireFromString("0.15"), Stackable: false, Priority: 5, Active: true},
	}
	for _, r := range discounts {
		if err := h.Store.InsertDiscountRule(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

// loadThinMarginsScenario: retail prices sit just above cost so small
// cost shocks push items below the minimum margin.
func loadThinMarginsScenario(ctx context.Context, h *Handler) error {
	items := []struct {
		id, name, cost, price string
	}{
		{"TRM-WIP-001", "Wiper blade set", "9.20", "11.50"},
		{"TRM-BLB-002", "Headlight bulb pair", "14.00", "17.90"},
		{"TRM-FUS-003", "Fuse assortment", "4.10", "5.40"},
		{"TRM-MAT-004", "Rubber floor mats", "22.00", "29.00"},
	}
	for _, it := range items {
		if err := seedItem(ctx, h, it.id, it.name, it.cost, it.price, "trim", false, "", ""); err != nil {
			return err
		}
	}

	// Reference shipment so FREIGHT and DUTY_RATE scenarios have a cost
	// composition to perturb.
	lines := []struct {
		id  string
		qty int64
		fob string
	}{
		{"TRM-WIP-001", 400, "8.10"},
		{"TRM-BLB-002", 250, "12.60"},
		{"TRM-FUS-003", 600, "3.60"},
		{"TRM-MAT-004", 180, "19.50"},
	}
	for _, l := range lines {
		if err := seedShipmentItem(ctx, h, "SHIP-2026-031", l.id, l.qty, l.fob); err != nil {
			return err
		}
	}
	return nil
}
