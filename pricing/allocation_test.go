package pricing_test

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/warp/pricing-engine/pricing"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func baseParams() pricing.CostParameters {
	return pricing.CostParameters{
		ExchangeRate: dec("1"),
		Basis:        pricing.BasisValue,
		MinMargin:    dec("0.20"),
		TargetMargin: dec("0.40"),
	}
}

func shipItem(id string, qty int64, fob string) pricing.ShipmentItem {
	return pricing.ShipmentItem{
		ShipmentID:   "SHP-1",
		ItemID:       pricing.ItemID(id),
		Quantity:     qty,
		FOBUnitPrice: dec(fob),
	}
}

func catalogOf(items ...pricing.CatalogItem) map[pricing.ItemID]pricing.CatalogItem {
	out := make(map[pricing.ItemID]pricing.CatalogItem)
	for _, ci := range items {
		out[ci.ID] = ci
	}
	return out
}

func catItem(id, cost, retail string) pricing.CatalogItem {
	return pricing.CatalogItem{
		ID:          pricing.ItemID(id),
		Cost:        dec(cost),
		RetailPrice: dec(retail),
		Category:    "general",
		Active:      true,
	}
}

// =============================================================================
// CONSERVATION
// =============================================================================

func TestAllocate_ValueBasis_PoolsSumExactly(t *testing.T) {
	// GIVEN: Three items with equal FOB value and pools that don't divide
	//        evenly at currency precision
	// WHEN:  Allocating by VALUE
	// THEN:  Every pool's per-item shares sum exactly to the pool total

	items := []pricing.ShipmentItem{
		shipItem("A", 1, "100"),
		shipItem("B", 1, "100"),
		shipItem("C", 1, "100"),
	}
	params := baseParams()
	params.FreightTotal = dec("100")
	params.InsuranceTotal = dec("10")
	params.CustomsAgentFee = dec("1")
	params.PortCharges = dec("0.05")

	result, err := pricing.Allocate("SHP-1", items, catalogOf(
		catItem("A", "0", "500"), catItem("B", "0", "500"), catItem("C", "0", "500"),
	), params)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	freight := decimal.Zero
	insurance := decimal.Zero
	logistics := decimal.Zero
	for _, b := range result.Items {
		freight = freight.Add(b.FreightShare)
		insurance = insurance.Add(b.InsuranceShare)
		logistics = logistics.Add(b.LogisticsShare)
	}
	if !freight.Equal(dec("100")) {
		t.Errorf("freight shares sum to %s, want 100", freight)
	}
	if !insurance.Equal(dec("10")) {
		t.Errorf("insurance shares sum to %s, want 10", insurance)
	}
	if !logistics.Equal(dec("1.05")) {
		t.Errorf("logistics shares sum to %s, want 1.05", logistics)
	}

	// Residual lands on the last item in id order: 100/3 truncates to
	// 33.33, so C absorbs the extra cent.
	if !result.Items[0].FreightShare.Equal(dec("33.33")) ||
		!result.Items[1].FreightShare.Equal(dec("33.33")) ||
		!result.Items[2].FreightShare.Equal(dec("33.34")) {
		t.Errorf("freight shares = %s/%s/%s, want 33.33/33.33/33.34",
			result.Items[0].FreightShare, result.Items[1].FreightShare, result.Items[2].FreightShare)
	}
}

func TestAllocate_HybridBasis_AveragesValueAndWeightShares(t *testing.T) {
	// GIVEN: Two items with value shares 0.8/0.2 and weight shares 0.3/0.7
	// WHEN:  Allocating a 100 USD freight pool by HYBRID (default 0.5 mix)
	// THEN:  Shares are 0.55/0.45 and sum exactly to the pool

	a := shipItem("A", 1, "800")
	a.Weight = decPtr("3")
	b := shipItem("B", 1, "200")
	b.Weight = decPtr("7")

	params := baseParams()
	params.Basis = pricing.BasisHybrid
	params.FreightTotal = dec("100")

	result, err := pricing.Allocate("SHP-1", []pricing.ShipmentItem{a, b}, catalogOf(
		catItem("A", "0", "0"), catItem("B", "0", "0"),
	), params)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !result.Items[0].FreightShare.Equal(dec("55")) {
		t.Errorf("item A freight share = %s, want 55", result.Items[0].FreightShare)
	}
	if !result.Items[1].FreightShare.Equal(dec("45")) {
		t.Errorf("item B freight share = %s, want 45", result.Items[1].FreightShare)
	}
	sum := result.Items[0].FreightShare.Add(result.Items[1].FreightShare)
	if !sum.Equal(dec("100")) {
		t.Errorf("shares sum to %s, want 100", sum)
	}
}

// =============================================================================
// CHARGE CLASSIFICATION
// =============================================================================

func TestAllocate_RecoverableExcludedFromLandedCost(t *testing.T) {
	// GIVEN: One item with duty, statistical tax and all four recoverable rates
	// WHEN:  Allocating
	// THEN:  Landed cost carries only non-recoverable charges; recoverable
	//        charges appear in the recoverable total and cash disbursement

	items := []pricing.ShipmentItem{shipItem("A", 2, "50")} // FOB 100
	params := baseParams()
	params.FreightTotal = dec("20")
	params.InsuranceTotal = dec("5")
	params.DutyRate = dec("0.10")
	params.StatisticalTaxRate = dec("0.03")
	params.VATRate = dec("0.21")
	params.AdditionalVATRate = dec("0.10")
	params.IncomeTaxAdvanceRate = dec("0.06")
	params.GrossReceiptsAdvanceRate = dec("0.025")

	result, err := pricing.Allocate("SHP-1", items, catalogOf(catItem("A", "0", "0")), params)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}

	b := result.Items[0]
	// CIF = 100 + 20 + 5 = 125; duty = 12.50; stat = 3.75
	if !b.CIF.Equal(dec("125")) {
		t.Errorf("CIF = %s, want 125", b.CIF)
	}
	if !b.DutyShare.Equal(dec("12.5")) {
		t.Errorf("duty = %s, want 12.5", b.DutyShare)
	}
	if !b.StatisticalTaxShare.Equal(dec("3.75")) {
		t.Errorf("statistical tax = %s, want 3.75", b.StatisticalTaxShare)
	}
	// Landed = 125 + 12.50 + 3.75 = 141.25; unit = 70.625 -> local 70.63
	if !b.LandedTotalUSD.Equal(dec("141.25")) {
		t.Errorf("landed total = %s, want 141.25", b.LandedTotalUSD)
	}

	// Recoverable base = 141.25; VAT 29.66 + addVAT 14.12 + income 8.47 + gross 3.53
	wantRecoverable := b.VATShare.Add(b.AdditionalVATShare).Add(b.IncomeTaxAdvanceShare).Add(b.GrossReceiptsAdvanceShare)
	if !result.Totals.Recoverable.Equal(wantRecoverable) {
		t.Errorf("recoverable total = %s, want %s", result.Totals.Recoverable, wantRecoverable)
	}
	if !result.Totals.NonRecoverable.Equal(b.LandedTotalUSD) {
		t.Errorf("non-recoverable total = %s, want %s", result.Totals.NonRecoverable, b.LandedTotalUSD)
	}
	wantCash := result.Totals.NonRecoverable.Add(result.Totals.Recoverable)
	if !result.Totals.CashDisbursement.Equal(wantCash) {
		t.Errorf("cash disbursement = %s, want %s", result.Totals.CashDisbursement, wantCash)
	}
}

func TestAllocate_CategoryDutyRateOverridesGlobal(t *testing.T) {
	items := []pricing.ShipmentItem{shipItem("A", 1, "100"), shipItem("B", 1, "100")}
	params := baseParams()
	params.DutyRate = dec("0.10")
	params.CategoryDutyRates = map[string]decimal.Decimal{"engine": dec("0.35")}

	engine := catItem("A", "0", "0")
	engine.Category = "engine"
	result, err := pricing.Allocate("SHP-1", items, catalogOf(engine, catItem("B", "0", "0")), params)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if !result.Items[0].DutyShare.Equal(dec("35")) {
		t.Errorf("engine duty = %s, want 35", result.Items[0].DutyShare)
	}
	if !result.Items[1].DutyShare.Equal(dec("10")) {
		t.Errorf("general duty = %s, want 10", result.Items[1].DutyShare)
	}
}

// =============================================================================
// MARGIN ALERTS AND CURRENCY CONVERSION
// =============================================================================

func TestAllocate_MarginAgainstRetailWithExchangeRate(t *testing.T) {
	// GIVEN: One unit landing at 150 USD, exchange rate 2, retail 600 local
	// WHEN:  Allocating
	// THEN:  Unit local cost 300, margin 50%, alert GREEN at target 40%

	items := []pricing.ShipmentItem{shipItem("A", 1, "100")}
	params := baseParams()
	params.ExchangeRate = dec("2")
	params.FreightTotal = dec("50")

	result, err := pricing.Allocate("SHP-1", items, catalogOf(catItem("A", "0", "600")), params)
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	b := result.Items[0]
	if !b.UnitLandedLocal.Equal(dec("300")) {
		t.Errorf("unit landed local = %s, want 300", b.UnitLandedLocal)
	}
	if !b.CurrentMargin.Equal(dec("0.5")) {
		t.Errorf("margin = %s, want 0.5", b.CurrentMargin)
	}
	if b.Alert != pricing.AlertGreen {
		t.Errorf("alert = %s, want GREEN", b.Alert)
	}
}

func TestAllocate_AlertThresholdsAreConfiguration(t *testing.T) {
	cases := []struct {
		name   string
		retail string
		want   pricing.MarginAlert
	}{
		{"below minimum", "110", pricing.AlertRed},    // margin ~9%
		{"between", "140", pricing.AlertYellow},       // margin ~28.6%
		{"at target", "250", pricing.AlertGreen},      // margin 60%
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items := []pricing.ShipmentItem{shipItem("A", 1, "100")}
			result, err := pricing.Allocate("SHP-1", items, catalogOf(catItem("A", "0", tc.retail)), baseParams())
			if err != nil {
				t.Fatalf("Allocate failed: %v", err)
			}
			if result.Items[0].Alert != tc.want {
				t.Errorf("alert = %s, want %s (margin %s)", result.Items[0].Alert, tc.want, result.Items[0].CurrentMargin)
			}
		})
	}
}

// =============================================================================
// FAILURES
// =============================================================================

func TestAllocate_WeightBasisRequiresWeights(t *testing.T) {
	// GIVEN: WEIGHT basis and an item without a weight
	// THEN:  The whole computation fails; no partial allocation

	a := shipItem("A", 1, "100")
	a.Weight = decPtr("5")
	b := shipItem("B", 1, "100") // no weight

	params := baseParams()
	params.Basis = pricing.BasisWeight

	_, err := pricing.Allocate("SHP-1", []pricing.ShipmentItem{a, b}, catalogOf(
		catItem("A", "0", "0"), catItem("B", "0", "0"),
	), params)
	if !errors.Is(err, pricing.ErrMissingDimension) {
		t.Fatalf("err = %v, want ErrMissingDimension", err)
	}
	var mde *pricing.MissingDimensionError
	if !errors.As(err, &mde) || mde.ItemID != "B" || mde.Dimension != "weight" {
		t.Errorf("unexpected error detail: %+v", mde)
	}
}

func TestAllocate_RejectsInvalidParameters(t *testing.T) {
	items := []pricing.ShipmentItem{shipItem("A", 1, "100")}
	catalog := catalogOf(catItem("A", "0", "0"))

	cases := []struct {
		name   string
		mutate func(*pricing.CostParameters)
	}{
		{"zero exchange rate", func(p *pricing.CostParameters) { p.ExchangeRate = decimal.Zero }},
		{"negative rate", func(p *pricing.CostParameters) { p.VATRate = dec("-0.1") }},
		{"rate at one", func(p *pricing.CostParameters) { p.DutyRate = dec("1") }},
		{"unknown basis", func(p *pricing.CostParameters) { p.Basis = "TONNAGE" }},
		{"negative pool", func(p *pricing.CostParameters) { p.FreightTotal = dec("-5") }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := baseParams()
			tc.mutate(&params)
			_, err := pricing.Allocate("SHP-1", items, catalog, params)
			if !errors.Is(err, pricing.ErrInvalidParameter) {
				t.Errorf("err = %v, want ErrInvalidParameter", err)
			}
		})
	}
}

func TestAllocate_NonNegativeLandedCost(t *testing.T) {
	// Zero-rate, zero-pool shipments still land at the FOB value; nothing
	// ever goes negative.
	items := []pricing.ShipmentItem{shipItem("A", 3, "0.01")}
	result, err := pricing.Allocate("SHP-1", items, catalogOf(catItem("A", "0", "0")), baseParams())
	if err != nil {
		t.Fatalf("Allocate failed: %v", err)
	}
	if result.Items[0].LandedTotalUSD.IsNegative() || result.Items[0].UnitLandedLocal.IsNegative() {
		t.Errorf("negative landed cost: %+v", result.Items[0])
	}
}
