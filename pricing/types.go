/*
Package pricing provides the parts pricing and landed-cost allocation engine.

PURPOSE:
  This package contains the domain types and algorithms that turn an
  international parts shipment's raw commercial terms (FOB prices, duties,
  taxes, freight, customs fees) into per-unit inventory cost, and inventory
  cost into retail price through a prioritized, stackable rule system.
  Price changes across the catalog are applied as atomic, reversible lots.

KEY CONCEPTS IN THIS FILE (types.go):
  - ShipmentItem:        A line item on an import shipment (FOB terms)
  - CatalogItem:         A sellable part with cost, price, and attributes
  - CostParameters:      All rates and flat charge pools for one calculation
  - LandedCostBreakdown: Per-item allocation result
  - AllocationBasis:     How shared charges are split across items
  - MarginAlert:         Traffic-light classification of an item's margin

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal for all money; no float64 in the engine
  2. Immutability: Shipment terms and lot entries are never modified
  3. Validation at the boundary: CostParameters rejects bad input before
     any computation starts
  4. Derived margins: Margin is always computed from cost and price,
     never stored independently

SEE ALSO:
  - allocation.go: Landed-cost proration
  - markup.go, discount.go: Pricing rule engine
  - lot.go: Bulk price-change lots
  - simulate.go: What-if scenarios
*/
package pricing

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS - Type-safe IDs prevent mixing item/rule/lot references
// =============================================================================

type ItemID string
type ShipmentID string
type RuleID string
type LotID string

// =============================================================================
// ALLOCATION BASIS - How shared shipment charges are split across items
// =============================================================================

type AllocationBasis string

const (
	BasisValue  AllocationBasis = "VALUE"  // by total FOB value
	BasisWeight AllocationBasis = "WEIGHT" // by total weight (kg)
	BasisVolume AllocationBasis = "VOLUME" // by total volume (m3)
	BasisHybrid AllocationBasis = "HYBRID" // weighted mix of value and weight shares
)

func (b AllocationBasis) Valid() bool {
	switch b {
	case BasisValue, BasisWeight, BasisVolume, BasisHybrid:
		return true
	}
	return false
}

// =============================================================================
// MARGIN ALERT - Traffic-light classification against configured thresholds
// =============================================================================

type MarginAlert string

const (
	AlertGreen  MarginAlert = "GREEN"  // margin >= target
	AlertYellow MarginAlert = "YELLOW" // margin in [minimum, target)
	AlertRed    MarginAlert = "RED"    // margin < minimum
)

// ClassifyMargin maps a margin to an alert level given the configured
// minimum and target thresholds.
func ClassifyMargin(margin, minMargin, targetMargin decimal.Decimal) MarginAlert {
	switch {
	case margin.GreaterThanOrEqual(targetMargin):
		return AlertGreen
	case margin.GreaterThanOrEqual(minMargin):
		return AlertYellow
	default:
		return AlertRed
	}
}

// =============================================================================
// SHIPMENT ITEM - One line on an import shipment, immutable once terms fix
// =============================================================================

// ShipmentItem is a line item on an import shipment. FOB unit price is in
// USD. Weight (kg) and volume (m3) are optional; they are required only
// when the allocation basis demands them.
type ShipmentItem struct {
	ShipmentID   ShipmentID
	ItemID       ItemID // catalog item reference
	Quantity     int64
	FOBUnitPrice decimal.Decimal
	Weight       *decimal.Decimal
	Volume       *decimal.Decimal
}

// TotalFOB returns quantity x FOB unit price.
func (si ShipmentItem) TotalFOB() decimal.Decimal {
	return si.FOBUnitPrice.Mul(decimal.NewFromInt(si.Quantity))
}

// =============================================================================
// CATALOG ITEM - A sellable part; cost and price are the engine's outputs
// =============================================================================

// CatalogItem is the engine's view of a part in the external catalog.
// Cost is in local currency and is mutated only by a confirmed landed-cost
// allocation or an explicit adjustment. RetailPrice is mutated only by the
// rule engine or a price-change lot.
type CatalogItem struct {
	ID          ItemID
	Name        string
	Cost        decimal.Decimal
	RetailPrice decimal.Decimal
	Category    string
	OEM         bool
	Weight      *decimal.Decimal
	Volume      *decimal.Decimal
	Active      bool
}

// Margin returns (price - cost) / price. An item with no retail price has
// margin -1 (nothing is recovered), which always classifies RED.
func (ci CatalogItem) Margin() decimal.Decimal {
	return MarginOf(ci.Cost, ci.RetailPrice)
}

// MarginOf computes margin over price for an arbitrary cost/price pair.
func MarginOf(cost, price decimal.Decimal) decimal.Decimal {
	if price.IsZero() {
		return decimal.NewFromInt(-1)
	}
	return price.Sub(cost).Div(price)
}

// =============================================================================
// COST PARAMETERS - One calculation run's rates and flat charge pools
// =============================================================================

// CostParameters carries everything the allocation formulas need for one
// run. It is a value object, supplied per calculation, never persisted.
//
// Rates are fractions (0.21 = 21%). Flat pools are USD totals shared by
// the whole shipment. DutyRate applies to every item unless overridden by
// category in CategoryDutyRates.
type CostParameters struct {
	ExchangeRate decimal.Decimal // local currency per USD, > 0

	// Recoverable tax advance rates, applied to CIF + duty + statistical tax.
	// These are credits against future tax liabilities, excluded from
	// landed cost but part of cash disbursed at customs.
	VATRate                  decimal.Decimal
	AdditionalVATRate        decimal.Decimal
	IncomeTaxAdvanceRate     decimal.Decimal
	GrossReceiptsAdvanceRate decimal.Decimal

	// Non-recoverable rates, applied to each item's CIF.
	StatisticalTaxRate decimal.Decimal
	DutyRate           decimal.Decimal
	CategoryDutyRates  map[string]decimal.Decimal

	// Shared USD pools prorated across items by the allocation basis.
	FreightTotal    decimal.Decimal
	InsuranceTotal  decimal.Decimal
	CustomsAgentFee decimal.Decimal
	PortCharges     decimal.Decimal
	InlandTransport decimal.Decimal
	OtherCharges    decimal.Decimal

	Basis AllocationBasis
	// HybridValueWeight is the weight of the VALUE share in HYBRID
	// allocation; the WEIGHT share gets the complement. Zero value means
	// the 0.5 default (equal mix).
	HybridValueWeight *decimal.Decimal

	// Margin alert thresholds, fractions of price.
	MinMargin    decimal.Decimal
	TargetMargin decimal.Decimal
}

// DutyRateFor returns the duty rate for a category, falling back to the
// global rate when no override exists.
func (cp CostParameters) DutyRateFor(category string) decimal.Decimal {
	if r, ok := cp.CategoryDutyRates[category]; ok {
		return r
	}
	return cp.DutyRate
}

func (cp CostParameters) hybridValueWeight() decimal.Decimal {
	if cp.HybridValueWeight == nil {
		return decimal.NewFromFloat(0.5)
	}
	return *cp.HybridValueWeight
}

// Validate rejects malformed parameters before any computation starts.
// All failures unwrap to ErrInvalidParameter.
func (cp CostParameters) Validate() error {
	if !cp.ExchangeRate.IsPositive() {
		return &InvalidParameterError{Field: "exchange_rate", Reason: "must be > 0"}
	}
	if !cp.Basis.Valid() {
		return &InvalidParameterError{Field: "basis", Reason: "unknown allocation basis " + string(cp.Basis)}
	}
	one := decimal.NewFromInt(1)
	rates := map[string]decimal.Decimal{
		"vat_rate":                    cp.VATRate,
		"additional_vat_rate":         cp.AdditionalVATRate,
		"income_tax_advance_rate":     cp.IncomeTaxAdvanceRate,
		"gross_receipts_advance_rate": cp.GrossReceiptsAdvanceRate,
		"statistical_tax_rate":        cp.StatisticalTaxRate,
		"duty_rate":                   cp.DutyRate,
	}
	for field, r := range rates {
		if r.IsNegative() || r.GreaterThanOrEqual(one) {
			return &InvalidParameterError{Field: field, Reason: "must be in [0,1)"}
		}
	}
	for cat, r := range cp.CategoryDutyRates {
		if r.IsNegative() || r.GreaterThanOrEqual(one) {
			return &InvalidParameterError{Field: "category_duty_rates." + cat, Reason: "must be in [0,1)"}
		}
	}
	pools := map[string]decimal.Decimal{
		"freight_total":     cp.FreightTotal,
		"insurance_total":   cp.InsuranceTotal,
		"customs_agent_fee": cp.CustomsAgentFee,
		"port_charges":      cp.PortCharges,
		"inland_transport":  cp.InlandTransport,
		"other_charges":     cp.OtherCharges,
	}
	for field, p := range pools {
		if p.IsNegative() {
			return &InvalidParameterError{Field: field, Reason: "must be >= 0"}
		}
	}
	if cp.HybridValueWeight != nil {
		w := *cp.HybridValueWeight
		if w.IsNegative() || w.GreaterThan(one) {
			return &InvalidParameterError{Field: "hybrid_value_weight", Reason: "must be in [0,1]"}
		}
	}
	if cp.MinMargin.GreaterThan(cp.TargetMargin) {
		return &InvalidParameterError{Field: "min_margin", Reason: "must be <= target_margin"}
	}
	return nil
}

// =============================================================================
// CURRENCY PRECISION
// =============================================================================

// CurrencyDecimals is the precision money is kept at. Shares are truncated
// to this precision during proration; the residual is assigned explicitly
// so pool totals are conserved exactly.
const CurrencyDecimals = 2

func truncateCurrency(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(CurrencyDecimals)
}
