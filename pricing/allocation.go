/*
allocation.go - Landed-cost allocation across shipment line items

PURPOSE:
  Turns a shipment's commercial terms into a per-item landed-cost
  breakdown. Shared charges (freight, insurance, customs agent, port,
  inland transport, other) are prorated across items by the selected
  allocation basis; duty, statistical tax and the recoverable tax
  advances are rate-derived per item.

CHARGE CLASSIFICATION:
  Non-recoverable (capitalized into inventory cost):
    FOB + freight + insurance + duty + statistical tax + logistics pools
  Recoverable (tax credits, excluded from landed cost, still cash out):
    VAT + additional VAT + income-tax advance + gross-receipts advance

TAX BASES:
  duty, statistical tax      -> item CIF
  recoverable advances       -> item CIF + duty + statistical tax

ROUNDING-SAFE PRORATION:
  Each item's raw fractional share of a pool is truncated to currency
  precision; the residual (pool total minus the truncated shares) lands
  on the last item in ascending item-id order. Every pool's shares
  therefore sum to the pool total exactly.

SEE ALSO:
  - types.go: CostParameters, LandedCostBreakdown inputs/outputs
  - confirm.go: Persisting a confirmed allocation onto the catalog
  - simulate.go: Re-running allocation under perturbed parameters
*/
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RESULT TYPES
// =============================================================================

// LandedCostBreakdown is the allocation result for one shipment item.
// All money is USD except UnitLandedLocal and the margin, which compare
// against the catalog's local-currency retail price.
type LandedCostBreakdown struct {
	ItemID   ItemID
	Quantity int64

	FOBTotal            decimal.Decimal
	FreightShare        decimal.Decimal
	InsuranceShare      decimal.Decimal
	DutyShare           decimal.Decimal
	StatisticalTaxShare decimal.Decimal
	LogisticsShare      decimal.Decimal // customs agent + port + inland + other

	VATShare                  decimal.Decimal
	AdditionalVATShare        decimal.Decimal
	IncomeTaxAdvanceShare     decimal.Decimal
	GrossReceiptsAdvanceShare decimal.Decimal

	CIF             decimal.Decimal
	LandedTotalUSD  decimal.Decimal
	UnitLandedUSD   decimal.Decimal
	UnitLandedLocal decimal.Decimal

	// Margin of the item's current retail price over the new unit landed
	// cost. Measures what confirmation would do to profitability before
	// any repricing.
	CurrentMargin decimal.Decimal
	Alert         MarginAlert
}

// ShipmentTotals aggregates a whole shipment's allocation.
type ShipmentTotals struct {
	FOB            decimal.Decimal
	Freight        decimal.Decimal
	Insurance      decimal.Decimal
	CIF            decimal.Decimal
	Duty           decimal.Decimal
	StatisticalTax decimal.Decimal
	Logistics      decimal.Decimal

	// NonRecoverable is the shipment's total landed cost, the inventory
	// cost basis.
	NonRecoverable decimal.Decimal
	// Recoverable is the total of tax advances credited back later.
	Recoverable decimal.Decimal
	// CashDisbursement is everything actually paid at customs.
	CashDisbursement decimal.Decimal
}

// AllocationResult is the full output of one landed-cost run.
type AllocationResult struct {
	ShipmentID ShipmentID
	Basis      AllocationBasis
	Items      []LandedCostBreakdown
	Totals     ShipmentTotals
}

// =============================================================================
// ALLOCATION
// =============================================================================

// Allocate computes the landed-cost breakdown for a shipment. It is a
// pure function: no I/O, safe to run concurrently and repeatedly.
//
// catalog must contain every referenced item; it supplies the category
// (for duty rates) and the current retail price (for the margin columns).
func Allocate(shipmentID ShipmentID, items []ShipmentItem, catalog map[ItemID]CatalogItem, params CostParameters) (*AllocationResult, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &InvalidParameterError{Field: "items", Reason: "shipment has no line items"}
	}

	// Stable deterministic order; the proration residual lands on the
	// last item of this order.
	sorted := make([]ShipmentItem, len(items))
	copy(sorted, items)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].ItemID < sorted[j].ItemID })

	for _, si := range sorted {
		if si.Quantity <= 0 {
			return nil, &InvalidParameterError{Field: "quantity", Reason: "must be > 0 for item " + string(si.ItemID)}
		}
		if si.FOBUnitPrice.IsNegative() {
			return nil, &InvalidParameterError{Field: "fob_unit_price", Reason: "must be >= 0 for item " + string(si.ItemID)}
		}
		if _, ok := catalog[si.ItemID]; !ok {
			return nil, &InvalidParameterError{Field: "items", Reason: "item " + string(si.ItemID) + " not in catalog"}
		}
	}

	weights, err := basisWeights(sorted, params)
	if err != nil {
		return nil, err
	}

	freight := prorate(params.FreightTotal, weights)
	insurance := prorate(params.InsuranceTotal, weights)
	agent := prorate(params.CustomsAgentFee, weights)
	port := prorate(params.PortCharges, weights)
	inland := prorate(params.InlandTransport, weights)
	other := prorate(params.OtherCharges, weights)

	result := &AllocationResult{
		ShipmentID: shipmentID,
		Basis:      params.Basis,
		Items:      make([]LandedCostBreakdown, 0, len(sorted)),
	}
	t := &result.Totals

	for i, si := range sorted {
		ci := catalog[si.ItemID]
		fob := truncateCurrency(si.TotalFOB())
		cif := fob.Add(freight[i]).Add(insurance[i])

		duty := truncateCurrency(cif.Mul(params.DutyRateFor(ci.Category)))
		stat := truncateCurrency(cif.Mul(params.StatisticalTaxRate))
		logistics := agent[i].Add(port[i]).Add(inland[i]).Add(other[i])

		taxBase := cif.Add(duty).Add(stat)
		vat := truncateCurrency(taxBase.Mul(params.VATRate))
		addVAT := truncateCurrency(taxBase.Mul(params.AdditionalVATRate))
		incomeAdv := truncateCurrency(taxBase.Mul(params.IncomeTaxAdvanceRate))
		grossAdv := truncateCurrency(taxBase.Mul(params.GrossReceiptsAdvanceRate))

		landed := fob.Add(freight[i]).Add(insurance[i]).Add(duty).Add(stat).Add(logistics)
		qty := decimal.NewFromInt(si.Quantity)
		unitUSD := landed.DivRound(qty, 4)
		unitLocal := landed.Mul(params.ExchangeRate).DivRound(qty, CurrencyDecimals)

		margin := MarginOf(unitLocal, ci.RetailPrice)

		result.Items = append(result.Items, LandedCostBreakdown{
			ItemID:                    si.ItemID,
			Quantity:                  si.Quantity,
			FOBTotal:                  fob,
			FreightShare:              freight[i],
			InsuranceShare:            insurance[i],
			DutyShare:                 duty,
			StatisticalTaxShare:       stat,
			LogisticsShare:            logistics,
			VATShare:                  vat,
			AdditionalVATShare:        addVAT,
			IncomeTaxAdvanceShare:     incomeAdv,
			GrossReceiptsAdvanceShare: grossAdv,
			CIF:                       cif,
			LandedTotalUSD:            landed,
			UnitLandedUSD:             unitUSD,
			UnitLandedLocal:           unitLocal,
			CurrentMargin:             margin,
			Alert:                     ClassifyMargin(margin, params.MinMargin, params.TargetMargin),
		})

		t.FOB = t.FOB.Add(fob)
		t.Freight = t.Freight.Add(freight[i])
		t.Insurance = t.Insurance.Add(insurance[i])
		t.CIF = t.CIF.Add(cif)
		t.Duty = t.Duty.Add(duty)
		t.StatisticalTax = t.StatisticalTax.Add(stat)
		t.Logistics = t.Logistics.Add(logistics)
		t.NonRecoverable = t.NonRecoverable.Add(landed)
		t.Recoverable = t.Recoverable.Add(vat).Add(addVAT).Add(incomeAdv).Add(grossAdv)
	}
	t.CashDisbursement = t.NonRecoverable.Add(t.Recoverable)

	return result, nil
}

// =============================================================================
// BASIS WEIGHTS
// =============================================================================

// basisWeights returns each item's fractional share under the chosen
// basis, in the order of the (already sorted) item slice.
func basisWeights(items []ShipmentItem, params CostParameters) ([]decimal.Decimal, error) {
	switch params.Basis {
	case BasisValue:
		return valueShares(items)
	case BasisWeight:
		return dimensionShares(items, params.Basis, "weight", func(si ShipmentItem) *decimal.Decimal { return si.Weight })
	case BasisVolume:
		return dimensionShares(items, params.Basis, "volume", func(si ShipmentItem) *decimal.Decimal { return si.Volume })
	case BasisHybrid:
		value, err := valueShares(items)
		if err != nil {
			return nil, err
		}
		weight, err := dimensionShares(items, params.Basis, "weight", func(si ShipmentItem) *decimal.Decimal { return si.Weight })
		if err != nil {
			return nil, err
		}
		vw := params.hybridValueWeight()
		ww := decimal.NewFromInt(1).Sub(vw)
		mixed := make([]decimal.Decimal, len(items))
		for i := range items {
			mixed[i] = value[i].Mul(vw).Add(weight[i].Mul(ww))
		}
		return mixed, nil
	}
	return nil, &InvalidParameterError{Field: "basis", Reason: "unknown allocation basis " + string(params.Basis)}
}

func valueShares(items []ShipmentItem) ([]decimal.Decimal, error) {
	total := decimal.Zero
	for _, si := range items {
		total = total.Add(si.TotalFOB())
	}
	if !total.IsPositive() {
		return nil, &InvalidParameterError{Field: "fob_unit_price", Reason: "shipment total FOB must be > 0"}
	}
	shares := make([]decimal.Decimal, len(items))
	for i, si := range items {
		shares[i] = si.TotalFOB().Div(total)
	}
	return shares, nil
}

func dimensionShares(items []ShipmentItem, basis AllocationBasis, name string, dim func(ShipmentItem) *decimal.Decimal) ([]decimal.Decimal, error) {
	total := decimal.Zero
	values := make([]decimal.Decimal, len(items))
	for i, si := range items {
		d := dim(si)
		if d == nil {
			return nil, &MissingDimensionError{ItemID: si.ItemID, Basis: basis, Dimension: name}
		}
		// Dimension is per unit; the item's pull on the pool scales with quantity.
		values[i] = d.Mul(decimal.NewFromInt(si.Quantity))
		total = total.Add(values[i])
	}
	if !total.IsPositive() {
		return nil, &InvalidParameterError{Field: name, Reason: "shipment total " + name + " must be > 0"}
	}
	shares := make([]decimal.Decimal, len(items))
	for i := range items {
		shares[i] = values[i].Div(total)
	}
	return shares, nil
}

// =============================================================================
// PRORATION
// =============================================================================

// prorate splits a pool by fractional weights. Each share is truncated to
// currency precision and the residual goes to the last entry, so the
// returned shares always sum to total exactly.
func prorate(total decimal.Decimal, weights []decimal.Decimal) []decimal.Decimal {
	shares := make([]decimal.Decimal, len(weights))
	if total.IsZero() {
		for i := range shares {
			shares[i] = decimal.Zero
		}
		return shares
	}
	allocated := decimal.Zero
	for i, w := range weights {
		shares[i] = truncateCurrency(total.Mul(w))
		allocated = allocated.Add(shares[i])
	}
	last := len(shares) - 1
	shares[last] = shares[last].Add(total.Sub(allocated))
	return shares
}
