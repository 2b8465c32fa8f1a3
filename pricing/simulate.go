/*
simulate.go - Read-only what-if scenarios over cost inputs

PURPOSE:
  Quantifies margin erosion from a cost-input change BEFORE anyone
  reprices: hypothetical costs are re-derived with the allocation
  formulas, but margins are measured against each item's current,
  unchanged retail price. Nothing is persisted and no locks are taken.

SCENARIOS:
  EXCHANGE_RATE  magnitude = fractional delta on the exchange rate
  FREIGHT        magnitude = fractional delta on the freight pool
  DUTY_RATE      magnitude = new absolute duty rate (replaces all rates)
  MARKUP         magnitude = added global cost markup (supplier increase)

HOW COSTS MOVE:
  Exchange-rate and markup scenarios scale every item's local cost by
  (1 + magnitude) directly. Freight and duty scenarios rerun the
  reference shipment's allocation under baseline and perturbed
  parameters; each shipped item's cost moves by its own landed-cost
  ratio, items outside the shipment by the shipment-average ratio.

SEE ALSO:
  - allocation.go: The formulas both runs share
  - api/handlers.go: HTTP binding
*/
package pricing

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SCENARIO TYPES
// =============================================================================

type ScenarioType string

const (
	ScenarioExchangeRate ScenarioType = "EXCHANGE_RATE"
	ScenarioFreight      ScenarioType = "FREIGHT"
	ScenarioDutyRate     ScenarioType = "DUTY_RATE"
	ScenarioMarkup       ScenarioType = "MARKUP"
)

// SimulationInput selects the perturbation.
type SimulationInput struct {
	Type      ScenarioType
	Magnitude decimal.Decimal
	TopN      int // degraded-items list length; 0 means 10
}

// ItemImpact is one catalog item's before/after under the scenario.
type ItemImpact struct {
	ItemID       ItemID
	CostBefore   decimal.Decimal
	CostAfter    decimal.Decimal
	MarginBefore decimal.Decimal
	MarginAfter  decimal.Decimal
	Degradation  decimal.Decimal // MarginBefore - MarginAfter
}

// Impact aggregates the scenario across the active catalog.
type Impact struct {
	Type      ScenarioType
	Magnitude decimal.Decimal

	ItemCount       int
	AvgCostBefore   decimal.Decimal
	AvgCostAfter    decimal.Decimal
	AvgMarginBefore decimal.Decimal
	AvgMarginAfter  decimal.Decimal

	BelowMinimumBefore int
	BelowMinimumAfter  int

	// RequiredIncrease is the fractional price increase over the current
	// average price needed to restore the prior average margin under the
	// new average cost.
	RequiredIncrease decimal.Decimal

	TopDegraded []ItemImpact
}

// =============================================================================
// SIMULATOR
// =============================================================================

// Simulator evaluates scenarios against a point-in-time catalog
// snapshot. Baseline parameters and the reference shipment provide the
// cost composition for freight and duty scenarios.
type Simulator struct {
	Store             Store
	Baseline          CostParameters
	ReferenceShipment ShipmentID
}

func NewSimulator(store Store, baseline CostParameters, reference ShipmentID) *Simulator {
	return &Simulator{Store: store, Baseline: baseline, ReferenceShipment: reference}
}

// Simulate runs one scenario. Read-only: either a complete impact or an
// error with no side effects.
func (s *Simulator) Simulate(ctx context.Context, input SimulationInput) (*Impact, error) {
	if err := s.validate(input); err != nil {
		return nil, err
	}
	topN := input.TopN
	if topN <= 0 {
		topN = 10
	}

	ratios, avgRatio, err := s.costRatios(ctx, input)
	if err != nil {
		return nil, err
	}

	items, err := s.Store.ListItems(ctx, CatalogFilter{OnlyActive: true})
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, &InvalidParameterError{Field: "catalog", Reason: "no active items to simulate"}
	}

	impact := &Impact{Type: input.Type, Magnitude: input.Magnitude, ItemCount: len(items)}
	impacts := make([]ItemImpact, 0, len(items))
	costBefore := decimal.Zero
	costAfter := decimal.Zero
	priceSum := decimal.Zero
	marginBefore := decimal.Zero
	marginAfter := decimal.Zero

	for _, item := range items {
		ratio := avgRatio
		if r, ok := ratios[item.ID]; ok {
			ratio = r
		}
		after := truncateCurrency(item.Cost.Mul(ratio))
		mBefore := MarginOf(item.Cost, item.RetailPrice)
		mAfter := MarginOf(after, item.RetailPrice)

		impacts = append(impacts, ItemImpact{
			ItemID:       item.ID,
			CostBefore:   item.Cost,
			CostAfter:    after,
			MarginBefore: mBefore,
			MarginAfter:  mAfter,
			Degradation:  mBefore.Sub(mAfter),
		})

		costBefore = costBefore.Add(item.Cost)
		costAfter = costAfter.Add(after)
		priceSum = priceSum.Add(item.RetailPrice)
		marginBefore = marginBefore.Add(mBefore)
		marginAfter = marginAfter.Add(mAfter)
		if mBefore.LessThan(s.Baseline.MinMargin) {
			impact.BelowMinimumBefore++
		}
		if mAfter.LessThan(s.Baseline.MinMargin) {
			impact.BelowMinimumAfter++
		}
	}

	n := decimal.NewFromInt(int64(len(items)))
	impact.AvgCostBefore = costBefore.DivRound(n, CurrencyDecimals)
	impact.AvgCostAfter = costAfter.DivRound(n, CurrencyDecimals)
	impact.AvgMarginBefore = marginBefore.DivRound(n, 4)
	impact.AvgMarginAfter = marginAfter.DivRound(n, 4)
	impact.RequiredIncrease = requiredIncrease(impact.AvgCostAfter, priceSum.DivRound(n, CurrencyDecimals), impact.AvgCostBefore)

	sort.Slice(impacts, func(i, j int) bool {
		if !impacts[i].Degradation.Equal(impacts[j].Degradation) {
			return impacts[i].Degradation.GreaterThan(impacts[j].Degradation)
		}
		return impacts[i].ItemID < impacts[j].ItemID
	})
	if len(impacts) > topN {
		impacts = impacts[:topN]
	}
	impact.TopDegraded = impacts

	return impact, nil
}

func (s *Simulator) validate(input SimulationInput) error {
	minusOne := decimal.NewFromInt(-1)
	one := decimal.NewFromInt(1)
	switch input.Type {
	case ScenarioExchangeRate, ScenarioFreight, ScenarioMarkup:
		if input.Magnitude.LessThanOrEqual(minusOne) {
			return &InvalidParameterError{Field: "magnitude", Reason: "delta must be > -1"}
		}
	case ScenarioDutyRate:
		if input.Magnitude.IsNegative() || input.Magnitude.GreaterThanOrEqual(one) {
			return &InvalidParameterError{Field: "magnitude", Reason: "duty rate must be in [0,1)"}
		}
	default:
		return &InvalidParameterError{Field: "type", Reason: "unknown scenario type " + string(input.Type)}
	}
	return s.Baseline.Validate()
}

// costRatios returns per-item cost multipliers plus the fallback
// multiplier for items outside the reference shipment.
func (s *Simulator) costRatios(ctx context.Context, input SimulationInput) (map[ItemID]decimal.Decimal, decimal.Decimal, error) {
	one := decimal.NewFromInt(1)
	switch input.Type {
	case ScenarioExchangeRate, ScenarioMarkup:
		// Imported cost scales directly with the rate / supplier markup.
		return nil, one.Add(input.Magnitude), nil
	}

	// Freight and duty scenarios need the shipment's cost composition.
	shipItems, err := s.Store.ListShipmentItems(ctx, s.ReferenceShipment)
	if err != nil {
		return nil, decimal.Zero, err
	}
	if len(shipItems) == 0 {
		return nil, decimal.Zero, &InvalidParameterError{Field: "reference_shipment", Reason: "scenario " + string(input.Type) + " needs a reference shipment"}
	}
	catalog := make(map[ItemID]CatalogItem, len(shipItems))
	for _, si := range shipItems {
		ci, err := s.Store.GetItem(ctx, si.ItemID)
		if err != nil {
			return nil, decimal.Zero, err
		}
		catalog[si.ItemID] = *ci
	}

	perturbed := s.Baseline
	switch input.Type {
	case ScenarioFreight:
		perturbed.FreightTotal = s.Baseline.FreightTotal.Mul(one.Add(input.Magnitude))
	case ScenarioDutyRate:
		perturbed.DutyRate = input.Magnitude
		perturbed.CategoryDutyRates = nil
	}

	base, err := Allocate(s.ReferenceShipment, shipItems, catalog, s.Baseline)
	if err != nil {
		return nil, decimal.Zero, err
	}
	next, err := Allocate(s.ReferenceShipment, shipItems, catalog, perturbed)
	if err != nil {
		return nil, decimal.Zero, err
	}

	ratios := make(map[ItemID]decimal.Decimal, len(base.Items))
	sum := decimal.Zero
	counted := 0
	for i, b := range base.Items {
		if b.UnitLandedLocal.IsZero() {
			continue
		}
		r := next.Items[i].UnitLandedLocal.Div(b.UnitLandedLocal)
		ratios[b.ItemID] = r
		sum = sum.Add(r)
		counted++
	}
	if counted == 0 {
		return nil, one, nil
	}
	return ratios, sum.DivRound(decimal.NewFromInt(int64(counted)), 6), nil
}

// requiredIncrease answers "how much must current prices rise to restore
// the prior average margin at the new average cost". The prior margin is
// the margin of the averages (aggregate price over aggregate cost), so
// the implied price stays consistent with the cost aggregates it is
// compared against.
func requiredIncrease(avgCostAfter, avgPrice, avgCostBefore decimal.Decimal) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if !avgPrice.IsPositive() || !avgCostBefore.IsPositive() {
		return decimal.Zero
	}
	priorMargin := avgPrice.Sub(avgCostBefore).Div(avgPrice)
	denom := one.Sub(priorMargin)
	if !denom.IsPositive() {
		return decimal.Zero
	}
	implied := avgCostAfter.Div(denom)
	return implied.Div(avgPrice).Sub(one).Round(4)
}
