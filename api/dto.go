/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the engine's decimal-based model from the JSON boundary: money travels
  as float64 in JSON and is converted to decimal.Decimal on entry, never
  inside the engine.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Costing:
    CostParametersRequest, AllocationDTO, BreakdownDTO, TotalsDTO

  Lots:
    PreviewRequest, DraftDTO, ApplyRequest, LotDTO, EntryDTO

  Rules:
    MarkupRuleDTO, CreateMarkupRuleRequest,
    DiscountRuleDTO, CreateDiscountRuleRequest, QuoteRequest

  Simulation:
    SimulationRequest, ImpactDTO, ItemImpactDTO

VALIDATION:
  Structural validation (presence, parsability) happens in handlers;
  semantic validation (rates in range, basis known) happens in the
  engine, which returns typed errors the handlers map to statuses.

SEE ALSO:
  - handlers.go: Uses these types
  - pricing/types.go: The decimal-based domain model
*/
package api

import (
	"github.com/shopspring/decimal"

	"github.com/warp/pricing-engine/pricing"
)

// =============================================================================
// COSTING
// =============================================================================

// CostParametersRequest is the JSON form of pricing.CostParameters.
type CostParametersRequest struct {
	ExchangeRate float64 `json:"exchange_rate"`

	VATRate                  float64 `json:"vat_rate"`
	AdditionalVATRate        float64 `json:"additional_vat_rate"`
	IncomeTaxAdvanceRate     float64 `json:"income_tax_advance_rate"`
	GrossReceiptsAdvanceRate float64 `json:"gross_receipts_advance_rate"`

	StatisticalTaxRate float64            `json:"statistical_tax_rate"`
	DutyRate           float64            `json:"duty_rate"`
	CategoryDutyRates  map[string]float64 `json:"category_duty_rates,omitempty"`

	FreightTotal    float64 `json:"freight_total"`
	InsuranceTotal  float64 `json:"insurance_total"`
	CustomsAgentFee float64 `json:"customs_agent_fee"`
	PortCharges     float64 `json:"port_charges"`
	InlandTransport float64 `json:"inland_transport"`
	OtherCharges    float64 `json:"other_charges"`

	Basis             string   `json:"basis"`
	HybridValueWeight *float64 `json:"hybrid_value_weight,omitempty"`

	MinMargin    *float64 `json:"min_margin,omitempty"`
	TargetMargin *float64 `json:"target_margin,omitempty"`
}

// ToParams converts to the engine type, filling margin thresholds from
// server defaults when omitted.
func (r CostParametersRequest) ToParams(defaultMin, defaultTarget decimal.Decimal) pricing.CostParameters {
	p := pricing.CostParameters{
		ExchangeRate:             decimal.NewFromFloat(r.ExchangeRate),
		VATRate:                  decimal.NewFromFloat(r.VATRate),
		AdditionalVATRate:        decimal.NewFromFloat(r.AdditionalVATRate),
		IncomeTaxAdvanceRate:     decimal.NewFromFloat(r.IncomeTaxAdvanceRate),
		GrossReceiptsAdvanceRate: decimal.NewFromFloat(r.GrossReceiptsAdvanceRate),
		StatisticalTaxRate:       decimal.NewFromFloat(r.StatisticalTaxRate),
		DutyRate:                 decimal.NewFromFloat(r.DutyRate),
		FreightTotal:             decimal.NewFromFloat(r.FreightTotal),
		InsuranceTotal:           decimal.NewFromFloat(r.InsuranceTotal),
		CustomsAgentFee:          decimal.NewFromFloat(r.CustomsAgentFee),
		PortCharges:              decimal.NewFromFloat(r.PortCharges),
		InlandTransport:          decimal.NewFromFloat(r.InlandTransport),
		OtherCharges:             decimal.NewFromFloat(r.OtherCharges),
		Basis:                    pricing.AllocationBasis(r.Basis),
		MinMargin:                defaultMin,
		TargetMargin:             defaultTarget,
	}
	if len(r.CategoryDutyRates) > 0 {
		p.CategoryDutyRates = make(map[string]decimal.Decimal, len(r.CategoryDutyRates))
		for k, v := range r.CategoryDutyRates {
			p.CategoryDutyRates[k] = decimal.NewFromFloat(v)
		}
	}
	if r.HybridValueWeight != nil {
		w := decimal.NewFromFloat(*r.HybridValueWeight)
		p.HybridValueWeight = &w
	}
	if r.MinMargin != nil {
		p.MinMargin = decimal.NewFromFloat(*r.MinMargin)
	}
	if r.TargetMargin != nil {
		p.TargetMargin = decimal.NewFromFloat(*r.TargetMargin)
	}
	return p
}

// BreakdownDTO is one item's landed-cost row.
type BreakdownDTO struct {
	ItemID   string `json:"item_id"`
	Quantity int64  `json:"quantity"`

	FOBTotal       float64 `json:"fob_total"`
	Freight        float64 `json:"freight"`
	Insurance      float64 `json:"insurance"`
	Duty           float64 `json:"duty"`
	StatisticalTax float64 `json:"statistical_tax"`
	Logistics      float64 `json:"logistics"`

	VAT                  float64 `json:"vat"`
	AdditionalVAT        float64 `json:"additional_vat"`
	IncomeTaxAdvance     float64 `json:"income_tax_advance"`
	GrossReceiptsAdvance float64 `json:"gross_receipts_advance"`

	CIF             float64 `json:"cif"`
	LandedTotalUSD  float64 `json:"landed_total_usd"`
	UnitLandedUSD   float64 `json:"unit_landed_usd"`
	UnitLandedLocal float64 `json:"unit_landed_local"`

	CurrentMargin float64 `json:"current_margin"`
	Alert         string  `json:"alert"`
}

// TotalsDTO is the shipment-level rollup.
type TotalsDTO struct {
	FOB              float64 `json:"fob"`
	Freight          float64 `json:"freight"`
	Insurance        float64 `json:"insurance"`
	CIF              float64 `json:"cif"`
	Duty             float64 `json:"duty"`
	StatisticalTax   float64 `json:"statistical_tax"`
	Logistics        float64 `json:"logistics"`
	NonRecoverable   float64 `json:"non_recoverable"`
	Recoverable      float64 `json:"recoverable"`
	CashDisbursement float64 `json:"cash_disbursement"`
}

// AllocationDTO is the full response of a landed-cost run.
type AllocationDTO struct {
	ShipmentID string         `json:"shipment_id"`
	Basis      string         `json:"basis"`
	Items      []BreakdownDTO `json:"items"`
	Totals     TotalsDTO      `json:"totals"`
}

// ConfirmResponse reports how many catalog costs a confirmation updated.
type ConfirmResponse struct {
	ShipmentID   string `json:"shipment_id"`
	ItemsUpdated int    `json:"items_updated"`
}

// =============================================================================
// LOTS
// =============================================================================

// FilterRequest is the JSON form of pricing.CatalogFilter.
type FilterRequest struct {
	Category *string  `json:"category,omitempty"`
	OEM      *bool    `json:"oem,omitempty"`
	MinCost  *float64 `json:"min_cost,omitempty"`
	MaxCost  *float64 `json:"max_cost,omitempty"`
	IDs      []string `json:"ids,omitempty"`
}

func (f FilterRequest) ToFilter() pricing.CatalogFilter {
	out := pricing.CatalogFilter{Category: f.Category, OEM: f.OEM}
	if f.MinCost != nil {
		d := decimal.NewFromFloat(*f.MinCost)
		out.MinCost = &d
	}
	if f.MaxCost != nil {
		d := decimal.NewFromFloat(*f.MaxCost)
		out.MaxCost = &d
	}
	for _, id := range f.IDs {
		out.IDs = append(out.IDs, pricing.ItemID(id))
	}
	return out
}

// StrategyRequest selects how preview prices are computed.
// Type is "RULES" (markup rules from the store) or "FLAT" (percent).
type StrategyRequest struct {
	Type    string  `json:"type"`
	Percent float64 `json:"percent,omitempty"`
}

// PreviewRequest starts a bulk price-change draft.
type PreviewRequest struct {
	Filter   FilterRequest   `json:"filter"`
	Strategy StrategyRequest `json:"strategy"`
}

// EntryDTO is one item's before/after pair.
type EntryDTO struct {
	ItemID      string  `json:"item_id"`
	PriceBefore float64 `json:"price_before"`
	PriceAfter  float64 `json:"price_after"`
	Unresolved  bool    `json:"unresolved,omitempty"`
}

// DraftDTO is the preview response; DraftID feeds the apply call.
type DraftDTO struct {
	DraftID         string     `json:"draft_id"`
	Strategy        string     `json:"strategy"`
	Entries         []EntryDTO `json:"entries"`
	Rise            int        `json:"rise"`
	Fall            int        `json:"fall"`
	Same            int        `json:"same"`
	Unresolved      int        `json:"unresolved"`
	AvgMarginBefore float64    `json:"avg_margin_before"`
	AvgMarginAfter  float64    `json:"avg_margin_after"`
}

// ApplyRequest commits a previously previewed draft.
type ApplyRequest struct {
	DraftID     string `json:"draft_id"`
	Description string `json:"description"`
}

// LotDTO is a persisted price-change lot.
type LotDTO struct {
	ID              string     `json:"id"`
	Description     string     `json:"description"`
	Applied         bool       `json:"applied"`
	Reverted        bool       `json:"reverted"`
	ItemCount       int        `json:"item_count"`
	AvgMarginBefore float64    `json:"avg_margin_before"`
	AvgMarginAfter  float64    `json:"avg_margin_after"`
	CreatedAt       string     `json:"created_at"`
	RevertedAt      string     `json:"reverted_at,omitempty"`
	Entries         []EntryDTO `json:"entries,omitempty"`
}

// =============================================================================
// RULES
// =============================================================================

// MarkupRuleDTO mirrors pricing.MarkupRule for responses.
type MarkupRuleDTO struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Multiplier float64  `json:"multiplier"`
	CostFrom   *float64 `json:"cost_from,omitempty"`
	CostTo     *float64 `json:"cost_to,omitempty"`
	Category   *string  `json:"category,omitempty"`
	OEM        *bool    `json:"oem,omitempty"`
	Rounding   string   `json:"rounding"`
	Priority   int      `json:"priority"`
	Active     bool     `json:"active"`
}

// CreateMarkupRuleRequest creates a rule; ID is assigned server-side
// when omitted.
type CreateMarkupRuleRequest struct {
	ID         string   `json:"id,omitempty"`
	Name       string   `json:"name"`
	Multiplier float64  `json:"multiplier"`
	CostFrom   *float64 `json:"cost_from,omitempty"`
	CostTo     *float64 `json:"cost_to,omitempty"`
	Category   *string  `json:"category,omitempty"`
	OEM        *bool    `json:"oem,omitempty"`
	Rounding   string   `json:"rounding,omitempty"`
	Priority   int      `json:"priority"`
}

// DiscountRuleDTO mirrors pricing.DiscountRule for responses.
type DiscountRuleDTO struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	PriceList *string `json:"price_list,omitempty"`
	Condition string  `json:"condition"`
	Threshold float64 `json:"threshold,omitempty"`
	Match     string  `json:"match,omitempty"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Stackable bool    `json:"stackable"`
	Priority  int     `json:"priority"`
	Active    bool    `json:"active"`
}

// CreateDiscountRuleRequest creates a discount rule.
type CreateDiscountRuleRequest struct {
	ID        string  `json:"id,omitempty"`
	Name      string  `json:"name"`
	PriceList *string `json:"price_list,omitempty"`
	Condition string  `json:"condition"`
	Threshold float64 `json:"threshold,omitempty"`
	Match     string  `json:"match,omitempty"`
	Type      string  `json:"type"`
	Value     float64 `json:"value"`
	Stackable bool    `json:"stackable"`
	Priority  int     `json:"priority"`
}

// QuoteRequest resolves a customer-facing price for one item: markup
// rules first, then discount rules against the customer context.
type QuoteRequest struct {
	ItemID           string  `json:"item_id"`
	Quantity         int64   `json:"quantity"`
	AccountAgeMonths int64   `json:"account_age_months"`
	Plan             string  `json:"plan,omitempty"`
	CustomerGroup    string  `json:"customer_group,omitempty"`
	PriceList        string  `json:"price_list,omitempty"`
}

// AppliedDiscountDTO is one discount step in a quote.
type AppliedDiscountDTO struct {
	RuleID      string  `json:"rule_id"`
	PriceBefore float64 `json:"price_before"`
	PriceAfter  float64 `json:"price_after"`
}

// QuoteResponse is the resolved price chain for one item.
type QuoteResponse struct {
	ItemID     string               `json:"item_id"`
	ListPrice  float64              `json:"list_price"`
	FinalPrice float64              `json:"final_price"`
	MarkupRule string               `json:"markup_rule"`
	Discounts  []AppliedDiscountDTO `json:"discounts"`
}

// =============================================================================
// SIMULATION
// =============================================================================

// SimulationRequest runs a what-if scenario. Baseline parameters and the
// reference shipment supply the cost composition for FREIGHT and
// DUTY_RATE scenarios; EXCHANGE_RATE and MARKUP ignore them.
type SimulationRequest struct {
	Type              string                 `json:"type"`
	Magnitude         float64                `json:"magnitude"`
	TopN              int                    `json:"top_n,omitempty"`
	ReferenceShipment string                 `json:"reference_shipment,omitempty"`
	Baseline          *CostParametersRequest `json:"baseline,omitempty"`
}

// ItemImpactDTO is one item's margin movement under a scenario.
type ItemImpactDTO struct {
	ItemID       string  `json:"item_id"`
	CostBefore   float64 `json:"cost_before"`
	CostAfter    float64 `json:"cost_after"`
	MarginBefore float64 `json:"margin_before"`
	MarginAfter  float64 `json:"margin_after"`
	Degradation  float64 `json:"degradation"`
}

// ImpactDTO is the aggregate simulation response.
type ImpactDTO struct {
	Type      string  `json:"type"`
	Magnitude float64 `json:"magnitude"`

	ItemCount       int     `json:"item_count"`
	AvgCostBefore   float64 `json:"avg_cost_before"`
	AvgCostAfter    float64 `json:"avg_cost_after"`
	AvgMarginBefore float64 `json:"avg_margin_before"`
	AvgMarginAfter  float64 `json:"avg_margin_after"`

	BelowMinimumBefore int `json:"below_minimum_before"`
	BelowMinimumAfter  int `json:"below_minimum_after"`

	RequiredIncrease float64 `json:"required_increase"`

	TopDegraded []ItemImpactDTO `json:"top_degraded"`
}

// =============================================================================
// CATALOG + SCENARIOS + ERRORS
// =============================================================================

// CatalogItemDTO is a catalog row in responses.
type CatalogItemDTO struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Cost        float64  `json:"cost"`
	RetailPrice float64  `json:"retail_price"`
	Category    string   `json:"category"`
	OEM         bool     `json:"oem"`
	Weight      *float64 `json:"weight,omitempty"`
	Volume      *float64 `json:"volume,omitempty"`
	Active      bool     `json:"active"`
	Margin      float64  `json:"margin"`
}

// ScenarioDTO describes a loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// LoadScenarioRequest selects a demo scenario.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERSIONS
// =============================================================================

func f64(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func f64Ptr(d *decimal.Decimal) *float64 {
	if d == nil {
		return nil
	}
	f := f64(*d)
	return &f
}

func toBreakdownDTO(b pricing.LandedCostBreakdown) BreakdownDTO {
	return BreakdownDTO{
		ItemID:               string(b.ItemID),
		Quantity:             b.Quantity,
		FOBTotal:             f64(b.FOBTotal),
		Freight:              f64(b.FreightShare),
		Insurance:            f64(b.InsuranceShare),
		Duty:                 f64(b.DutyShare),
		StatisticalTax:       f64(b.StatisticalTaxShare),
		Logistics:            f64(b.LogisticsShare),
		VAT:                  f64(b.VATShare),
		AdditionalVAT:        f64(b.AdditionalVATShare),
		IncomeTaxAdvance:     f64(b.IncomeTaxAdvanceShare),
		GrossReceiptsAdvance: f64(b.GrossReceiptsAdvanceShare),
		CIF:                  f64(b.CIF),
		LandedTotalUSD:       f64(b.LandedTotalUSD),
		UnitLandedUSD:        f64(b.UnitLandedUSD),
		UnitLandedLocal:      f64(b.UnitLandedLocal),
		CurrentMargin:        f64(b.CurrentMargin),
		Alert:                string(b.Alert),
	}
}

func toAllocationDTO(result *pricing.AllocationResult) AllocationDTO {
	items := make([]BreakdownDTO, len(result.Items))
	for i, b := range result.Items {
		items[i] = toBreakdownDTO(b)
	}
	t := result.Totals
	return AllocationDTO{
		ShipmentID: string(result.ShipmentID),
		Basis:      string(result.Basis),
		Items:      items,
		Totals: TotalsDTO{
			FOB:              f64(t.FOB),
			Freight:          f64(t.Freight),
			Insurance:        f64(t.Insurance),
			CIF:              f64(t.CIF),
			Duty:             f64(t.Duty),
			StatisticalTax:   f64(t.StatisticalTax),
			Logistics:        f64(t.Logistics),
			NonRecoverable:   f64(t.NonRecoverable),
			Recoverable:      f64(t.Recoverable),
			CashDisbursement: f64(t.CashDisbursement),
		},
	}
}

func toEntryDTOs(entries []pricing.PriceChangeEntry) []EntryDTO {
	out := make([]EntryDTO, len(entries))
	for i, e := range entries {
		out[i] = EntryDTO{
			ItemID:      string(e.ItemID),
			PriceBefore: f64(e.PriceBefore),
			PriceAfter:  f64(e.PriceAfter),
			Unresolved:  e.Unresolved,
		}
	}
	return out
}

func toLotDTO(lot *pricing.PriceChangeLot, includeEntries bool) LotDTO {
	dto := LotDTO{
		ID:              string(lot.ID),
		Description:     lot.Description,
		Applied:         lot.Applied,
		Reverted:        lot.Reverted,
		ItemCount:       lot.ItemCount,
		AvgMarginBefore: f64(lot.AvgMarginBefore),
		AvgMarginAfter:  f64(lot.AvgMarginAfter),
		CreatedAt:       lot.CreatedAt.Format(timeFormat),
	}
	if lot.RevertedAt != nil {
		dto.RevertedAt = lot.RevertedAt.Format(timeFormat)
	}
	if includeEntries {
		dto.Entries = toEntryDTOs(lot.Entries)
	}
	return dto
}

func toMarkupRuleDTO(r pricing.MarkupRule) MarkupRuleDTO {
	return MarkupRuleDTO{
		ID:         string(r.ID),
		Name:       r.Name,
		Multiplier: f64(r.Multiplier),
		CostFrom:   f64Ptr(r.CostFrom),
		CostTo:     f64Ptr(r.CostTo),
		Category:   r.Category,
		OEM:        r.OEM,
		Rounding:   string(r.Rounding),
		Priority:   r.Priority,
		Active:     r.Active,
	}
}

func toDiscountRuleDTO(r pricing.DiscountRule) DiscountRuleDTO {
	return DiscountRuleDTO{
		ID:        string(r.ID),
		Name:      r.Name,
		PriceList: r.PriceList,
		Condition: string(r.Condition),
		Threshold: f64(r.Threshold),
		Match:     r.Match,
		Type:      string(r.Type),
		Value:     f64(r.Value),
		Stackable: r.Stackable,
		Priority:  r.Priority,
		Active:    r.Active,
	}
}

func toCatalogItemDTO(ci pricing.CatalogItem) CatalogItemDTO {
	return CatalogItemDTO{
		ID:          string(ci.ID),
		Name:        ci.Name,
		Cost:        f64(ci.Cost),
		RetailPrice: f64(ci.RetailPrice),
		Category:    ci.Category,
		OEM:         ci.OEM,
		Weight:      f64Ptr(ci.Weight),
		Volume:      f64Ptr(ci.Volume),
		Active:      ci.Active,
		Margin:      f64(ci.Margin()),
	}
}

func toImpactDTO(impact *pricing.Impact) ImpactDTO {
	top := make([]ItemImpactDTO, len(impact.TopDegraded))
	for i, it := range impact.TopDegraded {
		top[i] = ItemImpactDTO{
			ItemID:       string(it.ItemID),
			CostBefore:   f64(it.CostBefore),
			CostAfter:    f64(it.CostAfter),
			MarginBefore: f64(it.MarginBefore),
			MarginAfter:  f64(it.MarginAfter),
			Degradation:  f64(it.Degradation),
		}
	}
	return ImpactDTO{
		Type:               string(impact.Type),
		Magnitude:          f64(impact.Magnitude),
		ItemCount:          impact.ItemCount,
		AvgCostBefore:      f64(impact.AvgCostBefore),
		AvgCostAfter:       f64(impact.AvgCostAfter),
		AvgMarginBefore:    f64(impact.AvgMarginBefore),
		AvgMarginAfter:     f64(impact.AvgMarginAfter),
		BelowMinimumBefore: impact.BelowMinimumBefore,
		BelowMinimumAfter:  impact.BelowMinimumAfter,
		RequiredIncrease:   f64(impact.RequiredIncrease),
		TopDegraded:        top,
	}
}
