/*
handlers.go - HTTP API handlers for the pricing engine

PURPOSE:
  Exposes the costing and pricing engine via REST API. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Costing:
    POST   /api/shipments/{id}/landed-cost          Compute breakdown
    POST   /api/shipments/{id}/landed-cost/confirm  Write costs + audit
    POST   /api/shipments/{id}/landed-cost/export   Excel workbook

  Lots:
    POST   /api/lots/preview        Draft a bulk price change
    POST   /api/lots/apply          Commit a previewed draft
    POST   /api/lots/{id}/rollback  Restore pre-apply prices
    GET    /api/lots                Lot history
    GET    /api/lots/{id}           One lot with entries
    GET    /api/lots/{id}/export    Audit workbook

  Rules:
    GET/POST /api/rules/markup      List / create markup rules
    POST     /api/rules/markup/{id}/activate
    GET/POST /api/rules/discount    List / create discount rules
    POST     /api/rules/discount/{id}/activate
    POST     /api/quotes            Resolve a customer price

  Simulation:
    POST   /api/simulations         Read-only what-if

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: transactional persistence (sqlite, postgres, or memory)
  - Lots/Costs: domain services built over the store
  - drafts: in-memory preview cache keyed by draft UUID

DRAFT LIFECYCLE:
  Preview stores the draft server-side and returns its id. Apply
  consumes the draft (one shot); an applied or superseded draft id is a
  404. Drafts never touch the database.

ERROR HANDLING:
  Domain errors map to HTTP status via the typed-error helpers:
  - 400: validation errors (ErrInvalidParameter, ErrMissingDimension, ...)
  - 404: unknown shipment/item/lot/draft
  - 409: lot state conflicts, concurrent catalog modification
  - 500: storage failures (logged, detail withheld)

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - server.go: Router setup and middleware
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/warp/pricing-engine/pricing"
	"github.com/warp/pricing-engine/report"
)

const timeFormat = time.RFC3339

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store pricing.TxStore
	Log   *zap.Logger

	// Default margin alert thresholds, used when a request omits them.
	MinMargin    decimal.Decimal
	TargetMargin decimal.Decimal

	lots  *pricing.LotManager
	costs *pricing.CostService

	mu     sync.Mutex
	drafts map[pricing.LotID]*pricing.LotDraft

	// Track currently loaded scenario
	currentScenario string
}

// NewHandler creates a new handler over the given store.
func NewHandler(store pricing.TxStore, log *zap.Logger, minMargin, targetMargin decimal.Decimal) *Handler {
	return &Handler{
		Store:        store,
		Log:          log,
		MinMargin:    minMargin,
		TargetMargin: targetMargin,
		lots:         pricing.NewLotManager(store),
		costs:        pricing.NewCostService(store),
		drafts:       make(map[pricing.LotID]*pricing.LotDraft),
	}
}

// =============================================================================
// COSTING HANDLERS
// =============================================================================

// ComputeLandedCost runs the allocation for a shipment. Read-only.
// POST /api/shipments/{id}/landed-cost
func (h *Handler) ComputeLandedCost(w http.ResponseWriter, r *http.Request) {
	result, ok := h.computeForRequest(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toAllocationDTO(result))
}

// ConfirmLandedCost recomputes the allocation and writes the unit landed
// costs into the catalog, with an audit line per changed item.
// POST /api/shipments/{id}/landed-cost/confirm
func (h *Handler) ConfirmLandedCost(w http.ResponseWriter, r *http.Request) {
	result, ok := h.computeForRequest(w, r)
	if !ok {
		return
	}

	updated, err := h.costs.Confirm(r.Context(), result)
	if err != nil {
		h.writeDomainError(w, "Failed to confirm landed cost", err)
		return
	}

	writeJSON(w, http.StatusOK, ConfirmResponse{
		ShipmentID:   string(result.ShipmentID),
		ItemsUpdated: updated,
	})
}

// ExportLandedCost streams the allocation as an .xlsx workbook.
// POST /api/shipments/{id}/landed-cost/export
func (h *Handler) ExportLandedCost(w http.ResponseWriter, r *http.Request) {
	result, ok := h.computeForRequest(w, r)
	if !ok {
		return
	}

	var buf bytes.Buffer
	if err := report.WriteAllocation(&buf, result); err != nil {
		h.writeDomainError(w, "Failed to build workbook", err)
		return
	}
	writeWorkbook(w, "landed-cost-"+string(result.ShipmentID)+".xlsx", &buf)
}

// computeForRequest parses the shared shipment+parameters input and runs
// the allocation. On failure it writes the error response itself.
func (h *Handler) computeForRequest(w http.ResponseWriter, r *http.Request) (*pricing.AllocationResult, bool) {
	shipmentID := pricing.ShipmentID(chi.URLParam(r, "id"))

	var req CostParametersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil, false
	}

	result, err := h.costs.Compute(r.Context(), shipmentID, req.ToParams(h.MinMargin, h.TargetMargin))
	if err != nil {
		h.writeDomainError(w, "Failed to compute landed cost", err)
		return nil, false
	}
	return result, true
}

// =============================================================================
// LOT HANDLERS
// =============================================================================

// PreviewLot drafts a bulk price change without writing anything.
// POST /api/lots/preview
func (h *Handler) PreviewLot(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	strategy, err := h.buildStrategy(r, req.Strategy)
	if err != nil {
		h.writeDomainError(w, "Invalid strategy", err)
		return
	}

	draft, err := h.lots.Preview(r.Context(), req.Filter.ToFilter(), strategy)
	if err != nil {
		h.writeDomainError(w, "Failed to preview price change", err)
		return
	}

	h.mu.Lock()
	h.drafts[draft.ID] = draft
	h.mu.Unlock()

	writeJSON(w, http.StatusOK, DraftDTO{
		DraftID:         string(draft.ID),
		Strategy:        draft.Strategy,
		Entries:         toEntryDTOs(draft.Entries),
		Rise:            draft.Summary.Rise,
		Fall:            draft.Summary.Fall,
		Same:            draft.Summary.Same,
		Unresolved:      draft.Summary.Unresolved,
		AvgMarginBefore: f64(draft.Summary.AvgMarginBefore),
		AvgMarginAfter:  f64(draft.Summary.AvgMarginAfter),
	})
}

func (h *Handler) buildStrategy(r *http.Request, req StrategyRequest) (pricing.PriceStrategy, error) {
	switch req.Type {
	case "RULES", "":
		rules, err := h.Store.ListMarkupRules(r.Context())
		if err != nil {
			return nil, err
		}
		return pricing.RuleStrategy{Rules: rules}, nil
	case "FLAT":
		s := pricing.FlatAdjustmentStrategy{Percent: decimal.NewFromFloat(req.Percent)}
		if err := s.Validate(); err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, &pricing.InvalidParameterError{Field: "strategy.type", Reason: "must be RULES or FLAT"}
	}
}

// ApplyLot commits a previously previewed draft in one transaction.
// POST /api/lots/apply
func (h *Handler) ApplyLot(w http.ResponseWriter, r *http.Request) {
	var req ApplyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	h.mu.Lock()
	draft, ok := h.drafts[pricing.LotID(req.DraftID)]
	if ok {
		delete(h.drafts, pricing.LotID(req.DraftID))
	}
	h.mu.Unlock()
	if !ok {
		writeError(w, http.StatusNotFound, "Unknown or expired draft", nil)
		return
	}

	lot, err := h.lots.Apply(r.Context(), draft, req.Description)
	if err != nil {
		h.writeDomainError(w, "Failed to apply price change", err)
		return
	}

	writeJSON(w, http.StatusCreated, toLotDTO(lot, true))
}

// RollbackLot restores every entry's price-before in one transaction.
// POST /api/lots/{id}/rollback
func (h *Handler) RollbackLot(w http.ResponseWriter, r *http.Request) {
	id := pricing.LotID(chi.URLParam(r, "id"))

	lot, err := h.lots.Rollback(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, "Failed to roll back lot", err)
		return
	}

	writeJSON(w, http.StatusOK, toLotDTO(lot, true))
}

// ListLots returns lot history, newest first, without entries.
// GET /api/lots
func (h *Handler) ListLots(w http.ResponseWriter, r *http.Request) {
	lots, err := h.Store.ListLots(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list lots", err)
		return
	}

	dtos := make([]LotDTO, len(lots))
	for i := range lots {
		dtos[i] = toLotDTO(&lots[i], false)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetLot returns one lot with its entries.
// GET /api/lots/{id}
func (h *Handler) GetLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.Store.GetLot(r.Context(), pricing.LotID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get lot", err)
		return
	}
	writeJSON(w, http.StatusOK, toLotDTO(lot, true))
}

// ExportLot streams the lot audit sheet as an .xlsx workbook.
// GET /api/lots/{id}/export
func (h *Handler) ExportLot(w http.ResponseWriter, r *http.Request) {
	lot, err := h.Store.GetLot(r.Context(), pricing.LotID(chi.URLParam(r, "id")))
	if err != nil {
		h.writeDomainError(w, "Failed to get lot", err)
		return
	}

	var buf bytes.Buffer
	if err := report.WriteLot(&buf, lot); err != nil {
		h.writeDomainError(w, "Failed to build workbook", err)
		return
	}
	writeWorkbook(w, "lot-"+string(lot.ID)+".xlsx", &buf)
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ListMarkupRules returns all markup rules ordered by priority.
// GET /api/rules/markup
func (h *Handler) ListMarkupRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListMarkupRules(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list markup rules", err)
		return
	}

	dtos := make([]MarkupRuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toMarkupRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateMarkupRule persists a new rule. Rules are immutable afterwards
// except for the active flag.
// POST /api/rules/markup
func (h *Handler) CreateMarkupRule(w http.ResponseWriter, r *http.Request) {
	var req CreateMarkupRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule := pricing.MarkupRule{
		ID:         pricing.RuleID(req.ID),
		Name:       req.Name,
		Multiplier: decimal.NewFromFloat(req.Multiplier),
		Category:   req.Category,
		OEM:        req.OEM,
		Rounding:   pricing.RoundingMode(req.Rounding),
		Priority:   req.Priority,
		Active:     true,
	}
	if rule.ID == "" {
		rule.ID = pricing.RuleID(uuid.NewString())
	}
	if rule.Rounding == "" {
		rule.Rounding = pricing.RoundNone
	}
	if req.CostFrom != nil {
		d := decimal.NewFromFloat(*req.CostFrom)
		rule.CostFrom = &d
	}
	if req.CostTo != nil {
		d := decimal.NewFromFloat(*req.CostTo)
		rule.CostTo = &d
	}

	if err := rule.Validate(); err != nil {
		h.writeDomainError(w, "Invalid markup rule", err)
		return
	}
	if err := h.Store.InsertMarkupRule(r.Context(), rule); err != nil {
		h.writeDomainError(w, "Failed to create markup rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, toMarkupRuleDTO(rule))
}

// SetMarkupRuleActive toggles a rule's active flag.
// POST /api/rules/markup/{id}/activate
func (h *Handler) SetMarkupRuleActive(w http.ResponseWriter, r *http.Request) {
	h.setRuleActive(w, r, h.Store.SetMarkupRuleActive)
}

// ListDiscountRules returns all discount rules ordered by priority.
// GET /api/rules/discount
func (h *Handler) ListDiscountRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.Store.ListDiscountRules(r.Context())
	if err != nil {
		h.writeDomainError(w, "Failed to list discount rules", err)
		return
	}

	dtos := make([]DiscountRuleDTO, len(rules))
	for i, rule := range rules {
		dtos[i] = toDiscountRuleDTO(rule)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDiscountRule persists a new discount rule.
// POST /api/rules/discount
func (h *Handler) CreateDiscountRule(w http.ResponseWriter, r *http.Request) {
	var req CreateDiscountRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	rule := pricing.DiscountRule{
		ID:        pricing.RuleID(req.ID),
		Name:      req.Name,
		PriceList: req.PriceList,
		Condition: pricing.ConditionType(req.Condition),
		Threshold: decimal.NewFromFloat(req.Threshold),
		Match:     req.Match,
		Type:      pricing.DiscountType(req.Type),
		Value:     decimal.NewFromFloat(req.Value),
		Stackable: req.Stackable,
		Priority:  req.Priority,
		Active:    true,
	}
	if rule.ID == "" {
		rule.ID = pricing.RuleID(uuid.NewString())
	}

	if err := h.Store.InsertDiscountRule(r.Context(), rule); err != nil {
		h.writeDomainError(w, "Failed to create discount rule", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDiscountRuleDTO(rule))
}

// SetDiscountRuleActive toggles a discount rule's active flag.
// POST /api/rules/discount/{id}/activate
func (h *Handler) SetDiscountRuleActive(w http.ResponseWriter, r *http.Request) {
	h.setRuleActive(w, r, h.Store.SetDiscountRuleActive)
}

func (h *Handler) setRuleActive(w http.ResponseWriter, r *http.Request, set func(ctx context.Context, id pricing.RuleID, active bool) error) {
	id := pricing.RuleID(chi.URLParam(r, "id"))

	var req struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	if err := set(r.Context(), id, req.Active); err != nil {
		h.writeDomainError(w, "Failed to update rule", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": string(id), "active": req.Active})
}

// Quote resolves the customer-facing price for one item: markup rules
// produce the list price, discount rules reduce it for the context.
// POST /api/quotes
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	var req QuoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	item, err := h.Store.GetItem(ctx, pricing.ItemID(req.ItemID))
	if err != nil {
		h.writeDomainError(w, "Failed to get item", err)
		return
	}

	markupRules, err := h.Store.ListMarkupRules(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list markup rules", err)
		return
	}
	listPrice, rule, err := pricing.ResolveMarkup(*item, markupRules)
	if err != nil {
		h.writeDomainError(w, "Failed to resolve price", err)
		return
	}

	discountRules, err := h.Store.ListDiscountRules(ctx)
	if err != nil {
		h.writeDomainError(w, "Failed to list discount rules", err)
		return
	}
	finalPrice, applied := pricing.ResolveDiscounts(listPrice, pricing.CustomerContext{
		Quantity:         req.Quantity,
		AccountAgeMonths: req.AccountAgeMonths,
		Plan:             req.Plan,
		CustomerGroup:    req.CustomerGroup,
		PriceList:        req.PriceList,
	}, discountRules)

	resp := QuoteResponse{
		ItemID:     req.ItemID,
		ListPrice:  f64(listPrice),
		FinalPrice: f64(finalPrice),
		MarkupRule: string(rule.ID),
		Discounts:  make([]AppliedDiscountDTO, len(applied)),
	}
	for i, a := range applied {
		resp.Discounts[i] = AppliedDiscountDTO{
			RuleID:      string(a.RuleID),
			PriceBefore: f64(a.PriceBefore),
			PriceAfter:  f64(a.PriceAfter),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// =============================================================================
// SIMULATION HANDLER
// =============================================================================

// Simulate runs a read-only what-if scenario against the active catalog.
// POST /api/simulations
func (h *Handler) Simulate(w http.ResponseWriter, r *http.Request) {
	var req SimulationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var baseline pricing.CostParameters
	if req.Baseline != nil {
		baseline = req.Baseline.ToParams(h.MinMargin, h.TargetMargin)
	} else {
		baseline = pricing.CostParameters{
			ExchangeRate: decimal.NewFromInt(1),
			Basis:        pricing.BasisValue,
			MinMargin:    h.MinMargin,
			TargetMargin: h.TargetMargin,
		}
	}

	sim := pricing.NewSimulator(h.Store, baseline, pricing.ShipmentID(req.ReferenceShipment))
	impact, err := sim.Simulate(r.Context(), pricing.SimulationInput{
		Type:      pricing.ScenarioType(req.Type),
		Magnitude: decimal.NewFromFloat(req.Magnitude),
		TopN:      req.TopN,
	})
	if err != nil {
		h.writeDomainError(w, "Failed to run simulation", err)
		return
	}

	writeJSON(w, http.StatusOK, toImpactDTO(impact))
}

// =============================================================================
// CATALOG HANDLERS
// =============================================================================

// ListCatalog returns catalog items, optionally filtered.
// GET /api/catalog?category=&active=
func (h *Handler) ListCatalog(w http.ResponseWriter, r *http.Request) {
	filter := pricing.CatalogFilter{}
	if c := r.URL.Query().Get("category"); c != "" {
		filter.Category = &c
	}
	if a := r.URL.Query().Get("active"); a != "" {
		onlyActive, err := strconv.ParseBool(a)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid active parameter", err)
			return
		}
		filter.OnlyActive = onlyActive
	}

	items, err := h.Store.ListItems(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, "Failed to list catalog", err)
		return
	}

	dtos := make([]CatalogItemDTO, len(items))
	for i, item := range items {
		dtos[i] = toCatalogItemDTO(item)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// RESPONSE HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

func writeWorkbook(w http.ResponseWriter, filename string, buf *bytes.Buffer) {
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

// writeDomainError maps engine errors to HTTP statuses. Storage
// failures are logged and returned without detail.
func (h *Handler) writeDomainError(w http.ResponseWriter, message string, err error) {
	switch {
	case pricing.IsNotFound(err):
		writeError(w, http.StatusNotFound, message, err)
	case errors.Is(err, pricing.ErrLotState) || errors.Is(err, pricing.ErrConcurrentModification):
		writeError(w, http.StatusConflict, message, err)
	case pricing.IsClientError(err):
		writeError(w, http.StatusBadRequest, message, err)
	default:
		h.Log.Error(message, zap.Error(err))
		writeError(w, http.StatusInternalServerError, message, nil)
	}
}
