/*
handlers_test.go - HTTP endpoint tests over the in-memory store

Tests drive the full router with httptest so routing, JSON codecs, and
status mapping are covered together with the engine underneath.
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/warp/pricing-engine/pricing"
	memstore "github.com/warp/pricing-engine/pricing/store"
)

// =============================================================================
// TEST FIXTURES
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *memstore.Memory) {
	t.Helper()
	store := memstore.NewMemory()
	h := NewHandler(store, zap.NewNop(),
		decimal.RequireFromString("0.15"), decimal.RequireFromString("0.30"))
	srv := httptest.NewServer(NewRouter(h))
	t.Cleanup(srv.Close)
	return srv, store
}

func seedTestCatalog(t *testing.T, store *memstore.Memory) {
	t.Helper()
	ctx := context.Background()

	items := []pricing.CatalogItem{
		{ID: "pad-100", Name: "Brake pad", Cost: decimal.RequireFromString("40"),
			RetailPrice: decimal.RequireFromString("100"), Category: "brakes", Active: true},
		{ID: "rot-200", Name: "Brake rotor", Cost: decimal.RequireFromString("60"),
			RetailPrice: decimal.RequireFromString("150"), Category: "brakes", Active: true},
	}
	for _, it := range items {
		require.NoError(t, store.PutItem(ctx, it))
	}

	lines := []pricing.ShipmentItem{
		{ShipmentID: "sh-1", ItemID: "pad-100", Quantity: 10, FOBUnitPrice: decimal.RequireFromString("30")},
		{ShipmentID: "sh-1", ItemID: "rot-200", Quantity: 5, FOBUnitPrice: decimal.RequireFromString("50")},
	}
	for _, l := range lines {
		require.NoError(t, store.PutShipmentItem(ctx, l))
	}
}

func postJSON(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	require.NoError(t, err)
	return resp
}

func decodeJSON(t *testing.T, resp *http.Response, out any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
}

func baseParamsBody() CostParametersRequest {
	return CostParametersRequest{
		ExchangeRate: 1,
		FreightTotal: 55, // 550 FOB total, 10% freight
		Basis:        string(pricing.BasisValue),
	}
}

// =============================================================================
// COSTING ENDPOINTS
// =============================================================================

func TestComputeLandedCost(t *testing.T) {
	// GIVEN a seeded shipment
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	// WHEN computing the landed cost with a 10% freight pool
	resp := postJSON(t, srv.URL+"/api/shipments/sh-1/landed-cost", baseParamsBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dto AllocationDTO
	decodeJSON(t, resp, &dto)

	// THEN the breakdown conserves the pool and keeps item order
	assert.Equal(t, "sh-1", dto.ShipmentID)
	require.Len(t, dto.Items, 2)
	assert.Equal(t, "pad-100", dto.Items[0].ItemID)
	assert.InDelta(t, 55.0, dto.Items[0].Freight+dto.Items[1].Freight, 0.001)
	assert.InDelta(t, 605.0, dto.Totals.CIF, 0.001) // no insurance
}

func TestComputeLandedCostUnknownShipment(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	resp := postJSON(t, srv.URL+"/api/shipments/nope/landed-cost", baseParamsBody())
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestComputeLandedCostBadBasis(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	body := baseParamsBody()
	body.Basis = "DISTANCE"
	resp := postJSON(t, srv.URL+"/api/shipments/sh-1/landed-cost", body)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestConfirmLandedCostWritesCosts(t *testing.T) {
	// GIVEN a seeded shipment
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	// WHEN confirming
	resp := postJSON(t, srv.URL+"/api/shipments/sh-1/landed-cost/confirm", baseParamsBody())
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var confirmed ConfirmResponse
	decodeJSON(t, resp, &confirmed)
	assert.Equal(t, 2, confirmed.ItemsUpdated)

	// THEN the catalog cost moved to the unit landed cost
	item, err := store.GetItem(context.Background(), "pad-100")
	require.NoError(t, err)
	assert.False(t, item.Cost.Equal(decimal.RequireFromString("40")))
}

// =============================================================================
// LOT ENDPOINTS
// =============================================================================

func TestLotPreviewApplyRollbackFlow(t *testing.T) {
	// GIVEN a seeded catalog
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	// WHEN previewing a flat 10% rise
	resp := postJSON(t, srv.URL+"/api/lots/preview", PreviewRequest{
		Strategy: StrategyRequest{Type: "FLAT", Percent: 0.10},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var draft DraftDTO
	decodeJSON(t, resp, &draft)
	require.NotEmpty(t, draft.DraftID)
	assert.Equal(t, 2, draft.Rise)

	// AND the preview wrote nothing
	item, err := store.GetItem(context.Background(), "pad-100")
	require.NoError(t, err)
	assert.True(t, item.RetailPrice.Equal(decimal.RequireFromString("100")))

	// WHEN applying the draft
	resp = postJSON(t, srv.URL+"/api/lots/apply", ApplyRequest{
		DraftID:     draft.DraftID,
		Description: "spring adjustment",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var lot LotDTO
	decodeJSON(t, resp, &lot)
	assert.True(t, lot.Applied)
	assert.Equal(t, 2, lot.ItemCount)

	item, err = store.GetItem(context.Background(), "pad-100")
	require.NoError(t, err)
	assert.True(t, item.RetailPrice.Equal(decimal.RequireFromString("110")),
		"expected 110, got %s", item.RetailPrice)

	// AND the draft is consumed
	resp = postJSON(t, srv.URL+"/api/lots/apply", ApplyRequest{DraftID: draft.DraftID})
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	// WHEN rolling back
	resp = postJSON(t, srv.URL+"/api/lots/"+lot.ID+"/rollback", struct{}{})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var reverted LotDTO
	decodeJSON(t, resp, &reverted)
	assert.True(t, reverted.Reverted)

	item, err = store.GetItem(context.Background(), "pad-100")
	require.NoError(t, err)
	assert.True(t, item.RetailPrice.Equal(decimal.RequireFromString("100")))

	// AND a second rollback conflicts
	resp = postJSON(t, srv.URL+"/api/lots/"+lot.ID+"/rollback", struct{}{})
	resp.Body.Close()
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestRollbackUnknownLot(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/lots/missing/rollback", struct{}{})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

// =============================================================================
// RULE + QUOTE ENDPOINTS
// =============================================================================

func TestCreateRuleAndQuote(t *testing.T) {
	// GIVEN a catalog and one markup rule
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	resp := postJSON(t, srv.URL+"/api/rules/markup", CreateMarkupRuleRequest{
		Name:       "standard",
		Multiplier: 2.0,
		Priority:   10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var rule MarkupRuleDTO
	decodeJSON(t, resp, &rule)
	require.NotEmpty(t, rule.ID)

	// AND a stackable bulk discount
	resp = postJSON(t, srv.URL+"/api/rules/discount", CreateDiscountRuleRequest{
		Name:      "bulk",
		Condition: string(pricing.CondQuantity),
		Threshold: 50,
		Type:      string(pricing.DiscountPercentage),
		Value:     0.10,
		Stackable: true,
		Priority:  10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	// WHEN quoting a bulk order
	resp = postJSON(t, srv.URL+"/api/quotes", QuoteRequest{
		ItemID:   "pad-100",
		Quantity: 60,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var quote QuoteResponse
	decodeJSON(t, resp, &quote)

	// THEN cost 40 x2.0 = 80 list, minus 10% = 72
	assert.InDelta(t, 80.0, quote.ListPrice, 0.001)
	assert.InDelta(t, 72.0, quote.FinalPrice, 0.001)
	require.Len(t, quote.Discounts, 1)
}

func TestQuoteNoApplicableRule(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	resp := postJSON(t, srv.URL+"/api/quotes", QuoteRequest{ItemID: "pad-100", Quantity: 1})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestToggleMarkupRule(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	resp := postJSON(t, srv.URL+"/api/rules/markup", CreateMarkupRuleRequest{
		ID: "mk-1", Name: "standard", Multiplier: 2.0, Priority: 10,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = postJSON(t, srv.URL+"/api/rules/markup/mk-1/activate", map[string]bool{"active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	rules, err := store.ListMarkupRules(context.Background())
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.False(t, rules[0].Active)
}

// =============================================================================
// SIMULATION ENDPOINT
// =============================================================================

func TestSimulateExchangeRate(t *testing.T) {
	// GIVEN an active catalog
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	// WHEN simulating a 20% devaluation
	resp := postJSON(t, srv.URL+"/api/simulations", SimulationRequest{
		Type:      string(pricing.ScenarioExchangeRate),
		Magnitude: 0.20,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var impact ImpactDTO
	decodeJSON(t, resp, &impact)

	// THEN costs scale and margins drop; the catalog is untouched
	assert.Equal(t, 2, impact.ItemCount)
	assert.Greater(t, impact.AvgCostAfter, impact.AvgCostBefore)
	assert.Less(t, impact.AvgMarginAfter, impact.AvgMarginBefore)

	item, err := store.GetItem(context.Background(), "pad-100")
	require.NoError(t, err)
	assert.True(t, item.Cost.Equal(decimal.RequireFromString("40")))
}

func TestSimulateRejectsUnknownType(t *testing.T) {
	srv, store := newTestServer(t)
	seedTestCatalog(t, store)

	resp := postJSON(t, srv.URL+"/api/simulations", SimulationRequest{
		Type:      "WEATHER",
		Magnitude: 0.5,
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

// =============================================================================
// SCENARIO ENDPOINTS
// =============================================================================

func TestLoadScenarioSeedsData(t *testing.T) {
	// GIVEN an empty store
	srv, store := newTestServer(t)

	// WHEN loading the seasonal-reprice scenario
	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{
		ScenarioID: "seasonal-reprice",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	// THEN catalog and rules exist
	items, err := store.ListItems(context.Background(), pricing.CatalogFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, items)

	rules, err := store.ListMarkupRules(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, rules)

	// AND the current scenario is reported
	got, err := http.Get(srv.URL + "/api/scenarios/current")
	require.NoError(t, err)
	var current ScenarioDTO
	decodeJSON(t, got, &current)
	assert.Equal(t, "seasonal-reprice", current.ID)
}

func TestLoadUnknownScenario(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postJSON(t, srv.URL+"/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
