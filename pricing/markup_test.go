package pricing_test

import (
	"errors"
	"testing"

	"github.com/warp/pricing-engine/pricing"
)

func rule(id string, priority int, multiplier string) pricing.MarkupRule {
	return pricing.MarkupRule{
		ID:         pricing.RuleID(id),
		Name:       id,
		Multiplier: dec(multiplier),
		Rounding:   pricing.RoundNone,
		Priority:   priority,
		Active:     true,
	}
}

// =============================================================================
// SELECTION
// =============================================================================

func TestResolveMarkup_LowestPriorityValueWins(t *testing.T) {
	item := catItem("A", "1000", "0")
	rules := []pricing.MarkupRule{
		rule("r-broad", 100, "2.0"),
		rule("r-specific", 10, "1.5"),
	}

	price, winner, err := pricing.ResolveMarkup(item, rules)
	if err != nil {
		t.Fatalf("ResolveMarkup failed: %v", err)
	}
	if winner.ID != "r-specific" {
		t.Errorf("winner = %s, want r-specific", winner.ID)
	}
	if !price.Equal(dec("1500")) {
		t.Errorf("price = %s, want 1500", price)
	}
}

func TestResolveMarkup_TiesBreakByRuleID(t *testing.T) {
	item := catItem("A", "100", "0")
	rules := []pricing.MarkupRule{
		rule("r-b", 50, "3.0"),
		rule("r-a", 50, "2.0"),
	}
	_, winner, err := pricing.ResolveMarkup(item, rules)
	if err != nil {
		t.Fatalf("ResolveMarkup failed: %v", err)
	}
	if winner.ID != "r-a" {
		t.Errorf("winner = %s, want r-a (lowest id on tie)", winner.ID)
	}
}

func TestResolveMarkup_FiltersMustAllMatch(t *testing.T) {
	item := pricing.CatalogItem{ID: "A", Cost: dec("500"), Category: "brakes", OEM: true}

	band := rule("r-band", 1, "2.0")
	band.CostFrom = decPtr("100")
	band.CostTo = decPtr("500") // exclusive; cost 500 is outside

	cat := rule("r-cat", 2, "2.0")
	cat.Category = strPtr("suspension")

	oem := rule("r-oem", 3, "2.0")
	oem.OEM = boolPtr(false)

	match := rule("r-match", 4, "1.8")
	match.CostFrom = decPtr("500") // inclusive lower bound
	match.Category = strPtr("brakes")
	match.OEM = boolPtr(true)

	price, winner, err := pricing.ResolveMarkup(item, []pricing.MarkupRule{band, cat, oem, match})
	if err != nil {
		t.Fatalf("ResolveMarkup failed: %v", err)
	}
	if winner.ID != "r-match" {
		t.Errorf("winner = %s, want r-match", winner.ID)
	}
	if !price.Equal(dec("900")) {
		t.Errorf("price = %s, want 900", price)
	}
}

func TestResolveMarkup_NoApplicableRule(t *testing.T) {
	inactive := rule("r-1", 1, "2.0")
	inactive.Active = false

	_, _, err := pricing.ResolveMarkup(catItem("A", "100", "0"), []pricing.MarkupRule{inactive})
	if !errors.Is(err, pricing.ErrNoApplicableRule) {
		t.Fatalf("err = %v, want ErrNoApplicableRule", err)
	}
	var nar *pricing.NoApplicableRuleError
	if !errors.As(err, &nar) || nar.ItemID != "A" {
		t.Errorf("unexpected error detail: %v", err)
	}
}

func TestResolveMarkup_Deterministic(t *testing.T) {
	// Reordering the input and toggling an unrelated inactive rule never
	// changes the outcome.
	item := catItem("A", "1000", "0")
	active := []pricing.MarkupRule{rule("r-1", 10, "2.0"), rule("r-2", 20, "3.0")}
	noise := rule("r-noise", 1, "9.9")
	noise.Active = false

	first, w1, err := pricing.ResolveMarkup(item, append([]pricing.MarkupRule{noise}, active...))
	if err != nil {
		t.Fatalf("ResolveMarkup failed: %v", err)
	}
	second, w2, err := pricing.ResolveMarkup(item, append(append([]pricing.MarkupRule{}, active[1], active[0]), noise))
	if err != nil {
		t.Fatalf("ResolveMarkup failed: %v", err)
	}
	if !first.Equal(second) || w1.ID != w2.ID {
		t.Errorf("resolution not deterministic: %s/%s vs %s/%s", first, w1.ID, second, w2.ID)
	}
}

// =============================================================================
// ROUNDING MODES
// =============================================================================

func TestResolveMarkup_RoundingModes(t *testing.T) {
	cases := []struct {
		name     string
		cost     string
		mult     string
		rounding pricing.RoundingMode
		want     string
	}{
		{"none keeps currency precision", "333.333", "1.5", pricing.RoundNone, "499.99"},
		{"nearest 10 down", "123.4", "10", pricing.RoundNearest10, "1230"},
		{"nearest 10 up", "123.5", "10", pricing.RoundNearest10, "1240"},
		{"nearest 50 exact", "1000", "2.0", pricing.RoundNearest50, "2000"},
		{"nearest 50 down", "39.3", "50", pricing.RoundNearest50, "1950"},
		{"end in 99", "1225", "2.0", pricing.RoundEndIn99, "2499"},
		{"end in 99 below 100", "40", "1.2", pricing.RoundEndIn99, "99"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := rule("r-1", 1, tc.mult)
			r.Rounding = tc.rounding
			price, _, err := pricing.ResolveMarkup(catItem("A", tc.cost, "0"), []pricing.MarkupRule{r})
			if err != nil {
				t.Fatalf("ResolveMarkup failed: %v", err)
			}
			if !price.Equal(dec(tc.want)) {
				t.Errorf("price = %s, want %s", price, tc.want)
			}
		})
	}
}

// =============================================================================
// RULE VALIDATION
// =============================================================================

func TestMarkupRule_Validate(t *testing.T) {
	bad := rule("r-1", 1, "0")
	if err := bad.Validate(); !errors.Is(err, pricing.ErrInvalidParameter) {
		t.Errorf("zero multiplier: err = %v, want ErrInvalidParameter", err)
	}

	inverted := rule("r-2", 1, "2.0")
	inverted.CostFrom = decPtr("100")
	inverted.CostTo = decPtr("100")
	if err := inverted.Validate(); !errors.Is(err, pricing.ErrInvalidParameter) {
		t.Errorf("empty cost band: err = %v, want ErrInvalidParameter", err)
	}

	unknown := rule("r-3", 1, "2.0")
	unknown.Rounding = "NEAREST_7"
	if err := unknown.Validate(); !errors.Is(err, pricing.ErrInvalidParameter) {
		t.Errorf("unknown rounding: err = %v, want ErrInvalidParameter", err)
	}
}
