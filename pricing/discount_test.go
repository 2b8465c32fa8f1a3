package pricing_test

import (
	"testing"

	"github.com/warp/pricing-engine/pricing"
)

func discountRule(id string, priority int, typ pricing.DiscountType, value string, stackable bool) pricing.DiscountRule {
	return pricing.DiscountRule{
		ID:        pricing.RuleID(id),
		Name:      id,
		Condition: pricing.CondQuantity,
		Threshold: dec("1"),
		Type:      typ,
		Value:     dec(value),
		Stackable: stackable,
		Priority:  priority,
		Active:    true,
	}
}

func bulkBuyer() pricing.CustomerContext {
	return pricing.CustomerContext{Quantity: 10, AccountAgeMonths: 24, Plan: "fleet", CustomerGroup: "wholesale"}
}

// =============================================================================
// STACKING SEMANTICS
// =============================================================================

func TestResolveDiscounts_NonStackableTopMatchAppliesAlone(t *testing.T) {
	rules := []pricing.DiscountRule{
		discountRule("d-exclusive", 1, pricing.DiscountPercentage, "0.30", false),
		discountRule("d-extra", 2, pricing.DiscountPercentage, "0.10", true),
	}
	final, applied := pricing.ResolveDiscounts(dec("1000"), bulkBuyer(), rules)
	if !final.Equal(dec("700")) {
		t.Errorf("final = %s, want 700", final)
	}
	if len(applied) != 1 || applied[0].RuleID != "d-exclusive" {
		t.Errorf("applied = %+v, want only d-exclusive", applied)
	}
}

func TestResolveDiscounts_StackableApplySequentially(t *testing.T) {
	// GIVEN: 10% then flat 50 on price 1000
	// THEN:  900 after the percentage, 850 after the flat amount —
	//        each step computed against the running price

	rules := []pricing.DiscountRule{
		discountRule("d-pct", 1, pricing.DiscountPercentage, "0.10", true),
		discountRule("d-flat", 2, pricing.DiscountFlatAmount, "50", true),
	}
	final, applied := pricing.ResolveDiscounts(dec("1000"), bulkBuyer(), rules)
	if !final.Equal(dec("850")) {
		t.Errorf("final = %s, want 850", final)
	}
	if len(applied) != 2 {
		t.Fatalf("applied %d discounts, want 2", len(applied))
	}
	if !applied[0].PriceAfter.Equal(dec("900")) || !applied[1].PriceBefore.Equal(dec("900")) {
		t.Errorf("chain not sequential: %+v", applied)
	}
}

func TestResolveDiscounts_PriceIsMonotonicallyNonIncreasing(t *testing.T) {
	rules := []pricing.DiscountRule{
		discountRule("d-1", 1, pricing.DiscountPercentage, "0.25", true),
		discountRule("d-2", 2, pricing.DiscountPercentage, "0.25", true),
		discountRule("d-3", 3, pricing.DiscountFlatAmount, "10", true),
	}
	_, applied := pricing.ResolveDiscounts(dec("500"), bulkBuyer(), rules)
	for _, step := range applied {
		if step.PriceAfter.GreaterThan(step.PriceBefore) {
			t.Errorf("price rose at %s: %s -> %s", step.RuleID, step.PriceBefore, step.PriceAfter)
		}
	}
}

func TestResolveDiscounts_FlatAmountClampsAtZeroAndStops(t *testing.T) {
	rules := []pricing.DiscountRule{
		discountRule("d-huge", 1, pricing.DiscountFlatAmount, "150", true),
		discountRule("d-after", 2, pricing.DiscountPercentage, "0.10", true),
	}
	final, applied := pricing.ResolveDiscounts(dec("100"), bulkBuyer(), rules)
	if !final.IsZero() {
		t.Errorf("final = %s, want 0", final)
	}
	if len(applied) != 1 {
		t.Errorf("applied %d discounts after clamping, want 1", len(applied))
	}
}

// =============================================================================
// CONDITIONS AND SCOPE
// =============================================================================

func TestResolveDiscounts_ConditionsGateMatching(t *testing.T) {
	ctx := pricing.CustomerContext{Quantity: 3, AccountAgeMonths: 6, Plan: "basic", CustomerGroup: "retail"}

	qty := discountRule("d-qty", 1, pricing.DiscountPercentage, "0.10", true)
	qty.Threshold = dec("5") // quantity 3 < 5: no match

	age := discountRule("d-age", 2, pricing.DiscountPercentage, "0.10", true)
	age.Condition = pricing.CondAccountAge
	age.Threshold = dec("6") // exactly at threshold: matches

	plan := discountRule("d-plan", 3, pricing.DiscountPercentage, "0.10", true)
	plan.Condition = pricing.CondPlan
	plan.Match = "fleet" // wrong plan: no match

	group := discountRule("d-group", 4, pricing.DiscountPercentage, "0.10", true)
	group.Condition = pricing.CondCustomerGroup
	group.Match = "retail" // matches

	final, applied := pricing.ResolveDiscounts(dec("1000"), ctx, []pricing.DiscountRule{qty, age, plan, group})
	if len(applied) != 2 {
		t.Fatalf("applied %d discounts, want 2 (age + group): %+v", len(applied), applied)
	}
	// 1000 -> 900 -> 810
	if !final.Equal(dec("810")) {
		t.Errorf("final = %s, want 810", final)
	}
}

func TestResolveDiscounts_PriceListScope(t *testing.T) {
	scoped := discountRule("d-list", 1, pricing.DiscountPercentage, "0.50", true)
	scoped.PriceList = strPtr("export")

	ctx := bulkBuyer()
	ctx.PriceList = "domestic"
	final, _ := pricing.ResolveDiscounts(dec("100"), ctx, []pricing.DiscountRule{scoped})
	if !final.Equal(dec("100")) {
		t.Errorf("out-of-scope rule applied: final = %s", final)
	}

	ctx.PriceList = "export"
	final, _ = pricing.ResolveDiscounts(dec("100"), ctx, []pricing.DiscountRule{scoped})
	if !final.Equal(dec("50")) {
		t.Errorf("in-scope rule skipped: final = %s", final)
	}
}

func TestResolveDiscounts_InactiveRulesNeverApply(t *testing.T) {
	off := discountRule("d-off", 1, pricing.DiscountPercentage, "0.90", false)
	off.Active = false
	final, applied := pricing.ResolveDiscounts(dec("100"), bulkBuyer(), []pricing.DiscountRule{off})
	if !final.Equal(dec("100")) || len(applied) != 0 {
		t.Errorf("inactive rule applied: final = %s, applied = %+v", final, applied)
	}
}
