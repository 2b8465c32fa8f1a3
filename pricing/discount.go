/*
discount.go - Conditional discount resolution on a resolved retail price

PURPOSE:
  Applies customer/order-conditional reductions to a price produced by
  markup resolution. Pure functions, no persistence.

STACKING SEMANTICS:
  Matching active rules are ordered by (priority, id). If the
  highest-priority match is non-stackable it applies alone. Otherwise
  every stackable match applies in priority order, each computed against
  the CURRENT running price (sequential, not compounded on the original),
  so the price is monotonically non-increasing. A flat amount never
  drives the price below zero: the price clamps at zero and no further
  discounts apply.

SEE ALSO:
  - markup.go: Produces the price these rules reduce
*/
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DISCOUNT RULE
// =============================================================================

type ConditionType string

const (
	CondQuantity      ConditionType = "QUANTITY"
	CondAccountAge    ConditionType = "ACCOUNT_AGE"
	CondPlan          ConditionType = "PLAN"
	CondCustomerGroup ConditionType = "CUSTOMER_GROUP"
)

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFlatAmount DiscountType = "FLAT_AMOUNT"
)

// DiscountRule conditionally reduces a resolved price. PriceList scopes
// the rule to one price list; nil applies everywhere.
type DiscountRule struct {
	ID        RuleID
	Name      string
	PriceList *string
	Condition ConditionType
	// Threshold is numeric for QUANTITY/ACCOUNT_AGE; Match is the
	// required value for PLAN/CUSTOMER_GROUP.
	Threshold decimal.Decimal
	Match     string
	Type      DiscountType
	Value     decimal.Decimal // percentage as fraction, or flat amount
	Stackable bool
	Priority  int
	Active    bool
}

// CustomerContext carries the order/customer facts conditions test.
type CustomerContext struct {
	Quantity         int64
	AccountAgeMonths int64
	Plan             string
	CustomerGroup    string
	PriceList        string
}

// Satisfied reports whether the context meets the rule's condition and scope.
func (r DiscountRule) Satisfied(ctx CustomerContext) bool {
	if !r.Active {
		return false
	}
	if r.PriceList != nil && *r.PriceList != ctx.PriceList {
		return false
	}
	switch r.Condition {
	case CondQuantity:
		return decimal.NewFromInt(ctx.Quantity).GreaterThanOrEqual(r.Threshold)
	case CondAccountAge:
		return decimal.NewFromInt(ctx.AccountAgeMonths).GreaterThanOrEqual(r.Threshold)
	case CondPlan:
		return r.Match == ctx.Plan
	case CondCustomerGroup:
		return r.Match == ctx.CustomerGroup
	}
	return false
}

// =============================================================================
// RESOLUTION
// =============================================================================

// AppliedDiscount records one step of the discount chain for audit display.
type AppliedDiscount struct {
	RuleID      RuleID
	PriceBefore decimal.Decimal
	PriceAfter  decimal.Decimal
}

// ResolveDiscounts reduces price according to the matching rules and
// returns the final price plus the applied chain. A price of zero stops
// the chain.
func ResolveDiscounts(price decimal.Decimal, ctx CustomerContext, rules []DiscountRule) (decimal.Decimal, []AppliedDiscount) {
	matches := make([]DiscountRule, 0, len(rules))
	for _, r := range rules {
		if r.Satisfied(ctx) {
			matches = append(matches, r)
		}
	}
	if len(matches) == 0 {
		return price, nil
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Priority != matches[j].Priority {
			return matches[i].Priority < matches[j].Priority
		}
		return matches[i].ID < matches[j].ID
	})

	if !matches[0].Stackable {
		after := applyDiscount(price, matches[0])
		return after, []AppliedDiscount{{RuleID: matches[0].ID, PriceBefore: price, PriceAfter: after}}
	}

	current := price
	var applied []AppliedDiscount
	for _, r := range matches {
		if !r.Stackable {
			continue
		}
		if current.IsZero() {
			break
		}
		after := applyDiscount(current, r)
		applied = append(applied, AppliedDiscount{RuleID: r.ID, PriceBefore: current, PriceAfter: after})
		current = after
	}
	return current, applied
}

func applyDiscount(price decimal.Decimal, r DiscountRule) decimal.Decimal {
	var after decimal.Decimal
	switch r.Type {
	case DiscountPercentage:
		after = price.Sub(price.Mul(r.Value))
	case DiscountFlatAmount:
		after = price.Sub(r.Value)
	default:
		return price
	}
	after = truncateCurrency(after)
	if after.IsNegative() {
		return decimal.Zero
	}
	return after
}
