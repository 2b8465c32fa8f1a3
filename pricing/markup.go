/*
markup.go - Markup rule resolution (cost -> retail price)

PURPOSE:
  Maps an item's cost and attributes to a retail price through an ordered
  set of markup rules. Pure function layer: no persistence, invoked by
  the allocation confirmation flow and by bulk recalculation.

SELECTION CONTRACT:
  Active rules whose cost band [from, to), category filter and OEM filter
  all match the item compete; the one with the LOWEST priority value wins,
  ties broken by rule id ascending. Resolution is fully deterministic:
  inactive or non-matching rules never influence the outcome.

ROUNDING MODES:
  NONE        keep cost x multiplier as-is (currency precision)
  NEAREST_10  round to the nearest multiple of 10
  NEAREST_50  round to the nearest multiple of 50
  END_IN_99   round down to the nearest 100, then add 99

RULE LIFECYCLE:
  Rules are immutable once created except for the active flag. They are
  never deleted, only deactivated, so historical prices stay explainable.

SEE ALSO:
  - discount.go: Conditional reductions on the resolved price
  - lot.go: Bulk recalculation using these rules as the strategy
*/
package pricing

import (
	"sort"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MARKUP RULE
// =============================================================================

type RoundingMode string

const (
	RoundNone      RoundingMode = "NONE"
	RoundNearest10 RoundingMode = "NEAREST_10"
	RoundNearest50 RoundingMode = "NEAREST_50"
	RoundEndIn99   RoundingMode = "END_IN_99"
)

func (m RoundingMode) Valid() bool {
	switch m {
	case RoundNone, RoundNearest10, RoundNearest50, RoundEndIn99:
		return true
	}
	return false
}

// MarkupRule maps cost to price for the items it matches. Nil filters
// match everything.
type MarkupRule struct {
	ID         RuleID
	Name       string
	Multiplier decimal.Decimal  // > 0
	CostFrom   *decimal.Decimal // inclusive
	CostTo     *decimal.Decimal // exclusive
	Category   *string
	OEM        *bool // nil = either
	Rounding   RoundingMode
	Priority   int // lower value evaluated first
	Active     bool
}

// Validate rejects a malformed rule before it is stored.
func (r MarkupRule) Validate() error {
	if !r.Multiplier.IsPositive() {
		return &InvalidParameterError{Field: "multiplier", Reason: "must be > 0"}
	}
	if !r.Rounding.Valid() {
		return &InvalidParameterError{Field: "rounding", Reason: "unknown rounding mode " + string(r.Rounding)}
	}
	if r.CostFrom != nil && r.CostTo != nil && r.CostTo.LessThanOrEqual(*r.CostFrom) {
		return &InvalidParameterError{Field: "cost_to", Reason: "must be > cost_from"}
	}
	return nil
}

// Matches reports whether the rule applies to the item.
func (r MarkupRule) Matches(item CatalogItem) bool {
	if !r.Active {
		return false
	}
	if r.CostFrom != nil && item.Cost.LessThan(*r.CostFrom) {
		return false
	}
	if r.CostTo != nil && item.Cost.GreaterThanOrEqual(*r.CostTo) {
		return false
	}
	if r.Category != nil && *r.Category != item.Category {
		return false
	}
	if r.OEM != nil && *r.OEM != item.OEM {
		return false
	}
	return true
}

// =============================================================================
// RESOLUTION
// =============================================================================

// ResolveMarkup selects the winning rule for the item and returns the
// price before discounts, along with the rule that produced it.
// Fails with ErrNoApplicableRule when no active rule matches.
func ResolveMarkup(item CatalogItem, rules []MarkupRule) (decimal.Decimal, *MarkupRule, error) {
	var winner *MarkupRule
	for i := range rules {
		r := &rules[i]
		if !r.Matches(item) {
			continue
		}
		if winner == nil ||
			r.Priority < winner.Priority ||
			(r.Priority == winner.Priority && r.ID < winner.ID) {
			winner = r
		}
	}
	if winner == nil {
		return decimal.Zero, nil, &NoApplicableRuleError{ItemID: item.ID, RulesConsidered: len(rules)}
	}
	price := applyRounding(item.Cost.Mul(winner.Multiplier), winner.Rounding)
	return price, winner, nil
}

func applyRounding(price decimal.Decimal, mode RoundingMode) decimal.Decimal {
	switch mode {
	case RoundNearest10:
		return roundToMultiple(price, 10)
	case RoundNearest50:
		return roundToMultiple(price, 50)
	case RoundEndIn99:
		hundred := decimal.NewFromInt(100)
		return price.Div(hundred).Floor().Mul(hundred).Add(decimal.NewFromInt(99))
	default:
		return truncateCurrency(price)
	}
}

func roundToMultiple(price decimal.Decimal, multiple int64) decimal.Decimal {
	m := decimal.NewFromInt(multiple)
	return price.Div(m).Round(0).Mul(m)
}

// SortRules orders rules by (priority, id) for display. Resolution does
// not depend on input order; this is for stable listings only.
func SortRules(rules []MarkupRule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}
