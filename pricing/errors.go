/*
errors.go - Centralized error types for the pricing engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Callers match with errors.Is() against the sentinels; structured types
  carry the context needed for useful messages.

ERROR CATEGORIES:
  1. Validation errors - bad parameters, rejected before computation
  2. Computation errors - missing dimensions, unresolvable rules
  3. Lot errors - illegal state transitions, write-set conflicts

USAGE:
  if errors.Is(err, pricing.ErrNoApplicableRule) {
      // flag the item as unresolved, keep going
  }

SEE ALSO:
  - allocation.go: MissingDimensionError
  - markup.go: NoApplicableRuleError
  - lot.go: LotStateError, ConcurrentModificationError
*/
package pricing

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingDimension is returned when the allocation basis requires a
	// weight or volume that an item does not carry. The whole computation
	// fails; there is no partial allocation.
	ErrMissingDimension = errors.New("missing dimension for allocation basis")

	// ErrNoApplicableRule is returned when markup resolution finds zero
	// matching active rules for an item. Bulk previews surface it per item
	// instead of aborting.
	ErrNoApplicableRule = errors.New("no applicable markup rule")

	// ErrInvalidParameter is returned for malformed input: negative rates,
	// zero exchange rate, unknown allocation basis or scenario type.
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrLotState is returned for illegal lot transitions: applying an
	// already-applied lot, rolling back a lot that is not applied or is
	// already reverted.
	ErrLotState = errors.New("illegal lot state transition")

	// ErrConcurrentModification is returned when a lot apply detects that a
	// touched item's price changed since the preview. Callers should
	// re-preview and retry.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	// ErrItemNotFound is returned when a referenced catalog item doesn't exist.
	ErrItemNotFound = errors.New("catalog item not found")

	// ErrLotNotFound is returned when a referenced lot doesn't exist.
	ErrLotNotFound = errors.New("lot not found")

	// ErrShipmentNotFound is returned when a shipment has no line items.
	ErrShipmentNotFound = errors.New("shipment not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// MissingDimensionError identifies the item and the dimension the chosen
// allocation basis needed.
type MissingDimensionError struct {
	ItemID    ItemID
	Basis     AllocationBasis
	Dimension string // "weight" or "volume"
}

func (e *MissingDimensionError) Error() string {
	return fmt.Sprintf("item %s has no %s, required by %s allocation", e.ItemID, e.Dimension, e.Basis)
}

func (e *MissingDimensionError) Unwrap() error {
	return ErrMissingDimension
}

// NoApplicableRuleError reports markup resolution failure for one item.
type NoApplicableRuleError struct {
	ItemID        ItemID
	RulesConsidered int
}

func (e *NoApplicableRuleError) Error() string {
	return fmt.Sprintf("no active markup rule matches item %s (%d rules considered)", e.ItemID, e.RulesConsidered)
}

func (e *NoApplicableRuleError) Unwrap() error {
	return ErrNoApplicableRule
}

// InvalidParameterError names the offending field.
type InvalidParameterError struct {
	Field  string
	Reason string
}

func (e *InvalidParameterError) Error() string {
	return fmt.Sprintf("invalid parameter %s: %s", e.Field, e.Reason)
}

func (e *InvalidParameterError) Unwrap() error {
	return ErrInvalidParameter
}

// LotStateError reports a rejected lot transition. No state changes.
type LotStateError struct {
	LotID    LotID
	Applied  bool
	Reverted bool
	Op       string // "apply" or "rollback"
}

func (e *LotStateError) Error() string {
	return fmt.Sprintf("cannot %s lot %s (applied=%v, reverted=%v)", e.Op, e.LotID, e.Applied, e.Reverted)
}

func (e *LotStateError) Unwrap() error {
	return ErrLotState
}

// ConcurrentModificationError identifies the first conflicting item.
type ConcurrentModificationError struct {
	ItemID ItemID
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("item %s was modified since preview; re-preview and retry", e.ItemID)
}

func (e *ConcurrentModificationError) Unwrap() error {
	return ErrConcurrentModification
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidParameter) ||
		errors.Is(err, ErrMissingDimension) ||
		errors.Is(err, ErrNoApplicableRule) ||
		errors.Is(err, ErrLotState)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrItemNotFound) ||
		errors.Is(err, ErrLotNotFound) ||
		errors.Is(err, ErrShipmentNotFound)
}
