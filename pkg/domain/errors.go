package domain

import (
	"errors"
	"fmt"
)

// ErrPaused rejects mutating operations while the ledger is paused.
var ErrPaused = errors.New("ledger is paused")

// ErrNotFound reports an unknown creature id.
type ErrNotFound struct {
	ID uint64
}

func (e ErrNotFound) Error() string {
	return fmt.Sprintf("creature %d not found", e.ID)
}

// ErrUnauthorized reports a caller lacking ownership or approval for an operation.
type ErrUnauthorized struct {
	Caller Address
	Op     string
}

func (e ErrUnauthorized) Error() string {
	return fmt.Sprintf("caller %q not authorized for %s", string(e.Caller), e.Op)
}

// ErrInvalidPair reports a matron/sire combination rejected by pair validity.
type ErrInvalidPair struct {
	MatronID uint64
	SireID   uint64
	Reason   string
}

func (e ErrInvalidPair) Error() string {
	return fmt.Sprintf("invalid mating pair (%d, %d): %s", e.MatronID, e.SireID, e.Reason)
}

// ErrNotReady reports a creature that is gestating or still cooling down.
type ErrNotReady struct {
	ID     uint64
	Reason string
}

func (e ErrNotReady) Error() string {
	return fmt.Sprintf("creature %d not ready: %s", e.ID, e.Reason)
}

// ErrPaymentInsufficient reports a fee or bid below the required amount.
type ErrPaymentInsufficient struct {
	Required uint64
	Provided uint64
}

func (e ErrPaymentInsufficient) Error() string {
	return fmt.Sprintf("payment %d below required %d", e.Provided, e.Required)
}

// ErrCapabilityRejected reports a candidate collaborator failing its
// capability probe. The previous binding is retained unchanged.
type ErrCapabilityRejected struct {
	Role string
}

func (e ErrCapabilityRejected) Error() string {
	return fmt.Sprintf("candidate %s failed capability probe", e.Role)
}

// ErrOverflow reports an id or counter that would exceed its representable
// range. Ranges are checked explicitly rather than silently wrapping.
type ErrOverflow struct {
	What string
}

func (e ErrOverflow) Error() string {
	return fmt.Sprintf("%s would overflow", e.What)
}
