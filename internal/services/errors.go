package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrLinkNotFound is returned when an account has no referral link
	ErrLinkNotFound = errors.New("referral link not found")

	// ErrEntryNotFound is returned when a conversion entry does not exist
	ErrEntryNotFound = errors.New("conversion entry not found")

	// ErrPayoutNotFound is returned when a payout does not exist
	ErrPayoutNotFound = errors.New("payout not found")

	// ErrInvalidTransition is returned when a status change is requested
	// against a terminal or incompatible state
	ErrInvalidTransition = errors.New("invalid status transition")
)

// InsufficientBalanceError is returned when a payout is requested below the
// configured minimum. It carries the figures the caller needs for display.
type InsufficientBalanceError struct {
	Available decimal.Decimal
	Minimum   decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("available balance %s is below the minimum payout amount %s",
		e.Available.StringFixed(2), e.Minimum.StringFixed(2))
}
