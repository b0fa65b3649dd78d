package booking

import (
	"errors"
	"fmt"

	"github.com/voyago/tripbooking/internal/domain"
)

var (
	ErrNoActiveSession      = errors.New("no active booking session")
	ErrSessionExpired       = errors.New("booking session has expired")
	ErrRevalidationRequired = errors.New("price must be revalidated before completing the booking")
	ErrResourceUnavailable  = errors.New("the selected offer can no longer be booked")
	ErrProviderFailure      = errors.New("provider request failed")
	ErrValidation           = errors.New("validation failed")
)

// PartialCompletionError reports a combined completion that booked the
// flight leg and then failed on the hotel leg. Compensated tells the
// caller whether the flight reservation was voided; when it was not,
// Flight still points at a live reservation the caller has to deal with.
type PartialCompletionError struct {
	FailedLeg       domain.ResourceType
	Err             error
	Compensated     bool
	CompensationErr error
	Flight          *domain.BookingConfirmation
}

func (e *PartialCompletionError) Error() string {
	msg := fmt.Sprintf("combined completion failed on %s leg: %v", e.FailedLeg, e.Err)
	if e.Flight == nil {
		return msg
	}
	if e.Compensated {
		return fmt.Sprintf("%s (flight reservation %s voided)", msg, e.Flight.ProviderRef)
	}
	return fmt.Sprintf("%s (flight reservation %s NOT voided: %v)", msg, e.Flight.ProviderRef, e.CompensationErr)
}

func (e *PartialCompletionError) Unwrap() error {
	return e.Err
}
