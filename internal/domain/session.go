package domain

import (
	"errors"
	"time"
)

type ResourceType string

const (
	ResourceFlight ResourceType = "flight"
	ResourceHotel  ResourceType = "hotel"
)

type SessionStatus string

const (
	StatusDetails      SessionStatus = "DETAILS"
	StatusGuestDetails SessionStatus = "GUEST_DETAILS"
	StatusPayment      SessionStatus = "PAYMENT"
	StatusConfirming   SessionStatus = "CONFIRMING"
	StatusConfirmed    SessionStatus = "CONFIRMED"
	StatusCancelled    SessionStatus = "CANCELLED"
	StatusExpired      SessionStatus = "EXPIRED"
)

var stageOrder = []SessionStatus{
	StatusDetails,
	StatusGuestDetails,
	StatusPayment,
	StatusConfirming,
	StatusConfirmed,
}

func (s SessionStatus) Rank() int {
	for i, st := range stageOrder {
		if st == s {
			return i
		}
	}
	return -1
}

func StatusAtRank(rank int) SessionStatus {
	if rank < 0 || rank >= len(stageOrder) {
		return StatusDetails
	}
	return stageOrder[rank]
}

func (s SessionStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusCancelled || s == StatusExpired
}

// Expired is the single liveness predicate for every session kind.
// A session expires strictly after its deadline: a read at exactly
// ExpiresAt still sees it live.
func Expired(expiresAt, now time.Time) bool {
	return now.After(expiresAt)
}

type SessionBase struct {
	SessionID    string              `json:"session_id"`
	Status       SessionStatus       `json:"status"`
	LockCode     string              `json:"lock_code"`
	Revalidation *RevalidationResult `json:"revalidation,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	ExpiresAt    time.Time           `json:"expires_at"`
}

func (b *SessionBase) Expired(now time.Time) bool {
	return Expired(b.ExpiresAt, now)
}

type TripLegs string

const (
	TripLegsFlight      TripLegs = "FLIGHT"
	TripLegsHotel       TripLegs = "HOTEL"
	TripLegsFlightHotel TripLegs = "FLIGHT_HOTEL"
)

var ErrNoLegs = errors.New("a combined trip needs at least one leg")

func NewTripLegs(hasFlight, hasHotel bool) (TripLegs, error) {
	switch {
	case hasFlight && hasHotel:
		return TripLegsFlightHotel, nil
	case hasFlight:
		return TripLegsFlight, nil
	case hasHotel:
		return TripLegsHotel, nil
	default:
		return "", ErrNoLegs
	}
}

func (l TripLegs) HasFlight() bool {
	return l == TripLegsFlight || l == TripLegsFlightHotel
}

func (l TripLegs) HasHotel() bool {
	return l == TripLegsHotel || l == TripLegsFlightHotel
}

type CombinedSession struct {
	SessionID string        `json:"session_id"`
	Legs      TripLegs      `json:"legs"`
	Status    SessionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`

	// Confirmations of legs already finalized, kept so a retry after a
	// partial completion does not book the same leg twice.
	FlightConfirmation *BookingConfirmation `json:"flight_confirmation,omitempty"`
	HotelConfirmation  *BookingConfirmation `json:"hotel_confirmation,omitempty"`
}

func (s *CombinedSession) Expired(now time.Time) bool {
	return Expired(s.ExpiresAt, now)
}
