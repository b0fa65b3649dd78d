package booking

import (
	"context"
	"time"

	"github.com/voyago/tripbooking/internal/domain"
)

const (
	DefaultSessionTTL = 30 * time.Minute

	storeOpTimeout = 5 * time.Second
)

type FlightProvider interface {
	Search(ctx context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error)
	Revalidate(ctx context.Context, fareSourceCode, paymentMode string) (*domain.RevalidationResult, error)
	CreateReservation(ctx context.Context, fareSourceCode string, travelers []domain.Traveler, payment domain.PaymentInfo) (*domain.BookingConfirmation, error)
	GetReservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error)
	CancelReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error)
}

type HotelProvider interface {
	Search(ctx context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error)
	Revalidate(ctx context.Context, bookingCode, paymentMode string) (*domain.RevalidationResult, error)
	CreateReservation(ctx context.Context, bookingCode string, guests []domain.Guest, payment domain.PaymentInfo) (*domain.BookingConfirmation, error)
	GetReservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error)
	CancelReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error)
}

type FlightSessionStore interface {
	SaveFlightSession(ctx context.Context, key string, s *domain.FlightSession) error
	LoadFlightSession(ctx context.Context, key string) (*domain.FlightSession, error)
	DeleteFlightSession(ctx context.Context, key string) error
}

type HotelSessionStore interface {
	SaveHotelSession(ctx context.Context, key string, s *domain.HotelSession) error
	LoadHotelSession(ctx context.Context, key string) (*domain.HotelSession, error)
	DeleteHotelSession(ctx context.Context, key string) error
}

type CombinedSessionStore interface {
	SaveCombinedSession(ctx context.Context, key string, s *domain.CombinedSession) error
	LoadCombinedSession(ctx context.Context, key string) (*domain.CombinedSession, error)
	DeleteCombinedSession(ctx context.Context, key string) error
}

type FlightSearchCache interface {
	GetFlightOffers(ctx context.Context, fingerprint string) ([]domain.FlightOffer, error)
	SetFlightOffers(ctx context.Context, fingerprint string, offers []domain.FlightOffer) error
}

type HotelSearchCache interface {
	GetHotelOffers(ctx context.Context, fingerprint string) ([]domain.HotelOffer, error)
	SetHotelOffers(ctx context.Context, fingerprint string, offers []domain.HotelOffer) error
}

type ItineraryRecorder interface {
	AddBooking(ctx context.Context, b domain.ItineraryBooking) error
}

type SessionPatch struct {
	Status domain.SessionStatus `json:"status"`
}

type FlightSelection struct {
	Offer    domain.FlightOffer    `json:"offer"`
	Criteria domain.FlightCriteria `json:"criteria"`
}

type HotelSelection struct {
	Offer    domain.HotelOffer    `json:"offer"`
	Criteria domain.HotelCriteria `json:"criteria"`
}

type settings struct {
	ttl           time.Duration
	now           func() time.Time
	recordTimeout time.Duration
}

func defaultSettings() settings {
	return settings{
		ttl:           DefaultSessionTTL,
		now:           time.Now,
		recordTimeout: 5 * time.Second,
	}
}

type Option func(*settings)

func WithTTL(ttl time.Duration) Option {
	return func(s *settings) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}
