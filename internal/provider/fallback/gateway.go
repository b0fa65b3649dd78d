package fallback

import (
	"context"
	"fmt"

	"github.com/voyago/tripbooking/internal/domain"
)

// FlightGateway exposes the synthesizer through the same surface as the
// live flight provider so the engine can run fully offline. Bookings
// made through it are synthetic end to end and tagged as such.
type FlightGateway struct {
	s *Synthesizer
}

func NewFlightGateway(s *Synthesizer) *FlightGateway {
	return &FlightGateway{s: s}
}

func (g *FlightGateway) Search(_ context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error) {
	return g.s.FlightOffers(criteria), nil
}

func (g *FlightGateway) Revalidate(_ context.Context, fareSourceCode, _ string) (*domain.RevalidationResult, error) {
	return g.s.FlightRevalidation(fareSourceCode, 0, ""), nil
}

func (g *FlightGateway) CreateReservation(_ context.Context, fareSourceCode string, travelers []domain.Traveler, _ domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	return g.s.FlightConfirmation(fareSourceCode, travelers), nil
}

func (g *FlightGateway) GetReservation(_ context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	conf, ok := g.s.Reservation(providerRef)
	if !ok {
		return nil, fmt.Errorf("reservation %s not found", providerRef)
	}
	return conf, nil
}

func (g *FlightGateway) CancelReservation(_ context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	return g.s.Cancellation(providerRef), nil
}

type HotelGateway struct {
	s *Synthesizer
}

func NewHotelGateway(s *Synthesizer) *HotelGateway {
	return &HotelGateway{s: s}
}

func (g *HotelGateway) Search(_ context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error) {
	return g.s.HotelOffers(criteria), nil
}

func (g *HotelGateway) Revalidate(_ context.Context, bookingCode, _ string) (*domain.RevalidationResult, error) {
	return g.s.HotelRevalidation(bookingCode, 0, ""), nil
}

func (g *HotelGateway) CreateReservation(_ context.Context, bookingCode string, guests []domain.Guest, _ domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	return g.s.HotelConfirmation(bookingCode, guests), nil
}

func (g *HotelGateway) GetReservation(_ context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	conf, ok := g.s.Reservation(providerRef)
	if !ok {
		return nil, fmt.Errorf("reservation %s not found", providerRef)
	}
	return conf, nil
}

func (g *HotelGateway) CancelReservation(_ context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	return g.s.Cancellation(providerRef), nil
}
