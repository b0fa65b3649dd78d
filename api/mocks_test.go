package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/service/booking"
)

const testTripKey = "trip-1"

var apiBase = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

// tripRequest builds the request every session route expects: a JSON
// body plus the trip key header the handlers scope sessions by.
func tripRequest(method, target string, payload any) *http.Request {
	var body io.Reader
	if payload != nil {
		raw, _ := json.Marshal(payload)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TripKeyHeader, testTripKey)
	return req
}

// MockFlightSessions is a mock implementation of booking.FlightSessions
type MockFlightSessions struct {
	mock.Mock
}

func (m *MockFlightSessions) Search(ctx context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlightOffer), args.Error(1)
}

func (m *MockFlightSessions) Start(ctx context.Context, key string, offer domain.FlightOffer, criteria domain.FlightCriteria) *domain.FlightSession {
	args := m.Called(ctx, key, offer, criteria)
	return args.Get(0).(*domain.FlightSession)
}

func (m *MockFlightSessions) Current(ctx context.Context, key string) *domain.FlightSession {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.FlightSession)
}

func (m *MockFlightSessions) Update(ctx context.Context, key string, patch booking.SessionPatch) (*domain.FlightSession, error) {
	args := m.Called(ctx, key, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightSession), args.Error(1)
}

func (m *MockFlightSessions) RevalidatePrice(ctx context.Context, key, paymentMode string) (*domain.RevalidationResult, error) {
	args := m.Called(ctx, key, paymentMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RevalidationResult), args.Error(1)
}

func (m *MockFlightSessions) CompleteBooking(ctx context.Context, key string, travelers []domain.Traveler, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, key, travelers, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockFlightSessions) Cancel(ctx context.Context, key string) {
	m.Called(ctx, key)
}

func (m *MockFlightSessions) Restore(ctx context.Context, key string) (*domain.FlightSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.FlightSession), args.Error(1)
}

func (m *MockFlightSessions) Reservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockFlightSessions) VoidReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationOutcome), args.Error(1)
}

// MockHotelSessions is a mock implementation of booking.HotelSessions
type MockHotelSessions struct {
	mock.Mock
}

func (m *MockHotelSessions) Search(ctx context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HotelOffer), args.Error(1)
}

func (m *MockHotelSessions) Start(ctx context.Context, key string, offer domain.HotelOffer, criteria domain.HotelCriteria) *domain.HotelSession {
	args := m.Called(ctx, key, offer, criteria)
	return args.Get(0).(*domain.HotelSession)
}

func (m *MockHotelSessions) Current(ctx context.Context, key string) *domain.HotelSession {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.HotelSession)
}

func (m *MockHotelSessions) Update(ctx context.Context, key string, patch booking.SessionPatch) (*domain.HotelSession, error) {
	args := m.Called(ctx, key, patch)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HotelSession), args.Error(1)
}

func (m *MockHotelSessions) RevalidatePrice(ctx context.Context, key, paymentMode string) (*domain.RevalidationResult, error) {
	args := m.Called(ctx, key, paymentMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RevalidationResult), args.Error(1)
}

func (m *MockHotelSessions) CompleteBooking(ctx context.Context, key string, guests []domain.Guest, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, key, guests, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockHotelSessions) Cancel(ctx context.Context, key string) {
	m.Called(ctx, key)
}

func (m *MockHotelSessions) Restore(ctx context.Context, key string) (*domain.HotelSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.HotelSession), args.Error(1)
}

func (m *MockHotelSessions) Reservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockHotelSessions) VoidReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationOutcome), args.Error(1)
}

// MockCombinedSessions is a mock implementation of booking.CombinedSessions
type MockCombinedSessions struct {
	mock.Mock
}

func (m *MockCombinedSessions) Start(ctx context.Context, key string, flight *booking.FlightSelection, hotel *booking.HotelSelection) (*domain.CombinedSession, error) {
	args := m.Called(ctx, key, flight, hotel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CombinedSession), args.Error(1)
}

func (m *MockCombinedSessions) Current(ctx context.Context, key string) *domain.CombinedSession {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil
	}
	return args.Get(0).(*domain.CombinedSession)
}

func (m *MockCombinedSessions) TotalCost(ctx context.Context, key string) int64 {
	args := m.Called(ctx, key)
	return args.Get(0).(int64)
}

func (m *MockCombinedSessions) Complete(ctx context.Context, key string, travelers []domain.Traveler, guests []domain.Guest, payment domain.PaymentInfo) (*domain.CombinedConfirmation, error) {
	args := m.Called(ctx, key, travelers, guests, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CombinedConfirmation), args.Error(1)
}

func (m *MockCombinedSessions) Cancel(ctx context.Context, key string) {
	m.Called(ctx, key)
}

func (m *MockCombinedSessions) Restore(ctx context.Context, key string) (*domain.CombinedSession, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CombinedSession), args.Error(1)
}

// MockItineraryRepo is a mock implementation of itinerary.Repository
type MockItineraryRepo struct {
	mock.Mock
}

func (m *MockItineraryRepo) Add(ctx context.Context, b domain.ItineraryBooking) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockItineraryRepo) ListByTrip(ctx context.Context, tripKey string) ([]domain.ItineraryDay, error) {
	args := m.Called(ctx, tripKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.ItineraryDay), args.Error(1)
}

func flightSelectionFixture() booking.FlightSelection {
	return booking.FlightSelection{
		Offer: domain.FlightOffer{
			OfferID:          "OF-100",
			Airline:          "SkyLux",
			FlightNumber:     "SL-431",
			Origin:           "AMS",
			Destination:      "LIS",
			DepartureTime:    time.Date(2026, 9, 10, 9, 30, 0, 0, time.UTC),
			ArrivalTime:      time.Date(2026, 9, 10, 12, 5, 0, 0, time.UTC),
			CabinClass:       "ECONOMY",
			FareSourceCode:   "FSC-100",
			OfferedFareCents: 110000,
			Currency:         "EUR",
			Refundable:       true,
		},
		Criteria: domain.FlightCriteria{
			Origin:        "AMS",
			Destination:   "LIS",
			DepartureDate: "2026-09-10",
			ReturnDate:    "2026-09-17",
			Adults:        2,
			CabinClass:    "ECONOMY",
		},
	}
}

func hotelSelectionFixture() booking.HotelSelection {
	return booking.HotelSelection{
		Offer: domain.HotelOffer{
			OfferID:         "OH-200",
			HotelName:       "Porto Azur",
			CityCode:        "LIS",
			StarRating:      4,
			RoomType:        "DOUBLE",
			MealPlan:        "BB",
			BookingCode:     "BKC-200",
			TotalPriceCents: 150000,
			Currency:        "EUR",
			Refundable:      true,
		},
		Criteria: domain.HotelCriteria{
			CityCode: "LIS",
			CheckIn:  "2026-09-10",
			CheckOut: "2026-09-13",
			Rooms:    1,
			Adults:   2,
		},
	}
}

func flightSessionFixture() *domain.FlightSession {
	sel := flightSelectionFixture()
	return &domain.FlightSession{
		SessionBase: domain.SessionBase{
			SessionID: "sess-flight-1",
			Status:    domain.StatusDetails,
			LockCode:  sel.Offer.FareSourceCode,
			CreatedAt: apiBase,
			ExpiresAt: apiBase.Add(30 * time.Minute),
		},
		Offer:    sel.Offer,
		Criteria: sel.Criteria,
	}
}

func hotelSessionFixture() *domain.HotelSession {
	sel := hotelSelectionFixture()
	return &domain.HotelSession{
		SessionBase: domain.SessionBase{
			SessionID: "sess-hotel-1",
			Status:    domain.StatusDetails,
			LockCode:  sel.Offer.BookingCode,
			CreatedAt: apiBase,
			ExpiresAt: apiBase.Add(30 * time.Minute),
		},
		Offer:    sel.Offer,
		Criteria: sel.Criteria,
	}
}

func combinedSessionFixture() *domain.CombinedSession {
	return &domain.CombinedSession{
		SessionID: "sess-combined-1",
		Legs:      domain.TripLegsFlightHotel,
		Status:    domain.StatusDetails,
		CreatedAt: apiBase,
		ExpiresAt: apiBase.Add(30 * time.Minute),
	}
}

func flightConfirmationFixture() *domain.BookingConfirmation {
	return &domain.BookingConfirmation{
		ConfirmationNumber: "PNR-771",
		ProviderRef:        "TB-REF-771",
		Resource:           domain.ResourceFlight,
		TotalCents:         110000,
		Currency:           "EUR",
		BookedAt:           apiBase,
		ProviderStatus:     "CONFIRMED",
	}
}

func hotelConfirmationFixture() *domain.BookingConfirmation {
	return &domain.BookingConfirmation{
		ConfirmationNumber: "HB-5521",
		ProviderRef:        "HREF-5521",
		Resource:           domain.ResourceHotel,
		TotalCents:         150000,
		Currency:           "EUR",
		BookedAt:           apiBase,
		ProviderStatus:     "CONFIRMED",
		VoucherRef:         "VCH-5521",
	}
}
