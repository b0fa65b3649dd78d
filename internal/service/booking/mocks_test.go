package booking

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/voyago/tripbooking/internal/domain"
)

var testBase = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type MockFlightProvider struct {
	mock.Mock
}

func (m *MockFlightProvider) Search(ctx context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FlightOffer), args.Error(1)
}

func (m *MockFlightProvider) Revalidate(ctx context.Context, fareSourceCode, paymentMode string) (*domain.RevalidationResult, error) {
	args := m.Called(ctx, fareSourceCode, paymentMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RevalidationResult), args.Error(1)
}

func (m *MockFlightProvider) CreateReservation(ctx context.Context, fareSourceCode string, travelers []domain.Traveler, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, fareSourceCode, travelers, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockFlightProvider) GetReservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockFlightProvider) CancelReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationOutcome), args.Error(1)
}

type MockHotelProvider struct {
	mock.Mock
}

func (m *MockHotelProvider) Search(ctx context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.HotelOffer), args.Error(1)
}

func (m *MockHotelProvider) Revalidate(ctx context.Context, bookingCode, paymentMode string) (*domain.RevalidationResult, error) {
	args := m.Called(ctx, bookingCode, paymentMode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RevalidationResult), args.Error(1)
}

func (m *MockHotelProvider) CreateReservation(ctx context.Context, bookingCode string, guests []domain.Guest, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, bookingCode, guests, payment)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockHotelProvider) GetReservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.BookingConfirmation), args.Error(1)
}

func (m *MockHotelProvider) CancelReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	args := m.Called(ctx, providerRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.CancellationOutcome), args.Error(1)
}

// The store fakes round-trip every record through JSON the way the real
// store does, so a loaded session never aliases the one that was saved.
// Expiry timers touch them from their own goroutines, hence the mutex.

type fakeFlightStore struct {
	mu      sync.Mutex
	records map[string][]byte
	saveErr error
	loadErr error
}

func newFakeFlightStore() *fakeFlightStore {
	return &fakeFlightStore{records: make(map[string][]byte)}
}

func (s *fakeFlightStore) SaveFlightSession(ctx context.Context, key string, sess *domain.FlightSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.records[key] = raw
	return nil
}

func (s *fakeFlightStore) LoadFlightSession(ctx context.Context, key string) (*domain.FlightSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	raw, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	var sess domain.FlightSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *fakeFlightStore) DeleteFlightSession(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *fakeFlightStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok
}

type fakeHotelStore struct {
	mu      sync.Mutex
	records map[string][]byte
	saveErr error
	loadErr error
}

func newFakeHotelStore() *fakeHotelStore {
	return &fakeHotelStore{records: make(map[string][]byte)}
}

func (s *fakeHotelStore) SaveHotelSession(ctx context.Context, key string, sess *domain.HotelSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.records[key] = raw
	return nil
}

func (s *fakeHotelStore) LoadHotelSession(ctx context.Context, key string) (*domain.HotelSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	raw, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	var sess domain.HotelSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *fakeHotelStore) DeleteHotelSession(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *fakeHotelStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok
}

type fakeCombinedStore struct {
	mu      sync.Mutex
	records map[string][]byte
	saveErr error
	loadErr error
}

func newFakeCombinedStore() *fakeCombinedStore {
	return &fakeCombinedStore{records: make(map[string][]byte)}
}

func (s *fakeCombinedStore) SaveCombinedSession(ctx context.Context, key string, sess *domain.CombinedSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	raw, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	s.records[key] = raw
	return nil
}

func (s *fakeCombinedStore) LoadCombinedSession(ctx context.Context, key string) (*domain.CombinedSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	raw, ok := s.records[key]
	if !ok {
		return nil, nil
	}
	var sess domain.CombinedSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *fakeCombinedStore) DeleteCombinedSession(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *fakeCombinedStore) has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[key]
	return ok
}

type fakeFlightCache struct {
	mu     sync.Mutex
	offers map[string][]domain.FlightOffer
}

func newFakeFlightCache() *fakeFlightCache {
	return &fakeFlightCache{offers: make(map[string][]domain.FlightOffer)}
}

func (c *fakeFlightCache) GetFlightOffers(ctx context.Context, fingerprint string) ([]domain.FlightOffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offers[fingerprint], nil
}

func (c *fakeFlightCache) SetFlightOffers(ctx context.Context, fingerprint string, offers []domain.FlightOffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers[fingerprint] = offers
	return nil
}

func (c *fakeFlightCache) entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.offers)
}

type fakeHotelCache struct {
	mu     sync.Mutex
	offers map[string][]domain.HotelOffer
}

func newFakeHotelCache() *fakeHotelCache {
	return &fakeHotelCache{offers: make(map[string][]domain.HotelOffer)}
}

func (c *fakeHotelCache) GetHotelOffers(ctx context.Context, fingerprint string) ([]domain.HotelOffer, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.offers[fingerprint], nil
}

func (c *fakeHotelCache) SetHotelOffers(ctx context.Context, fingerprint string, offers []domain.HotelOffer) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.offers[fingerprint] = offers
	return nil
}

func (c *fakeHotelCache) entries() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.offers)
}

// fakeRecorder hands recorded bookings over a channel because the
// managers record from a goroutine after the session is already gone.
type fakeRecorder struct {
	mu       sync.Mutex
	err      error
	bookings chan domain.ItineraryBooking
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{bookings: make(chan domain.ItineraryBooking, 8)}
}

func (r *fakeRecorder) AddBooking(ctx context.Context, b domain.ItineraryBooking) error {
	r.mu.Lock()
	err := r.err
	r.mu.Unlock()
	if err != nil {
		return err
	}
	r.bookings <- b
	return nil
}

func (r *fakeRecorder) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *fakeRecorder) wait(t *testing.T) domain.ItineraryBooking {
	t.Helper()
	select {
	case b := <-r.bookings:
		return b
	case <-time.After(2 * time.Second):
		t.Fatal("no itinerary booking recorded")
		return domain.ItineraryBooking{}
	}
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(t time.Time) *fakeClock {
	return &fakeClock{t: t}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func waitEvent(t *testing.T, events *Events, kind EventKind) Event {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case ev := <-events.C():
			if ev.Kind == kind {
				return ev
			}
		case <-deadline:
			t.Fatalf("no %s event observed", kind)
			return Event{}
		}
	}
}

func testFlightCriteria() domain.FlightCriteria {
	return domain.FlightCriteria{
		Origin:        "AMS",
		Destination:   "LIS",
		DepartureDate: "2026-09-10",
		ReturnDate:    "2026-09-17",
		Adults:        2,
		CabinClass:    "ECONOMY",
	}
}

func testFlightOffer() domain.FlightOffer {
	return domain.FlightOffer{
		OfferID:          "OF-100",
		Airline:          "SkyLux",
		FlightNumber:     "SL-431",
		Origin:           "AMS",
		Destination:      "LIS",
		DepartureTime:    time.Date(2026, 9, 10, 8, 30, 0, 0, time.UTC),
		ArrivalTime:      time.Date(2026, 9, 10, 11, 5, 0, 0, time.UTC),
		CabinClass:       "ECONOMY",
		FareSourceCode:   "FSC-100",
		OfferedFareCents: 110000,
		Currency:         "EUR",
		Refundable:       true,
	}
}

func testHotelCriteria() domain.HotelCriteria {
	return domain.HotelCriteria{
		CityCode: "LIS",
		CheckIn:  "2026-09-10",
		CheckOut: "2026-09-13",
		Rooms:    1,
		Adults:   2,
	}
}

func testHotelOffer() domain.HotelOffer {
	return domain.HotelOffer{
		OfferID:         "OH-200",
		HotelName:       "Porto Azur",
		CityCode:        "LIS",
		StarRating:      4,
		RoomType:        "Deluxe King",
		MealPlan:        "BB",
		BookingCode:     "BKC-200",
		TotalPriceCents: 150000,
		Currency:        "EUR",
		Refundable:      true,
	}
}

func testTravelers() []domain.Traveler {
	return []domain.Traveler{
		{Title: "MR", FirstName: "Jonas", LastName: "Verheij", DateOfBirth: "1988-04-12"},
	}
}

func testGuests() []domain.Guest {
	return []domain.Guest{
		{Title: "MS", FirstName: "Ana", LastName: "Duarte"},
	}
}

func testPayment() domain.PaymentInfo {
	return domain.PaymentInfo{
		Method:    domain.PaymentMethodCard,
		CardToken: "tok_4242",
		Email:     "jonas@example.com",
	}
}
