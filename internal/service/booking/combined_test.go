package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/provider/fallback"
)

type combinedFixture struct {
	clock          *fakeClock
	flightProvider *MockFlightProvider
	hotelProvider  *MockHotelProvider
	flightStore    *fakeFlightStore
	hotelStore     *fakeHotelStore
	combinedStore  *fakeCombinedStore
	recorder       *fakeRecorder
	events         *Events
	flights        *FlightSessionManager
	hotels         *HotelSessionManager
	combined       *CombinedOrchestrator
}

func newCombinedFixture() *combinedFixture {
	f := &combinedFixture{
		clock:          newFakeClock(testBase),
		flightProvider: new(MockFlightProvider),
		hotelProvider:  new(MockHotelProvider),
		flightStore:    newFakeFlightStore(),
		hotelStore:     newFakeHotelStore(),
		combinedStore:  newFakeCombinedStore(),
		recorder:       newFakeRecorder(),
		events:         NewEvents(16),
	}
	f.build()
	return f
}

func (f *combinedFixture) build() {
	synth := fallback.NewSynthesizer(1)
	f.flights = NewFlightSessionManager(
		f.flightProvider, synth, f.flightStore, nil, f.recorder, f.events, zerolog.Nop(), WithClock(f.clock.Now))
	f.hotels = NewHotelSessionManager(
		f.hotelProvider, synth, f.hotelStore, nil, f.recorder, f.events, zerolog.Nop(), WithClock(f.clock.Now))
	f.combined = NewCombinedOrchestrator(
		f.flights, f.hotels, f.combinedStore, f.events, zerolog.Nop(), WithClock(f.clock.Now))
}

// revive swaps in fresh managers over the same stores and clock, the
// shape of a process restart.
func (f *combinedFixture) revive() {
	f.flightProvider = new(MockFlightProvider)
	f.hotelProvider = new(MockHotelProvider)
	f.build()
}

func (f *combinedFixture) revalidateBoth(t *testing.T, ctx context.Context, key string) {
	t.Helper()
	f.flightProvider.On("Revalidate", mock.Anything, "FSC-100", "").Return(&domain.RevalidationResult{
		Available:    true,
		CurrentCents: 110000,
		Currency:     "EUR",
		LockCode:     "FSC-101",
	}, nil).Once()
	f.hotelProvider.On("Revalidate", mock.Anything, "BKC-200", "").Return(&domain.RevalidationResult{
		Available:    true,
		CurrentCents: 150000,
		Currency:     "EUR",
		LockCode:     "BKC-201",
	}, nil).Once()
	_, err := f.flights.RevalidatePrice(ctx, key, "")
	require.NoError(t, err)
	_, err = f.hotels.RevalidatePrice(ctx, key, "")
	require.NoError(t, err)
}

func testFlightSelection() *FlightSelection {
	return &FlightSelection{Offer: testFlightOffer(), Criteria: testFlightCriteria()}
}

func testHotelSelection() *HotelSelection {
	return &HotelSelection{Offer: testHotelOffer(), Criteria: testHotelCriteria()}
}

func TestCombinedStartRequiresAtLeastOneLeg(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, domain.ErrNoLegs)
}

func TestCombinedStartOpensLegSessions(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	sess, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	assert.Equal(t, domain.TripLegsFlightHotel, sess.Legs)
	assert.Equal(t, domain.StatusDetails, sess.Status)
	assert.True(t, sess.ExpiresAt.Equal(testBase.Add(DefaultSessionTTL)))

	assert.NotNil(t, f.flights.Current(ctx, "trip-1"))
	assert.NotNil(t, f.hotels.Current(ctx, "trip-1"))
	assert.NotNil(t, f.combined.Current(ctx, "trip-1"))
	assert.True(t, f.combinedStore.has("trip-1"))
	assert.True(t, f.flightStore.has("trip-1"))
	assert.True(t, f.hotelStore.has("trip-1"))
}

func TestCombinedFlightOnlyJourney(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	sess, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), nil)
	require.NoError(t, err)
	assert.Equal(t, domain.TripLegsFlight, sess.Legs)
	assert.Nil(t, f.hotels.Current(ctx, "trip-1"))
	assert.Equal(t, int64(110000), f.combined.TotalCost(ctx, "trip-1"))

	f.flightProvider.On("Revalidate", mock.Anything, "FSC-100", "").Return(&domain.RevalidationResult{
		Available:    true,
		CurrentCents: 110000,
		Currency:     "EUR",
	}, nil).Once()
	f.flightProvider.On("CreateReservation", mock.Anything, "FSC-100", testTravelers(), testPayment()).Return(&domain.BookingConfirmation{
		ConfirmationNumber: "PNR-771",
		ProviderRef:        "TB-REF-771",
		TotalCents:         110000,
		Currency:           "EUR",
	}, nil).Once()

	_, err = f.flights.RevalidatePrice(ctx, "trip-1", "")
	require.NoError(t, err)

	conf, err := f.combined.Complete(ctx, "trip-1", testTravelers(), nil, testPayment())
	require.NoError(t, err)
	require.NotNil(t, conf.Flight)
	assert.Nil(t, conf.Hotel)
	assert.Equal(t, int64(110000), conf.TotalCents)
	assert.Nil(t, f.combined.Current(ctx, "trip-1"))
	f.flightProvider.AssertExpectations(t)
}

func TestCombinedTotalCostTracksRevalidatedPrices(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	assert.Zero(t, f.combined.TotalCost(ctx, "trip-1"))

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	assert.Equal(t, int64(260000), f.combined.TotalCost(ctx, "trip-1"))

	f.flightProvider.On("Revalidate", mock.Anything, "FSC-100", "").Return(&domain.RevalidationResult{
		Available:    true,
		CurrentCents: 120000,
		Currency:     "EUR",
		LockCode:     "FSC-101",
	}, nil).Once()
	_, err = f.flights.RevalidatePrice(ctx, "trip-1", "")
	require.NoError(t, err)

	assert.Equal(t, int64(270000), f.combined.TotalCost(ctx, "trip-1"))
}

func TestCombinedStatusFollowsSlowestLeg(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDetails, f.combined.Current(ctx, "trip-1").Status)

	_, err = f.flights.Update(ctx, "trip-1", SessionPatch{Status: domain.StatusPayment})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDetails, f.combined.Current(ctx, "trip-1").Status,
		"the journey only moves as fast as its slowest leg")

	_, err = f.hotels.Update(ctx, "trip-1", SessionPatch{Status: domain.StatusGuestDetails})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusGuestDetails, f.combined.Current(ctx, "trip-1").Status)

	_, err = f.hotels.Update(ctx, "trip-1", SessionPatch{Status: domain.StatusPayment})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPayment, f.combined.Current(ctx, "trip-1").Status)

	stored, err := f.combinedStore.LoadCombinedSession(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, domain.StatusPayment, stored.Status)
}

func TestCombinedCompleteBooksBothLegs(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	f.revalidateBoth(t, ctx, "trip-1")

	f.flightProvider.On("CreateReservation", mock.Anything, "FSC-101", testTravelers(), testPayment()).Return(&domain.BookingConfirmation{
		ConfirmationNumber: "PNR-771",
		ProviderRef:        "TB-REF-771",
		TotalCents:         110000,
		Currency:           "EUR",
	}, nil).Once()
	f.hotelProvider.On("CreateReservation", mock.Anything, "BKC-201", testGuests(), testPayment()).Return(&domain.BookingConfirmation{
		ConfirmationNumber: "HB-5521",
		ProviderRef:        "TB-HREF-5521",
		TotalCents:         150000,
		Currency:           "EUR",
	}, nil).Once()

	conf, err := f.combined.Complete(ctx, "trip-1", testTravelers(), testGuests(), testPayment())
	require.NoError(t, err)
	require.NotNil(t, conf.Flight)
	require.NotNil(t, conf.Hotel)
	assert.Equal(t, "PNR-771", conf.Flight.ConfirmationNumber)
	assert.Equal(t, "HB-5521", conf.Hotel.ConfirmationNumber)
	assert.Equal(t, int64(260000), conf.TotalCents)
	assert.Equal(t, "EUR", conf.Currency)

	assert.Nil(t, f.combined.Current(ctx, "trip-1"))
	assert.Nil(t, f.flights.Current(ctx, "trip-1"))
	assert.Nil(t, f.hotels.Current(ctx, "trip-1"))
	assert.False(t, f.combinedStore.has("trip-1"))

	first := f.recorder.wait(t)
	second := f.recorder.wait(t)
	assert.ElementsMatch(t,
		[]domain.ResourceType{domain.ResourceFlight, domain.ResourceHotel},
		[]domain.ResourceType{first.Resource, second.Resource})

	f.flightProvider.AssertExpectations(t)
	f.hotelProvider.AssertExpectations(t)
}

func TestCombinedCompleteFailsFastWithoutRevalidation(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)

	_, err = f.combined.Complete(ctx, "trip-1", testTravelers(), testGuests(), testPayment())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRevalidationRequired)

	sess := f.combined.Current(ctx, "trip-1")
	require.NotNil(t, sess, "a refused completion leaves the journey intact")
	assert.Equal(t, domain.StatusDetails, sess.Status)
	assert.NotNil(t, f.flights.Current(ctx, "trip-1"))
	assert.NotNil(t, f.hotels.Current(ctx, "trip-1"))
}

func TestCombinedHotelFailureVoidsFreshFlight(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	f.revalidateBoth(t, ctx, "trip-1")

	f.flightProvider.On("CreateReservation", mock.Anything, "FSC-101", testTravelers(), testPayment()).Return(&domain.BookingConfirmation{
		ConfirmationNumber: "PNR-771",
		ProviderRef:        "TB-REF-771",
		TotalCents:         110000,
		Currency:           "EUR",
	}, nil).Once()
	f.hotelProvider.On("CreateReservation", mock.Anything, "BKC-201", testGuests(), testPayment()).
		Return(nil, errors.New("sold out")).Once()
	f.flightProvider.On("CancelReservation", mock.Anything, "TB-REF-771").Return(&domain.CancellationOutcome{
		ProviderRef: "TB-REF-771",
		Status:      "CANCELLED",
	}, nil).Once()

	_, err = f.combined.Complete(ctx, "trip-1", testTravelers(), testGuests(), testPayment())
	require.Error(t, err)

	var pe *PartialCompletionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, domain.ResourceHotel, pe.FailedLeg)
	assert.True(t, pe.Compensated)
	assert.NoError(t, pe.CompensationErr)
	require.NotNil(t, pe.Flight)
	assert.Equal(t, "PNR-771", pe.Flight.ConfirmationNumber)
	assert.ErrorIs(t, err, ErrProviderFailure)

	ev := waitEvent(t, f.events, EventCompensationApplied)
	assert.Equal(t, "TB-REF-771", ev.Ref)

	sess := f.combined.Current(ctx, "trip-1")
	require.NotNil(t, sess)
	assert.Nil(t, sess.FlightConfirmation, "a voided flight must not survive as a stashed confirmation")
	assert.Nil(t, f.flights.Current(ctx, "trip-1"))
	assert.NotNil(t, f.hotels.Current(ctx, "trip-1"))

	f.flightProvider.AssertExpectations(t)
	f.hotelProvider.AssertExpectations(t)
}

func TestCombinedRetryAfterFailedVoidBooksOnlyHotel(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	f.revalidateBoth(t, ctx, "trip-1")

	// The single flight reservation expectation spans both attempts: a
	// retry must not ticket the flight twice.
	f.flightProvider.On("CreateReservation", mock.Anything, "FSC-101", testTravelers(), testPayment()).Return(&domain.BookingConfirmation{
		ConfirmationNumber: "PNR-771",
		ProviderRef:        "TB-REF-771",
		TotalCents:         110000,
		Currency:           "EUR",
	}, nil).Once()
	f.hotelProvider.On("CreateReservation", mock.Anything, "BKC-201", testGuests(), testPayment()).
		Return(nil, errors.New("allotment conflict")).Once()
	f.hotelProvider.On("CreateReservation", mock.Anything, "BKC-201", testGuests(), testPayment()).Return(&domain.BookingConfirmation{
		ConfirmationNumber: "HB-5521",
		ProviderRef:        "TB-HREF-5521",
		TotalCents:         150000,
		Currency:           "EUR",
	}, nil).Once()
	f.flightProvider.On("CancelReservation", mock.Anything, "TB-REF-771").
		Return(nil, errors.New("void window closed")).Once()

	_, err = f.combined.Complete(ctx, "trip-1", testTravelers(), testGuests(), testPayment())
	require.Error(t, err)

	var pe *PartialCompletionError
	require.ErrorAs(t, err, &pe)
	assert.False(t, pe.Compensated)
	assert.Error(t, pe.CompensationErr)
	require.NotNil(t, pe.Flight)

	ev := waitEvent(t, f.events, EventCompensationFailed)
	assert.Equal(t, "TB-REF-771", ev.Ref)

	sess := f.combined.Current(ctx, "trip-1")
	require.NotNil(t, sess)
	require.NotNil(t, sess.FlightConfirmation, "an unvoided flight stays stashed for the retry")
	assert.Equal(t, "PNR-771", sess.FlightConfirmation.ConfirmationNumber)

	conf, err := f.combined.Complete(ctx, "trip-1", testTravelers(), testGuests(), testPayment())
	require.NoError(t, err)
	require.NotNil(t, conf.Flight)
	require.NotNil(t, conf.Hotel)
	assert.Equal(t, "PNR-771", conf.Flight.ConfirmationNumber)
	assert.Equal(t, "HB-5521", conf.Hotel.ConfirmationNumber)
	assert.Equal(t, int64(260000), conf.TotalCents)
	assert.Nil(t, f.combined.Current(ctx, "trip-1"))

	f.flightProvider.AssertExpectations(t)
	f.hotelProvider.AssertExpectations(t)
}

func TestCombinedCancelCascades(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)

	f.combined.Cancel(ctx, "trip-1")
	assert.Nil(t, f.combined.Current(ctx, "trip-1"))
	assert.Nil(t, f.flights.Current(ctx, "trip-1"))
	assert.Nil(t, f.hotels.Current(ctx, "trip-1"))
	assert.False(t, f.combinedStore.has("trip-1"))
	assert.False(t, f.flightStore.has("trip-1"))
	assert.False(t, f.hotelStore.has("trip-1"))

	f.combined.Cancel(ctx, "trip-1")
}

func TestCombinedExpiryCascades(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTTL + time.Minute)
	assert.Nil(t, f.combined.Current(ctx, "trip-1"))
	assert.Nil(t, f.flights.Current(ctx, "trip-1"))
	assert.Nil(t, f.hotels.Current(ctx, "trip-1"))
	assert.False(t, f.combinedStore.has("trip-1"))

	waitEvent(t, f.events, EventSessionExpired)
}

func TestCombinedRestoreRebuildsWholeJourney(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	started, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)
	_, err = f.flights.Update(ctx, "trip-1", SessionPatch{Status: domain.StatusPayment})
	require.NoError(t, err)

	f.revive()

	restored, err := f.combined.Restore(ctx, "trip-1")
	require.NoError(t, err)
	require.NotNil(t, restored)
	assert.Equal(t, started.SessionID, restored.SessionID)

	flightLeg := f.flights.Current(ctx, "trip-1")
	require.NotNil(t, flightLeg)
	assert.Equal(t, domain.StatusPayment, flightLeg.Status)
	assert.NotNil(t, f.hotels.Current(ctx, "trip-1"))
}

func TestCombinedRestoreExpiredJourneySweepsLegs(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	_, err := f.combined.Start(ctx, "trip-1", testFlightSelection(), testHotelSelection())
	require.NoError(t, err)

	f.clock.Advance(DefaultSessionTTL + time.Minute)
	f.revive()

	restored, err := f.combined.Restore(ctx, "trip-1")
	require.NoError(t, err)
	assert.Nil(t, restored)
	assert.False(t, f.combinedStore.has("trip-1"))
	assert.False(t, f.flightStore.has("trip-1"))
	assert.False(t, f.hotelStore.has("trip-1"))

	waitEvent(t, f.events, EventSessionExpired)
}

func TestCombinedRestoreWithoutRecord(t *testing.T) {
	ctx := context.Background()
	f := newCombinedFixture()

	restored, err := f.combined.Restore(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, restored)
}
