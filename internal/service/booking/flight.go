package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voyago/tripbooking/internal/domain"
	"github.com/voyago/tripbooking/internal/provider/fallback"
)

type FlightSessions interface {
	Search(ctx context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error)
	Start(ctx context.Context, key string, offer domain.FlightOffer, criteria domain.FlightCriteria) *domain.FlightSession
	Current(ctx context.Context, key string) *domain.FlightSession
	Update(ctx context.Context, key string, patch SessionPatch) (*domain.FlightSession, error)
	RevalidatePrice(ctx context.Context, key, paymentMode string) (*domain.RevalidationResult, error)
	CompleteBooking(ctx context.Context, key string, travelers []domain.Traveler, payment domain.PaymentInfo) (*domain.BookingConfirmation, error)
	Cancel(ctx context.Context, key string)
	Restore(ctx context.Context, key string) (*domain.FlightSession, error)
	Reservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error)
	VoidReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error)
}

type flightSlot struct {
	session *domain.FlightSession
	timer   *time.Timer
}

type FlightSessionManager struct {
	settings
	provider FlightProvider
	synth    *fallback.Synthesizer
	store    FlightSessionStore
	cache    FlightSearchCache
	recorder ItineraryRecorder
	events   *Events
	log      zerolog.Logger

	mu    sync.Mutex
	slots map[string]*flightSlot
}

func NewFlightSessionManager(
	provider FlightProvider,
	synth *fallback.Synthesizer,
	store FlightSessionStore,
	cache FlightSearchCache,
	recorder ItineraryRecorder,
	events *Events,
	log zerolog.Logger,
	opts ...Option,
) *FlightSessionManager {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &FlightSessionManager{
		settings: s,
		provider: provider,
		synth:    synth,
		store:    store,
		cache:    cache,
		recorder: recorder,
		events:   events,
		log:      log.With().Str("component", "flight_sessions").Logger(),
		slots:    make(map[string]*flightSlot),
	}
}

func (m *FlightSessionManager) Search(ctx context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error) {
	if err := validateFlightCriteria(criteria, m.now()); err != nil {
		return nil, err
	}
	fp := flightCriteriaKey(criteria)
	if m.cache != nil {
		if offers, err := m.cache.GetFlightOffers(ctx, fp); err == nil && len(offers) > 0 {
			return offers, nil
		}
	}
	offers, err := m.provider.Search(ctx, criteria)
	if err != nil {
		m.log.Warn().Err(err).
			Str("origin", criteria.Origin).
			Str("destination", criteria.Destination).
			Msg("flight search failed, serving synthesized offers")
		m.events.Publish(Event{Kind: EventFallbackUsed, Resource: domain.ResourceFlight, Err: err.Error()})
		return m.synth.FlightOffers(criteria), nil
	}
	if m.cache != nil && len(offers) > 0 {
		if cerr := m.cache.SetFlightOffers(ctx, fp, offers); cerr != nil {
			m.log.Debug().Err(cerr).Msg("flight search cache write failed")
		}
	}
	return offers, nil
}

func (m *FlightSessionManager) Start(ctx context.Context, key string, offer domain.FlightOffer, criteria domain.FlightCriteria) *domain.FlightSession {
	now := m.now()
	sess := &domain.FlightSession{
		SessionBase: domain.SessionBase{
			SessionID: uuid.NewString(),
			Status:    domain.StatusDetails,
			LockCode:  offer.FareSourceCode,
			CreatedAt: now,
			ExpiresAt: now.Add(m.ttl),
		},
		Offer:    offer,
		Criteria: criteria,
	}

	m.mu.Lock()
	if old, ok := m.slots[key]; ok {
		old.session.Status = domain.StatusCancelled
		m.teardownLocked(ctx, key, old, false)
	}
	slot := &flightSlot{session: sess}
	slot.timer = m.armTimer(key, sess.SessionID, sess.ExpiresAt)
	m.slots[key] = slot
	m.mu.Unlock()

	m.persist(ctx, key, sess)
	m.log.Info().
		Str("trip_key", key).
		Str("session_id", sess.SessionID).
		Str("offer_id", offer.OfferID).
		Msg("flight session started")
	return sess
}

func (m *FlightSessionManager) Current(ctx context.Context, key string) *domain.FlightSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.sessionLocked(ctx, key)
	if err != nil {
		return nil
	}
	return sess
}

func (m *FlightSessionManager) Update(ctx context.Context, key string, patch SessionPatch) (*domain.FlightSession, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.sessionLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	if patch.Status != "" {
		if err := validateStatusTarget(patch.Status); err != nil {
			return nil, err
		}
		sess.Status = patch.Status
	}
	m.persist(ctx, key, sess)
	return sess, nil
}

func (m *FlightSessionManager) RevalidatePrice(ctx context.Context, key, paymentMode string) (*domain.RevalidationResult, error) {
	m.mu.Lock()
	sess, err := m.sessionLocked(ctx, key)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	sessionID := sess.SessionID
	lockCode := sess.LockCode
	quoted := sess.Offer.OfferedFareCents
	currency := sess.Offer.Currency
	synthetic := sess.Offer.Synthetic
	m.mu.Unlock()

	var res *domain.RevalidationResult
	if synthetic {
		res = m.synth.FlightRevalidation(lockCode, quoted, currency)
	} else {
		res, err = m.provider.Revalidate(ctx, lockCode, paymentMode)
		if err != nil {
			m.log.Warn().Err(err).Str("trip_key", key).Msg("flight revalidation failed")
			return nil, fmt.Errorf("%w: flight revalidation: %w", ErrProviderFailure, err)
		}
	}
	res.OriginalCents = quoted
	res.PriceChanged = res.CurrentCents != quoted
	if res.CheckedAt.IsZero() {
		res.CheckedAt = m.now()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	cur, err := m.sessionLocked(ctx, key)
	if err != nil {
		return nil, err
	}
	if cur.SessionID != sessionID {
		return nil, ErrNoActiveSession
	}
	cur.Revalidation = res
	if res.Available && res.LockCode != "" {
		cur.LockCode = res.LockCode
	}
	m.persist(ctx, key, cur)
	m.log.Info().
		Str("trip_key", key).
		Bool("available", res.Available).
		Bool("price_changed", res.PriceChanged).
		Int64("current_cents", res.CurrentCents).
		Msg("flight price revalidated")
	return res, nil
}

func (m *FlightSessionManager) CompleteBooking(ctx context.Context, key string, travelers []domain.Traveler, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	m.mu.Lock()
	sess, err := m.sessionLocked(ctx, key)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if sess.Revalidation == nil {
		m.mu.Unlock()
		return nil, ErrRevalidationRequired
	}
	if !sess.Revalidation.Available {
		m.mu.Unlock()
		return nil, ErrResourceUnavailable
	}
	if err := validateTravelers(travelers); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	if err := validatePayment(payment); err != nil {
		m.mu.Unlock()
		return nil, err
	}
	sessionID := sess.SessionID
	lockCode := sess.LockCode
	offer := sess.Offer
	criteria := sess.Criteria
	m.mu.Unlock()

	conf, err := m.provider.CreateReservation(ctx, lockCode, travelers, payment)
	if err != nil {
		return nil, fmt.Errorf("%w: flight reservation: %w", ErrProviderFailure, err)
	}
	conf.Resource = domain.ResourceFlight
	if len(conf.Travelers) == 0 {
		conf.Travelers = travelers
	}

	m.mu.Lock()
	if slot, ok := m.slots[key]; ok && slot.session.SessionID == sessionID {
		slot.session.Status = domain.StatusConfirmed
		m.teardownLocked(ctx, key, slot, false)
	}
	m.mu.Unlock()

	m.recordItinerary(flightItinerary(key, offer, criteria, conf, payment.Email))
	m.log.Info().
		Str("trip_key", key).
		Str("confirmation", conf.ConfirmationNumber).
		Int64("total_cents", conf.TotalCents).
		Msg("flight booking confirmed")
	return conf, nil
}

func (m *FlightSessionManager) Cancel(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok {
		if err := m.store.DeleteFlightSession(ctx, key); err != nil {
			m.log.Debug().Err(err).Str("trip_key", key).Msg("flight session record not removed")
		}
		return
	}
	slot.session.Status = domain.StatusCancelled
	m.teardownLocked(ctx, key, slot, false)
	m.log.Info().
		Str("trip_key", key).
		Str("session_id", slot.session.SessionID).
		Msg("flight session cancelled")
}

func (m *FlightSessionManager) Restore(ctx context.Context, key string) (*domain.FlightSession, error) {
	sess, err := m.store.LoadFlightSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("restore flight session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	now := m.now()
	if sess.Expired(now) {
		if derr := m.store.DeleteFlightSession(ctx, key); derr != nil {
			m.log.Warn().Err(derr).Str("trip_key", key).Msg("expired flight session record not removed")
		}
		m.events.Publish(Event{Kind: EventSessionExpired, Resource: domain.ResourceFlight, TripKey: key, SessionID: sess.SessionID})
		return nil, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if slot, ok := m.slots[key]; ok {
		if !slot.session.Expired(now) {
			return slot.session, nil
		}
		if slot.timer != nil {
			slot.timer.Stop()
		}
		delete(m.slots, key)
	}
	slot := &flightSlot{session: sess}
	slot.timer = m.armTimer(key, sess.SessionID, sess.ExpiresAt)
	m.slots[key] = slot
	m.log.Info().
		Str("trip_key", key).
		Str("session_id", sess.SessionID).
		Time("expires_at", sess.ExpiresAt).
		Msg("flight session restored")
	return sess, nil
}

func (m *FlightSessionManager) Reservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	conf, err := m.provider.GetReservation(ctx, providerRef)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch flight reservation: %w", ErrProviderFailure, err)
	}
	conf.Resource = domain.ResourceFlight
	return conf, nil
}

func (m *FlightSessionManager) VoidReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	out, err := m.provider.CancelReservation(ctx, providerRef)
	if err != nil {
		return nil, fmt.Errorf("%w: void flight reservation: %w", ErrProviderFailure, err)
	}
	m.log.Info().Str("provider_ref", providerRef).Msg("flight reservation voided")
	return out, nil
}

// sessionLocked is the one gate every entry point goes through: it
// resolves the key to a live session or reports why there is none,
// tearing an expired one down on the spot. Callers hold m.mu.
func (m *FlightSessionManager) sessionLocked(ctx context.Context, key string) (*domain.FlightSession, error) {
	slot, ok := m.slots[key]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if slot.session.Expired(m.now()) {
		slot.session.Status = domain.StatusExpired
		m.teardownLocked(ctx, key, slot, true)
		return nil, ErrSessionExpired
	}
	return slot.session, nil
}

func (m *FlightSessionManager) teardownLocked(ctx context.Context, key string, slot *flightSlot, expired bool) {
	if slot.timer != nil {
		slot.timer.Stop()
	}
	delete(m.slots, key)
	if err := m.store.DeleteFlightSession(ctx, key); err != nil {
		m.log.Warn().Err(err).Str("trip_key", key).Msg("flight session record not removed")
	}
	if expired {
		m.events.Publish(Event{Kind: EventSessionExpired, Resource: domain.ResourceFlight, TripKey: key, SessionID: slot.session.SessionID})
		m.log.Info().
			Str("trip_key", key).
			Str("session_id", slot.session.SessionID).
			Msg("flight session expired")
	}
}

func (m *FlightSessionManager) armTimer(key, sessionID string, expiresAt time.Time) *time.Timer {
	d := expiresAt.Sub(m.now())
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, func() {
		m.expireFromTimer(key, sessionID)
	})
}

// expireFromTimer re-checks the liveness predicate under the lock;
// the timer itself is only a cleanup hint.
func (m *FlightSessionManager) expireFromTimer(key, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok || slot.session.SessionID != sessionID {
		return
	}
	if !slot.session.Expired(m.now()) {
		return
	}
	slot.session.Status = domain.StatusExpired
	m.teardownLocked(ctx, key, slot, true)
}

func (m *FlightSessionManager) persist(ctx context.Context, key string, sess *domain.FlightSession) {
	if err := m.store.SaveFlightSession(ctx, key, sess); err != nil {
		m.log.Error().Err(err).Str("trip_key", key).Msg("flight session not persisted")
		m.events.Publish(Event{
			Kind:      EventStorePersistFailed,
			Resource:  domain.ResourceFlight,
			TripKey:   key,
			SessionID: sess.SessionID,
			Err:       err.Error(),
		})
	}
}

func (m *FlightSessionManager) recordItinerary(b domain.ItineraryBooking) {
	if m.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), m.recordTimeout)
		defer cancel()
		if err := m.recorder.AddBooking(ctx, b); err != nil {
			m.log.Error().Err(err).
				Str("trip_key", b.TripKey).
				Str("confirmation", b.ConfirmationNumber).
				Msg("itinerary record failed")
			m.events.Publish(Event{
				Kind:     EventItineraryRecordFailed,
				Resource: b.Resource,
				TripKey:  b.TripKey,
				Ref:      b.ConfirmationNumber,
				Err:      err.Error(),
			})
		}
	}()
}

func flightItinerary(key string, offer domain.FlightOffer, criteria domain.FlightCriteria, conf *domain.BookingConfirmation, email string) domain.ItineraryBooking {
	day := criteria.DepartureDate
	if day == "" {
		day = conf.BookedAt.Format(dateLayout)
	}
	return domain.ItineraryBooking{
		TripKey:            key,
		Resource:           domain.ResourceFlight,
		Day:                day,
		Title:              fmt.Sprintf("%s %s %s-%s", offer.Airline, offer.FlightNumber, offer.Origin, offer.Destination),
		ConfirmationNumber: conf.ConfirmationNumber,
		ProviderRef:        conf.ProviderRef,
		AmountCents:        conf.TotalCents,
		Currency:           conf.Currency,
		Synthetic:          conf.Synthetic,
		ContactEmail:       email,
		BookedAt:           conf.BookedAt,
	}
}

func flightCriteriaKey(c domain.FlightCriteria) string {
	return fmt.Sprintf("%s:%s:%s:%s:%d:%d:%s",
		c.Origin, c.Destination, c.DepartureDate, c.ReturnDate, c.Adults, c.Children, c.CabinClass)
}

var _ FlightSessions = (*FlightSessionManager)(nil)
