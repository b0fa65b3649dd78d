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

type HotelSessions interface {
	Search(ctx context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error)
	Start(ctx context.Context, key string, offer domain.HotelOffer, criteria domain.HotelCriteria) *domain.HotelSession
	Current(ctx context.Context, key string) *domain.HotelSession
	Update(ctx context.Context, key string, patch SessionPatch) (*domain.HotelSession, error)
	RevalidatePrice(ctx context.Context, key, paymentMode string) (*domain.RevalidationResult, error)
	CompleteBooking(ctx context.Context, key string, guests []domain.Guest, payment domain.PaymentInfo) (*domain.BookingConfirmation, error)
	Cancel(ctx context.Context, key string)
	Restore(ctx context.Context, key string) (*domain.HotelSession, error)
	Reservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error)
	VoidReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error)
}

type hotelSlot struct {
	session *domain.HotelSession
	timer   *time.Timer
}

// HotelSessionManager mirrors FlightSessionManager on purpose: the two
// resource flows stay independently evolvable instead of sharing a
// generic core.
type HotelSessionManager struct {
	settings
	provider HotelProvider
	synth    *fallback.Synthesizer
	store    HotelSessionStore
	cache    HotelSearchCache
	recorder ItineraryRecorder
	events   *Events
	log      zerolog.Logger

	mu    sync.Mutex
	slots map[string]*hotelSlot
}

func NewHotelSessionManager(
	provider HotelProvider,
	synth *fallback.Synthesizer,
	store HotelSessionStore,
	cache HotelSearchCache,
	recorder ItineraryRecorder,
	events *Events,
	log zerolog.Logger,
	opts ...Option,
) *HotelSessionManager {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &HotelSessionManager{
		settings: s,
		provider: provider,
		synth:    synth,
		store:    store,
		cache:    cache,
		recorder: recorder,
		events:   events,
		log:      log.With().Str("component", "hotel_sessions").Logger(),
		slots:    make(map[string]*hotelSlot),
	}
}

func (m *HotelSessionManager) Search(ctx context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error) {
	if err := validateHotelCriteria(criteria, m.now()); err != nil {
		return nil, err
	}
	fp := hotelCriteriaKey(criteria)
	if m.cache != nil {
		if offers, err := m.cache.GetHotelOffers(ctx, fp); err == nil && len(offers) > 0 {
			return offers, nil
		}
	}
	offers, err := m.provider.Search(ctx, criteria)
	if err != nil {
		m.log.Warn().Err(err).
			Str("city_code", criteria.CityCode).
			Str("check_in", criteria.CheckIn).
			Msg("hotel search failed, serving synthesized offers")
		m.events.Publish(Event{Kind: EventFallbackUsed, Resource: domain.ResourceHotel, Err: err.Error()})
		return m.synth.HotelOffers(criteria), nil
	}
	if m.cache != nil && len(offers) > 0 {
		if cerr := m.cache.SetHotelOffers(ctx, fp, offers); cerr != nil {
			m.log.Debug().Err(cerr).Msg("hotel search cache write failed")
		}
	}
	return offers, nil
}

func (m *HotelSessionManager) Start(ctx context.Context, key string, offer domain.HotelOffer, criteria domain.HotelCriteria) *domain.HotelSession {
	now := m.now()
	sess := &domain.HotelSession{
		SessionBase: domain.SessionBase{
			SessionID: uuid.NewString(),
			Status:    domain.StatusDetails,
			LockCode:  offer.BookingCode,
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
	slot := &hotelSlot{session: sess}
	slot.timer = m.armTimer(key, sess.SessionID, sess.ExpiresAt)
	m.slots[key] = slot
	m.mu.Unlock()

	m.persist(ctx, key, sess)
	m.log.Info().
		Str("trip_key", key).
		Str("session_id", sess.SessionID).
		Str("offer_id", offer.OfferID).
		Msg("hotel session started")
	return sess
}

func (m *HotelSessionManager) Current(ctx context.Context, key string) *domain.HotelSession {
	m.mu.Lock()
	defer m.mu.Unlock()
	sess, err := m.sessionLocked(ctx, key)
	if err != nil {
		return nil
	}
	return sess
}

func (m *HotelSessionManager) Update(ctx context.Context, key string, patch SessionPatch) (*domain.HotelSession, error) {
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

func (m *HotelSessionManager) RevalidatePrice(ctx context.Context, key, paymentMode string) (*domain.RevalidationResult, error) {
	m.mu.Lock()
	sess, err := m.sessionLocked(ctx, key)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	sessionID := sess.SessionID
	lockCode := sess.LockCode
	quoted := sess.Offer.TotalPriceCents
	currency := sess.Offer.Currency
	synthetic := sess.Offer.Synthetic
	m.mu.Unlock()

	var res *domain.RevalidationResult
	if synthetic {
		res = m.synth.HotelRevalidation(lockCode, quoted, currency)
	} else {
		res, err = m.provider.Revalidate(ctx, lockCode, paymentMode)
		if err != nil {
			m.log.Warn().Err(err).Str("trip_key", key).Msg("hotel revalidation failed")
			return nil, fmt.Errorf("%w: hotel revalidation: %w", ErrProviderFailure, err)
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
		Msg("hotel price revalidated")
	return res, nil
}

func (m *HotelSessionManager) CompleteBooking(ctx context.Context, key string, guests []domain.Guest, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
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
	if err := validateGuests(guests); err != nil {
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

	conf, err := m.provider.CreateReservation(ctx, lockCode, guests, payment)
	if err != nil {
		return nil, fmt.Errorf("%w: hotel reservation: %w", ErrProviderFailure, err)
	}
	conf.Resource = domain.ResourceHotel
	if len(conf.Guests) == 0 {
		conf.Guests = guests
	}

	m.mu.Lock()
	if slot, ok := m.slots[key]; ok && slot.session.SessionID == sessionID {
		slot.session.Status = domain.StatusConfirmed
		m.teardownLocked(ctx, key, slot, false)
	}
	m.mu.Unlock()

	m.recordItinerary(hotelItinerary(key, offer, criteria, conf, payment.Email))
	m.log.Info().
		Str("trip_key", key).
		Str("confirmation", conf.ConfirmationNumber).
		Int64("total_cents", conf.TotalCents).
		Msg("hotel booking confirmed")
	return conf, nil
}

func (m *HotelSessionManager) Cancel(ctx context.Context, key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	slot, ok := m.slots[key]
	if !ok {
		if err := m.store.DeleteHotelSession(ctx, key); err != nil {
			m.log.Debug().Err(err).Str("trip_key", key).Msg("hotel session record not removed")
		}
		return
	}
	slot.session.Status = domain.StatusCancelled
	m.teardownLocked(ctx, key, slot, false)
	m.log.Info().
		Str("trip_key", key).
		Str("session_id", slot.session.SessionID).
		Msg("hotel session cancelled")
}

func (m *HotelSessionManager) Restore(ctx context.Context, key string) (*domain.HotelSession, error) {
	sess, err := m.store.LoadHotelSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("restore hotel session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	now := m.now()
	if sess.Expired(now) {
		if derr := m.store.DeleteHotelSession(ctx, key); derr != nil {
			m.log.Warn().Err(derr).Str("trip_key", key).Msg("expired hotel session record not removed")
		}
		m.events.Publish(Event{Kind: EventSessionExpired, Resource: domain.ResourceHotel, TripKey: key, SessionID: sess.SessionID})
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
	slot := &hotelSlot{session: sess}
	slot.timer = m.armTimer(key, sess.SessionID, sess.ExpiresAt)
	m.slots[key] = slot
	m.log.Info().
		Str("trip_key", key).
		Str("session_id", sess.SessionID).
		Time("expires_at", sess.ExpiresAt).
		Msg("hotel session restored")
	return sess, nil
}

func (m *HotelSessionManager) Reservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	conf, err := m.provider.GetReservation(ctx, providerRef)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch hotel reservation: %w", ErrProviderFailure, err)
	}
	conf.Resource = domain.ResourceHotel
	return conf, nil
}

func (m *HotelSessionManager) VoidReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	out, err := m.provider.CancelReservation(ctx, providerRef)
	if err != nil {
		return nil, fmt.Errorf("%w: void hotel reservation: %w", ErrProviderFailure, err)
	}
	m.log.Info().Str("provider_ref", providerRef).Msg("hotel reservation voided")
	return out, nil
}

func (m *HotelSessionManager) sessionLocked(ctx context.Context, key string) (*domain.HotelSession, error) {
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

func (m *HotelSessionManager) teardownLocked(ctx context.Context, key string, slot *hotelSlot, expired bool) {
	if slot.timer != nil {
		slot.timer.Stop()
	}
	delete(m.slots, key)
	if err := m.store.DeleteHotelSession(ctx, key); err != nil {
		m.log.Warn().Err(err).Str("trip_key", key).Msg("hotel session record not removed")
	}
	if expired {
		m.events.Publish(Event{Kind: EventSessionExpired, Resource: domain.ResourceHotel, TripKey: key, SessionID: slot.session.SessionID})
		m.log.Info().
			Str("trip_key", key).
			Str("session_id", slot.session.SessionID).
			Msg("hotel session expired")
	}
}

func (m *HotelSessionManager) armTimer(key, sessionID string, expiresAt time.Time) *time.Timer {
	d := expiresAt.Sub(m.now())
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, func() {
		m.expireFromTimer(key, sessionID)
	})
}

func (m *HotelSessionManager) expireFromTimer(key, sessionID string) {
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

func (m *HotelSessionManager) persist(ctx context.Context, key string, sess *domain.HotelSession) {
	if err := m.store.SaveHotelSession(ctx, key, sess); err != nil {
		m.log.Error().Err(err).Str("trip_key", key).Msg("hotel session not persisted")
		m.events.Publish(Event{
			Kind:      EventStorePersistFailed,
			Resource:  domain.ResourceHotel,
			TripKey:   key,
			SessionID: sess.SessionID,
			Err:       err.Error(),
		})
	}
}

func (m *HotelSessionManager) recordItinerary(b domain.ItineraryBooking) {
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

func hotelItinerary(key string, offer domain.HotelOffer, criteria domain.HotelCriteria, conf *domain.BookingConfirmation, email string) domain.ItineraryBooking {
	day := criteria.CheckIn
	if day == "" {
		day = conf.BookedAt.Format(dateLayout)
	}
	title := offer.HotelName
	if nights := stayNights(criteria); nights > 0 {
		title = fmt.Sprintf("%s, %d night(s)", offer.HotelName, nights)
	}
	return domain.ItineraryBooking{
		TripKey:            key,
		Resource:           domain.ResourceHotel,
		Day:                day,
		Title:              title,
		ConfirmationNumber: conf.ConfirmationNumber,
		ProviderRef:        conf.ProviderRef,
		AmountCents:        conf.TotalCents,
		Currency:           conf.Currency,
		Synthetic:          conf.Synthetic,
		ContactEmail:       email,
		BookedAt:           conf.BookedAt,
	}
}

func stayNights(c domain.HotelCriteria) int {
	in, err := time.Parse(dateLayout, c.CheckIn)
	if err != nil {
		return 0
	}
	out, err := time.Parse(dateLayout, c.CheckOut)
	if err != nil {
		return 0
	}
	return int(out.Sub(in).Hours() / 24)
}

func hotelCriteriaKey(c domain.HotelCriteria) string {
	return fmt.Sprintf("%s:%s:%s:%d:%d:%d",
		c.CityCode, c.CheckIn, c.CheckOut, c.Rooms, c.Adults, c.Children)
}

var _ HotelSessions = (*HotelSessionManager)(nil)
