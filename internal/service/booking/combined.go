package booking

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/voyago/tripbooking/internal/domain"
)

type CombinedSessions interface {
	Start(ctx context.Context, key string, flight *FlightSelection, hotel *HotelSelection) (*domain.CombinedSession, error)
	Current(ctx context.Context, key string) *domain.CombinedSession
	TotalCost(ctx context.Context, key string) int64
	Complete(ctx context.Context, key string, travelers []domain.Traveler, guests []domain.Guest, payment domain.PaymentInfo) (*domain.CombinedConfirmation, error)
	Cancel(ctx context.Context, key string)
	Restore(ctx context.Context, key string) (*domain.CombinedSession, error)
}

type combinedSlot struct {
	session *domain.CombinedSession
	timer   *time.Timer
}

type CombinedOrchestrator struct {
	settings
	flights FlightSessions
	hotels  HotelSessions
	store   CombinedSessionStore
	events  *Events
	log     zerolog.Logger

	mu    sync.Mutex
	slots map[string]*combinedSlot
}

func NewCombinedOrchestrator(
	flights FlightSessions,
	hotels HotelSessions,
	store CombinedSessionStore,
	events *Events,
	log zerolog.Logger,
	opts ...Option,
) *CombinedOrchestrator {
	s := defaultSettings()
	for _, opt := range opts {
		opt(&s)
	}
	return &CombinedOrchestrator{
		settings: s,
		flights:  flights,
		hotels:   hotels,
		store:    store,
		events:   events,
		log:      log.With().Str("component", "combined_sessions").Logger(),
		slots:    make(map[string]*combinedSlot),
	}
}

func (o *CombinedOrchestrator) Start(ctx context.Context, key string, flight *FlightSelection, hotel *HotelSelection) (*domain.CombinedSession, error) {
	legs, err := domain.NewTripLegs(flight != nil, hotel != nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}

	// One journey per trip key: a new combined start supersedes whatever
	// was in flight, sub-sessions included.
	o.Cancel(ctx, key)

	if flight != nil {
		o.flights.Start(ctx, key, flight.Offer, flight.Criteria)
	}
	if hotel != nil {
		o.hotels.Start(ctx, key, hotel.Offer, hotel.Criteria)
	}

	now := o.now()
	sess := &domain.CombinedSession{
		SessionID: uuid.NewString(),
		Legs:      legs,
		Status:    domain.StatusDetails,
		CreatedAt: now,
		ExpiresAt: now.Add(o.ttl),
	}

	o.mu.Lock()
	slot := &combinedSlot{session: sess}
	slot.timer = o.armTimer(key, sess.SessionID, sess.ExpiresAt)
	o.slots[key] = slot
	o.mu.Unlock()

	o.persist(ctx, key, sess)
	o.log.Info().
		Str("trip_key", key).
		Str("session_id", sess.SessionID).
		Str("legs", string(legs)).
		Msg("combined session started")
	return sess, nil
}

func (o *CombinedOrchestrator) Current(ctx context.Context, key string) *domain.CombinedSession {
	o.mu.Lock()
	sess, err := o.sessionLocked(ctx, key)
	if err != nil {
		o.mu.Unlock()
		return nil
	}
	sessionID := sess.SessionID
	o.mu.Unlock()

	status := o.aggregateStatus(ctx, key, sess)

	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[key]
	if !ok || slot.session.SessionID != sessionID {
		return nil
	}
	if status != "" && status != slot.session.Status {
		slot.session.Status = status
		o.persist(ctx, key, slot.session)
	}
	return slot.session
}

// aggregateStatus reduces the live legs to the earliest incomplete
// stage; a leg whose confirmation is already stashed counts as
// confirmed. Empty result means "leave the stored status alone".
func (o *CombinedOrchestrator) aggregateStatus(ctx context.Context, key string, sess *domain.CombinedSession) domain.SessionStatus {
	if sess.Status == domain.StatusConfirming {
		return ""
	}
	minRank := -1
	consider := func(rank int) {
		if rank < 0 {
			return
		}
		if minRank == -1 || rank < minRank {
			minRank = rank
		}
	}
	if sess.Legs.HasFlight() {
		if sess.FlightConfirmation != nil {
			consider(domain.StatusConfirmed.Rank())
		} else if fs := o.flights.Current(ctx, key); fs != nil {
			consider(fs.Status.Rank())
		}
	}
	if sess.Legs.HasHotel() {
		if sess.HotelConfirmation != nil {
			consider(domain.StatusConfirmed.Rank())
		} else if hs := o.hotels.Current(ctx, key); hs != nil {
			consider(hs.Status.Rank())
		}
	}
	if minRank == -1 {
		return ""
	}
	return domain.StatusAtRank(minRank)
}

func (o *CombinedOrchestrator) TotalCost(ctx context.Context, key string) int64 {
	o.mu.Lock()
	sess, err := o.sessionLocked(ctx, key)
	if err != nil {
		o.mu.Unlock()
		return 0
	}
	legs := sess.Legs
	flightConf := sess.FlightConfirmation
	hotelConf := sess.HotelConfirmation
	o.mu.Unlock()

	var total int64
	if legs.HasFlight() {
		switch {
		case flightConf != nil:
			total += flightConf.TotalCents
		default:
			if fs := o.flights.Current(ctx, key); fs != nil {
				if fs.Revalidation != nil {
					total += fs.Revalidation.CurrentCents
				} else {
					total += fs.Offer.OfferedFareCents
				}
			}
		}
	}
	if legs.HasHotel() {
		switch {
		case hotelConf != nil:
			total += hotelConf.TotalCents
		default:
			if hs := o.hotels.Current(ctx, key); hs != nil {
				if hs.Revalidation != nil {
					total += hs.Revalidation.CurrentCents
				} else {
					total += hs.Offer.TotalPriceCents
				}
			}
		}
	}
	return total
}

func (o *CombinedOrchestrator) Complete(ctx context.Context, key string, travelers []domain.Traveler, guests []domain.Guest, payment domain.PaymentInfo) (*domain.CombinedConfirmation, error) {
	o.mu.Lock()
	sess, err := o.sessionLocked(ctx, key)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	sessionID := sess.SessionID
	legs := sess.Legs
	prevStatus := sess.Status
	flightConf := sess.FlightConfirmation
	hotelConf := sess.HotelConfirmation
	sess.Status = domain.StatusConfirming
	o.persist(ctx, key, sess)
	o.mu.Unlock()

	revert := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		if slot, ok := o.slots[key]; ok && slot.session.SessionID == sessionID {
			slot.session.Status = prevStatus
			o.persist(ctx, key, slot.session)
		}
	}

	flightBookedNow := false
	if legs.HasFlight() && flightConf == nil {
		flightConf, err = o.flights.CompleteBooking(ctx, key, travelers, payment)
		if err != nil {
			revert()
			return nil, err
		}
		flightBookedNow = true
		o.stashFlightConfirmation(ctx, key, sessionID, flightConf)
	}

	if legs.HasHotel() && hotelConf == nil {
		hotelConf, err = o.hotels.CompleteBooking(ctx, key, guests, payment)
		if err != nil {
			if flightBookedNow {
				pe := &PartialCompletionError{
					FailedLeg: domain.ResourceHotel,
					Err:       err,
					Flight:    flightConf,
				}
				if _, verr := o.flights.VoidReservation(ctx, flightConf.ProviderRef); verr != nil {
					pe.CompensationErr = verr
					o.events.Publish(Event{
						Kind:     EventCompensationFailed,
						Resource: domain.ResourceFlight,
						TripKey:  key,
						Ref:      flightConf.ProviderRef,
						Err:      verr.Error(),
					})
					o.log.Error().Err(verr).
						Str("trip_key", key).
						Str("provider_ref", flightConf.ProviderRef).
						Msg("flight reservation left orphaned after failed hotel leg")
				} else {
					pe.Compensated = true
					o.dropFlightConfirmation(ctx, key, sessionID)
					o.events.Publish(Event{
						Kind:     EventCompensationApplied,
						Resource: domain.ResourceFlight,
						TripKey:  key,
						Ref:      flightConf.ProviderRef,
					})
					o.log.Warn().
						Str("trip_key", key).
						Str("provider_ref", flightConf.ProviderRef).
						Msg("flight reservation voided after failed hotel leg")
				}
				revert()
				return nil, pe
			}
			revert()
			return nil, err
		}
		o.stashHotelConfirmation(ctx, key, sessionID, hotelConf)
	}

	if flightConf == nil && hotelConf == nil {
		revert()
		return nil, ErrNoActiveSession
	}

	var total int64
	currency := ""
	if flightConf != nil {
		total += flightConf.TotalCents
		currency = flightConf.Currency
	}
	if hotelConf != nil {
		total += hotelConf.TotalCents
		if currency == "" {
			currency = hotelConf.Currency
		}
	}

	o.mu.Lock()
	if slot, ok := o.slots[key]; ok && slot.session.SessionID == sessionID {
		slot.session.Status = domain.StatusConfirmed
		o.teardownLocked(ctx, key, slot, false)
	}
	o.mu.Unlock()

	conf := &domain.CombinedConfirmation{
		Flight:     flightConf,
		Hotel:      hotelConf,
		TotalCents: total,
		Currency:   currency,
		BookedAt:   o.now(),
	}
	o.log.Info().
		Str("trip_key", key).
		Int64("total_cents", total).
		Msg("combined booking confirmed")
	return conf, nil
}

func (o *CombinedOrchestrator) Cancel(ctx context.Context, key string) {
	o.mu.Lock()
	if slot, ok := o.slots[key]; ok {
		slot.session.Status = domain.StatusCancelled
		o.teardownLocked(ctx, key, slot, false)
		o.log.Info().
			Str("trip_key", key).
			Str("session_id", slot.session.SessionID).
			Msg("combined session cancelled")
	} else if err := o.store.DeleteCombinedSession(ctx, key); err != nil {
		o.log.Debug().Err(err).Str("trip_key", key).Msg("combined session record not removed")
	}
	o.mu.Unlock()

	o.flights.Cancel(ctx, key)
	o.hotels.Cancel(ctx, key)
}

func (o *CombinedOrchestrator) Restore(ctx context.Context, key string) (*domain.CombinedSession, error) {
	sess, err := o.store.LoadCombinedSession(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("restore combined session: %w", err)
	}
	if sess == nil {
		return nil, nil
	}
	now := o.now()
	if sess.Expired(now) {
		if derr := o.store.DeleteCombinedSession(ctx, key); derr != nil {
			o.log.Warn().Err(derr).Str("trip_key", key).Msg("expired combined session record not removed")
		}
		o.events.Publish(Event{Kind: EventSessionExpired, TripKey: key, SessionID: sess.SessionID})
		o.flights.Cancel(ctx, key)
		o.hotels.Cancel(ctx, key)
		return nil, nil
	}

	if sess.Legs.HasFlight() && sess.FlightConfirmation == nil {
		if _, ferr := o.flights.Restore(ctx, key); ferr != nil {
			o.log.Warn().Err(ferr).Str("trip_key", key).Msg("flight leg not restored")
		}
	}
	if sess.Legs.HasHotel() && sess.HotelConfirmation == nil {
		if _, herr := o.hotels.Restore(ctx, key); herr != nil {
			o.log.Warn().Err(herr).Str("trip_key", key).Msg("hotel leg not restored")
		}
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if slot, ok := o.slots[key]; ok {
		if !slot.session.Expired(now) {
			return slot.session, nil
		}
		if slot.timer != nil {
			slot.timer.Stop()
		}
		delete(o.slots, key)
	}
	slot := &combinedSlot{session: sess}
	slot.timer = o.armTimer(key, sess.SessionID, sess.ExpiresAt)
	o.slots[key] = slot
	o.log.Info().
		Str("trip_key", key).
		Str("session_id", sess.SessionID).
		Time("expires_at", sess.ExpiresAt).
		Msg("combined session restored")
	return sess, nil
}

func (o *CombinedOrchestrator) sessionLocked(ctx context.Context, key string) (*domain.CombinedSession, error) {
	slot, ok := o.slots[key]
	if !ok {
		return nil, ErrNoActiveSession
	}
	if slot.session.Expired(o.now()) {
		slot.session.Status = domain.StatusExpired
		o.teardownLocked(ctx, key, slot, true)
		return nil, ErrSessionExpired
	}
	return slot.session, nil
}

func (o *CombinedOrchestrator) teardownLocked(ctx context.Context, key string, slot *combinedSlot, expired bool) {
	if slot.timer != nil {
		slot.timer.Stop()
	}
	delete(o.slots, key)
	if err := o.store.DeleteCombinedSession(ctx, key); err != nil {
		o.log.Warn().Err(err).Str("trip_key", key).Msg("combined session record not removed")
	}
	if expired {
		o.events.Publish(Event{Kind: EventSessionExpired, TripKey: key, SessionID: slot.session.SessionID})
		o.log.Info().
			Str("trip_key", key).
			Str("session_id", slot.session.SessionID).
			Msg("combined session expired")
	}
}

func (o *CombinedOrchestrator) armTimer(key, sessionID string, expiresAt time.Time) *time.Timer {
	d := expiresAt.Sub(o.now())
	if d < 0 {
		d = 0
	}
	return time.AfterFunc(d, func() {
		o.expireFromTimer(key, sessionID)
	})
}

func (o *CombinedOrchestrator) expireFromTimer(key, sessionID string) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpTimeout)
	defer cancel()

	o.mu.Lock()
	slot, ok := o.slots[key]
	if !ok || slot.session.SessionID != sessionID || !slot.session.Expired(o.now()) {
		o.mu.Unlock()
		return
	}
	slot.session.Status = domain.StatusExpired
	o.teardownLocked(ctx, key, slot, true)
	o.mu.Unlock()

	o.flights.Cancel(ctx, key)
	o.hotels.Cancel(ctx, key)
}

func (o *CombinedOrchestrator) stashFlightConfirmation(ctx context.Context, key, sessionID string, conf *domain.BookingConfirmation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[key]
	if !ok || slot.session.SessionID != sessionID {
		return
	}
	slot.session.FlightConfirmation = conf
	o.persist(ctx, key, slot.session)
}

func (o *CombinedOrchestrator) stashHotelConfirmation(ctx context.Context, key, sessionID string, conf *domain.BookingConfirmation) {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[key]
	if !ok || slot.session.SessionID != sessionID {
		return
	}
	slot.session.HotelConfirmation = conf
	o.persist(ctx, key, slot.session)
}

func (o *CombinedOrchestrator) dropFlightConfirmation(ctx context.Context, key, sessionID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	slot, ok := o.slots[key]
	if !ok || slot.session.SessionID != sessionID {
		return
	}
	slot.session.FlightConfirmation = nil
	o.persist(ctx, key, slot.session)
}

func (o *CombinedOrchestrator) persist(ctx context.Context, key string, sess *domain.CombinedSession) {
	if err := o.store.SaveCombinedSession(ctx, key, sess); err != nil {
		o.log.Error().Err(err).Str("trip_key", key).Msg("combined session not persisted")
		o.events.Publish(Event{
			Kind:      EventStorePersistFailed,
			TripKey:   key,
			SessionID: sess.SessionID,
			Err:       err.Error(),
		})
	}
}

var _ CombinedSessions = (*CombinedOrchestrator)(nil)
