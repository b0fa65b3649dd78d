package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/voyago/tripbooking/config"
	"github.com/voyago/tripbooking/internal/domain"
)

// sessionGrace keeps a session record around briefly after its own
// deadline so restores can observe (and clean) expired state instead of
// redis silently erasing it first.
const sessionGrace = time.Hour

type RedisStore struct {
	client    *redis.Client
	searchTTL time.Duration
	log       zerolog.Logger
}

func NewRedisStore(cfg config.RedisConfig, searchTTL time.Duration, log zerolog.Logger) *RedisStore {
	return &RedisStore{
		client:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		searchTTL: searchTTL,
		log:       log.With().Str("component", "store").Logger(),
	}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) SaveFlightSession(ctx context.Context, key string, sess *domain.FlightSession) error {
	return s.save(ctx, flightSessionKey(key), sess, sess.ExpiresAt)
}

func (s *RedisStore) LoadFlightSession(ctx context.Context, key string) (*domain.FlightSession, error) {
	var sess domain.FlightSession
	ok, err := s.load(ctx, flightSessionKey(key), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) DeleteFlightSession(ctx context.Context, key string) error {
	return s.client.Del(ctx, flightSessionKey(key)).Err()
}

func (s *RedisStore) SaveHotelSession(ctx context.Context, key string, sess *domain.HotelSession) error {
	return s.save(ctx, hotelSessionKey(key), sess, sess.ExpiresAt)
}

func (s *RedisStore) LoadHotelSession(ctx context.Context, key string) (*domain.HotelSession, error) {
	var sess domain.HotelSession
	ok, err := s.load(ctx, hotelSessionKey(key), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) DeleteHotelSession(ctx context.Context, key string) error {
	return s.client.Del(ctx, hotelSessionKey(key)).Err()
}

func (s *RedisStore) SaveCombinedSession(ctx context.Context, key string, sess *domain.CombinedSession) error {
	return s.save(ctx, combinedSessionKey(key), sess, sess.ExpiresAt)
}

func (s *RedisStore) LoadCombinedSession(ctx context.Context, key string) (*domain.CombinedSession, error) {
	var sess domain.CombinedSession
	ok, err := s.load(ctx, combinedSessionKey(key), &sess)
	if err != nil || !ok {
		return nil, err
	}
	return &sess, nil
}

func (s *RedisStore) DeleteCombinedSession(ctx context.Context, key string) error {
	return s.client.Del(ctx, combinedSessionKey(key)).Err()
}

func (s *RedisStore) GetFlightOffers(ctx context.Context, fingerprint string) ([]domain.FlightOffer, error) {
	data, err := s.client.Get(ctx, flightSearchKey(fingerprint)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var offers []domain.FlightOffer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *RedisStore) SetFlightOffers(ctx context.Context, fingerprint string, offers []domain.FlightOffer) error {
	payload, err := json.Marshal(offers)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, flightSearchKey(fingerprint), payload, s.searchTTL).Err()
}

func (s *RedisStore) GetHotelOffers(ctx context.Context, fingerprint string) ([]domain.HotelOffer, error) {
	data, err := s.client.Get(ctx, hotelSearchKey(fingerprint)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, err
	}
	var offers []domain.HotelOffer
	if err := json.Unmarshal(data, &offers); err != nil {
		return nil, err
	}
	return offers, nil
}

func (s *RedisStore) SetHotelOffers(ctx context.Context, fingerprint string, offers []domain.HotelOffer) error {
	payload, err := json.Marshal(offers)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, hotelSearchKey(fingerprint), payload, s.searchTTL).Err()
}

// SweepExpiredSessions removes session records whose payload deadline
// has passed. The worker runs it on a ticker; the grace window on the
// redis TTL is what leaves anything to sweep.
func (s *RedisStore) SweepExpiredSessions(ctx context.Context, now time.Time) (int, error) {
	removed := 0
	for _, pattern := range []string{"flight_session:*", "hotel_session:*", "combined_session:*"} {
		iter := s.client.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			key := iter.Val()
			data, err := s.client.Get(ctx, key).Bytes()
			if err != nil {
				continue
			}
			var probe struct {
				ExpiresAt time.Time `json:"expires_at"`
			}
			if err := json.Unmarshal(data, &probe); err != nil || domain.Expired(probe.ExpiresAt, now) {
				if derr := s.client.Del(ctx, key).Err(); derr == nil {
					removed++
				}
			}
		}
		if err := iter.Err(); err != nil {
			return removed, err
		}
	}
	return removed, nil
}

func (s *RedisStore) save(ctx context.Context, key string, v any, expiresAt time.Time) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return err
	}
	ttl := time.Until(expiresAt) + sessionGrace
	if ttl <= 0 {
		ttl = sessionGrace
	}
	return s.client.Set(ctx, key, payload, ttl).Err()
}

// load reports absence for both a missing key and an unreadable
// payload; the unreadable record is dropped so it cannot wedge the slot.
func (s *RedisStore) load(ctx context.Context, key string, v any) (bool, error) {
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return false, nil
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("unreadable session record dropped")
		if derr := s.client.Del(ctx, key).Err(); derr != nil {
			s.log.Warn().Err(derr).Str("key", key).Msg("unreadable session record not removed")
		}
		return false, nil
	}
	return true, nil
}

func flightSessionKey(key string) string {
	return "flight_session:" + key
}

func hotelSessionKey(key string) string {
	return "hotel_session:" + key
}

func combinedSessionKey(key string) string {
	return "combined_session:" + key
}

func flightSearchKey(fp string) string {
	return "cache:flight_search:" + fp
}

func hotelSearchKey(fp string) string {
	return "cache:hotel_search:" + fp
}
