package itinerary

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voyago/tripbooking/internal/domain"
)

const publishRetries = 3

type Publisher interface {
	PublishWithRetry(ctx context.Context, topic, key string, payload interface{}, maxRetries int) error
}

// KafkaRecorder hands completed bookings to the itinerary pipeline. The
// booking flow only needs the publish to succeed; filing into Postgres and
// the voucher email happen in the worker.
type KafkaRecorder struct {
	producer           Publisher
	itineraryTopic     string
	notificationsTopic string
	log                zerolog.Logger
}

func NewKafkaRecorder(producer Publisher, itineraryTopic, notificationsTopic string, log zerolog.Logger) *KafkaRecorder {
	return &KafkaRecorder{
		producer:           producer,
		itineraryTopic:     itineraryTopic,
		notificationsTopic: notificationsTopic,
		log:                log.With().Str("component", "itinerary_recorder").Logger(),
	}
}

func (r *KafkaRecorder) AddBooking(ctx context.Context, b domain.ItineraryBooking) error {
	if err := r.producer.PublishWithRetry(ctx, r.itineraryTopic, b.TripKey, b, publishRetries); err != nil {
		return fmt.Errorf("publish itinerary booking: %w", err)
	}

	// The voucher notification is best-effort: the booking is already filed.
	if r.notificationsTopic != "" && b.ContactEmail != "" {
		if err := r.producer.PublishWithRetry(ctx, r.notificationsTopic, b.TripKey, b, publishRetries); err != nil {
			r.log.Warn().Err(err).
				Str("trip_key", b.TripKey).
				Str("confirmation", b.ConfirmationNumber).
				Msg("voucher notification not published")
		}
	}
	return nil
}
