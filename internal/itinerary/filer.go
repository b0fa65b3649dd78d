package itinerary

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voyago/tripbooking/internal/domain"
)

// Filer is the worker-side consumer of the itinerary topic.
type Filer struct {
	repo Repository
	log  zerolog.Logger
}

func NewFiler(repo Repository, log zerolog.Logger) *Filer {
	return &Filer{
		repo: repo,
		log:  log.With().Str("component", "itinerary_filer").Logger(),
	}
}

func (f *Filer) File(ctx context.Context, payload []byte) error {
	var b domain.ItineraryBooking
	if err := json.Unmarshal(payload, &b); err != nil {
		return fmt.Errorf("decode itinerary booking: %w", err)
	}
	if b.TripKey == "" || b.ConfirmationNumber == "" {
		return fmt.Errorf("itinerary booking missing trip key or confirmation number")
	}

	if err := f.repo.Add(ctx, b); err != nil {
		return err
	}
	f.log.Info().
		Str("trip_key", b.TripKey).
		Str("resource", string(b.Resource)).
		Str("day", b.Day).
		Str("confirmation", b.ConfirmationNumber).
		Msg("itinerary booking filed")
	return nil
}
