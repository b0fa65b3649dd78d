package itinerary

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/voyago/tripbooking/internal/domain"
)

const dayLayout = "2006-01-02"

type Repository interface {
	Add(ctx context.Context, b domain.ItineraryBooking) error
	ListByTrip(ctx context.Context, tripKey string) ([]domain.ItineraryDay, error)
}

type PGRepository struct {
	db *pgxpool.Pool
}

func NewRepository(db *pgxpool.Pool) Repository {
	return &PGRepository{db: db}
}

// Add files a booking under its calendar day. The topic is consumed
// at-least-once, so a redelivered confirmation number is a no-op.
func (r *PGRepository) Add(ctx context.Context, b domain.ItineraryBooking) error {
	_, err := r.db.Exec(ctx, `INSERT INTO itinerary_items
		(trip_key, resource, day, title, confirmation_number, provider_ref, amount_cents, currency, synthetic, contact_email, booked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (confirmation_number) DO NOTHING`,
		b.TripKey, b.Resource, b.Day, b.Title, b.ConfirmationNumber, b.ProviderRef,
		b.AmountCents, b.Currency, b.Synthetic, b.ContactEmail, b.BookedAt)
	if err != nil {
		return fmt.Errorf("insert itinerary item: %w", err)
	}
	return nil
}

func (r *PGRepository) ListByTrip(ctx context.Context, tripKey string) ([]domain.ItineraryDay, error) {
	rows, err := r.db.Query(ctx, `SELECT trip_key, resource, day, title, confirmation_number, provider_ref, amount_cents, currency, synthetic, contact_email, booked_at
		FROM itinerary_items WHERE trip_key=$1 ORDER BY day, booked_at`, tripKey)
	if err != nil {
		return nil, fmt.Errorf("query itinerary items: %w", err)
	}
	defer rows.Close()

	var days []domain.ItineraryDay
	for rows.Next() {
		var b domain.ItineraryBooking
		var day time.Time
		if err := rows.Scan(&b.TripKey, &b.Resource, &day, &b.Title, &b.ConfirmationNumber, &b.ProviderRef,
			&b.AmountCents, &b.Currency, &b.Synthetic, &b.ContactEmail, &b.BookedAt); err != nil {
			return nil, fmt.Errorf("scan itinerary item: %w", err)
		}
		b.Day = day.Format(dayLayout)

		if n := len(days); n > 0 && days[n-1].Day == b.Day {
			days[n-1].Bookings = append(days[n-1].Bookings, b)
		} else {
			days = append(days, domain.ItineraryDay{Day: b.Day, Bookings: []domain.ItineraryBooking{b}})
		}
	}
	return days, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
