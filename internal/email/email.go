package email

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/voyago/tripbooking/internal/domain"
)

// Sender renders booking vouchers. There is no SMTP backend yet; the
// rendered voucher is written to the log so the pipeline stays observable.
type Sender struct {
	from string
	log  zerolog.Logger
}

func NewSender(from string, log zerolog.Logger) *Sender {
	if from == "" {
		from = "bookings@tripbooking.local"
	}
	return &Sender{
		from: from,
		log:  log.With().Str("component", "email_sender").Logger(),
	}
}

func (s *Sender) SendVoucher(ctx context.Context, b domain.ItineraryBooking) error {
	if b.ContactEmail == "" {
		return fmt.Errorf("booking %s has no contact email", b.ConfirmationNumber)
	}

	subject := fmt.Sprintf("Your %s booking %s is confirmed", b.Resource, b.ConfirmationNumber)
	body := fmt.Sprintf("%s on %s. Confirmation %s, reference %s. Total %d.%02d %s.",
		b.Title, b.Day, b.ConfirmationNumber, b.ProviderRef,
		b.AmountCents/100, b.AmountCents%100, b.Currency)

	s.log.Info().
		Str("from", s.from).
		Str("to", b.ContactEmail).
		Str("subject", subject).
		Str("body", body).
		Msg("voucher email sent")
	return nil
}
