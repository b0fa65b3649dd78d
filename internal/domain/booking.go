package domain

import "time"

type RevalidationResult struct {
	Available     bool      `json:"available"`
	PriceChanged  bool      `json:"price_changed"`
	OriginalCents int64     `json:"original_cents"`
	CurrentCents  int64     `json:"current_cents"`
	Currency      string    `json:"currency"`
	LockCode      string    `json:"lock_code"`
	PolicyChanged bool      `json:"policy_changed"`
	Synthetic     bool      `json:"synthetic,omitempty"`
	CheckedAt     time.Time `json:"checked_at"`
}

type PaymentInfo struct {
	Method    string `json:"method"`
	CardToken string `json:"card_token,omitempty"`
	Email     string `json:"email"`
}

const (
	PaymentMethodCard     = "CARD"
	PaymentMethodPayLater = "PAY_LATER"
)

type BookingConfirmation struct {
	ConfirmationNumber string       `json:"confirmation_number"`
	ProviderRef        string       `json:"provider_ref"`
	Resource           ResourceType `json:"resource"`
	Travelers          []Traveler   `json:"travelers,omitempty"`
	Guests             []Guest      `json:"guests,omitempty"`
	TotalCents         int64        `json:"total_cents"`
	Currency           string       `json:"currency"`
	BookedAt           time.Time    `json:"booked_at"`
	ProviderStatus     string       `json:"provider_status"`
	VoucherRef         string       `json:"voucher_ref,omitempty"`
	Synthetic          bool         `json:"synthetic"`
}

type CancellationOutcome struct {
	ProviderRef string    `json:"provider_ref"`
	Status      string    `json:"status"`
	CancelledAt time.Time `json:"cancelled_at"`
	Synthetic   bool      `json:"synthetic,omitempty"`
}

type CombinedConfirmation struct {
	Flight     *BookingConfirmation `json:"flight,omitempty"`
	Hotel      *BookingConfirmation `json:"hotel,omitempty"`
	TotalCents int64                `json:"total_cents"`
	Currency   string               `json:"currency"`
	BookedAt   time.Time            `json:"booked_at"`
}
