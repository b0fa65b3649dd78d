package domain

import "time"

type ItineraryBooking struct {
	TripKey            string       `json:"trip_key"`
	Resource           ResourceType `json:"resource"`
	Day                string       `json:"day"`
	Title              string       `json:"title"`
	ConfirmationNumber string       `json:"confirmation_number"`
	ProviderRef        string       `json:"provider_ref"`
	AmountCents        int64        `json:"amount_cents"`
	Currency           string       `json:"currency"`
	Synthetic          bool         `json:"synthetic"`
	ContactEmail       string       `json:"contact_email,omitempty"`
	BookedAt           time.Time    `json:"booked_at"`
}

// ItineraryDay groups a trip's filed bookings under one calendar day,
// the shape the UI calendar reads.
type ItineraryDay struct {
	Day      string             `json:"day"`
	Bookings []ItineraryBooking `json:"bookings"`
}
