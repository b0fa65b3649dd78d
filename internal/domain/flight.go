package domain

import "time"

type FlightCriteria struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children"`
	CabinClass    string `json:"cabin_class,omitempty"`
}

type FlightOffer struct {
	OfferID          string    `json:"offer_id"`
	Airline          string    `json:"airline"`
	FlightNumber     string    `json:"flight_number"`
	Origin           string    `json:"origin"`
	Destination      string    `json:"destination"`
	DepartureTime    time.Time `json:"departure_time"`
	ArrivalTime      time.Time `json:"arrival_time"`
	CabinClass       string    `json:"cabin_class"`
	FareSourceCode   string    `json:"fare_source_code"`
	OfferedFareCents int64     `json:"offered_fare_cents"`
	Currency         string    `json:"currency"`
	Refundable       bool      `json:"refundable"`
	Synthetic        bool      `json:"synthetic,omitempty"`
}

type FlightSession struct {
	SessionBase
	Offer    FlightOffer    `json:"offer"`
	Criteria FlightCriteria `json:"criteria"`
}

type Traveler struct {
	Title       string `json:"title"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	PassportNo  string `json:"passport_no,omitempty"`
}
