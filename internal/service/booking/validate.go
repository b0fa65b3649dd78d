package booking

import (
	"fmt"
	"time"

	"github.com/voyago/tripbooking/internal/domain"
)

const dateLayout = "2006-01-02"

func validateFlightCriteria(c domain.FlightCriteria, now time.Time) error {
	if c.Origin == "" || c.Destination == "" {
		return fmt.Errorf("%w: origin and destination are required", ErrValidation)
	}
	if c.Origin == c.Destination {
		return fmt.Errorf("%w: origin and destination must differ", ErrValidation)
	}
	if c.Adults < 1 {
		return fmt.Errorf("%w: at least one adult is required", ErrValidation)
	}
	if c.Children < 0 {
		return fmt.Errorf("%w: children count cannot be negative", ErrValidation)
	}
	if _, err := time.Parse(dateLayout, c.DepartureDate); err != nil {
		return fmt.Errorf("%w: departure date must be YYYY-MM-DD", ErrValidation)
	}
	if c.DepartureDate < now.Format(dateLayout) {
		return fmt.Errorf("%w: departure date is in the past", ErrValidation)
	}
	if c.ReturnDate != "" {
		if _, err := time.Parse(dateLayout, c.ReturnDate); err != nil {
			return fmt.Errorf("%w: return date must be YYYY-MM-DD", ErrValidation)
		}
		if c.ReturnDate < c.DepartureDate {
			return fmt.Errorf("%w: return date is before departure", ErrValidation)
		}
	}
	return nil
}

func validateHotelCriteria(c domain.HotelCriteria, now time.Time) error {
	if c.CityCode == "" {
		return fmt.Errorf("%w: city code is required", ErrValidation)
	}
	if c.Rooms < 1 {
		return fmt.Errorf("%w: at least one room is required", ErrValidation)
	}
	if c.Adults < 1 {
		return fmt.Errorf("%w: at least one adult is required", ErrValidation)
	}
	if c.Children < 0 {
		return fmt.Errorf("%w: children count cannot be negative", ErrValidation)
	}
	if _, err := time.Parse(dateLayout, c.CheckIn); err != nil {
		return fmt.Errorf("%w: check-in date must be YYYY-MM-DD", ErrValidation)
	}
	if _, err := time.Parse(dateLayout, c.CheckOut); err != nil {
		return fmt.Errorf("%w: check-out date must be YYYY-MM-DD", ErrValidation)
	}
	if c.CheckIn < now.Format(dateLayout) {
		return fmt.Errorf("%w: check-in date is in the past", ErrValidation)
	}
	if c.CheckOut <= c.CheckIn {
		return fmt.Errorf("%w: stay must be at least one night", ErrValidation)
	}
	return nil
}

func validateTravelers(travelers []domain.Traveler) error {
	if len(travelers) == 0 {
		return fmt.Errorf("%w: at least one traveler is required", ErrValidation)
	}
	for i, t := range travelers {
		if t.FirstName == "" || t.LastName == "" {
			return fmt.Errorf("%w: traveler %d needs a first and last name", ErrValidation, i+1)
		}
	}
	return nil
}

func validateGuests(guests []domain.Guest) error {
	if len(guests) == 0 {
		return fmt.Errorf("%w: at least one guest is required", ErrValidation)
	}
	for i, g := range guests {
		if g.FirstName == "" || g.LastName == "" {
			return fmt.Errorf("%w: guest %d needs a first and last name", ErrValidation, i+1)
		}
	}
	return nil
}

func validatePayment(p domain.PaymentInfo) error {
	if p.Method == "" {
		return fmt.Errorf("%w: payment method is required", ErrValidation)
	}
	if p.Method == domain.PaymentMethodCard && p.CardToken == "" {
		return fmt.Errorf("%w: card payments need a card token", ErrValidation)
	}
	if p.Email == "" {
		return fmt.Errorf("%w: contact email is required", ErrValidation)
	}
	return nil
}

func validateStatusTarget(target domain.SessionStatus) error {
	switch target {
	case domain.StatusDetails, domain.StatusGuestDetails, domain.StatusPayment:
		return nil
	}
	return fmt.Errorf("%w: cannot set session status to %q", ErrValidation, string(target))
}
