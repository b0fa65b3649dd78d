package fallback

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/voyago/tripbooking/internal/domain"
)

const defaultCurrency = "EUR"

var airlines = []struct {
	name string
	code string
}{
	{"SkyLux", "SL"},
	{"AeroWave", "AW"},
	{"Nimbus Air", "NB"},
	{"Meridian Airways", "MD"},
	{"PolarJet", "PJ"},
	{"AzureWings", "AZ"},
}

var cabinClasses = []string{"ECONOMY", "PREMIUM_ECONOMY", "BUSINESS"}

var hotelNames = []string{
	"Grand Meridian",
	"Hotel Verdant",
	"The Quayside",
	"Casa Lumen",
	"Atlas Residence",
	"Porto Azur",
	"Villa Borealis",
}

var roomTypes = []string{"Standard Double", "Superior Twin", "Deluxe King", "Junior Suite"}

var mealPlans = []string{"RO", "BB", "HB", "AI"}

type fare struct {
	cents    int64
	currency string
}

// Synthesizer fabricates plausible provider data when the real gateways
// are down or the engine runs offline. Everything it produces is tagged
// synthetic and lock codes carry the SYN- prefix so a synthesized hold
// can never be mistaken for a live one. It remembers the prices behind
// the lock codes it hands out, the way a provider would.
type Synthesizer struct {
	mu            sync.Mutex
	rng           *rand.Rand
	fares         map[string]fare
	confirmations map[string]*domain.BookingConfirmation
}

func NewSynthesizer(seed int64) *Synthesizer {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Synthesizer{
		rng:           rand.New(rand.NewSource(seed)),
		fares:         make(map[string]fare),
		confirmations: make(map[string]*domain.BookingConfirmation),
	}
}

func (s *Synthesizer) FlightOffers(c domain.FlightCriteria) []domain.FlightOffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	day, err := time.Parse("2006-01-02", c.DepartureDate)
	if err != nil {
		day = time.Now().AddDate(0, 0, 7)
	}

	n := 5 + s.rng.Intn(4)
	offers := make([]domain.FlightOffer, 0, n)
	for i := 0; i < n; i++ {
		carrier := airlines[s.rng.Intn(len(airlines))]
		cabin := c.CabinClass
		if cabin == "" {
			cabin = cabinClasses[s.rng.Intn(len(cabinClasses))]
		}
		dep := day.Add(time.Duration(6+s.rng.Intn(15)) * time.Hour)
		arr := dep.Add(time.Duration(2+s.rng.Intn(8)) * time.Hour)
		cents := int64(80+s.rng.Intn(450)) * 100
		if cabin == "BUSINESS" {
			cents *= 3
		}
		lock := syntheticCode("SYN-FL")
		s.fares[lock] = fare{cents: cents, currency: defaultCurrency}
		offers = append(offers, domain.FlightOffer{
			OfferID:          syntheticCode("SYN-OF"),
			Airline:          carrier.name,
			FlightNumber:     fmt.Sprintf("%s-%d", carrier.code, 100+s.rng.Intn(900)),
			Origin:           c.Origin,
			Destination:      c.Destination,
			DepartureTime:    dep,
			ArrivalTime:      arr,
			CabinClass:       cabin,
			FareSourceCode:   lock,
			OfferedFareCents: cents,
			Currency:         defaultCurrency,
			Refundable:       s.rng.Intn(100) < 40,
			Synthetic:        true,
		})
	}
	return offers
}

func (s *Synthesizer) HotelOffers(c domain.HotelCriteria) []domain.HotelOffer {
	s.mu.Lock()
	defer s.mu.Unlock()

	nights := 1
	if in, err := time.Parse("2006-01-02", c.CheckIn); err == nil {
		if out, err := time.Parse("2006-01-02", c.CheckOut); err == nil {
			if d := int(out.Sub(in).Hours() / 24); d > 0 {
				nights = d
			}
		}
	}

	n := 5 + s.rng.Intn(4)
	offers := make([]domain.HotelOffer, 0, n)
	for i := 0; i < n; i++ {
		stars := 3 + s.rng.Intn(3)
		perNight := int64(60+s.rng.Intn(260)) * 100
		if stars == 5 {
			perNight *= 2
		}
		cents := perNight * int64(nights)
		lock := syntheticCode("SYN-HT")
		s.fares[lock] = fare{cents: cents, currency: defaultCurrency}
		offers = append(offers, domain.HotelOffer{
			OfferID:         syntheticCode("SYN-OF"),
			HotelName:       hotelNames[s.rng.Intn(len(hotelNames))],
			CityCode:        c.CityCode,
			StarRating:      stars,
			RoomType:        roomTypes[s.rng.Intn(len(roomTypes))],
			MealPlan:        mealPlans[s.rng.Intn(len(mealPlans))],
			BookingCode:     lock,
			TotalPriceCents: cents,
			Currency:        defaultCurrency,
			Refundable:      s.rng.Intn(100) < 60,
			Synthetic:       true,
		})
	}
	return offers
}

func (s *Synthesizer) FlightRevalidation(lockCode string, quotedCents int64, currency string) *domain.RevalidationResult {
	return s.revalidation("SYN-RV", lockCode, quotedCents, currency)
}

func (s *Synthesizer) HotelRevalidation(lockCode string, quotedCents int64, currency string) *domain.RevalidationResult {
	return s.revalidation("SYN-RV", lockCode, quotedCents, currency)
}

func (s *Synthesizer) revalidation(prefix, lockCode string, quotedCents int64, currency string) *domain.RevalidationResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if currency == "" {
		currency = defaultCurrency
	}
	if quotedCents == 0 {
		if f, ok := s.fares[lockCode]; ok {
			quotedCents = f.cents
			currency = f.currency
		}
	}

	current := quotedCents
	if s.rng.Intn(100) < 30 {
		delta := quotedCents * int64(2+s.rng.Intn(8)) / 100
		if s.rng.Intn(2) == 0 {
			delta = -delta
		}
		current += delta
		if current < 500 {
			current = 500
		}
	}

	newLock := syntheticCode(prefix)
	s.fares[newLock] = fare{cents: current, currency: currency}
	return &domain.RevalidationResult{
		Available:     s.rng.Intn(100) < 96,
		PriceChanged:  current != quotedCents,
		OriginalCents: quotedCents,
		CurrentCents:  current,
		Currency:      currency,
		LockCode:      newLock,
		PolicyChanged: s.rng.Intn(100) < 10,
		Synthetic:     true,
		CheckedAt:     time.Now(),
	}
}

func (s *Synthesizer) FlightConfirmation(lockCode string, travelers []domain.Traveler) *domain.BookingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.fares[lockCode]
	if f.currency == "" {
		f.currency = defaultCurrency
	}
	conf := &domain.BookingConfirmation{
		ConfirmationNumber: syntheticCode("SYN"),
		ProviderRef:        syntheticCode("SYNF"),
		Resource:           domain.ResourceFlight,
		Travelers:          travelers,
		TotalCents:         f.cents,
		Currency:           f.currency,
		BookedAt:           time.Now(),
		ProviderStatus:     "CONFIRMED",
		Synthetic:          true,
	}
	s.confirmations[conf.ProviderRef] = conf
	return conf
}

func (s *Synthesizer) HotelConfirmation(lockCode string, guests []domain.Guest) *domain.BookingConfirmation {
	s.mu.Lock()
	defer s.mu.Unlock()

	f := s.fares[lockCode]
	if f.currency == "" {
		f.currency = defaultCurrency
	}
	conf := &domain.BookingConfirmation{
		ConfirmationNumber: syntheticCode("SYN"),
		ProviderRef:        syntheticCode("SYNH"),
		Resource:           domain.ResourceHotel,
		Guests:             guests,
		TotalCents:         f.cents,
		Currency:           f.currency,
		BookedAt:           time.Now(),
		ProviderStatus:     "CONFIRMED",
		VoucherRef:         syntheticCode("VCH"),
		Synthetic:          true,
	}
	s.confirmations[conf.ProviderRef] = conf
	return conf
}

func (s *Synthesizer) Reservation(providerRef string) (*domain.BookingConfirmation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conf, ok := s.confirmations[providerRef]
	return conf, ok
}

func (s *Synthesizer) Cancellation(providerRef string) *domain.CancellationOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.confirmations, providerRef)
	return &domain.CancellationOutcome{
		ProviderRef: providerRef,
		Status:      "CANCELLED",
		CancelledAt: time.Now(),
		Synthetic:   true,
	}
}

func syntheticCode(prefix string) string {
	return prefix + "-" + strings.ToUpper(uuid.NewString()[:8])
}
