package flightapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/voyago/tripbooking/internal/domain"
)

const defaultTimeout = 10 * time.Second

// Client talks to the flight provider's REST API. Reads (search,
// revalidate, lookup) are retried with exponential backoff; booking is
// not idempotent and gets exactly one attempt.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     zerolog.Logger
}

func NewClient(baseURL, apiKey string, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
		log:     log.With().Str("component", "flight_provider").Logger(),
	}
}

type searchRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departure_date"`
	ReturnDate    string `json:"return_date,omitempty"`
	Adults        int    `json:"adults"`
	Children      int    `json:"children,omitempty"`
	CabinClass    string `json:"cabin_class,omitempty"`
}

type offerPayload struct {
	OfferID        string    `json:"offer_id"`
	Airline        string    `json:"airline"`
	FlightNumber   string    `json:"flight_number"`
	Origin         string    `json:"origin"`
	Destination    string    `json:"destination"`
	DepartureTime  time.Time `json:"departure_time"`
	ArrivalTime    time.Time `json:"arrival_time"`
	CabinClass     string    `json:"cabin_class"`
	FareSourceCode string    `json:"fare_source_code"`
	OfferedFare    int64     `json:"offered_fare"`
	Currency       string    `json:"currency"`
	Refundable     bool      `json:"refundable"`
}

func (p offerPayload) toDomain() domain.FlightOffer {
	return domain.FlightOffer{
		OfferID:          p.OfferID,
		Airline:          p.Airline,
		FlightNumber:     p.FlightNumber,
		Origin:           p.Origin,
		Destination:      p.Destination,
		DepartureTime:    p.DepartureTime,
		ArrivalTime:      p.ArrivalTime,
		CabinClass:       p.CabinClass,
		FareSourceCode:   p.FareSourceCode,
		OfferedFareCents: p.OfferedFare,
		Currency:         p.Currency,
		Refundable:       p.Refundable,
	}
}

type searchResponse struct {
	Offers []offerPayload `json:"offers"`
}

type revalidateRequest struct {
	FareSourceCode string `json:"fare_source_code"`
	PaymentMode    string `json:"payment_mode"`
}

type revalidateResponse struct {
	Available      bool   `json:"available"`
	TotalFare      int64  `json:"total_fare"`
	Currency       string `json:"currency"`
	FareSourceCode string `json:"fare_source_code"`
	PolicyChanged  bool   `json:"policy_changed"`
}

type travelerPayload struct {
	Title       string `json:"title,omitempty"`
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	DateOfBirth string `json:"date_of_birth,omitempty"`
	PassportNo  string `json:"passport_no,omitempty"`
}

type bookRequest struct {
	FareSourceCode string            `json:"fare_source_code"`
	Travelers      []travelerPayload `json:"travelers"`
	PaymentMode    string            `json:"payment_mode"`
	CardToken      string            `json:"card_token,omitempty"`
	ContactEmail   string            `json:"contact_email"`
}

type bookResponse struct {
	PNR        string    `json:"pnr"`
	BookingRef string    `json:"booking_ref"`
	Status     string    `json:"status"`
	TotalFare  int64     `json:"total_fare"`
	Currency   string    `json:"currency"`
	IssuedAt   time.Time `json:"issued_at"`
}

type cancelResponse struct {
	BookingRef  string    `json:"booking_ref"`
	Status      string    `json:"status"`
	CancelledAt time.Time `json:"cancelled_at"`
}

func (c *Client) Search(ctx context.Context, criteria domain.FlightCriteria) ([]domain.FlightOffer, error) {
	req := searchRequest{
		Origin:        criteria.Origin,
		Destination:   criteria.Destination,
		DepartureDate: criteria.DepartureDate,
		ReturnDate:    criteria.ReturnDate,
		Adults:        criteria.Adults,
		Children:      criteria.Children,
		CabinClass:    criteria.CabinClass,
	}
	var resp searchResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/flights/search", req, &resp); err != nil {
		return nil, err
	}
	offers := make([]domain.FlightOffer, 0, len(resp.Offers))
	for _, o := range resp.Offers {
		offers = append(offers, o.toDomain())
	}
	return offers, nil
}

func (c *Client) Revalidate(ctx context.Context, fareSourceCode, paymentMode string) (*domain.RevalidationResult, error) {
	req := revalidateRequest{FareSourceCode: fareSourceCode, PaymentMode: paymentMode}
	var resp revalidateResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/flights/revalidate", req, &resp); err != nil {
		return nil, err
	}
	return &domain.RevalidationResult{
		Available:     resp.Available,
		CurrentCents:  resp.TotalFare,
		Currency:      resp.Currency,
		LockCode:      resp.FareSourceCode,
		PolicyChanged: resp.PolicyChanged,
		CheckedAt:     time.Now(),
	}, nil
}

func (c *Client) CreateReservation(ctx context.Context, fareSourceCode string, travelers []domain.Traveler, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	req := bookRequest{
		FareSourceCode: fareSourceCode,
		Travelers:      make([]travelerPayload, 0, len(travelers)),
		PaymentMode:    payment.Method,
		CardToken:      payment.CardToken,
		ContactEmail:   payment.Email,
	}
	for _, t := range travelers {
		req.Travelers = append(req.Travelers, travelerPayload(t))
	}
	var resp bookResponse
	if err := c.do(ctx, http.MethodPost, "/flights/book", req, &resp); err != nil {
		return nil, err
	}
	return &domain.BookingConfirmation{
		ConfirmationNumber: resp.PNR,
		ProviderRef:        resp.BookingRef,
		Resource:           domain.ResourceFlight,
		Travelers:          travelers,
		TotalCents:         resp.TotalFare,
		Currency:           resp.Currency,
		BookedAt:           resp.IssuedAt,
		ProviderStatus:     resp.Status,
	}, nil
}

func (c *Client) GetReservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	var resp bookResponse
	if err := c.doWithRetry(ctx, http.MethodGet, "/flights/bookings/"+providerRef, nil, &resp); err != nil {
		return nil, err
	}
	return &domain.BookingConfirmation{
		ConfirmationNumber: resp.PNR,
		ProviderRef:        resp.BookingRef,
		Resource:           domain.ResourceFlight,
		TotalCents:         resp.TotalFare,
		Currency:           resp.Currency,
		BookedAt:           resp.IssuedAt,
		ProviderStatus:     resp.Status,
	}, nil
}

func (c *Client) CancelReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	var resp cancelResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/flights/bookings/"+providerRef+"/cancel", nil, &resp); err != nil {
		return nil, err
	}
	return &domain.CancellationOutcome{
		ProviderRef: resp.BookingRef,
		Status:      resp.Status,
		CancelledAt: resp.CancelledAt,
	}, nil
}

type statusError struct {
	code   int
	method string
	path   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("flight api %s %s: status %d", e.method, e.path, e.code)
}

func retryable(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code >= 500 || se.code == http.StatusTooManyRequests
	}
	return true
}

func (c *Client) doWithRetry(ctx context.Context, method, path string, in, out any) error {
	b := retry.WithMaxRetries(2, retry.NewExponential(200*time.Millisecond))
	return retry.Do(ctx, b, func(ctx context.Context) error {
		if err := c.do(ctx, method, path, in, out); err != nil {
			if retryable(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		return nil
	})
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body *bytes.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	elapsed := time.Since(start)
	if err != nil {
		c.log.Error().Err(err).
			Str("method", method).
			Str("path", path).
			Dur("elapsed", elapsed).
			Msg("flight api request failed")
		return fmt.Errorf("flight api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("flight api returned an error status")
		return &statusError{code: resp.StatusCode, method: method, path: path}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", elapsed).
		Msg("flight api call ok")
	return nil
}
