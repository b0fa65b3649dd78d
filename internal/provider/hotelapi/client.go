package hotelapi

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

// Client talks to the hotel provider's REST API. The wire format is
// deliberately its own dialect: hotel holds are booking codes and net
// prices, not fare source codes.
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
		log:     log.With().Str("component", "hotel_provider").Logger(),
	}
}

type searchRequest struct {
	CityCode string `json:"city_code"`
	CheckIn  string `json:"check_in"`
	CheckOut string `json:"check_out"`
	Rooms    int    `json:"rooms"`
	Adults   int    `json:"adults"`
	Children int    `json:"children,omitempty"`
}

type offerPayload struct {
	OfferID     string `json:"offer_id"`
	HotelName   string `json:"hotel_name"`
	CityCode    string `json:"city_code"`
	StarRating  int    `json:"star_rating"`
	RoomType    string `json:"room_type"`
	MealPlan    string `json:"meal_plan"`
	BookingCode string `json:"booking_code"`
	NetPrice    int64  `json:"net_price"`
	Currency    string `json:"currency"`
	Refundable  bool   `json:"refundable"`
}

func (p offerPayload) toDomain() domain.HotelOffer {
	return domain.HotelOffer{
		OfferID:         p.OfferID,
		HotelName:       p.HotelName,
		CityCode:        p.CityCode,
		StarRating:      p.StarRating,
		RoomType:        p.RoomType,
		MealPlan:        p.MealPlan,
		BookingCode:     p.BookingCode,
		TotalPriceCents: p.NetPrice,
		Currency:        p.Currency,
		Refundable:      p.Refundable,
	}
}

type searchResponse struct {
	Results []offerPayload `json:"results"`
}

type revalidateRequest struct {
	BookingCode   string `json:"booking_code"`
	PaymentMethod string `json:"payment_method"`
}

type revalidateResponse struct {
	Bookable      bool   `json:"bookable"`
	NetPrice      int64  `json:"net_price"`
	Currency      string `json:"currency"`
	BookingCode   string `json:"booking_code"`
	PolicyChanged bool   `json:"policy_changed"`
}

type guestPayload struct {
	Title     string `json:"title,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type bookRequest struct {
	BookingCode   string         `json:"booking_code"`
	Guests        []guestPayload `json:"guests"`
	PaymentMethod string         `json:"payment_method"`
	Token         string         `json:"token,omitempty"`
	Email         string         `json:"email"`
}

type bookResponse struct {
	ConfirmationID string    `json:"confirmation_id"`
	ReservationRef string    `json:"reservation_ref"`
	Status         string    `json:"status"`
	NetPrice       int64     `json:"net_price"`
	Currency       string    `json:"currency"`
	VoucherRef     string    `json:"voucher_ref"`
	ConfirmedAt    time.Time `json:"confirmed_at"`
}

type cancelResponse struct {
	ReservationRef string    `json:"reservation_ref"`
	Status         string    `json:"status"`
	CancelledAt    time.Time `json:"cancelled_at"`
}

func (c *Client) Search(ctx context.Context, criteria domain.HotelCriteria) ([]domain.HotelOffer, error) {
	req := searchRequest{
		CityCode: criteria.CityCode,
		CheckIn:  criteria.CheckIn,
		CheckOut: criteria.CheckOut,
		Rooms:    criteria.Rooms,
		Adults:   criteria.Adults,
		Children: criteria.Children,
	}
	var resp searchResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/hotels/search", req, &resp); err != nil {
		return nil, err
	}
	offers := make([]domain.HotelOffer, 0, len(resp.Results))
	for _, o := range resp.Results {
		offers = append(offers, o.toDomain())
	}
	return offers, nil
}

func (c *Client) Revalidate(ctx context.Context, bookingCode, paymentMode string) (*domain.RevalidationResult, error) {
	req := revalidateRequest{BookingCode: bookingCode, PaymentMethod: paymentMode}
	var resp revalidateResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/hotels/revalidate", req, &resp); err != nil {
		return nil, err
	}
	return &domain.RevalidationResult{
		Available:     resp.Bookable,
		CurrentCents:  resp.NetPrice,
		Currency:      resp.Currency,
		LockCode:      resp.BookingCode,
		PolicyChanged: resp.PolicyChanged,
		CheckedAt:     time.Now(),
	}, nil
}

func (c *Client) CreateReservation(ctx context.Context, bookingCode string, guests []domain.Guest, payment domain.PaymentInfo) (*domain.BookingConfirmation, error) {
	req := bookRequest{
		BookingCode:   bookingCode,
		Guests:        make([]guestPayload, 0, len(guests)),
		PaymentMethod: payment.Method,
		Token:         payment.CardToken,
		Email:         payment.Email,
	}
	for _, g := range guests {
		req.Guests = append(req.Guests, guestPayload(g))
	}
	var resp bookResponse
	if err := c.do(ctx, http.MethodPost, "/hotels/book", req, &resp); err != nil {
		return nil, err
	}
	return &domain.BookingConfirmation{
		ConfirmationNumber: resp.ConfirmationID,
		ProviderRef:        resp.ReservationRef,
		Resource:           domain.ResourceHotel,
		Guests:             guests,
		TotalCents:         resp.NetPrice,
		Currency:           resp.Currency,
		BookedAt:           resp.ConfirmedAt,
		ProviderStatus:     resp.Status,
		VoucherRef:         resp.VoucherRef,
	}, nil
}

func (c *Client) GetReservation(ctx context.Context, providerRef string) (*domain.BookingConfirmation, error) {
	var resp bookResponse
	if err := c.doWithRetry(ctx, http.MethodGet, "/hotels/bookings/"+providerRef, nil, &resp); err != nil {
		return nil, err
	}
	return &domain.BookingConfirmation{
		ConfirmationNumber: resp.ConfirmationID,
		ProviderRef:        resp.ReservationRef,
		Resource:           domain.ResourceHotel,
		TotalCents:         resp.NetPrice,
		Currency:           resp.Currency,
		BookedAt:           resp.ConfirmedAt,
		ProviderStatus:     resp.Status,
		VoucherRef:         resp.VoucherRef,
	}, nil
}

func (c *Client) CancelReservation(ctx context.Context, providerRef string) (*domain.CancellationOutcome, error) {
	var resp cancelResponse
	if err := c.doWithRetry(ctx, http.MethodPost, "/hotels/bookings/"+providerRef+"/cancel", nil, &resp); err != nil {
		return nil, err
	}
	return &domain.CancellationOutcome{
		ProviderRef: resp.ReservationRef,
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
	return fmt.Sprintf("hotel api %s %s: status %d", e.method, e.path, e.code)
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
			Msg("hotel api request failed")
		return fmt.Errorf("hotel api %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Warn().
			Str("method", method).
			Str("path", path).
			Int("status", resp.StatusCode).
			Dur("elapsed", elapsed).
			Msg("hotel api returned an error status")
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
		Msg("hotel api call ok")
	return nil
}
