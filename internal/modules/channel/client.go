package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hotelbooking/internal/domain"
)

// Reservation is what the channel needs to block a room on its side.
type Reservation struct {
	ExternalRoomID string  `json:"room_id"`
	Reference      string  `json:"reference"`
	CheckIn        string  `json:"check_in"`
	CheckOut       string  `json:"check_out"`
	Adults         int     `json:"adults"`
	Children       int     `json:"children"`
	GuestName      string  `json:"guest_name"`
	GuestEmail     string  `json:"guest_email"`
	TotalAmount    float64 `json:"total_amount"`
}

type Client interface {
	CreateReservation(ctx context.Context, r Reservation) (string, error)
	CancelReservation(ctx context.Context, externalBookingID, reason string) error
}

func reservationFor(b *domain.Booking, externalRoomID string) Reservation {
	return Reservation{
		ExternalRoomID: externalRoomID,
		Reference:      b.BookingNumber,
		CheckIn:        b.CheckIn.Format(domain.DateLayout),
		CheckOut:       b.CheckOut.Format(domain.DateLayout),
		Adults:         b.Adults,
		Children:       b.Children,
		GuestName:      strings.TrimSpace(b.Guest.FirstName + " " + b.Guest.LastName),
		GuestEmail:     b.Guest.Email,
		TotalAmount:    b.TotalAmount,
	}
}

// HTTPClient calls the channel partner's reservation API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPClient(baseURL, apiKey string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) CreateReservation(ctx context.Context, r Reservation) (string, error) {
	var out struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/reservations", r, &out); err != nil {
		return "", err
	}
	if out.ID == "" {
		return "", fmt.Errorf("%w: channel returned no reservation id", domain.ErrExternalSync)
	}
	return out.ID, nil
}

func (c *HTTPClient) CancelReservation(ctx context.Context, externalBookingID, reason string) error {
	path := "/reservations/" + url.PathEscape(externalBookingID) + "/cancel"
	return c.do(ctx, http.MethodPost, path, map[string]string{"reason": reason}, nil)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, in, out interface{}) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrExternalSync, method, path, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: %s %s: status %d: %s", domain.ErrExternalSync, method, path, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrExternalSync, err)
	}
	return nil
}
