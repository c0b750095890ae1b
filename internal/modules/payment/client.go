package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"hotelbooking/internal/domain"
)

// HTTPGateway talks JSON to the processor's REST API with a bearer secret key.
type HTTPGateway struct {
	baseURL   string
	secretKey string
	client    *http.Client
	loggerf   func(format string, args ...interface{})
}

func NewHTTPGateway(baseURL, secretKey string, timeout time.Duration, loggerf func(format string, args ...interface{})) *HTTPGateway {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &HTTPGateway{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: timeout},
		loggerf:   loggerf,
	}
}

type createIntentBody struct {
	Amount   int64             `json:"amount"`
	Currency string            `json:"currency"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

type intentBody struct {
	ID            string            `json:"id"`
	ClientSecret  string            `json:"client_secret"`
	Status        string            `json:"status"`
	Amount        int64             `json:"amount"`
	AmountCapture int64             `json:"amount_received"`
	Currency      string            `json:"currency"`
	LatestCharge  string            `json:"latest_charge"`
	Metadata      map[string]string `json:"metadata"`
}

type refundRequestBody struct {
	Charge string `json:"charge"`
	Amount int64  `json:"amount"`
	Reason string `json:"reason,omitempty"`
}

type refundBody struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *HTTPGateway) CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error) {
	if amountMinor <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", domain.ErrValidation)
	}
	var out intentBody
	err := g.do(ctx, http.MethodPost, "/v1/payment_intents", createIntentBody{
		Amount:   amountMinor,
		Currency: strings.ToLower(currency),
		Metadata: metadata,
	}, &out)
	if err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("%w: empty intent id", domain.ErrPayment)
	}
	g.loggerf("level=info msg=\"payment intent created\" intent_id=%s amount_minor=%d", out.ID, amountMinor)
	return &Intent{IntentID: out.ID, ClientToken: out.ClientSecret}, nil
}

func (g *HTTPGateway) ConfirmCaptured(ctx context.Context, intentID string) (*Capture, error) {
	var out intentBody
	if err := g.do(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(intentID), nil, &out); err != nil {
		return nil, err
	}
	captured := out.Status == "succeeded" && out.LatestCharge != ""
	amount := out.AmountCapture
	if amount == 0 && captured {
		amount = out.Amount
	}
	return &Capture{
		IntentID:    out.ID,
		Captured:    captured,
		AmountMinor: amount,
		Currency:    strings.ToUpper(out.Currency),
		ChargeRef:   out.LatestCharge,
		Metadata:    out.Metadata,
	}, nil
}

func (g *HTTPGateway) Refund(ctx context.Context, chargeRef string, amountMinor int64, reason string) (string, error) {
	if chargeRef == "" {
		return "", fmt.Errorf("%w: missing charge reference", ErrRefundFailed)
	}
	var out refundBody
	err := g.do(ctx, http.MethodPost, "/v1/refunds", refundRequestBody{
		Charge: chargeRef,
		Amount: amountMinor,
		Reason: reason,
	}, &out)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRefundFailed, err)
	}
	if out.Status == "failed" || out.Status == "canceled" {
		return "", fmt.Errorf("%w: refund %s is %s", ErrRefundFailed, out.ID, out.Status)
	}
	g.loggerf("level=info msg=\"refund issued\" charge=%s refund_id=%s amount_minor=%d", chargeRef, out.ID, amountMinor)
	return out.ID, nil
}

func (g *HTTPGateway) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+g.secretKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %v", domain.ErrPayment, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", domain.ErrPayment, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var eb errorBody
		msg := resp.Status
		if json.Unmarshal(raw, &eb) == nil && eb.Error.Message != "" {
			msg = eb.Error.Message
		}
		g.loggerf("level=error msg=\"payment gateway error\" method=%s path=%s status=%d error=%q", method, path, resp.StatusCode, msg)
		return &StatusError{StatusCode: resp.StatusCode, Message: msg}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrPayment, err)
	}
	return nil
}

// StatusError is a non-2xx answer from the processor.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("payment gateway returned %d: %s", e.StatusCode, e.Message)
}

func (e *StatusError) Is(target error) bool {
	return target == domain.ErrPayment
}

// IsStatus reports whether err carries the given processor status code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
