package payment

import (
	"context"
	"fmt"

	"hotelbooking/internal/domain"
)

var (
	ErrCaptureNotConfirmed  = fmt.Errorf("%w: payment capture not confirmed", domain.ErrPayment)
	ErrGatewayNotConfigured = fmt.Errorf("%w: payment gateway is not configured", domain.ErrPayment)
	ErrRefundFailed         = fmt.Errorf("%w: refund failed", domain.ErrPayment)
)

// Intent is the processor's answer to CreateIntent. ClientToken is handed to
// the guest's browser to complete the card step.
type Intent struct {
	IntentID    string
	ClientToken string
}

type Capture struct {
	IntentID    string
	Captured    bool
	AmountMinor int64
	Currency    string
	ChargeRef   string
	Metadata    map[string]string
}

// Gateway is the card processor contract.
type Gateway interface {
	CreateIntent(ctx context.Context, amountMinor int64, currency string, metadata map[string]string) (*Intent, error)
	ConfirmCaptured(ctx context.Context, intentID string) (*Capture, error)
	Refund(ctx context.Context, chargeRef string, amountMinor int64, reason string) (string, error)
}

// Disabled rejects every call. It stands in when no processor is configured
// so cash bookings keep working.
type Disabled struct{}

func (Disabled) CreateIntent(context.Context, int64, string, map[string]string) (*Intent, error) {
	return nil, ErrGatewayNotConfigured
}

func (Disabled) ConfirmCaptured(context.Context, string) (*Capture, error) {
	return nil, ErrGatewayNotConfigured
}

func (Disabled) Refund(context.Context, string, int64, string) (string, error) {
	return "", ErrGatewayNotConfigured
}
