package domain

import "time"

type PaymentIntentStatus string

const (
	IntentCreated      PaymentIntentStatus = "created"
	IntentMaterialized PaymentIntentStatus = "materialized"
	IntentRefunded     PaymentIntentStatus = "refunded"
	IntentFailed       PaymentIntentStatus = "failed"
)

// PaymentIntent is a price quote awaiting capture. It holds no inventory.
type PaymentIntent struct {
	ID          int64               `gorm:"primaryKey" json:"id"`
	IntentID    string              `gorm:"type:varchar(64);uniqueIndex;not null" json:"intent_id"`
	ClientToken string              `gorm:"type:varchar(255)" json:"-"`
	AmountMinor int64               `gorm:"not null" json:"amount_minor"`
	Currency    string              `gorm:"type:varchar(3);not null" json:"currency"`
	RoomID      int64               `gorm:"not null;index" json:"room_id"`
	CheckIn     time.Time           `gorm:"not null" json:"check_in"`
	CheckOut    time.Time           `gorm:"not null" json:"check_out"`
	Adults      int                 `gorm:"not null" json:"adults"`
	Children    int                 `gorm:"not null" json:"children"`
	TotalAmount float64             `gorm:"not null" json:"total_amount"`
	Guest       GuestInfo           `gorm:"embedded;embeddedPrefix:guest_" json:"guest"`
	Status      PaymentIntentStatus `gorm:"type:varchar(20);not null;index" json:"status"`
	BookingID   *int64              `gorm:"index" json:"booking_id,omitempty"`
	ChargeRef   string              `gorm:"type:varchar(64)" json:"charge_ref,omitempty"`
	RefundRef   string              `gorm:"type:varchar(64)" json:"refund_ref,omitempty"`
	FailReason  string              `gorm:"type:text" json:"fail_reason,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (PaymentIntent) TableName() string { return "payment_intents" }

// ToMinor converts a decimal amount to minor currency units.
func ToMinor(amount float64) int64 {
	if amount < 0 {
		return -int64(-amount*100 + 0.5)
	}
	return int64(amount*100 + 0.5)
}

func FromMinor(minor int64) float64 {
	return float64(minor) / 100
}
