package domain

import (
	"fmt"
	"time"
)

type BookingStatus string

const (
	BookingPending    BookingStatus = "PENDING"
	BookingConfirmed  BookingStatus = "CONFIRMED"
	BookingCheckedIn  BookingStatus = "CHECKED_IN"
	BookingCheckedOut BookingStatus = "CHECKED_OUT"
	BookingCancelled  BookingStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentPaid     PaymentStatus = "PAID"
	PaymentFailed   PaymentStatus = "FAILED"
	PaymentRefunded PaymentStatus = "REFUNDED"
)

type PaymentMethod string

const (
	PaymentCard PaymentMethod = "CARD"
	PaymentCash PaymentMethod = "CASH"
)

// transitions lists the allowed moves of the booking state machine.
// CANCELLED and CHECKED_OUT are terminal.
var transitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCheckedIn, BookingCancelled},
	BookingCheckedIn: {BookingCheckedOut, BookingCancelled},
}

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingPending, BookingConfirmed, BookingCheckedIn, BookingCheckedOut, BookingCancelled:
		return true
	}
	return false
}

func (s BookingStatus) Terminal() bool {
	return s == BookingCancelled || s == BookingCheckedOut
}

// CanTransition reports whether a booking in status from may move to status to.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// StatusesTransitionableTo returns every status that may move to target.
func StatusesTransitionableTo(target BookingStatus) []BookingStatus {
	var out []BookingStatus
	for _, from := range []BookingStatus{BookingPending, BookingConfirmed, BookingCheckedIn} {
		if CanTransition(from, target) {
			out = append(out, from)
		}
	}
	return out
}

// GuestInfo is copied onto the booking at creation time.
type GuestInfo struct {
	FirstName       string `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName        string `json:"last_name" gorm:"type:varchar(100);not null"`
	Email           string `json:"email" gorm:"type:varchar(255);not null;index"`
	Phone           string `json:"phone,omitempty" gorm:"type:varchar(40)"`
	SpecialRequests string `json:"special_requests,omitempty" gorm:"type:text"`
	Language        string `json:"language,omitempty" gorm:"type:varchar(8)"`
}

type Booking struct {
	ID            int64     `json:"id" gorm:"primaryKey"`
	BookingNumber string    `json:"booking_number" gorm:"type:varchar(32);not null;uniqueIndex"`
	RoomID        int64     `json:"room_id" gorm:"not null;index"`
	Guest         GuestInfo `json:"guest" gorm:"embedded;embeddedPrefix:guest_"`
	CheckIn       time.Time `json:"check_in" gorm:"not null;index"`
	CheckOut      time.Time `json:"check_out" gorm:"not null;index"`
	Adults        int       `json:"adults" gorm:"not null"`
	Children      int       `json:"children" gorm:"not null"`
	TotalAmount   float64   `json:"total_amount" gorm:"not null"`

	PaymentMethod   PaymentMethod `json:"payment_method" gorm:"type:varchar(8);not null"`
	PaymentStatus   PaymentStatus `json:"payment_status" gorm:"type:varchar(16);not null"`
	Status          BookingStatus `json:"status" gorm:"type:varchar(16);not null;index"`
	PaymentIntentID *string       `json:"payment_intent_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	ChargeRef       string        `json:"charge_ref,omitempty" gorm:"type:varchar(64)"`

	ExternalBookingID *string    `json:"external_booking_id,omitempty" gorm:"type:varchar(64);uniqueIndex"`
	Source            RoomSource `json:"source" gorm:"type:varchar(16);not null"`

	CancellationReason string     `json:"cancellation_reason,omitempty" gorm:"type:text"`
	AdminNotes         string     `json:"admin_notes,omitempty" gorm:"type:text"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`
	RefundAmount       *float64   `json:"refund_amount,omitempty"`
	RefundRef          string     `json:"refund_ref,omitempty" gorm:"type:varchar(64)"`

	CheckedInAt    *time.Time `json:"checked_in_at,omitempty"`
	CheckedOutAt   *time.Time `json:"checked_out_at,omitempty"`
	ReminderSentAt *time.Time `json:"reminder_sent_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Room    *Room            `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	History []BookingHistory `json:"history,omitempty" gorm:"foreignKey:BookingID"`
}

func (Booking) TableName() string { return "bookings" }

// Nights returns the number of nights between check-in and check-out.
func (b *Booking) Nights() int {
	return NightCount(b.CheckIn, b.CheckOut)
}

// BookingHistory is the append-only audit trail of a booking.
type BookingHistory struct {
	ID         int64         `json:"id" gorm:"primaryKey"`
	BookingID  int64         `json:"booking_id" gorm:"not null;index"`
	Action     string        `json:"action" gorm:"type:varchar(32);not null"`
	FromStatus BookingStatus `json:"from_status,omitempty" gorm:"type:varchar(16)"`
	ToStatus   BookingStatus `json:"to_status,omitempty" gorm:"type:varchar(16)"`
	Actor      string        `json:"actor" gorm:"type:varchar(120)"`
	Note       string        `json:"note,omitempty" gorm:"type:text"`
	CreatedAt  time.Time     `json:"created_at"`
}

func (BookingHistory) TableName() string { return "booking_history" }

const (
	HistoryCreated       = "created"
	HistoryImported      = "imported"
	HistoryCancelled     = "cancelled"
	HistoryStatusChanged = "status_changed"
	HistoryCheckedIn     = "checked_in"
	HistoryCheckedOut    = "checked_out"
)

// RoomNight is one occupied night of a non-cancelled booking. The composite
// primary key (room_id, night) is what makes double booking impossible.
type RoomNight struct {
	RoomID    int64     `gorm:"primaryKey;autoIncrement:false"`
	Night     time.Time `gorm:"primaryKey"`
	BookingID int64     `gorm:"not null;index"`
}

func (RoomNight) TableName() string { return "room_nights" }

// BookingCounter holds the per-year booking number sequence.
type BookingCounter struct {
	Year int   `gorm:"primaryKey;autoIncrement:false"`
	Seq  int64 `gorm:"not null"`
}

func (BookingCounter) TableName() string { return "booking_counters" }

func FormatBookingNumber(year int, seq int64) string {
	return fmt.Sprintf("AST-%d-%04d", year, seq)
}
