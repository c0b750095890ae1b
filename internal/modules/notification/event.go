package notification

import (
	"time"

	"hotelbooking/internal/domain"
)

type EventType string

const (
	EventBookingCreated    EventType = "booking.created"
	EventBookingCancelled  EventType = "booking.cancelled"
	EventBookingCheckedIn  EventType = "booking.checked_in"
	EventBookingCheckedOut EventType = "booking.checked_out"
	EventBookingUpdated    EventType = "booking.updated"
	EventCheckInReminder   EventType = "booking.reminder"
)

// Event is the payload published to the broker and the live feed. Template
// rendering and delivery to guests happen in downstream consumers.
type Event struct {
	Type          EventType            `json:"type"`
	BookingID     int64                `json:"booking_id"`
	BookingNumber string               `json:"booking_number"`
	RoomID        int64                `json:"room_id"`
	CheckIn       string               `json:"check_in"`
	CheckOut      string               `json:"check_out"`
	Status        domain.BookingStatus `json:"status"`
	PaymentStatus domain.PaymentStatus `json:"payment_status"`
	TotalAmount   float64              `json:"total_amount"`
	GuestName     string               `json:"guest_name"`
	GuestEmail    string               `json:"guest_email"`
	Language      string               `json:"language,omitempty"`
	Source        domain.RoomSource    `json:"source"`
	Reason        string               `json:"reason,omitempty"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

func newEvent(t EventType, b *domain.Booking, at time.Time) Event {
	return Event{
		Type:          t,
		BookingID:     b.ID,
		BookingNumber: b.BookingNumber,
		RoomID:        b.RoomID,
		CheckIn:       b.CheckIn.Format(domain.DateLayout),
		CheckOut:      b.CheckOut.Format(domain.DateLayout),
		Status:        b.Status,
		PaymentStatus: b.PaymentStatus,
		TotalAmount:   b.TotalAmount,
		GuestName:     b.Guest.FirstName + " " + b.Guest.LastName,
		GuestEmail:    b.Guest.Email,
		Language:      b.Guest.Language,
		Source:        b.Source,
		OccurredAt:    at.UTC(),
	}
}
