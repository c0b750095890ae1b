package channel

import (
	"context"
	"errors"
	"strings"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

const (
	EventBookingCreated   = "booking.created"
	EventBookingCancelled = "booking.cancelled"
)

// Acknowledgement statuses returned to the channel.
const (
	StatusProcessed = "processed"
	StatusDuplicate = "duplicate"
	StatusUnmapped  = "unmapped"
	StatusConflict  = "conflict"
	StatusIgnored   = "ignored"
)

const channelActor = "channel"

type WebhookGuest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type WebhookBooking struct {
	ExternalBookingID string       `json:"externalBookingId"`
	ExternalRoomID    string       `json:"externalRoomId"`
	CheckInDate       string       `json:"checkInDate"`
	CheckOutDate      string       `json:"checkOutDate"`
	Adults            int          `json:"adults"`
	Children          int          `json:"children"`
	TotalPrice        float64      `json:"totalPrice"`
	GuestDetails      WebhookGuest `json:"guestDetails"`
	Reason            string       `json:"reason"`
}

type WebhookEvent struct {
	Event string         `json:"event"`
	Data  WebhookBooking `json:"data"`
}

// parseChannelDate accepts a plain date or an RFC 3339 timestamp; only the
// calendar date is kept.
func parseChannelDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return domain.NormalizeDate(t), nil
	}
	return domain.ParseDate(s)
}

type WebhookService struct {
	bookings BookingStore
	rooms    RoomLookup
	cache    CacheInvalidator
	notifs   Notifier
	loggerf  func(format string, args ...interface{})
	now      func() time.Time
}

func NewWebhookService(bookings BookingStore, rooms RoomLookup, cache CacheInvalidator, notifs Notifier, loggerf func(format string, args ...interface{})) *WebhookService {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &WebhookService{
		bookings: bookings,
		rooms:    rooms,
		cache:    cache,
		notifs:   notifs,
		loggerf:  loggerf,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Handle applies one authenticated channel event and returns the
// acknowledgement status. An error means the event could not be processed
// and should be retried by the channel.
func (s *WebhookService) Handle(ctx context.Context, ev WebhookEvent) (string, error) {
	switch ev.Event {
	case EventBookingCreated:
		return s.importBooking(ctx, ev.Data)
	case EventBookingCancelled:
		return s.cancelBooking(ctx, ev.Data)
	default:
		s.loggerf("level=info msg=\"channel event ignored\" event=%q", ev.Event)
		return StatusIgnored, nil
	}
}

// importBooking stores a reservation sold by the channel. The availability
// gate is not consulted; the night claims still reject a collision.
func (s *WebhookService) importBooking(ctx context.Context, data WebhookBooking) (string, error) {
	extID := strings.TrimSpace(data.ExternalBookingID)
	checkIn, checkOut, err := s.stayOf(data)
	if extID == "" || strings.TrimSpace(data.ExternalRoomID) == "" {
		err = errors.New("externalBookingId and externalRoomId are required")
	}
	if err != nil {
		s.loggerf("level=warn msg=\"unusable channel booking ignored\" external_booking_id=%q err=%q", extID, err.Error())
		return StatusIgnored, nil
	}

	if _, err := s.bookings.GetByExternalRef(ctx, extID); err == nil {
		return StatusDuplicate, nil
	} else if !repository.IsNotFound(err) {
		return "", err
	}

	room, err := s.rooms.GetByExternalID(ctx, strings.TrimSpace(data.ExternalRoomID))
	if err != nil {
		if repository.IsNotFound(err) {
			s.loggerf("level=warn msg=\"channel booking for unmapped room\" external_booking_id=%s external_room_id=%s", extID, data.ExternalRoomID)
			return StatusUnmapped, nil
		}
		return "", err
	}

	adults := data.Adults
	if adults < 1 {
		adults = 1
	}
	total := data.TotalPrice
	if total <= 0 {
		total = float64(domain.NightCount(checkIn, checkOut)) * room.Price
	}

	b := &domain.Booking{
		RoomID: room.ID,
		Guest: domain.GuestInfo{
			FirstName: strings.TrimSpace(data.GuestDetails.FirstName),
			LastName:  strings.TrimSpace(data.GuestDetails.LastName),
			Email:     strings.ToLower(strings.TrimSpace(data.GuestDetails.Email)),
			Phone:     strings.TrimSpace(data.GuestDetails.Phone),
		},
		CheckIn:           checkIn,
		CheckOut:          checkOut,
		Adults:            adults,
		Children:          data.Children,
		TotalAmount:       total,
		PaymentMethod:     domain.PaymentCard,
		PaymentStatus:     domain.PaymentPaid,
		Status:            domain.BookingConfirmed,
		ExternalBookingID: &extID,
		Source:            domain.SourceChannel,
		CreatedAt:         s.now(),
	}

	err = s.bookings.Create(ctx, b, repository.CreateOptions{
		Action: domain.HistoryImported,
		Actor:  channelActor,
		Note:   "external booking " + extID,
	})
	switch {
	case errors.Is(err, repository.ErrDuplicateExternalRef):
		return StatusDuplicate, nil
	case errors.Is(err, repository.ErrNightsTaken):
		s.loggerf("level=error msg=\"channel booking collides with local inventory\" external_booking_id=%s room_id=%d check_in=%s check_out=%s",
			extID, room.ID, checkIn.Format(domain.DateLayout), checkOut.Format(domain.DateLayout))
		return StatusConflict, nil
	case err != nil:
		return "", err
	}

	s.loggerf("level=info msg=\"channel booking imported\" number=%s external_booking_id=%s room_id=%d", b.BookingNumber, extID, room.ID)
	s.cache.InvalidateStay(ctx, b.CheckIn, b.CheckOut)
	if err := s.notifs.NotifyBookingCreated(ctx, b); err != nil {
		s.loggerf("level=warn msg=\"notify booking created\" number=%s err=%v", b.BookingNumber, err)
	}
	return StatusProcessed, nil
}

// stayOf parses and bounds the stay of a channel booking.
func (s *WebhookService) stayOf(data WebhookBooking) (time.Time, time.Time, error) {
	checkIn, err := parseChannelDate(data.CheckInDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err := parseChannelDate(data.CheckOutDate)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if err := domain.ValidateStay(checkIn, checkOut); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}

func (s *WebhookService) cancelBooking(ctx context.Context, data WebhookBooking) (string, error) {
	extID := strings.TrimSpace(data.ExternalBookingID)
	if extID == "" {
		s.loggerf("level=warn msg=\"channel cancel without externalBookingId ignored\"")
		return StatusIgnored, nil
	}

	b, err := s.bookings.GetByExternalRef(ctx, extID)
	if err != nil {
		if repository.IsNotFound(err) {
			s.loggerf("level=info msg=\"channel cancel for unknown booking\" external_booking_id=%s", extID)
			return StatusIgnored, nil
		}
		return "", err
	}
	switch b.Status {
	case domain.BookingCancelled:
		return StatusDuplicate, nil
	case domain.BookingCheckedOut:
		s.loggerf("level=warn msg=\"channel cancel for checked out booking\" number=%s", b.BookingNumber)
		return StatusIgnored, nil
	}

	reason := strings.TrimSpace(data.Reason)
	if reason == "" {
		reason = "cancelled by channel"
	}
	err = s.bookings.Cancel(ctx, b.ID, repository.CancelUpdate{
		FromStatus:    b.Status,
		PaymentStatus: b.PaymentStatus,
		Reason:        reason,
		CancelledAt:   s.now(),
		Actor:         channelActor,
	})
	if err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return StatusDuplicate, nil
		}
		return "", err
	}

	b.Status = domain.BookingCancelled
	s.loggerf("level=info msg=\"channel booking cancelled\" number=%s external_booking_id=%s", b.BookingNumber, extID)
	s.cache.InvalidateStay(ctx, b.CheckIn, b.CheckOut)
	if err := s.notifs.NotifyBookingCancelled(ctx, b, reason); err != nil {
		s.loggerf("level=warn msg=\"notify booking cancelled\" number=%s err=%v", b.BookingNumber, err)
	}
	return StatusProcessed, nil
}
