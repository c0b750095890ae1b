package booking

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/modules/payment"
	"hotelbooking/internal/repository"
)

const guestActor = "guest"

type ServiceOptions struct {
	Bookings     BookingRepository
	Rooms        RoomRepository
	Intents      IntentRepository
	Availability AvailabilityChecker
	Gateway      payment.Gateway
	Notifs       NotificationSender
	Currency     string
	Loggerf      func(format string, args ...interface{})
	Now          func() time.Time
}

type Service struct {
	bookings     BookingRepository
	rooms        RoomRepository
	intents      IntentRepository
	availability AvailabilityChecker
	gateway      payment.Gateway
	notifs       NotificationSender
	currency     string
	loggerf      func(format string, args ...interface{})
	now          func() time.Time
}

func NewService(opts ServiceOptions) *Service {
	s := &Service{
		bookings:     opts.Bookings,
		rooms:        opts.Rooms,
		intents:      opts.Intents,
		availability: opts.Availability,
		gateway:      opts.Gateway,
		notifs:       opts.Notifs,
		currency:     opts.Currency,
		loggerf:      opts.Loggerf,
		now:          opts.Now,
	}
	if s.gateway == nil {
		s.gateway = payment.Disabled{}
	}
	if s.currency == "" {
		s.currency = "EUR"
	}
	if s.loggerf == nil {
		s.loggerf = func(string, ...interface{}) {}
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

// draft validates a booking request and builds the unsaved booking it
// describes, priced at nights x room price unless an amount was given.
func (s *Service) draft(ctx context.Context, req CreateBookingRequest) (*domain.Booking, *domain.Room, error) {
	checkIn, err := domain.ParseDate(req.CheckIn)
	if err != nil {
		return nil, nil, err
	}
	checkOut, err := domain.ParseDate(req.CheckOut)
	if err != nil {
		return nil, nil, err
	}
	if !checkIn.Before(checkOut) {
		return nil, nil, ErrInvalidDateRange
	}
	if domain.NightCount(checkIn, checkOut) > domain.MaxStayNights {
		return nil, nil, fmt.Errorf("%w: stay longer than %d nights", ErrInvalidDateRange, domain.MaxStayNights)
	}
	if req.Adults < 1 || req.Children < 0 {
		return nil, nil, ErrInvalidGuests
	}
	guest := domain.GuestInfo{
		FirstName:       strings.TrimSpace(req.Guest.FirstName),
		LastName:        strings.TrimSpace(req.Guest.LastName),
		Email:           strings.ToLower(strings.TrimSpace(req.Guest.Email)),
		Phone:           strings.TrimSpace(req.Guest.Phone),
		SpecialRequests: req.Guest.SpecialRequests,
		Language:        req.Guest.Language,
	}
	if guest.FirstName == "" || guest.LastName == "" || guest.Email == "" {
		return nil, nil, ErrGuestInfoRequired
	}
	if req.TotalAmount != nil && *req.TotalAmount < 0 {
		return nil, nil, ErrInvalidAmount
	}

	room, err := s.rooms.GetByID(ctx, req.RoomID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, nil, ErrRoomNotFound
		}
		return nil, nil, err
	}
	if !room.IsActive {
		return nil, nil, ErrRoomNotFound
	}
	if req.Adults+req.Children > room.Capacity {
		return nil, nil, ErrCapacityExceeded
	}

	total := float64(domain.NightCount(checkIn, checkOut)) * room.Price
	if req.TotalAmount != nil {
		total = *req.TotalAmount
	}

	return &domain.Booking{
		RoomID:      room.ID,
		Guest:       guest,
		CheckIn:     checkIn,
		CheckOut:    checkOut,
		Adults:      req.Adults,
		Children:    req.Children,
		TotalAmount: total,
		Source:      domain.SourceLocal,
	}, room, nil
}

func (s *Service) ensureAvailable(ctx context.Context, b *domain.Booking) error {
	ok, err := s.availability.IsRoomAvailable(ctx, b.RoomID, b.CheckIn, b.CheckOut, 0)
	if err != nil {
		return err
	}
	if !ok {
		return ErrRoomNotAvailable
	}
	return nil
}

// CreateBooking books a room for cash on arrival. The booking is confirmed
// immediately with payment pending.
func (s *Service) CreateBooking(ctx context.Context, req CreateBookingRequest, actor string) (*domain.Booking, error) {
	b, _, err := s.draft(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, b); err != nil {
		return nil, err
	}

	b.Status = domain.BookingConfirmed
	b.PaymentMethod = domain.PaymentCash
	b.PaymentStatus = domain.PaymentPending
	b.CreatedAt = s.now()

	if actor == "" {
		actor = guestActor
	}
	if err := s.bookings.Create(ctx, b, repository.CreateOptions{Actor: actor, EnqueueSync: true}); err != nil {
		if errors.Is(err, repository.ErrNightsTaken) {
			return nil, ErrRoomNotAvailable
		}
		return nil, err
	}

	s.loggerf("level=info msg=\"booking created\" number=%s room_id=%d method=%s", b.BookingNumber, b.RoomID, b.PaymentMethod)
	s.afterWrite(ctx, b)
	if err := s.notifs.NotifyBookingCreated(ctx, b); err != nil {
		s.loggerf("level=warn msg=\"notify booking created\" number=%s err=%v", b.BookingNumber, err)
	}
	return b, nil
}

// CreateCardIntent quotes the stay and opens a payment intent with the
// processor. No inventory is held until the capture is confirmed.
func (s *Service) CreateCardIntent(ctx context.Context, req CreateBookingRequest) (*IntentResponse, error) {
	b, _, err := s.draft(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, b); err != nil {
		return nil, err
	}

	amountMinor := domain.ToMinor(b.TotalAmount)
	intent, err := s.gateway.CreateIntent(ctx, amountMinor, s.currency, map[string]string{
		"room_id":   strconv.FormatInt(b.RoomID, 10),
		"check_in":  b.CheckIn.Format(domain.DateLayout),
		"check_out": b.CheckOut.Format(domain.DateLayout),
		"email":     b.Guest.Email,
	})
	if err != nil {
		return nil, err
	}

	pi := &domain.PaymentIntent{
		IntentID:    intent.IntentID,
		ClientToken: intent.ClientToken,
		AmountMinor: amountMinor,
		Currency:    s.currency,
		RoomID:      b.RoomID,
		CheckIn:     b.CheckIn,
		CheckOut:    b.CheckOut,
		Adults:      b.Adults,
		Children:    b.Children,
		TotalAmount: b.TotalAmount,
		Guest:       b.Guest,
		Status:      domain.IntentCreated,
	}
	if err := s.intents.Create(ctx, pi); err != nil {
		return nil, err
	}

	s.loggerf("level=info msg=\"payment intent created\" intent_id=%s room_id=%d amount_minor=%d", pi.IntentID, pi.RoomID, amountMinor)
	return &IntentResponse{
		IntentID:    pi.IntentID,
		ClientToken: pi.ClientToken,
		Amount:      pi.TotalAmount,
		AmountMinor: pi.AmountMinor,
		Currency:    pi.Currency,
	}, nil
}

// ConfirmCardBooking turns a captured intent into a confirmed booking.
// Repeated calls for the same intent return the same booking. If the room
// was taken while the guest was paying, the charge is refunded.
func (s *Service) ConfirmCardBooking(ctx context.Context, intentID string) (*domain.Booking, error) {
	pi, err := s.intents.GetByIntentID(ctx, intentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}

	switch pi.Status {
	case domain.IntentMaterialized:
		return s.bookingForIntent(ctx, intentID)
	case domain.IntentRefunded, domain.IntentFailed:
		return nil, ErrIntentClosed
	}

	capture, err := s.gateway.ConfirmCaptured(ctx, intentID)
	if err != nil {
		if !errors.Is(err, domain.ErrPayment) {
			err = fmt.Errorf("%w: %v", domain.ErrPayment, err)
		}
		return nil, err
	}
	if !capture.Captured {
		return nil, payment.ErrCaptureNotConfirmed
	}
	if capture.AmountMinor != pi.AmountMinor {
		return nil, s.refundCaptured(ctx, pi, capture, ErrAmountMismatch)
	}

	b := &domain.Booking{
		RoomID:          pi.RoomID,
		Guest:           pi.Guest,
		CheckIn:         pi.CheckIn,
		CheckOut:        pi.CheckOut,
		Adults:          pi.Adults,
		Children:        pi.Children,
		TotalAmount:     pi.TotalAmount,
		Status:          domain.BookingConfirmed,
		PaymentMethod:   domain.PaymentCard,
		PaymentStatus:   domain.PaymentPaid,
		PaymentIntentID: &pi.IntentID,
		ChargeRef:       capture.ChargeRef,
		Source:          domain.SourceLocal,
		CreatedAt:       s.now(),
	}

	ok, err := s.availability.IsRoomAvailable(ctx, b.RoomID, b.CheckIn, b.CheckOut, 0)
	if err != nil {
		return nil, err
	}
	if !ok {
		return s.refundUnlessMaterialized(ctx, pi, capture)
	}

	err = s.bookings.Create(ctx, b, repository.CreateOptions{
		Actor:       guestActor,
		Note:        "card payment " + capture.ChargeRef,
		EnqueueSync: true,
		IntentID:    pi.IntentID,
	})
	switch {
	case errors.Is(err, repository.ErrIntentConsumed):
		return s.bookingForIntent(ctx, intentID)
	case errors.Is(err, repository.ErrNightsTaken):
		return s.refundUnlessMaterialized(ctx, pi, capture)
	case err != nil:
		return nil, err
	}

	s.loggerf("level=info msg=\"booking created\" number=%s room_id=%d method=%s intent_id=%s", b.BookingNumber, b.RoomID, b.PaymentMethod, pi.IntentID)
	s.afterWrite(ctx, b)
	if err := s.notifs.NotifyBookingCreated(ctx, b); err != nil {
		s.loggerf("level=warn msg=\"notify booking created\" number=%s err=%v", b.BookingNumber, err)
	}
	return b, nil
}

func (s *Service) bookingForIntent(ctx context.Context, intentID string) (*domain.Booking, error) {
	b, err := s.bookings.GetByPaymentIntent(ctx, intentID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// refundUnlessMaterialized handles a room that looks taken after capture. A
// concurrent confirm of the same intent may be the one holding it, in which
// case its booking is returned and nothing is refunded.
func (s *Service) refundUnlessMaterialized(ctx context.Context, pi *domain.PaymentIntent, capture *payment.Capture) (*domain.Booking, error) {
	b, err := s.bookings.GetByPaymentIntent(ctx, pi.IntentID)
	if err == nil {
		return b, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}
	current, err := s.intents.GetByIntentID(ctx, pi.IntentID)
	if err != nil {
		return nil, err
	}
	if current.Status != domain.IntentCreated {
		return nil, ErrIntentClosed
	}
	return nil, s.refundCaptured(ctx, pi, capture, ErrRoomNotAvailable)
}

// refundCaptured returns a captured charge that could not become a booking.
// cause is returned as is when the refund succeeds and joined with the refund
// failure otherwise.
func (s *Service) refundCaptured(ctx context.Context, pi *domain.PaymentIntent, capture *payment.Capture, cause error) error {
	refundRef, err := s.gateway.Refund(ctx, capture.ChargeRef, capture.AmountMinor, cause.Error())
	if err != nil {
		s.loggerf("level=error msg=\"automatic refund failed\" intent_id=%s charge=%s err=%v", pi.IntentID, capture.ChargeRef, err)
		if markErr := s.intents.MarkFailed(ctx, pi.IntentID, capture.ChargeRef, "refund failed: "+err.Error()); markErr != nil {
			s.loggerf("level=error msg=\"mark intent failed\" intent_id=%s err=%v", pi.IntentID, markErr)
		}
		return errors.Join(cause, fmt.Errorf("%w: charge %s: %v", payment.ErrRefundFailed, capture.ChargeRef, err))
	}

	if err := s.intents.MarkRefunded(ctx, pi.IntentID, capture.ChargeRef, refundRef, cause.Error()); err != nil {
		s.loggerf("level=error msg=\"mark intent refunded\" intent_id=%s err=%v", pi.IntentID, err)
	}
	s.loggerf("level=warn msg=\"captured payment refunded\" intent_id=%s charge=%s refund=%s reason=%q", pi.IntentID, capture.ChargeRef, refundRef, cause.Error())
	return cause
}

// CancelBooking cancels a booking and frees its nights. Captured card
// payments are refunded through the processor before anything changes
// locally; a failed refund leaves the booking untouched.
func (s *Service) CancelBooking(ctx context.Context, id int64, req CancelBookingRequest, actor string) (*CancelResult, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.Status.Terminal() {
		return nil, fmt.Errorf("%w: booking is %s", ErrInvalidTransition, b.Status)
	}

	refund := 0.0
	switch {
	case b.Source == domain.SourceChannel:
		// the channel collected the money and settles any refund itself
		if req.RefundAmount != nil && *req.RefundAmount != 0 {
			return nil, ErrChannelRefund
		}
	case req.RefundAmount != nil:
		if *req.RefundAmount < 0 || *req.RefundAmount > b.TotalAmount {
			return nil, ErrInvalidRefund
		}
		refund = *req.RefundAmount
	case b.PaymentStatus == domain.PaymentPaid:
		refund = b.TotalAmount
	}

	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		reason = "cancelled by " + actor
	}

	var refundRef string
	viaGateway := b.PaymentMethod == domain.PaymentCard &&
		b.PaymentStatus == domain.PaymentPaid &&
		b.Source == domain.SourceLocal &&
		refund > 0
	if viaGateway {
		refundRef, err = s.gateway.Refund(ctx, b.ChargeRef, domain.ToMinor(refund), reason)
		if err != nil {
			s.loggerf("level=error msg=\"refund failed\" number=%s charge=%s err=%v", b.BookingNumber, b.ChargeRef, err)
			if !errors.Is(err, domain.ErrPayment) {
				err = fmt.Errorf("%w: %v", payment.ErrRefundFailed, err)
			}
			return nil, err
		}
	}

	paymentStatus := b.PaymentStatus
	if b.Source != domain.SourceChannel && paymentStatus == domain.PaymentPaid && refund > 0 {
		paymentStatus = domain.PaymentRefunded
	}

	err = s.bookings.Cancel(ctx, b.ID, repository.CancelUpdate{
		FromStatus:    b.Status,
		PaymentStatus: paymentStatus,
		Reason:        reason,
		AdminNotes:    req.AdminNotes,
		RefundAmount:  &refund,
		RefundRef:     refundRef,
		CancelledAt:   s.now(),
		Actor:         actor,
		EnqueueSync:   true,
	})
	if err != nil {
		if viaGateway {
			s.loggerf("level=error msg=\"refund issued but cancel not applied\" number=%s refund=%s err=%v", b.BookingNumber, refundRef, err)
		}
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
		}
		return nil, err
	}

	s.loggerf("level=info msg=\"booking cancelled\" number=%s actor=%s refund=%.2f", b.BookingNumber, actor, refund)
	s.afterWrite(ctx, b)

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.notifs.NotifyBookingCancelled(ctx, updated, reason); err != nil {
		s.loggerf("level=warn msg=\"notify booking cancelled\" number=%s err=%v", b.BookingNumber, err)
	}
	return &CancelResult{Booking: updated, RefundAmount: refund, RefundRef: refundRef}, nil
}

func (s *Service) CheckIn(ctx context.Context, id int64, actor string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingCheckedIn, actor, "")
}

func (s *Service) CheckOut(ctx context.Context, id int64, actor string) (*domain.Booking, error) {
	return s.transition(ctx, id, domain.BookingCheckedOut, actor, "")
}

// UpdateStatus applies an admin status change. Cancellation goes through
// CancelBooking so refunds and night release happen.
func (s *Service) UpdateStatus(ctx context.Context, id int64, status domain.BookingStatus, actor, note string) (*domain.Booking, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if status == domain.BookingCancelled {
		res, err := s.CancelBooking(ctx, id, CancelBookingRequest{Reason: note}, actor)
		if err != nil {
			return nil, err
		}
		return res.Booking, nil
	}
	return s.transition(ctx, id, status, actor, note)
}

func (s *Service) transition(ctx context.Context, id int64, to domain.BookingStatus, actor, note string) (*domain.Booking, error) {
	b, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !domain.CanTransition(b.Status, to) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidTransition, b.Status, to)
	}

	u := repository.TransitionUpdate{From: b.Status, To: to, Actor: actor, Note: note}
	now := s.now()
	switch to {
	case domain.BookingCheckedIn:
		u.Action = domain.HistoryCheckedIn
		u.Fields = map[string]interface{}{"checked_in_at": now}
	case domain.BookingCheckedOut:
		u.Action = domain.HistoryCheckedOut
		u.Fields = map[string]interface{}{"checked_out_at": now}
	}

	if err := s.bookings.Transition(ctx, id, u); err != nil {
		if errors.Is(err, repository.ErrStaleStatus) {
			return nil, fmt.Errorf("%w: booking changed concurrently", ErrInvalidTransition)
		}
		return nil, err
	}
	s.loggerf("level=info msg=\"booking status changed\" number=%s from=%s to=%s actor=%s", b.BookingNumber, b.Status, to, actor)

	updated, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.notifs.NotifyBookingStatusChanged(ctx, updated); err != nil {
		s.loggerf("level=warn msg=\"notify status changed\" number=%s err=%v", b.BookingNumber, err)
	}
	return updated, nil
}

// BulkUpdateStatus moves every listed booking that may legally reach status.
// Captured card bookings are left out of a bulk cancel because they need an
// individual refund.
func (s *Service) BulkUpdateStatus(ctx context.Context, ids []int64, status domain.BookingStatus, actor string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoIdsProvided
	}
	if !status.Valid() {
		return 0, ErrInvalidStatus
	}
	allowed := domain.StatusesTransitionableTo(status)
	if len(allowed) == 0 {
		return 0, fmt.Errorf("%w: nothing can move to %s", ErrInvalidTransition, status)
	}

	affected, err := s.bookings.BulkUpdateStatus(ctx, repository.BulkStatusUpdate{
		IDs:          ids,
		To:           status,
		AllowedFrom:  allowed,
		SkipPaidCard: status == domain.BookingCancelled,
		Actor:        actor,
		At:           s.now(),
	})
	if err != nil {
		return 0, err
	}
	if len(affected) == 0 {
		return 0, ErrNoMatchingRecords
	}

	s.loggerf("level=info msg=\"bulk status update\" to=%s requested=%d affected=%d actor=%s", status, len(ids), len(affected), actor)
	for i := range affected {
		b := &affected[i]
		if status == domain.BookingCancelled {
			s.afterWrite(ctx, b)
		}
		b.Status = status
		if err := s.notifs.NotifyBookingStatusChanged(ctx, b); err != nil {
			s.loggerf("level=warn msg=\"notify status changed\" number=%s err=%v", b.BookingNumber, err)
		}
	}
	return len(affected), nil
}

// BulkDelete physically removes bookings. It is an audited admin override
// and bypasses the state machine.
func (s *Service) BulkDelete(ctx context.Context, ids []int64, actor string) (int, error) {
	if len(ids) == 0 {
		return 0, ErrNoIdsProvided
	}
	removed, err := s.bookings.BulkDelete(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(removed) == 0 {
		return 0, ErrNoMatchingRecords
	}

	numbers := make([]string, 0, len(removed))
	for i := range removed {
		b := &removed[i]
		numbers = append(numbers, b.BookingNumber)
		if b.Status != domain.BookingCancelled {
			s.afterWrite(ctx, b)
		}
		// pending sync tasks went with the row; the channel side needs a manual release
		if b.ExternalBookingID != nil {
			s.loggerf("level=warn msg=\"deleted booking still held on channel\" number=%s status=%s source=%s external_booking_id=%s",
				b.BookingNumber, b.Status, b.Source, *b.ExternalBookingID)
		}
	}
	s.loggerf("level=warn msg=\"bookings deleted\" actor=%s count=%d numbers=%s", actor, len(removed), strings.Join(numbers, ","))
	return len(removed), nil
}

func (s *Service) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	b, err := s.bookings.GetByID(ctx, id)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	return b, nil
}

// LookupByNumber is the guest lookup. The email must match the booking.
func (s *Service) LookupByNumber(ctx context.Context, number, email string) (*domain.Booking, error) {
	b, err := s.bookings.GetByNumber(ctx, strings.TrimSpace(number))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, ErrBookingNotFound
		}
		return nil, err
	}
	if !strings.EqualFold(strings.TrimSpace(email), b.Guest.Email) {
		return nil, ErrBookingNotFound
	}
	b.History = nil
	return b, nil
}

func (s *Service) List(ctx context.Context, q ListBookingsQuery) ([]domain.Booking, int64, error) {
	f := repository.BookingFilter{
		RoomID: q.RoomID,
		Email:  strings.ToLower(strings.TrimSpace(q.Email)),
		Limit:  q.Limit,
		Offset: q.Offset,
	}
	if q.Status != "" {
		f.Status = domain.BookingStatus(strings.ToUpper(q.Status))
		if !f.Status.Valid() {
			return nil, 0, ErrInvalidStatus
		}
	}
	if q.From != "" {
		from, err := domain.ParseDate(q.From)
		if err != nil {
			return nil, 0, err
		}
		f.From = &from
	}
	if q.To != "" {
		to, err := domain.ParseDate(q.To)
		if err != nil {
			return nil, 0, err
		}
		f.To = &to
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.bookings.List(ctx, f)
}

// afterWrite drops cached calendar months touched by the stay.
func (s *Service) afterWrite(ctx context.Context, b *domain.Booking) {
	s.availability.InvalidateStay(ctx, b.CheckIn, b.CheckOut)
}
