package notification

import (
	"context"
	"errors"
	"time"

	"hotelbooking/internal/domain"
)

// Publisher delivers an event to one destination.
type Publisher interface {
	Publish(ctx context.Context, ev Event) error
}

// Service turns booking changes into events and fans them out.
type Service struct {
	publishers []Publisher
	loggerf    func(format string, args ...interface{})
	now        func() time.Time
}

func NewService(loggerf func(format string, args ...interface{}), publishers ...Publisher) *Service {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &Service{publishers: publishers, loggerf: loggerf, now: time.Now}
}

func (s *Service) NotifyBookingCreated(ctx context.Context, b *domain.Booking) error {
	return s.publish(ctx, newEvent(EventBookingCreated, b, s.now()))
}

func (s *Service) NotifyBookingCancelled(ctx context.Context, b *domain.Booking, reason string) error {
	ev := newEvent(EventBookingCancelled, b, s.now())
	ev.Reason = reason
	return s.publish(ctx, ev)
}

func (s *Service) NotifyBookingStatusChanged(ctx context.Context, b *domain.Booking) error {
	t := EventBookingUpdated
	switch b.Status {
	case domain.BookingCheckedIn:
		t = EventBookingCheckedIn
	case domain.BookingCheckedOut:
		t = EventBookingCheckedOut
	case domain.BookingCancelled:
		t = EventBookingCancelled
	}
	return s.publish(ctx, newEvent(t, b, s.now()))
}

func (s *Service) NotifyCheckInReminder(ctx context.Context, b *domain.Booking) error {
	return s.publish(ctx, newEvent(EventCheckInReminder, b, s.now()))
}

func (s *Service) publish(ctx context.Context, ev Event) error {
	var errs []error
	for _, p := range s.publishers {
		if err := p.Publish(ctx, ev); err != nil {
			s.loggerf("level=warn msg=\"notification publish failed\" event=%s booking_id=%d err=%v", ev.Type, ev.BookingID, err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogPublisher writes events to the service log.
type LogPublisher struct {
	loggerf func(format string, args ...interface{})
}

func NewLogPublisher(loggerf func(format string, args ...interface{})) *LogPublisher {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &LogPublisher{loggerf: loggerf}
}

func (p *LogPublisher) Publish(_ context.Context, ev Event) error {
	p.loggerf("level=info msg=notification event=%s booking_id=%d booking_number=%s status=%s",
		ev.Type, ev.BookingID, ev.BookingNumber, ev.Status)
	return nil
}
