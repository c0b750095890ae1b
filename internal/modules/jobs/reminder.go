package jobs

import (
	"context"
	"time"

	"hotelbooking/internal/domain"
)

type ReminderStore interface {
	ListReminderCandidates(ctx context.Context, from, to time.Time) ([]domain.Booking, error)
	ClaimReminder(ctx context.Context, id int64, at time.Time) (bool, error)
}

type ReminderSender interface {
	NotifyCheckInReminder(ctx context.Context, b *domain.Booking) error
}

// ReminderJob tells guests about an upcoming arrival. A booking is claimed
// before the message goes out, so each guest gets at most one reminder.
type ReminderJob struct {
	store   ReminderStore
	sender  ReminderSender
	lead    time.Duration
	loggerf func(format string, args ...interface{})
	now     func() time.Time
}

func NewReminderJob(store ReminderStore, sender ReminderSender, lead time.Duration, loggerf func(format string, args ...interface{})) *ReminderJob {
	if lead <= 0 {
		lead = 24 * time.Hour
	}
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &ReminderJob{
		store:   store,
		sender:  sender,
		lead:    lead,
		loggerf: loggerf,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Run sends reminders for confirmed bookings arriving between today and the
// lead horizon, inclusive. It returns the number of reminders sent.
func (j *ReminderJob) Run(ctx context.Context) (int, error) {
	now := j.now()
	from := domain.NormalizeDate(now)
	to := domain.NormalizeDate(now.Add(j.lead)).AddDate(0, 0, 1)

	candidates, err := j.store.ListReminderCandidates(ctx, from, to)
	if err != nil {
		return 0, err
	}

	sent := 0
	for i := range candidates {
		b := &candidates[i]
		claimed, err := j.store.ClaimReminder(ctx, b.ID, now)
		if err != nil {
			return sent, err
		}
		if !claimed {
			continue
		}
		if err := j.sender.NotifyCheckInReminder(ctx, b); err != nil {
			j.loggerf("level=warn msg=\"check-in reminder not delivered\" number=%s err=%v", b.BookingNumber, err)
			continue
		}
		sent++
	}
	return sent, nil
}
