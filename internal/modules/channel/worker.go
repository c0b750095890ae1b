package channel

import (
	"context"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

const maxBackoffShift = 10

type WorkerOptions struct {
	MaxAttempts int
	Backoff     time.Duration
	BatchSize   int
	Loggerf     func(format string, args ...interface{})
	Now         func() time.Time
}

// SyncStats counts what one RunOnce pass did with the due tasks.
type SyncStats struct {
	Done    int
	Retried int
	Failed  int
}

// SyncWorker drains the outbox of booking changes to mirror on the channel.
type SyncWorker struct {
	tasks       TaskStore
	bookings    BookingStore
	client      Client
	maxAttempts int
	backoff     time.Duration
	batchSize   int
	loggerf     func(format string, args ...interface{})
	now         func() time.Time
}

func NewSyncWorker(tasks TaskStore, bookings BookingStore, client Client, opts WorkerOptions) *SyncWorker {
	w := &SyncWorker{
		tasks:       tasks,
		bookings:    bookings,
		client:      client,
		maxAttempts: opts.MaxAttempts,
		backoff:     opts.Backoff,
		batchSize:   opts.BatchSize,
		loggerf:     opts.Loggerf,
		now:         opts.Now,
	}
	if w.maxAttempts < 1 {
		w.maxAttempts = 5
	}
	if w.backoff <= 0 {
		w.backoff = time.Minute
	}
	if w.batchSize <= 0 {
		w.batchSize = 50
	}
	if w.loggerf == nil {
		w.loggerf = func(string, ...interface{}) {}
	}
	if w.now == nil {
		w.now = func() time.Time { return time.Now().UTC() }
	}
	return w
}

// RunOnce processes every task due now. Failures are recorded on the task
// and never touch the local booking.
func (w *SyncWorker) RunOnce(ctx context.Context) (SyncStats, error) {
	var stats SyncStats
	tasks, err := w.tasks.ListDue(ctx, w.now(), w.batchSize)
	if err != nil {
		return stats, err
	}

	for i := range tasks {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		task := tasks[i]
		if err := w.process(ctx, &task); err != nil {
			attempts := task.Attempts + 1
			if attempts >= w.maxAttempts {
				w.loggerf("level=error msg=\"channel sync gave up, needs reconciliation\" task_id=%s booking_id=%d action=%s attempts=%d err=%v",
					task.ID, task.BookingID, task.Action, attempts, err)
				if markErr := w.tasks.MarkFailed(ctx, task.ID, attempts, err.Error()); markErr != nil {
					return stats, markErr
				}
				stats.Failed++
				continue
			}
			next := w.now().Add(w.delay(attempts))
			w.loggerf("level=warn msg=\"channel sync failed\" task_id=%s booking_id=%d action=%s attempts=%d next=%s err=%v",
				task.ID, task.BookingID, task.Action, attempts, next.Format(time.RFC3339), err)
			if markErr := w.tasks.MarkRetry(ctx, task.ID, attempts, next, err.Error()); markErr != nil {
				return stats, markErr
			}
			stats.Retried++
			continue
		}
		if err := w.tasks.MarkDone(ctx, task.ID); err != nil {
			return stats, err
		}
		stats.Done++
	}
	return stats, nil
}

// delay doubles the base backoff for every failed attempt.
func (w *SyncWorker) delay(attempts int) time.Duration {
	shift := attempts - 1
	if shift > maxBackoffShift {
		shift = maxBackoffShift
	}
	return w.backoff * time.Duration(1<<uint(shift))
}

func (w *SyncWorker) process(ctx context.Context, task *domain.ChannelSyncTask) error {
	b, err := w.bookings.GetByID(ctx, task.BookingID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil
		}
		return err
	}

	switch task.Action {
	case domain.SyncCreate:
		if b.Source == domain.SourceChannel || b.ExternalBookingID != nil || b.Status == domain.BookingCancelled {
			return nil
		}
		if b.Room == nil || b.Room.ExternalRoomID == nil {
			return nil
		}
		extID, err := w.client.CreateReservation(ctx, reservationFor(b, *b.Room.ExternalRoomID))
		if err != nil {
			return err
		}
		if err := w.bookings.SetExternalRef(ctx, b.ID, extID); err != nil {
			return err
		}
		w.loggerf("level=info msg=\"booking mirrored to channel\" number=%s external_booking_id=%s", b.BookingNumber, extID)
	case domain.SyncCancel:
		if b.ExternalBookingID == nil {
			return nil
		}
		if err := w.client.CancelReservation(ctx, *b.ExternalBookingID, b.CancellationReason); err != nil {
			return err
		}
		w.loggerf("level=info msg=\"channel reservation cancelled\" number=%s external_booking_id=%s", b.BookingNumber, *b.ExternalBookingID)
	}
	return nil
}
