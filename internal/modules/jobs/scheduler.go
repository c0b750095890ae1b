package jobs

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"hotelbooking/internal/modules/channel"
)

type SyncRunner interface {
	RunOnce(ctx context.Context) (channel.SyncStats, error)
}

// Scheduler runs the background jobs. Overlapping runs of the same job are
// skipped and panics are recovered.
type Scheduler struct {
	cron    *cron.Cron
	loggerf func(format string, args ...interface{})
}

func NewScheduler(loggerf func(format string, args ...interface{})) *Scheduler {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	logger := cron.PrintfLogger(log.Default())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
		),
		loggerf: loggerf,
	}
}

// AddChannelSync drains the channel outbox every interval.
func (s *Scheduler) AddChannelSync(interval time.Duration, worker SyncRunner) error {
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %s", interval), func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.runSync(ctx, worker)
	})
	return err
}

func (s *Scheduler) runSync(ctx context.Context, worker SyncRunner) {
	stats, err := worker.RunOnce(ctx)
	if err != nil {
		s.loggerf("level=error msg=\"channel sync run failed\" err=%v", err)
		return
	}
	if stats.Done+stats.Retried+stats.Failed > 0 {
		s.loggerf("level=info msg=\"channel sync run\" done=%d retried=%d failed=%d", stats.Done, stats.Retried, stats.Failed)
	}
}

// AddReminders runs the check-in reminder job on spec, e.g. "@hourly".
func (s *Scheduler) AddReminders(spec string, job *ReminderJob) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.runReminders(ctx, job)
	})
	return err
}

func (s *Scheduler) runReminders(ctx context.Context, job *ReminderJob) {
	sent, err := job.Run(ctx)
	if err != nil {
		s.loggerf("level=error msg=\"reminder run failed\" sent=%d err=%v", sent, err)
		return
	}
	s.loggerf("level=info msg=\"reminder run\" sent=%d", sent)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.loggerf("level=info msg=\"scheduler started\" jobs=%d", len(s.cron.Entries()))
}

// Stop stops scheduling and waits for running jobs until ctx expires.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
		s.loggerf("level=warn msg=\"scheduler stop timed out\"")
	}
}
