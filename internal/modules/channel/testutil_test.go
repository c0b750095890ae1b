package channel

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

type nopCache struct{}

func (nopCache) InvalidateStay(context.Context, time.Time, time.Time) {}

type recordingNotifier struct {
	mu        sync.Mutex
	created   []string
	cancelled []string
}

func (n *recordingNotifier) NotifyBookingCreated(_ context.Context, b *domain.Booking) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.created = append(n.created, b.BookingNumber)
	return nil
}

func (n *recordingNotifier) NotifyBookingCancelled(_ context.Context, b *domain.Booking, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, b.BookingNumber)
	return nil
}

type testEnv struct {
	db       *gorm.DB
	bookings *repository.BookingRepository
	rooms    *repository.RoomRepository
	tasks    *repository.SyncTaskRepository
	mapped   *domain.Room
	local    *domain.Room
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	env := &testEnv{
		db:       db,
		bookings: repository.NewBookingRepository(db),
		rooms:    repository.NewRoomRepository(db),
		tasks:    repository.NewSyncTaskRepository(db),
	}
	ext := "ch-room-7"
	env.mapped = &domain.Room{Name: "Garden 7", TypeKey: "double", Capacity: 2, Price: 90, TotalUnits: 1, Source: domain.SourceLocal, ExternalRoomID: &ext, IsActive: true}
	env.local = &domain.Room{Name: "Attic", TypeKey: "single", Capacity: 1, Price: 60, TotalUnits: 1, Source: domain.SourceLocal, IsActive: true}
	require.NoError(t, env.rooms.Create(context.Background(), env.mapped))
	require.NoError(t, env.rooms.Create(context.Background(), env.local))
	return env
}

func mustDate(s string) time.Time {
	d, err := domain.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}

// localBooking stores a confirmed cash booking with a pending create task.
func (e *testEnv) localBooking(t *testing.T, room *domain.Room, in, out string) *domain.Booking {
	t.Helper()
	b := &domain.Booking{
		RoomID:        room.ID,
		Guest:         domain.GuestInfo{FirstName: "Lea", LastName: "Moreau", Email: "lea@example.com"},
		CheckIn:       mustDate(in),
		CheckOut:      mustDate(out),
		Adults:        1,
		TotalAmount:   180,
		PaymentMethod: domain.PaymentCash,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.BookingConfirmed,
		Source:        domain.SourceLocal,
	}
	require.NoError(t, e.bookings.Create(context.Background(), b, repository.CreateOptions{Actor: "test", EnqueueSync: true}))
	return b
}
