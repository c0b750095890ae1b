package channel

import (
	"context"
	"time"

	"github.com/google/uuid"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

type BookingStore interface {
	Create(ctx context.Context, b *domain.Booking, opts repository.CreateOptions) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByExternalRef(ctx context.Context, externalBookingID string) (*domain.Booking, error)
	Cancel(ctx context.Context, id int64, u repository.CancelUpdate) error
	SetExternalRef(ctx context.Context, id int64, externalBookingID string) error
}

type RoomLookup interface {
	GetByExternalID(ctx context.Context, externalRoomID string) (*domain.Room, error)
}

type TaskStore interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]domain.ChannelSyncTask, error)
	MarkDone(ctx context.Context, id uuid.UUID) error
	MarkRetry(ctx context.Context, id uuid.UUID, attempts int, next time.Time, lastErr string) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, lastErr string) error
}

type CacheInvalidator interface {
	InvalidateStay(ctx context.Context, checkIn, checkOut time.Time)
}

type Notifier interface {
	NotifyBookingCreated(ctx context.Context, b *domain.Booking) error
	NotifyBookingCancelled(ctx context.Context, b *domain.Booking, reason string) error
}
