package booking

import (
	"context"
	"time"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

type BookingRepository interface {
	Create(ctx context.Context, b *domain.Booking, opts repository.CreateOptions) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByNumber(ctx context.Context, number string) (*domain.Booking, error)
	GetByPaymentIntent(ctx context.Context, intentID string) (*domain.Booking, error)
	List(ctx context.Context, f repository.BookingFilter) ([]domain.Booking, int64, error)
	Cancel(ctx context.Context, id int64, u repository.CancelUpdate) error
	Transition(ctx context.Context, id int64, u repository.TransitionUpdate) error
	BulkUpdateStatus(ctx context.Context, u repository.BulkStatusUpdate) ([]domain.Booking, error)
	BulkDelete(ctx context.Context, ids []int64) ([]domain.Booking, error)
}

type RoomRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Room, error)
}

type IntentRepository interface {
	Create(ctx context.Context, pi *domain.PaymentIntent) error
	GetByIntentID(ctx context.Context, intentID string) (*domain.PaymentIntent, error)
	MarkRefunded(ctx context.Context, intentID, chargeRef, refundRef, reason string) error
	MarkFailed(ctx context.Context, intentID, chargeRef, reason string) error
}

type AvailabilityChecker interface {
	IsRoomAvailable(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (bool, error)
	InvalidateStay(ctx context.Context, checkIn, checkOut time.Time)
	InvalidateAll(ctx context.Context)
}

type NotificationSender interface {
	NotifyBookingCreated(ctx context.Context, b *domain.Booking) error
	NotifyBookingCancelled(ctx context.Context, b *domain.Booking, reason string) error
	NotifyBookingStatusChanged(ctx context.Context, b *domain.Booking) error
}
