package availability

import (
	"context"
	"time"

	"hotelbooking/internal/repository"
)

type BookingReader interface {
	CountOverlapping(ctx context.Context, roomID int64, checkIn, checkOut time.Time, excludeBookingID int64) (int64, error)
	CountOverlappingOfType(ctx context.Context, typeKey string, checkIn, checkOut time.Time) (int64, error)
	ListActiveSpans(ctx context.Context, from, to time.Time) ([]repository.StaySpan, error)
}

type RoomReader interface {
	SumUnitsOfType(ctx context.Context, typeKey string) (int64, error)
	SumActiveUnits(ctx context.Context) (int64, error)
}

// CalendarCache stores computed monthly calendars by key.
type CalendarCache interface {
	Get(ctx context.Context, key string) (Calendar, bool, error)
	Set(ctx context.Context, key string, cal Calendar) error
	Delete(ctx context.Context, keys ...string) error
	Flush(ctx context.Context) error
}
