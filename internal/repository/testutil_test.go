package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func date(s string) time.Time {
	d, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return d
}

func seedRoom(t *testing.T, db *gorm.DB, name, typeKey string, units int) *domain.Room {
	t.Helper()
	room := &domain.Room{
		Name:       name,
		TypeKey:    typeKey,
		Capacity:   2,
		Price:      120,
		TotalUnits: units,
		Source:     domain.SourceLocal,
		IsActive:   true,
	}
	require.NoError(t, NewRoomRepository(db).Create(context.Background(), room))
	return room
}

func newBooking(roomID int64, in, out string) *domain.Booking {
	return &domain.Booking{
		RoomID: roomID,
		Guest: domain.GuestInfo{
			FirstName: "Ana",
			LastName:  "Silva",
			Email:     "ana@example.com",
		},
		CheckIn:       date(in),
		CheckOut:      date(out),
		Adults:        2,
		TotalAmount:   480,
		PaymentMethod: domain.PaymentCash,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.BookingConfirmed,
		Source:        domain.SourceLocal,
		CreatedAt:     time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC),
	}
}
