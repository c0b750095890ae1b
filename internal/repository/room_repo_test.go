package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbooking/internal/domain"
)

func TestRoomRepository_SumUnits(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	seedRoom(t, db, "Dorm A", "dorm", 4)
	seedRoom(t, db, "Dorm B", "dorm", 3)
	seedRoom(t, db, "101", "double", 1)
	inactive := seedRoom(t, db, "102", "double", 1)
	inactive.IsActive = false
	require.NoError(t, repo.Update(ctx, inactive))

	n, err := repo.SumUnitsOfType(ctx, "dorm")
	require.NoError(t, err)
	assert.Equal(t, int64(7), n)

	n, err = repo.SumUnitsOfType(ctx, "missing")
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = repo.SumActiveUnits(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(8), n)

	rooms, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, rooms, 3)
}

func TestRoomRepository_DeleteGuardedByBookings(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	used := seedRoom(t, db, "101", "double", 1)
	free := seedRoom(t, db, "102", "double", 1)
	require.NoError(t, NewBookingRepository(db).Create(ctx, newBooking(used.ID, "2025-08-01", "2025-08-02"), CreateOptions{}))

	assert.ErrorIs(t, repo.Delete(ctx, used.ID), ErrRoomInUse)
	require.NoError(t, repo.Delete(ctx, free.ID))
	assert.ErrorIs(t, repo.Delete(ctx, free.ID), ErrNotFound)

	_, err := repo.GetByID(ctx, free.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRoomRepository_ExternalID(t *testing.T) {
	db := newTestDB(t)
	repo := NewRoomRepository(db)
	ctx := context.Background()

	ext := "OTA-ROOM-7"
	room := &domain.Room{Name: "7", TypeKey: "double", Capacity: 2, TotalUnits: 1, Source: domain.SourceLocal, ExternalRoomID: &ext, IsActive: true}
	require.NoError(t, repo.Create(ctx, room))

	got, err := repo.GetByExternalID(ctx, ext)
	require.NoError(t, err)
	assert.Equal(t, room.ID, got.ID)

	dup := &domain.Room{Name: "8", TypeKey: "double", Capacity: 2, TotalUnits: 1, Source: domain.SourceLocal, ExternalRoomID: &ext, IsActive: true}
	assert.ErrorIs(t, repo.Create(ctx, dup), ErrDuplicateExternalRef)

	_, err = repo.GetByExternalID(ctx, "unknown")
	assert.ErrorIs(t, err, ErrNotFound)
}
