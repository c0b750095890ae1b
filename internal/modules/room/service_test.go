package room

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbooking/internal/database"
	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

type countingCache struct {
	flushes int
}

func (c *countingCache) InvalidateAll(context.Context) { c.flushes++ }

func newTestService(t *testing.T) (*Service, *repository.BookingRepository, *countingCache) {
	t.Helper()
	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	cache := &countingCache{}
	return NewService(repository.NewRoomRepository(db), cache, nil), repository.NewBookingRepository(db), cache
}

func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }
func boolPtr(v bool) *bool        { return &v }

func TestService_CreateAndUpdate(t *testing.T) {
	svc, _, cache := newTestService(t)
	ctx := context.Background()

	room, err := svc.Create(ctx, RoomRequest{Name: "Deluxe 201", TypeKey: "Deluxe", Capacity: 3, Price: floatPtr(150), ExternalRoomID: strPtr(" ch-201 ")})
	require.NoError(t, err)
	assert.Equal(t, "deluxe", room.TypeKey)
	assert.Equal(t, 1, room.TotalUnits)
	assert.True(t, room.IsActive)
	assert.Equal(t, domain.SourceLocal, room.Source)
	require.NotNil(t, room.ExternalRoomID)
	assert.Equal(t, "ch-201", *room.ExternalRoomID)

	updated, err := svc.Update(ctx, room.ID, RoomRequest{Price: floatPtr(0), IsActive: boolPtr(false), ExternalRoomID: strPtr("")})
	require.NoError(t, err)
	assert.Zero(t, updated.Price)
	assert.False(t, updated.IsActive)
	assert.Nil(t, updated.ExternalRoomID)
	assert.Equal(t, "Deluxe 201", updated.Name)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	assert.Equal(t, 2, cache.flushes)
}

func TestService_CreateValidation(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Create(context.Background(), RoomRequest{TypeKey: "single", Capacity: -1, Price: floatPtr(-5)})
	require.ErrorIs(t, err, domain.ErrValidation)
	var fe FieldErrors
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "required", fe["name"])
	assert.Equal(t, "gte", fe["capacity"])
	assert.Equal(t, "gte", fe["price"])
}

func TestService_DuplicateExternalID(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, RoomRequest{Name: "A", TypeKey: "double", Capacity: 2, ExternalRoomID: strPtr("ch-1")})
	require.NoError(t, err)
	_, err = svc.Create(ctx, RoomRequest{Name: "B", TypeKey: "double", Capacity: 2, ExternalRoomID: strPtr("ch-1")})
	assert.ErrorIs(t, err, ErrExternalRoomTaken)
}

func TestService_DeleteGuard(t *testing.T) {
	svc, bookings, _ := newTestService(t)
	ctx := context.Background()

	room, err := svc.Create(ctx, RoomRequest{Name: "Loft", TypeKey: "loft", Capacity: 2, Price: floatPtr(100)})
	require.NoError(t, err)
	require.NoError(t, bookings.Create(ctx, &domain.Booking{
		RoomID:        room.ID,
		Guest:         domain.GuestInfo{FirstName: "K", LastName: "L", Email: "k@l.m"},
		CheckIn:       time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC),
		CheckOut:      time.Date(2025, 8, 2, 0, 0, 0, 0, time.UTC),
		Adults:        1,
		PaymentMethod: domain.PaymentCash,
		PaymentStatus: domain.PaymentPending,
		Status:        domain.BookingConfirmed,
		Source:        domain.SourceLocal,
	}, repository.CreateOptions{}))

	err = svc.Delete(ctx, room.ID)
	assert.ErrorIs(t, err, ErrRoomInUse)
	assert.ErrorIs(t, err, domain.ErrConflict)

	empty, err := svc.Create(ctx, RoomRequest{Name: "Spare", TypeKey: "single", Capacity: 1})
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, empty.ID))
	assert.ErrorIs(t, svc.Delete(ctx, empty.ID), ErrRoomNotFound)
}

func TestHandler_Rooms(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc, _, _ := newTestService(t)
	h := NewHandler(svc)
	r := gin.New()
	api := r.Group("/api/v1")
	h.RegisterPublicRoutes(api)
	h.RegisterAdminRoutes(api.Group("/admin"))

	send := func(method, url string, body interface{}) *httptest.ResponseRecorder {
		raw, _ := json.Marshal(body)
		req := httptest.NewRequest(method, url, bytes.NewReader(raw))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send(http.MethodPost, "/api/v1/admin/rooms", RoomRequest{Name: "Twin 3", TypeKey: "twin", Capacity: 2, Price: floatPtr(80)})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = send(http.MethodPost, "/api/v1/admin/rooms", RoomRequest{TypeKey: "twin"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"details"`)

	w = send(http.MethodGet, "/api/v1/rooms", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Twin 3")

	w = send(http.MethodGet, "/api/v1/rooms/42", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = send(http.MethodDelete, "/api/v1/admin/rooms/1", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
