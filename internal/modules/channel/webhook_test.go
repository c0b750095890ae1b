package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/repository"
)

const testSecret = "whsec_test"

func newWebhookService(env *testEnv) (*WebhookService, *recordingNotifier) {
	n := &recordingNotifier{}
	return NewWebhookService(env.bookings, env.rooms, nopCache{}, n, nil), n
}

func createdEvent(extID, extRoom, in, out string) WebhookEvent {
	return WebhookEvent{
		Event: EventBookingCreated,
		Data: WebhookBooking{
			ExternalBookingID: extID,
			ExternalRoomID:    extRoom,
			CheckInDate:       in,
			CheckOutDate:      out,
			Adults:            2,
			TotalPrice:        250,
			GuestDetails:      WebhookGuest{FirstName: "Jonas", LastName: "Berg", Email: "Jonas@Example.com"},
		},
	}
}

func TestWebhook_CreatedTwiceIsDuplicate(t *testing.T) {
	env := newTestEnv(t)
	svc, n := newWebhookService(env)
	ctx := context.Background()
	ev := createdEvent("CH-1", "ch-room-7", "2025-08-01", "2025-08-03")

	status, err := svc.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, status)

	status, err = svc.Handle(ctx, ev)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, status)

	var count int64
	require.NoError(t, env.db.Model(&domain.Booking{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.Len(t, n.created, 1)

	b, err := env.bookings.GetByExternalRef(ctx, "CH-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SourceChannel, b.Source)
	assert.Equal(t, domain.BookingConfirmed, b.Status)
	assert.Equal(t, domain.PaymentPaid, b.PaymentStatus)
	assert.Equal(t, "jonas@example.com", b.Guest.Email)

	tasks, err := env.tasks.ListByBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Empty(t, tasks, "imported bookings are not mirrored back")
}

func TestWebhook_UnmappedRoom(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)

	status, err := svc.Handle(context.Background(), createdEvent("CH-2", "unknown-room", "2025-08-01", "2025-08-03"))
	require.NoError(t, err)
	assert.Equal(t, StatusUnmapped, status)
}

func TestWebhook_CollisionIsConflictNotDoubleBooking(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)
	env.localBooking(t, env.mapped, "2025-08-02", "2025-08-04")

	status, err := svc.Handle(context.Background(), createdEvent("CH-3", "ch-room-7", "2025-08-01", "2025-08-03"))
	require.NoError(t, err)
	assert.Equal(t, StatusConflict, status)

	_, err = env.bookings.GetByExternalRef(context.Background(), "CH-3")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestWebhook_UnusablePayloadIgnored(t *testing.T) {
	env := newTestEnv(t)
	var logs []string
	svc := NewWebhookService(env.bookings, env.rooms, nopCache{}, &recordingNotifier{}, func(format string, args ...interface{}) {
		logs = append(logs, fmt.Sprintf(format, args...))
	})
	ctx := context.Background()

	cases := []WebhookEvent{
		createdEvent("", "ch-room-7", "2025-08-01", "2025-08-03"),
		createdEvent("CH-4", "", "2025-08-01", "2025-08-03"),
		createdEvent("CH-4", "ch-room-7", "2025-08-03", "2025-08-01"),
		createdEvent("CH-4", "ch-room-7", "01/08/2025", "2025-08-03"),
		createdEvent("CH-4", "ch-room-7", "2025-01-01", "2026-01-02"),
		{Event: EventBookingCancelled},
	}
	for _, ev := range cases {
		status, err := svc.Handle(ctx, ev)
		require.NoError(t, err)
		assert.Equal(t, StatusIgnored, status)
	}
	assert.Len(t, logs, len(cases))

	var count int64
	require.NoError(t, env.db.Model(&domain.Booking{}).Count(&count).Error)
	assert.Zero(t, count)
}

func TestWebhook_LongestStayAccepted(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)

	status, err := svc.Handle(context.Background(), createdEvent("CH-6", "ch-room-7", "2025-01-01", "2026-01-01"))
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, status)

	b, err := env.bookings.GetByExternalRef(context.Background(), "CH-6")
	require.NoError(t, err)
	assert.Equal(t, domain.MaxStayNights, b.Nights())
}

func TestWebhook_TimestampDates(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)

	status, err := svc.Handle(context.Background(), createdEvent("CH-7", "ch-room-7", "2025-08-01T15:00:00Z", "2025-08-03T11:00:00+02:00"))
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, status)

	b, err := env.bookings.GetByExternalRef(context.Background(), "CH-7")
	require.NoError(t, err)
	assert.Equal(t, "2025-08-01", b.CheckIn.Format(domain.DateLayout))
	assert.Equal(t, "2025-08-03", b.CheckOut.Format(domain.DateLayout))
}

func TestWebhook_Cancelled(t *testing.T) {
	env := newTestEnv(t)
	svc, n := newWebhookService(env)
	ctx := context.Background()

	_, err := svc.Handle(ctx, createdEvent("CH-5", "ch-room-7", "2025-08-01", "2025-08-03"))
	require.NoError(t, err)

	cancel := WebhookEvent{Event: EventBookingCancelled, Data: WebhookBooking{ExternalBookingID: "CH-5", Reason: "guest cancelled on channel"}}
	status, err := svc.Handle(ctx, cancel)
	require.NoError(t, err)
	assert.Equal(t, StatusProcessed, status)

	b, err := env.bookings.GetByExternalRef(ctx, "CH-5")
	require.NoError(t, err)
	assert.Equal(t, domain.BookingCancelled, b.Status)
	assert.Equal(t, "guest cancelled on channel", b.CancellationReason)
	assert.Len(t, n.cancelled, 1)

	var nights int64
	require.NoError(t, env.db.Model(&domain.RoomNight{}).Where("booking_id = ?", b.ID).Count(&nights).Error)
	assert.Zero(t, nights)

	status, err = svc.Handle(ctx, cancel)
	require.NoError(t, err)
	assert.Equal(t, StatusDuplicate, status)

	status, err = svc.Handle(ctx, WebhookEvent{Event: EventBookingCancelled, Data: WebhookBooking{ExternalBookingID: "CH-404"}})
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, status)
}

func TestWebhook_UnknownEventIgnored(t *testing.T) {
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)

	status, err := svc.Handle(context.Background(), WebhookEvent{Event: "rate.updated"})
	require.NoError(t, err)
	assert.Equal(t, StatusIgnored, status)
}

func TestHandler_Webhook(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)
	r := gin.New()
	NewHandler(svc, testSecret).RegisterRoutes(r.Group("/api/v1"))

	body, err := json.Marshal(createdEvent("CH-9", "ch-room-7", "2025-09-01", "2025-09-02"))
	require.NoError(t, err)

	send := func(sig string, payload []byte) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/channel/webhook", bytes.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")
		if sig != "" {
			req.Header.Set(SignatureHeader, sig)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := send("", body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(Sign("wrong", body), body)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = send(Sign(testSecret, body), body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"data":{"status":"processed"}}`, w.Body.String())

	w = send("sha256="+Sign(testSecret, body), body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"duplicate"}}`, w.Body.String())

	garbage := []byte("not json")
	w = send(Sign(testSecret, garbage), garbage)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"success":true,"data":{"status":"ignored"}}`, w.Body.String())

	w = send("", garbage)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_WebhookChannelPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	env := newTestEnv(t)
	svc, _ := newWebhookService(env)
	r := gin.New()
	NewHandler(svc, testSecret).RegisterRoutes(r.Group("/api/v1"))

	body := []byte(`{
		"event": "booking.created",
		"data": {
			"externalRoomId": "ch-room-7",
			"externalBookingId": "CH-77",
			"guestDetails": {"firstName": "Ana", "lastName": "Silva", "email": "ana@example.com", "phone": "+351900000000"},
			"checkInDate": "2025-10-04",
			"checkOutDate": "2025-10-07",
			"totalPrice": 420.5,
			"adults": 2,
			"children": 1
		}
	}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/channel/webhook", bytes.NewReader(body))
	req.Header.Set(SignatureHeader, Sign(testSecret, body))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"success":true,"data":{"status":"processed"}}`, w.Body.String())

	b, err := env.bookings.GetByExternalRef(context.Background(), "CH-77")
	require.NoError(t, err)
	assert.Equal(t, env.mapped.ID, b.RoomID)
	assert.Equal(t, "Ana", b.Guest.FirstName)
	assert.Equal(t, "+351900000000", b.Guest.Phone)
	assert.Equal(t, 1, b.Children)
	assert.InDelta(t, 420.5, b.TotalAmount, 0.001)
	assert.Equal(t, 3, b.Nights())
}
