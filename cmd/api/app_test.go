package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"hotelbooking/internal/config"
	"hotelbooking/internal/database"
	"hotelbooking/internal/modules/channel"
)

const (
	testAdminEmail    = "frontdesk@hotel.test"
	testAdminPassword = "s3cret-pass"
	testWebhookSecret = "whsec_test"
)

type apiResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type testServer struct {
	router *gin.Engine
	token  string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Connect(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	hash, err := bcrypt.GenerateFromPassword([]byte(testAdminPassword), bcrypt.MinCost)
	require.NoError(t, err)

	cfg := &config.Config{
		JWTSecret:            "test_secret_key_32_characters_min",
		JWTTTL:               time.Hour,
		AdminEmail:           testAdminEmail,
		AdminPasswordHash:    string(hash),
		Currency:             "EUR",
		ChannelWebhookSecret: testWebhookSecret,
		ChannelSyncMaxTries:  3,
		ChannelSyncInterval:  time.Minute,
		ChannelSyncBackoff:   time.Minute,
		ReminderLead:         24 * time.Hour,
		Availability:         config.AvailabilityPolicy{LimitedMax: 2},
	}

	a, err := buildApp(cfg, db, externals{})
	require.NoError(t, err)
	t.Cleanup(a.hub.Close)

	return &testServer{router: a.router}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var resp apiResponse
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return w, resp
}

func (s *testServer) login(t *testing.T) {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    testAdminEmail,
		"password": testAdminPassword,
	}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	require.NotEmpty(t, out.AccessToken)
	s.token = out.AccessToken
}

func (s *testServer) createRoom(t *testing.T, body map[string]interface{}) int64 {
	t.Helper()
	w, resp := s.do(t, http.MethodPost, "/api/v1/admin/rooms", body, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var room struct {
		ID int64 `json:"id"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &room))
	return room.ID
}

func guestBooking(roomID int64, checkIn, checkOut string) map[string]interface{} {
	return map[string]interface{}{
		"room_id":   roomID,
		"check_in":  checkIn,
		"check_out": checkOut,
		"adults":    2,
		"guest": map[string]string{
			"first_name": "Lena",
			"last_name":  "Berg",
			"email":      "lena@example.com",
		},
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestAdminRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	w, resp := s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "AUTH_HEADER_MISSING", resp.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", map[string]string{
		"email":    testAdminEmail,
		"password": "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	s.login(t)
	w, _ = s.do(t, http.MethodGet, "/api/v1/admin/bookings", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingFlow(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	roomID := s.createRoom(t, map[string]interface{}{
		"name":        "Garden Double",
		"type_key":    "double",
		"capacity":    2,
		"price":       100.0,
		"total_units": 1,
	})

	avail := fmt.Sprintf("/api/v1/availability/rooms/%d?check_in=2030-05-01&check_out=2030-05-04", roomID)
	w, resp := s.do(t, http.MethodGet, avail, nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"is_available":true}`, string(resp.Data))

	w, resp = s.do(t, http.MethodPost, "/api/v1/bookings/cash", guestBooking(roomID, "2030-05-01", "2030-05-04"), nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var booking struct {
		ID            int64   `json:"id"`
		BookingNumber string  `json:"booking_number"`
		Status        string  `json:"status"`
		TotalAmount   float64 `json:"total_amount"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &booking))
	assert.Regexp(t, `^AST-\d{4}-0001$`, booking.BookingNumber)
	assert.Equal(t, "CONFIRMED", booking.Status)
	assert.InDelta(t, 300.0, booking.TotalAmount, 0.001)

	w, resp = s.do(t, http.MethodGet, avail, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_available":false}`, string(resp.Data))

	// shares the night of May 3rd
	w, resp = s.do(t, http.MethodPost, "/api/v1/bookings/cash", guestBooking(roomID, "2030-05-03", "2030-05-05"), nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)

	// touching stays are fine
	w, _ = s.do(t, http.MethodPost, "/api/v1/bookings/cash", guestBooking(roomID, "2030-05-04", "2030-05-06"), nil)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w, resp = s.do(t, http.MethodPost, "/api/v1/payments/intents", guestBooking(roomID, "2030-06-01", "2030-06-02"), nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PAYMENT_ERROR", resp.Error.Code)

	cancelURL := fmt.Sprintf("/api/v1/admin/bookings/%d/cancel", booking.ID)
	w, _ = s.do(t, http.MethodPost, cancelURL, map[string]string{"reason": "guest request"}, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, resp = s.do(t, http.MethodGet, avail, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_available":true}`, string(resp.Data))

	w, resp = s.do(t, http.MethodPost, cancelURL, nil, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_STATE", resp.Error.Code)
}

func TestChannelWebhook(t *testing.T) {
	s := newTestServer(t)
	s.login(t)

	roomID := s.createRoom(t, map[string]interface{}{
		"name":             "Loft",
		"type_key":         "loft",
		"capacity":         3,
		"price":            150.0,
		"total_units":      1,
		"source":           "channel",
		"external_room_id": "loft-1",
	})

	payload, err := json.Marshal(channel.WebhookEvent{
		Event: channel.EventBookingCreated,
		Data: channel.WebhookBooking{
			ExternalBookingID: "ext-991",
			ExternalRoomID:    "loft-1",
			CheckInDate:       "2030-07-10",
			CheckOutDate:      "2030-07-12",
			Adults:            2,
			TotalPrice:        300,
			GuestDetails:      channel.WebhookGuest{FirstName: "Omar", LastName: "Haddad", Email: "omar@example.com"},
		},
	})
	require.NoError(t, err)

	w, _ := s.do(t, http.MethodPost, "/api/v1/channel/webhook", payload, map[string]string{
		channel.SignatureHeader: "deadbeef",
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	signed := map[string]string{channel.SignatureHeader: channel.Sign(testWebhookSecret, payload)}
	w, resp := s.do(t, http.MethodPost, "/api/v1/channel/webhook", payload, signed)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.JSONEq(t, `{"status":"processed"}`, string(resp.Data))

	w, resp = s.do(t, http.MethodPost, "/api/v1/channel/webhook", payload, signed)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"duplicate"}`, string(resp.Data))

	avail := fmt.Sprintf("/api/v1/availability/rooms/%d?check_in=2030-07-11&check_out=2030-07-13", roomID)
	w, resp = s.do(t, http.MethodGet, avail, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"is_available":false}`, string(resp.Data))
}
