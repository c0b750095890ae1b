package booking

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the guest facing booking and payment endpoints.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/bookings/cash", h.CreateCashBooking)
	rg.GET("/bookings/number/:number", h.LookupByNumber)

	payments := rg.Group("/payments")
	payments.POST("/intents", h.CreateIntent)
	payments.POST("/confirm", h.ConfirmCard)
}

// RegisterAdminRoutes expects rg to be behind admin authentication.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/bookings")
	g.GET("", h.List)
	g.GET("/:id", h.GetByID)
	g.POST("/:id/cancel", h.Cancel)
	g.POST("/:id/check-in", h.CheckIn)
	g.POST("/:id/check-out", h.CheckOut)
	g.PATCH("/:id/status", h.UpdateStatus)
	g.POST("/bulk-status", h.BulkUpdateStatus)
	g.POST("/bulk-delete", h.BulkDelete)
}

// CreateCashBooking godoc
// @Summary      Book a room, pay at the hotel
// @Tags         Bookings
// @Accept       json
// @Produce      json
// @Param        request body CreateBookingRequest true "Stay and guest"
// @Success      201 {object} response.Response{data=domain.Booking}
// @Failure      400 {object} response.Response
// @Failure      409 {object} response.Response
// @Router       /bookings/cash [post]
func (h *Handler) CreateCashBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	b, err := h.service.CreateBooking(c.Request.Context(), req, guestActor)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, b)
}

// CreateIntent godoc
// @Summary      Quote a stay and open a card payment
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body CreateBookingRequest true "Stay and guest"
// @Success      201 {object} response.Response{data=IntentResponse}
// @Failure      409 {object} response.Response
// @Failure      502 {object} response.Response
// @Router       /payments/intents [post]
func (h *Handler) CreateIntent(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	resp, err := h.service.CreateCardIntent(c.Request.Context(), req)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp)
}

// ConfirmCard godoc
// @Summary      Turn a captured card payment into a booking
// @Tags         Payments
// @Accept       json
// @Produce      json
// @Param        request body ConfirmCardRequest true "Intent"
// @Success      200 {object} response.Response{data=domain.Booking}
// @Failure      409 {object} response.Response
// @Failure      502 {object} response.Response
// @Router       /payments/confirm [post]
func (h *Handler) ConfirmCard(c *gin.Context) {
	var req ConfirmCardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	b, err := h.service.ConfirmCardBooking(c.Request.Context(), req.IntentID)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// LookupByNumber godoc
// @Summary      Guest lookup of a booking
// @Tags         Bookings
// @Produce      json
// @Param        number path string true "Booking number"
// @Param        email query string true "Guest email"
// @Router       /bookings/number/{number} [get]
func (h *Handler) LookupByNumber(c *gin.Context) {
	b, err := h.service.LookupByNumber(c.Request.Context(), c.Param("number"), c.Query("email"))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) List(c *gin.Context) {
	var q ListBookingsQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	items, total, err := h.service.List(c.Request.Context(), q)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, ListBookingsResponse{Items: items, Total: total})
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.GetByID(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// Cancel godoc
// @Summary      Cancel a booking
// @Description  Card bookings are refunded first; when the refund fails nothing changes.
// @Tags         Bookings
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id path int true "Booking ID"
// @Param        request body CancelBookingRequest false "Reason and refund"
// @Success      200 {object} response.Response{data=CancelResult}
// @Failure      409 {object} response.Response
// @Failure      502 {object} response.Response
// @Router       /admin/bookings/{id}/cancel [post]
func (h *Handler) Cancel(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req CancelBookingRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
			return
		}
	}

	res, err := h.service.CancelBooking(c.Request.Context(), id, req, actorOf(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, res)
}

func (h *Handler) CheckIn(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.CheckIn(c.Request.Context(), id, actorOf(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) CheckOut(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	b, err := h.service.CheckOut(c.Request.Context(), id, actorOf(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

// UpdateStatus godoc
// @Summary      Change a booking status
// @Tags         Bookings
// @Security     BearerAuth
// @Accept       json
// @Param        id path int true "Booking ID"
// @Param        request body UpdateStatusRequest true "Target status"
// @Router       /admin/bookings/{id}/status [patch]
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := bookingID(c)
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	status := domain.BookingStatus(strings.ToUpper(req.Status))
	b, err := h.service.UpdateStatus(c.Request.Context(), id, status, actorOf(c), req.Note)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, b)
}

func (h *Handler) BulkUpdateStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	n, err := h.service.BulkUpdateStatus(c.Request.Context(), req.IDs, domain.BookingStatus(strings.ToUpper(req.Status)), actorOf(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, BulkResult{Affected: n})
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}
	n, err := h.service.BulkDelete(c.Request.Context(), req.IDs, actorOf(c))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, BulkResult{Affected: n})
}

func bookingID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid booking ID")
		return 0, false
	}
	return id, true
}

// actorOf names the authenticated caller for the audit trail.
func actorOf(c *gin.Context) string {
	if email := c.GetString("email"); email != "" {
		return email
	}
	return "admin"
}
