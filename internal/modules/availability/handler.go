package availability

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"hotelbooking/internal/domain"
	"hotelbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
	now     func() time.Time
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service, now: time.Now}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/availability")
	g.GET("/rooms/:id", h.RoomAvailability)
	g.GET("/types/:type", h.TypeAvailability)
	g.GET("/calendar", h.Calendar)
}

// RoomAvailability godoc
// @Summary      Check a room for a date range
// @Tags         Availability
// @Produce      json
// @Param        id path int true "Room ID"
// @Param        check_in query string true "YYYY-MM-DD"
// @Param        check_out query string true "YYYY-MM-DD"
// @Param        exclude_booking_id query int false "Booking to ignore"
// @Router       /availability/rooms/{id} [get]
func (h *Handler) RoomAvailability(c *gin.Context) {
	roomID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || roomID <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid room ID")
		return
	}
	checkIn, checkOut, err := parseRange(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	var exclude int64
	if raw := c.Query("exclude_booking_id"); raw != "" {
		if exclude, err = strconv.ParseInt(raw, 10, 64); err != nil {
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid exclude_booking_id")
			return
		}
	}

	ok, err := h.service.IsRoomAvailable(c.Request.Context(), roomID, checkIn, checkOut, exclude)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"is_available": ok})
}

// TypeAvailability godoc
// @Summary      Count free units of a room type
// @Tags         Availability
// @Produce      json
// @Param        type path string true "Room type key"
// @Param        check_in query string true "YYYY-MM-DD"
// @Param        check_out query string true "YYYY-MM-DD"
// @Router       /availability/types/{type} [get]
func (h *Handler) TypeAvailability(c *gin.Context) {
	checkIn, checkOut, err := parseRange(c)
	if err != nil {
		response.FromError(c, err)
		return
	}
	n, err := h.service.AvailableUnitsOfType(c.Request.Context(), c.Param("type"), checkIn, checkOut)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"available_count": n})
}

// Calendar godoc
// @Summary      Per-day availability for a month
// @Tags         Availability
// @Produce      json
// @Param        month query int false "1..12, defaults to the current month"
// @Param        year query int false "defaults to the current year"
// @Router       /availability/calendar [get]
func (h *Handler) Calendar(c *gin.Context) {
	now := h.now().UTC()
	year, month := now.Year(), int(now.Month())
	var err error
	if raw := c.Query("year"); raw != "" {
		if year, err = strconv.Atoi(raw); err != nil {
			response.FromError(c, ErrInvalidMonth)
			return
		}
	}
	if raw := c.Query("month"); raw != "" {
		if month, err = strconv.Atoi(raw); err != nil {
			response.FromError(c, ErrInvalidMonth)
			return
		}
	}

	cal, err := h.service.MonthlyAggregate(c.Request.Context(), year, time.Month(month))
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cal)
}

func parseRange(c *gin.Context) (time.Time, time.Time, error) {
	rawIn, rawOut := c.Query("check_in"), c.Query("check_out")
	if rawIn == "" || rawOut == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: check_in and check_out are required", domain.ErrValidation)
	}
	checkIn, err := domain.ParseDate(rawIn)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	checkOut, err := domain.ParseDate(rawOut)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return checkIn, checkOut, nil
}
