package room

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"hotelbooking/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.GET("/rooms", h.ListActive)
	rg.GET("/rooms/:id", h.Get)
}

func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/rooms")
	g.GET("", h.ListAll)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

func (h *Handler) ListActive(c *gin.Context) {
	rooms, err := h.service.List(c.Request.Context(), true)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rooms)
}

func (h *Handler) ListAll(c *gin.Context) {
	rooms, err := h.service.List(c.Request.Context(), false)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, rooms)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	room, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, room)
}

// Create godoc
// @Summary      Add a room
// @Tags         Rooms
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        request body RoomRequest true "Room"
// @Success      201 {object} response.Response{data=domain.Room}
// @Failure      400 {object} response.Response
// @Router       /admin/rooms [post]
func (h *Handler) Create(c *gin.Context) {
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	room, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, room)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	var req RoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return
	}
	room, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, room)
}

// Delete godoc
// @Summary      Delete a room without bookings
// @Tags         Rooms
// @Security     BearerAuth
// @Param        id path int true "Room ID"
// @Success      200 {object} response.Response
// @Failure      409 {object} response.Response
// @Router       /admin/rooms/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	id, ok := roomID(c)
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"deleted": id})
}

func writeError(c *gin.Context, err error) {
	var fe FieldErrors
	if errors.As(err, &fe) {
		response.ErrorWithDetails(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid room", map[string]string(fe))
		return
	}
	response.FromError(c, err)
}

func roomID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid room ID")
		return 0, false
	}
	return id, true
}
