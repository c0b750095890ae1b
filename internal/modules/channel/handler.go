package channel

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"hotelbooking/internal/pkg/response"
)

const maxWebhookBody = 1 << 20

type Handler struct {
	service *WebhookService
	secret  string
}

func NewHandler(service *WebhookService, secret string) *Handler {
	return &Handler{service: service, secret: secret}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/channel/webhook", h.Webhook)
}

// Webhook godoc
// @Summary      Inbound channel events
// @Description  Body must be signed with HMAC-SHA256 in X-Channel-Signature.
// @Tags         Channel
// @Accept       json
// @Produce      json
// @Success      200 {object} response.Response
// @Failure      401 {object} response.Response
// @Router       /channel/webhook [post]
func (h *Handler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unable to read body")
		return
	}
	if err := VerifySignature(h.secret, body, c.GetHeader(SignatureHeader)); err != nil {
		response.FromError(c, err)
		return
	}

	var ev WebhookEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		// authenticated but unreadable events are acknowledged and dropped
		h.service.loggerf("level=warn msg=\"malformed channel event ignored\" err=%q", err.Error())
		response.Success(c, http.StatusOK, gin.H{"status": StatusIgnored})
		return
	}

	status, err := h.service.Handle(c.Request.Context(), ev)
	if err != nil {
		response.FromError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": status})
}
