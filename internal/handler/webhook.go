package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"courier/internal/domain"
	"courier/internal/service"
)

// WebhookHandler receives asynchronous gateway notifications.
type WebhookHandler struct {
	reconciler *service.Reconciler
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(reconciler *service.Reconciler) *WebhookHandler {
	return &WebhookHandler{reconciler: reconciler}
}

// HandleNotification handles POST /v1/webhooks/:gateway
//
// The raw body is passed through untouched: Paystack signs the exact bytes
// with an HMAC carried in a header, while PayFast embeds its signature as a
// form field inside the body.
func (h *WebhookHandler) HandleNotification(c *gin.Context) {
	gatewayName := domain.GatewayName(c.Param("gateway"))

	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "unreadable body"})
		return
	}

	signature := c.GetHeader("X-Paystack-Signature")

	accepted, err := h.reconciler.HandleNotification(c.Request.Context(), gatewayName, body, signature)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, gin.H{"accepted": accepted})
}
