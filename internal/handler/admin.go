package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"courier/internal/domain"
	"courier/internal/service"
)

// AdminHandler handles privileged order mutations.
type AdminHandler struct {
	adminService *service.AdminService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(adminService *service.AdminService) *AdminHandler {
	return &AdminHandler{adminService: adminService}
}

// SetPrice handles POST /v1/admin/orders/:id/price
func (h *AdminHandler) SetPrice(c *gin.Context) {
	var req struct {
		Price  string `json:"price"`
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	price, err := decimal.NewFromString(req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid price"})
		return
	}

	result, err := h.adminService.SetPrice(c.Request.Context(), c.Param("id"), price, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	resp := gin.H{"order": toOrderResponse(result.Order)}
	if result.Warning != "" {
		resp["warning"] = result.Warning
	}

	respondJSON(c, http.StatusOK, resp)
}

// SetStatus handles POST /v1/admin/orders/:id/status
func (h *AdminHandler) SetStatus(c *gin.Context) {
	var req struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.adminService.SetStatus(c.Request.Context(), c.Param("id"), domain.OrderStatus(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}

// CancelOrder handles POST /v1/admin/orders/:id/cancel
func (h *AdminHandler) CancelOrder(c *gin.Context) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	order, err := h.adminService.CancelOrder(c.Request.Context(), c.Param("id"), req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}

	respondJSON(c, http.StatusOK, toOrderResponse(order))
}
