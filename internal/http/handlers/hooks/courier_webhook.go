package hooks

import (
	"net/http"

	"github.com/shoplink-next/internal/logger"

	"github.com/gin-gonic/gin"
)

// CourierDeliveredRequest 承运商送达回调载荷
type CourierDeliveredRequest struct {
	OrderID        uint   `json:"order_id" binding:"required"`
	TrackingNumber string `json:"tracking_number"`
	Status         string `json:"status"`
}

// CourierDelivered 承运商送达回调：将已发货订单标记为已送达
func (h *Handler) CourierDelivered(c *gin.Context) {
	var req CourierDeliveredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warnw("courier_webhook_payload_invalid", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "payload_invalid"})
		return
	}
	if req.Status != "" && req.Status != "delivered" {
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "unsupported_status"})
		return
	}

	if err := h.OrderService.MarkDelivered(c.Request.Context(), req.OrderID); err != nil {
		logger.Errorw("courier_webhook_handle_failed", "order_id", req.OrderID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "reason": "internal"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "order_id": req.OrderID})
}
