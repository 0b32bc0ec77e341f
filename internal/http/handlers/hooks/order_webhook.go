package hooks

import (
	"io"
	"net/http"

	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/shopify"

	"github.com/gin-gonic/gin"
)

// OrderCreate 上游下单事件回调。
// 先对原始请求体做签名校验，校验通过后才解析载荷；
// 重复事件返回 skipped，保证回调方安全重试。
func (h *Handler) OrderCreate(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Warnw("order_webhook_body_read_failed", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "reason": "body_unreadable"})
		return
	}

	signature := c.GetHeader(shopify.SignatureHeader)
	if err := shopify.VerifyWebhook(h.Config.Shopify.WebhookSecret, body, signature); err != nil {
		logger.Warnw("order_webhook_signature_invalid",
			"client_ip", c.ClientIP(),
			"body_size", len(body))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"status": "error", "reason": "signature_invalid"})
		return
	}

	event, err := shopify.ParseOrderEvent(body)
	if err != nil {
		// 签名已通过，载荷不合法时确认收到但不处理，避免上游无限重试
		logger.Warnw("order_webhook_payload_malformed", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored", "reason": "malformed"})
		return
	}

	result, err := h.OrderService.Ingest(c.Request.Context(), event)
	if err != nil {
		logger.Errorw("order_webhook_ingest_failed",
			"external_order_id", event.ExternalOrderID(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"status": "error", "reason": "internal"})
		return
	}

	if !result.Created {
		c.JSON(http.StatusOK, gin.H{"status": "skipped", "reason": "duplicate"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "order_id": result.Order.ID})
}
