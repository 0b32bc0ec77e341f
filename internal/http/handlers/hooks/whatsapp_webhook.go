package hooks

import (
	"io"
	"net/http"

	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/whatsapp"

	"github.com/gin-gonic/gin"
)

// WhatsAppVerify 消息通道的 webhook 订阅校验（GET 握手）
func (h *Handler) WhatsAppVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "subscribe" && token != "" && token == h.Config.WhatsApp.VerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	logger.Warnw("whatsapp_webhook_verify_failed", "mode", mode, "client_ip", c.ClientIP())
	c.String(http.StatusForbidden, "forbidden")
}

// WhatsAppInbound 消息通道入站回调。
// 无论处理结果如何都返回 200，否则通道会反复投递同一事件。
func (h *Handler) WhatsAppInbound(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		logger.Warnw("whatsapp_webhook_body_read_failed", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	replies, err := whatsapp.ParseInbound(body)
	if err != nil {
		logger.Warnw("whatsapp_webhook_payload_malformed", "client_ip", c.ClientIP(), "error", err)
		c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		return
	}

	for _, reply := range replies {
		if err := h.OrderService.HandleReply(c.Request.Context(), reply); err != nil {
			logger.Warnw("whatsapp_reply_handle_failed",
				"from", reply.From, "order_id", reply.OrderID, "error", err)
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "received"})
}
