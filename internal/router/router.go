package router

import (
	"github.com/shoplink-next/internal/config"
	hookhandlers "github.com/shoplink-next/internal/http/handlers/hooks"
	publichandlers "github.com/shoplink-next/internal/http/handlers/public"
	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按回调/公开分组）
	hookHandler := hookhandlers.New(c)
	publicHandler := publichandlers.New(c)

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 外部回调接口
		webhooks := apiV1.Group("/webhooks")
		{
			webhooks.POST("/orders/create", hookHandler.OrderCreate)
			webhooks.GET("/whatsapp", hookHandler.WhatsAppVerify)
			webhooks.POST("/whatsapp", hookHandler.WhatsAppInbound)
			webhooks.POST("/courier", hookHandler.CourierDelivered)
		}

		// 公开接口（观察端仪表盘）
		public := apiV1.Group("/public")
		{
			public.GET("/orders", publicHandler.ListOrders)
			public.GET("/orders/:id", publicHandler.GetOrder)
			public.GET("/orders/:id/logs", publicHandler.GetOrderLogs)
		}
	}

	// 实时事件流（观察端）
	r.GET("/ws/orders", func(ctx *gin.Context) {
		c.Hub.ServeWS(ctx.Writer, ctx.Request)
	})

	// 健康检查
	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	return r
}
