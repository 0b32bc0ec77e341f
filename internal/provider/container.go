package provider

import (
	"github.com/shoplink-next/internal/cache"
	"github.com/shoplink-next/internal/config"
	"github.com/shoplink-next/internal/courier"
	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/models"
	"github.com/shoplink-next/internal/queue"
	"github.com/shoplink-next/internal/repository"
	"github.com/shoplink-next/internal/service"
	"github.com/shoplink-next/internal/shopify"
	"github.com/shoplink-next/internal/whatsapp"
	"github.com/shoplink-next/internal/ws"
)

// Container 依赖注入容器
type Container struct {
	Config      *config.Config
	QueueClient *queue.Client
	Hub         *ws.Hub

	// Clients
	ShopifyClient  *shopify.Client
	WhatsAppClient *whatsapp.Client
	Tracking       courier.Generator

	// Repositories
	OrderRepo      repository.OrderRepository
	MessageLogRepo repository.MessageLogRepository

	// Services
	OrderService        *service.OrderService
	NotificationService *service.NotificationService
}

// NewContainer 初始化容器
func NewContainer(cfg *config.Config) *Container {
	// 初始化缓存
	if err := cache.InitRedis(&cfg.Redis); err != nil {
		logger.Warnw("provider_init_redis_failed", "error", err)
	}

	// 初始化队列客户端
	var queueClient *queue.Client
	if cfg.Queue.Enabled {
		qc, err := queue.NewClient(&cfg.Queue, cfg.Notify.TaskMaxRetry)
		if err != nil {
			logger.Errorw("provider_init_queue_client_failed", "error", err)
		} else {
			queueClient = qc
		}
	}
	if queueClient == nil {
		queueClient, _ = queue.NewClient(nil, cfg.Notify.TaskMaxRetry)
	}

	c := &Container{
		Config:         cfg,
		QueueClient:    queueClient,
		Hub:            ws.NewHub(),
		ShopifyClient:  shopify.NewClient(&cfg.Shopify),
		WhatsAppClient: whatsapp.NewClient(&cfg.WhatsApp),
		Tracking:       courier.NewMockGenerator(""),
	}

	// 1. 初始化 Repositories
	c.initRepositories()

	// 2. 初始化 Services
	c.initServices()

	return c
}

func (c *Container) initRepositories() {
	db := models.DB
	c.OrderRepo = repository.NewOrderRepository(db)
	c.MessageLogRepo = repository.NewMessageLogRepository(db)
}

func (c *Container) initServices() {
	c.OrderService = service.NewOrderService(
		c.Config,
		c.OrderRepo,
		c.MessageLogRepo,
		c.QueueClient,
		c.WhatsAppClient,
		c.ShopifyClient,
		c.Hub,
	)
	c.NotificationService = service.NewNotificationService(
		c.Config,
		c.OrderRepo,
		c.MessageLogRepo,
		c.QueueClient,
		c.WhatsAppClient,
		c.Tracking,
		c.Hub,
		c.OrderService,
	)
}
