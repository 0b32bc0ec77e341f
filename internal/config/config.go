package config

import (
	"strings"
	"time"

	"github.com/shoplink-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Shopify  ShopifyConfig  `mapstructure:"shopify"`
	WhatsApp WhatsAppConfig `mapstructure:"whatsapp"`
	Notify   NotifyConfig   `mapstructure:"notify"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

// ShopifyConfig 上游电商平台配置
type ShopifyConfig struct {
	WebhookSecret string `mapstructure:"webhook_secret"` // webhook 签名密钥
	ShopURL       string `mapstructure:"shop_url"`       // 店铺域名，如 your-shop.myshopify.com
	AccessToken   string `mapstructure:"access_token"`   // Admin API 访问令牌
	APIVersion    string `mapstructure:"api_version"`    // Admin API 版本
	TimeoutMS     int    `mapstructure:"timeout_ms"`     // 出站请求超时
}

// WhatsAppConfig 消息通道配置
type WhatsAppConfig struct {
	APIToken      string `mapstructure:"api_token"`      // Graph API 访问令牌
	PhoneNumberID string `mapstructure:"phone_number_id"`// 发送号码 ID
	BaseURL       string `mapstructure:"base_url"`       // Graph API 基础地址
	VerifyToken   string `mapstructure:"verify_token"`   // webhook 校验令牌
	TimeoutMS     int    `mapstructure:"timeout_ms"`     // 出站请求超时
}

// NotifyConfig 通知编排配置（各延迟动作的等待时长与策略开关）
type NotifyConfig struct {
	ConfirmDelaySeconds    int  `mapstructure:"confirm_delay_seconds"`     // 下单到发送确认请求
	FollowupDelaySeconds   int  `mapstructure:"followup_delay_seconds"`    // 确认请求到催单提醒
	CancelDelaySeconds     int  `mapstructure:"cancel_delay_seconds"`      // 催单提醒到自动取消
	SlotPromptDelaySeconds int  `mapstructure:"slot_prompt_delay_seconds"` // 客户确认到配送时段询问
	TrackingDelaySeconds   int  `mapstructure:"tracking_delay_seconds"`    // 时段选择到运单生成
	AllowCancelConfirmed   bool `mapstructure:"allow_cancel_confirmed"`    // 是否允许取消已确认订单
	TaskMaxRetry           int  `mapstructure:"task_max_retry"`            // 任务失败后的有限重试次数
}

// ConfirmDelay 确认请求延迟
func (c NotifyConfig) ConfirmDelay() time.Duration {
	return secondsOrDefault(c.ConfirmDelaySeconds, 10)
}

// FollowupDelay 催单提醒延迟
func (c NotifyConfig) FollowupDelay() time.Duration {
	return secondsOrDefault(c.FollowupDelaySeconds, 86400)
}

// CancelDelay 自动取消延迟
func (c NotifyConfig) CancelDelay() time.Duration {
	return secondsOrDefault(c.CancelDelaySeconds, 86400)
}

// SlotPromptDelay 配送时段询问延迟
func (c NotifyConfig) SlotPromptDelay() time.Duration {
	return secondsOrDefault(c.SlotPromptDelaySeconds, 60)
}

// TrackingDelay 运单生成延迟
func (c NotifyConfig) TrackingDelay() time.Duration {
	return secondsOrDefault(c.TrackingDelaySeconds, 30)
}

func secondsOrDefault(value int, fallback int) time.Duration {
	if value <= 0 {
		value = fallback
	}
	return time.Duration(value) * time.Second
}

// Load 加载配置文件
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")  // 如果从 cmd/server 运行
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "shoplink.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/shoplink.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "sl")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default": 10,
	})
	viper.SetDefault("cors.allowed_origins", []string{"*"})
	viper.SetDefault("cors.allow_credentials", false)
	viper.SetDefault("cors.max_age", 3600)
	viper.SetDefault("shopify.webhook_secret", "change-me-webhook-secret")
	viper.SetDefault("shopify.shop_url", "")
	viper.SetDefault("shopify.access_token", "")
	viper.SetDefault("shopify.api_version", "2023-07")
	viper.SetDefault("shopify.timeout_ms", 10000)
	viper.SetDefault("whatsapp.api_token", "")
	viper.SetDefault("whatsapp.phone_number_id", "")
	viper.SetDefault("whatsapp.base_url", "https://graph.facebook.com/v17.0")
	viper.SetDefault("whatsapp.verify_token", "")
	viper.SetDefault("whatsapp.timeout_ms", 10000)
	viper.SetDefault("notify.confirm_delay_seconds", 10)
	viper.SetDefault("notify.followup_delay_seconds", 86400)
	viper.SetDefault("notify.cancel_delay_seconds", 86400)
	viper.SetDefault("notify.slot_prompt_delay_seconds", 60)
	viper.SetDefault("notify.tracking_delay_seconds", 30)
	viper.SetDefault("notify.allow_cancel_confirmed", true)
	viper.SetDefault("notify.task_max_retry", 3)

	viper.SetEnvPrefix("SL")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_not_found_using_defaults", "error", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
	}
	return &cfg
}
