package hooks

import "github.com/shoplink-next/internal/provider"

// Handler 外部回调处理器入口
// 说明：该处理器仅用于上游平台、消息通道与承运商的回调，响应体
// 为各回调方约定的原始 JSON，不走统一响应包装。
type Handler struct {
	*provider.Container
}

// New 创建回调处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
