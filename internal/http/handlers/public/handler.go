package public

import "github.com/shoplink-next/internal/provider"

// Handler 公开接口处理器入口
// 说明：该处理器用于观察端仪表盘的只读 API。
type Handler struct {
	*provider.Container
}

// New 创建公开处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}
