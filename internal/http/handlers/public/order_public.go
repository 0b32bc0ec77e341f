package public

import (
	"errors"
	"strconv"

	handlershared "github.com/shoplink-next/internal/http/handlers/shared"
	"github.com/shoplink-next/internal/http/response"
	"github.com/shoplink-next/internal/repository"
	"github.com/shoplink-next/internal/service"

	"github.com/gin-gonic/gin"
)

// OrderListQuery 订单列表查询参数
type OrderListQuery struct {
	Page        int    `form:"page"`
	PageSize    int    `form:"page_size"`
	Status      string `form:"status"`
	OrderNumber string `form:"order_number"`
}

// ListOrders 订单列表
func (h *Handler) ListOrders(c *gin.Context) {
	var query OrderListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.BadRequest(c, "invalid query")
		return
	}
	page, pageSize := handlershared.NormalizePagination(query.Page, query.PageSize)

	orders, total, err := h.OrderService.ListOrders(repository.OrderListFilter{
		Page:        page,
		PageSize:    pageSize,
		Status:      query.Status,
		OrderNumber: query.OrderNumber,
	})
	if err != nil {
		response.Error(c, response.CodeInternal, "failed to list orders")
		return
	}

	totalPage := total / int64(pageSize)
	if total%int64(pageSize) != 0 {
		totalPage++
	}
	response.SuccessWithPage(c, orders, response.Pagination{
		Page:      page,
		PageSize:  pageSize,
		Total:     total,
		TotalPage: totalPage,
	})
}

// GetOrder 订单详情
func (h *Handler) GetOrder(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	order, err := h.OrderService.GetOrder(orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		response.Error(c, response.CodeInternal, "failed to fetch order")
		return
	}
	response.Success(c, order)
}

// GetOrderLogs 订单的消息记录
func (h *Handler) GetOrderLogs(c *gin.Context) {
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}
	logs, err := h.OrderService.ListOrderLogs(orderID)
	if err != nil {
		if errors.Is(err, service.ErrOrderNotFound) {
			response.NotFound(c, "order not found")
			return
		}
		response.Error(c, response.CodeInternal, "failed to fetch order logs")
		return
	}
	response.Success(c, logs)
}

func parseOrderID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid order id")
		return 0, false
	}
	return uint(id), true
}
