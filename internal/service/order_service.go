package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shoplink-next/internal/cache"
	"github.com/shoplink-next/internal/config"
	"github.com/shoplink-next/internal/constants"
	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/models"
	"github.com/shoplink-next/internal/queue"
	"github.com/shoplink-next/internal/repository"
	"github.com/shoplink-next/internal/shopify"
	"github.com/shoplink-next/internal/whatsapp"

	"gorm.io/gorm"
)

// allowedTransitions 订单状态机：当前状态到可达状态的映射
var allowedTransitions = map[string]map[string]bool{
	constants.OrderStatusPending: {
		constants.OrderStatusConfirmed: true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusConfirmed: {
		constants.OrderStatusShipped:   true,
		constants.OrderStatusCancelled: true,
	},
	constants.OrderStatusShipped: {
		constants.OrderStatusDelivered: true,
	},
	constants.OrderStatusCancelled: {},
	constants.OrderStatusDelivered: {},
}

// TransitionAllowed 判断状态迁移是否合法
func TransitionAllowed(from, to string) bool {
	targets, ok := allowedTransitions[from]
	if !ok {
		return false
	}
	return targets[to]
}

// Dispatcher 出站消息通道接口
type Dispatcher interface {
	SendText(ctx context.Context, to string, body string) (string, error)
	SendTemplate(ctx context.Context, to string, templateName string, params []string) (string, error)
	SendButtons(ctx context.Context, to string, body string, buttons []whatsapp.Button) (string, error)
	SendList(ctx context.Context, to string, body string, buttonText string, sections []whatsapp.ListSection) (string, error)
}

// TaskScheduler 延迟任务调度接口
type TaskScheduler interface {
	EnqueueOrderTask(taskType string, payload queue.OrderTaskPayload, delay time.Duration) error
}

// Broadcaster 实时事件广播接口
type Broadcaster interface {
	Publish(eventType string, data any)
}

// UpstreamCanceller 上游订单取消接口
type UpstreamCanceller interface {
	Enabled() bool
	CancelOrder(ctx context.Context, externalOrderID string) error
}

// OrderService 订单生命周期服务
type OrderService struct {
	cfg        *config.Config
	orderRepo  repository.OrderRepository
	logRepo    repository.MessageLogRepository
	scheduler  TaskScheduler
	dispatcher Dispatcher
	upstream   UpstreamCanceller
	hub        Broadcaster
}

// NewOrderService 创建订单服务
func NewOrderService(
	cfg *config.Config,
	orderRepo repository.OrderRepository,
	logRepo repository.MessageLogRepository,
	scheduler TaskScheduler,
	dispatcher Dispatcher,
	upstream UpstreamCanceller,
	hub Broadcaster,
) *OrderService {
	return &OrderService{
		cfg:        cfg,
		orderRepo:  orderRepo,
		logRepo:    logRepo,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		upstream:   upstream,
		hub:        hub,
	}
}

// IngestResult 下单事件接收结果
type IngestResult struct {
	Order   *models.Order
	Created bool
}

// Ingest 接收上游下单事件并幂等创建订单。
// 重复事件返回 Created=false，数据库唯一索引为最终裁决。
func (s *OrderService) Ingest(ctx context.Context, event *shopify.OrderEvent) (*IngestResult, error) {
	externalID := event.ExternalOrderID()

	// 缓存快速去重，未命中不拦截，以唯一索引兜底
	seenKey := fmt.Sprintf("order:seen:%s", externalID)
	if first, err := cache.MarkOnce(ctx, seenKey, 24*time.Hour); err != nil {
		logger.Warnw("order_ingest_cache_mark_failed", "external_order_id", externalID, "error", err)
	} else if !first {
		existing, err := s.orderRepo.GetByExternalID(externalID)
		if err != nil {
			return nil, ErrOrderFetchFailed
		}
		if existing != nil {
			return &IngestResult{Order: existing, Created: false}, nil
		}
	}

	order := &models.Order{
		ExternalOrderID:   externalID,
		OrderNumber:       event.Name,
		CustomerPhone:     event.CustomerPhone(),
		CustomerName:      event.CustomerName(),
		TotalPrice:        models.NewMoneyFromString(event.TotalPrice),
		Currency:          event.Currency,
		FinancialStatus:   event.FinancialStatus,
		FulfillmentStatus: event.FulfillmentStatus,
		Status:            constants.OrderStatusPending,
	}
	if order.OrderNumber == "" {
		order.OrderNumber = "#" + externalID
	}

	if err := s.orderRepo.Create(order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			existing, ferr := s.orderRepo.GetByExternalID(externalID)
			if ferr != nil || existing == nil {
				return nil, ErrOrderFetchFailed
			}
			return &IngestResult{Order: existing, Created: false}, nil
		}
		logger.Errorw("order_create_failed", "external_order_id", externalID, "error", err)
		return nil, ErrOrderCreateFailed
	}

	// 持久化成功后才调度与广播
	if err := s.scheduler.EnqueueOrderTask(constants.TaskOrderSendConfirmation,
		queue.OrderTaskPayload{OrderID: order.ID}, s.cfg.Notify.ConfirmDelay()); err != nil {
		logger.Errorw("order_confirmation_enqueue_failed", "order_id", order.ID, "error", err)
	}
	s.hub.Publish(constants.EventTypeNewOrder, order)

	logger.Infow("order_created",
		"order_id", order.ID,
		"external_order_id", externalID,
		"order_number", order.OrderNumber)
	return &IngestResult{Order: order, Created: true}, nil
}

// GetOrder 查询单个订单
func (s *OrderService) GetOrder(id uint) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// ListOrders 查询订单列表
func (s *OrderService) ListOrders(filter repository.OrderListFilter) ([]models.Order, int64, error) {
	return s.orderRepo.List(filter)
}

// ListOrderLogs 查询订单的消息记录
func (s *OrderService) ListOrderLogs(orderID uint) ([]models.MessageLog, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		return nil, ErrOrderNotFound
	}
	return s.logRepo.ListByOrder(orderID)
}

// HandleReply 路由客户回复。未知或过期回复不报错，记录后忽略。
func (s *OrderService) HandleReply(ctx context.Context, reply *whatsapp.InboundReply) error {
	switch {
	case reply.IsButton():
		switch reply.Action {
		case constants.ReplyActionConfirm:
			return s.Confirm(ctx, reply.OrderID)
		case constants.ReplyActionCancel:
			return s.Cancel(ctx, reply.OrderID)
		case constants.ReplyActionAddress:
			return s.requestDeliveryNotes(ctx, reply.OrderID)
		}
	case reply.IsList():
		if reply.ListKind == constants.ListReplyKindSlot {
			return s.SelectDeliverySlot(ctx, reply.OrderID, reply.Value)
		}
	case reply.IsText():
		return s.attachDeliveryNotes(ctx, reply.From, reply.Text)
	}
	logger.Debugw("inbound_reply_ignored", "from", reply.From)
	return nil
}

// Confirm 客户确认订单：pending 到 confirmed，随后调度配送时段询问
func (s *OrderService) Confirm(ctx context.Context, orderID uint) error {
	changed, err := s.orderRepo.UpdateStatusIf(orderID,
		constants.OrderStatusPending, constants.OrderStatusConfirmed, nil)
	if err != nil {
		logger.Errorw("order_confirm_failed", "order_id", orderID, "error", err)
		return ErrOrderUpdateFailed
	}
	if !changed {
		logger.Infow("order_confirm_skipped_wrong_state", "order_id", orderID)
		return nil
	}

	if err := s.scheduler.EnqueueOrderTask(constants.TaskOrderSendSlotPrompt,
		queue.OrderTaskPayload{OrderID: orderID}, s.cfg.Notify.SlotPromptDelay()); err != nil {
		logger.Errorw("order_slot_prompt_enqueue_failed", "order_id", orderID, "error", err)
	}
	s.publishStatus(orderID)
	logger.Infow("order_confirmed", "order_id", orderID)
	return nil
}

// Cancel 客户主动取消订单，可取消状态由配置决定
func (s *OrderService) Cancel(ctx context.Context, orderID uint) error {
	fromStatuses := []string{constants.OrderStatusPending}
	if s.cfg.Notify.AllowCancelConfirmed {
		fromStatuses = append(fromStatuses, constants.OrderStatusConfirmed)
	}
	changed, err := s.CancelFrom(ctx, orderID, fromStatuses, "customer_request")
	if err != nil {
		return err
	}
	if !changed {
		logger.Infow("order_cancel_skipped_wrong_state", "order_id", orderID)
	}
	return nil
}

// CancelFrom 在指定前置状态下取消订单：先迁移状态，再尽力通知上游与客户。
// 返回 false 表示前置状态不匹配，不视为错误。
func (s *OrderService) CancelFrom(ctx context.Context, orderID uint, fromStatuses []string, reason string) (bool, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return false, ErrOrderFetchFailed
	}
	if order == nil {
		logger.Warnw("order_cancel_missing", "order_id", orderID)
		return false, nil
	}

	updates := map[string]interface{}{"status": constants.OrderStatusCancelled}
	changed, err := s.orderRepo.UpdateIfStatusIn(orderID, fromStatuses, updates)
	if err != nil {
		logger.Errorw("order_cancel_failed", "order_id", orderID, "error", err)
		return false, ErrOrderUpdateFailed
	}
	if !changed {
		return false, nil
	}

	// 上游取消失败只记录，本地取消已生效
	if s.upstream != nil && s.upstream.Enabled() {
		if err := s.upstream.CancelOrder(ctx, order.ExternalOrderID); err != nil {
			logger.Warnw("order_upstream_cancel_failed",
				"order_id", orderID,
				"external_order_id", order.ExternalOrderID,
				"error", err)
		}
	}

	s.notifyCancelled(ctx, order)
	s.publishStatus(orderID)
	logger.Infow("order_cancelled", "order_id", orderID, "reason", reason)
	return true, nil
}

// SelectDeliverySlot 客户选择配送时段，随后调度运单生成。
// 确认前抢答时段也予以保留，发货前置条件由运单生成任务把关。
func (s *OrderService) SelectDeliverySlot(ctx context.Context, orderID uint, slot string) error {
	changed, err := s.orderRepo.UpdateIfStatusIn(orderID,
		[]string{constants.OrderStatusPending, constants.OrderStatusConfirmed},
		map[string]interface{}{"delivery_slot": slot})
	if err != nil {
		logger.Errorw("order_slot_update_failed", "order_id", orderID, "error", err)
		return ErrOrderUpdateFailed
	}
	if !changed {
		logger.Infow("order_slot_skipped_wrong_state", "order_id", orderID, "slot", slot)
		return nil
	}

	if err := s.scheduler.EnqueueOrderTask(constants.TaskOrderGenerateTracking,
		queue.OrderTaskPayload{OrderID: orderID}, s.cfg.Notify.TrackingDelay()); err != nil {
		logger.Errorw("order_tracking_enqueue_failed", "order_id", orderID, "error", err)
	}

	if order, err := s.orderRepo.GetByID(orderID); err == nil && order != nil {
		body := fmt.Sprintf("Your delivery is scheduled for %s. We will send the tracking details shortly.", slot)
		s.dispatchAndLog(ctx, order, constants.MessageKindNotification, body, func() (string, error) {
			return s.dispatcher.SendText(ctx, order.CustomerPhone, body)
		})
	}
	s.publishStatus(orderID)
	logger.Infow("order_slot_selected", "order_id", orderID, "slot", slot)
	return nil
}

// MarkDelivered 承运商送达回调：shipped 到 delivered
func (s *OrderService) MarkDelivered(ctx context.Context, orderID uint) error {
	changed, err := s.orderRepo.UpdateStatusIf(orderID,
		constants.OrderStatusShipped, constants.OrderStatusDelivered, nil)
	if err != nil {
		logger.Errorw("order_delivered_failed", "order_id", orderID, "error", err)
		return ErrOrderUpdateFailed
	}
	if !changed {
		logger.Infow("order_delivered_skipped_wrong_state", "order_id", orderID)
		return nil
	}
	s.publishStatus(orderID)
	logger.Infow("order_delivered", "order_id", orderID)
	return nil
}

// requestDeliveryNotes 客户点击补充配送说明按钮
func (s *OrderService) requestDeliveryNotes(ctx context.Context, orderID uint) error {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return ErrOrderFetchFailed
	}
	if order == nil {
		return nil
	}
	body := "Please reply with any delivery instructions for your order (gate code, floor, preferred drop-off spot)."
	s.dispatchAndLog(ctx, order, constants.MessageKindNotification, body, func() (string, error) {
		return s.dispatcher.SendText(ctx, order.CustomerPhone, body)
	})
	return nil
}

// attachDeliveryNotes 将自由文本作为配送说明附加到该手机号最近的活跃订单
func (s *OrderService) attachDeliveryNotes(ctx context.Context, phone string, text string) error {
	if phone == "" || text == "" {
		return nil
	}
	orders, _, err := s.orderRepo.List(repository.OrderListFilter{Page: 1, PageSize: 50})
	if err != nil {
		return ErrOrderFetchFailed
	}
	for i := range orders {
		order := &orders[i]
		if order.CustomerPhone != phone {
			continue
		}
		if order.Status != constants.OrderStatusPending && order.Status != constants.OrderStatusConfirmed {
			continue
		}
		changed, err := s.orderRepo.UpdateIfStatusIn(order.ID,
			[]string{constants.OrderStatusPending, constants.OrderStatusConfirmed},
			map[string]interface{}{"delivery_notes": text})
		if err != nil {
			return ErrOrderUpdateFailed
		}
		if changed {
			logger.Infow("order_delivery_notes_attached", "order_id", order.ID)
		}
		return nil
	}
	logger.Debugw("inbound_text_without_active_order", "from", phone)
	return nil
}

// notifyCancelled 发送取消通知并记录
func (s *OrderService) notifyCancelled(ctx context.Context, order *models.Order) {
	content := fmt.Sprintf("Order %s has been cancelled.", order.OrderNumber)
	s.dispatchAndLog(ctx, order, constants.MessageKindNotification, content, func() (string, error) {
		msgID, err := s.dispatcher.SendTemplate(ctx, order.CustomerPhone,
			constants.TemplateOrderCancelled, []string{order.OrderNumber})
		if err != nil {
			// 模板不可用时退回纯文本
			return s.dispatcher.SendText(ctx, order.CustomerPhone, content)
		}
		return msgID, nil
	})
}

// dispatchAndLog 执行发送并追加消息记录，发送失败记为 failed
func (s *OrderService) dispatchAndLog(ctx context.Context, order *models.Order, kind string, content string, send func() (string, error)) {
	msgID, err := send()
	outcome := constants.MessageOutcomeSent
	if err != nil {
		outcome = constants.MessageOutcomeFailed
		logger.Warnw("message_dispatch_failed",
			"order_id", order.ID, "kind", kind, "error", err)
	}
	logEntry := &models.MessageLog{
		OrderID:          order.ID,
		Kind:             kind,
		Outcome:          outcome,
		ChannelMessageID: msgID,
		Content:          content,
	}
	if err := s.logRepo.Append(logEntry); err != nil {
		logger.Errorw("message_log_append_failed", "order_id", order.ID, "kind", kind, "error", err)
	}
}

func (s *OrderService) publishStatus(orderID uint) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		return
	}
	s.hub.Publish(constants.EventTypeStatusUpdate, order)
}
