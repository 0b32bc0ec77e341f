package service

import (
	"context"
	"fmt"

	"github.com/shoplink-next/internal/config"
	"github.com/shoplink-next/internal/constants"
	"github.com/shoplink-next/internal/courier"
	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/models"
	"github.com/shoplink-next/internal/queue"
	"github.com/shoplink-next/internal/repository"
	"github.com/shoplink-next/internal/whatsapp"
)

// deliverySlots 配送时段选项，列表行 ID 形如 slot_<value>_<order_id>
var deliverySlots = []struct {
	Value string
	Title string
}{
	{Value: "morning", Title: "Morning (9am - 12pm)"},
	{Value: "afternoon", Title: "Afternoon (12pm - 5pm)"},
	{Value: "evening", Title: "Evening (5pm - 9pm)"},
}

// NotificationService 延迟通知编排服务，由队列 worker 驱动
type NotificationService struct {
	cfg        *config.Config
	orderRepo  repository.OrderRepository
	logRepo    repository.MessageLogRepository
	scheduler  TaskScheduler
	dispatcher Dispatcher
	tracking   courier.Generator
	hub        Broadcaster
	orders     *OrderService
}

// NewNotificationService 创建通知编排服务
func NewNotificationService(
	cfg *config.Config,
	orderRepo repository.OrderRepository,
	logRepo repository.MessageLogRepository,
	scheduler TaskScheduler,
	dispatcher Dispatcher,
	tracking courier.Generator,
	hub Broadcaster,
	orders *OrderService,
) *NotificationService {
	return &NotificationService{
		cfg:        cfg,
		orderRepo:  orderRepo,
		logRepo:    logRepo,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		tracking:   tracking,
		hub:        hub,
		orders:     orders,
	}
}

// SendConfirmation 发送订单确认请求（按钮消息），随后调度无响应检查。
// 不改变订单状态，等待客户回复驱动。
func (s *NotificationService) SendConfirmation(ctx context.Context, orderID uint) error {
	order, err := s.fetchInStatus(orderID, constants.OrderStatusPending, "send_confirmation")
	if err != nil || order == nil {
		return err
	}

	body := fmt.Sprintf("Hi %s, please confirm your order %s (%s %s).",
		displayName(order), order.OrderNumber, order.TotalPrice.String(), order.Currency)
	buttons := []whatsapp.Button{
		{ID: fmt.Sprintf("%s_%d", constants.ReplyActionConfirm, order.ID), Title: "Confirm"},
		{ID: fmt.Sprintf("%s_%d", constants.ReplyActionCancel, order.ID), Title: "Cancel"},
	}
	s.dispatchAndLog(ctx, order, constants.MessageKindConfirmation, body, func() (string, error) {
		return s.dispatcher.SendButtons(ctx, order.CustomerPhone, body, buttons)
	})

	// 发送结果不影响响应检查的调度，截止时间以入队时刻为准
	if err := s.scheduler.EnqueueOrderTask(constants.TaskOrderCheckResponse,
		queue.OrderTaskPayload{OrderID: order.ID}, s.cfg.Notify.FollowupDelay()); err != nil {
		logger.Errorw("check_response_enqueue_failed", "order_id", order.ID, "error", err)
		return err
	}
	return nil
}

// CheckResponse 无响应检查：仍处于 pending 时发送催单提醒并调度自动取消
func (s *NotificationService) CheckResponse(ctx context.Context, orderID uint) error {
	order, err := s.fetchInStatus(orderID, constants.OrderStatusPending, "check_response")
	if err != nil || order == nil {
		return err
	}

	body := fmt.Sprintf("Reminder: your order %s is still awaiting confirmation. Please confirm or it will be cancelled automatically.",
		order.OrderNumber)
	buttons := []whatsapp.Button{
		{ID: fmt.Sprintf("%s_%d", constants.ReplyActionConfirm, order.ID), Title: "Confirm"},
		{ID: fmt.Sprintf("%s_%d", constants.ReplyActionCancel, order.ID), Title: "Cancel"},
	}
	s.dispatchAndLog(ctx, order, constants.MessageKindReminder, body, func() (string, error) {
		return s.dispatcher.SendButtons(ctx, order.CustomerPhone, body, buttons)
	})

	if err := s.scheduler.EnqueueOrderTask(constants.TaskOrderAutoCancel,
		queue.OrderTaskPayload{OrderID: order.ID}, s.cfg.Notify.CancelDelay()); err != nil {
		logger.Errorw("auto_cancel_enqueue_failed", "order_id", order.ID, "error", err)
		return err
	}
	return nil
}

// AutoCancel 超时自动取消：仅对仍处于 pending 的订单生效
func (s *NotificationService) AutoCancel(ctx context.Context, orderID uint) error {
	changed, err := s.orders.CancelFrom(ctx, orderID,
		[]string{constants.OrderStatusPending}, "timeout")
	if err != nil {
		return err
	}
	if !changed {
		logger.Infow("auto_cancel_skipped_wrong_state", "order_id", orderID)
	}
	return nil
}

// SendSlotPrompt 发送配送时段选择列表
func (s *NotificationService) SendSlotPrompt(ctx context.Context, orderID uint) error {
	order, err := s.fetchInStatus(orderID, constants.OrderStatusConfirmed, "send_slot_prompt")
	if err != nil || order == nil {
		return err
	}
	if order.DeliverySlot != nil && *order.DeliverySlot != "" {
		logger.Infow("slot_prompt_skipped_already_selected", "order_id", order.ID)
		return nil
	}

	body := fmt.Sprintf("Thanks for confirming order %s. When would you like it delivered?", order.OrderNumber)
	rows := make([]whatsapp.ListRow, 0, len(deliverySlots))
	for _, slot := range deliverySlots {
		rows = append(rows, whatsapp.ListRow{
			ID:    fmt.Sprintf("%s_%s_%d", constants.ListReplyKindSlot, slot.Value, order.ID),
			Title: slot.Title,
		})
	}
	sections := []whatsapp.ListSection{{Title: "Delivery slots", Rows: rows}}
	s.dispatchAndLog(ctx, order, constants.MessageKindSlotPrompt, body, func() (string, error) {
		return s.dispatcher.SendList(ctx, order.CustomerPhone, body, "Choose a slot", sections)
	})
	return nil
}

// GenerateTracking 生成运单并发货：confirmed 到 shipped，运单字段只写一次
func (s *NotificationService) GenerateTracking(ctx context.Context, orderID uint) error {
	order, err := s.fetchInStatus(orderID, constants.OrderStatusConfirmed, "generate_tracking")
	if err != nil || order == nil {
		return err
	}

	info, err := s.tracking.Generate(order.ID)
	if err != nil {
		logger.Errorw("tracking_generate_failed", "order_id", order.ID, "error", err)
		return err
	}

	changed, err := s.orderRepo.UpdateStatusIf(order.ID,
		constants.OrderStatusConfirmed, constants.OrderStatusShipped,
		map[string]interface{}{
			"tracking_number": info.Number,
			"tracking_url":    info.URL,
			"courier_name":    info.Courier,
		})
	if err != nil {
		logger.Errorw("order_ship_failed", "order_id", order.ID, "error", err)
		return ErrOrderUpdateFailed
	}
	if !changed {
		logger.Infow("generate_tracking_skipped_wrong_state", "order_id", order.ID)
		return nil
	}

	content := fmt.Sprintf("Order %s has shipped with %s. Track it here: %s",
		order.OrderNumber, info.Courier, info.URL)
	s.dispatchAndLog(ctx, order, constants.MessageKindTracking, content, func() (string, error) {
		msgID, err := s.dispatcher.SendTemplate(ctx, order.CustomerPhone,
			constants.TemplateOrderTracking, []string{order.OrderNumber, info.Number, info.URL})
		if err != nil {
			return s.dispatcher.SendText(ctx, order.CustomerPhone, content)
		}
		return msgID, nil
	})

	s.publishStatus(order.ID)
	logger.Infow("order_shipped",
		"order_id", order.ID,
		"tracking_number", info.Number,
		"courier", info.Courier)
	return nil
}

// fetchInStatus 获取处于指定状态的订单，状态不匹配或订单不存在时返回 nil 且不报错
func (s *NotificationService) fetchInStatus(orderID uint, status string, task string) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil {
		return nil, ErrOrderFetchFailed
	}
	if order == nil {
		logger.Warnw("task_order_missing", "task", task, "order_id", orderID)
		return nil, nil
	}
	if order.Status != status {
		logger.Infow("task_skipped_wrong_state",
			"task", task, "order_id", orderID, "status", order.Status)
		return nil, nil
	}
	return order, nil
}

// dispatchAndLog 执行发送并追加消息记录，发送失败记为 failed 且不中断编排
func (s *NotificationService) dispatchAndLog(ctx context.Context, order *models.Order, kind string, content string, send func() (string, error)) {
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

func (s *NotificationService) publishStatus(orderID uint) {
	order, err := s.orderRepo.GetByID(orderID)
	if err != nil || order == nil {
		return
	}
	s.hub.Publish(constants.EventTypeStatusUpdate, order)
}

func displayName(order *models.Order) string {
	if order.CustomerName != "" {
		return order.CustomerName
	}
	return "there"
}
