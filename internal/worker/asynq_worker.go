package worker

import (
	"context"
	"encoding/json"

	"github.com/shoplink-next/internal/constants"
	"github.com/shoplink-next/internal/logger"
	"github.com/shoplink-next/internal/provider"
	"github.com/shoplink-next/internal/queue"

	"github.com/hibiken/asynq"
)

// Consumer 异步任务消费者
type Consumer struct {
	*provider.Container
}

// NewConsumer 创建消费者
func NewConsumer(c *provider.Container) *Consumer {
	return &Consumer{
		Container: c,
	}
}

// Register 注册消费者
func (c *Consumer) Register(mux *asynq.ServeMux) {
	if c == nil || mux == nil {
		logger.Debugw("worker_register_skip_nil", "consumer_nil", c == nil, "mux_nil", mux == nil)
		return
	}
	mux.HandleFunc(constants.TaskOrderSendConfirmation, c.handleSendConfirmation)
	mux.HandleFunc(constants.TaskOrderCheckResponse, c.handleCheckResponse)
	mux.HandleFunc(constants.TaskOrderAutoCancel, c.handleAutoCancel)
	mux.HandleFunc(constants.TaskOrderSendSlotPrompt, c.handleSendSlotPrompt)
	mux.HandleFunc(constants.TaskOrderGenerateTracking, c.handleGenerateTracking)
}

func (c *Consumer) handleSendConfirmation(ctx context.Context, task *asynq.Task) error {
	orderID, ok := c.parsePayload(task, "send_confirmation")
	if !ok {
		return nil
	}
	if err := c.NotificationService.SendConfirmation(ctx, orderID); err != nil {
		logger.Warnw("worker_send_confirmation_failed", "order_id", orderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleCheckResponse(ctx context.Context, task *asynq.Task) error {
	orderID, ok := c.parsePayload(task, "check_response")
	if !ok {
		return nil
	}
	if err := c.NotificationService.CheckResponse(ctx, orderID); err != nil {
		logger.Warnw("worker_check_response_failed", "order_id", orderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleAutoCancel(ctx context.Context, task *asynq.Task) error {
	orderID, ok := c.parsePayload(task, "auto_cancel")
	if !ok {
		return nil
	}
	if err := c.NotificationService.AutoCancel(ctx, orderID); err != nil {
		logger.Warnw("worker_auto_cancel_failed", "order_id", orderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleSendSlotPrompt(ctx context.Context, task *asynq.Task) error {
	orderID, ok := c.parsePayload(task, "send_slot_prompt")
	if !ok {
		return nil
	}
	if err := c.NotificationService.SendSlotPrompt(ctx, orderID); err != nil {
		logger.Warnw("worker_send_slot_prompt_failed", "order_id", orderID, "error", err)
		return err
	}
	return nil
}

func (c *Consumer) handleGenerateTracking(ctx context.Context, task *asynq.Task) error {
	orderID, ok := c.parsePayload(task, "generate_tracking")
	if !ok {
		return nil
	}
	if err := c.NotificationService.GenerateTracking(ctx, orderID); err != nil {
		logger.Warnw("worker_generate_tracking_failed", "order_id", orderID, "error", err)
		return err
	}
	return nil
}

// parsePayload 解析任务载荷，非法载荷直接丢弃不重试
func (c *Consumer) parsePayload(task *asynq.Task, name string) (uint, bool) {
	if c == nil || c.NotificationService == nil || task == nil {
		logger.Debugw("worker_task_skip_nil", "task", name)
		return 0, false
	}
	var payload queue.OrderTaskPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		logger.Warnw("worker_task_unmarshal_failed", "task", name, "error", err)
		return 0, false
	}
	if payload.OrderID == 0 {
		logger.Debugw("worker_task_skip_invalid_payload", "task", name, "order_id", payload.OrderID)
		return 0, false
	}
	return payload.OrderID, true
}
