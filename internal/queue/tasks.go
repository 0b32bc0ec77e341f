package queue

import (
	"encoding/json"

	"github.com/shoplink-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskOrderSendConfirmation 发送确认请求任务
	TaskOrderSendConfirmation = constants.TaskOrderSendConfirmation
	// TaskOrderCheckResponse 催单提醒任务
	TaskOrderCheckResponse = constants.TaskOrderCheckResponse
	// TaskOrderAutoCancel 超时自动取消任务
	TaskOrderAutoCancel = constants.TaskOrderAutoCancel
	// TaskOrderSendSlotPrompt 配送时段询问任务
	TaskOrderSendSlotPrompt = constants.TaskOrderSendSlotPrompt
	// TaskOrderGenerateTracking 运单生成任务
	TaskOrderGenerateTracking = constants.TaskOrderGenerateTracking
)

// OrderTaskPayload 订单延迟任务载荷
type OrderTaskPayload struct {
	OrderID uint `json:"order_id"`
}

// NewOrderTask 创建订单延迟任务
func NewOrderTask(taskType string, payload OrderTaskPayload) (*asynq.Task, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, body), nil
}
