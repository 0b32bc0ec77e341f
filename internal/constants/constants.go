package constants

// 订单状态常量
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
	OrderStatusShipped   = "shipped"
	OrderStatusDelivered = "delivered"
)

// 消息记录类型常量
const (
	MessageKindConfirmation = "confirmation"
	MessageKindReminder     = "reminder"
	MessageKindNotification = "notification"
	MessageKindSlotPrompt   = "slot_prompt"
	MessageKindTracking     = "tracking"
)

// 消息记录结果常量
const (
	MessageOutcomeSent   = "sent"
	MessageOutcomeFailed = "failed"
)

// 回复动作常量（按钮回复 id 前缀）
const (
	ReplyActionConfirm = "confirm"
	ReplyActionCancel  = "cancel"
	ReplyActionAddress = "address"
)

// 列表回复类型常量
const (
	ListReplyKindSlot = "slot"
)

// 实时推送事件类型常量
const (
	EventTypeNewOrder     = "new_order"
	EventTypeStatusUpdate = "status_update"
)

// 队列常量
const (
	QueueDefault              = "default"
	TaskOrderSendConfirmation = "order:send_confirmation"
	TaskOrderCheckResponse    = "order:check_response"
	TaskOrderAutoCancel       = "order:auto_cancel"
	TaskOrderSendSlotPrompt   = "order:send_slot_prompt"
	TaskOrderGenerateTracking = "order:generate_tracking"
)

// 缓存默认配置常量
const (
	RedisPrefixDefault = "sl"
)

// WhatsApp 模板常量
const (
	TemplateOrderCancelled = "order_cancelled_notification"
	TemplateOrderTracking  = "order_tracking_notification"
	TemplateLanguageCode   = "en"
)

// 默认承运商常量
const (
	CourierDefaultName = "DHL"
)
