package models

import (
	"time"
)

// MessageLog 消息发送记录表（只追加，引擎不更新不删除）
type MessageLog struct {
	ID               uint      `gorm:"primarykey" json:"id"`                      // 主键
	OrderID          uint      `gorm:"index;not null" json:"order_id"`            // 订单ID
	Kind             string    `gorm:"type:varchar(50);not null" json:"kind"`     // 消息类型
	Outcome          string    `gorm:"type:varchar(50);not null" json:"outcome"`  // 发送结果（sent/failed）
	ChannelMessageID string    `gorm:"type:varchar(255)" json:"channel_message_id"` // 通道分配的消息ID
	Content          string    `gorm:"type:text" json:"content"`                  // 渲染后的消息内容
	SentAt           time.Time `gorm:"index" json:"sent_at"`                      // 记录时间
}

// TableName 指定表名
func (MessageLog) TableName() string {
	return "message_logs"
}
