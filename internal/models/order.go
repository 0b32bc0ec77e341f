package models

import (
	"time"
)

// Order 订单表
type Order struct {
	ID                uint       `gorm:"primarykey" json:"id"`                              // 主键
	ExternalOrderID   string     `gorm:"uniqueIndex;not null" json:"external_order_id"`     // 上游订单ID（幂等键）
	OrderNumber       string     `gorm:"index;not null" json:"order_number"`                // 可读订单编号
	CustomerPhone     string     `gorm:"type:varchar(64)" json:"customer_phone"`            // 客户手机号
	CustomerName      string     `gorm:"type:varchar(255)" json:"customer_name"`            // 客户姓名
	TotalPrice        Money      `gorm:"type:decimal(20,2);not null;default:0" json:"total_price"` // 订单金额
	Currency          string     `gorm:"type:varchar(16)" json:"currency"`                  // 币种
	FinancialStatus   string     `gorm:"type:varchar(50)" json:"financial_status"`          // 上游支付状态（透传）
	FulfillmentStatus string     `gorm:"type:varchar(50)" json:"fulfillment_status"`        // 上游履约状态（透传）
	Status            string     `gorm:"index;not null" json:"status"`                      // 订单状态
	DeliverySlot      *string    `gorm:"type:varchar(255)" json:"delivery_slot"`            // 配送时段
	DeliveryNotes     *string    `gorm:"type:text" json:"delivery_instructions"`            // 配送备注
	TrackingNumber    *string    `gorm:"type:varchar(255)" json:"tracking_number"`          // 运单号
	TrackingURL       *string    `gorm:"type:varchar(255)" json:"tracking_url"`             // 运单查询地址
	CourierName       *string    `gorm:"type:varchar(255)" json:"courier_name"`             // 承运商
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`                           // 创建时间
	UpdatedAt         time.Time  `gorm:"index" json:"updated_at"`                           // 更新时间

	Logs []MessageLog `gorm:"foreignKey:OrderID" json:"logs,omitempty"` // 消息记录
}

// TableName 指定表名
func (Order) TableName() string {
	return "orders"
}
