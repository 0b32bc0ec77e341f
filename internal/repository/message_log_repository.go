package repository

import (
	"time"

	"github.com/shoplink-next/internal/models"

	"gorm.io/gorm"
)

// MessageLogRepository 消息记录数据访问接口
type MessageLogRepository interface {
	Append(log *models.MessageLog) error
	ListByOrder(orderID uint) ([]models.MessageLog, error)
}

// GormMessageLogRepository GORM 实现
type GormMessageLogRepository struct {
	db *gorm.DB
}

// NewMessageLogRepository 创建消息记录仓库
func NewMessageLogRepository(db *gorm.DB) *GormMessageLogRepository {
	return &GormMessageLogRepository{db: db}
}

// Append 追加一条消息记录
func (r *GormMessageLogRepository) Append(log *models.MessageLog) error {
	if log.SentAt.IsZero() {
		log.SentAt = time.Now()
	}
	return r.db.Create(log).Error
}

// ListByOrder 按订单列出消息记录
func (r *GormMessageLogRepository) ListByOrder(orderID uint) ([]models.MessageLog, error) {
	var logs []models.MessageLog
	if err := r.db.Where("order_id = ?", orderID).Order("sent_at ASC, id ASC").Find(&logs).Error; err != nil {
		return nil, err
	}
	return logs, nil
}
