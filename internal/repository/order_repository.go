package repository

import (
	"errors"
	"time"

	"github.com/shoplink-next/internal/models"

	"gorm.io/gorm"
)

// OrderListFilter 查询订单列表的过滤条件
type OrderListFilter struct {
	Page        int
	PageSize    int
	Status      string
	OrderNumber string
}

// OrderRepository 订单数据访问接口
type OrderRepository interface {
	Create(order *models.Order) error
	GetByID(id uint) (*models.Order, error)
	GetByExternalID(externalID string) (*models.Order, error)
	List(filter OrderListFilter) ([]models.Order, int64, error)
	UpdateStatusIf(id uint, fromStatus, toStatus string, updates map[string]interface{}) (bool, error)
	UpdateIfStatusIn(id uint, fromStatuses []string, updates map[string]interface{}) (bool, error)
	WithTx(tx *gorm.DB) *GormOrderRepository
}

// GormOrderRepository GORM 实现
type GormOrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository 创建订单仓库
func NewOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// WithTx 绑定事务
func (r *GormOrderRepository) WithTx(tx *gorm.DB) *GormOrderRepository {
	if tx == nil {
		return r
	}
	return &GormOrderRepository{db: tx}
}

// Create 创建订单，外部订单ID 唯一索引冲突时返回 gorm.ErrDuplicatedKey
func (r *GormOrderRepository) Create(order *models.Order) error {
	return r.db.Create(order).Error
}

// GetByID 根据 ID 获取订单
func (r *GormOrderRepository) GetByID(id uint) (*models.Order, error) {
	var order models.Order
	if err := r.db.First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// GetByExternalID 根据上游订单 ID 获取订单
func (r *GormOrderRepository) GetByExternalID(externalID string) (*models.Order, error) {
	var order models.Order
	if err := r.db.Where("external_order_id = ?", externalID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &order, nil
}

// List 获取订单列表
func (r *GormOrderRepository) List(filter OrderListFilter) ([]models.Order, int64, error) {
	var orders []models.Order
	query := r.db.Model(&models.Order{})

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.OrderNumber != "" {
		query = query.Where("order_number LIKE ?", "%"+filter.OrderNumber+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	query = applyPagination(query.Order("created_at DESC"), filter.Page, filter.PageSize)
	if err := query.Find(&orders).Error; err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatusIf 条件状态更新：仅当当前状态等于 fromStatus 时生效。
// 返回 false 表示前置状态不匹配，调用方按良性跳过处理。
func (r *GormOrderRepository) UpdateStatusIf(id uint, fromStatus, toStatus string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = toStatus
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// UpdateIfStatusIn 条件字段更新：仅当当前状态属于 fromStatuses 时生效。
func (r *GormOrderRepository) UpdateIfStatusIn(id uint, fromStatuses []string, updates map[string]interface{}) (bool, error) {
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["updated_at"] = time.Now()
	result := r.db.Model(&models.Order{}).
		Where("id = ? AND status IN ?", id, fromStatuses).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
