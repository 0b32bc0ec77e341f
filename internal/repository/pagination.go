package repository

import "gorm.io/gorm"

// applyPagination 对订单/记录查询应用分页。
// pageSize<=0 表示调用方自行限制结果集，此时不加 LIMIT。
func applyPagination(query *gorm.DB, page, pageSize int) *gorm.DB {
	if query == nil || pageSize <= 0 {
		return query
	}
	if page < 1 {
		page = 1
	}
	return query.Limit(pageSize).Offset((page - 1) * pageSize)
}
