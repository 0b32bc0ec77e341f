package service

import "errors"

var (
	// ErrOrderNotFound 订单不存在
	ErrOrderNotFound = errors.New("order not found")
	// ErrOrderFetchFailed 订单查询失败
	ErrOrderFetchFailed = errors.New("failed to fetch order")
	// ErrOrderCreateFailed 订单创建失败
	ErrOrderCreateFailed = errors.New("failed to create order")
	// ErrOrderUpdateFailed 订单更新失败
	ErrOrderUpdateFailed = errors.New("failed to update order")
	// ErrOrderCancelNotAllowed 当前状态不允许取消
	ErrOrderCancelNotAllowed = errors.New("order cancel not allowed in current status")
	// ErrMessageLogFailed 消息记录写入失败
	ErrMessageLogFailed = errors.New("failed to append message log")
)
