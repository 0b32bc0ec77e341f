package repository

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shoplink-next/internal/constants"
	"github.com/shoplink-next/internal/models"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupOrderRepositoryTest(t *testing.T) (*GormOrderRepository, *gorm.DB) {
	t.Helper()
	dsn := fmt.Sprintf("file:order_repo_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.MessageLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}
	return NewOrderRepository(db), db
}

func newTestOrder(externalID string) *models.Order {
	return &models.Order{
		ExternalOrderID: externalID,
		OrderNumber:     "#" + externalID,
		CustomerPhone:   "+31611111111",
		CustomerName:    "Ada Lovelace",
		TotalPrice:      models.NewMoneyFromString("199.00"),
		Currency:        "EUR",
		Status:          constants.OrderStatusPending,
	}
}

func TestOrderRepositoryCreateDuplicateExternalID(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)

	if err := repo.Create(newTestOrder("450789469")); err != nil {
		t.Fatalf("first create failed: %v", err)
	}
	err := repo.Create(newTestOrder("450789469"))
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected gorm.ErrDuplicatedKey, got %v", err)
	}
}

func TestOrderRepositoryGetByExternalID(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)

	if err := repo.Create(newTestOrder("1001")); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	order, err := repo.GetByExternalID("1001")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if order == nil || order.ExternalOrderID != "1001" {
		t.Fatalf("unexpected order: %+v", order)
	}

	missing, err := repo.GetByExternalID("does-not-exist")
	if err != nil {
		t.Fatalf("get missing failed: %v", err)
	}
	if missing != nil {
		t.Fatalf("expected nil for missing order, got %+v", missing)
	}
}

func TestOrderRepositoryUpdateStatusIf(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)

	order := newTestOrder("2001")
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	changed, err := repo.UpdateStatusIf(order.ID,
		constants.OrderStatusPending, constants.OrderStatusConfirmed, nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !changed {
		t.Fatal("expected transition from pending to apply")
	}

	// 前置状态已不满足，重复迁移应当是无操作
	changed, err = repo.UpdateStatusIf(order.ID,
		constants.OrderStatusPending, constants.OrderStatusCancelled, nil)
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if changed {
		t.Fatal("expected stale transition to be skipped")
	}

	current, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if current.Status != constants.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", current.Status)
	}
}

func TestOrderRepositoryUpdateStatusIfWithFields(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)

	order := newTestOrder("2002")
	order.Status = constants.OrderStatusConfirmed
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	changed, err := repo.UpdateStatusIf(order.ID,
		constants.OrderStatusConfirmed, constants.OrderStatusShipped,
		map[string]interface{}{
			"tracking_number": "AB12CD34EF",
			"tracking_url":    "https://track.example.com/AB12CD34EF",
			"courier_name":    "DHL",
		})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !changed {
		t.Fatal("expected ship transition to apply")
	}

	current, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if current.Status != constants.OrderStatusShipped {
		t.Fatalf("expected shipped, got %s", current.Status)
	}
	if current.TrackingNumber == nil || *current.TrackingNumber != "AB12CD34EF" {
		t.Fatalf("tracking number not persisted: %+v", current.TrackingNumber)
	}
}

func TestOrderRepositoryUpdateIfStatusIn(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)

	order := newTestOrder("2003")
	order.Status = constants.OrderStatusConfirmed
	if err := repo.Create(order); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	changed, err := repo.UpdateIfStatusIn(order.ID,
		[]string{constants.OrderStatusPending, constants.OrderStatusConfirmed},
		map[string]interface{}{"delivery_slot": "morning"})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !changed {
		t.Fatal("expected update to apply for confirmed order")
	}

	changed, err = repo.UpdateIfStatusIn(order.ID,
		[]string{constants.OrderStatusShipped},
		map[string]interface{}{"delivery_slot": "evening"})
	if err != nil {
		t.Fatalf("second update failed: %v", err)
	}
	if changed {
		t.Fatal("expected update to skip when status not in set")
	}

	current, err := repo.GetByID(order.ID)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if current.DeliverySlot == nil || *current.DeliverySlot != "morning" {
		t.Fatalf("unexpected delivery slot: %+v", current.DeliverySlot)
	}
}

func TestOrderRepositoryListFilters(t *testing.T) {
	repo, _ := setupOrderRepositoryTest(t)

	for i := 1; i <= 3; i++ {
		order := newTestOrder(fmt.Sprintf("300%d", i))
		if i == 3 {
			order.Status = constants.OrderStatusCancelled
		}
		if err := repo.Create(order); err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
	}

	orders, total, err := repo.List(OrderListFilter{Page: 1, PageSize: 10, Status: constants.OrderStatusPending})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if total != 2 || len(orders) != 2 {
		t.Fatalf("expected 2 pending orders, got total=%d len=%d", total, len(orders))
	}

	orders, total, err = repo.List(OrderListFilter{Page: 1, PageSize: 10, OrderNumber: "3003"})
	if err != nil {
		t.Fatalf("list by number failed: %v", err)
	}
	if total != 1 || len(orders) != 1 || orders[0].ExternalOrderID != "3003" {
		t.Fatalf("unexpected search result: total=%d orders=%+v", total, orders)
	}
}

func TestMessageLogRepositoryAppendAndList(t *testing.T) {
	orderRepo, db := setupOrderRepositoryTest(t)
	logRepo := NewMessageLogRepository(db)

	order := newTestOrder("4001")
	if err := orderRepo.Create(order); err != nil {
		t.Fatalf("create order failed: %v", err)
	}

	first := &models.MessageLog{
		OrderID: order.ID,
		Kind:    constants.MessageKindConfirmation,
		Outcome: constants.MessageOutcomeSent,
		Content: "please confirm",
		SentAt:  time.Now().Add(-time.Minute),
	}
	second := &models.MessageLog{
		OrderID: order.ID,
		Kind:    constants.MessageKindReminder,
		Outcome: constants.MessageOutcomeFailed,
		Content: "reminder",
	}
	if err := logRepo.Append(first); err != nil {
		t.Fatalf("append first failed: %v", err)
	}
	if err := logRepo.Append(second); err != nil {
		t.Fatalf("append second failed: %v", err)
	}
	if second.SentAt.IsZero() {
		t.Fatal("expected SentAt to be defaulted")
	}

	logs, err := logRepo.ListByOrder(order.ID)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Kind != constants.MessageKindConfirmation || logs[1].Kind != constants.MessageKindReminder {
		t.Fatalf("unexpected log order: %+v", logs)
	}
}
