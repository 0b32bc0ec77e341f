package hooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shoplink-next/internal/config"
	"github.com/shoplink-next/internal/models"
	"github.com/shoplink-next/internal/provider"
	"github.com/shoplink-next/internal/queue"
	"github.com/shoplink-next/internal/repository"
	"github.com/shoplink-next/internal/service"
	"github.com/shoplink-next/internal/shopify"
	"github.com/shoplink-next/internal/whatsapp"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

const testWebhookSecret = "hooks-test-secret"

type noopScheduler struct{}

func (noopScheduler) EnqueueOrderTask(string, queue.OrderTaskPayload, time.Duration) error {
	return nil
}

type noopDispatcher struct{}

func (noopDispatcher) SendText(context.Context, string, string) (string, error) { return "", nil }
func (noopDispatcher) SendTemplate(context.Context, string, string, []string) (string, error) {
	return "", nil
}
func (noopDispatcher) SendButtons(context.Context, string, string, []whatsapp.Button) (string, error) {
	return "", nil
}
func (noopDispatcher) SendList(context.Context, string, string, string, []whatsapp.ListSection) (string, error) {
	return "", nil
}

type noopUpstream struct{}

func (noopUpstream) Enabled() bool                             { return false }
func (noopUpstream) CancelOrder(context.Context, string) error { return nil }

type noopHub struct{}

func (noopHub) Publish(string, any) {}

func setupHooksRouter(t *testing.T) (*gin.Engine, *repository.GormOrderRepository) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:hooks_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.MessageLog{}); err != nil {
		t.Fatalf("auto migrate failed: %v", err)
	}

	cfg := &config.Config{
		Shopify:  config.ShopifyConfig{WebhookSecret: testWebhookSecret},
		WhatsApp: config.WhatsAppConfig{VerifyToken: "verify-me"},
	}
	orderRepo := repository.NewOrderRepository(db)
	logRepo := repository.NewMessageLogRepository(db)
	orderService := service.NewOrderService(cfg, orderRepo, logRepo,
		noopScheduler{}, noopDispatcher{}, noopUpstream{}, noopHub{})

	container := &provider.Container{
		Config:       cfg,
		OrderRepo:    orderRepo,
		OrderService: orderService,
	}
	handler := New(container)

	r := gin.New()
	r.POST("/api/v1/webhooks/orders/create", handler.OrderCreate)
	r.GET("/api/v1/webhooks/whatsapp", handler.WhatsAppVerify)
	r.POST("/api/v1/webhooks/whatsapp", handler.WhatsAppInbound)
	r.POST("/api/v1/webhooks/courier", handler.CourierDelivered)
	return r, orderRepo
}

func signWebhookBody(body []byte) string {
	mac := hmac.New(sha256.New, []byte(testWebhookSecret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func postOrderWebhook(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/orders/create", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(shopify.SignatureHeader, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestOrderCreateWebhookSuccess(t *testing.T) {
	r, orderRepo := setupHooksRouter(t)
	body := []byte(`{"id":450789469,"name":"#1001","total_price":"199.00","currency":"EUR","customer":{"first_name":"Ada","phone":"+31611111111"}}`)

	w := postOrderWebhook(r, body, signWebhookBody(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Status  string `json:"status"`
		OrderID uint   `json:"order_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Status != "success" || resp.OrderID == 0 {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}

	order, err := orderRepo.GetByExternalID("450789469")
	if err != nil || order == nil {
		t.Fatalf("order not persisted: %v", err)
	}
}

func TestOrderCreateWebhookDuplicateSkipped(t *testing.T) {
	r, _ := setupHooksRouter(t)
	body := []byte(`{"id":7,"name":"#1002","total_price":"10.00","currency":"EUR"}`)
	signature := signWebhookBody(body)

	if w := postOrderWebhook(r, body, signature); w.Code != http.StatusOK {
		t.Fatalf("first delivery failed: %d", w.Code)
	}
	w := postOrderWebhook(r, body, signature)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for duplicate, got %d", w.Code)
	}

	var resp struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Status != "skipped" || resp.Reason != "duplicate" {
		t.Fatalf("unexpected duplicate response: %s", w.Body.String())
	}
}

func TestOrderCreateWebhookRejectsBadSignature(t *testing.T) {
	r, orderRepo := setupHooksRouter(t)
	body := []byte(`{"id":8,"name":"#1003"}`)

	cases := []struct {
		name      string
		signature string
	}{
		{name: "missing signature", signature: ""},
		{name: "wrong signature", signature: signWebhookBody([]byte("other body"))},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := postOrderWebhook(r, body, tc.signature)
			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
		})
	}

	order, err := orderRepo.GetByExternalID("8")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if order != nil {
		t.Fatal("order must not be created on rejected delivery")
	}
}

func TestOrderCreateWebhookMalformedPayloadIgnored(t *testing.T) {
	r, _ := setupHooksRouter(t)
	body := []byte(`{"name":"#1004","no_id":true}`)

	w := postOrderWebhook(r, body, signWebhookBody(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var resp struct {
		Status string `json:"status"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if resp.Status != "ignored" || resp.Reason != "malformed" {
		t.Fatalf("unexpected response: %s", w.Body.String())
	}
}

func TestWhatsAppVerifyHandshake(t *testing.T) {
	r, _ := setupHooksRouter(t)

	req := httptest.NewRequest(http.MethodGet,
		"/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-me&hub.challenge=12345", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK || w.Body.String() != "12345" {
		t.Fatalf("expected challenge echo, got %d %s", w.Code, w.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet,
		"/api/v1/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for wrong token, got %d", w.Code)
	}
}

func TestWhatsAppInboundAlwaysAcks(t *testing.T) {
	r, _ := setupHooksRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{name: "malformed", body: `{"entry": "broken"`},
		{name: "status receipt", body: `{"entry":[{"changes":[{"value":{}}]}]}`},
		{name: "reply for unknown order", body: `{"entry":[{"changes":[{"value":{"messages":[{"from":"3161","type":"interactive","interactive":{"type":"button_reply","button_reply":{"id":"confirm_9999"}}}]}}]}]}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/whatsapp",
				bytes.NewReader([]byte(tc.body)))
			req.Header.Set("Content-Type", "application/json")
			w := httptest.NewRecorder()
			r.ServeHTTP(w, req)
			if w.Code != http.StatusOK {
				t.Fatalf("inbound webhook must return 200, got %d", w.Code)
			}
		})
	}
}

func TestCourierDeliveredWebhook(t *testing.T) {
	r, orderRepo := setupHooksRouter(t)

	body := []byte(`{"id":9,"name":"#1005","total_price":"5.00"}`)
	if w := postOrderWebhook(r, body, signWebhookBody(body)); w.Code != http.StatusOK {
		t.Fatalf("seed order failed: %d", w.Code)
	}
	order, _ := orderRepo.GetByExternalID("9")
	if _, err := orderRepo.UpdateStatusIf(order.ID, "pending", "confirmed", nil); err != nil {
		t.Fatalf("setup confirm failed: %v", err)
	}
	if _, err := orderRepo.UpdateStatusIf(order.ID, "confirmed", "shipped", nil); err != nil {
		t.Fatalf("setup ship failed: %v", err)
	}

	payload := []byte(fmt.Sprintf(`{"order_id":%d,"status":"delivered"}`, order.ID))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/courier", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	current, _ := orderRepo.GetByID(order.ID)
	if current.Status != "delivered" {
		t.Fatalf("expected delivered, got %s", current.Status)
	}
}
