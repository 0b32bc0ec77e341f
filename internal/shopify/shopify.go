package shopify

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shoplink-next/internal/config"
	"github.com/shoplink-next/internal/logger"
)

var (
	// ErrSignatureInvalid 签名校验失败
	ErrSignatureInvalid = errors.New("shopify: webhook signature invalid")
	// ErrConfigInvalid 上游配置缺失
	ErrConfigInvalid = errors.New("shopify: client config invalid")
	// ErrCancelFailed 上游取消请求失败
	ErrCancelFailed = errors.New("shopify: order cancel failed")
)

// SignatureHeader webhook 签名请求头
const SignatureHeader = "X-Signature"

// VerifyWebhook 校验 webhook 签名，signature 为请求头中的 base64 摘要
func VerifyWebhook(secret string, body []byte, signature string) error {
	if strings.TrimSpace(signature) == "" {
		return ErrSignatureInvalid
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrSignatureInvalid
	}
	return nil
}

// Client 上游电商平台 Admin API 客户端
type Client struct {
	shopURL     string
	accessToken string
	apiVersion  string
	httpClient  *http.Client
}

// NewClient 创建上游平台客户端
func NewClient(cfg *config.ShopifyConfig) *Client {
	timeout := 10 * time.Second
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	c := &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg != nil {
		c.shopURL = strings.TrimSuffix(strings.TrimSpace(cfg.ShopURL), "/")
		c.accessToken = cfg.AccessToken
		c.apiVersion = cfg.APIVersion
	}
	if c.apiVersion == "" {
		c.apiVersion = "2023-07"
	}
	return c
}

// Enabled 判断客户端是否具备出站条件
func (c *Client) Enabled() bool {
	return c != nil && c.shopURL != "" && c.accessToken != ""
}

// CancelOrder 请求上游取消订单，externalOrderID 为上游平台订单号
func (c *Client) CancelOrder(ctx context.Context, externalOrderID string) error {
	if !c.Enabled() {
		return ErrConfigInvalid
	}
	url := fmt.Sprintf("https://%s/admin/api/%s/orders/%s/cancel.json",
		c.shopURL, c.apiVersion, externalOrderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader("{}"))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCancelFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		logger.Warnw("shopify_cancel_upstream_error",
			"external_order_id", externalOrderID,
			"status", resp.StatusCode,
			"body", string(body))
		return fmt.Errorf("%w: status %d", ErrCancelFailed, resp.StatusCode)
	}
	return nil
}

// OrderEvent 上游下单事件载荷
type OrderEvent struct {
	ID                int64       `json:"id"`
	Name              string      `json:"name"`
	TotalPrice        string      `json:"total_price"`
	Currency          string      `json:"currency"`
	FinancialStatus   string      `json:"financial_status"`
	FulfillmentStatus string      `json:"fulfillment_status"`
	Phone             string      `json:"phone"`
	Customer          *Customer   `json:"customer"`
	ShippingAddress   *AddressRef `json:"shipping_address"`
}

// Customer 上游客户信息
type Customer struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// AddressRef 上游地址信息
type AddressRef struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

// ParseOrderEvent 解析下单事件
func ParseOrderEvent(body []byte) (*OrderEvent, error) {
	var event OrderEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, err
	}
	if event.ID == 0 {
		return nil, errors.New("shopify: order event missing id")
	}
	return &event, nil
}

// ExternalOrderID 上游订单号的字符串形式
func (e *OrderEvent) ExternalOrderID() string {
	return fmt.Sprintf("%d", e.ID)
}

// CustomerPhone 提取客户手机号，按客户、地址、订单顶层的顺序取第一个非空值
func (e *OrderEvent) CustomerPhone() string {
	if e.Customer != nil && strings.TrimSpace(e.Customer.Phone) != "" {
		return strings.TrimSpace(e.Customer.Phone)
	}
	if e.ShippingAddress != nil && strings.TrimSpace(e.ShippingAddress.Phone) != "" {
		return strings.TrimSpace(e.ShippingAddress.Phone)
	}
	return strings.TrimSpace(e.Phone)
}

// CustomerName 提取客户姓名
func (e *OrderEvent) CustomerName() string {
	if e.Customer != nil {
		name := strings.TrimSpace(e.Customer.FirstName + " " + e.Customer.LastName)
		if name != "" {
			return name
		}
	}
	if e.ShippingAddress != nil {
		return strings.TrimSpace(e.ShippingAddress.Name)
	}
	return ""
}
