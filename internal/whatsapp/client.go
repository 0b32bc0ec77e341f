package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shoplink-next/internal/config"
	"github.com/shoplink-next/internal/constants"
	"github.com/shoplink-next/internal/logger"
)

var (
	// ErrConfigInvalid 消息通道配置缺失
	ErrConfigInvalid = errors.New("whatsapp: client config invalid")
	// ErrDispatchFailed 消息发送失败
	ErrDispatchFailed = errors.New("whatsapp: dispatch failed")
)

// Button 交互式按钮
type Button struct {
	ID    string
	Title string
}

// ListRow 交互式列表行
type ListRow struct {
	ID          string
	Title       string
	Description string
}

// ListSection 交互式列表分组
type ListSection struct {
	Title string
	Rows  []ListRow
}

// Client Graph API 消息客户端
type Client struct {
	baseURL       string
	apiToken      string
	phoneNumberID string
	httpClient    *http.Client
}

// NewClient 创建消息客户端
func NewClient(cfg *config.WhatsAppConfig) *Client {
	timeout := 10 * time.Second
	if cfg != nil && cfg.TimeoutMS > 0 {
		timeout = time.Duration(cfg.TimeoutMS) * time.Millisecond
	}
	c := &Client{
		baseURL:    "https://graph.facebook.com/v17.0",
		httpClient: &http.Client{Timeout: timeout},
	}
	if cfg != nil {
		if strings.TrimSpace(cfg.BaseURL) != "" {
			c.baseURL = strings.TrimSuffix(strings.TrimSpace(cfg.BaseURL), "/")
		}
		c.apiToken = cfg.APIToken
		c.phoneNumberID = cfg.PhoneNumberID
	}
	return c
}

// Enabled 判断客户端是否具备出站条件
func (c *Client) Enabled() bool {
	return c != nil && c.apiToken != "" && c.phoneNumberID != ""
}

// SendText 发送纯文本消息，返回通道消息 ID
func (c *Client) SendText(ctx context.Context, to string, body string) (string, error) {
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]any{"body": body},
	}
	return c.post(ctx, payload)
}

// SendTemplate 发送模板消息，params 为正文占位参数
func (c *Client) SendTemplate(ctx context.Context, to string, templateName string, params []string) (string, error) {
	components := []map[string]any{}
	if len(params) > 0 {
		parameters := make([]map[string]any, 0, len(params))
		for _, p := range params {
			parameters = append(parameters, map[string]any{"type": "text", "text": p})
		}
		components = append(components, map[string]any{
			"type":       "body",
			"parameters": parameters,
		})
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "template",
		"template": map[string]any{
			"name":       templateName,
			"language":   map[string]any{"code": constants.TemplateLanguageCode},
			"components": components,
		},
	}
	return c.post(ctx, payload)
}

// SendButtons 发送按钮消息
func (c *Client) SendButtons(ctx context.Context, to string, body string, buttons []Button) (string, error) {
	actionButtons := make([]map[string]any, 0, len(buttons))
	for _, b := range buttons {
		actionButtons = append(actionButtons, map[string]any{
			"type": "reply",
			"reply": map[string]any{
				"id":    b.ID,
				"title": b.Title,
			},
		})
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type":   "button",
			"body":   map[string]any{"text": body},
			"action": map[string]any{"buttons": actionButtons},
		},
	}
	return c.post(ctx, payload)
}

// SendList 发送列表选择消息
func (c *Client) SendList(ctx context.Context, to string, body string, buttonText string, sections []ListSection) (string, error) {
	apiSections := make([]map[string]any, 0, len(sections))
	for _, s := range sections {
		rows := make([]map[string]any, 0, len(s.Rows))
		for _, r := range s.Rows {
			row := map[string]any{"id": r.ID, "title": r.Title}
			if r.Description != "" {
				row["description"] = r.Description
			}
			rows = append(rows, row)
		}
		apiSections = append(apiSections, map[string]any{
			"title": s.Title,
			"rows":  rows,
		})
	}
	payload := map[string]any{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "interactive",
		"interactive": map[string]any{
			"type": "list",
			"body": map[string]any{"text": body},
			"action": map[string]any{
				"button":   buttonText,
				"sections": apiSections,
			},
		},
	}
	return c.post(ctx, payload)
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *Client) post(ctx context.Context, payload map[string]any) (string, error) {
	if !c.Enabled() {
		return "", ErrConfigInvalid
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Warnw("whatsapp_dispatch_upstream_error",
			"status", resp.StatusCode,
			"body", string(body))
		return "", fmt.Errorf("%w: status %d", ErrDispatchFailed, resp.StatusCode)
	}

	var parsed sendResponse
	if err := json.Unmarshal(body, &parsed); err != nil || len(parsed.Messages) == 0 {
		// 上游返回成功但没有消息 ID 时容忍继续
		return "", nil
	}
	return parsed.Messages[0].ID, nil
}
