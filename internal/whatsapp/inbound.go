package whatsapp

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/shoplink-next/internal/constants"
)

// ErrMalformedEvent 入站事件格式不合法
var ErrMalformedEvent = errors.New("whatsapp: malformed inbound event")

// InboundReply 解析后的客户回复
type InboundReply struct {
	From     string // 发送方手机号
	Action   string // 按钮动作（confirm/cancel/address）
	ListKind string // 列表回复类型（slot）
	Value    string // 列表回复选中值
	OrderID  uint   // 回复携带的订单 ID
	Text     string // 纯文本内容
}

// IsButton 判断是否为按钮回复
func (r *InboundReply) IsButton() bool {
	return r != nil && r.Action != ""
}

// IsList 判断是否为列表回复
func (r *InboundReply) IsList() bool {
	return r != nil && r.ListKind != ""
}

// IsText 判断是否为纯文本
func (r *InboundReply) IsText() bool {
	return r != nil && r.Action == "" && r.ListKind == "" && r.Text != ""
}

type inboundEnvelope struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []inboundMessage `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

type inboundMessage struct {
	From string `json:"from"`
	Type string `json:"type"`
	Text *struct {
		Body string `json:"body"`
	} `json:"text"`
	Interactive *struct {
		Type        string `json:"type"`
		ButtonReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"button_reply"`
		ListReply *struct {
			ID    string `json:"id"`
			Title string `json:"title"`
		} `json:"list_reply"`
	} `json:"interactive"`
}

// ParseInbound 解析入站回调，忽略状态回执等非消息事件时返回空切片
func ParseInbound(body []byte) ([]*InboundReply, error) {
	var envelope inboundEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, ErrMalformedEvent
	}

	var replies []*InboundReply
	for _, entry := range envelope.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				reply := parseMessage(msg)
				if reply != nil {
					replies = append(replies, reply)
				}
			}
		}
	}
	return replies, nil
}

func parseMessage(msg inboundMessage) *InboundReply {
	reply := &InboundReply{From: msg.From}
	switch msg.Type {
	case "text":
		if msg.Text == nil || strings.TrimSpace(msg.Text.Body) == "" {
			return nil
		}
		reply.Text = strings.TrimSpace(msg.Text.Body)
		return reply
	case "interactive":
		if msg.Interactive == nil {
			return nil
		}
		if msg.Interactive.ButtonReply != nil {
			action, orderID, ok := parseButtonID(msg.Interactive.ButtonReply.ID)
			if !ok {
				return nil
			}
			reply.Action = action
			reply.OrderID = orderID
			return reply
		}
		if msg.Interactive.ListReply != nil {
			kind, value, orderID, ok := parseListID(msg.Interactive.ListReply.ID)
			if !ok {
				return nil
			}
			reply.ListKind = kind
			reply.Value = value
			reply.OrderID = orderID
			return reply
		}
		return nil
	default:
		return nil
	}
}

// parseButtonID 解析按钮 ID，格式为 <action>_<order_id>
func parseButtonID(id string) (string, uint, bool) {
	idx := strings.LastIndex(id, "_")
	if idx <= 0 || idx == len(id)-1 {
		return "", 0, false
	}
	action := id[:idx]
	switch action {
	case constants.ReplyActionConfirm, constants.ReplyActionCancel, constants.ReplyActionAddress:
	default:
		return "", 0, false
	}
	orderID, err := strconv.ParseUint(id[idx+1:], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return action, uint(orderID), true
}

// parseListID 解析列表行 ID，格式为 <kind>_<value>_<order_id>
func parseListID(id string) (string, string, uint, bool) {
	first := strings.Index(id, "_")
	last := strings.LastIndex(id, "_")
	if first <= 0 || last <= first || last == len(id)-1 {
		return "", "", 0, false
	}
	kind := id[:first]
	if kind != constants.ListReplyKindSlot {
		return "", "", 0, false
	}
	value := id[first+1 : last]
	if value == "" {
		return "", "", 0, false
	}
	orderID, err := strconv.ParseUint(id[last+1:], 10, 64)
	if err != nil {
		return "", "", 0, false
	}
	return kind, value, uint(orderID), true
}
