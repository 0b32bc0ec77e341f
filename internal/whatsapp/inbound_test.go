package whatsapp

import (
	"fmt"
	"testing"

	"github.com/shoplink-next/internal/constants"
)

func inboundEnvelopeJSON(message string) []byte {
	return []byte(fmt.Sprintf(`{
		"entry": [{"changes": [{"value": {"messages": [%s]}}]}]
	}`, message))
}

func TestParseInboundButtonReply(t *testing.T) {
	body := inboundEnvelopeJSON(`{
		"from": "31611111111",
		"type": "interactive",
		"interactive": {"type": "button_reply", "button_reply": {"id": "confirm_42", "title": "Confirm"}}
	}`)
	replies, err := ParseInbound(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	reply := replies[0]
	if !reply.IsButton() || reply.Action != constants.ReplyActionConfirm || reply.OrderID != 42 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestParseInboundListReply(t *testing.T) {
	body := inboundEnvelopeJSON(`{
		"from": "31611111111",
		"type": "interactive",
		"interactive": {"type": "list_reply", "list_reply": {"id": "slot_morning_42", "title": "Morning"}}
	}`)
	replies, err := ParseInbound(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	reply := replies[0]
	if !reply.IsList() || reply.ListKind != constants.ListReplyKindSlot ||
		reply.Value != "morning" || reply.OrderID != 42 {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestParseInboundText(t *testing.T) {
	body := inboundEnvelopeJSON(`{
		"from": "31611111111",
		"type": "text",
		"text": {"body": "  leave at the back door  "}
	}`)
	replies, err := ParseInbound(body)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(replies) != 1 {
		t.Fatalf("expected 1 reply, got %d", len(replies))
	}
	reply := replies[0]
	if !reply.IsText() || reply.Text != "leave at the back door" {
		t.Fatalf("unexpected reply: %+v", reply)
	}
}

func TestParseInboundIgnoresUnknownShapes(t *testing.T) {
	cases := []struct {
		name    string
		message string
	}{
		{name: "status receipt", message: `{"from": "3161", "type": "reaction"}`},
		{name: "unknown button prefix", message: `{"from": "3161", "type": "interactive", "interactive": {"type": "button_reply", "button_reply": {"id": "approve_42"}}}`},
		{name: "button without order id", message: `{"from": "3161", "type": "interactive", "interactive": {"type": "button_reply", "button_reply": {"id": "confirm_abc"}}}`},
		{name: "list with unknown kind", message: `{"from": "3161", "type": "interactive", "interactive": {"type": "list_reply", "list_reply": {"id": "color_red_42"}}}`},
		{name: "empty text", message: `{"from": "3161", "type": "text", "text": {"body": "   "}}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			replies, err := ParseInbound(inboundEnvelopeJSON(tc.message))
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if len(replies) != 0 {
				t.Fatalf("expected event ignored, got %+v", replies[0])
			}
		})
	}
}

func TestParseInboundMalformedBody(t *testing.T) {
	if _, err := ParseInbound([]byte(`{"entry": "nope"`)); err == nil {
		t.Fatal("expected error for malformed body")
	}
}

func TestParseListIDValueWithUnderscore(t *testing.T) {
	kind, value, orderID, ok := parseListID("slot_late_evening_9")
	if !ok {
		t.Fatal("expected parse ok")
	}
	if kind != constants.ListReplyKindSlot || value != "late_evening" || orderID != 9 {
		t.Fatalf("unexpected parse result: %s %s %d", kind, value, orderID)
	}
}
