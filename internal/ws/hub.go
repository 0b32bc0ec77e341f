package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/shoplink-next/internal/logger"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 32
)

// Event 推送给观察端的事件
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// Hub 观察端连接管理，广播订单事件
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub 创建广播中心
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// 观察端为只读事件流，跨域放行
		return true
	},
}

// ServeWS 升级连接并注册观察端
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Warnw("ws_upgrade_failed", "error", err)
		return
	}
	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(c)
	go c.writePump(h)
	go c.readPump(h)
}

// Publish 向所有观察端广播事件，编码一次后复用
func (h *Hub) Publish(eventType string, data any) {
	raw, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		logger.Errorw("ws_event_marshal_failed", "event_type", eventType, "error", err)
		return
	}
	h.mu.RLock()
	stale := make([]*client, 0)
	for c := range h.clients {
		select {
		case c.send <- raw:
		default:
			// 发送缓冲已满，判定观察端过慢并剔除
			stale = append(stale, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range stale {
		h.unregister(c)
	}
}

// ClientCount 当前观察端数量
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()
	logger.Infow("ws_client_connected", "clients", count)
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()
	if ok {
		logger.Infow("ws_client_disconnected", "clients", count)
	}
}

func (c *client) readPump(h *Hub) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		// 观察端为只读，入站内容直接丢弃
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *client) writePump(h *Hub) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case raw, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				h.unregister(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.unregister(c)
				return
			}
		}
	}
}
