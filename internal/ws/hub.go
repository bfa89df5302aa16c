package ws

import (
	"sync"

	"github.com/himalthapa1/EduConnect/internal/metrics"
)

// Hub 跟踪所有存活的 WebSocket 连接，用于统计与优雅停服。
// 房间订阅由 room.Registry 管理。
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	closed  bool
}

func NewHub() *Hub { return &Hub{clients: make(map[string]*Client)} }

// register 登记连接；Hub 已关闭时返回 false。
func (h *Hub) register(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c.id] = c
	metrics.WsConnections.Inc()
	return true
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c.id]; ok {
		delete(h.clients, c.id)
		metrics.WsConnections.Dec()
	}
}

// Count 返回当前连接数。
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown 关闭所有连接并拒绝新连接。http.Server.Shutdown 不会等待被劫持的连接，
// 停服时需要单独调用。
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()
	for _, c := range clients {
		c.close()
	}
}
