package ws

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/himalthapa1/EduConnect/internal/auth"
	"github.com/himalthapa1/EduConnect/internal/log"
	"github.com/himalthapa1/EduConnect/internal/protocol"
	"github.com/himalthapa1/EduConnect/internal/wire"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	maxFrame   = 1 << 20 // 1MB
)

var (
	ErrClosed       = errors.New("connection closed")
	ErrSlowConsumer = errors.New("send queue full")
)

// Client is one websocket connection. Its send queue is bounded; when it
// overflows the client is closed instead of blocking the sender.
type Client struct {
	id      string
	conn    *websocket.Conn
	limiter *rate.Limiter

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func (c *Client) ID() string { return c.id }

// TrySend queues frame without blocking.
func (c *Client) TrySend(frame []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	select {
	case c.send <- frame:
		return nil
	default:
		c.closed = true
		close(c.send)
		return ErrSlowConsumer
	}
}

// close stops the write pump after it drains queued frames.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

type Options struct {
	SendBuffer      int
	EventsPerSecond float64
	EventBurst      int
	CheckOrigin     func(r *http.Request) bool
}

// Server 把 WebSocket 连接接入聊天协议。
type Server struct {
	proto    *protocol.Protocol
	hub      *Hub
	opts     Options
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewServer(proto *protocol.Protocol, hub *Hub, opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	return &Server{
		proto:    proto,
		hub:      hub,
		opts:     opts,
		upgrader: websocket.Upgrader{CheckOrigin: opts.CheckOrigin},
		log:      log.Module("ws"),
	}
}

// Serve 升级连接后校验 token。校验失败时先下发一条 error 事件再关闭连接。
func (s *Server) Serve(c *gin.Context) {
	token := auth.TokenFromRequest(c.Request)
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	client := &Client{
		id:      uuid.NewString(),
		conn:    conn,
		send:    make(chan []byte, s.opts.SendBuffer),
		limiter: s.limiter(),
	}
	if !s.hub.register(client) {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		_ = conn.Close()
		return
	}
	defer s.hub.unregister(client)

	done := make(chan struct{})
	go func() {
		defer close(done)
		client.writePump()
	}()

	ctx := c.Request.Context()
	session := s.proto.Connect(ctx, client, token)
	if session.State == protocol.Closed {
		client.close()
		<-done
		return
	}
	s.log.Info().Str("conn_id", client.id).Uint("user_id", session.UserID).Msg("websocket connected")

	client.readPump(func(frame []byte) {
		if !client.limiter.Allow() {
			_ = client.TrySend(wire.ErrorFrame("Too many requests"))
			return
		}
		session = s.proto.Handle(ctx, session, client, protocol.Decode(frame))
	})

	session = s.proto.Handle(ctx, session, client, protocol.Disconnect{})
	client.close()
	<-done
	s.log.Info().Str("conn_id", client.id).Uint("user_id", session.UserID).Msg("websocket disconnected")
}

func (s *Server) limiter() *rate.Limiter {
	if s.opts.EventsPerSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := s.opts.EventBurst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(s.opts.EventsPerSecond), burst)
}

// readPump feeds text frames to handle, in order, until the connection fails.
func (c *Client) readPump(handle func([]byte)) {
	c.conn.SetReadLimit(maxFrame)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		handle(data)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)
			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
