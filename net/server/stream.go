package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/ncobase/pulse/event"
	"github.com/ncobase/pulse/logging/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

// TypeOverview is the first message of every stream
const TypeOverview = "overview"

// stream relays bus events to websocket clients. A client that cannot keep
// up loses events instead of slowing down the publisher.
type stream struct {
	monitor  Monitor
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[string]*client
	closed  bool
	dropped atomic.Int64
}

type client struct {
	id          string
	conn        *websocket.Conn
	send        chan []byte
	done        chan struct{}
	once        sync.Once
	unsubscribe func()
}

func newStream(m Monitor) *stream {
	return &stream{
		monitor: m,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[string]*client),
	}
}

func (s *stream) serve(c *gin.Context) {
	ctx := c.Request.Context()

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warnf(ctx, "websocket upgrade failed: %v", err)
		return
	}

	cl := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}

	cl.enqueue(s, event.Event{Type: TypeOverview, Data: s.monitor.GetSystemOverview(), Timestamp: time.Now()})
	cl.unsubscribe = s.monitor.Subscribe(func(e event.Event) { cl.enqueue(s, e) })

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		cl.stop()
		_ = conn.Close()
		return
	}
	s.clients[cl.id] = cl
	s.mu.Unlock()

	logger.Debugf(ctx, "stream client %s connected", cl.id)

	go cl.writePump()
	go func() {
		cl.readPump()
		s.remove(cl)
		logger.Debugf(context.Background(), "stream client %s disconnected", cl.id)
	}()
}

// enqueue queues e for the client without blocking
func (cl *client) enqueue(s *stream, e event.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		logger.Warnf(context.Background(), "failed to encode %s event: %v", e.Type, err)
		return
	}

	select {
	case <-cl.done:
	case cl.send <- data:
	default:
		s.dropped.Add(1)
	}
}

// readPump discards client messages and returns when the connection fails
func (cl *client) readPump() {
	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debugf(context.Background(), "stream client %s read error: %v", cl.id, err)
			}
			return
		}
	}
}

func (cl *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case <-cl.done:
			_ = cl.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(writeWait))
			return
		case message := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (cl *client) stop() {
	cl.once.Do(func() {
		if cl.unsubscribe != nil {
			cl.unsubscribe()
		}
		close(cl.done)
	})
}

func (s *stream) remove(cl *client) {
	cl.stop()
	_ = cl.conn.Close()

	s.mu.Lock()
	delete(s.clients, cl.id)
	s.mu.Unlock()
}

func (s *stream) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// close disconnects every client and refuses new ones
func (s *stream) close() {
	s.mu.Lock()
	s.closed = true
	clients := make([]*client, 0, len(s.clients))
	for _, cl := range s.clients {
		clients = append(clients, cl)
	}
	s.mu.Unlock()

	for _, cl := range clients {
		cl.stop()
	}
}
