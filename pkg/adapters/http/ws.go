package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/aretw0/tagbridge/pkg/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	WriteWait  = 10 * time.Second
	PongWait   = 60 * time.Second
	PingPeriod = (PongWait * 9) / 10
)

// wsClient is one websocket peer. It is also the response sink for every
// frame it sends, so open completions find their way back to it.
type wsClient struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	mu     sync.Mutex
	closed bool
	logger *slog.Logger
}

func newWSClient(conn *websocket.Conn, logger *slog.Logger) *wsClient {
	id := uuid.NewString()
	return &wsClient{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, 256),
		logger: logger.With("client_id", id),
	}
}

// Deliver queues a response frame. Responses that arrive after the peer
// left are discarded.
func (c *wsClient) Deliver(callbackID string, resp domain.Response) {
	resp.CallbackID = callbackID
	data, err := json.Marshal(resp)
	if err != nil {
		c.logger.Error("Failed to encode response frame", "callback_id", callbackID, "err", err)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		c.logger.Debug("Discarding response for closed client", "callback_id", callbackID)
		return
	}
	select {
	case c.send <- data:
	default:
		c.logger.Warn("Client buffer full, dropping response", "callback_id", callbackID)
	}
}

func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *wsClient) writePump() {
	ticker := time.NewTicker(PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeBridge handles GET /v1/bridge. Each text message is a command frame
// and each answer is written back as a response frame.
func (s *Server) ServeBridge(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "err", err)
		return
	}

	c := newWSClient(conn, s.logger)
	s.clients.Store(c.id, c)
	c.logger.Info("Bridge client connected", "remote", r.RemoteAddr)

	go c.writePump()

	defer func() {
		s.clients.Delete(c.id)
		c.close()
		c.logger.Info("Bridge client disconnected")
	}()

	conn.SetReadLimit(s.maxFrame)
	conn.SetReadDeadline(time.Now().Add(PongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(PongWait))
		return nil
	})

	ctx := r.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Warn("Bridge read failed", "err", err)
			}
			return
		}

		inv, err := s.sanitizer.DecodeFrame(data)
		if err != nil {
			c.Deliver(inv.CallbackID, domain.Failure(err))
			continue
		}
		s.dispatcher.DispatchName(ctx, inv.CallbackID, string(inv.Command), inv.Args, c)
	}
}

// Clients reports the number of connected bridge clients.
func (s *Server) Clients() int {
	return s.clients.Size()
}

// Close disconnects every bridge client and ends event streams.
func (s *Server) Close() {
	s.clients.Range(func(id string, c *wsClient) bool {
		deadline := time.Now().Add(WriteWait)
		c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"), deadline)
		c.conn.Close()
		return true
	})
	s.streams.Close()
}
