package outcome

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ffbot/ffbot-core/task"
)

const writeWait = 5 * time.Second

type subscriber struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (s *subscriber) write(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

// WebSocketSink broadcasts each task log as a JSON text frame to every
// connected dashboard. It is also the http.Handler dashboards connect to.
type WebSocketSink struct {
	upgrader websocket.Upgrader

	mu     sync.Mutex
	subs   map[*subscriber]struct{}
	closed bool
}

func NewWebSocketSink() *WebSocketSink {
	return &WebSocketSink{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		subs: make(map[*subscriber]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the subscriber until its
// connection closes. Incoming frames are ignored.
func (s *WebSocketSink) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	sub := &subscriber{conn: conn}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	s.subs[sub] = struct{}{}
	count := len(s.subs)
	s.mu.Unlock()
	slog.Info("outcome subscriber connected", "remote", r.RemoteAddr, "subscribers", count)

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	s.remove(sub)
}

func (s *WebSocketSink) remove(sub *subscriber) {
	s.mu.Lock()
	_, ok := s.subs[sub]
	delete(s.subs, sub)
	s.mu.Unlock()
	if ok {
		sub.conn.Close()
	}
}

// Subscribers is the number of connected dashboards.
func (s *WebSocketSink) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Write broadcasts the log. Subscribers that fail the write are dropped.
func (s *WebSocketSink) Write(l task.TaskOutcomeLog) error {
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}

	s.mu.Lock()
	subs := make([]*subscriber, 0, len(s.subs))
	for sub := range s.subs {
		subs = append(subs, sub)
	}
	s.mu.Unlock()

	for _, sub := range subs {
		if err := sub.write(data); err != nil {
			slog.Warn("dropping outcome subscriber", "remote", sub.conn.RemoteAddr().String(), "error", err)
			s.remove(sub)
		}
	}
	return nil
}

// Close disconnects every subscriber and refuses new ones.
func (s *WebSocketSink) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	subs := s.subs
	s.subs = make(map[*subscriber]struct{})
	s.mu.Unlock()

	for sub := range subs {
		sub.mu.Lock()
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		sub.mu.Unlock()
		sub.conn.Close()
	}
	return nil
}
