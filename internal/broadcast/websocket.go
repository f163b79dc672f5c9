package broadcast

import (
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Viewers never send anything meaningful; keep inbound frames tiny.
	maxMessageSize = 512

	sendBuffer = 16
)

var (
	ErrSubscriberClosed = errors.New("subscriber closed")
	ErrSubscriberSlow   = errors.New("subscriber send buffer full")
)

// Subscriber is a websocket viewer registered with the hub.
type Subscriber struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	mu     sync.Mutex
	closed bool
}

func NewSubscriber(ws *websocket.Conn) *Subscriber {
	return &Subscriber{
		id:   uuid.NewString(),
		ws:   ws,
		send: make(chan []byte, sendBuffer),
	}
}

func (s *Subscriber) ID() string {
	return s.id
}

func (s *Subscriber) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.closed
}

// Send queues data for the write pump. It never blocks: a viewer that cannot keep
// up loses this snapshot and gets the next one.
func (s *Subscriber) Send(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSubscriberClosed
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrSubscriberSlow
	}
}

// Close stops the write pump, which sends a close frame and drops the connection.
func (s *Subscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.send)
	}
}

// writePump pumps queued snapshots to the websocket connection.
func (s *Subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.ws.Close()
	}()
	for {
		select {
		case message, ok := <-s.send:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				s.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.ws.WriteMessage(websocket.TextMessage, message); err != nil {
				s.Close()
				return
			}
		case <-ticker.C:
			s.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.Close()
				return
			}
		}
	}
}

// readPump drains the connection so pongs and close frames are processed, and
// unregisters the subscriber once the peer goes away.
func (s *Subscriber) readPump(hub *Hub) {
	defer func() {
		hub.Unregister(s)
		s.Close()
	}()
	s.ws.SetReadLimit(maxMessageSize)
	s.ws.SetReadDeadline(time.Now().Add(pongWait))
	s.ws.SetPongHandler(func(string) error { s.ws.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := s.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("subscriber read error", "subscriber", s.id, "error", err)
			}
			return
		}
	}
}

// Handler upgrades the request to a websocket and registers it with hub.
func Handler(hub *Hub, upgrader websocket.Upgrader) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			// Upgrade has already replied with an HTTP error.
			slog.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
			return
		}

		sub := NewSubscriber(ws)
		go sub.writePump()
		hub.Register(r.Context(), sub)
		go sub.readPump(hub)
	}
}

// NewUpgrader returns the upgrader used for the live channel. Any origin may
// subscribe; the channel is read-only.
func NewUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     func(*http.Request) bool { return true },
	}
}
