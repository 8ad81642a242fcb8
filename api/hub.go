package api

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"crowdfundr/contract"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// Hub fans committed records out to websocket subscribers. A subscriber that cannot keep
// up is dropped rather than slowing down campaign calls.
type Hub struct {
	log *zap.Logger

	mu      sync.Mutex
	clients map[*subscriber]struct{}
}

type subscriber struct {
	conn     *websocket.Conn
	send     chan contract.Record
	campaign uint64 // 0 = every campaign
	once     sync.Once
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, clients: make(map[*subscriber]struct{})}
}

// Publish implements contract.RecordSink.
func (h *Hub) Publish(rec contract.Record) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		if s.campaign != 0 && s.campaign != rec.Campaign {
			continue
		}
		select {
		case s.send <- rec:
		default:
			h.log.Warn("record subscriber too slow, dropping", zap.String("remote", s.conn.RemoteAddr().String()))
			h.removeLocked(s)
		}
	}
}

// Subscribers is the number of open streams.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.clients {
		h.removeLocked(s)
	}
}

func (h *Hub) removeLocked(s *subscriber) {
	if _, ok := h.clients[s]; !ok {
		return
	}
	delete(h.clients, s)
	s.once.Do(func() { close(s.send) })
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(s)
}

// ServeWS upgrades the request and streams records, optionally filtered by ?campaign=<id>.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	var campaign uint64
	if raw := r.URL.Query().Get("campaign"); raw != "" {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			http.Error(w, "campaign must be a number", http.StatusBadRequest)
			return
		}
		campaign = id
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	s := &subscriber{conn: conn, send: make(chan contract.Record, sendBuffer), campaign: campaign}
	h.mu.Lock()
	h.clients[s] = struct{}{}
	h.mu.Unlock()
	h.log.Debug("record subscriber connected", zap.Uint64("campaign", campaign))

	go h.writePump(s)
	h.readPump(s)
}

// readPump only watches for close and pong frames, subscribers never send data.
func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.remove(s)
		_ = s.conn.Close()
	}()
	s.conn.SetReadLimit(512)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = s.conn.Close()
	}()
	for {
		select {
		case rec, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := rec.MarshalJSON()
			if err != nil {
				h.log.Error("encode record", zap.Error(err))
				continue
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
