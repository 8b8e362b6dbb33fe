package live

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/dkeye/Attendance/internal/core"
	"github.com/dkeye/Attendance/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type Options struct {
	PingPeriod time.Duration
	ReadLimit  int64
	SendQueue  int
	Policy     Policy
}

// Hub fans session snapshots and broker status out to dashboard clients.
// Publishing never blocks: a client with a full queue misses the message
// and catches up on the next snapshot.
type Hub struct {
	snapshot func() core.Snapshot
	status   func() domain.ConnStatus
	opts     Options

	mu      sync.RWMutex
	clients map[ClientID]*Conn
}

func NewHub(snapshot func() core.Snapshot, status func() domain.ConnStatus, opts Options) *Hub {
	if opts.PingPeriod <= 0 {
		opts.PingPeriod = 54 * time.Second
	}
	if opts.ReadLimit <= 0 {
		opts.ReadLimit = 4096
	}
	if opts.SendQueue <= 0 {
		opts.SendQueue = 16
	}
	if opts.Policy == nil {
		opts.Policy = DropLimitPolicy{MaxDrops: 8}
	}
	return &Hub{
		snapshot: snapshot,
		status:   status,
		opts:     opts,
		clients:  make(map[ClientID]*Conn),
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

func (h *Hub) HandleWS(ctx context.Context, c *gin.Context) {
	id := ClientID(uuid.NewString())
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "live").Msg("ws upgrade")
		return
	}
	conn := newConn(id, ws, h.opts.SendQueue)
	// bound before the first snapshot is read, so no change can fall between
	// the two; a broadcast that overtakes it makes the initial one stale
	h.bind(conn)
	log.Info().Str("module", "live").Str("client", string(id)).Str("token", c.GetString("client_token")).Msg("dashboard connected")

	h.sendSnapshot(conn, h.snapshot())
	sendJSON(conn, StatusMessage{Type: TypeStatus, Status: h.status()})

	ctx, cancel := context.WithCancel(ctx)
	go h.writePump(ctx, conn)
	go h.readPump(ctx, cancel, conn)
}

func (h *Hub) bind(conn *Conn) {
	h.mu.Lock()
	h.clients[conn.id] = conn
	n := len(h.clients)
	h.mu.Unlock()
	log.Info().Str("module", "live").Str("client", string(conn.id)).Int("clients", n).Msg("client bound")
}

func (h *Hub) unbind(conn *Conn) {
	h.mu.Lock()
	delete(h.clients, conn.id)
	h.mu.Unlock()
	conn.Close()
	log.Info().Str("module", "live").Str("client", string(conn.id)).Msg("client unbound")
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) PublishSnapshot(s core.Snapshot) {
	b, err := json.Marshal(SnapshotMessage{Type: TypeSnapshot, Snapshot: s})
	if err != nil {
		log.Error().Err(err).Str("module", "live").Msg("broadcast marshal")
		return
	}
	h.broadcast(func(c *Conn) error { return c.trySendSnapshot(s.Version, b) })
}

func (h *Hub) PublishStatus(s domain.ConnStatus) {
	b, err := json.Marshal(StatusMessage{Type: TypeStatus, Status: s})
	if err != nil {
		log.Error().Err(err).Str("module", "live").Msg("broadcast marshal")
		return
	}
	h.broadcast(func(c *Conn) error { return c.TrySend(b) })
}

func (h *Hub) broadcast(send func(*Conn) error) {
	var slow []*Conn
	sent, dropped := 0, 0
	h.mu.RLock()
	for _, c := range h.clients {
		if err := send(c); err != nil {
			dropped++
			if errors.Is(err, ErrBackpressure) {
				n := int(c.drops.Add(1))
				if h.opts.Policy.OnBackpressure(c.id, n) == KickClient {
					slow = append(slow, c)
				}
			}
			continue
		}
		c.drops.Store(0)
		sent++
	}
	h.mu.RUnlock()
	log.Debug().Str("module", "live").Int("sent_to", sent).Int("dropped", dropped).Msg("broadcast result")

	for _, c := range slow {
		log.Warn().Str("module", "live").Str("client", string(c.id)).Msg("kicking slow client")
		h.unbind(c)
	}
}

func (h *Hub) sendSnapshot(c *Conn, s core.Snapshot) {
	b, err := json.Marshal(SnapshotMessage{Type: TypeSnapshot, Snapshot: s})
	if err != nil {
		log.Error().Err(err).Str("module", "live").Msg("snapshot marshal")
		return
	}
	_ = c.trySendSnapshot(s.Version, b)
}

func (h *Hub) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(h.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		// unblock readPump so it unbinds
		_ = c.conn.Close()
	}()
	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second)); err != nil {
				log.Error().Err(err).Str("module", "live").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "live").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second)); err != nil {
				log.Warn().Err(err).Str("module", "live").Msg("writePump ping")
				return
			}
		}
	}
}

func (h *Hub) readPump(ctx context.Context, cancel context.CancelFunc, c *Conn) {
	defer func() {
		cancel()
		h.unbind(c)
	}()

	pongWait := h.opts.PingPeriod * 10 / 9
	c.conn.SetReadLimit(h.opts.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "live").Str("client", string(c.id)).Msg("readPump read error")
			}
			return
		}
		h.handleClient(c, data)
	}
}

func (h *Hub) handleClient(c *Conn, data []byte) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		log.Warn().Err(err).Str("module", "live").Msg("bad json")
		sendJSON(c, map[string]any{"type": TypeError, "error": "bad_payload"})
		return
	}
	switch env.Type {
	case TypePing:
		sendJSON(c, envelope{Type: TypePong})
	case TypeRefresh:
		h.sendSnapshot(c, h.snapshot())
		sendJSON(c, StatusMessage{Type: TypeStatus, Status: h.status()})
	default:
		log.Warn().Str("module", "live").Str("type", env.Type).Msg("unknown message")
		sendJSON(c, map[string]any{"type": TypeError, "error": "unknown_type"})
	}
}

func sendJSON(c *Conn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "live").Msg("sendJSON marshal")
		return
	}
	_ = c.TrySend(b)
}
