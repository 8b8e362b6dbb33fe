package live

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

var (
	ErrBackpressure = errors.New("backpressure")
	ErrConnClosed   = errors.New("connection closed")
)

type ClientID string

// Conn is one dashboard websocket. The hub writes through TrySend only.
type Conn struct {
	id   ClientID
	conn *websocket.Conn
	send chan []byte

	// consecutive broadcasts missed because send was full
	drops atomic.Int32

	mu     sync.RWMutex
	closed bool

	// version of the newest snapshot queued; older ones are skipped
	snapMu   sync.Mutex
	lastSnap uint64
}

func newConn(id ClientID, ws *websocket.Conn, queue int) *Conn {
	return &Conn{
		id:   id,
		conn: ws,
		send: make(chan []byte, queue),
	}
}

func (c *Conn) TrySend(b []byte) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrConnClosed
	}
	select {
	case c.send <- b:
	default:
		return ErrBackpressure
	}
	return nil
}

// trySendSnapshot queues a snapshot of version v unless a newer one is
// already queued. Equal versions are resent so refresh always answers.
func (c *Conn) trySendSnapshot(v uint64, b []byte) error {
	c.snapMu.Lock()
	defer c.snapMu.Unlock()
	if v < c.lastSnap {
		return nil
	}
	if err := c.TrySend(b); err != nil {
		return err
	}
	c.lastSnap = v
	return nil
}

func (c *Conn) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
