package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Hubber is the gateway for session management and frame routing.
type Hubber interface {
	Broadcast(userID int32, payload []byte) bool
	Register(conn Connector)
	Unregister(userID int32, connID uuid.UUID)
	IsConnected(userID int32) bool
	Shutdown()
}

// Hub maps user ids to their Cells. sync.Map fits the read-heavy lookup
// pattern of broadcast fan-out.
type Hub struct {
	cells  sync.Map
	config options

	janitorOnce sync.Once
	doneCh      chan struct{}
}

var _ Hubber = (*Hub)(nil)

func NewHub(opts ...Option) *Hub {
	h := &Hub{
		config: defaultOptions(),
		doneCh: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}
	h.janitorOnce.Do(func() { go h.janitor() })
	return h
}

func (h *Hub) IsConnected(userID int32) bool {
	_, ok := h.cells.Load(userID)
	return ok
}

// Broadcast routes the frame to the user's cell. False on miss or a full
// mailbox.
func (h *Hub) Broadcast(userID int32, payload []byte) bool {
	if val, ok := h.cells.Load(userID); ok {
		if cell, ok := val.(Celler); ok {
			return cell.Push(payload)
		}
	}
	return false
}

// Register creates the user's cell on first contact and attaches the session.
// Attach can lose a race against a cell stopping on its last Detach; the
// stale entry is dropped and the attach retried on a fresh cell.
func (h *Hub) Register(conn Connector) {
	uID := conn.UserID()
	for {
		val, ok := h.cells.Load(uID)
		if !ok {
			cell := NewCell(uID, h.config.mailboxSize)
			actual, loaded := h.cells.LoadOrStore(uID, cell)
			if loaded {
				// Lost the race; stop the spare cell's goroutine.
				cell.Stop()
			}
			val = actual
		}
		cell, ok := val.(Celler)
		if !ok {
			return
		}
		if cell.Attach(conn) {
			return
		}
		h.cells.CompareAndDelete(uID, val)
	}
}

// Unregister detaches the session and purges the cell when it was the last
// one. StopIfEmpty re-checks emptiness under the cell lock so a session
// attaching concurrently keeps the cell alive.
func (h *Hub) Unregister(userID int32, connID uuid.UUID) {
	if val, ok := h.cells.Load(userID); ok {
		if cell, ok := val.(Celler); ok {
			cell.Detach(connID)
			if cell.StopIfEmpty() {
				h.cells.CompareAndDelete(userID, val)
			}
		}
	}
}

// janitor periodically reclaims cells that have no sessions and have been
// quiet past the idle timeout.
func (h *Hub) janitor() {
	ticker := time.NewTicker(h.config.evictionInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.doneCh:
			return
		case <-ticker.C:
			h.cells.Range(func(key, val any) bool {
				if cell, ok := val.(Celler); ok && cell.IsIdle(h.config.idleTimeout) && cell.StopIfEmpty() {
					h.cells.CompareAndDelete(key, val)
				}
				return true
			})
		}
	}
}

// Shutdown stops the janitor and every cell goroutine.
func (h *Hub) Shutdown() {
	close(h.doneCh)
	h.cells.Range(func(key, val any) bool {
		if cell, ok := val.(Celler); ok {
			cell.Stop()
		}
		h.cells.Delete(key)
		return true
	})
}
