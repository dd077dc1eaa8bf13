/*
Package registry is the connection directory: it maps authenticated users to
their live sockets and routes pre-encoded frames at them.

Every active user is represented by an isolated Cell (actor) that owns all
concurrent sessions of that identity. Per-user mailboxes decouple the
broadcasters from socket writes, so one slow consumer never stalls group
fan-out. A janitor evicts cells that have been idle with no sessions.
*/
package registry

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Celler is the internal API of a per-user delivery unit.
type Celler interface {
	Push(payload []byte) bool
	Attach(conn Connector) bool
	Detach(connID uuid.UUID) bool
	IsIdle(timeout time.Duration) bool
	StopIfEmpty() bool
	Stop()
}

// Cell multiplexes every frame addressed to one user onto all of that user's
// sessions.
type Cell struct {
	userID int32

	// mailbox decouples broadcasters from socket writes. Bounded: a full
	// mailbox rejects the push instead of blocking the publisher.
	mailbox chan []byte

	// sessions holds every live socket of the user, keyed by session id.
	sessions map[uuid.UUID]Connector

	mu     sync.RWMutex
	doneCh chan struct{}

	// stopped flips under mu so Attach and the stop paths cannot interleave:
	// a session never lands on a cell whose loop has ended.
	stopped bool

	lastActivityAt time.Time
}

var _ Celler = (*Cell)(nil)

func NewCell(userID int32, mailboxSize int) *Cell {
	c := &Cell{
		userID:         userID,
		mailbox:        make(chan []byte, mailboxSize),
		sessions:       make(map[uuid.UUID]Connector),
		doneCh:         make(chan struct{}),
		lastActivityAt: time.Now(),
	}
	go c.loop()
	return c
}

// IsIdle reports whether the cell has no sessions and has been quiet past the
// threshold. Only such cells are reclaimed.
func (c *Cell) IsIdle(timeout time.Duration) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions) == 0 && time.Since(c.lastActivityAt) > timeout
}

func (c *Cell) touch() {
	c.mu.Lock()
	c.lastActivityAt = time.Now()
	c.mu.Unlock()
}

func (c *Cell) Push(payload []byte) bool {
	c.touch()
	select {
	case c.mailbox <- payload:
		return true
	default:
		return false
	}
}

// Attach binds the session to the cell. False means the cell already
// stopped and the caller must use a fresh one.
func (c *Cell) Attach(conn Connector) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return false
	}
	c.lastActivityAt = time.Now()
	c.sessions[conn.ID()] = conn
	return true
}

// Detach removes the session and reports whether the cell is now empty.
func (c *Cell) Detach(connID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, connID)
	c.lastActivityAt = time.Now()
	return len(c.sessions) == 0
}

func (c *Cell) loop() {
	for {
		select {
		case <-c.doneCh:
			return
		case payload := <-c.mailbox:
			c.deliver(payload)
		}
	}
}

// deliver fans the frame out to every session. A session that cannot accept
// the frame is terminated; its teardown detaches it from the cell.
func (c *Cell) deliver(payload []byte) {
	c.mu.RLock()
	conns := make([]Connector, 0, len(c.sessions))
	for _, conn := range c.sessions {
		conns = append(conns, conn)
	}
	c.mu.RUnlock()

	for _, conn := range conns {
		if !conn.Send(payload) {
			conn.Close()
		}
	}
}

// StopIfEmpty stops the cell only when it still has no sessions, re-checked
// under the same lock Attach takes.
func (c *Cell) StopIfEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped || len(c.sessions) > 0 {
		return false
	}
	c.stopped = true
	close(c.doneCh)
	return true
}

func (c *Cell) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	close(c.doneCh)
}
