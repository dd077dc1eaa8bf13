package registry

import "time"

type options struct {
	evictionInterval time.Duration
	idleTimeout      time.Duration
	mailboxSize      int
}

func defaultOptions() options {
	return options{
		evictionInterval: 15 * time.Minute,
		idleTimeout:      30 * time.Minute,
		mailboxSize:      1024,
	}
}

// Option configures the Hub.
type Option func(*Hub)

// WithEvictionInterval sets how often the janitor scans for idle cells.
func WithEvictionInterval(d time.Duration) Option {
	return func(h *Hub) {
		h.config.evictionInterval = d
	}
}

// WithIdleTimeout sets how long a sessionless cell may stay resident.
func WithIdleTimeout(d time.Duration) Option {
	return func(h *Hub) {
		h.config.idleTimeout = d
	}
}

// WithMailboxSize sets the per-user mailbox capacity.
func WithMailboxSize(n int) Option {
	return func(h *Hub) {
		h.config.mailboxSize = n
	}
}
