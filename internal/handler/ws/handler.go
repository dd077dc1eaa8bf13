// Package ws carries the realtime protocol: one WebSocket session per
// client, authenticated by the first frame, dispatching the tagged-union
// protocol and draining broadcast fan-out from the registry.
package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/service"
)

// DefaultAuthTimeout bounds how long a fresh socket may stall before its
// first Authenticate frame.
const DefaultAuthTimeout = 10 * time.Second

type Handler struct {
	logger      *slog.Logger
	auth        service.Auther
	messages    *service.MessageService
	hub         registry.Hubber
	upgrader    websocket.Upgrader
	authTimeout time.Duration
}

// Option configures the handler.
type Option func(*Handler)

// WithAuthTimeout overrides the first-frame deadline.
func WithAuthTimeout(d time.Duration) Option {
	return func(h *Handler) {
		h.authTimeout = d
	}
}

func NewHandler(logger *slog.Logger, auth service.Auther, messages *service.MessageService, hub registry.Hubber, opts ...Option) *Handler {
	h := &Handler{
		logger:   logger,
		auth:     auth,
		messages: messages,
		hub:      hub,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		authTimeout: DefaultAuthTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.logger.Debug("ws connect", "remote", r.RemoteAddr, "user_agent", r.UserAgent())

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", "error", err)
		return
	}

	sess := &session{
		id:          uuid.New(),
		conn:        conn,
		logger:      h.logger.With("remote", r.RemoteAddr),
		auth:        h.auth,
		messages:    h.messages,
		hub:         h.hub,
		authTimeout: h.authTimeout,
		sendCh:      make(chan []byte, outboundCap),
		closed:      make(chan struct{}),
	}
	sess.run(r.Context())
}
