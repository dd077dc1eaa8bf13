// Package rest is the HTTP surface: account and group management, message
// history, file transfer and the WebSocket upgrade endpoint.
package rest

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/quickroom/room-service/config"
	"github.com/quickroom/room-service/internal/handler/ws"
	"github.com/quickroom/room-service/internal/service"
)

type Handler struct {
	cfg      *config.Config
	logger   *slog.Logger
	auth     service.Auther
	groups   *service.GroupService
	messages *service.MessageService
}

func NewHandler(cfg *config.Config, logger *slog.Logger, auth service.Auther, groups *service.GroupService, messages *service.MessageService) *Handler {
	return &Handler{cfg: cfg, logger: logger, auth: auth, groups: groups, messages: messages}
}

// NewRouter wires every route of the service, realtime included.
func NewRouter(h *Handler, wsHandler *ws.Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	allowed := []string{"*"}
	if h.cfg.WebClient != "" {
		allowed = []string{h.cfg.WebClient}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowed,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type", UserCodeHeader},
		AllowCredentials: false,
	}))

	// The socket outlives any request timeout; everything else is bounded.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(10 * time.Second))

		r.Get("/", h.home)

		r.Post("/add-user", h.addUser)
		r.Post("/add-user-group", h.addUserGroup)
		r.Post("/join-group", h.joinGroup)
		r.Get("/gr/list/{user_id}", h.listGroups)

		r.Get("/waiting-list/{group_id}", h.requireUser(h.waitingList))
		r.Post("/waiting-list/{request_id}", h.requireUser(h.decideWaiting))

		r.Post("/del-gr", h.deleteGroup)
		r.Post("/rm-user-from-group", h.removeUser)
		r.Post("/leave-gr", h.leaveGroup)

		r.Get("/groups/{group_id}/messages", h.requireUser(h.groupMessages))

		r.Post("/upload", h.requireUser(h.uploadFile))
		r.Get("/files/{name}", h.serveFile)
	})

	r.Get("/ws", wsHandler.ServeHTTP)

	return r
}

func (h *Handler) home(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("room-service is running"))
}
