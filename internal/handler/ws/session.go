package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/domain/registry"
	"github.com/quickroom/room-service/internal/protocol"
	"github.com/quickroom/room-service/internal/service"
)

// outboundCap bounds the per-session outbound queue. A session that cannot
// drain this many frames is terminated rather than allowed to stall fan-out.
const outboundCap = 1000

const writeTimeout = 10 * time.Second

// session is one upgraded socket. It is the registry.Connector the Hub
// routes frames at once the session authenticates.
type session struct {
	id          uuid.UUID
	conn        *websocket.Conn
	logger      *slog.Logger
	auth        service.Auther
	messages    *service.MessageService
	hub         registry.Hubber
	authTimeout time.Duration

	user model.User

	sendCh    chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

var _ registry.Connector = (*session)(nil)

func (s *session) ID() uuid.UUID { return s.id }
func (s *session) UserID() int32 { return s.user.ID }

// Send enqueues without blocking. False on a closed session or a full queue;
// the caller is expected to Close on overflow.
func (s *session) Send(payload []byte) bool {
	select {
	case <-s.closed:
		return false
	default:
	}
	select {
	case s.sendCh <- payload:
		return true
	default:
		return false
	}
}

// Close signals teardown. The write pump flushes what is already queued,
// then closes the socket, which in turn unblocks the read loop.
func (s *session) Close() {
	s.closeOnce.Do(func() {
		close(s.closed)
	})
}

func (s *session) run(ctx context.Context) {
	go s.writePump()
	defer s.Close()

	user, ok := s.authenticate(ctx)
	if !ok {
		return
	}
	s.user = user
	s.logger = s.logger.With("user_id", user.ID)
	s.logger.Info("ws session authenticated", "session_id", s.id)

	s.hub.Register(s)
	defer s.hub.Unregister(user.ID, s.id)

	s.readLoop(ctx)
}

// authenticate consumes the first frame under the deadline. Failure replies
// are enqueued before returning so the write pump flushes them on teardown.
func (s *session) authenticate(ctx context.Context) (model.User, bool) {
	_ = s.conn.SetReadDeadline(time.Now().Add(s.authTimeout))
	msgType, data, err := s.conn.ReadMessage()
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			s.logger.Info("client authenticate is timeout")
			s.enqueue(protocol.AuthResponse(protocol.AuthTimeout))
		}
		return model.User{}, false
	}
	_ = s.conn.SetReadDeadline(time.Time{})

	if msgType != websocket.TextMessage {
		s.logger.Debug("only supports authenticated text message type")
		s.enqueue(protocol.AuthResponse(protocol.AuthUnsupportedMessageType))
		return model.User{}, false
	}
	frame, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("not support socket message type", "error", err)
		s.enqueue(protocol.Unsupported("Unsupported Message Format"))
		return model.User{}, false
	}
	if frame.Authenticate == nil {
		s.logger.Debug("cannot handle message before authentication")
		return model.User{}, false
	}

	user, err := s.auth.ResolveUserCode(ctx, *frame.Authenticate)
	if err != nil {
		s.enqueue(protocol.AuthResponse(protocol.AuthOther))
		return model.User{}, false
	}
	if user == nil {
		s.enqueue(protocol.AuthResponse(protocol.AuthExpireOrNotFound))
		return model.User{}, false
	}
	s.enqueue(protocol.AuthResponse(protocol.AuthSuccess))
	return *user, true
}

func (s *session) readLoop(ctx context.Context) {
	for {
		msgType, data, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("ws read ended", "error", err)
			return
		}
		switch msgType {
		case websocket.TextMessage:
			if !s.dispatch(ctx, data) {
				s.logger.Info("stop handling messages from client")
				return
			}
		case websocket.BinaryMessage:
			s.logger.Debug("ignoring binary message", "bytes", len(data))
		}
	}
}

// enqueue marshals and queues an outbound frame. Overflow terminates the
// session like any other undrainable backlog.
func (s *session) enqueue(frame *protocol.Frame) {
	payload, err := json.Marshal(frame)
	if err != nil {
		s.logger.Error("failed to marshal outbound frame", "error", err)
		return
	}
	if !s.Send(payload) {
		s.Close()
	}
}

// writePump owns all writes to the socket. On close it drains the queued
// frames first so late replies such as the timeout response still land.
func (s *session) writePump() {
	defer s.conn.Close()
	for {
		select {
		case payload := <-s.sendCh:
			if !s.write(payload) {
				s.Close()
				return
			}
		case <-s.closed:
			for {
				select {
				case payload := <-s.sendCh:
					if !s.write(payload) {
						return
					}
				default:
					_ = s.conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
						time.Now().Add(time.Second))
					return
				}
			}
		}
	}
}

func (s *session) write(payload []byte) bool {
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := s.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		s.logger.Warn("ws write failed", "error", err)
		return false
	}
	return true
}
