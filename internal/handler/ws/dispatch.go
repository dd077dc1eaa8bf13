package ws

import (
	"context"

	"github.com/quickroom/room-service/internal/protocol"
)

// dispatch routes one inbound text frame. False terminates the session.
func (s *session) dispatch(ctx context.Context, data []byte) bool {
	frame, err := protocol.Decode(data)
	if err != nil {
		s.logger.Debug("not support socket message type", "error", err)
		s.enqueue(protocol.Unsupported("Unsupported Message Format"))
		return false
	}

	switch {
	case frame.Send != nil:
		reply, fatal := s.messages.Send(ctx, s.user, frame.Send)
		if reply != nil {
			s.enqueue(reply)
		}
		if fatal {
			return false
		}

	case frame.EditMessage != nil:
		if reply := s.messages.Edit(ctx, s.user, frame.EditMessage); reply != nil {
			s.enqueue(reply)
		}

	case frame.DeleteMessage != nil:
		if reply := s.messages.Delete(ctx, s.user, *frame.DeleteMessage); reply != nil {
			s.enqueue(reply)
		}

	case frame.SeenMessages != nil:
		if reply := s.messages.Seen(ctx, s.user, *frame.SeenMessages); reply != nil {
			s.enqueue(reply)
		}

	case frame.SubscribeGroup != nil:
		s.enqueue(s.messages.Subscribe(ctx, s.user, *frame.SubscribeGroup))

	default:
		// Response/event variants arriving inbound are ignored, matching
		// the dispatcher's treatment of any other unroutable frame.
		s.logger.Debug("cannot handle message type")
	}
	return true
}
