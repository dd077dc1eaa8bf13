package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quickroom/room-service/internal/domain/model"
	"github.com/quickroom/room-service/internal/protocol"
	"github.com/quickroom/room-service/internal/storage"
)

// MessageService implements the protocol mutations. Every operation
// re-checks group membership against the store before writing, and persists
// before broadcasting: a frame that fans out is always durable already.
//
// Methods return the reply frame owed to the caller, or nil when the
// broadcast itself is the acknowledgement.
type MessageService struct {
	store  storage.Store
	auth   Auther
	bc     *Broadcaster
	logger *slog.Logger
}

func NewMessageService(store storage.Store, auth Auther, bc *Broadcaster, logger *slog.Logger) *MessageService {
	return &MessageService{store: store, auth: auth, bc: bc, logger: logger}
}

// Send persists a new message then broadcasts it as a Receive event. The
// second return value demands session termination on unrecoverable persist
// failure.
func (s *MessageService) Send(ctx context.Context, sender model.User, in *protocol.NewMessage) (*protocol.Frame, bool) {
	joined, err := s.auth.IsParticipant(ctx, sender.ID, in.GroupID)
	if err != nil || !joined {
		return protocol.AuthResponse(protocol.AuthNoPermission), false
	}
	group, err := s.store.GetGroup(ctx, in.GroupID)
	if err != nil {
		return protocol.AuthResponse(protocol.AuthNoPermission), false
	}
	if group == nil || group.Expired(time.Now().UTC()) {
		return protocol.AuthResponse(protocol.AuthExpireOrNotFound), false
	}

	msgType := model.MessageTypeText
	if in.MessageType != nil && in.MessageType.Valid() {
		msgType = *in.MessageType
	}
	nm := model.NewMessage{
		MessageUUID: in.MessageUUID,
		GroupID:     in.GroupID,
		UserID:      sender.ID,
		Content:     in.Content,
		MessageType: msgType,
		Status:      model.StatusSent,
		CreatedAt:   time.Now().UTC(),
	}
	var atts []model.NewAttachment
	for _, a := range in.Attachments {
		if !a.AttachmentType.Valid() {
			s.logger.Warn("skipping attachment with unknown type",
				"attachment_type", a.AttachmentType, "message_uuid", in.MessageUUID)
			continue
		}
		atts = append(atts, model.NewAttachment{URL: a.URL, AttachmentType: a.AttachmentType})
	}

	m, inserted, err := s.store.InsertMessage(ctx, nm, atts)
	if err != nil {
		s.logger.Error("failed to persist message", "group_id", in.GroupID, "error", err)
		return nil, true
	}

	content := protocol.ContentOf(m, &sender.Username, inserted)
	if err := s.bc.Publish(ctx, in.GroupID, protocol.ReceiveEvent(content)); err != nil {
		s.logger.Error("failed to broadcast message", "group_id", in.GroupID, "error", err)
	}
	return nil, false
}

// Edit updates a message the caller authored and broadcasts the new content.
func (s *MessageService) Edit(ctx context.Context, sender model.User, in *protocol.EditMessage) *protocol.Frame {
	editFailure := func(reason string) *protocol.Frame {
		return protocol.EditResponse(1, "Failed to update message, "+reason)
	}

	joined, err := s.auth.IsParticipant(ctx, sender.ID, in.GroupID)
	if err != nil {
		return editFailure("please try again later")
	}
	if !joined {
		return editFailure("user hasn't joined the group")
	}
	m, err := s.store.GetMessage(ctx, in.MessageID)
	if err != nil {
		return editFailure("please try again later")
	}
	if m == nil {
		return editFailure("message not found")
	}
	if m.GroupID != in.GroupID {
		return editFailure("message does not belong to the group")
	}
	if m.UserID != sender.ID {
		return editFailure("user is not the author")
	}

	updated, err := s.store.UpdateMessage(ctx, in.MessageID, model.UpdateMessage{
		Content:     in.Content,
		MessageType: in.MessageType,
	})
	if err != nil {
		return editFailure("please try again later")
	}

	content := protocol.ContentOf(updated, nil, nil)
	if err := s.bc.Publish(ctx, in.GroupID, protocol.EditData(content)); err != nil {
		s.logger.Error("failed to broadcast edit", "group_id", in.GroupID, "error", err)
	}
	return nil
}

// Delete removes messages the caller authored and broadcasts the ids. Any id
// that is missing or foreign rejects the whole batch.
func (s *MessageService) Delete(ctx context.Context, sender model.User, in protocol.MessagesData) *protocol.Frame {
	joined, err := s.auth.IsParticipant(ctx, sender.ID, in.GroupID)
	if err != nil {
		return protocol.DeleteResponse(1, "There is an error, please try later")
	}
	if !joined {
		return protocol.DeleteResponse(1, "User hasn't joined the group")
	}
	invalid, err := s.store.NotAuthoredBy(ctx, sender.ID, in.MessageIDs)
	if err != nil {
		s.logger.Error("failed to check message ownership", "error", err)
		return protocol.DeleteResponse(1, "There is an error, please try later")
	}
	if len(invalid) > 0 {
		return protocol.DeleteResponse(2,
			fmt.Sprintf("Invalid message ids, maybe user are not owner of messages: %v", invalid))
	}
	all, err := s.store.DeleteMessages(ctx, in.MessageIDs)
	if err != nil || !all {
		return protocol.DeleteResponse(2, "Failed to delete message, maybe one of messages ids is not found")
	}
	if err := s.bc.Publish(ctx, in.GroupID, protocol.DeleteEvent(in)); err != nil {
		s.logger.Error("failed to broadcast delete", "group_id", in.GroupID, "error", err)
	}
	return nil
}

// Seen marks messages of the group as seen and broadcasts the ids.
func (s *MessageService) Seen(ctx context.Context, sender model.User, in protocol.MessagesData) *protocol.Frame {
	joined, err := s.auth.IsParticipant(ctx, sender.ID, in.GroupID)
	if err != nil {
		return protocol.SeenResponse(2, "Failed to check user joined group, try again later")
	}
	if !joined {
		return protocol.SeenResponse(1, "User hasn't joined the group")
	}
	msgs, err := s.store.GetMessages(ctx, in.MessageIDs)
	if err != nil {
		return protocol.SeenResponse(3, "Failed to get message from ids, try again later")
	}
	for _, m := range msgs {
		if m.GroupID != in.GroupID {
			return protocol.SeenResponse(4,
				fmt.Sprintf("One of messages is not belong to group %d", in.GroupID))
		}
	}
	if err := s.store.SetStatus(ctx, in.MessageIDs, model.StatusSeen); err != nil {
		return protocol.SeenResponse(5, "Failed to change messages status, try again later")
	}
	if err := s.bc.Publish(ctx, in.GroupID, protocol.SeenEvent(in)); err != nil {
		s.logger.Error("failed to broadcast seen", "group_id", in.GroupID, "error", err)
	}
	return nil
}

// Subscribe tunes the session's group topic in ahead of traffic. Fan-out
// works without it; this only warms the consumer after a membership check.
func (s *MessageService) Subscribe(ctx context.Context, sender model.User, groupID int32) *protocol.Frame {
	joined, err := s.auth.IsParticipant(ctx, sender.ID, groupID)
	if err != nil {
		return protocol.SubscribeResponse(2, "Failed to check user joined group, try again later")
	}
	if !joined {
		return protocol.SubscribeResponse(1, "User hasn't joined the group")
	}
	if err := s.bc.EnsureGroup(groupID); err != nil {
		return protocol.SubscribeResponse(3, "Failed to subscribe to group, try again later")
	}
	return protocol.SubscribeResponse(0, "Subscribed successfully")
}

// History pages the group's messages for a participant.
func (s *MessageService) History(ctx context.Context, requester model.User, groupID int32, f model.MessageFilter, sort model.SortOrder, page model.PageRequest) ([]model.MessageWithAuthor, int64, error) {
	joined, err := s.auth.IsParticipant(ctx, requester.ID, groupID)
	if err != nil {
		return nil, 0, err
	}
	if !joined {
		return nil, 0, E(ErrForbidden, "User is not part of the group")
	}
	msgs, err := s.store.ListMessages(ctx, groupID, f, sort, page)
	if err != nil {
		return nil, 0, err
	}
	count, err := s.store.CountMessages(ctx, groupID, f)
	if err != nil {
		return nil, 0, err
	}
	return msgs, count, nil
}
