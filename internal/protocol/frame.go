// Package protocol defines the WebSocket wire protocol: a tagged union of
// frame types, each frame being a single JSON object whose only key names the
// variant. Example: {"Authenticate":"<user code>"} or {"Send":{...}}.
package protocol

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/quickroom/room-service/internal/domain/model"
)

var ErrUnknownVariant = errors.New("protocol: unknown frame variant")

// Frame is the envelope for every protocol message, inbound and outbound.
// Exactly one field is non-nil per frame.
type Frame struct {
	Authenticate         *string         `json:"Authenticate,omitempty"`
	AuthenticateResponse *ResultMessage  `json:"AuthenticateResponse,omitempty"`

	SubscribeGroup         *int32         `json:"SubscribeGroup,omitempty"`
	SubscribeGroupResponse *ResultMessage `json:"SubscribeGroupResponse,omitempty"`

	Send    *NewMessage     `json:"Send,omitempty"`
	Receive *MessageContent `json:"Receive,omitempty"`

	EditMessage         *EditMessage    `json:"EditMessage,omitempty"`
	EditMessageResponse *ResultMessage  `json:"EditMessageResponse,omitempty"`
	EditMessageData     *MessageContent `json:"EditMessageData,omitempty"`

	DeleteMessage         *MessagesData  `json:"DeleteMessage,omitempty"`
	DeleteMessageEvent    *MessagesData  `json:"DeleteMessageEvent,omitempty"`
	DeleteMessageResponse *ResultMessage `json:"DeleteMessageResponse,omitempty"`

	SeenMessages         *MessagesData  `json:"SeenMessages,omitempty"`
	SeenMessagesEvent    *MessagesData  `json:"SeenMessagesEvent,omitempty"`
	SeenMessagesResponse *ResultMessage `json:"SeenMessagesResponse,omitempty"`

	UnSupportMessage *string `json:"UnSupportMessage,omitempty"`
}

// Decode parses a single frame. Unknown variant keys are rejected so that a
// malformed client fails fast instead of being silently ignored.
func Decode(data []byte) (*Frame, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var f Frame
	if err := dec.Decode(&f); err != nil {
		return nil, err
	}
	if f.empty() {
		return nil, ErrUnknownVariant
	}
	return &f, nil
}

func (f *Frame) empty() bool {
	return f.Authenticate == nil && f.AuthenticateResponse == nil &&
		f.SubscribeGroup == nil && f.SubscribeGroupResponse == nil &&
		f.Send == nil && f.Receive == nil &&
		f.EditMessage == nil && f.EditMessageResponse == nil && f.EditMessageData == nil &&
		f.DeleteMessage == nil && f.DeleteMessageEvent == nil && f.DeleteMessageResponse == nil &&
		f.SeenMessages == nil && f.SeenMessagesEvent == nil && f.SeenMessagesResponse == nil &&
		f.UnSupportMessage == nil
}

// ResultMessage is the generic status reply carried by response variants.
type ResultMessage struct {
	StatusCode int32  `json:"status_code"`
	Message    string `json:"message"`
}

// MessagesData addresses a set of messages within one group. Used by the
// Delete and Seen operations and their broadcast events.
type MessagesData struct {
	GroupID    int32   `json:"group_id"`
	MessageIDs []int32 `json:"message_ids"`
}

// NewMessage is the payload of a Send frame. MessageType defaults to TEXT.
type NewMessage struct {
	MessageUUID uuid.UUID          `json:"message_uuid"`
	GroupID     int32              `json:"group_id"`
	MessageType *model.MessageType `json:"message_type"`
	Content     *string            `json:"content"`
	Attachments []Attachment       `json:"attachments,omitempty"`
}

// EditMessage is the payload of an EditMessage frame.
type EditMessage struct {
	MessageID   int32              `json:"message_id"`
	GroupID     int32              `json:"group_id"`
	Content     *string            `json:"content"`
	MessageType *model.MessageType `json:"message_type"`
}

// Attachment mirrors a stored attachment on the wire.
type Attachment struct {
	ID             int32                `json:"id"`
	URL            string               `json:"url"`
	AttachmentType model.AttachmentType `json:"attachment_type"`
}

// MessageContent is the broadcast form of a persisted message, carried by
// Receive and EditMessageData events. Timestamps are RFC 3339 UTC.
type MessageContent struct {
	MessageUUID uuid.UUID           `json:"message_uuid"`
	MessageID   int32               `json:"message_id"`
	UserID      int32               `json:"user_id"`
	GroupID     int32               `json:"group_id"`
	Content     string              `json:"content"`
	Username    *string             `json:"username"`
	MessageType model.MessageType   `json:"message_type"`
	Attachments []Attachment        `json:"attachments"`
	CreatedAt   UTCTime             `json:"created_at"`
	UpdatedAt   *UTCTime            `json:"updated_at"`
	Status      model.MessageStatus `json:"status"`
}

// ContentOf builds the broadcast form of a stored message.
func ContentOf(m model.Message, username *string, atts []model.Attachment) *MessageContent {
	content := ""
	if m.Content != nil {
		content = *m.Content
	}
	mc := &MessageContent{
		MessageUUID: m.MessageUUID,
		MessageID:   m.ID,
		UserID:      m.UserID,
		GroupID:     m.GroupID,
		Content:     content,
		Username:    username,
		MessageType: m.MessageType,
		CreatedAt:   UTCTime(m.CreatedAt),
		Status:      m.Status,
	}
	if m.UpdatedAt != nil {
		t := UTCTime(*m.UpdatedAt)
		mc.UpdatedAt = &t
	}
	for _, a := range atts {
		mc.Attachments = append(mc.Attachments, Attachment{
			ID:             a.ID,
			URL:            a.URL,
			AttachmentType: a.AttachmentType,
		})
	}
	return mc
}
