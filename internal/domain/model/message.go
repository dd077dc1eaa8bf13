package model

import (
	"time"

	"github.com/google/uuid"
)

// MessageType is stored as its textual variant name.
type MessageType string

const (
	MessageTypeText       MessageType = "TEXT"
	MessageTypeAttachment MessageType = "ATTACHMENT"
)

func (t MessageType) Valid() bool {
	return t == MessageTypeText || t == MessageTypeAttachment
}

// MessageStatus tracks delivery acknowledgement of a message.
type MessageStatus string

const (
	StatusNotSent MessageStatus = "NotSent"
	StatusSent    MessageStatus = "Sent"
	StatusSeen    MessageStatus = "Seen"
)

func (s MessageStatus) Valid() bool {
	return s == StatusNotSent || s == StatusSent || s == StatusSeen
}

// Message is the server-side record of one chat message. ID is the
// server-assigned ordering key; MessageUUID is chosen by the client before
// sending and acts as the idempotency key.
type Message struct {
	ID          int32         `db:"id" json:"id"`
	MessageUUID uuid.UUID     `db:"message_uuid" json:"message_uuid"`
	Content     *string       `db:"content" json:"content"`
	MessageType MessageType   `db:"message_type" json:"message_type"`
	Status      MessageStatus `db:"status" json:"status"`
	CreatedAt   time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt   *time.Time    `db:"updated_at" json:"updated_at"`
	UserID      int32         `db:"user_id" json:"user_id"`
	GroupID     int32         `db:"group_id" json:"group_id"`
}

// NewMessage carries the fields of a message about to be inserted.
type NewMessage struct {
	MessageUUID uuid.UUID
	GroupID     int32
	UserID      int32
	Content     *string
	MessageType MessageType
	Status      MessageStatus
	CreatedAt   time.Time
}

// UpdateMessage lists the editable fields; nil means "leave unchanged".
type UpdateMessage struct {
	Content     *string
	MessageType *MessageType
}

func (u UpdateMessage) Empty() bool {
	return u.Content == nil && u.MessageType == nil
}

// MessageWithAuthor is a message joined with its author's username and its
// attachments, as returned by list queries.
type MessageWithAuthor struct {
	Message
	Username    string       `db:"username" json:"username"`
	Attachments []Attachment `json:"attachments"`
}
