package model

// AttachmentType is stored as its textual variant name.
type AttachmentType string

const (
	AttachmentText        AttachmentType = "TEXT"
	AttachmentImage       AttachmentType = "IMAGE"
	AttachmentVideo       AttachmentType = "VIDEO"
	AttachmentAudio       AttachmentType = "AUDIO"
	AttachmentBinary      AttachmentType = "BINARY"
	AttachmentCompression AttachmentType = "COMPRESSION"
)

func (t AttachmentType) Valid() bool {
	switch t {
	case AttachmentText, AttachmentImage, AttachmentVideo,
		AttachmentAudio, AttachmentBinary, AttachmentCompression:
		return true
	}
	return false
}

// Attachment belongs to exactly one message.
type Attachment struct {
	ID             int32          `db:"id" json:"id"`
	URL            string         `db:"url" json:"url"`
	AttachmentType AttachmentType `db:"attachment_type" json:"attachment_type"`
	MessageID      int32          `db:"message_id" json:"-"`
}

// NewAttachment carries the fields of an attachment about to be inserted.
type NewAttachment struct {
	URL            string
	AttachmentType AttachmentType
}
