package message

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// Kind classifies a message body.
type Kind string

const (
	KindText     Kind = "text"
	KindImage    Kind = "image"
	KindVideo    Kind = "video"
	KindAudio    Kind = "audio"
	KindDocument Kind = "document"
	KindLocation Kind = "location"
)

func (k Kind) Valid() bool {
	switch k {
	case KindText, KindImage, KindVideo, KindAudio, KindDocument, KindLocation:
		return true
	}
	return false
}

// DeletedBody replaces the body when a message is deleted for everyone. The
// row keeps its id and position in history.
const DeletedBody = "This message was deleted"

// Message represents the messages table. Sender and receiver are always
// distinct users. Per-user hides live in message_hidden, not on the row.
type Message struct {
	ID          uuid.UUID
	SenderID    uuid.UUID
	ReceiverID  uuid.UUID
	Body        string
	Kind        Kind
	MediaURL    sql.NullString
	ReplyToID   uuid.NullUUID
	OneTimeView bool
	ViewedAt    sql.NullTime
	IsRead      bool
	ReadAt      sql.NullTime
	IsDeleted   bool
	CreatedAt   time.Time
}

// Reaction represents message_reactions. A user holds at most one reaction
// per emoji per message; toggling flips membership.
type Reaction struct {
	MessageID uuid.UUID
	UserID    uuid.UUID
	Emoji     string
	CreatedAt time.Time
}

// Participant reports whether userID is the sender or receiver.
func (m Message) Participant(userID uuid.UUID) bool {
	return m.SenderID == userID || m.ReceiverID == userID
}

// Counterpart returns the other participant for userID.
func (m Message) Counterpart(userID uuid.UUID) uuid.UUID {
	if m.SenderID == userID {
		return m.ReceiverID
	}
	return m.SenderID
}
