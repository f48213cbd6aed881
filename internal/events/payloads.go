package events

import (
	"encoding/json"
	"time"
)

type JoinPayload struct {
	UserID string `json:"userId"`
}

type SendMessagePayload struct {
	Sender      string `json:"sender"`
	Receiver    string `json:"receiver"`
	Text        string `json:"text"`
	MessageType string `json:"messageType"`
	MediaURL    string `json:"mediaUrl,omitempty"`
	ReplyTo     string `json:"replyTo,omitempty"`
	OneTimeView bool   `json:"oneTimeView,omitempty"`
}

type TypingPayload struct {
	Sender   string `json:"sender"`
	Receiver string `json:"receiver"`
}

type StatusPayload struct {
	UserID   string     `json:"userId"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"lastSeen,omitempty"`
}

type MessageReadPayload struct {
	MessageID string `json:"messageId"`
	ReaderID  string `json:"readerId"`
}

type MessageReadUpdatePayload struct {
	MessageID string    `json:"messageId"`
	ReadAt    time.Time `json:"readAt"`
}

type MessageDeletedPayload struct {
	MessageID   string `json:"messageId"`
	ForEveryone bool   `json:"forEveryone"`
}

type ReactionUpdatePayload struct {
	MessageID string     `json:"messageId"`
	Reactions []Reaction `json:"reactions"`
}

type Reaction struct {
	UserID string `json:"userId"`
	Emoji  string `json:"emoji"`
}

// CallSignalPayload carries WebRTC signaling. The signal body is opaque to
// the router; only the target id is interpreted.
type CallSignalPayload struct {
	From   string          `json:"from"`
	To     string          `json:"to"`
	Signal json.RawMessage `json:"signal,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}
