package httpdto

import (
	"time"

	"murmur-chat/internal/domain/message"
	"murmur-chat/internal/domain/user"
)

type SendMessageRequest struct {
	ReceiverID  string `json:"receiver_id" binding:"required"`
	Body        string `json:"body"`
	Kind        string `json:"kind"`
	MediaURL    string `json:"media_url"`
	ReplyTo     string `json:"reply_to"`
	OneTimeView bool   `json:"one_time_view"`
}

type ReactionRequest struct {
	Emoji string `json:"emoji"`
}

type ReactionView struct {
	UserID string `json:"user_id"`
	Emoji  string `json:"emoji"`
}

type MessageView struct {
	ID          string         `json:"id"`
	Sender      *user.Profile  `json:"sender,omitempty"`
	Receiver    *user.Profile  `json:"receiver,omitempty"`
	SenderID    string         `json:"sender_id"`
	ReceiverID  string         `json:"receiver_id"`
	Body        string         `json:"body"`
	Kind        string         `json:"kind"`
	MediaURL    string         `json:"media_url,omitempty"`
	ReplyTo     *MessageView   `json:"reply_to,omitempty"`
	OneTimeView bool           `json:"one_time_view,omitempty"`
	ViewedAt    *time.Time     `json:"viewed_at,omitempty"`
	IsRead      bool           `json:"is_read"`
	ReadAt      *time.Time     `json:"read_at,omitempty"`
	IsDeleted   bool           `json:"is_deleted"`
	Reactions   []ReactionView `json:"reactions,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewMessageView(m message.Message) MessageView {
	v := MessageView{
		ID:          m.ID.String(),
		SenderID:    m.SenderID.String(),
		ReceiverID:  m.ReceiverID.String(),
		Body:        m.Body,
		Kind:        string(m.Kind),
		OneTimeView: m.OneTimeView,
		IsRead:      m.IsRead,
		IsDeleted:   m.IsDeleted,
		CreatedAt:   m.CreatedAt,
	}
	if m.MediaURL.Valid {
		v.MediaURL = m.MediaURL.String
	}
	if m.ReadAt.Valid {
		t := m.ReadAt.Time
		v.ReadAt = &t
	}
	if m.ViewedAt.Valid {
		t := m.ViewedAt.Time
		v.ViewedAt = &t
	}
	return v
}

type ConversationSummaryView struct {
	Counterpart user.Profile `json:"counterpart"`
	LastMessage MessageView  `json:"last_message"`
	UnreadCount int          `json:"unread_count"`
	Status      string       `json:"status"`
	LastSeen    *time.Time   `json:"last_seen,omitempty"`
}
