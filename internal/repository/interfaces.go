package repository

import (
	"context"
	"time"

	"murmur-chat/internal/domain/message"
	"murmur-chat/internal/domain/user"

	"github.com/google/uuid"
)

// MessageRepository persists messages and their mutable state. Every
// mutation is atomic with respect to its own row; callers never rely on
// cross-row transactions.
type MessageRepository interface {
	Create(ctx context.Context, m *message.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (message.Message, error)

	// ListBetween returns the conversation between two users ascending by
	// creation time, excluding messages the viewer has hidden locally.
	ListBetween(ctx context.Context, userA, userB, viewer uuid.UUID) ([]message.Message, error)

	// ListForUser returns every message where userID is a participant and
	// which userID has not hidden, ascending by creation time.
	ListForUser(ctx context.Context, userID uuid.UUID) ([]message.Message, error)

	// MarkRead sets is_read and stamps read_at at most once; the stored
	// read_at is returned whether or not this call set it. A one-time-view
	// message gets viewed_at stamped on the first read.
	MarkRead(ctx context.Context, id uuid.UUID, readAt time.Time) (time.Time, error)

	// MarkConversationRead marks every unread message from sender to
	// receiver as read and returns the ids it transitioned.
	MarkConversationRead(ctx context.Context, sender, receiver uuid.UUID, readAt time.Time) ([]uuid.UUID, error)

	// ToggleReaction flips (user, emoji) membership on the message's
	// reaction set atomically and reports whether it is now present.
	ToggleReaction(ctx context.Context, messageID, userID uuid.UUID, emoji string) (bool, error)
	ListReactions(ctx context.Context, messageID uuid.UUID) ([]message.Reaction, error)

	// Tombstone marks the message deleted for everyone and replaces its body.
	Tombstone(ctx context.Context, id uuid.UUID, body string) error

	// HideFor hides the message from userID's view only. Idempotent.
	HideFor(ctx context.Context, id, userID uuid.UUID) error
}

// UserRepository reads user rows owned by the external identity service.
type UserRepository interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	GetProfile(ctx context.Context, id uuid.UUID) (user.Profile, error)

	// HasBlocked reports whether owner's block list contains target.
	HasBlocked(ctx context.Context, owner, target uuid.UUID) (bool, error)
}
