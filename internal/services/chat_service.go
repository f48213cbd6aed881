package services

import (
	"context"
	"sort"
	"time"

	"murmur-chat/internal/domain/message"
	"murmur-chat/internal/domain/user"
	"murmur-chat/internal/repository"
	"murmur-chat/pkg/logger"

	"github.com/google/uuid"
)

// PresenceReader answers status and last-seen queries for counterparts.
type PresenceReader interface {
	GetMultiplePresence(ctx context.Context, userIDs []string) (map[string]PresenceInfo, error)
}

// PresenceInfo is the slice of presence state the chat list embeds.
type PresenceInfo struct {
	Status   string
	LastSeen *time.Time
}

// ConversationSummary is a derived, non-persisted aggregate: the latest
// visible message per counterpart plus the requester's unread count.
type ConversationSummary struct {
	Counterpart user.Profile    `json:"counterpart"`
	LastMessage message.Message `json:"-"`
	UnreadCount int             `json:"unread_count"`
	Status      string          `json:"status"`
	LastSeen    *time.Time      `json:"last_seen,omitempty"`
}

// ChatService computes the per-user conversation list on demand from the
// message store and the presence tracker. Recompute-on-request; nothing is
// materialized.
type ChatService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	presence PresenceReader
	log      *logger.Logger
}

func NewChatService(messages repository.MessageRepository, users repository.UserRepository, presence PresenceReader, log *logger.Logger) *ChatService {
	return &ChatService{
		messages: messages,
		users:    users,
		presence: presence,
		log:      log,
	}
}

// RecentChats returns one summary per counterpart, descending by the latest
// message time. Locally hidden messages do not surface as the latest
// message and never count as unread.
func (s *ChatService) RecentChats(ctx context.Context, userID uuid.UUID) ([]ConversationSummary, error) {
	msgs, err := s.messages.ListForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	latest := make(map[uuid.UUID]message.Message)
	unread := make(map[uuid.UUID]int)
	for _, m := range msgs {
		counterpart := m.Counterpart(userID)
		// msgs arrive ascending, so the last write per counterpart wins.
		latest[counterpart] = m
		if m.ReceiverID == userID && !m.IsRead {
			unread[m.SenderID]++
		}
	}

	ids := make([]string, 0, len(latest))
	for id := range latest {
		ids = append(ids, id.String())
	}

	var presenceByID map[string]PresenceInfo
	if s.presence != nil {
		presenceByID, err = s.presence.GetMultiplePresence(ctx, ids)
		if err != nil {
			// Presence is decoration on this view; the chat list itself
			// comes from the durable store.
			if s.log != nil {
				s.log.Warnf("presence lookup failed: %s", err)
			}
			presenceByID = nil
		}
	}

	summaries := make([]ConversationSummary, 0, len(latest))
	for counterpart, last := range latest {
		profile, err := s.users.GetProfile(ctx, counterpart)
		if err != nil {
			return nil, err
		}
		summary := ConversationSummary{
			Counterpart: profile,
			LastMessage: last,
			UnreadCount: unread[counterpart],
			Status:      "offline",
		}
		if info, ok := presenceByID[counterpart.String()]; ok {
			summary.Status = info.Status
			summary.LastSeen = info.LastSeen
		}
		summaries = append(summaries, summary)
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastMessage.CreatedAt.After(summaries[j].LastMessage.CreatedAt)
	})
	return summaries, nil
}
