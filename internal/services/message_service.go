package services

import (
	"context"
	"database/sql"
	"time"

	"murmur-chat/internal/domain/message"
	"murmur-chat/internal/domain/user"
	"murmur-chat/internal/events"
	"murmur-chat/internal/policy"
	"murmur-chat/internal/repository"
	murmur_errors "murmur-chat/pkg/errors"
	"murmur-chat/pkg/logger"

	"github.com/google/uuid"
)

// Router is the live fan-out surface the service needs. Routing is best
// effort: a target with no live connections silently drops the frame and
// the durable record stays authoritative.
type Router interface {
	RouteToUser(userID string, payload []byte)
}

// MessageService owns the message lifecycle: guard, persist, then route.
// Every mutation is defined as set-to-X or membership-flip so duplicate
// live deliveries cannot corrupt state.
type MessageService struct {
	messages repository.MessageRepository
	users    repository.UserRepository
	guard    *policy.Guard
	router   Router
	log      *logger.Logger
}

func NewMessageService(messages repository.MessageRepository, users repository.UserRepository, guard *policy.Guard, router Router, log *logger.Logger) *MessageService {
	return &MessageService{
		messages: messages,
		users:    users,
		guard:    guard,
		router:   router,
		log:      log,
	}
}

type SendInput struct {
	ReceiverID  uuid.UUID
	Body        string
	Kind        string
	MediaURL    string
	ReplyToID   *uuid.UUID
	OneTimeView bool
}

// SendResult carries the created message plus the minimal profiles the
// durable-path response embeds.
type SendResult struct {
	Message  message.Message
	Sender   user.Profile
	Receiver user.Profile
	ReplyTo  *message.Message
}

// Send runs the durable path: access guard, then persist, then live
// fan-out. Strictly persist-then-route; a message may be created and never
// delivered live, never the reverse.
func (s *MessageService) Send(ctx context.Context, senderID uuid.UUID, in SendInput) (SendResult, error) {
	kind := message.Kind(in.Kind)
	if kind == "" {
		kind = message.KindText
	}
	if !kind.Valid() {
		return SendResult{}, murmur_errors.ErrInvalidInput
	}
	if in.Body == "" && in.MediaURL == "" {
		return SendResult{}, murmur_errors.ErrInvalidInput
	}
	if senderID == in.ReceiverID {
		return SendResult{}, murmur_errors.ErrInvalidInput
	}

	exists, err := s.users.Exists(ctx, in.ReceiverID)
	if err != nil {
		return SendResult{}, err
	}
	if !exists {
		return SendResult{}, murmur_errors.ErrNotFound
	}

	if err := s.guard.CanSend(ctx, senderID, in.ReceiverID); err != nil {
		return SendResult{}, err
	}

	msg := message.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: in.ReceiverID,
		Body:       in.Body,
		Kind:       kind,
		// Creation time is assigned server-side; client timestamps are
		// never trusted.
		CreatedAt:   time.Now().UTC(),
		OneTimeView: in.OneTimeView,
	}
	if in.MediaURL != "" {
		msg.MediaURL = sql.NullString{String: in.MediaURL, Valid: true}
	}

	var replyTo *message.Message
	if in.ReplyToID != nil {
		parent, err := s.messages.GetByID(ctx, *in.ReplyToID)
		if err != nil {
			return SendResult{}, err
		}
		replyTo = &parent
		msg.ReplyToID = uuid.NullUUID{UUID: parent.ID, Valid: true}
	}

	if err := s.messages.Create(ctx, &msg); err != nil {
		return SendResult{}, err
	}

	sender, err := s.users.GetProfile(ctx, senderID)
	if err != nil {
		return SendResult{}, err
	}
	receiver, err := s.users.GetProfile(ctx, in.ReceiverID)
	if err != nil {
		return SendResult{}, err
	}

	s.routeNewMessage(msg)

	return SendResult{Message: msg, Sender: sender, Receiver: receiver, ReplyTo: replyTo}, nil
}

// ListBetween returns the requester's view of the conversation with the
// counterpart, ascending by creation time, and marks the counterpart's
// unread messages read as a side effect.
func (s *MessageService) ListBetween(ctx context.Context, requesterID, counterpartID uuid.UUID) ([]message.Message, error) {
	msgs, err := s.messages.ListBetween(ctx, requesterID, counterpartID, requesterID)
	if err != nil {
		return nil, err
	}

	readAt := time.Now().UTC()
	readIDs, err := s.messages.MarkConversationRead(ctx, counterpartID, requesterID, readAt)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ReceiverID == requesterID && !msgs[i].IsRead {
			msgs[i].IsRead = true
			msgs[i].ReadAt = sql.NullTime{Time: readAt, Valid: true}
		}
	}
	for _, id := range readIDs {
		s.routeReadUpdate(counterpartID, id, readAt)
	}
	return msgs, nil
}

// MarkRead marks a message read by its receiver and notifies the sender.
// Idempotent: a repeat call keeps the original read_at and routes nothing.
func (s *MessageService) MarkRead(ctx context.Context, messageID, actorID uuid.UUID) (time.Time, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return time.Time{}, err
	}
	if msg.ReceiverID != actorID {
		return time.Time{}, murmur_errors.ErrForbidden
	}
	if msg.IsRead && msg.ReadAt.Valid {
		return msg.ReadAt.Time, nil
	}

	readAt, err := s.messages.MarkRead(ctx, messageID, time.Now().UTC())
	if err != nil {
		return time.Time{}, err
	}
	s.routeReadUpdate(msg.SenderID, messageID, readAt)
	return readAt, nil
}

// ToggleReaction flips the actor's (emoji) membership on the message's
// reaction set and mirrors the updated set to both participants. Any
// authenticated user may react, not just the two participants.
func (s *MessageService) ToggleReaction(ctx context.Context, messageID, actorID uuid.UUID, emoji string) ([]message.Reaction, error) {
	if emoji == "" {
		return nil, murmur_errors.ErrInvalidInput
	}
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if _, err := s.messages.ToggleReaction(ctx, messageID, actorID, emoji); err != nil {
		return nil, err
	}
	reactions, err := s.messages.ListReactions(ctx, messageID)
	if err != nil {
		return nil, err
	}

	payload := events.ReactionUpdatePayload{MessageID: messageID.String()}
	for _, re := range reactions {
		payload.Reactions = append(payload.Reactions, events.Reaction{UserID: re.UserID.String(), Emoji: re.Emoji})
	}
	s.route(msg.SenderID, events.KindReactionUpdate, payload)
	s.route(msg.ReceiverID, events.KindReactionUpdate, payload)

	return reactions, nil
}

// Delete removes a message from the actor's view, or tombstones it for
// everyone when forEveryone is set. Delete-for-everyone is a sender-only
// operation; the row keeps its position in history.
func (s *MessageService) Delete(ctx context.Context, messageID, actorID uuid.UUID, forEveryone bool) error {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return err
	}
	if !msg.Participant(actorID) {
		return murmur_errors.ErrForbidden
	}

	if forEveryone {
		if msg.SenderID != actorID {
			return murmur_errors.ErrForbidden
		}
		if err := s.messages.Tombstone(ctx, messageID, message.DeletedBody); err != nil {
			return err
		}
		payload := events.MessageDeletedPayload{MessageID: messageID.String(), ForEveryone: true}
		s.route(msg.SenderID, events.KindMessageDeleted, payload)
		s.route(msg.ReceiverID, events.KindMessageDeleted, payload)
		return nil
	}

	// Local hide only; the counterpart's view is untouched and no live
	// event is owed.
	return s.messages.HideFor(ctx, messageID, actorID)
}

// GetByID returns a message to one of its participants.
func (s *MessageService) GetByID(ctx context.Context, messageID, actorID uuid.UUID) (message.Message, error) {
	msg, err := s.messages.GetByID(ctx, messageID)
	if err != nil {
		return message.Message{}, err
	}
	if !msg.Participant(actorID) {
		return message.Message{}, murmur_errors.ErrForbidden
	}
	return msg, nil
}

func (s *MessageService) routeNewMessage(msg message.Message) {
	payload := events.SendMessagePayload{
		Sender:      msg.SenderID.String(),
		Receiver:    msg.ReceiverID.String(),
		Text:        msg.Body,
		MessageType: string(msg.Kind),
		MediaURL:    msg.MediaURL.String,
		OneTimeView: msg.OneTimeView,
	}
	if msg.ReplyToID.Valid {
		payload.ReplyTo = msg.ReplyToID.UUID.String()
	}
	frame := struct {
		ID        string    `json:"id"`
		CreatedAt time.Time `json:"createdAt"`
		events.SendMessagePayload
	}{ID: msg.ID.String(), CreatedAt: msg.CreatedAt, SendMessagePayload: payload}

	s.route(msg.ReceiverID, events.KindNewMessage, frame)
	s.route(msg.SenderID, events.KindNewMessage, frame)
}

func (s *MessageService) routeReadUpdate(target, messageID uuid.UUID, readAt time.Time) {
	s.route(target, events.KindMessageReadUpdate, events.MessageReadUpdatePayload{
		MessageID: messageID.String(),
		ReadAt:    readAt,
	})
}

func (s *MessageService) route(target uuid.UUID, kind events.Kind, payload any) {
	if s.router == nil {
		return
	}
	frame, err := events.Marshal(kind, payload)
	if err != nil {
		if s.log != nil {
			s.log.Errorf("marshal %s event: %s", kind, err)
		}
		return
	}
	s.router.RouteToUser(target.String(), frame)
}
