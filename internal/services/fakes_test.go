package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"murmur-chat/internal/domain/message"
	"murmur-chat/internal/domain/user"
	"murmur-chat/internal/events"
	murmur_errors "murmur-chat/pkg/errors"

	"github.com/google/uuid"
)

type fakeMessageRepo struct {
	mu        sync.Mutex
	order     []uuid.UUID
	msgs      map[uuid.UUID]*message.Message
	hidden    map[uuid.UUID]map[uuid.UUID]bool
	reactions map[uuid.UUID][]message.Reaction
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		msgs:      make(map[uuid.UUID]*message.Message),
		hidden:    make(map[uuid.UUID]map[uuid.UUID]bool),
		reactions: make(map[uuid.UUID][]message.Reaction),
	}
}

func (r *fakeMessageRepo) Create(_ context.Context, m *message.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *m
	r.msgs[m.ID] = &cp
	r.order = append(r.order, m.ID)
	return nil
}

func (r *fakeMessageRepo) GetByID(_ context.Context, id uuid.UUID) (message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return message.Message{}, murmur_errors.ErrNotFound
	}
	return *m, nil
}

func (r *fakeMessageRepo) ListBetween(_ context.Context, userA, userB, viewer uuid.UUID) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Message
	for _, id := range r.order {
		m := r.msgs[id]
		pair := (m.SenderID == userA && m.ReceiverID == userB) || (m.SenderID == userB && m.ReceiverID == userA)
		if !pair || r.hidden[id][viewer] {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMessageRepo) ListForUser(_ context.Context, userID uuid.UUID) ([]message.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []message.Message
	for _, id := range r.order {
		m := r.msgs[id]
		if !m.Participant(userID) || r.hidden[id][userID] {
			continue
		}
		out = append(out, *m)
	}
	return out, nil
}

func (r *fakeMessageRepo) MarkRead(_ context.Context, id uuid.UUID, readAt time.Time) (time.Time, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return time.Time{}, murmur_errors.ErrNotFound
	}
	if !m.ReadAt.Valid {
		m.IsRead = true
		m.ReadAt.Time = readAt
		m.ReadAt.Valid = true
		if m.OneTimeView && !m.ViewedAt.Valid {
			m.ViewedAt.Time = readAt
			m.ViewedAt.Valid = true
		}
	}
	return m.ReadAt.Time, nil
}

func (r *fakeMessageRepo) MarkConversationRead(_ context.Context, sender, receiver uuid.UUID, readAt time.Time) ([]uuid.UUID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []uuid.UUID
	for _, id := range r.order {
		m := r.msgs[id]
		if m.SenderID == sender && m.ReceiverID == receiver && !m.IsRead {
			m.IsRead = true
			m.ReadAt.Time = readAt
			m.ReadAt.Valid = true
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (r *fakeMessageRepo) ToggleReaction(_ context.Context, messageID, userID uuid.UUID, emoji string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.reactions[messageID]
	for i, re := range set {
		if re.UserID == userID && re.Emoji == emoji {
			r.reactions[messageID] = append(set[:i], set[i+1:]...)
			return false, nil
		}
	}
	r.reactions[messageID] = append(set, message.Reaction{
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		CreatedAt: time.Now().UTC(),
	})
	return true, nil
}

func (r *fakeMessageRepo) ListReactions(_ context.Context, messageID uuid.UUID) ([]message.Reaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]message.Reaction(nil), r.reactions[messageID]...), nil
}

func (r *fakeMessageRepo) Tombstone(_ context.Context, id uuid.UUID, body string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.msgs[id]
	if !ok {
		return murmur_errors.ErrNotFound
	}
	m.IsDeleted = true
	m.Body = body
	m.MediaURL.Valid = false
	m.MediaURL.String = ""
	return nil
}

func (r *fakeMessageRepo) HideFor(_ context.Context, id, userID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.msgs[id]; !ok {
		return murmur_errors.ErrNotFound
	}
	if r.hidden[id] == nil {
		r.hidden[id] = make(map[uuid.UUID]bool)
	}
	r.hidden[id][userID] = true
	return nil
}

type fakeUserRepo struct {
	profiles map[uuid.UUID]user.Profile
	blocks   map[uuid.UUID]map[uuid.UUID]bool
}

func newFakeUserRepo(users ...user.Profile) *fakeUserRepo {
	r := &fakeUserRepo{
		profiles: make(map[uuid.UUID]user.Profile),
		blocks:   make(map[uuid.UUID]map[uuid.UUID]bool),
	}
	for _, u := range users {
		r.profiles[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) block(owner, target uuid.UUID) {
	if r.blocks[owner] == nil {
		r.blocks[owner] = make(map[uuid.UUID]bool)
	}
	r.blocks[owner][target] = true
}

func (r *fakeUserRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	_, ok := r.profiles[id]
	return ok, nil
}

func (r *fakeUserRepo) GetProfile(_ context.Context, id uuid.UUID) (user.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return user.Profile{}, murmur_errors.ErrNotFound
	}
	return p, nil
}

func (r *fakeUserRepo) HasBlocked(_ context.Context, owner, target uuid.UUID) (bool, error) {
	return r.blocks[owner][target], nil
}

type routedFrame struct {
	UserID string
	Kind   events.Kind
	Raw    json.RawMessage
}

// fakeRouter records routed frames in order. onRoute, when set, runs for
// every frame before it is recorded.
type fakeRouter struct {
	mu      sync.Mutex
	frames  []routedFrame
	onRoute func(userID string, payload []byte)
}

func (r *fakeRouter) RouteToUser(userID string, payload []byte) {
	if r.onRoute != nil {
		r.onRoute(userID, payload)
	}
	var env events.Envelope
	_ = json.Unmarshal(payload, &env)
	r.mu.Lock()
	r.frames = append(r.frames, routedFrame{UserID: userID, Kind: env.Event, Raw: env.Payload})
	r.mu.Unlock()
}

func (r *fakeRouter) framesFor(userID string, kind events.Kind) []routedFrame {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []routedFrame
	for _, f := range r.frames {
		if f.UserID == userID && f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

type fakePresence struct {
	info map[string]PresenceInfo
	err  error
}

func (p *fakePresence) GetMultiplePresence(_ context.Context, ids []string) (map[string]PresenceInfo, error) {
	if p.err != nil {
		return nil, p.err
	}
	out := make(map[string]PresenceInfo, len(ids))
	for _, id := range ids {
		if info, ok := p.info[id]; ok {
			out[id] = info
		}
	}
	return out, nil
}
