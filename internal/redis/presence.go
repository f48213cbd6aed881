package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"murmur-chat/internal/services"

	goredis "github.com/redis/go-redis/v9"
)

// PresenceStatus is the per-user presence document mirrored into Redis.
// The in-process tracker owns the live registry; this mirror survives
// restarts and serves last-seen queries.
type PresenceStatus struct {
	UserID   string     `json:"user_id"`
	Status   string     `json:"status"` // online, away, busy, offline
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Redis key prefixes for presence
const (
	presenceKeyPrefix = "presence:"       // Per-user presence document
	presenceOnlineSet = "presence:online" // Set of online user IDs
	typingKeyPrefix   = "typing:"         // Per-user set of peers being typed to
)

// PresenceStore mirrors presence state in Redis.
type PresenceStore struct {
	client *goredis.Client
	ttl    time.Duration
}

func NewPresenceStore(client *goredis.Client, ttl time.Duration) *PresenceStore {
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &PresenceStore{client: client, ttl: ttl}
}

// SetStatus writes the user's presence document and maintains the online
// set. Offline documents keep a longer TTL so last-seen stays queryable.
func (p *PresenceStore) SetStatus(ctx context.Context, userID, status string, lastSeen *time.Time) error {
	doc := PresenceStatus{UserID: userID, Status: status, LastSeen: lastSeen}
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	pipe := p.client.Pipeline()
	pipe.Set(ctx, presenceKeyPrefix+userID, data, p.ttl)
	if status == "offline" {
		pipe.SRem(ctx, presenceOnlineSet, userID)
	} else {
		pipe.SAdd(ctx, presenceOnlineSet, userID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

// GetPresence returns the stored presence document; unknown users read as
// offline.
func (p *PresenceStore) GetPresence(ctx context.Context, userID string) (*PresenceStatus, error) {
	data, err := p.client.Get(ctx, presenceKeyPrefix+userID).Result()
	if err == goredis.Nil {
		return &PresenceStatus{UserID: userID, Status: "offline"}, nil
	}
	if err != nil {
		return nil, err
	}

	var status PresenceStatus
	if err := json.Unmarshal([]byte(data), &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// GetMultiplePresence resolves presence for a batch of users in one
// pipeline round trip. Missing or unreadable entries degrade to offline.
func (p *PresenceStore) GetMultiplePresence(ctx context.Context, userIDs []string) (map[string]services.PresenceInfo, error) {
	result := make(map[string]services.PresenceInfo, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	pipe := p.client.Pipeline()
	cmds := make(map[string]*goredis.StringCmd, len(userIDs))
	for _, userID := range userIDs {
		cmds[userID] = pipe.Get(ctx, presenceKeyPrefix+userID)
	}
	if _, err := pipe.Exec(ctx); err != nil && err != goredis.Nil {
		return nil, err
	}

	for userID, cmd := range cmds {
		info := services.PresenceInfo{Status: "offline"}
		if data, err := cmd.Result(); err == nil {
			var status PresenceStatus
			if err := json.Unmarshal([]byte(data), &status); err == nil {
				info.Status = status.Status
				info.LastSeen = status.LastSeen
			}
		}
		result[userID] = info
	}
	return result, nil
}

// IsOnline checks membership in the online set.
func (p *PresenceStore) IsOnline(ctx context.Context, userID string) (bool, error) {
	return p.client.SIsMember(ctx, presenceOnlineSet, userID).Result()
}

// GetOnlineUsers returns all online user IDs.
func (p *PresenceStore) GetOnlineUsers(ctx context.Context) ([]string, error) {
	return p.client.SMembers(ctx, presenceOnlineSet).Result()
}

// TrackTyping records that userID is typing to peerID. The entry expires on
// its own; stopTyping just clears it earlier.
func (p *PresenceStore) TrackTyping(ctx context.Context, userID, peerID string, isTyping bool) error {
	key := fmt.Sprintf("%s%s", typingKeyPrefix, userID)
	if isTyping {
		pipe := p.client.Pipeline()
		pipe.SAdd(ctx, key, peerID)
		pipe.Expire(ctx, key, 10*time.Second)
		_, err := pipe.Exec(ctx)
		return err
	}
	return p.client.SRem(ctx, key, peerID).Err()
}

// GetTypingPeers returns the peers userID is currently typing to.
func (p *PresenceStore) GetTypingPeers(ctx context.Context, userID string) ([]string, error) {
	return p.client.SMembers(ctx, typingKeyPrefix+userID).Result()
}
