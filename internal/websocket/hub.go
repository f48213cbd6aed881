package websocket

import (
	"hash/fnv"
	"sync"
)

const shardCount = 32

// Hub is the delivery router: it maps a user id to zero or more live
// clients and relays event frames to them. Targets with no live connection
// are dropped silently; the durable store is the fallback source of truth.
// The registry is sharded by user id so unrelated users never contend.
type Hub struct {
	shards [shardCount]*hubShard

	// onDead is invoked when a client's send buffer overflows and the
	// connection is evicted. Wired to the presence tracker's disconnect.
	onDead func(*Client)
}

type hubShard struct {
	mu    sync.RWMutex
	users map[string]map[*Client]struct{}
}

func NewHub() *Hub {
	h := &Hub{}
	for i := range h.shards {
		h.shards[i] = &hubShard{users: make(map[string]map[*Client]struct{})}
	}
	return h
}

// SetOnDead registers the dead-connection callback. Must be called before
// the hub starts routing.
func (h *Hub) SetOnDead(fn func(*Client)) {
	h.onDead = fn
}

func (h *Hub) shardFor(userID string) *hubShard {
	hash := fnv.New32a()
	hash.Write([]byte(userID))
	return h.shards[hash.Sum32()%shardCount]
}

// Register adds a joined client under its user id.
func (h *Hub) Register(client *Client) {
	if client.UserID == "" {
		return
	}
	s := h.shardFor(client.UserID)
	s.mu.Lock()
	set, ok := s.users[client.UserID]
	if !ok {
		set = make(map[*Client]struct{})
		s.users[client.UserID] = set
	}
	set[client] = struct{}{}
	s.mu.Unlock()
}

// Unregister removes a client from the routing table. Safe to call for
// clients that never joined or were already removed. The send channel stays
// open; WriteLoop shutdown is driven by the connection context, so a route
// holding a stale snapshot cannot hit a closed channel.
func (h *Hub) Unregister(client *Client) {
	if client.UserID == "" {
		return
	}
	s := h.shardFor(client.UserID)
	s.mu.Lock()
	if set, ok := s.users[client.UserID]; ok {
		delete(set, client)
		if len(set) == 0 {
			delete(s.users, client.UserID)
		}
	}
	s.mu.Unlock()
}

// RouteToUser delivers the frame to every live connection for the target.
// A connection that cannot accept the frame within its buffer bound is
// evicted and reported dead. No live connection means the frame is dropped.
func (h *Hub) RouteToUser(userID string, payload []byte) {
	s := h.shardFor(userID)
	s.mu.RLock()
	targets := make([]*Client, 0, len(s.users[userID]))
	for c := range s.users[userID] {
		targets = append(targets, c)
	}
	s.mu.RUnlock()

	for _, c := range targets {
		if !c.TrySend(payload) {
			h.evict(c)
		}
	}
}

// BroadcastAll delivers the frame to every connected client. Used for
// presence updates.
func (h *Hub) BroadcastAll(payload []byte) {
	for _, s := range h.shards {
		s.mu.RLock()
		targets := make([]*Client, 0)
		for _, set := range s.users {
			for c := range set {
				targets = append(targets, c)
			}
		}
		s.mu.RUnlock()

		for _, c := range targets {
			if !c.TrySend(payload) {
				h.evict(c)
			}
		}
	}
}

// ConnectionCount returns the number of live connections for a user.
func (h *Hub) ConnectionCount(userID string) int {
	s := h.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID])
}

func (h *Hub) evict(c *Client) {
	h.Unregister(c)
	c.Close()
	if h.onDead != nil {
		h.onDead(c)
	}
}
