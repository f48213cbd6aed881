package presence

import (
	"hash/fnv"
	"sync"
	"time"
)

// Status is a user's connectivity classification.
type Status string

const (
	StatusOnline  Status = "online"
	StatusOffline Status = "offline"
	StatusAway    Status = "away"
	StatusBusy    Status = "busy"
)

func (s Status) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusAway, StatusBusy:
		return true
	}
	return false
}

// Change is raised whenever a user's status transitions.
type Change struct {
	UserID   string
	Status   Status
	LastSeen time.Time
}

const shardCount = 32

// Tracker maps user ids to their live connection handles and derives
// online/offline from the handle count. The registry is sharded by user id
// so unrelated users' connect/disconnect/route traffic never contends on
// one lock.
type Tracker struct {
	shards   [shardCount]*shard
	onChange func(Change)
}

type shard struct {
	mu    sync.Mutex
	users map[string]*userState
}

type userState struct {
	conns    map[string]struct{}
	status   Status
	lastSeen time.Time
}

// NewTracker creates a tracker. onChange may be nil; when set it is invoked
// outside the shard lock for every status transition.
func NewTracker(onChange func(Change)) *Tracker {
	t := &Tracker{onChange: onChange}
	for i := range t.shards {
		t.shards[i] = &shard{users: make(map[string]*userState)}
	}
	return t
}

func (t *Tracker) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return t.shards[h.Sum32()%shardCount]
}

// Connect registers a connection handle under the user. The first live
// handle transitions the user online.
func (t *Tracker) Connect(userID, connID string) {
	s := t.shardFor(userID)
	s.mu.Lock()
	state, ok := s.users[userID]
	if !ok {
		state = &userState{conns: make(map[string]struct{}), status: StatusOffline}
		s.users[userID] = state
	}
	state.conns[connID] = struct{}{}
	transitioned := len(state.conns) == 1 && state.status != StatusOnline
	if transitioned {
		state.status = StatusOnline
	}
	s.mu.Unlock()

	if transitioned {
		t.notify(Change{UserID: userID, Status: StatusOnline})
	}
}

// Disconnect removes a connection handle. When the last handle for the user
// goes away the user transitions offline and last-seen is stamped. Unknown
// handles are ignored, so duplicate teardown paths are safe.
func (t *Tracker) Disconnect(userID, connID string) {
	s := t.shardFor(userID)
	s.mu.Lock()
	state, ok := s.users[userID]
	if !ok {
		s.mu.Unlock()
		return
	}
	delete(state.conns, connID)
	var change *Change
	if len(state.conns) == 0 && state.status != StatusOffline {
		state.status = StatusOffline
		state.lastSeen = time.Now().UTC()
		change = &Change{UserID: userID, Status: StatusOffline, LastSeen: state.lastSeen}
	}
	s.mu.Unlock()

	if change != nil {
		t.notify(*change)
	}
}

// SetStatus applies an explicit client-announced status, independent of the
// connection count. Going offline this way stamps last-seen even while
// connections remain open.
func (t *Tracker) SetStatus(userID string, status Status) {
	if !status.Valid() {
		return
	}
	s := t.shardFor(userID)
	s.mu.Lock()
	state, ok := s.users[userID]
	if !ok {
		state = &userState{conns: make(map[string]struct{}), status: StatusOffline}
		s.users[userID] = state
	}
	if state.status == status {
		s.mu.Unlock()
		return
	}
	state.status = status
	change := Change{UserID: userID, Status: status}
	if status == StatusOffline {
		state.lastSeen = time.Now().UTC()
		change.LastSeen = state.lastSeen
	}
	s.mu.Unlock()

	t.notify(change)
}

// Get returns the user's current status and last-seen timestamp. Users the
// tracker has never seen report offline with a zero last-seen.
func (t *Tracker) Get(userID string) (Status, time.Time) {
	s := t.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.users[userID]
	if !ok {
		return StatusOffline, time.Time{}
	}
	return state.status, state.lastSeen
}

// ConnectionCount returns the number of live handles for the user.
func (t *Tracker) ConnectionCount(userID string) int {
	s := t.shardFor(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.users[userID]
	if !ok {
		return 0
	}
	return len(state.conns)
}

func (t *Tracker) notify(c Change) {
	if t.onChange != nil {
		t.onChange(c)
	}
}
