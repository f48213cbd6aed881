package httpdto

import "time"

// PresenceView is the presence document served to clients, enriched with
// the peers the user is currently typing to.
type PresenceView struct {
	UserID   string     `json:"user_id"`
	Status   string     `json:"status"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
	TypingTo []string   `json:"typing_to,omitempty"`
}
