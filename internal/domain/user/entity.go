package user

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// User represents the users table. Registration and identity verification
// are owned by the identity service; this process only reads users.
type User struct {
	ID           uuid.UUID
	Username     string
	DisplayName  string
	AvatarURL    sql.NullString
	PasswordHash string
	CreatedAt    time.Time
}

// Profile is the minimal projection embedded in message responses.
type Profile struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
}

// Block represents user_blocks: owner has blocked blocked_user.
type Block struct {
	UserID        uuid.UUID
	BlockedUserID uuid.UUID
	CreatedAt     time.Time
}
