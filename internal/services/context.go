package services

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const userIDKey contextKey = "auth_user_id"

// WithUserID stamps the authenticated user onto the request context.
func WithUserID(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext extracts the authenticated user set by the auth
// middleware.
func UserIDFromContext(ctx context.Context) (uuid.UUID, bool) {
	id, ok := ctx.Value(userIDKey).(uuid.UUID)
	return id, ok
}
