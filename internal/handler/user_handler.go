package handler

import (
	"context"
	"net/http"

	"murmur-chat/internal/redis"
	"murmur-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// PresenceReader is the slice of the Redis presence mirror the user
// endpoints need. *redis.PresenceStore satisfies it.
type PresenceReader interface {
	GetPresence(ctx context.Context, userID string) (*redis.PresenceStatus, error)
	IsOnline(ctx context.Context, userID string) (bool, error)
	GetOnlineUsers(ctx context.Context) ([]string, error)
	GetTypingPeers(ctx context.Context, userID string) ([]string, error)
}

type UserHandler struct {
	presence PresenceReader
}

func NewUserHandler(presence PresenceReader) *UserHandler {
	return &UserHandler{presence: presence}
}

// GetPresence reads the presence mirror for a user. The online set is the
// authority when it disagrees with the stored document: the document TTL can
// outlive a membership change.
func (h *UserHandler) GetPresence(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}

	ctx := c.Request.Context()
	status, err := h.presence.GetPresence(ctx, userID.String())
	if err != nil {
		respondError(c, err)
		return
	}

	if online, err := h.presence.IsOnline(ctx, userID.String()); err == nil {
		if !online && status.Status != "offline" {
			status.Status = "offline"
		} else if online && status.Status == "offline" {
			status.Status = "online"
		}
	}

	view := httpdto.PresenceView{
		UserID:   status.UserID,
		Status:   status.Status,
		LastSeen: status.LastSeen,
	}
	if peers, err := h.presence.GetTypingPeers(ctx, userID.String()); err == nil {
		view.TypingTo = peers
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(view))
}

// ListOnline returns the IDs of every user currently in the online set.
func (h *UserHandler) ListOnline(c *gin.Context) {
	users, err := h.presence.GetOnlineUsers(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if users == nil {
		users = []string{}
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"users": users, "count": len(users)}))
}
