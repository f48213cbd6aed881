package handler

import (
	"fmt"
	"net/http"
	"path"

	"murmur-chat/internal/services"
	"murmur-chat/internal/storage"
	"murmur-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type UploadHandler struct {
	store *storage.Client
}

func NewUploadHandler(store *storage.Client) *UploadHandler {
	return &UploadHandler{store: store}
}

// Presign issues a presigned PUT for a media object. The returned media URL
// is what clients pass as media_url on send.
func (h *UploadHandler) Presign(c *gin.Context) {
	if h.store == nil {
		c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse("media storage not configured", "UNAVAILABLE"))
		return
	}

	var req httpdto.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	key := fmt.Sprintf("media/%s/%s%s", userID, uuid.New(), path.Ext(req.FileName))
	uploadURL, headers, err := h.store.PresignPut(c.Request.Context(), key, req.ContentType, req.SizeBytes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(httpdto.PresignUploadResponse{
		UploadURL: uploadURL,
		Headers:   headers,
		MediaURL:  h.store.FileURL(key),
	}))
}
