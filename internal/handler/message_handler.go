package handler

import (
	"net/http"

	"murmur-chat/internal/services"
	"murmur-chat/internal/transport/httpdto"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type MessageHandler struct {
	messages *services.MessageService
	chats    *services.ChatService
}

func NewMessageHandler(messages *services.MessageService, chats *services.ChatService) *MessageHandler {
	return &MessageHandler{messages: messages, chats: chats}
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req httpdto.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid request", "INVALID_REQUEST"))
		return
	}

	senderID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	receiverID, err := uuid.Parse(req.ReceiverID)
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid receiver_id", "INVALID_REQUEST"))
		return
	}

	in := services.SendInput{
		ReceiverID:  receiverID,
		Body:        req.Body,
		Kind:        req.Kind,
		MediaURL:    req.MediaURL,
		OneTimeView: req.OneTimeView,
	}
	if req.ReplyTo != "" {
		replyTo, err := uuid.Parse(req.ReplyTo)
		if err != nil {
			c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid reply_to", "INVALID_REQUEST"))
			return
		}
		in.ReplyToID = &replyTo
	}

	result, err := h.messages.Send(c.Request.Context(), senderID, in)
	if err != nil {
		respondError(c, err)
		return
	}

	view := httpdto.NewMessageView(result.Message)
	view.Sender = &result.Sender
	view.Receiver = &result.Receiver
	if result.ReplyTo != nil {
		parent := httpdto.NewMessageView(*result.ReplyTo)
		view.ReplyTo = &parent
	}
	c.JSON(http.StatusCreated, httpdto.NewSuccessResponse(view))
}

// ListBetween returns the conversation with the named counterpart and, as a
// side effect, marks the counterpart's unread messages read.
func (h *MessageHandler) ListBetween(c *gin.Context) {
	counterpartID, err := uuid.Parse(c.Param("userId"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid user id", "INVALID_REQUEST"))
		return
	}
	requesterID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	msgs, err := h.messages.ListBetween(c.Request.Context(), requesterID, counterpartID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]httpdto.MessageView, 0, len(msgs))
	for _, m := range msgs {
		views = append(views, httpdto.NewMessageView(m))
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"messages": views}))
}

func (h *MessageHandler) MarkRead(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	readAt, err := h.messages.MarkRead(c.Request.Context(), messageID, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"read_at": readAt}))
}

func (h *MessageHandler) Delete(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	forEveryone := c.Query("for_everyone") == "true"

	if err := h.messages.Delete(c.Request.Context(), messageID, userID, forEveryone); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse[any](nil))
}

func (h *MessageHandler) ToggleReaction(c *gin.Context) {
	messageID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("invalid message id", "INVALID_REQUEST"))
		return
	}
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}
	var req httpdto.ReactionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Emoji == "" {
		c.JSON(http.StatusBadRequest, httpdto.NewErrorResponse("missing emoji", "INVALID_REQUEST"))
		return
	}

	reactions, err := h.messages.ToggleReaction(c.Request.Context(), messageID, userID, req.Emoji)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]httpdto.ReactionView, 0, len(reactions))
	for _, re := range reactions {
		views = append(views, httpdto.ReactionView{UserID: re.UserID.String(), Emoji: re.Emoji})
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"reactions": views}))
}

func (h *MessageHandler) RecentChats(c *gin.Context) {
	userID, ok := services.UserIDFromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusUnauthorized, httpdto.NewErrorResponse("unauthorized", "UNAUTHORIZED"))
		return
	}

	summaries, err := h.chats.RecentChats(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}

	views := make([]httpdto.ConversationSummaryView, 0, len(summaries))
	for _, s := range summaries {
		views = append(views, httpdto.ConversationSummaryView{
			Counterpart: s.Counterpart,
			LastMessage: httpdto.NewMessageView(s.LastMessage),
			UnreadCount: s.UnreadCount,
			Status:      s.Status,
			LastSeen:    s.LastSeen,
		})
	}
	c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"chats": views}))
}
