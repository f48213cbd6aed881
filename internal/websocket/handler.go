package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"murmur-chat/internal/events"
	"murmur-chat/internal/presence"
	"murmur-chat/internal/services"
	"murmur-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
)

// Handler upgrades sockets and dispatches inbound events. Connections are
// anonymous until a join event names the user; every other event on an
// unjoined socket is answered with a messageError.
type Handler struct {
	hub      *Hub
	tracker  *presence.Tracker
	messages *services.MessageService
	typing   TypingStore
	log      *logger.Logger

	dispatch map[events.Kind]func(*Client, json.RawMessage)
}

// TypingStore mirrors typing indicators with a TTL so late subscribers can
// query them. Best effort; relay does not depend on it.
type TypingStore interface {
	TrackTyping(ctx context.Context, userID, peerID string, isTyping bool) error
}

func NewHandler(hub *Hub, tracker *presence.Tracker, messages *services.MessageService, typing TypingStore, log *logger.Logger) *Handler {
	h := &Handler{
		hub:      hub,
		tracker:  tracker,
		messages: messages,
		typing:   typing,
		log:      log,
	}
	h.dispatch = map[events.Kind]func(*Client, json.RawMessage){
		events.KindJoin:        h.handleJoin,
		events.KindSendMessage: h.handleSendMessage,
		events.KindTyping:      h.handleTyping(true),
		events.KindStopTyping:  h.handleTyping(false),
		events.KindUserOnline:  h.handleStatus(presence.StatusOnline),
		events.KindUserOffline: h.handleStatus(presence.StatusOffline),
		events.KindMessageRead: h.handleMessageRead,
		events.KindCallUser:    h.handleCallSignal(events.KindIncomingCall),
		events.KindAnswerCall:  h.handleCallSignal(events.KindCallAnswered),
		events.KindEndCall:     h.handleCallSignal(events.KindCallEnded),
	}
	return h
}

// Connect upgrades the request and runs the read loop until the socket
// closes. Teardown unregisters the connection and lets the tracker decide
// whether the user went offline.
func (h *Handler) Connect(c *gin.Context) {
	upgrader := gorilla.Upgrader{
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	client := NewClient(conn)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go client.WriteLoop(ctx)

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		h.handleFrame(client, data)
	}

	h.hub.Unregister(client)
	if client.UserID != "" {
		h.tracker.Disconnect(client.UserID, client.ID)
	}
}

func (h *Handler) handleFrame(client *Client, data []byte) {
	var env events.Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		h.sendError(client, "malformed event frame")
		return
	}
	fn, ok := h.dispatch[env.Event]
	if !ok {
		h.sendError(client, "unknown event: "+string(env.Event))
		return
	}
	fn(client, env.Payload)
}

func (h *Handler) handleJoin(client *Client, payload json.RawMessage) {
	var p events.JoinPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(client, "malformed join payload")
		return
	}
	if _, err := uuid.Parse(p.UserID); err != nil {
		h.sendError(client, "invalid user id")
		return
	}
	if client.UserID != "" {
		h.sendError(client, "already joined")
		return
	}
	client.UserID = p.UserID
	h.hub.Register(client)
	h.tracker.Connect(p.UserID, client.ID)
	h.log.Infof("socket joined: user=%s conn=%s", p.UserID, client.ID)
}

func (h *Handler) handleSendMessage(client *Client, payload json.RawMessage) {
	sender, ok := h.requireJoin(client)
	if !ok {
		return
	}
	var p events.SendMessagePayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(client, "malformed sendMessage payload")
		return
	}
	receiver, err := uuid.Parse(p.Receiver)
	if err != nil {
		h.sendError(client, "invalid receiver id")
		return
	}
	var replyTo *uuid.UUID
	if p.ReplyTo != "" {
		id, err := uuid.Parse(p.ReplyTo)
		if err != nil {
			h.sendError(client, "invalid replyTo id")
			return
		}
		replyTo = &id
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// The service persists first and fans out newMessage to both
	// participants; a live-path failure surfaces only on this socket.
	_, err = h.messages.Send(ctx, sender, services.SendInput{
		ReceiverID:  receiver,
		Body:        p.Text,
		Kind:        p.MessageType,
		MediaURL:    p.MediaURL,
		ReplyToID:   replyTo,
		OneTimeView: p.OneTimeView,
	})
	if err != nil {
		h.sendError(client, err.Error())
	}
}

func (h *Handler) handleTyping(start bool) func(*Client, json.RawMessage) {
	kind := events.KindUserTyping
	if !start {
		kind = events.KindUserEndTyping
	}
	return func(client *Client, payload json.RawMessage) {
		sender, ok := h.requireJoin(client)
		if !ok {
			return
		}
		var p events.TypingPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			h.sendError(client, "malformed typing payload")
			return
		}
		if h.typing != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := h.typing.TrackTyping(ctx, sender.String(), p.Receiver, start); err != nil {
				h.log.Warnf("typing mirror failed: %s", err)
			}
			cancel()
		}
		frame, err := events.Marshal(kind, events.TypingPayload{Sender: sender.String(), Receiver: p.Receiver})
		if err != nil {
			return
		}
		h.hub.RouteToUser(p.Receiver, frame)
	}
}

func (h *Handler) handleStatus(status presence.Status) func(*Client, json.RawMessage) {
	return func(client *Client, payload json.RawMessage) {
		userID, ok := h.requireJoin(client)
		if !ok {
			return
		}
		h.tracker.SetStatus(userID.String(), status)
	}
}

func (h *Handler) handleMessageRead(client *Client, payload json.RawMessage) {
	reader, ok := h.requireJoin(client)
	if !ok {
		return
	}
	var p events.MessageReadPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		h.sendError(client, "malformed messageRead payload")
		return
	}
	messageID, err := uuid.Parse(p.MessageID)
	if err != nil {
		h.sendError(client, "invalid message id")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := h.messages.MarkRead(ctx, messageID, reader); err != nil {
		h.sendError(client, err.Error())
	}
}

func (h *Handler) handleCallSignal(outbound events.Kind) func(*Client, json.RawMessage) {
	return func(client *Client, payload json.RawMessage) {
		from, ok := h.requireJoin(client)
		if !ok {
			return
		}
		var p events.CallSignalPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			h.sendError(client, "malformed call payload")
			return
		}
		if p.To == "" {
			h.sendError(client, "missing call target")
			return
		}
		// Signaling payloads are forwarded opaquely; only the target id is
		// interpreted here.
		frame, err := events.Marshal(outbound, events.CallSignalPayload{
			From:   from.String(),
			To:     p.To,
			Signal: p.Signal,
		})
		if err != nil {
			return
		}
		h.hub.RouteToUser(p.To, frame)
	}
}

func (h *Handler) requireJoin(client *Client) (uuid.UUID, bool) {
	if client.UserID == "" {
		h.sendError(client, "join required")
		return uuid.UUID{}, false
	}
	id, err := uuid.Parse(client.UserID)
	if err != nil {
		h.sendError(client, "invalid session user")
		return uuid.UUID{}, false
	}
	return id, true
}

// sendError reports a live-path failure to the originating connection only.
// It never tears the connection down.
func (h *Handler) sendError(client *Client, msg string) {
	frame, err := events.Marshal(events.KindMessageError, events.ErrorPayload{Message: msg})
	if err != nil {
		return
	}
	client.TrySend(frame)
}
