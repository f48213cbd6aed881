package websocket

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"murmur-chat/internal/events"
	"murmur-chat/internal/presence"
	"murmur-chat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	gorilla "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type socketFixture struct {
	hub     *Hub
	tracker *presence.Tracker
	server  *httptest.Server
}

func newSocketFixture(t *testing.T) *socketFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub()
	tracker := presence.NewTracker(func(c presence.Change) {
		payload := events.StatusPayload{UserID: c.UserID, Status: string(c.Status)}
		if frame, err := events.Marshal(events.KindUserStatusUpdate, payload); err == nil {
			hub.BroadcastAll(frame)
		}
	})

	h := NewHandler(hub, tracker, nil, nil, logger.New(logger.DevelopmentMode))

	engine := gin.New()
	engine.GET("/ws", h.Connect)

	server := httptest.NewServer(engine)
	t.Cleanup(server.Close)

	return &socketFixture{hub: hub, tracker: tracker, server: server}
}

func (f *socketFixture) dial(t *testing.T) *gorilla.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(f.server.URL, "http") + "/ws"
	conn, _, err := gorilla.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendEvent(t *testing.T, conn *gorilla.Conn, kind events.Kind, payload any) {
	t.Helper()
	frame, err := events.Marshal(kind, payload)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, frame))
}

func readEvent(t *testing.T, conn *gorilla.Conn) events.Envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var env events.Envelope
	require.NoError(t, json.Unmarshal(data, &env))
	return env
}

func join(t *testing.T, f *socketFixture, conn *gorilla.Conn, userID string) {
	t.Helper()
	sendEvent(t, conn, events.KindJoin, events.JoinPayload{UserID: userID})
	require.Eventually(t, func() bool {
		status, _ := f.tracker.Get(userID)
		return status == presence.StatusOnline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketJoinTracksPresence(t *testing.T) {
	f := newSocketFixture(t)
	userID := uuid.New().String()

	conn := f.dial(t)
	join(t, f, conn, userID)

	require.Eventually(t, func() bool {
		return f.hub.ConnectionCount(userID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	// The joiner sees its own status broadcast.
	env := readEvent(t, conn)
	assert.Equal(t, events.KindUserStatusUpdate, env.Event)
	var status events.StatusPayload
	require.NoError(t, json.Unmarshal(env.Payload, &status))
	assert.Equal(t, userID, status.UserID)
	assert.Equal(t, "online", status.Status)

	// Closing the socket takes the user offline.
	conn.Close()
	require.Eventually(t, func() bool {
		status, _ := f.tracker.Get(userID)
		return status == presence.StatusOffline
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSocketRejectsEventsBeforeJoin(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t)

	sendEvent(t, conn, events.KindTyping, events.TypingPayload{Receiver: uuid.New().String()})

	env := readEvent(t, conn)
	require.Equal(t, events.KindMessageError, env.Event)
	var p events.ErrorPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Contains(t, p.Message, "join required")
}

func TestSocketUnknownEvent(t *testing.T) {
	f := newSocketFixture(t)
	conn := f.dial(t)

	require.NoError(t, conn.WriteMessage(gorilla.TextMessage, []byte(`{"event":"teleport","payload":{}}`)))

	env := readEvent(t, conn)
	assert.Equal(t, events.KindMessageError, env.Event)
}

func TestSocketTypingRelay(t *testing.T) {
	f := newSocketFixture(t)
	sender := uuid.New().String()
	receiver := uuid.New().String()

	senderConn := f.dial(t)
	join(t, f, senderConn, sender)
	receiverConn := f.dial(t)
	join(t, f, receiverConn, receiver)

	// Skip the status broadcast the receiver saw for its own join.
	env := readEvent(t, receiverConn)
	require.Equal(t, events.KindUserStatusUpdate, env.Event)

	sendEvent(t, senderConn, events.KindTyping, events.TypingPayload{Receiver: receiver})

	env = readEvent(t, receiverConn)
	require.Equal(t, events.KindUserTyping, env.Event)
	var p events.TypingPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, sender, p.Sender)
	assert.Equal(t, receiver, p.Receiver)
}

func TestSocketCallSignalRelay(t *testing.T) {
	f := newSocketFixture(t)
	caller := uuid.New().String()
	callee := uuid.New().String()

	callerConn := f.dial(t)
	join(t, f, callerConn, caller)
	calleeConn := f.dial(t)
	join(t, f, calleeConn, callee)

	env := readEvent(t, calleeConn)
	require.Equal(t, events.KindUserStatusUpdate, env.Event)

	signal := json.RawMessage(`{"sdp":"offer"}`)
	sendEvent(t, callerConn, events.KindCallUser, events.CallSignalPayload{To: callee, Signal: signal})

	env = readEvent(t, calleeConn)
	require.Equal(t, events.KindIncomingCall, env.Event)
	var p events.CallSignalPayload
	require.NoError(t, json.Unmarshal(env.Payload, &p))
	assert.Equal(t, caller, p.From)
	// The signaling body passes through untouched.
	assert.JSONEq(t, string(signal), string(p.Signal))
}
