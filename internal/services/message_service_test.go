package services

import (
	"context"
	"testing"
	"time"

	"murmur-chat/internal/domain/message"
	"murmur-chat/internal/domain/user"
	"murmur-chat/internal/events"
	"murmur-chat/internal/policy"
	murmur_errors "murmur-chat/pkg/errors"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*MessageService, *fakeMessageRepo, *fakeUserRepo, *fakeRouter, user.Profile, user.Profile) {
	t.Helper()
	alice := user.Profile{ID: uuid.New(), Username: "alice", DisplayName: "Alice"}
	bob := user.Profile{ID: uuid.New(), Username: "bob", DisplayName: "Bob"}

	msgs := newFakeMessageRepo()
	users := newFakeUserRepo(alice, bob)
	router := &fakeRouter{}
	svc := NewMessageService(msgs, users, policy.NewGuard(users), router, nil)
	return svc, msgs, users, router, alice, bob
}

func TestSendPersistsThenRoutes(t *testing.T) {
	svc, msgs, _, router, alice, bob := newTestService(t)
	ctx := context.Background()

	// Every routed frame must already be readable from the store.
	router.onRoute = func(userID string, _ []byte) {
		got, err := msgs.ListForUser(ctx, bob.ID)
		require.NoError(t, err)
		require.NotEmpty(t, got, "routed before persisting")
	}

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hello"})
	require.NoError(t, err)

	assert.Equal(t, alice.ID, res.Message.SenderID)
	assert.Equal(t, bob.ID, res.Message.ReceiverID)
	assert.Equal(t, message.KindText, res.Message.Kind)
	assert.False(t, res.Message.IsRead)
	assert.False(t, res.Message.CreatedAt.IsZero())
	assert.Equal(t, "alice", res.Sender.Username)
	assert.Equal(t, "bob", res.Receiver.Username)

	// Both participants get the live frame.
	assert.Len(t, router.framesFor(bob.ID.String(), events.KindNewMessage), 1)
	assert.Len(t, router.framesFor(alice.ID.String(), events.KindNewMessage), 1)
}

func TestSendValidation(t *testing.T) {
	svc, _, _, _, alice, bob := newTestService(t)
	ctx := context.Background()

	_, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID})
	assert.ErrorIs(t, err, murmur_errors.ErrInvalidInput, "empty body and media")

	_, err = svc.Send(ctx, alice.ID, SendInput{ReceiverID: alice.ID, Body: "hi"})
	assert.ErrorIs(t, err, murmur_errors.ErrInvalidInput, "self send")

	_, err = svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hi", Kind: "hologram"})
	assert.ErrorIs(t, err, murmur_errors.ErrInvalidInput, "unknown kind")

	_, err = svc.Send(ctx, alice.ID, SendInput{ReceiverID: uuid.New(), Body: "hi"})
	assert.ErrorIs(t, err, murmur_errors.ErrNotFound, "unknown receiver")
}

func TestSendBlockedReceiver(t *testing.T) {
	svc, msgs, users, router, alice, bob := newTestService(t)
	ctx := context.Background()

	users.block(bob.ID, alice.ID)

	_, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hello"})
	require.ErrorIs(t, err, murmur_errors.ErrForbidden)

	// Nothing persisted, nothing routed.
	stored, err := msgs.ListForUser(ctx, bob.ID)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, router.frames)
}

func TestSendWithReply(t *testing.T) {
	svc, _, _, _, alice, bob := newTestService(t)
	ctx := context.Background()

	first, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "original"})
	require.NoError(t, err)

	parentID := first.Message.ID
	reply, err := svc.Send(ctx, bob.ID, SendInput{ReceiverID: alice.ID, Body: "reply", ReplyToID: &parentID})
	require.NoError(t, err)

	require.NotNil(t, reply.ReplyTo)
	assert.Equal(t, parentID, reply.ReplyTo.ID)
	assert.True(t, reply.Message.ReplyToID.Valid)

	missing := uuid.New()
	_, err = svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "x", ReplyToID: &missing})
	assert.ErrorIs(t, err, murmur_errors.ErrNotFound)
}

func TestMarkReadIdempotent(t *testing.T) {
	svc, _, _, router, alice, bob := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hello"})
	require.NoError(t, err)

	first, err := svc.MarkRead(ctx, res.Message.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, first.IsZero())

	time.Sleep(5 * time.Millisecond)

	second, err := svc.MarkRead(ctx, res.Message.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first, second, "read_at must survive repeat calls")

	// Only the first transition notifies the sender.
	assert.Len(t, router.framesFor(alice.ID.String(), events.KindMessageReadUpdate), 1)
}

func TestMarkReadOnlyReceiver(t *testing.T) {
	svc, _, _, _, alice, bob := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hello"})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, res.Message.ID, alice.ID)
	assert.ErrorIs(t, err, murmur_errors.ErrForbidden, "sender cannot mark own message read")

	_, err = svc.MarkRead(ctx, uuid.New(), bob.ID)
	assert.ErrorIs(t, err, murmur_errors.ErrNotFound)
}

func TestListBetweenMarksRead(t *testing.T) {
	svc, _, _, router, alice, bob := newTestService(t)
	ctx := context.Background()

	for _, body := range []string{"one", "two", "three"} {
		_, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: body})
		require.NoError(t, err)
	}

	msgs, err := svc.ListBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	for _, m := range msgs {
		assert.True(t, m.IsRead)
		assert.True(t, m.ReadAt.Valid)
	}

	// One read update per transitioned message, addressed to the sender.
	assert.Len(t, router.framesFor(alice.ID.String(), events.KindMessageReadUpdate), 3)

	// A second listing transitions nothing.
	router.frames = nil
	_, err = svc.ListBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, router.framesFor(alice.ID.String(), events.KindMessageReadUpdate))
}

func TestToggleReaction(t *testing.T) {
	svc, _, _, router, alice, bob := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hello"})
	require.NoError(t, err)
	msgID := res.Message.ID

	reactions, err := svc.ToggleReaction(ctx, msgID, bob.ID, "👍")
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, bob.ID, reactions[0].UserID)

	// Same (user, emoji) again removes it.
	reactions, err = svc.ToggleReaction(ctx, msgID, bob.ID, "👍")
	require.NoError(t, err)
	assert.Empty(t, reactions)

	// Third application restores it: toggle, not error.
	reactions, err = svc.ToggleReaction(ctx, msgID, bob.ID, "👍")
	require.NoError(t, err)
	assert.Len(t, reactions, 1)

	// Distinct emoji from a distinct user coexists.
	reactions, err = svc.ToggleReaction(ctx, msgID, alice.ID, "🔥")
	require.NoError(t, err)
	assert.Len(t, reactions, 2)

	_, err = svc.ToggleReaction(ctx, msgID, bob.ID, "")
	assert.ErrorIs(t, err, murmur_errors.ErrInvalidInput)

	// Both participants see every update.
	assert.Len(t, router.framesFor(alice.ID.String(), events.KindReactionUpdate), 4)
	assert.Len(t, router.framesFor(bob.ID.String(), events.KindReactionUpdate), 4)
}

func TestDeleteForEveryone(t *testing.T) {
	svc, _, _, router, alice, bob := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "delete me"})
	require.NoError(t, err)
	msgID := res.Message.ID

	// Receiver may not delete for everyone.
	err = svc.Delete(ctx, msgID, bob.ID, true)
	assert.ErrorIs(t, err, murmur_errors.ErrForbidden)

	require.NoError(t, svc.Delete(ctx, msgID, alice.ID, true))

	got, err := svc.GetByID(ctx, msgID, bob.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDeleted)
	assert.Equal(t, message.DeletedBody, got.Body)
	assert.False(t, got.MediaURL.Valid)

	// The tombstone keeps its place in both views.
	list, err := svc.ListBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)

	assert.Len(t, router.framesFor(alice.ID.String(), events.KindMessageDeleted), 1)
	assert.Len(t, router.framesFor(bob.ID.String(), events.KindMessageDeleted), 1)
}

func TestDeleteForSelfIsLocal(t *testing.T) {
	svc, _, _, router, alice, bob := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "hide me"})
	require.NoError(t, err)
	msgID := res.Message.ID
	router.frames = nil

	require.NoError(t, svc.Delete(ctx, msgID, bob.ID, false))

	// Hidden from bob, intact for alice.
	bobView, err := svc.ListBetween(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.Empty(t, bobView)

	aliceView, err := svc.ListBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, aliceView, 1)
	assert.False(t, aliceView[0].IsDeleted)
	assert.Equal(t, "hide me", aliceView[0].Body)

	// Local deletion owes no live event.
	assert.Empty(t, router.framesFor(alice.ID.String(), events.KindMessageDeleted))

	// Independent layers: hiding then tombstoning still works for alice.
	require.NoError(t, svc.Delete(ctx, msgID, alice.ID, true))
	aliceView, err = svc.ListBetween(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	require.Len(t, aliceView, 1)
	assert.True(t, aliceView[0].IsDeleted)

	// Non-participants cannot delete at all.
	err = svc.Delete(ctx, msgID, uuid.New(), false)
	assert.ErrorIs(t, err, murmur_errors.ErrForbidden)
}

func TestGetByIDParticipantsOnly(t *testing.T) {
	svc, _, _, _, alice, bob := newTestService(t)
	ctx := context.Background()

	res, err := svc.Send(ctx, alice.ID, SendInput{ReceiverID: bob.ID, Body: "private"})
	require.NoError(t, err)

	_, err = svc.GetByID(ctx, res.Message.ID, uuid.New())
	assert.ErrorIs(t, err, murmur_errors.ErrForbidden)

	got, err := svc.GetByID(ctx, res.Message.ID, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "private", got.Body)
}
