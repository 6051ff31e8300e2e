package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

func TestConversationIDIsSymmetric(t *testing.T) {
	assert.Equal(t, models.ConversationID("alice", "bob"), models.ConversationID("bob", "alice"))
	assert.Equal(t, "alice_bob", models.ConversationID("bob", "alice"))
}

func TestOpenConversationRegistersBothListings(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	bob := openSession(t, m, "bob@mail.com", "bob")
	ctx := context.Background()

	conversationID, err := NewMessaging(alice).OpenConversation(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, "alice_bob", conversationID)

	own, err := NewMessaging(alice).ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, conversationID, own[0].ID)
	assert.Equal(t, "bob", own[0].OtherMember("alice"))

	theirs, err := NewMessaging(bob).ListConversations(ctx)
	require.NoError(t, err)
	require.Len(t, theirs, 1)
	assert.Equal(t, conversationID, theirs[0].ID)
}

func TestOpenConversationWithSelfFails(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")

	_, err := NewMessaging(alice).OpenConversation(context.Background(), "alice")
	assert.Error(t, err)
}

func TestSendMessageAppendsInOrder(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	bob := openSession(t, m, "bob@mail.com", "bob")
	ctx := context.Background()

	conversationID, err := NewMessaging(alice).OpenConversation(ctx, "bob")
	require.NoError(t, err)

	_, err = NewMessaging(alice).SendMessage(ctx, conversationID, "hola")
	require.NoError(t, err)
	_, err = NewMessaging(bob).SendMessage(ctx, conversationID, "qué tal")
	require.NoError(t, err)

	messages, err := NewMessaging(alice).Messages(ctx, conversationID)
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "hola", messages[0].Text)
	assert.Equal(t, "alice", messages[0].SenderID)
	assert.Equal(t, "qué tal", messages[1].Text)
	assert.Equal(t, "bob", messages[1].SenderID)
}

func TestSendMessageRejectsEmptyAndStrangers(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	eve := openSession(t, m, "eve@mail.com", "eve")
	ctx := context.Background()

	_, err := NewMessaging(alice).SendMessage(ctx, "alice_bob", "   ")
	assert.Error(t, err)

	_, err = NewMessaging(eve).SendMessage(ctx, "alice_bob", "hola")
	assert.Error(t, err)

	_, err = NewMessaging(eve).Messages(ctx, "alice_bob")
	assert.Error(t, err)
}

func TestWatchMessagesStreamsAppends(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	bob := openSession(t, m, "bob@mail.com", "bob")
	ctx := context.Background()

	conversationID, err := NewMessaging(alice).OpenConversation(ctx, "bob")
	require.NoError(t, err)

	sub, err := NewMessaging(alice).WatchMessages(conversationID)
	require.NoError(t, err)
	defer sub.Close()
	<-sub.Events // initial snapshot

	_, err = NewMessaging(bob).SendMessage(ctx, conversationID, "hola")
	require.NoError(t, err)

	event := <-sub.Events
	assert.Equal(t, store.EventSnapshot, event.Type)
	thread := event.Value.(map[string]any)
	require.Len(t, thread, 1)
}
