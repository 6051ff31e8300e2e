package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Messaging runs two-party threads for the bound session. The thread id is
// derived from the sorted member pair so both sides compute the same one
// independently; messages are append-only under a shared namespace while each
// member keeps an own conversation listing.
type Messaging struct {
	sess *session.Session
}

func NewMessaging(sess *session.Session) *Messaging {
	return &Messaging{sess: sess}
}

// OpenConversation registers the thread with the session user and the target
// and returns its id. The two listing writes are separate, one side can land
// without the other; the next open from either side repairs the listing.
func (e *Messaging) OpenConversation(ctx context.Context, targetID string) (string, error) {
	if targetID == e.sess.ClientID() {
		return "", fmt.Errorf("cannot open a conversation with yourself")
	}

	conversationID := models.ConversationID(e.sess.ClientID(), targetID)
	conversation := models.Conversation{
		Members: []string{e.sess.ClientID(), targetID},
	}

	ownPath := store.ConversationPath(e.sess.EmailKey(), e.sess.ClientID(), conversationID)
	if err := e.sess.Store.Write(ctx, ownPath, conversation.ToValue()); err != nil {
		return "", fmt.Errorf("unable to register conversation: %v", err)
	}

	target, err := FindProfile(ctx, e.sess.Store, targetID)
	if err != nil {
		return "", err
	}
	targetPath := store.ConversationPath(store.EmailKey(target.Email), target.ClientID, conversationID)
	if err := e.sess.Store.Write(ctx, targetPath, conversation.ToValue()); err != nil {
		return "", fmt.Errorf("unable to register conversation for the other member: %v", err)
	}

	return conversationID, nil
}

// SendMessage appends to the thread. Membership is derived from the id, a
// sender outside the pair is rejected before any write.
func (e *Messaging) SendMessage(ctx context.Context, conversationID, text string) (models.Message, error) {
	text = strings.TrimSpace(text)
	if len(text) == 0 {
		return models.Message{}, fmt.Errorf("cannot send an empty message")
	}
	if !memberOfConversation(conversationID, e.sess.ClientID()) {
		return models.Message{}, fmt.Errorf("not a member of this conversation")
	}

	message := models.Message{
		Text:      text,
		SenderID:  e.sess.ClientID(),
		Timestamp: time.Now().UnixMilli(),
	}
	if _, err := e.sess.Store.Append(ctx, store.MessagesPath(conversationID), message.ToValue()); err != nil {
		return models.Message{}, fmt.Errorf("unable to send message: %v", err)
	}

	return message, nil
}

// Messages lists the thread in send order.
func (e *Messaging) Messages(ctx context.Context, conversationID string) ([]models.Message, error) {
	if !memberOfConversation(conversationID, e.sess.ClientID()) {
		return nil, fmt.Errorf("not a member of this conversation")
	}

	entries, err := e.sess.Store.Query(ctx, store.MessagesPath(conversationID), store.QueryOpts{
		OrderBy: "timestamp",
	})
	if err != nil {
		return nil, fmt.Errorf("unable to load messages: %v", err)
	}

	messages := make([]models.Message, 0, len(entries))
	for _, entry := range entries {
		if message, ok := models.MessageFromValue(entry.Value); ok {
			messages = append(messages, message)
		}
	}
	return messages, nil
}

// WatchMessages opens a subscription delivering thread snapshots as they
// grow.
func (e *Messaging) WatchMessages(conversationID string) (*store.Subscription, error) {
	if !memberOfConversation(conversationID, e.sess.ClientID()) {
		return nil, fmt.Errorf("not a member of this conversation")
	}
	return e.sess.Store.Watch(store.MessagesPath(conversationID))
}

// ListConversations reads the session user's own listing, sorted by thread id
// for stable output.
func (e *Messaging) ListConversations(ctx context.Context) ([]models.Conversation, error) {
	raw, err := e.sess.Store.Read(ctx, store.JoinPath(e.sess.ProfilePath(), "conversations"))
	if err != nil {
		return nil, fmt.Errorf("unable to load conversations: %v", err)
	}
	listing, ok := raw.(map[string]any)
	if !ok {
		return nil, nil
	}

	conversations := make([]models.Conversation, 0, len(listing))
	for id, value := range listing {
		conversation := models.Conversation{ID: id}
		if mapping, ok := value.(map[string]any); ok {
			if members, ok := mapping["members"].([]any); ok {
				for _, member := range members {
					if name, ok := member.(string); ok {
						conversation.Members = append(conversation.Members, name)
					}
				}
			}
		}
		if len(conversation.Members) == 0 {
			conversation.Members = strings.Split(id, "_")
		}
		conversations = append(conversations, conversation)
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].ID < conversations[j].ID
	})
	return conversations, nil
}

// memberOfConversation checks membership against the id itself; the id is the
// sorted member pair joined with an underscore.
func memberOfConversation(conversationID, clientID string) bool {
	for _, member := range strings.Split(conversationID, "_") {
		if member == clientID {
			return true
		}
	}
	return false
}
