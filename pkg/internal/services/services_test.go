package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

func openSession(t *testing.T, s store.Store, email, clientID string) *session.Session {
	t.Helper()
	sess, err := session.Open(context.Background(), s, email, clientID)
	require.NoError(t, err)
	return sess
}

func renameProfile(t *testing.T, sess *session.Session, name string) {
	t.Helper()
	require.NoError(t, sess.Store.Merge(context.Background(), sess.ProfilePath(), map[string]any{
		"displayName": name,
	}))
	profile := sess.Profile()
	profile.DisplayName = name
	sess.SetProfile(profile)
}

func writePost(t *testing.T, s store.Store, id string, clientID string, timestamp int64) {
	t.Helper()
	post := models.Post{
		ID:          id,
		Content:     fmt.Sprintf("post %s", id),
		User:        "Autor",
		ClientID:    clientID,
		Email:       "autor@mail.com",
		Timestamp:   timestamp,
		Likes:       []string{},
		Replies:     map[string]models.Reply{},
		PrevLikes:   []string{},
		PrevReplies: map[string]models.Reply{},
	}
	require.NoError(t, s.Write(context.Background(), store.PostPath(id), post.ToValue()))
}
