package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

func TestCreatePostSnapshotsAuthorIdentity(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	renameProfile(t, sess, "Alicia")
	ctx := context.Background()

	posts := NewPosts(sess, nil)
	post, err := posts.Create(ctx, PostDraft{Content: "primer post"})
	require.NoError(t, err)
	assert.Equal(t, "Alicia", post.User)
	assert.Equal(t, "alice", post.ClientID)
	assert.NotZero(t, post.Timestamp)

	raw, err := m.Read(ctx, store.PostPath(post.ID))
	require.NoError(t, err)
	stored, ok := models.PostFromValue(raw)
	require.True(t, ok)
	assert.Equal(t, "primer post", stored.Content)
	assert.Empty(t, stored.Likes)

	// Renames never rewrite old posts.
	renameProfile(t, sess, "Otra")
	raw, _ = m.Read(ctx, store.PostPath(post.ID))
	stored, _ = models.PostFromValue(raw)
	assert.Equal(t, "Alicia", stored.User)
}

func TestCreatePostBumpsCountAndPoints(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	ctx := context.Background()

	posts := NewPosts(sess, nil)
	_, err := posts.Create(ctx, PostDraft{Content: "uno"})
	require.NoError(t, err)
	_, err = posts.Create(ctx, PostDraft{Content: "dos"})
	require.NoError(t, err)

	profile := sess.Profile()
	assert.Equal(t, 2, profile.PostCount)
	assert.Equal(t, 2*PointsForAction[ActionPost], profile.Points)
}

func TestCreatePostRejectsBadDrafts(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	posts := NewPosts(sess, nil)
	ctx := context.Background()

	_, err := posts.Create(ctx, PostDraft{Content: "   "})
	assert.Error(t, err)

	_, err = posts.Create(ctx, PostDraft{
		Content: "media",
		Image:   "https://cdn/pic.png",
		Video:   "https://cdn/clip.mp4",
	})
	assert.Error(t, err)
}

func TestEditPostRequiresOwnership(t *testing.T) {
	m := store.NewMemory()
	alice := openSession(t, m, "alice@mail.com", "alice")
	eve := openSession(t, m, "eve@mail.com", "eve")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	_, err := NewPosts(eve, nil).Edit(ctx, "p1", PostDraft{Content: "hacked"})
	assert.Error(t, err)

	post, err := NewPosts(alice, nil).Edit(ctx, "p1", PostDraft{Content: "actualizado"})
	require.NoError(t, err)
	assert.Equal(t, "actualizado", post.Content)
}

func TestDeletePostRemovesRepliesAndLowersCount(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	ctx := context.Background()

	posts := NewPosts(sess, nil)
	post, err := posts.Create(ctx, PostDraft{Content: "temporal"})
	require.NoError(t, err)
	_, _, err = posts.SubmitReply(ctx, post.ID, "una respuesta", nil)
	require.NoError(t, err)

	require.NoError(t, posts.Delete(ctx, post.ID))

	raw, err := m.Read(ctx, store.PostPath(post.ID))
	require.NoError(t, err)
	assert.Nil(t, raw)
	assert.Zero(t, sess.Profile().PostCount)
}

func TestDeletePostRequiresOwnership(t *testing.T) {
	m := store.NewMemory()
	eve := openSession(t, m, "eve@mail.com", "eve")
	writePost(t, m, "p1", "alice", 100)

	err := NewPosts(eve, nil).Delete(context.Background(), "p1")
	assert.Error(t, err)
}

func TestSubmitReplyThreadsUnderParent(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	posts := NewPosts(sess, nil)
	_, top, err := posts.SubmitReply(ctx, "p1", "primer nivel", nil)
	require.NoError(t, err)
	_, _, err = posts.SubmitReply(ctx, "p1", "segundo nivel", &top.ID)
	require.NoError(t, err)

	raw, err := m.Read(ctx, store.PostPath("p1"))
	require.NoError(t, err)
	post, ok := models.PostFromValue(raw)
	require.True(t, ok)
	require.Len(t, post.Replies, 2)

	forest := BuildReplyForest(post.Replies, nil)
	require.Len(t, forest, 1)
	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "segundo nivel", forest[0].Children[0].Reply.Content)
}

func TestDeleteReplyLeavesDescendantsOrphaned(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	posts := NewPosts(sess, nil)
	topKey, top, err := posts.SubmitReply(ctx, "p1", "raíz", nil)
	require.NoError(t, err)
	_, _, err = posts.SubmitReply(ctx, "p1", "hija", &top.ID)
	require.NoError(t, err)

	require.NoError(t, posts.DeleteReply(ctx, "p1", topKey))

	raw, err := m.Read(ctx, store.PostPath("p1"))
	require.NoError(t, err)
	post, _ := models.PostFromValue(raw)
	require.Len(t, post.Replies, 1)
	assert.Empty(t, BuildReplyForest(post.Replies, nil))
}

func TestToggleReplyLike(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "alice@mail.com", "alice")
	writePost(t, m, "p1", "alice", 100)
	ctx := context.Background()

	posts := NewPosts(sess, nil)
	key, _, err := posts.SubmitReply(ctx, "p1", "me gusta esto", nil)
	require.NoError(t, err)

	liked, err := posts.ToggleReplyLike(ctx, "p1", key)
	require.NoError(t, err)
	assert.True(t, liked)

	liked, err = posts.ToggleReplyLike(ctx, "p1", key)
	require.NoError(t, err)
	assert.False(t, liked)
}
