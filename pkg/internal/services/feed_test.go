package services

import (
	"context"
	"fmt"
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

func timestampsOf(posts []models.Post) []int64 {
	return lo.Map(posts, func(post models.Post, _ int) int64 { return post.Timestamp })
}

func TestFeedPaginationWalksBackwards(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")
	for idx, ts := range []int64{500, 400, 300, 200, 100} {
		writePost(t, m, fmt.Sprintf("p%d", idx), "author", ts)
	}

	feed := NewFeed(sess, 2)
	ctx := context.Background()

	page, err := feed.LoadInitial(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{500, 400}, timestampsOf(page))
	assert.True(t, feed.HasOlder())

	page, err = feed.LoadOlder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200}, timestampsOf(page))

	page, err = feed.LoadOlder(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{100}, timestampsOf(page))

	page, err = feed.LoadOlder(ctx)
	require.NoError(t, err)
	assert.Empty(t, page)

	assert.Equal(t, []int64{500, 400, 300, 200, 100}, timestampsOf(feed.Posts()))
}

func TestFeedLoadOlderWithoutCursorIsNoop(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")

	feed := NewFeed(sess, 2)
	page, err := feed.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.Nil(t, page)
}

func TestFeedSkipsMalformedRecords(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")
	writePost(t, m, "good", "author", 100)
	require.NoError(t, m.Write(context.Background(), "posts/bad", map[string]any{
		"timestamp": float64(200),
	}))

	feed := NewFeed(sess, 10)
	page, err := feed.LoadInitial(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "good", page[0].ID)
}

func TestFeedAppliesNormalizationDefaults(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")
	require.NoError(t, m.Write(context.Background(), "posts/p1", map[string]any{
		"id":        "p1",
		"timestamp": float64(100),
	}))

	feed := NewFeed(sess, 10)
	page, err := feed.LoadInitial(context.Background())
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, models.PlaceholderContent, page[0].Content)
	assert.NotNil(t, page[0].Likes)
	assert.NotNil(t, page[0].Replies)
}

func TestFeedApplyDeltaPatchesInPlace(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")
	writePost(t, m, "p1", "author", 100)

	feed := NewFeed(sess, 10)
	_, err := feed.LoadInitial(context.Background())
	require.NoError(t, err)

	changed := models.Post{ID: "p1", Content: "edited", ClientID: "author", Timestamp: 100}
	feed.ApplyDelta(store.Event{
		Type:  store.EventChildChanged,
		Path:  "posts",
		Key:   "p1",
		Value: changed.ToValue(),
	})

	posts := feed.Posts()
	require.Len(t, posts, 1)
	assert.Equal(t, "edited", posts[0].Content)

	feed.ApplyDelta(store.Event{Type: store.EventChildRemoved, Path: "posts", Key: "p1"})
	assert.Empty(t, feed.Posts())
}

func replyWith(id, clientID string, parentID *string, ts int64) models.Reply {
	return models.Reply{
		ID:        id,
		Content:   "reply " + id,
		ClientID:  clientID,
		Timestamp: ts,
		Likes:     []string{},
		ParentID:  parentID,
	}
}

func TestBuildReplyForestGroupsByParent(t *testing.T) {
	r1 := "r1"
	r2 := "r2"
	replies := map[string]models.Reply{
		"k1": replyWith("r1", "a", nil, 10),
		"k2": replyWith("r2", "b", &r1, 20),
		"k3": replyWith("r3", "c", &r2, 30),
		"k4": replyWith("r4", "d", nil, 40),
	}

	forest := BuildReplyForest(replies, nil)
	require.Len(t, forest, 2)
	assert.Equal(t, "k1", forest[0].Key)
	assert.Equal(t, "k4", forest[1].Key)

	require.Len(t, forest[0].Children, 1)
	assert.Equal(t, "k2", forest[0].Children[0].Key)
	require.Len(t, forest[0].Children[0].Children, 1)
	assert.Equal(t, "k3", forest[0].Children[0].Children[0].Key)
	assert.Empty(t, forest[1].Children)
}

func TestBuildReplyForestDropsOrphans(t *testing.T) {
	missing := "never-existed"
	replies := map[string]models.Reply{
		"k1": replyWith("r1", "a", nil, 10),
		"k2": replyWith("r2", "b", &missing, 20),
	}

	forest := BuildReplyForest(replies, nil)
	require.Len(t, forest, 1)
	assert.Equal(t, "k1", forest[0].Key)
}

func TestFeedScansAndFilters(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")
	ctx := context.Background()

	writePost(t, m, "p1", "alice", 100)
	writePost(t, m, "p2", "bob", 200)
	video := models.Post{ID: "p3", Content: "clip", ClientID: "bob", Timestamp: 300, Video: "https://cdn/clip.mp4", Likes: []string{"alice"}}
	require.NoError(t, m.Write(ctx, store.PostPath("p3"), video.ToValue()))

	feed := NewFeed(sess, 10)

	byUser, err := feed.UserPosts(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, []int64{300, 200}, timestampsOf(byUser))

	videos, err := feed.VideoPosts(ctx)
	require.NoError(t, err)
	require.Len(t, videos, 1)
	assert.Equal(t, "p3", videos[0].ID)

	matches, err := feed.Search(ctx, SearchFilter{Term: "clip"})
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "p3", matches[0].ID)

	stats, err := feed.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalPosts)
	assert.Equal(t, 1, stats.LikesPerPost["p3"])
}

func TestFeedSavedPostsResolvesProfileList(t *testing.T) {
	m := store.NewMemory()
	sess := openSession(t, m, "reader@mail.com", "reader")
	ctx := context.Background()

	writePost(t, m, "p1", "author", 100)
	writePost(t, m, "p2", "author", 200)

	profile := sess.Profile()
	profile.SavedPosts = []string{"p2", "gone"}
	sess.SetProfile(profile)

	feed := NewFeed(sess, 10)
	saved, err := feed.SavedPosts(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Equal(t, "p2", saved[0].ID)
}
