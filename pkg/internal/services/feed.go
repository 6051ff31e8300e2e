package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

const DefaultPageSize = 10

// Feed is the paginated newest-first view over the posts namespace. It keeps
// the page cursor and the materialized post list for one session; realtime
// deltas patch the list in place without disturbing pagination.
type Feed struct {
	mu       sync.Mutex
	sess     *session.Session
	pageSize int

	posts  []models.Post
	cursor *int64
}

func NewFeed(sess *session.Session, pageSize int) *Feed {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &Feed{sess: sess, pageSize: pageSize}
}

// LoadInitial fetches the newest page and resets the cursor to its oldest
// timestamp. Records that fail normalization are skipped with a warning,
// never surfaced as errors.
func (f *Feed) LoadInitial(ctx context.Context) ([]models.Post, error) {
	entries, err := f.sess.Store.Query(ctx, "posts", store.QueryOpts{
		OrderBy:     "timestamp",
		LimitToLast: f.pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to load feed: %v", err)
	}

	page := decodePosts(entries)
	sortNewestFirst(page)

	f.mu.Lock()
	f.posts = page
	f.cursor = nil
	if len(page) > 0 {
		oldest := page[len(page)-1].Timestamp
		f.cursor = &oldest
	}
	f.mu.Unlock()

	return f.Posts(), nil
}

// LoadOlder fetches the page preceding the cursor and appends it. Without a
// cursor there is nothing older to fetch and the call is a no-op returning an
// empty page.
func (f *Feed) LoadOlder(ctx context.Context) ([]models.Post, error) {
	f.mu.Lock()
	cursor := f.cursor
	f.mu.Unlock()
	if cursor == nil {
		return nil, nil
	}

	// The end-at bound is inclusive, stepping one millisecond below the
	// cursor excludes the already-loaded boundary post.
	endAt := float64(*cursor - 1)
	entries, err := f.sess.Store.Query(ctx, "posts", store.QueryOpts{
		OrderBy:     "timestamp",
		EndAt:       &endAt,
		LimitToLast: f.pageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("unable to load older posts: %v", err)
	}

	page := decodePosts(entries)
	sortNewestFirst(page)

	f.mu.Lock()
	known := lo.Map(f.posts, func(post models.Post, _ int) string { return post.ID })
	for _, post := range page {
		if !lo.Contains(known, post.ID) {
			f.posts = append(f.posts, post)
		}
	}
	if len(page) > 0 {
		oldest := page[len(page)-1].Timestamp
		f.cursor = &oldest
	}
	f.mu.Unlock()

	return page, nil
}

// ApplyDelta patches a changed post into the materialized list in place.
// Posts outside the loaded window are ignored, they arrive with the next
// page. A removed key drops out of the list immediately.
func (f *Feed) ApplyDelta(event store.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch event.Type {
	case store.EventChildRemoved:
		f.posts = lo.Filter(f.posts, func(post models.Post, _ int) bool {
			return post.ID != event.Key
		})
	case store.EventChildChanged, store.EventChildAdded:
		post, ok := models.PostFromValue(event.Value)
		if !ok {
			log.Warn().Str("key", event.Key).Msg("Skipping malformed post in feed delta.")
			return
		}
		for idx := range f.posts {
			if f.posts[idx].ID == post.ID {
				f.posts[idx] = post
				return
			}
		}
		// New posts are newer than the loaded window by construction, they
		// go in at the top.
		if event.Type == store.EventChildAdded {
			f.posts = append([]models.Post{post}, f.posts...)
		}
	}
}

// Watch opens a posts subscription whose child events feed ApplyDelta.
func (f *Feed) Watch() (*store.Subscription, error) {
	return f.sess.Store.Watch("posts")
}

// Posts returns a copy of the materialized list, newest first.
func (f *Feed) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.Post, len(f.posts))
	copy(out, f.posts)
	return out
}

// HasOlder reports whether a pagination cursor is set.
func (f *Feed) HasOlder() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cursor != nil
}

// Forest materializes the reply tree of a post.
func (f *Feed) Forest(post models.Post) []models.ReplyNode {
	return BuildReplyForest(post.Replies, nil)
}

// BuildReplyForest groups replies by parent id and materializes the forest
// from the top-level comments down. Children order within a level follows the
// append key, which is time-prefixed. Replies whose parent chain never
// reaches the root are left out, the original renderer drops them the same
// way.
func BuildReplyForest(replies map[string]models.Reply, parentID *string) []models.ReplyNode {
	byParent := map[string][]string{}
	for key, reply := range replies {
		parent := ""
		if reply.ParentID != nil {
			parent = *reply.ParentID
		}
		byParent[parent] = append(byParent[parent], key)
	}
	for _, keys := range byParent {
		sort.Strings(keys)
	}

	root := ""
	if parentID != nil {
		root = *parentID
	}
	return materializeReplies(replies, byParent, root)
}

func materializeReplies(replies map[string]models.Reply, byParent map[string][]string, parent string) []models.ReplyNode {
	keys := byParent[parent]
	nodes := make([]models.ReplyNode, 0, len(keys))
	for _, key := range keys {
		reply := replies[key]
		childKey := reply.ID
		if len(childKey) == 0 {
			childKey = key
		}
		nodes = append(nodes, models.ReplyNode{
			Key:      key,
			Reply:    reply,
			Children: materializeReplies(replies, byParent, childKey),
		})
	}
	return nodes
}

// UserPosts lists every post authored by a client id, newest first.
func (f *Feed) UserPosts(ctx context.Context, clientID string) ([]models.Post, error) {
	return f.scan(ctx, func(post models.Post) bool {
		return post.ClientID == clientID
	})
}

// SavedPosts resolves the session profile's saved list against the posts
// namespace; saved ids whose post is gone are skipped silently.
func (f *Feed) SavedPosts(ctx context.Context) ([]models.Post, error) {
	saved := f.sess.Profile().SavedPosts
	if len(saved) == 0 {
		return nil, nil
	}
	return f.scan(ctx, func(post models.Post) bool {
		return lo.Contains(saved, post.ID)
	})
}

// VideoPosts lists only posts carrying a video, newest first.
func (f *Feed) VideoPosts(ctx context.Context) ([]models.Post, error) {
	return f.scan(ctx, func(post models.Post) bool {
		return len(post.Video) > 0
	})
}

// Explore returns the whole feed in randomized order.
func (f *Feed) Explore(ctx context.Context) ([]models.Post, error) {
	posts, err := f.scan(ctx, func(models.Post) bool { return true })
	if err != nil {
		return nil, err
	}
	return lo.Shuffle(posts), nil
}

// SearchFilter narrows a feed search; zero values leave a dimension
// unconstrained. Day is matched against the post's calendar date in local
// time, formatted 2006-01-02.
type SearchFilter struct {
	Term string `json:"term"`
	Day  string `json:"day"`
	User string `json:"user"`
}

// Search scans the feed for posts matching every set filter dimension.
func (f *Feed) Search(ctx context.Context, filter SearchFilter) ([]models.Post, error) {
	term := strings.ToLower(filter.Term)
	user := strings.ToLower(filter.User)
	return f.scan(ctx, func(post models.Post) bool {
		if len(term) > 0 && !strings.Contains(strings.ToLower(post.Content), term) {
			return false
		}
		if len(user) > 0 && !strings.Contains(strings.ToLower(post.User), user) {
			return false
		}
		if len(filter.Day) > 0 {
			day := time.UnixMilli(post.Timestamp).Format("2006-01-02")
			if day != filter.Day {
				return false
			}
		}
		return true
	})
}

// FeedStats aggregates engagement across the whole posts namespace.
type FeedStats struct {
	TotalPosts      int            `json:"totalPosts"`
	LikesPerPost    map[string]int `json:"likesPerPost"`
	CommentsPerPost map[string]int `json:"commentsPerPost"`
	PostsPerDay     map[string]int `json:"postsPerDay"`
}

// Stats computes the activity summary backing the insights view.
func (f *Feed) Stats(ctx context.Context) (FeedStats, error) {
	posts, err := f.scan(ctx, func(models.Post) bool { return true })
	if err != nil {
		return FeedStats{}, err
	}

	stats := FeedStats{
		TotalPosts:      len(posts),
		LikesPerPost:    map[string]int{},
		CommentsPerPost: map[string]int{},
		PostsPerDay:     map[string]int{},
	}
	for _, post := range posts {
		stats.LikesPerPost[post.ID] = len(post.Likes)
		stats.CommentsPerPost[post.ID] = len(post.Replies)
		day := time.UnixMilli(post.Timestamp).Format("2006-01-02")
		stats.PostsPerDay[day]++
	}
	return stats, nil
}

func (f *Feed) scan(ctx context.Context, match func(models.Post) bool) ([]models.Post, error) {
	entries, err := f.sess.Store.Query(ctx, "posts", store.QueryOpts{OrderBy: "timestamp"})
	if err != nil {
		return nil, fmt.Errorf("unable to scan posts: %v", err)
	}
	posts := lo.Filter(decodePosts(entries), func(post models.Post, _ int) bool {
		return match(post)
	})
	sortNewestFirst(posts)
	return posts, nil
}

func decodePosts(entries []store.Entry) []models.Post {
	posts := make([]models.Post, 0, len(entries))
	for _, entry := range entries {
		post, ok := models.PostFromValue(entry.Value)
		if !ok {
			log.Warn().Str("key", entry.Key).Msg("Skipping malformed post record.")
			continue
		}
		posts = append(posts, post)
	}
	return posts
}

func sortNewestFirst(posts []models.Post) {
	sort.SliceStable(posts, func(i, j int) bool {
		return posts[i].Timestamp > posts[j].Timestamp
	})
}
