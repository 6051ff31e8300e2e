package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Deletion confirmations are suppressed outright so removing content never
// produces a notice of its own.
var deletionMarkers = []string{"eliminada", "eliminado", "eliminó"}

// Notifier is the per-session notification dispatcher. It keeps the visible
// list and unread badge, expires transient notices, and watches the store to
// turn remote writes (new follower, like or reply on an own post) into
// realtime notifications.
type Notifier struct {
	mu           sync.Mutex
	sess         *session.Session
	transientTTL time.Duration
	items        []models.Notification
	badge        int

	knownFollowers []string
	subs           []*store.Subscription
	done           chan struct{}
	wg             sync.WaitGroup
}

func NewNotifier(sess *session.Session, transientTTL time.Duration) *Notifier {
	if transientTTL <= 0 {
		transientTTL = 3 * time.Second
	}
	return &Notifier{
		sess:           sess,
		transientTTL:   transientTTL,
		knownFollowers: sess.Profile().Followers,
		done:           make(chan struct{}),
	}
}

// Notify registers a notification and returns it, or nil when the message
// carries a deletion marker and is dropped.
func (n *Notifier) Notify(message string, realtime bool, actorID, profilePic string) *models.Notification {
	for _, marker := range deletionMarkers {
		if strings.Contains(message, marker) {
			return nil
		}
	}

	item := models.Notification{
		ID:         uuid.NewString(),
		Message:    message,
		Realtime:   realtime,
		ActorID:    actorID,
		ProfilePic: profilePic,
		State:      models.NotificationVisible,
		Target:     classifyTarget(message),
		CreatedAt:  time.Now(),
	}
	if !realtime {
		expires := item.CreatedAt.Add(n.transientTTL)
		item.ExpiresAt = &expires
	}

	n.mu.Lock()
	n.items = append(n.items, item)
	n.badge++
	n.mu.Unlock()

	return &item
}

// Transient shows a short-lived notice with no actor attached.
func (n *Notifier) Transient(message string) {
	n.Notify(message, false, "", "")
}

func (n *Notifier) Visible() []models.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return lo.Filter(n.items, func(item models.Notification, _ int) bool {
		return item.State == models.NotificationVisible
	})
}

func (n *Notifier) BadgeCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.badge
}

// ReadAll clears the unread badge without dismissing anything.
func (n *Notifier) ReadAll() {
	n.mu.Lock()
	n.badge = 0
	n.mu.Unlock()
}

// Click dismisses a notification and reports where the client should go next.
func (n *Notifier) Click(id string) (models.NotificationTarget, string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for idx := range n.items {
		if n.items[idx].ID != id || n.items[idx].State != models.NotificationVisible {
			continue
		}
		n.items[idx].State = models.NotificationTerminal
		if n.badge > 0 {
			n.badge--
		}
		return n.items[idx].Target, n.items[idx].ActorID, true
	}
	return models.NotificationTargetNone, "", false
}

// SweepExpired dismisses transient notices past their deadline; the
// maintenance cron drives it.
func (n *Notifier) SweepExpired() {
	now := time.Now()
	n.mu.Lock()
	defer n.mu.Unlock()
	for idx := range n.items {
		item := &n.items[idx]
		if item.State != models.NotificationVisible || item.ExpiresAt == nil {
			continue
		}
		if item.ExpiresAt.Before(now) {
			item.State = models.NotificationDismissed
			if n.badge > 0 {
				n.badge--
			}
		}
	}
}

// Start opens the store watches feeding realtime notifications. Stop cancels
// them and waits for the pumps to drain.
func (n *Notifier) Start() error {
	followSub, err := n.sess.Store.Watch(n.sess.ProfilePath())
	if err != nil {
		return fmt.Errorf("unable to watch own profile: %v", err)
	}
	postsSub, err := n.sess.Store.Watch("posts")
	if err != nil {
		followSub.Close()
		return fmt.Errorf("unable to watch posts: %v", err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, followSub, postsSub)
	n.mu.Unlock()

	n.wg.Add(2)
	go n.pumpFollowers(followSub)
	go n.pumpPosts(postsSub)
	return nil
}

func (n *Notifier) Stop() {
	n.mu.Lock()
	subs := n.subs
	n.subs = nil
	n.mu.Unlock()
	for _, sub := range subs {
		sub.Close()
	}
	close(n.done)
	n.wg.Wait()
}

func (n *Notifier) pumpFollowers(sub *store.Subscription) {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if event.Type != store.EventSnapshot {
				continue
			}
			profile, ok := models.ProfileFromValue(event.Value)
			if !ok {
				continue
			}
			n.diffFollowers(profile.Followers)
		}
	}
}

// diffFollowers compares the incoming followers array against the last seen
// one and announces each delta.
func (n *Notifier) diffFollowers(current []string) {
	n.mu.Lock()
	previous := n.knownFollowers
	n.knownFollowers = current
	n.mu.Unlock()

	for _, actorID := range lo.Without(current, previous...) {
		actor, err := FindProfile(context.Background(), n.sess.Store, actorID)
		if err != nil {
			log.Warn().Err(err).Str("actor", actorID).Msg("Unable to resolve new follower.")
			continue
		}
		n.Notify(fmt.Sprintf("%s te empezó a seguir", actor.DisplayName), true, actor.ClientID, actor.ProfilePic)
	}
	for _, actorID := range lo.Without(previous, current...) {
		actor, err := FindProfile(context.Background(), n.sess.Store, actorID)
		if err != nil {
			continue
		}
		n.Notify(fmt.Sprintf("%s dejó de seguirte", actor.DisplayName), true, actor.ClientID, actor.ProfilePic)
	}
}

func (n *Notifier) pumpPosts(sub *store.Subscription) {
	defer n.wg.Done()
	for {
		select {
		case <-n.done:
			return
		case event, ok := <-sub.Events:
			if !ok {
				return
			}
			if event.Type != store.EventChildChanged && event.Type != store.EventChildAdded {
				continue
			}
			post, ok := models.PostFromValue(event.Value)
			if !ok {
				continue
			}
			n.handlePostChange(post)
		}
	}
}

// handlePostChange diffs a changed own post against its persisted snapshot
// fields, announces the new likes and replies, then advances the snapshot so
// the same delta never fires twice.
func (n *Notifier) handlePostChange(post models.Post) {
	if post.ClientID != n.sess.ClientID() {
		return
	}

	subject := lo.Ternary(len(post.Video) > 0, "tu video", "tu publicación")

	for _, actorID := range lo.Without(likerIDs(post.Likes), post.PrevLikes...) {
		if actorID == n.sess.ClientID() {
			continue
		}
		actor, err := FindProfile(context.Background(), n.sess.Store, actorID)
		if err != nil {
			log.Warn().Err(err).Str("actor", actorID).Msg("Unable to resolve liker.")
			continue
		}
		n.Notify(fmt.Sprintf("%s le dio like a %s", actor.DisplayName, subject), true, actor.ClientID, actor.ProfilePic)
	}

	for key, reply := range post.Replies {
		if _, seen := post.PrevReplies[key]; seen || reply.ClientID == n.sess.ClientID() {
			continue
		}
		name := reply.User
		if len(name) == 0 {
			name = models.DefaultDisplayName
		}
		n.Notify(fmt.Sprintf("%s comentó en %s", name, subject), true, reply.ClientID, reply.ProfilePic)
	}

	// Advance the snapshot only when it lags, an unconditional write would
	// echo back through the watch forever.
	if snapshotCurrent(post) {
		return
	}
	snapshot := map[string]any{
		"prevLikes":   likerIDs(post.Likes),
		"prevReplies": repliesValue(post.Replies),
	}
	if err := n.sess.Store.Merge(context.Background(), store.PostPath(post.ID), snapshot); err != nil {
		log.Error().Err(err).Str("post", post.ID).Msg("An error occurred when advancing notification snapshot.")
	}
}

func snapshotCurrent(post models.Post) bool {
	if len(lo.Without(likerIDs(post.Likes), post.PrevLikes...)) > 0 ||
		len(lo.Without(post.PrevLikes, likerIDs(post.Likes)...)) > 0 {
		return false
	}
	if len(post.Replies) != len(post.PrevReplies) {
		return false
	}
	for key := range post.Replies {
		if _, seen := post.PrevReplies[key]; !seen {
			return false
		}
	}
	return true
}

func likerIDs(likes []string) []string {
	if likes == nil {
		return []string{}
	}
	return likes
}

func repliesValue(replies map[string]models.Reply) map[string]any {
	out := make(map[string]any, len(replies))
	for key, reply := range replies {
		out[key] = reply.ToValue()
	}
	return out
}

func classifyTarget(message string) models.NotificationTarget {
	switch {
	case strings.Contains(message, "te empezó a seguir"), strings.Contains(message, "dejó de seguirte"):
		return models.NotificationTargetProfile
	case strings.Contains(message, "le dio like"), strings.Contains(message, "comentó en"):
		return models.NotificationTargetFeed
	default:
		return models.NotificationTargetNone
	}
}
