package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/luner-app/luner/pkg/internal/session"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Engines bundles every per-session engine behind one handle.
type Engines struct {
	Session    *session.Session
	Feed       *Feed
	Posts      *Posts
	Social     *Social
	Engagement *Engagement
	Messaging  *Messaging
	Notifier   *Notifier

	feedSub *store.Subscription
}

// Hub resolves accounts to their engine bundles so the gateway can serve many
// signed-in users side by side. Bundles are built lazily on first use and
// torn down on sign-out.
type Hub struct {
	mu           sync.Mutex
	store        store.Store
	pageSize     int
	transientTTL time.Duration
	entries      map[string]*Engines
}

func NewHub(s store.Store, pageSize int, transientTTL time.Duration) *Hub {
	return &Hub{
		store:        s,
		pageSize:     pageSize,
		transientTTL: transientTTL,
		entries:      map[string]*Engines{},
	}
}

// For returns the engine bundle of an account, building it on first use. The
// client id only matters on that first call, it pins which profile record the
// session pairs with.
func (h *Hub) For(ctx context.Context, email, clientID string) (*Engines, error) {
	h.mu.Lock()
	if engines, ok := h.entries[email]; ok {
		h.mu.Unlock()
		return engines, nil
	}
	h.mu.Unlock()

	sess, err := session.Open(ctx, h.store, email, clientID)
	if err != nil {
		return nil, err
	}

	engines := &Engines{Session: sess}
	engines.Notifier = NewNotifier(sess, h.transientTTL)
	engines.Feed = NewFeed(sess, h.pageSize)
	engines.Posts = NewPosts(sess, engines.Notifier)
	engines.Social = NewSocial(sess)
	engines.Engagement = NewEngagement(sess, engines.Notifier)
	engines.Messaging = NewMessaging(sess)

	if err := engines.Notifier.Start(); err != nil {
		log.Error().Err(err).Str("email", email).Msg("An error occurred when starting notifier.")
	}
	if sub, err := engines.Feed.Watch(); err == nil {
		engines.feedSub = sub
		go pumpFeed(engines.Feed, sub)
	} else {
		log.Error().Err(err).Str("email", email).Msg("An error occurred when watching feed.")
	}

	h.mu.Lock()
	if existing, ok := h.entries[email]; ok {
		h.mu.Unlock()
		engines.teardown()
		return existing, nil
	}
	h.entries[email] = engines
	h.mu.Unlock()

	return engines, nil
}

// Drop tears down an account's bundle, closing its watches.
func (h *Hub) Drop(email string) {
	h.mu.Lock()
	engines, ok := h.entries[email]
	delete(h.entries, email)
	h.mu.Unlock()
	if ok {
		engines.teardown()
	}
}

// SweepNotifications expires transient notices across every live bundle; the
// maintenance cron drives it.
func (h *Hub) SweepNotifications() {
	h.mu.Lock()
	bundles := make([]*Engines, 0, len(h.entries))
	for _, engines := range h.entries {
		bundles = append(bundles, engines)
	}
	h.mu.Unlock()

	for _, engines := range bundles {
		engines.Notifier.SweepExpired()
	}
}

func (e *Engines) teardown() {
	if e.feedSub != nil {
		e.feedSub.Close()
	}
	e.Notifier.Stop()
}

func pumpFeed(feed *Feed, sub *store.Subscription) {
	for event := range sub.Events {
		if event.Type == store.EventSnapshot {
			continue
		}
		feed.ApplyDelta(event)
	}
}
