package store

import (
	"sync"

	"github.com/rs/zerolog/log"
)

type EventType string

const (
	// EventSnapshot carries the full value of the subscribed subtree after a
	// change anywhere inside it.
	EventSnapshot     EventType = "snapshot"
	EventChildAdded   EventType = "child_added"
	EventChildChanged EventType = "child_changed"
	EventChildRemoved EventType = "child_removed"
)

type Event struct {
	Type EventType
	// Path is the subscription root the event is relative to.
	Path string
	// Key is the affected direct child of the root, set on child events only.
	Key string
	// Value is the child snapshot for child events, or the root snapshot for
	// snapshot events. Nil means the subtree no longer exists.
	Value any
}

const subscriptionBuffer = 64

// Subscription is an explicit event stream over one watched path. Close it to
// unsubscribe; the Events channel is closed afterwards.
type Subscription struct {
	Path   string
	Events chan Event

	hub  *hub
	once sync.Once
}

func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
		close(s.Events)
	})
}

// hub fans mutations out to all subscriptions whose root is related to the
// mutated path. Sends never block: a subscriber that stops draining loses
// events rather than stalling writers.
type hub struct {
	mu   sync.Mutex
	subs map[*Subscription]struct{}
}

func newHub() *hub {
	return &hub{subs: map[*Subscription]struct{}{}}
}

func (h *hub) subscribe(path string) *Subscription {
	sub := &Subscription{
		Path:   path,
		Events: make(chan Event, subscriptionBuffer),
		hub:    h,
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *hub) remove(sub *Subscription) {
	h.mu.Lock()
	delete(h.subs, sub)
	h.mu.Unlock()
}

func (h *hub) subscribers() []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*Subscription, 0, len(h.subs))
	for sub := range h.subs {
		out = append(out, sub)
	}
	return out
}

// dispatch runs mutate and notifies every related subscription with a
// snapshot event plus a child-level event. The exists and snapshot callbacks
// observe the adapter's tree; the adapter must hold its own lock across the
// whole call so before/after observations stay consistent.
func (h *hub) dispatch(changed string, exists func(string) bool, snapshot func(string) any, mutate func() error) error {
	type pending struct {
		sub      *Subscription
		childKey string
		existed  bool
	}

	var interested []pending
	for _, sub := range h.subscribers() {
		if !pathRelated(sub.Path, changed) {
			continue
		}
		entry := pending{sub: sub, childKey: childKeyOf(sub.Path, changed)}
		if len(entry.childKey) > 0 {
			entry.existed = exists(JoinPath(sub.Path, entry.childKey))
		}
		interested = append(interested, entry)
	}

	if err := mutate(); err != nil {
		return err
	}

	for _, entry := range interested {
		emit(entry.sub, Event{
			Type:  EventSnapshot,
			Path:  entry.sub.Path,
			Value: snapshot(entry.sub.Path),
		})

		if len(entry.childKey) == 0 {
			continue
		}
		childPath := JoinPath(entry.sub.Path, entry.childKey)
		current := snapshot(childPath)
		kind := EventChildChanged
		switch {
		case !entry.existed && current != nil:
			kind = EventChildAdded
		case entry.existed && current == nil:
			kind = EventChildRemoved
		case !entry.existed && current == nil:
			continue
		}
		emit(entry.sub, Event{
			Type:  kind,
			Path:  entry.sub.Path,
			Key:   entry.childKey,
			Value: current,
		})
	}

	return nil
}

func emit(sub *Subscription, event Event) {
	select {
	case sub.Events <- event:
	default:
		log.Warn().Str("path", sub.Path).Str("type", string(event.Type)).
			Msg("Dropping store event, subscriber is not draining.")
	}
}
