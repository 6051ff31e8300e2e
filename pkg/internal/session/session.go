// Package session owns the signed-in user's context: the stable client id,
// the mirrored profile record, and its reload persistence. Engines receive a
// Session explicitly instead of reaching for ambient globals.
package session

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/luner-app/luner/pkg/internal/auth"
	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

// Session is the resolved sign-in context. It mirrors the remote profile
// record; SetProfile refreshes the mirror and the local cache but the remote
// store remains the source of truth.
type Session struct {
	mu       sync.Mutex
	clientID string
	email    string
	profile  models.Profile

	Store store.Store
	local *LocalState
}

func (s *Session) ClientID() string { return s.clientID }
func (s *Session) Email() string    { return s.email }

func (s *Session) EmailKey() string {
	return store.EmailKey(s.email)
}

// ProfilePath is the session owner's record path in the users namespace.
func (s *Session) ProfilePath() string {
	return store.UserPath(s.EmailKey(), s.clientID)
}

func (s *Session) Profile() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profile
}

func (s *Session) SetProfile(profile models.Profile) {
	profile.ClientID = s.clientID
	profile.Email = s.email
	s.mu.Lock()
	s.profile = profile
	s.mu.Unlock()
	if s.local != nil {
		s.local.Remember(s.clientID, &profile)
	}
}

// Open resolves a session for an account outside the Manager flow, loading
// the profile record or seeding the default one for a fresh pairing. The
// gateway uses it to serve many accounts side by side.
func Open(ctx context.Context, s store.Store, email, clientID string) (*Session, error) {
	if len(clientID) == 0 {
		clientID = uuid.NewString()
	}

	sess := &Session{
		clientID: clientID,
		email:    email,
		Store:    s,
	}

	raw, err := s.Read(ctx, sess.ProfilePath())
	if err != nil {
		return nil, fmt.Errorf("unable to load profile: %v", err)
	}

	if profile, ok := models.ProfileFromValue(raw); ok {
		profile.ClientID = clientID
		profile.Email = email
		sess.profile = profile
	} else {
		profile := models.NewProfile(clientID, email)
		if err := s.Write(ctx, sess.ProfilePath(), profile.ToValue()); err != nil {
			return nil, fmt.Errorf("unable to seed profile: %v", err)
		}
		sess.profile = profile
	}

	return sess, nil
}

// Manager resolves auth-state changes into sessions. It keeps a users watch
// open so the mirrored profile follows remote writes (a follower appending
// itself to the followers array, for example).
type Manager struct {
	store store.Store
	auth  auth.Capability
	local *LocalState

	mu       sync.Mutex
	current  *Session
	watch    *store.Subscription
	handlers []func(*Session)
}

func NewManager(s store.Store, a auth.Capability, local *LocalState) *Manager {
	return &Manager{store: s, auth: a, local: local}
}

// Start subscribes to auth-state changes; the handler fires once immediately
// with the present state.
func (m *Manager) Start() {
	m.auth.OnSessionChange(func(user *auth.User) {
		if user == nil {
			m.clear()
			return
		}
		if _, err := m.resolve(context.Background(), user.Email); err != nil {
			log.Error().Err(err).Msg("An error occurred when resolving session.")
		}
	})
}

// OnSession registers a handler invoked with the session after each sign-in
// resolution, and with nil after sign-out.
func (m *Manager) OnSession(handler func(*Session)) {
	m.mu.Lock()
	m.handlers = append(m.handlers, handler)
	current := m.current
	m.mu.Unlock()
	handler(current)
}

func (m *Manager) Current() *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// resolve loads or seeds the profile record for this (browser, account)
// pairing. A missing local client id means a fresh pairing: generate one and
// seed the default profile, exactly as a first sign-in does.
func (m *Manager) resolve(ctx context.Context, email string) (*Session, error) {
	clientID := ""
	if m.local != nil {
		clientID = m.local.ClientID()
	}

	sess, err := Open(ctx, m.store, email, clientID)
	if err != nil {
		return nil, err
	}
	sess.local = m.local

	if m.local != nil {
		profile := sess.Profile()
		m.local.Remember(sess.ClientID(), &profile)
	}

	m.install(sess)
	return sess, nil
}

func (m *Manager) install(sess *Session) {
	m.mu.Lock()
	if m.watch != nil {
		m.watch.Close()
		m.watch = nil
	}
	m.current = sess
	handlers := make([]func(*Session), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	if sub, err := m.store.Watch(sess.ProfilePath()); err == nil {
		m.mu.Lock()
		m.watch = sub
		m.mu.Unlock()
		go m.mirror(sess, sub)
	} else {
		log.Error().Err(err).Msg("An error occurred when watching own profile.")
	}

	for _, handler := range handlers {
		handler(sess)
	}
}

// mirror overwrites the cached profile with every remote snapshot.
func (m *Manager) mirror(sess *Session, sub *store.Subscription) {
	for event := range sub.Events {
		if event.Type != store.EventSnapshot || event.Value == nil {
			continue
		}
		if profile, ok := models.ProfileFromValue(event.Value); ok {
			sess.SetProfile(profile)
		}
	}
}

func (m *Manager) clear() {
	m.mu.Lock()
	if m.watch != nil {
		m.watch.Close()
		m.watch = nil
	}
	m.current = nil
	handlers := make([]func(*Session), len(m.handlers))
	copy(handlers, m.handlers)
	m.mu.Unlock()

	if m.local != nil {
		m.local.Clear()
	}
	for _, handler := range handlers {
		handler(nil)
	}
}
