package session

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/auth"
	"github.com/luner-app/luner/pkg/internal/models"
	"github.com/luner-app/luner/pkg/internal/store"
)

func TestOpenSeedsDefaultProfile(t *testing.T) {
	m := store.NewMemory()
	sess, err := Open(context.Background(), m, "alice@mail.com", "alice")
	require.NoError(t, err)

	profile := sess.Profile()
	assert.Equal(t, models.DefaultDisplayName, profile.DisplayName)
	assert.Equal(t, "alice", profile.ClientID)

	raw, err := m.Read(context.Background(), sess.ProfilePath())
	require.NoError(t, err)
	assert.NotNil(t, raw)
}

func TestOpenReusesExistingProfile(t *testing.T) {
	m := store.NewMemory()
	ctx := context.Background()
	first, err := Open(ctx, m, "alice@mail.com", "alice")
	require.NoError(t, err)

	require.NoError(t, m.Merge(ctx, first.ProfilePath(), map[string]any{
		"displayName": "Alicia",
	}))

	second, err := Open(ctx, m, "alice@mail.com", "alice")
	require.NoError(t, err)
	assert.Equal(t, "Alicia", second.Profile().DisplayName)
}

func TestOpenGeneratesClientIDWhenAbsent(t *testing.T) {
	m := store.NewMemory()
	sess, err := Open(context.Background(), m, "alice@mail.com", "")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ClientID())
}

func TestManagerResolvesOnSignIn(t *testing.T) {
	m := store.NewMemory()
	manager := NewManager(m, &fakeAuth{}, nil)
	manager.Start()

	var seen []*Session
	manager.OnSession(func(sess *Session) {
		seen = append(seen, sess)
	})

	assert.Nil(t, manager.Current())
	require.Len(t, seen, 1)
	assert.Nil(t, seen[0])
}

func TestLocalStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	state := NewLocalState(path)
	profile := models.NewProfile("alice", "alice@mail.com")
	state.Remember("alice", &profile)

	reloaded := NewLocalState(path)
	assert.Equal(t, "alice", reloaded.ClientID())
	require.NotNil(t, reloaded.CachedProfile())
	assert.Equal(t, models.DefaultDisplayName, reloaded.CachedProfile().DisplayName)

	reloaded.Clear()
	assert.Empty(t, NewLocalState(path).ClientID())
}

// fakeAuth stays signed out; the manager only consumes OnSessionChange.
type fakeAuth struct{}

func (f *fakeAuth) SignUp(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeAuth) SignIn(context.Context, string, string) (string, error) { return "", nil }
func (f *fakeAuth) SignOut(context.Context) error                          { return nil }
func (f *fakeAuth) ChangePassword(context.Context, string) error           { return nil }
func (f *fakeAuth) DeleteAccount(context.Context) error                    { return nil }
func (f *fakeAuth) VerifyToken(string) (string, error)                     { return "", nil }
func (f *fakeAuth) OnSessionChange(handler auth.SessionChangeHandler)      { handler(nil) }
