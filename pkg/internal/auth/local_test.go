package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luner-app/luner/pkg/internal/store"
)

func TestSignUpThenSignIn(t *testing.T) {
	a := NewLocal(store.NewMemory(), "secret")
	ctx := context.Background()

	token, err := a.SignUp(ctx, "alice@mail.com", "hunter22")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	email, err := a.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@mail.com", email)

	_, err = a.SignUp(ctx, "alice@mail.com", "hunter22")
	assert.Error(t, err)

	token, err = a.SignIn(ctx, "alice@mail.com", "hunter22")
	require.NoError(t, err)
	assert.NotEmpty(t, token)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	a := NewLocal(store.NewMemory(), "secret")
	ctx := context.Background()

	_, err := a.SignIn(ctx, "ghost@mail.com", "whatever")
	assert.Error(t, err)

	_, err = a.SignUp(ctx, "alice@mail.com", "hunter22")
	require.NoError(t, err)
	_, err = a.SignIn(ctx, "alice@mail.com", "wrong")
	assert.Error(t, err)
}

func TestVerifyTokenRejectsForeignSecret(t *testing.T) {
	m := store.NewMemory()
	a := NewLocal(m, "secret")
	b := NewLocal(m, "other-secret")
	ctx := context.Background()

	token, err := a.SignUp(ctx, "alice@mail.com", "hunter22")
	require.NoError(t, err)

	_, err = b.VerifyToken(token)
	assert.Error(t, err)
	_, err = b.VerifyToken("garbage")
	assert.Error(t, err)
}

func TestChangePasswordTakesEffect(t *testing.T) {
	a := NewLocal(store.NewMemory(), "secret")
	ctx := context.Background()

	_, err := a.SignUp(ctx, "alice@mail.com", "hunter22")
	require.NoError(t, err)
	require.NoError(t, a.ChangePasswordFor(ctx, "alice@mail.com", "nueva-clave"))

	_, err = a.SignIn(ctx, "alice@mail.com", "hunter22")
	assert.Error(t, err)
	_, err = a.SignIn(ctx, "alice@mail.com", "nueva-clave")
	assert.NoError(t, err)
}

func TestDeleteAccountRemovesCredentialsAndProfiles(t *testing.T) {
	m := store.NewMemory()
	a := NewLocal(m, "secret")
	ctx := context.Background()

	_, err := a.SignUp(ctx, "alice@mail.com", "hunter22")
	require.NoError(t, err)

	profilePath := store.UserPath(store.EmailKey("alice@mail.com"), "c1")
	require.NoError(t, m.Write(ctx, profilePath, map[string]any{
		"displayName": "Alice",
	}))

	require.NoError(t, a.DeleteAccount(ctx))

	_, err = a.SignIn(ctx, "alice@mail.com", "hunter22")
	assert.Error(t, err)
	assert.Nil(t, a.CurrentUser())

	remains, err := m.Read(ctx, profilePath)
	require.NoError(t, err)
	assert.Nil(t, remains)
}

func TestOnSessionChangeFiresImmediately(t *testing.T) {
	a := NewLocal(store.NewMemory(), "secret")

	var states []*User
	a.OnSessionChange(func(user *User) {
		states = append(states, user)
	})
	require.Len(t, states, 1)
	assert.Nil(t, states[0])

	_, err := a.SignUp(context.Background(), "alice@mail.com", "hunter22")
	require.NoError(t, err)
	require.Len(t, states, 2)
	require.NotNil(t, states[1])
	assert.Equal(t, "alice@mail.com", states[1].Email)
}
