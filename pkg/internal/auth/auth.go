// Package auth wraps the authentication capability the engines consume: an
// opaque provider of session tokens plus a session-state subscription. The
// bundled Local adapter keeps credentials in the keyed store; any hosted
// identity service can stand in behind the same interface.
package auth

import "context"

// User is the authenticated identity, the store profile is looked up
// separately per client id.
type User struct {
	Email string `json:"email"`
}

// SessionChangeHandler receives the current user, or nil when signed out.
// Handlers are invoked once on registration with the present state and again
// on every change.
type SessionChangeHandler func(user *User)

type Capability interface {
	// SignUp registers the account and signs it in, returning a session token.
	SignUp(ctx context.Context, email, password string) (string, error)
	// SignIn returns a session token for valid credentials.
	SignIn(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context) error
	// ChangePassword replaces the signed-in account's password.
	ChangePassword(ctx context.Context, newPassword string) error
	// DeleteAccount removes the signed-in account's credentials and ends the
	// session.
	DeleteAccount(ctx context.Context) error
	// VerifyToken resolves a session token back to its account email.
	VerifyToken(token string) (string, error)
	OnSessionChange(handler SessionChangeHandler)
}

// AccountAdmin is implemented by adapters that can act on a named account
// instead of the adapter-tracked current one; the gateway serves many
// accounts at once and needs the explicit form.
type AccountAdmin interface {
	ChangePasswordFor(ctx context.Context, email, newPassword string) error
	DeleteAccountFor(ctx context.Context, email string) error
}
