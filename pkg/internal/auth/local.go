package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/luner-app/luner/pkg/internal/store"
)

const sessionTokenLifetime = 30 * 24 * time.Hour

// Local keeps bcrypt-hashed credentials under credentials/{emailKey} and
// issues HS256 session tokens.
type Local struct {
	mu       sync.Mutex
	store    store.Store
	secret   []byte
	current  *User
	handlers []SessionChangeHandler
}

func NewLocal(s store.Store, secret string) *Local {
	return &Local{store: s, secret: []byte(secret)}
}

func (a *Local) SignUp(ctx context.Context, email, password string) (string, error) {
	if len(email) == 0 || len(password) == 0 {
		return "", fmt.Errorf("email and password are required")
	}

	path := store.CredentialsPath(store.EmailKey(email))
	existing, err := a.store.Read(ctx, path)
	if err != nil {
		return "", fmt.Errorf("unable to check account: %v", err)
	}
	if existing != nil {
		return "", fmt.Errorf("email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	if err := a.store.Write(ctx, path, map[string]any{
		"email":        email,
		"passwordHash": string(hash),
	}); err != nil {
		return "", fmt.Errorf("unable to save account: %v", err)
	}

	a.setCurrent(&User{Email: email})
	return a.issueToken(email)
}

func (a *Local) SignIn(ctx context.Context, email, password string) (string, error) {
	record, err := a.store.Read(ctx, store.CredentialsPath(store.EmailKey(email)))
	if err != nil {
		return "", fmt.Errorf("unable to check account: %v", err)
	}
	mapping, ok := record.(map[string]any)
	if !ok {
		return "", fmt.Errorf("account does not exist")
	}
	hash, _ := mapping["passwordHash"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return "", fmt.Errorf("invalid credentials")
	}

	a.setCurrent(&User{Email: email})
	return a.issueToken(email)
}

func (a *Local) SignOut(_ context.Context) error {
	a.setCurrent(nil)
	return nil
}

func (a *Local) ChangePassword(ctx context.Context, newPassword string) error {
	user := a.CurrentUser()
	if user == nil {
		return fmt.Errorf("not signed in")
	}
	return a.ChangePasswordFor(ctx, user.Email, newPassword)
}

func (a *Local) ChangePasswordFor(ctx context.Context, email, newPassword string) error {
	if len(newPassword) == 0 {
		return fmt.Errorf("password is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return a.store.Merge(ctx, store.CredentialsPath(store.EmailKey(email)), map[string]any{
		"passwordHash": string(hash),
	})
}

func (a *Local) DeleteAccount(ctx context.Context) error {
	user := a.CurrentUser()
	if user == nil {
		return fmt.Errorf("not signed in")
	}
	if err := a.DeleteAccountFor(ctx, user.Email); err != nil {
		return err
	}
	a.setCurrent(nil)
	return nil
}

func (a *Local) DeleteAccountFor(ctx context.Context, email string) error {
	emailKey := store.EmailKey(email)
	if err := a.store.Delete(ctx, store.CredentialsPath(emailKey)); err != nil {
		return fmt.Errorf("unable to remove account: %v", err)
	}
	// The account's profile records go with it, otherwise the deleted user
	// keeps surfacing in follower listings and searches.
	if err := a.store.Delete(ctx, store.JoinPath("users", emailKey)); err != nil {
		return fmt.Errorf("unable to remove profiles: %v", err)
	}
	return nil
}

func (a *Local) VerifyToken(token string) (string, error) {
	parsed, err := jwt.Parse(token, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil || !parsed.Valid {
		return "", fmt.Errorf("invalid session token")
	}

	subject, err := parsed.Claims.GetSubject()
	if err != nil || len(subject) == 0 {
		return "", fmt.Errorf("invalid session token")
	}
	return subject, nil
}

func (a *Local) OnSessionChange(handler SessionChangeHandler) {
	a.mu.Lock()
	a.handlers = append(a.handlers, handler)
	current := a.current
	a.mu.Unlock()

	handler(current)
}

func (a *Local) CurrentUser() *User {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

func (a *Local) issueToken(email string) (string, error) {
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(sessionTokenLifetime)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
}

func (a *Local) setCurrent(user *User) {
	a.mu.Lock()
	a.current = user
	handlers := make([]SessionChangeHandler, len(a.handlers))
	copy(handlers, a.handlers)
	a.mu.Unlock()

	for _, handler := range handlers {
		handler(user)
	}
	if user != nil {
		log.Debug().Str("email", user.Email).Msg("Session state changed to signed in.")
	} else {
		log.Debug().Msg("Session state changed to signed out.")
	}
}
