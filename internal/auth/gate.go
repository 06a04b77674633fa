// Package auth keeps the storefront's client-side session marker. Nothing here
// verifies credentials: any non-blank input signs in.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
	"github.com/imrishuroy/pizzafly-storefront/internal/logging"
)

var ErrMissingCredentials = errors.New("missing credentials")

// User is the persisted "pf_user" record.
type User struct {
	Email string `json:"email,omitempty"`
	Name  string `json:"name,omitempty"`
	Guest bool   `json:"guest,omitempty"`
}

// Gate reads and writes the session marker of one scope.
type Gate struct {
	kv  kv.Store
	log *zap.Logger
}

func NewGate(store kv.Store, log *zap.Logger) *Gate {
	return &Gate{kv: store, log: logging.OrNop(log)}
}

// Current returns the signed-in user, or nil when there is none. A corrupt
// record counts as none.
func (g *Gate) Current(ctx context.Context) (*User, error) {
	raw, ok, err := g.kv.Get(ctx, kv.KeyUser)
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if !ok {
		return nil, nil
	}
	var u User
	if err := json.Unmarshal([]byte(raw), &u); err != nil {
		g.log.Warn("ignoring corrupt user record", zap.Error(err))
		return nil, nil
	}
	return &u, nil
}

// Present reports whether a user or guest session exists.
func (g *Gate) Present(ctx context.Context) (bool, error) {
	u, err := g.Current(ctx)
	return u != nil, err
}

// SignIn records a user named after the local part of email.
func (g *Gate) SignIn(ctx context.Context, email, password string) (User, error) {
	email = strings.TrimSpace(email)
	if email == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrMissingCredentials
	}
	name, _, _ := strings.Cut(email, "@")
	u := User{Email: email, Name: name}
	return u, g.save(ctx, u)
}

// Register records a new user. All three fields are required.
func (g *Gate) Register(ctx context.Context, name, email, password string) (User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || strings.TrimSpace(password) == "" {
		return User{}, ErrMissingCredentials
	}
	u := User{Email: email, Name: name}
	return u, g.save(ctx, u)
}

// ContinueAsGuest records a guest session.
func (g *Gate) ContinueAsGuest(ctx context.Context) (User, error) {
	u := User{Guest: true}
	return u, g.save(ctx, u)
}

// SignOut removes the session marker.
func (g *Gate) SignOut(ctx context.Context) error {
	if err := g.kv.Apply(ctx, kv.Remove(kv.KeyUser)); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

func (g *Gate) save(ctx context.Context, u User) error {
	b, err := json.Marshal(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	if err := g.kv.Apply(ctx, kv.Put(kv.KeyUser, string(b))); err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// NextPath resolves the post-sign-in destination.
func NextPath(next string) string {
	switch next {
	case "order":
		return "./order.html"
	case "", "index":
		return "./index.html"
	}
	if strings.HasPrefix(next, "./") || strings.HasSuffix(next, ".html") {
		return next
	}
	return "./index.html"
}
