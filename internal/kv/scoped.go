package kv

import (
	"context"
	"errors"
	"strings"
)

// MaxScopeLen bounds a scope name.
const MaxScopeLen = 128

// ErrInvalidScope is returned by ValidateScope.
var ErrInvalidScope = errors.New("kv: invalid scope")

// ValidateScope rejects scopes that are empty, too long, or contain the "/"
// separator, which would let one scope's keys alias another's.
func ValidateScope(scope string) error {
	if scope == "" || len(scope) > MaxScopeLen || strings.Contains(scope, "/") {
		return ErrInvalidScope
	}
	return nil
}

// Scoped namespaces keys of an underlying Store, so one table or Redis database
// can hold many storefront sessions side by side.
type Scoped struct {
	store Store
	scope string
}

// WithScope returns a Store whose keys live under scope. Callers taking scopes
// from clients check them with ValidateScope first.
func WithScope(store Store, scope string) *Scoped {
	return &Scoped{store: store, scope: scope}
}

// Scope returns the namespace.
func (s *Scoped) Scope() string { return s.scope }

func (s *Scoped) key(k string) string { return s.scope + "/" + k }

func (s *Scoped) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	return s.store.Get(ctx, s.key(key))
}

func (s *Scoped) Apply(ctx context.Context, writes ...Write) error {
	if err := validate(writes); err != nil {
		return err
	}
	scoped := make([]Write, len(writes))
	for i, w := range writes {
		w.Key = s.key(w.Key)
		scoped[i] = w
	}
	return s.store.Apply(ctx, scoped...)
}
