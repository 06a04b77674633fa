package handlers

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/imrishuroy/pizzafly-storefront/internal/kv"
)

// sessionLocks serializes requests of one scope. Entries are dropped once no
// request holds or waits on them.
type sessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func newSessionLocks() *sessionLocks {
	return &sessionLocks{locks: map[string]*sessionLock{}}
}

// Lock blocks until scope is free and returns its unlock func.
func (s *sessionLocks) Lock(scope string) func() {
	s.mu.Lock()
	l, ok := s.locks[scope]
	if !ok {
		l = &sessionLock{}
		s.locks[scope] = l
	}
	l.refs++
	s.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(s.locks, scope)
		}
		s.mu.Unlock()
	}
}

func (s *sessionLocks) size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.locks)
}

// sessionScope reads the session header, minting a new scope when it is absent.
// An unusable header is answered with 400 and ok is false.
func sessionScope(c *gin.Context) (scope string, ok bool) {
	scope = c.GetHeader(SessionHeader)
	if scope == "" {
		scope = uuid.NewString()
	}
	if err := kv.ValidateScope(scope); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_session"})
		return "", false
	}
	c.Header(SessionHeader, scope)
	return scope, true
}
