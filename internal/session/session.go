// Package session hands every dashboard visitor a private clone of the loaded demand
// records. Handles live in an expiring LRU keyed by a random session id carried in a cookie.
package session

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/aouyang1/go-demand-forecaster/record"
)

const CookieName = "demandcast_session"

type ctxKey struct{}

// Session is the data handle of one visitor
type Session struct {
	ID    string
	Store *record.Store
}

// Manager owns the session handles
type Manager struct {
	base  *record.Store
	cache *expirable.LRU[string, *Session]
	ttl   time.Duration

	// OnEvict is called with the id of a session that expired or was pushed out. It runs
	// under the cache lock and must not call back into the Manager.
	OnEvict func(id string)
}

// NewManager keeps at most size sessions, each alive for ttl after its last creation
func NewManager(base *record.Store, size int, ttl time.Duration) *Manager {
	m := &Manager{base: base, ttl: ttl}
	m.cache = expirable.NewLRU[string, *Session](size, func(id string, _ *Session) {
		if m.OnEvict != nil {
			m.OnEvict(id)
		}
	}, ttl)
	return m
}

// Get returns the session for id if it is still alive
func (m *Manager) Get(id string) (*Session, bool) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, false
	}
	return m.cache.Get(id)
}

// Acquire returns the live session for id or creates a new one with a fresh id and its own
// clone of the base records. created reports whether a new session was made.
func (m *Manager) Acquire(id string) (sess *Session, created bool) {
	if sess, exists := m.Get(id); exists {
		return sess, false
	}
	sess = &Session{
		ID:    uuid.NewString(),
		Store: m.base.Clone(),
	}
	m.cache.Add(sess.ID, sess)
	return sess, true
}

// Len returns the number of live sessions
func (m *Manager) Len() int {
	return m.cache.Len()
}

// Purge drops every session
func (m *Manager) Purge() {
	m.cache.Purge()
}

// Middleware attaches the visitor's session to the request context. The session is resolved
// on the first FromContext call, so requests that never touch session data neither clone the
// records nor take an LRU slot. A cookie is issued when a new session is created.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := &handle{m: m, w: w}
		if c, err := r.Cookie(CookieName); err == nil {
			h.id = c.Value
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, h)))
	})
}

// Base returns the records every session is cloned from
func (m *Manager) Base() *record.Store {
	return m.base
}

func (m *Manager) cookie(id string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    id,
		Path:     "/",
		MaxAge:   int(m.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
}

// handle defers session creation until a handler asks for it. The cookie has to be set
// before the handler writes its response.
type handle struct {
	m  *Manager
	w  http.ResponseWriter
	id string

	once sync.Once
	sess *Session
}

func (h *handle) resolve() *Session {
	h.once.Do(func() {
		sess, created := h.m.Acquire(h.id)
		if created {
			http.SetCookie(h.w, h.m.cookie(sess.ID))
		}
		h.sess = sess
	})
	return h.sess
}

func (h *handle) peek() (*Session, bool) {
	if h.sess != nil {
		return h.sess, true
	}
	return h.m.Get(h.id)
}

// NewContext returns a copy of ctx carrying sess
func NewContext(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// FromContext returns the session attached by Middleware or NewContext, creating it if the
// visitor has none yet
func FromContext(ctx context.Context) (*Session, bool) {
	switch v := ctx.Value(ctxKey{}).(type) {
	case *Session:
		return v, v != nil
	case *handle:
		sess := v.resolve()
		return sess, sess != nil
	}
	return nil, false
}

// Peek returns the visitor's live session without creating one
func Peek(ctx context.Context) (*Session, bool) {
	switch v := ctx.Value(ctxKey{}).(type) {
	case *Session:
		return v, v != nil
	case *handle:
		return v.peek()
	}
	return nil, false
}
