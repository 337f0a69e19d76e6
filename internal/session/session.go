package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"fatura/internal/cache"
)

// CookieName carries the session token between browser and API.
const CookieName = "fatura_session"

var ErrUnauthenticated = errors.New("unauthenticated")

// Session identifies a signed-in user. It is passed explicitly through
// request contexts and never kept in package state.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Name      string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// Store keeps sessions in an LRU cache; the oldest idle sessions are
// dropped first when the cache is full.
type Store struct {
	cache *cache.LRUCache[Session]
	ttl   time.Duration
	now   func() time.Time
}

func NewStore(maxSessions int, ttl time.Duration) *Store {
	return &Store{
		cache: cache.NewLRUCache[Session](maxSessions, ttl),
		ttl:   ttl,
		now:   time.Now,
	}
}

// WithClock replaces the time source of the store and its cache.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	s.cache.WithClock(now)
	return s
}

// Cleaner exposes the underlying cache to a cache.Manager.
func (s *Store) Cleaner() cache.Cleaner {
	return s.cache
}

func (s *Store) TTL() time.Duration {
	return s.ttl
}

func (s *Store) Create(userID int64, username, name string) Session {
	now := s.now()
	sess := Session{
		Token:     uuid.NewString(),
		UserID:    userID,
		Username:  username,
		Name:      name,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	s.cache.Set(sess.Token, sess)
	return sess
}

func (s *Store) Get(token string) (Session, error) {
	if token == "" {
		return Session{}, ErrUnauthenticated
	}
	sess, ok := s.cache.Get(token)
	if !ok {
		return Session{}, ErrUnauthenticated
	}
	return sess, nil
}

// Refresh extends a live session by the store TTL.
func (s *Store) Refresh(token string) (Session, error) {
	sess, err := s.Get(token)
	if err != nil {
		return Session{}, err
	}
	sess.ExpiresAt = s.now().Add(s.ttl)
	s.cache.Set(token, sess)
	return sess, nil
}

func (s *Store) Delete(token string) {
	s.cache.Delete(token)
}

type contextKey struct{}

// NewContext returns a copy of ctx carrying sess.
func NewContext(ctx context.Context, sess Session) context.Context {
	return context.WithValue(ctx, contextKey{}, sess)
}

// FromContext returns the session stored by NewContext.
func FromContext(ctx context.Context) (Session, bool) {
	sess, ok := ctx.Value(contextKey{}).(Session)
	return sess, ok
}
