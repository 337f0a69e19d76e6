package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_Lifecycle(t *testing.T) {
	now := time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	s := NewStore(10, time.Hour).WithClock(clock)

	sess := s.Create(7, "maria", "Maria")
	require.NotEmpty(t, sess.Token)
	assert.Equal(t, now.Add(time.Hour), sess.ExpiresAt)

	got, err := s.Get(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(7), got.UserID)

	now = now.Add(50 * time.Minute)
	refreshed, err := s.Refresh(sess.Token)
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), refreshed.ExpiresAt)

	now = now.Add(30 * time.Minute) // past the original expiry
	_, err = s.Get(sess.Token)
	require.NoError(t, err)

	s.Delete(sess.Token)
	_, err = s.Get(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestStore_Expiry(t *testing.T) {
	now := time.Now()
	s := NewStore(10, time.Minute).WithClock(func() time.Time { return now })
	sess := s.Create(1, "a", "A")

	now = now.Add(2 * time.Minute)
	_, err := s.Get(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.Refresh(sess.Token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
	_, err = s.Get("")
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	ctx := NewContext(context.Background(), Session{UserID: 3})
	sess, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), sess.UserID)
}
