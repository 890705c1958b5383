package browser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_FIFOPerText(t *testing.T) {
	s := NewStore(time.Minute)
	s.Put("hello", "first")
	s.Put("hello", "second")
	s.Put("bye", "other")

	assert.Equal(t, 3, s.Len())

	got, ok := s.Take("hello")
	require.True(t, ok)
	assert.Equal(t, "first", got)

	got, ok = s.Take("hello")
	require.True(t, ok)
	assert.Equal(t, "second", got)

	_, ok = s.Take("hello")
	assert.False(t, ok)
	assert.Equal(t, 1, s.Len())
}

func TestStore_DropsStaleEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	s.Put("hello", "old")
	now = now.Add(30 * time.Second)
	s.Put("hello", "fresh")
	s.Put("orphan", "never claimed")

	now = now.Add(45 * time.Second)
	got, ok := s.Take("hello")
	require.True(t, ok)
	assert.Equal(t, "fresh", got)

	now = now.Add(time.Minute)
	assert.Equal(t, 1, s.Prune())
	assert.Equal(t, 0, s.Len())
}

func TestNewStore_DefaultStaleness(t *testing.T) {
	s := NewStore(0)
	assert.Equal(t, DefaultStaleAfter, s.staleAfter)
}
