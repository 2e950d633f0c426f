package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStoreGetCreatesOnce(t *testing.T) {
	s := NewStore[*int](time.Minute)
	created := 0
	mk := func() *int { created++; v := created; return &v }

	a := s.Get("sid", mk)
	b := s.Get("sid", mk)
	assert.Same(t, a, b)
	assert.Equal(t, 1, created)

	s.Get("other", mk)
	assert.Equal(t, 2, s.Len())
}

func TestStoreExpiresIdleEntries(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewStore[string](time.Minute)
	s.now = func() time.Time { return now }

	s.Get("a", func() string { return "first" })
	s.Get("b", func() string { return "b" })

	now = now.Add(45 * time.Second)
	s.Get("b", func() string { return "unused" })

	now = now.Add(30 * time.Second)
	_, ok := s.Peek("a")
	assert.False(t, ok)
	v, ok := s.Peek("b")
	assert.True(t, ok)
	assert.Equal(t, "b", v)

	assert.Equal(t, 1, s.Sweep())
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "second", s.Get("a", func() string { return "second" }))
}

func TestStoreDelete(t *testing.T) {
	s := NewStore[int](0)
	s.Get("a", func() int { return 1 })
	s.Delete("a")
	_, ok := s.Peek("a")
	assert.False(t, ok)
}
