package dashboard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_DiscardsStaleCommit(t *testing.T) {
	s := NewStore[string]("test")

	first := s.Begin()
	second := s.Begin()

	require.NoError(t, s.Commit(second, "fresh"))
	assert.ErrorIs(t, s.Commit(first, "old"), ErrStale)

	v, ok := s.Get()
	assert.True(t, ok)
	assert.Equal(t, "fresh", v)
}

func TestStore_InvalidateMakesInFlightStale(t *testing.T) {
	s := NewStore[int]("test")
	_, err := s.Load(context.Background(), func(context.Context) (int, error) { return 1, nil })
	require.NoError(t, err)

	seq := s.Begin()
	s.Invalidate()
	assert.ErrorIs(t, s.Commit(seq, 2), ErrStale)

	_, ok := s.Get()
	assert.False(t, ok)
}

func TestStore_LoadError(t *testing.T) {
	s := NewStore[int]("test")
	_, err := s.Load(context.Background(), func(context.Context) (int, error) { return 0, errBoom })
	assert.ErrorIs(t, err, errBoom)
	_, ok := s.Get()
	assert.False(t, ok)
}
