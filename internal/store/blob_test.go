package store

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore_PutGet(t *testing.T) {
	s, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, ok, err := s.Get(KeyTemplates)
	require.NoError(t, err)
	assert.False(t, ok, "fresh store has no blobs")

	require.NoError(t, s.Put(KeyTemplates, []byte(`{"a":1}`)))
	require.NoError(t, s.Put(KeyTemplates, []byte(`{"b":2}`)))

	data, ok, err := s.Get(KeyTemplates)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"b":2}`, string(data), "second put overwrites")

	keys, err := s.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{KeyTemplates}, keys)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "eatools.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(KeyLocks, []byte(`["123"]`)))
	require.NoError(t, s.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	data, ok, err := reopened.Get(KeyLocks)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `["123"]`, string(data))
	assert.Equal(t, path, reopened.Path())
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.Put(KeyLocks, []byte("x")))

	data, ok, err := m.Get(KeyLocks)
	require.NoError(t, err)
	require.True(t, ok)
	data[0] = 'y'

	again, _, _ := m.Get(KeyLocks)
	assert.Equal(t, "x", string(again), "callers cannot mutate stored bytes")
	assert.Equal(t, 1, m.Puts())

	m.FailPut = errors.New("disk full")
	assert.Error(t, m.Put(KeyLocks, []byte("z")))
	assert.Equal(t, 1, m.Puts())
	assert.Equal(t, []string{KeyLocks}, m.Keys())
}
