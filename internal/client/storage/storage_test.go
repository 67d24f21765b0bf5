package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exercise(t *testing.T, s Storage) {
	t.Helper()
	_, ok := s.Get(KeyToken)
	assert.False(t, ok)

	require.NoError(t, s.Set(KeyToken, "T"))
	require.NoError(t, s.Set(KeyUser, `{"id":1}`))
	v, ok := s.Get(KeyToken)
	assert.True(t, ok)
	assert.Equal(t, "T", v)

	require.NoError(t, s.Remove(KeyToken, KeyUser))
	_, ok = s.Get(KeyToken)
	assert.False(t, ok)
	_, ok = s.Get(KeyUser)
	assert.False(t, ok)
	require.NoError(t, s.Remove("never-set"))
}

func TestMemory(t *testing.T) {
	exercise(t, NewMemory())
}

func TestFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "session.json")
	s, err := NewFile(path)
	require.NoError(t, err)
	exercise(t, s)
}

func TestFileIsSharedAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	a, err := NewFile(path)
	require.NoError(t, err)
	b, err := NewFile(path)
	require.NoError(t, err)

	require.NoError(t, a.Set(KeyLocationStatusChanged, "1700000000000"))
	v, ok := b.Get(KeyLocationStatusChanged)
	assert.True(t, ok)
	assert.Equal(t, "1700000000000", v)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestFileToleratesCorruptContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))
	s, err := NewFile(path)
	require.NoError(t, err)

	_, ok := s.Get(KeyToken)
	assert.False(t, ok)
	require.NoError(t, s.Set(KeyToken, "fresh"))
	v, _ := s.Get(KeyToken)
	assert.Equal(t, "fresh", v)
}
