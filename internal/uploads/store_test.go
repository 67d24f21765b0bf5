package uploads

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSaveServeRemove(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "http://files.local/")
	require.NoError(t, err)

	st, err := s.Save("Passport.PDF", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(st.Key, ".pdf"))
	assert.Equal(t, "http://files.local/uploads/"+st.Key, st.URL)
	assert.Equal(t, int64(8), st.Size)

	rec := httptest.NewRecorder()
	require.NoError(t, s.Serve(rec, httptest.NewRequest(http.MethodGet, "/uploads/"+st.Key, nil), st.Key))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "%PDF-1.4", rec.Body.String())
	assert.ErrorIs(t, s.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), "../"+st.Key), ErrNotStored)

	require.NoError(t, s.Remove(st.Key))
	_, err = os.Stat(filepath.Join(dir, st.Key))
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, s.Serve(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), st.Key), ErrNotStored)
	assert.NoError(t, s.Remove(st.Key))
	assert.NoError(t, s.Remove("../etc/passwd"))
}

func TestSaveRejectsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, "")
	require.NoError(t, err)

	_, err = s.Save("big.bin", bytes.NewReader(make([]byte, MaxUploadBytes+1)))
	assert.ErrorIs(t, err, ErrTooLarge)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
