package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/api"
	"staffdesk/internal/client/storage"
)

func TestBearerInjection(t *testing.T) {
	var seen []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		api.WriteData(w, http.StatusOK, map[string]string{"ok": "yes"})
	}))
	defer srv.Close()

	store := storage.NewMemory()
	c := New(srv.URL+"/", store)
	var env api.Envelope[map[string]string]
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil, &env))
	require.NoError(t, store.Set(storage.KeyToken, "T"))
	require.NoError(t, c.Do(context.Background(), http.MethodGet, "/x", nil, nil, &env))

	assert.Equal(t, []string{"", "Bearer T"}, seen)
	assert.True(t, env.Success)
	assert.Equal(t, "yes", env.Data["ok"])
}

func TestJSONBodyAndQuery(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "open", r.URL.Query().Get("status"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		api.WriteData(w, http.StatusCreated, in)
	}))
	defer srv.Close()

	c := New(srv.URL, storage.NewMemory())
	var env api.Envelope[map[string]string]
	err := c.Do(context.Background(), http.MethodPost, "/t", url.Values{"status": {"open"}}, map[string]string{"a": "b"}, &env)
	require.NoError(t, err)
	assert.Equal(t, "b", env.Data["a"])
}

func TestUnauthorizedClearsStorageAndSignalsBeforeReturning(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.WriteError(w, http.StatusUnauthorized, "token expired")
	}))
	defer srv.Close()

	store := storage.NewMemory()
	require.NoError(t, store.Set(storage.KeyToken, "T"))
	require.NoError(t, store.Set(storage.KeyUser, `{"id":1}`))
	require.NoError(t, store.Set(storage.KeyLocationStatusChanged, "1"))
	c := New(srv.URL, store)

	var order []string
	c.OnSessionInvalidated(func() {
		_, hasToken := store.Get(storage.KeyToken)
		assert.False(t, hasToken, "storage is cleared before subscribers run")
		order = append(order, "first")
	})
	unsub := c.OnSessionInvalidated(func() { order = append(order, "removed") })
	c.OnSessionInvalidated(func() { order = append(order, "second") })
	unsub()

	err := c.Do(context.Background(), http.MethodGet, "/auth/me", nil, nil, nil)
	order = append(order, "returned")

	require.Error(t, err)
	assert.True(t, IsUnauthorized(err))
	assert.Contains(t, err.Error(), "token expired")
	assert.Equal(t, []string{"first", "second", "returned"}, order)
	_, ok := store.Get(storage.KeyUser)
	assert.False(t, ok)
	_, ok = store.Get(storage.KeyLocationStatusChanged)
	assert.True(t, ok, "unrelated keys survive")
}

func TestOtherErrorsPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/forbidden" {
			api.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("<html>bad gateway</html>"))
	}))
	defer srv.Close()

	store := storage.NewMemory()
	require.NoError(t, store.Set(storage.KeyToken, "T"))
	c := New(srv.URL, store)
	fired := false
	c.OnSessionInvalidated(func() { fired = true })

	err := c.Do(context.Background(), http.MethodGet, "/forbidden", nil, nil, nil)
	assert.Equal(t, http.StatusForbidden, StatusOf(err))
	err = c.Do(context.Background(), http.MethodGet, "/gw", nil, nil, nil)
	assert.Equal(t, http.StatusBadGateway, StatusOf(err))
	assert.Equal(t, "request failed with status 502", err.Error())

	assert.False(t, fired)
	tok, _ := store.Get(storage.KeyToken)
	assert.Equal(t, "T", tok)
}

func TestTransportErrorIsWrapped(t *testing.T) {
	c := New("http://127.0.0.1:1", storage.NewMemory())
	err := c.Do(context.Background(), http.MethodGet, "/x", nil, nil, nil)
	require.Error(t, err)
	assert.Equal(t, 0, StatusOf(err))
	assert.Contains(t, err.Error(), "GET /x")
}

func TestUploadIsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.True(t, strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data"))
		require.NoError(t, r.ParseMultipartForm(1<<20))
		f, hdr, err := r.FormFile("file")
		require.NoError(t, err)
		b, _ := io.ReadAll(f)
		api.WriteData(w, http.StatusCreated, map[string]string{
			"type": r.FormValue("type"), "name": r.FormValue("name"), "file": hdr.Filename, "body": string(b),
		})
	}))
	defer srv.Close()

	c := New(srv.URL, storage.NewMemory())
	var env api.Envelope[map[string]string]
	err := c.Upload(context.Background(), "/documents", map[string]string{"type": "ID", "name": "Passport", "employeeId": ""},
		FilePart{Field: "file", FileName: "p.pdf", Content: bytes.NewBufferString("pdf")}, &env)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"type": "ID", "name": "Passport", "file": "p.pdf", "body": "pdf"}, env.Data)
}

func TestDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("PK\x03\x04"))
	}))
	defer srv.Close()

	var buf bytes.Buffer
	n, err := New(srv.URL, storage.NewMemory()).Download(context.Background(), "/payment-records/export", nil, &buf)
	require.NoError(t, err)
	assert.EqualValues(t, 4, n)
	assert.Equal(t, "PK\x03\x04", buf.String())
}
