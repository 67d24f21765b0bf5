package session

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/client"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/models"
	"staffdesk/internal/testenv"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func respond(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

// fake routes requests by path to canned answers and counts them.
type fake struct {
	routes map[string]func() (int, string)
	calls  map[string]*atomic.Int32
}

func newFake() *fake {
	return &fake{routes: map[string]func() (int, string){}, calls: map[string]*atomic.Int32{}}
}

func (f *fake) on(path string, status int, body string) {
	f.routes[path] = func() (int, string) { return status, body }
	f.calls[path] = &atomic.Int32{}
}

func (f *fake) count(path string) int { return int(f.calls[path].Load()) }

func (f *fake) store(t *testing.T, st storage.Storage) (*Store, *client.Client) {
	t.Helper()
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		h, ok := f.routes[r.URL.Path]
		if !ok {
			return respond(http.StatusNotFound, `{"success":false,"error":"no route"}`), nil
		}
		f.calls[r.URL.Path].Add(1)
		status, body := h()
		return respond(status, body), nil
	})}
	c := client.New("http://api.test", st, client.WithHTTPClient(hc))
	s := New(c, services.New(c).Auth)
	t.Cleanup(s.Close)
	return s, c
}

func token(t testing.TB, exp *time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "1", "role": "employee"}
	if exp != nil {
		claims["exp"] = exp.Unix()
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("client-cannot-verify"))
	require.NoError(t, err)
	return s
}

const profileBody = `{"success":true,"data":{"id":"u1","name":"Jo","email":"jo@x.io","role":"employee"}}`

func TestLoginExample(t *testing.T) {
	f := newFake()
	f.on("/auth/login", http.StatusOK, `{"success":true,"token":"T","user":{"id":1,"role":"employee"}}`)
	st := storage.NewMemory()
	s, _ := f.store(t, st)

	require.NoError(t, s.Login(context.Background(), services.Credentials{Email: "a@b.com", Password: "secret1"}))

	assert.True(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())
	tok, _ := st.Get(storage.KeyToken)
	assert.Equal(t, "T", tok)
	id, ok := s.Identity()
	require.True(t, ok)
	assert.Equal(t, models.Ref("1"), id.ID)
	user, _ := st.Get(storage.KeyUser)
	assert.Contains(t, user, `"role":"employee"`)
}

func TestLoginFailureLeavesPriorSession(t *testing.T) {
	f := newFake()
	f.on("/auth/login", http.StatusOK, `{"success":true,"token":"OLD","user":{"id":"a","role":"admin"}}`)
	st := storage.NewMemory()
	s, _ := f.store(t, st)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, services.Credentials{Email: "a@b.com", Password: "secret1"}))

	f.on("/auth/login", http.StatusBadRequest, `{"success":false,"error":"Account locked"}`)
	err := s.Login(ctx, services.Credentials{Email: "b@b.com", Password: "secret2"})
	var le *LoginError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Account locked", le.Message)
	assert.Equal(t, http.StatusBadRequest, client.StatusOf(err))

	f.on("/auth/login", http.StatusInternalServerError, ``)
	err = s.Login(ctx, services.Credentials{Email: "b@b.com", Password: "secret2"})
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Login failed", le.Message)

	f.on("/auth/login", http.StatusOK, `{"success":false}`)
	err = s.Login(ctx, services.Credentials{Email: "b@b.com", Password: "secret2"})
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Login failed", le.Message)

	assert.True(t, s.IsAdmin())
	tok, _ := st.Get(storage.KeyToken)
	assert.Equal(t, "OLD", tok)
}

func TestWrongPasswordKeepsSignedInUser(t *testing.T) {
	b := testenv.Start(t)
	st := storage.NewMemory()
	c := client.New(b.URL, st)
	s := New(c, services.New(c).Auth)
	t.Cleanup(s.Close)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, services.Credentials{Email: testenv.AdminEmail, Password: testenv.AdminPassword}))
	before, _ := st.Get(storage.KeyToken)

	err := s.Login(ctx, services.Credentials{Email: testenv.AdminEmail, Password: "wrong-password"})
	var le *LoginError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, "Invalid credentials", le.Message)
	assert.False(t, client.IsUnauthorized(err))

	assert.True(t, s.IsAuthenticated())
	assert.True(t, s.IsAdmin())
	after, ok := st.Get(storage.KeyToken)
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestLoginValidationNeverReachesNetwork(t *testing.T) {
	f := newFake()
	f.on("/auth/login", http.StatusOK, `{"success":true,"token":"T","user":{"id":1,"role":"employee"}}`)
	s, _ := f.store(t, storage.NewMemory())

	err := s.Login(context.Background(), services.Credentials{Email: "nope", Password: "1"})
	var ve *services.ValidationError
	assert.True(t, errors.As(err, &ve))
	assert.Zero(t, f.count("/auth/login"))
	assert.False(t, s.IsAuthenticated())
}

func TestRegister(t *testing.T) {
	f := newFake()
	f.on("/auth/register", http.StatusConflict, `{"success":false,"error":"email already registered"}`)
	s, _ := f.store(t, storage.NewMemory())
	ctx := context.Background()
	reg := services.Registration{Name: "Jo", Email: "jo@x.io", Password: "secret1"}

	var le *LoginError
	require.True(t, errors.As(s.Register(ctx, reg), &le))
	assert.Equal(t, "email already registered", le.Message)

	f.on("/auth/register", http.StatusBadGateway, `<html/>`)
	require.True(t, errors.As(s.Register(ctx, reg), &le))
	assert.Equal(t, "Registration failed", le.Message)

	f.on("/auth/register", http.StatusCreated, `{"success":true,"token":"R","user":{"id":"u","role":"employee","name":"Jo"}}`)
	require.NoError(t, s.Register(ctx, reg))
	assert.True(t, s.IsAuthenticated())
}

func TestLogoutClearsEverything(t *testing.T) {
	f := newFake()
	f.on("/auth/login", http.StatusOK, `{"success":true,"token":"T","user":{"id":1,"role":"admin"}}`)
	st := storage.NewMemory()
	s, _ := f.store(t, st)
	require.NoError(t, s.Login(context.Background(), services.Credentials{Email: "a@b.com", Password: "secret1"}))

	s.Logout()
	s.Logout()

	assert.False(t, s.IsAuthenticated())
	assert.False(t, s.IsAdmin())
	_, ok := st.Get(storage.KeyToken)
	assert.False(t, ok)
	_, ok = st.Get(storage.KeyUser)
	assert.False(t, ok)
}

func TestUnauthorizedResponseResetsStore(t *testing.T) {
	f := newFake()
	f.on("/auth/login", http.StatusOK, `{"success":true,"token":"T","user":{"id":1,"role":"employee"}}`)
	f.on("/documents", http.StatusUnauthorized, `{"success":false,"error":"token expired"}`)
	st := storage.NewMemory()
	s, c := f.store(t, st)
	ctx := context.Background()
	require.NoError(t, s.Login(ctx, services.Credentials{Email: "a@b.com", Password: "secret1"}))

	_, err := services.New(c).Documents.List(ctx, services.DocumentFilter{})
	assert.True(t, client.IsUnauthorized(err))
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Identity()
	assert.False(t, ok)
}

func TestRehydrate(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	future := time.Now().Add(time.Hour)
	cases := []struct {
		name     string
		token    string
		profile  int
		fetches  int
		signedIn bool
	}{
		{name: "no token", token: "", profile: http.StatusOK, fetches: 0},
		{name: "garbage", token: "not.a.jwt", profile: http.StatusOK, fetches: 0},
		{name: "expired", token: token(t, &past), profile: http.StatusOK, fetches: 0},
		{name: "live", token: token(t, &future), profile: http.StatusOK, fetches: 1, signedIn: true},
		{name: "live but rejected", token: token(t, &future), profile: http.StatusUnauthorized, fetches: 1},
		{name: "live but server down", token: token(t, &future), profile: http.StatusServiceUnavailable, fetches: 1},
		{name: "no exp claim", token: token(t, nil), profile: http.StatusOK, fetches: 1, signedIn: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFake()
			body := profileBody
			if tc.profile != http.StatusOK {
				body = `{"success":false,"error":"nope"}`
			}
			f.on("/auth/me", tc.profile, body)
			st := storage.NewMemory()
			if tc.token != "" {
				require.NoError(t, st.Set(storage.KeyToken, tc.token))
				require.NoError(t, st.Set(storage.KeyUser, `{"id":"stale","role":"admin"}`))
			}
			s, _ := f.store(t, st)
			assert.True(t, s.Loading())

			s.Rehydrate(context.Background())

			assert.False(t, s.Loading())
			assert.Equal(t, tc.fetches, f.count("/auth/me"))
			assert.Equal(t, tc.signedIn, s.IsAuthenticated())
			_, hasIdentity := s.Identity()
			assert.Equal(t, tc.signedIn, hasIdentity)
			_, persisted := st.Get(storage.KeyToken)
			assert.Equal(t, tc.signedIn, persisted)
			if tc.signedIn {
				id, _ := s.Identity()
				assert.Equal(t, "Jo", id.Name)
				assert.False(t, s.IsAdmin(), "stale persisted identity is replaced")
			}
		})
	}
}

func TestRehydrateRunsOnce(t *testing.T) {
	future := time.Now().Add(time.Hour)
	f := newFake()
	f.on("/auth/me", http.StatusOK, profileBody)
	st := storage.NewMemory()
	require.NoError(t, st.Set(storage.KeyToken, token(t, &future)))
	s, _ := f.store(t, st)

	s.Rehydrate(context.Background())
	s.Rehydrate(context.Background())
	assert.Equal(t, 1, f.count("/auth/me"))
}

func TestExpiry(t *testing.T) {
	at := time.Unix(1900000000, 0)
	exp, err := Expiry(token(t, &at))
	require.NoError(t, err)
	require.NotNil(t, exp)
	assert.True(t, exp.Equal(at))

	exp, err = Expiry(token(t, nil))
	require.NoError(t, err)
	assert.Nil(t, exp)

	_, err = Expiry("abc")
	assert.Error(t, err)
}
