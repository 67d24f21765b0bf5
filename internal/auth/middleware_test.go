package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staffdesk/internal/dbtest"
	"staffdesk/internal/models"
)

func protected(t *testing.T) (http.Handler, *Issuer, func(role string) (string, string)) {
	t.Helper()
	db := dbtest.Open(t)
	iss := NewIssuer("mw-secret", time.Hour)
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(Subject(r.Context())))
	})
	h := JWTAuth(db, iss)(final)

	login := func(role string) (string, string) {
		u := models.User{Name: "T", Email: role + "@x.io", PasswordHash: "x", Role: role}
		require.NoError(t, db.Create(&u).Error)
		issued, err := iss.Sign(u)
		require.NoError(t, err)
		require.NoError(t, db.Create(&models.Session{JTI: issued.JTI, UserID: u.ID, ExpiresAt: issued.ExpiresAt}).Error)
		return issued.Token, issued.JTI
	}
	return h, iss, login
}

func do(h http.Handler, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAcceptsLiveSession(t *testing.T) {
	h, _, login := protected(t)
	token, _ := login(models.RoleEmployee)

	rec := do(h, token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())
}

func TestJWTAuthRejects(t *testing.T) {
	h, iss, _ := protected(t)

	rec := do(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"success":false,"error":"missing bearer token"}`, rec.Body.String())

	assert.Equal(t, http.StatusUnauthorized, do(h, "garbage").Code)

	// signed but never persisted as a session
	issued, err := iss.Sign(models.User{ID: "ghost", Role: models.RoleEmployee})
	require.NoError(t, err)
	rec = do(h, issued.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "session not found")
}

func TestJWTAuthRejectsRevokedSession(t *testing.T) {
	db := dbtest.Open(t)
	iss := NewIssuer("mw-secret", time.Hour)
	h := JWTAuth(db, iss)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	u := models.User{Name: "R", Email: "r@x.io", PasswordHash: "x", Role: models.RoleEmployee}
	require.NoError(t, db.Create(&u).Error)
	issued, err := iss.Sign(u)
	require.NoError(t, err)
	now := time.Now()
	require.NoError(t, db.Create(&models.Session{JTI: issued.JTI, UserID: u.ID, ExpiresAt: issued.ExpiresAt, RevokedAt: &now}).Error)

	rec := do(h, issued.Token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "revoked")
}

func TestRequireRole(t *testing.T) {
	h := RequireRole(models.RoleAdmin)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithClaims(req.Context(), Claims{Subject: "u", Role: models.RoleEmployee}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	req = req.WithContext(WithClaims(req.Context(), Claims{Subject: "a", Role: models.RoleAdmin}))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}
