package session

import (
	"context"
	"net/http"
	"testing"
	"time"

	"pgregory.net/rapid"

	"staffdesk/internal/client/storage"
)

// TestRehydrate_ProfileFetchesFollowExpiry checks that an expired token never
// triggers a profile fetch, a live one triggers exactly one, and the store is
// signed in only when that fetch succeeds.
func TestRehydrate_ProfileFetchesFollowExpiry(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		offset := time.Duration(rapid.IntRange(-72, 72).Draw(rt, "offset_hours")) * time.Hour
		if offset == 0 {
			offset = time.Minute
		}
		status := rapid.SampledFrom([]int{
			http.StatusOK, http.StatusUnauthorized, http.StatusForbidden, http.StatusInternalServerError,
		}).Draw(rt, "profile_status")

		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
		exp := now.Add(offset)
		f := newFake()
		body := profileBody
		if status != http.StatusOK {
			body = `{"success":false}`
		}
		f.on("/auth/me", status, body)
		st := storage.NewMemory()
		if err := st.Set(storage.KeyToken, token(t, &exp)); err != nil {
			rt.Fatal(err)
		}
		s, _ := f.store(t, st)
		WithClock(func() time.Time { return now })(s)

		s.Rehydrate(context.Background())

		expired := offset < 0
		wantFetches := 1
		if expired {
			wantFetches = 0
		}
		if got := f.count("/auth/me"); got != wantFetches {
			rt.Fatalf("profile fetches = %d, want %d (offset %v)", got, wantFetches, offset)
		}
		wantAuth := !expired && status == http.StatusOK
		if s.IsAuthenticated() != wantAuth {
			rt.Fatalf("authenticated = %v, want %v (offset %v, status %d)", s.IsAuthenticated(), wantAuth, offset, status)
		}
		if _, ok := s.Identity(); ok != wantAuth {
			rt.Fatalf("identity present = %v, want %v", ok, wantAuth)
		}
		if s.Loading() {
			rt.Fatalf("still loading after Rehydrate")
		}
	})
}
