package gate

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"staffdesk/internal/client"
	"staffdesk/internal/client/services"
	"staffdesk/internal/client/session"
	"staffdesk/internal/client/storage"
	"staffdesk/internal/models"
)

func TestEvaluateTable(t *testing.T) {
	admin := &models.Profile{ID: "1", Role: models.RoleAdmin}
	emp := &models.Profile{ID: "2", Role: models.RoleEmployee}
	cases := []struct {
		name string
		st   session.State
		req  Requirement
		want Decision
	}{
		{"public while loading", session.State{Loading: true}, Public, Allow},
		{"protected while loading", session.State{Loading: true}, RequireAuthenticated, Wait},
		{"anonymous", session.State{}, RequireAuthenticated, RedirectLogin},
		{"anonymous admin view", session.State{}, RequireAdmin, RedirectLogin},
		{"employee", session.State{Token: "t", Identity: emp}, RequireAuthenticated, Allow},
		{"employee admin view", session.State{Token: "t", Identity: emp}, RequireAdmin, RedirectUnauthorized},
		{"admin", session.State{Token: "t", Identity: admin}, RequireAdmin, Allow},
		{"admin protected view", session.State{Token: "t", Identity: admin}, RequireAuthenticated, Allow},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Evaluate(tc.st, tc.req))
		})
	}
}

func TestResolve(t *testing.T) {
	for in, want := range map[string]string{
		"/":                Dashboard,
		"":                 Dashboard,
		"/employees/":      Employees,
		"documents":        Documents,
		"/nowhere":         NotFound,
		"/employees/extra": NotFound,
	} {
		got, _ := Resolve(in)
		assert.Equal(t, want, got, in)
	}
}

func stateGen() *rapid.Generator[session.State] {
	return rapid.Custom(func(t *rapid.T) session.State {
		st := session.State{Loading: rapid.Bool().Draw(t, "loading")}
		if rapid.Bool().Draw(t, "signed_in") {
			st.Token = rapid.StringMatching(`[A-Za-z0-9]{1,12}`).Draw(t, "token")
			role := rapid.SampledFrom([]string{models.RoleAdmin, models.RoleEmployee}).Draw(t, "role")
			st.Identity = &models.Profile{ID: "x", Role: role}
		}
		return st
	})
}

func routeGen() *rapid.Generator[string] {
	paths := make([]string, 0, len(Routes)+2)
	for p := range Routes {
		paths = append(paths, p)
	}
	paths = append(paths, "/", "/missing")
	return rapid.SampledFrom(paths)
}

func TestGateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		st := stateGen().Draw(t, "state")
		route, req := Resolve(routeGen().Draw(t, "path"))
		d := Evaluate(st, req)

		if d == Allow && req != Public && !st.Authenticated() {
			t.Fatalf("anonymous session allowed into %s", route)
		}
		if d == Allow && req == RequireAdmin && !st.Admin() {
			t.Fatalf("non-admin allowed into %s", route)
		}
		if !st.Loading && st.Admin() && d != Allow {
			t.Fatalf("admin denied %s: %v", route, d)
		}
		if !st.Loading && st.Authenticated() && req != RequireAdmin && d != Allow {
			t.Fatalf("signed-in session denied %s: %v", route, d)
		}
		if d == Wait && (!st.Loading || req == Public) {
			t.Fatalf("unexpected wait for %s", route)
		}
	})
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

// signedIn builds a navigator over a session that logged in with role.
// Requests to any path other than /auth/login get status.
func signedIn(t *testing.T, role string, status *int) (*Navigator, *session.Store, *services.Services) {
	t.Helper()
	hc := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		code, body := *status, `{"success":true,"data":[]}`
		if r.URL.Path == "/auth/login" {
			code, body = http.StatusOK, `{"success":true,"token":"T","user":{"id":1,"role":"`+role+`"}}`
		} else if code != http.StatusOK {
			body = `{"success":false,"error":"denied"}`
		}
		return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(body)), Header: http.Header{}}, nil
	})}
	c := client.New("http://api.test", storage.NewMemory(), client.WithHTTPClient(hc))
	svc := services.New(c)
	st := session.New(c, svc.Auth)
	nav := NewNavigator(c, st, nil)
	t.Cleanup(func() { nav.Close(); st.Close() })

	st.Rehydrate(context.Background())
	require.NoError(t, st.Login(context.Background(), services.Credentials{Email: "a@b.com", Password: "secret1"}))
	return nav, st, svc
}

func TestNavigatorAppliesRoles(t *testing.T) {
	ok := http.StatusOK
	nav, _, _ := signedIn(t, models.RoleEmployee, &ok)

	view, d := nav.Navigate("/")
	assert.Equal(t, Dashboard, view)
	assert.Equal(t, Allow, d)

	view, d = nav.Navigate(Employees)
	assert.Equal(t, Unauthorized, view)
	assert.Equal(t, RedirectUnauthorized, d)

	view, _ = nav.Navigate("/bogus")
	assert.Equal(t, NotFound, view)

	admin, _, _ := signedIn(t, models.RoleAdmin, &ok)
	view, d = admin.Navigate(Employees)
	assert.Equal(t, Employees, view)
	assert.Equal(t, Allow, d)
}

func TestNavigatorWaitsWhileLoading(t *testing.T) {
	c := client.New("http://api.test", storage.NewMemory())
	st := session.New(c, services.New(c).Auth)
	nav := NewNavigator(c, st, nil)
	defer nav.Close()

	view, d := nav.Navigate(Documents)
	assert.Equal(t, Wait, d)
	assert.Equal(t, Login, view)

	st.Rehydrate(context.Background())
	view, d = nav.Navigate(Documents)
	assert.Equal(t, RedirectLogin, d)
	assert.Equal(t, Login, view)
}

// Any 401 lands on the login view even when the caller ignores the error.
func TestUnauthorizedAlwaysEndsAtLogin(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		role := rapid.SampledFrom([]string{models.RoleAdmin, models.RoleEmployee}).Draw(rt, "role")
		start := routeGen().Draw(rt, "start")
		status := http.StatusOK
		nav, st, svc := signedIn(t, role, &status)
		nav.Navigate(start)

		status = http.StatusUnauthorized
		call := rapid.IntRange(0, 3).Draw(rt, "call")
		ctx := context.Background()
		switch call {
		case 0:
			_, _ = svc.Documents.List(ctx, services.DocumentFilter{})
		case 1:
			_, _ = svc.Locations.List(ctx, services.LocationFilter{})
		case 2:
			_, _ = svc.Tickets.Stats(ctx)
		default:
			_, _ = svc.Payments.MySummary(ctx)
		}

		if nav.Current() != Login {
			rt.Fatalf("view %s after 401, want %s", nav.Current(), Login)
		}
		if st.IsAuthenticated() {
			rt.Fatalf("still authenticated after 401")
		}
		if _, req := Resolve(start); req != Public {
			if view, d := nav.Navigate(start); d != RedirectLogin || view != Login {
				rt.Fatalf("protected %s reachable after 401: %v", start, d)
			}
		}
	})
}
