// Package gate decides which view a session may see. Evaluate is pure; the
// Navigator applies it on every navigation and owns the current view.
package gate

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"staffdesk/internal/client"
	"staffdesk/internal/client/session"
)

type Requirement int

const (
	Public Requirement = iota
	RequireAuthenticated
	RequireAdmin
)

func (r Requirement) String() string {
	switch r {
	case RequireAuthenticated:
		return "authenticated"
	case RequireAdmin:
		return "admin"
	default:
		return "public"
	}
}

type Decision int

const (
	Allow Decision = iota
	Wait
	RedirectLogin
	RedirectUnauthorized
)

func (d Decision) String() string {
	switch d {
	case Wait:
		return "wait"
	case RedirectLogin:
		return "redirect-login"
	case RedirectUnauthorized:
		return "redirect-unauthorized"
	default:
		return "allow"
	}
}

// Evaluate applies req to the session snapshot. While the store is still
// rehydrating, protected views wait instead of redirecting.
func Evaluate(st session.State, req Requirement) Decision {
	if req == Public {
		return Allow
	}
	if st.Loading {
		return Wait
	}
	if !st.Authenticated() {
		return RedirectLogin
	}
	if req == RequireAdmin && !st.Admin() {
		return RedirectUnauthorized
	}
	return Allow
}

const (
	Login        = "/login"
	Unauthorized = "/unauthorized"
	NotFound     = "/not-found"
	Dashboard    = "/dashboard"
	Profile      = "/profile"
	Employees    = "/employees"
	Documents    = "/documents"
	Locations    = "/locations"
	HelpCenter   = "/help-center"
	Payments     = "/payment-records"
	MyPayments   = "/my-payments"
)

// Routes is the static route table.
var Routes = map[string]Requirement{
	Login:        Public,
	Unauthorized: Public,
	NotFound:     Public,
	Dashboard:    RequireAuthenticated,
	Profile:      RequireAuthenticated,
	Documents:    RequireAuthenticated,
	Locations:    RequireAuthenticated,
	HelpCenter:   RequireAuthenticated,
	Payments:     RequireAuthenticated,
	MyPayments:   RequireAuthenticated,
	Employees:    RequireAdmin,
}

// Resolve maps a requested path onto a route in the table.
func Resolve(path string) (string, Requirement) {
	p := "/" + strings.Trim(path, "/")
	if p == "/" {
		p = Dashboard
	}
	req, ok := Routes[p]
	if !ok {
		return NotFound, Public
	}
	return p, req
}

// Navigator tracks the current view. It is the only subscriber that reacts
// to session invalidation by moving to the login view.
type Navigator struct {
	store *session.Store
	log   *zap.SugaredLogger

	mu      sync.Mutex
	current string
	unsub   func()
}

func NewNavigator(c *client.Client, store *session.Store, lg *zap.SugaredLogger) *Navigator {
	if lg == nil {
		lg = zap.NewNop().Sugar()
	}
	n := &Navigator{store: store, log: lg, current: Login}
	n.unsub = c.OnSessionInvalidated(n.invalidated)
	return n
}

func (n *Navigator) Close() { n.unsub() }

func (n *Navigator) invalidated() {
	n.mu.Lock()
	from := n.current
	n.current = Login
	n.mu.Unlock()
	n.log.Infow("session invalidated", "from", from)
}

func (n *Navigator) Current() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Navigate evaluates path against the current session and moves to wherever
// the decision leads. On Wait the view does not change.
func (n *Navigator) Navigate(path string) (string, Decision) {
	route, req := Resolve(path)
	d := Evaluate(n.store.Snapshot(), req)

	n.mu.Lock()
	defer n.mu.Unlock()
	switch d {
	case Allow:
		n.current = route
	case RedirectLogin:
		n.current = Login
	case RedirectUnauthorized:
		n.current = Unauthorized
	}
	return n.current, d
}
