// Package services wraps each backend resource as a set of typed calls over
// the client pipeline, one method per endpoint.
package services

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"unicode/utf8"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
)

type Services struct {
	Auth      *Auth
	Employees *Employees
	Documents *Documents
	Locations *Locations
	Tickets   *Tickets
	Payments  *Payments
	AuditLogs *AuditLogs
}

func New(c *client.Client) *Services {
	return &Services{
		Auth:      &Auth{c: c},
		Employees: &Employees{c: c},
		Documents: &Documents{c: c},
		Locations: &Locations{c: c},
		Tickets:   &Tickets{c: c},
		Payments:  &Payments{c: c},
		AuditLogs: &AuditLogs{c: c},
	}
}

// ValidationError lists per-field problems found before any request was sent.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + ": " + e.Fields[k]
	}
	return "invalid input: " + strings.Join(parts, "; ")
}

// checks accumulates field messages; the first message per field wins.
type checks map[string]string

func (c checks) add(field, msg string) {
	if _, ok := c[field]; !ok {
		c[field] = msg
	}
}

func (c checks) required(field, value, msg string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, msg)
	}
}

var emailShape = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func (c checks) email(field, value string) {
	if strings.TrimSpace(value) == "" {
		c.add(field, "Email is required")
		return
	}
	if !emailShape.MatchString(strings.TrimSpace(value)) {
		c.add(field, "Invalid email")
	}
}

const minPassword = 6

func (c checks) password(field, value string) {
	if value == "" {
		c.add(field, "Password is required")
		return
	}
	if utf8.RuneCountInString(value) < minPassword {
		c.add(field, "Password must be at least 6 characters")
	}
}

func (c checks) oneOf(field, value string, allowed ...string) {
	if value == "" {
		return
	}
	for _, a := range allowed {
		if value == a {
			return
		}
	}
	c.add(field, "must be one of "+strings.Join(allowed, ", "))
}

func (c checks) err() error {
	if len(c) == 0 {
		return nil
	}
	return &ValidationError{Fields: c}
}

// call is the shared shape of a JSON endpoint returning an envelope.
func call[T any](ctx context.Context, c *client.Client, method, path string, query url.Values, body any) (*api.Envelope[T], error) {
	var env api.Envelope[T]
	if err := c.Do(ctx, method, path, query, body, &env); err != nil {
		return nil, err
	}
	return &env, nil
}

func get[T any](ctx context.Context, c *client.Client, path string, query url.Values) (*api.Envelope[T], error) {
	return call[T](ctx, c, http.MethodGet, path, query, nil)
}

func idPath(base, id string) string { return base + "/" + url.PathEscape(id) }

// Deleted is the payload of delete endpoints.
type Deleted struct {
	Deleted bool `json:"deleted"`
}

// values builds a query from non-empty pairs.
func values(kv ...string) url.Values {
	q := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			q.Set(kv[i], kv[i+1])
		}
	}
	return q
}
