package services

import (
	"context"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

type AuditLogs struct{ c *client.Client }

// List returns the caller's audit trail, or everyone's when all is set and the
// caller is an admin.
func (s *AuditLogs) List(ctx context.Context, all bool, action string) (*api.Envelope[[]models.AuditLog], error) {
	q := values("action", action)
	if all {
		q.Set("all", "1")
	}
	return get[[]models.AuditLog](ctx, s.c, "/audit-logs", q)
}
