package handlers

import (
	"net/http"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/models"
)

const auditPage = 200

// AuditLogs returns the caller's own audit trail, or everyone's for an admin
// passing all=1.
func AuditLogs(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		all := r.URL.Query().Get("all") == "1"
		q := d.DB.WithContext(r.Context()).Order("created_at desc, id desc").Limit(auditPage)
		if !all || !auth.FromContext(r.Context()).IsAdmin() {
			q = q.Where("user_id = ?", auth.Subject(r.Context()))
		}
		if a := r.URL.Query().Get("action"); a != "" {
			q = q.Where("action = ?", a)
		}
		var logs []models.AuditLog
		if err := q.Find(&logs).Error; err != nil {
			dbError(w, d.Log, "audit log", err)
			return
		}
		api.WriteList(w, logs)
	}
}

func Healthz(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sqlDB, err := d.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(r.Context())
		}
		if err != nil {
			d.Log.Warnw("health check failed", "error", err)
			api.WriteError(w, http.StatusServiceUnavailable, "database unavailable")
			return
		}
		api.WriteData(w, http.StatusOK, map[string]any{"status": "ok"})
	}
}
