package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/metrics"
	"staffdesk/internal/models"
	"staffdesk/internal/uploads"
)

// Deps is what every handler closes over.
type Deps struct {
	DB      *gorm.DB
	Log     *zap.SugaredLogger
	Tokens  *auth.Issuer
	Files   *uploads.Store
	Metrics *metrics.Metrics
}

var (
	ErrNotFound  = errors.New("not found")
	ErrConflict  = errors.New("conflict")
	ErrForbidden = errors.New("forbidden")

	errNoEmployeeProfile = fmt.Errorf("no employee profile for this account: %w", ErrForbidden)
)

const maxJSONBody = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		api.WriteError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

// dbError maps a store or sentinel error to an envelope response.
func dbError(w http.ResponseWriter, lg *zap.SugaredLogger, what string, err error) {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound), errors.Is(err, ErrNotFound):
		api.WriteError(w, http.StatusNotFound, what+" not found")
		return
	case errors.Is(err, ErrForbidden):
		api.WriteError(w, http.StatusForbidden, err.Error())
		return
	case errors.Is(err, ErrConflict):
		api.WriteError(w, http.StatusConflict, err.Error())
		return
	}
	lg.Errorw("database error", "entity", what, "error", err)
	api.WriteError(w, http.StatusInternalServerError, "internal error")
}

func (d Deps) audit(r *http.Request, action string, meta map[string]any) {
	row := models.AuditLog{Action: action, Metadata: models.NewJSONB(meta), CreatedAt: time.Now()}
	if sub := auth.Subject(r.Context()); sub != "" {
		row.UserID = &sub
	}
	if err := d.DB.WithContext(r.Context()).Create(&row).Error; err != nil {
		d.Log.Warnw("audit write failed", "action", action, "error", err)
		if d.Metrics != nil {
			d.Metrics.AuditFailure.Inc()
		}
	}
}

// currentEmployee loads the employee profile of the authenticated user.
func (d Deps) currentEmployee(r *http.Request) (*models.Employee, error) {
	var e models.Employee
	err := d.DB.WithContext(r.Context()).Preload("User").First(&e, "user_id = ?", auth.Subject(r.Context())).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errNoEmployeeProfile
	}
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func normEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }
