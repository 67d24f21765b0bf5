package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/models"
)

func ListEmployees(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := d.DB.WithContext(r.Context()).Preload("User").Order("created_at desc")
		if s := r.URL.Query().Get("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		if dep := r.URL.Query().Get("department"); dep != "" {
			q = q.Where("department = ?", dep)
		}
		var out []models.Employee
		if err := q.Find(&out).Error; err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		api.WriteList(w, out)
	}
}

// GetEmployee is open to admins and to the employee the record belongs to.
func GetEmployee(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e models.Employee
		if err := d.DB.WithContext(r.Context()).Preload("User").First(&e, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		c := auth.FromContext(r.Context())
		if !c.IsAdmin() && e.UserID != c.Subject {
			api.WriteError(w, http.StatusForbidden, "forbidden")
			return
		}
		api.WriteData(w, http.StatusOK, e)
	}
}

type createEmployeeReq struct {
	registerReq
	Role   string `json:"role"`
	Status string `json:"status"`
}

func CreateEmployee(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createEmployeeReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Name) == "" || normEmail(req.Email) == "" || req.Password == "" {
			api.WriteError(w, http.StatusBadRequest, "name, email and password required")
			return
		}
		if req.Role == "" {
			req.Role = models.RoleEmployee
		}
		if req.Status == "" {
			req.Status = models.EmployeeActive
		}
		if !oneOf(req.Role, models.RoleAdmin, models.RoleEmployee) {
			api.WriteError(w, http.StatusBadRequest, "invalid role")
			return
		}
		if !oneOf(req.Status, models.EmployeeActive, models.EmployeeInactive, models.EmployeeOnLeave) {
			api.WriteError(w, http.StatusBadRequest, "invalid status")
			return
		}
		u, e, err := createEmployeeAccount(d.DB.WithContext(r.Context()), req.registerReq, req.Role, req.Status)
		switch {
		case errors.Is(err, errEmailTaken):
			api.WriteError(w, http.StatusConflict, err.Error())
			return
		case errors.Is(err, auth.ErrPasswordTooShort):
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		case err != nil:
			dbError(w, d.Log, "employee", err)
			return
		}
		d.audit(r, "employee.create", map[string]any{"employeeId": e.ID, "email": u.Email})
		api.WriteData(w, http.StatusCreated, e)
	}
}

type updateEmployeeReq struct {
	Name        *string `json:"name"`
	Email       *string `json:"email"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"isActive"`
	Department  *string `json:"department"`
	Position    *string `json:"position"`
	PhoneNumber *string `json:"phoneNumber"`
	Address     *string `json:"address"`
	Status      *string `json:"status"`
}

func UpdateEmployee(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req updateEmployeeReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Role != nil && !oneOf(*req.Role, models.RoleAdmin, models.RoleEmployee) {
			api.WriteError(w, http.StatusBadRequest, "invalid role")
			return
		}
		if req.Status != nil && !oneOf(*req.Status, models.EmployeeActive, models.EmployeeInactive, models.EmployeeOnLeave) {
			api.WriteError(w, http.StatusBadRequest, "invalid status")
			return
		}
		var e models.Employee
		var roleChanged bool
		err := d.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Preload("User").First(&e, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
				return err
			}
			u := e.User
			roleChanged = req.Role != nil && *req.Role != u.Role
			if req.Name != nil {
				u.Name = strings.TrimSpace(*req.Name)
			}
			if req.Email != nil && normEmail(*req.Email) != u.Email {
				var taken int64
				if err := tx.Model(&models.User{}).Where("email = ? AND id <> ?", normEmail(*req.Email), u.ID).Count(&taken).Error; err != nil {
					return err
				}
				if taken > 0 {
					return errEmailTaken
				}
				u.Email = normEmail(*req.Email)
			}
			if req.Role != nil {
				u.Role = *req.Role
			}
			if req.IsActive != nil {
				u.IsActive = *req.IsActive
			}
			if req.Department != nil {
				e.Department = *req.Department
			}
			if req.Position != nil {
				e.Position = *req.Position
			}
			if req.PhoneNumber != nil {
				e.PhoneNumber = *req.PhoneNumber
			}
			if req.Address != nil {
				e.Address = *req.Address
			}
			if req.Status != nil {
				e.Status = *req.Status
			}
			u.UpdatedAt = time.Now()
			if err := tx.Save(&u).Error; err != nil {
				return err
			}
			e.User = u
			return tx.Omit(clause.Associations).Save(&e).Error
		})
		if errors.Is(err, errEmailTaken) {
			api.WriteError(w, http.StatusConflict, err.Error())
			return
		}
		if err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		// Tokens carry the role, so a role change has to end the sessions
		// that were issued with the old one.
		reason := ""
		switch {
		case req.IsActive != nil && !*req.IsActive:
			reason = "deactivated"
		case roleChanged:
			reason = "role_changed"
		}
		if reason != "" {
			n, err := revokeSessions(d.DB.WithContext(r.Context()), e.UserID)
			if err != nil {
				d.Log.Warnw("revoke sessions failed", "user", e.UserID, "reason", reason, "error", err)
			}
			d.Metrics.Revocations.WithLabelValues(reason).Add(float64(n))
		}
		d.audit(r, "employee.update", map[string]any{"employeeId": e.ID})
		api.WriteData(w, http.StatusOK, e)
	}
}

// revokeSessions marks every live session of the user revoked.
func revokeSessions(db *gorm.DB, userID string) (int64, error) {
	now := time.Now()
	res := db.Model(&models.Session{}).Where("user_id = ? AND revoked_at IS NULL", userID).Update("revoked_at", &now)
	return res.RowsAffected, res.Error
}

var errSelfDelete = errors.New("cannot delete your own account")

// DeleteEmployee removes the employee, its account and everything recorded
// against either.
func DeleteEmployee(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e models.Employee
		var files []string
		var revoked int64
		err := d.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.First(&e, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
				return err
			}
			if e.UserID == auth.Subject(r.Context()) {
				return errSelfDelete
			}
			if err := tx.Model(&models.Document{}).Where("employee_id = ?", e.ID).Pluck("storage_key", &files).Error; err != nil {
				return err
			}
			var tickets []string
			if err := tx.Model(&models.HelpTicket{}).Where("user_id = ?", e.UserID).Pluck("id", &tickets).Error; err != nil {
				return err
			}
			steps := []func() error{
				func() error { return tx.Where("employee_id = ?", e.ID).Delete(&models.Document{}).Error },
				func() error { return tx.Where("employee_id = ?", e.ID).Delete(&models.LocationCheckIn{}).Error },
				func() error { return tx.Where("employee_id = ?", e.ID).Delete(&models.PaymentRecord{}).Error },
				func() error {
					return tx.Where("user_id = ? OR ticket_id IN ?", e.UserID, append(tickets, "")).Delete(&models.TicketReply{}).Error
				},
				func() error { return tx.Where("user_id = ?", e.UserID).Delete(&models.HelpTicket{}).Error },
				func() (err error) {
					revoked, err = revokeSessions(tx, e.UserID)
					return err
				},
				func() error { return tx.Delete(&models.Employee{}, "id = ?", e.ID).Error },
				func() error { return tx.Delete(&models.User{}, "id = ?", e.UserID).Error },
			}
			for _, step := range steps {
				if err := step(); err != nil {
					return err
				}
			}
			return nil
		})
		if errors.Is(err, errSelfDelete) {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		if err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		d.Metrics.Revocations.WithLabelValues("deleted").Add(float64(revoked))
		for _, key := range files {
			if err := d.Files.Remove(key); err != nil {
				d.Log.Warnw("remove upload failed", "key", key, "error", err)
			}
		}
		d.audit(r, "employee.delete", map[string]any{"employeeId": e.ID, "userId": e.UserID})
		api.WriteData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

type resetPasswordReq struct {
	NewPassword string `json:"newPassword"`
}

// ResetPassword sets a new password and revokes the account's sessions.
func ResetPassword(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req resetPasswordReq
		if !decodeJSON(w, r, &req) {
			return
		}
		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		var e models.Employee
		if err := d.DB.WithContext(r.Context()).First(&e, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		db := d.DB.WithContext(r.Context())
		if err := db.Model(&models.User{}).Where("id = ?", e.UserID).
			Updates(map[string]any{"password_hash": hash, "updated_at": time.Now()}).Error; err != nil {
			dbError(w, d.Log, "user", err)
			return
		}
		n, err := revokeSessions(db, e.UserID)
		if err != nil {
			d.Log.Warnw("revoke sessions failed", "user", e.UserID, "error", err)
		}
		d.Metrics.Revocations.WithLabelValues("password_reset").Add(float64(n))
		d.audit(r, "employee.reset_password", map[string]any{"employeeId": e.ID})
		api.WriteData(w, http.StatusOK, map[string]any{"reset": true})
	}
}
