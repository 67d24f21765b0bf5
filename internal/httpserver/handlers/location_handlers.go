package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/models"
)

var (
	errAlreadyCheckedIn = fmt.Errorf("already checked in: %w", ErrConflict)
	errNotCheckedIn     = fmt.Errorf("check-in is already closed: %w", ErrConflict)
)

func ListLocations(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := d.DB.WithContext(r.Context()).Preload("Employee.User").Order("check_in_time desc")
		if auth.FromContext(r.Context()).IsAdmin() {
			if id := r.URL.Query().Get("employeeId"); id != "" {
				q = q.Where("employee_id = ?", id)
			}
		} else {
			e, err := d.currentEmployee(r)
			if err != nil {
				dbError(w, d.Log, "employee", err)
				return
			}
			q = q.Where("employee_id = ?", e.ID)
		}
		if s := r.URL.Query().Get("status"); s != "" {
			q = q.Where("status = ?", s)
		}
		var out []models.LocationCheckIn
		if err := q.Find(&out).Error; err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		api.WriteList(w, out)
	}
}

func (d Deps) ownedLocation(r *http.Request) (*models.LocationCheckIn, error) {
	var loc models.LocationCheckIn
	if err := d.DB.WithContext(r.Context()).Preload("Employee.User").First(&loc, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		return nil, err
	}
	c := auth.FromContext(r.Context())
	if !c.IsAdmin() && (loc.Employee == nil || loc.Employee.UserID != c.Subject) {
		return nil, ErrForbidden
	}
	return &loc, nil
}

func GetLocation(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := d.ownedLocation(r)
		if err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		api.WriteData(w, http.StatusOK, loc)
	}
}

type positionReq struct {
	Latitude  *float64   `json:"latitude"`
	Longitude *float64   `json:"longitude"`
	Accuracy  float64    `json:"accuracy"`
	Address   string     `json:"address"`
	Device    string     `json:"device"`
	Timestamp *time.Time `json:"timestamp"`
}

func (p positionReq) validate() error {
	if p.Latitude == nil || p.Longitude == nil {
		return errors.New("latitude and longitude required")
	}
	if *p.Latitude < -90 || *p.Latitude > 90 || *p.Longitude < -180 || *p.Longitude > 180 {
		return errors.New("coordinates out of range")
	}
	if p.Accuracy < 0 {
		return errors.New("accuracy must not be negative")
	}
	return nil
}

// CheckIn opens a check-in for the caller. Only one may be open at a time.
func CheckIn(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req positionReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := req.validate(); err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		e, err := d.currentEmployee(r)
		if err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		loc := models.LocationCheckIn{
			EmployeeID: e.ID, Latitude: *req.Latitude, Longitude: *req.Longitude, Accuracy: req.Accuracy,
			Address: req.Address, Device: req.Device, CheckInTime: time.Now(), Status: models.CheckedIn,
		}
		// The open check-in index rejects a second checked-in row, including
		// one racing this insert.
		err = d.DB.WithContext(r.Context()).Omit("Employee").Create(&loc).Error
		if err != nil && (errors.Is(err, gorm.ErrDuplicatedKey) || d.hasOpenCheckIn(r, e.ID)) {
			err = errAlreadyCheckedIn
		}
		if err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		loc.Employee = e
		d.Metrics.CheckIns.Inc()
		d.audit(r, "location.checkin", map[string]any{"locationId": loc.ID})
		api.WriteData(w, http.StatusCreated, loc)
	}
}

func (d Deps) hasOpenCheckIn(r *http.Request, employeeID string) bool {
	var open int64
	err := d.DB.WithContext(r.Context()).Model(&models.LocationCheckIn{}).
		Where("employee_id = ? AND status = ?", employeeID, models.CheckedIn).Count(&open).Error
	return err == nil && open > 0
}

func CheckOut(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		loc, err := d.ownedLocation(r)
		if err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		if loc.Status != models.CheckedIn {
			dbError(w, d.Log, "location", errNotCheckedIn)
			return
		}
		now := time.Now()
		if err := d.DB.WithContext(r.Context()).Model(&models.LocationCheckIn{}).Where("id = ?", loc.ID).
			Updates(map[string]any{"status": models.CheckedOut, "check_out_time": now, "updated_at": now}).Error; err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		loc.Status = models.CheckedOut
		loc.CheckOutTime = &now
		d.audit(r, "location.checkout", map[string]any{"locationId": loc.ID})
		api.WriteData(w, http.StatusOK, loc)
	}
}

// LiveUpdate records the latest position against an open check-in.
func LiveUpdate(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req positionReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if err := req.validate(); err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		loc, err := d.ownedLocation(r)
		if err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		if loc.Status != models.CheckedIn {
			dbError(w, d.Log, "location", errNotCheckedIn)
			return
		}
		at := time.Now()
		if req.Timestamp != nil {
			at = *req.Timestamp
		}
		acc := req.Accuracy
		if err := d.DB.WithContext(r.Context()).Model(&models.LocationCheckIn{}).Where("id = ?", loc.ID).
			Updates(map[string]any{
				"last_latitude": *req.Latitude, "last_longitude": *req.Longitude,
				"last_accuracy": acc, "last_update_at": at, "updated_at": time.Now(),
			}).Error; err != nil {
			dbError(w, d.Log, "location", err)
			return
		}
		loc.LastLatitude, loc.LastLongitude, loc.LastAccuracy, loc.LastUpdateAt = req.Latitude, req.Longitude, &acc, &at
		d.Metrics.LiveUpdates.Inc()
		api.WriteData(w, http.StatusOK, loc)
	}
}

func DeleteLocation(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res := d.DB.WithContext(r.Context()).Delete(&models.LocationCheckIn{}, "id = ?", id)
		if res.Error != nil {
			dbError(w, d.Log, "location", res.Error)
			return
		}
		if res.RowsAffected == 0 {
			dbError(w, d.Log, "location", ErrNotFound)
			return
		}
		d.audit(r, "location.delete", map[string]any{"locationId": id})
		api.WriteData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
