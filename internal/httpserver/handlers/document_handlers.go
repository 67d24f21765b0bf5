package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/models"
	"staffdesk/internal/uploads"
)

// ListDocuments returns every document for admins and the caller's own otherwise.
func ListDocuments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := d.DB.WithContext(r.Context()).Preload("Employee.User").Order("created_at desc")
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
			q = q.Where("verification_status = ?", s)
		}
		if t := r.URL.Query().Get("type"); t != "" {
			q = q.Where("type = ?", t)
		}
		var out []models.Document
		if err := q.Find(&out).Error; err != nil {
			dbError(w, d.Log, "document", err)
			return
		}
		api.WriteList(w, out)
	}
}

// ownedDocument loads the document named in the URL, enforcing owner-or-admin.
func (d Deps) ownedDocument(r *http.Request) (*models.Document, error) {
	return d.documentWhere(r, "id = ?", chi.URLParam(r, "id"))
}

func (d Deps) documentWhere(r *http.Request, cond string, arg string) (*models.Document, error) {
	var doc models.Document
	if err := d.DB.WithContext(r.Context()).Preload("Employee.User").First(&doc, cond, arg).Error; err != nil {
		return nil, err
	}
	c := auth.FromContext(r.Context())
	if !c.IsAdmin() && (doc.Employee == nil || doc.Employee.UserID != c.Subject) {
		return nil, ErrForbidden
	}
	return &doc, nil
}

func GetDocument(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := d.ownedDocument(r)
		if err != nil {
			dbError(w, d.Log, "document", err)
			return
		}
		api.WriteData(w, http.StatusOK, doc)
	}
}

// DownloadDocument serves the file behind a document's fileUrl to its owner or an admin.
func DownloadDocument(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "key")
		if _, err := d.documentWhere(r, "storage_key = ?", key); err != nil {
			dbError(w, d.Log, "file", err)
			return
		}
		err := d.Files.Serve(w, r, key)
		if errors.Is(err, uploads.ErrNotStored) {
			api.WriteError(w, http.StatusNotFound, "file not found")
			return
		}
		if err != nil {
			d.Log.Errorw("serve upload failed", "key", key, "error", err)
			api.WriteError(w, http.StatusInternalServerError, "internal error")
		}
	}
}

// UploadDocument accepts multipart fields file, type, optional name and, for
// admins, optional employeeId. New documents start pending verification.
func UploadDocument(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, uploads.MaxUploadBytes+1<<20)
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			d.Metrics.Uploads.WithLabelValues("rejected").Inc()
			api.WriteError(w, http.StatusBadRequest, "invalid multipart body: "+err.Error())
			return
		}
		file, hdr, err := r.FormFile("file")
		if err != nil {
			d.Metrics.Uploads.WithLabelValues("rejected").Inc()
			api.WriteError(w, http.StatusBadRequest, "file is required")
			return
		}
		defer file.Close()
		docType := strings.TrimSpace(r.FormValue("type"))
		if docType == "" {
			d.Metrics.Uploads.WithLabelValues("rejected").Inc()
			api.WriteError(w, http.StatusBadRequest, "type is required")
			return
		}
		name := strings.TrimSpace(r.FormValue("name"))
		if name == "" {
			name = hdr.Filename
		}

		employeeID := strings.TrimSpace(r.FormValue("employeeId"))
		if employeeID == "" || !auth.FromContext(r.Context()).IsAdmin() {
			e, err := d.currentEmployee(r)
			if err != nil {
				dbError(w, d.Log, "employee", err)
				return
			}
			employeeID = e.ID
		} else {
			var n int64
			if err := d.DB.WithContext(r.Context()).Model(&models.Employee{}).Where("id = ?", employeeID).Count(&n).Error; err != nil || n == 0 {
				api.WriteError(w, http.StatusBadRequest, "unknown employeeId")
				return
			}
		}

		stored, err := d.Files.Save(hdr.Filename, file)
		if errors.Is(err, uploads.ErrTooLarge) {
			d.Metrics.Uploads.WithLabelValues("rejected").Inc()
			api.WriteError(w, http.StatusRequestEntityTooLarge, err.Error())
			return
		}
		if err != nil {
			d.Metrics.Uploads.WithLabelValues("failed").Inc()
			d.Log.Errorw("store upload failed", "file", hdr.Filename, "error", err)
			api.WriteError(w, http.StatusInternalServerError, "could not store file")
			return
		}
		doc := models.Document{
			EmployeeID: employeeID, Name: name, Type: docType, FileName: hdr.Filename,
			FileURL: stored.URL, StorageKey: stored.Key, MimeType: hdr.Header.Get("Content-Type"),
			Size: stored.Size, VerificationStatus: models.DocumentPending,
		}
		db := d.DB.WithContext(r.Context())
		if err := db.Create(&doc).Error; err != nil {
			_ = d.Files.Remove(stored.Key)
			d.Metrics.Uploads.WithLabelValues("failed").Inc()
			dbError(w, d.Log, "document", err)
			return
		}
		_ = db.Preload("Employee.User").First(&doc, "id = ?", doc.ID).Error
		d.Metrics.Uploads.WithLabelValues("stored").Inc()
		d.audit(r, "document.upload", map[string]any{"documentId": doc.ID, "type": doc.Type})
		api.WriteData(w, http.StatusCreated, doc)
	}
}

type verifyReq struct {
	Status string `json:"status"`
}

func VerifyDocument(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if !oneOf(req.Status, models.DocumentVerified, models.DocumentRejected) {
			api.WriteError(w, http.StatusBadRequest, "status must be verified or rejected")
			return
		}
		db := d.DB.WithContext(r.Context())
		var doc models.Document
		if err := db.First(&doc, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "document", err)
			return
		}
		now := time.Now()
		by := auth.Subject(r.Context())
		doc.VerificationStatus = req.Status
		doc.VerifiedBy = &by
		doc.VerifiedAt = &now
		if err := db.Omit("Employee").Save(&doc).Error; err != nil {
			dbError(w, d.Log, "document", err)
			return
		}
		_ = db.Preload("Employee.User").First(&doc, "id = ?", doc.ID).Error
		d.audit(r, "document.verify", map[string]any{"documentId": doc.ID, "status": req.Status})
		api.WriteData(w, http.StatusOK, doc)
	}
}

func DeleteDocument(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := d.ownedDocument(r)
		if err != nil {
			dbError(w, d.Log, "document", err)
			return
		}
		if err := d.DB.WithContext(r.Context()).Delete(&models.Document{}, "id = ?", doc.ID).Error; err != nil {
			dbError(w, d.Log, "document", err)
			return
		}
		if err := d.Files.Remove(doc.StorageKey); err != nil {
			d.Log.Warnw("remove upload failed", "key", doc.StorageKey, "error", err)
		}
		d.audit(r, "document.delete", map[string]any{"documentId": doc.ID})
		api.WriteData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}
