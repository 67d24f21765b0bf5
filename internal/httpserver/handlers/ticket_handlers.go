package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/models"
)

var (
	ticketPriorities = []string{"low", "medium", "high", "urgent"}
	ticketCategories = []string{"technical", "hr", "payroll", "general", "other"}
	ticketStatuses   = []string{models.TicketOpen, models.TicketInProgress, models.TicketResolved, models.TicketClosed}

	errTicketClosed = fmt.Errorf("ticket is closed: %w", ErrConflict)
)

func preloadTicket(db *gorm.DB) *gorm.DB {
	return db.Preload("User").
		Preload("Replies", func(db *gorm.DB) *gorm.DB { return db.Order("created_at asc") }).
		Preload("Replies.User")
}

// scopeTickets limits non-admin callers to their own tickets.
func scopeTickets(r *http.Request, q *gorm.DB) *gorm.DB {
	if c := auth.FromContext(r.Context()); !c.IsAdmin() {
		q = q.Where("user_id = ?", c.Subject)
	}
	return q
}

func ListTickets(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := scopeTickets(r, preloadTicket(d.DB.WithContext(r.Context()))).Order("created_at desc")
		for _, f := range []string{"status", "priority", "category"} {
			if v := r.URL.Query().Get(f); v != "" {
				q = q.Where(f+" = ?", v)
			}
		}
		var out []models.HelpTicket
		if err := q.Find(&out).Error; err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		api.WriteList(w, out)
	}
}

func (d Deps) ownedTicket(r *http.Request) (*models.HelpTicket, error) {
	var t models.HelpTicket
	if err := preloadTicket(d.DB.WithContext(r.Context())).First(&t, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
		return nil, err
	}
	c := auth.FromContext(r.Context())
	if !c.IsAdmin() && t.UserID != c.Subject {
		return nil, ErrForbidden
	}
	return &t, nil
}

func GetTicket(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.ownedTicket(r)
		if err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		api.WriteData(w, http.StatusOK, t)
	}
}

type ticketReq struct {
	Subject  string `json:"subject"`
	Message  string `json:"message"`
	Priority string `json:"priority"`
	Category string `json:"category"`
}

func CreateTicket(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ticketReq
		if !decodeJSON(w, r, &req) {
			return
		}
		req.Subject, req.Message = strings.TrimSpace(req.Subject), strings.TrimSpace(req.Message)
		if req.Subject == "" || req.Message == "" {
			api.WriteError(w, http.StatusBadRequest, "subject and message required")
			return
		}
		if req.Priority == "" {
			req.Priority = "medium"
		}
		if req.Category == "" {
			req.Category = "general"
		}
		if !oneOf(req.Priority, ticketPriorities...) || !oneOf(req.Category, ticketCategories...) {
			api.WriteError(w, http.StatusBadRequest, "invalid priority or category")
			return
		}
		t := models.HelpTicket{
			UserID: auth.Subject(r.Context()), Subject: req.Subject, Message: req.Message,
			Priority: req.Priority, Category: req.Category, Status: models.TicketOpen,
		}
		db := d.DB.WithContext(r.Context())
		if err := db.Create(&t).Error; err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		_ = preloadTicket(db).First(&t, "id = ?", t.ID).Error
		d.audit(r, "ticket.create", map[string]any{"ticketId": t.ID})
		api.WriteData(w, http.StatusCreated, t)
	}
}

type replyReq struct {
	Message string `json:"message"`
}

// ReplyTicket appends a reply. An admin reply picks up an open ticket.
func ReplyTicket(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req replyReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if strings.TrimSpace(req.Message) == "" {
			api.WriteError(w, http.StatusBadRequest, "message required")
			return
		}
		t, err := d.ownedTicket(r)
		if err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		if t.Status == models.TicketClosed {
			dbError(w, d.Log, "ticket", errTicketClosed)
			return
		}
		c := auth.FromContext(r.Context())
		reply := models.TicketReply{TicketID: t.ID, UserID: c.Subject, Message: strings.TrimSpace(req.Message), IsAdmin: c.IsAdmin()}
		db := d.DB.WithContext(r.Context())
		err = db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&reply).Error; err != nil {
				return err
			}
			upd := map[string]any{"updated_at": time.Now()}
			if c.IsAdmin() && t.Status == models.TicketOpen {
				upd["status"] = models.TicketInProgress
			}
			return tx.Model(&models.HelpTicket{}).Where("id = ?", t.ID).Updates(upd).Error
		})
		if err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		_ = preloadTicket(db).First(t, "id = ?", t.ID).Error
		d.audit(r, "ticket.reply", map[string]any{"ticketId": t.ID})
		api.WriteData(w, http.StatusOK, t)
	}
}

func UpdateTicketStatus(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyReq
		if !decodeJSON(w, r, &req) {
			return
		}
		if !oneOf(req.Status, ticketStatuses...) {
			api.WriteError(w, http.StatusBadRequest, "invalid status")
			return
		}
		db := d.DB.WithContext(r.Context())
		res := db.Model(&models.HelpTicket{}).Where("id = ?", chi.URLParam(r, "id")).
			Updates(map[string]any{"status": req.Status, "updated_at": time.Now()})
		if res.Error != nil {
			dbError(w, d.Log, "ticket", res.Error)
			return
		}
		if res.RowsAffected == 0 {
			dbError(w, d.Log, "ticket", ErrNotFound)
			return
		}
		var t models.HelpTicket
		if err := preloadTicket(db).First(&t, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		d.audit(r, "ticket.status", map[string]any{"ticketId": t.ID, "status": req.Status})
		api.WriteData(w, http.StatusOK, t)
	}
}

func DeleteTicket(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		t, err := d.ownedTicket(r)
		if err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		err = d.DB.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
			if err := tx.Where("ticket_id = ?", t.ID).Delete(&models.TicketReply{}).Error; err != nil {
				return err
			}
			return tx.Delete(&models.HelpTicket{}, "id = ?", t.ID).Error
		})
		if err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		d.audit(r, "ticket.delete", map[string]any{"ticketId": t.ID})
		api.WriteData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

type groupCount struct {
	Value string
	N     int
}

func countBy(q *gorm.DB, col string) (map[string]int, error) {
	var rows []groupCount
	if err := q.Select(col + " AS value, COUNT(*) AS n").Group(col).Scan(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]int, len(rows))
	for _, row := range rows {
		out[row.Value] = row.N
	}
	return out, nil
}

// TicketStatistics counts tickets visible to the caller by status, priority and category.
func TicketStatistics(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		base := func() *gorm.DB {
			return scopeTickets(r, d.DB.WithContext(r.Context()).Model(&models.HelpTicket{}))
		}
		byStatus, err := countBy(base(), "status")
		if err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		st := api.TicketStats{
			Open: byStatus[models.TicketOpen], InProgress: byStatus[models.TicketInProgress],
			Resolved: byStatus[models.TicketResolved], Closed: byStatus[models.TicketClosed],
		}
		for _, n := range byStatus {
			st.Total += n
		}
		if st.ByPriority, err = countBy(base(), "priority"); err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		if st.ByCategory, err = countBy(base(), "category"); err != nil {
			dbError(w, d.Log, "ticket", err)
			return
		}
		api.WriteData(w, http.StatusOK, st)
	}
}
