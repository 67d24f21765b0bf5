package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"gorm.io/gorm"

	"staffdesk/internal/api"
	"staffdesk/internal/auth"
	"staffdesk/internal/export"
	"staffdesk/internal/models"
)

const dateLayout = "2006-01-02"

var paymentMethods = []string{"bank_transfer", "cash", "check", "other"}

// day decodes either a bare date or an RFC 3339 timestamp.
type day time.Time

func (d *day) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	for _, layout := range []string{dateLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			*d = day(t)
			return nil
		}
	}
	return fmt.Errorf("invalid date %q", s)
}

// paymentScope applies the list filters and, for employees, restricts to their own records.
func (d Deps) paymentScope(r *http.Request, q *gorm.DB) (*gorm.DB, error) {
	v := r.URL.Query()
	if auth.FromContext(r.Context()).IsAdmin() {
		if id := v.Get("employeeId"); id != "" {
			q = q.Where("employee_id = ?", id)
		}
	} else {
		e, err := d.currentEmployee(r)
		if err != nil {
			return nil, err
		}
		q = q.Where("employee_id = ?", e.ID)
	}
	if s := v.Get("status"); s != "" {
		q = q.Where("payment_status = ?", s)
	}
	if s := v.Get("startDate"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, errBadDate
		}
		q = q.Where("week_start_date >= ?", t)
	}
	if s := v.Get("endDate"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return nil, errBadDate
		}
		q = q.Where("week_end_date < ?", t.AddDate(0, 0, 1))
	}
	return q, nil
}

var errBadDate = errors.New("dates must be YYYY-MM-DD")

func (d Deps) findPayments(w http.ResponseWriter, r *http.Request) ([]models.PaymentRecord, bool) {
	q, err := d.paymentScope(r, d.DB.WithContext(r.Context()).Preload("Employee.User").Order("week_start_date desc, created_at desc"))
	if errors.Is(err, errBadDate) {
		api.WriteError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	var out []models.PaymentRecord
	if err == nil {
		err = q.Find(&out).Error
	}
	if err != nil {
		dbError(w, d.Log, "payment record", err)
		return nil, false
	}
	return out, true
}

func ListPayments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if out, ok := d.findPayments(w, r); ok {
			api.WriteList(w, out)
		}
	}
}

func GetPayment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var p models.PaymentRecord
		if err := d.DB.WithContext(r.Context()).Preload("Employee.User").First(&p, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "payment record", err)
			return
		}
		c := auth.FromContext(r.Context())
		if !c.IsAdmin() && (p.Employee == nil || p.Employee.UserID != c.Subject) {
			dbError(w, d.Log, "payment record", ErrForbidden)
			return
		}
		api.WriteData(w, http.StatusOK, p)
	}
}

type overtimeReq struct {
	Hours float64 `json:"hours"`
	Rate  float64 `json:"rate"`
}

type paymentReq struct {
	EmployeeID    *string          `json:"employeeId"`
	WeekStartDate *day             `json:"weekStartDate"`
	WeekEndDate   *day             `json:"weekEndDate"`
	BasicSalary   *float64         `json:"basicSalary"`
	Overtime      *overtimeReq     `json:"overtime"`
	Bonuses       []models.PayItem `json:"bonuses"`
	Deductions    []models.PayItem `json:"deductions"`
	PaymentMethod *string          `json:"paymentMethod"`
	PaymentStatus *string          `json:"paymentStatus"`
	Notes         *string          `json:"notes"`
}

// apply copies the present fields onto p and re-derives the totals.
func (req paymentReq) apply(p *models.PaymentRecord) error {
	if req.EmployeeID != nil {
		p.EmployeeID = *req.EmployeeID
	}
	if req.WeekStartDate != nil {
		p.WeekStartDate = time.Time(*req.WeekStartDate)
	}
	if req.WeekEndDate != nil {
		p.WeekEndDate = time.Time(*req.WeekEndDate)
	}
	if req.BasicSalary != nil {
		p.BasicSalary = *req.BasicSalary
	}
	if req.Overtime != nil {
		p.Overtime.Hours, p.Overtime.Rate = req.Overtime.Hours, req.Overtime.Rate
	}
	if req.Bonuses != nil {
		p.Bonuses = req.Bonuses
	}
	if req.Deductions != nil {
		p.Deductions = req.Deductions
	}
	if req.PaymentMethod != nil {
		p.PaymentMethod = *req.PaymentMethod
	}
	if req.PaymentStatus != nil {
		p.PaymentStatus = *req.PaymentStatus
	}
	if req.Notes != nil {
		p.Notes = *req.Notes
	}

	switch {
	case p.EmployeeID == "":
		return errors.New("employeeId required")
	case p.WeekStartDate.IsZero() || p.WeekEndDate.IsZero():
		return errors.New("weekStartDate and weekEndDate required")
	case p.WeekEndDate.Before(p.WeekStartDate):
		return errors.New("weekEndDate is before weekStartDate")
	case p.BasicSalary < 0 || p.Overtime.Hours < 0 || p.Overtime.Rate < 0:
		return errors.New("amounts must not be negative")
	case !oneOf(p.PaymentMethod, paymentMethods...):
		return errors.New("invalid paymentMethod")
	case !oneOf(p.PaymentStatus, models.PaymentPending, models.PaymentPaid, models.PaymentCancelled):
		return errors.New("invalid paymentStatus")
	}
	for _, it := range append(append([]models.PayItem{}, p.Bonuses...), p.Deductions...) {
		if strings.TrimSpace(it.Description) == "" || it.Amount < 0 {
			return errors.New("bonus and deduction items need a description and a non-negative amount")
		}
	}
	if p.PaymentStatus == models.PaymentPaid && p.PaidAt == nil {
		now := time.Now()
		p.PaidAt = &now
	}
	if p.PaymentStatus != models.PaymentPaid {
		p.PaidAt = nil
	}
	p.Recalculate()
	return nil
}

func (d Deps) savePayment(w http.ResponseWriter, r *http.Request, p *models.PaymentRecord, status int, action string) {
	db := d.DB.WithContext(r.Context())
	var n int64
	if err := db.Model(&models.Employee{}).Where("id = ?", p.EmployeeID).Count(&n).Error; err != nil || n == 0 {
		api.WriteError(w, http.StatusBadRequest, "unknown employeeId")
		return
	}
	p.Employee = nil
	if err := db.Save(p).Error; err != nil {
		dbError(w, d.Log, "payment record", err)
		return
	}
	_ = db.Preload("Employee.User").First(p, "id = ?", p.ID).Error
	d.audit(r, action, map[string]any{"paymentId": p.ID, "netPay": p.NetPay})
	api.WriteData(w, status, p)
}

func CreatePayment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentReq
		if !decodeJSON(w, r, &req) {
			return
		}
		p := models.PaymentRecord{
			PaymentMethod: "bank_transfer", PaymentStatus: models.PaymentPending,
			Bonuses: []models.PayItem{}, Deductions: []models.PayItem{},
			CreatedBy: auth.Subject(r.Context()),
		}
		if err := req.apply(&p); err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		d.savePayment(w, r, &p, http.StatusCreated, "payment.create")
	}
}

func UpdatePayment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req paymentReq
		if !decodeJSON(w, r, &req) {
			return
		}
		var p models.PaymentRecord
		if err := d.DB.WithContext(r.Context()).First(&p, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "payment record", err)
			return
		}
		if err := req.apply(&p); err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		d.savePayment(w, r, &p, http.StatusOK, "payment.update")
	}
}

func UpdatePaymentStatus(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req verifyReq
		if !decodeJSON(w, r, &req) {
			return
		}
		var p models.PaymentRecord
		if err := d.DB.WithContext(r.Context()).First(&p, "id = ?", chi.URLParam(r, "id")).Error; err != nil {
			dbError(w, d.Log, "payment record", err)
			return
		}
		if err := (paymentReq{PaymentStatus: &req.Status}).apply(&p); err != nil {
			api.WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		d.savePayment(w, r, &p, http.StatusOK, "payment.status")
	}
}

func DeletePayment(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		res := d.DB.WithContext(r.Context()).Delete(&models.PaymentRecord{}, "id = ?", id)
		if res.Error == nil && res.RowsAffected == 0 {
			res.Error = ErrNotFound
		}
		if res.Error != nil {
			dbError(w, d.Log, "payment record", res.Error)
			return
		}
		d.audit(r, "payment.delete", map[string]any{"paymentId": id})
		api.WriteData(w, http.StatusOK, map[string]any{"deleted": true})
	}
}

func paymentStats(records []models.PaymentRecord) api.PaymentStats {
	st := api.PaymentStats{TotalRecords: len(records), ByStatus: map[string]int{}, ByPaymentMethod: map[string]int{}}
	for _, p := range records {
		st.TotalGross += p.GrossPay
		st.TotalNet += p.NetPay
		switch p.PaymentStatus {
		case models.PaymentPaid:
			st.TotalPaid += p.NetPay
		case models.PaymentPending:
			st.TotalPending += p.NetPay
		}
		st.ByStatus[p.PaymentStatus]++
		st.ByPaymentMethod[p.PaymentMethod]++
	}
	return st
}

func PaymentStatistics(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if out, ok := d.findPayments(w, r); ok {
			api.WriteData(w, http.StatusOK, paymentStats(out))
		}
	}
}

const recentPayments = 5

// MyPaymentSummary totals the caller's own records and returns the latest few.
func MyPaymentSummary(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e, err := d.currentEmployee(r)
		if err != nil {
			dbError(w, d.Log, "employee", err)
			return
		}
		var records []models.PaymentRecord
		if err := d.DB.WithContext(r.Context()).Where("employee_id = ?", e.ID).
			Order("week_start_date desc, created_at desc").Find(&records).Error; err != nil {
			dbError(w, d.Log, "payment record", err)
			return
		}
		out := api.MySummary{RecentPayments: []models.PaymentRecord{}}
		for _, p := range records {
			out.Summary.TotalPayments++
			switch p.PaymentStatus {
			case models.PaymentPaid:
				out.Summary.PaidPayments++
				out.Summary.TotalPaidAmount += p.NetPay
			case models.PaymentPending:
				out.Summary.PendingPayments++
				out.Summary.TotalPendingAmount += p.NetPay
			}
		}
		if len(records) > recentPayments {
			records = records[:recentPayments]
		}
		out.RecentPayments = append(out.RecentPayments, records...)
		api.WriteData(w, http.StatusOK, out)
	}
}

// ExportPayments streams the filtered records as an xlsx workbook.
func ExportPayments(d Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		records, ok := d.findPayments(w, r)
		if !ok {
			return
		}
		var buf bytes.Buffer
		if err := export.WritePayroll(&buf, records); err != nil {
			d.Log.Errorw("payroll export failed", "records", len(records), "error", err)
			api.WriteError(w, http.StatusInternalServerError, "export failed")
			return
		}
		name := "payroll-" + time.Now().Format(dateLayout) + ".xlsx"
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		_, _ = buf.WriteTo(w)
		d.audit(r, "payment.export", map[string]any{"records": len(records)})
	}
}
