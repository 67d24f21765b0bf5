package services

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"time"

	"staffdesk/internal/api"
	"staffdesk/internal/client"
	"staffdesk/internal/models"
)

const DateLayout = "2006-01-02"

var (
	PaymentMethods  = []string{"bank_transfer", "cash", "check", "other"}
	PaymentStatuses = []string{models.PaymentPending, models.PaymentPaid, models.PaymentCancelled}
)

type PaymentFilter struct {
	Status     string
	EmployeeID string
	StartDate  string
	EndDate    string
}

func (f PaymentFilter) query() url.Values {
	return values("status", f.Status, "employeeId", f.EmployeeID, "startDate", f.StartDate, "endDate", f.EndDate)
}

type OvertimeInput struct {
	Hours float64 `json:"hours"`
	Rate  float64 `json:"rate"`
}

// PaymentInput is a full payment record as entered; the server derives the totals.
type PaymentInput struct {
	EmployeeID    string           `json:"employeeId"`
	WeekStartDate string           `json:"weekStartDate"`
	WeekEndDate   string           `json:"weekEndDate"`
	BasicSalary   float64          `json:"basicSalary"`
	Overtime      OvertimeInput    `json:"overtime"`
	Bonuses       []models.PayItem `json:"bonuses"`
	Deductions    []models.PayItem `json:"deductions"`
	PaymentMethod string           `json:"paymentMethod,omitempty"`
	PaymentStatus string           `json:"paymentStatus,omitempty"`
	Notes         string           `json:"notes,omitempty"`
}

func (p PaymentInput) Validate() error {
	ch := checks{}
	ch.required("employeeId", p.EmployeeID, "Employee is required")
	start, serr := time.Parse(DateLayout, p.WeekStartDate)
	if serr != nil {
		ch.add("weekStartDate", "Week start date is required (YYYY-MM-DD)")
	}
	end, eerr := time.Parse(DateLayout, p.WeekEndDate)
	if eerr != nil {
		ch.add("weekEndDate", "Week end date is required (YYYY-MM-DD)")
	}
	if serr == nil && eerr == nil && end.Before(start) {
		ch.add("weekEndDate", "Week end date must not be before the start date")
	}
	if p.BasicSalary < 0 {
		ch.add("basicSalary", "Basic salary must not be negative")
	}
	if p.Overtime.Hours < 0 || p.Overtime.Rate < 0 {
		ch.add("overtime", "Overtime must not be negative")
	}
	for _, it := range p.Bonuses {
		if it.Description == "" || it.Amount < 0 {
			ch.add("bonuses", "Each bonus needs a description and a non-negative amount")
		}
	}
	for _, it := range p.Deductions {
		if it.Description == "" || it.Amount < 0 {
			ch.add("deductions", "Each deduction needs a description and a non-negative amount")
		}
	}
	ch.oneOf("paymentMethod", p.PaymentMethod, PaymentMethods...)
	ch.oneOf("paymentStatus", p.PaymentStatus, PaymentStatuses...)
	return ch.err()
}

type Payments struct{ c *client.Client }

const paymentsPath = "/payment-records"

func (s *Payments) List(ctx context.Context, f PaymentFilter) (*api.Envelope[[]models.PaymentRecord], error) {
	return get[[]models.PaymentRecord](ctx, s.c, paymentsPath, f.query())
}

func (s *Payments) Get(ctx context.Context, id string) (*api.Envelope[models.PaymentRecord], error) {
	return get[models.PaymentRecord](ctx, s.c, idPath(paymentsPath, id), nil)
}

func (s *Payments) Create(ctx context.Context, in PaymentInput) (*api.Envelope[models.PaymentRecord], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[models.PaymentRecord](ctx, s.c, http.MethodPost, paymentsPath, nil, in)
}

func (s *Payments) Update(ctx context.Context, id string, in PaymentInput) (*api.Envelope[models.PaymentRecord], error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return call[models.PaymentRecord](ctx, s.c, http.MethodPut, idPath(paymentsPath, id), nil, in)
}

func (s *Payments) UpdateStatus(ctx context.Context, id, status string) (*api.Envelope[models.PaymentRecord], error) {
	ch := checks{}
	ch.required("status", status, "Status is required")
	ch.oneOf("status", status, PaymentStatuses...)
	if err := ch.err(); err != nil {
		return nil, err
	}
	return call[models.PaymentRecord](ctx, s.c, http.MethodPut, idPath(paymentsPath, id)+"/status", nil, map[string]string{"status": status})
}

func (s *Payments) Delete(ctx context.Context, id string) (*api.Envelope[Deleted], error) {
	return call[Deleted](ctx, s.c, http.MethodDelete, idPath(paymentsPath, id), nil, nil)
}

func (s *Payments) Stats(ctx context.Context) (*api.Envelope[api.PaymentStats], error) {
	return get[api.PaymentStats](ctx, s.c, paymentsPath+"/stats", nil)
}

func (s *Payments) MySummary(ctx context.Context) (*api.Envelope[api.MySummary], error) {
	return get[api.MySummary](ctx, s.c, paymentsPath+"/my-summary", nil)
}

// Export writes the filtered records as an xlsx workbook to w.
func (s *Payments) Export(ctx context.Context, f PaymentFilter, w io.Writer) (int64, error) {
	return s.c.Download(ctx, paymentsPath+"/export", f.query(), w)
}
