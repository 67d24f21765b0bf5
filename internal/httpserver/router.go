package httpserver

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"staffdesk/internal/auth"
	"staffdesk/internal/httpserver/handlers"
	"staffdesk/internal/models"
)

// Options tweaks router construction.
type Options struct {
	// RequestLog enables chi's request logger; tests turn it off.
	RequestLog bool
}

func NewRouter(d handlers.Deps, opt Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	if opt.RequestLog {
		r.Use(middleware.Logger)
	}
	r.Use(d.Metrics.Middleware)

	r.Post("/auth/login", handlers.Login(d))
	r.Post("/auth/register", handlers.Register(d))
	r.Get("/healthz", handlers.Healthz(d))
	r.Method(http.MethodGet, "/metrics", d.Metrics.Handler())

	adminOnly := auth.RequireRole(models.RoleAdmin)
	r.Group(func(protected chi.Router) {
		protected.Use(auth.JWTAuth(d.DB, d.Tokens))
		protected.Get("/auth/me", handlers.Me(d))
		protected.Get("/auth/logout", handlers.Logout(d))
		protected.Get("/audit-logs", handlers.AuditLogs(d))
		protected.Get("/uploads/{key}", handlers.DownloadDocument(d))

		protected.Route("/employees", func(er chi.Router) {
			er.Get("/{id}", handlers.GetEmployee(d))
			er.Group(func(admin chi.Router) {
				admin.Use(adminOnly)
				admin.Get("/", handlers.ListEmployees(d))
				admin.Post("/", handlers.CreateEmployee(d))
				admin.Put("/{id}", handlers.UpdateEmployee(d))
				admin.Delete("/{id}", handlers.DeleteEmployee(d))
				admin.Put("/{id}/reset-password", handlers.ResetPassword(d))
			})
		})

		protected.Route("/documents", func(dr chi.Router) {
			dr.Get("/", handlers.ListDocuments(d))
			dr.Post("/", handlers.UploadDocument(d))
			dr.Get("/{id}", handlers.GetDocument(d))
			dr.Delete("/{id}", handlers.DeleteDocument(d))
			dr.With(adminOnly).Put("/{id}/verify", handlers.VerifyDocument(d))
		})

		protected.Route("/locations", func(lr chi.Router) {
			lr.Get("/", handlers.ListLocations(d))
			lr.Post("/checkin", handlers.CheckIn(d))
			lr.Get("/{id}", handlers.GetLocation(d))
			lr.Put("/{id}/checkout", handlers.CheckOut(d))
			lr.Put("/{id}/live-update", handlers.LiveUpdate(d))
			lr.With(adminOnly).Delete("/{id}", handlers.DeleteLocation(d))
		})

		protected.Route("/help-center", func(hr chi.Router) {
			hr.Get("/", handlers.ListTickets(d))
			hr.Post("/", handlers.CreateTicket(d))
			hr.Get("/stats", handlers.TicketStatistics(d))
			hr.Get("/{id}", handlers.GetTicket(d))
			hr.Put("/{id}/reply", handlers.ReplyTicket(d))
			hr.With(adminOnly).Put("/{id}/status", handlers.UpdateTicketStatus(d))
			hr.Delete("/{id}", handlers.DeleteTicket(d))
		})

		protected.Route("/payment-records", func(pr chi.Router) {
			pr.Get("/", handlers.ListPayments(d))
			pr.Get("/my-summary", handlers.MyPaymentSummary(d))
			pr.Get("/{id}", handlers.GetPayment(d))
			pr.Group(func(admin chi.Router) {
				admin.Use(adminOnly)
				admin.Get("/stats", handlers.PaymentStatistics(d))
				admin.Get("/export", handlers.ExportPayments(d))
				admin.Post("/", handlers.CreatePayment(d))
				admin.Put("/{id}", handlers.UpdatePayment(d))
				admin.Put("/{id}/status", handlers.UpdatePaymentStatus(d))
				admin.Delete("/{id}", handlers.DeletePayment(d))
			})
		})
	})
	return r
}
