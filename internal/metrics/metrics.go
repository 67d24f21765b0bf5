package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the backend's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	Logins       *prometheus.CounterVec
	Revocations  *prometheus.CounterVec
	CheckIns     prometheus.Counter
	LiveUpdates  prometheus.Counter
	Uploads      *prometheus.CounterVec
	AuditFailure prometheus.Counter
}

func New(reg *prometheus.Registry) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		HTTPRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffdesk_http_requests_total",
				Help: "HTTP requests by method, route pattern and status code",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "staffdesk_http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Logins: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffdesk_logins_total",
				Help: "Login attempts by result",
			},
			[]string{"result"},
		),
		Revocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffdesk_session_revocations_total",
				Help: "Sessions revoked server side by reason",
			},
			[]string{"reason"},
		),
		CheckIns: factory.NewCounter(prometheus.CounterOpts{
			Name: "staffdesk_checkins_total",
			Help: "Location check-ins recorded",
		}),
		LiveUpdates: factory.NewCounter(prometheus.CounterOpts{
			Name: "staffdesk_live_updates_total",
			Help: "Live location updates accepted",
		}),
		Uploads: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "staffdesk_document_uploads_total",
				Help: "Document uploads by result",
			},
			[]string{"result"},
		),
		AuditFailure: factory.NewCounter(prometheus.CounterOpts{
			Name: "staffdesk_audit_write_failures_total",
			Help: "Audit log rows that could not be written",
		}),
	}
}

// Middleware records request counts and latency keyed by chi's route pattern,
// so /employees/{id} stays one series no matter how many ids are requested.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		m.HTTPDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
