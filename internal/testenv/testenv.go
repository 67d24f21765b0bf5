// Package testenv runs the real backend in-process for client-side tests.
package testenv

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"staffdesk/internal/auth"
	"staffdesk/internal/dbtest"
	"staffdesk/internal/httpserver"
	"staffdesk/internal/httpserver/handlers"
	"staffdesk/internal/metrics"
	"staffdesk/internal/models"
	"staffdesk/internal/uploads"
)

const (
	AdminEmail    = "admin@staffdesk.test"
	AdminPassword = "admin123"
)

type Backend struct {
	URL     string
	DB      *gorm.DB
	Metrics *metrics.Metrics
}

// Start serves a freshly migrated backend with one admin account.
func Start(t testing.TB) *Backend {
	t.Helper()
	t.Cleanup(auth.SetHashCostForTesting(bcrypt.MinCost))
	db := dbtest.Open(t)
	hash, err := auth.HashPassword(AdminPassword)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if err := db.Create(&models.User{Name: "Admin", Email: AdminEmail, PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}).Error; err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	m := metrics.New(prometheus.NewRegistry())
	srv := httptest.NewUnstartedServer(nil)
	files, err := uploads.New(t.TempDir(), "http://"+srv.Listener.Addr().String())
	if err != nil {
		t.Fatalf("uploads: %v", err)
	}
	srv.Config.Handler = httpserver.NewRouter(handlers.Deps{
		DB:      db,
		Log:     zap.NewNop().Sugar(),
		Tokens:  auth.NewIssuer("testenv-secret", time.Hour),
		Files:   files,
		Metrics: m,
	}, httpserver.Options{})
	srv.Start()
	t.Cleanup(srv.Close)
	return &Backend{URL: srv.URL, DB: db, Metrics: m}
}

// AddEmployee creates an employee account directly in the database and
// returns the employee row id.
func (b *Backend) AddEmployee(t testing.TB, name, email, password string) string {
	t.Helper()
	hash, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u := models.User{Name: name, Email: email, PasswordHash: hash, Role: models.RoleEmployee, IsActive: true}
	if err := b.DB.Create(&u).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	e := models.Employee{
		UserID: u.ID, EmployeeID: "EMP-" + email,
		Department: "Ops", Position: "Driver", Status: models.EmployeeActive, JoinDate: time.Now(),
	}
	if err := b.DB.Omit("User").Create(&e).Error; err != nil {
		t.Fatalf("create employee: %v", err)
	}
	return e.ID
}
