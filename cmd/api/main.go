package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"staffdesk/internal/auth"
	"staffdesk/internal/config"
	"staffdesk/internal/httpserver"
	"staffdesk/internal/httpserver/handlers"
	"staffdesk/internal/logger"
	"staffdesk/internal/metrics"
	"staffdesk/internal/models"
	"staffdesk/internal/uploads"
)

func main() {
	_ = godotenv.Load()
	cfg, err := config.FromEnv()
	lg := logger.New(cfg.LogLevel)
	defer lg.Sync()
	if err != nil {
		lg.Fatalw("invalid configuration", "error", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		lg.Fatalw("db connect failed", "error", err)
	}
	if err := models.Migrate(db); err != nil {
		lg.Fatalw("migrate failed", "error", err)
	}
	if err := seedDefaultAdmin(db, lg, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		lg.Fatalw("seed admin failed", "error", err)
	}

	files, err := uploads.New(cfg.UploadDir, cfg.PublicURL)
	if err != nil {
		lg.Fatalw("upload store", "error", err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps := handlers.Deps{
		DB:      db,
		Log:     lg,
		Tokens:  auth.NewIssuer(cfg.JWTSecret, cfg.JWTExpiresIn),
		Files:   files,
		Metrics: metrics.New(reg),
	}
	srv := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           httpserver.NewRouter(deps, httpserver.Options{RequestLog: true}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		lg.Infow("listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalw("server failed", "error", err)
		}
	}()
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warnw("shutdown", "error", err)
	}
	lg.Infow("stopped")
}

// seedDefaultAdmin creates the configured admin account on first start.
func seedDefaultAdmin(db *gorm.DB, lg *zap.SugaredLogger, email, password string) error {
	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return err
	}
	u := models.User{Name: "Administrator", Email: email, PasswordHash: hash, Role: models.RoleAdmin, IsActive: true}
	if err := db.Create(&u).Error; err != nil {
		return err
	}
	lg.Infow("seeded default admin", "email", email)
	return nil
}
