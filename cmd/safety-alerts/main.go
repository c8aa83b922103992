package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/smartride/safety-alerts/internal/api"
	"github.com/smartride/safety-alerts/internal/config"
	"github.com/smartride/safety-alerts/internal/dispatch"
	"github.com/smartride/safety-alerts/internal/logging"
	"github.com/smartride/safety-alerts/internal/notify"
	"github.com/smartride/safety-alerts/internal/repository"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logging.Fatalf("Fatal while loading config: %v", err)
	}
	logging.Setup(cfg.Logging.Level)

	slog.Info("Server starting", "host", cfg.Server.Host, "port", cfg.Server.Port)

	db, err := repository.NewSQLiteDB(cfg.DB.Path)
	if err != nil {
		logging.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Channel senders. The phone channels stay nil-free even when Twilio is
	// unconfigured; the dispatch policy skips them entirely in that case.
	email := notify.NewGomailSender(cfg.SMTP)
	twilio := notify.NewTwilioGateway(cfg.Twilio, cfg.Dispatch.SendTimeout)

	if !cfg.SMTP.Configured() {
		slog.Warn("SMTP is not configured, emergency emails will fail")
	}
	if !cfg.Twilio.Configured() {
		slog.Warn("Twilio is not configured, SMS and voice channels disabled")
	}

	dispatcher := dispatch.New(db, db, db, dispatch.Options{
		Email:           email,
		SMS:             twilio,
		Voice:           twilio,
		PhoneConfigured: cfg.Twilio.Configured(),
		BaseURL:         cfg.App.BaseURL,
		SendTimeout:     cfg.Dispatch.SendTimeout,
	})

	// Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false, // Set to false when using wildcard origins
	}))
	router.Use(api.RateLimitMiddleware(10, 20))

	auth := api.NewAuth(cfg.Auth.AccessSecret)
	handler := api.NewHandler(dispatcher, db, db)
	handler.RegisterRoutes(router, auth)

	srv := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler: router,
	}

	go func() {
		slog.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
}
