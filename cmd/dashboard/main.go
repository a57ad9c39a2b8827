package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"bizportal/internal/config"
	"bizportal/internal/dashboard"
	"bizportal/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting dashboard...",
		zap.String("port", cfg.Dashboard.Port),
		zap.String("api_base_url", cfg.Dashboard.APIBaseURL),
		zap.Duration("refresh_interval", cfg.Dashboard.RefreshInterval),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	views, err := dashboard.NewViewCache(cfg.Dashboard.TemplatesDir, log)
	if err != nil {
		log.Fatal("Failed to init views", zap.Error(err))
	}
	if cfg.Dashboard.WatchTemplates {
		go func() {
			if err := views.Watch(ctx); err != nil {
				log.Error("Template watcher stopped", zap.Error(err))
			}
		}()
	}

	sessions := dashboard.NewSessionManager(cfg.Dashboard.SessionTTL, log)
	hub := dashboard.NewHub(log)

	refresher := dashboard.NewRefresher(sessions, hub, cfg.Dashboard.RefreshInterval, log)
	go refresher.Run(ctx)

	server := dashboard.NewServer(dashboard.Options{
		APIBaseURL:        cfg.Dashboard.APIBaseURL,
		AuthProbeAttempts: cfg.Dashboard.AuthProbeAttempts,
		AuthProbeDelay:    cfg.Dashboard.AuthProbeDelay,
		SecureCookie:      strings.HasPrefix(cfg.Sendgrid.PortalURL, "https://"),
	}, sessions, hub, views, log)

	srv := &http.Server{
		Addr:              cfg.Dashboard.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("dashboard is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down dashboard gracefully...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	for _, s := range sessions.List() {
		sessions.Delete(s.ID)
	}

	log.Info("dashboard shutdown complete")
}
