package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"bizportal/internal/config"
	"bizportal/internal/httpserver"
	"bizportal/internal/mqhandler"
	"bizportal/internal/notify"
	"bizportal/internal/repository"
	"bizportal/pkg/db"
	"bizportal/pkg/logger"
	"bizportal/pkg/mq"
	redisclient "bizportal/pkg/redis"
	"bizportal/pkg/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting worker...",
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	var sender notify.Sender
	if cfg.Sendgrid.APIKey != "" {
		sender = notify.NewSendGridSender(cfg.Sendgrid.APIKey, cfg.Sendgrid.FromName, cfg.Sendgrid.FromEmail, log)
	} else {
		log.Warn("SENDGRID_API_KEY not set, emails will only be logged")
		sender = notify.NewLogSender(log)
	}

	notificationHandler := mqhandler.NewNotificationHandler(
		sender,
		util.NewDeduper(rdb, 24*time.Hour, log),
		repository.NewNotificationLogRepository(dbConn),
		mqhandler.Options{
			NotifyEmail: cfg.Sendgrid.NotifyEmail,
			PortalURL:   cfg.Sendgrid.PortalURL,
		},
		log,
	)

	// One queue per routing key
	handlers := notificationHandler.Handlers()
	routingKeys := make([]string, 0, len(handlers))
	for rk := range handlers {
		routingKeys = append(routingKeys, rk)
	}
	sort.Strings(routingKeys)

	consumers := make([]*mq.Consumer, 0, len(routingKeys))
	for _, rk := range routingKeys {
		queue := rk + ".q"
		log.Info("Initializing consumer", zap.String("queue", queue), zap.String("routing_key", rk))

		consumer, err := mq.NewConsumer(cfg.MQ.URL, queue, rk, log)
		if err != nil {
			log.Fatal("Failed to init consumer", zap.String("routing_key", rk), zap.Error(err))
		}
		defer consumer.Close()
		consumer.SetHandler(handlers[rk])
		consumers = append(consumers, consumer)

		go func(rk string) {
			if err := consumer.StartConsuming(); err != nil {
				log.Fatal("Consumer failed", zap.String("routing_key", rk), zap.Error(err))
			}
		}(rk)
	}

	// HTTP Server (for health checks)
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/healthz", func(c *gin.Context) {
		for _, consumer := range consumers {
			if !consumer.IsConnected() {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_disconnected"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/readyz", httpserver.Readiness(dbConn))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv := &http.Server{
		Addr:    cfg.Worker.HealthPort,
		Handler: r,
	}
	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("All consumers started, worker is ready to process messages",
		zap.Strings("routing_keys", routingKeys),
	)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker gracefully...")

	for _, consumer := range consumers {
		consumer.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	log.Info("worker shutdown complete")
}
