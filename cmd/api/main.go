package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bizportal/internal/config"
	"bizportal/internal/handler"
	"bizportal/internal/httpserver"
	"bizportal/internal/repository"
	"bizportal/internal/service"
	"bizportal/pkg/db"
	"bizportal/pkg/logger"
	"bizportal/pkg/mq"
	"bizportal/pkg/outbox"
	redisclient "bizportal/pkg/redis"
	"bizportal/pkg/util"

	"go.uber.org/zap"
)

func main() {
	log := logger.NewLogger()
	defer log.Sync()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	log.Info("Starting api...",
		zap.String("port", cfg.Server.Port),
		zap.String("db_host", cfg.DB.Host),
		zap.String("mq_url", cfg.MQ.URL),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// DB
	dbConn, err := db.NewConnection(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to init DB", zap.Error(err))
	}
	defer dbConn.Close()

	if err := db.EnsureSchema(ctx, dbConn); err != nil {
		log.Fatal("Failed to ensure schema", zap.Error(err))
	}
	log.Info("Database ready")

	// Redis
	rdb, err := redisclient.NewRedisClient(cfg.Redis)
	if err != nil {
		log.Fatal("Failed to init Redis", zap.Error(err))
	}
	defer rdb.Close()

	// MQ Publisher
	publisher, err := mq.NewPublisher(cfg.MQ.URL)
	if err != nil {
		log.Fatal("Failed to init MQ publisher", zap.Error(err))
	}
	defer publisher.Close()

	// Repositories
	leadRepo := repository.NewLeadRepository(dbConn, log)
	contactRepo := repository.NewContactRepository(dbConn)
	clientRepo := repository.NewClientRepository(dbConn)
	projectRepo := repository.NewProjectRepository(dbConn, log)
	milestoneRepo := repository.NewMilestoneRepository(dbConn, log)
	invoiceRepo := repository.NewInvoiceRepository(dbConn, log)
	messageRepo := repository.NewMessageRepository(dbConn)
	fileRepo := repository.NewFileRepository(dbConn)
	userRepo := repository.NewUserRepository(dbConn)
	analyticsRepo := repository.NewAnalyticsRepository(dbConn)
	outboxRepo := outbox.NewRepository(dbConn)

	// Services
	authService := service.NewAuthService(userRepo, clientRepo, rdb, cfg.JWT.Secret, cfg.JWT.TTL, log)
	intakeService := service.NewIntakeService(dbConn, leadRepo, contactRepo, outboxRepo, log)
	crmService := service.NewCRMService(dbConn, leadRepo, contactRepo, clientRepo, projectRepo, outboxRepo, log)
	projectService := service.NewProjectService(projectRepo, milestoneRepo, log)
	invoiceService := service.NewInvoiceService(dbConn, invoiceRepo, projectRepo, clientRepo, outboxRepo, log)
	messageService := service.NewMessageService(dbConn, messageRepo, clientRepo, outboxRepo, log)
	fileService := service.NewFileService(fileRepo, projectRepo, cfg.Uploads.Dir, cfg.Uploads.MaxBytes, log)
	analyticsService := service.NewAnalyticsService(analyticsRepo)
	replayService := outbox.NewReplayService(outboxRepo, publisher, log)

	// Outbox dispatcher
	dispatcher := outbox.NewDispatcher(outboxRepo, publisher, log)
	go dispatcher.Start(ctx)

	// Overdue sweeper
	sweeper := service.NewOverdueSweeper(invoiceRepo, log)
	if err := sweeper.Start(ctx, cfg.Invoices.OverdueSweepCron); err != nil {
		log.Fatal("Failed to schedule overdue sweep", zap.Error(err))
	}

	// HTTP
	router := httpserver.NewRouter(httpserver.Handlers{
		Intake:   handler.NewIntakeHandler(intakeService, log),
		Auth:     handler.NewAuthHandler(authService, log),
		CRM:      handler.NewCRMHandler(crmService, log),
		Projects: handler.NewProjectHandler(projectService, log),
		Invoices: handler.NewInvoiceHandler(invoiceService, log),
		Messages: handler.NewMessageHandler(messageService, log),
		Files:    handler.NewFileHandler(fileService, log),
		Admin:    handler.NewAdminHandler(replayService, analyticsService, log),
	}, httpserver.Deps{
		JWTSecret:    cfg.JWT.Secret,
		Revoked:      authService,
		Idempotency:  util.NewDeduper(rdb, 24*time.Hour, log),
		Limiter:      util.NewRateLimiter(rdb, cfg.RateLimit.Window),
		IntakeLimit:  cfg.RateLimit.IntakePerWindow,
		ContactLimit: cfg.RateLimit.ContactPerWindow,
		DB:           dbConn,
		Logger:       log,
	})
	srv := httpserver.NewServer(cfg.Server.Port, router.Engine, cfg.CORS.AllowedOrigins)

	go func() {
		log.Info("HTTP server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	log.Info("api is fully initialized and running")

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down api gracefully...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	cancel()
	sweeper.Stop()

	log.Info("api shutdown complete")
}
