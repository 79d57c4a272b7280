// File: mindwell/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindwell/config"
	"mindwell/cron"
	"mindwell/database"
	auditRepo "mindwell/database/repository/audit"
	partyRepo "mindwell/database/repository/party"
	sessionRepoPkg "mindwell/database/repository/session"
	"mindwell/handlers"
	"mindwell/routes"
	"mindwell/services/alerting"
	"mindwell/services/broadcast"
	"mindwell/services/lifecycle"
	"mindwell/services/notification"
	"mindwell/services/payment"
	"mindwell/services/reconciliation"
	"mindwell/services/reminder"
	"mindwell/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitRedis()
	utils.InitEventsClient()
	stripe.Key = config.AppConfig.StripeKey

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())

	// repositories.
	sessionRepo := sessionRepoPkg.NewMongoSessionRepo()
	partiesRepo := partyRepo.NewMongoPartyRepo()
	auditSink := auditRepo.NewMongoAuditSink()

	// event fan-out and error aggregation.
	hub := broadcast.NewObserverHub(logger, utils.GetEventsClient(), "mindwell:events")
	tracker := alerting.NewTracker(logger, func(alert alerting.Alert) {
		hub.Broadcast(broadcast.Message{Type: "alert", Payload: alert})
	})
	tracker.StartRetentionSweep(rootCtx, 10*time.Minute)

	// notification stack.
	channel := notification.NewDefaultNotificationChannel()
	retryManager := notification.NewRetryManager(logger, notification.RealClock{})

	// services.
	lifecycleService := &lifecycle.DefaultLifecycleService{
		Updater: &lifecycle.AtomicStateUpdater{
			Repo:   sessionRepo,
			Audit:  auditSink,
			Logger: logger,
		},
		Repo:    sessionRepo,
		Tracker: tracker,
		Logger:  logger,
	}

	gateway := payment.NewStripeGateway()
	discrepancyHandler := &reconciliation.DiscrepancyHandler{
		Hub:     hub,
		Channel: channel,
		Retry:   retryManager,
		Audit:   auditSink,
		Operator: reconciliation.OperatorContact{
			Email: config.AppConfig.OperatorEmail,
			Phone: config.AppConfig.OperatorPhone,
		},
		Logger: logger,
	}
	reconcileEngine := reconciliation.NewEngine(
		sessionRepo,
		gateway,
		hub,
		discrepancyHandler,
		logger,
		config.AppConfig.ReconcileBatchSize,
		time.Duration(config.AppConfig.ReconcileBatchPauseSec)*time.Second,
	)

	cron.InitReconcileWorker(reconcileEngine)
	cron.StartStaleSweep(rootCtx, sessionRepo, reconcileEngine)

	reminderScheduler := &reminder.Scheduler{
		Repo:    sessionRepo,
		Parties: partiesRepo,
		Channel: channel,
		Retry:   retryManager,
		Audit:   auditSink,
		Health:  tracker,
		Operator: reminder.OperatorContact{
			Email: config.AppConfig.OperatorEmail,
			Phone: config.AppConfig.OperatorPhone,
		},
		Logger: logger,
	}
	reminderScheduler.Start()

	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetCacheClient(), utils.GetEventsClient()},
		database.MongoClient,
	)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		Session: handlers.NewSessionHandler(sessionRepo, lifecycleService, logger),
		Payment: handlers.NewPaymentHandler(sessionRepo, lifecycleService, logger),
		Admin:   handlers.NewAdminHandler(reconcileEngine, reminderScheduler, tracker, logger),
	}

	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	rootCancel()
	reminderScheduler.Stop()
	retryManager.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
