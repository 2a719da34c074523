// File: advisorbot/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"advisorbot/config"
	"advisorbot/cron"
	"advisorbot/database"
	"advisorbot/database/repository/history"
	"advisorbot/handlers"
	"advisorbot/middleware"
	"advisorbot/routes"
	"advisorbot/services/booking"
	"advisorbot/services/calendar"
	ai "advisorbot/services/intelligence"
	"advisorbot/services/notification"
	"advisorbot/utils"

	"github.com/gin-gonic/gin"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	utils.InitCache()

	// Git replication keeps the store file alive across redeploys.
	replicator := database.NewGitReplicator(".", config.AppConfig.StorePath,
		config.AppConfig.GitHubToken, config.AppConfig.GitHubRepoURL, logger)
	var replication database.Replicator
	if replicator.Setup() {
		replicator.PullLatest()
		replication = replicator
	}

	store := database.NewFileSlotStore(config.AppConfig.StorePath, replication, logger)
	if err := store.EnsureProvisioned(config.AppConfig.BookingWindowStart, config.AppConfig.BookingWindowEnd); err != nil {
		logger.Sugar().Fatalf("main: failed to provision slot store: %v", err)
	}

	// Transcript history: file-backed by default, Mongo archive when configured.
	var histRepo history.Repository
	if config.AppConfig.HistoryBackend == "mongo" && config.AppConfig.DatabaseURL != "" {
		repo, err := history.NewMongoRepository(config.AppConfig.DatabaseURL, "advisorbot")
		if err != nil {
			logger.Sugar().Fatalf("main: failed to connect history database: %v", err)
		}
		histRepo = repo
	} else {
		histRepo = history.NewFileRepository(config.AppConfig.HistoryDir)
	}

	notifier := notification.NewWebhookNotificationService(config.AppConfig.WebhookURL, logger)

	// Post-commit effects go through asynq when Redis is available, otherwise
	// straight to the notifier on a goroutine.
	var dispatcher booking.EventDispatcher
	if config.AppConfig.RedisEnabled {
		dispatcher = cron.NewAsynqDispatcher(logger)
		cron.InitEffectWorker(notifier, logger)
	} else {
		dispatcher = &cron.DirectDispatcher{Notifier: notifier, Logger: logger}
	}

	var calendarSvc booking.CalendarService
	if config.AppConfig.GoogleServiceAccountFile != "" {
		svc, err := calendar.NewGoogleCalendarService(
			config.AppConfig.GoogleServiceAccountFile, config.AppConfig.CalendarID, logger)
		if err != nil {
			logger.Sugar().Warnf("main: calendar integration disabled: %v", err)
		} else {
			calendarSvc = svc
		}
	}

	engine := booking.NewDefaultEngine(store, calendarSvc, dispatcher, logger)

	sessionTTL := time.Duration(config.AppConfig.SessionTTLMin) * time.Minute
	sessions := handlers.NewSessionRegistry(func(ctx context.Context) (ai.AgentService, error) {
		return ai.NewGeminiAgent(ctx, engine, histRepo, logger)
	}, sessionTTL, logger)
	sessions.StartJanitor(time.Minute)

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	handlerBundle := handlers.NewHandlerBundle(engine, sessions, histRepo)
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

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
