package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"homieplanner/config"
	"homieplanner/internal/adapters/auth"
	"homieplanner/internal/adapters/nlu"
	"homieplanner/internal/adapters/sms"
	httpdelivery "homieplanner/internal/delivery/http"
	"homieplanner/internal/delivery/http/controllers"
	"homieplanner/internal/delivery/http/middleware"
	"homieplanner/internal/repository/postgres"
	"homieplanner/internal/services"
	"homieplanner/internal/workers"
)

// @title Homie Planner API
// @version 1.0
// @description SMS hangout planning: webhook intake, invite coordination, and the ops API.
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := config.NewLogger()

	db, err := sql.Open("postgres", cfg.DBUrl)
	if err != nil {
		logger.Error("open database failed", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		logger.Error("ping database failed", "error", err)
		os.Exit(1)
	}

	// Repositories
	eventRepo := postgres.NewEventRepository(db)
	homieRepo := postgres.NewHomieRepository(db)
	memberRepo := postgres.NewEventMemberRepository(db)
	convRepo := postgres.NewConversationRepository(db)
	msgRepo := postgres.NewInboundMessageRepository(db)
	jobRepo := postgres.NewEscalationJobRepository(db)

	// Adapters
	messenger, err := sms.NewMessenger(sms.MessengerConfig{
		Provider: cfg.SMSProvider,
		SenderID: cfg.SMSSenderID,
		SNS: sms.SNSConfig{
			Region:          cfg.SNSRegion,
			AccessKeyID:     cfg.SNSAccessKeyID,
			SecretAccessKey: cfg.SNSSecretAccessKey,
		},
	})
	if err != nil {
		logger.Error("init messenger failed", "error", err)
		os.Exit(1)
	}
	renderer := sms.NewTemplateRenderer()
	classifier := nlu.NewClient(nlu.Config{
		BaseURL: cfg.NLUBaseURL,
		APIKey:  cfg.NLUAPIKey,
		Model:   cfg.NLUModel,
	})
	_, verifier := auth.NewJWTTokens(cfg.JWTSecret)

	// Services
	coordinator := services.NewCoordinator(
		eventRepo, memberRepo, jobRepo, msgRepo,
		messenger, renderer, classifier,
		cfg.InviteTTL, logger,
	)
	drafts := services.NewDraftService(
		eventRepo, homieRepo, convRepo, msgRepo,
		coordinator, messenger, renderer, classifier,
		logger,
	)

	// Background sweepers
	timeoutSweeper := workers.NewTimeoutSweeper(
		eventRepo, memberRepo, messenger, renderer,
		cfg.InviteTTL, cfg.SweepBatchSize, logger,
	)
	reminderSweeper := workers.NewReminderSweeper(
		eventRepo, memberRepo, messenger, renderer,
		cfg.ReminderThreshold, cfg.SweepBatchSize, logger,
	)
	escalationSweeper := workers.NewEscalationSweeper(
		jobRepo, coordinator, cfg.SweepBatchSize, logger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	for _, s := range []*workers.Sweeper{
		workers.NewSweeper("timeout", cfg.SweepInterval, timeoutSweeper.Sweep, logger),
		workers.NewSweeper("reminder", cfg.SweepInterval, reminderSweeper.Sweep, logger),
		workers.NewSweeper("escalation", cfg.SweepInterval, escalationSweeper.Sweep, logger),
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Run(ctx)
		}()
	}

	// HTTP
	webhookController := controllers.NewWebhookController(logger, memberRepo, convRepo, coordinator, drafts)
	opsController := controllers.NewOpsController(logger, eventRepo, memberRepo, homieRepo)
	mux := httpdelivery.NewRouter(webhookController, opsController, verifier, cfg.WebhookToken, logger)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: middleware.LoggingMiddleware(logger, middleware.CORS(cfg.CORSAllowedOrigins, mux)),
	}

	go func() {
		logger.Info("server listening", "port", cfg.Port, "env", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", "error", err)
	}
	wg.Wait()
	logger.Info("shutdown complete")
}
