package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/tiffin-tracker/internal/application/correlation"
	"github.com/tiffin-tracker/internal/application/dispatch"
	"github.com/tiffin-tracker/internal/application/history"
	"github.com/tiffin-tracker/internal/application/ledger"
	"github.com/tiffin-tracker/internal/application/scheduler"
	"github.com/tiffin-tracker/internal/application/settings"
	"github.com/tiffin-tracker/internal/config"
	"github.com/tiffin-tracker/internal/infrastructure/dynamo"
	jwtinfra "github.com/tiffin-tracker/internal/infrastructure/jwt"
	"github.com/tiffin-tracker/internal/infrastructure/logger"
	"github.com/tiffin-tracker/internal/infrastructure/memory"
	"github.com/tiffin-tracker/internal/infrastructure/push"
	"github.com/tiffin-tracker/internal/infrastructure/sns"
	"github.com/tiffin-tracker/internal/infrastructure/webpush"
	transporthttp "github.com/tiffin-tracker/internal/transport/http"
)

type userStore interface {
	ledger.Store
	scheduler.EligibleLister
}

func main() {
	envErr := godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.AppEnv)
	if envErr != nil {
		log.Info("no .env file found, reading from environment")
	}

	ctx := context.Background()
	store, err := newStore(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Fatal("store unavailable")
	}

	l := ledger.New(store, cfg.StoreRetryLimit, log)
	corrSvc := correlation.NewService(l, log)
	historySvc := history.NewService(l, corrSvc, log)
	settingsSvc := settings.NewService(l, log)

	// Push transports are optional; a missing one fails deliveries for its
	// subscriptions as transient.
	var web, mobile push.Transport
	if s, err := webpush.NewSender(cfg); err == nil {
		web = s
	} else {
		log.WithError(err).Warn("web push disabled")
	}
	if s, err := sns.NewSender(ctx, cfg); err == nil {
		mobile = s
	} else {
		log.WithError(err).Warn("SNS push disabled")
	}
	dispatcher := dispatch.NewDispatcher(push.NewRouter(web, mobile), settingsSvc, cfg.DeliveryTimeout, log)

	sched := scheduler.New(store, historySvc, dispatcher, scheduler.Config{
		Spec:        cfg.SchedulerSpec,
		Concurrency: cfg.SchedulerConcurrency,
		TickTimeout: 55 * time.Second,
	}, log)
	if err := sched.Start(); err != nil {
		log.WithError(err).Fatal("scheduler")
	}

	deps := &transporthttp.Deps{
		Correlation: corrSvc,
		History:     historySvc,
		Settings:    settingsSvc,
		Log:         log,
	}
	if v, err := jwtinfra.NewVerifier(cfg); err == nil {
		deps.Verifier = v
	} else {
		log.WithError(err).Warn("JWT verifier not available, authenticated routes disabled")
	}

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.AppPort),
		Handler:      transporthttp.NewRouter(cfg, deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.WithFields(logrus.Fields{"port": cfg.AppPort, "env": cfg.AppEnv}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Fatal("forced shutdown")
	}
	log.Info("server stopped")
}

func newStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (userStore, error) {
	switch cfg.StoreBackend {
	case "memory":
		log.Warn("using in-memory store, data is lost on restart")
		return memory.NewUserRepo(), nil
	case "dynamo":
		client, err := dynamo.NewClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		// Creates the tables if they don't exist.
		dynamo.Bootstrap(ctx, client, cfg.DynamoTables, log)
		return dynamo.NewUserRepo(client, cfg.DynamoTables.Users, cfg.DynamoTables.Tokens), nil
	}
	return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
}
