package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Team-Zemo/omninet-core-sub000/internal/app/registry"
	"github.com/Team-Zemo/omninet-core-sub000/internal/app/server"
	"github.com/Team-Zemo/omninet-core-sub000/internal/app/sweeper"
	"github.com/Team-Zemo/omninet-core-sub000/internal/config"
	"github.com/Team-Zemo/omninet-core-sub000/internal/core/services"
	"github.com/Team-Zemo/omninet-core-sub000/internal/platform/logger"
	"github.com/Team-Zemo/omninet-core-sub000/internal/platform/telemetry"
	"github.com/Team-Zemo/omninet-core-sub000/internal/plugins/postgres"
	redisPlugin "github.com/Team-Zemo/omninet-core-sub000/internal/plugins/redis"
	"github.com/Team-Zemo/omninet-core-sub000/internal/plugins/twilio"

	"github.com/redis/go-redis/v9"
)

func main() {
	// Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Config
	cfg := config.Load()

	// Logger
	log := logger.NewLogger(*cfg)
	log.Info("starting application")

	otelShutdown, err := telemetry.InitTelemetry(ctx, *cfg)
	if err != nil {
		log.Error("failed to initialize telemetry", "err", err)
	}
	if otelShutdown != nil {
		defer func() {
			log.Info("flushing telemetry...")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := otelShutdown(shutdownCtx); err != nil {
				log.Error("telemetry shutdown failed", "err", err)
			}
		}()
	}

	// Infra
	var pdb *sql.DB
	if pdb, err = postgres.New(ctx, *cfg.Postgres); err != nil {
		log.Error("postgres connection failed", "DSN", cfg.Postgres.DSN)
		return
	}
	log.Info("postgres connected")
	var rdb *redis.Client
	if rdb, err = redisPlugin.NewRedisClient(ctx, *cfg.Redis); err != nil {
		log.Error("redis connection failed", "url", cfg.Redis.URL)
		return
	}
	log.Info("redis connected")

	// Adapters
	userRepo := postgres.NewUserRepository(pdb)
	contactRepo := postgres.NewContactRepo(pdb)
	msgRepo := postgres.NewMessageRepo(pdb)
	callRepo := postgres.NewCallRepo(pdb)
	offlineQueue := redisPlugin.NewOfflineQueue(rdb, cfg.Redis.QueueMaxLen)
	previewCache := redisPlugin.NewPreviewCache(rdb)

	verifier := twilio.NewTwilioClient(*cfg.Twilio)

	// Core Services
	hub := registry.NewRegistry(log)
	txManager := postgres.NewTxManager(pdb)
	userSvc := services.NewUserService(log, userRepo, verifier)
	tokenSvc := services.NewTokenService(cfg.SecretToken)
	msgSvc := services.NewMessageService(log, userRepo, contactRepo, msgRepo, hub, hub, offlineQueue, previewCache, txManager)
	contactSvc := services.NewContactService(log, userRepo, contactRepo, hub, previewCache, cfg.Cache.PreviewTTL)
	activeCalls := services.NewActiveCallIndex()
	callSvc := services.NewCallService(log, callRepo, contactRepo, hub, hub, activeCalls, cfg.Call.RingTimeout)

	// Maintenance loop
	sweep := sweeper.New(log, callSvc, cfg.Call.SweepInterval)
	go sweep.Run(ctx)

	// Server
	srv := server.NewServer(log, cfg.Service.Name, cfg.Service.Addr, userSvc, tokenSvc, msgSvc, contactSvc, callSvc, hub)
	if err := srv.Start(); err != nil {
		log.Error("server stopped", "err", err)
	}
}
