package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/router"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/config"
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/logging"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/queue"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %+v", err)
	}

	logger, err := logging.New("ws-server", logging.Options{
		Level:      cfg.LogLevel,
		File:       cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		log.Fatalf("logger init failed: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	chatRedis := redis.NewClient(&redis.Options{
		Addr:     cfg.ChatRedisURL,
		Password: cfg.ChatRedisPass,
		DB:       0,
	})
	defer chatRedis.Close()

	// only verifies access tokens, refresh lives on the inbox server
	tokens := internaljwt.NewIssuer(cfg.UserSecret, cfg.AccessTokenTTL, nil)

	queueManager := queue.NewRequestQueueManager(cfg.QueueSize, cfg.WorkerCount, logger)
	defer queueManager.Shutdown()

	hub := websocket.NewHub()
	go hub.Run(ctx)
	handler := websocket.NewHandler(hub, chatRedis, cfg.AllowedOrigins, logger)
	handler.EnsureRoom(ctx, cfg.NotificationsRoom)

	server := api.NewAPIServer(
		cfg.WSAddr,
		queueManager,
		api.Options{
			AllowedOrigins: cfg.AllowedOrigins,
			Logger:         logger,
			Tokens:         tokens,
		},
		router.UtilsRoutes("/api/ws/v1", "ws"),
		router.NotificationRoutes(ctx, "/api/ws/v1", handler, cfg.NotificationsRoom),
	)

	if err := server.Run(ctx); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}
