package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/config"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/logging"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/websocket"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/whatsapp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %+v", err)
	}

	logger, err := logging.New("wa-bridge", logging.Options{
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

	db, err := database.NewDatabase(ctx, database.Options{
		Region:       cfg.AWSRegion,
		AccessKeyID:  cfg.AWSID,
		SecretKey:    cfg.AWSSecret,
		SessionToken: cfg.AWSToken,
		Endpoint:     cfg.DynamoDBEndpoint,
	})
	if err != nil {
		logger.Fatal("db init failed", zap.Error(err))
	}

	chatRedis := redis.NewClient(&redis.Options{
		Addr:     cfg.ChatRedisURL,
		Password: cfg.ChatRedisPass,
		DB:       0,
	})
	defer chatRedis.Close()

	jobs := outbox.New(chatRedis, cfg.OutboxKey)
	inbox := inboxservice.New(db,
		inboxservice.WithNotifier(websocket.NewPublisher(chatRedis), cfg.NotificationsRoom),
		inboxservice.WithLogger(logger),
	)

	client, err := whatsapp.OpenClient(cfg.WhatsAppStore, logger)
	if err != nil {
		logger.Fatal("whatsapp init failed", zap.Error(err))
	}

	bridge := whatsapp.NewBridge(client, inbox, jobs, cfg.MediaBaseURL, logger)
	if err := bridge.Connect(ctx); err != nil {
		logger.Fatal("whatsapp connect failed", zap.Error(err))
	}
	if err := bridge.Run(ctx); err != nil {
		logger.Fatal("bridge stopped", zap.Error(err))
	}
}
