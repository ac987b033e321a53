package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/api/router"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/authctx"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/config"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/database"
	internaljwt "github.com/GrupoCorban26/sgi-corban-sub000/internal/jwt"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/logging"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/outbox"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/queue"
	authsvc "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/auth"
	crmservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/crm"
	inboxservice "github.com/GrupoCorban26/sgi-corban-sub000/internal/service/inbox"
	"github.com/GrupoCorban26/sgi-corban-sub000/internal/websocket"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config load failed: %+v", err)
	}

	logger, err := logging.New("inbox-server", logging.Options{
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

	authRedis := redis.NewClient(&redis.Options{
		Addr:     cfg.AuthRedisURL,
		Password: cfg.AuthRedisPass,
		DB:       0,
	})
	defer authRedis.Close()
	chatRedis := redis.NewClient(&redis.Options{
		Addr:     cfg.ChatRedisURL,
		Password: cfg.ChatRedisPass,
		DB:       0,
	})
	defer chatRedis.Close()

	tokens := internaljwt.NewIssuer(cfg.UserSecret, cfg.AccessTokenTTL, internaljwt.NewRedisRefreshStore(authRedis))

	inbox := inboxservice.New(db,
		inboxservice.WithNotifier(websocket.NewPublisher(chatRedis), cfg.NotificationsRoom),
		inboxservice.WithOutbox(outbox.New(chatRedis, cfg.OutboxKey)),
		inboxservice.WithLogger(logger),
	)
	crm := crmservice.New(db, logger)
	auth := authsvc.New(db, tokens, logger)

	seedAdmin(ctx, auth, cfg, logger)

	queueManager := queue.NewRequestQueueManager(cfg.QueueSize, cfg.WorkerCount, logger)
	defer queueManager.Shutdown()

	opts := api.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
		Tokens:         tokens,
	}
	inboxServer := api.NewAPIServer(
		cfg.InboxAddr,
		queueManager,
		opts,
		router.UtilsRoutes("/api/inbox/v1", "inbox"),
		router.InboxRoutes("/api/inbox/v1", inbox, crm),
		router.UtilsRoutes("/api/auth/v1", "auth"),
		router.AuthRoutes("/api/auth/v1", auth),
	)
	botServer := api.NewAPIServer(
		cfg.BotAddr,
		queueManager,
		opts,
		router.UtilsRoutes("/api/bot/v1", "bot"),
		router.BotRoutes("/api/bot/v1", inbox),
	)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return inboxServer.Run(ctx) })
	g.Go(func() error { return botServer.Run(ctx) })
	if err := g.Wait(); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func seedAdmin(ctx context.Context, auth *authsvc.Service, cfg *config.Config, logger *zap.Logger) {
	if cfg.SeedAdminEmail == "" || cfg.SeedAdminPassword == "" {
		return
	}
	_, err := auth.CreateAgent(ctx, authctx.Context{}, authsvc.CreateAgentParams{
		Email:    cfg.SeedAdminEmail,
		Name:     cfg.SeedAdminName,
		Password: cfg.SeedAdminPassword,
		Roles:    []string{string(authctx.RoleAdmin), string(authctx.RoleSupervisor)},
	}, true)
	var authErr *authsvc.Error
	switch {
	case err == nil:
		logger.Info("seed admin created", zap.String("email", cfg.SeedAdminEmail))
	case errors.As(err, &authErr) && authErr.Code == authsvc.ErrorCodeConflict:
	default:
		logger.Error("seed admin failed", zap.Error(err))
	}
}
