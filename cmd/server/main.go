package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"apptrack/server/internal/api"
	"apptrack/server/internal/cache"
	cacheredis "apptrack/server/internal/cache/redis"
	"apptrack/server/internal/classifier"
	"apptrack/server/internal/config"
	"apptrack/server/internal/database"
	"apptrack/server/internal/events"
	"apptrack/server/internal/mailbox"
	"apptrack/server/internal/processor"
	"apptrack/server/internal/router"
	"apptrack/server/internal/scheduler"
	"apptrack/server/internal/store"
	"apptrack/server/internal/telemetry"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/nats-io/nats.go"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	return zap.NewProduction()
}

func newNATSConnection(cfg *config.Config) (*nats.Conn, error) {
	return events.Connect(cfg)
}

func newClickHouseConnection(cfg *config.Config, logger *zap.Logger) (clickhouse.Conn, error) {
	db, err := database.New(context.Background(), database.Options{
		DSN:             cfg.ClickHouseDSN,
		MaxOpenConns:    cfg.ClickHouseMaxOpenConns,
		MaxIdleConns:    cfg.ClickHouseMaxIdleConns,
		ConnMaxLifetime: cfg.ClickHouseConnMaxLife,
		Username:        cfg.ClickHouseUsername,
		Password:        cfg.ClickHousePassword,
		Database:        cfg.ClickHouseDatabase,
	}, logger)
	if err != nil {
		return nil, err
	}
	return db.Conn(), nil
}

func newCache(cfg *config.Config) cache.Cache {
	return cacheredis.New(cache.Options{
		DefaultTTL:    cfg.CacheTTL,
		RedisURL:      cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
}

func newClassifier(c cache.Cache, logger *zap.Logger, cfg *config.Config) *classifier.Classifier {
	return classifier.New(c, logger, cfg.MinTrainingExamples, cfg.TrainSplit)
}

func newMailboxClient(cfg *config.Config, c cache.Cache, logger *zap.Logger) mailbox.Client {
	return mailbox.NewIMAP(mailbox.IMAPOptions{
		Addr:     cfg.IMAPAddr,
		Username: cfg.IMAPUsername,
		Password: cfg.IMAPPassword,
		Folder:   cfg.IMAPFolder,
		CacheTTL: cfg.CacheTTL,
	}, c, logger)
}

func main() {
	app := fx.New(
		fx.Provide(
			config.LoadConfig,
			newLogger,
			newNATSConnection,
			newClickHouseConnection,
			newCache,
			newClassifier,
			newMailboxClient,
			store.NewClickHouse,
			router.New,
			events.NewPublisher,
			processor.NewEmailProcessor,
			events.NewHandler,
			scheduler.New,
			api.NewServer,
		),
		fx.Invoke(
			func(cfg *config.Config, logger *zap.Logger, lc fx.Lifecycle) {
				if cfg.OTLPEndpoint == "" {
					return
				}
				shutdown, err := telemetry.InitTracer(context.Background(), "apptrack-server", cfg.OTLPEndpoint)
				if err != nil {
					logger.Warn("failed to init tracing", zap.Error(err))
					return
				}
				lc.Append(fx.Hook{
					OnStop: func(ctx context.Context) error {
						shutdown()
						return nil
					},
				})
			},
			func(cls *classifier.Classifier, logger *zap.Logger) {
				if err := cls.Load(context.Background()); err != nil {
					logger.Warn("failed to load classifier model", zap.Error(err))
				}
			},
			func(handler *events.Handler, lc fx.Lifecycle) error {
				return handler.RegisterSubscriptions(lc)
			},
			func(server *api.Server, lc fx.Lifecycle) {
				server.Register(lc)
			},
			func(sched *scheduler.Scheduler, lc fx.Lifecycle) {
				lc.Append(fx.Hook{
					OnStart: func(ctx context.Context) error {
						go func() {
							if err := sched.Start(context.Background()); err != nil && err != context.Canceled {
								log.Printf("scheduler stopped: %v", err)
							}
						}()
						return nil
					},
					OnStop: func(ctx context.Context) error {
						sched.Stop()
						return nil
					},
				})
			},
		),
	)

	startCtx := context.Background()
	if err := app.Start(startCtx); err != nil {
		log.Fatal(err)
	}

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	<-c

	stopCtx := context.Background()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatal(err)
	}
}
