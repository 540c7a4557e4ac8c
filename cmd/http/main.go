package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/hilthontt/encore/internal/application/milestones"
	"github.com/hilthontt/encore/internal/infrastructure/cache"
	"github.com/hilthontt/encore/internal/infrastructure/configs"
	"github.com/hilthontt/encore/internal/infrastructure/events"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/messaging"
	"github.com/hilthontt/encore/internal/infrastructure/metrics"
	"github.com/hilthontt/encore/internal/infrastructure/ratelimiter"
	"github.com/hilthontt/encore/internal/infrastructure/tracing"
	"github.com/hilthontt/encore/internal/infrastructure/ws"
	"github.com/hilthontt/encore/internal/persistence/db"
	"github.com/hilthontt/encore/internal/persistence/repository"
	"github.com/hilthontt/encore/internal/presentation/api"
	"github.com/hilthontt/encore/internal/presentation/handler/comments"
	"github.com/hilthontt/encore/internal/presentation/handler/health"
	"github.com/hilthontt/encore/internal/presentation/handler/notifications"
	"github.com/hilthontt/encore/internal/presentation/handler/songs"
)

const (
	serviceName = "encore-notifications"
)

type listener interface {
	Listen(ctx context.Context) error
}

func main() {
	configPath := configs.DetermineConfigPath()
	cfg, err := configs.Load(configPath)
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&logging.LoggerConfig{
		FilePath: cfg.Logger.FilePath,
		Encoding: cfg.Logger.Encoding,
		Level:    cfg.Logger.Level,
		Logger:   cfg.Logger.Logger,
	})
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sh, err := tracing.InitTracer(tracing.NewConfig(serviceName, cfg.Tracing))
	if err != nil {
		logger.Fatal(logging.General, logging.Startup, "failed to initialize the tracer", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer sh(context.Background())

	m := metrics.New()

	broker := messaging.NewRabbitMQ(messaging.OptionsFromConfig(cfg.Broker), logger)
	if err := broker.Connect(ctx); err != nil {
		logger.Fatal(logging.RabbitMQ, logging.Connect, "broker unreachable", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer broker.Close()

	mongoCfg := db.NewMongoConfig(cfg.Mongo)
	mongoClient, err := db.NewMongoClient(ctx, mongoCfg, logger)
	if err != nil {
		logger.Fatal(logging.MongoDB, logging.Startup, "failed to connect to mongo", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer db.DisconnectMongo(context.Background(), mongoClient)

	store := repository.NewNotificationRepository(db.GetDatabase(mongoClient, mongoCfg))
	if err := store.EnsureIndexes(ctx); err != nil {
		logger.Warn(logging.MongoDB, logging.Migration, "failed to ensure notification indexes", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	gdb, err := db.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal(logging.Postgres, logging.Startup, "failed to connect to postgres", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
	defer db.ClosePostgres(gdb)

	users := repository.NewUserRepository(gdb)
	redisClient, err := cache.NewRedisClient(ctx, cfg.Redis)
	if err != nil {
		logger.Warn(logging.Redis, logging.Startup, "redis unavailable, user lookups are not cached", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	} else {
		defer redisClient.Close()
		users = cache.NewUserRepository(users, redisClient, cfg.Redis.UserTTL, logger)
	}

	hub := ws.NewHub(logger, cfg.HTTP.AllowedOrigins)
	go hub.Run(ctx)

	songVisits := events.NewSongVisitPublisher(broker, cfg.Broker.Queues.SongVisits, m, logger)
	commentReplies := events.NewCommentReplyPublisher(broker, cfg.Broker.Queues.CommentReplies, m, logger)
	songDeletions := events.NewSongDeletionPublisher(broker, m, logger)
	notificationOut := events.NewNotificationPublisher(broker, m, logger)

	service := milestones.NewService(
		repository.NewVisualizationRepository(gdb),
		repository.NewCommentRepository(gdb),
		songVisits,
		commentReplies,
		logger,
	)

	workers := []listener{
		events.NewNotificationConsumer(broker, users, store, m, logger,
			events.WithPusher(hub),
			events.WithLookupTimeout(cfg.Notifications.LookupTimeout),
		),
		events.NewSongVisitRelay(broker, cfg.Broker.Queues.SongVisits, notificationOut, m, logger),
		events.NewCommentReplyRelay(broker, cfg.Broker.Queues.CommentReplies, notificationOut, m, logger),
		events.NewSongDeletionListener(broker, m, logger),
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		wg.Add(1)
		go func(w listener) {
			defer wg.Done()
			// A subscription ending outside shutdown stops the process so it can be restarted.
			if err := w.Listen(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error(logging.Consumer, logging.Consume, "listener stopped", map[logging.ExtraKey]any{
					logging.ErrorMessage: err.Error(),
				})
				stop()
			}
		}(w)
	}

	rl := ratelimiter.New(ratelimiter.OptionsFromConfig(cfg.RateLimiter))
	defer rl.Close()

	healthHandler := health.NewHandler(map[string]health.Check{
		"broker": broker.Healthcheck,
		"mongo": func(ctx context.Context) error {
			return db.PingMongo(ctx, mongoClient)
		},
	})

	app := api.NewApplication(cfg.HTTP, api.Handlers{
		Songs:         songs.NewHandler(repository.NewSongRepository(gdb), service, songDeletions, logger),
		Comments:      comments.NewHandler(service, logger),
		Notifications: notifications.NewHandler(store, hub, logger),
		Health:        healthHandler,
	}, logger, rl, m)

	if err := app.Run(ctx, app.Mount()); err != nil {
		logger.Error(logging.General, logging.Shutdown, "http server failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}

	stop()
	waitFor(&wg, 10*time.Second, logger)
}

func waitFor(wg *sync.WaitGroup, timeout time.Duration, logger logging.Logger) {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn(logging.General, logging.Shutdown, "listeners did not stop in time", nil)
	}
}
