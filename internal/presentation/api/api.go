package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/hilthontt/encore/internal/infrastructure/configs"
	"github.com/hilthontt/encore/internal/infrastructure/logging"
	"github.com/hilthontt/encore/internal/infrastructure/metrics"
	"github.com/hilthontt/encore/internal/infrastructure/ratelimiter"
	commentsHandler "github.com/hilthontt/encore/internal/presentation/handler/comments"
	healthHandler "github.com/hilthontt/encore/internal/presentation/handler/health"
	notificationsHandler "github.com/hilthontt/encore/internal/presentation/handler/notifications"
	songsHandler "github.com/hilthontt/encore/internal/presentation/handler/songs"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	requestTimeout  = 60 * time.Second
	shutdownTimeout = 5 * time.Second
)

type Handlers struct {
	Songs         *songsHandler.Handler
	Comments      *commentsHandler.Handler
	Notifications *notificationsHandler.Handler
	Health        *healthHandler.Handler
}

type Application struct {
	config      configs.HTTPConfig
	handlers    Handlers
	logger      logging.Logger
	ratelimiter ratelimiter.Limiter
	metrics     *metrics.Metrics
}

func NewApplication(
	config configs.HTTPConfig,
	handlers Handlers,
	logger logging.Logger,
	ratelimiter ratelimiter.Limiter,
	metrics *metrics.Metrics,
) *Application {
	return &Application{
		config:      config,
		handlers:    handlers,
		logger:      logger,
		ratelimiter: ratelimiter,
		metrics:     metrics,
	}
}

func (app *Application) Mount() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Use(app.enableCors)
	r.Use(app.loggerMiddleware)
	r.Use(app.prometheusMiddleware)

	r.Handle("/metrics", app.metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", app.handlers.Health.GetHealth)
		r.Get("/healthz", app.handlers.Health.GetHealth)
		r.Get("/live", app.handlers.Health.GetHealth)
		r.Get("/ready", app.handlers.Health.GetReady)

		// Websocket upgrades are long lived and must skip the request timeout.
		r.Get("/users/{userId}/notifications/ws", app.handlers.Notifications.StreamHandler)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(requestTimeout))
			r.Use(app.rateLimiterMiddleware)

			r.Route("/songs/{songId}", func(r chi.Router) {
				r.Post("/plays", app.handlers.Songs.RecordPlayHandler)
				r.Delete("/", app.handlers.Songs.DeleteSongHandler)
			})

			r.Post("/comments/{commentId}/replies", app.handlers.Comments.ReplyHandler)

			r.Get("/users/{userId}/notifications", app.handlers.Notifications.ListUserNotificationsHandler)
			r.Route("/notifications/{id}", func(r chi.Router) {
				r.Get("/", app.handlers.Notifications.GetNotificationHandler)
				r.Patch("/", app.handlers.Notifications.UpdateNotificationHandler)
				r.Patch("/read", app.handlers.Notifications.MarkAsReadHandler)
				r.Delete("/", app.handlers.Notifications.DeleteNotificationHandler)
			})
		})
	})

	return otelhttp.NewHandler(r, "encore-http")
}

// Run serves mux until ctx is cancelled, then shuts the server down gracefully.
func (app *Application) Run(ctx context.Context, mux http.Handler) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", app.config.Host, app.config.Port),
		Handler:      mux,
		WriteTimeout: app.config.WriteTimeout,
		ReadTimeout:  app.config.ReadTimeout,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error, 1)

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		app.logger.Info(logging.General, logging.Shutdown, "shutting down http server", map[logging.ExtraKey]any{
			logging.HostIp: srv.Addr,
		})

		shutdown <- srv.Shutdown(shutdownCtx)
	}()

	app.logger.Info(logging.General, logging.Startup, "server has started", map[logging.ExtraKey]any{
		logging.HostIp: srv.Addr,
	})

	err := srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	if err := <-shutdown; err != nil {
		return err
	}

	app.logger.Info(logging.General, logging.Shutdown, "server has stopped", map[logging.ExtraKey]any{
		logging.HostIp: srv.Addr,
	})

	return nil
}
