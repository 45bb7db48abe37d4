package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/brpaz/echozap"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/lungcare/clinic/alerts"
	"github.com/lungcare/clinic/alerts/behavior"
	"github.com/lungcare/clinic/alerts/metric"
	"github.com/lungcare/clinic/alerts/questionnaire"
	"github.com/lungcare/clinic/auth"
	"github.com/lungcare/clinic/config"
	"github.com/lungcare/clinic/errors"
	"github.com/lungcare/clinic/logger"
	"github.com/lungcare/clinic/outbox"
	"github.com/lungcare/clinic/patients"
	"github.com/lungcare/clinic/questionnaires"
	"github.com/lungcare/clinic/readings"
	"github.com/lungcare/clinic/store"
	"github.com/lungcare/clinic/tasks"
	"github.com/lungcare/clinic/todos"
)

func Start(e *echo.Echo, cfg *config.Config, logger *zap.SugaredLogger, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := e.Start(fmt.Sprintf(":%d", cfg.HttpPort)); err != nil && err != http.ErrServerClosed {
					logger.Errorw("http server stopped", "error", err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return e.Shutdown(ctx)
		},
	})
}

func SetReady(healthCheck *HealthCheck, db *mongo.Database, lifecycle fx.Lifecycle) {
	lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := db.Client().Ping(ctx, nil); err != nil {
				return err
			}

			// It's important this is set after mongo is initialized, which is ensured
			// by taking a dependency on mongo in the constructor, because lifecycle hooks
			// are executed in topological order
			healthCheck.SetReady(true)
			return nil
		},
		OnStop: nil,
	})
}

func NewServer(handler *Handler, healthCheck *HealthCheck, authenticator auth.Authenticator, logger *zap.Logger) (*echo.Echo, error) {
	e := echo.New()
	e.HideBanner = true

	// Skip auth and logging for readiness probe and metrics routes
	skipper := RouteSkipper([]string{"/ready", "/metrics"})
	authMiddleware := auth.NewAuthMiddleware(authenticator, auth.AuthMiddlewareOpts{
		Skipper: skipper,
	})

	e.Use(middleware.Recover())
	e.Use(SkipMiddleware(echozap.ZapLogger(logger), skipper))
	e.Use(authMiddleware)

	e.HTTPErrorHandler = errors.CustomHTTPErrorHandler

	e.GET("/ready", healthCheck.Ready)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	RegisterHandlers(e, handler)

	return e, nil
}

func Dependencies() []fx.Option {
	return []fx.Option{
		fx.Provide(
			config.NewFromEnv,
			logger.NewProductionLogger,
			logger.Suggar,
			store.NewConfig,
			store.NewClient,
			store.NewDatabase,
			patients.NewRepository,
			readings.NewRepository,
			tasks.NewRepository,
			questionnaires.NewCachedRepository,
			outbox.NewRepository,
			alerts.NewArchiveRepository,
			alerts.NewRepository,
			alerts.NewService,
			metric.NewEvaluator,
			questionnaire.NewMapper,
			behavior.NewScanner,
			todos.NewService,
			auth.NewAuthenticator,
			NewHealthCheck,
			NewHandler,
			NewServer,
		),
	}
}

func MainLoop() {
	fx.New(
		append(Dependencies(),
			fx.Invoke(SetReady),
			fx.Invoke(Start),
		)...,
	).Run()
}
