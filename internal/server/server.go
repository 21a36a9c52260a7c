// Package server exposes the workflow engine over HTTP: the analyze endpoint,
// thread bookkeeping and the direct dashboard feed.
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/mohammad-safakhou/stockpilot/config"
	"github.com/mohammad-safakhou/stockpilot/internal/store"
	"github.com/mohammad-safakhou/stockpilot/internal/workflow"
	"github.com/mohammad-safakhou/stockpilot/provider"
	"github.com/mohammad-safakhou/stockpilot/tools"
)

// Run wires all dependencies and serves the API until the listener fails.
func Run(cfg *config.Config) error {
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())

	baseLogger := log.New(log.Writer(), "[HTTP] ", log.LstdFlags)
	e.HTTPErrorHandler = func(err error, c echo.Context) {
		code := http.StatusInternalServerError
		msg := err.Error()
		if he, ok := err.(*echo.HTTPError); ok {
			code = he.Code
			if he.Message != nil {
				msg = fmt.Sprint(he.Message)
			}
		}
		req := c.Request()
		baseLogger.Printf("%d %s %s from %s: %v", code, req.Method, req.URL.Path, c.RealIP(), err)
		if !c.Response().Committed {
			_ = c.JSON(code, map[string]any{"error": msg})
		}
	}
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type"},
		AllowCredentials: true,
	}))

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	ctx := context.Background()
	dsn, err := cfg.Storage.Postgres.DSN()
	if err != nil {
		return err
	}
	if err := store.Migrate("file://migrations", dsn, "up", 0); err != nil {
		baseLogger.Printf("migrations: %v", err)
	}
	st, err := store.NewWithDSN(ctx, dsn)
	if err != nil {
		return err
	}

	reasoning, err := provider.NewClient(cfg.LLM, cfg.LLM.Routing.Reasoning)
	if err != nil {
		return err
	}
	var review workflow.ModelClient
	if cfg.Engine.ReviewEnabled {
		rc, err := provider.NewClient(cfg.LLM, cfg.LLM.Routing.Review)
		if err != nil {
			return err
		}
		review = rc
	}

	clients := tools.NewClients(cfg.Tools)
	registry, err := tools.BuildRegistry(clients)
	if err != nil {
		return err
	}

	engineLogger := log.New(log.Writer(), "[ENGINE] ", log.LstdFlags)
	exec, err := workflow.NewExecutor(reasoning, review, registry, st, workflow.Config{
		MaxIterations:       cfg.Engine.MaxIterations,
		MaxObservationChars: cfg.Engine.MaxObservationChars,
		ModelTimeout:        cfg.Engine.ModelTimeout,
		ToolTimeout:         cfg.Engine.ToolTimeout,
		SentinelFirst:       cfg.Engine.SentinelFirst,
	}, engineLogger, workflow.NewMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return err
	}

	th := &ThreadsHandler{Store: st, Executor: exec, Logger: baseLogger}
	th.Register(e)

	dh := &DashboardHandler{
		Clients: clients,
		TTL:     cfg.Storage.Redis.DashboardTTL,
		Logger:  log.New(log.Writer(), "[DASH] ", log.LstdFlags),
	}
	if cfg.Storage.Redis.Addr != "" {
		dh.Cache = redis.NewClient(&redis.Options{
			Addr:     cfg.Storage.Redis.Addr,
			Password: cfg.Storage.Redis.Password,
			DB:       cfg.Storage.Redis.DB,
		})
	}
	dh.Register(e)

	return e.Start(cfg.Server.Address)
}
