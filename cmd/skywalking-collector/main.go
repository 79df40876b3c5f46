package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/cors"
	"golang.org/x/sync/errgroup"

	"github.com/docc-lab/skywalking-collector/internal/adapters/skywalking"
	appconfig "github.com/docc-lab/skywalking-collector/internal/config"
	"github.com/docc-lab/skywalking-collector/internal/core/services"
	"github.com/docc-lab/skywalking-collector/pkg/collector"
)

func main() {
	level := new(slog.LevelVar)
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	logger.Info("starting skywalking collector")

	if err := run(logger, level); err != nil {
		logger.Error("collector startup failed", "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, level *slog.LevelVar) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		logger.Info("shutting down")
		cancel()
	}()

	cfg, err := appconfig.Load(logger)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	level.Set(cfg.LogLevel)

	endpoint := cfg.Upstream.GraphQLURL()
	client := skywalking.NewClient(endpoint)
	traceService := services.NewTraceQueryService(logger, client, cfg.Upstream)

	apiServer, err := collector.NewServer(ctx, logger, traceService)
	if err != nil {
		return fmt.Errorf("failed to init api server: %w", err)
	}

	c := cors.New(cors.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
		ExposedHeaders: []string{collector.RequestIDHeader},
	})

	httpServer := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           c.Handler(apiServer.Handler()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting collector api server",
			"addr", httpServer.Addr,
			"upstream", endpoint,
			"span_query_timeout", cfg.Upstream.SpanQueryTimeout.String(),
			"traces_timeout", cfg.Upstream.TracesTimeout.String(),
			"default_step", string(cfg.Upstream.DefaultStep),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("api server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gCtx.Done()
		logger.Info("shutting down api server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
