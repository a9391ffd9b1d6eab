package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"notionmirror/internal/app"
	"notionmirror/internal/binding"
	"notionmirror/internal/config"
	"notionmirror/internal/logger"
	"notionmirror/internal/notion"
	"notionmirror/internal/queue"
)

func main() {
	baseHandler := slog.NewJSONHandler(os.Stdout, nil)
	logger := slog.New(logger.NewContextHandler(baseHandler))
	slog.SetDefault(logger)

	cfg, err := config.Load("config.toml", "config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, notion.NewClient(cfg.Notion.APIKey), logger); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

// run wires and starts every component; split out from main, and taking
// the upstream client as a parameter, so smoke tests can drive it against
// a fake upstream server instead of the real Notion API.
func run(ctx context.Context, cfg *config.Config, upstream *notion.Client, logger *slog.Logger) error {
	bindings, err := binding.Build(ctx, upstream, cfg.Database)
	if err != nil {
		return err
	}

	q, err := newQueue(cfg.Queue)
	if err != nil {
		return err
	}

	deps, err := app.Bootstrap(cfg)
	if err != nil {
		return err
	}

	a := app.New(cfg, upstream, bindings, q, deps, logger)
	return a.Run(ctx)
}

// newQueue selects the in-process or Redis-backed queue implementation
// based on whether a Redis URL was configured.
func newQueue(cfg config.QueueConfig) (queue.Queue, error) {
	if cfg.RedisURL == "" {
		return queue.NewInProcess(), nil
	}
	return queue.NewRedis(cfg.RedisURL, cfg.Name)
}
