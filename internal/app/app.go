package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"notionmirror/internal/binding"
	"notionmirror/internal/config"
	"notionmirror/internal/deadletter"
	"notionmirror/internal/middleware"
	"notionmirror/internal/notion"
	"notionmirror/internal/queue"
	"notionmirror/internal/rescan"
	"notionmirror/internal/webhook"
	"notionmirror/internal/worker"
)

// App wires every long-running component: the webhook HTTP server, the
// sync worker, the optional periodic rescanner, and the optional
// dead-letter ledger's own HTTP routes.
type App struct {
	Handler    http.Handler
	Worker     *worker.Worker
	Rescanner  *rescan.Rescanner
	addr       string
	queue      queue.Queue
	nsqCleanup func() error
}

func New(
	cfg *config.Config,
	upstream *notion.Client,
	bindings *binding.Table,
	q queue.Queue,
	deps *Dependencies,
	logger *slog.Logger,
) *App {
	w := worker.New(q, upstream, bindings)

	mux := http.NewServeMux()

	var nsqCleanup func() error
	if deps != nil && deps.DB != nil {
		repo := deadletter.NewPostgresRepo(deps.DB)
		svc := deadletter.NewService(repo, deps.NSQProducer, q, logger)
		tracker := deadletter.NewTracker(cfg.Sync.DeadLetterThreshold, svc)
		w = w.WithFailureSink(tracker)

		handler := deadletter.NewHandler(svc)
		mux.Handle("GET /internal/dead-letters", middleware.CorrelationID(http.HandlerFunc(handler.List)))
		mux.Handle("POST /internal/dead-letters/{id}/requeue", middleware.CorrelationID(http.HandlerFunc(handler.Requeue)))

		nsqCleanup = func() error {
			deps.NSQProducer.Stop()
			return deps.DB.Close()
		}
	}

	maxAge := time.Duration(cfg.Webhook.MaxAgeSeconds) * time.Second
	ingress := webhook.NewIngress(cfg.Webhook.Secret, maxAge, q, bindings)
	mux.Handle("POST /webhook", middleware.CorrelationID(ingress))

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var rescanner *rescan.Rescanner
	if cfg.Sync.IntervalSeconds > 0 {
		rescanner = rescan.New(time.Duration(cfg.Sync.IntervalSeconds)*time.Second, q, bindings.All())
	}

	return &App{
		Handler:    mux,
		Worker:     w,
		Rescanner:  rescanner,
		addr:       fmt.Sprintf("%s:%d", cfg.Webhook.Host, cfg.Webhook.Port),
		queue:      q,
		nsqCleanup: nsqCleanup,
	}
}

// Run blocks until ctx is cancelled, then shuts everything down.
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    a.addr,
		Handler: a.Handler,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- a.Worker.Run(ctx)
	}()

	if a.Rescanner != nil {
		go a.Rescanner.Run(ctx)
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown failed", "error", err)
		}
		if err := a.queue.Close(); err != nil {
			slog.Error("queue close failed", "error", err)
		}
		if a.nsqCleanup != nil {
			if err := a.nsqCleanup(); err != nil {
				slog.Error("dead-letter backing cleanup failed", "error", err)
			}
		}
	}()

	slog.Info("server starting", "addr", a.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	if workerErr := <-errCh; workerErr != nil && workerErr != context.Canceled {
		return workerErr
	}
	return nil
}
