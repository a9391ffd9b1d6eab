package app

import (
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"notionmirror/internal/config"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
)

const (
	bootstrapRetryAttempts = 10
	bootstrapRetryDelay    = 2 * time.Second
)

// Dependencies holds the optional dead-letter ledger backing: a Postgres
// connection and an NSQ producer. Both are nil when cfg.DeadLetter.PostgresDSN
// is unset, in which case the ledger itself is disabled (see New).
type Dependencies struct {
	DB          *sql.DB
	NSQProducer *nsq.Producer
}

// Bootstrap wires the dead-letter ledger's own storage, independent of the
// sync pipeline. It is a no-op returning a zero Dependencies when no
// Postgres DSN is configured, so the ledger remains optional.
func Bootstrap(cfg *config.Config) (*Dependencies, error) {
	if cfg.DeadLetter.PostgresDSN == "" {
		slog.Warn("dead_letter.postgres_dsn not set, dead-letter ledger disabled")
		return &Dependencies{}, nil
	}

	db, err := sql.Open("postgres", cfg.DeadLetter.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}

	var pingErr error
	for i := 0; i < bootstrapRetryAttempts; i++ {
		if pingErr = db.Ping(); pingErr == nil {
			break
		}
		slog.Warn("failed to ping db, retrying...", "attempt", i+1)
		time.Sleep(bootstrapRetryDelay)
	}
	if pingErr != nil {
		return nil, fmt.Errorf("failed to ping db: %w", pingErr)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver error: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance(cfg.DeadLetter.MigrationPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration instance error: %w", err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return nil, fmt.Errorf("migration up error: %w", err)
	}
	slog.Info("dead-letter migrations applied")

	nsqCfg := nsq.NewConfig()
	producer, err := nsq.NewProducer(cfg.DeadLetter.NSQDHost, nsqCfg)
	if err != nil {
		return nil, fmt.Errorf("nsq producer error: %w", err)
	}

	createTopic(cfg.DeadLetter.NSQDHost)

	return &Dependencies{DB: db, NSQProducer: producer}, nil
}

func createTopic(nsqdHost string) {
	go func() {
		time.Sleep(2 * time.Second)
		url := fmt.Sprintf("http://%s/topic/create?topic=%s", nsqdHTTPAddr(nsqdHost), config.TopicDeadLetter)
		resp, err := http.Post(url, "application/json", nil) // #nosec G107 -- URL is built from internal NSQ config, not user input
		if err != nil {
			slog.Warn("failed to create NSQ topic", "topic", config.TopicDeadLetter, "error", err)
			return
		}
		if closeErr := resp.Body.Close(); closeErr != nil {
			slog.Warn("failed to close NSQ topic creation response body", "error", closeErr)
		}
	}()
}

// nsqdHTTPAddr assumes the HTTP admin port follows nsqd's TCP port by one
// (4150 -> 4151), matching the default nsqd configuration.
func nsqdHTTPAddr(tcpAddr string) string {
	host, port := splitHostPort(tcpAddr)
	if port == "4150" || port == "" {
		return host + ":4151"
	}
	var p int
	if _, err := fmt.Sscanf(port, "%d", &p); err == nil {
		return fmt.Sprintf("%s:%d", host, p+1)
	}
	return host + ":" + port
}

func splitHostPort(addr string) (string, string) {
	for i := len(addr) - 1; i >= 0; i-- {
		if addr[i] == ':' {
			return addr[:i], addr[i+1:]
		}
	}
	return addr, ""
}
