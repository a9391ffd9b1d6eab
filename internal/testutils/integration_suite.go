package testutils

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nsqio/go-nsq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"notionmirror/internal/config"
)

// IntegrationSuite spins up the dead-letter ledger's own backing: a
// Postgres container for the ledger table and an NSQ container for its
// notification topic. The sync pipeline itself (upstream, queue, stores)
// is exercised against fakes elsewhere; this suite backs the startup smoke
// test, which runs the app with the ledger wired to those real services.
type IntegrationSuite struct {
	T   *testing.T
	DB  *sql.DB
	NSQ *nsq.Producer

	pgContainer  *postgres.PostgresContainer
	nsqContainer testcontainers.Container

	SkipMigrations bool
}

func NewIntegrationSuite(t *testing.T) *IntegrationSuite {
	return &IntegrationSuite{T: t}
}

func (s *IntegrationSuite) Setup() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("notionmirror_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.pgContainer = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sql.Open("postgres", connStr)
	require.NoError(s.T, err)

	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", basepath)

	if !s.SkipMigrations {
		m, err := migrate.New(migrationPath, connStr)
		require.NoError(s.T, err)
		require.NoError(s.T, m.Up())
	}

	nsqReq := testcontainers.ContainerRequest{
		Image:        "nsqio/nsq:v1.3.0",
		ExposedPorts: []string{"4150/tcp", "4151/tcp"},
		Cmd:          []string{"/nsqd", "--broadcast-address=localhost"},
		WaitingFor:   wait.ForLog("TCP: listening on").WithStartupTimeout(60 * time.Second),
	}
	nsqC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: nsqReq,
		Started:          true,
	})
	require.NoError(s.T, err)
	s.nsqContainer = nsqC

	nsqCfg := nsq.NewConfig()
	s.NSQ, err = nsq.NewProducer(s.GetNSQAddress(), nsqCfg)
	require.NoError(s.T, err)
}

func (s *IntegrationSuite) Teardown() {
	ctx := context.Background()
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(ctx); err != nil {
			slog.Warn("failed to terminate postgres container", "error", err)
		}
	}
	if s.nsqContainer != nil {
		if err := s.nsqContainer.Terminate(ctx); err != nil {
			slog.Warn("failed to terminate nsq container", "error", err)
		}
	}
}

func (s *IntegrationSuite) GetAppConfig() *config.Config {
	ctx := context.Background()

	host, _ := s.pgContainer.Host(ctx)
	port, _ := s.pgContainer.MappedPort(ctx, "5432")
	nHost, _ := s.nsqContainer.Host(ctx)
	nPort, _ := s.nsqContainer.MappedPort(ctx, "4150")

	_, b, _, _ := runtime.Caller(0)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", filepath.Dir(b))

	return &config.Config{
		DeadLetter: config.DeadLetterConfig{
			PostgresDSN: fmt.Sprintf(
				"host=%s port=%d user=test password=test dbname=notionmirror_test sslmode=disable",
				host, port.Int()),
			MigrationPath: migrationPath,
			NSQDHost:      fmt.Sprintf("%s:%s", nHost, nPort.Port()),
		},
	}
}

func (s *IntegrationSuite) Logger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, nil))
}

func (s *IntegrationSuite) GetNSQAddress() string {
	ctx := context.Background()
	host, _ := s.nsqContainer.Host(ctx)
	port, _ := s.nsqContainer.MappedPort(ctx, "4150")
	return fmt.Sprintf("%s:%s", host, port.Port())
}

func (s *IntegrationSuite) ConsumeOne(topic string) *nsq.Message {
	var msg *nsq.Message
	var wg sync.WaitGroup
	wg.Add(1)

	cfg := nsq.NewConfig()
	consumer, err := nsq.NewConsumer(topic, "test-ch-"+topic, cfg)
	require.NoError(s.T, err)

	consumer.AddHandler(nsq.HandlerFunc(func(m *nsq.Message) error {
		msg = m
		wg.Done()
		return nil
	}))

	err = consumer.ConnectToNSQD(s.GetNSQAddress())
	require.NoError(s.T, err)
	defer consumer.Stop()

	c := make(chan struct{})
	go func() {
		defer close(c)
		wg.Wait()
	}()

	select {
	case <-c:
		return msg
	case <-time.After(5 * time.Second):
		s.T.Fatalf("timeout waiting for message on topic %s", topic)
		return nil
	}
}
