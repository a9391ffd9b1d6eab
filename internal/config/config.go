// Package config loads the mirror's startup configuration from defaults,
// optional TOML/YAML files, and an environment overlay, in that precedence
// order (last writer wins).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

var ErrMissingRequired = errors.New("missing required configuration")

type NotionConfig struct {
	APIKey string `toml:"api_key" yaml:"api_key" envconfig:"API_KEY"`
}

type WebhookConfig struct {
	Host          string `toml:"host" yaml:"host" envconfig:"HOST"`
	Port          int    `toml:"port" yaml:"port" envconfig:"PORT"`
	Secret        string `toml:"secret" yaml:"secret" envconfig:"SECRET"`
	MaxAgeSeconds int64  `toml:"max_age_seconds" yaml:"max_age_seconds" envconfig:"MAX_AGE_SECONDS"`
}

type SyncConfig struct {
	IntervalSeconds     uint64 `toml:"interval_seconds" yaml:"interval_seconds" envconfig:"INTERVAL_SECONDS"`
	DeadLetterThreshold int    `toml:"dead_letter_threshold" yaml:"dead_letter_threshold" envconfig:"DEAD_LETTER_THRESHOLD"`
}

type QueueConfig struct {
	Name     string `toml:"name" yaml:"name" envconfig:"NAME"`
	RedisURL string `toml:"redis_url" yaml:"redis_url" envconfig:"REDIS_URL"`
}

// DeadLetterConfig wires the supplemented ledger's own Postgres/NSQ
// backing, independent of the sync pipeline's queue.
type DeadLetterConfig struct {
	PostgresDSN   string `toml:"postgres_dsn" yaml:"postgres_dsn" envconfig:"POSTGRES_DSN"`
	MigrationPath string `toml:"migration_path" yaml:"migration_path" envconfig:"MIGRATION_PATH"`
	NSQDHost      string `toml:"nsqd_host" yaml:"nsqd_host" envconfig:"NSQD_HOST"`
}

// StorageConfig is one entry of a database's `storage` list. Settings holds
// every key besides `type`; ObjectStoreAdapter coerces those to strings.
type StorageConfig struct {
	Type     string
	Settings map[string]any
}

func (s *StorageConfig) fromRaw(raw map[string]any) {
	s.Settings = make(map[string]any, len(raw))
	for k, v := range raw {
		if k == "type" {
			if t, ok := v.(string); ok {
				s.Type = t
			}
			continue
		}
		s.Settings[k] = v
	}
}

type PropertiesFilter struct {
	Includes []string `toml:"includes" yaml:"includes"`
}

type PropertiesConfig struct {
	Map    map[string]string `toml:"map" yaml:"map"`
	Filter PropertiesFilter  `toml:"filter" yaml:"filter"`
}

// DatabaseConfig binds one upstream database id to a backend and a
// property-mapping policy.
type DatabaseConfig struct {
	ID         string
	Storage    []StorageConfig
	KeyMap     map[string]string
	Properties PropertiesConfig
}

// rawDatabase mirrors DatabaseConfig's file-decoded shape: `storage` entries
// are loosely typed maps since backend settings vary by scheme.
type rawDatabase struct {
	ID         string            `toml:"id" yaml:"id"`
	Storage    []map[string]any  `toml:"storage" yaml:"storage"`
	KeyMap     map[string]string `toml:"key_map" yaml:"key_map"`
	Properties PropertiesConfig  `toml:"properties" yaml:"properties"`
}

func (d *DatabaseConfig) fromRaw(r rawDatabase) {
	if r.ID != "" {
		d.ID = r.ID
	}
	if len(r.Storage) > 0 {
		d.Storage = make([]StorageConfig, len(r.Storage))
		for i, raw := range r.Storage {
			d.Storage[i].fromRaw(raw)
		}
	}
	if len(r.KeyMap) > 0 {
		d.KeyMap = r.KeyMap
	}
	if len(r.Properties.Map) > 0 {
		d.Properties.Map = r.Properties.Map
	}
	if len(r.Properties.Filter.Includes) > 0 {
		d.Properties.Filter.Includes = r.Properties.Filter.Includes
	}
}

// PropertyMap resolves the effective property-name translation: the
// `properties.map` table overrides `key_map` when non-empty, per spec §6.
func (d *DatabaseConfig) PropertyMap() map[string]string {
	if len(d.Properties.Map) > 0 {
		return d.Properties.Map
	}
	return d.KeyMap
}

type Config struct {
	Notion     NotionConfig
	Webhook    WebhookConfig
	Sync       SyncConfig
	Queue      QueueConfig
	DeadLetter DeadLetterConfig
	Database   map[string]DatabaseConfig
}

type fileShape struct {
	Notion     NotionConfig           `toml:"notion" yaml:"notion"`
	Webhook    WebhookConfig          `toml:"webhook" yaml:"webhook"`
	Sync       SyncConfig             `toml:"sync" yaml:"sync"`
	Queue      QueueConfig            `toml:"queue" yaml:"queue"`
	DeadLetter DeadLetterConfig       `toml:"dead_letter" yaml:"dead_letter"`
	Database   map[string]rawDatabase `toml:"database" yaml:"database"`
}

func defaults() *Config {
	return &Config{
		Webhook: WebhookConfig{
			Host:          "0.0.0.0",
			Port:          3000,
			MaxAgeSeconds: 300,
		},
		Sync: SyncConfig{
			DeadLetterThreshold: 5,
		},
		Queue: QueueConfig{
			Name: "notionmirror",
		},
		DeadLetter: DeadLetterConfig{
			MigrationPath: "file://migrations",
			NSQDHost:      "127.0.0.1:4150",
		},
		Database: map[string]DatabaseConfig{},
	}
}

// Load reads defaults, overlays any existing config files in order, then
// applies the environment, and validates the result. A missing file is not
// an error; a malformed one is.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	for _, path := range files {
		if err := mergeFile(cfg, path); err != nil {
			return nil, err
		}
	}
	if err := mergeEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file %s: %w", path, err)
	}

	var shape fileShape
	switch {
	case strings.HasSuffix(path, ".toml"):
		if _, err := toml.Decode(string(data), &shape); err != nil {
			return fmt.Errorf("parsing TOML config %s: %w", path, err)
		}
	case strings.HasSuffix(path, ".yaml"), strings.HasSuffix(path, ".yml"):
		if err := yaml.Unmarshal(data, &shape); err != nil {
			return fmt.Errorf("parsing YAML config %s: %w", path, err)
		}
	default:
		return fmt.Errorf("unsupported config file extension: %s", path)
	}

	applyFileShape(cfg, shape)
	return nil
}

func applyFileShape(cfg *Config, shape fileShape) {
	if shape.Notion.APIKey != "" {
		cfg.Notion.APIKey = shape.Notion.APIKey
	}
	if shape.Webhook.Host != "" {
		cfg.Webhook.Host = shape.Webhook.Host
	}
	if shape.Webhook.Port != 0 {
		cfg.Webhook.Port = shape.Webhook.Port
	}
	if shape.Webhook.Secret != "" {
		cfg.Webhook.Secret = shape.Webhook.Secret
	}
	if shape.Webhook.MaxAgeSeconds != 0 {
		cfg.Webhook.MaxAgeSeconds = shape.Webhook.MaxAgeSeconds
	}
	if shape.Sync.IntervalSeconds != 0 {
		cfg.Sync.IntervalSeconds = shape.Sync.IntervalSeconds
	}
	if shape.Sync.DeadLetterThreshold != 0 {
		cfg.Sync.DeadLetterThreshold = shape.Sync.DeadLetterThreshold
	}
	if shape.Queue.Name != "" {
		cfg.Queue.Name = shape.Queue.Name
	}
	if shape.Queue.RedisURL != "" {
		cfg.Queue.RedisURL = shape.Queue.RedisURL
	}
	if shape.DeadLetter.PostgresDSN != "" {
		cfg.DeadLetter.PostgresDSN = shape.DeadLetter.PostgresDSN
	}
	if shape.DeadLetter.MigrationPath != "" {
		cfg.DeadLetter.MigrationPath = shape.DeadLetter.MigrationPath
	}
	if shape.DeadLetter.NSQDHost != "" {
		cfg.DeadLetter.NSQDHost = shape.DeadLetter.NSQDHost
	}
	for key, raw := range shape.Database {
		db := cfg.Database[key]
		db.fromRaw(raw)
		cfg.Database[key] = db
	}
}

// mergeEnv applies the `__`-delimited environment overlay. envconfig's
// native delimiter is a single underscore, so double-underscore variables
// are translated to single-underscore ones before each section is
// processed. The dynamic `database.*` table is left to file-based
// configuration rather than reconstructed from flat env vars — see
// DESIGN.md.
func mergeEnv(cfg *Config) error {
	for _, kv := range os.Environ() {
		parts := strings.SplitN(kv, "=", 2)
		if len(parts) != 2 || !strings.Contains(parts[0], "__") {
			continue
		}
		collapsed := strings.ReplaceAll(parts[0], "__", "_")
		if _, exists := os.LookupEnv(collapsed); !exists {
			_ = os.Setenv(collapsed, parts[1])
		}
	}

	if err := envconfig.Process("NOTION", &cfg.Notion); err != nil {
		return fmt.Errorf("loading notion env config: %w", err)
	}
	if err := envconfig.Process("WEBHOOK", &cfg.Webhook); err != nil {
		return fmt.Errorf("loading webhook env config: %w", err)
	}
	if err := envconfig.Process("SYNC", &cfg.Sync); err != nil {
		return fmt.Errorf("loading sync env config: %w", err)
	}
	if err := envconfig.Process("QUEUE", &cfg.Queue); err != nil {
		return fmt.Errorf("loading queue env config: %w", err)
	}
	if err := envconfig.Process("DEADLETTER", &cfg.DeadLetter); err != nil {
		return fmt.Errorf("loading dead_letter env config: %w", err)
	}
	return nil
}

func (c *Config) Validate() error {
	if c.Notion.APIKey == "" {
		return fmt.Errorf("%w: notion.api_key", ErrMissingRequired)
	}
	if len(c.Database) == 0 {
		return fmt.Errorf("%w: at least one database.* binding", ErrMissingRequired)
	}
	for name, db := range c.Database {
		if db.ID == "" {
			return fmt.Errorf("%w: database.%s.id", ErrMissingRequired, name)
		}
		if len(db.Storage) == 0 {
			return fmt.Errorf("%w: database.%s.storage", ErrMissingRequired, name)
		}
	}
	return nil
}

// CoerceSettings stringifies storage settings values per §4.4: strings pass
// through, numbers/bools stringify, anything else is dropped.
func CoerceSettings(settings map[string]any) map[string]string {
	out := make(map[string]string, len(settings))
	for k, v := range settings {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case int64:
			out[k] = strconv.FormatInt(val, 10)
		case float64:
			out[k] = strconv.FormatFloat(val, 'f', -1, 64)
		}
	}
	return out
}
