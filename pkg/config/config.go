// Package config loads application configuration from YAML or TOML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Source, Postgres, Redis, Kafka, Index, Search, etc.).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Source    SourceConfig    `yaml:"source"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Firestore FirestoreConfig `yaml:"firestore"`
	Redis     RedisConfig     `yaml:"redis"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Index     IndexConfig     `yaml:"index"`
	Search    SearchConfig    `yaml:"search"`
	Presenter PresenterConfig `yaml:"presenter"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Tracing   TracingConfig   `yaml:"tracing"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings. RateLimit is requests per minute
// per client IP; 0 disables limiting.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	AllowOrigins    []string      `yaml:"allowOrigins"`
	RateLimit       int           `yaml:"rateLimit"`
}

// Source kinds accepted by SourceConfig.Kind.
const (
	SourceEmbedded  = "embedded"
	SourceFile      = "file"
	SourceHTTP      = "http"
	SourcePostgres  = "postgres"
	SourceFirestore = "firestore"
)

// SourceConfig selects where the quote collection is loaded from.
type SourceConfig struct {
	Kind          string        `yaml:"kind"`
	Path          string        `yaml:"path"`
	Watch         bool          `yaml:"watch"`
	WatchDebounce time.Duration `yaml:"watchDebounce"`
	URL           string        `yaml:"url"`
	FetchTimeout  time.Duration `yaml:"fetchTimeout"`
	RetryAttempts int           `yaml:"retryAttempts"`
	RetryDelay    time.Duration `yaml:"retryDelay"`
	BreakerErrors int           `yaml:"breakerErrors"`
	BreakerReset  time.Duration `yaml:"breakerReset"`
	Table         string        `yaml:"table"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// FirestoreConfig names the project and collection holding quote documents.
type FirestoreConfig struct {
	ProjectID  string `yaml:"projectId"`
	Collection string `yaml:"collection"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	QuotesUpdated   string `yaml:"quotesUpdated"`
	AnalyticsEvents string `yaml:"analyticsEvents"`
}

// IndexConfig selects the search backend used by the index builder.
type IndexConfig struct {
	Backend string `yaml:"backend"`
}

// SearchConfig controls query execution limits.
type SearchConfig struct {
	RecentLimit  int           `yaml:"recentLimit"`
	MaxResults   int           `yaml:"maxResults"`
	QueryTimeout time.Duration `yaml:"queryTimeout"`
}

// PresenterConfig controls how upload instants are rendered for display.
type PresenterConfig struct {
	DateLayout string `yaml:"dateLayout"`
	TimeZone   string `yaml:"timeZone"`
}

// AnalyticsConfig controls search and load event collection. With Kafka
// enabled events are batched to the analytics topic; otherwise they are
// aggregated in process. SnapshotInterval > 0 persists aggregated stats to
// Postgres.
type AnalyticsConfig struct {
	Enabled          bool          `yaml:"enabled"`
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// TracingConfig toggles span logging for loads and queries.
type TracingConfig struct {
	Enabled bool `yaml:"enabled"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML or TOML config file (if provided) and applies
// environment-variable overrides. Files ending in .toml are decoded as TOML;
// everything else is treated as YAML.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if strings.EqualFold(filepath.Ext(path), ".toml") {
			data, err = tomlToYAML(data)
			if err != nil {
				return nil, fmt.Errorf("parsing config file %s: %w", path, err)
			}
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// tomlToYAML re-encodes a TOML document as YAML so both formats share the
// same struct tags and duration parsing.
func tomlToYAML(data []byte) ([]byte, error) {
	var doc map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	return yaml.Marshal(doc)
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch c.Source.Kind {
	case SourceEmbedded, SourceFile, SourceHTTP, SourcePostgres, SourceFirestore:
	default:
		return fmt.Errorf("unknown source kind %q", c.Source.Kind)
	}
	if c.Source.Kind == SourceFile && c.Source.Path == "" {
		return fmt.Errorf("source.path is required for the file source")
	}
	if c.Source.Kind == SourceHTTP && c.Source.URL == "" {
		return fmt.Errorf("source.url is required for the http source")
	}
	if c.Source.Kind == SourceFirestore && c.Firestore.ProjectID == "" {
		return fmt.Errorf("firestore.projectId is required for the firestore source")
	}
	switch c.Index.Backend {
	case "bleve", "native":
	default:
		return fmt.Errorf("unknown index backend %q", c.Index.Backend)
	}
	if c.Search.RecentLimit <= 0 {
		return fmt.Errorf("search.recentLimit must be positive")
	}
	if _, err := time.LoadLocation(c.Presenter.TimeZone); err != nil {
		return fmt.Errorf("presenter.timeZone: %w", err)
	}
	return nil
}

// defaultConfig returns a Config with defaults suited to local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			AllowOrigins:    []string{"*"},
		},
		Source: SourceConfig{
			Kind:          SourceEmbedded,
			WatchDebounce: 250 * time.Millisecond,
			FetchTimeout:  10 * time.Second,
			RetryAttempts: 3,
			RetryDelay:    200 * time.Millisecond,
			BreakerErrors: 5,
			BreakerReset:  30 * time.Second,
			Table:         "quotes",
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "quotesearch",
			User:            "quotesearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Firestore: FirestoreConfig{
			Collection: "quotes",
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "quotesearch",
			Topics: KafkaTopics{
				QuotesUpdated:   "quotes.updated",
				AnalyticsEvents: "quotes.analytics",
			},
		},
		Index: IndexConfig{
			Backend: "bleve",
		},
		Search: SearchConfig{
			RecentLimit:  10,
			MaxResults:   100,
			QueryTimeout: 5 * time.Second,
		},
		Presenter: PresenterConfig{
			DateLayout: "Jan 2, 2006",
			TimeZone:   "UTC",
		},
		Analytics: AnalyticsConfig{
			Enabled:       true,
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads QS_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("QS_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("QS_SOURCE_KIND"); v != "" {
		cfg.Source.Kind = v
	}
	if v := os.Getenv("QS_SOURCE_PATH"); v != "" {
		cfg.Source.Path = v
	}
	if v := os.Getenv("QS_SOURCE_URL"); v != "" {
		cfg.Source.URL = v
	}
	if v := os.Getenv("QS_SOURCE_WATCH"); v != "" {
		if watch, err := strconv.ParseBool(v); err == nil {
			cfg.Source.Watch = watch
		}
	}
	if v := os.Getenv("QS_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("QS_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("QS_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("QS_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("QS_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("QS_FIRESTORE_PROJECT"); v != "" {
		cfg.Firestore.ProjectID = v
	}
	if v := os.Getenv("QS_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
		cfg.Redis.Enabled = true
	}
	if v := os.Getenv("QS_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("QS_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
		cfg.Kafka.Enabled = true
	}
	if v := os.Getenv("QS_INDEX_BACKEND"); v != "" {
		cfg.Index.Backend = v
	}
	if v := os.Getenv("QS_PRESENTER_TIMEZONE"); v != "" {
		cfg.Presenter.TimeZone = v
	}
	if v := os.Getenv("QS_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("QS_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
