// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Postgres, Kafka, Redis, MinIO, Index, Search, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Minio     MinioConfig     `yaml:"minio"`
	Index     IndexConfig     `yaml:"index"`
	Corpus    CorpusConfig    `yaml:"corpus"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Search    SearchConfig    `yaml:"search"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int             `yaml:"port"`
	ReadTimeout     time.Duration   `yaml:"readTimeout"`
	WriteTimeout    time.Duration   `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration   `yaml:"shutdownTimeout"`
	CORSOrigins     []string        `yaml:"corsOrigins"`
	RateLimit       RateLimitConfig `yaml:"rateLimit"`
}

// RateLimitConfig caps requests per client IP. Zero Requests disables it.
type RateLimitConfig struct {
	Requests int           `yaml:"requests"`
	Window   time.Duration `yaml:"window"`
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

// KafkaConfig holds Kafka broker and topic settings.
type KafkaConfig struct {
	Enabled       bool        `yaml:"enabled"`
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
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

// MinioConfig holds the S3-compatible object store that serves index
// metadata and posting shards when Index.Source is "minio".
type MinioConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	Bucket    string `yaml:"bucket"`
	Prefix    string `yaml:"prefix"`
	UseSSL    bool   `yaml:"useSSL"`
}

// IndexConfig locates the prebuilt field indices. Each field lives under its
// own directory (or object prefix) holding index.json and the shard files.
type IndexConfig struct {
	Source      string        `yaml:"source"`
	DataDir     string        `yaml:"dataDir"`
	BlockSize   int64         `yaml:"blockSize"`
	LoadTimeout time.Duration `yaml:"loadTimeout"`
	Fields      IndexFields   `yaml:"fields"`
}

// IndexFields maps each searchable field to its directory name.
type IndexFields struct {
	Text       string `yaml:"text"`
	TextNoStem string `yaml:"textNoStem"`
	Title      string `yaml:"title"`
	Anchor     string `yaml:"anchor"`
}

// CorpusConfig carries the global statistics of the loaded corpus.
type CorpusConfig struct {
	TotalDocs    int64   `yaml:"totalDocs"`
	AvgDocLength float64 `yaml:"avgDocLength"`
}

// MetadataConfig selects where titles, PageRank and page views come from.
type MetadataConfig struct {
	Source        string `yaml:"source"`
	TitlesPath    string `yaml:"titlesPath"`
	PageRankPath  string `yaml:"pageRankPath"`
	PageViewsPath string `yaml:"pageViewsPath"`
}

// SearchConfig holds the ranking parameters and result limits.
type SearchConfig struct {
	MaxResults   int     `yaml:"maxResults"`
	BM25K        float64 `yaml:"bm25K"`
	BM25B        float64 `yaml:"bm25B"`
	TitleWeight  float64 `yaml:"titleWeight"`
	BodyWeight   float64 `yaml:"bodyWeight"`
	AnchorWeight float64 `yaml:"anchorWeight"`
	// Stemmer must match the algorithm the stemmed fields were written with:
	// porter or snowball.
	Stemmer      string  `yaml:"stemmer"`
}

// AnalyticsConfig sizes the search-event pipeline. Events are dropped, not
// queued, once BufferSize is reached.
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

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with sensible defaults for any
// missing values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
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

// Validate rejects configurations the searcher cannot serve with.
func (c *Config) Validate() error {
	switch c.Index.Source {
	case "local", "minio":
	default:
		return fmt.Errorf("index.source must be local or minio, got %q", c.Index.Source)
	}
	switch c.Metadata.Source {
	case "postgres", "file":
	default:
		return fmt.Errorf("metadata.source must be postgres or file, got %q", c.Metadata.Source)
	}
	if c.Index.BlockSize <= 0 {
		return fmt.Errorf("index.blockSize must be positive, got %d", c.Index.BlockSize)
	}
	if c.Corpus.TotalDocs <= 0 || c.Corpus.AvgDocLength <= 0 {
		return fmt.Errorf("corpus statistics must be positive (totalDocs=%d, avgDocLength=%g)",
			c.Corpus.TotalDocs, c.Corpus.AvgDocLength)
	}
	if c.Search.MaxResults <= 0 {
		return fmt.Errorf("search.maxResults must be positive, got %d", c.Search.MaxResults)
	}
	switch c.Search.Stemmer {
	case "porter", "snowball":
	default:
		return fmt.Errorf("search.stemmer must be porter or snowball, got %q", c.Search.Stemmer)
	}
	return nil
}

// defaultConfig returns a Config matching the corpus the shipped indices were
// built from.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
			RateLimit: RateLimitConfig{
				Requests: 0,
				Window:   time.Minute,
			},
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "wikisearch",
			User:            "wikisearch",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    5,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			Enabled:       false,
			Brokers:       []string{"localhost:9092"},
			ConsumerGroup: "wikisearch-analytics",
			Topics: KafkaTopics{
				SearchEvents: "search-events",
			},
		},
		Redis: RedisConfig{
			Enabled:  true,
			Addr:     "localhost:6379",
			Password: "",
			DB:       0,
			PoolSize: 10,
			CacheTTL: 10 * time.Minute,
		},
		Minio: MinioConfig{
			Endpoint: "localhost:9000",
			Bucket:   "wikisearch",
		},
		Index: IndexConfig{
			Source:      "local",
			DataDir:     "data/index",
			BlockSize:   1999998,
			LoadTimeout: 5 * time.Minute,
			Fields: IndexFields{
				Text:       "text",
				TextNoStem: "text_nostem",
				Title:      "title",
				Anchor:     "anchor",
			},
		},
		Corpus: CorpusConfig{
			TotalDocs:    6348910,
			AvgDocLength: 320.405,
		},
		Metadata: MetadataConfig{
			Source:        "file",
			TitlesPath:    "data/dicts/titles.jsonl",
			PageRankPath:  "data/dicts/pagerank.jsonl",
			PageViewsPath: "data/dicts/pageviews.jsonl",
		},
		Search: SearchConfig{
			MaxResults:   100,
			BM25K:        0.75,
			BM25B:        0.40,
			TitleWeight:  0.6,
			BodyWeight:   0.333,
			AnchorWeight: 0.6,
			Stemmer:      "porter",
		},
		Analytics: AnalyticsConfig{
			Enabled:          true,
			BufferSize:       10000,
			BatchSize:        100,
			FlushInterval:    5 * time.Second,
			SnapshotInterval: 0,
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

// applyEnvOverrides reads SP_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SP_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SP_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SP_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SP_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SP_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SP_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SP_KAFKA_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Kafka.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SP_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SP_REDIS_ENABLED"); v != "" {
		if enabled, err := strconv.ParseBool(v); err == nil {
			cfg.Redis.Enabled = enabled
		}
	}
	if v := os.Getenv("SP_MINIO_ENDPOINT"); v != "" {
		cfg.Minio.Endpoint = v
	}
	if v := os.Getenv("SP_MINIO_ACCESS_KEY"); v != "" {
		cfg.Minio.AccessKey = v
	}
	if v := os.Getenv("SP_MINIO_SECRET_KEY"); v != "" {
		cfg.Minio.SecretKey = v
	}
	if v := os.Getenv("SP_MINIO_BUCKET"); v != "" {
		cfg.Minio.Bucket = v
	}
	if v := os.Getenv("SP_INDEX_SOURCE"); v != "" {
		cfg.Index.Source = v
	}
	if v := os.Getenv("SP_INDEX_DATA_DIR"); v != "" {
		cfg.Index.DataDir = v
	}
	if v := os.Getenv("SP_METADATA_SOURCE"); v != "" {
		cfg.Metadata.Source = v
	}
	if v := os.Getenv("SP_SEARCH_STEMMER"); v != "" {
		cfg.Search.Stemmer = v
	}
	if v := os.Getenv("SP_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SP_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
