package config

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/futig/rag-chat/internal/entity"
	pkgRetry "github.com/futig/rag-chat/internal/pkg/retry"
	"github.com/joho/godotenv"
)

const (
	HistoryBackendFile     = "file"
	HistoryBackendSQLite   = "sqlite"
	HistoryBackendPostgres = "postgres"

	IndexBackendMemory = "memory"
	IndexBackendQdrant = "qdrant"

	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
	ProviderMock   = "mock"
)

// Config holds the application configuration
type Config struct {
	// Server configuration
	ServerAddr string     `env:"SERVER_ADDR" envDefault:":8080"`
	HTTPCfg    HTTPConfig `envPrefix:"HTTP_"`

	// History storage
	HistoryCfg HistoryConfig `envPrefix:"HISTORY_"`

	// Database configuration (postgres history backend)
	DatabaseURL         string        `env:"DATABASE_URL"`
	MigrationsPath      string        `env:"MIGRATIONS_PATH" envDefault:"internal/repository/migrations"`
	DBMaxConns          int           `env:"DB_MAX_CONNS" envDefault:"25"`
	DBMinConns          int           `env:"DB_MIN_CONNS" envDefault:"5"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Vector index
	IndexCfg IndexConfig `envPrefix:"INDEX_"`

	// Model providers
	EmbeddingCfg EmbeddingConfig `envPrefix:"EMBEDDING_"`
	LLMCfg       LLMConfig       `envPrefix:"LLM_"`

	// Outbound proxy for model providers
	ProxyURL string `env:"PROXY_URL"`

	// Prompt templates (YAML), defaults are used when empty
	PromptsFile string `env:"PROMPTS_FILE"`
	Prompts     entity.Prompts

	// Ingestion
	IndexerCfg IndexerConfig `envPrefix:"INDEXER_"`

	// Retry policy for startup connections and ingestion
	RetryCfg pkgRetry.RetryConfig `envPrefix:"RETRY_"`

	// Logging configuration
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Mock configuration
	EnableMocks bool `env:"ENABLE_MOCKS" envDefault:"false"`

	// Telegram bot configuration (optional)
	TelegramCfg TelegramConfig `envPrefix:"TELEGRAM_"`

	// Environment (set from flag, not from env var)
	Environment string
}

type HTTPConfig struct {
	ReadTimeout       time.Duration `env:"READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout      time.Duration `env:"WRITE_TIMEOUT" envDefault:"0s"` // 0 keeps long streams open
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"60s"`
	RequestTimeout    time.Duration `env:"REQUEST_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	CORSAllowedOrigin string        `env:"CORS_ALLOWED_ORIGIN" envDefault:"*"`
	MaxBodyBytes      int64         `env:"MAX_BODY_BYTES" envDefault:"65536"`
}

type HistoryConfig struct {
	Backend      string        `env:"BACKEND" envDefault:"file"`
	Dir          string        `env:"DIR" envDefault:"./chat_data"`
	SQLitePath   string        `env:"SQLITE_PATH" envDefault:"./chat_data/history.db"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"10m"`
	CacheCleanup time.Duration `env:"CACHE_CLEANUP" envDefault:"20m"`
	// Number of turns rendered by /history in the bot
	PreviewTurns int `env:"PREVIEW_TURNS" envDefault:"6"`
}

type IndexConfig struct {
	Backend          string        `env:"BACKEND" envDefault:"memory"`
	SnapshotPath     string        `env:"SNAPSHOT_PATH" envDefault:"./db/index.json"`
	Watch            bool          `env:"WATCH" envDefault:"true"`
	WatchDebounce    time.Duration `env:"WATCH_DEBOUNCE" envDefault:"500ms"`
	TopK             int           `env:"TOP_K" envDefault:"2"`
	QdrantHost       string        `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort       int           `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantCollection string        `env:"QDRANT_COLLECTION" envDefault:"documents"`
}

type EmbeddingConfig struct {
	HTTPClientConfig
	Provider string `env:"PROVIDER" envDefault:"openai"`
	Model    string `env:"MODEL" envDefault:"text-embedding-3-small"`
	// Dimension of the mock embedder
	MockDimension int `env:"MOCK_DIMENSION" envDefault:"64"`
}

type LLMConfig struct {
	HTTPClientConfig
	Provider            string  `env:"PROVIDER" envDefault:"openai"`
	Model               string  `env:"MODEL" envDefault:"gpt-4o-mini"`
	CondenseTemperature float32 `env:"CONDENSE_TEMPERATURE" envDefault:"0.2"`
	AnswerTemperature   float32 `env:"ANSWER_TEMPERATURE" envDefault:"0.7"`
}

type HTTPClientConfig struct {
	RequestTimeout        time.Duration `env:"TIMEOUT" envDefault:"120s"`
	ConnTimeout           time.Duration `env:"CONN_TIMEOUT" envDefault:"10s"`
	KeepAlive             time.Duration `env:"KEEP_ALIVE" envDefault:"90s"`
	IdleConnTimeout       time.Duration `env:"IDLE_CONN_TIMEOUT" envDefault:"90s"`
	ResponseHeaderTimeout time.Duration `env:"RESPONSE_HEADER_TIMEOUT" envDefault:"60s"`
	Token                 string        `env:"TOKEN"`
	Url                   string        `env:"SERVICE_URL"`
}

type IndexerConfig struct {
	ChunkSize    int `env:"CHUNK_SIZE" envDefault:"500"`
	ChunkOverlap int `env:"CHUNK_OVERLAP" envDefault:"100"`
	BatchSize    int `env:"BATCH_SIZE" envDefault:"16"`
}

// TelegramConfig holds Telegram bot configuration
type TelegramConfig struct {
	BotToken           string        `env:"BOT_TOKEN"`
	UpdateTimeout      int           `env:"UPDATE_TIMEOUT" envDefault:"60"`
	RateLimitPerMinute int           `env:"RATE_LIMIT_PER_MINUTE" envDefault:"20"`
	RateLimitBurst     int           `env:"RATE_LIMIT_BURST" envDefault:"5"`
	ShutdownTimeout    int           `env:"SHUTDOWN_TIMEOUT" envDefault:"30"` // seconds
	EditInterval       time.Duration `env:"EDIT_INTERVAL" envDefault:"1s"`
}

// LoadConfig parses the -env flag and loads the configuration for it.
func LoadConfig() (*Config, error) {
	envFlag := flag.String("env", "local", "Environment to run (local, prod, or custom)")
	flag.Parse()

	return Load(*envFlag)
}

// Load reads .env.<environment> (if present) and the process environment.
func Load(environment string) (*Config, error) {
	envFile := getEnvFile(environment)
	// Try to load env file, but don't fail if it's missing.
	// In containerized/prod environments variables are usually set externally.
	if err := godotenv.Load(envFile); err != nil {
		fmt.Printf("Warning: could not load %s file (this is ok if env vars are set externally): %v\n", envFile, err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	cfg.Environment = environment

	// Validate configuration
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	prompts, err := LoadPrompts(cfg.PromptsFile)
	if err != nil {
		return nil, fmt.Errorf("load prompts: %w", err)
	}
	cfg.Prompts = prompts

	return cfg, nil
}

func validateConfig(cfg *Config) error {
	var errors []string

	switch cfg.HistoryCfg.Backend {
	case HistoryBackendFile, HistoryBackendSQLite:
	case HistoryBackendPostgres:
		if cfg.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required for the postgres history backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("HISTORY_BACKEND must be one of file, sqlite, postgres, got %q", cfg.HistoryCfg.Backend))
	}

	switch cfg.IndexCfg.Backend {
	case IndexBackendMemory, IndexBackendQdrant:
	default:
		errors = append(errors, fmt.Sprintf("INDEX_BACKEND must be memory or qdrant, got %q", cfg.IndexCfg.Backend))
	}

	if cfg.IndexCfg.TopK < 1 || cfg.IndexCfg.TopK > 100 {
		errors = append(errors, fmt.Sprintf("INDEX_TOP_K must be between 1 and 100, got %d", cfg.IndexCfg.TopK))
	}

	if !cfg.EnableMocks {
		if !isProvider(cfg.LLMCfg.Provider) {
			errors = append(errors, fmt.Sprintf("LLM_PROVIDER must be openai, ollama or mock, got %q", cfg.LLMCfg.Provider))
		}
		if !isProvider(cfg.EmbeddingCfg.Provider) {
			errors = append(errors, fmt.Sprintf("EMBEDDING_PROVIDER must be openai, ollama or mock, got %q", cfg.EmbeddingCfg.Provider))
		}
	}

	if cfg.EmbeddingCfg.MockDimension < 2 {
		errors = append(errors, fmt.Sprintf("EMBEDDING_MOCK_DIMENSION must be at least 2, got %d", cfg.EmbeddingCfg.MockDimension))
	}

	if cfg.IndexerCfg.ChunkSize < 1 {
		errors = append(errors, fmt.Sprintf("INDEXER_CHUNK_SIZE must be positive, got %d", cfg.IndexerCfg.ChunkSize))
	}

	if cfg.IndexerCfg.ChunkOverlap < 0 || cfg.IndexerCfg.ChunkOverlap >= cfg.IndexerCfg.ChunkSize {
		errors = append(errors, fmt.Sprintf("INDEXER_CHUNK_OVERLAP must be between 0 and INDEXER_CHUNK_SIZE(%d), got %d", cfg.IndexerCfg.ChunkSize, cfg.IndexerCfg.ChunkOverlap))
	}

	// Validate Telegram configuration
	if cfg.TelegramCfg.RateLimitPerMinute < 1 || cfg.TelegramCfg.RateLimitPerMinute > 60 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_PER_MINUTE must be between 1 and 60, got %d", cfg.TelegramCfg.RateLimitPerMinute))
	}

	if cfg.TelegramCfg.RateLimitBurst < 1 || cfg.TelegramCfg.RateLimitBurst > 20 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_RATE_LIMIT_BURST must be between 1 and 20, got %d", cfg.TelegramCfg.RateLimitBurst))
	}

	if cfg.TelegramCfg.ShutdownTimeout < 1 || cfg.TelegramCfg.ShutdownTimeout > 300 {
		errors = append(errors, fmt.Sprintf("TELEGRAM_SHUTDOWN_TIMEOUT must be between 1 and 300 seconds, got %d", cfg.TelegramCfg.ShutdownTimeout))
	}

	// Validate Database configuration
	if cfg.DBMaxConns < 1 || cfg.DBMaxConns > 200 {
		errors = append(errors, fmt.Sprintf("DB_MAX_CONNS must be between 1 and 200, got %d", cfg.DBMaxConns))
	}

	if cfg.DBMinConns < 0 || cfg.DBMinConns > cfg.DBMaxConns {
		errors = append(errors, fmt.Sprintf("DB_MIN_CONNS must be between 0 and DB_MAX_CONNS(%d), got %d", cfg.DBMaxConns, cfg.DBMinConns))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation errors:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

func isProvider(p string) bool {
	switch p {
	case ProviderOpenAI, ProviderOllama, ProviderMock:
		return true
	default:
		return false
	}
}

func getEnvFile(environment string) string {
	switch environment {
	case "prod", "production":
		return ".env.prod"
	case "local", "dev", "development":
		return ".env.local"
	default:
		return fmt.Sprintf(".env.%s", environment)
	}
}
