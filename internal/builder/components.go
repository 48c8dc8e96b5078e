package builder

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/index"
	"github.com/futig/rag-chat/internal/integration/embedding"
	"github.com/futig/rag-chat/internal/integration/llm"
	"github.com/futig/rag-chat/internal/pkg/formatter"
	"github.com/futig/rag-chat/internal/pkg/logger"
	"github.com/futig/rag-chat/internal/pkg/validator"
	"github.com/futig/rag-chat/internal/repository"
	chatuc "github.com/futig/rag-chat/internal/usecase/chat"
	"go.uber.org/zap"
)

// embedder is what both the pipeline and the indexer need from an
// embedding provider.
type embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// components holds everything built from the configuration. Closers run in
// reverse order on shutdown.
type components struct {
	cfg     *config.Config
	logger  *zap.Logger
	history repository.HistoryRepository
	model   chatuc.ChatModel
	embed   embedder
	index   chatuc.VectorIndex
	memory  *index.Memory
	qdrant  *index.Qdrant
	watcher *index.Watcher
	closers []func() error
}

func loadComponents() (*components, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}

	return &components{cfg: cfg, logger: log}, nil
}

func (c *components) addCloser(fn func() error) {
	c.closers = append(c.closers, fn)
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			c.logger.Warn("failed to release resource", zap.Error(err))
		}
	}
	c.closers = nil
}

func (c *components) setupHistory(ctx context.Context) error {
	cfg := c.cfg

	var store repository.HistoryRepository
	switch cfg.HistoryCfg.Backend {
	case config.HistoryBackendFile:
		file, err := repository.NewHistoryFile(cfg.HistoryCfg.Dir)
		if err != nil {
			return fmt.Errorf("open history dir: %w", err)
		}
		store = file

	case config.HistoryBackendSQLite:
		sqlite, err := repository.NewHistorySQLite(cfg.HistoryCfg.SQLitePath)
		if err != nil {
			return fmt.Errorf("open sqlite history: %w", err)
		}
		c.addCloser(sqlite.Close)
		store = sqlite

	case config.HistoryBackendPostgres:
		pg, closePool, err := setupPostgresHistory(ctx, cfg, c.logger)
		if err != nil {
			return err
		}
		c.addCloser(closePool)
		store = pg

	default:
		return fmt.Errorf("unknown history backend %q", cfg.HistoryCfg.Backend)
	}

	if cfg.HistoryCfg.CacheTTL > 0 {
		store = repository.NewCachedHistory(store, cfg.HistoryCfg.CacheTTL, cfg.HistoryCfg.CacheCleanup)
	}

	c.history = store
	c.logger.Info("history store initialized",
		zap.String("backend", cfg.HistoryCfg.Backend),
		zap.Duration("cache_ttl", cfg.HistoryCfg.CacheTTL),
	)
	return nil
}

func (c *components) setupModels() error {
	cfg := c.cfg

	if cfg.EnableMocks || cfg.LLMCfg.Provider == config.ProviderMock {
		c.model = llm.NewMockConnector(cfg.Prompts.NoContextReply, c.logger)
	} else {
		switch cfg.LLMCfg.Provider {
		case config.ProviderOpenAI:
			c.model = llm.NewOpenAIConnector(cfg.LLMCfg, cfg.ProxyURL, c.logger)
		case config.ProviderOllama:
			conn, err := llm.NewOllamaConnector(cfg.LLMCfg, cfg.ProxyURL, c.logger)
			if err != nil {
				return fmt.Errorf("create ollama llm connector: %w", err)
			}
			c.model = conn
		}
	}

	if cfg.EnableMocks || cfg.EmbeddingCfg.Provider == config.ProviderMock {
		c.embed = embedding.NewMockConnector(cfg.EmbeddingCfg.MockDimension)
	} else {
		switch cfg.EmbeddingCfg.Provider {
		case config.ProviderOpenAI:
			c.embed = embedding.NewOpenAIConnector(cfg.EmbeddingCfg, cfg.ProxyURL, c.logger)
		case config.ProviderOllama:
			conn, err := embedding.NewOllamaConnector(cfg.EmbeddingCfg, cfg.ProxyURL, c.logger)
			if err != nil {
				return fmt.Errorf("create ollama embedding connector: %w", err)
			}
			c.embed = conn
		}
	}

	c.logger.Info("model connectors initialized",
		zap.Bool("mocks", cfg.EnableMocks),
		zap.String("llm_provider", cfg.LLMCfg.Provider),
		zap.String("embedding_model", c.embed.Model()),
	)
	return nil
}

// setupIndex opens the configured vector index for searching. A missing
// snapshot starts an empty memory index, every answer is then the
// no-context reply until the indexer writes one.
func (c *components) setupIndex(ctx context.Context) error {
	cfg := c.cfg.IndexCfg

	switch cfg.Backend {
	case config.IndexBackendMemory:
		c.memory = index.NewMemory()
		snapshot, err := index.LoadSnapshot(cfg.SnapshotPath)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			c.logger.Warn("index snapshot not found, starting with an empty index",
				zap.String("path", cfg.SnapshotPath),
			)
		case err != nil:
			return fmt.Errorf("load index snapshot: %w", err)
		default:
			if err := c.memory.Replace(snapshot); err != nil {
				return fmt.Errorf("load index snapshot: %w", err)
			}
		}

		if c.memory.Len() > 0 && c.memory.Model() != c.embed.Model() {
			c.logger.Warn("index was built with a different embedding model",
				zap.String("index_model", c.memory.Model()),
				zap.String("embedding_model", c.embed.Model()),
			)
		}

		if cfg.Watch {
			if err := ensureDir(cfg.SnapshotPath); err != nil {
				return err
			}
			watcher, err := index.NewWatcher(cfg.SnapshotPath, c.memory, cfg.WatchDebounce, c.logger)
			if err != nil {
				return fmt.Errorf("watch index snapshot: %w", err)
			}
			c.watcher = watcher
			c.addCloser(watcher.Close)
		}

		c.index = c.memory
		c.logger.Info("memory index loaded", zap.Int("chunks", c.memory.Len()))

	case config.IndexBackendQdrant:
		if err := c.setupQdrant(ctx); err != nil {
			return err
		}
		c.index = c.qdrant

	default:
		return fmt.Errorf("unknown index backend %q", cfg.Backend)
	}

	return nil
}

func (c *components) setupQdrant(ctx context.Context) error {
	cfg := c.cfg.IndexCfg

	q, err := index.NewQdrant(cfg.QdrantHost, cfg.QdrantPort, cfg.QdrantCollection)
	if err != nil {
		return err
	}
	c.addCloser(q.Close)

	if err := c.cfg.RetryCfg.Do(ctx, q.Ping); err != nil {
		return fmt.Errorf("ping qdrant: %w", err)
	}

	c.qdrant = q
	c.logger.Info("qdrant index connected",
		zap.String("host", cfg.QdrantHost),
		zap.Int("port", cfg.QdrantPort),
		zap.String("collection", cfg.QdrantCollection),
	)
	return nil
}

func (c *components) chatUsecase() *chatuc.ChatUsecase {
	cfg := c.cfg
	return chatuc.NewUsecase(
		c.history,
		c.model,
		c.embed,
		c.index,
		formatter.NewFactory(),
		validator.NewValidator(0),
		chatuc.Options{
			TopK:                cfg.IndexCfg.TopK,
			CondenseTemperature: cfg.LLMCfg.CondenseTemperature,
			AnswerTemperature:   cfg.LLMCfg.AnswerTemperature,
			Prompts:             cfg.Prompts,
		},
		c.logger,
	)
}

// pipeline builds everything the chat use case needs.
func (c *components) pipeline(ctx context.Context) (*chatuc.ChatUsecase, error) {
	if err := c.setupHistory(ctx); err != nil {
		return nil, err
	}
	if err := c.setupModels(); err != nil {
		return nil, err
	}
	if err := c.setupIndex(ctx); err != nil {
		return nil, err
	}
	return c.chatUsecase(), nil
}

func ensureDir(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot dir: %w", err)
	}
	return nil
}
