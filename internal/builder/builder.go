package builder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/futig/rag-chat/internal/api"
	chatapi "github.com/futig/rag-chat/internal/api/chat"
	"github.com/futig/rag-chat/internal/config"
	"github.com/futig/rag-chat/internal/index"
	"github.com/futig/rag-chat/internal/ingest"
	"github.com/futig/rag-chat/internal/telegram"
	"go.uber.org/zap"
)

func Build() (*App, error) {
	ctx := context.Background()

	c, err := loadComponents()
	if err != nil {
		return nil, err
	}
	cfg := c.cfg

	c.logger.Info("Building application",
		zap.String("environment", cfg.Environment),
		zap.String("server_addr", cfg.ServerAddr),
	)

	chatUC, err := c.pipeline(ctx)
	if err != nil {
		c.close()
		return nil, err
	}
	c.logger.Info("Use cases initialized")

	chatHandler := chatapi.NewHandler(chatUC, cfg.HTTPCfg.MaxBodyBytes)
	router := api.SetupRouter(chatHandler, cfg.HTTPCfg, c.logger)
	c.logger.Info("HTTP router configured")

	server := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  cfg.HTTPCfg.ReadTimeout,
		WriteTimeout: cfg.HTTPCfg.WriteTimeout,
		IdleTimeout:  cfg.HTTPCfg.IdleTimeout,
	}

	c.logger.Info("Application built successfully",
		zap.String("environment", cfg.Environment),
	)

	return &App{
		server:          server,
		watcher:         c.watcher,
		components:      c,
		shutdownTimeout: cfg.HTTPCfg.ShutdownTimeout,
		logger:          c.logger,
	}, nil
}

// BuildTelegramBot creates the Telegram bot over the same pipeline as the
// HTTP server. The returned cleanup releases storage and index connections.
func BuildTelegramBot() (telegram.Bot, *zap.Logger, func(), error) {
	ctx := context.Background()

	c, err := loadComponents()
	if err != nil {
		return nil, nil, nil, err
	}
	cfg := c.cfg

	c.logger.Info("Building Telegram bot",
		zap.String("environment", cfg.Environment),
	)

	if cfg.TelegramCfg.BotToken == "" {
		return nil, nil, nil, fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}

	chatUC, err := c.pipeline(ctx)
	if err != nil {
		c.close()
		return nil, nil, nil, err
	}

	bot, err := telegram.NewBot(&cfg.TelegramCfg, chatUC, cfg.HistoryCfg.PreviewTurns, c.logger)
	if err != nil {
		c.close()
		return nil, nil, nil, fmt.Errorf("initialize telegram bot: %w", err)
	}

	if c.watcher != nil {
		watchCtx, cancel := context.WithCancel(ctx)
		go c.watcher.Run(watchCtx)
		c.addCloser(func() error {
			cancel()
			return nil
		})
	}

	c.logger.Info("Telegram bot built successfully",
		zap.String("environment", cfg.Environment),
	)

	return bot, c.logger, c.close, nil
}

// Indexer turns a document corpus into the configured vector index.
type Indexer struct {
	indexer    *ingest.Indexer
	components *components
	Logger     *zap.Logger
}

// BuildIndexer wires the ingestion pipeline to the configured index: a
// snapshot file for the memory backend or the Qdrant collection.
func BuildIndexer() (*Indexer, error) {
	ctx := context.Background()

	c, err := loadComponents()
	if err != nil {
		return nil, err
	}
	cfg := c.cfg

	if err := c.setupModels(); err != nil {
		return nil, err
	}

	var sink ingest.Sink
	switch cfg.IndexCfg.Backend {
	case config.IndexBackendMemory:
		if err := ensureDir(cfg.IndexCfg.SnapshotPath); err != nil {
			return nil, err
		}
		sink = index.NewSnapshotWriter(cfg.IndexCfg.SnapshotPath, c.embed.Model())
	case config.IndexBackendQdrant:
		if err := c.setupQdrant(ctx); err != nil {
			c.close()
			return nil, err
		}
		sink = c.qdrant
	default:
		return nil, fmt.Errorf("unknown index backend %q", cfg.IndexCfg.Backend)
	}

	splitter := ingest.NewSplitter(cfg.IndexerCfg.ChunkSize, cfg.IndexerCfg.ChunkOverlap)
	retryCfg := cfg.RetryCfg

	return &Indexer{
		indexer:    ingest.NewIndexer(splitter, c.embed, sink, &retryCfg, cfg.IndexerCfg.BatchSize, c.logger),
		components: c,
		Logger:     c.logger,
	}, nil
}

// Run loads the documents under paths and indexes them. progress may be nil.
func (ix *Indexer) Run(ctx context.Context, paths []string, progress ingest.ProgressFunc) (ingest.Stats, error) {
	docs, err := ingest.LoadDocuments(paths...)
	if err != nil {
		return ingest.Stats{}, err
	}
	ix.Logger.Info("documents loaded", zap.Int("documents", len(docs)))

	if progress != nil {
		ix.indexer.OnProgress(progress)
	}
	return ix.indexer.Index(ctx, docs)
}

func (ix *Indexer) Close() {
	ix.components.close()
}
