package ingest

import (
	"context"
	"fmt"
	"strconv"

	"github.com/futig/rag-chat/internal/entity"
	pkgRetry "github.com/futig/rag-chat/internal/pkg/retry"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultBatchSize   = 16
	defaultConcurrency = 4
)

// chunkNamespace makes chunk ids stable across runs, so re-indexing the same
// corpus into Qdrant overwrites points instead of duplicating them.
var chunkNamespace = uuid.MustParse("6f1d7f53-3f0c-4c55-9a53-4f3c0a4b1e7d")

type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// BatchEmbedder is implemented by providers that embed many texts per call.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Sink receives embedded chunks. Commit is called once after the last batch.
type Sink interface {
	Upsert(ctx context.Context, chunks []entity.Chunk) error
	Commit(ctx context.Context) error
}

type Stats struct {
	Documents int
	Chunks    int
	Dimension int
}

// ProgressFunc is called after each stored batch.
type ProgressFunc func(done, total int)

type Indexer struct {
	splitter  *Splitter
	embedder  Embedder
	sink      Sink
	retry     *pkgRetry.RetryConfig
	batchSize int
	progress  ProgressFunc
	logger    *zap.Logger
}

func NewIndexer(
	splitter *Splitter,
	embedder Embedder,
	sink Sink,
	retryCfg *pkgRetry.RetryConfig,
	batchSize int,
	logger *zap.Logger,
) *Indexer {
	if batchSize <= 0 {
		batchSize = defaultBatchSize
	}
	if retryCfg == nil {
		retryCfg = pkgRetry.DefaultRetryConfig()
	}
	return &Indexer{
		splitter:  splitter,
		embedder:  embedder,
		sink:      sink,
		retry:     retryCfg,
		batchSize: batchSize,
		logger:    logger,
	}
}

func (ix *Indexer) OnProgress(fn ProgressFunc) {
	ix.progress = fn
}

// Index splits, embeds and stores docs in order. A failed batch aborts the
// run before Commit, so a snapshot sink never replaces a good index with a
// partial one.
func (ix *Indexer) Index(ctx context.Context, docs []Document) (Stats, error) {
	chunks := ix.chunk(docs)
	stats := Stats{Documents: len(docs), Chunks: len(chunks)}
	if len(chunks) == 0 {
		return stats, entity.ErrEmptySnapshot
	}

	ix.logger.Info("indexing corpus",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Int("batch_size", ix.batchSize),
	)

	for start := 0; start < len(chunks); start += ix.batchSize {
		batch := chunks[start:min(start+ix.batchSize, len(chunks))]

		if err := ix.embed(ctx, batch); err != nil {
			return stats, fmt.Errorf("embed chunks %d-%d: %w", start, start+len(batch)-1, err)
		}
		if stats.Dimension == 0 {
			stats.Dimension = len(batch[0].Embedding)
		}
		if err := ix.sink.Upsert(ctx, batch); err != nil {
			return stats, fmt.Errorf("store chunks %d-%d: %w", start, start+len(batch)-1, err)
		}

		if ix.progress != nil {
			ix.progress(start+len(batch), len(chunks))
		}
	}

	if err := ix.sink.Commit(ctx); err != nil {
		return stats, fmt.Errorf("commit index: %w", err)
	}
	return stats, nil
}

func (ix *Indexer) chunk(docs []Document) []entity.Chunk {
	var chunks []entity.Chunk
	for _, doc := range docs {
		for i, text := range ix.splitter.Split(doc.Text) {
			chunks = append(chunks, entity.Chunk{
				ID:     uuid.NewSHA1(chunkNamespace, []byte(doc.Source+"#"+strconv.Itoa(i)+"#"+text)).String(),
				Text:   text,
				Source: doc.Source,
			})
		}
	}
	return chunks
}

// embed fills the Embedding of every chunk in batch, with one call per batch
// when the provider supports it and bounded parallel calls otherwise.
func (ix *Indexer) embed(ctx context.Context, batch []entity.Chunk) error {
	if be, ok := ix.embedder.(BatchEmbedder); ok {
		texts := make([]string, len(batch))
		for i, c := range batch {
			texts[i] = c.Text
		}

		var vectors [][]float32
		err := ix.retry.Do(ctx, func(ctx context.Context) error {
			var err error
			vectors, err = be.EmbedBatch(ctx, texts)
			return err
		})
		if err != nil {
			return err
		}
		if len(vectors) != len(batch) {
			return fmt.Errorf("provider returned %d embeddings for %d texts", len(vectors), len(batch))
		}
		for i := range batch {
			batch[i].Embedding = vectors[i]
		}
		return nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(defaultConcurrency)
	for i := range batch {
		g.Go(func() error {
			return ix.retry.Do(gctx, func(ctx context.Context) error {
				vector, err := ix.embedder.Embed(ctx, batch[i].Text)
				if err != nil {
					return err
				}
				batch[i].Embedding = vector
				return nil
			})
		})
	}
	return g.Wait()
}
