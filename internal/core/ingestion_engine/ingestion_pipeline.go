package ingestion_engine

import (
	"context"
	"errors"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

func NewDocumentIndexer(db core.DbClient, emb core.EmbeddingProvider, cfg IndexConfig, log *logger.Logger) *DocumentIndexer {
	return &DocumentIndexer{
		db:       db,
		embedder: emb,
		cfg:      cfg.withDefaults(),
		log:      logger.OrNop(log).With("component", "indexer"),
	}
}

// Index runs fragments -> chunks -> embed+persist for one document and returns the
// number of chunks stored. Any stage error cancels the others.
func (i *DocumentIndexer) Index(ctx context.Context, doc *models.Document, text string) (int, error) {
	if doc == nil {
		return 0, errors.New("index: nil document")
	}
	if strings.TrimSpace(text) == "" {
		return 0, nil
	}

	g, gctx := errgroup.WithContext(ctx)

	fragCh := fragments(gctx, g, text)
	chunkCh := i.streamChunk(gctx, g, fragCh, i.cfg.TargetTokens, i.cfg.OverlapTokens)

	var stored int
	g.Go(func() error {
		n, err := i.embedAndPersist(gctx, doc, chunkCh, i.cfg.BatchSize)
		stored = n
		return err
	})

	if err := g.Wait(); err != nil {
		return stored, err
	}
	i.log.Debug("document indexed", "document_id", doc.ID, "chunks", stored)
	return stored, nil
}

// fragments emits the non-empty lines of text.
func fragments(ctx context.Context, g *errgroup.Group, text string) <-chan string {
	out := make(chan string, 32)
	g.Go(func() error {
		defer close(out)
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line == "" {
				continue
			}
			select {
			case out <- line:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})
	return out
}
