package ingestion_engine

import (
	"context"
	"time"

	"github.com/markdave123-py/Auditra/internal/models"
)

// Indexer makes a completed document searchable for conversation context.
type Indexer interface {
	Index(ctx context.Context, doc *models.Document, text string) (int, error)
}

var _ Indexer = (*DocumentIndexer)(nil)

var nowUTC = func() time.Time { return time.Now().UTC() }
