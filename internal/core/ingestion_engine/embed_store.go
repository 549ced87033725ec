package ingestion_engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/models"
)

// embedAndPersist consumes chunks, embeds them in batches and writes them to the DB.
// Each row carries the owner's user id so retrieval can be scoped per user.
func (i *DocumentIndexer) embedAndPersist(
	ctx context.Context,
	doc *models.Document,
	in <-chan chunk,
	batchSize int,
) (int, error) {
	batch := make([]chunk, 0, batchSize)
	stored := 0

	flush := func(items []chunk) error {
		if len(items) == 0 {
			return nil
		}

		texts := make([]string, len(items))
		for idx := range items {
			texts[idx] = items[idx].Text
		}

		vecs, err := i.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if len(vecs) != len(items) {
			return fmt.Errorf("embed size mismatch: got %d want %d", len(vecs), len(items))
		}

		now := nowUTC()
		rows := make([]models.DocumentChunk, len(items))
		for k := range items {
			rows[k] = models.DocumentChunk{
				ID:         uuid.NewString(),
				DocumentID: doc.ID,
				UserID:     doc.UserID,
				Text:       items[k].Text,
				Embedding:  vecs[k],
				Position:   items[k].Pos,
				TokenCount: items[k].TokenCnt,
				CreatedAt:  now,
			}
		}
		if err := i.db.InsertDocumentChunks(ctx, rows); err != nil {
			return fmt.Errorf("insert chunks: %w", err)
		}
		stored += len(rows)
		return nil
	}

	for c := range in {
		batch = append(batch, c)
		if len(batch) == batchSize {
			if err := flush(batch); err != nil {
				return stored, err
			}
			batch = batch[:0]
		}
	}
	if err := ctx.Err(); err != nil {
		return stored, err
	}
	return stored, flush(batch)
}
