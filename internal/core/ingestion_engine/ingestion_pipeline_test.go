package ingestion_engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	db "github.com/markdave123-py/Auditra/internal/core/database"
	"github.com/markdave123-py/Auditra/internal/models"
)

type fakeEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
}

func (f *fakeEmbedder) EmbedTexts(_ context.Context, texts []string) ([][]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func TestIndexStoresChunksForOwner(t *testing.T) {
	store := db.NewMemoryClient()
	emb := &fakeEmbedder{}
	idx := NewDocumentIndexer(store, emb, IndexConfig{TargetTokens: 10, BatchSize: 2}, nil)

	var lines []string
	for n := 0; n < 10; n++ {
		lines = append(lines, fmt.Sprintf("line %02d with some words here", n))
	}
	doc := &models.Document{ID: "d1", UserID: "u1"}

	n, err := idx.Index(context.Background(), doc, strings.Join(lines, "\n\n"))
	require.NoError(t, err)
	assert.Equal(t, 5, n) // two 7-token lines per chunk
	assert.Equal(t, 3, emb.calls)

	got, err := store.SearchUserChunks(context.Background(), "u1", []float32{0, 0}, 100)
	require.NoError(t, err)
	require.Len(t, got, 5)
	for _, c := range got {
		assert.Equal(t, "d1", c.DocumentID)
		assert.NotEmpty(t, c.ID)
	}

	other, err := store.SearchUserChunks(context.Background(), "u2", []float32{0, 0}, 100)
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestIndexEmptyTextIsNoop(t *testing.T) {
	emb := &fakeEmbedder{}
	idx := NewDocumentIndexer(db.NewMemoryClient(), emb, IndexConfig{}, nil)

	n, err := idx.Index(context.Background(), &models.Document{ID: "d1", UserID: "u1"}, "  \n ")
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Zero(t, emb.calls)
}

func TestIndexPropagatesEmbedError(t *testing.T) {
	idx := NewDocumentIndexer(db.NewMemoryClient(), &fakeEmbedder{err: errors.New("quota")}, IndexConfig{TargetTokens: 5, BatchSize: 1}, nil)

	text := strings.Repeat("a fairly long line of text\n", 50)
	_, err := idx.Index(context.Background(), &models.Document{ID: "d1", UserID: "u1"}, text)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quota")
}

func TestStreamChunkOverlapDoesNotReemitTail(t *testing.T) {
	idx := NewDocumentIndexer(nil, nil, IndexConfig{}, nil)
	ctx := context.Background()
	g, gctx := errgroupFor(ctx)

	frags := make(chan string, 3)
	frags <- "aaaaaaaa" // 2 tokens
	frags <- "bbbbbbbb"
	frags <- "cccccccc"
	close(frags)

	out := idx.streamChunk(gctx, g, frags, 4, 2)
	var chunks []chunk
	for c := range out {
		chunks = append(chunks, c)
	}
	require.NoError(t, g.Wait())
	require.Len(t, chunks, 2)
	assert.Equal(t, "aaaaaaaa\nbbbbbbbb", chunks[0].Text)
	assert.Equal(t, "bbbbbbbb\ncccccccc", chunks[1].Text)
	assert.Equal(t, 1, chunks[1].Pos)
}

func TestExtractTextPlainPassthrough(t *testing.T) {
	e := NewDocconvExtractor(false)
	got, err := e.ExtractText(context.Background(), []byte("hello\nworld"), "text/plain; charset=utf-8")
	require.NoError(t, err)
	assert.Equal(t, "hello\nworld", got)

	got, err = e.ExtractText(context.Background(), nil, "application/pdf")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func errgroupFor(ctx context.Context) (*errgroup.Group, context.Context) {
	return errgroup.WithContext(ctx)
}
