package ingestion_engine

import (
	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/logger"
)

// IndexConfig tunes the chunking pipeline.
//
// TargetTokens:  approximate tokens per chunk (e.g., 400).
// OverlapTokens: tokens carried from the end of one chunk into the next (e.g., 40).
// BatchSize:     how many chunks to embed and write in one call.
type IndexConfig struct {
	TargetTokens  int
	OverlapTokens int
	BatchSize     int
}

func DefaultIndexConfig() IndexConfig {
	return IndexConfig{TargetTokens: 400, OverlapTokens: 40, BatchSize: 16}
}

func (c IndexConfig) withDefaults() IndexConfig {
	d := DefaultIndexConfig()
	if c.TargetTokens <= 0 {
		c.TargetTokens = d.TargetTokens
	}
	if c.OverlapTokens < 0 || c.OverlapTokens >= c.TargetTokens {
		c.OverlapTokens = 0
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	return c
}

// chunk is the internal representation passed through the pipeline.
type chunk struct {
	Pos      int
	Text     string
	TokenCnt int
}

// DocumentIndexer splits a completed document's text into chunks, embeds them
// and stores them for conversation retrieval.
type DocumentIndexer struct {
	db       core.DbClient
	embedder core.EmbeddingProvider
	cfg      IndexConfig
	log      *logger.Logger
}

// DocconvExtractor implements core.DocumentExtractor using sajari/docconv.
type DocconvExtractor struct {
	useReadability bool
}
