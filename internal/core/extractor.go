package core

import (
	"context"
)

// DocumentExtractor turns raw uploaded bytes into plain text.
// The contentType hint helps the extractor choose the right parsing strategy.
type DocumentExtractor interface {
	ExtractText(ctx context.Context, data []byte, contentType string) (string, error)
}
