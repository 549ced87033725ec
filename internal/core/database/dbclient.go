package db

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/models"
)

var (
	_ core.DbClient = (*DatabaseClient)(nil)
	_ core.DbClient = (*MemoryClient)(nil)
)

var nowUTC = func() time.Time { return time.Now().UTC() }

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

const documentColumns = `id, user_id, file_name, content_type, storage_url, category, status, analysis_result, uploaded_at, updated_at`

func scanDocument(row rowScanner) (*models.Document, error) {
	var (
		d      models.Document
		result []byte
	)
	if err := row.Scan(
		&d.ID, &d.UserID, &d.FileName, &d.ContentType, &d.StorageURL,
		&d.Category, &d.Status, &result, &d.UploadedAt, &d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(result) > 0 {
		var r models.AnalysisResult
		if err := json.Unmarshal(result, &r); err != nil {
			return nil, fmt.Errorf("decode analysis_result for %s: %w", d.ID, err)
		}
		d.AnalysisResult = r.Normalize()
	}
	return &d, nil
}

const activityColumns = `id, user_id, type, timestamp, details, related_document_id`

func scanActivity(row rowScanner) (*models.Activity, error) {
	var (
		a       models.Activity
		details []byte
		related sql.NullString
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.Type, &a.Timestamp, &details, &related); err != nil {
		return nil, err
	}
	if len(details) > 0 {
		if err := json.Unmarshal(details, &a.Details); err != nil {
			return nil, fmt.Errorf("decode activity details for %s: %w", a.ID, err)
		}
	}
	a.RelatedDocumentID = related.String
	return &a, nil
}

func scanMessage(row rowScanner) (*models.Message, error) {
	var (
		m         models.Message
		reasoning []byte
	)
	if err := row.Scan(&m.ID, &m.ConversationID, &m.Sender, &m.Content, &m.Timestamp, &reasoning); err != nil {
		return nil, err
	}
	if len(reasoning) > 0 {
		if err := json.Unmarshal(reasoning, &m.ReasoningLog); err != nil {
			return nil, fmt.Errorf("decode reasoning_log for %s: %w", m.ID, err)
		}
	}
	return &m, nil
}

// jsonOrNull encodes v, mapping nil pointers and empty logs to SQL NULL.
func jsonOrNull(v any) (any, error) {
	switch t := v.(type) {
	case *models.AnalysisResult:
		if t == nil {
			return nil, nil
		}
	case []models.ReasoningStep:
		if len(t) == 0 {
			return nil, nil
		}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return b, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func notFound(op string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return models.WrapError(models.ErrNotFound, op, err)
	}
	return err
}
