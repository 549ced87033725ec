package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/markdave123-py/Auditra/internal/models"
)

func newClientWithMock(t *testing.T) (*DatabaseClient, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewDatabaseClientFromDB(db), mock
}

var documentCols = []string{"id", "user_id", "file_name", "content_type", "storage_url", "category", "status", "analysis_result", "uploaded_at", "updated_at"}

func TestGetDocumentByIDReturnsNotFound(t *testing.T) {
	client, mock := newClientWithMock(t)

	mock.ExpectQuery("SELECT id, user_id, file_name").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := client.GetDocumentByID(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionDocumentStoresResult(t *testing.T) {
	client, mock := newClientWithMock(t)
	now := time.Now()
	result := (&models.AnalysisResult{Analysis: []string{"ok"}}).Normalize()
	payload, err := json.Marshal(result)
	require.NoError(t, err)

	mock.ExpectQuery("UPDATE documents").
		WithArgs("doc-1", "processing", "completed", payload).
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow("doc-1", "u1", "a.pdf", "application/pdf", "", "tax", "completed", payload, now, now))

	doc, err := client.TransitionDocument(context.Background(), "doc-1", models.StatusProcessing, models.StatusCompleted, result)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, doc.Status)
	assert.Equal(t, models.CategoryTax, doc.Category)
	require.NotNil(t, doc.AnalysisResult)
	assert.Equal(t, []string{"ok"}, doc.AnalysisResult.Analysis)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionDocumentConflictWhenStatusMoved(t *testing.T) {
	client, mock := newClientWithMock(t)
	now := time.Now()

	mock.ExpectQuery("UPDATE documents").
		WithArgs("doc-1", "pending", "processing", nil).
		WillReturnRows(sqlmock.NewRows(documentCols))
	mock.ExpectQuery("SELECT id, user_id, file_name").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows(documentCols).
			AddRow("doc-1", "u1", "a.pdf", "application/pdf", "", "tax", "failed", nil, now, now))

	_, err := client.TransitionDocument(context.Background(), "doc-1", models.StatusPending, models.StatusProcessing, nil)
	require.Error(t, err)
	assert.True(t, models.IsKind(err, models.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTransitionDocumentRejectsBackwardMove(t *testing.T) {
	client, mock := newClientWithMock(t)

	_, err := client.TransitionDocument(context.Background(), "doc-1", models.StatusCompleted, models.StatusPending, nil)
	assert.True(t, models.IsKind(err, models.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicateEmailIsConflict(t *testing.T) {
	client, mock := newClientWithMock(t)

	mock.ExpectExec("INSERT INTO users").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := client.CreateUser(context.Background(), &models.User{ID: "u1", Email: "a@b.c"})
	assert.True(t, models.IsKind(err, models.ErrConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateMessageRollsBackForUnknownConversation(t *testing.T) {
	client, mock := newClientWithMock(t)
	ts := time.Now()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO messages").
		WithArgs("m1", "c-missing", "user", "hi", ts, nil).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE conversations").
		WithArgs("c-missing", ts).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	err := client.CreateMessage(context.Background(), &models.Message{
		ID: "m1", ConversationID: "c-missing", Sender: models.SenderUser, Content: "hi", Timestamp: ts,
	})
	assert.True(t, models.IsKind(err, models.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListActivitiesByDocumentDecodesDetails(t *testing.T) {
	client, mock := newClientWithMock(t)
	now := time.Now()

	mock.ExpectQuery("SELECT id, user_id, type, timestamp, details, related_document_id").
		WithArgs("doc-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "type", "timestamp", "details", "related_document_id"}).
			AddRow("a1", "u1", "upload", now, []byte(`{"title":"Uploaded","description":"a.pdf","status":"pending"}`), "doc-1"))

	acts, err := client.ListActivitiesByDocument(context.Background(), "doc-1")
	require.NoError(t, err)
	require.Len(t, acts, 1)
	assert.Equal(t, models.ActivityUpload, acts[0].Type)
	assert.Equal(t, "pending", acts[0].Details.Status)
	assert.Equal(t, "doc-1", acts[0].RelatedDocumentID)
	require.NoError(t, mock.ExpectationsWereMet())
}
