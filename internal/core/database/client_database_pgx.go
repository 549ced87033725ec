package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pgvector/pgvector-go"

	"github.com/markdave123-py/Auditra/internal/config"
	"github.com/markdave123-py/Auditra/internal/models"
)

type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, cfg *config.Config) (*DatabaseClient, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database client configuration is nil")
	}
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	dsn := cfg.DatabaseURL
	if cfg.SslCertPath != "" {
		if _, err := os.Stat(cfg.SslCertPath); err != nil {
			return nil, fmt.Errorf("ssl cert not accessible at %q: %w", cfg.SslCertPath, err)
		}
		u, err := url.Parse(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid DATABASE_URL: %w", err)
		}
		q := u.Query()
		q.Set("sslmode", "verify-ca")
		q.Set("sslrootcert", cfg.SslCertPath)
		u.RawQuery = q.Encode()
		dsn = u.String()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

// NewDatabaseClientFromDB wraps an existing handle without bootstrapping.
func NewDatabaseClientFromDB(db *sql.DB) *DatabaseClient {
	return &DatabaseClient{db: db}
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Users

func (c *DatabaseClient) CreateUser(ctx context.Context, user *models.User) error {
	if user == nil {
		return errors.New("nil user")
	}
	const q = `
		INSERT INTO users (id, first_name, last_name, email, password_hash, jurisdiction, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (email) DO NOTHING
	`
	res, err := c.db.ExecContext(ctx, q,
		user.ID, user.FirstName, user.LastName, user.Email, user.PasswordHash, user.Jurisdiction, user.CreatedAt, user.UpdatedAt)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.WrapError(models.ErrConflict, "create user", fmt.Errorf("email %s already registered", user.Email))
	}
	return nil
}

const userColumns = `id, first_name, last_name, email, password_hash, jurisdiction, created_at, updated_at`

func (c *DatabaseClient) getUser(ctx context.Context, where string, arg any) (*models.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE ` + where
	var u models.User
	err := c.db.QueryRowContext(ctx, q, arg).Scan(
		&u.ID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordHash, &u.Jurisdiction, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, notFound("get user", err)
	}
	return &u, nil
}

func (c *DatabaseClient) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return c.getUser(ctx, "email = $1", email)
}

func (c *DatabaseClient) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return c.getUser(ctx, "id = $1", id)
}

func (c *DatabaseClient) UpdateUserProfile(ctx context.Context, user *models.User) error {
	const q = `
		UPDATE users
		SET first_name = $2, last_name = $3, jurisdiction = $4, updated_at = now()
		WHERE id = $1
	`
	res, err := c.db.ExecContext(ctx, q, user.ID, user.FirstName, user.LastName, user.Jurisdiction)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.WrapError(models.ErrNotFound, "update user", fmt.Errorf("user %s", user.ID))
	}
	return nil
}

// Documents

func (c *DatabaseClient) CreateDocument(ctx context.Context, doc *models.Document) error {
	if doc == nil {
		return errors.New("nil document")
	}
	const q = `
		INSERT INTO documents
			(id, user_id, file_name, content_type, storage_url, category, status, uploaded_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := c.db.ExecContext(ctx, q,
		doc.ID, doc.UserID, doc.FileName, doc.ContentType, doc.StorageURL,
		string(doc.Category), string(doc.Status), doc.UploadedAt, doc.UpdatedAt)
	return err
}

func (c *DatabaseClient) GetDocumentByID(ctx context.Context, id string) (*models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, id))
	if err != nil {
		return nil, notFound("get document", err)
	}
	return d, nil
}

func (c *DatabaseClient) ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error) {
	q := `SELECT ` + documentColumns + ` FROM documents WHERE user_id = $1 ORDER BY uploaded_at DESC`
	return c.queryDocuments(ctx, q, userID)
}

func (c *DatabaseClient) ListDocumentsByStatus(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	q := `SELECT ` + documentColumns + ` FROM documents WHERE status = ANY($1) ORDER BY uploaded_at ASC`
	return c.queryDocuments(ctx, q, values)
}

func (c *DatabaseClient) queryDocuments(ctx context.Context, q string, args ...any) ([]models.Document, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Document{}
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *d)
	}
	return out, rows.Err()
}

func (c *DatabaseClient) TransitionDocument(ctx context.Context, id string, from, to models.DocumentStatus, result *models.AnalysisResult) (*models.Document, error) {
	if !from.CanTransitionTo(to) {
		return nil, models.WrapError(models.ErrConflict, "transition document", fmt.Errorf("%s -> %s not allowed", from, to))
	}
	payload, err := jsonOrNull(result)
	if err != nil {
		return nil, fmt.Errorf("encode analysis_result: %w", err)
	}
	q := `
		UPDATE documents
		SET status = $3, analysis_result = $4, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING ` + documentColumns
	d, err := scanDocument(c.db.QueryRowContext(ctx, q, id, string(from), string(to), payload))
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, err
	}
	if _, getErr := c.GetDocumentByID(ctx, id); getErr != nil {
		return nil, getErr
	}
	return nil, models.WrapError(models.ErrConflict, "transition document", fmt.Errorf("%s is no longer %s", id, from))
}

// Activities

func (c *DatabaseClient) CreateActivity(ctx context.Context, a *models.Activity) error {
	details, err := jsonOrNull(a.Details)
	if err != nil {
		return fmt.Errorf("encode activity details: %w", err)
	}
	const q = `
		INSERT INTO activities (id, user_id, type, timestamp, details, related_document_id)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	_, err = c.db.ExecContext(ctx, q, a.ID, a.UserID, string(a.Type), a.Timestamp, details, nullString(a.RelatedDocumentID))
	return err
}

func (c *DatabaseClient) ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]models.Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = $1 ORDER BY timestamp DESC LIMIT $2`
	return c.queryActivities(ctx, q, userID, limit)
}

func (c *DatabaseClient) ListActivitiesByDocument(ctx context.Context, documentID string) ([]models.Activity, error) {
	q := `SELECT ` + activityColumns + ` FROM activities WHERE related_document_id = $1 ORDER BY timestamp ASC`
	return c.queryActivities(ctx, q, documentID)
}

func (c *DatabaseClient) queryActivities(ctx context.Context, q string, args ...any) ([]models.Activity, error) {
	rows, err := c.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// Conversations

const conversationColumns = `id, user_id, started_at, last_message_at, closed`

func (c *DatabaseClient) EnsureActiveConversation(ctx context.Context, candidate *models.Conversation) (*models.Conversation, error) {
	// conversations_one_open_idx turns a concurrent second insert into a no-op.
	const ins = `
		INSERT INTO conversations (id, user_id, started_at, last_message_at, closed)
		VALUES ($1, $2, $3, $4, false)
		ON CONFLICT DO NOTHING
	`
	if _, err := c.db.ExecContext(ctx, ins, candidate.ID, candidate.UserID, candidate.StartedAt, candidate.LastMessageAt); err != nil {
		return nil, err
	}
	q := `SELECT ` + conversationColumns + ` FROM conversations WHERE user_id = $1 AND NOT closed`
	var conv models.Conversation
	if err := c.db.QueryRowContext(ctx, q, candidate.UserID).Scan(
		&conv.ID, &conv.UserID, &conv.StartedAt, &conv.LastMessageAt, &conv.Closed,
	); err != nil {
		return nil, notFound("ensure conversation", err)
	}
	return &conv, nil
}

func (c *DatabaseClient) GetConversationByID(ctx context.Context, id string) (*models.Conversation, error) {
	q := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1`
	var conv models.Conversation
	if err := c.db.QueryRowContext(ctx, q, id).Scan(
		&conv.ID, &conv.UserID, &conv.StartedAt, &conv.LastMessageAt, &conv.Closed,
	); err != nil {
		return nil, notFound("get conversation", err)
	}
	return &conv, nil
}

func (c *DatabaseClient) CloseConversation(ctx context.Context, id string) error {
	res, err := c.db.ExecContext(ctx, `UPDATE conversations SET closed = true WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.WrapError(models.ErrNotFound, "close conversation", fmt.Errorf("conversation %s", id))
	}
	return nil
}

// Messages

func (c *DatabaseClient) CreateMessage(ctx context.Context, msg *models.Message) error {
	reasoning, err := jsonOrNull(msg.ReasoningLog)
	if err != nil {
		return fmt.Errorf("encode reasoning_log: %w", err)
	}

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	const ins = `
		INSERT INTO messages (id, conversation_id, sender, content, timestamp, reasoning_log)
		VALUES ($1, $2, $3, $4, $5, $6)
	`
	if _, err := tx.ExecContext(ctx, ins, msg.ID, msg.ConversationID, string(msg.Sender), msg.Content, msg.Timestamp, reasoning); err != nil {
		return err
	}
	const touch = `
		UPDATE conversations
		SET last_message_at = GREATEST(last_message_at, $2)
		WHERE id = $1
	`
	res, err := tx.ExecContext(ctx, touch, msg.ConversationID, msg.Timestamp)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return models.WrapError(models.ErrNotFound, "create message", fmt.Errorf("conversation %s", msg.ConversationID))
	}
	return tx.Commit()
}

func (c *DatabaseClient) ListMessages(ctx context.Context, conversationID string) ([]models.Message, error) {
	const q = `
		SELECT id, conversation_id, sender, content, timestamp, reasoning_log
		FROM messages
		WHERE conversation_id = $1
		ORDER BY timestamp ASC, id ASC
	`
	rows, err := c.db.QueryContext(ctx, q, conversationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.Message{}
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

// Document chunks

// InsertDocumentChunks inserts chunks in a single transaction.
func (c *DatabaseClient) InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return err
	}

	const q = `
		INSERT INTO document_chunks
			(id, document_id, user_id, position, text, embedding, token_count, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()

	for i := range chunks {
		ch := &chunks[i]
		vec := pgvector.NewVector(ch.Embedding)
		if _, err := stmt.ExecContext(ctx,
			ch.ID, ch.DocumentID, ch.UserID, ch.Position, ch.Text, vec, ch.TokenCount, ch.CreatedAt,
		); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

// SearchUserChunks finds the chunks of a user's documents closest to queryVec.
func (c *DatabaseClient) SearchUserChunks(ctx context.Context, userID string, queryVec []float32, limit int) ([]models.DocumentChunk, error) {
	const q = `
		SELECT id, document_id, user_id, position, text, token_count
		FROM document_chunks
		WHERE user_id = $1
		ORDER BY embedding <-> $2
		LIMIT $3
	`
	rows, err := c.db.QueryContext(ctx, q, userID, pgvector.NewVector(queryVec), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.DocumentChunk
	for rows.Next() {
		var ch models.DocumentChunk
		if err := rows.Scan(&ch.ID, &ch.DocumentID, &ch.UserID, &ch.Position, &ch.Text, &ch.TokenCount); err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, rows.Err()
}
