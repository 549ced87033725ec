package core

import (
	"context"
	"io"

	"github.com/markdave123-py/Auditra/internal/models"
)

// DbClient defines all persistence operations the services and orchestrator need.
// It abstracts Postgres/pgvector so higher layers never depend on a specific DB.
// Implementations return models.ErrNotFound for missing records.
type DbClient interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	UpdateUserProfile(ctx context.Context, user *models.User) error

	CreateDocument(ctx context.Context, doc *models.Document) error
	GetDocumentByID(ctx context.Context, id string) (*models.Document, error)
	ListDocumentsByUser(ctx context.Context, userID string) ([]models.Document, error)
	ListDocumentsByStatus(ctx context.Context, statuses ...models.DocumentStatus) ([]models.Document, error)
	// TransitionDocument atomically moves a document from one status to the next and
	// stores result alongside it. It returns models.ErrConflict when the stored status is not from.
	TransitionDocument(ctx context.Context, id string, from, to models.DocumentStatus, result *models.AnalysisResult) (*models.Document, error)

	CreateActivity(ctx context.Context, activity *models.Activity) error
	ListActivitiesByUser(ctx context.Context, userID string, limit int) ([]models.Activity, error)
	ListActivitiesByDocument(ctx context.Context, documentID string) ([]models.Activity, error)

	// EnsureActiveConversation returns the user's open conversation, inserting candidate if none exists.
	EnsureActiveConversation(ctx context.Context, candidate *models.Conversation) (*models.Conversation, error)
	GetConversationByID(ctx context.Context, id string) (*models.Conversation, error)
	CloseConversation(ctx context.Context, id string) error

	// CreateMessage stores msg and bumps the conversation's last_message_at.
	CreateMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]models.Message, error)

	InsertDocumentChunks(ctx context.Context, chunks []models.DocumentChunk) error
	SearchUserChunks(ctx context.Context, userID string, queryVec []float32, limit int) ([]models.DocumentChunk, error)

	Close() error
}

// ObjectClient defines interactions with S3 or any object storage.
type ObjectClient interface {
	UploadFile(ctx context.Context, bucket, key string, data io.Reader, contentType string) (url string, err error)
	DeleteFile(ctx context.Context, bucket, key string) error
	GetFile(ctx context.Context, bucket, key string) ([]byte, error)
}

// Notifier pushes events to a user's live connections. Delivery is best effort.
type Notifier interface {
	Publish(ctx context.Context, userID string, event models.Event)
}
