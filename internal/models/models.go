package models

import (
	"time"
)

// DefaultJurisdiction is used whenever a user has not set a region.
const DefaultJurisdiction = "US"

// User represents an authenticated user of the system.
type User struct {
	ID           string    `db:"id" json:"id"`
	FirstName    string    `db:"first_name" json:"first_name"`
	LastName     string    `db:"last_name" json:"last_name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Jurisdiction string    `db:"jurisdiction" json:"jurisdiction"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// EffectiveJurisdiction returns the user's region or fallback when unset.
func (u *User) EffectiveJurisdiction(fallback string) string {
	if u != nil && u.Jurisdiction != "" {
		return u.Jurisdiction
	}
	if fallback == "" {
		return DefaultJurisdiction
	}
	return fallback
}

// Document is a user-uploaded file and the state of its analysis.
type Document struct {
	ID             string          `db:"id" json:"id"`
	UserID         string          `db:"user_id" json:"user_id"`
	FileName       string          `db:"file_name" json:"file_name"`
	ContentType    string          `db:"content_type" json:"content_type"`
	StorageURL     string          `db:"storage_url" json:"storage_url,omitempty"` // S3 URL when originals are stored
	Category       Category        `db:"category" json:"category"`
	Status         DocumentStatus  `db:"status" json:"status"`
	AnalysisResult *AnalysisResult `db:"analysis_result" json:"analysis_result"` // set only when completed
	UploadedAt     time.Time       `db:"uploaded_at" json:"uploaded_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`
}

// ActivityDetails is the free-form body of an activity entry.
type ActivityDetails struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Activity is one append-only audit entry.
type Activity struct {
	ID                string          `db:"id" json:"id"`
	UserID            string          `db:"user_id" json:"user_id"`
	Type              ActivityType    `db:"type" json:"type"`
	Timestamp         time.Time       `db:"timestamp" json:"timestamp"`
	Details           ActivityDetails `db:"details" json:"details"`
	RelatedDocumentID string          `db:"related_document_id" json:"related_document_id,omitempty"`
}

// Conversation groups the messages of one chat session.
type Conversation struct {
	ID            string    `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"user_id"`
	StartedAt     time.Time `db:"started_at" json:"started_at"`
	LastMessageAt time.Time `db:"last_message_at" json:"last_message_at"`
	Closed        bool      `db:"closed" json:"closed"`
}

// Message represents an individual chat message (user or assistant).
type Message struct {
	ID             string          `db:"id" json:"id"`
	ConversationID string          `db:"conversation_id" json:"conversation_id"`
	Sender         Sender          `db:"sender" json:"sender"`
	Content        string          `db:"content" json:"content"`
	Timestamp      time.Time       `db:"timestamp" json:"timestamp"`
	ReasoningLog   []ReasoningStep `db:"reasoning_log" json:"reasoning_log,omitempty"`
}

// DocumentChunk represents one embedded text chunk from a completed document.
type DocumentChunk struct {
	ID         string    `db:"id" json:"id"`
	DocumentID string    `db:"document_id" json:"document_id"`
	UserID     string    `db:"user_id" json:"user_id"`
	Text       string    `db:"text" json:"text"`
	Embedding  []float32 `db:"embedding" json:"-"`
	Position   int       `db:"position" json:"position"`
	TokenCount int       `db:"token_count" json:"token_count"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
