package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/core"
	objectclient "github.com/markdave123-py/Auditra/internal/core/object-client"
	"github.com/markdave123-py/Auditra/internal/core/orchestrator"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

// Submitter hands a stored pending document to the processing pipeline.
type Submitter interface {
	SubmitDocument(doc *models.Document, raw []byte, contentType string)
}

// allowedContentTypes are the upload formats text can be extracted from.
var allowedContentTypes = map[string]bool{
	"application/pdf":    true,
	"text/plain":         true,
	"text/csv":           true,
	"text/markdown":      true,
	"text/html":          true,
	"application/json":   true,
	"application/rtf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.oasis.opendocument.text":                                 true,
}

type UploadRequest struct {
	UserID      string
	FileName    string
	ContentType string
	Category    string
	Data        []byte
}

// DocumentService is the upload front door: it validates, stores and creates the
// pending document, then submits it for processing without waiting.
type DocumentService struct {
	db        core.DbClient
	storage   core.ObjectClient
	bucket    string
	submitter Submitter
	maxBytes  int64
	log       *logger.Logger
}

// NewDocumentService accepts a nil storage, in which case originals are not kept.
func NewDocumentService(db core.DbClient, storage core.ObjectClient, bucket string, submitter Submitter, maxBytes int64, log *logger.Logger) *DocumentService {
	return &DocumentService{
		db:        db,
		storage:   storage,
		bucket:    bucket,
		submitter: submitter,
		maxBytes:  maxBytes,
		log:       logger.OrNop(log).With("component", "documents"),
	}
}

// Upload rejects invalid requests before any record is created.
func (s *DocumentService) Upload(ctx context.Context, req UploadRequest) (*models.Document, error) {
	const op = "upload document"

	fileName := strings.TrimSpace(req.FileName)
	if len(req.Data) == 0 || fileName == "" {
		return nil, models.WrapError(models.ErrInvalidInput, op, errors.New("file is required"))
	}
	category, err := models.ParseCategory(req.Category)
	if err != nil {
		return nil, err
	}
	if s.maxBytes > 0 && int64(len(req.Data)) > s.maxBytes {
		return nil, models.WrapError(models.ErrInvalidInput, op, fmt.Errorf("file exceeds %d bytes", s.maxBytes))
	}
	contentType, err := resolveContentType(req.ContentType, req.Data)
	if err != nil {
		return nil, models.WrapError(models.ErrInvalidInput, op, err)
	}

	now := nowUTC()
	doc := &models.Document{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		FileName:    fileName,
		ContentType: contentType,
		Category:    category,
		Status:      models.StatusPending,
		UploadedAt:  now,
		UpdatedAt:   now,
	}

	var key string
	if s.storage != nil {
		key = objectclient.ObjectKey(doc.UserID, doc.ID, fileName)
		url, err := s.storage.UploadFile(ctx, s.bucket, key, bytes.NewReader(req.Data), contentType)
		if err != nil {
			return nil, models.WrapError(models.ErrUnavailable, op, err)
		}
		doc.StorageURL = url
	}

	if err := s.db.CreateDocument(ctx, doc); err != nil {
		if key != "" {
			if delErr := s.storage.DeleteFile(context.WithoutCancel(ctx), s.bucket, key); delErr != nil {
				s.log.Warn("orphaned original not removed", "key", key, "error", delErr)
			}
		}
		return nil, err
	}

	recordActivity(ctx, s.db, s.log, &models.Activity{
		UserID:            doc.UserID,
		Type:              models.ActivityUpload,
		Details:           orchestrator.TransitionDetails(doc),
		RelatedDocumentID: doc.ID,
	})

	submitted := *doc
	s.submitter.SubmitDocument(&submitted, req.Data, contentType)
	s.log.Info("document accepted", "document_id", doc.ID, "user_id", doc.UserID, "category", category, "bytes", len(req.Data))
	return doc, nil
}

// Get returns a document owned by userID; other users' documents are not found.
func (s *DocumentService) Get(ctx context.Context, userID, id string) (*models.Document, error) {
	doc, err := s.db.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc.UserID != userID {
		return nil, models.WrapError(models.ErrNotFound, "get document", fmt.Errorf("document %s", id))
	}
	return doc, nil
}

func (s *DocumentService) List(ctx context.Context, userID string) ([]models.Document, error) {
	return s.db.ListDocumentsByUser(ctx, userID)
}

func (s *DocumentService) Activities(ctx context.Context, userID, id string) ([]models.Activity, error) {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return nil, err
	}
	return s.db.ListActivitiesByDocument(ctx, id)
}

// resolveContentType prefers the declared type and sniffs when none is given.
func resolveContentType(declared string, data []byte) (string, error) {
	ct := baseMIME(declared)
	if ct == "" || ct == "application/octet-stream" {
		ct = baseMIME(http.DetectContentType(data))
	}
	if !allowedContentTypes[ct] {
		return "", fmt.Errorf("content type %q is not allowed", ct)
	}
	return ct, nil
}

func baseMIME(contentType string) string {
	mime, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mime))
}
