package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"

	"github.com/go-chi/chi/v5"

	"github.com/markdave123-py/Auditra/internal/models"
	"github.com/markdave123-py/Auditra/internal/services"
)

// multipart overhead allowed on top of the file size limit
const formSlack = 1 << 20

type DocumentHandler struct {
	docs     *services.DocumentService
	maxBytes int64
}

func NewDocumentHandler(docs *services.DocumentService, maxBytes int64) *DocumentHandler {
	return &DocumentHandler{docs: docs, maxBytes: maxBytes}
}

// UploadDocument accepts a multipart form with "file" and "category" and answers 202;
// the analysis result arrives later over the real-time channel.
func (h *DocumentHandler) UploadDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+formSlack)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, models.WrapError(models.ErrInvalidInput, "upload document", errors.New("invalid multipart form or file too large")))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, models.WrapError(models.ErrInvalidInput, "upload document", errors.New("file is required")))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, h.maxBytes+1))
	if err != nil {
		writeError(w, models.WrapError(models.ErrInvalidInput, "upload document", fmt.Errorf("read file: %w", err)))
		return
	}

	doc, err := h.docs.Upload(r.Context(), services.UploadRequest{
		UserID:      userID,
		FileName:    filepath.Base(header.Filename),
		ContentType: header.Header.Get("Content-Type"),
		Category:    r.FormValue("category"),
		Data:        data,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, doc)
}

func (h *DocumentHandler) GetDocuments(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	docs, err := h.docs.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	if docs == nil {
		docs = []models.Document{}
	}
	writeJSON(w, http.StatusOK, docs)
}

func (h *DocumentHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	doc, err := h.docs.Get(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *DocumentHandler) GetDocumentActivities(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	acts, err := h.docs.Activities(r.Context(), userID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if acts == nil {
		acts = []models.Activity{}
	}
	writeJSON(w, http.StatusOK, acts)
}
