package orchestrator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/markdave123-py/Auditra/internal/models"
)

func (o *Orchestrator) record(ctx context.Context, userID string, typ models.ActivityType, details models.ActivityDetails, documentID string) {
	a := &models.Activity{
		ID:                uuid.NewString(),
		UserID:            userID,
		Type:              typ,
		Timestamp:         nowUTC(),
		Details:           details,
		RelatedDocumentID: documentID,
	}
	if err := o.db.CreateActivity(ctx, a); err != nil {
		o.log.Error("activity not recorded", "type", typ, "document_id", documentID, "error", err)
	}
}

// transitionDetails describes a document entering status.
func transitionDetails(doc *models.Document, status models.DocumentStatus) models.ActivityDetails {
	label := doc.Category.Title()
	switch status {
	case models.StatusProcessing:
		return models.ActivityDetails{
			Title:       fmt.Sprintf("%s analysis started", label),
			Description: fmt.Sprintf("Processing started for %s.", doc.FileName),
			Status:      string(status),
		}
	case models.StatusCompleted:
		return models.ActivityDetails{
			Title:       fmt.Sprintf("%s analysis completed", label),
			Description: fmt.Sprintf("Analysis of %s is ready.", doc.FileName),
			Status:      string(status),
		}
	case models.StatusFailed:
		return models.ActivityDetails{
			Title:       fmt.Sprintf("%s analysis failed", label),
			Description: fmt.Sprintf("%s could not be analyzed. Please try uploading it again.", doc.FileName),
			Status:      string(status),
		}
	}
	return models.ActivityDetails{
		Title:       "Document uploaded",
		Description: fmt.Sprintf("%s was uploaded for %s analysis.", doc.FileName, doc.Category),
		Status:      string(status),
	}
}

// TransitionDetails is the activity body the upload path records for the initial pending state.
func TransitionDetails(doc *models.Document) models.ActivityDetails {
	return transitionDetails(doc, doc.Status)
}

func preview(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
