package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/Auditra/internal/core/analysis"
	objectclient "github.com/markdave123-py/Auditra/internal/core/object-client"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/models"
)

// ProcessDocument runs one document to a terminal state. It returns an error when the
// run could not start (the document was not pending) or ended in failed.
// Callers must not invoke it twice for the same document.
func (o *Orchestrator) ProcessDocument(ctx context.Context, raw []byte, contentType string, doc *models.Document) (err error) {
	started := time.Now()
	log := o.log.With("document_id", doc.ID, "user_id", doc.UserID, "category", doc.Category)

	current, err := o.db.TransitionDocument(ctx, doc.ID, models.StatusPending, models.StatusProcessing, nil)
	if err != nil {
		log.Warn("document not claimable", "error", err)
		return err
	}
	log.Info("document processing")

	o.metrics.StartRun()
	final := models.StatusFailed
	defer func() {
		o.metrics.FinishRun(string(current.Category), string(final), time.Since(started))
	}()

	o.record(ctx, current.UserID, current.Category.AnalysisActivity(), transitionDetails(current, models.StatusProcessing), current.ID)
	o.publish(ctx, current.UserID, models.DocumentEvent(current))

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic during processing: %v", r)
			o.fail(ctx, current, err, log)
		}
	}()

	if !current.Category.Valid() {
		err = models.WrapError(models.ErrInvalidInput, "process document", fmt.Errorf("unsupported category %q", current.Category))
		o.fail(ctx, current, err, log)
		return err
	}

	jurisdiction := o.jurisdiction(ctx, current.UserID)

	text, err := o.extractor.ExtractText(ctx, raw, contentType)
	if err != nil {
		o.fail(ctx, current, err, log)
		return err
	}

	result, err := o.analysis.Generate(ctx, text, current.Category, jurisdiction)
	if err != nil {
		o.fail(ctx, current, err, log)
		return err
	}

	done, err := o.db.TransitionDocument(ctx, current.ID, models.StatusProcessing, models.StatusCompleted, result.Normalize())
	if err != nil {
		o.fail(ctx, current, err, log)
		return err
	}
	final = models.StatusCompleted

	o.record(ctx, done.UserID, done.Category.AnalysisActivity(), transitionDetails(done, models.StatusCompleted), done.ID)
	o.record(ctx, done.UserID, models.ActivityForesight, analysis.Insight(done.Category, jurisdiction, done.AnalysisResult), done.ID)
	o.publish(ctx, done.UserID, models.DocumentEvent(done))
	log.Info("document completed", "duration", time.Since(started))

	o.index(ctx, done, text, log)
	return nil
}

// fail moves a processing document to failed. It uses its own deadline so a run that
// timed out still reaches a terminal state.
func (o *Orchestrator) fail(ctx context.Context, doc *models.Document, cause error, log *logger.Logger) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	log.Warn("document failed", "error", cause)
	failed, err := o.db.TransitionDocument(ctx, doc.ID, models.StatusProcessing, models.StatusFailed, nil)
	if err != nil {
		log.Error("could not mark document failed", "error", err)
		return
	}
	o.record(ctx, failed.UserID, failed.Category.AnalysisActivity(), transitionDetails(failed, models.StatusFailed), failed.ID)
	o.publish(ctx, failed.UserID, models.DocumentEvent(failed))
}

// index makes the completed document available as conversation context. Failures
// never affect the document.
func (o *Orchestrator) index(ctx context.Context, doc *models.Document, text string, log *logger.Logger) {
	if o.indexer == nil {
		return
	}
	n, err := o.indexer.Index(ctx, doc, text)
	if err != nil {
		log.Warn("indexing failed", "error", err)
		return
	}
	log.Debug("indexed for chat context", "chunks", n)
}

// RecoverStale resolves documents left pending or processing by a lost run. Only
// documents untouched for StaleAfter are considered, so runs owned by another live
// instance sharing the database are left alone. Pending documents whose original is
// still in storage are resubmitted; every other stale document is moved to failed.
func (o *Orchestrator) RecoverStale(ctx context.Context) (resubmitted, failed int, err error) {
	docs, err := o.db.ListDocumentsByStatus(ctx, models.StatusPending, models.StatusProcessing)
	if err != nil {
		return 0, 0, err
	}

	cutoff := nowUTC().Add(-o.cfg.StaleAfter)
	for i := range docs {
		doc := &docs[i]
		if lastTouched(doc).After(cutoff) {
			continue
		}
		log := o.log.With("document_id", doc.ID, "user_id", doc.UserID, "status", doc.Status)

		if doc.Status == models.StatusPending && doc.StorageURL != "" && o.storage != nil {
			bucket, key := objectclient.ParseS3URL(doc.StorageURL)
			raw, getErr := o.storage.GetFile(ctx, bucket, key)
			if getErr == nil {
				o.SubmitDocument(doc, raw, doc.ContentType)
				resubmitted++
				log.Info("stale document resubmitted")
				continue
			}
			log.Warn("original unavailable", "error", getErr)
		}

		if doc.Status == models.StatusPending {
			claimed, claimErr := o.db.TransitionDocument(ctx, doc.ID, models.StatusPending, models.StatusProcessing, nil)
			if claimErr != nil {
				log.Warn("stale document changed underneath recovery", "error", claimErr)
				continue
			}
			o.record(ctx, claimed.UserID, claimed.Category.AnalysisActivity(), transitionDetails(claimed, models.StatusProcessing), claimed.ID)
			doc = claimed
		}
		o.fail(ctx, doc, fmt.Errorf("interrupted before completion"), log)
		failed++
	}

	if resubmitted+failed > 0 {
		o.log.Info("stale documents recovered", "resubmitted", resubmitted, "failed", failed)
	}
	return resubmitted, failed, nil
}

// WatchStale runs RecoverStale every interval until ctx is done, so runs lost while
// this process was up (or by a crashed peer) are still resolved.
func (o *Orchestrator) WatchStale(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = o.cfg.StaleAfter
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, _, err := o.RecoverStale(ctx); err != nil && ctx.Err() == nil {
				o.log.Warn("stale sweep failed", "error", err)
			}
		}
	}
}

func lastTouched(doc *models.Document) time.Time {
	if doc.UpdatedAt.After(doc.UploadedAt) {
		return doc.UpdatedAt
	}
	return doc.UploadedAt
}
