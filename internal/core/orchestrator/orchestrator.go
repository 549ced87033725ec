package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/core/assistant"
	"github.com/markdave123-py/Auditra/internal/core/ingestion_engine"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/models"
)

// AnalysisGenerator produces the analysis for one document.
type AnalysisGenerator interface {
	Generate(ctx context.Context, text string, category models.Category, jurisdiction string) (*models.AnalysisResult, error)
}

// ResponseGenerator produces the assistant's answer to one conversation turn.
type ResponseGenerator interface {
	Generate(ctx context.Context, turn assistant.Turn) (assistant.Reply, error)
}

// Config tunes the worker pool and per-run limits.
type Config struct {
	QueueSize           int
	RunTimeout          time.Duration
	ReplyTimeout        time.Duration
	DefaultJurisdiction string
	ContextChunks       int
	// StaleAfter is how long a pending or processing document may go untouched before
	// recovery treats its run as lost. Shorter ages may belong to a live peer instance.
	StaleAfter time.Duration
}

func (c Config) withDefaults() Config {
	if c.QueueSize <= 0 {
		c.QueueSize = 64
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = 5 * time.Minute
	}
	if c.ReplyTimeout <= 0 {
		c.ReplyTimeout = 2 * time.Minute
	}
	if c.DefaultJurisdiction == "" {
		c.DefaultJurisdiction = models.DefaultJurisdiction
	}
	if c.ContextChunks <= 0 {
		c.ContextChunks = 4
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = 2 * c.RunTimeout
	}
	return c
}

// Deps are the collaborators of the orchestrator. DB, Extractor, Analysis and
// Responder are required; the rest may be nil.
type Deps struct {
	DB        core.DbClient
	Storage   core.ObjectClient
	Extractor core.DocumentExtractor
	Analysis  AnalysisGenerator
	Responder ResponseGenerator
	Indexer   ingestion_engine.Indexer
	Embedder  core.EmbeddingProvider
	Notifier  core.Notifier
	Log       *logger.Logger
	Metrics   *metrics.PipelineMetrics
}

// Orchestrator drives documents through pending -> processing -> {completed|failed}
// and answers conversation turns. It is the only writer of document status and
// assistant messages.
type Orchestrator struct {
	db        core.DbClient
	storage   core.ObjectClient
	extractor core.DocumentExtractor
	analysis  AnalysisGenerator
	responder ResponseGenerator
	indexer   ingestion_engine.Indexer
	embedder  core.EmbeddingProvider
	notifier  core.Notifier
	log       *logger.Logger
	metrics   *metrics.PipelineMetrics
	cfg       Config

	jobs    chan job
	stop    chan struct{}
	stopped sync.Once
	workers sync.WaitGroup
	pending sync.WaitGroup // overflow submits and turn replies
}

type job struct {
	doc         *models.Document
	raw         []byte
	contentType string
}

var nowUTC = func() time.Time { return time.Now().UTC() }

func New(deps Deps, cfg Config) *Orchestrator {
	cfg = cfg.withDefaults()
	return &Orchestrator{
		db:        deps.DB,
		storage:   deps.Storage,
		extractor: deps.Extractor,
		analysis:  deps.Analysis,
		responder: deps.Responder,
		indexer:   deps.Indexer,
		embedder:  deps.Embedder,
		notifier:  deps.Notifier,
		log:       logger.OrNop(deps.Log).With("component", "orchestrator"),
		metrics:   deps.Metrics,
		cfg:       cfg,
		jobs:      make(chan job, cfg.QueueSize),
		stop:      make(chan struct{}),
	}
}

// Start launches numWorkers goroutines reading from the job queue until ctx is done.
// Jobs still queued at shutdown stay pending and are picked up by RecoverStale.
func (o *Orchestrator) Start(ctx context.Context, numWorkers int) {
	if numWorkers <= 0 {
		numWorkers = 1
	}
	go func() {
		<-ctx.Done()
		o.stopped.Do(func() { close(o.stop) })
	}()

	for w := 1; w <= numWorkers; w++ {
		o.workers.Add(1)
		go func(w int) {
			defer o.workers.Done()
			for {
				select {
				case <-o.stop:
					o.log.Debug("worker shutting down", "worker", w)
					return
				case j := <-o.jobs:
					o.run(j)
				}
			}
		}(w)
	}
	o.log.Info("orchestrator started", "workers", numWorkers, "queue", o.cfg.QueueSize)
}

// SubmitDocument schedules a pending document for processing and returns immediately.
// Completion is observed through notifications or by reading the document.
func (o *Orchestrator) SubmitDocument(doc *models.Document, raw []byte, contentType string) {
	j := job{doc: doc, raw: raw, contentType: contentType}
	select {
	case o.jobs <- j:
		return
	default:
	}

	// Queue full: hand off without blocking the caller.
	o.log.Warn("job queue full, deferring submit", "document_id", doc.ID)
	o.pending.Add(1)
	go func() {
		defer o.pending.Done()
		select {
		case o.jobs <- j:
		case <-o.stop:
		}
	}()
}

// Wait blocks until workers have stopped and every in-flight reply has been stored.
func (o *Orchestrator) Wait() {
	o.workers.Wait()
	o.pending.Wait()
}

func (o *Orchestrator) run(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), o.cfg.RunTimeout)
	defer cancel()

	if err := o.ProcessDocument(ctx, j.raw, j.contentType, j.doc); err != nil {
		o.log.Warn("document run ended with error", "document_id", j.doc.ID, "error", err)
	}
}

func (o *Orchestrator) jurisdiction(ctx context.Context, userID string) string {
	user, err := o.db.GetUserByID(ctx, userID)
	if err != nil {
		o.log.Debug("jurisdiction lookup failed, using default", "user_id", userID, "error", err)
		user = nil
	}
	return user.EffectiveJurisdiction(o.cfg.DefaultJurisdiction)
}

func (o *Orchestrator) publish(ctx context.Context, userID string, event models.Event) {
	if o.notifier == nil {
		return
	}
	o.notifier.Publish(ctx, userID, event)
}
