package app

import (
	"context"
	"fmt"
	"time"

	"github.com/markdave123-py/Auditra/internal/config"
	"github.com/markdave123-py/Auditra/internal/core"
	"github.com/markdave123-py/Auditra/internal/core/analysis"
	"github.com/markdave123-py/Auditra/internal/core/assistant"
	db "github.com/markdave123-py/Auditra/internal/core/database"
	"github.com/markdave123-py/Auditra/internal/core/ingestion_engine"
	"github.com/markdave123-py/Auditra/internal/core/llm"
	objectclient "github.com/markdave123-py/Auditra/internal/core/object-client"
	"github.com/markdave123-py/Auditra/internal/core/orchestrator"
	"github.com/markdave123-py/Auditra/internal/core/resilience"
	"github.com/markdave123-py/Auditra/internal/logger"
	"github.com/markdave123-py/Auditra/internal/metrics"
	"github.com/markdave123-py/Auditra/internal/realtime"
	"github.com/markdave123-py/Auditra/internal/services"
)

const aiCallTimeout = 90 * time.Second

type App struct {
	DBClient     core.DbClient
	Orchestrator *orchestrator.Orchestrator
	Hub          *realtime.Hub
	Server       *Server

	relay   *realtime.RedisRelay
	closers []func() error
	log     *logger.Logger
}

// NewApp wires every component. Postgres, S3, Gemini and Redis are only built when
// configured; each missing one is logged at startup.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	log = logger.OrNop(log)
	a := &App{log: log}

	initCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	var store core.DbClient
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, using in-memory repository; data will not survive a restart")
		store = db.NewMemoryClient()
	} else {
		pg, err := db.NewDatabaseClient(initCtx, cfg)
		if err != nil {
			return nil, err
		}
		store = pg
		log.Info("database initialized and ready")
	}
	a.DBClient = store
	a.closers = append(a.closers, store.Close)

	var storage core.ObjectClient
	if cfg.StorageEnabled() {
		s3c, err := objectclient.NewS3Client(initCtx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		storage = s3c
		log.Info("object storage initialized", "bucket", cfg.BucketName)
	} else {
		log.Warn("AWS credentials not set, uploaded originals will not be stored")
	}

	m := metrics.NewPipelineMetrics()

	var (
		analysisLLM core.LLMProvider
		chatLLM     core.LLMProvider
		embedder    core.EmbeddingProvider
	)
	if cfg.AIAPIKey != "" {
		exec := resilience.NewExecutor(resilience.DefaultConfig(), log)

		gemini, err := llm.NewGeminiLLM(initCtx, cfg.AIAPIKey, cfg.GenModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the llm: %w", err)
		}
		a.closers = append(a.closers, gemini.Close)
		analysisLLM = llm.NewResilientLLM(gemini.WithJSONOutput(), exec, "gemini.analysis", aiCallTimeout)
		chatLLM = llm.NewResilientLLM(gemini, exec, "gemini.chat", aiCallTimeout)

		emb, err := llm.NewGeminiEmbedder(initCtx, cfg.AIAPIKey, cfg.EmbedModel)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("couldn't initialize the embedder: %w", err)
		}
		a.closers = append(a.closers, emb.Close)
		embedder = emb
	} else {
		log.Warn("GEMINI_API_KEY not set, analysis and chat run on deterministic fallbacks")
	}

	a.Hub = realtime.NewHub(log, m)
	var notifier core.Notifier = a.Hub
	if cfg.RedisURL != "" {
		relay, err := realtime.NewRedisRelay(initCtx, cfg.RedisURL, cfg.RedisChannel, a.Hub, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.relay = relay
		a.closers = append(a.closers, relay.Close)
		notifier = relay
		go func() {
			if err := relay.Start(ctx); err != nil {
				log.Error("redis relay stopped", "error", err)
			}
		}()
	}

	var indexer ingestion_engine.Indexer
	if embedder != nil {
		indexer = ingestion_engine.NewDocumentIndexer(store, embedder, ingestion_engine.DefaultIndexConfig(), log)
	}

	orch := orchestrator.New(orchestrator.Deps{
		DB:        store,
		Storage:   storage,
		Extractor: ingestion_engine.NewDocconvExtractor(false),
		Analysis:  analysis.NewGenerator(analysisLLM, log, m),
		Responder: assistant.NewResponder(chatLLM, log, m),
		Indexer:   indexer,
		Embedder:  embedder,
		Notifier:  notifier,
		Log:       log,
		Metrics:   m,
	}, orchestrator.Config{
		QueueSize:           cfg.QueueSize,
		DefaultJurisdiction: cfg.DefaultJurisdiction,
	})
	orch.Start(ctx, cfg.Workers)
	go orch.WatchStale(ctx, 0)
	a.Orchestrator = orch

	resubmitted, failed, err := orch.RecoverStale(initCtx)
	if err != nil {
		log.Error("stale run recovery failed", "error", err)
	} else if resubmitted+failed > 0 {
		log.Info("recovered stale documents", "resubmitted", resubmitted, "failed", failed)
	}

	tokens := services.NewTokenManager(cfg.JWTSecret, 24*time.Hour)
	svc := serverServices{
		users:         services.NewUserService(store, tokens, log),
		documents:     services.NewDocumentService(store, storage, cfg.BucketName, orch, cfg.MaxUploadBytes, log),
		conversations: services.NewConversationService(store, orch),
		activities:    services.NewActivityService(store),
		tokens:        tokens,
	}
	a.Server = NewServer(cfg, svc, a.Hub, m, log)
	return a, nil
}

// Close releases collaborators in reverse construction order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.Warn("close failed", "error", err)
		}
	}
	a.closers = nil
}
