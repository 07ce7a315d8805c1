package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/kirillkom/disclosure-grounding/internal/config"
	"github.com/kirillkom/disclosure-grounding/internal/core/ports"
	"github.com/kirillkom/disclosure-grounding/internal/core/usecase"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/authz"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/export/excel"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/graph/neo4j"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/queue/nats"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/resilience"
	"github.com/kirillkom/disclosure-grounding/internal/infrastructure/vector/qdrant"
)

type App struct {
	Config config.Config

	Ledger      ports.AuditLedger
	Queue       *nats.Queue
	Exporter    *excel.Exporter
	Drafter     ports.SectionDrafter
	Reviewer    ports.ParagraphReviewer
	Benchmarker ports.PeerBenchmarker

	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	ledgerRepo := postgres.NewLedgerRepository(db)
	if err := ledgerRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure ledger schema: %w", err)
	}
	draftRepo := postgres.NewDraftRepository(db)
	if err := draftRepo.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("ensure draft schema: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		return nil, fmt.Errorf("init run event queue: %w", err)
	}
	ledger := nats.NewPublishingLedger(ledgerRepo, queue)

	peerStore, err := neo4j.New(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword)
	if err != nil {
		return nil, fmt.Errorf("init peer set store: %w", err)
	}

	authorizer, err := authz.LoadPolicy(cfg.AuthzPolicyPath)
	if err != nil {
		return nil, fmt.Errorf("load authz policy: %w", err)
	}

	scoring, err := config.LoadScoring(cfg.ScoringPath)
	if err != nil {
		return nil, fmt.Errorf("load scoring config: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel)
	embedder := ollama.NewEmbedder(ollamaClient)
	generator := ollama.NewGenerator(ollamaClient, executor)
	semanticVerifier := ollama.NewVerifier(ollamaClient, executor)

	index := qdrant.New(cfg.QdrantURL, cfg.QdrantCollection)
	retriever := usecase.NewHybridRetriever(embedder, index, peerStore, usecase.RetrieverConfig{
		LexicalWeight: cfg.LexicalWeight,
		VectorWeight:  cfg.VectorWeight,
		Candidates:    cfg.HybridCandidates,
		RerankTopN:    cfg.RerankTopN,
	})

	workflowCfg := usecase.WorkflowConfig{
		DraftTopK:      cfg.DraftTopK,
		ReviewTopK:     cfg.ReviewTopK,
		BenchmarkTopK:  cfg.BenchmarkTopK,
		CoverageStrict: cfg.CoverageStrict,
	}

	drafter := usecase.NewDraftWorkflow(authorizer, ledger, retriever, generator, draftRepo, workflowCfg)
	reviewer := usecase.NewReviewWorkflow(authorizer, ledger, retriever,
		usecase.NewDeterministicVerifier(cfg.VerifyTolerance), semanticVerifier, workflowCfg)
	benchmarker := usecase.NewBenchmarkWorkflow(authorizer, ledger, retriever,
		usecase.NewConfidenceScorer(scoring), workflowCfg)

	return &App{
		Config: cfg,

		Ledger:      ledger,
		Queue:       queue,
		Exporter:    excel.NewExporter(),
		Drafter:     drafter,
		Reviewer:    reviewer,
		Benchmarker: benchmarker,

		closeFn: func() {
			queue.Close()
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = peerStore.Close(closeCtx)
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
