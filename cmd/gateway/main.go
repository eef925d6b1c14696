// Command gateway is the log-observability gateway's composition root: it
// loads configuration, opens the database pool (applying embedded
// migrations), wires the planner/cost-guard/ETL/embedding/orchestrator
// components, and serves the HTTP API until SIGINT/SIGTERM.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/codeready-toolchain/logwatch/pkg/api"
	"github.com/codeready-toolchain/logwatch/pkg/config"
	"github.com/codeready-toolchain/logwatch/pkg/costguard"
	"github.com/codeready-toolchain/logwatch/pkg/db"
	"github.com/codeready-toolchain/logwatch/pkg/embedding"
	"github.com/codeready-toolchain/logwatch/pkg/etl"
	"github.com/codeready-toolchain/logwatch/pkg/llm"
	"github.com/codeready-toolchain/logwatch/pkg/logstore"
	"github.com/codeready-toolchain/logwatch/pkg/planner"
	"github.com/codeready-toolchain/logwatch/pkg/redaction"
	"github.com/codeready-toolchain/logwatch/pkg/store"
	"github.com/codeready-toolchain/logwatch/pkg/tools"
)

func main() {
	envFile := flag.String("env-file", os.Getenv("ENV_FILE"), "path to a .env file to load before reading the environment")
	flag.Parse()

	cfg, err := config.Load(*envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: loading config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	dbClient, err := db.New(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer dbClient.Close()
	slog.Info("connected to database, migrations applied")

	p := planner.New(cfg.DefaultLimit, cfg.MaxLimit, cfg.DefaultTimeWindowHours, cfg.MaxTimeWindowHours, cfg.RequirePartitionFilter)
	estimator := costguard.NewExplainEstimator(explainQueryRower{dbClient.Pool})
	guard := costguard.New(estimator, cfg.MaxBytesScanned)
	logStore := logstore.New(dbClient.Pool, guard)

	redactor := redaction.New(cfg.PIIRedactionEnabled)

	embedder := buildEmbeddingClient(cfg)
	searcher := embedding.NewSearcher(dbClient.Pool, embedder)
	clusterWriter := embedding.NewClusterWriter(dbClient, embedder, cfg.ClusterSimilarityThreshold, time.Duration(cfg.EmbeddingTTLDays)*24*time.Hour)
	reaper := embedding.NewReaper(dbClient.Pool, time.Hour)
	reaper.Start(ctx)
	defer reaper.Stop()

	sessionStore := store.New(dbClient.Pool)
	toolRegistry := tools.New(redactor, sessionStore)
	tools.RegisterCatalog(toolRegistry, p, logStore, guard, searcher)

	jobStates := etl.NewJobStateStore(dbClient.Pool)
	deadLetters := etl.NewDeadLetterSink(dbClient.Pool)
	writer := etl.NewBatchWriter(dbClient.Pool)
	sourceReader := etl.NewPostgresSourceReader(dbClient.Pool)
	normalizer := etl.NewNormalizer(sourceReader, jobStates, deadLetters, writer,
		etl.WithBatchSize(cfg.ETLBatchSize),
		etl.WithYieldEvery(cfg.ETLYieldEveryRows),
		etl.WithMaxAttempts(cfg.ETLMaxAttempts),
		etl.WithErrorThreshold(cfg.ETLErrorThresholdPct),
		etl.WithErrorIndexer(clusterWriter),
	)
	scheduler := etl.NewScheduler(normalizer, time.Hour)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	llmClient := buildLLMClient(cfg)

	server := api.New(cfg, dbClient, p, logStore, toolRegistry, sessionStore, jobStates, deadLetters, llmClient, redactor)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server listening", "port", cfg.HTTPPort)
		if err := server.Start(":" + cfg.HTTPPort); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), api.ShutdownGrace)
	defer shutdownCancel()
	return server.Shutdown(shutdownCtx)
}

// explainQueryRower adapts *pgxpool.Pool to costguard.QueryRower: the pool's
// QueryRow returns the concrete pgx.Row type, not costguard's own Row
// interface, so a thin wrapper is needed to satisfy the interface costguard
// declares to avoid importing pgx itself.
type explainQueryRower struct {
	pool *pgxpool.Pool
}

func (a explainQueryRower) QueryRow(ctx context.Context, sql string, args ...any) costguard.Row {
	return a.pool.QueryRow(ctx, sql, args...)
}

// buildEmbeddingClient picks a real or fake embedding backend by
// EMBEDDING_ENDPOINT, the same provider-switch idiom buildLLMClient uses.
func buildEmbeddingClient(cfg *config.Config) embedding.Client {
	if cfg.EmbeddingEndpoint == "" {
		return &embedding.FakeClient{Dim: cfg.EmbeddingDim}
	}
	return embedding.NewHTTPClient(cfg.EmbeddingEndpoint, cfg.EmbeddingModel, cfg.EmbeddingDim, cfg.EmbedTimeout)
}

// buildLLMClient picks the orchestrator's reasoning backend from
// LLM_PROVIDER: "stub" (default, for environments without a live LLM
// endpoint) or any other value, which uses the HTTP client when LLM_ENDPOINT
// is set and falls back to the stub when it is empty.
func buildLLMClient(cfg *config.Config) llm.Client {
	if cfg.LLMProvider == "stub" || cfg.LLMEndpoint == "" {
		return &llm.FakeClient{Response: "no LLM backend configured; echoing a stub response."}
	}
	return llm.NewHTTPClient(cfg.LLMEndpoint, &http.Client{Timeout: cfg.LLMTimeout})
}
