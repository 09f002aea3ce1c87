package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/custodia-labs/ragkit/internal/adapters/driven/ai"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/config/file"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/metrics"
	memstore "github.com/custodia-labs/ragkit/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/postgres"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/tokenizer/tiktoken"
	memvector "github.com/custodia-labs/ragkit/internal/adapters/driven/vector/memory"
	"github.com/custodia-labs/ragkit/internal/adapters/driven/vector/pgvector"
	"github.com/custodia-labs/ragkit/internal/adapters/driving/cli"
	"github.com/custodia-labs/ragkit/internal/core/domain"
	"github.com/custodia-labs/ragkit/internal/core/ports/driven"
	"github.com/custodia-labs/ragkit/internal/core/services"
	"github.com/custodia-labs/ragkit/internal/logger"
	"github.com/custodia-labs/ragkit/internal/normalisers"
	"github.com/custodia-labs/ragkit/internal/postprocessors"
)

// envMetricsAddr enables the Prometheus endpoint for the life of the process.
const envMetricsAddr = "RAGKIT_METRICS_ADDR"

// application holds the wired services and the resources to release on exit.
type application struct {
	services cli.Services
	closers  []io.Closer
}

// Close releases resources in reverse order of acquisition.
func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			logger.Warn("close: %v", err)
		}
	}
}

func (a *application) own(c io.Closer) {
	a.closers = append(a.closers, c)
}

// wire builds every adapter selected by the saved settings.
// home overrides ~/.ragkit when set.
func wire(ctx context.Context, home string) (_ *application, err error) {
	app := &application{}
	defer func() {
		if err != nil {
			app.Close()
		}
	}()

	configStore, err := file.NewConfigStore(home)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	settingsService := services.NewSettingsService(configStore, ai.NewProbe())
	settings, err := settingsService.Get()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	app.own(logger.Setup(settings.Log.Level, settings.Log.Path))

	chunks, err := openChunkStore(ctx, app, settings.Storage, home)
	if err != nil {
		return nil, err
	}
	index, err := openVectorIndex(ctx, app, settings, chunks)
	if err != nil {
		return nil, err
	}

	embedder, err := ai.CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		logger.Warn("embedding provider unavailable: %v", err)
		embedder = nil
	}
	if embedder != nil {
		app.own(embedder)
	}

	recorder, err := newRecorder(ctx)
	if err != nil {
		return nil, err
	}

	promptDir := ""
	if home != "" {
		promptDir = filepath.Join(home, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("open prompts: %w", err)
	}

	builder := postprocessors.NewRegistry()
	postprocessors.RegisterDefaultsWithLoader(builder, tiktoken.Loader(settings.Embedding.Model))

	app.services = cli.Services{
		Retrieval: services.NewRetrievalService(chunks, index, embedder,
			services.WithRetrievalSettings(settings.Retrieval),
			services.WithPromptStore(prompts),
			services.WithRetrievalRecorder(recorder),
		),
		Ingestion: services.NewIngestionService(chunks, index, embedder, builder,
			services.WithPipelineConfig(settingsService.GetPipelineConfig()),
			services.WithEmbedTimeout(settings.Embedding.Timeout),
			services.WithIngestionRecorder(recorder),
		),
		Knowledge:   services.NewKnowledgeService(chunks, index),
		Settings:    settingsService,
		Normalisers: normalisers.NewDefaultRegistry(),
	}
	return app, nil
}

func openChunkStore(ctx context.Context, app *application, cfg domain.StorageSettings, home string) (driven.ChunkStore, error) {
	switch cfg.Backend {
	case domain.StorageMemory:
		store := memstore.NewChunkStore()
		app.own(store)
		return store, nil

	case domain.StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		app.own(store)
		return store, nil

	case domain.StorageSQLite, "":
		dataDir := cfg.DataDir
		if dataDir == "" && home != "" {
			dataDir = filepath.Join(home, "data")
		}
		store, err := sqlite.NewStore(dataDir)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store: %w", err)
		}
		app.own(store)
		return store, nil

	default:
		return nil, fmt.Errorf("%w: storage backend %q", domain.ErrUnsupportedType, cfg.Backend)
	}
}

func openVectorIndex(ctx context.Context, app *application, settings *domain.AppSettings, chunks driven.ChunkStore) (driven.VectorIndex, error) {
	var dims []int
	if settings.VectorIndex.Dimensions > 0 {
		dims = append(dims, settings.VectorIndex.Dimensions)
	}

	switch settings.VectorIndex.Backend {
	case domain.VectorPgvector:
		var (
			index *pgvector.Index
			err   error
		)
		if pg, ok := chunks.(*postgres.Store); ok {
			index, err = pgvector.New(ctx, pg.DB(), dims...)
		} else {
			index, err = pgvector.Open(ctx, settings.Storage.PostgresDSN)
		}
		if err != nil {
			return nil, fmt.Errorf("open pgvector index: %w", err)
		}
		app.own(index)
		return index, nil

	case domain.VectorMemory, "":
		index := memvector.New(memvector.WithDimensions(settings.VectorIndex.Dimensions))
		app.own(index)
		n, err := index.RebuildFrom(ctx, chunks)
		if err != nil {
			logger.Warn("vector index rebuilt partially (%d entries): %v", n, err)
		}
		return index, nil

	default:
		return nil, fmt.Errorf("%w: vector backend %q", domain.ErrUnsupportedType, settings.VectorIndex.Backend)
	}
}

// newRecorder returns a Prometheus recorder, served over HTTP when
// RAGKIT_METRICS_ADDR is set.
func newRecorder(ctx context.Context) (driven.Recorder, error) {
	reg := prometheus.NewRegistry()
	rec, err := metrics.NewPrometheus(reg)
	if err != nil {
		logger.Warn("metrics disabled: %v", err)
		return metrics.Nop{}, nil
	}

	if addr := os.Getenv(envMetricsAddr); addr != "" {
		if err := metrics.Serve(ctx, addr, reg); err != nil {
			return nil, fmt.Errorf("serve metrics on %s: %w", addr, err)
		}
	}
	return rec, nil
}
