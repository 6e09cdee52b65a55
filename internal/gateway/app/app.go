// Package app builds the object graph from configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"

	"go.uber.org/zap"

	"pollscope/internal/gateway/config"
	"pollscope/internal/gateway/handler"
	"pollscope/internal/gateway/server"
	"pollscope/internal/llm"
	"pollscope/internal/pipeline"
	"pollscope/internal/pipeline/color"
	"pollscope/internal/pipeline/interpret"
	"pollscope/internal/pipeline/party"
	"pollscope/internal/pipeline/reconcile"
	"pollscope/internal/search"
	"pollscope/internal/types/poll"
	"pollscope/internal/votehub"
)

type App struct {
	server  *server.Server
	orch    *pipeline.Orchestrator
	parties *party.Resolver
	llm     llm.LLMClient
	limiter *llm.Limiter
	log     *zap.Logger
}

// NewLogger builds the process logger from the log settings.
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	}
	if cfg.Level != "" {
		lvl, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("log level: %w", err)
		}
		zc.Level = lvl
	}
	return zc.Build()
}

// Deps overrides capabilities New would otherwise build from config.
type Deps struct {
	LLM     llm.LLMClient
	Search  search.Searcher
	VoteHub *votehub.Client
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	return NewWithDeps(ctx, cfg, logger, Deps{})
}

func NewWithDeps(ctx context.Context, cfg *config.Config, logger *zap.Logger, deps Deps) (*App, error) {
	if cfg == nil {
		return nil, errors.New("app: nil config")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	var limiter *llm.Limiter
	if deps.LLM == nil || deps.Search == nil {
		cli, searcher, l, err := newCapabilities(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		limiter = l
		if deps.LLM == nil {
			deps.LLM = cli
		}
		if deps.Search == nil {
			deps.Search = searcher
		}
	}
	if deps.VoteHub == nil {
		deps.VoteHub = votehub.NewClient(votehub.Options{
			BaseURL:        cfg.VoteHub.URL,
			MaxAttempts:    cfg.VoteHub.MaxAttempts,
			BaseDelay:      cfg.VoteHub.BaseDelay,
			AttemptTimeout: cfg.VoteHub.AttemptTimeout,
			CatalogTTL:     cfg.VoteHub.CatalogTTL,
			Logger:         logger.Named("votehub"),
		})
	}

	parties := party.NewResolver(party.Options{
		LLM:           deps.LLM,
		Search:        deps.Search,
		Logger:        logger.Named("party"),
		Timeout:       cfg.Pipeline.PartyTimeout,
		SearchResults: cfg.Search.Results,
		Workers:       cfg.Pipeline.PartyWorkers,
	})
	orch := pipeline.New(pipeline.Options{
		Interpreter: interpret.New(interpret.Options{
			LLM:     deps.LLM,
			Catalog: deps.VoteHub,
			Logger:  logger.Named("interpret"),
			Timeout: cfg.Pipeline.InterpretTimeout,
		}),
		Fetcher: deps.VoteHub,
		Reconciler: reconcile.New(reconcile.Options{
			LLM:     deps.LLM,
			Logger:  logger.Named("reconcile"),
			Timeout: cfg.Pipeline.ReconcileTimeout,
		}),
		Parties:          parties,
		Colors:           color.NewAssigner(),
		Logger:           logger.Named("pipeline"),
		Workers:          cfg.Pipeline.DivisionWorkers,
		PartyLookupLimit: cfg.Pipeline.PartyLookupLimit,
	})

	h := handler.New(orch, parties, logger.Named("handler"))
	srv := server.New(cfg.Port, server.NewMux(h, logger.Named("access")), logger)

	return &App{server: srv, orch: orch, parties: parties, llm: deps.LLM, limiter: limiter, log: logger}, nil
}

// newCapabilities builds the LLM stack and the searcher. Both draw on one
// token bucket so search counts against the model quota. The fake provider
// runs fully offline with no search.
func newCapabilities(ctx context.Context, cfg *config.Config, logger *zap.Logger) (llm.LLMClient, search.Searcher, *llm.Limiter, error) {
	if cfg.LLM.Provider == config.ProviderFake {
		return llm.NewFakeClient(), search.Nop{}, nil, nil
	}
	gem, err := llm.NewGeminiClient(ctx, cfg.LLM.APIKey, cfg.LLM.Model)
	if err != nil {
		return nil, nil, nil, err
	}
	limiter := llm.NewLimiter(cfg.LLM.RPS, cfg.LLM.Burst)
	cli := llm.Wrap(gem,
		llm.WithLogging(logger.Named("llm")),
		llm.SharedRateLimit(limiter),
		llm.Retry(cfg.LLM.MaxAttempts, cfg.LLM.BaseDelay),
		llm.WithTimeout(cfg.LLM.Timeout),
	)
	var searcher search.Searcher = search.Nop{}
	if cfg.Search.Enabled {
		searcher = search.Wrap(search.NewGeminiSearcher(gem.SDK(), cfg.Search.Model),
			search.WithLogging(logger.Named("search")),
			search.RateLimit(limiter),
			search.Retry(cfg.LLM.MaxAttempts, cfg.LLM.BaseDelay),
		)
	}
	return cli, searcher, limiter, nil
}

// Query runs one query without the HTTP surface.
func (a *App) Query(ctx context.Context, q string) (map[string]poll.ProcessedDivision, error) {
	return a.orch.Process(ctx, q)
}

func (a *App) Parties() map[string]party.Party { return a.parties.Snapshot() }

func (a *App) Start() error {
	return a.server.Start()
}

func (a *App) Serve(l net.Listener) error {
	return a.server.Serve(l)
}

func (a *App) Shutdown(ctx context.Context) error {
	err := a.server.Shutdown(ctx)
	err = errors.Join(err, a.llm.Close())
	a.limiter.Stop()
	return err
}
