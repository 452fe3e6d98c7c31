package genoloc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"genoloc/internal/config"
	"genoloc/internal/fitness"
	"genoloc/internal/grammar"
	"genoloc/internal/individual"
	"genoloc/internal/interp"
	"genoloc/internal/locality"
	"genoloc/internal/metrics"
	"genoloc/internal/model"
	"genoloc/internal/storage"
	"genoloc/internal/variation"
)

type Options struct {
	Config config.Config
	// Logger defaults to one built from Config.Log writing to stderr.
	Logger *slog.Logger
	// Registerer receives the sampler counters; nil uses a private registry.
	Registerer prometheus.Registerer
}

type Client struct {
	cfg     config.Config
	store   storage.Store
	logger  *slog.Logger
	metrics *metrics.Sampler
}

type RunSummary struct {
	StudyID   string
	Problem   string
	Pairs     int
	Summaries []model.RegimeSummary
}

func New(opts Options) (*Client, error) {
	cfg := opts.Config
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = cfg.Log.NewLogger(os.Stderr)
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	store, err := storage.NewStore(cfg.Store.Kind, cfg.Store.Path)
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:     cfg,
		store:   store,
		logger:  logger,
		metrics: metrics.NewSampler(reg),
	}, nil
}

// Load builds a client from the study file at path.
func Load(path string) (*Client, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	return New(Options{Config: cfg})
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

// Run samples the configured study and persists it with its pairs.
func (c *Client) Run(ctx context.Context) (RunSummary, error) {
	spec, err := fitness.LookupBenchmark(c.cfg.Problem.Benchmark)
	if err != nil {
		return RunSummary{}, err
	}
	// Fail on an unusable grammar before any worker starts.
	if _, err := c.sampler(spec, 0, c.cfg.Study.Seed); err != nil {
		return RunSummary{}, err
	}

	study := locality.Study{
		ID:       c.cfg.Study.ID,
		Problem:  spec.Name,
		Seed:     c.cfg.Study.Seed,
		Workers:  c.cfg.Study.Workers,
		Attempts: c.cfg.Study.Attempts,
		Regimes:  c.cfg.Regimes(),
		NewSampler: func(worker int, seed int64) (*variation.Sampler, error) {
			return c.sampler(spec, worker, seed)
		},
		Logger: c.logger,
	}
	record, pairs, err := study.Run(ctx)
	if err != nil {
		return RunSummary{}, err
	}
	if err := locality.Persist(ctx, c.store, record, pairs); err != nil {
		return RunSummary{}, err
	}

	return RunSummary{
		StudyID:   record.ID,
		Problem:   record.Problem,
		Pairs:     len(pairs),
		Summaries: record.Summaries,
	}, nil
}

func (c *Client) Studies(ctx context.Context) ([]string, error) {
	return c.store.ListStudies(ctx)
}

func (c *Client) Study(ctx context.Context, id string) (model.StudyRecord, error) {
	study, ok, err := c.store.GetStudy(ctx, id)
	if err != nil {
		return model.StudyRecord{}, err
	}
	if !ok {
		return model.StudyRecord{}, fmt.Errorf("study not found: %s", id)
	}
	return study, nil
}

func (c *Client) Pairs(ctx context.Context, studyID string) ([]model.PairRecord, error) {
	pairs, ok, err := c.store.GetPairs(ctx, studyID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("pairs not found for study: %s", studyID)
	}
	return pairs, nil
}

// sampler wires one worker's evaluator, decoder and factory. Every worker owns
// its interpreter and random source.
func (c *Client) sampler(spec fitness.BenchmarkSpec, worker int, seed int64) (*variation.Sampler, error) {
	rng := rand.New(rand.NewSource(seed))
	in := interp.New()
	logger := c.logger.With("worker", worker)

	p := c.cfg.Problem
	ev, err := fitness.Resolve(spec.Name, fitness.BenchmarkOptions{
		Definition:  p.FitnessDefinition,
		Size:        p.Size,
		Target:      p.Target,
		DataFile:    p.DataFile,
		Split:       p.Split,
		Randomise:   p.Randomise,
		StringCases: p.StringCases,
		Rand:        rng,
		Interpreter: in,
		Logger:      logger,
	})
	if err != nil {
		return nil, err
	}

	g, interpreted, err := c.grammar(spec, ev)
	if err != nil {
		return nil, err
	}
	decoder := &grammar.Decoder{Grammar: g, MaxSteps: c.cfg.Grammar.MaxSteps}
	if interpreted {
		decoder.Interpreter = in
	}

	factory, err := individual.NewFactory(c.cfg.Genome, decoder, ev, rng, logger)
	if err != nil {
		return nil, err
	}
	return variation.NewSampler(factory,
		variation.WithMetrics(c.metrics),
		variation.WithLogger(logger),
	)
}

// grammar resolves the configured override, falling back to the benchmark's
// builtin grammar. Custom grammars are interpreted whenever the benchmark's
// own grammar is.
func (c *Client) grammar(spec fitness.BenchmarkSpec, ev fitness.Evaluator) (*grammar.Grammar, bool, error) {
	nvars := 1
	if a, ok := ev.(fitness.Arity); ok && a.Arity() > 0 {
		nvars = a.Arity()
	}

	gc := c.cfg.Grammar
	switch {
	case gc.BNF != "":
		g, err := grammar.ParseBNF(gc.BNF)
		return g, grammar.Interpreted(spec.Grammar), err
	case gc.File != "":
		data, err := os.ReadFile(gc.File)
		if err != nil {
			return nil, false, fmt.Errorf("read grammar: %w", err)
		}
		g, err := grammar.ParseBNF(string(data))
		if err != nil {
			return nil, false, fmt.Errorf("%s: %w", gc.File, err)
		}
		return g, grammar.Interpreted(spec.Grammar), nil
	case gc.Builtin != "":
		g, err := grammar.Builtin(gc.Builtin, nvars)
		return g, grammar.Interpreted(gc.Builtin), err
	case spec.Grammar != "":
		g, err := grammar.Builtin(spec.Grammar, nvars)
		return g, grammar.Interpreted(spec.Grammar), err
	default:
		return nil, false, errors.New("benchmark has no grammar and none is configured")
	}
}
