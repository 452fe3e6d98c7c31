package variation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"log/slog"

	"genoloc/internal/individual"
	"genoloc/internal/metrics"
	"genoloc/internal/model"
)

// Sampler produces lazy sequences of matched individual pairs. Each method
// makes n attempts; attempts whose individuals fail to construct are skipped,
// so a sequence may yield fewer than n pairs (or, for crossover, more).
//
// A sequence ends early when the consumer stops iterating, when ctx is done
// (yielding ctx.Err()), or on the first structural error, which is yielded
// with a zero Pair. A Sampler shares its factory's random source and must not
// be used from more than one goroutine.
type Sampler struct {
	factory    *individual.Factory
	mutation   PointMutation
	recombiner Recombiner
	metrics    *metrics.Sampler
	logger     *slog.Logger
}

type Option func(*Sampler)

// WithRecombiner overrides the default one-point recombiner.
func WithRecombiner(r Recombiner) Option {
	return func(s *Sampler) { s.recombiner = r }
}

func WithMetrics(m *metrics.Sampler) Option {
	return func(s *Sampler) { s.metrics = m }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sampler) { s.logger = logger }
}

func NewSampler(factory *individual.Factory, opts ...Option) (*Sampler, error) {
	if factory == nil {
		return nil, errors.New("individual factory is required")
	}
	s := &Sampler{
		factory:  factory,
		mutation: PointMutation{Rand: factory.Rand(), Modulus: factory.Config().Modulus},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.recombiner == nil {
		s.recombiner = OnePointRecombiner{Rand: factory.Rand()}
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s, nil
}

// Pairs dispatches to the sequence of the given regime.
func (s *Sampler) Pairs(ctx context.Context, regime model.Regime, n int) iter.Seq2[model.Pair, error] {
	switch regime {
	case model.RegimeRandom:
		return s.RandomPairs(ctx, n)
	case model.RegimeMutation:
		return s.MutationPairs(ctx, n)
	case model.RegimeCrossover:
		return s.CrossoverPairs(ctx, n)
	default:
		return func(yield func(model.Pair, error) bool) {
			yield(model.Pair{}, fmt.Errorf("unknown variation regime %q", regime))
		}
	}
}

// RandomPairs yields pairs of independently drawn individuals. Both genomes of
// an attempt share one drawn length.
func (s *Sampler) RandomPairs(ctx context.Context, n int) iter.Seq2[model.Pair, error] {
	const regime = model.RegimeRandom
	return func(yield func(model.Pair, error) bool) {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				yield(model.Pair{}, err)
				return
			}
			length := s.factory.RandomLength()
			g, err := s.build(ctx, regime, s.factory.RandomGenomeOfLength(length))
			if err != nil {
				yield(model.Pair{}, err)
				return
			}
			if !g.Valid() {
				continue
			}
			h, err := s.build(ctx, regime, s.factory.RandomGenomeOfLength(length))
			if err != nil {
				yield(model.Pair{}, err)
				return
			}
			if !h.Valid() {
				continue
			}
			if !s.emit(yield, regime, g, h) {
				return
			}
		}
	}
}

// MutationPairs yields (original, mutant) pairs where the mutant's genome is a
// copy of the original's with one used codon replaced.
func (s *Sampler) MutationPairs(ctx context.Context, n int) iter.Seq2[model.Pair, error] {
	const regime = model.RegimeMutation
	return func(yield func(model.Pair, error) bool) {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				yield(model.Pair{}, err)
				return
			}
			g, err := s.build(ctx, regime, s.factory.RandomGenome())
			if err != nil {
				yield(model.Pair{}, err)
				return
			}
			if !g.Valid() {
				continue
			}
			mutant, err := s.mutation.Apply(g.Genome, g.Used)
			if errors.Is(err, ErrNoMutationChoice) {
				s.metrics.ObserveUnmutable(regime)
				continue
			}
			if err != nil {
				yield(model.Pair{}, fmt.Errorf("%s: %w", s.mutation.Name(), err))
				return
			}
			h, err := s.build(ctx, regime, mutant)
			if err != nil {
				yield(model.Pair{}, err)
				return
			}
			if !h.Valid() {
				continue
			}
			if !s.emit(yield, regime, g, h) {
				return
			}
		}
	}
}

// CrossoverPairs recombines two independently drawn parents. Every valid child
// is paired with both parents, so one attempt yields up to four pairs:
// (A, c0), (B, c0), (A, c1), (B, c1).
func (s *Sampler) CrossoverPairs(ctx context.Context, n int) iter.Seq2[model.Pair, error] {
	const regime = model.RegimeCrossover
	return func(yield func(model.Pair, error) bool) {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				yield(model.Pair{}, err)
				return
			}
			a, err := s.build(ctx, regime, s.factory.RandomGenome())
			if err != nil {
				yield(model.Pair{}, err)
				return
			}
			if !a.Valid() {
				continue
			}
			b, err := s.build(ctx, regime, s.factory.RandomGenome())
			if err != nil {
				yield(model.Pair{}, err)
				return
			}
			if !b.Valid() {
				continue
			}

			g0, g1, err := s.recombiner.Recombine(ctx, a, b)
			if err != nil {
				yield(model.Pair{}, fmt.Errorf("recombine: %w", err))
				return
			}
			children := make([]model.Individual, 0, 2)
			for _, genome := range [][]int{g0, g1} {
				c, err := s.build(ctx, regime, genome)
				if err != nil {
					yield(model.Pair{}, err)
					return
				}
				children = append(children, c)
			}
			for _, c := range children {
				if !c.Valid() {
					continue
				}
				if !s.emit(yield, regime, a, c) || !s.emit(yield, regime, b, c) {
					return
				}
			}
		}
	}
}

func (s *Sampler) build(ctx context.Context, regime model.Regime, genome []int) (model.Individual, error) {
	if genome == nil {
		genome = []int{}
	}
	ind, err := s.factory.Build(ctx, genome)
	if err != nil {
		s.logger.Error("individual construction failed",
			"regime", regime,
			"error", err,
		)
		return model.Individual{}, fmt.Errorf("%s: %w", regime, err)
	}
	s.metrics.ObserveIndividual(regime, ind)
	return ind, nil
}

func (s *Sampler) emit(yield func(model.Pair, error) bool, regime model.Regime, base, related model.Individual) bool {
	s.metrics.ObservePair(regime)
	return yield(model.Pair{Regime: regime, Base: base, Related: related}, nil)
}
