// Package locality builds locality datasets: pairs sampled under each
// variation regime, their distance tuples, and per-regime summaries relating
// genotype distance to phenotype, semantic and fitness distance.
package locality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"genoloc/internal/distance"
	"genoloc/internal/model"
	"genoloc/internal/storage"
	"genoloc/internal/variation"
)

// SamplerFunc builds the sampler of one worker. Each worker must get its own
// random source; seed is derived from the study seed and the worker index.
type SamplerFunc func(worker int, seed int64) (*variation.Sampler, error)

// Study samples Attempts pair attempts per regime, split across Workers.
type Study struct {
	ID       string
	Problem  string
	Seed     int64
	Workers  int
	Attempts int
	Regimes  []model.Regime

	NewSampler SamplerFunc
	Metrics    distance.Metrics
	Logger     *slog.Logger
}

// AllRegimes lists the variation regimes in reporting order.
func AllRegimes() []model.Regime {
	return []model.Regime{model.RegimeRandom, model.RegimeMutation, model.RegimeCrossover}
}

func (s Study) validate() error {
	if s.NewSampler == nil {
		return errors.New("sampler constructor is required")
	}
	if s.Workers <= 0 {
		return fmt.Errorf("workers must be > 0, got %d", s.Workers)
	}
	if s.Attempts < 0 {
		return fmt.Errorf("attempts must be >= 0, got %d", s.Attempts)
	}
	for _, r := range s.Regimes {
		if !r.Valid() {
			return fmt.Errorf("unknown variation regime %q", r)
		}
	}
	return nil
}

// Run samples every regime and returns the study record with its pair records.
// Pair records are ordered by worker, then regime, then sampling order.
func (s Study) Run(ctx context.Context) (model.StudyRecord, []model.PairRecord, error) {
	if err := s.validate(); err != nil {
		return model.StudyRecord{}, nil, err
	}
	regimes := s.Regimes
	if len(regimes) == 0 {
		regimes = AllRegimes()
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := s.ID
	if id == "" {
		id = uuid.NewString()
	}

	start := time.Now()
	perWorker := make([][]model.PairRecord, s.Workers)
	g, gctx := errgroup.WithContext(ctx)
	for w := 0; w < s.Workers; w++ {
		attempts := share(s.Attempts, s.Workers, w)
		g.Go(func() error {
			records, err := s.runWorker(gctx, w, attempts, regimes)
			if err != nil {
				return fmt.Errorf("worker %d: %w", w, err)
			}
			perWorker[w] = records
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return model.StudyRecord{}, nil, err
	}

	var records []model.PairRecord
	for _, batch := range perWorker {
		records = append(records, batch...)
	}
	for i := range records {
		records[i].Index = i
	}

	study := model.StudyRecord{
		VersionedRecord: storage.CurrentVersion(),
		ID:              id,
		Problem:         s.Problem,
		Seed:            s.Seed,
		Workers:         s.Workers,
		Requested:       s.Attempts,
		Summaries:       Summarize(records),
	}
	logger.Info("locality study complete",
		"study", id,
		"problem", s.Problem,
		"pairs", len(records),
		"elapsed", time.Since(start),
	)
	return study, records, nil
}

func (s Study) runWorker(ctx context.Context, worker, attempts int, regimes []model.Regime) ([]model.PairRecord, error) {
	sampler, err := s.NewSampler(worker, s.Seed+int64(worker))
	if err != nil {
		return nil, fmt.Errorf("build sampler: %w", err)
	}

	var records []model.PairRecord
	for _, regime := range regimes {
		for pair, err := range sampler.Pairs(ctx, regime, attempts) {
			if err != nil {
				return nil, err
			}
			d, err := s.Metrics.Distance(pair.Base, pair.Related)
			if err != nil {
				return nil, fmt.Errorf("%s pair distance: %w", regime, err)
			}
			records = append(records, model.PairRecord{
				VersionedRecord:  storage.CurrentVersion(),
				Regime:           regime,
				Worker:           worker,
				BasePhenotype:    pair.Base.PhenotypeText(),
				RelatedPhenotype: pair.Related.PhenotypeText(),
				BaseFitness:      pair.Base.Fitness,
				RelatedFitness:   pair.Related.Fitness,
				Distances:        d,
			})
		}
	}
	return records, nil
}

// share splits total attempts across workers, giving the remainder to the
// lowest worker indices.
func share(total, workers, w int) int {
	n := total / workers
	if w < total%workers {
		n++
	}
	return n
}

// Persist saves the study and its pairs.
func Persist(ctx context.Context, store storage.Store, study model.StudyRecord, records []model.PairRecord) error {
	if err := store.SaveStudy(ctx, study); err != nil {
		return fmt.Errorf("save study %s: %w", study.ID, err)
	}
	if err := store.SavePairs(ctx, study.ID, records); err != nil {
		return fmt.Errorf("save pairs of study %s: %w", study.ID, err)
	}
	return nil
}
