package locality

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genoloc/internal/fitness"
	"genoloc/internal/grammar"
	"genoloc/internal/individual"
	"genoloc/internal/interp"
	"genoloc/internal/model"
	"genoloc/internal/storage"
	"genoloc/internal/variation"
)

func parityStudy(t *testing.T) Study {
	t.Helper()
	g, err := grammar.Boolean(3)
	require.NoError(t, err)

	return Study{
		ID:       "parity-3",
		Problem:  "even_parity",
		Seed:     17,
		Workers:  3,
		Attempts: 40,
		NewSampler: func(_ int, seed int64) (*variation.Sampler, error) {
			in := interp.New()
			ev, err := fitness.Resolve("even_parity", fitness.BenchmarkOptions{Size: 3, Interpreter: in})
			if err != nil {
				return nil, err
			}
			f, err := individual.NewFactory(
				individual.Config{MinLength: 10, MaxLength: 40, Modulus: 32, Wraps: 2},
				&grammar.Decoder{Grammar: g, Interpreter: in},
				ev, rand.New(rand.NewSource(seed)), nil)
			if err != nil {
				return nil, err
			}
			return variation.NewSampler(f)
		},
	}
}

func TestStudyRunProducesRecordsForEveryRegime(t *testing.T) {
	study, records, err := parityStudy(t).Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, records)

	assert.Equal(t, "parity-3", study.ID)
	assert.Equal(t, 3, study.Workers)
	assert.Equal(t, 40, study.Requested)
	assert.Equal(t, storage.CurrentVersion(), study.VersionedRecord)

	seen := map[model.Regime]int{}
	for i, r := range records {
		assert.Equal(t, i, r.Index)
		assert.GreaterOrEqual(t, r.Worker, 0)
		assert.Less(t, r.Worker, 3)
		assert.NotEmpty(t, r.BasePhenotype)
		assert.NotEmpty(t, r.RelatedPhenotype)
		assert.GreaterOrEqual(t, r.Distances.Genotype, 0.0)
		assert.GreaterOrEqual(t, r.Distances.Phenotype, 0.0)
		assert.GreaterOrEqual(t, r.Distances.Semantic, 0.0)
		assert.GreaterOrEqual(t, r.Distances.Fitness, 0.0)
		seen[r.Regime]++
	}
	for _, s := range study.Summaries {
		assert.Equal(t, seen[s.Regime], s.Pairs)
	}
}

func TestStudyIsReproducibleForASeed(t *testing.T) {
	_, a, err := parityStudy(t).Run(context.Background())
	require.NoError(t, err)
	_, b, err := parityStudy(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestStudyGeneratesIDAndValidates(t *testing.T) {
	s := parityStudy(t)
	s.ID = ""
	s.Attempts = 5
	s.Regimes = []model.Regime{model.RegimeMutation}
	study, records, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, study.ID, 36)
	for _, r := range records {
		assert.Equal(t, model.RegimeMutation, r.Regime)
	}

	s.Workers = 0
	_, _, err = s.Run(context.Background())
	assert.Error(t, err)

	s.Workers = 1
	s.Regimes = []model.Regime{"swap"}
	_, _, err = s.Run(context.Background())
	assert.Error(t, err)
}

func TestStudyStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := parityStudy(t).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestShareSplitsAttempts(t *testing.T) {
	total := 0
	for w := 0; w < 3; w++ {
		total += share(10, 3, w)
	}
	assert.Equal(t, 10, total)
	assert.Equal(t, 4, share(10, 3, 0))
	assert.Equal(t, 3, share(10, 3, 2))
}

func TestPersistRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	study, records, err := parityStudy(t).Run(ctx)
	require.NoError(t, err)
	require.NoError(t, Persist(ctx, store, study, records))

	loaded, ok, err := store.GetStudy(ctx, study.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, study, loaded)

	pairs, ok, err := store.GetPairs(ctx, study.ID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Len(t, pairs, len(records))
}

func TestSummarize(t *testing.T) {
	rec := func(regime model.Regime, g, p, s, f float64) model.PairRecord {
		return model.PairRecord{Regime: regime, Distances: model.DistanceTuple{Genotype: g, Phenotype: p, Semantic: s, Fitness: f}}
	}
	records := []model.PairRecord{
		rec(model.RegimeCrossover, 1, 2, 0, 5),
		rec(model.RegimeMutation, 1, 1, 3, 0),
		rec(model.RegimeMutation, 2, 2, 2, 0),
		rec(model.RegimeMutation, 3, 3, 1, 0),
	}

	summaries := Summarize(records)
	require.Len(t, summaries, 2)
	assert.Equal(t, model.RegimeMutation, summaries[0].Regime)
	assert.Equal(t, model.RegimeCrossover, summaries[1].Regime)

	m := summaries[0]
	assert.Equal(t, 3, m.Pairs)
	assert.Equal(t, model.DistanceTuple{Genotype: 2, Phenotype: 2, Semantic: 2, Fitness: 0}, m.Mean)
	assert.InDelta(t, 1.0, m.PhenotypeCorrelation, 1e-12)
	assert.InDelta(t, -1.0, m.SemanticCorrelation, 1e-12)
	// Constant fitness distance has no defined correlation.
	assert.Equal(t, 0.0, m.FitnessCorrelation)

	c := summaries[1]
	assert.Equal(t, 1, c.Pairs)
	assert.Equal(t, 0.0, c.PhenotypeCorrelation)

	assert.Empty(t, Summarize(nil))
}
