package individual

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genoloc/internal/fitness"
	"genoloc/internal/grammar"
	"genoloc/internal/interp"
)

func maxFactory(t *testing.T, cfg Config, seed int64) *Factory {
	t.Helper()
	in := interp.New()
	dec := &grammar.Decoder{Grammar: grammar.MaxArithmetic(), Interpreter: in}
	f, err := NewFactory(cfg, dec, fitness.ArithmeticMax{Interpreter: in}, rand.New(rand.NewSource(seed)), nil)
	require.NoError(t, err)
	return f
}

func TestConfigValidation(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())

	bad := []Config{
		{MinLength: 0, MaxLength: 10, Modulus: 8},
		{MinLength: 10, MaxLength: 5, Modulus: 8},
		{MinLength: 1, MaxLength: 5, Modulus: 1},
		{MinLength: 1, MaxLength: 5, Modulus: 8, Wraps: -1},
	}
	for _, cfg := range bad {
		assert.ErrorIs(t, cfg.Validate(), ErrInvalidConfig, "%+v", cfg)
	}

	_, err := NewFactory(bad[0], &grammar.Decoder{}, fitness.StringMatch{}, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestBuildSuccessfulIndividual(t *testing.T) {
	f := maxFactory(t, Config{MinLength: 5, MaxLength: 5, Modulus: 8}, 1)
	genome := []int{0, 1, 0, 1, 1}

	ind, err := f.Build(context.Background(), genome)
	require.NoError(t, err)
	require.True(t, ind.Valid())
	assert.Equal(t, "(0.5 + 0.5)", ind.PhenotypeText())
	assert.Equal(t, 1.0, ind.Fitness)
	assert.Equal(t, 4, ind.Used)
	assert.Equal(t, []float64{1}, ind.Semantics)
	assert.Equal(t, genome, ind.Genome)

	// The individual owns its genome.
	genome[0] = 1
	assert.Equal(t, 0, ind.Genome[0])
}

func TestBuildExhaustedIndividual(t *testing.T) {
	f := maxFactory(t, Config{MinLength: 2, MaxLength: 2, Modulus: 8}, 1)

	ind, err := f.Build(context.Background(), []int{0, 0})
	require.NoError(t, err)
	assert.False(t, ind.Valid())
	assert.Nil(t, ind.Semantics)
	assert.True(t, math.IsInf(ind.Fitness, -1))
	assert.Equal(t, 2, ind.Used)
	assert.Equal(t, "exhausted", string(ind.Failure))
}

func TestBuildRandomGenomesRespectBounds(t *testing.T) {
	cfg := Config{MinLength: 3, MaxLength: 12, Modulus: 5, Wraps: 1}
	f := maxFactory(t, cfg, 42)
	ctx := context.Background()

	for i := 0; i < 300; i++ {
		ind, err := f.Build(ctx, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, len(ind.Genome), cfg.MinLength)
		assert.LessOrEqual(t, len(ind.Genome), cfg.MaxLength)
		assert.LessOrEqual(t, ind.Used, len(ind.Genome))
		for _, v := range ind.Genome {
			assert.True(t, v >= 0 && v < cfg.Modulus)
		}
		// Phenotype, semantics and the sentinel are absent or present together.
		assert.Equal(t, ind.Valid(), ind.Semantics != nil)
		assert.Equal(t, ind.Valid(), !math.IsInf(ind.Fitness, -1))
	}
}

type stubDecoder struct {
	decoded grammar.Decoded
	err     error
}

func (s stubDecoder) Decode([]int, int, int) (grammar.Decoded, error) {
	return s.decoded, s.err
}

type stubEvaluator struct {
	res fitness.Result
	err error
}

func (stubEvaluator) Name() string   { return "stub" }
func (stubEvaluator) Maximise() bool { return false }
func (s stubEvaluator) Evaluate(context.Context, fitness.Candidate) (fitness.Result, error) {
	return s.res, s.err
}
func (s stubEvaluator) TestEvaluate(ctx context.Context, c fitness.Candidate) (fitness.Result, error) {
	return s.Evaluate(ctx, c)
}

func TestBuildClampsUsedToGenomeLength(t *testing.T) {
	cfg := Config{MinLength: 3, MaxLength: 3, Modulus: 4}
	f, err := NewFactory(cfg,
		stubDecoder{decoded: grammar.Decoded{Phenotype: "p", Used: 9}},
		stubEvaluator{res: fitness.Result{Fitness: 2, Semantics: []float64{2}}}, nil, nil)
	require.NoError(t, err)

	ind, err := f.Build(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3, ind.Used)
}

func TestBuildNumericFailureIsInvalidIndividual(t *testing.T) {
	cfg := Config{MinLength: 3, MaxLength: 3, Modulus: 4}
	f, err := NewFactory(cfg,
		stubDecoder{decoded: grammar.Decoded{Phenotype: "log(0 - 1)", Used: 2}},
		stubEvaluator{res: fitness.Result{Fitness: math.Inf(1), Degraded: true}}, nil, nil)
	require.NoError(t, err)

	ind, err := f.Build(context.Background(), []int{1, 2, 3})
	require.NoError(t, err)
	assert.False(t, ind.Valid())
	assert.Nil(t, ind.Semantics)
	assert.True(t, math.IsInf(ind.Fitness, 1))
	assert.Equal(t, "numeric", string(ind.Failure))
}

func TestBuildSurfacesStructuralFailures(t *testing.T) {
	cfg := Config{MinLength: 3, MaxLength: 3, Modulus: 4}
	boom := errors.New("boom")

	f, err := NewFactory(cfg, stubDecoder{err: boom}, stubEvaluator{}, nil, nil)
	require.NoError(t, err)
	_, err = f.Build(context.Background(), []int{1, 2, 3})
	assert.ErrorIs(t, err, boom)

	f, err = NewFactory(cfg, stubDecoder{decoded: grammar.Decoded{Phenotype: "p"}}, stubEvaluator{err: boom}, nil, nil)
	require.NoError(t, err)
	_, err = f.Build(context.Background(), []int{1, 2, 3})
	assert.ErrorIs(t, err, boom)
}

func TestRandomGenomeOfLength(t *testing.T) {
	f := maxFactory(t, Config{MinLength: 1, MaxLength: 1, Modulus: 3}, 7)
	g := f.RandomGenomeOfLength(50)
	require.Len(t, g, 50)
	for _, v := range g {
		assert.True(t, v >= 0 && v < 3)
	}
}
