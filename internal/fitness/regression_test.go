package fitness

import (
	"bytes"
	"context"
	"log/slog"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genoloc/internal/dataset"
	"genoloc/internal/interp"
)

func identityProblem(t *testing.T, defn string) *SymbolicRegression {
	t.Helper()
	sr, err := NewSymbolicRegressionFromTarget(
		func(x []float64) float64 { return x[0] },
		CaseSpec{Min: []float64{0}, Max: []float64{1}, Increment: []float64{0.1}},
		nil, defn, nil)
	require.NoError(t, err)
	return sr
}

func TestBuildMeshTwoDimensional(t *testing.T) {
	mesh, err := BuildMesh([]float64{0, 0}, []float64{2, 2}, []float64{0.1, 1.0})
	require.NoError(t, err)
	require.Len(t, mesh, 21*3)

	assert.Equal(t, []float64{0, 0}, mesh[0])
	assert.Equal(t, []float64{0, 1}, mesh[1])
	assert.Equal(t, []float64{0, 2}, mesh[2])
	last := mesh[len(mesh)-1]
	assert.InDelta(t, 2.0, last[0], 1e-9)
	assert.Equal(t, 2.0, last[1])
}

func TestBuildMeshRejectsBadBounds(t *testing.T) {
	_, err := BuildMesh([]float64{0, 0}, []float64{1}, []float64{0.1, 0.1})
	assert.ErrorIs(t, err, ErrConfig)
	_, err = BuildMesh([]float64{1}, []float64{0}, []float64{0.1})
	assert.ErrorIs(t, err, ErrConfig)
	_, err = BuildMesh([]float64{0}, []float64{1}, []float64{0})
	assert.ErrorIs(t, err, ErrConfig)
}

func TestBuildRandomCases(t *testing.T) {
	points, err := BuildRandomCases([]float64{0, -1}, []float64{2, 1}, 100, rand.New(rand.NewSource(9)))
	require.NoError(t, err)
	require.Len(t, points, 100)
	for _, p := range points {
		assert.GreaterOrEqual(t, p[0], 0.0)
		assert.LessOrEqual(t, p[0], 2.0)
		assert.GreaterOrEqual(t, p[1], -1.0)
		assert.LessOrEqual(t, p[1], 1.0)
	}

	_, err = BuildRandomCases([]float64{0}, []float64{1}, 10, nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSymbolicRegressionIdentityRMSE(t *testing.T) {
	sr := identityProblem(t, "rmse")
	assert.False(t, sr.Maximise())
	assert.Equal(t, 1, sr.Arity())
	assert.Equal(t, 11, sr.TrainingCases().Len())

	res, err := sr.Evaluate(context.Background(), TextCandidate("x0"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)
	assert.Len(t, res.Semantics, 11)

	res, err = sr.Evaluate(context.Background(), TextCandidate("x0 + 1"))
	require.NoError(t, err)
	assert.InDelta(t, 1.0, res.Fitness, 1e-12)

	// Without test specs the test set mirrors training.
	test, err := sr.TestEvaluate(context.Background(), TextCandidate("x0"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, test.Fitness)
}

func TestSymbolicRegressionCorrelation(t *testing.T) {
	sr := identityProblem(t, "correlation")
	ctx := context.Background()

	res, err := sr.Evaluate(ctx, TextCandidate("2 * x0 + 3"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Fitness, 1e-12)

	// Constant predictions have undefined correlation, mapped to r = 0.
	res, err = sr.Evaluate(ctx, TextCandidate("1.5"))
	require.NoError(t, err)
	assert.Equal(t, 1.0, res.Fitness)
	assert.False(t, res.Degraded)
}

func TestSymbolicRegressionHits(t *testing.T) {
	sr := identityProblem(t, "hits")
	assert.True(t, sr.Maximise())

	res, err := sr.Evaluate(context.Background(), TextCandidate("x0"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)

	res, err = sr.Evaluate(context.Background(), TextCandidate("0"))
	require.NoError(t, err)
	assert.InDelta(t, 1-1.0/11, res.Fitness, 1e-12)
}

func TestSymbolicRegressionRejectsBadDefinition(t *testing.T) {
	_, err := NewSymbolicRegressionFromTarget(
		func(x []float64) float64 { return x[0] },
		CaseSpec{Min: []float64{0}, Max: []float64{1}, Increment: []float64{0.1}},
		nil, "mae", nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSymbolicRegressionNumericFailureIsWorstFitness(t *testing.T) {
	sr := identityProblem(t, "rmse")
	res, err := sr.Evaluate(context.Background(), TextCandidate("log(x0 - 1)"))
	require.NoError(t, err)
	assert.True(t, res.Degraded)
	assert.True(t, math.IsInf(res.Fitness, 1))
	assert.Nil(t, res.Semantics)

	hits := identityProblem(t, "hits")
	res, err = hits.Evaluate(context.Background(), TextCandidate("sqrt(0 - x0 - 1)"))
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.Fitness, -1))
}

func TestSymbolicRegressionIntermediateOverflowIsWorstFitness(t *testing.T) {
	ev, err := Resolve("pagie_2d", BenchmarkOptions{})
	require.NoError(t, err)
	for _, src := range []string{"(1.0 / exp(exp(exp(x0))))", "(1.0 / (x0 / (x0 - x0)))"} {
		res, err := ev.Evaluate(context.Background(), TextCandidate(src))
		require.NoError(t, err, src)
		assert.True(t, res.Degraded, src)
		assert.True(t, math.IsInf(res.Fitness, 1), src)
		assert.Nil(t, res.Semantics, src)
	}
}

func TestSymbolicRegressionStructuralFailureIsLoggedAndReturned(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))
	sr, err := NewSymbolicRegressionFromTarget(
		func(x []float64) float64 { return x[0] },
		CaseSpec{Min: []float64{0}, Max: []float64{1}, Increment: []float64{0.5}},
		nil, "rmse", nil, WithLogger(logger))
	require.NoError(t, err)

	_, err = sr.Evaluate(context.Background(), TextCandidate("x0 > 0.5"))
	require.Error(t, err)
	assert.ErrorIs(t, err, interp.ErrResultType)
	assert.Contains(t, buf.String(), "candidate failed structurally")
}

func TestSymbolicRegressionDisjointTestRegions(t *testing.T) {
	sr, err := NewSymbolicRegressionFromTarget(
		func(x []float64) float64 { return x[0] * x[0] },
		CaseSpec{Min: []float64{-1}, Max: []float64{1}, Increment: []float64{0.5}},
		[]CaseSpec{
			{Min: []float64{-3}, Max: []float64{-2}, Increment: []float64{0.5}},
			{Min: []float64{2}, Max: []float64{3}, Increment: []float64{0.5}},
		},
		"rmse", nil)
	require.NoError(t, err)
	assert.Equal(t, 5, sr.TrainingCases().Len())
	assert.Equal(t, 6, sr.TestingCases().Len())

	res, err := sr.TestEvaluate(context.Background(), TextCandidate("square(x0)"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Fitness, 1e-12)

	_, err = NewSymbolicRegressionFromTarget(
		func(x []float64) float64 { return x[0] },
		CaseSpec{Min: []float64{0}, Max: []float64{1}, Increment: []float64{0.5}},
		make([]CaseSpec, 3), "rmse", nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestSymbolicRegressionFromDataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sum.txt")
	data := "1 2 3\n2 3 5\n3 4 7\n4 5 9\n5 6 11\n6 7 13\n7 8 15\n8 9 17\n9 10 19\n10 11 21\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	ev, err := Resolve("data_file", BenchmarkOptions{DataFile: path, Split: 0.8})
	require.NoError(t, err)
	sr, ok := ev.(*SymbolicRegression)
	require.True(t, ok)
	assert.Equal(t, 8, sr.TrainingCases().Len())
	assert.Equal(t, 2, sr.TestingCases().Len())

	res, err := sr.TestEvaluate(context.Background(), TextCandidate("x0 + x1"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)

	table, err := dataset.ReadTableFile(path)
	require.NoError(t, err)
	train, test, err := table.Split(0.5, rand.New(rand.NewSource(2)))
	require.NoError(t, err)
	shuffled, err := NewSymbolicRegressionFromTables(train, test, "rmse")
	require.NoError(t, err)
	res, err = shuffled.Evaluate(context.Background(), TextCandidate("x0 + x1"))
	require.NoError(t, err)
	assert.Equal(t, 0.0, res.Fitness)
}

func TestRegistryBenchmarks(t *testing.T) {
	names := ListBenchmarks()
	for _, want := range []string{"identity", "vladislavleva_12", "pagie_2d", "pagie_3d", "even_parity", "string_match", "size", "max", "random"} {
		assert.Contains(t, names, want)
	}

	ev, err := Resolve("pagie_2d", BenchmarkOptions{})
	require.NoError(t, err)
	res, err := ev.Evaluate(context.Background(),
		TextCandidate("1 / (1 + pow(x0, 0 - 4)) + 1 / (1 + pow(x1, 0 - 4))"))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Fitness, 1e-9)

	ev, err = Resolve("even_parity", BenchmarkOptions{Size: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, ev.(Arity).Arity())

	ev, err = Resolve("multiplexer", BenchmarkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 6, ev.(Arity).Arity())
	ev, err = Resolve("multiplexer", BenchmarkOptions{Size: 11})
	require.NoError(t, err)
	assert.Equal(t, 11, ev.(Arity).Arity())
	_, err = Resolve("multiplexer", BenchmarkOptions{Size: 5})
	assert.ErrorIs(t, err, ErrConfig)

	ev, err = Resolve("size", BenchmarkOptions{})
	require.NoError(t, err)
	assert.Equal(t, SizeTarget{Target: 20}, ev)

	// Compound candidates must bind at every posed size.
	ev, err = Resolve("even_parity_compound", BenchmarkOptions{})
	require.NoError(t, err)
	assert.Equal(t, 3, ev.(Arity).Arity())
	_, err = ev.Evaluate(context.Background(), TextCandidate("xor(x0, xor(x1, x2))"))
	require.NoError(t, err)

	_, err = Resolve("nope", BenchmarkOptions{})
	assert.ErrorIs(t, err, ErrBenchmarkNotFound)

	err = RegisterBenchmark(BenchmarkSpec{Name: "identity", New: func(BenchmarkOptions) (Evaluator, error) { return nil, nil }})
	assert.ErrorIs(t, err, ErrBenchmarkExists)
}
