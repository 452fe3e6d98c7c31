package distance

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"genoloc/internal/model"
)

func TestLevenshteinReferenceValues(t *testing.T) {
	assert.Equal(t, 3, LevenshteinString("kitten", "sitting"))
	assert.Equal(t, 1, Levenshtein([]int{4, 5, 6, 7}, []int{5, 6, 7}))
	assert.Equal(t, 0, LevenshteinString("", ""))
	assert.Equal(t, 5, LevenshteinString("", "hello"))
	assert.Equal(t, 1, LevenshteinString("héllo", "hello"))
}

func randomWord(rng *rand.Rand) string {
	b := make([]byte, rng.Intn(8))
	for i := range b {
		b[i] = "abc"[rng.Intn(3)]
	}
	return string(b)
}

func TestLevenshteinMetricProperties(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 500; i++ {
		a, b, c := randomWord(rng), randomWord(rng), randomWord(rng)
		ab, ba := LevenshteinString(a, b), LevenshteinString(b, a)
		require.Equal(t, ab, ba, "symmetry %q %q", a, b)
		require.Equal(t, a == b, ab == 0, "identity %q %q", a, b)
		require.LessOrEqual(t, LevenshteinString(a, c), ab+LevenshteinString(b, c), "triangle %q %q %q", a, b, c)
	}
}

func TestHamming(t *testing.T) {
	d, err := Hamming([]int{1, 2, 3, 4}, []int{1, 0, 3, 0})
	require.NoError(t, err)
	assert.Equal(t, 2, d)

	_, err = Hamming([]int{1}, []int{1, 2})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestEuclidean(t *testing.T) {
	d, err := Euclidean([]float64{0, 0}, []float64{3, 4})
	require.NoError(t, err)
	assert.InDelta(t, 5.0, d, 1e-12)

	_, err = Euclidean([]float64{0}, []float64{0, 1})
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func individual(genome []int, phenotype string, semantics []float64, fitness float64) model.Individual {
	return model.Individual{
		Fitness:   fitness,
		Used:      len(genome),
		Genome:    genome,
		Phenotype: &phenotype,
		Semantics: semantics,
	}
}

func TestMetricsDistance(t *testing.T) {
	g := individual([]int{1, 2, 3}, "x0 + 1", []float64{1, 2}, 0.5)
	h := individual([]int{1, 9, 3, 4}, "x0 + 2", []float64{1, 5}, 2.0)

	d, err := Metrics{}.Distance(g, h)
	require.NoError(t, err)
	assert.Equal(t, model.DistanceTuple{Genotype: 2, Phenotype: 1, Semantic: 3, Fitness: 1.5}, d)
}

func TestMetricsDistanceCustomPhenotypeMetric(t *testing.T) {
	g := individual([]int{1}, "abc", []float64{1}, 0)
	h := individual([]int{1}, "abcd", []float64{1}, 0)

	m := Metrics{Phenotype: func(a, b string) float64 { return float64(len(b) - len(a)) }}
	d, err := m.Distance(g, h)
	require.NoError(t, err)
	assert.Equal(t, 1.0, d.Phenotype)
}

func TestMetricsDistanceRejectsFailedIndividuals(t *testing.T) {
	g := individual([]int{1}, "x0", []float64{1}, 0)
	failed := model.Individual{Genome: []int{2}, Fitness: model.WorstFitness(false), Failure: model.FailureExhausted}

	_, err := Metrics{}.Distance(g, failed)
	assert.ErrorIs(t, err, ErrMissingSemantics)
}
