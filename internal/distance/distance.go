// Package distance computes genotype, phenotype, semantic and fitness
// distances between individuals.
package distance

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"genoloc/internal/model"
)

var (
	ErrMissingSemantics = errors.New("individual has no phenotype or semantics")
	ErrLengthMismatch   = errors.New("sequence lengths differ")
)

// Levenshtein is the unit-cost insert/delete/substitute edit distance. Working
// memory is two rows sized by the shorter sequence.
func Levenshtein[T comparable](a, b []T) int {
	n, m := len(a), len(b)
	if n > m {
		a, b = b, a
		n, m = m, n
	}

	current := make([]int, n+1)
	previous := make([]int, n+1)
	for j := range current {
		current[j] = j
	}
	for i := 1; i <= m; i++ {
		previous, current = current, previous
		current[0] = i
		for j := 1; j <= n; j++ {
			add, del := previous[j]+1, current[j-1]+1
			change := previous[j-1]
			if a[j-1] != b[i-1] {
				change++
			}
			current[j] = min(add, del, change)
		}
	}
	return current[n]
}

// LevenshteinString is Levenshtein over the runes of two strings.
func LevenshteinString(a, b string) int {
	return Levenshtein([]rune(a), []rune(b))
}

// Hamming counts positions at which equal-length sequences differ.
func Hamming[T comparable](a, b []T) (int, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	d := 0
	for i := range a {
		if a[i] != b[i] {
			d++
		}
	}
	return d, nil
}

// Euclidean is the L2 norm of the difference of two semantics vectors.
func Euclidean(a, b []float64) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("%w: %d != %d", ErrLengthMismatch, len(a), len(b))
	}
	if len(a) == 0 {
		return 0, nil
	}
	return floats.Distance(a, b, 2), nil
}

// Metrics computes the four-way distance tuple. Zero-valued fields use the
// defaults: rune edit distance for phenotypes, Euclidean for semantics.
type Metrics struct {
	Phenotype func(a, b string) float64
	Semantic  func(a, b []float64) (float64, error)
}

// Distance compares two successfully constructed individuals. Each component
// is computed independently.
func (m Metrics) Distance(g, h model.Individual) (model.DistanceTuple, error) {
	if !g.Valid() || !h.Valid() || g.Semantics == nil || h.Semantics == nil {
		return model.DistanceTuple{}, ErrMissingSemantics
	}

	phenotype := m.Phenotype
	if phenotype == nil {
		phenotype = func(a, b string) float64 { return float64(LevenshteinString(a, b)) }
	}
	semantic := m.Semantic
	if semantic == nil {
		semantic = Euclidean
	}

	sem, err := semantic(g.Semantics, h.Semantics)
	if err != nil {
		return model.DistanceTuple{}, fmt.Errorf("semantic distance: %w", err)
	}
	return model.DistanceTuple{
		Genotype:  float64(Levenshtein(g.Genome, h.Genome)),
		Phenotype: phenotype(*g.Phenotype, *h.Phenotype),
		Semantic:  sem,
		Fitness:   math.Abs(g.Fitness - h.Fitness),
	}, nil
}
