// Package variation derives related genomes from constructed individuals and
// samples matched pairs of individuals for locality analysis.
package variation

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"slices"

	"genoloc/internal/model"
)

var ErrNoMutationChoice = errors.New("no mutation choice available")

// PointMutation replaces one codon, chosen uniformly within the used region,
// by a uniform value in [0, Modulus).
type PointMutation struct {
	Rand    *rand.Rand
	Modulus int
}

func (o PointMutation) Name() string {
	return "point_mutation"
}

// Apply returns a mutated copy of genome. used is clamped to len(genome); a
// genome with no used codons has no mutation choice.
func (o PointMutation) Apply(genome []int, used int) ([]int, error) {
	used = min(used, len(genome))
	if used <= 0 {
		return nil, ErrNoMutationChoice
	}
	if o.Rand == nil {
		return nil, errors.New("random source is required")
	}
	if o.Modulus <= 0 {
		return nil, fmt.Errorf("modulus must be > 0, got %d", o.Modulus)
	}

	mutated := slices.Clone(genome)
	mutated[o.Rand.Intn(used)] = o.Rand.Intn(o.Modulus)
	return mutated, nil
}

// Recombiner produces two child genomes from two parents. It may use parent
// metadata such as Used; it must not modify the parents.
type Recombiner interface {
	Recombine(ctx context.Context, a, b model.Individual) ([]int, []int, error)
}

// OnePointRecombiner cuts each parent at a point within its used region and
// swaps tails: a[:pa]+b[pb:] and b[:pb]+a[pa:].
type OnePointRecombiner struct {
	Rand *rand.Rand
}

func (o OnePointRecombiner) Name() string {
	return "one_point_crossover"
}

func (o OnePointRecombiner) Recombine(_ context.Context, a, b model.Individual) ([]int, []int, error) {
	if o.Rand == nil {
		return nil, nil, errors.New("random source is required")
	}
	pa := o.Rand.Intn(usedRegion(a) + 1)
	pb := o.Rand.Intn(usedRegion(b) + 1)
	return splice(a.Genome[:pa], b.Genome[pb:]), splice(b.Genome[:pb], a.Genome[pa:]), nil
}

func usedRegion(ind model.Individual) int {
	return max(0, min(ind.Used, len(ind.Genome)))
}

// splice concatenates into a fresh, never nil slice.
func splice(head, tail []int) []int {
	out := make([]int, 0, len(head)+len(tail))
	out = append(out, head...)
	return append(out, tail...)
}
