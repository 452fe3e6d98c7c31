package locality

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"genoloc/internal/model"
)

// Summarize aggregates records per regime, in AllRegimes order. Regimes with
// no records are omitted.
func Summarize(records []model.PairRecord) []model.RegimeSummary {
	byRegime := make(map[model.Regime][]model.DistanceTuple)
	for _, r := range records {
		byRegime[r.Regime] = append(byRegime[r.Regime], r.Distances)
	}

	var out []model.RegimeSummary
	for _, regime := range AllRegimes() {
		tuples := byRegime[regime]
		if len(tuples) == 0 {
			continue
		}
		out = append(out, summarizeRegime(regime, tuples))
	}
	return out
}

func summarizeRegime(regime model.Regime, tuples []model.DistanceTuple) model.RegimeSummary {
	n := len(tuples)
	genotype := make([]float64, n)
	phenotype := make([]float64, n)
	semantic := make([]float64, n)
	fit := make([]float64, n)
	for i, d := range tuples {
		genotype[i] = d.Genotype
		phenotype[i] = d.Phenotype
		semantic[i] = d.Semantic
		fit[i] = d.Fitness
	}

	return model.RegimeSummary{
		Regime: regime,
		Pairs:  n,
		Mean: model.DistanceTuple{
			Genotype:  stat.Mean(genotype, nil),
			Phenotype: stat.Mean(phenotype, nil),
			Semantic:  stat.Mean(semantic, nil),
			Fitness:   stat.Mean(fit, nil),
		},
		PhenotypeCorrelation: correlation(genotype, phenotype),
		SemanticCorrelation:  correlation(genotype, semantic),
		FitnessCorrelation:   correlation(genotype, fit),
	}
}

// correlation is the Pearson correlation, or 0 where it is undefined.
func correlation(x, y []float64) float64 {
	if len(x) < 2 {
		return 0
	}
	r := stat.Correlation(x, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		return 0
	}
	return r
}
