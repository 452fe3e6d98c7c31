package model

import "math"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Failure names why an individual could not be scored.
type Failure string

const (
	FailureNone      Failure = ""
	FailureExhausted Failure = "exhausted"
	FailureNumeric   Failure = "numeric"
)

// Individual is an immutable snapshot of one decoded and scored genome.
// Phenotype and Semantics are nil together, and exactly when Fitness holds the
// worst-fitness sentinel.
type Individual struct {
	Fitness   float64
	Used      int
	Genome    []int
	Phenotype *string
	Semantics []float64
	Failure   Failure
}

// Valid reports whether the individual decoded and evaluated successfully.
func (i Individual) Valid() bool {
	return i.Phenotype != nil
}

// PhenotypeText returns the phenotype or the empty string for failed individuals.
func (i Individual) PhenotypeText() string {
	if i.Phenotype == nil {
		return ""
	}
	return *i.Phenotype
}

// WorstFitness is the sentinel assigned to individuals that failed construction.
func WorstFitness(maximise bool) float64 {
	if maximise {
		return math.Inf(-1)
	}
	return math.Inf(1)
}

type Regime string

const (
	RegimeRandom    Regime = "random"
	RegimeMutation  Regime = "mutation"
	RegimeCrossover Regime = "crossover"
)

func (r Regime) Valid() bool {
	switch r {
	case RegimeRandom, RegimeMutation, RegimeCrossover:
		return true
	default:
		return false
	}
}

// Pair is a base individual and an individual related to it by a variation regime.
type Pair struct {
	Regime  Regime
	Base    Individual
	Related Individual
}

// DistanceTuple holds the four locality distances between two individuals.
type DistanceTuple struct {
	Genotype  float64 `json:"genotype"`
	Phenotype float64 `json:"phenotype"`
	Semantic  float64 `json:"semantic"`
	Fitness   float64 `json:"fitness"`
}

// PairRecord is one row of a locality dataset.
type PairRecord struct {
	VersionedRecord
	Regime           Regime        `json:"regime"`
	Index            int           `json:"index"`
	Worker           int           `json:"worker"`
	BasePhenotype    string        `json:"base_phenotype"`
	RelatedPhenotype string        `json:"related_phenotype"`
	BaseFitness      float64       `json:"base_fitness"`
	RelatedFitness   float64       `json:"related_fitness"`
	Distances        DistanceTuple `json:"distances"`
}

// RegimeSummary aggregates the pair records of one regime.
type RegimeSummary struct {
	Regime Regime        `json:"regime"`
	Pairs  int           `json:"pairs"`
	Mean   DistanceTuple `json:"mean"`
	// Correlations of genotype distance with the phenotype, semantic and
	// fitness distances. NaN-free: undefined correlations are reported as 0.
	PhenotypeCorrelation float64 `json:"phenotype_correlation"`
	SemanticCorrelation  float64 `json:"semantic_correlation"`
	FitnessCorrelation   float64 `json:"fitness_correlation"`
}

// StudyRecord describes one locality study run.
type StudyRecord struct {
	VersionedRecord
	ID        string          `json:"id"`
	Problem   string          `json:"problem"`
	Seed      int64           `json:"seed"`
	Workers   int             `json:"workers"`
	Requested int             `json:"requested"`
	Summaries []RegimeSummary `json:"summaries"`
}
