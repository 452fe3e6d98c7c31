// Package individual constructs scored Individuals from integer genomes.
package individual

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"genoloc/internal/fitness"
	"genoloc/internal/grammar"
	"genoloc/internal/model"
)

// ErrInvalidConfig wraps validation failures of Config.
var ErrInvalidConfig = errors.New("invalid individual config")

// Config bounds the genomes a Factory synthesises and decodes.
type Config struct {
	MinLength int `yaml:"min_length" validate:"gte=1"`
	MaxLength int `yaml:"max_length" validate:"gtefield=MinLength"`
	Modulus   int `yaml:"modulus" validate:"gt=1"`
	Wraps     int `yaml:"wraps" validate:"gte=0"`
}

// DefaultConfig matches the genome bounds commonly used for grammar decoding.
func DefaultConfig() Config {
	return Config{MinLength: 50, MaxLength: 200, Modulus: 128, Wraps: 0}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the bounds. Errors wrap ErrInvalidConfig.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Decoder maps a genome to a phenotype. Running out of genome material must be
// reported with an error matching grammar.ErrExhausted.
type Decoder interface {
	Decode(genome []int, modulus, wraps int) (grammar.Decoded, error)
}

// Factory builds Individuals. It holds no state besides its configuration and
// random source, which must not be shared with other goroutines.
type Factory struct {
	cfg       Config
	decoder   Decoder
	evaluator fitness.Evaluator
	rng       *rand.Rand
	logger    *slog.Logger
}

func NewFactory(cfg Config, decoder Decoder, evaluator fitness.Evaluator, rng *rand.Rand, logger *slog.Logger) (*Factory, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if decoder == nil {
		return nil, errors.New("decoder is required")
	}
	if evaluator == nil {
		return nil, errors.New("evaluator is required")
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Factory{cfg: cfg, decoder: decoder, evaluator: evaluator, rng: rng, logger: logger}, nil
}

func (f *Factory) Config() Config {
	return f.cfg
}

func (f *Factory) Evaluator() fitness.Evaluator {
	return f.evaluator
}

// Rand is the factory's random source, shared with the operators of one sampler.
func (f *Factory) Rand() *rand.Rand {
	return f.rng
}

// RandomLength draws a genome length in [MinLength, MaxLength].
func (f *Factory) RandomLength() int {
	return f.cfg.MinLength + f.rng.Intn(f.cfg.MaxLength-f.cfg.MinLength+1)
}

// RandomGenome draws a genome of random length.
func (f *Factory) RandomGenome() []int {
	return f.RandomGenomeOfLength(f.RandomLength())
}

// RandomGenomeOfLength draws n codons in [0, Modulus).
func (f *Factory) RandomGenomeOfLength(n int) []int {
	g := make([]int, n)
	for i := range g {
		g[i] = f.rng.Intn(f.cfg.Modulus)
	}
	return g
}

// Build decodes and scores genome. A nil genome is replaced by a random one.
// Exhaustion and numerical evaluation failures produce an invalid Individual
// with the worst fitness; only structural failures are returned as errors.
func (f *Factory) Build(ctx context.Context, genome []int) (model.Individual, error) {
	if genome == nil {
		genome = f.RandomGenome()
	} else {
		genome = slices.Clone(genome)
	}

	decoded, err := f.decoder.Decode(genome, f.cfg.Modulus, f.cfg.Wraps)
	if errors.Is(err, grammar.ErrExhausted) {
		f.logger.Debug("genome exhausted",
			"length", len(genome),
			"used", decoded.Used,
		)
		return f.failed(genome, decoded.Used, model.FailureExhausted), nil
	}
	if err != nil {
		return model.Individual{}, fmt.Errorf("decode genome: %w", err)
	}

	candidate := fitness.TextCandidate(decoded.Phenotype)
	if decoded.Program != nil {
		candidate = fitness.ProgramCandidate(decoded.Program)
	}
	res, err := f.evaluator.Evaluate(ctx, candidate)
	if err != nil {
		return model.Individual{}, fmt.Errorf("evaluate %q: %w", decoded.Phenotype, err)
	}
	if res.Degraded || math.IsNaN(res.Fitness) || res.Fitness == f.worst() {
		f.logger.Debug("evaluation degraded",
			"evaluator", f.evaluator.Name(),
			"phenotype", decoded.Phenotype,
		)
		return f.failed(genome, decoded.Used, model.FailureNumeric), nil
	}

	phenotype := decoded.Phenotype
	semantics := res.Semantics
	if semantics == nil {
		semantics = []float64{}
	}
	return model.Individual{
		Fitness:   res.Fitness,
		Used:      clampUsed(decoded.Used, len(genome)),
		Genome:    genome,
		Phenotype: &phenotype,
		Semantics: semantics,
	}, nil
}

func (f *Factory) failed(genome []int, used int, reason model.Failure) model.Individual {
	return model.Individual{
		Fitness: f.worst(),
		Used:    clampUsed(used, len(genome)),
		Genome:  genome,
		Failure: reason,
	}
}

func (f *Factory) worst() float64 {
	return model.WorstFitness(f.evaluator.Maximise())
}

func clampUsed(used, n int) int {
	return max(0, min(used, n))
}
