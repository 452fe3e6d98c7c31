// Package config loads locality study configuration from YAML.
//
// Defaults are applied first, then the file is decoded over them (unknown
// keys are rejected), then the result is validated.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"genoloc/internal/fitness"
	"genoloc/internal/individual"
	"genoloc/internal/model"
)

var ErrInvalid = errors.New("invalid config")

// Config is a complete study description.
type Config struct {
	Genome  individual.Config `yaml:"genome"`
	Problem ProblemConfig     `yaml:"problem"`
	Grammar GrammarConfig     `yaml:"grammar"`
	Study   StudyConfig       `yaml:"study"`
	Store   StoreConfig       `yaml:"store"`
	Log     LogConfig         `yaml:"log"`
}

// ProblemConfig selects a registered benchmark and its parameters. Zero values
// leave the benchmark's own defaults in place.
type ProblemConfig struct {
	Benchmark         string               `yaml:"benchmark" validate:"required"`
	FitnessDefinition string               `yaml:"fitness_definition" validate:"omitempty,oneof=rmse correlation hits"`
	DataFile          string               `yaml:"data_file" validate:"required_if=Benchmark data_file"`
	Split             float64              `yaml:"split" validate:"gte=0,lte=1"`
	Randomise         bool                 `yaml:"randomise"`
	Size              int                  `yaml:"size" validate:"gte=0,lte=20"`
	Target            string               `yaml:"target"`
	StringCases       []fitness.StringCase `yaml:"string_cases,omitempty"`
}

// GrammarConfig overrides the benchmark's builtin grammar. At most one of
// Builtin, BNF and File may be set.
type GrammarConfig struct {
	Builtin  string `yaml:"builtin" validate:"excluded_with=BNF File"`
	BNF      string `yaml:"bnf" validate:"excluded_with=File"`
	File     string `yaml:"file"`
	MaxSteps int    `yaml:"max_steps" validate:"gte=0"`
}

type StudyConfig struct {
	ID       string   `yaml:"id"`
	Attempts int      `yaml:"attempts" validate:"gte=0"`
	Workers  int      `yaml:"workers" validate:"gte=1,lte=256"`
	Seed     int64    `yaml:"seed"`
	Regimes  []string `yaml:"regimes" validate:"dive,oneof=random mutation crossover"`
}

type StoreConfig struct {
	Kind string `yaml:"kind" validate:"omitempty,oneof=memory sqlite"`
	Path string `yaml:"path" validate:"required_if=Kind sqlite"`
}

type LogConfig struct {
	Level  string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	Format string `yaml:"format" validate:"omitempty,oneof=text json"`
}

// Default is a small even-parity study kept in memory.
func Default() Config {
	return Config{
		Genome: individual.DefaultConfig(),
		Problem: ProblemConfig{
			Benchmark: "even_parity",
		},
		Study: StudyConfig{
			Attempts: 100,
			Workers:  1,
			Seed:     1,
			Regimes:  []string{"random", "mutation", "crossover"},
		},
		Store: StoreConfig{Kind: "memory"},
		Log:   LogConfig{Level: "info", Format: "text"},
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if _, err := fitness.LookupBenchmark(c.Problem.Benchmark); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

// Regimes converts the configured regime names.
func (c Config) Regimes() []model.Regime {
	out := make([]model.Regime, 0, len(c.Study.Regimes))
	for _, r := range c.Study.Regimes {
		out = append(out, model.Regime(r))
	}
	return out
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Load reads and parses the study file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	cfg, err := Parse(data)
	if err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Marshal renders cfg as YAML.
func Marshal(cfg Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}

// NewLogger builds the slog logger described by c, writing to w.
func (c LogConfig) NewLogger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(c.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	opts := &slog.HandlerOptions{Level: level}
	if strings.EqualFold(c.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
