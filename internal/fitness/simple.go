package fitness

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"unicode/utf8"

	"genoloc/internal/distance"
	"genoloc/internal/interp"
)

// Random ignores the candidate and returns a uniform value in [0, 1). Useful
// for studying dynamics without selection pressure.
type Random struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func NewRandom(rng *rand.Rand) *Random {
	if rng == nil {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}
	return &Random{rng: rng}
}

func (*Random) Name() string   { return "random" }
func (*Random) Maximise() bool { return false }

func (r *Random) Evaluate(_ context.Context, _ Candidate) (Result, error) {
	r.mu.Lock()
	v := r.rng.Float64()
	r.mu.Unlock()
	return Result{Fitness: v, Semantics: []float64{v}}, nil
}

func (r *Random) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return r.Evaluate(ctx, c)
}

// SizeTarget scores the distance of the candidate's length from a target size.
type SizeTarget struct {
	Target int
}

func NewSizeTarget(target int) (SizeTarget, error) {
	if target < 0 {
		return SizeTarget{}, fmt.Errorf("%w: target size must be >= 0, got %d", ErrConfig, target)
	}
	return SizeTarget{Target: target}, nil
}

func (SizeTarget) Name() string   { return "size" }
func (SizeTarget) Maximise() bool { return false }

func (s SizeTarget) Evaluate(_ context.Context, c Candidate) (Result, error) {
	n := utf8.RuneCountInString(c.Text)
	return Result{
		Fitness:   math.Abs(float64(s.Target - n)),
		Semantics: []float64{float64(n)},
	}, nil
}

func (s SizeTarget) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return s.Evaluate(ctx, c)
}

// ArithmeticMax interprets the candidate as an arithmetic expression and
// maximises its value.
type ArithmeticMax struct {
	Interpreter *interp.Interpreter
}

func (ArithmeticMax) Name() string   { return "max" }
func (ArithmeticMax) Maximise() bool { return true }

func (m ArithmeticMax) Evaluate(ctx context.Context, c Candidate) (Result, error) {
	prog, ok := programOf(m.Interpreter, c)
	if !ok {
		return degraded(true), nil
	}
	v, err := prog.Float(ctx, nil)
	if errors.Is(err, interp.ErrNumeric) {
		return degraded(true), nil
	}
	if err != nil {
		return Result{}, err
	}
	return Result{Fitness: v, Semantics: []float64{v}}, nil
}

func (m ArithmeticMax) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return m.Evaluate(ctx, c)
}

// StringMatch scores the edit distance between the candidate text and a target.
type StringMatch struct {
	Target string
}

func (StringMatch) Name() string   { return "string-match" }
func (StringMatch) Maximise() bool { return false }

func (s StringMatch) Evaluate(_ context.Context, c Candidate) (Result, error) {
	d := float64(distance.LevenshteinString(s.Target, c.Text))
	return Result{Fitness: d, Semantics: []float64{d}}, nil
}

func (s StringMatch) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return s.Evaluate(ctx, c)
}

// StringCase is one input/expected-output example for string processing.
type StringCase struct {
	Input    string `yaml:"input"`
	Expected string `yaml:"expected"`
}

// StringProcessing scores programs mapping the input string variable s to an
// output string: the sum of edit distances to the expected outputs.
type StringProcessing struct {
	Cases       []StringCase
	Interpreter *interp.Interpreter
}

func NewStringProcessing(cases []StringCase, in *interp.Interpreter) (*StringProcessing, error) {
	if len(cases) == 0 {
		return nil, fmt.Errorf("%w: string processing needs at least one case", ErrConfig)
	}
	return &StringProcessing{Cases: append([]StringCase(nil), cases...), Interpreter: in}, nil
}

func (*StringProcessing) Name() string   { return "string-processing" }
func (*StringProcessing) Maximise() bool { return false }

func (s *StringProcessing) Evaluate(ctx context.Context, c Candidate) (Result, error) {
	prog, ok := programOf(s.Interpreter, c)
	if !ok {
		return degraded(false), nil
	}
	total := 0.0
	per := make([]float64, 0, len(s.Cases))
	for _, sc := range s.Cases {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		out, err := prog.Text(ctx, interp.Vars{"s": sc.Input})
		if err != nil {
			return Result{}, fmt.Errorf("string processing case %q: %w", sc.Input, err)
		}
		d := float64(distance.LevenshteinString(sc.Expected, out))
		per = append(per, d)
		total += d
	}
	return Result{Fitness: total, Semantics: per}, nil
}

func (s *StringProcessing) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return s.Evaluate(ctx, c)
}
