package fitness

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"genoloc/internal/interp"
	"genoloc/internal/model"
)

var ErrConfig = errors.New("invalid evaluator configuration")

// Candidate is the thing being scored: phenotype text, optionally with an
// already compiled program. Evaluators that need an executable interpret Text
// when Program is nil.
type Candidate struct {
	Text    string
	Program *interp.Program
}

func TextCandidate(text string) Candidate {
	return Candidate{Text: text}
}

func ProgramCandidate(p *interp.Program) Candidate {
	return Candidate{Text: p.Source(), Program: p}
}

// Result is the fitness of one candidate and its semantics (evaluator-specific
// output vector). Degraded results carry the worst fitness and no semantics;
// they signal a numerical or interpretation failure of the candidate.
type Result struct {
	Fitness   float64
	Semantics []float64
	Degraded  bool
}

// Evaluator scores candidates for one problem. Evaluate uses training cases,
// TestEvaluate held-out cases (or the training cases when the problem has no
// separate test set). Errors are reserved for structural failures; numerical
// failures come back as degraded results.
type Evaluator interface {
	Name() string
	Maximise() bool
	Evaluate(ctx context.Context, c Candidate) (Result, error)
	TestEvaluate(ctx context.Context, c Candidate) (Result, error)
}

// Arity is implemented by evaluators whose candidates read input variables.
type Arity interface {
	Arity() int
}

// Worst is the worst possible fitness for the optimisation direction.
func Worst(maximise bool) float64 {
	return model.WorstFitness(maximise)
}

func degraded(maximise bool) Result {
	return Result{Fitness: Worst(maximise), Degraded: true}
}

// programOf returns the candidate's program, interpreting its text if needed.
// ok is false when the text cannot be interpreted.
func programOf(in *interp.Interpreter, c Candidate) (*interp.Program, bool) {
	if c.Program != nil {
		return c.Program, true
	}
	if in == nil {
		in = interp.New()
	}
	p, err := in.Interpret(c.Text)
	if err != nil {
		return nil, false
	}
	return p, true
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
