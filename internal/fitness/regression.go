package fitness

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"genoloc/internal/dataset"
	"genoloc/internal/interp"
)

// ErrorDefinition selects how predictions are compared with targets.
type ErrorDefinition string

const (
	RMSE        ErrorDefinition = "rmse"
	Correlation ErrorDefinition = "correlation"
	Hits        ErrorDefinition = "hits"
)

// HitThreshold is the absolute error below which a case counts as a hit.
const HitThreshold = 0.01

// ParseErrorDefinition validates a fitness definition keyword. Empty means rmse.
func ParseErrorDefinition(s string) (ErrorDefinition, error) {
	switch d := ErrorDefinition(strings.ToLower(strings.TrimSpace(s))); d {
	case "":
		return RMSE, nil
	case RMSE, Correlation, Hits:
		return d, nil
	default:
		return "", fmt.Errorf("%w: bad value for fitness definition: %q", ErrConfig, s)
	}
}

// RootMeanSquareError is sqrt(mean((y - yhat)^2)).
func RootMeanSquareError(y, yhat []float64) float64 {
	if len(y) == 0 {
		return 0
	}
	return floats.Distance(y, yhat, 2) / math.Sqrt(float64(len(y)))
}

// CorrelationFitness is 1 - r^2 for the Pearson correlation r of predictions
// and targets. Undefined correlations (constant predictions or targets) count
// as r = 0.
func CorrelationFitness(y, yhat []float64) float64 {
	r := stat.Correlation(yhat, y, nil)
	if math.IsNaN(r) || math.IsInf(r, 0) {
		r = 0
	}
	r = math.Abs(r)
	return 1 - r*r
}

// HitsFitness is 1 minus the fraction of cases with |error| < HitThreshold.
func HitsFitness(y, yhat []float64) float64 {
	if len(y) == 0 {
		return 1
	}
	hits := 0
	for i := range y {
		if math.Abs(y[i]-yhat[i]) < HitThreshold {
			hits++
		}
	}
	return 1 - float64(hits)/float64(len(y))
}

// SymbolicRegression scores programs over numeric input variables against a
// target vector. Numerical failures of a candidate give the worst fitness;
// structural failures (wrong result type, unknown variables) are logged and
// returned.
type SymbolicRegression struct {
	name     string
	train    Cases
	test     Cases
	defn     ErrorDefinition
	errorFn  func(y, yhat []float64) float64
	maximise bool

	interpreter *interp.Interpreter
	logger      *slog.Logger
}

type Option func(*SymbolicRegression)

func WithName(name string) Option {
	return func(s *SymbolicRegression) { s.name = name }
}

func WithInterpreter(in *interp.Interpreter) Option {
	return func(s *SymbolicRegression) { s.interpreter = in }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *SymbolicRegression) { s.logger = logger }
}

// NewSymbolicRegression builds an evaluator over prepared case sets. A test set
// with no cases mirrors the training set.
func NewSymbolicRegression(train, test Cases, defn string, opts ...Option) (*SymbolicRegression, error) {
	d, err := ParseErrorDefinition(defn)
	if err != nil {
		return nil, err
	}
	if train.Len() == 0 {
		return nil, fmt.Errorf("%w: symbolic regression needs training cases", ErrConfig)
	}
	if test.Len() == 0 {
		test = train
	}
	if test.Arity() != train.Arity() {
		return nil, fmt.Errorf("%w: test arity %d differs from training arity %d", ErrConfig, test.Arity(), train.Arity())
	}

	s := &SymbolicRegression{name: "symbolic-regression", train: train, test: test, defn: d}
	switch d {
	case RMSE:
		s.errorFn = RootMeanSquareError
	case Correlation:
		s.errorFn = CorrelationFitness
	case Hits:
		s.errorFn = HitsFitness
		s.maximise = true
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.interpreter == nil {
		s.interpreter = interp.New()
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}
	return s, nil
}

// NewSymbolicRegressionFromTarget generates training inputs from train and
// applies target once over them. tests may hold zero specs (test mirrors
// train), one spec, or two specs whose points are concatenated for problems
// tested on two disjoint regions. rng is required for random specs.
func NewSymbolicRegressionFromTarget(target TargetFunc, train CaseSpec, tests []CaseSpec, defn string, rng *rand.Rand, opts ...Option) (*SymbolicRegression, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: target function is required", ErrConfig)
	}
	if len(tests) > 2 {
		return nil, fmt.Errorf("%w: at most two testing case specs, got %d", ErrConfig, len(tests))
	}
	trainPoints, err := train.Build(rng)
	if err != nil {
		return nil, fmt.Errorf("training cases: %w", err)
	}
	trainCases, err := casesFromPoints(trainPoints, target)
	if err != nil {
		return nil, err
	}

	var testCases Cases
	if len(tests) > 0 {
		var testPoints [][]float64
		for i, spec := range tests {
			points, err := spec.Build(rng)
			if err != nil {
				return nil, fmt.Errorf("testing cases %d: %w", i, err)
			}
			testPoints = append(testPoints, points...)
		}
		testCases, err = casesFromPoints(testPoints, target)
		if err != nil {
			return nil, err
		}
	}
	return NewSymbolicRegression(trainCases, testCases, defn, opts...)
}

// NewSymbolicRegressionFromTables builds an evaluator from data-file splits.
func NewSymbolicRegressionFromTables(train, test dataset.Table, defn string, opts ...Option) (*SymbolicRegression, error) {
	cols, targets := train.Columns()
	trainCases, err := NewCases(cols, targets)
	if err != nil {
		return nil, fmt.Errorf("training table: %w", err)
	}
	var testCases Cases
	if len(test.Rows) > 0 {
		cols, targets := test.Columns()
		testCases, err = NewCases(cols, targets)
		if err != nil {
			return nil, fmt.Errorf("testing table: %w", err)
		}
	}
	return NewSymbolicRegression(trainCases, testCases, defn, opts...)
}

func (s *SymbolicRegression) Name() string                { return s.name }
func (s *SymbolicRegression) Maximise() bool              { return s.maximise }
func (s *SymbolicRegression) Arity() int                  { return s.train.Arity() }
func (s *SymbolicRegression) Definition() ErrorDefinition { return s.defn }
func (s *SymbolicRegression) TrainingCases() Cases        { return s.train }
func (s *SymbolicRegression) TestingCases() Cases         { return s.test }

func (s *SymbolicRegression) Evaluate(ctx context.Context, c Candidate) (Result, error) {
	return s.evaluate(ctx, c, s.train)
}

func (s *SymbolicRegression) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return s.evaluate(ctx, c, s.test)
}

func (s *SymbolicRegression) evaluate(ctx context.Context, c Candidate, cases Cases) (Result, error) {
	prog, ok := programOf(s.interpreter, c)
	if !ok {
		return degraded(s.maximise), nil
	}

	n := cases.Len()
	arity := cases.Arity()
	predictions := make([]float64, n)
	vars := make(interp.Vars, arity)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		for j := 0; j < arity; j++ {
			vars[interp.VarName(j)] = cases.X.At(j, i)
		}
		v, err := prog.Float(ctx, vars)
		if errors.Is(err, interp.ErrNumeric) {
			return degraded(s.maximise), nil
		}
		if err != nil {
			s.logger.Error("candidate failed structurally",
				"evaluator", s.name,
				"candidate", prog.Source(),
				"case", i,
				"error", err,
			)
			return Result{}, fmt.Errorf("evaluate %q on case %d: %w", prog.Source(), i, err)
		}
		predictions[i] = v
	}

	fit := s.errorFn(cases.Y, predictions)
	if math.IsNaN(fit) || math.IsInf(fit, 0) {
		return degraded(s.maximise), nil
	}
	return Result{Fitness: fit, Semantics: predictions}, nil
}
