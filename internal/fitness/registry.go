package fitness

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"strings"
	"sync"

	"genoloc/internal/dataset"
	"genoloc/internal/interp"
)

var (
	ErrBenchmarkExists   = errors.New("benchmark already registered")
	ErrBenchmarkNotFound = errors.New("benchmark not found")
)

// BenchmarkOptions parameterise benchmark construction. Fields a benchmark
// does not use are ignored.
type BenchmarkOptions struct {
	Definition  string
	Size        int
	Target      string
	DataFile    string
	Split       float64
	Randomise   bool
	StringCases []StringCase
	Rand        *rand.Rand
	Interpreter *interp.Interpreter
	Logger      *slog.Logger
}

// BenchmarkSpec describes a named problem and the builtin grammar its
// candidates are decoded with.
type BenchmarkSpec struct {
	Name    string
	Grammar string
	New     func(opts BenchmarkOptions) (Evaluator, error)
}

var benchmarkRegistry = struct {
	mu sync.RWMutex
	m  map[string]BenchmarkSpec
}{
	m: make(map[string]BenchmarkSpec),
}

func RegisterBenchmark(spec BenchmarkSpec) error {
	if spec.Name == "" {
		return errors.New("benchmark name is required")
	}
	if spec.New == nil {
		return errors.New("benchmark constructor is required")
	}

	benchmarkRegistry.mu.Lock()
	defer benchmarkRegistry.mu.Unlock()

	if _, exists := benchmarkRegistry.m[spec.Name]; exists {
		return fmt.Errorf("%w: %s", ErrBenchmarkExists, spec.Name)
	}
	benchmarkRegistry.m[spec.Name] = spec
	return nil
}

// LookupBenchmark returns the spec registered under name.
func LookupBenchmark(name string) (BenchmarkSpec, error) {
	benchmarkRegistry.mu.RLock()
	spec, ok := benchmarkRegistry.m[strings.TrimSpace(name)]
	benchmarkRegistry.mu.RUnlock()
	if !ok {
		return BenchmarkSpec{}, fmt.Errorf("%w: %s", ErrBenchmarkNotFound, name)
	}
	return spec, nil
}

// Resolve builds the evaluator of a registered benchmark.
func Resolve(name string, opts BenchmarkOptions) (Evaluator, error) {
	spec, err := LookupBenchmark(name)
	if err != nil {
		return nil, err
	}
	if opts.Interpreter == nil {
		opts.Interpreter = interp.New()
	}
	ev, err := spec.New(opts)
	if err != nil {
		return nil, fmt.Errorf("benchmark %s: %w", name, err)
	}
	return ev, nil
}

func ListBenchmarks() []string {
	benchmarkRegistry.mu.RLock()
	defer benchmarkRegistry.mu.RUnlock()

	names := make([]string, 0, len(benchmarkRegistry.m))
	for name := range benchmarkRegistry.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func init() {
	for _, spec := range builtinBenchmarks() {
		if err := RegisterBenchmark(spec); err != nil {
			panic(err)
		}
	}
}

func builtinBenchmarks() []BenchmarkSpec {
	regression := func(name string, target TargetFunc, train CaseSpec, tests ...CaseSpec) BenchmarkSpec {
		return BenchmarkSpec{
			Name:    name,
			Grammar: "arithmetic",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				return NewSymbolicRegressionFromTarget(target, train, tests, opts.Definition, opts.Rand,
					WithName(name), WithInterpreter(opts.Interpreter), WithLogger(opts.Logger))
			},
		}
	}
	pagie := func(x []float64) float64 {
		sum := 0.0
		for _, v := range x {
			sum += 1 / (1 + math.Pow(v, -4))
		}
		return sum
	}

	return []BenchmarkSpec{
		regression("identity",
			func(x []float64) float64 { return x[0] },
			CaseSpec{Min: []float64{0}, Max: []float64{1}, Increment: []float64{0.1}}),
		regression("vladislavleva_12",
			func(x []float64) float64 {
				v := x[0]
				return math.Exp(-v) * math.Pow(v, 3) * math.Cos(v) * math.Sin(v) *
					(math.Cos(v)*math.Pow(math.Sin(v), 2) - 1)
			},
			CaseSpec{Min: []float64{0.05}, Max: []float64{10}, Increment: []float64{0.1}}),
		regression("pagie_2d", pagie,
			CaseSpec{Min: []float64{-5, -5}, Max: []float64{5, 5}, Increment: []float64{0.4, 0.4}}),
		regression("pagie_3d", pagie,
			CaseSpec{Min: []float64{-5, -5, -5}, Max: []float64{5, 5, 5}, Increment: []float64{0.4, 0.4, 0.4}}),
		{
			Name:    "data_file",
			Grammar: "arithmetic",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				table, err := dataset.ReadTableFile(opts.DataFile)
				if err != nil {
					return nil, err
				}
				split := opts.Split
				if split == 0 {
					split = 0.9
				}
				var shuffle *rand.Rand
				if opts.Randomise {
					shuffle = opts.Rand
				}
				train, test, err := table.Split(split, shuffle)
				if err != nil {
					return nil, err
				}
				return NewSymbolicRegressionFromTables(train, test, opts.Definition,
					WithName("data_file"), WithInterpreter(opts.Interpreter), WithLogger(opts.Logger))
			},
		},
		{
			Name:    "even_parity",
			Grammar: "boolean",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				n := opts.Size
				if n == 0 {
					n = 5
				}
				b, err := NewBooleanInduction(n, EvenParity)
				if err != nil {
					return nil, err
				}
				b.Interpreter = opts.Interpreter
				return b, nil
			},
		},
		{
			Name:    "multiplexer",
			Grammar: "boolean",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				n := opts.Size
				if n == 0 {
					n = 6
				}
				b, err := NewMultiplexer(n)
				if err != nil {
					return nil, err
				}
				b.Interpreter = opts.Interpreter
				return b, nil
			},
		},
		{
			Name:    "even_parity_compound",
			Grammar: "boolean",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				return NewBooleanInductionCompound([]int{3, 4, 5}, []int{6, 7}, EvenParity, opts.Interpreter)
			},
		},
		{
			Name:    "string_match",
			Grammar: "text",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				target := opts.Target
				if target == "" {
					target = "golden"
				}
				return StringMatch{Target: target}, nil
			},
		},
		{
			Name:    "string_processing",
			Grammar: "string-processing",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				cases := opts.StringCases
				if len(cases) == 0 {
					cases = []StringCase{
						{Input: "abc", Expected: "CBA"},
						{Input: "Hello", Expected: "OLLEH"},
						{Input: "go", Expected: "OG"},
					}
				}
				return NewStringProcessing(cases, opts.Interpreter)
			},
		},
		{
			Name:    "size",
			Grammar: "text",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				target := opts.Size
				if target == 0 {
					target = 20
				}
				return NewSizeTarget(target)
			},
		},
		{
			Name:    "max",
			Grammar: "max",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				return ArithmeticMax{Interpreter: opts.Interpreter}, nil
			},
		},
		{
			Name:    "random",
			Grammar: "text",
			New: func(opts BenchmarkOptions) (Evaluator, error) {
				return NewRandom(opts.Rand), nil
			},
		},
	}
}
