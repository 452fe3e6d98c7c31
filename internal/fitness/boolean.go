package fitness

import (
	"context"
	"fmt"

	"genoloc/internal/interp"
)

const maxBooleanSize = 20

// BoolFunc is a Boolean target over one fitness case.
type BoolFunc func(x []bool) bool

// EvenParity is true when an even number of inputs are true.
func EvenParity(x []bool) bool {
	odd := false
	for _, v := range x {
		odd = odd != v
	}
	return !odd
}

// Multiplexer reads address bits x[0:k] and returns the selected data bit. It
// is defined for sizes n = k + 2^k.
func Multiplexer(x []bool) bool {
	k := 0
	for k+(1<<k) < len(x) {
		k++
	}
	addr := 0
	for i := 0; i < k && i < len(x); i++ {
		addr <<= 1
		if x[i] {
			addr |= 1
		}
	}
	idx := k + addr
	if idx >= len(x) {
		return false
	}
	return x[idx]
}

// NewMultiplexer builds the n-input multiplexer problem. n must be k + 2^k
// for some k >= 1 (3, 6, 11, 20).
func NewMultiplexer(n int) (*BooleanInduction, error) {
	k := 1
	for k+(1<<k) < n {
		k++
	}
	if k+(1<<k) != n {
		return nil, fmt.Errorf("%w: multiplexer size must be k + 2^k, got %d", ErrConfig, n)
	}
	return NewBooleanInduction(n, Multiplexer)
}

// BooleanCases enumerates all 2^n input combinations in binary counting order
// (x0 is the most significant bit, false=0, true=1) and returns them
// transposed: one column of 2^n values per variable.
func BooleanCases(n int) ([][]bool, error) {
	if n <= 0 || n > maxBooleanSize {
		return nil, fmt.Errorf("%w: boolean problem size must be within [1, %d], got %d", ErrConfig, maxBooleanSize, n)
	}
	rows := 1 << n
	cols := make([][]bool, n)
	for j := range cols {
		cols[j] = make([]bool, rows)
		shift := n - 1 - j
		for i := 0; i < rows; i++ {
			cols[j][i] = (i>>shift)&1 == 1
		}
	}
	return cols, nil
}

// BooleanInduction scores a Boolean program of arity n by its mismatches
// against a target truth table over all 2^n cases.
type BooleanInduction struct {
	n       int
	columns [][]bool
	target  []bool

	Interpreter *interp.Interpreter
}

// NewBooleanInduction builds the cases once and tabulates target over them.
func NewBooleanInduction(n int, target BoolFunc) (*BooleanInduction, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: boolean target is required", ErrConfig)
	}
	b, err := newBooleanInduction(n)
	if err != nil {
		return nil, err
	}
	b.target = make([]bool, b.cases())
	row := make([]bool, n)
	for i := range b.target {
		b.target[i] = target(b.caseRow(i, row))
	}
	return b, nil
}

// NewBooleanInductionProgram tabulates a target given as a program.
func NewBooleanInductionProgram(ctx context.Context, n int, target *interp.Program) (*BooleanInduction, error) {
	if target == nil {
		return nil, fmt.Errorf("%w: boolean target is required", ErrConfig)
	}
	b, err := newBooleanInduction(n)
	if err != nil {
		return nil, err
	}
	out, err := b.outputs(ctx, target)
	if err != nil {
		return nil, fmt.Errorf("%w: tabulate target: %v", ErrConfig, err)
	}
	b.target = out
	return b, nil
}

// NewBooleanInductionTable uses an explicit truth table, which must hold
// exactly 2^n values in case order.
func NewBooleanInductionTable(n int, table []bool) (*BooleanInduction, error) {
	b, err := newBooleanInduction(n)
	if err != nil {
		return nil, err
	}
	if len(table) != b.cases() {
		return nil, fmt.Errorf("%w: wrong number of target cases (%d) for problem size %d", ErrConfig, len(table), n)
	}
	b.target = append([]bool(nil), table...)
	return b, nil
}

func newBooleanInduction(n int) (*BooleanInduction, error) {
	cols, err := BooleanCases(n)
	if err != nil {
		return nil, err
	}
	return &BooleanInduction{n: n, columns: cols}, nil
}

func (b *BooleanInduction) Name() string   { return fmt.Sprintf("boolean-%d", b.n) }
func (b *BooleanInduction) Maximise() bool { return false }
func (b *BooleanInduction) Arity() int     { return b.n }

// Target returns a copy of the tabulated truth table.
func (b *BooleanInduction) Target() []bool {
	return append([]bool(nil), b.target...)
}

func (b *BooleanInduction) Evaluate(ctx context.Context, c Candidate) (Result, error) {
	prog, ok := programOf(b.Interpreter, c)
	if !ok {
		return degraded(false), nil
	}
	out, err := b.outputs(ctx, prog)
	if err != nil {
		return Result{}, err
	}
	mismatches := 0
	semantics := make([]float64, len(out))
	for i, v := range out {
		if v != b.target[i] {
			mismatches++
		}
		if v {
			semantics[i] = 1
		}
	}
	return Result{Fitness: float64(mismatches), Semantics: semantics}, nil
}

func (b *BooleanInduction) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return b.Evaluate(ctx, c)
}

func (b *BooleanInduction) outputs(ctx context.Context, prog *interp.Program) ([]bool, error) {
	out := make([]bool, b.cases())
	vars := make(interp.Vars, b.n)
	for i := range out {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 0; j < b.n; j++ {
			vars[interp.VarName(j)] = b.columns[j][i]
		}
		v, err := prog.Bool(ctx, vars)
		if err != nil {
			return nil, fmt.Errorf("boolean case %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (b *BooleanInduction) cases() int {
	return 1 << b.n
}

func (b *BooleanInduction) caseRow(i int, row []bool) []bool {
	for j := 0; j < b.n; j++ {
		row[j] = b.columns[j][i]
	}
	return row
}

// BooleanInductionCompound is one Boolean target posed at several sizes:
// training fitness sums the training sizes, test fitness the testing sizes.
type BooleanInductionCompound struct {
	train []*BooleanInduction
	test  []*BooleanInduction
}

func NewBooleanInductionCompound(trainSizes, testSizes []int, target BoolFunc, in *interp.Interpreter) (*BooleanInductionCompound, error) {
	if len(trainSizes) == 0 {
		return nil, fmt.Errorf("%w: at least one training size is required", ErrConfig)
	}
	seen := make(map[int]bool, len(trainSizes))
	for _, n := range trainSizes {
		seen[n] = true
	}
	for _, n := range testSizes {
		if seen[n] {
			return nil, fmt.Errorf("%w: size %d used for both training and testing", ErrConfig, n)
		}
	}

	build := func(sizes []int) ([]*BooleanInduction, error) {
		out := make([]*BooleanInduction, 0, len(sizes))
		for _, n := range sizes {
			b, err := NewBooleanInduction(n, target)
			if err != nil {
				return nil, err
			}
			b.Interpreter = in
			out = append(out, b)
		}
		return out, nil
	}
	train, err := build(trainSizes)
	if err != nil {
		return nil, err
	}
	test, err := build(testSizes)
	if err != nil {
		return nil, err
	}
	return &BooleanInductionCompound{train: train, test: test}, nil
}

func (*BooleanInductionCompound) Name() string   { return "boolean-compound" }
func (*BooleanInductionCompound) Maximise() bool { return false }

// Arity is the smallest size over training and testing problems. Every
// candidate is scored at every size, so it may read only the inputs all of
// them bind.
func (b *BooleanInductionCompound) Arity() int {
	n := 0
	for _, p := range append(append([]*BooleanInduction(nil), b.train...), b.test...) {
		if n == 0 || p.n < n {
			n = p.n
		}
	}
	return n
}

func (b *BooleanInductionCompound) Evaluate(ctx context.Context, c Candidate) (Result, error) {
	return sumProblems(ctx, b.train, c)
}

func (b *BooleanInductionCompound) TestEvaluate(ctx context.Context, c Candidate) (Result, error) {
	return sumProblems(ctx, b.test, c)
}

func sumProblems(ctx context.Context, problems []*BooleanInduction, c Candidate) (Result, error) {
	if len(problems) > 0 && c.Program == nil {
		prog, ok := programOf(problems[0].Interpreter, c)
		if !ok {
			return degraded(false), nil
		}
		c = ProgramCandidate(prog)
	}
	var total Result
	total.Semantics = []float64{}
	for _, p := range problems {
		r, err := p.Evaluate(ctx, c)
		if err != nil {
			return Result{}, fmt.Errorf("%s: %w", p.Name(), err)
		}
		if r.Degraded {
			return r, nil
		}
		total.Fitness += r.Fitness
		total.Semantics = append(total.Semantics, r.Semantics...)
	}
	return total, nil
}
