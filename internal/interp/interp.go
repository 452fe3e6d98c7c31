// Package interp turns candidate program text into executable programs.
//
// Programs are gval expressions over named variables. Every arithmetic
// operator and numeric function fails with ErrNumeric as soon as it meets or
// produces a non-finite value (log of a negative, division by zero, overflow),
// so a failure part way through an expression cannot be hidden by a later
// operation. Anything else that goes wrong while evaluating (unknown
// variables, wrong argument types, a boolean where a number was expected) is
// structural and reported unchanged.
package interp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/PaesslerAG/gval"
)

var (
	ErrInterpret  = errors.New("interpret candidate")
	ErrNumeric    = errors.New("numerical failure")
	ErrResultType = errors.New("unexpected result type")
)

// Vars binds variable names to values for one evaluation.
type Vars map[string]any

// Interpreter compiles candidate text into a Program.
type Interpreter struct {
	lang gval.Language
}

// New returns an interpreter over the full gval language extended with the
// numeric, boolean and string primitives used by the builtin grammars.
func New() *Interpreter {
	return &Interpreter{lang: gval.Full(primitives()...)}
}

// Interpret parses text. Parse failures wrap ErrInterpret.
func (i *Interpreter) Interpret(text string) (*Program, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: empty program", ErrInterpret)
	}
	eval, err := i.lang.NewEvaluable(text)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInterpret, text, err)
	}
	return &Program{source: text, eval: eval}, nil
}

// MustInterpret is Interpret for fixed program text known to be valid.
func (i *Interpreter) MustInterpret(text string) *Program {
	p, err := i.Interpret(text)
	if err != nil {
		panic(err)
	}
	return p
}

// Program is a compiled candidate. It is immutable and safe for concurrent use.
type Program struct {
	source string
	eval   gval.Evaluable
}

func (p *Program) Source() string {
	return p.source
}

// Eval evaluates the program and returns the raw result.
func (p *Program) Eval(ctx context.Context, vars Vars) (any, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	var params any = map[string]any(vars)
	if vars == nil {
		params = map[string]any{}
	}
	return p.eval(ctx, params)
}

// Float evaluates the program as a number. Non-finite results wrap ErrNumeric.
func (p *Program) Float(ctx context.Context, vars Vars) (float64, error) {
	out, err := p.Eval(ctx, vars)
	if err != nil {
		return 0, err
	}
	v, ok := toFloat(out)
	if !ok {
		return 0, fmt.Errorf("%w: %s returned %T, want number", ErrResultType, p.source, out)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%w: %s = %v", ErrNumeric, p.source, v)
	}
	return v, nil
}

// Bool evaluates the program as a boolean.
func (p *Program) Bool(ctx context.Context, vars Vars) (bool, error) {
	out, err := p.Eval(ctx, vars)
	if err != nil {
		return false, err
	}
	v, ok := out.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s returned %T, want bool", ErrResultType, p.source, out)
	}
	return v, nil
}

// Text evaluates the program as a string.
func (p *Program) Text(ctx context.Context, vars Vars) (string, error) {
	out, err := p.Eval(ctx, vars)
	if err != nil {
		return "", err
	}
	v, ok := out.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s returned %T, want string", ErrResultType, p.source, out)
	}
	return v, nil
}

// VarName is the variable name bound to input column i.
func VarName(i int) string {
	return fmt.Sprintf("x%d", i)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case int32:
		return float64(n), true
	default:
		return 0, false
	}
}
