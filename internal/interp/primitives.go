package interp

import (
	"fmt"
	"math"
	"strings"

	"github.com/PaesslerAG/gval"
)

func primitives() []gval.Language {
	return []gval.Language{
		gval.InfixNumberOperator("+", checked2("+", func(a, b float64) float64 { return a + b })),
		gval.InfixNumberOperator("-", checked2("-", func(a, b float64) float64 { return a - b })),
		gval.InfixNumberOperator("*", checked2("*", func(a, b float64) float64 { return a * b })),
		gval.InfixNumberOperator("/", func(a, b float64) (any, error) {
			if b == 0 {
				return nil, fmt.Errorf("%w: %v / 0", ErrNumeric, a)
			}
			return checked2("/", func(a, b float64) float64 { return a / b })(a, b)
		}),
		gval.InfixNumberOperator("**", checked2("**", math.Pow)),

		gval.Function("sin", numeric1(math.Sin)),
		gval.Function("cos", numeric1(math.Cos)),
		gval.Function("exp", numeric1(math.Exp)),
		gval.Function("log", numeric1(math.Log)),
		gval.Function("sqrt", numeric1(math.Sqrt)),
		gval.Function("abs", numeric1(math.Abs)),
		gval.Function("square", numeric1(func(x float64) float64 { return x * x })),
		gval.Function("pow", numeric2(math.Pow)),

		gval.Function("and", logical2(func(a, b bool) bool { return a && b })),
		gval.Function("or", logical2(func(a, b bool) bool { return a || b })),
		gval.Function("xor", logical2(func(a, b bool) bool { return a != b })),
		gval.Function("nand", logical2(func(a, b bool) bool { return !(a && b) })),
		gval.Function("not", func(args ...any) (any, error) {
			if len(args) != 1 {
				return nil, fmt.Errorf("not: want 1 argument, got %d", len(args))
			}
			a, ok := args[0].(bool)
			if !ok {
				return nil, fmt.Errorf("%w: not(%T)", ErrResultType, args[0])
			}
			return !a, nil
		}),
		gval.Function("if", func(args ...any) (any, error) {
			if len(args) != 3 {
				return nil, fmt.Errorf("if: want 3 arguments, got %d", len(args))
			}
			cond, ok := args[0].(bool)
			if !ok {
				return nil, fmt.Errorf("%w: if condition %T", ErrResultType, args[0])
			}
			if cond {
				return args[1], nil
			}
			return args[2], nil
		}),

		gval.Function("upper", text1(strings.ToUpper)),
		gval.Function("lower", text1(strings.ToLower)),
		gval.Function("reverse", text1(reverse)),
		gval.Function("concat", func(args ...any) (any, error) {
			var b strings.Builder
			for _, arg := range args {
				s, ok := arg.(string)
				if !ok {
					return nil, fmt.Errorf("%w: concat(%T)", ErrResultType, arg)
				}
				b.WriteString(s)
			}
			return b.String(), nil
		}),
	}
}

func numeric1(f func(float64) float64) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		x, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%w: numeric argument %T", ErrResultType, args[0])
		}
		return finite(f(x))
	}
}

func numeric2(f func(float64, float64) float64) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 arguments, got %d", len(args))
		}
		x, ok := toFloat(args[0])
		if !ok {
			return nil, fmt.Errorf("%w: numeric argument %T", ErrResultType, args[0])
		}
		y, ok := toFloat(args[1])
		if !ok {
			return nil, fmt.Errorf("%w: numeric argument %T", ErrResultType, args[1])
		}
		return finite(f(x, y))
	}
}

// checked2 applies an arithmetic operator, rejecting non-finite operands and
// results.
func checked2(name string, f func(a, b float64) float64) func(a, b float64) (any, error) {
	return func(a, b float64) (any, error) {
		if !isFinite(a) || !isFinite(b) {
			return nil, fmt.Errorf("%w: %v %s %v", ErrNumeric, a, name, b)
		}
		v := f(a, b)
		if !isFinite(v) {
			return nil, fmt.Errorf("%w: %v %s %v = %v", ErrNumeric, a, name, b, v)
		}
		return v, nil
	}
}

func finite(v float64) (any, error) {
	if !isFinite(v) {
		return nil, fmt.Errorf("%w: %v", ErrNumeric, v)
	}
	return v, nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func logical2(f func(bool, bool) bool) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("want 2 arguments, got %d", len(args))
		}
		a, ok := args[0].(bool)
		if !ok {
			return nil, fmt.Errorf("%w: boolean argument %T", ErrResultType, args[0])
		}
		b, ok := args[1].(bool)
		if !ok {
			return nil, fmt.Errorf("%w: boolean argument %T", ErrResultType, args[1])
		}
		return f(a, b), nil
	}
}

func text1(f func(string) string) func(args ...any) (any, error) {
	return func(args ...any) (any, error) {
		if len(args) != 1 {
			return nil, fmt.Errorf("want 1 argument, got %d", len(args))
		}
		s, ok := args[0].(string)
		if !ok {
			return nil, fmt.Errorf("%w: string argument %T", ErrResultType, args[0])
		}
		return f(s), nil
	}
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
