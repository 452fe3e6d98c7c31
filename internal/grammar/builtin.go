package grammar

import (
	"fmt"
	"strings"

	"genoloc/internal/interp"
)

// Arithmetic is a symbolic-regression grammar over nvars input variables.
func Arithmetic(nvars int) (*Grammar, error) {
	if nvars <= 0 {
		return nil, fmt.Errorf("%w: arithmetic grammar needs at least one variable", ErrInvalidGrammar)
	}
	return ParseBNF(fmt.Sprintf(`
<e> ::= (<e> <op> <e>) | <f>(<e>) | <v> | <v>
<op> ::= + | - | * | /
<f> ::= sin | cos | exp | log | sqrt | square
<v> ::= %s | 1.0
`, variables(nvars)))
}

// Boolean is a Boolean-induction grammar over n input variables.
func Boolean(n int) (*Grammar, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: boolean grammar needs at least one variable", ErrInvalidGrammar)
	}
	return ParseBNF(fmt.Sprintf(`
<e> ::= and(<e>, <e>) | or(<e>, <e>) | nand(<e>, <e>) | not(<e>) | <v> | <v>
<v> ::= %s
`, variables(n)))
}

// MaxArithmetic builds sums and products of 0.5 for arithmetic maximisation.
func MaxArithmetic() *Grammar {
	return MustParseBNF(`
<e> ::= (<e> <op> <e>) | 0.5
<op> ::= + | *
`)
}

// Text generates lower-case words for string matching.
func Text() *Grammar {
	letters := make([]string, 0, 26)
	for c := 'a'; c <= 'z'; c++ {
		letters = append(letters, string(c))
	}
	return MustParseBNF(fmt.Sprintf(`
<s> ::= <c><s> | <c>
<c> ::= %s
`, strings.Join(letters, " | ")))
}

// StringProcessing generates programs over the input string variable s.
func StringProcessing() *Grammar {
	return MustParseBNF(`
<p> ::= upper(<p>) | lower(<p>) | reverse(<p>) | concat(<p>, <p>) | s | s
`)
}

// Builtin resolves a builtin grammar by name. nvars is ignored by grammars
// without input variables.
func Builtin(name string, nvars int) (*Grammar, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "arithmetic", "sr", "symbolic-regression":
		return Arithmetic(nvars)
	case "boolean":
		return Boolean(nvars)
	case "max", "max-arithmetic":
		return MaxArithmetic(), nil
	case "text", "string-match":
		return Text(), nil
	case "string-processing":
		return StringProcessing(), nil
	default:
		return nil, fmt.Errorf("%w: unknown builtin grammar %q", ErrInvalidGrammar, name)
	}
}

// Interpreted reports whether phenotypes of the named builtin grammar are
// programs (as opposed to plain text).
func Interpreted(name string) bool {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "string-match":
		return false
	default:
		return true
	}
}

func variables(n int) string {
	names := make([]string, n)
	for i := range names {
		names[i] = interp.VarName(i)
	}
	return strings.Join(names, " | ")
}
