package grammar

import (
	"bufio"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrInvalidGrammar = errors.New("invalid grammar")

// Symbol is a terminal literal or a reference to a rule.
type Symbol struct {
	Text     string
	Terminal bool
}

// Production is one alternative of a rule.
type Production []Symbol

// Grammar is a context-free grammar in BNF form. The start symbol is the
// left-hand side of the first rule.
type Grammar struct {
	Start string
	Rules map[string][]Production
}

// ParseBNF reads rules of the form
//
//	<expr> ::= (<expr> + <expr>) | <var>
//
// one per line. Text outside angle brackets is literal. Alternatives are
// trimmed; blank lines and lines starting with # are ignored. A line without
// "::=" continues the previous rule.
func ParseBNF(text string) (*Grammar, error) {
	g := &Grammar{Rules: make(map[string][]Production)}
	scanner := bufio.NewScanner(strings.NewReader(text))
	current := ""
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		rhs := line
		if lhs, rest, ok := strings.Cut(line, "::="); ok {
			name, err := nonTerminalName(strings.TrimSpace(lhs))
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidGrammar, lineNo, err)
			}
			if _, exists := g.Rules[name]; exists {
				return nil, fmt.Errorf("%w: line %d: rule <%s> defined twice", ErrInvalidGrammar, lineNo, name)
			}
			if g.Start == "" {
				g.Start = name
			}
			current = name
			g.Rules[name] = nil
			rhs = rest
		} else {
			if current == "" {
				return nil, fmt.Errorf("%w: line %d: alternatives before first rule", ErrInvalidGrammar, lineNo)
			}
			rhs = strings.TrimPrefix(rhs, "|")
		}

		for _, alt := range strings.Split(rhs, "|") {
			alt = strings.TrimSpace(alt)
			if alt == "" {
				continue
			}
			prod, err := parseProduction(alt)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrInvalidGrammar, lineNo, err)
			}
			g.Rules[current] = append(g.Rules[current], prod)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

// MustParseBNF is ParseBNF for grammars compiled into the binary.
func MustParseBNF(text string) *Grammar {
	g, err := ParseBNF(text)
	if err != nil {
		panic(err)
	}
	return g
}

// Validate checks that the grammar has a start rule, every rule has at least
// one alternative and every referenced rule is defined.
func (g *Grammar) Validate() error {
	if g == nil || g.Start == "" {
		return fmt.Errorf("%w: no rules", ErrInvalidGrammar)
	}
	if _, ok := g.Rules[g.Start]; !ok {
		return fmt.Errorf("%w: start rule <%s> undefined", ErrInvalidGrammar, g.Start)
	}
	for _, name := range g.RuleNames() {
		prods := g.Rules[name]
		if len(prods) == 0 {
			return fmt.Errorf("%w: rule <%s> has no alternatives", ErrInvalidGrammar, name)
		}
		for _, prod := range prods {
			for _, sym := range prod {
				if sym.Terminal {
					continue
				}
				if _, ok := g.Rules[sym.Text]; !ok {
					return fmt.Errorf("%w: rule <%s> references undefined <%s>", ErrInvalidGrammar, name, sym.Text)
				}
			}
		}
	}
	return nil
}

func (g *Grammar) RuleNames() []string {
	names := make([]string, 0, len(g.Rules))
	for name := range g.Rules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func nonTerminalName(s string) (string, error) {
	if len(s) < 3 || s[0] != '<' || s[len(s)-1] != '>' {
		return "", fmt.Errorf("left-hand side %q is not <name>", s)
	}
	return s[1 : len(s)-1], nil
}

func parseProduction(alt string) (Production, error) {
	var prod Production
	for len(alt) > 0 {
		open := strings.IndexByte(alt, '<')
		if open < 0 {
			prod = append(prod, Symbol{Text: alt, Terminal: true})
			break
		}
		closeIdx := strings.IndexByte(alt[open:], '>')
		if closeIdx < 0 {
			// A lone '<' is a literal comparison operator.
			prod = append(prod, Symbol{Text: alt, Terminal: true})
			break
		}
		closeIdx += open
		name := alt[open+1 : closeIdx]
		if name == "" || strings.ContainsAny(name, " \t<") {
			prod = append(prod, Symbol{Text: alt[:closeIdx+1], Terminal: true})
			alt = alt[closeIdx+1:]
			continue
		}
		if open > 0 {
			prod = append(prod, Symbol{Text: alt[:open], Terminal: true})
		}
		prod = append(prod, Symbol{Text: name})
		alt = alt[closeIdx+1:]
	}
	if len(prod) == 0 {
		return nil, errors.New("empty alternative")
	}
	return prod, nil
}
