package grammar

import (
	"errors"
	"fmt"
	"strings"

	"genoloc/internal/interp"
)

// ErrExhausted reports that decoding ran out of genetic material (including
// wraps) before the derivation was complete.
var ErrExhausted = errors.New("genome exhausted")

const DefaultMaxSteps = 10000

// Decoded is a successfully decoded genome.
type Decoded struct {
	Phenotype string
	// Program is nil when the decoder has no interpreter (plain text phenotypes).
	Program *interp.Program
	// Used counts genome positions consumed, at most len(genome).
	Used int
}

// Decoder maps genomes to phenotypes by leftmost derivation: each rule with
// more than one alternative consumes the next codon and picks alternative
// codon mod alternatives. Reading past the end of the genome wraps to the start
// at most wraps times.
type Decoder struct {
	Grammar     *Grammar
	Interpreter *interp.Interpreter
	// MaxSteps bounds rule expansions; zero means DefaultMaxSteps. Derivations
	// hitting the bound are treated as exhausted.
	MaxSteps int
}

// Decode is deterministic in genome, modulus and wraps. On exhaustion it
// returns ErrExhausted together with a Decoded carrying Used.
func (d *Decoder) Decode(genome []int, modulus, wraps int) (Decoded, error) {
	if d == nil || d.Grammar == nil {
		return Decoded{}, errors.New("decoder grammar is required")
	}
	if modulus <= 0 {
		return Decoded{}, fmt.Errorf("modulus must be > 0, got %d", modulus)
	}
	if wraps < 0 {
		return Decoded{}, fmt.Errorf("wraps must be >= 0, got %d", wraps)
	}
	for i, codon := range genome {
		if codon < 0 || codon >= modulus {
			return Decoded{}, fmt.Errorf("codon %d at position %d outside [0, %d)", codon, i, modulus)
		}
	}

	maxSteps := d.MaxSteps
	if maxSteps <= 0 {
		maxSteps = DefaultMaxSteps
	}
	budget := len(genome) * (wraps + 1)

	var out strings.Builder
	stack := []Symbol{{Text: d.Grammar.Start}}
	consumed := 0
	steps := 0
	used := func() int {
		return min(consumed, len(genome))
	}

	for len(stack) > 0 {
		sym := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sym.Terminal {
			out.WriteString(sym.Text)
			continue
		}

		steps++
		if steps > maxSteps {
			return Decoded{Used: used()}, ErrExhausted
		}

		prods := d.Grammar.Rules[sym.Text]
		choice := 0
		if len(prods) > 1 {
			if consumed >= budget {
				return Decoded{Used: used()}, ErrExhausted
			}
			choice = genome[consumed%len(genome)] % len(prods)
			consumed++
		}
		prod := prods[choice]
		for i := len(prod) - 1; i >= 0; i-- {
			stack = append(stack, prod[i])
		}
	}

	decoded := Decoded{Phenotype: out.String(), Used: used()}
	if d.Interpreter != nil {
		program, err := d.Interpreter.Interpret(decoded.Phenotype)
		if err != nil {
			return Decoded{}, fmt.Errorf("grammar produced uninterpretable phenotype: %w", err)
		}
		decoded.Program = program
	}
	return decoded, nil
}
