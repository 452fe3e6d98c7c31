package dataset

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
)

var ErrEmptyTable = errors.New("table has no rows")

// Row is one fitness case: input values and the target in the last column.
type Row struct {
	Index  int
	Inputs []float64
	Target float64
}

// Table is a benchmark data file held in memory.
type Table struct {
	Name string
	Rows []Row
}

// Arity is the number of input columns.
func (t Table) Arity() int {
	if len(t.Rows) == 0 {
		return 0
	}
	return len(t.Rows[0].Inputs)
}

// ReadTable parses a whitespace-delimited numeric table without a header.
// The last column of every row is the target. Blank lines and lines starting
// with # are skipped; every row must have the same number of columns.
func ReadTable(in io.Reader, name string) (Table, error) {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	rows := make([]Row, 0, 1024)
	width := 0
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return Table{}, fmt.Errorf("read table row at line %d: need inputs and a target, got %d columns", lineNo, len(fields))
		}
		if width == 0 {
			width = len(fields)
		} else if len(fields) != width {
			return Table{}, fmt.Errorf("read table row at line %d: got %d columns, want %d", lineNo, len(fields), width)
		}

		values := make([]float64, len(fields))
		for i, raw := range fields {
			v, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return Table{}, fmt.Errorf("parse table line %d column %d: %w", lineNo, i, err)
			}
			values[i] = v
		}
		rows = append(rows, Row{
			Index:  len(rows),
			Inputs: values[:len(values)-1],
			Target: values[len(values)-1],
		})
	}
	if err := scanner.Err(); err != nil {
		return Table{}, fmt.Errorf("read table: %w", err)
	}
	if len(rows) == 0 {
		return Table{}, ErrEmptyTable
	}
	return Table{Name: strings.TrimSpace(name), Rows: rows}, nil
}

func ReadTableFile(path string) (Table, error) {
	if strings.TrimSpace(path) == "" {
		return Table{}, fmt.Errorf("table file path is required")
	}
	f, err := os.Open(path)
	if err != nil {
		return Table{}, err
	}
	defer f.Close()
	return ReadTable(f, path)
}

// Split partitions the table into training and testing rows. The first
// int(fraction*len) rows train and the rest test. When rng is non-nil the rows
// are shuffled first; the receiver is never modified.
func (t Table) Split(fraction float64, rng *rand.Rand) (Table, Table, error) {
	if fraction < 0 || fraction > 1 {
		return Table{}, Table{}, fmt.Errorf("split fraction must be within [0, 1], got %v", fraction)
	}
	rows := cloneRows(t.Rows)
	if rng != nil {
		rng.Shuffle(len(rows), func(i, j int) {
			rows[i], rows[j] = rows[j], rows[i]
		})
	}
	idx := int(fraction * float64(len(rows)))
	return Table{Name: t.Name, Rows: rows[:idx]}, Table{Name: t.Name, Rows: rows[idx:]}, nil
}

// Columns returns the inputs column-wise (one slice per variable) and the targets.
func (t Table) Columns() ([][]float64, []float64) {
	arity := t.Arity()
	cols := make([][]float64, arity)
	for j := range cols {
		cols[j] = make([]float64, len(t.Rows))
	}
	targets := make([]float64, len(t.Rows))
	for i, row := range t.Rows {
		for j := 0; j < arity; j++ {
			cols[j][i] = row.Inputs[j]
		}
		targets[i] = row.Target
	}
	return cols, targets
}

func cloneRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, row := range rows {
		out[i] = Row{
			Index:  row.Index,
			Inputs: append([]float64(nil), row.Inputs...),
			Target: row.Target,
		}
	}
	return out
}
