package fitness

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// Cases is an immutable fitness-case set: inputs stored column-wise (one row
// per variable, one column per case) and the target value of each case.
type Cases struct {
	X *mat.Dense
	Y []float64
}

// NewCases builds a case set from per-variable columns and targets.
func NewCases(columns [][]float64, targets []float64) (Cases, error) {
	if len(columns) == 0 || len(columns[0]) == 0 {
		return Cases{}, fmt.Errorf("%w: empty fitness case set", ErrConfig)
	}
	n := len(columns[0])
	if len(targets) != n {
		return Cases{}, fmt.Errorf("%w: %d targets for %d cases", ErrConfig, len(targets), n)
	}
	x := mat.NewDense(len(columns), n, nil)
	for j, col := range columns {
		if len(col) != n {
			return Cases{}, fmt.Errorf("%w: variable %d has %d cases, want %d", ErrConfig, j, len(col), n)
		}
		x.SetRow(j, col)
	}
	return Cases{X: x, Y: append([]float64(nil), targets...)}, nil
}

func (c Cases) Len() int {
	if c.X == nil {
		return 0
	}
	_, n := c.X.Dims()
	return n
}

func (c Cases) Arity() int {
	if c.X == nil {
		return 0
	}
	r, _ := c.X.Dims()
	return r
}

// Point returns the input values of case i in dst, growing it as needed.
func (c Cases) Point(i int, dst []float64) []float64 {
	r := c.Arity()
	if cap(dst) < r {
		dst = make([]float64, r)
	}
	dst = dst[:r]
	for j := 0; j < r; j++ {
		dst[j] = c.X.At(j, i)
	}
	return dst
}

// BuildMesh enumerates the points of a regular axis-aligned grid. Axis i runs
// from minv[i] in steps of increment[i]; it has floor((max-min)/increment)+1
// points so both endpoints are reached up to rounding. Points are returned in
// product order with the first variable outermost.
func BuildMesh(minv, maxv, increment []float64) ([][]float64, error) {
	if len(minv) != len(maxv) || len(minv) != len(increment) {
		return nil, fmt.Errorf("%w: mesh bounds lengths differ: min=%d max=%d increment=%d", ErrConfig, len(minv), len(maxv), len(increment))
	}
	if len(minv) == 0 {
		return nil, fmt.Errorf("%w: mesh needs at least one variable", ErrConfig)
	}

	axes := make([][]float64, len(minv))
	for i := range minv {
		if minv[i] > maxv[i] {
			return nil, fmt.Errorf("%w: mesh axis %d has min %v > max %v", ErrConfig, i, minv[i], maxv[i])
		}
		if increment[i] <= 0 {
			return nil, fmt.Errorf("%w: mesh axis %d has non-positive increment %v", ErrConfig, i, increment[i])
		}
		steps := int(math.Floor((maxv[i] - minv[i]) / increment[i]))
		axis := make([]float64, steps+1)
		for k := range axis {
			axis[k] = minv[i] + increment[i]*float64(k)
		}
		axes[i] = axis
	}

	total := 1
	for _, axis := range axes {
		total *= len(axis)
	}
	points := make([][]float64, 0, total)
	idx := make([]int, len(axes))
	for {
		p := make([]float64, len(axes))
		for i, k := range idx {
			p[i] = axes[i][k]
		}
		points = append(points, p)

		i := len(idx) - 1
		for ; i >= 0; i-- {
			idx[i]++
			if idx[i] < len(axes[i]) {
				break
			}
			idx[i] = 0
		}
		if i < 0 {
			return points, nil
		}
	}
}

// BuildRandomCases draws n points uniformly within [minv[i], maxv[i]] per variable.
func BuildRandomCases(minv, maxv []float64, n int, rng *rand.Rand) ([][]float64, error) {
	if len(minv) != len(maxv) {
		return nil, fmt.Errorf("%w: random case bounds lengths differ: min=%d max=%d", ErrConfig, len(minv), len(maxv))
	}
	if len(minv) == 0 {
		return nil, fmt.Errorf("%w: random cases need at least one variable", ErrConfig)
	}
	if n <= 0 {
		return nil, fmt.Errorf("%w: random case count must be > 0, got %d", ErrConfig, n)
	}
	if rng == nil {
		return nil, fmt.Errorf("%w: random cases need a random source", ErrConfig)
	}
	for i := range minv {
		if minv[i] > maxv[i] {
			return nil, fmt.Errorf("%w: random axis %d has min %v > max %v", ErrConfig, i, minv[i], maxv[i])
		}
	}
	points := make([][]float64, n)
	for k := range points {
		p := make([]float64, len(minv))
		for i := range p {
			p[i] = minv[i] + rng.Float64()*(maxv[i]-minv[i])
		}
		points[k] = p
	}
	return points, nil
}

// CaseSpec describes how to generate fitness-case inputs: a mesh over the
// bounds with the given increments, or N random points when Random is set.
type CaseSpec struct {
	Min       []float64 `yaml:"min"`
	Max       []float64 `yaml:"max"`
	Increment []float64 `yaml:"increment,omitempty"`
	Random    bool      `yaml:"random,omitempty"`
	N         int       `yaml:"n,omitempty"`
}

func (s CaseSpec) Build(rng *rand.Rand) ([][]float64, error) {
	if s.Random {
		return BuildRandomCases(s.Min, s.Max, s.N, rng)
	}
	return BuildMesh(s.Min, s.Max, s.Increment)
}

// TargetFunc is the function a symbolic-regression problem asks to recover.
type TargetFunc func(x []float64) float64

// casesFromPoints applies target once per point and stores the inputs column-wise.
func casesFromPoints(points [][]float64, target TargetFunc) (Cases, error) {
	if len(points) == 0 {
		return Cases{}, fmt.Errorf("%w: empty fitness case set", ErrConfig)
	}
	arity := len(points[0])
	columns := make([][]float64, arity)
	for j := range columns {
		columns[j] = make([]float64, len(points))
	}
	targets := make([]float64, len(points))
	for i, p := range points {
		if len(p) != arity {
			return Cases{}, fmt.Errorf("%w: case %d has %d inputs, want %d", ErrConfig, i, len(p), arity)
		}
		for j, v := range p {
			columns[j][i] = v
		}
		targets[i] = target(p)
	}
	return NewCases(columns, targets)
}
