// Package surface turns scattered (x, y, z) error samples into the gridded
// or raw structures a 3D surface, contour, heatmap or scatter view needs.
package surface

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/plot/plotter"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
)

// ChartKind is the view the data is prepared for.
type ChartKind string

const (
	ChartContour ChartKind = "Contour"
	ChartSurface ChartKind = "Surface"
	ChartHeatmap ChartKind = "Heatmap"
	ChartScatter ChartKind = "3D Scatter"
)

// FillPolicy decides the value of grid cells outside the convex hull of the
// samples.
type FillPolicy string

const (
	FillUndefined FillPolicy = "undefined"
	FillZero      FillPolicy = "zero"
)

// Method is the interpolation scheme.
type Method string

const (
	MethodLinear Method = "linear"
	MethodCubic  Method = "cubic"
)

// Grid resolution bounds, in points per axis.
const (
	MinResolution = 2
	MaxResolution = 500
)

// ErrInsufficientData is returned (wrapped in a data quality error) when the
// samples cannot span a surface.
var ErrInsufficientData = errors.New("insufficient data for interpolation")

// Options configures Build.
type Options struct {
	Chart      ChartKind
	Fill       FillPolicy
	Method     Method
	Resolution int // grid points per axis
}

// Validate checks the options, returning a configuration error.
func (o Options) Validate() error {
	switch o.Chart {
	case ChartContour, ChartSurface, ChartHeatmap, ChartScatter:
	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown chart type %q", o.Chart), nil)
	}
	if o.Chart == ChartScatter {
		return nil
	}
	switch o.Fill {
	case FillUndefined, FillZero:
	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown fill policy %q", o.Fill), nil)
	}
	switch o.Method {
	case MethodLinear, MethodCubic:
	default:
		return apperrors.NewConfigError(fmt.Sprintf("unknown interpolation method %q", o.Method), nil)
	}
	if o.Resolution < MinResolution || o.Resolution > MaxResolution {
		return apperrors.NewConfigError(fmt.Sprintf("grid resolution must be between %d and %d", MinResolution, MaxResolution), nil).
			WithContext("grid_resolution", o.Resolution)
	}
	return nil
}

// Grid is a regular mesh. Zs is indexed [row][column], rows following Ys and
// columns following Xs. Grid satisfies plotter.GridXYZ so it can be handed
// straight to a heatmap or contour plotter.
type Grid struct {
	Xs []float64
	Ys []float64
	Zs [][]float64
}

var _ plotter.GridXYZ = (*Grid)(nil)

// Dims returns the number of columns and rows.
func (g *Grid) Dims() (c, r int) { return len(g.Xs), len(g.Ys) }

// Z returns the value at column c, row r.
func (g *Grid) Z(c, r int) float64 { return g.Zs[r][c] }

// X returns the x coordinate of column c.
func (g *Grid) X(c int) float64 { return g.Xs[c] }

// Y returns the y coordinate of row r.
func (g *Grid) Y(r int) float64 { return g.Ys[r] }

// Defined counts cells holding a value.
func (g *Grid) Defined() int {
	n := 0
	for _, row := range g.Zs {
		for _, z := range row {
			if !math.IsNaN(z) {
				n++
			}
		}
	}
	return n
}

// Plot is the prepared data for one chart: Scatter for ChartScatter, Grid
// otherwise.
type Plot struct {
	Chart   ChartKind
	Grid    *Grid
	Scatter plotter.XYZs
}

// Build prepares x, y, z for the chart in opts. Scatter charts receive the
// samples unchanged. Other charts receive z interpolated onto a
// Resolution×Resolution grid spanning the sample ranges.
//
// NaN samples are dropped and samples sharing an (x, y) position are
// averaged before interpolating. Fewer than three distinct positions, a
// zero span on either axis or collinear positions give ErrInsufficientData.
func Build(x, y, z []float64, opts Options) (*Plot, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(x) != len(y) || len(x) != len(z) {
		return nil, fmt.Errorf("sample arrays differ in length: x=%d y=%d z=%d", len(x), len(y), len(z))
	}

	if opts.Chart == ChartScatter {
		pts := make(plotter.XYZs, len(x))
		for i := range x {
			pts[i].X, pts[i].Y, pts[i].Z = x[i], y[i], z[i]
		}
		return &Plot{Chart: opts.Chart, Scatter: pts}, nil
	}

	s, err := prepare(x, y, z)
	if err != nil {
		return nil, err
	}
	grid, err := s.interpolate(opts)
	if err != nil {
		return nil, err
	}
	return &Plot{Chart: opts.Chart, Grid: grid}, nil
}

func insufficient(reason string, points int) error {
	return apperrors.NewDataQualityError(reason, ErrInsufficientData).WithContext("points", points)
}
