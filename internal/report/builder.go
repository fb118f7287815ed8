// Package report converts pipeline results into plain, JSON-safe payloads
// for a rendering host.
package report

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"gonum.org/v1/plot/plotter"

	"github.com/user/torque_accuracy_go/internal/analysis"
	"github.com/user/torque_accuracy_go/internal/config"
	"github.com/user/torque_accuracy_go/internal/pipeline"
)

// Build assembles the report for a finished run.
func Build(res *pipeline.Result, settings config.Settings) *Report {
	r := &Report{
		RunID:         res.RunID,
		DurationMs:    res.Duration.Milliseconds(),
		Mode:          res.Mode,
		Mapping:       res.Mapping,
		Settings:      settings,
		Rows:          res.Rows,
		ParseWarnings: nonNil(res.ParseWarnings),
		Transients: Transients{
			Count:   res.Segments.Count(),
			Removed: res.TransientsRemoved,
			Steps:   nonNilInts(res.Segments.Steps),
			Stops:   nonNilInts(res.Segments.Stops),
			Preview: res.Preview,
			Message: transientMessage(res),
		},
		RowsRemaining: res.RowsRemaining,
		SpeedPoints:   res.UniqueSpeedPoints,
		Plots:         make([]Plot, 0, len(res.Plots)),
		Issues:        res.Issues,
	}
	if r.Issues == nil {
		r.Issues = []pipeline.Issue{}
	}
	if res.Output != nil {
		r.Output = accuracy(res.Output)
	}
	if res.Estimated != nil {
		r.Estimated = accuracy(res.Estimated)
	}
	for _, p := range res.Plots {
		out := Plot{
			Kind:   p.Kind,
			Chart:  string(p.Plot.Chart),
			XLabel: p.XLabel,
			YLabel: p.YLabel,
			ZLabel: p.ZLabel,
		}
		if p.Plot.Grid != nil {
			out.Grid = GridFrom(p.Plot.Grid)
		} else {
			out.Points = PointsFrom(p.Plot.Scatter)
		}
		r.Plots = append(r.Plots, out)
	}
	return r
}

func transientMessage(res *pipeline.Result) string {
	if res.TransientsRemoved > 0 {
		return fmt.Sprintf("%d Transients Removed", res.TransientsRemoved)
	}
	return fmt.Sprintf("%d Transients Detected", res.Segments.Count())
}

func accuracy(a *analysis.Accuracy) *Accuracy {
	out := &Accuracy{
		Target:       a.Target.Name,
		Signal:       a.Target.Signal,
		GroupKeys:    a.GroupKeys,
		Limits:       Limit{Nm: a.Limits.Nm, Pct: a.Limits.Pct, Disabled: a.Limits.Disabled},
		Nm:           stats(a.Nm, "Nm"),
		Pct:          stats(a.Pct, "%"),
		Groups:       make([]Group, 0, len(a.Groups)),
		FailedGroups: a.FailedGroups(),
	}
	for _, g := range a.Groups {
		keys := make([]*float64, len(g.Keys))
		for i, k := range g.Keys {
			keys[i] = Number(k)
		}
		out.Groups = append(out.Groups, Group{
			Keys:        keys,
			Samples:     g.Samples,
			MeanTarget:  Number(g.MeanTarget),
			MeanCurrent: Number(g.MeanCurrent),
			Nm:          stats(g.Nm, "Nm"),
			Pct:         stats(g.Pct, "%"),
			Pass:        g.Pass(),
		})
	}
	return out
}

func stats(s analysis.Stats, unit string) Stats {
	return Stats{
		Min:  Value{Value: Number(s.Min), Display: FormatValue(s.Min, unit), Pass: !s.MinFail},
		Mean: Value{Value: Number(s.Mean), Display: FormatValue(s.Mean, unit), Pass: !s.MeanFail},
		Max:  Value{Value: Number(s.Max), Display: FormatValue(s.Max, unit), Pass: !s.MaxFail},
	}
}

// GridFrom copies any gridded plotter data into a payload grid.
func GridFrom(g plotter.GridXYZ) *Grid {
	c, r := g.Dims()
	out := &Grid{X: make([]float64, c), Y: make([]float64, r), Z: make([][]*float64, r)}
	for i := 0; i < c; i++ {
		out.X[i] = g.X(i)
	}
	for j := 0; j < r; j++ {
		out.Y[j] = g.Y(j)
		out.Z[j] = make([]*float64, c)
		for i := 0; i < c; i++ {
			out.Z[j][i] = Number(g.Z(i, j))
		}
	}
	return out
}

// PointsFrom copies scatter samples into payload points.
func PointsFrom(xyz plotter.XYZer) []Point {
	if xyz == nil {
		return []Point{}
	}
	out := make([]Point, xyz.Len())
	for i := range out {
		x, y, z := xyz.XYZ(i)
		out[i] = Point{X: Number(x), Y: Number(y), Z: Number(z)}
	}
	return out
}

// Number returns nil for NaN and infinities.
func Number(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// FormatValue renders v rounded to three decimals followed by unit, e.g.
// "0.667Nm". Whole numbers keep one decimal ("5.0%").
func FormatValue(v float64, unit string) string {
	if math.IsNaN(v) {
		return "undefined"
	}
	s := strconv.FormatFloat(math.Round(v*1000)/1000, 'f', -1, 64)
	if !strings.Contains(s, ".") && !math.IsInf(v, 0) {
		s += ".0"
	}
	return s + unit
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
