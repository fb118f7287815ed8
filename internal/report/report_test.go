package report

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/plot/plotter"

	"github.com/user/torque_accuracy_go/internal/analysis"
	"github.com/user/torque_accuracy_go/internal/config"
	"github.com/user/torque_accuracy_go/internal/pipeline"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/surface"
	"github.com/user/torque_accuracy_go/internal/transient"
)

func TestFormatValue(t *testing.T) {
	tests := []struct {
		v    float64
		unit string
		want string
	}{
		{0.66666, "Nm", "0.667Nm"},
		{5, "%", "5.0%"},
		{12.3456, "%", "12.346%"},
		{0.0004, "Nm", "0.0Nm"},
		{math.NaN(), "Nm", "undefined"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatValue(tt.v, tt.unit))
	}
}

func TestNumber(t *testing.T) {
	assert.Nil(t, Number(math.NaN()))
	assert.Nil(t, Number(math.Inf(-1)))
	require.NotNil(t, Number(1.5))
	assert.Equal(t, 1.5, *Number(1.5))
}

func sampleResult() *pipeline.Result {
	nan := math.NaN()
	out := &analysis.Accuracy{
		Target:    analysis.OutputTarget,
		GroupKeys: analysis.DefaultGroupKeys,
		Limits:    analysis.Limits{Nm: 1, Pct: 5},
		Groups: []analysis.GroupResult{
			{
				Keys: []float64{1000, 400}, Samples: 3, MeanTarget: 10, MeanCurrent: nan,
				Nm:  analysis.Stats{Min: 0.2, Mean: 0.5, Max: 1.2, MaxFail: true},
				Pct: analysis.Stats{Min: nan, Mean: nan, Max: nan},
			},
		},
		Nm:  analysis.Stats{Min: 0.2, Mean: 0.5, Max: 1.2, MaxFail: true},
		Pct: analysis.Stats{Min: nan, Mean: nan, Max: nan},
	}
	return &pipeline.Result{
		RunID:             "run-1",
		Mode:              signals.ModeOutput,
		Mapping:           signals.Mapping{signals.Speed: "n"},
		Duration:          1500 * time.Millisecond,
		Rows:              10,
		Segments:          transient.Segments{Steps: []int{2}, Stops: []int{4}},
		Preview:           &transient.Window{Sample: 1, Step: 2, Stop: 4, From: 0, To: 6},
		TransientsRemoved: 1,
		RowsRemaining:     8,
		UniqueSpeedPoints: 1,
		Output:            out,
		Plots: []pipeline.PlotResult{
			{
				Kind: config.PlotDemandedErrorNm, XLabel: "x", YLabel: "y", ZLabel: "z",
				Plot: &surface.Plot{Chart: surface.ChartScatter, Scatter: plotter.XYZs{{X: 1, Y: 2, Z: nan}}},
			},
			{
				Kind: config.PlotDemandedErrorPct,
				Plot: &surface.Plot{Chart: surface.ChartHeatmap, Grid: &surface.Grid{
					Xs: []float64{0, 1},
					Ys: []float64{5},
					Zs: [][]float64{{3, nan}},
				}},
			},
		},
	}
}

func TestBuild(t *testing.T) {
	settings := config.DefaultSettings()
	r := Build(sampleResult(), settings)

	assert.Equal(t, "run-1", r.RunID)
	assert.Equal(t, int64(1500), r.DurationMs)
	assert.Equal(t, 1, r.Transients.Count)
	assert.Equal(t, "1 Transients Removed", r.Transients.Message)
	assert.Equal(t, []string{}, r.ParseWarnings)
	assert.Equal(t, []pipeline.Issue{}, r.Issues)
	assert.Nil(t, r.Estimated)

	out := r.Output
	require.NotNil(t, out)
	assert.Equal(t, "Output", out.Target)
	assert.Equal(t, 1, out.FailedGroups)
	assert.Equal(t, "1.2Nm", out.Nm.Max.Display)
	assert.False(t, out.Nm.Max.Pass)
	assert.True(t, out.Nm.Mean.Pass)
	assert.Equal(t, "undefined", out.Pct.Mean.Display)
	assert.True(t, out.Pct.Mean.Pass)
	require.Len(t, out.Groups, 1)
	assert.Nil(t, out.Groups[0].MeanCurrent)
	assert.False(t, out.Groups[0].Pass)

	require.Len(t, r.Plots, 2)
	assert.Equal(t, "3D Scatter", r.Plots[0].Chart)
	require.Len(t, r.Plots[0].Points, 1)
	assert.Nil(t, r.Plots[0].Points[0].Z)
	assert.Nil(t, r.Plots[0].Grid)

	g := r.Plots[1].Grid
	require.NotNil(t, g)
	assert.Equal(t, []float64{0, 1}, g.X)
	assert.Equal(t, 3.0, *g.Z[0][0])
	assert.Nil(t, g.Z[0][1])
}

func TestBuild_MarshalsWithNulls(t *testing.T) {
	b, err := json.Marshal(Build(sampleResult(), config.DefaultSettings()))
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(b, &doc))
	assert.Equal(t, "n", doc["mapping"].(map[string]interface{})["Speed [rpm]"])

	output := doc["output"].(map[string]interface{})
	pct := output["pct"].(map[string]interface{})
	assert.Nil(t, pct["min"].(map[string]interface{})["value"])
	assert.NotContains(t, doc, "estimated")
}

func TestGridFromHeatMapGrid(t *testing.T) {
	g := GridFrom(&surface.Grid{Xs: []float64{1, 2, 3}, Ys: []float64{4, 5}, Zs: [][]float64{{1, 2, 3}, {4, 5, 6}}})
	assert.Equal(t, []float64{4, 5}, g.Y)
	require.Len(t, g.Z, 2)
	assert.Equal(t, 6.0, *g.Z[1][2])

	assert.Equal(t, []Point{}, PointsFrom(nil))
}
