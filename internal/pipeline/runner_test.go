package pipeline

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/torque_accuracy_go/internal/analysis"
	"github.com/user/torque_accuracy_go/internal/config"
	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/infrastructure"
	"github.com/user/torque_accuracy_go/internal/parser"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/surface"
	"github.com/user/torque_accuracy_go/internal/table"
)

const dynoLog = `Time,Torque Demanded,Torque Measured,TrqEst,Motor Speed,Vdc,Idc
0.0,0,0.5,0.2,1001,400,10
0.1,0,0.5,0.2,999,400,10
0.2,0,0.5,0.2,1010,400,10
0.3,10,3,9,1000,400,50
0.4,10,8,9,1000,400,50
0.5,10,9,9.5,1498,400,50
0.6,10,11,10.5,1502,400,50
0.7,0,5,0,1500,400,10
0.8,0,2,0,1500,400,10
`

type stageCall struct {
	stage string
	err   error
}

type recordingObserver struct {
	mu       sync.Mutex
	stages   []stageCall
	outcomes []string
}

func (o *recordingObserver) ObserveStage(stage string, _ time.Duration, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stages = append(o.stages, stageCall{stage, err})
}

func (o *recordingObserver) ObserveRun(outcome string, _ time.Duration, _, _ int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.outcomes = append(o.outcomes, outcome)
}

func (o *recordingObserver) stageNames() []string {
	names := make([]string, len(o.stages))
	for i, s := range o.stages {
		names[i] = s.stage
	}
	return names
}

func loadLog(t *testing.T, body string) *parser.ParsedLog {
	t.Helper()
	log, err := parser.ParseReader(strings.NewReader(body), "dyno.csv")
	require.NoError(t, err)
	return log
}

func testSettings() config.Settings {
	s := config.DefaultSettings()
	s.DwellPeriod = 2
	s.DemandFilterThreshold = 1
	s.OutputLimitPct = 10
	s.GridResolution = 5
	return s
}

func TestRun_EndToEnd(t *testing.T) {
	var logs bytes.Buffer
	logger, err := infrastructure.NewLogger(config.LoggingConfig{Level: "debug"}, &logs)
	require.NoError(t, err)
	obs := &recordingObserver{}

	s := testSettings()
	s.Plots = []config.PlotKind{config.PlotDemandedErrorNm}
	res, err := NewRunner(s, logger, obs).Run(context.Background(), loadLog(t, dynoLog), nil)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, 9, res.Rows)
	assert.Equal(t, []int{3, 7}, res.Segments.Steps)
	assert.Equal(t, []int{5, 9}, res.Segments.Stops)
	assert.Equal(t, 2, res.TransientsRemoved)
	assert.Equal(t, 5, res.RowsRemaining)
	assert.Equal(t, 2, res.UniqueSpeedPoints)
	require.NotNil(t, res.Preview)
	assert.Equal(t, 1, res.Preview.Sample)

	rounded, ok := res.Data.Column(analysis.ColSpeedRounded)
	require.True(t, ok)
	assert.Equal(t, []float64{1000, 1000, 1000, 1500, 1500}, rounded)

	out := res.Output
	require.NotNil(t, out)
	require.Len(t, out.Groups, 2)
	assert.Equal(t, []float64{1000, 400}, out.Groups[0].Keys)
	assert.InDelta(t, 0.5, out.Groups[0].Nm.Mean, 1e-12)
	assert.InDelta(t, 100, out.Groups[0].Pct.Max, 1e-9)
	assert.True(t, out.Groups[0].Pct.MinFail)
	assert.False(t, out.Groups[1].Pct.MinFail)
	assert.True(t, out.Groups[1].Pct.MeanFail)
	assert.InDelta(t, 10, out.Groups[1].MeanTarget, 1e-12)
	assert.InDelta(t, 0.7, out.Nm.Mean, 1e-12)
	assert.Equal(t, 2, out.FailedGroups())

	est := res.Estimated
	require.NotNil(t, est)
	assert.InDelta(t, 0.3, est.Groups[0].Nm.Max, 1e-12)
	assert.InDelta(t, 0.5, est.Groups[1].Nm.Min, 1e-12)

	// Two distinct (speed, demand) positions cannot span a surface.
	assert.Empty(t, res.Plots)
	require.Len(t, res.Issues, 1)
	assert.Equal(t, config.PlotDemandedErrorNm, res.Issues[0].Plot)
	assert.Equal(t, apperrors.ErrTypeDataQuality, res.Issues[0].Type)

	assert.Equal(t, []string{
		StageValidate, StageResolve, StageSelect, StageDetect, StageRemove,
		StageBin, StageErrors, StageAggregate, StagePlot,
	}, obs.stageNames())
	assert.Equal(t, []string{"success"}, obs.outcomes)
	assert.Contains(t, logs.String(), res.RunID)
	assert.Contains(t, logs.String(), "plot skipped")
}

func TestRun_KeepTransientsBuildsGrid(t *testing.T) {
	s := testSettings()
	s.RemoveTransients = false
	s.Plots = []config.PlotKind{config.PlotDemandedErrorNm, config.PlotEstimatedErrorPct}

	res, err := NewRunner(s, nil, nil).Run(context.Background(), loadLog(t, dynoLog), nil)
	require.NoError(t, err)

	assert.Equal(t, 0, res.TransientsRemoved)
	assert.Equal(t, 9, res.RowsRemaining)
	assert.Empty(t, res.Issues)
	require.Len(t, res.Plots, 2)

	p := res.Plots[0]
	assert.Equal(t, analysis.ColSpeedRounded, p.XLabel)
	assert.Equal(t, signals.ColTorqueDemanded, p.YLabel)
	assert.Equal(t, analysis.ColTorqueDemandedErrorNm, p.ZLabel)
	require.NotNil(t, p.Plot.Grid)
	c, r := p.Plot.Grid.Dims()
	assert.Equal(t, 5, c)
	assert.Equal(t, 5, r)
	assert.Equal(t, 1000.0, p.Plot.Grid.X(0))
	assert.Equal(t, 1500.0, p.Plot.Grid.X(4))

	assert.Equal(t, signals.ColTorqueEstimated, res.Plots[1].YLabel)
	assert.Equal(t, analysis.ColTorqueEstimatedErrorPc, res.Plots[1].ZLabel)
}

func TestRun_ScatterPlot(t *testing.T) {
	s := testSettings()
	s.ChartType = string(surface.ChartScatter)
	s.Plots = []config.PlotKind{config.PlotDemandedErrorPct}

	res, err := NewRunner(s, nil, nil).Run(context.Background(), loadLog(t, dynoLog), nil)
	require.NoError(t, err)
	require.Len(t, res.Plots, 1)
	assert.Len(t, res.Plots[0].Plot.Scatter, 5)
	assert.Nil(t, res.Plots[0].Plot.Grid)
}

func TestRun_OutputModeSkipsEstimated(t *testing.T) {
	s := testSettings()
	s.AnalysisMode = string(signals.ModeOutput)

	body := strings.ReplaceAll(dynoLog, "TrqEst", "Spare")
	res, err := NewRunner(s, nil, nil).Run(context.Background(), loadLog(t, body), nil)
	require.NoError(t, err)
	assert.Nil(t, res.Estimated)
	assert.False(t, res.Data.Has(analysis.ColTorqueEstimatedErrorNm))
	assert.NotContains(t, res.Mapping, signals.TorqueEstimated)
}

func TestRun_ManualMappingOverride(t *testing.T) {
	body := strings.ReplaceAll(dynoLog, "Idc", "I_bat")
	obs := &recordingObserver{}

	_, err := NewRunner(testSettings(), nil, obs).Run(context.Background(), loadLog(t, body), nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err))
	assert.Equal(t, []string{StageValidate, StageResolve}, obs.stageNames())
	assert.Equal(t, []string{"config"}, obs.outcomes)

	res, err := NewRunner(testSettings(), nil, nil).Run(context.Background(), loadLog(t, body),
		signals.Mapping{signals.DCCurrent: "I_bat"})
	require.NoError(t, err)
	assert.Equal(t, "I_bat", res.Mapping[signals.DCCurrent])
}

func TestRun_ConfigurationErrorsHaltEarly(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*config.Settings)
	}{
		{"speed base", func(s *config.Settings) { s.SpeedBase = 0 }},
		{"resolution", func(s *config.Settings) { s.GridResolution = 501 }},
		{"estimated plot in output mode", func(s *config.Settings) {
			s.AnalysisMode = string(signals.ModeOutput)
			s.Plots = []config.PlotKind{config.PlotEstimatedErrorNm}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			tt.mutate(&s)
			obs := &recordingObserver{}

			res, err := NewRunner(s, nil, obs).Run(context.Background(), loadLog(t, dynoLog), nil)
			require.Error(t, err)
			assert.Nil(t, res)
			assert.True(t, apperrors.IsConfig(err))
			assert.Equal(t, []string{StageValidate}, obs.stageNames())
		})
	}
}

func TestRun_EmptyTableIsDataQualityError(t *testing.T) {
	names := []string{"Torque Demanded", "Torque Measured", "TrqEst", "Motor Speed", "Vdc", "Idc"}
	cols := make([][]float64, len(names))
	for i := range cols {
		cols[i] = []float64{}
	}
	tbl, err := table.New(names, cols)
	require.NoError(t, err)
	log := parser.NewParsedLog()
	log.Table = tbl

	obs := &recordingObserver{}
	_, err = NewRunner(testSettings(), nil, obs).Run(context.Background(), log, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsDataQuality(err))
	assert.Equal(t, []string{"data_quality"}, obs.outcomes)

	_, err = NewRunner(testSettings(), nil, nil).Run(context.Background(), nil, nil)
	assert.True(t, apperrors.IsDataQuality(err))
}

func TestRun_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	obs := &recordingObserver{}

	_, err := NewRunner(testSettings(), nil, obs).Run(ctx, loadLog(t, dynoLog), nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, obs.stages)
	assert.Equal(t, []string{"canceled"}, obs.outcomes)
}
