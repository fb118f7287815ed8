package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/torque_accuracy_go/internal/analysis"
	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/surface"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "torque.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	cfg, err := LoadFile("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, RateLimitConfig{RPS: 5, Burst: 10}, cfg.Server.RateLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultSettings(), cfg.Analysis)
	assert.Equal(t, 500, cfg.Analysis.DwellPeriod)
	assert.Equal(t, 50, cfg.Analysis.SpeedBase)
	assert.Equal(t, 50, cfg.Analysis.GridResolution)
}

func TestLoadFile_YAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
server:
  port: 9090
  read_timeout: 5s
analysis:
  analysis_mode: Output
  dwell_period: 120
  speed_base: 100
  plots: [demanded_error_nm, demanded_error_pct]
`)
	t.Setenv("TORQUE_ANALYSIS_SPEED_BASE", "25")
	t.Setenv("TORQUE_LOGGING_LEVEL", "debug")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, 2*time.Minute, cfg.Server.WriteTimeout)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "Output", cfg.Analysis.AnalysisMode)
	assert.Equal(t, 120, cfg.Analysis.DwellPeriod)
	assert.Equal(t, 25, cfg.Analysis.SpeedBase)
	assert.Equal(t, []PlotKind{PlotDemandedErrorNm, PlotDemandedErrorPct}, cfg.Analysis.Plots)
	assert.Equal(t, 5.0, cfg.Analysis.OutputLimitNm)
}

func TestLoad_UsesConfigFileEnv(t *testing.T) {
	path := writeYAML(t, "server:\n  port: 7000\n")
	t.Setenv("TORQUE_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "server: [not, a, map]\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "logging:\n  output: syslog\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "server:\n  shutdown_timeout: 0s\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "server:\n  shutdown_timeout: -1s\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "server:\n  rate_limit:\n    rps: 2\n    burst: 0\n"))
	assert.Error(t, err)

	_, err = LoadFile(writeYAML(t, "analysis:\n  speed_base: 0\n"))
	require.Error(t, err)
	assert.True(t, apperrors.IsConfig(err))
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{"mode", func(s *Settings) { s.AnalysisMode = "Estimated" }},
		{"negative dwell", func(s *Settings) { s.DwellPeriod = -1 }},
		{"negative threshold", func(s *Settings) { s.DemandFilterThreshold = -0.1 }},
		{"zero base", func(s *Settings) { s.SpeedBase = 0 }},
		{"limit range", func(s *Settings) { s.OutputLimitPct = 101 }},
		{"chart", func(s *Settings) { s.ChartType = "Bar" }},
		{"fill", func(s *Settings) { s.FillPolicy = "NaN" }},
		{"method", func(s *Settings) { s.InterpMethod = "nearest" }},
		{"resolution", func(s *Settings) { s.GridResolution = 1 }},
		{"plot", func(s *Settings) { s.Plots = []PlotKind{"speed"} }},
		{"group key", func(s *Settings) { s.GroupBy = []string{""} }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.mutate(&s)
			err := s.Validate()
			require.Error(t, err)
			assert.True(t, apperrors.IsConfig(err))
		})
	}

	s := DefaultSettings()
	s.ChartType = "3D Scatter"
	s.AnalysisMode = "Output"
	assert.NoError(t, s.Validate())
}

func TestSettingsAccessors(t *testing.T) {
	s := DefaultSettings()
	s.OutputLimitDisabled = true
	s.EstimatedLimitNm = 2

	assert.Equal(t, signals.ModeOutputAndEstimate, s.Mode())
	assert.True(t, s.WithEstimated())
	assert.Equal(t, analysis.Limits{Nm: 5, Pct: 5, Disabled: true}, s.OutputLimits())
	assert.Equal(t, analysis.Limits{Nm: 2, Pct: 5}, s.EstimatedLimits())
	assert.Equal(t, analysis.DefaultGroupKeys, s.GroupKeys())
	assert.Equal(t, surface.Options{
		Chart:      surface.ChartContour,
		Fill:       surface.FillUndefined,
		Method:     surface.MethodLinear,
		Resolution: 50,
	}, s.SurfaceOptions())

	s.GroupBy = []string{signals.ColSpeed}
	assert.Equal(t, []string{signals.ColSpeed}, s.GroupKeys())
	assert.True(t, PlotEstimatedErrorPct.Estimated())
	assert.False(t, PlotDemandedErrorNm.Estimated())
}

func TestSettingsWithJSON(t *testing.T) {
	base := DefaultSettings()
	base.Plots = []PlotKind{PlotDemandedErrorNm}

	got, err := base.WithJSON([]byte(`{"dwell_period": 40, "analysis_mode": "Output", "plots": ["demanded_error_pct"]}`))
	require.NoError(t, err)
	assert.Equal(t, 40, got.DwellPeriod)
	assert.Equal(t, "Output", got.AnalysisMode)
	assert.Equal(t, 50, got.SpeedBase)
	assert.Equal(t, []PlotKind{PlotDemandedErrorPct}, got.Plots)
	assert.Equal(t, []PlotKind{PlotDemandedErrorNm}, base.Plots)

	same, err := base.WithJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, base, same)

	_, err = base.WithJSON([]byte(`{"dwell": 40}`))
	assert.True(t, apperrors.IsConfig(err))

	_, err = base.WithJSON([]byte(`{"grid_resolution": 1000}`))
	assert.True(t, apperrors.IsConfig(err))
}
