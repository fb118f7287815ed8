package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/user/torque_accuracy_go/internal/analysis"
	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/surface"
)

// PlotKind names one of the accuracy charts a run can produce.
type PlotKind string

const (
	PlotDemandedErrorNm   PlotKind = "demanded_error_nm"
	PlotDemandedErrorPct  PlotKind = "demanded_error_pct"
	PlotEstimatedErrorNm  PlotKind = "estimated_error_nm"
	PlotEstimatedErrorPct PlotKind = "estimated_error_pct"
)

// Estimated reports whether the plot needs the estimated torque signal.
func (k PlotKind) Estimated() bool {
	return k == PlotEstimatedErrorNm || k == PlotEstimatedErrorPct
}

// Settings is the analysis configuration of one run.
type Settings struct {
	AnalysisMode string `yaml:"analysis_mode" envconfig:"MODE" json:"analysis_mode" validate:"oneof=Output 'Output & Estimated'"`

	OutputLimitNm          float64 `yaml:"output_limit_nm" envconfig:"OUTPUT_LIMIT_NM" json:"output_limit_nm" validate:"gte=-100,lte=100"`
	OutputLimitPct         float64 `yaml:"output_limit_pct" envconfig:"OUTPUT_LIMIT_PCT" json:"output_limit_pct" validate:"gte=-100,lte=100"`
	OutputLimitDisabled    bool    `yaml:"output_limit_disabled" envconfig:"OUTPUT_LIMIT_DISABLED" json:"output_limit_disabled"`
	EstimatedLimitNm       float64 `yaml:"estimated_limit_nm" envconfig:"ESTIMATED_LIMIT_NM" json:"estimated_limit_nm" validate:"gte=-100,lte=100"`
	EstimatedLimitPct      float64 `yaml:"estimated_limit_pct" envconfig:"ESTIMATED_LIMIT_PCT" json:"estimated_limit_pct" validate:"gte=-100,lte=100"`
	EstimatedLimitDisabled bool    `yaml:"estimated_limit_disabled" envconfig:"ESTIMATED_LIMIT_DISABLED" json:"estimated_limit_disabled"`

	DwellPeriod           int     `yaml:"dwell_period" envconfig:"DWELL_PERIOD" json:"dwell_period" validate:"gte=0"`
	DemandFilterThreshold float64 `yaml:"demand_filter_threshold" envconfig:"DEMAND_FILTER_THRESHOLD" json:"demand_filter_threshold" validate:"gte=0"`
	RemoveTransients      bool    `yaml:"remove_transients" envconfig:"REMOVE_TRANSIENTS" json:"remove_transients"`
	Sample                int     `yaml:"sample" envconfig:"SAMPLE" json:"sample" validate:"gte=0"`
	SpeedBase             int     `yaml:"speed_base" envconfig:"SPEED_BASE" json:"speed_base" validate:"gte=1"`

	ChartType      string     `yaml:"chart_type" envconfig:"CHART_TYPE" json:"chart_type" validate:"oneof=Contour Surface Heatmap '3D Scatter'"`
	FillPolicy     string     `yaml:"fill_policy" envconfig:"FILL_POLICY" json:"fill_policy" validate:"oneof=undefined zero"`
	InterpMethod   string     `yaml:"interp_method" envconfig:"INTERP_METHOD" json:"interp_method" validate:"oneof=linear cubic"`
	GridResolution int        `yaml:"grid_resolution" envconfig:"GRID_RESOLUTION" json:"grid_resolution" validate:"gte=2,lte=500"`
	Plots          []PlotKind `yaml:"plots" envconfig:"PLOTS" json:"plots" validate:"dive,oneof=demanded_error_nm demanded_error_pct estimated_error_nm estimated_error_pct"`

	// GroupBy overrides the test point key columns.
	GroupBy []string `yaml:"group_by" envconfig:"GROUP_BY" json:"group_by" validate:"dive,required"`
}

// DefaultSettings mirrors the values an operator starts from.
func DefaultSettings() Settings {
	return Settings{
		AnalysisMode:      string(signals.ModeOutputAndEstimate),
		OutputLimitNm:     5,
		OutputLimitPct:    5,
		EstimatedLimitNm:  5,
		EstimatedLimitPct: 5,
		DwellPeriod:       500,
		RemoveTransients:  true,
		SpeedBase:         50,
		ChartType:         string(surface.ChartContour),
		FillPolicy:        string(surface.FillUndefined),
		InterpMethod:      string(surface.MethodLinear),
		GridResolution:    50,
	}
}

var validate = validator.New()

// Validate checks every field, returning a configuration error that lists
// the offending fields.
func (s Settings) Validate() error {
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperrors.NewConfigError("invalid analysis settings", err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s=%v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return apperrors.NewConfigError("invalid analysis settings: "+strings.Join(fields, ", "), err).
		WithContext("fields", fields)
}

// WithJSON returns a copy of s overlaid with the fields present in raw, a
// JSON object using the yaml/json key names. Empty input returns s. The
// result is validated.
func (s Settings) WithJSON(raw []byte) (Settings, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return s, s.Validate()
	}
	out := s
	out.Plots = slices.Clone(s.Plots)
	out.GroupBy = slices.Clone(s.GroupBy)

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&out); err != nil {
		return s, apperrors.NewConfigError("malformed analysis settings", err)
	}
	return out, out.Validate()
}

// Mode returns the analysis mode.
func (s Settings) Mode() signals.Mode { return signals.Mode(s.AnalysisMode) }

// WithEstimated reports whether the estimated torque is analysed.
func (s Settings) WithEstimated() bool { return s.Mode() == signals.ModeOutputAndEstimate }

// OutputLimits returns the limits for demanded torque accuracy.
func (s Settings) OutputLimits() analysis.Limits {
	return analysis.Limits{Nm: s.OutputLimitNm, Pct: s.OutputLimitPct, Disabled: s.OutputLimitDisabled}
}

// EstimatedLimits returns the limits for estimated torque accuracy.
func (s Settings) EstimatedLimits() analysis.Limits {
	return analysis.Limits{Nm: s.EstimatedLimitNm, Pct: s.EstimatedLimitPct, Disabled: s.EstimatedLimitDisabled}
}

// GroupKeys returns GroupBy, or the default speed/voltage keys.
func (s Settings) GroupKeys() []string {
	if len(s.GroupBy) == 0 {
		return analysis.DefaultGroupKeys
	}
	return s.GroupBy
}

// SurfaceOptions returns the interpolation options for the accuracy plots.
func (s Settings) SurfaceOptions() surface.Options {
	return surface.Options{
		Chart:      surface.ChartKind(s.ChartType),
		Fill:       surface.FillPolicy(s.FillPolicy),
		Method:     surface.Method(s.InterpMethod),
		Resolution: s.GridResolution,
	}
}
