package pipeline

import (
	"time"

	"github.com/user/torque_accuracy_go/internal/analysis"
	"github.com/user/torque_accuracy_go/internal/config"
	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/surface"
	"github.com/user/torque_accuracy_go/internal/table"
	"github.com/user/torque_accuracy_go/internal/transient"
)

// Stage names, as reported to the Observer.
const (
	StageValidate  = "validate"
	StageResolve   = "resolve"
	StageSelect    = "select"
	StageDetect    = "detect"
	StageRemove    = "remove"
	StageBin       = "bin"
	StageErrors    = "errors"
	StageAggregate = "aggregate"
	StagePlot      = "plot"
)

// Observer receives stage timings and run outcomes.
type Observer interface {
	ObserveStage(stage string, elapsed time.Duration, err error)
	ObserveRun(outcome string, elapsed time.Duration, rows, transients int)
}

type noopObserver struct{}

func (noopObserver) ObserveStage(string, time.Duration, error) {}
func (noopObserver) ObserveRun(string, time.Duration, int, int) {}

// Issue is a per-stage problem that did not stop the run.
type Issue struct {
	Stage   string              `json:"stage"`
	Plot    config.PlotKind     `json:"plot,omitempty"`
	Type    apperrors.ErrorType `json:"type"`
	Message string              `json:"message"`
}

// PlotResult is the prepared data of one requested accuracy chart.
type PlotResult struct {
	Kind   config.PlotKind
	XLabel string
	YLabel string
	ZLabel string
	Plot   *surface.Plot
}

// Result is everything one run produces.
type Result struct {
	RunID    string
	Mode     signals.Mode
	Mapping  signals.Mapping
	Started  time.Time
	Duration time.Duration

	Rows          int // rows entering the pipeline
	ParseWarnings []string

	Segments          transient.Segments
	Preview           *transient.Window // nil when no transient was found
	TransientsRemoved int
	RowsRemaining     int

	UniqueSpeedPoints int
	Data              *table.Table // binned table with error columns

	Output    *analysis.Accuracy
	Estimated *analysis.Accuracy // nil in Output mode

	Plots  []PlotResult
	Issues []Issue
}
