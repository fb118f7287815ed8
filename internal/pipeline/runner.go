// Package pipeline runs one accuracy analysis end to end: signal mapping,
// transient removal, speed binning, error aggregation and surface
// preparation.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/user/torque_accuracy_go/internal/analysis"
	"github.com/user/torque_accuracy_go/internal/config"
	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/infrastructure"
	"github.com/user/torque_accuracy_go/internal/parser"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/surface"
	"github.com/user/torque_accuracy_go/internal/table"
	"github.com/user/torque_accuracy_go/internal/transient"
)

// Runner executes analyses with fixed settings. It keeps no state between
// runs and is safe for concurrent use.
type Runner struct {
	settings config.Settings
	logger   *slog.Logger
	observer Observer
}

// NewRunner creates a Runner. A nil logger uses the global logger and a nil
// observer discards metrics.
func NewRunner(settings config.Settings, logger *slog.Logger, observer Observer) *Runner {
	if logger == nil {
		logger = infrastructure.GetLogger()
	}
	if observer == nil {
		observer = noopObserver{}
	}
	return &Runner{
		settings: settings,
		logger:   logger.With("component", "pipeline"),
		observer: observer,
	}
}

// Settings returns the settings the runner was built with.
func (r *Runner) Settings() config.Settings { return r.settings }

// Run analyses log. Manual column choices in override take precedence over
// automatic selection.
//
// Configuration errors stop the run before any computation. An empty table
// after transient removal is a data quality error and also stops the run.
// Plots that cannot be interpolated are reported in Result.Issues and the
// other plots still run.
func (r *Runner) Run(ctx context.Context, log *parser.ParsedLog, override signals.Mapping) (*Result, error) {
	if log == nil || log.Table == nil {
		return nil, apperrors.NewDataQualityError("no log data loaded", nil)
	}
	res := &Result{
		RunID:         uuid.NewString(),
		Mode:          r.settings.Mode(),
		Started:       time.Now(),
		Rows:          log.Table.Len(),
		ParseWarnings: log.ParseErrors,
	}
	ctx = infrastructure.WithRunID(ctx, res.RunID)
	r.logger.InfoContext(ctx, "analysis started",
		"sources", log.Sources, "rows", res.Rows, "mode", res.Mode)

	err := r.run(ctx, log, override, res)
	res.Duration = time.Since(res.Started)
	r.observer.ObserveRun(outcome(err), res.Duration, res.Rows, res.Segments.Count())
	if err != nil {
		r.logger.ErrorContext(ctx, "analysis failed", "error", err, "type", apperrors.TypeOf(err))
		return nil, err
	}
	r.logger.InfoContext(ctx, "analysis complete",
		"duration", res.Duration,
		"transients", res.Segments.Count(),
		"rows_remaining", res.RowsRemaining,
		"speed_points", res.UniqueSpeedPoints,
		"issues", len(res.Issues))
	return res, nil
}

func (r *Runner) run(ctx context.Context, log *parser.ParsedLog, override signals.Mapping, res *Result) error {
	s := r.settings
	mode := s.Mode()
	withEstimated := s.WithEstimated()

	if err := r.stage(ctx, StageValidate, r.validate); err != nil {
		return err
	}

	err := r.stage(ctx, StageResolve, func() error {
		res.Mapping = signals.AutoMap(log.Columns(), mode).Merge(override)
		return res.Mapping.Resolve(log.Columns(), mode)
	})
	if err != nil {
		return err
	}

	var tbl *table.Table
	err = r.stage(ctx, StageSelect, func() (err error) {
		tbl, err = signals.Select(log.Table, res.Mapping, mode)
		return err
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageDetect, func() error {
		demand, err := tbl.MustColumn(signals.ColTorqueDemanded)
		if err != nil {
			return err
		}
		res.Segments, err = transient.Detect(demand, s.DemandFilterThreshold, s.DwellPeriod)
		if err != nil {
			return err
		}
		if w, ok := transient.Preview(res.Segments, s.Sample, tbl.Len()); ok {
			res.Preview = &w
		}
		return nil
	})
	if err != nil {
		return err
	}
	r.logger.DebugContext(ctx, "transients detected", "count", res.Segments.Count())

	if s.RemoveTransients {
		err = r.stage(ctx, StageRemove, func() error {
			tbl = transient.Remove(tbl, res.Segments)
			res.TransientsRemoved = res.Segments.Count()
			if tbl.Len() == 0 {
				return apperrors.NewDataQualityError("no rows left after transient removal", nil).
					WithContext("transients", res.Segments.Count())
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	res.RowsRemaining = tbl.Len()

	err = r.stage(ctx, StageBin, func() (err error) {
		tbl, res.UniqueSpeedPoints, err = analysis.BinSpeeds(tbl, s.SpeedBase)
		return err
	})
	if err != nil {
		return err
	}

	err = r.stage(ctx, StageErrors, func() (err error) {
		tbl, err = analysis.ComputeErrors(tbl, withEstimated)
		return err
	})
	if err != nil {
		return err
	}
	res.Data = tbl

	err = r.stage(ctx, StageAggregate, func() (err error) {
		res.Output, err = analysis.Aggregate(tbl, analysis.OutputTarget, s.OutputLimits(), s.GroupKeys())
		if err != nil || !withEstimated {
			return err
		}
		res.Estimated, err = analysis.Aggregate(tbl, analysis.EstimatedTarget, s.EstimatedLimits(), s.GroupKeys())
		return err
	})
	if err != nil {
		return err
	}

	for _, kind := range s.Plots {
		if err := ctx.Err(); err != nil {
			return err
		}
		plot, err := r.plot(ctx, tbl, kind)
		if err == nil {
			res.Plots = append(res.Plots, *plot)
			continue
		}
		if !apperrors.IsDataQuality(err) {
			return err
		}
		r.logger.WarnContext(ctx, "plot skipped", "plot", kind, "error", err)
		res.Issues = append(res.Issues, Issue{
			Stage:   StagePlot,
			Plot:    kind,
			Type:    apperrors.ErrTypeDataQuality,
			Message: err.Error(),
		})
	}
	return nil
}

// validate checks the settings before any data is touched.
func (r *Runner) validate() error {
	if err := r.settings.Validate(); err != nil {
		return err
	}
	if r.settings.WithEstimated() {
		return nil
	}
	for _, kind := range r.settings.Plots {
		if kind.Estimated() {
			return apperrors.NewConfigError(fmt.Sprintf("plot %s needs analysis mode %q", kind, signals.ModeOutputAndEstimate), nil).
				WithContext("plot", string(kind))
		}
	}
	return nil
}

// plot prepares one accuracy chart: error against rounded speed and the
// torque signal under test.
func (r *Runner) plot(ctx context.Context, tbl *table.Table, kind config.PlotKind) (*PlotResult, error) {
	target := analysis.OutputTarget
	if kind.Estimated() {
		target = analysis.EstimatedTarget
	}
	zCol := target.ErrorNm
	if kind == config.PlotDemandedErrorPct || kind == config.PlotEstimatedErrorPct {
		zCol = target.ErrorPct
	}

	var out *PlotResult
	err := r.stage(ctx, StagePlot, func() error {
		x, err := tbl.MustColumn(analysis.ColSpeedRounded)
		if err != nil {
			return err
		}
		y, err := tbl.MustColumn(target.Signal)
		if err != nil {
			return err
		}
		z, err := tbl.MustColumn(zCol)
		if err != nil {
			return err
		}
		p, err := surface.Build(x, y, z, r.settings.SurfaceOptions())
		if err != nil {
			return fmt.Errorf("plot %s: %w", kind, err)
		}
		out = &PlotResult{
			Kind:   kind,
			XLabel: analysis.ColSpeedRounded,
			YLabel: target.Signal,
			ZLabel: zCol,
			Plot:   p,
		}
		return nil
	})
	return out, err
}

// stage times fn and reports it to the observer, after checking ctx.
func (r *Runner) stage(ctx context.Context, name string, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start := time.Now()
	err := fn()
	r.observer.ObserveStage(name, time.Since(start), err)
	return err
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case apperrors.TypeOf(err) != "":
		return strings.ToLower(string(apperrors.TypeOf(err)))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "error"
	}
}
