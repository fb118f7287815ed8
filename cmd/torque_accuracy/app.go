package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"github.com/user/torque_accuracy_go/internal/config"
	"github.com/user/torque_accuracy_go/internal/metrics"
	"github.com/user/torque_accuracy_go/internal/parser"
	"github.com/user/torque_accuracy_go/internal/pipeline"
	"github.com/user/torque_accuracy_go/internal/report"
	"github.com/user/torque_accuracy_go/internal/signals"
	transport "github.com/user/torque_accuracy_go/internal/transport/http"
)

// App is bound to the desktop front-end.
type App struct {
	ctx      context.Context
	settings config.Settings
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewApp creates a new App application struct
func NewApp(settings config.Settings, recorder *metrics.Recorder, logger *slog.Logger) *App {
	return &App{settings: settings, recorder: recorder, logger: logger.With("component", "desktop")}
}

// Startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx
	runtime.WindowSetTitle(a.ctx, "Torque Accuracy")
}

func (a *App) sendStatus(message string) {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, "statusUpdate", message)
	}
	a.logger.Info(message)
}

// SelectLogs opens a file dialog for one or more dyno logs.
func (a *App) SelectLogs() ([]string, error) {
	return runtime.OpenMultipleFilesDialog(a.ctx, runtime.OpenDialogOptions{
		Title: "Select dyno logs",
		Filters: []runtime.FileFilter{
			{DisplayName: "Dyno logs (*.csv;*.xlsx)", Pattern: "*.csv;*.xlsx;*.txt"},
		},
	})
}

// Columns loads the logs and returns their columns with the automatic signal
// selection for the configured mode.
func (a *App) Columns(paths []string) (*transport.ColumnsResponse, error) {
	log, err := parser.ParseFiles(paths)
	if err != nil {
		return nil, err
	}
	columns := log.Columns()
	return &transport.ColumnsResponse{
		Sources:       log.Sources,
		Rows:          log.Table.Len(),
		Columns:       columns,
		Options:       signals.Options(columns),
		Mapping:       signals.AutoMap(columns, a.settings.Mode()),
		ParseWarnings: log.ParseErrors,
	}, nil
}

// Analyse runs the analysis in the background. Progress is emitted as
// "statusUpdate" events and the outcome as "analysisComplete" with a success
// flag and either the report or the error message.
func (a *App) Analyse(paths []string, settingsJSON, mappingJSON string) (string, error) {
	settings, err := a.settings.WithJSON([]byte(settingsJSON))
	if err != nil {
		return "", err
	}
	mapping, err := signals.ParseMapping([]byte(mappingJSON))
	if err != nil {
		return "", err
	}

	go func() {
		ctx := a.ctx
		if ctx == nil {
			ctx = context.Background()
		}
		defer func() {
			if r := recover(); r != nil {
				msg := fmt.Sprintf("PANIC recovered: %v", r)
				a.sendStatus(msg)
				a.emit("analysisComplete", false, msg)
			}
		}()

		a.emit("analysisStart")
		doc, err := a.analyse(ctx, paths, settings, mapping)
		if err != nil {
			a.sendStatus(fmt.Sprintf("Analysis failed: %v", err))
			a.emit("analysisComplete", false, err.Error())
			return
		}
		a.emit("analysisComplete", true, doc)
	}()
	return "Analysis started in background.", nil
}

func (a *App) analyse(ctx context.Context, paths []string, settings config.Settings, mapping signals.Mapping) (*report.Report, error) {
	a.sendStatus(fmt.Sprintf("Parsing %d file(s)", len(paths)))
	log, err := parser.ParseFiles(paths)
	if err != nil {
		return nil, err
	}
	a.sendStatus(fmt.Sprintf("Parsed %d rows.", log.Table.Len()))
	for _, w := range log.ParseErrors {
		a.sendStatus("- " + w)
	}

	var observer pipeline.Observer
	if a.recorder != nil {
		observer = a.recorder
	}
	res, err := pipeline.NewRunner(settings, a.logger, observer).Run(ctx, log, mapping)
	if err != nil {
		return nil, err
	}
	a.sendStatus(fmt.Sprintf("%d transients detected, %d unique speed points.", res.Segments.Count(), res.UniqueSpeedPoints))
	for _, issue := range res.Issues {
		a.sendStatus(fmt.Sprintf("- %s: %s", issue.Plot, issue.Message))
	}
	return report.Build(res, settings), nil
}

func (a *App) emit(event string, data ...interface{}) {
	if a.ctx != nil {
		runtime.EventsEmit(a.ctx, event, data...)
	}
}
