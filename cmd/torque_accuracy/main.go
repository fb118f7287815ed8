// Command torque_accuracy is the desktop shell around the analysis. The
// HTTP API doubles as its asset handler so the front-end can use either
// bindings or fetch.
package main

import (
	"log/slog"
	"os"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/user/torque_accuracy_go/internal/config"
	"github.com/user/torque_accuracy_go/internal/infrastructure"
	"github.com/user/torque_accuracy_go/internal/metrics"
	transport "github.com/user/torque_accuracy_go/internal/transport/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	recorder := metrics.NewRecorder()
	app := NewApp(cfg.Analysis, recorder, logger)
	api := transport.NewHandler(cfg.Analysis, cfg.Server, recorder, logger)

	err = wails.Run(&options.App{
		Title:  "Torque Accuracy",
		Width:  1280,
		Height: 860,
		AssetServer: &assetserver.Options{
			Handler: api.Routes(),
		},
		BackgroundColour: &options.RGBA{R: 46, G: 46, B: 46, A: 255},
		OnStartup:        app.Startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Error("Error running Wails app", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
