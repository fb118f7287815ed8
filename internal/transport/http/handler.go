// Package http exposes the analysis pipeline over a JSON HTTP API.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"golang.org/x/sync/errgroup"

	"github.com/user/torque_accuracy_go/internal/catalog"
	"github.com/user/torque_accuracy_go/internal/config"
	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/metrics"
	"github.com/user/torque_accuracy_go/internal/parser"
	"github.com/user/torque_accuracy_go/internal/pipeline"
	"github.com/user/torque_accuracy_go/internal/report"
	"github.com/user/torque_accuracy_go/internal/signals"
)

// Handler serves the analysis API.
type Handler struct {
	settings config.Settings
	server   config.ServerConfig
	catalog  *catalog.Catalog
	recorder *metrics.Recorder
	logger   *slog.Logger
}

// NewHandler creates a handler. settings are the defaults each analysis
// request starts from. recorder may be nil.
func NewHandler(settings config.Settings, server config.ServerConfig, recorder *metrics.Recorder, logger *slog.Logger) *Handler {
	return &Handler{
		settings: settings,
		server:   server,
		catalog:  catalog.Default(),
		recorder: recorder,
		logger:   logger.With(slog.String("component", "http")),
	}
}

// Routes returns the full router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.Health)
	if h.recorder != nil {
		r.Method(http.MethodGet, "/metrics", h.recorder.Handler())
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(render.SetContentType(render.ContentTypeJSON))
		r.Get("/catalog", h.Catalog)
		r.Get("/settings", h.Settings)
		r.Post("/columns", h.Columns)
		r.Group(func(r chi.Router) {
			if rl := h.server.RateLimit; rl.RPS > 0 {
				r.Use(newRateLimiter(rl.RPS, rl.Burst, h.logger).Handler)
			}
			r.Post("/analyses", h.Analyse)
		})
	})
	return r
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.InfoContext(r.Context(), "request",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)))
	})
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{"status": "ok"})
}

// Catalog handles GET /api/v1/catalog
func (h *Handler) Catalog(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.catalog)
}

// Settings handles GET /api/v1/settings
func (h *Handler) Settings(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.settings)
}

// ColumnsResponse lists the columns of uploaded logs with the automatic
// role selection.
type ColumnsResponse struct {
	Sources       []string        `json:"sources"`
	Rows          int             `json:"rows"`
	Columns       []string        `json:"columns"`
	Options       []string        `json:"options"`
	Mapping       signals.Mapping `json:"mapping"`
	ParseWarnings []string        `json:"parse_warnings"`
}

// Columns handles POST /api/v1/columns (multipart "files", optional
// "analysis_mode").
func (h *Handler) Columns(w http.ResponseWriter, r *http.Request) {
	defer removeUploads(r)
	log, apiErr := h.readLogs(r)
	if apiErr != nil {
		h.fail(w, r, apiErr)
		return
	}
	mode := signals.Mode(r.FormValue("analysis_mode"))
	if mode == "" {
		mode = h.settings.Mode()
	}
	columns := log.Columns()
	render.JSON(w, r, ColumnsResponse{
		Sources:       log.Sources,
		Rows:          log.Table.Len(),
		Columns:       columns,
		Options:       signals.Options(columns),
		Mapping:       signals.AutoMap(columns, mode),
		ParseWarnings: log.ParseErrors,
	})
}

// Analyse handles POST /api/v1/analyses (multipart "files", optional JSON
// fields "settings", "mapping" and "details").
func (h *Handler) Analyse(w http.ResponseWriter, r *http.Request) {
	defer removeUploads(r)
	log, apiErr := h.readLogs(r)
	if apiErr != nil {
		h.fail(w, r, apiErr)
		return
	}

	settings, err := h.settings.WithJSON([]byte(r.FormValue("settings")))
	if err != nil {
		h.fail(w, r, newAPIError(err))
		return
	}
	mapping, err := signals.ParseMapping([]byte(r.FormValue("mapping")))
	if err != nil {
		h.fail(w, r, newAPIError(err))
		return
	}
	var details *catalog.ReportDetails
	if raw := r.FormValue("details"); raw != "" {
		details = &catalog.ReportDetails{}
		if err := json.Unmarshal([]byte(raw), details); err != nil {
			h.fail(w, r, badRequest(fmt.Sprintf("malformed report details: %v", err)))
			return
		}
		if err := h.catalog.Validate(*details); err != nil {
			h.fail(w, r, newAPIError(err))
			return
		}
	}

	var observer pipeline.Observer
	if h.recorder != nil {
		observer = h.recorder
	}
	res, err := pipeline.NewRunner(settings, h.logger, observer).Run(r.Context(), log, mapping)
	if err != nil {
		h.fail(w, r, newAPIError(err))
		return
	}
	doc := report.Build(res, settings)
	doc.Details = details
	render.JSON(w, r, doc)
}

// readLogs parses the uploaded files concurrently and stacks them in upload
// order.
func (h *Handler) readLogs(r *http.Request) (*parser.ParsedLog, *APIError) {
	if err := r.ParseMultipartForm(h.server.MaxUploadBytes); err != nil {
		return nil, badRequest(fmt.Sprintf("invalid multipart upload: %v", err))
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		return nil, badRequest(`no log files uploaded in field "files"`)
	}

	logs := make([]*parser.ParsedLog, len(headers))
	var g errgroup.Group
	g.SetLimit(4)
	for i, fh := range headers {
		g.Go(func() error {
			parsed, err := parseUpload(fh)
			if err != nil {
				return err
			}
			logs[i] = parsed
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, newAPIError(err)
	}
	return parser.Concat(logs...), nil
}

// removeUploads deletes the temporary files of a parsed multipart form.
func removeUploads(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}

func parseUpload(fh *multipart.FileHeader) (*parser.ParsedLog, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, apperrors.NewParsingError("failed to open upload", err).WithContext("file", fh.Filename)
	}
	defer f.Close()
	return parser.ParseReader(f, fh.Filename)
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, e *APIError) {
	level := slog.LevelWarn
	if e.StatusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	msg := e.Message
	if e.cause != nil {
		msg = e.cause.Error()
	}
	h.logger.Log(r.Context(), level, "request failed",
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.Int("status", e.StatusCode),
		slog.String("error", msg))
	if err := render.Render(w, r, e); err != nil {
		http.Error(w, e.Message, e.StatusCode)
	}
}
