package report

import (
	"github.com/user/torque_accuracy_go/internal/catalog"
	"github.com/user/torque_accuracy_go/internal/config"
	"github.com/user/torque_accuracy_go/internal/pipeline"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/transient"
)

// Report is the JSON document handed to a presentation layer. Undefined
// numbers are encoded as null.
type Report struct {
	RunID         string           `json:"run_id"`
	DurationMs    int64            `json:"duration_ms"`
	Mode          signals.Mode     `json:"analysis_mode"`
	Mapping       signals.Mapping  `json:"mapping"`
	Settings      config.Settings  `json:"settings"`
	Rows          int              `json:"rows"`
	ParseWarnings []string         `json:"parse_warnings"`
	Transients    Transients       `json:"transients"`
	RowsRemaining int              `json:"rows_remaining"`
	SpeedPoints   int              `json:"unique_speed_points"`
	Output        *Accuracy        `json:"output"`
	Estimated     *Accuracy        `json:"estimated,omitempty"`
	Plots         []Plot           `json:"plots"`
	Issues        []pipeline.Issue `json:"issues"`

	// Details is the optional test header supplied by the operator.
	Details *catalog.ReportDetails `json:"details,omitempty"`
}

// Transients describes the detected settling windows.
type Transients struct {
	Count   int               `json:"count"`
	Removed int               `json:"removed"`
	Steps   []int             `json:"steps"`
	Stops   []int             `json:"stops"`
	Preview *transient.Window `json:"preview,omitempty"`
	Message string            `json:"message"`
}

// Limit echoes the limits a target was judged against.
type Limit struct {
	Nm       float64 `json:"nm"`
	Pct      float64 `json:"pct"`
	Disabled bool    `json:"disabled"`
}

// Value is one statistic with its display form and verdict.
type Value struct {
	Value   *float64 `json:"value"`
	Display string   `json:"display"`
	Pass    bool     `json:"pass"`
}

// Stats is a min/mean/max triple.
type Stats struct {
	Min  Value `json:"min"`
	Mean Value `json:"mean"`
	Max  Value `json:"max"`
}

// Group is one row of the accuracy table.
type Group struct {
	Keys        []*float64 `json:"keys"`
	Samples     int        `json:"samples"`
	MeanTarget  *float64   `json:"mean_target"`
	MeanCurrent *float64   `json:"mean_current"`
	Nm          Stats      `json:"nm"`
	Pct         Stats      `json:"pct"`
	Pass        bool       `json:"pass"`
}

// Accuracy is the accuracy table and headline figures of one target.
type Accuracy struct {
	Target       string   `json:"target"`
	Signal       string   `json:"signal"`
	GroupKeys    []string `json:"group_keys"`
	Limits       Limit    `json:"limits"`
	Nm           Stats    `json:"nm"`
	Pct          Stats    `json:"pct"`
	Groups       []Group  `json:"groups"`
	FailedGroups int      `json:"failed_groups"`
}

// Grid is a regular mesh; Z is indexed [row][column].
type Grid struct {
	X []float64    `json:"x"`
	Y []float64    `json:"y"`
	Z [][]*float64 `json:"z"`
}

// Point is one raw scatter sample.
type Point struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
	Z *float64 `json:"z"`
}

// Plot is the data of one chart.
type Plot struct {
	Kind   config.PlotKind `json:"kind"`
	Chart  string          `json:"chart"`
	XLabel string          `json:"x_label"`
	YLabel string          `json:"y_label"`
	ZLabel string          `json:"z_label"`
	Grid   *Grid           `json:"grid,omitempty"`
	Points []Point         `json:"points,omitempty"`
}
