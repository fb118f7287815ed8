// Package transient finds the settling windows that follow step changes in
// the torque demand and strips them so only steady-state samples remain.
package transient

import (
	"math"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
)

// Segments holds the transient windows of one table as parallel index
// lists. Window k covers rows [Steps[k], Stops[k]).
type Segments struct {
	Steps []int `json:"steps"`
	Stops []int `json:"stops"`
}

// Count returns the number of transient windows. Every window is a real
// step; no trailing boundary is appended.
func (s Segments) Count() int { return len(s.Stops) }

// Mask returns a per-row flag that is true inside any window.
func (s Segments) Mask(n int) []bool {
	mask := make([]bool, n)
	for k := range s.Stops {
		for i := max(s.Steps[k], 0); i < s.Stops[k] && i < n; i++ {
			mask[i] = true
		}
	}
	return mask
}

type state int

const (
	steady state = iota
	settling
)

// Detect scans the demand signal once. While steady, a sample that differs
// from the baseline by more than threshold opens a window at that row which
// lasts dwell rows (at least the step row itself) and is clamped to the end
// of the table. While settling, changes are ignored; once the window has
// passed, the last demand seen becomes the new baseline.
//
// NaN demand samples never open a window and are never used as a baseline.
func Detect(demand []float64, threshold float64, dwell int) (Segments, error) {
	if threshold < 0 || math.IsNaN(threshold) {
		return Segments{}, apperrors.NewConfigError("demand filter threshold must be >= 0", nil).WithContext("threshold", threshold)
	}
	if dwell < 0 {
		return Segments{}, apperrors.NewConfigError("dwell period must be >= 0", nil).WithContext("dwell_period", dwell)
	}

	segs := Segments{Steps: make([]int, 0), Stops: make([]int, 0)}
	n := len(demand)
	if n == 0 {
		return segs, nil
	}

	window := max(dwell, 1)
	st := steady
	baseline := math.NaN()
	lastSeen := math.NaN()
	stop := 0

	for i, d := range demand {
		if st == settling && i >= stop {
			st = steady
			baseline = lastSeen
		}
		if !math.IsNaN(d) {
			lastSeen = d
		}
		if st == settling || math.IsNaN(d) {
			continue
		}
		if math.IsNaN(baseline) {
			baseline = d
			continue
		}
		if math.Abs(d-baseline) > threshold {
			stop = min(i+window, n)
			segs.Steps = append(segs.Steps, i)
			segs.Stops = append(segs.Stops, stop)
			baseline = d
			st = settling
		}
	}
	return segs, nil
}
