package transient

import "github.com/user/torque_accuracy_go/internal/table"

// Remove returns the rows of tbl that fall outside every window, keeping
// their order. The input table is not modified.
func Remove(tbl *table.Table, segs Segments) *table.Table {
	if segs.Count() == 0 {
		return tbl
	}
	mask := segs.Mask(tbl.Len())
	return tbl.Filter(func(row int) bool { return !mask[row] })
}

// Window is an advisory view around one transient, used to check that the
// dwell period covers the settling time.
type Window struct {
	Sample int `json:"sample"` // 1-based index of the previewed transient
	Step   int `json:"step"`
	Stop   int `json:"stop"`
	From   int `json:"from"` // first row to display
	To     int `json:"to"`   // one past the last row to display
}

// Preview selects the sample-th transient (1-based). A sample of 0 picks the
// middle one, and out-of-range samples are clamped. It reports false when
// there are no transients. The preview pads the window by its own length on
// both sides within [0, n).
func Preview(segs Segments, sample, n int) (Window, bool) {
	count := segs.Count()
	if count == 0 {
		return Window{}, false
	}
	if sample <= 0 {
		sample = (count + 1) / 2
	}
	sample = min(sample, count)

	step, stop := segs.Steps[sample-1], segs.Stops[sample-1]
	pad := max(stop-step, 1)
	return Window{
		Sample: sample,
		Step:   step,
		Stop:   stop,
		From:   max(step-pad, 0),
		To:     min(stop+pad, n),
	}, true
}
