package analysis

import "github.com/user/torque_accuracy_go/internal/signals"

// Derived column names added by this package.
const (
	ColSpeedRounded           = "Speed [rpm] Rounded"
	ColTorqueDemandedErrorNm  = "Torque Demanded Error [Nm]"
	ColTorqueDemandedErrorPc  = "Torque Demanded Error [%]"
	ColTorqueEstimatedErrorNm = "Torque Estimated Error [Nm]"
	ColTorqueEstimatedErrorPc = "Torque Estimated Error [%]"
)

// Target describes one accuracy analysis: the torque signal under test and
// the error columns derived from it against the measured torque.
type Target struct {
	Name     string // "Output" or "Estimated"
	Signal   string // column of the signal under test
	ErrorNm  string
	ErrorPct string
}

var (
	// OutputTarget compares demanded torque with measured torque.
	OutputTarget = Target{
		Name:     "Output",
		Signal:   signals.ColTorqueDemanded,
		ErrorNm:  ColTorqueDemandedErrorNm,
		ErrorPct: ColTorqueDemandedErrorPc,
	}
	// EstimatedTarget compares the controller's torque estimate with
	// measured torque.
	EstimatedTarget = Target{
		Name:     "Estimated",
		Signal:   signals.ColTorqueEstimated,
		ErrorNm:  ColTorqueEstimatedErrorNm,
		ErrorPct: ColTorqueEstimatedErrorPc,
	}
)

// DefaultGroupKeys groups samples into test points by rounded speed and DC
// voltage.
var DefaultGroupKeys = []string{ColSpeedRounded, signals.ColDCVoltage}

// Limits are the pass/fail thresholds for one target.
type Limits struct {
	Nm       float64
	Pct      float64
	Disabled bool // skip comparison; every statistic passes
}

// Stats is a min/mean/max triple of absolute errors with a fail flag per
// statistic. A statistic is NaN when every value it covers is undefined;
// NaN statistics are never flagged.
type Stats struct {
	Min      float64
	Mean     float64
	Max      float64
	MinFail  bool
	MeanFail bool
	MaxFail  bool
}

// Failed reports whether any statistic exceeds its limit.
func (s Stats) Failed() bool { return s.MinFail || s.MeanFail || s.MaxFail }

// GroupResult holds the statistics of one test point.
type GroupResult struct {
	Keys        []float64 // values of the group key columns, in key order
	Samples     int
	MeanTarget  float64 // mean of the signal under test
	MeanCurrent float64 // mean DC current, NaN when the column is absent
	Nm          Stats
	Pct         Stats
}

// Pass reports whether the group is within both limits.
func (g GroupResult) Pass() bool { return !g.Nm.Failed() && !g.Pct.Failed() }

// Accuracy is the aggregated accuracy table of one target.
type Accuracy struct {
	Target    Target
	GroupKeys []string
	Limits    Limits
	Groups    []GroupResult // ascending by Keys
	Nm        Stats         // across all groups
	Pct       Stats         // across all groups
}

// FailedGroups counts groups outside a limit.
func (a *Accuracy) FailedGroups() int {
	n := 0
	for _, g := range a.Groups {
		if !g.Pass() {
			n++
		}
	}
	return n
}
