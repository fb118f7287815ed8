package analysis

import (
	"math"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/table"
)

// RoundToBase rounds v to the nearest multiple of base, ties to even as the
// numpy rounding the test rigs' reports were built on.
func RoundToBase(v float64, base int) float64 {
	b := float64(base)
	return math.RoundToEven(v/b) * b
}

// BinSpeeds adds the rounded speed column used as the test point key and
// returns the number of distinct speed points found. NaN speeds stay NaN
// and are not counted.
func BinSpeeds(tbl *table.Table, base int) (*table.Table, int, error) {
	if base < 1 {
		return nil, 0, apperrors.NewConfigError("speed base must be at least 1", nil).WithContext("speed_base", base)
	}
	speed, err := tbl.MustColumn(signals.ColSpeed)
	if err != nil {
		return nil, 0, apperrors.NewConfigError("speed signal not mapped", err)
	}

	rounded := make([]float64, len(speed))
	unique := make(map[float64]struct{})
	for i, v := range speed {
		rounded[i] = RoundToBase(v, base)
		if !math.IsNaN(rounded[i]) {
			unique[rounded[i]] = struct{}{}
		}
	}

	out, err := tbl.WithColumn(ColSpeedRounded, rounded)
	if err != nil {
		return nil, 0, err
	}
	return out, len(unique), nil
}
