package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/signals"
	"github.com/user/torque_accuracy_go/internal/table"
)

// ComputeErrors adds the signed error columns of every target present:
// error [Nm] = target − measured and error [%] = error [Nm] / measured × 100.
// A measured value of exactly zero gives an undefined (NaN) percentage.
func ComputeErrors(tbl *table.Table, withEstimated bool) (*table.Table, error) {
	measured, err := tbl.MustColumn(signals.ColTorqueMeasured)
	if err != nil {
		return nil, apperrors.NewConfigError("measured torque not mapped", err)
	}

	targets := []Target{OutputTarget}
	if withEstimated {
		targets = append(targets, EstimatedTarget)
	}

	out := tbl
	for _, target := range targets {
		signal, err := out.MustColumn(target.Signal)
		if err != nil {
			return nil, apperrors.NewConfigError(fmt.Sprintf("%s torque not mapped", strings.ToLower(target.Name)), err)
		}
		errNm, errPct := torqueError(signal, measured)
		if out, err = out.WithColumn(target.ErrorNm, errNm); err != nil {
			return nil, err
		}
		if out, err = out.WithColumn(target.ErrorPct, errPct); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func torqueError(signal, measured []float64) (errNm, errPct []float64) {
	errNm = make([]float64, len(signal))
	errPct = make([]float64, len(signal))
	for i := range signal {
		errNm[i] = signal[i] - measured[i]
		if measured[i] == 0 {
			errPct[i] = math.NaN()
			continue
		}
		errPct[i] = errNm[i] / measured[i] * 100
	}
	return errNm, errPct
}

type group struct {
	keys    []float64
	nm      []float64
	pct     []float64
	target  []float64
	current []float64
	samples int
}

// Aggregate groups rows by the key columns and reports min/mean/max of the
// absolute errors of each group against the limits. Undefined errors are
// left out of the statistics. Rows with an undefined key belong to no test
// point and are skipped. Groups come out in ascending key order.
func Aggregate(tbl *table.Table, target Target, limits Limits, groupKeys []string) (*Accuracy, error) {
	if len(groupKeys) == 0 {
		groupKeys = DefaultGroupKeys
	}
	keyCols := make([][]float64, len(groupKeys))
	for k, name := range groupKeys {
		col, err := tbl.MustColumn(name)
		if err != nil {
			return nil, apperrors.NewConfigError("group key column missing", err)
		}
		keyCols[k] = col
	}
	errNm, err := tbl.MustColumn(target.ErrorNm)
	if err != nil {
		return nil, fmt.Errorf("errors not computed for %s: %w", target.Name, err)
	}
	errPct, err := tbl.MustColumn(target.ErrorPct)
	if err != nil {
		return nil, fmt.Errorf("errors not computed for %s: %w", target.Name, err)
	}
	signal, err := tbl.MustColumn(target.Signal)
	if err != nil {
		return nil, fmt.Errorf("signal missing for %s: %w", target.Name, err)
	}
	current, hasCurrent := tbl.Column(signals.ColDCCurrent)

	groups := make(map[string]*group)
	for row := 0; row < tbl.Len(); row++ {
		keys := make([]float64, len(keyCols))
		undefinedKey := false
		for k, col := range keyCols {
			keys[k] = col[row]
			if math.IsNaN(keys[k]) {
				undefinedKey = true
			}
		}
		if undefinedKey {
			continue
		}
		id := groupID(keys)
		g, ok := groups[id]
		if !ok {
			g = &group{keys: keys}
			groups[id] = g
		}
		g.samples++
		appendDefined(&g.nm, math.Abs(errNm[row]))
		appendDefined(&g.pct, math.Abs(errPct[row]))
		appendDefined(&g.target, signal[row])
		if hasCurrent {
			appendDefined(&g.current, current[row])
		}
	}
	if len(groups) == 0 {
		return nil, apperrors.NewDataQualityError(fmt.Sprintf("no samples to aggregate for %s torque", strings.ToLower(target.Name)), nil).
			WithContext("rows", tbl.Len())
	}

	ordered := make([]*group, 0, len(groups))
	for _, g := range groups {
		ordered = append(ordered, g)
	}
	sort.Slice(ordered, func(i, j int) bool { return lessKeys(ordered[i].keys, ordered[j].keys) })

	acc := &Accuracy{
		Target:    target,
		GroupKeys: append([]string(nil), groupKeys...),
		Limits:    limits,
		Groups:    make([]GroupResult, 0, len(ordered)),
	}
	var allNm, allPct []float64
	for _, g := range ordered {
		res := GroupResult{
			Keys:        g.keys,
			Samples:     g.samples,
			MeanTarget:  mean(g.target),
			MeanCurrent: math.NaN(),
			Nm:          summarise(g.nm, limits.Nm, limits.Disabled),
			Pct:         summarise(g.pct, limits.Pct, limits.Disabled),
		}
		if hasCurrent {
			res.MeanCurrent = mean(g.current)
		}
		acc.Groups = append(acc.Groups, res)
		allNm = append(allNm, g.nm...)
		allPct = append(allPct, g.pct...)
	}
	acc.Nm = summarise(allNm, limits.Nm, limits.Disabled)
	acc.Pct = summarise(allPct, limits.Pct, limits.Disabled)
	return acc, nil
}

// summarise computes min/mean/max of already-defined values and flags each
// statistic that is above the limit.
func summarise(values []float64, limit float64, disabled bool) Stats {
	s := Stats{Min: math.NaN(), Mean: math.NaN(), Max: math.NaN()}
	if len(values) == 0 {
		return s
	}
	s.Min = floats.Min(values)
	s.Mean = stat.Mean(values, nil)
	s.Max = floats.Max(values)
	if !disabled {
		s.MinFail = s.Min > limit
		s.MeanFail = s.Mean > limit
		s.MaxFail = s.Max > limit
	}
	return s
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return math.NaN()
	}
	return stat.Mean(values, nil)
}

func appendDefined(dst *[]float64, v float64) {
	if !math.IsNaN(v) {
		*dst = append(*dst, v)
	}
}

func groupID(keys []float64) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		if k == 0 {
			k = 0 // fold -0 into 0
		}
		b.WriteString(strconv.FormatFloat(k, 'g', -1, 64))
	}
	return b.String()
}

func lessKeys(a, b []float64) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
