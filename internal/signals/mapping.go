package signals

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
	"github.com/user/torque_accuracy_go/internal/table"
)

// Mapping assigns a raw column name to each role. An empty or NotSelected
// entry means the role is unresolved.
type Mapping map[Role]string

// AutoMap runs AutoSelect for every role the mode needs using
// DefaultSymbols. Unmatched roles are left as NotSelected.
func AutoMap(columns []string, mode Mode) Mapping {
	options := Options(columns)
	m := make(Mapping)
	for _, role := range RequiredRoles(mode) {
		m[role] = options[AutoSelect(options, DefaultSymbols[role])]
	}
	return m
}

// ParseMapping decodes a JSON object keyed by canonical column names, e.g.
// {"Speed [rpm]": "n_act"}. Empty input gives an empty mapping.
func ParseMapping(raw []byte) (Mapping, error) {
	m := make(Mapping)
	if len(bytes.TrimSpace(raw)) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, apperrors.NewConfigError("malformed signal mapping", err)
	}
	return m, nil
}

// Merge returns a copy of m with every resolved entry of override applied.
// Hosts use it to lay manual selections over the automatic ones.
func (m Mapping) Merge(override Mapping) Mapping {
	out := make(Mapping, len(m))
	for role, col := range m {
		out[role] = col
	}
	for role, col := range override {
		if col != "" && col != NotSelected {
			out[role] = col
		}
	}
	return out
}

// Resolve checks that every role the mode requires names an existing,
// distinct column. Any gap is a configuration error: the pipeline must not
// run until the operator has picked a column for each role.
func (m Mapping) Resolve(columns []string, mode Mode) error {
	available := make(map[string]bool, len(columns))
	for _, c := range columns {
		available[c] = true
	}

	var unresolved, unknown []string
	usedBy := make(map[string]Role)
	var clashes []string
	for _, role := range RequiredRoles(mode) {
		col := m[role]
		switch {
		case col == "" || col == NotSelected:
			unresolved = append(unresolved, role.Column())
		case !available[col]:
			unknown = append(unknown, fmt.Sprintf("%s=%q", role.Column(), col))
		default:
			if other, taken := usedBy[col]; taken {
				clashes = append(clashes, fmt.Sprintf("%q used for both %s and %s", col, other.Column(), role.Column()))
				continue
			}
			usedBy[col] = role
		}
	}

	if len(unresolved) == 0 && len(unknown) == 0 && len(clashes) == 0 {
		return nil
	}
	sort.Strings(unresolved)
	var parts []string
	if len(unresolved) > 0 {
		parts = append(parts, "not selected: "+strings.Join(unresolved, ", "))
	}
	if len(unknown) > 0 {
		parts = append(parts, "unknown columns: "+strings.Join(unknown, ", "))
	}
	if len(clashes) > 0 {
		parts = append(parts, strings.Join(clashes, "; "))
	}
	return apperrors.NewConfigError("signal mapping incomplete ("+strings.Join(parts, "; ")+")", nil).
		WithContext("unresolved_roles", unresolved)
}

// Select keeps only the mapped columns and renames them to their canonical
// names. The mapping must already be resolved for the mode.
func Select(tbl *table.Table, m Mapping, mode Mode) (*table.Table, error) {
	if err := m.Resolve(tbl.Names(), mode); err != nil {
		return nil, err
	}
	roles := RequiredRoles(mode)
	names := make([]string, 0, len(roles))
	rename := make(map[string]string, len(roles))
	for _, role := range roles {
		names = append(names, m[role])
		rename[m[role]] = role.Column()
	}
	return tbl.Select(names, rename)
}
