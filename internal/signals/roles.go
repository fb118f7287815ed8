// Package signals maps raw log column headers onto the channel roles the
// analysis needs.
package signals

import (
	"fmt"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
)

// Role is the canonical meaning of a log column.
type Role int

const (
	TorqueDemanded Role = iota
	TorqueMeasured
	TorqueEstimated
	Speed
	DCVoltage
	DCCurrent
)

// Canonical column names used after mapping.
const (
	ColTorqueDemanded  = "Torque Demanded [Nm]"
	ColTorqueMeasured  = "Torque Measured [Nm]"
	ColTorqueEstimated = "Torque Estimated [Nm]"
	ColSpeed           = "Speed [rpm]"
	ColDCVoltage       = "DC Voltage"
	ColDCCurrent       = "DC Current"
)

// Roles lists every role in selection order.
var Roles = []Role{TorqueMeasured, TorqueDemanded, TorqueEstimated, Speed, DCVoltage, DCCurrent}

// Column returns the canonical column name of the role.
func (r Role) Column() string {
	switch r {
	case TorqueDemanded:
		return ColTorqueDemanded
	case TorqueMeasured:
		return ColTorqueMeasured
	case TorqueEstimated:
		return ColTorqueEstimated
	case Speed:
		return ColSpeed
	case DCVoltage:
		return ColDCVoltage
	case DCCurrent:
		return ColDCCurrent
	}
	return fmt.Sprintf("Role(%d)", int(r))
}

func (r Role) String() string { return r.Column() }

// MarshalText encodes the role as its canonical column name, so mappings
// travel as {"Speed [rpm]": "n_rpm"} objects.
func (r Role) MarshalText() ([]byte, error) { return []byte(r.Column()), nil }

// UnmarshalText accepts a canonical column name.
func (r *Role) UnmarshalText(b []byte) error {
	role, ok := RoleByColumn(string(b))
	if !ok {
		return apperrors.NewConfigError(fmt.Sprintf("unknown signal role %q", string(b)), nil)
	}
	*r = role
	return nil
}

// Mode selects which torque signals are analysed.
type Mode string

const (
	ModeOutput            Mode = "Output"
	ModeOutputAndEstimate Mode = "Output & Estimated"
)

// RequiredRoles returns the roles that must be mapped for the mode.
// TorqueEstimated is only needed when the estimate is analysed too.
func RequiredRoles(mode Mode) []Role {
	out := make([]Role, 0, len(Roles))
	for _, r := range Roles {
		if r == TorqueEstimated && mode != ModeOutputAndEstimate {
			continue
		}
		out = append(out, r)
	}
	return out
}

// RoleByColumn resolves a canonical column name back to its role.
func RoleByColumn(name string) (Role, bool) {
	for _, r := range Roles {
		if r.Column() == name {
			return r, true
		}
	}
	return 0, false
}
