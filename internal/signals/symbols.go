package signals

import "strings"

// NotSelected is the placeholder at index 0 of every selection list.
const NotSelected = "Not Selected"

// DefaultSymbols holds the header keywords tried for each role, most
// specific first. Matching is a case-sensitive substring test.
var DefaultSymbols = map[Role][]string{
	TorqueMeasured: {
		"Torque Measured", "Measured Torque", "Torque_Measured", "T_Measured", "TrqMeas", "T_meas",
		"Dyno Torque", "Shaft Torque", "Torque Sensor", "Torque [Nm]",
	},
	TorqueDemanded: {
		"Torque Demanded", "Demanded Torque", "Torque_Demanded", "Torque Demand", "Torque Request",
		"Torque Command", "Torque Reference", "TrqReq", "TrqDem", "T_dem", "T_Ref",
	},
	TorqueEstimated: {
		"Torque Estimated", "Estimated Torque", "Torque_Estimated", "Torque Estimate", "TrqEst", "T_est",
		"Calculated Torque",
	},
	Speed: {
		"Speed [rpm]", "Speed_rpm", "Speed (rpm)", "Motor Speed", "Shaft Speed", "Dyno Speed", "Speed",
		"RPM", "rpm",
	},
	DCVoltage: {
		"DC Voltage", "DC Link Voltage", "DC_Voltage", "DC Bus Voltage", "Vdc", "VDC", "V_dc", "U_dc",
		"Udc",
	},
	DCCurrent: {
		"DC Current", "DC Link Current", "DC_Current", "DC Bus Current", "Idc", "IDC", "I_dc",
	},
}

// Options returns the selection list shown to the operator: the
// placeholder followed by the raw columns in file order.
func Options(columns []string) []string {
	out := make([]string, 0, len(columns)+1)
	out = append(out, NotSelected)
	return append(out, columns...)
}

// AutoSelect returns the index into options of the first column containing
// the highest-priority pattern that matches anything, or 0 (NotSelected)
// when no pattern matches. options[0] is never matched.
func AutoSelect(options []string, patterns []string) int {
	for _, pattern := range patterns {
		if pattern == "" {
			continue
		}
		for i := 1; i < len(options); i++ {
			if strings.Contains(options[i], pattern) {
				return i
			}
		}
	}
	return 0
}
