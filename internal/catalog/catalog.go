// Package catalog holds the equipment lists offered when describing a test
// and the validated report header built from them.
package catalog

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
)

// Other marks a free-text entry outside the known lists.
const Other = "Other"

// Kind selects a manufacturer list.
type Kind string

const (
	KindController Kind = "controller"
	KindMotor      Kind = "motor"
)

// Catalog is the full set of choices, as served to a host.
type Catalog struct {
	ControllerManufacturers []string            `json:"controller_manufacturers"`
	ControllerModels        map[string][]string `json:"controller_models"`
	MotorManufacturers      []string            `json:"motor_manufacturers"`
	MotorModels             map[string][]string `json:"motor_models"`
	Dynos                   []string            `json:"dynos"`
	TorqueSpeedSensors      []string            `json:"torque_speed_sensors"`
	SoftwareLevels          []string            `json:"software_levels"`
	Samples                 []string            `json:"samples"`
}

var placeholders = []string{"Placeholder A", "Placeholder B", "Placeholder C"}

// Default returns the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		ControllerManufacturers: []string{"Turntide", "Avid", "Cascadia", "BorgWarner", Other},
		ControllerModels: map[string][]string{
			"Turntide":   {"Gen 5 Oxford", "Gen 5", "Gen 4 Size 10", "Gen 4 Size 8"},
			"Avid":       placeholders,
			"Cascadia":   placeholders,
			"BorgWarner": placeholders,
		},
		MotorManufacturers: []string{"Turntide", "Yasa", "Intergral Powertrain", Other},
		MotorModels: map[string][]string{
			"Turntide":             placeholders,
			"Yasa":                 {"Oxford"},
			"Intergral Powertrain": {"Bowfell"},
		},
		Dynos:              []string{"Dyno 1", "Dyno 2", "Dyno 3", "Dyno 4", "Dyno 5", "Dyno 6", Other},
		TorqueSpeedSensors: []string{"HBM T40 (SN:XX)", "HBM T20 (SN:XX)", "Sensor Technologies (SN:XX)"},
		SoftwareLevels:     []string{"Branch", "Tag", "Trunk", "Release Candidate", Other},
		Samples:            samples(),
	}
}

// samples returns the build sample ids A0 … D4.
func samples() []string {
	out := make([]string, 0, 20)
	for _, series := range "ABCD" {
		for i := 0; i < 5; i++ {
			out = append(out, fmt.Sprintf("%c%d", series, i))
		}
	}
	return out
}

// ModelsFor returns the model list of a manufacturer. Manufacturer names
// match case-insensitively. "Other" and unknown manufacturers have no list
// and report false: the model is free text.
func (c *Catalog) ModelsFor(kind Kind, manufacturer string) ([]string, bool) {
	var models map[string][]string
	switch kind {
	case KindController:
		models = c.ControllerModels
	case KindMotor:
		models = c.MotorModels
	default:
		return nil, false
	}
	for name, list := range models {
		if strings.EqualFold(name, manufacturer) {
			return list, true
		}
	}
	return nil, false
}

// Unit describes the controller or motor under test.
type Unit struct {
	Manufacturer string `json:"manufacturer" validate:"required"`
	Model        string `json:"model" validate:"required"`
	Sample       string `json:"sample" validate:"omitempty,len=2"`
	Notes        string `json:"notes"`
}

// ReportDetails is the optional header of a test report.
type ReportDetails struct {
	TestName              string    `json:"test_name" validate:"required,max=200"`
	User                  string    `json:"user" validate:"required"`
	TestDate              time.Time `json:"test_date" validate:"required"`
	Notes                 string    `json:"notes"`
	Dyno                  string    `json:"dyno" validate:"required"`
	TorqueSpeedSensor     string    `json:"torque_speed_sensor"`
	SensorCalibrationDate time.Time `json:"sensor_calibration_date"`
	SoftwareLevel         string    `json:"software_level"`
	SoftwareLocation      string    `json:"software_location"`
	SoftwareNotes         string    `json:"software_notes"`
	Controller            Unit      `json:"controller"`
	Motor                 Unit      `json:"motor"`
}

var validate = validator.New()

// Validate checks required fields, then that list-backed choices come from
// c. Manufacturers outside c, or "Other", accept any model.
func (c *Catalog) Validate(d ReportDetails) error {
	if err := validate.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fe.Namespace())
			}
			return apperrors.NewConfigError("invalid report details: "+strings.Join(fields, ", "), err)
		}
		return apperrors.NewConfigError("invalid report details", err)
	}

	checks := []struct {
		field, value string
		list         []string
	}{
		{"dyno", d.Dyno, c.Dynos},
		{"torque_speed_sensor", d.TorqueSpeedSensor, c.TorqueSpeedSensors},
		{"software_level", d.SoftwareLevel, c.SoftwareLevels},
		{"controller.sample", d.Controller.Sample, c.Samples},
		{"motor.sample", d.Motor.Sample, c.Samples},
	}
	for _, chk := range checks {
		if chk.value != "" && !contains(chk.list, chk.value) {
			return apperrors.NewConfigError(fmt.Sprintf("unknown %s %q", chk.field, chk.value), nil)
		}
	}

	units := []struct {
		kind Kind
		unit Unit
	}{{KindController, d.Controller}, {KindMotor, d.Motor}}
	for _, u := range units {
		if models, ok := c.ModelsFor(u.kind, u.unit.Manufacturer); ok && !contains(models, u.unit.Model) {
			return apperrors.NewConfigError(fmt.Sprintf("unknown %s model %q for %s", u.kind, u.unit.Model, u.unit.Manufacturer), nil)
		}
	}
	return nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
