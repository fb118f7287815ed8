package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/user/torque_accuracy_go/internal/errors"
)

func validDetails() ReportDetails {
	return ReportDetails{
		TestName:      "Gen 5 torque accuracy",
		User:          "operator",
		TestDate:      time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		Dyno:          "Dyno 3",
		SoftwareLevel: "Tag",
		Controller:    Unit{Manufacturer: "Turntide", Model: "Gen 5", Sample: "B2"},
		Motor:         Unit{Manufacturer: "Yasa", Model: "Oxford", Sample: "A0"},
	}
}

func TestDefault(t *testing.T) {
	c := Default()
	require.Len(t, c.Samples, 20)
	assert.Equal(t, "A0", c.Samples[0])
	assert.Equal(t, "D4", c.Samples[19])
	assert.Contains(t, c.Dynos, Other)
}

func TestModelsFor(t *testing.T) {
	c := Default()

	models, ok := c.ModelsFor(KindController, "Turntide")
	require.True(t, ok)
	assert.Equal(t, []string{"Gen 5 Oxford", "Gen 5", "Gen 4 Size 10", "Gen 4 Size 8"}, models)

	models, ok = c.ModelsFor(KindController, "Borgwarner")
	require.True(t, ok)
	assert.Len(t, models, 3)

	models, ok = c.ModelsFor(KindMotor, "Intergral Powertrain")
	require.True(t, ok)
	assert.Equal(t, []string{"Bowfell"}, models)

	_, ok = c.ModelsFor(KindMotor, Other)
	assert.False(t, ok)
	_, ok = c.ModelsFor("inverter", "Turntide")
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	c := Default()
	require.NoError(t, c.Validate(validDetails()))

	free := validDetails()
	free.Motor = Unit{Manufacturer: Other, Model: "Prototype X"}
	assert.NoError(t, c.Validate(free))

	tests := []struct {
		name   string
		mutate func(*ReportDetails)
	}{
		{"missing name", func(d *ReportDetails) { d.TestName = "" }},
		{"missing date", func(d *ReportDetails) { d.TestDate = time.Time{} }},
		{"unknown dyno", func(d *ReportDetails) { d.Dyno = "Dyno 9" }},
		{"unknown sample", func(d *ReportDetails) { d.Controller.Sample = "E1" }},
		{"model not offered", func(d *ReportDetails) { d.Controller.Model = "Oxford" }},
		{"missing model", func(d *ReportDetails) { d.Motor.Model = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := validDetails()
			tt.mutate(&d)
			err := c.Validate(d)
			require.Error(t, err)
			assert.True(t, apperrors.IsConfig(err))
		})
	}
}
