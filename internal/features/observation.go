package features

import (
	"errors"
	"fmt"
	"math"

	"predmaint/internal/model"
)

// ErrInvalidInput marks operator input outside the fitted domains. Distinct
// from a schema mismatch: this is rejected before any model is touched.
var ErrInvalidInput = errors.New("invalid input")

// Categorical domains the artifacts were fitted on.
var (
	MachineModels    = []string{"Model_A", "Model_B", "Model_C"}
	ExperienceLevels = []string{"Junior", "Mid", "Senior"}
	FaultCodes       = []string{"None", "E101", "E202"}
)

var experienceRank = map[string]int{"Junior": 1, "Mid": 2, "Senior": 3}

// RawInput holds the 12 operator-entered fields for one machine reading.
type RawInput struct {
	MachineModel       string  `json:"machine_model"`
	AvgTemperature     float64 `json:"avg_temperature"`
	VibrationLevel     float64 `json:"vibration_level"`
	RotatingSpeed      float64 `json:"rotating_speed"`
	VoltageFluctuation float64 `json:"voltage_fluctuation"`
	TorqueNm           float64 `json:"torque_nm"`
	OilViscosity       float64 `json:"oil_viscosity"`
	AmbientHumidity    float64 `json:"ambient_humidity"`
	OperatorExperience string  `json:"operator_experience"`
	LastServiceDays    int     `json:"last_service_days"`
	FaultCode          string  `json:"fault_code"`
	WorkingHoursTotal  int     `json:"working_hours_total"`
}

// Observation is one fully engineered machine reading: the raw fields plus
// the four derived features, in the column set the preprocessor was fitted on.
type Observation struct {
	RawInput
	RollingAvgTemp          float64 `json:"rolling_avg_temp"`
	StressIndex             float64 `json:"stress_index"`
	MachineAge              int     `json:"machine_age"`
	OperatorExperienceLevel int     `json:"operator_experience_level"`
}

// Derive computes the four synthetic features from raw operator input.
// Unknown categorical values are rejected; everything else is pure
// arithmetic with no side effects.
func Derive(in RawInput) (Observation, error) {
	if !contains(MachineModels, in.MachineModel) {
		return Observation{}, fmt.Errorf("%w: unknown machine model %q", ErrInvalidInput, in.MachineModel)
	}
	rank, ok := experienceRank[in.OperatorExperience]
	if !ok {
		return Observation{}, fmt.Errorf("%w: unknown operator experience %q", ErrInvalidInput, in.OperatorExperience)
	}
	if !contains(FaultCodes, in.FaultCode) {
		return Observation{}, fmt.Errorf("%w: unknown fault code %q", ErrInvalidInput, in.FaultCode)
	}
	return Observation{
		RawInput: in,
		// Single reading per cycle: no history exists to average over, so
		// the rolling average equals the current temperature.
		RollingAvgTemp:          in.AvgTemperature,
		StressIndex:             in.TorqueNm * in.VibrationLevel,
		MachineAge:              in.WorkingHoursTotal,
		OperatorExperienceLevel: rank,
	}, nil
}

// ValidateBounds enforces the operator-input ranges. The HTML form carries
// the same bounds client-side; the JSON API relies on this check alone.
func ValidateBounds(in RawInput) error {
	checks := []struct {
		name     string
		value    float64
		min, max float64
	}{
		{"Avg_Temperature", in.AvgTemperature, 0, 150},
		{"Vibration_Level", in.VibrationLevel, 0, 20},
		{"Rotating_Speed", in.RotatingSpeed, 0, 6000},
		{"Voltage_Fluctuation", in.VoltageFluctuation, 0, 300},
		{"Torque_Nm", in.TorqueNm, 0, 200},
		{"Oil_Viscosity", in.OilViscosity, 0, 100},
		{"Ambient_Humidity", in.AmbientHumidity, 0, 100},
		{"Last_Service_Days", float64(in.LastServiceDays), 0, 1000},
		{"Working_Hours_Total", float64(in.WorkingHoursTotal), 0, 50000},
	}
	for _, c := range checks {
		if math.IsNaN(c.value) || math.IsInf(c.value, 0) {
			return fmt.Errorf("%w: %s: non-finite value", ErrInvalidInput, c.name)
		}
		if c.value < c.min || c.value > c.max {
			return fmt.Errorf("%w: %s: %g outside [%g, %g]", ErrInvalidInput, c.name, c.value, c.min, c.max)
		}
	}
	return nil
}

// ColumnNames returns the canonical 16-column order the artifacts were
// fitted on. The preprocessor's input columns must match this exactly.
func ColumnNames() []string {
	return []string{
		"Machine_Model",
		"Avg_Temperature",
		"Vibration_Level",
		"Rotating_Speed",
		"Voltage_Fluctuation",
		"Torque_Nm",
		"Oil_Viscosity",
		"Ambient_Humidity",
		"Operator_Experience",
		"Last_Service_Days",
		"Fault_Code",
		"Working_Hours_Total",
		"Rolling_Avg_Temp",
		"Stress_Index",
		"Machine_Age",
		"Operator_Experience_Level",
	}
}

// Row returns the observation as the named-field record the preprocessor
// transforms. Keys are the canonical column names.
func (o Observation) Row() model.Row {
	return model.Row{
		"Machine_Model":             o.MachineModel,
		"Avg_Temperature":           o.AvgTemperature,
		"Vibration_Level":           o.VibrationLevel,
		"Rotating_Speed":            o.RotatingSpeed,
		"Voltage_Fluctuation":       o.VoltageFluctuation,
		"Torque_Nm":                 o.TorqueNm,
		"Oil_Viscosity":             o.OilViscosity,
		"Ambient_Humidity":          o.AmbientHumidity,
		"Operator_Experience":       o.OperatorExperience,
		"Last_Service_Days":         o.LastServiceDays,
		"Fault_Code":                o.FaultCode,
		"Working_Hours_Total":       o.WorkingHoursTotal,
		"Rolling_Avg_Temp":          o.RollingAvgTemp,
		"Stress_Index":              o.StressIndex,
		"Machine_Age":               o.MachineAge,
		"Operator_Experience_Level": o.OperatorExperienceLevel,
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
