package quality

import (
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/spf13/cast"
)

// Canonical feature names. The order of FeatureNames is the column order
// the scaler and both learners are fit against.
const (
	FeatureHourOfDay            = "hour_of_day"
	FeatureDayOfWeek            = "day_of_week"
	FeatureShiftID              = "shift_id"
	FeatureOperatorExperience   = "operator_experience_months"
	FeatureOperatorCertLevel    = "operator_certification_level"
	FeatureTemperature          = "temperature_c"
	FeatureHumidity             = "humidity_pct"
	FeatureVibration            = "vibration_level"
	FeatureStationID            = "station_id"
	FeatureStationCritical      = "station_critical"
	FeatureDaysSinceMaintenance = "days_since_maintenance"
	FeatureComponentAge         = "component_age_days"
	FeaturePreviousDefects      = "previous_defects"
	FeatureCycleTimeDeviation   = "cycle_time_deviation"
	FeatureTorque               = "torque_value"
	FeaturePressure             = "pressure_value"
)

// SchemaVersion is bumped whenever the canonical feature list changes.
const SchemaVersion = 1

// FeatureNames lists all features in canonical order.
var FeatureNames = []string{
	FeatureHourOfDay,
	FeatureDayOfWeek,
	FeatureShiftID,
	FeatureOperatorExperience,
	FeatureOperatorCertLevel,
	FeatureTemperature,
	FeatureHumidity,
	FeatureVibration,
	FeatureStationID,
	FeatureStationCritical,
	FeatureDaysSinceMaintenance,
	FeatureComponentAge,
	FeaturePreviousDefects,
	FeatureCycleTimeDeviation,
	FeatureTorque,
	FeaturePressure,
}

// Schema is the feature ordering persisted next to the model artifacts.
type Schema struct {
	Version  int                `json:"version"`
	Features []string           `json:"features"`
	Defaults map[string]float64 `json:"defaults"`
}

// CanonicalSchema returns the schema the current build trains against.
// Every feature defaults to zero when absent from a prediction request.
func CanonicalSchema() Schema {
	defaults := make(map[string]float64, len(FeatureNames))
	for _, name := range FeatureNames {
		defaults[name] = 0
	}
	return Schema{
		Version:  SchemaVersion,
		Features: slices.Clone(FeatureNames),
		Defaults: defaults,
	}
}

// Width returns the number of features.
func (s Schema) Width() int {
	return len(s.Features)
}

// index returns the column of a feature, or -1.
func (s Schema) index(name string) int {
	return slices.Index(s.Features, name)
}

// Validate checks a persisted schema against the canonical one.
func (s Schema) Validate() error {
	canonical := CanonicalSchema()
	if s.Version != canonical.Version {
		return fmt.Errorf("%w: version %d, expected %d", ErrSchemaMismatch, s.Version, canonical.Version)
	}
	if !slices.Equal(s.Features, canonical.Features) {
		return fmt.Errorf("%w: features %v, expected %v", ErrSchemaMismatch, s.Features, canonical.Features)
	}
	return nil
}

// Merge fills absent features from the default table and returns the
// values in schema order. Keys outside the schema are ignored. A nil value
// or a blank string counts as absent.
func (s Schema) Merge(features map[string]any) ([]float64, error) {
	row := make([]float64, len(s.Features))
	for i, name := range s.Features {
		raw, ok := features[name]
		if str, isString := raw.(string); isString {
			raw = strings.TrimSpace(str)
			if raw == "" {
				raw = nil
			}
		}
		if !ok || raw == nil {
			row[i] = s.Defaults[name]
			continue
		}
		v, err := toFloat(name, raw)
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func toFloat(name string, raw any) (float64, error) {
	v, err := cast.ToFloat64E(raw)
	if err != nil {
		return 0, &InputError{Field: name, Value: raw, Reason: "not numeric"}
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, &InputError{Field: name, Value: raw, Reason: "not finite"}
	}
	return v, nil
}

// FeatureVector is the typed form of one observation.
type FeatureVector struct {
	HourOfDay                  float64 `json:"hour_of_day"`
	DayOfWeek                  float64 `json:"day_of_week"`
	ShiftID                    float64 `json:"shift_id"`
	OperatorExperienceMonths   float64 `json:"operator_experience_months"`
	OperatorCertificationLevel float64 `json:"operator_certification_level"`
	TemperatureC               float64 `json:"temperature_c"`
	HumidityPct                float64 `json:"humidity_pct"`
	VibrationLevel             float64 `json:"vibration_level"`
	StationID                  float64 `json:"station_id"`
	StationCritical            float64 `json:"station_critical"`
	DaysSinceMaintenance       float64 `json:"days_since_maintenance"`
	ComponentAgeDays           float64 `json:"component_age_days"`
	PreviousDefects            float64 `json:"previous_defects"`
	CycleTimeDeviation         float64 `json:"cycle_time_deviation"`
	TorqueValue                float64 `json:"torque_value"`
	PressureValue              float64 `json:"pressure_value"`
}

// Map converts the vector into the loose form accepted by PredictQuality.
func (v FeatureVector) Map() map[string]any {
	return map[string]any{
		FeatureHourOfDay:            v.HourOfDay,
		FeatureDayOfWeek:            v.DayOfWeek,
		FeatureShiftID:              v.ShiftID,
		FeatureOperatorExperience:   v.OperatorExperienceMonths,
		FeatureOperatorCertLevel:    v.OperatorCertificationLevel,
		FeatureTemperature:          v.TemperatureC,
		FeatureHumidity:             v.HumidityPct,
		FeatureVibration:            v.VibrationLevel,
		FeatureStationID:            v.StationID,
		FeatureStationCritical:      v.StationCritical,
		FeatureDaysSinceMaintenance: v.DaysSinceMaintenance,
		FeatureComponentAge:         v.ComponentAgeDays,
		FeaturePreviousDefects:      v.PreviousDefects,
		FeatureCycleTimeDeviation:   v.CycleTimeDeviation,
		FeatureTorque:               v.TorqueValue,
		FeaturePressure:             v.PressureValue,
	}
}

// row returns the vector's values in canonical order.
func (v FeatureVector) row() []float64 {
	return []float64{
		v.HourOfDay,
		v.DayOfWeek,
		v.ShiftID,
		v.OperatorExperienceMonths,
		v.OperatorCertificationLevel,
		v.TemperatureC,
		v.HumidityPct,
		v.VibrationLevel,
		v.StationID,
		v.StationCritical,
		v.DaysSinceMaintenance,
		v.ComponentAgeDays,
		v.PreviousDefects,
		v.CycleTimeDeviation,
		v.TorqueValue,
		v.PressureValue,
	}
}

// NominalVector returns healthy midpoint operating conditions.
func NominalVector() FeatureVector {
	return FeatureVector{
		HourOfDay:                  12,
		DayOfWeek:                  3,
		ShiftID:                    2,
		OperatorExperienceMonths:   60,
		OperatorCertificationLevel: 3,
		TemperatureC:               23,
		HumidityPct:                45,
		VibrationLevel:             0.3,
		StationID:                  4,
		StationCritical:            1,
		DaysSinceMaintenance:       5,
		ComponentAgeDays:           30,
		PreviousDefects:            0,
		CycleTimeDeviation:         0,
		TorqueValue:                100,
		PressureValue:              50,
	}
}
