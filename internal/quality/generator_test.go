package quality

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Deterministic(t *testing.T) {
	a := NewGenerator(42, DefaultLabelConfig()).Generate(500)
	b := NewGenerator(42, DefaultLabelConfig()).Generate(500)

	assert.Equal(t, a.Features, b.Features)
	assert.Equal(t, a.Quality, b.Quality)
	assert.Equal(t, a.Defect, b.Defect)
}

func TestGenerator_SeedChangesCorpus(t *testing.T) {
	a := NewGenerator(1, DefaultLabelConfig()).Generate(200)
	b := NewGenerator(2, DefaultLabelConfig()).Generate(200)

	assert.NotEqual(t, a.Features, b.Features)
}

func TestGenerator_NonPositiveSizeIsEmpty(t *testing.T) {
	for _, n := range []int{0, -5} {
		ds := NewGenerator(DefaultSeed, DefaultLabelConfig()).Generate(n)
		assert.Zero(t, ds.Len(), "n=%d", n)
		assert.Empty(t, ds.Quality)
		assert.Empty(t, ds.Defect)
		assert.Zero(t, ds.DefectRate())
	}
}

func TestPredictor_GenerateTrainingDataSize(t *testing.T) {
	p := NewPredictor(nil, Options{Seed: 9})
	assert.Zero(t, p.GenerateTrainingData(0).Len())
	assert.Equal(t, 120, p.GenerateTrainingData(120).Len())
}

func TestGenerator_Ranges(t *testing.T) {
	ds := NewGenerator(DefaultSeed, DefaultLabelConfig()).Generate(2000)
	require.Equal(t, 2000, ds.Len())

	inRange := func(name string, lo, hi float64) {
		t.Helper()
		for _, row := range ds.Features {
			v := row[canonicalSchema.index(name)]
			if v < lo || v > hi || v != math.Trunc(v) {
				t.Fatalf("%s out of range: %v", name, v)
			}
		}
	}

	inRange(FeatureHourOfDay, 0, 23)
	inRange(FeatureDayOfWeek, 0, 6)
	inRange(FeatureShiftID, 1, 3)
	inRange(FeatureOperatorExperience, 1, 119)
	inRange(FeatureOperatorCertLevel, 1, 4)
	inRange(FeatureStationID, 1, 8)
	inRange(FeatureStationCritical, 0, 1)
	inRange(FeaturePreviousDefects, 0, 100)

	for _, row := range ds.Features {
		assert.GreaterOrEqual(t, row[canonicalSchema.index(FeatureVibration)], 0.0)
		assert.GreaterOrEqual(t, row[canonicalSchema.index(FeatureComponentAge)], 0.0)
		assert.GreaterOrEqual(t, row[canonicalSchema.index(FeatureDaysSinceMaintenance)], 0.0)
	}

	for i := range ds.Quality {
		assert.GreaterOrEqual(t, ds.Quality[i], 0.0)
		assert.LessOrEqual(t, ds.Quality[i], 100.0)
		assert.Contains(t, []float64{0, 1}, ds.Defect[i])
	}

	rate := ds.DefectRate()
	assert.Greater(t, rate, 0.05)
	assert.Less(t, rate, 0.95)
}

func TestGenerator_DistributionShape(t *testing.T) {
	ds := NewGenerator(DefaultSeed, DefaultLabelConfig()).Generate(DefaultSamples)

	mean := func(name string) float64 {
		var sum float64
		for _, row := range ds.Features {
			sum += row[canonicalSchema.index(name)]
		}
		return sum / float64(ds.Len())
	}

	assert.InDelta(t, 23, mean(FeatureTemperature), 0.3)
	assert.InDelta(t, 45, mean(FeatureHumidity), 0.5)
	assert.InDelta(t, 0.5, mean(FeatureVibration), 0.05)
	assert.InDelta(t, 20, mean(FeatureDaysSinceMaintenance), 1.5)
	assert.InDelta(t, 100, mean(FeatureComponentAge), 6)
	assert.InDelta(t, 0.2, mean(FeaturePreviousDefects), 0.03)
	assert.InDelta(t, 100, mean(FeatureTorque), 1)
}

func TestPenaltyScore(t *testing.T) {
	healthy := NominalVector()
	assert.Equal(t, 100.0, PenaltyScore(healthy.row()))

	tests := []struct {
		name    string
		mutate  func(*FeatureVector)
		penalty float64
	}{
		{"junior operator", func(v *FeatureVector) { v.OperatorExperienceMonths = 6 }, 5},
		{"low certification", func(v *FeatureVector) { v.OperatorCertificationLevel = 2 }, 3},
		{"hot", func(v *FeatureVector) { v.TemperatureC = 29 }, 2},
		{"cold", func(v *FeatureVector) { v.TemperatureC = 17 }, 2},
		{"temperature at limit", func(v *FeatureVector) { v.TemperatureC = 28 }, 0},
		{"humid", func(v *FeatureVector) { v.HumidityPct = 61 }, 2},
		{"vibration", func(v *FeatureVector) { v.VibrationLevel = 1.6 }, 10},
		{"overdue maintenance", func(v *FeatureVector) { v.DaysSinceMaintenance = 31 }, 8},
		{"aged component", func(v *FeatureVector) { v.ComponentAgeDays = 201 }, 15},
		{"prior defects", func(v *FeatureVector) { v.PreviousDefects = 3 }, 15},
		{"cycle deviation", func(v *FeatureVector) { v.CycleTimeDeviation = -3.5 }, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NominalVector()
			tt.mutate(&v)
			assert.Equal(t, 100-tt.penalty, PenaltyScore(v.row()))
		})
	}
}

func TestGenerator_DefectProbability(t *testing.T) {
	g := NewGenerator(DefaultSeed, DefaultLabelConfig())

	assert.InDelta(t, 0.5, g.DefectProbability(90), 1e-12)
	assert.InDelta(t, 1/(1+math.E), g.DefectProbability(100), 1e-12)
	assert.Greater(t, g.DefectProbability(50), g.DefectProbability(80))

	shifted := NewGenerator(DefaultSeed, LabelConfig{LogisticCenter: 80, LogisticScale: 5})
	assert.InDelta(t, 0.5, shifted.DefectProbability(80), 1e-12)
}
