package quality

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultSamples is the synthetic corpus size used by Train.
const DefaultSamples = 10000

// DefaultSeed makes the synthetic corpus reproducible across runs.
const DefaultSeed uint64 = 42

// LabelConfig holds the constants of the synthetic labelling rule.
// They are independent of the risk tier thresholds.
type LabelConfig struct {
	LogisticCenter float64 `json:"logistic_center"`
	LogisticScale  float64 `json:"logistic_scale"`
	NoiseSigma     float64 `json:"noise_sigma"`
}

// DefaultLabelConfig returns the link center 90, scale 10 and score noise σ=3.
func DefaultLabelConfig() LabelConfig {
	return LabelConfig{
		LogisticCenter: 90,
		LogisticScale:  10,
		NoiseSigma:     3,
	}
}

// Dataset is a labelled feature matrix in canonical column order.
type Dataset struct {
	Features [][]float64
	Quality  []float64
	Defect   []float64 // 1 when the unit has a defect
}

// Len returns the number of samples.
func (d *Dataset) Len() int {
	return len(d.Features)
}

// DefectRate returns the share of positive defect labels.
func (d *Dataset) DefectRate() float64 {
	if len(d.Defect) == 0 {
		return 0
	}
	var sum float64
	for _, y := range d.Defect {
		sum += y
	}
	return sum / float64(len(d.Defect))
}

// Generator produces the synthetic training corpus.
type Generator struct {
	seed   uint64
	labels LabelConfig
}

// NewGenerator creates a generator. Equal seeds yield equal corpora.
func NewGenerator(seed uint64, labels LabelConfig) *Generator {
	if labels.LogisticScale <= 0 {
		labels.LogisticScale = DefaultLabelConfig().LogisticScale
	}
	return &Generator{seed: seed, labels: labels}
}

// Generate draws n samples. Columns are drawn one after another from a
// single seeded source, then labelled row by row. n <= 0 yields an empty
// dataset.
func (g *Generator) Generate(n int) *Dataset {
	if n <= 0 {
		return &Dataset{Features: [][]float64{}, Quality: []float64{}, Defect: []float64{}}
	}

	src := rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15)
	rng := rand.New(src)

	uniformInt := func(lo, hi int) []float64 {
		col := make([]float64, n)
		for i := range col {
			col[i] = float64(lo + rng.IntN(hi-lo))
		}
		return col
	}
	draw := func(d distuv.Rander) []float64 {
		col := make([]float64, n)
		for i := range col {
			col[i] = d.Rand()
		}
		return col
	}

	// Columns are drawn in canonical order from the shared source.
	columns := make(map[string][]float64, len(FeatureNames))
	columns[FeatureHourOfDay] = uniformInt(0, 24)
	columns[FeatureDayOfWeek] = uniformInt(0, 7)
	columns[FeatureShiftID] = uniformInt(1, 4)
	columns[FeatureOperatorExperience] = uniformInt(1, 120)
	columns[FeatureOperatorCertLevel] = uniformInt(1, 5)
	columns[FeatureTemperature] = draw(distuv.Normal{Mu: 23, Sigma: 3, Src: src})
	columns[FeatureHumidity] = draw(distuv.Normal{Mu: 45, Sigma: 10, Src: src})
	columns[FeatureVibration] = draw(distuv.Exponential{Rate: 1 / 0.5, Src: src})
	columns[FeatureStationID] = uniformInt(1, 9)
	columns[FeatureStationCritical] = uniformInt(0, 2)
	columns[FeatureDaysSinceMaintenance] = draw(distuv.Exponential{Rate: 1.0 / 20, Src: src})
	columns[FeatureComponentAge] = draw(distuv.Exponential{Rate: 1.0 / 100, Src: src})
	columns[FeaturePreviousDefects] = draw(distuv.Poisson{Lambda: 0.2, Src: src})
	columns[FeatureCycleTimeDeviation] = draw(distuv.Normal{Mu: 0, Sigma: 2, Src: src})
	columns[FeatureTorque] = draw(distuv.Normal{Mu: 100, Sigma: 15, Src: src})
	columns[FeaturePressure] = draw(distuv.Normal{Mu: 50, Sigma: 8, Src: src})

	ds := &Dataset{
		Features: make([][]float64, n),
		Quality:  make([]float64, n),
		Defect:   make([]float64, n),
	}
	for i := 0; i < n; i++ {
		row := make([]float64, len(FeatureNames))
		for j, name := range FeatureNames {
			row[j] = columns[name][i]
		}
		ds.Features[i] = row
	}

	noise := distuv.Normal{Mu: 0, Sigma: g.labels.NoiseSigma, Src: src}
	for i, row := range ds.Features {
		score := PenaltyScore(row) + noise.Rand()
		ds.Quality[i] = clamp(score, 0, 100)
	}

	for i, score := range ds.Quality {
		p := g.DefectProbability(score)
		ds.Defect[i] = distuv.Bernoulli{P: p, Src: src}.Rand()
	}

	return ds
}

// DefectProbability is the logistic link from a quality score to the
// probability of a defect label.
func (g *Generator) DefectProbability(score float64) float64 {
	return 1 / (1 + math.Exp(-(g.labels.LogisticCenter-score)/g.labels.LogisticScale))
}

// PenaltyScore applies the threshold penalty rule to a canonical row,
// starting from 100. The result is noise-free and unclipped.
func PenaltyScore(row []float64) float64 {
	f := func(name string) float64 {
		return row[canonicalSchema.index(name)]
	}

	score := 100.0
	if f(FeatureOperatorExperience) < 12 {
		score -= 5
	}
	if f(FeatureOperatorCertLevel) < 3 {
		score -= 3
	}
	if math.Abs(f(FeatureTemperature)-23) > 5 {
		score -= 2
	}
	if math.Abs(f(FeatureHumidity)-45) > 15 {
		score -= 2
	}
	if f(FeatureVibration) > 1.5 {
		score -= 10
	}
	if f(FeatureDaysSinceMaintenance) > 30 {
		score -= 8
	}
	if f(FeatureComponentAge) > 200 {
		score -= 15
	}
	score -= 5 * f(FeaturePreviousDefects)
	if math.Abs(f(FeatureCycleTimeDeviation)) > 3 {
		score -= 3
	}
	return score
}

var canonicalSchema = CanonicalSchema()

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
