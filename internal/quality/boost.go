package quality

import (
	"context"
	"errors"
	"fmt"
	"math"
)

// BoostConfig configures the gradient boosted defect classifier.
type BoostConfig struct {
	NEstimators     int     `json:"n_estimators"`
	MaxDepth        int     `json:"max_depth"`
	MinSamplesSplit int     `json:"min_samples_split"`
	LearningRate    float64 `json:"learning_rate"`
}

// DefaultBoostConfig returns 100 stages of depth-5 trees at rate 0.1.
func DefaultBoostConfig() BoostConfig {
	return BoostConfig{
		NEstimators:     100,
		MaxDepth:        5,
		MinSamplesSplit: 2,
		LearningRate:    0.1,
	}
}

// Boost is a binary classifier boosted on the binomial deviance.
// Its raw score is the log-odds of the positive class.
type Boost struct {
	Config     BoostConfig `json:"config"`
	Width      int         `json:"width"`
	Init       float64     `json:"init"`
	Trees      []*Tree     `json:"trees"`
	Importance []float64   `json:"importance"`
}

// FitBoost fits stage trees to the residuals y - p. Leaves take a single
// Newton step sum(r) / sum(p(1-p)).
func FitBoost(ctx context.Context, x [][]float64, y []float64, cfg BoostConfig) (*Boost, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("boost: %d rows, %d targets", len(x), len(y))
	}
	def := DefaultBoostConfig()
	if cfg.NEstimators < 1 {
		cfg.NEstimators = def.NEstimators
	}
	if cfg.LearningRate <= 0 {
		cfg.LearningRate = def.LearningRate
	}

	n := len(x)
	width := len(x[0])
	data := binFeatures(x)
	params := treeParams{MaxDepth: cfg.MaxDepth, MinSamplesSplit: cfg.MinSamplesSplit}

	var positives float64
	for _, v := range y {
		positives += v
	}
	base := clamp(positives/float64(n), 1e-6, 1-1e-6)
	init := math.Log(base / (1 - base))

	raw := make([]float64, n)
	for i := range raw {
		raw[i] = init
	}
	prob := make([]float64, n)
	resid := make([]float64, n)
	all := make([]int, n)
	importance := make([]float64, width)

	newton := func(idx []int) float64 {
		var num, den float64
		for _, i := range idx {
			num += resid[i]
			den += prob[i] * (1 - prob[i])
		}
		if math.Abs(den) < 1e-150 {
			return 0
		}
		return num / den
	}

	trees := make([]*Tree, 0, cfg.NEstimators)
	for stage := 0; stage < cfg.NEstimators; stage++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for i := range raw {
			prob[i] = sigmoid(raw[i])
			resid[i] = y[i] - prob[i]
			all[i] = i
		}

		tree, imp := growTree(data, resid, all, params, newton)
		for j, v := range imp {
			importance[j] += v
		}
		for i, row := range x {
			raw[i] += cfg.LearningRate * tree.Predict(row)
		}
		trees = append(trees, tree)
	}

	return &Boost{
		Config:     cfg,
		Width:      width,
		Init:       init,
		Trees:      trees,
		Importance: normalize(importance),
	}, nil
}

// Raw returns the log-odds score for one scaled row.
func (b *Boost) Raw(row []float64) float64 {
	score := b.Init
	for _, t := range b.Trees {
		score += b.Config.LearningRate * t.Predict(row)
	}
	return score
}

// PredictProba returns the positive-class probability for one scaled row.
func (b *Boost) PredictProba(row []float64) float64 {
	return sigmoid(b.Raw(row))
}

func (b *Boost) validate(width int) error {
	if len(b.Trees) == 0 {
		return errors.New("classifier has no trees")
	}
	if b.Width != width {
		return fmt.Errorf("classifier width %d, expected %d", b.Width, width)
	}
	if b.Config.LearningRate <= 0 || math.IsNaN(b.Init) || math.IsInf(b.Init, 0) {
		return errors.New("classifier parameters invalid")
	}
	for i, t := range b.Trees {
		if t == nil {
			return fmt.Errorf("stage %d missing", i)
		}
		if err := t.validate(width); err != nil {
			return fmt.Errorf("stage %d: %w", i, err)
		}
	}
	return nil
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
