package quality

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ForestConfig configures the random forest regressor.
type ForestConfig struct {
	NEstimators     int    `json:"n_estimators"`
	MaxDepth        int    `json:"max_depth"`
	MinSamplesSplit int    `json:"min_samples_split"`
	Workers         int    `json:"-"`
	Seed            uint64 `json:"seed"`
}

// DefaultForestConfig returns 100 trees, depth 15, min split 10.
func DefaultForestConfig() ForestConfig {
	return ForestConfig{
		NEstimators:     100,
		MaxDepth:        15,
		MinSamplesSplit: 10,
		Seed:            DefaultSeed,
	}
}

// Forest is a bagged ensemble of regression trees.
type Forest struct {
	Config     ForestConfig `json:"config"`
	Width      int          `json:"width"`
	Trees      []*Tree      `json:"trees"`
	Importance []float64    `json:"importance"`
}

// FitForest grows cfg.NEstimators trees on bootstrap samples of x. Trees
// are fit concurrently; each tree's sample depends only on its index, so
// the result does not depend on scheduling.
func FitForest(ctx context.Context, x [][]float64, y []float64, cfg ForestConfig) (*Forest, error) {
	if len(x) == 0 || len(x) != len(y) {
		return nil, fmt.Errorf("forest: %d rows, %d targets", len(x), len(y))
	}
	if cfg.NEstimators < 1 {
		cfg.NEstimators = DefaultForestConfig().NEstimators
	}
	workers := cfg.Workers
	if workers < 1 {
		workers = runtime.GOMAXPROCS(0)
	}

	data := binFeatures(x)
	width := len(x[0])
	params := treeParams{MaxDepth: cfg.MaxDepth, MinSamplesSplit: cfg.MinSamplesSplit}

	trees := make([]*Tree, cfg.NEstimators)
	importances := make([][]float64, cfg.NEstimators)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for t := range trees {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewPCG(cfg.Seed, uint64(t)+1))
			idx := make([]int, len(x))
			for i := range idx {
				idx[i] = rng.IntN(len(x))
			}
			tree, imp := growTree(data, y, idx, params, nil)
			trees[t] = tree
			importances[t] = normalize(imp)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	importance := make([]float64, width)
	for _, imp := range importances {
		for j, v := range imp {
			importance[j] += v
		}
	}
	normalize(importance)

	return &Forest{
		Config:     cfg,
		Width:      width,
		Trees:      trees,
		Importance: importance,
	}, nil
}

// Predict averages the tree outputs for one scaled row.
func (f *Forest) Predict(row []float64) float64 {
	var sum float64
	for _, t := range f.Trees {
		sum += t.Predict(row)
	}
	return sum / float64(len(f.Trees))
}

// PredictAll predicts every row of x.
func (f *Forest) PredictAll(x [][]float64) []float64 {
	out := make([]float64, len(x))
	for i, row := range x {
		out[i] = f.Predict(row)
	}
	return out
}

func (f *Forest) validate(width int) error {
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	if f.Width != width {
		return fmt.Errorf("forest width %d, expected %d", f.Width, width)
	}
	for i, t := range f.Trees {
		if t == nil {
			return fmt.Errorf("tree %d missing", i)
		}
		if err := t.validate(width); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}
