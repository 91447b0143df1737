package config

import (
	"log/slog"

	"github.com/haskel/aerotwin/internal/quality"
)

// PredictorOptions converts the model section into predictor options.
func (c *Config) PredictorOptions(logger *slog.Logger, metrics *quality.Metrics) quality.Options {
	m := c.Model
	return quality.Options{
		Samples: m.TrainingSamples,
		Seed:    m.Seed,
		Forest: quality.ForestConfig{
			NEstimators:     m.Forest.NEstimators,
			MaxDepth:        m.Forest.MaxDepth,
			MinSamplesSplit: m.Forest.MinSamplesSplit,
			Workers:         m.Forest.Workers,
		},
		Boost: quality.BoostConfig{
			NEstimators:     m.Boosting.NEstimators,
			MaxDepth:        m.Boosting.MaxDepth,
			MinSamplesSplit: m.Boosting.MinSamplesSplit,
			LearningRate:    m.Boosting.LearningRate,
		},
		Risk: quality.RiskThresholds{
			High:   m.Risk.High,
			Medium: m.Risk.Medium,
		},
		Labels: quality.LabelConfig{
			LogisticCenter: m.Labels.LogisticCenter,
			LogisticScale:  m.Labels.LogisticScale,
			NoiseSigma:     m.Labels.NoiseSigma,
		},
		Logger:  logger,
		Metrics: metrics,
	}
}
