package config

import (
	"github.com/haskel/aerotwin/internal/quality"
)

func Default() *Config {
	forest := quality.DefaultForestConfig()
	boost := quality.DefaultBoostConfig()
	risk := quality.DefaultRiskThresholds()
	labels := quality.DefaultLabelConfig()

	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			PIDFile:      "/var/run/aerotwin.pid",
			MaxBodyBytes: 1 << 20,
			ShutdownSec:  10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerSecond: 100,
				Burst:             200,
			},
		},
		Auth: AuthConfig{
			Enabled:  false,
			User:     "",
			Password: "",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			File: LogFileConfig{
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
			},
		},
		Model: ModelConfig{
			ArtifactDir:     "models",
			TrainingSamples: quality.DefaultSamples,
			Seed:            quality.DefaultSeed,
			WarmOnStart:     false,
			Forest: ForestConfig{
				NEstimators:     forest.NEstimators,
				MaxDepth:        forest.MaxDepth,
				MinSamplesSplit: forest.MinSamplesSplit,
			},
			Boosting: BoostingConfig{
				NEstimators:     boost.NEstimators,
				MaxDepth:        boost.MaxDepth,
				MinSamplesSplit: boost.MinSamplesSplit,
				LearningRate:    boost.LearningRate,
			},
			Risk: RiskConfig{
				High:   risk.High,
				Medium: risk.Medium,
			},
			Labels: LabelsConfig{
				LogisticCenter: labels.LogisticCenter,
				LogisticScale:  labels.LogisticScale,
				NoiseSigma:     labels.NoiseSigma,
			},
		},
	}
}
