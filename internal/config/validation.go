package config

import (
	"errors"
	"fmt"
)

func (c *Config) Validate() error {
	var errs []error

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("server: %w", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("logging: %w", err))
	}

	if err := c.Auth.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if err := c.Model.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("model: %w", err))
	}

	return errors.Join(errs...)
}

func (s *ServerConfig) Validate() error {
	var errs []error

	if s.Port < 1 || s.Port > 65535 {
		errs = append(errs, fmt.Errorf("port must be between 1 and 65535, got %d", s.Port))
	}
	if s.MaxBodyBytes < 0 {
		errs = append(errs, fmt.Errorf("max_body_bytes must be non-negative"))
	}
	if s.ShutdownSec < 0 {
		errs = append(errs, fmt.Errorf("shutdown_timeout_sec must be non-negative"))
	}
	if s.RateLimit.Enabled {
		if s.RateLimit.RequestsPerSecond <= 0 {
			errs = append(errs, fmt.Errorf("rate_limit.requests_per_second must be positive"))
		}
		if s.RateLimit.Burst < 1 {
			errs = append(errs, fmt.Errorf("rate_limit.burst must be at least 1"))
		}
	}

	return errors.Join(errs...)
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("invalid log level: %s (valid: debug, info, warn, error)", l.Level)
	}

	validFormats := map[string]bool{
		"json": true,
		"text": true,
	}
	if !validFormats[l.Format] {
		return fmt.Errorf("invalid log format: %s (valid: json, text)", l.Format)
	}

	if l.File.Path != "" && l.File.MaxSizeMB < 1 {
		return fmt.Errorf("file.max_size_mb must be at least 1")
	}

	return nil
}

func (a *AuthConfig) Validate() error {
	if a.Enabled {
		if a.User == "" {
			return fmt.Errorf("user cannot be empty when auth is enabled")
		}
		if a.Password == "" {
			return fmt.Errorf("password cannot be empty when auth is enabled")
		}
	}
	return nil
}

func (m *ModelConfig) Validate() error {
	var errs []error

	if m.ArtifactDir == "" {
		errs = append(errs, fmt.Errorf("artifact_dir cannot be empty"))
	}
	if m.TrainingSamples < 100 {
		errs = append(errs, fmt.Errorf("training_samples must be at least 100, got %d", m.TrainingSamples))
	}

	if m.ReloadIntervalSec < 0 {
		errs = append(errs, fmt.Errorf("reload_interval_sec must be non-negative"))
	}

	if m.Forest.NEstimators < 1 {
		errs = append(errs, fmt.Errorf("forest.n_estimators must be at least 1"))
	}
	if m.Forest.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("forest.max_depth must be non-negative"))
	}
	if m.Forest.MinSamplesSplit < 2 {
		errs = append(errs, fmt.Errorf("forest.min_samples_split must be at least 2"))
	}
	if m.Forest.Workers < 0 {
		errs = append(errs, fmt.Errorf("forest.workers must be non-negative"))
	}

	if m.Boosting.NEstimators < 1 {
		errs = append(errs, fmt.Errorf("boosting.n_estimators must be at least 1"))
	}
	if m.Boosting.MaxDepth < 1 {
		errs = append(errs, fmt.Errorf("boosting.max_depth must be at least 1"))
	}
	if m.Boosting.MinSamplesSplit < 2 {
		errs = append(errs, fmt.Errorf("boosting.min_samples_split must be at least 2"))
	}
	if m.Boosting.LearningRate <= 0 || m.Boosting.LearningRate > 1 {
		errs = append(errs, fmt.Errorf("boosting.learning_rate must be in (0, 1]"))
	}

	if m.Risk.Medium < 0 || m.Risk.High > 1 || m.Risk.Medium >= m.Risk.High {
		errs = append(errs, fmt.Errorf("risk thresholds must satisfy 0 <= medium < high <= 1, got medium=%g high=%g", m.Risk.Medium, m.Risk.High))
	}

	if m.Labels.LogisticScale <= 0 {
		errs = append(errs, fmt.Errorf("labels.logistic_scale must be positive"))
	}
	if m.Labels.NoiseSigma < 0 {
		errs = append(errs, fmt.Errorf("labels.noise_sigma must be non-negative"))
	}

	return errors.Join(errs...)
}
