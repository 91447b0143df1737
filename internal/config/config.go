package config

import "time"

type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Auth    AuthConfig    `yaml:"auth"`
	Logging LoggingConfig `yaml:"logging"`
	Model   ModelConfig   `yaml:"model"`
}

type ServerConfig struct {
	Host         string          `yaml:"host"`
	Port         int             `yaml:"port"`
	PIDFile      string          `yaml:"pid_file"`
	MaxBodyBytes int64           `yaml:"max_body_bytes"`
	ShutdownSec  int             `yaml:"shutdown_timeout_sec"`
	RateLimit    RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	PerIP             bool    `yaml:"per_ip"`
}

type AuthConfig struct {
	Enabled  bool   `yaml:"enabled"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
}

type LoggingConfig struct {
	Level  string        `yaml:"level"`
	Format string        `yaml:"format"`
	File   LogFileConfig `yaml:"file"`
}

// LogFileConfig enables a rotating log file next to stdout.
type LogFileConfig struct {
	Path       string `yaml:"path"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

// ModelConfig holds training and scoring parameters of the quality model.
type ModelConfig struct {
	// ArtifactDir is where the four model artifacts are read and written.
	ArtifactDir string `yaml:"artifact_dir"`

	// TrainingSamples is the size of the synthetic training corpus.
	TrainingSamples int    `yaml:"training_samples"`
	Seed            uint64 `yaml:"seed"`

	// WarmOnStart loads or trains the model before the server accepts traffic.
	WarmOnStart bool `yaml:"warm_on_start"`

	// ReloadIntervalSec polls the artifact directory for a model written by
	// another process. 0 disables polling.
	ReloadIntervalSec int `yaml:"reload_interval_sec"`

	Forest   ForestConfig   `yaml:"forest"`
	Boosting BoostingConfig `yaml:"boosting"`
	Risk     RiskConfig     `yaml:"risk"`
	Labels   LabelsConfig   `yaml:"labels"`
}

type ForestConfig struct {
	NEstimators     int `yaml:"n_estimators"`
	MaxDepth        int `yaml:"max_depth"`
	MinSamplesSplit int `yaml:"min_samples_split"`
	// Workers bounds parallel tree fitting; 0 uses GOMAXPROCS.
	Workers int `yaml:"workers"`
}

type BoostingConfig struct {
	NEstimators     int     `yaml:"n_estimators"`
	MaxDepth        int     `yaml:"max_depth"`
	MinSamplesSplit int     `yaml:"min_samples_split"`
	LearningRate    float64 `yaml:"learning_rate"`
}

// RiskConfig holds the defect probability tier boundaries.
type RiskConfig struct {
	High   float64 `yaml:"high"`
	Medium float64 `yaml:"medium"`
}

// LabelsConfig holds the constants of the synthetic labelling rule.
type LabelsConfig struct {
	LogisticCenter float64 `yaml:"logistic_center"`
	LogisticScale  float64 `yaml:"logistic_scale"`
	NoiseSigma     float64 `yaml:"noise_sigma"`
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownSec) * time.Second
}

// ReloadInterval returns the artifact polling interval; zero when disabled.
func (m *ModelConfig) ReloadInterval() time.Duration {
	return time.Duration(m.ReloadIntervalSec) * time.Second
}
