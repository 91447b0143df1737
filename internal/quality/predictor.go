package quality

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/stat"
)

// Artifact file names. All four must be present for a model to load.
const (
	ArtifactRegressor  = "quality_regressor.json"
	ArtifactClassifier = "quality_classifier.json"
	ArtifactScaler     = "scaler.json"
	ArtifactSchema     = "feature_schema.json"
)

// ArtifactNames lists every artifact of a model set.
var ArtifactNames = []string{ArtifactRegressor, ArtifactClassifier, ArtifactScaler, ArtifactSchema}

// ArtifactStore persists and restores a complete set of named artifacts.
type ArtifactStore interface {
	SaveSet(modelID string, artifacts map[string]any) error
	LoadSet(targets map[string]any) (string, error)
}

// State is the predictor lifecycle state.
type State int32

const (
	StateUninitialized State = iota
	StateTraining
	StateReady
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateTraining:
		return "training"
	case StateReady:
		return "ready"
	default:
		return "unknown"
	}
}

// Model sources reported by Info.
const (
	SourceTrained = "trained"
	SourceLoaded  = "loaded"
)

// Options configures a Predictor.
type Options struct {
	Samples int
	Seed    uint64
	Forest  ForestConfig
	Boost   BoostConfig
	Risk    RiskThresholds
	Labels  LabelConfig
	Logger  *slog.Logger
	Metrics *Metrics
}

// DefaultOptions returns the production training configuration.
func DefaultOptions() Options {
	return Options{
		Samples: DefaultSamples,
		Seed:    DefaultSeed,
		Forest:  DefaultForestConfig(),
		Boost:   DefaultBoostConfig(),
		Risk:    DefaultRiskThresholds(),
		Labels:  DefaultLabelConfig(),
	}
}

// Prediction is the result of one PredictQuality call.
type Prediction struct {
	QualityScore      float64   `json:"quality_score"`
	DefectProbability float64   `json:"defect_probability"`
	RiskLevel         RiskLevel `json:"risk_level"`
}

// TrainReport holds informational diagnostics from a training run.
type TrainReport struct {
	ModelID              string             `json:"model_id"`
	Samples              int                `json:"samples"`
	DefectRate           float64            `json:"defect_rate"`
	RegressionR2         float64            `json:"regression_r2"`
	WithinFiveAccuracy   float64            `json:"within_five_accuracy"`
	ClassifierAccuracy   float64            `json:"classifier_accuracy"`
	FeatureImportance    map[string]float64 `json:"feature_importance"`
	DefectFeatureWeights map[string]float64 `json:"defect_feature_importance"`
	Duration             time.Duration      `json:"duration"`
	TrainedAt            time.Time          `json:"trained_at"`
}

// Info describes the predictor's current model.
type Info struct {
	State         string         `json:"state"`
	ModelID       string         `json:"model_id,omitempty"`
	Source        string         `json:"source,omitempty"`
	ReadyAt       time.Time      `json:"ready_at,omitempty"`
	SchemaVersion int            `json:"schema_version"`
	Features      []string       `json:"features"`
	TrainingRuns  int64          `json:"training_runs"`
	Risk          RiskThresholds `json:"risk_thresholds"`
	Report        *TrainReport   `json:"last_training,omitempty"`
}

type model struct {
	id         string
	schema     Schema
	scaler     *Scaler
	regressor  *Forest
	classifier *Boost
	source     string
	readyAt    time.Time
}

// Predictor owns the quality model lifecycle: it loads persisted
// artifacts or trains from a synthetic corpus on first use, then scores
// feature vectors against the in-memory model.
type Predictor struct {
	opts   Options
	store  ArtifactStore
	logger *slog.Logger

	// mu serializes initialization, loading and training.
	mu        sync.Mutex
	state     atomic.Int32
	current   atomic.Pointer[model]
	report    atomic.Pointer[TrainReport]
	trainings atomic.Int64
}

// NewPredictor creates an uninitialized predictor backed by store.
// Unset (zero) options take their defaults. Set but unusable options
// also fall back to the defaults, with a warning naming the rejected value.
func NewPredictor(store ArtifactStore, opts Options) *Predictor {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	def := DefaultOptions()
	if opts.Samples <= 0 {
		if opts.Samples < 0 {
			logger.Warn("invalid training sample count, using default", "samples", opts.Samples, "default", def.Samples)
		}
		opts.Samples = def.Samples
	}
	if opts.Forest.NEstimators <= 0 {
		if opts.Forest != (ForestConfig{}) {
			logger.Warn("invalid forest config, using defaults", "n_estimators", opts.Forest.NEstimators)
		}
		opts.Forest = def.Forest
	}
	if opts.Boost.NEstimators <= 0 {
		if opts.Boost != (BoostConfig{}) {
			logger.Warn("invalid boosting config, using defaults", "n_estimators", opts.Boost.NEstimators)
		}
		opts.Boost = def.Boost
	}
	if err := opts.Risk.Validate(); err != nil {
		if opts.Risk != (RiskThresholds{}) {
			logger.Warn("invalid risk thresholds, using defaults",
				"error", err,
				"high", def.Risk.High,
				"medium", def.Risk.Medium,
			)
		}
		opts.Risk = def.Risk
	}
	if opts.Labels.LogisticScale <= 0 {
		if opts.Labels != (LabelConfig{}) {
			logger.Warn("invalid label config, using defaults", "logistic_scale", opts.Labels.LogisticScale)
		}
		opts.Labels = def.Labels
	}

	p := &Predictor{
		opts:   opts,
		store:  store,
		logger: logger,
	}
	opts.Metrics.setState(StateUninitialized)
	return p
}

// State returns the current lifecycle state.
func (p *Predictor) State() State {
	return State(p.state.Load())
}

// TrainingRuns returns how many training runs completed in this process.
func (p *Predictor) TrainingRuns() int64 {
	return p.trainings.Load()
}

func (p *Predictor) setState(s State) {
	p.state.Store(int32(s))
	p.opts.Metrics.setState(s)
}

// GenerateTrainingData returns the synthetic corpus for n samples using
// the predictor's seed and labelling constants.
func (p *Predictor) GenerateTrainingData(n int) *Dataset {
	return NewGenerator(p.opts.Seed, p.opts.Labels).Generate(n)
}

// Train fits a fresh model on a newly generated corpus, installs it and
// persists the four artifacts. A persistence failure is returned but the
// in-memory model stays installed.
func (p *Predictor) Train(ctx context.Context) (*TrainReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.trainLocked(ctx)
}

func (p *Predictor) trainLocked(ctx context.Context) (*TrainReport, error) {
	// a resident model keeps serving while a replacement is fit
	prev := p.State()
	if p.current.Load() == nil {
		p.setState(StateTraining)
	}

	m, report, err := p.fit(ctx)
	if err != nil {
		p.setState(prev)
		return nil, err
	}

	p.current.Store(m)
	p.report.Store(report)
	p.trainings.Add(1)
	p.setState(StateReady)
	p.opts.Metrics.observeTraining(report.Duration.Seconds())

	p.logger.Info("quality model trained",
		"model_id", report.ModelID,
		"samples", report.Samples,
		"r2", report.RegressionR2,
		"within_five", report.WithinFiveAccuracy,
		"duration", report.Duration,
	)

	if p.store == nil {
		return report, nil
	}
	if err := p.store.SaveSet(m.id, map[string]any{
		ArtifactRegressor:  m.regressor,
		ArtifactClassifier: m.classifier,
		ArtifactScaler:     m.scaler,
		ArtifactSchema:     m.schema,
	}); err != nil {
		return report, fmt.Errorf("failed to persist model: %w", err)
	}
	return report, nil
}

func (p *Predictor) fit(ctx context.Context) (*model, *TrainReport, error) {
	start := time.Now()
	p.logger.Info("training quality model", "samples", p.opts.Samples, "seed", p.opts.Seed)

	data := p.GenerateTrainingData(p.opts.Samples)
	schema := CanonicalSchema()

	scaler, err := FitScaler(data.Features)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit scaler: %w", err)
	}
	x := scaler.TransformAll(data.Features)

	forestCfg := p.opts.Forest
	forestCfg.Seed = p.opts.Seed
	regressor, err := FitForest(ctx, x, data.Quality, forestCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit regressor: %w", err)
	}

	classifier, err := FitBoost(ctx, x, data.Defect, p.opts.Boost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit classifier: %w", err)
	}

	m := &model{
		id:         uuid.NewString(),
		schema:     schema,
		scaler:     scaler,
		regressor:  regressor,
		classifier: classifier,
		source:     SourceTrained,
		readyAt:    time.Now(),
	}

	report := p.diagnose(m, x, data)
	report.Duration = time.Since(start)
	return m, report, nil
}

func (p *Predictor) diagnose(m *model, x [][]float64, data *Dataset) *TrainReport {
	predicted := m.regressor.PredictAll(x)

	var within, correct int
	for i, y := range data.Quality {
		if math.Abs(predicted[i]-y) < 5 {
			within++
		}
		label := 0.0
		if m.classifier.PredictProba(x[i]) >= 0.5 {
			label = 1
		}
		if label == data.Defect[i] {
			correct++
		}
	}

	n := float64(data.Len())
	return &TrainReport{
		ModelID:              m.id,
		Samples:              data.Len(),
		DefectRate:           data.DefectRate(),
		RegressionR2:         stat.RSquaredFrom(predicted, data.Quality, nil),
		WithinFiveAccuracy:   float64(within) / n,
		ClassifierAccuracy:   float64(correct) / n,
		FeatureImportance:    namedWeights(m.schema.Features, m.regressor.Importance),
		DefectFeatureWeights: namedWeights(m.schema.Features, m.classifier.Importance),
		TrainedAt:            m.readyAt,
	}
}

func namedWeights(names []string, weights []float64) map[string]float64 {
	out := make(map[string]float64, len(names))
	for i, name := range names {
		out[name] = weights[i]
	}
	return out
}

// LoadModels restores a model from the artifact store. Any failure leaves
// the predictor's state and model untouched and wraps ErrNoModel.
func (p *Predictor) LoadModels(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.loadLocked(ctx)
}

func (p *Predictor) loadLocked(_ context.Context) error {
	m, err := p.readArtifacts()
	p.opts.Metrics.observeLoad(err == nil)
	if err != nil {
		p.logger.Warn("no usable quality model artifacts", "error", err)
		return err
	}

	p.current.Store(m)
	p.setState(StateReady)
	p.logger.Info("quality model loaded", "model_id", m.id)
	return nil
}

func (p *Predictor) readArtifacts() (*model, error) {
	if p.store == nil {
		return nil, fmt.Errorf("%w: no artifact store", ErrNoModel)
	}

	var (
		schema     Schema
		scaler     Scaler
		regressor  Forest
		classifier Boost
	)
	id, err := p.store.LoadSet(map[string]any{
		ArtifactRegressor:  &regressor,
		ArtifactClassifier: &classifier,
		ArtifactScaler:     &scaler,
		ArtifactSchema:     &schema,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoModel, err)
	}

	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoModel, err)
	}
	width := schema.Width()
	if err := errors.Join(
		scaler.validate(width),
		regressor.validate(width),
		classifier.validate(width),
	); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNoModel, err)
	}

	return &model{
		id:         id,
		schema:     schema,
		scaler:     &scaler,
		regressor:  &regressor,
		classifier: &classifier,
		source:     SourceLoaded,
		readyAt:    time.Now(),
	}, nil
}

// Warm runs the lazy initialization without scoring anything. Unlike a
// prediction, cancelling ctx aborts a training run started here.
func (p *Predictor) Warm(ctx context.Context) error {
	_, err := p.ensureReady(ctx)
	return err
}

// ensureReady returns the resident model, loading or training it first
// if needed. At most one caller initializes; the rest wait on mu.
func (p *Predictor) ensureReady(ctx context.Context) (*model, error) {
	if m := p.current.Load(); m != nil {
		return m, nil
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if m := p.current.Load(); m != nil {
		return m, nil
	}

	if err := p.loadLocked(ctx); err == nil {
		return p.current.Load(), nil
	}

	if _, err := p.trainLocked(ctx); err != nil {
		if m := p.current.Load(); m != nil {
			p.logger.Warn("model trained but not persisted", "error", err)
			return m, nil
		}
		return nil, err
	}
	return p.current.Load(), nil
}

// PredictQuality scores one observation. Missing features default to
// zero; values that are not finite numbers fail with *InputError.
func (p *Predictor) PredictQuality(ctx context.Context, features map[string]any) (*Prediction, error) {
	row, err := CanonicalSchema().Merge(features)
	if err != nil {
		p.opts.Metrics.observeInputError()
		return nil, err
	}

	return p.predictRow(ctx, row)
}

// Predict scores a typed feature vector.
func (p *Predictor) Predict(ctx context.Context, v FeatureVector) (*Prediction, error) {
	return p.predictRow(ctx, v.row())
}

func (p *Predictor) predictRow(ctx context.Context, row []float64) (*Prediction, error) {
	// a cold start trains to completion even if this caller goes away
	m, err := p.ensureReady(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}

	start := time.Now()
	pred := p.score(m, row)
	p.opts.Metrics.observePrediction(pred.RiskLevel, time.Since(start).Seconds())
	return pred, nil
}

func (p *Predictor) score(m *model, row []float64) *Prediction {
	x := m.scaler.Transform(row)
	quality := clamp(m.regressor.Predict(x), 0, 100)
	prob := m.classifier.PredictProba(x)

	return &Prediction{
		QualityScore:      roundTo(quality, 2),
		DefectProbability: roundTo(prob, 3),
		RiskLevel:         p.opts.Risk.Classify(prob),
	}
}

// Info returns a snapshot of the model state.
func (p *Predictor) Info() Info {
	info := Info{
		State:         p.State().String(),
		SchemaVersion: SchemaVersion,
		Features:      CanonicalSchema().Features,
		TrainingRuns:  p.trainings.Load(),
		Risk:          p.opts.Risk,
		Report:        p.report.Load(),
	}
	if m := p.current.Load(); m != nil {
		info.ModelID = m.id
		info.Source = m.source
		info.ReadyAt = m.readyAt
		info.SchemaVersion = m.schema.Version
		info.Features = m.schema.Features
	}
	return info
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
