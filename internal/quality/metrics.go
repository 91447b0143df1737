package quality

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "aerotwin"

// Metrics holds the predictor's prometheus collectors. A nil *Metrics
// records nothing.
type Metrics struct {
	predictions   *prometheus.CounterVec
	inputErrors   prometheus.Counter
	latency       prometheus.Histogram
	trainings     prometheus.Counter
	trainDuration prometheus.Histogram
	loads         *prometheus.CounterVec
	state         prometheus.Gauge
}

// NewMetrics registers the predictor collectors on reg. A nil reg
// creates unregistered collectors.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		predictions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "predictions_total",
			Help:      "Quality predictions served, by risk level.",
		}, []string{"risk_level"}),
		inputErrors: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "prediction_input_errors_total",
			Help:      "Prediction requests rejected for invalid feature values.",
		}),
		latency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "prediction_duration_seconds",
			Help:      "Time spent scoring one prediction, excluding model initialization.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 2, 12),
		}),
		trainings: f.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "model_trainings_total",
			Help:      "Completed training runs.",
		}),
		trainDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "model_training_duration_seconds",
			Help:      "Wall time of a training run.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 8),
		}),
		loads: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "model_loads_total",
			Help:      "Artifact load attempts, by result.",
		}, []string{"result"}),
		state: f.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "model_state",
			Help:      "Predictor state: 0 uninitialized, 1 training, 2 ready.",
		}),
	}
}

func (m *Metrics) observePrediction(risk RiskLevel, seconds float64) {
	if m == nil {
		return
	}
	m.predictions.WithLabelValues(string(risk)).Inc()
	m.latency.Observe(seconds)
}

func (m *Metrics) observeInputError() {
	if m == nil {
		return
	}
	m.inputErrors.Inc()
}

func (m *Metrics) observeTraining(seconds float64) {
	if m == nil {
		return
	}
	m.trainings.Inc()
	m.trainDuration.Observe(seconds)
}

func (m *Metrics) observeLoad(ok bool) {
	if m == nil {
		return
	}
	result := "failure"
	if ok {
		result = "success"
	}
	m.loads.WithLabelValues(result).Inc()
}

func (m *Metrics) setState(s State) {
	if m == nil {
		return
	}
	m.state.Set(float64(s))
}
