package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haskel/aerotwin/internal/config"
	"github.com/haskel/aerotwin/internal/logger"
	"github.com/haskel/aerotwin/internal/quality"
	"github.com/haskel/aerotwin/internal/storage"
)

// loadConfig resolves --config, $AEROTWIN_CONFIG or a well-known path,
// falling back to defaults.
func loadConfig() (*config.Config, error) {
	cfg, _, err := config.Resolve(cfgFile)
	return cfg, err
}

// commandLogger logs to stderr for one-shot commands, at debug level
// with --verbose.
func commandLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := "warn"
	if verbose {
		level = "debug"
	}
	return logger.NewWithWriter(w, level, cfg.Logging.Format)
}

// newLocalPredictor builds an in-process predictor over the configured
// artifact directory.
func newLocalPredictor(cfg *config.Config, log *slog.Logger, reg prometheus.Registerer) (*quality.Predictor, *storage.Store) {
	store := storage.New(cfg.Model.ArtifactDir, log)

	var metrics *quality.Metrics
	if reg != nil {
		metrics = quality.NewMetrics(reg)
	}
	return quality.NewPredictor(store, cfg.PredictorOptions(log, metrics)), store
}

func artifactSummary(store *storage.Store) string {
	present := 0
	for _, info := range store.Info(quality.ArtifactNames...) {
		if info.Exists {
			present++
		}
	}
	return fmt.Sprintf("%d/%d artifacts in %s", present, len(quality.ArtifactNames), store.Dir())
}
