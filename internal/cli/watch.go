package cli

import (
	"context"
	"errors"
	"log/slog"

	"github.com/haskel/aerotwin/internal/quality"
	"github.com/haskel/aerotwin/internal/scheduler"
	"github.com/haskel/aerotwin/internal/storage"
)

// artifactWatchJob reloads the predictor when the artifact directory holds
// a model other than the resident one, such as one written by `aerotwin
// train` while the server runs.
func artifactWatchJob(store *storage.Store, predictor *quality.Predictor, log *slog.Logger) scheduler.Job {
	return func(ctx context.Context) error {
		if predictor.State() == quality.StateTraining {
			return nil
		}

		onDisk, err := store.ModelID(quality.ArtifactSchema)
		if err != nil {
			if errors.Is(err, storage.ErrArtifactMissing) {
				return nil
			}
			return err
		}

		resident := predictor.Info().ModelID
		if onDisk == resident {
			return nil
		}

		log.Info("new model artifacts detected", "model_id", onDisk, "previous", resident)
		return predictor.LoadModels(ctx)
	}
}
