package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/aerotwin/internal/quality"
)

var trainCmd = &cobra.Command{
	Use:   "train",
	Short: "Train the quality model and write its artifacts",
	Long: `Generate the synthetic corpus, fit the regressor and the defect classifier,
and write the four model artifacts to the artifact directory.

With --remote the running server retrains and swaps in the new model.`,
	RunE: runTrain,
}

var (
	trainSamples int
	trainSeed    uint64
	trainDir     string
	trainRemote  bool
)

func init() {
	trainCmd.Flags().IntVarP(&trainSamples, "samples", "n", 0, "synthetic corpus size (overrides config)")
	trainCmd.Flags().Uint64Var(&trainSeed, "seed", 0, "corpus seed (overrides config)")
	trainCmd.Flags().StringVar(&trainDir, "dir", "", "artifact directory (overrides config)")
	trainCmd.Flags().BoolVar(&trainRemote, "remote", false, "ask the running server to retrain")
	rootCmd.AddCommand(trainCmd)
}

func runTrain(cmd *cobra.Command, args []string) error {
	var (
		report *quality.TrainReport
		err    error
	)
	if trainRemote {
		report, err = NewClient().Train(cmd.Context())
	} else {
		report, err = trainLocally(cmd)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(formatReport(report))
	return nil
}

func trainLocally(cmd *cobra.Command) (*quality.TrainReport, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("samples") {
		cfg.Model.TrainingSamples = trainSamples
	}
	if cmd.Flags().Changed("seed") {
		cfg.Model.Seed = trainSeed
	}
	if trainDir != "" {
		cfg.Model.ArtifactDir = trainDir
	}
	if err := cfg.Model.Validate(); err != nil {
		return nil, err
	}

	log := commandLogger(cfg, os.Stderr)
	predictor, store := newLocalPredictor(cfg, log, nil)

	report, err := predictor.Train(cmd.Context())
	if err != nil {
		return nil, err
	}
	log.Info("artifacts written", "status", artifactSummary(store))
	return report, nil
}
