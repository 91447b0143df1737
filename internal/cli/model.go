package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/haskel/aerotwin/internal/quality"
	"github.com/haskel/aerotwin/internal/storage"
)

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Show the quality model state",
	Long: `Show the state of the quality model: whether it is ready, where it came
from, the feature schema and the risk thresholds.

By default the running server is asked; --local inspects the artifact
directory without training.`,
	RunE: runModel,
}

var modelClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete the stored model artifacts",
	Long:  `Delete the four model artifacts so the next prediction trains a fresh model.`,
	RunE:  runModelClear,
}

var modelLocal bool

func init() {
	modelCmd.Flags().BoolVar(&modelLocal, "local", false, "inspect the artifact directory instead of the server")
	modelCmd.AddCommand(modelClearCmd)
	rootCmd.AddCommand(modelCmd)
}

type localModelInfo struct {
	quality.Info
	Artifacts []storage.ArtifactInfo `json:"artifacts"`
	LoadError string                 `json:"load_error,omitempty"`
}

func runModel(cmd *cobra.Command, args []string) error {
	if !modelLocal {
		return showRemoteModel(cmd.Context())
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	predictor, store := newLocalPredictor(cfg, commandLogger(cfg, os.Stderr), nil)

	out := localModelInfo{Artifacts: store.Info(quality.ArtifactNames...)}
	if err := predictor.LoadModels(cmd.Context()); err != nil {
		out.LoadError = err.Error()
	}
	out.Info = predictor.Info()

	if jsonOut {
		data, err := json.MarshalIndent(out, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(formatInfo(out.Info))
	fmt.Println()
	fmt.Println(titleStyle.Render("Artifacts"))
	for _, a := range out.Artifacts {
		status := "missing"
		if a.Exists {
			status = fmt.Sprintf("%d bytes, %s", a.Size, a.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
		fmt.Println(row(a.Name, status))
	}
	if out.LoadError != "" {
		fmt.Println()
		fmt.Println(row("Load error", out.LoadError))
	}
	return nil
}

func showRemoteModel(ctx context.Context) error {
	raw, info, err := NewClient().Model(ctx)
	if err != nil {
		return err
	}

	if jsonOut {
		fmt.Println(string(raw))
		return nil
	}
	fmt.Println(formatInfo(*info))
	return nil
}

func runModelClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	store := storage.New(cfg.Model.ArtifactDir, commandLogger(cfg, os.Stderr))
	if err := store.Delete(quality.ArtifactNames...); err != nil {
		return err
	}

	if jsonOut {
		fmt.Printf(`{"status":"cleared","dir":%q}`+"\n", store.Dir())
	} else {
		fmt.Printf("Removed model artifacts from %s\n", store.Dir())
	}
	return nil
}
