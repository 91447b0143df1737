package cli

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/haskel/aerotwin/internal/quality"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Export the synthetic training corpus as CSV",
	Long: `Write the synthetic corpus the model is trained on as CSV: the canonical
feature columns followed by quality_score and has_defect.`,
	Example: `  aerotwin generate -n 1000 -o corpus.csv
  aerotwin generate --seed 7 | head`,
	RunE: runGenerate,
}

var (
	generateSamples int
	generateSeed    uint64
	generateOut     string
)

func init() {
	generateCmd.Flags().IntVarP(&generateSamples, "samples", "n", quality.DefaultSamples, "number of samples")
	generateCmd.Flags().Uint64Var(&generateSeed, "seed", 0, "corpus seed (default from config)")
	generateCmd.Flags().StringVarP(&generateOut, "output", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	seed := cfg.Model.Seed
	if cmd.Flags().Changed("seed") {
		seed = generateSeed
	}
	if generateSamples < 1 {
		return fmt.Errorf("samples must be at least 1, got %d", generateSamples)
	}

	opts := cfg.PredictorOptions(nil, nil)
	data := quality.NewGenerator(seed, opts.Labels).Generate(generateSamples)

	var w io.Writer = os.Stdout
	if generateOut != "" {
		f, err := os.Create(generateOut)
		if err != nil {
			return fmt.Errorf("failed to create output: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := writeCorpusCSV(w, data); err != nil {
		return err
	}

	if generateOut != "" && !jsonOut {
		fmt.Fprintf(os.Stderr, "Wrote %d samples (defect rate %.1f%%) to %s\n",
			data.Len(), data.DefectRate()*100, generateOut)
	}
	return nil
}

func writeCorpusCSV(w io.Writer, data *quality.Dataset) error {
	cw := csv.NewWriter(w)

	header := append(append([]string{}, quality.FeatureNames...), "quality_score", "has_defect")
	if err := cw.Write(header); err != nil {
		return err
	}

	record := make([]string, len(header))
	for i, row := range data.Features {
		for j, v := range row {
			record[j] = strconv.FormatFloat(v, 'g', -1, 64)
		}
		record[len(row)] = strconv.FormatFloat(data.Quality[i], 'f', 4, 64)
		record[len(row)+1] = strconv.Itoa(int(data.Defect[i]))
		if err := cw.Write(record); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
