package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/aerotwin/internal/quality"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict quality and defect risk for operating conditions",
	Long: `Predict the quality score, defect probability and risk level for one set of
operating conditions. Features that are not given default to 0.

By default the running server is asked; --local scores in-process against
the artifact directory, training a model first if none is stored.`,
	Example: `  aerotwin predict --set vibration_level=3.0 --set component_age_days=250
  aerotwin predict --station 5 --now --set operator_experience_months=6
  aerotwin predict --file conditions.json --local`,
	RunE: runPredict,
}

var (
	predictSets    []string
	predictFile    string
	predictStation int
	predictNow     bool
	predictLocal   bool
)

func init() {
	predictCmd.Flags().StringArrayVar(&predictSets, "set", nil, "feature value as name=value (repeatable)")
	predictCmd.Flags().StringVarP(&predictFile, "file", "f", "", "JSON file with feature values")
	predictCmd.Flags().IntVar(&predictStation, "station", 0, "station id; fills station_id and station_critical")
	predictCmd.Flags().BoolVar(&predictNow, "now", false, "fill hour_of_day, day_of_week and shift_id from the clock")
	predictCmd.Flags().BoolVar(&predictLocal, "local", false, "predict in-process instead of asking the server")
	rootCmd.AddCommand(predictCmd)
}

func runPredict(cmd *cobra.Command, args []string) error {
	features, err := collectFeatures(predictFile, predictSets, predictStation, predictNow, time.Now())
	if err != nil {
		return err
	}

	var pred *quality.Prediction
	if predictLocal {
		pred, err = predictInProcess(cmd.Context(), features)
	} else {
		pred, err = NewClient().Predict(cmd.Context(), features)
	}
	if err != nil {
		return err
	}

	if jsonOut {
		data, err := json.Marshal(pred)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	}

	fmt.Println(formatPrediction(pred))
	return nil
}

// collectFeatures merges, in increasing precedence, the JSON file, the
// station and clock helpers, and --set assignments.
func collectFeatures(file string, sets []string, station int, useClock bool, now time.Time) (map[string]any, error) {
	features := map[string]any{}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read feature file: %w", err)
		}
		if err := json.Unmarshal(data, &features); err != nil {
			return nil, fmt.Errorf("failed to parse feature file: %w", err)
		}
	}

	if station != 0 {
		s, err := quality.StationByID(station)
		if err != nil {
			return nil, err
		}
		features[quality.FeatureStationID] = s.ID
		critical := 0
		if s.Critical {
			critical = 1
		}
		features[quality.FeatureStationCritical] = critical
	}

	if useClock {
		features[quality.FeatureHourOfDay] = now.Hour()
		// Monday is 0
		features[quality.FeatureDayOfWeek] = (int(now.Weekday()) + 6) % 7
		features[quality.FeatureShiftID] = quality.ShiftForHour(now.Hour())
	}

	assigned, err := parseAssignments(sets)
	if err != nil {
		return nil, err
	}
	for k, v := range assigned {
		features[k] = v
	}

	return features, nil
}

// parseAssignments turns name=value pairs into a feature map. Values stay
// strings; the predictor coerces them.
func parseAssignments(sets []string) (map[string]any, error) {
	out := make(map[string]any, len(sets))
	for _, s := range sets {
		name, value, ok := strings.Cut(s, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --set %q: expected name=value", s)
		}
		out[name] = strings.TrimSpace(value)
	}
	return out, nil
}

func predictInProcess(ctx context.Context, features map[string]any) (*quality.Prediction, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	predictor, _ := newLocalPredictor(cfg, commandLogger(cfg, os.Stderr), nil)
	return predictor.PredictQuality(ctx, features)
}
