package cli

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/haskel/aerotwin/internal/quality"
)

func TestGetServerURL(t *testing.T) {
	// Reset to defaults
	host = "localhost"
	port = 8080

	url := GetServerURL()
	expected := "http://localhost:8080"

	if url != expected {
		t.Errorf("expected %s, got %s", expected, url)
	}
}

func TestGetServerURL_CustomHostPort(t *testing.T) {
	host = "192.168.1.100"
	port = 9000

	url := GetServerURL()
	expected := "http://192.168.1.100:9000"

	if url != expected {
		t.Errorf("expected %s, got %s", expected, url)
	}

	// Reset
	host = "localhost"
	port = 8080
}

func TestGetServerURL_ServerFlag(t *testing.T) {
	serverURL = "https://quality.line-3.example:8443/"
	defer func() { serverURL = "" }()

	if got := GetServerURL(); got != "https://quality.line-3.example:8443" {
		t.Errorf("expected --server to win without trailing slash, got %s", got)
	}
}

func TestApplyEnvDefaults(t *testing.T) {
	t.Setenv(envServer, "http://10.0.0.5:8080")
	t.Setenv(envUser, "line-ops")
	t.Setenv(envPassword, "from-env")
	defer func() { serverURL, user, password = "", "", "" }()

	cmd := &cobra.Command{Use: "aerotwin"}
	cmd.Flags().StringVar(&serverURL, "server", "", "")
	cmd.Flags().StringVar(&user, "user", "", "")
	cmd.Flags().StringVar(&password, "password", "", "")
	if err := cmd.Flags().Parse([]string{"--password", "from-flag"}); err != nil {
		t.Fatal(err)
	}

	if err := applyEnvDefaults(cmd, nil); err != nil {
		t.Fatal(err)
	}
	if serverURL != "http://10.0.0.5:8080" || user != "line-ops" {
		t.Errorf("env not applied: server=%q user=%q", serverURL, user)
	}
	if password != "from-flag" {
		t.Errorf("explicit flag must win over env, got %q", password)
	}
}

func TestSetVersion(t *testing.T) {
	SetVersion("1.2.3")

	if Version != "1.2.3" {
		t.Errorf("expected version 1.2.3, got %s", Version)
	}

	// Reset
	Version = "0.1.0"
}

func TestNewClient(t *testing.T) {
	host = "localhost"
	port = 8080

	client := NewClient()

	if client == nil {
		t.Fatal("expected client, got nil")
	}

	if client.baseURL != "http://localhost:8080" {
		t.Errorf("expected http://localhost:8080, got %s", client.baseURL)
	}
}

func TestNewClient_WithAuth(t *testing.T) {
	user = "admin"
	password = "secret"

	client := NewClient()

	if client.user != "admin" {
		t.Errorf("expected user admin, got %s", client.user)
	}

	if client.password != "secret" {
		t.Errorf("expected password secret, got %s", client.password)
	}

	// Reset
	user = ""
	password = ""
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{"vibration_level=3.0", " component_age_days = 250 ", "note="})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := map[string]any{
		"vibration_level":    "3.0",
		"component_age_days": "250",
		"note":               "",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d entries, got %v", len(want), got)
	}
	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s: expected %q, got %v", k, v, got[k])
		}
	}
}

func TestParseAssignments_Invalid(t *testing.T) {
	for _, in := range []string{"vibration_level", "=3", " = 3"} {
		if _, err := parseAssignments([]string{in}); err == nil {
			t.Errorf("expected error for %q", in)
		}
	}
}

func TestCollectFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "features.json")
	if err := os.WriteFile(path, []byte(`{"temperature_c": 30, "vibration_level": 0.2, "shop_floor_zone": "B"}`), 0644); err != nil {
		t.Fatalf("failed to write feature file: %v", err)
	}

	// Wednesday 23:30 is the night shift
	now := time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC)
	got, err := collectFeatures(path, []string{"vibration_level=2.5"}, 3, true, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	checks := map[string]any{
		quality.FeatureTemperature:     30.0,
		quality.FeatureVibration:       "2.5",
		quality.FeatureStationID:       3,
		quality.FeatureStationCritical: 0,
		quality.FeatureHourOfDay:       23,
		quality.FeatureDayOfWeek:       2,
		quality.FeatureShiftID:         3,
	}
	for k, v := range checks {
		if got[k] != v {
			t.Errorf("%s: expected %v (%T), got %v (%T)", k, v, v, got[k], got[k])
		}
	}
}

func TestCollectFeatures_UnknownStation(t *testing.T) {
	if _, err := collectFeatures("", nil, 42, false, time.Now()); err == nil {
		t.Error("expected error for unknown station")
	}
}

func TestWriteCorpusCSV(t *testing.T) {
	data := quality.NewGenerator(7, quality.DefaultLabelConfig()).Generate(25)

	var buf bytes.Buffer
	if err := writeCorpusCSV(&buf, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}
	if len(records) != 26 {
		t.Fatalf("expected header plus 25 rows, got %d", len(records))
	}

	header := records[0]
	if len(header) != len(quality.FeatureNames)+2 {
		t.Fatalf("unexpected header width %d", len(header))
	}
	if header[0] != quality.FeatureNames[0] || header[len(header)-1] != "has_defect" {
		t.Errorf("unexpected header %v", header)
	}
	for _, rec := range records[1:] {
		if last := rec[len(rec)-1]; last != "0" && last != "1" {
			t.Errorf("has_defect must be 0 or 1, got %q", last)
		}
	}
}

func TestReadPIDFile(t *testing.T) {
	dir := t.TempDir()

	valid := filepath.Join(dir, "valid.pid")
	os.WriteFile(valid, []byte("1234\n"), 0644)
	invalid := filepath.Join(dir, "invalid.pid")
	os.WriteFile(invalid, []byte("not-a-pid"), 0644)

	if pid, err := readPIDFile(valid); err != nil || pid != 1234 {
		t.Errorf("expected pid 1234, got %d (%v)", pid, err)
	}
	if _, err := readPIDFile(invalid); err == nil {
		t.Error("expected error for invalid PID")
	}
	if _, err := readPIDFile(filepath.Join(dir, "missing.pid")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := readPIDFile(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestTopWeights(t *testing.T) {
	got := topWeights(map[string]float64{"a": 0.1, "b": 0.5, "c": 0.5, "d": 0.3}, 3)

	want := []string{"b", "c", "d"}
	if len(got) != len(want) {
		t.Fatalf("expected %d weights, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i].name != name {
			t.Errorf("position %d: expected %s, got %s", i, name, got[i].name)
		}
	}
}

func TestFormatPrediction(t *testing.T) {
	out := formatPrediction(&quality.Prediction{QualityScore: 61.25, DefectProbability: 0.734, RiskLevel: quality.RiskHigh})

	for _, want := range []string{"61.25 / 100", "73.4%", "HIGH"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q missing %q", out, want)
		}
	}
}

func TestClientPredict(t *testing.T) {
	var got map[string]any
	var agent string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/predict" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		agent = r.UserAgent()
		json.NewDecoder(r.Body).Decode(&got)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"quality_score": 88.5, "defect_probability": 0.12, "risk_level": "MEDIUM"}`))
	}))
	defer ts.Close()

	client := NewClient()
	client.baseURL = ts.URL

	pred, err := client.Predict(context.Background(), map[string]any{"vibration_level": "1.2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.RiskLevel != quality.RiskMedium || pred.QualityScore != 88.5 {
		t.Errorf("unexpected prediction %+v", pred)
	}
	if got["vibration_level"] != "1.2" {
		t.Errorf("features not forwarded, got %v", got)
	}
	if agent != "aerotwin/"+Version {
		t.Errorf("unexpected user agent %q", agent)
	}
}

func TestClientPredict_ServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "invalid value for humidity_pct (wet): not numeric"}`))
	}))
	defer ts.Close()

	client := NewClient()
	client.baseURL = ts.URL

	_, err := client.Predict(context.Background(), map[string]any{"humidity_pct": "wet"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest || !strings.Contains(apiErr.Message, "humidity_pct") {
		t.Errorf("unexpected API error %+v", apiErr)
	}
}

func TestClientTrainAndModel(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "ops" || pass != "pw" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte("unauthorized"))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.Method + " " + r.URL.Path {
		case "POST /v1/model/train":
			w.Write([]byte(`{"model_id": "m-2", "samples": 500, "regression_r2": 0.81}`))
		case "GET /v1/model":
			w.Write([]byte(`{"state": "READY", "model_id": "m-2", "source": "trained"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	client := NewClient()
	client.baseURL = ts.URL

	// no credentials: plain-text body becomes the message
	_, err := client.Train(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Status != http.StatusUnauthorized || apiErr.Message != "unauthorized" {
		t.Fatalf("expected 401 APIError, got %v", err)
	}

	client.user, client.password = "ops", "pw"
	report, err := client.Train(context.Background())
	if err != nil {
		t.Fatalf("train: %v", err)
	}
	if report.ModelID != "m-2" || report.Samples != 500 {
		t.Errorf("unexpected report %+v", report)
	}

	raw, info, err := client.Model(context.Background())
	if err != nil {
		t.Fatalf("model: %v", err)
	}
	if info.State != "READY" || info.ModelID != "m-2" || len(raw) == 0 {
		t.Errorf("unexpected info %+v", info)
	}
}
