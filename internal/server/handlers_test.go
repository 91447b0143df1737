package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/haskel/aerotwin/internal/config"
	"github.com/haskel/aerotwin/internal/quality"
	"github.com/haskel/aerotwin/internal/scheduler"
	"github.com/haskel/aerotwin/internal/server/middleware"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

type fakePredictor struct {
	state    quality.State
	pred     *quality.Prediction
	err      error
	report   *quality.TrainReport
	trainErr error
	got      map[string]any
	trains   int
}

func (f *fakePredictor) PredictQuality(_ context.Context, features map[string]any) (*quality.Prediction, error) {
	f.got = features
	if f.err != nil {
		return nil, f.err
	}
	f.state = quality.StateReady
	return f.pred, nil
}

func (f *fakePredictor) Train(context.Context) (*quality.TrainReport, error) {
	f.trains++
	return f.report, f.trainErr
}

func (f *fakePredictor) Info() quality.Info {
	return quality.Info{State: f.state.String(), ModelID: "model-1", Features: quality.FeatureNames}
}

func (f *fakePredictor) State() quality.State {
	return f.state
}

func testServer(t *testing.T, p Predictor) *Server {
	t.Helper()
	return New(config.Default(), p, prometheus.NewRegistry(), testLogger(), "0.1.0-test")
}

func newFake() *fakePredictor {
	return &fakePredictor{
		pred: &quality.Prediction{QualityScore: 97.5, DefectProbability: 0.042, RiskLevel: quality.RiskLow},
		report: &quality.TrainReport{
			ModelID: "model-2",
			Samples: 10000,
		},
	}
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp middleware.ErrorResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode error body: %v", err)
	}
	return resp.Error
}

func TestHandleInfo(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp InfoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Name != "aerotwin" || resp.Version != "0.1.0-test" {
		t.Errorf("unexpected info %+v", resp)
	}
}

func TestHandleInfo_UnknownPath(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nonexistent", nil))

	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
}

func TestHandleHealth(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.handleHealth(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if w.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", w.Code)
	}

	var resp HealthResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("expected status 'ok', got %s", resp.Status)
	}
}

func TestHandleReady(t *testing.T) {
	tests := []struct {
		state quality.State
		code  int
	}{
		{quality.StateUninitialized, http.StatusServiceUnavailable},
		{quality.StateTraining, http.StatusServiceUnavailable},
		{quality.StateReady, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			fake := newFake()
			fake.state = tt.state
			srv := testServer(t, fake)

			w := httptest.NewRecorder()
			srv.handleReady(w, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if w.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, w.Code)
			}

			var resp ReadyResponse
			if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if resp.State != tt.state.String() {
				t.Errorf("expected state %s, got %s", tt.state, resp.State)
			}
		})
	}
}

func TestHandlePredict(t *testing.T) {
	fake := newFake()
	srv := testServer(t, fake)

	w := postJSON(t, srv.Handler(), "/v1/predict", `{"vibration_level": 0.3, "station_id": "4", "unknown": 1}`)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp quality.Prediction
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp != *fake.pred {
		t.Errorf("expected %+v, got %+v", *fake.pred, resp)
	}

	if _, ok := fake.got["vibration_level"].(json.Number); !ok {
		t.Errorf("expected numbers to reach the predictor as json.Number, got %T", fake.got["vibration_level"])
	}
}

func TestHandlePredict_BadRequests(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"vibration_level":`},
		{"array body", `[1, 2, 3]`},
		{"null body", `null`},
		{"empty body", ``},
		{"trailing garbage", `{"vibration_level": 1} trailing`},
		{"second object", `{"vibration_level": 1} {"vibration_level": 2}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			srv := testServer(t, fake)

			w := postJSON(t, srv.Handler(), "/v1/predict", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Errorf("expected status 400, got %d", w.Code)
			}
			if fake.got != nil {
				t.Error("predictor should not be called")
			}
		})
	}
}

func TestHandlePredict_TrailingWhitespace(t *testing.T) {
	fake := newFake()
	srv := testServer(t, fake)

	w := postJSON(t, srv.Handler(), "/v1/predict", "{\"vibration_level\": 1}\n\t ")

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if fake.got == nil {
		t.Error("predictor should be called")
	}
}

func TestHandlePredict_InputError(t *testing.T) {
	fake := newFake()
	fake.err = &quality.InputError{Field: quality.FeatureTemperature, Value: "hot", Reason: "not numeric"}
	srv := testServer(t, fake)

	w := postJSON(t, srv.Handler(), "/v1/predict", `{"temperature_c": "hot"}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", w.Code)
	}
	if msg := decodeError(t, w); !strings.Contains(msg, quality.FeatureTemperature) {
		t.Errorf("error should name the field, got %q", msg)
	}
}

func TestHandlePredict_InternalError(t *testing.T) {
	fake := newFake()
	fake.err = errors.New("boom")
	srv := testServer(t, fake)

	w := postJSON(t, srv.Handler(), "/v1/predict", `{}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected status 500, got %d", w.Code)
	}
	if msg := decodeError(t, w); msg != "prediction failed" {
		t.Errorf("unexpected error %q", msg)
	}
}

func TestHandlePredict_BodyTooLarge(t *testing.T) {
	cfg := config.Default()
	cfg.Server.MaxBodyBytes = 64
	srv := New(cfg, newFake(), prometheus.NewRegistry(), testLogger(), "test")

	body := `{"temperature_c": ` + strings.Repeat("1", 100) + `}`
	w := postJSON(t, srv.Handler(), "/v1/predict", body)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("expected status 413, got %d", w.Code)
	}
}

func TestHandleModelInfo(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/model", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var info quality.Info
	if err := json.NewDecoder(w.Body).Decode(&info); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if info.ModelID != "model-1" || len(info.Features) != len(quality.FeatureNames) {
		t.Errorf("unexpected info %+v", info)
	}
}

func TestHandleModelInfo_ArtifactWatch(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/model", nil))
	if strings.Contains(w.Body.String(), "artifact_watch") {
		t.Errorf("no watcher attached, got %s", w.Body.String())
	}

	watcher := scheduler.New(func(ctx context.Context) error {
		return errors.New("artifact dir unreadable")
	}, scheduler.Config{Name: "artifact-watch", Interval: time.Hour})
	_ = watcher.RunNow(context.Background())
	srv.SetArtifactWatcher(watcher)

	w = httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/model", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}

	var resp ModelInfoResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.ModelID != "model-1" {
		t.Errorf("model info missing from response: %+v", resp.Info)
	}
	if resp.ArtifactWatch == nil {
		t.Fatal("expected artifact_watch in response")
	}
	if resp.ArtifactWatch.Runs != 1 || resp.ArtifactWatch.Failures != 1 {
		t.Errorf("unexpected watch stats %+v", resp.ArtifactWatch)
	}
	if resp.ArtifactWatch.LastError != "artifact dir unreadable" || resp.ArtifactWatch.Running {
		t.Errorf("unexpected watch stats %+v", resp.ArtifactWatch)
	}
}

func TestHandleTrain(t *testing.T) {
	tests := []struct {
		name     string
		report   *quality.TrainReport
		trainErr error
		code     int
	}{
		{"success", &quality.TrainReport{ModelID: "m"}, nil, http.StatusOK},
		{"persist failure still reports", &quality.TrainReport{ModelID: "m"}, errors.New("disk full"), http.StatusOK},
		{"fit failure", nil, errors.New("canceled"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			fake.report = tt.report
			fake.trainErr = tt.trainErr
			srv := testServer(t, fake)

			w := postJSON(t, srv.Handler(), "/v1/model/train", "")

			if w.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, w.Code)
			}
			if fake.trains != 1 {
				t.Errorf("expected one training run, got %d", fake.trains)
			}
		})
	}
}

func TestHandleStations(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/stations", nil))

	var stations []quality.Station
	if err := json.NewDecoder(w.Body).Decode(&stations); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(stations) != 8 || stations[0].Name != "Fuselage Assembly" {
		t.Errorf("unexpected stations %+v", stations)
	}
}

func TestAuthExclusions(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Auth.User = "admin"
	cfg.Auth.Password = "secret"
	fake := newFake()
	fake.state = quality.StateReady
	srv := New(cfg, fake, prometheus.NewRegistry(), testLogger(), "test")

	tests := []struct {
		method string
		path   string
		code   int
	}{
		{http.MethodGet, "/health", http.StatusOK},
		{http.MethodGet, "/ready", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/model", http.StatusUnauthorized},
		{http.MethodPost, "/v1/predict", http.StatusUnauthorized},
		{http.MethodPost, "/v1/model/train", http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := httptest.NewRecorder()
			srv.Handler().ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, bytes.NewBufferString("{}")))
			if w.Code != tt.code {
				t.Errorf("expected status %d, got %d", tt.code, w.Code)
			}
		})
	}
}

func TestReloadConfig(t *testing.T) {
	srv := testServer(t, newFake())

	req := func() int {
		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/model", nil))
		return w.Code
	}

	if code := req(); code != http.StatusOK {
		t.Fatalf("expected 200 before reload, got %d", code)
	}

	cfg := config.Default()
	cfg.Auth.Enabled = true
	cfg.Auth.User = "admin"
	cfg.Auth.Password = "secret"
	srv.ReloadConfig(cfg)

	if code := req(); code != http.StatusUnauthorized {
		t.Errorf("expected 401 after enabling auth, got %d", code)
	}
}

func TestSecurityHeadersApplied(t *testing.T) {
	srv := testServer(t, newFake())

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("expected nosniff, got %q", got)
	}
	if w.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("expected request id header")
	}
}
