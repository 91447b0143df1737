package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/haskel/aerotwin/internal/quality"
	"github.com/haskel/aerotwin/internal/scheduler"
	"github.com/haskel/aerotwin/internal/server/middleware"
)

type InfoResponse struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ModelInfoResponse is the model snapshot plus the artifact watcher's
// activity when one runs.
type ModelInfoResponse struct {
	quality.Info
	ArtifactWatch *scheduler.Stats `json:"artifact_watch,omitempty"`
}

type HealthResponse struct {
	Status string `json:"status"`
}

type ReadyResponse struct {
	Ready bool   `json:"ready"`
	State string `json:"state"`
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, InfoResponse{
		Name:    "aerotwin",
		Version: s.version,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	state := s.predictor.State()
	resp := ReadyResponse{
		Ready: state == quality.StateReady,
		State: state.String(),
	}

	if !resp.Ready {
		s.writeJSON(w, http.StatusServiceUnavailable, resp)
		return
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var features map[string]any

	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	err := dec.Decode(&features)
	if err == nil && features == nil {
		err = errors.New("null body")
	}
	if err == nil {
		// exactly one object; whitespace may follow
		if _, tokErr := dec.Token(); tokErr == nil {
			err = errors.New("trailing data after feature object")
		} else if !errors.Is(tokErr, io.EOF) {
			err = tokErr
		}
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			middleware.WriteError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		middleware.WriteError(w, http.StatusBadRequest, "invalid request body: expected a JSON object of feature values")
		return
	}

	pred, err := s.predictor.PredictQuality(r.Context(), features)
	if err != nil {
		var inputErr *quality.InputError
		if errors.As(err, &inputErr) {
			middleware.WriteError(w, http.StatusBadRequest, inputErr.Error())
			return
		}
		s.logger.Error("prediction failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "prediction failed")
		return
	}

	s.writeJSON(w, http.StatusOK, pred)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	resp := ModelInfoResponse{Info: s.predictor.Info()}
	if s.watcher != nil {
		stats := s.watcher.Stats()
		resp.ArtifactWatch = &stats
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	report, err := s.predictor.Train(r.Context())
	if err != nil && report == nil {
		s.logger.Error("training failed", "error", err)
		middleware.WriteError(w, http.StatusInternalServerError, "training failed")
		return
	}
	if err != nil {
		// the new model serves but was not written to disk
		s.logger.Warn("trained model not persisted", "error", err)
	}

	s.writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, quality.Stations)
}

func (s *Server) handleShifts(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, quality.Shifts)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode JSON response",
			"error", err,
			"status", status,
		)
	}
}
