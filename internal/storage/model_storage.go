package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"
)

// envelope wraps every artifact so a load can tell whether a set of
// files was written by the same save.
type envelope struct {
	Version  int             `json:"version"`
	Artifact string          `json:"artifact"`
	ModelID  string          `json:"model_id"`
	SavedAt  time.Time       `json:"saved_at"`
	Payload  json.RawMessage `json:"payload"`
}

// SaveSet writes all artifacts under one model id. Every file is first
// written to a temp path; renames happen only after all writes succeed.
func (s *Store) SaveSet(modelID string, artifacts map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}

	now := time.Now().UTC()
	temps := make(map[string]string, len(artifacts))
	cleanup := func() {
		for _, tmp := range temps {
			os.Remove(tmp)
		}
	}

	for name, v := range artifacts {
		payload, err := json.Marshal(v)
		if err != nil {
			cleanup()
			return fmt.Errorf("failed to encode %s: %w", name, err)
		}

		tmp := s.path(name) + ".tmp"
		if err := writeEnvelope(tmp, envelope{
			Version:  currentVersion,
			Artifact: name,
			ModelID:  modelID,
			SavedAt:  now,
			Payload:  payload,
		}); err != nil {
			os.Remove(tmp)
			cleanup()
			return fmt.Errorf("failed to write %s: %w", name, err)
		}
		temps[name] = tmp
	}

	for name, tmp := range temps {
		if err := os.Rename(tmp, s.path(name)); err != nil {
			cleanup()
			return fmt.Errorf("failed to rename %s: %w", name, err)
		}
		delete(temps, name)
	}

	s.logger.Debug("saved artifacts", "dir", s.dir, "model_id", modelID, "count", len(artifacts))
	return nil
}

func writeEnvelope(path string, env envelope) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := json.NewEncoder(file).Encode(env); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// LoadSet decodes every artifact in targets (name to pointer). It fails if
// any artifact is missing, undecodable, or saved under a different model
// id than the others. Targets may be partially filled on failure.
func (s *Store) LoadSet(targets map[string]any) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var modelID string
	first := true
	for name, target := range targets {
		env, err := readEnvelope(s.path(name))
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return "", fmt.Errorf("%w: %s", ErrArtifactMissing, name)
			}
			return "", fmt.Errorf("failed to read %s: %w", name, err)
		}
		if env.Version > currentVersion {
			return "", fmt.Errorf("%s: unsupported artifact version %d", name, env.Version)
		}
		if env.Artifact != name {
			return "", fmt.Errorf("%w: %s holds %q", ErrArtifactMismatch, name, env.Artifact)
		}
		if first {
			modelID = env.ModelID
			first = false
		} else if env.ModelID != modelID {
			return "", fmt.Errorf("%w: %s has model %s, expected %s", ErrArtifactMismatch, name, env.ModelID, modelID)
		}
		if err := json.Unmarshal(env.Payload, target); err != nil {
			return "", fmt.Errorf("failed to decode %s: %w", name, err)
		}
	}

	s.logger.Debug("loaded artifacts", "dir", s.dir, "model_id", modelID, "count", len(targets))
	return modelID, nil
}

// ModelID returns the model id recorded in one artifact without decoding
// its payload.
func (s *Store) ModelID(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	env, err := readEnvelope(s.path(name))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w: %s", ErrArtifactMissing, name)
		}
		return "", fmt.Errorf("failed to read %s: %w", name, err)
	}
	return env.ModelID, nil
}

func readEnvelope(path string) (*envelope, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var env envelope
	if err := json.NewDecoder(file).Decode(&env); err != nil {
		return nil, err
	}
	return &env, nil
}

// Delete removes the named artifacts. Missing files are not an error.
func (s *Store) Delete(names ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for _, name := range names {
		if err := os.Remove(s.path(name)); err != nil && !os.IsNotExist(err) {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
