package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// PathEnv names the environment variable consulted when no config path is
// given on the command line.
const PathEnv = "AEROTWIN_CONFIG"

// SearchPaths are tried in order after PathEnv.
var SearchPaths = []string{"aerotwin.yaml", "/etc/aerotwin/config.yaml"}

// Load reads path over the defaults. Unknown keys are rejected so that a
// misspelled threshold does not silently keep its default.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(expandEnv(data)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Resolve loads the config named by path, else by PathEnv, else the first
// existing SearchPaths entry. With none of them it returns the defaults
// and an empty source.
func Resolve(path string) (*Config, string, error) {
	if path == "" {
		path = os.Getenv(PathEnv)
	}
	if path == "" {
		for _, candidate := range SearchPaths {
			if _, err := os.Stat(candidate); err == nil {
				path = candidate
				break
			}
		}
	}
	if path == "" {
		return Default(), "", nil
	}

	cfg, err := Load(path)
	if err != nil {
		return nil, path, err
	}
	return cfg, path, nil
}
