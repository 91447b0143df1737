package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/haskel/aerotwin/internal/quality"
)

// Client talks to a running aerotwin server.
type Client struct {
	baseURL  string
	client   *http.Client
	user     string
	password string
}

// APIError is a non-2xx reply from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned status %d: %s", e.Status, e.Message)
}

// NewClient builds a client from the global flags.
func NewClient() *Client {
	return &Client{
		baseURL: GetServerURL(),
		// the first prediction may wait for a training run
		client:   &http.Client{Timeout: 5 * time.Minute},
		user:     user,
		password: password,
	}
}

// Predict scores one feature map on the server.
func (c *Client) Predict(ctx context.Context, features map[string]any) (*quality.Prediction, error) {
	var pred quality.Prediction
	if err := c.call(ctx, http.MethodPost, "/v1/predict", features, &pred); err != nil {
		return nil, fmt.Errorf("failed to predict: %w", err)
	}
	return &pred, nil
}

// Train asks the server to retrain and returns its report.
func (c *Client) Train(ctx context.Context) (*quality.TrainReport, error) {
	var report quality.TrainReport
	if err := c.call(ctx, http.MethodPost, "/v1/model/train", nil, &report); err != nil {
		return nil, fmt.Errorf("failed to train: %w", err)
	}
	return &report, nil
}

// Model returns the server's model info as raw JSON and decoded.
func (c *Client) Model(ctx context.Context) (json.RawMessage, *quality.Info, error) {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, "/v1/model", nil, &raw); err != nil {
		return nil, nil, fmt.Errorf("failed to get model info: %w", err)
	}
	var info quality.Info
	if err := json.Unmarshal(raw, &info); err != nil {
		return nil, nil, fmt.Errorf("failed to parse model info: %w", err)
	}
	return raw, &info, nil
}

// call sends body as JSON when non-nil and decodes a 2xx reply into out
// when non-nil.
func (c *Client) call(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		var buf bytes.Buffer
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
		reader = &buf
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "aerotwin/"+Version)
	if c.user != "" && c.password != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}

// errorMessage extracts the message of a JSON error body, falling back to
// the raw body.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}
