package control

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"syscall"
	"time"
)

// ErrNotRunning is returned when no tracker instance is listening.
var ErrNotRunning = errors.New("tracker is not running")

// Client talks to a running tracker.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the instance at address (host:port).
func NewClient(address string) *Client {
	return &Client{
		baseURL: "http://" + address,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// Status returns the current timer state.
func (c *Client) Status(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodGet, "/v1/status", nil, &out)
	return out, err
}

// Start starts the timer for the active task.
func (c *Client) Start(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodPost, "/v1/start", nil, &out)
	return out, err
}

// Pause pauses the timer.
func (c *Client) Pause(ctx context.Context) (StatusResponse, error) {
	var out StatusResponse
	err := c.do(ctx, http.MethodPost, "/v1/pause", nil, &out)
	return out, err
}

// Stop stops the timer and returns the recorded entry, if any.
func (c *Client) Stop(ctx context.Context) (StopResponse, error) {
	var out StopResponse
	err := c.do(ctx, http.MethodPost, "/v1/stop", nil, &out)
	return out, err
}

// Select makes task (id or name) the active task.
func (c *Client) Select(ctx context.Context, task string) (StopResponse, error) {
	var out StopResponse
	err := c.do(ctx, http.MethodPost, "/v1/select", selectRequest{Task: task}, &out)
	return out, err
}

// Tasks lists tasks.
func (c *Client) Tasks(ctx context.Context) ([]TaskResponse, error) {
	var out []TaskResponse
	err := c.do(ctx, http.MethodGet, "/v1/tasks", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if method != http.MethodGet {
		req.Header.Set("Content-Type", jsonContentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, syscall.ECONNREFUSED) {
			return ErrNotRunning
		}
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr struct {
			Error string `json:"error"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err != nil || apiErr.Error == "" {
			return fmt.Errorf("%s %s: %s", method, path, resp.Status)
		}
		return fmt.Errorf("%s %s: %s", method, path, apiErr.Error)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
