// Package kudzu is a small client for the Kudzu hologram API: health
// checks, hologram listing, trace fetches and trace recording.
package kudzu

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"

	"github.com/felixgeelhaar/kudzu-context/internal/trace"
)

var (
	// ErrUnreachable marks transport-level failures.
	ErrUnreachable = errors.New("kudzu unreachable")

	// ErrUnhealthy is returned when the API answers but does not report ok.
	ErrUnhealthy = errors.New("health check failed")
)

// RequestError adds the API operation and path to a failure.
type RequestError struct {
	Op   string
	Path string
	Err  error
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("kudzu: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// Hologram is a named collection of traces.
type Hologram struct {
	ID      string `json:"id"`
	Purpose string `json:"purpose"`
}

type Client struct {
	transport Transport
}

func NewClient(t Transport) *Client {
	return &Client{transport: t}
}

// Health returns nil only when the API reports status "ok".
func (c *Client) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.get(ctx, "Health", "/health", &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return ErrUnhealthy
	}
	return nil
}

func (c *Client) ListHolograms(ctx context.Context) ([]Hologram, error) {
	var resp struct {
		Holograms []Hologram `json:"holograms"`
	}
	if err := c.get(ctx, "ListHolograms", "/api/v1/holograms", &resp); err != nil {
		return nil, err
	}
	return resp.Holograms, nil
}

// FetchTraces returns at most limit traces of a hologram. An empty id
// yields no traces and no error.
func (c *Client) FetchTraces(ctx context.Context, hologramID string, limit int) ([]trace.Trace, error) {
	if hologramID == "" {
		return nil, nil
	}
	var resp struct {
		Traces []json.RawMessage `json:"traces"`
	}
	path := fmt.Sprintf("%s?limit=%d", tracesPath(hologramID), limit)
	if err := c.get(ctx, "FetchTraces", path, &resp); err != nil {
		return nil, err
	}

	// A malformed trace is skipped on its own; the rest of the batch stays.
	traces := make([]trace.Trace, 0, len(resp.Traces))
	for _, raw := range resp.Traces {
		var t trace.Trace
		if err := decode(raw, &t); err != nil {
			continue
		}
		traces = append(traces, t)
	}
	return traces, nil
}

// RecordTrace stores a new trace in a hologram.
func (c *Client) RecordTrace(ctx context.Context, hologramID, purpose string, data map[string]any) error {
	if hologramID == "" {
		return &RequestError{Op: "RecordTrace", Err: errors.New("hologram id is required")}
	}
	path := tracesPath(hologramID)
	body, err := json.Marshal(map[string]any{
		"purpose": purpose,
		"data":    data,
	})
	if err != nil {
		return &RequestError{Op: "RecordTrace", Path: path, Err: err}
	}
	if _, err := c.transport.Post(ctx, path, body); err != nil {
		return &RequestError{Op: "RecordTrace", Path: path, Err: err}
	}
	return nil
}

func (c *Client) get(ctx context.Context, op, path string, out any) error {
	raw, err := c.transport.Get(ctx, path)
	if err != nil {
		return &RequestError{Op: op, Path: path, Err: err}
	}
	if err := decode(raw, out); err != nil {
		return &RequestError{Op: op, Path: path, Err: fmt.Errorf("invalid response: %w", err)}
	}
	return nil
}

func decode(raw []byte, out any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}

func tracesPath(hologramID string) string {
	return "/api/v1/holograms/" + url.PathEscape(hologramID) + "/traces"
}
