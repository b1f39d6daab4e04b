package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Envelope is the response wrapper used by the asset and processing services.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
}

// StatusError carries a non-2xx answer or an envelope with success=false.
type StatusError struct {
	Code int
	Msg  string
}

func (e *StatusError) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("http %d", e.Code)
	}
	return fmt.Sprintf("http %d: %s", e.Code, e.Msg)
}

// Client speaks JSON envelopes to one base URL.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func NewClient(base, apiKey string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(base) == "" {
		return nil, errors.New("remote base url empty")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		base:   strings.TrimRight(base, "/"),
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

func (c *Client) URL(path string) string { return c.base + path }

// JSON sends body (if not nil) as JSON and decodes the envelope data into out.
func (c *Client) JSON(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), r)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.Do(req, out)
}

// Do sends a prepared request and decodes the envelope data into out.
func (c *Client) Do(req *http.Request, out any) error {
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env Envelope
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, 8<<20)).Decode(&env)
	if resp.StatusCode >= 300 {
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return &StatusError{Code: resp.StatusCode, Msg: msg}
	}
	if decodeErr != nil {
		return fmt.Errorf("decode response: %w", decodeErr)
	}
	if !env.Success {
		return &StatusError{Code: resp.StatusCode, Msg: env.Error}
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}
