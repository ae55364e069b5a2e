package grading

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Feedback is the assessor's verdict on one answer.
type Feedback struct {
	Score    int    `json:"score"`
	Feedback string `json:"feedback"`
}

// Clamped returns f with Score limited to 0-100.
func (f Feedback) Clamped() Feedback {
	if f.Score < 0 {
		f.Score = 0
	} else if f.Score > 100 {
		f.Score = 100
	}
	return f
}

// GradingError reports a failed grading request.
type GradingError struct {
	Status int
	Body   string
	Err    error
}

func (e *GradingError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("grading failed: status %d: %s", e.Status, e.Body)
	}
	return fmt.Sprintf("grading failed: %v", e.Err)
}

func (e *GradingError) Unwrap() error { return e.Err }

// Grader scores a finished answer.
type Grader interface {
	Grade(ctx context.Context, answer string) (Feedback, error)
}

// Client calls a grading service over HTTP (POST {BaseURL}/grade).
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{BaseURL: baseURL, HTTP: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) Grade(ctx context.Context, answer string) (Feedback, error) {
	body, err := json.Marshal(map[string]string{"answer": answer})
	if err != nil {
		return Feedback{}, &GradingError{Err: err}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(c.BaseURL, "/")+"/grade", bytes.NewReader(body))
	if err != nil {
		return Feedback{}, &GradingError{Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return Feedback{}, &GradingError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Feedback{}, &GradingError{Status: resp.StatusCode, Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return Feedback{}, &GradingError{Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}

	var fb Feedback
	if err := json.Unmarshal(data, &fb); err != nil {
		return Feedback{}, &GradingError{Err: fmt.Errorf("decode response: %w", err)}
	}
	return fb, nil
}
