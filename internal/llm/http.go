package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/act-mass/pendo/internal/reliability"
	"github.com/act-mass/pendo/internal/state"
)

const defaultHTTPTimeout = 30 * time.Second

// HTTPGenerator forwards generation requests to a compatible HTTP endpoint.
// A retryable status gets one immediate retry before the error surfaces.
type HTTPGenerator struct {
	url    string
	client *http.Client
}

func NewHTTPGenerator(url string, timeout time.Duration) *HTTPGenerator {
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	return &HTTPGenerator{
		url: strings.TrimSpace(url),
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type httpGenerateRequest struct {
	System   string          `json:"system"`
	Messages []state.Message `json:"messages,omitempty"`
	Message  string          `json:"message"`
}

type httpGenerateResponse struct {
	Text string `json:"text"`
}

func (g *HTTPGenerator) Generate(ctx context.Context, req Request) (string, error) {
	payload, err := json.Marshal(httpGenerateRequest{
		System:   req.SystemPrompt,
		Messages: req.History,
		Message:  req.UserMessage,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	text, status, err := g.post(ctx, payload)
	if err == nil {
		return text, nil
	}
	if status != 0 {
		if !reliability.IsRetryableHTTPStatus(status) {
			return "", err
		}
	} else if !reliability.IsRetryableGenerationError(err) {
		return "", err
	}
	if ctx.Err() != nil {
		return "", ctx.Err()
	}

	text, _, err = g.post(ctx, payload)
	return text, err
}

func (g *HTTPGenerator) post(ctx context.Context, payload []byte) (string, int, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, g.url, bytes.NewReader(payload))
	if err != nil {
		return "", 0, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	res, err := g.client.Do(httpReq)
	if err != nil {
		return "", 0, fmt.Errorf("send request: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 4<<10))
		return "", res.StatusCode, fmt.Errorf("generation http status %d: %s", res.StatusCode, string(body))
	}

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", res.StatusCode, fmt.Errorf("read response: %w", err)
	}

	var obj httpGenerateResponse
	if err := json.Unmarshal(body, &obj); err != nil {
		text := strings.TrimSpace(string(body))
		if text == "" {
			return "", res.StatusCode, fmt.Errorf("empty generation response")
		}
		return text, res.StatusCode, nil
	}
	if strings.TrimSpace(obj.Text) == "" {
		return "", res.StatusCode, fmt.Errorf("empty generation response")
	}
	return obj.Text, res.StatusCode, nil
}
