package llamacpp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/LasaK97/End-to-End-Multi-Stage-Intelligent-Financial-Data-Extraction-System/internal/llm"
)

// Complete implements llm.Completer against a llama.cpp server.
func (c *Client) Complete(ctx context.Context, req llm.Request) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	temp := req.Temperature
	if temp <= 0 {
		temp = c.cfg.Temperature
	}

	c.log.Info("llm.complete.start",
		"req_id", rid,
		"prompt_len", len(req.Prompt),
		"max_tokens", req.MaxTokens,
		"temp", temp,
	)

	body := map[string]any{
		"prompt":       req.Prompt,
		"n_predict":    req.MaxTokens,
		"temperature":  temp,
		"stop":         req.Stop,
		"stream":       false,
		"cache_prompt": false,
	}

	// One in-flight request; the inference backend is not reentrant.
	c.mu.Lock()
	raw, err := c.post(ctx, strings.TrimRight(c.cfg.BaseURL, "/")+"/completion", body)
	c.mu.Unlock()
	if err != nil {
		c.log.Error("llm.complete.http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", err
	}

	var cc struct {
		Content string `json:"content"`
	}
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("llm.complete.decode_error",
			"req_id", rid, "error", err, "raw_bytes", len(raw),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", fmt.Errorf("decode llama response: %w", err)
	}

	c.log.Info("llm.complete.ok",
		"req_id", rid,
		"content_len", len(cc.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return cc.Content, nil
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("llama http error: %w", err)
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			c.log.Warn("llama response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		return nil, fmt.Errorf("read llama response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("llama status %d: %s", resp.StatusCode, buf.String())
	}
	return buf.Bytes(), nil
}
