// Package gemini invokes Google's Gemini generateContent REST endpoint.
package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joseph-ayodele/po-extractor/internal/llm"
)

const providerName = "gemini"

// Config for the Gemini client.
type Config struct {
	APIKey      string // if empty, falls back to env GEMINI_API_KEY
	BaseURL     string // default https://generativelanguage.googleapis.com
	Model       string // e.g. "gemini-2.0-flash"
	Temperature float32
	Timeout     time.Duration
}

type Client struct {
	cfg  Config
	http *http.Client
	log  *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 45 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
		log:  logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.cfg.Model
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Invoke implements llm.Invoker.
func (c *Client) Invoke(ctx context.Context, prompt, documentText string) (string, error) {
	start := time.Now()
	body := map[string]any{
		"systemInstruction": content{Parts: []part{{Text: prompt}}},
		"contents": []content{
			{Role: "user", Parts: []part{{Text: "Document content:\n\n" + documentText}}},
		},
		"generationConfig": map[string]any{
			"temperature":      c.cfg.Temperature,
			"responseMimeType": "application/json",
		},
	}
	endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(c.cfg.BaseURL, "/"), c.cfg.Model)
	headers := map[string]string{"x-goog-api-key": c.cfg.APIKey}

	raw, status, err := llm.SendJSON(ctx, c.http, endpoint, body, headers, c.log)
	if err != nil {
		c.log.Error("llm.invoke.error", "provider", providerName, "status", status, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return "", &llm.InvocationError{Provider: providerName, StatusCode: status, Err: err}
	}

	var resp generateResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return "", &llm.InvocationError{Provider: providerName, StatusCode: status, Err: fmt.Errorf("decode response: %w", err)}
	}
	if reason := resp.PromptFeedback.BlockReason; reason != "" {
		return "", &llm.InvocationError{Provider: providerName, StatusCode: status, Err: fmt.Errorf("prompt blocked: %s", reason)}
	}
	if len(resp.Candidates) == 0 {
		return "", &llm.InvocationError{Provider: providerName, StatusCode: status, Err: errors.New("no candidates in response")}
	}

	cand := resp.Candidates[0]
	var b strings.Builder
	for _, p := range cand.Content.Parts {
		b.WriteString(p.Text)
	}
	if cand.FinishReason == "MAX_TOKENS" {
		c.log.Warn("llm.invoke.truncated", "provider", providerName)
	}

	c.log.Info("llm.invoke.ok",
		"provider", providerName,
		"model", c.cfg.Model,
		"finish_reason", cand.FinishReason,
		"content_len", b.Len(),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return b.String(), nil
}

var _ llm.Invoker = (*Client)(nil)
