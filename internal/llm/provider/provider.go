// Package provider builds the configured model client.
package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/llm"
	"github.com/joseph-ayodele/po-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/po-extractor/internal/llm/openai"
)

const (
	OpenAI = "openai"
	Gemini = "gemini"
)

// New returns the invoker selected by cfg.Provider and the model name it will call.
func New(cfg common.LLMConfig, logger *slog.Logger) (llm.Invoker, string, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", OpenAI:
		c := openai.NewClient(openai.Config{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		return c, c.Model(), nil
	case Gemini:
		c := gemini.NewClient(gemini.Config{
			APIKey:      cfg.GeminiAPIKey,
			Model:       cfg.GeminiModel,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
		}, logger)
		return c, c.Model(), nil
	default:
		return nil, "", common.NewAppError("CONFIG_ERROR",
			fmt.Sprintf("unknown llm provider %q", cfg.Provider), common.ErrInvalidInput)
	}
}
