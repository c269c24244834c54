package openai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	sdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/shared"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/llm"
)

const providerName = "openai"

// Invoke sends the prompt as the system message and the document as the user message,
// asking for a JSON object back. The reply text is returned untouched.
func (c *Client) Invoke(ctx context.Context, prompt, documentText string) (string, error) {
	rid := common.RequestIDFromContext(ctx)
	if rid == "" {
		rid = uuid.New().String()
	}
	start := time.Now()

	c.log.Info("llm.invoke.start",
		"req_id", rid,
		"provider", providerName,
		"model", c.cfg.Model,
		"temp", c.cfg.Temperature,
		"prompt_len", len(prompt),
		"text_len", len(documentText),
	)

	params := sdk.ChatCompletionNewParams{
		Model: shared.ChatModel(c.cfg.Model),
		Messages: []sdk.ChatCompletionMessageParamUnion{
			sdk.SystemMessage(prompt),
			sdk.UserMessage("Document content:\n\n" + documentText),
		},
		Temperature: sdk.Float(float64(c.cfg.Temperature)),
		ResponseFormat: sdk.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONObject: &shared.ResponseFormatJSONObjectParam{},
		},
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		invErr := mapOpenAIError(err)
		c.log.Error("llm.invoke.error",
			"req_id", rid, "provider", providerName, "error", invErr,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return "", invErr
	}

	if len(resp.Choices) == 0 {
		c.log.Error("llm.invoke.no_choices", "req_id", rid, "elapsed_ms", time.Since(start).Milliseconds())
		return "", &llm.InvocationError{Provider: providerName, Err: errors.New("no choices in response")}
	}
	choice := resp.Choices[0]
	if refusal := strings.TrimSpace(choice.Message.Refusal); refusal != "" {
		c.log.Warn("llm.invoke.refused", "req_id", rid, "refusal", refusal)
		return "", &llm.InvocationError{Provider: providerName, Err: fmt.Errorf("model refused: %s", refusal)}
	}
	if choice.FinishReason == "length" {
		c.log.Warn("llm.invoke.truncated", "req_id", rid, "completion_tokens", resp.Usage.CompletionTokens)
	}

	c.log.Info("llm.invoke.ok",
		"req_id", rid,
		"provider", providerName,
		"finish_reason", choice.FinishReason,
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
		"content_len", len(choice.Message.Content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return choice.Message.Content, nil
}

func mapOpenAIError(err error) error {
	var apiErr *sdk.Error
	if errors.As(err, &apiErr) {
		msg := apiErr.Message
		if msg == "" {
			msg = "request failed"
		}
		return &llm.InvocationError{Provider: providerName, StatusCode: apiErr.StatusCode, Err: errors.New(msg)}
	}
	return &llm.InvocationError{Provider: providerName, Err: err}
}

var _ llm.Invoker = (*Client)(nil)
