package llm

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/common"
)

// Invoker sends one prompt plus the document text to a model and returns the raw reply.
// Implementations must be safe for concurrent use.
type Invoker interface {
	Invoke(ctx context.Context, prompt, documentText string) (string, error)
}

// InvocationError reports a model call that failed at the transport or provider level.
// It is fatal for the request; callers never retry it.
type InvocationError struct {
	Provider   string
	StatusCode int
	Err        error
}

func (e *InvocationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s invocation failed (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s invocation failed: %v", e.Provider, e.Err)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func (e *InvocationError) Is(target error) bool {
	return target == common.ErrModelInvocation
}

// PromptInput carries the per-document context folded into the base instructions.
type PromptInput struct {
	ClientName    string
	MappingText   string
	ExpectedItems *int
	Format        constants.FileFormat
}
