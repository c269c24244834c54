package pipeline

import (
	"fmt"

	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

// ExtractionFailed is returned when the attempt budget ran out and no result can
// be handed back: either the final attempt did not parse, or the request was strict.
type ExtractionFailed struct {
	Attempts int
	// Last is the most recent parsed result, nil when no attempt parsed.
	Last *entity.ExtractionResult
	// Cause is the recovery failure of the final attempt, if any.
	Cause error
}

func (e *ExtractionFailed) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("extraction failed after %d attempts: %v", e.Attempts, e.Cause)
	}
	if e.Last != nil {
		return fmt.Sprintf("extraction failed after %d attempts: %d validation errors remain (confidence %.2f)",
			e.Attempts, len(e.Last.Errors), e.Last.Confidence)
	}
	return fmt.Sprintf("extraction failed after %d attempts", e.Attempts)
}

func (e *ExtractionFailed) Unwrap() error {
	return e.Cause
}

func (e *ExtractionFailed) Is(target error) bool {
	return target == common.ErrExtractionFailed
}
