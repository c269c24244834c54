package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/po-extractor/constants"
	"github.com/joseph-ayodele/po-extractor/internal/common"
	"github.com/joseph-ayodele/po-extractor/internal/entity"
)

// StartRun describes a file entering the pipeline.
type StartRun struct {
	Filename   string
	Format     constants.FileFormat
	ClientName string
	ModelName  string
}

type RunRepository interface {
	Start(ctx context.Context, in StartRun) (*entity.ExtractionRun, error)
	// FinishSuccess records a returned result; the run is SUCCEEDED or NEEDS_REVIEW.
	FinishSuccess(ctx context.Context, id uuid.UUID, res *entity.ExtractionResult) error
	FinishFailure(ctx context.Context, id uuid.UUID, attempts int, message string) error
	Get(ctx context.Context, id uuid.UUID) (*entity.ExtractionRun, error)
	// ListRecent returns up to limit runs, newest first.
	ListRecent(ctx context.Context, limit int) ([]entity.ExtractionRun, error)
}

// ErrRunNotFound is returned by Get for an unknown id.
var ErrRunNotFound = common.NewAppError("NOT_FOUND", "extraction run not found", common.ErrNotFound)

func newRun(in StartRun) *entity.ExtractionRun {
	return &entity.ExtractionRun{
		ID:         uuid.New(),
		Filename:   in.Filename,
		Format:     string(in.Format),
		ClientName: optional(in.ClientName),
		Status:     string(constants.RunStatusRunning),
		ModelName:  optional(in.ModelName),
		StartedAt:  time.Now().UTC(),
	}
}

type outcome struct {
	status     constants.RunStatus
	attempts   int
	confidence float64
	review     bool
	payload    []byte
}

func successOutcome(res *entity.ExtractionResult) (outcome, error) {
	if res == nil {
		return outcome{}, errors.New("nil extraction result")
	}
	payload, err := json.Marshal(res)
	if err != nil {
		return outcome{}, err
	}
	status := constants.RunStatusSucceeded
	if res.NeedsReview {
		status = constants.RunStatusNeedsReview
	}
	return outcome{
		status:     status,
		attempts:   res.Attempts,
		confidence: res.Confidence,
		review:     res.NeedsReview,
		payload:    payload,
	}, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 50
	}
	return limit
}

type noopRunRepo struct{}

// NewNoopRunRepository returns a store that records nothing.
func NewNoopRunRepository() RunRepository {
	return noopRunRepo{}
}

func (noopRunRepo) Start(_ context.Context, in StartRun) (*entity.ExtractionRun, error) {
	return newRun(in), nil
}

func (noopRunRepo) FinishSuccess(context.Context, uuid.UUID, *entity.ExtractionResult) error {
	return nil
}

func (noopRunRepo) FinishFailure(context.Context, uuid.UUID, int, string) error {
	return nil
}

func (noopRunRepo) Get(context.Context, uuid.UUID) (*entity.ExtractionRun, error) {
	return nil, ErrRunNotFound
}

func (noopRunRepo) ListRecent(context.Context, int) ([]entity.ExtractionRun, error) {
	return nil, nil
}
