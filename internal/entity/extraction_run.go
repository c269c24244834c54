package entity

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ExtractionRun is the audit record of one file going through the pipeline.
type ExtractionRun struct {
	ID           uuid.UUID       `json:"id"`
	Filename     string          `json:"filename"`
	Format       string          `json:"format"`
	ClientName   *string         `json:"client_name,omitempty"`
	Status       string          `json:"status"`
	Attempts     int             `json:"attempts"`
	Confidence   *float64        `json:"confidence,omitempty"`
	NeedsReview  bool            `json:"needs_review"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	ResultJSON   json.RawMessage `json:"result_json,omitempty"`
	ModelName    *string         `json:"model_name,omitempty"`
	StartedAt    time.Time       `json:"started_at"`
	FinishedAt   *time.Time      `json:"finished_at,omitempty"`
}
