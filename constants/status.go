package constants

// RunStatus is the canonical status for rows in extraction_runs.
type RunStatus string

// Stable values (store these exact strings in DB).
const (
	RunStatusRunning     RunStatus = "RUNNING"      // in progress
	RunStatusSucceeded   RunStatus = "SUCCEEDED"    // clean result on some attempt
	RunStatusNeedsReview RunStatus = "NEEDS_REVIEW" // result returned with review flag
	RunStatusFailed      RunStatus = "FAILED"       // terminal failure
)

// POStatus is the fixed status carried by every extracted purchase order header.
const POStatus = "PENDING"
