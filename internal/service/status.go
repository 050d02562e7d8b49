package service

// StageStatus is the explicit outcome of a pipeline stage. Stages that can
// recover locally report StageDegraded instead of an error so callers can see
// the degrade-vs-fail boundary without exception bookkeeping.
type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageDegraded  StageStatus = "degraded"
	StageFailed    StageStatus = "failed"
)
