package service

import "fmt"

// Stage names the phase an enrichment failed in, so callers can tell what
// state was left behind.
type Stage string

const (
	// StageFetch failed before anything was written.
	StageFetch Stage = "fetch"
	// StageSnapshot failed while recording; nothing was written.
	StageSnapshot Stage = "snapshot"
	// StageNormalize failed after the snapshot was recorded.
	StageNormalize Stage = "normalize"
	// StageDiff failed after the snapshot and profile were stored; no entity
	// data was touched.
	StageDiff Stage = "diff"
	// StageApply failed while committing proposals; the batch rolled back,
	// the snapshot and profile remain.
	StageApply Stage = "apply"
	// StageAudit failed writing the audit trail; everything the enrichment
	// wrote up to that point stands.
	StageAudit Stage = "audit"
)

// StageError wraps an enrichment failure with the stage it happened in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("enrich %s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

func stageErr(stage Stage, err error) error {
	if err == nil {
		return nil
	}
	return &StageError{Stage: stage, Err: err}
}
