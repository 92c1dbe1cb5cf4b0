// Package ledger records calibration batches and every treatment state
// transition so past runs can be listed after the fact. It is auxiliary: the
// pipeline never reads it back to resume.
package ledger

import (
	"errors"
	"time"
)

// DefaultPath is the ledger location relative to the calibration directory.
const DefaultPath = ".pestcal/ledger.db"

// Batch statuses.
const (
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// ErrUnknownBatch is returned for a batch id that was never begun.
var ErrUnknownBatch = errors.New("unknown batch")

// Batch is one invocation of the calibration batch.
type Batch struct {
	ID         string
	CalPath    string
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Status     string
	Error      string
}

// Transition is one treatment state change within a batch.
type Transition struct {
	ID        int64
	BatchID   string
	Treatment string
	Cultivar  string
	From      string
	To        string
	At        time.Time
	Detail    string
}

// Ledger is the persistence facade. Implementations are SQLite or in-memory.
type Ledger interface {
	// BeginBatch stores a running batch and returns its new id.
	BeginBatch(calPath string, at time.Time) (string, error)
	// FinishBatch marks a batch succeeded, or failed with runErr's message.
	FinishBatch(id string, at time.Time, runErr error) error
	RecordTransition(t Transition) error
	// ListBatches returns batches newest first.
	ListBatches() ([]Batch, error)
	// ListTransitions returns a batch's transitions in the order recorded.
	ListTransitions(batchID string) ([]Transition, error)
	Close() error
}

func finishStatus(runErr error) (status, msg string) {
	if runErr != nil {
		return StatusFailed, runErr.Error()
	}
	return StatusSucceeded, ""
}
