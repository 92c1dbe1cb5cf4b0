package main

import (
	"context"
	"log/slog"
	"time"

	"pestcal/internal/ledger"
	"pestcal/internal/logging"
	"pestcal/internal/pipeline"
)

// ledgerRecorder stores pipeline transitions under one ledger batch.
// Write failures are logged, never returned.
type ledgerRecorder struct {
	ledger  ledger.Ledger
	batchID string
	now     func() time.Time
	logger  *slog.Logger
}

func newLedgerRecorder(l ledger.Ledger, calPath string, now func() time.Time) (*ledgerRecorder, error) {
	id, err := l.BeginBatch(calPath, now())
	if err != nil {
		return nil, err
	}
	return &ledgerRecorder{ledger: l, batchID: id, now: now, logger: logging.New("ledger")}, nil
}

func (r *ledgerRecorder) RecordTransition(_ context.Context, run *pipeline.TreatmentRun, tr pipeline.Transition) {
	err := r.ledger.RecordTransition(ledger.Transition{
		BatchID:   r.batchID,
		Treatment: run.Treatment,
		Cultivar:  run.Cultivar,
		From:      string(tr.From),
		To:        string(tr.To),
		At:        tr.At,
		Detail:    tr.Detail,
	})
	if err != nil {
		r.logger.Warn("record transition failed", "batch", r.batchID, "treatment", run.Treatment, "error", err)
	}
}

// Finish marks the batch succeeded, or failed with runErr.
func (r *ledgerRecorder) Finish(runErr error) {
	if err := r.ledger.FinishBatch(r.batchID, r.now(), runErr); err != nil {
		r.logger.Warn("finish batch failed", "batch", r.batchID, "error", err)
	}
}

func (r *ledgerRecorder) Close() error { return r.ledger.Close() }
