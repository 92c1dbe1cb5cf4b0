package format

import (
	"fmt"

	"pestcal/internal/display"
	"pestcal/internal/ledger"
	"pestcal/internal/pipeline"
)

// Summary renders one row per treatment run of a batch. Document paths are
// shown relative to calPath.
func Summary(m Mode, calPath string, runs []*pipeline.TreatmentRun) string {
	tb := NewTable(m)
	tb.Header("Treatment", "Cultivar", "State", "Control", "Balanced", "Duration", "Error")
	done := 0
	for _, r := range runs {
		if r.State == pipeline.StateDone {
			done++
		}
		errMsg := ""
		if r.Err != nil {
			errMsg = Truncate(r.Err.Error(), 80)
		}
		tb.Row(r.Treatment, r.Cultivar, string(r.State), RelPath(calPath, r.Control),
			RelPath(calPath, r.Balanced), FmtDuration(r.Duration()), errMsg)
	}
	tb.Footer("", "", fmt.Sprintf("%d/%d done", done, len(runs)), "", "", "", "")
	tb.Columns(ColumnConfig{Number: 7, MaxWidth: 80})
	return tb.String()
}

// Batches renders ledger batches, newest first as listed.
func Batches(m Mode, batches []ledger.Batch) string {
	tb := NewTable(m)
	tb.Header("Batch", "Calibration dir", "Started", "Finished", "Status", "Error")
	for _, b := range batches {
		tb.Row(b.ID, b.CalPath, FmtTime(b.StartedAt), FmtTime(b.FinishedAt), b.Status, Truncate(b.Error, 80))
	}
	tb.Columns(ColumnConfig{Number: 6, MaxWidth: 80})
	return tb.String()
}

// Transitions renders the state history of one batch.
func Transitions(m Mode, ts []ledger.Transition) string {
	tb := NewTable(m)
	tb.Header("#", "Treatment", "Cultivar", "From", "To", "Step", "At", "Detail")
	for i, t := range ts {
		tb.Row(i+1, t.Treatment, t.Cultivar, t.From, t.To, display.State(t.To), FmtTime(t.At), Truncate(t.Detail, 80))
	}
	tb.Columns(ColumnConfig{Number: 1, Align: AlignRight}, ColumnConfig{Number: 8, MaxWidth: 80})
	return tb.String()
}
