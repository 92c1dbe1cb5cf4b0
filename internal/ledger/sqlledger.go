package ledger

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

// nullStr converts a sql.NullString to a plain string (empty if null).
func nullStr(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func parseTime(ns sql.NullString) (time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return time.Time{}, nil
	}
	return time.Parse(timeLayout, ns.String)
}

// SqlLedger implements Ledger with SQLite.
type SqlLedger struct {
	db *sql.DB
}

// Open opens or creates a SQLite DB at path and runs migrations.
// Creates the parent directory (e.g. .pestcal) if it does not exist.
func Open(path string) (*SqlLedger, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create ledger dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	l := &SqlLedger{db: db}
	if err := l.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return l, nil
}

func (l *SqlLedger) migrate() error {
	var tableCount int
	err := l.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableCount)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableCount == 0 {
		if _, err := l.db.Exec(schema); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := l.db.Exec("INSERT INTO schema_version(version) VALUES(?)", schemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := l.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != schemaVersion {
		return fmt.Errorf("unknown schema version %d", v)
	}
	return nil
}

func (l *SqlLedger) Close() error { return l.db.Close() }

func (l *SqlLedger) BeginBatch(calPath string, at time.Time) (string, error) {
	id := uuid.NewString()
	_, err := l.db.Exec(
		"INSERT INTO batches(id, cal_path, started_at, status) VALUES(?, ?, ?, ?)",
		id, calPath, formatTime(at), StatusRunning,
	)
	if err != nil {
		return "", fmt.Errorf("insert batch: %w", err)
	}
	return id, nil
}

func (l *SqlLedger) FinishBatch(id string, at time.Time, runErr error) error {
	status, msg := finishStatus(runErr)
	res, err := l.db.Exec(
		"UPDATE batches SET finished_at = ?, status = ?, error = ? WHERE id = ?",
		formatTime(at), status, msg, id,
	)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish batch %s: %w", id, ErrUnknownBatch)
	}
	return nil
}

func (l *SqlLedger) RecordTransition(t Transition) error {
	var exists int
	err := l.db.QueryRow("SELECT COUNT(*) FROM batches WHERE id = ?", t.BatchID).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check batch: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("record transition for batch %s: %w", t.BatchID, ErrUnknownBatch)
	}
	_, err = l.db.Exec(
		`INSERT INTO transitions(batch_id, treatment, cultivar, from_state, to_state, at, detail)
		 VALUES(?, ?, ?, ?, ?, ?, ?)`,
		t.BatchID, t.Treatment, t.Cultivar, t.From, t.To, formatTime(t.At), t.Detail,
	)
	if err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}
	return nil
}

func (l *SqlLedger) ListBatches() ([]Batch, error) {
	rows, err := l.db.Query(
		"SELECT id, cal_path, started_at, finished_at, status, error FROM batches ORDER BY started_at DESC, rowid DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()

	var out []Batch
	for rows.Next() {
		var b Batch
		var started, finished, errMsg sql.NullString
		if err := rows.Scan(&b.ID, &b.CalPath, &started, &finished, &b.Status, &errMsg); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		if b.StartedAt, err = parseTime(started); err != nil {
			return nil, fmt.Errorf("batch %s started_at: %w", b.ID, err)
		}
		if b.FinishedAt, err = parseTime(finished); err != nil {
			return nil, fmt.Errorf("batch %s finished_at: %w", b.ID, err)
		}
		b.Error = nullStr(errMsg)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (l *SqlLedger) ListTransitions(batchID string) ([]Transition, error) {
	rows, err := l.db.Query(
		`SELECT id, batch_id, treatment, cultivar, from_state, to_state, at, detail
		 FROM transitions WHERE batch_id = ? ORDER BY id`,
		batchID,
	)
	if err != nil {
		return nil, fmt.Errorf("list transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var t Transition
		var at, detail sql.NullString
		if err := rows.Scan(&t.ID, &t.BatchID, &t.Treatment, &t.Cultivar, &t.From, &t.To, &at, &detail); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		if t.At, err = parseTime(at); err != nil {
			return nil, fmt.Errorf("transition %d at: %w", t.ID, err)
		}
		t.Detail = nullStr(detail)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		var exists int
		if err := l.db.QueryRow("SELECT COUNT(*) FROM batches WHERE id = ?", batchID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check batch: %w", err)
		}
		if exists == 0 {
			return nil, fmt.Errorf("list transitions for batch %s: %w", batchID, ErrUnknownBatch)
		}
	}
	return out, nil
}

var _ Ledger = (*SqlLedger)(nil)
