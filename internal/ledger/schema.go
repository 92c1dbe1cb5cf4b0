package ledger

const schemaVersion = 1

var schema = `
CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL);

CREATE TABLE IF NOT EXISTS batches (
	id          TEXT PRIMARY KEY,
	cal_path    TEXT NOT NULL,
	started_at  TEXT NOT NULL,
	finished_at TEXT,
	status      TEXT NOT NULL DEFAULT 'running',
	error       TEXT
);

CREATE TABLE IF NOT EXISTS transitions (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	batch_id   TEXT NOT NULL REFERENCES batches(id),
	treatment  TEXT NOT NULL,
	cultivar   TEXT NOT NULL,
	from_state TEXT NOT NULL,
	to_state   TEXT NOT NULL,
	at         TEXT NOT NULL,
	detail     TEXT
);

CREATE INDEX IF NOT EXISTS idx_transitions_batch ON transitions(batch_id, id);
`
