package tslog

import (
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteLog is a Source backed by a sqlite telemetry log. Read methods
// follow the Source contract and degrade to "no data" on storage errors;
// the write side (Append) reports errors to the generator.
type SQLiteLog struct {
	db *sql.DB
}

// OpenSQLiteLog opens (creating if needed) a telemetry log at path.
func OpenSQLiteLog(path string) (*SQLiteLog, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open telemetry log: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS samples (
			key      TEXT NOT NULL,
			ts       DOUBLE NOT NULL,
			vals     TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_samples_key_ts ON samples(key, ts);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create samples schema: %w", err)
	}

	return &SQLiteLog{db: db}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLog) Close() error {
	return l.db.Close()
}

// Append records one sample for the key.
func (l *SQLiteLog) Append(key string, s Sample) error {
	vals, err := json.Marshal(s.Values)
	if err != nil {
		return fmt.Errorf("encode sample values: %w", err)
	}
	_, err = l.db.Exec(`INSERT INTO samples (key, ts, vals) VALUES (?, ?, ?)`,
		key, s.Timestamp, string(vals))
	if err != nil {
		return fmt.Errorf("insert sample: %w", err)
	}
	return nil
}

// Keys returns the distinct recorded keys in sorted order.
func (l *SQLiteLog) Keys() ([]string, error) {
	rows, err := l.db.Query(`SELECT DISTINCT key FROM samples ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("query keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan key: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}

// SampleAtOrBefore returns the latest sample with ts <= t.
func (l *SQLiteLog) SampleAtOrBefore(key string, t float64) (Sample, bool) {
	row := l.db.QueryRow(
		`SELECT ts, vals FROM samples WHERE key = ? AND ts <= ? ORDER BY ts DESC LIMIT 1`,
		key, t)
	return scanSample(row)
}

// SampleRange returns ordered samples covering [t0, t1] plus the
// boundary-adjacent samples just outside the window when present.
func (l *SQLiteLog) SampleRange(key string, t0, t1 float64) []Sample {
	var out []Sample

	if s, ok := l.SampleAtOrBefore(key, t0); ok {
		out = append(out, s)
	}

	rows, err := l.db.Query(
		`SELECT ts, vals FROM samples WHERE key = ? AND ts > ? AND ts < ? ORDER BY ts ASC`,
		key, t0, t1)
	if err != nil {
		return out
	}
	out = appendScanned(out, rows)

	row := l.db.QueryRow(
		`SELECT ts, vals FROM samples WHERE key = ? AND ts >= ? ORDER BY ts ASC LIMIT 1`,
		key, t1)
	if s, ok := scanSample(row); ok {
		out = append(out, s)
	}
	return out
}

// History returns the full series for the key in timestamp order.
func (l *SQLiteLog) History(key string) []Sample {
	rows, err := l.db.Query(
		`SELECT ts, vals FROM samples WHERE key = ? ORDER BY ts ASC`, key)
	if err != nil {
		return nil
	}
	return appendScanned(nil, rows)
}

// Latest returns the newest sample for the key.
func (l *SQLiteLog) Latest(key string) (Sample, bool) {
	row := l.db.QueryRow(
		`SELECT ts, vals FROM samples WHERE key = ? ORDER BY ts DESC LIMIT 1`, key)
	return scanSample(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (Sample, bool) {
	var ts float64
	var vals string
	if err := row.Scan(&ts, &vals); err != nil {
		return Sample{}, false
	}
	var values []float64
	if err := json.Unmarshal([]byte(vals), &values); err != nil {
		return Sample{}, false
	}
	return Sample{Timestamp: ts, Values: values}, true
}

func appendScanned(out []Sample, rows *sql.Rows) []Sample {
	defer rows.Close()
	for rows.Next() {
		if s, ok := scanSample(rows); ok {
			out = append(out, s)
		}
	}
	return out
}
