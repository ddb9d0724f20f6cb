// Package sessionstore persists per-session coaching data to SQLite:
// the ordered mistake log, the final session summary and the adopted
// best-lap metrics. This is enough to reconstruct mistake tracker
// state on reload.
package sessionstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/rechandler/gt3-ai-coaching-sub001/pkg/model"
)

type Store struct {
	db *sql.DB
}

func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening session db: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return &Store{db: db}, nil
}

const schema = `
	CREATE TABLE IF NOT EXISTS mistakes (
		session_id  TEXT NOT NULL,
		corner_id   TEXT NOT NULL,
		corner_name TEXT NOT NULL,
		pattern     TEXT NOT NULL,
		ts          TIMESTAMP NOT NULL,
		time_loss   REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_mistakes_session ON mistakes(session_id);
	CREATE TABLE IF NOT EXISTS summaries (
		session_id TEXT PRIMARY KEY,
		data       TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS best_laps (
		session_id TEXT PRIMARY KEY,
		lap        INTEGER NOT NULL,
		data       TEXT NOT NULL
	);
`

func (s *Store) Close() error { return s.db.Close() }

// AppendRecord adds one mistake to the append-only session log.
func (s *Store) AppendRecord(sessionID string, rec model.MistakeRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO mistakes (session_id, corner_id, corner_name, pattern, ts, time_loss)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		sessionID, rec.CornerID, rec.CornerName, string(rec.Pattern),
		rec.Timestamp.UTC().Format(time.RFC3339Nano), rec.TimeLoss)
	return err
}

// LoadRecords returns the session's mistake log in insertion order.
func (s *Store) LoadRecords(sessionID string) ([]model.MistakeRecord, error) {
	rows, err := s.db.Query(
		`SELECT corner_id, corner_name, pattern, ts, time_loss
		 FROM mistakes WHERE session_id = ? ORDER BY rowid`,
		sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []model.MistakeRecord
	for rows.Next() {
		var rec model.MistakeRecord
		var pattern, ts string
		if err := rows.Scan(&rec.CornerID, &rec.CornerName, &pattern, &ts, &rec.TimeLoss); err != nil {
			return nil, err
		}
		rec.Pattern = model.Pattern(pattern)
		if parsed, err := time.Parse(time.RFC3339Nano, ts); err == nil {
			rec.Timestamp = parsed
		}
		ret = append(ret, rec)
	}
	return ret, rows.Err()
}

// SaveSummary stores the final session summary, replacing any previous one.
func (s *Store) SaveSummary(summary model.SessionSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO summaries (session_id, data) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET data = excluded.data`,
		summary.SessionID, string(data))
	return err
}

// LoadSummary returns the stored summary, or false when none exists.
func (s *Store) LoadSummary(sessionID string) (model.SessionSummary, bool, error) {
	var data string
	err := s.db.QueryRow(
		`SELECT data FROM summaries WHERE session_id = ?`, sessionID).Scan(&data)
	if err == sql.ErrNoRows {
		return model.SessionSummary{}, false, nil
	}
	if err != nil {
		return model.SessionSummary{}, false, err
	}
	var summary model.SessionSummary
	if err := json.Unmarshal([]byte(data), &summary); err != nil {
		return model.SessionSummary{}, false, err
	}
	return summary, true, nil
}

// SaveBestLap stores the adopted best lap's segment metrics.
func (s *Store) SaveBestLap(sessionID string, lap int, metrics map[string]model.SegmentMetrics) error {
	data, err := json.Marshal(metrics)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`INSERT INTO best_laps (session_id, lap, data) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET lap = excluded.lap, data = excluded.data`,
		sessionID, lap, string(data))
	return err
}

// LoadBestLap returns the stored best lap, or false when none exists.
func (s *Store) LoadBestLap(sessionID string) (int, map[string]model.SegmentMetrics, bool, error) {
	var lap int
	var data string
	err := s.db.QueryRow(
		`SELECT lap, data FROM best_laps WHERE session_id = ?`, sessionID).Scan(&lap, &data)
	if err == sql.ErrNoRows {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, err
	}
	var metrics map[string]model.SegmentMetrics
	if err := json.Unmarshal([]byte(data), &metrics); err != nil {
		return 0, nil, false, err
	}
	return lap, metrics, true, nil
}
