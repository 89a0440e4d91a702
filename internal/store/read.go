package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/roach88/vmesh/internal/engine"
)

// ReadSession returns the runs of one session ordered by seq.
// An unknown session yields an empty slice.
func (s *Store) ReadSession(ctx context.Context, session string) ([]engine.RunRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session, seq, instance_id, name, algorithm, status, error_code, error_message, inputs, outputs, duration_ns
		FROM runs
		WHERE session = ?
		ORDER BY seq ASC
	`, session)
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	defer rows.Close()

	records := []engine.RunRecord{}
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("read session: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	return records, nil
}

// Sessions returns every session ID in the order it was first recorded.
func (s *Store) Sessions(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session
		FROM runs
		GROUP BY session
		ORDER BY MIN(id) ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	sessions := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("list sessions: %w", err)
		}
		sessions = append(sessions, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// AlgorithmSummary counts the runs of one algorithm by status.
type AlgorithmSummary struct {
	Algorithm string
	Succeeded int
	Failed    int
}

// Summary aggregates the whole journal per algorithm, sorted by name.
func (s *Store) Summary(ctx context.Context) ([]AlgorithmSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT algorithm,
		       SUM(CASE WHEN status = 'succeeded' THEN 1 ELSE 0 END),
		       SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END)
		FROM runs
		GROUP BY algorithm
		ORDER BY algorithm COLLATE BINARY ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	defer rows.Close()

	out := []AlgorithmSummary{}
	for rows.Next() {
		var a AlgorithmSummary
		if err := rows.Scan(&a.Algorithm, &a.Succeeded, &a.Failed); err != nil {
			return nil, fmt.Errorf("summary: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("summary: %w", err)
	}
	return out, nil
}

func scanRun(rows *sql.Rows) (engine.RunRecord, error) {
	var (
		rec              engine.RunRecord
		code             int
		inputs, outputs  string
		durationNanosecs int64
	)
	if err := rows.Scan(
		&rec.Session,
		&rec.Seq,
		&rec.InstanceID,
		&rec.Name,
		&rec.Algorithm,
		&rec.Status,
		&code,
		&rec.ErrorMessage,
		&inputs,
		&outputs,
		&durationNanosecs,
	); err != nil {
		return rec, err
	}

	var err error
	if rec.Inputs, err = unmarshalSlots(inputs); err != nil {
		return rec, err
	}
	if rec.Outputs, err = unmarshalSlots(outputs); err != nil {
		return rec, err
	}
	rec.ErrorCode = engine.Code(code)
	rec.Duration = time.Duration(durationNanosecs)
	return rec, nil
}
