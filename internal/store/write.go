package store

import (
	"context"
	"fmt"

	"github.com/roach88/vmesh/internal/engine"
)

var _ engine.Journal = (*Store)(nil)

// RecordRun appends one run. Uses ON CONFLICT(session, seq) DO NOTHING for
// idempotency: writing the same record twice is silently ignored.
func (s *Store) RecordRun(ctx context.Context, rec engine.RunRecord) error {
	inputs, err := marshalSlots(rec.Inputs)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	outputs, err := marshalSlots(rec.Outputs)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs
		(session, seq, instance_id, name, algorithm, status, error_code, error_message, inputs, outputs, duration_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(session, seq) DO NOTHING
	`,
		rec.Session,
		rec.Seq,
		rec.InstanceID,
		rec.Name,
		rec.Algorithm,
		rec.Status,
		int(rec.ErrorCode),
		rec.ErrorMessage,
		inputs,
		outputs,
		int64(rec.Duration),
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}
