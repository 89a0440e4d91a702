package store

import (
	"context"
	"reflect"
	"testing"

	"github.com/roach88/vmesh/internal/engine"
)

func TestReadSession_OrderedBySeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	// written out of order
	for _, seq := range []int64{3, 1, 2} {
		if err := s.RecordRun(ctx, createTestRun("session-1", seq, "mesh_stats")); err != nil {
			t.Fatalf("RecordRun(%d) failed: %v", seq, err)
		}
	}
	if err := s.RecordRun(ctx, createTestRun("session-2", 1, "mesh_stats")); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}

	got, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	var seqs []int64
	for _, r := range got {
		seqs = append(seqs, r.Seq)
	}
	if !reflect.DeepEqual(seqs, []int64{1, 2, 3}) {
		t.Errorf("seqs = %v, want [1 2 3]", seqs)
	}
}

func TestReadSession_Unknown(t *testing.T) {
	s := createTestStore(t)

	got, err := s.ReadSession(context.Background(), "nope")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("ReadSession() = %v, want empty non-nil slice", got)
	}
}

func TestReadSession_FailedRun(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	rec := createTestRun("session-1", 1, "line_mesher")
	rec.Status = engine.StatusFailed
	rec.ErrorCode = engine.CodeMissingRequiredInput
	rec.ErrorMessage = "MISSING_REQUIRED_INPUT: required input not set (algorithm=line_mesher, slot=end, type=double)"

	if err := s.RecordRun(ctx, rec); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	got, err := s.ReadSession(ctx, "session-1")
	if err != nil {
		t.Fatalf("ReadSession() failed: %v", err)
	}
	if got[0].ErrorCode != engine.CodeMissingRequiredInput {
		t.Errorf("ErrorCode = %v, want %v", got[0].ErrorCode, engine.CodeMissingRequiredInput)
	}
	if got[0].ErrorMessage != rec.ErrorMessage {
		t.Errorf("ErrorMessage = %q", got[0].ErrorMessage)
	}
}

func TestSessions_FirstSeenOrder(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	writes := []struct {
		session string
		seq     int64
	}{
		{"zeta", 1},
		{"alpha", 1},
		{"zeta", 2},
		{"mid", 1},
	}
	for _, w := range writes {
		if err := s.RecordRun(ctx, createTestRun(w.session, w.seq, "mesh_stats")); err != nil {
			t.Fatalf("RecordRun() failed: %v", err)
		}
	}

	got, err := s.Sessions(ctx)
	if err != nil {
		t.Fatalf("Sessions() failed: %v", err)
	}
	want := []string{"zeta", "alpha", "mid"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sessions() = %v, want %v", got, want)
	}
}

func TestSummary(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	failed := createTestRun("s", 3, "line_mesher")
	failed.Status = engine.StatusFailed
	for _, rec := range []engine.RunRecord{
		createTestRun("s", 1, "mesh_writer"),
		createTestRun("s", 2, "line_mesher"),
		failed,
	} {
		if err := s.RecordRun(ctx, rec); err != nil {
			t.Fatalf("RecordRun() failed: %v", err)
		}
	}

	got, err := s.Summary(ctx)
	if err != nil {
		t.Fatalf("Summary() failed: %v", err)
	}
	want := []AlgorithmSummary{
		{Algorithm: "line_mesher", Succeeded: 1, Failed: 1},
		{Algorithm: "mesh_writer", Succeeded: 1, Failed: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Summary() = %+v, want %+v", got, want)
	}
}
