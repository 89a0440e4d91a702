package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/vmesh/internal/engine"
)

// createTestStore creates a new store in a temp dir for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestRun creates a succeeded run record with minimal fields.
func createTestRun(session string, seq int64, algorithm string) engine.RunRecord {
	return engine.RunRecord{
		Seq:        seq,
		Session:    session,
		InstanceID: "inst-0001",
		Algorithm:  algorithm,
		Status:     engine.StatusSucceeded,
		Inputs:     map[string]string{},
		Outputs:    map[string]string{},
		Duration:   time.Millisecond,
	}
}
