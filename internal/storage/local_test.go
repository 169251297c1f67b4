package storage

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rainsave/rainsave/internal/logging"
	"github.com/rainsave/rainsave/internal/types"
)

func newTestStore(t *testing.T) (*LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	logger := logging.New(types.LogLevelDebug, false)
	logger.SetOutput(&bytes.Buffer{})
	return NewLocalStore(dir, logger), dir
}

// writeSnapshotFile creates a snapshot with a fixed modification time so the
// ordering tests are deterministic.
func writeSnapshotFile(t *testing.T, dir, name string, age time.Duration) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("{}\n"), 0600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	mtime := time.Now().Add(-age)
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("chtimes %s: %v", name, err)
	}
	return path
}

func TestListNewestFirst(t *testing.T) {
	store, dir := newTestStore(t)

	writeSnapshotFile(t, dir, "old.json", 3*time.Hour)
	writeSnapshotFile(t, dir, "new.json", 1*time.Hour)
	writeSnapshotFile(t, dir, "mid.json.age", 2*time.Hour)

	// Non-snapshot files are ignored
	if err := os.WriteFile(filepath.Join(dir, "old.json.sha256"), []byte("abc  old.json\n"), 0600); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0600); err != nil {
		t.Fatalf("write stray file: %v", err)
	}

	snapshots, err := store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(snapshots) != 3 {
		t.Fatalf("List = %d snapshots, want 3", len(snapshots))
	}

	if filepath.Base(snapshots[0].Path) != "new.json" {
		t.Errorf("first = %s, want new.json", snapshots[0].Path)
	}
	if filepath.Base(snapshots[2].Path) != "old.json" {
		t.Errorf("last = %s, want old.json", snapshots[2].Path)
	}
	if !snapshots[1].Encrypted {
		t.Error("mid.json.age should be flagged encrypted")
	}
	if snapshots[2].Checksum != "abc" {
		t.Errorf("checksum = %q, want abc from sidecar", snapshots[2].Checksum)
	}
}

func TestListMissingDirectory(t *testing.T) {
	logger := logging.New(types.LogLevelDebug, false)
	logger.SetOutput(&bytes.Buffer{})
	store := NewLocalStore(filepath.Join(t.TempDir(), "absent"), logger)

	snapshots, err := store.List()
	if err != nil {
		t.Fatalf("missing directory should not error: %v", err)
	}
	if len(snapshots) != 0 {
		t.Fatalf("expected no snapshots, got %d", len(snapshots))
	}
}

func TestApplyRetention(t *testing.T) {
	store, dir := newTestStore(t)

	oldest := writeSnapshotFile(t, dir, "a.json", 4*time.Hour)
	writeSnapshotFile(t, dir, "b.json", 3*time.Hour)
	writeSnapshotFile(t, dir, "c.json", 2*time.Hour)
	if err := os.WriteFile(oldest+".sha256", []byte("abc  a.json\n"), 0600); err != nil {
		t.Fatalf("write sidecar: %v", err)
	}

	if err := store.ApplyRetention(2); err != nil {
		t.Fatalf("ApplyRetention error: %v", err)
	}

	snapshots, err := store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(snapshots) != 2 {
		t.Fatalf("retained = %d, want 2", len(snapshots))
	}
	for _, s := range snapshots {
		if filepath.Base(s.Path) == "a.json" {
			t.Error("oldest snapshot should have been pruned")
		}
	}
	if _, err := os.Stat(oldest + ".sha256"); !os.IsNotExist(err) {
		t.Error("sidecar of the pruned snapshot should be gone")
	}
}

func TestApplyRetentionNoop(t *testing.T) {
	store, dir := newTestStore(t)
	writeSnapshotFile(t, dir, "a.json", time.Hour)

	if err := store.ApplyRetention(0); err != nil {
		t.Fatalf("ApplyRetention(0) should be a no-op: %v", err)
	}
	if err := store.ApplyRetention(5); err != nil {
		t.Fatalf("ApplyRetention above count should be a no-op: %v", err)
	}

	snapshots, _ := store.List()
	if len(snapshots) != 1 {
		t.Fatalf("snapshot should survive, got %d", len(snapshots))
	}
}
