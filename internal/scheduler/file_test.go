package scheduler

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	content := `schedules:
  - name: morning-brief
    query: "top AI research news from the last 24 hours"
    mode: balanced
    cron: "0 8 * * *"
  - name: watchdog
    query: "status of the searxng project"
    interval_sec: 3600
    max_runs: 10
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	entries, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "morning-brief" || entries[0].CronSpec != "0 8 * * *" {
		t.Fatalf("unexpected first entry: %+v", entries[0])
	}
	if entries[1].IntervalSec != 3600 || entries[1].MaxRuns != 10 {
		t.Fatalf("unexpected second entry: %+v", entries[1])
	}
}

func TestLoadFile_Missing(t *testing.T) {
	entries, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil entries, got %v", entries)
	}
}

func TestLoadFile_InvalidEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	content := `schedules:
  - name: no-trigger
    query: "something"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFile(path); err == nil {
		t.Fatal("expected validation error for entry without trigger")
	}
}

func TestSaveFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.yaml")
	entries := []Entry{
		{Name: "nightly", Query: "new CVEs affecting Go", CronSpec: "0 2 * * *", Mode: "quality"},
	}

	if err := SaveFile(path, entries); err != nil {
		t.Fatalf("SaveFile: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if len(loaded) != 1 || loaded[0].Name != "nightly" || loaded[0].Mode != "quality" {
		t.Fatalf("round trip mismatch: %+v", loaded)
	}
}
