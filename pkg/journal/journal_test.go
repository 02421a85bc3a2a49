package journal

import (
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(filepath.Join(t.TempDir(), "events", "journal.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestRecordAndRecent(t *testing.T) {
	j := openTemp(t)
	j.Record("config_served", "site=1")
	j.Record("terminate_sent", "client=7 code=TERMINATED_BLOCKED")

	events, err := j.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	// newest first; equal timestamps break ties by insertion order
	if events[0].Kind != "terminate_sent" || events[1].Kind != "config_served" {
		t.Errorf("order = %q, %q", events[0].Kind, events[1].Kind)
	}
	if events[1].Detail != "site=1" {
		t.Errorf("detail = %q", events[1].Detail)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	j := openTemp(t)
	for i := 0; i < 5; i++ {
		j.Record("config_served", "x")
	}
	events, err := j.Recent(3)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 3 {
		t.Errorf("got %d events, want 3", len(events))
	}
}

func TestPruneDropsOldEvents(t *testing.T) {
	j := openTemp(t)
	j.Record("config_served", "recent")
	j.Prune(time.Hour)
	events, err := j.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("retained window pruned live rows, got %d", len(events))
	}

	// negative retention puts the cutoff in the future, expiring everything
	j.Prune(-time.Hour)
	events, err = j.Recent(10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expired rows survived prune: %+v", events)
	}
}

func TestNilJournalIsSafe(t *testing.T) {
	var j *Journal
	j.Record("config_served", "x")
	j.Prune(time.Hour)
	if events, err := j.Recent(10); err != nil || events != nil {
		t.Errorf("nil journal: events=%v err=%v", events, err)
	}
	if err := j.Close(); err != nil {
		t.Errorf("nil close: %v", err)
	}
}
