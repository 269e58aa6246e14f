package store

import (
	"database/sql"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// insertRun is a test helper that inserts a run started startOffset seconds ago.
func insertRun(t *testing.T, s *Store, runID, status string, startOffset, roundsCompleted int) {
	t.Helper()
	start := time.Now().UTC().Add(time.Duration(-startOffset) * time.Second)
	_, err := s.db.Exec(
		`INSERT INTO interval_runs (run_id, work_seconds, rest_seconds, total_rounds, warmup_seconds, rounds_completed, status, started_at)
		 VALUES (?, 30, 15, 12, 10, ?, ?, ?)`,
		runID, roundsCompleted, status, start.Format(time.RFC3339),
	)
	if err != nil {
		t.Fatalf("insert run: %v", err)
	}
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	// Should have run migration v1
	var version int
	s.db.QueryRow("PRAGMA user_version").Scan(&version)
	if version != 1 {
		t.Fatalf("expected user_version 1, got %d", version)
	}
}

func TestNewWithPath(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/sub/bittimer.db"
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartRun("persisted", 30, 15, 12, 10); err != nil {
		t.Fatal(err)
	}
	s.Close()

	// Reopen: should succeed, keep data and not re-migrate
	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	if _, err := s2.GetRunByRunID("persisted"); err != nil {
		t.Fatalf("run lost after reopen: %v", err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if path == "" {
		t.Fatal("empty path")
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	// Running migrate again should be a no-op
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
}

// ============================================================
// Runs
// ============================================================

func TestRunLifecycle(t *testing.T) {
	s := newTestStore(t)

	run, err := s.StartRun("run-1", 30, 5, 3, 10)
	if err != nil {
		t.Fatal(err)
	}
	if run.Status != RunRunning {
		t.Fatalf("expected running status, got %s", run.Status)
	}
	if run.WorkSeconds != 30 || run.RestSeconds != 5 || run.TotalRounds != 3 || run.WarmupSeconds != 10 {
		t.Fatalf("unexpected values: %+v", run)
	}
	if run.RoundsCompleted != 0 {
		t.Fatal("rounds completed should start at 0")
	}
	if run.StartedAt.IsZero() {
		t.Fatal("StartedAt should be set")
	}
	if run.EndedAt != nil {
		t.Fatal("EndedAt should be nil")
	}

	s.IncrementRun("run-1")
	s.IncrementRun("run-1")

	updated, _ := s.GetRunByRunID("run-1")
	if updated.RoundsCompleted != 2 {
		t.Fatalf("expected 2 rounds, got %d", updated.RoundsCompleted)
	}

	s.CompleteRun("run-1")
	completed, _ := s.GetRun(run.ID)
	if completed.Status != RunCompleted || completed.EndedAt == nil {
		t.Fatal("run should be completed with timestamp")
	}
	if completed.RoundsCompleted != completed.TotalRounds {
		t.Fatal("CompleteRun should set rounds_completed = total_rounds")
	}
	if completed.WorkDone() != 90 {
		t.Fatalf("expected 90 work seconds, got %d", completed.WorkDone())
	}
}

func TestStartRunDuplicateID(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.StartRun("dup", 30, 15, 12, 10); err != nil {
		t.Fatal(err)
	}
	if _, err := s.StartRun("dup", 30, 15, 12, 10); err == nil {
		t.Fatal("expected error for duplicate run id")
	}
}

func TestIncrementRunCapsAtTotal(t *testing.T) {
	s := newTestStore(t)
	s.StartRun("cap", 30, 5, 2, 10)
	for i := 0; i < 5; i++ {
		s.IncrementRun("cap")
	}
	run, _ := s.GetRunByRunID("cap")
	if run.RoundsCompleted != 2 {
		t.Fatalf("expected rounds capped at 2, got %d", run.RoundsCompleted)
	}
}

func TestCancelRun(t *testing.T) {
	s := newTestStore(t)
	s.StartRun("c", 30, 15, 12, 10)
	s.IncrementRun("c")
	s.CancelRun("c")

	cancelled, _ := s.GetRunByRunID("c")
	if cancelled.Status != RunCancelled {
		t.Fatalf("expected cancelled, got %s", cancelled.Status)
	}
	if cancelled.EndedAt == nil {
		t.Fatal("cancelled run should have EndedAt timestamp")
	}
	if cancelled.RoundsCompleted != 1 {
		t.Fatalf("cancel should keep partial rounds, got %d", cancelled.RoundsCompleted)
	}
}

func TestFinishedRunIsFrozen(t *testing.T) {
	s := newTestStore(t)
	s.StartRun("f", 30, 15, 12, 10)
	s.CancelRun("f")

	// None of these may touch a run that already ended.
	s.IncrementRun("f")
	s.CompleteRun("f")

	run, _ := s.GetRunByRunID("f")
	if run.Status != RunCancelled || run.RoundsCompleted != 0 {
		t.Fatalf("ended run changed: %+v", run)
	}
}

func TestGetRunNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetRun(999)
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
	_, err = s.GetRunByRunID("missing")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestListRuns(t *testing.T) {
	s := newTestStore(t)
	insertRun(t, s, "old", RunCompleted, 7200, 12)
	insertRun(t, s, "mid", RunCancelled, 3600, 4)
	insertRun(t, s, "new", RunRunning, 60, 1)

	runs, err := s.ListRuns(RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 3 {
		t.Fatalf("expected 3 runs, got %d", len(runs))
	}
	// Newest first
	if runs[0].RunID != "new" || runs[2].RunID != "old" {
		t.Fatalf("unexpected order: %s, %s, %s", runs[0].RunID, runs[1].RunID, runs[2].RunID)
	}
}

func TestListRunsWithStatusFilter(t *testing.T) {
	s := newTestStore(t)
	insertRun(t, s, "a", RunCompleted, 100, 12)
	insertRun(t, s, "b", RunCancelled, 90, 3)
	insertRun(t, s, "c", RunCompleted, 80, 12)

	runs, _ := s.ListRuns(RunFilter{Status: RunCompleted})
	if len(runs) != 2 {
		t.Fatalf("expected 2 completed runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Status != RunCompleted {
			t.Fatalf("unexpected status %s", r.Status)
		}
	}
}

func TestListRunsWithDateFilter(t *testing.T) {
	s := newTestStore(t)
	insertRun(t, s, "yesterday", RunCompleted, 26*3600, 12)
	insertRun(t, s, "recent", RunCompleted, 600, 12)

	from := time.Now().Add(-time.Hour)
	to := time.Now().Add(time.Hour)
	runs, _ := s.ListRuns(RunFilter{From: &from, To: &to})
	if len(runs) != 1 || runs[0].RunID != "recent" {
		t.Fatalf("expected only the recent run, got %+v", runs)
	}
}

func TestListRunsWithLimit(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"r1", "r2", "r3", "r4"} {
		insertRun(t, s, id, RunCompleted, 1000-i*100, 12)
	}
	runs, _ := s.ListRuns(RunFilter{Limit: 2})
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs with limit, got %d", len(runs))
	}
}

func TestListRunsEmpty(t *testing.T) {
	s := newTestStore(t)
	runs, err := s.ListRuns(RunFilter{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Fatalf("expected empty, got %d", len(runs))
	}
}

func TestGetRunStats(t *testing.T) {
	s := newTestStore(t)

	s.StartRun("done", 30, 15, 4, 10)
	s.IncrementRun("done")
	s.CompleteRun("done")

	s.StartRun("partial", 30, 15, 4, 10)
	s.IncrementRun("partial")
	s.CancelRun("partial") // not completed, but its round still counts as work

	now := time.Now().UTC()
	completed, totalWork, err := s.GetRunStats(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if completed != 1 {
		t.Fatalf("expected 1 completed, got %d", completed)
	}
	// 30*4 + 30*1
	if totalWork != 150 {
		t.Fatalf("expected 150 total work seconds, got %d", totalWork)
	}
}

func TestGetRunStatsEmpty(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	completed, totalWork, err := s.GetRunStats(now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if completed != 0 || totalWork != 0 {
		t.Fatal("expected zeros for empty stats")
	}
}

func TestGetDailyWork(t *testing.T) {
	s := newTestStore(t)
	insertRun(t, s, "d1", RunCompleted, 3*24*3600, 12)
	insertRun(t, s, "t1", RunCompleted, 60, 12)
	insertRun(t, s, "t2", RunCancelled, 30, 2)

	now := time.Now().UTC()
	days, err := s.GetDailyWork(now.Add(-7*24*time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatal(err)
	}
	if len(days) < 2 {
		t.Fatalf("expected at least 2 days, got %d", len(days))
	}
	if days[0].Date >= days[1].Date {
		t.Fatalf("days not sorted: %s >= %s", days[0].Date, days[1].Date)
	}
	if days[0].Runs != 1 || days[0].WorkSeconds != 360 {
		t.Fatalf("unexpected first day: %+v", days[0])
	}
}

func TestGetDailyWorkEmpty(t *testing.T) {
	s := newTestStore(t)
	now := time.Now().UTC()
	days, err := s.GetDailyWork(now.Add(-24*time.Hour), now)
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 0 {
		t.Fatalf("expected no days, got %d", len(days))
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsStartEmpty(t *testing.T) {
	s := newTestStore(t)
	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 0 {
		t.Fatalf("expected no seeded settings, got %d", len(all))
	}
}

func TestSetSetting(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting("work_seconds", "45")
	val, _ := s.GetSetting("work_seconds")
	if val != "45" {
		t.Fatalf("expected 45, got %s", val)
	}
}

func TestSetSettingOverwrite(t *testing.T) {
	s := newTestStore(t)

	s.SetSetting("key", "v1")
	s.SetSetting("key", "v2")
	val, _ := s.GetSetting("key")
	if val != "v2" {
		t.Fatalf("expected v2, got %s", val)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting("nonexistent")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows, got %v", err)
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("total_rounds", "8")
	s.SetSetting("rest_seconds", "20")
	s.SetSetting("work_seconds", "40")

	all, err := s.GetAllSettings()
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 settings, got %d", len(all))
	}
	// Should be sorted by key
	for i := 1; i < len(all); i++ {
		if all[i-1].Key >= all[i].Key {
			t.Fatalf("settings not sorted: %s >= %s", all[i-1].Key, all[i].Key)
		}
	}
}

func TestSetSettingsBatch(t *testing.T) {
	s := newTestStore(t)
	s.SetSetting("work_seconds", "30")

	err := s.SetSettings(map[string]string{
		"work_seconds": "45",
		"rest_seconds": "10",
		"total_rounds": "6",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]string{"work_seconds": "45", "rest_seconds": "10", "total_rounds": "6"}
	for k, v := range want {
		got, err := s.GetSetting(k)
		if err != nil {
			t.Fatal(err)
		}
		if got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

// ============================================================
// Close
// ============================================================

func TestCloseStore(t *testing.T) {
	s, _ := NewMemory()
	err := s.Close()
	if err != nil {
		t.Fatalf("first close: %v", err)
	}
}
