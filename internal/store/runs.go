package store

import (
	"database/sql"
	"fmt"
	"time"
)

const runColumns = `id, run_id, work_seconds, rest_seconds, total_rounds, warmup_seconds, rounds_completed, status, started_at, ended_at`

func (s *Store) StartRun(runID string, workSeconds, restSeconds, totalRounds, warmupSeconds int) (*Run, error) {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(
		`INSERT INTO interval_runs (run_id, work_seconds, rest_seconds, total_rounds, warmup_seconds, status, started_at)
		 VALUES (?, ?, ?, ?, ?, 'running', ?)`,
		runID, workSeconds, restSeconds, totalRounds, warmupSeconds, now,
	)
	if err != nil {
		return nil, fmt.Errorf("start run: %w", err)
	}
	id, _ := res.LastInsertId()
	return s.GetRun(id)
}

func (s *Store) GetRun(id int64) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM interval_runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %d: %w", id, err)
	}
	return r, nil
}

func (s *Store) GetRunByRunID(runID string) (*Run, error) {
	row := s.db.QueryRow(`SELECT `+runColumns+` FROM interval_runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		return nil, fmt.Errorf("get run %q: %w", runID, err)
	}
	return r, nil
}

// IncrementRun records one finished work round of a running run.
func (s *Store) IncrementRun(runID string) error {
	_, err := s.db.Exec(
		`UPDATE interval_runs SET rounds_completed = MIN(rounds_completed + 1, total_rounds)
		 WHERE run_id = ? AND status = 'running'`, runID,
	)
	if err != nil {
		return fmt.Errorf("increment run: %w", err)
	}
	return nil
}

func (s *Store) CompleteRun(runID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE interval_runs SET status = 'completed', ended_at = ?, rounds_completed = total_rounds
		 WHERE run_id = ? AND status = 'running'`,
		now, runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	return nil
}

func (s *Store) CancelRun(runID string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.Exec(
		`UPDATE interval_runs SET status = 'cancelled', ended_at = ?
		 WHERE run_id = ? AND status = 'running'`,
		now, runID,
	)
	if err != nil {
		return fmt.Errorf("cancel run: %w", err)
	}
	return nil
}

func (s *Store) ListRuns(f RunFilter) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM interval_runs WHERE 1=1`
	var args []any

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.From != nil {
		query += ` AND started_at >= ?`
		args = append(args, f.From.UTC().Format(time.RFC3339))
	}
	if f.To != nil {
		query += ` AND started_at < ?`
		args = append(args, f.To.UTC().Format(time.RFC3339))
	}
	query += ` ORDER BY started_at DESC, id DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(` LIMIT %d`, f.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, rows.Err()
}

// GetRunStats counts completed runs and the work seconds of all runs started in [from, to).
func (s *Store) GetRunStats(from, to time.Time) (completed int, totalWork int64, err error) {
	err = s.db.QueryRow(`
		SELECT COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(work_seconds * rounds_completed), 0)
		FROM interval_runs
		WHERE started_at >= ? AND started_at < ?`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	).Scan(&completed, &totalWork)
	return
}

func (s *Store) GetDailyWork(from, to time.Time) ([]DailyWork, error) {
	rows, err := s.db.Query(`
		SELECT date(started_at) AS day, COUNT(*),
		       COALESCE(SUM(CASE WHEN status = 'completed' THEN 1 ELSE 0 END), 0),
		       COALESCE(SUM(work_seconds * rounds_completed), 0)
		FROM interval_runs
		WHERE started_at >= ? AND started_at < ?
		GROUP BY day
		ORDER BY day`,
		from.UTC().Format(time.RFC3339), to.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return nil, fmt.Errorf("daily work: %w", err)
	}
	defer rows.Close()

	var days []DailyWork
	for rows.Next() {
		var d DailyWork
		if err := rows.Scan(&d.Date, &d.Runs, &d.Completed, &d.WorkSeconds); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	r := &Run{}
	var startedAt string
	var endedAt sql.NullString
	err := row.Scan(&r.ID, &r.RunID, &r.WorkSeconds, &r.RestSeconds, &r.TotalRounds,
		&r.WarmupSeconds, &r.RoundsCompleted, &r.Status, &startedAt, &endedAt)
	if err != nil {
		return nil, err
	}
	r.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
	if endedAt.Valid {
		t, _ := time.Parse(time.RFC3339, endedAt.String)
		r.EndedAt = &t
	}
	return r, nil
}
