package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/bittimer/internal/store"
)

var csvHeader = []string{"ID", "Run", "Status", "Start", "End", "Work (s)", "Rest (s)", "Rounds", "Completed", "Warmup (s)", "Work Done (s)", "Work Done"}

func ToCSV(runs []store.Run, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, r := range runs {
		endStr := ""
		if r.EndedAt != nil {
			endStr = r.EndedAt.Local().Format(time.RFC3339)
		}

		row := []string{
			fmt.Sprintf("%d", r.ID),
			r.RunID,
			r.Status,
			r.StartedAt.Local().Format(time.RFC3339),
			endStr,
			fmt.Sprintf("%d", r.WorkSeconds),
			fmt.Sprintf("%d", r.RestSeconds),
			fmt.Sprintf("%d", r.TotalRounds),
			fmt.Sprintf("%d", r.RoundsCompleted),
			fmt.Sprintf("%d", r.WarmupSeconds),
			fmt.Sprintf("%d", r.WorkDone()),
			formatDuration(r.WorkDone()),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	return w.Error()
}

func formatDuration(secs int64) string {
	h := secs / 3600
	m := (secs % 3600) / 60
	s := secs % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
