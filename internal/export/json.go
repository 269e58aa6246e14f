package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/bittimer/internal/store"
)

type jsonExport struct {
	ExportedAt string    `json:"exported_at"`
	Count      int       `json:"count"`
	Runs       []jsonRun `json:"runs"`
}

type jsonRun struct {
	ID              int64  `json:"id"`
	RunID           string `json:"run_id"`
	Status          string `json:"status"`
	StartedAt       string `json:"started_at"`
	EndedAt         string `json:"ended_at,omitempty"`
	WorkSeconds     int    `json:"work_seconds"`
	RestSeconds     int    `json:"rest_seconds"`
	TotalRounds     int    `json:"total_rounds"`
	RoundsCompleted int    `json:"rounds_completed"`
	WarmupSeconds   int    `json:"warmup_seconds"`
	WorkDoneSec     int64  `json:"work_done_seconds"`
	WorkDone        string `json:"work_done"`
}

func ToJSON(runs []store.Run, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(runs),
	}

	for _, r := range runs {
		endStr := ""
		if r.EndedAt != nil {
			endStr = r.EndedAt.Local().Format(time.RFC3339)
		}

		export.Runs = append(export.Runs, jsonRun{
			ID:              r.ID,
			RunID:           r.RunID,
			Status:          r.Status,
			StartedAt:       r.StartedAt.Local().Format(time.RFC3339),
			EndedAt:         endStr,
			WorkSeconds:     r.WorkSeconds,
			RestSeconds:     r.RestSeconds,
			TotalRounds:     r.TotalRounds,
			RoundsCompleted: r.RoundsCompleted,
			WarmupSeconds:   r.WarmupSeconds,
			WorkDoneSec:     r.WorkDone(),
			WorkDone:        formatDuration(r.WorkDone()),
		})
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
