package tui

import (
	"fmt"
	"time"

	"github.com/sadopc/bittimer/internal/interval"
)

// viewState represents the currently active view.
type viewState int

const (
	viewTimer viewState = iota
	viewHistory
	viewSettings
)

var viewNames = []string{"Timer", "History", "Settings"}

// --- Messages ---

type sessionEventMsg struct {
	event interval.Event
}

type sessionClosedMsg struct{}

type sessionStartedMsg struct {
	err error
}

type sessionStoppedMsg struct{}

type settingsSavedMsg struct {
	config interval.Config
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// RunRecordedMsg tells the app that run history changed on disk.
type RunRecordedMsg struct {
	RunID string
}

// --- Helpers ---

func formatDuration(d time.Duration) string {
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

func formatSeconds(secs int64) string {
	return formatDuration(time.Duration(secs) * time.Second)
}

// formatClock renders a countdown as mm:ss.
func formatClock(secs int) string {
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}

func formatMinutes(secs int64) string {
	return fmt.Sprintf("%.1fm", float64(secs)/60)
}
