package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/bittimer/internal/store"
)

const historyRows = 8

type historyModel struct {
	store  *store.Store
	width  int
	height int

	days      []store.DailyWork
	runs      []store.Run
	completed int
	totalWork int64
	offset    int // 7-day blocks back from today (0 = current)

	chart barchart.Model
}

func newHistoryModel(s *store.Store) historyModel {
	return historyModel{
		store: s,
		chart: barchart.New(60, 12),
	}
}

func (h *historyModel) setSize(w, ht int) {
	h.width = w
	h.height = ht
}

type historyDataMsg struct {
	days      []store.DailyWork
	runs      []store.Run
	completed int
	totalWork int64
	err       error
}

func (h historyModel) refresh() tea.Cmd {
	return func() tea.Msg {
		from, to := h.dateRange()
		days, err := h.store.GetDailyWork(from, to)
		if err != nil {
			return historyDataMsg{err: err}
		}
		runs, err := h.store.ListRuns(store.RunFilter{From: &from, To: &to, Limit: historyRows})
		if err != nil {
			return historyDataMsg{err: err}
		}
		completed, totalWork, err := h.store.GetRunStats(from, to)
		if err != nil {
			return historyDataMsg{err: err}
		}
		return historyDataMsg{days: days, runs: runs, completed: completed, totalWork: totalWork}
	}
}

// dateRange is the seven days ending today, shifted back by offset weeks.
func (h historyModel) dateRange() (time.Time, time.Time) {
	now := time.Now().UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	end := today.AddDate(0, 0, 1-7*h.offset)
	start := end.AddDate(0, 0, -7)
	return start, end
}

func (h historyModel) update(msg tea.Msg) (historyModel, tea.Cmd) {
	switch msg := msg.(type) {
	case historyDataMsg:
		if msg.err != nil {
			return h, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("History error: %v", msg.err), isError: true}
			}
		}
		h.days = msg.days
		h.runs = msg.runs
		h.completed = msg.completed
		h.totalWork = msg.totalWork
		h.buildChart()
		return h, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			h.offset++
			return h, h.refresh()
		case key.Matches(msg, keys.Right):
			if h.offset > 0 {
				h.offset--
			}
			return h, h.refresh()
		}
	}
	return h, nil
}

func (h *historyModel) buildChart() {
	chartWidth := h.width - 8
	if chartWidth < 20 {
		chartWidth = 20
	}
	chartHeight := 10
	if h.height > 30 {
		chartHeight = 14
	}

	h.chart = barchart.New(chartWidth, chartHeight)

	from, to := h.dateRange()
	byDate := make(map[string]store.DailyWork, len(h.days))
	for _, d := range h.days {
		byDate[d.Date] = d
	}

	var bars []barchart.BarData
	for d := from; d.Before(to); d = d.AddDate(0, 0, 1) {
		day := byDate[d.Format("2006-01-02")]
		style := lipgloss.NewStyle().Foreground(colorSuccess)
		if day.WorkSeconds == 0 {
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label: d.Format("Mon 02"),
			Values: []barchart.BarValue{{
				Name:  "work",
				Value: float64(day.WorkSeconds) / 60.0,
				Style: style,
			}},
		})
	}

	h.chart.PushAll(bars)
	h.chart.Draw()
}

func (h historyModel) view() string {
	w := h.width - 4

	from, to := h.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s - %s", from.Format("Jan 02"), to.Add(-24*time.Hour).Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("History"), "  ", dateLabel,
	)

	stats := fmt.Sprintf("  %s completed   %s work",
		highlightStyle.Render(fmt.Sprintf("%d", h.completed)),
		highlightStyle.Render(formatSeconds(h.totalWork)),
	)

	nav := mutedStyle.Render("  ←/→: navigate  e: export")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", h.chart.View(), mutedStyle.Render("  work minutes per day"), "", stats, "", h.renderRunTable(w), "", nav,
		),
	)
}

func (h historyModel) renderRunTable(w int) string {
	if len(h.runs) == 0 {
		return mutedStyle.Render("  No sessions in this period")
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-17s %-10s %-13s %8s %9s", "Started", "Status", "Work/Rest", "Rounds", "Work")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 61))))

	for _, r := range h.runs {
		rows = append(rows, fmt.Sprintf("  %-17s %s %-13s %8s %9s",
			r.StartedAt.Local().Format("Jan 02 15:04"),
			statusStyle(r.Status).Render(fmt.Sprintf("%-10s", r.Status)),
			fmt.Sprintf("%ds/%ds", r.WorkSeconds, r.RestSeconds),
			fmt.Sprintf("%d/%d", r.RoundsCompleted, r.TotalRounds),
			formatMinutes(r.WorkDone()),
		))
	}

	return strings.Join(rows, "\n")
}

func statusStyle(status string) lipgloss.Style {
	switch status {
	case store.RunCompleted:
		return successStyle
	case store.RunCancelled:
		return errorStyle
	}
	return warningStyle
}
