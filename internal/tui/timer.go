package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/bittimer/internal/interval"
)

// prepareTimeout bounds how long Start may spend acquiring devices.
const prepareTimeout = 5 * time.Second

var phaseNames = map[interval.Phase]string{
	interval.PhaseIdle:     "READY",
	interval.PhaseWarmup:   "WARM-UP",
	interval.PhaseWork:     "WORK",
	interval.PhaseRest:     "REST",
	interval.PhaseFinished: "FINISHED",
}

var cueLabels = map[interval.Cue]string{
	interval.CueCountdown:       "get ready",
	interval.CueWorkStart:       "go!",
	interval.CueRoundEnd:        "round done",
	interval.CueSessionComplete: "all rounds done",
}

// timerModel renders the session. All state lives in the session; the model
// only keeps the latest snapshot it was sent.
type timerModel struct {
	session *interval.Session
	width   int
	height  int

	snap      interval.Snapshot
	lastCue   interval.Cue
	preparing bool
}

func newTimerModel(sess *interval.Session) timerModel {
	return timerModel{
		session: sess,
		snap:    sess.Snapshot(),
	}
}

func (t *timerModel) setSize(w, h int) {
	t.width = w
	t.height = h
}

// waitForEvent blocks on the session's event channel and hands the next
// event to the program.
func waitForEvent(events <-chan interval.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return sessionClosedMsg{}
		}
		return sessionEventMsg{event: ev}
	}
}

func startSession(sess *interval.Session) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), prepareTimeout)
		defer cancel()
		return sessionStartedMsg{err: sess.Start(ctx)}
	}
}

func stopSession(sess *interval.Session) tea.Cmd {
	return func() tea.Msg {
		sess.Stop()
		return sessionStoppedMsg{}
	}
}

func (t timerModel) update(msg tea.Msg) (timerModel, tea.Cmd) {
	switch msg := msg.(type) {
	case sessionEventMsg:
		t.snap = msg.event.Snapshot
		switch msg.event.Type {
		case interval.EventCue:
			t.lastCue = msg.event.Cue
		case interval.EventPhaseEntered:
			if msg.event.Phase == interval.PhaseWarmup {
				t.lastCue = ""
			}
		}
		return t, nil

	case sessionStartedMsg:
		t.preparing = false
		t.snap = t.session.Snapshot()
		if msg.err != nil && !errors.Is(msg.err, interval.ErrStartCancelled) {
			return t, func() tea.Msg {
				return statusMsg{text: fmt.Sprintf("Start failed: %v", msg.err), isError: true}
			}
		}
		return t, nil

	case sessionStoppedMsg:
		t.preparing = false
		t.snap = t.session.Snapshot()
		t.lastCue = ""
		return t, func() tea.Msg {
			return statusMsg{text: "Session stopped"}
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Start):
			if !t.snap.Running && !t.preparing {
				t.preparing = true
				return t, startSession(t.session)
			}
		case key.Matches(msg, keys.Stop):
			if t.snap.Running || t.preparing || t.snap.Phase == interval.PhaseFinished {
				return t, stopSession(t.session)
			}
		}
	}
	return t, nil
}

func (t timerModel) running() bool {
	return t.snap.Running || t.preparing
}

func (t timerModel) view() string {
	w := t.width - 4
	snap := t.snap
	style := phaseStyle(snap.Phase)

	title := titleStyle.Render("Interval Timer")

	var timeDisplay, phaseLabel string
	switch {
	case t.preparing:
		timeDisplay = timerStyle.Width(w - 6).Render(formatClock(snap.Config.WarmupSeconds))
		phaseLabel = mutedStyle.Render("Preparing...")
	case snap.Phase == interval.PhaseIdle:
		timeDisplay = timerStyle.Width(w - 6).Render(formatClock(snap.Config.WorkSeconds))
		phaseLabel = mutedStyle.Render("Ready to start")
	case snap.Phase == interval.PhaseFinished:
		timeDisplay = style.Width(w - 6).Align(lipgloss.Center).Render("Done!")
		phaseLabel = style.Render(phaseNames[snap.Phase])
	default:
		timeDisplay = style.Width(w - 6).Align(lipgloss.Center).Render(formatClock(snap.Remaining))
		phaseLabel = style.Render(phaseNames[snap.Phase])
	}

	cue := ""
	if t.lastCue != "" && snap.Phase != interval.PhaseIdle {
		cue = accentStyle.Render(cueLabels[t.lastCue])
	}

	round := mutedStyle.Render(fmt.Sprintf("Round %d of %d", snap.Round, snap.TotalRounds))
	total := mutedStyle.Render("Total " + formatClock(snap.Config.TotalSeconds()))

	content := lipgloss.JoinVertical(lipgloss.Center,
		title,
		"",
		timeDisplay,
		phaseLabel,
		cue,
		"",
		round,
		t.renderProgress(),
		"",
		total,
	)

	var controls string
	switch {
	case t.preparing, snap.Running:
		controls = mutedStyle.Render("x: stop")
	case snap.Phase == interval.PhaseFinished:
		controls = mutedStyle.Render("s: again  x: reset  q: quit")
	default:
		controls = mutedStyle.Render("s: start  q: quit")
	}

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Center, content, "", controls),
	)
}

// completedRounds is the number of work intervals fully behind the session.
func (t timerModel) completedRounds() int {
	switch t.snap.Phase {
	case interval.PhaseFinished:
		return t.snap.TotalRounds
	case interval.PhaseWork, interval.PhaseRest:
		return t.snap.Round - 1
	}
	return 0
}

func (t timerModel) renderProgress() string {
	done := t.completedRounds()
	var parts []string
	for i := 0; i < t.snap.TotalRounds; i++ {
		switch {
		case i < done:
			parts = append(parts, successStyle.Render("●"))
		case i == done && t.snap.Phase == interval.PhaseWork:
			parts = append(parts, accentStyle.Render("◐"))
		default:
			parts = append(parts, mutedStyle.Render("○"))
		}
	}
	progress := strings.Join(parts, " ")
	counter := mutedStyle.Render(fmt.Sprintf("  %d/%d", done, t.snap.TotalRounds))
	return progress + counter
}
