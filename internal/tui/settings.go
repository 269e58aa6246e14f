package tui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/sadopc/bittimer/internal/config"
	"github.com/sadopc/bittimer/internal/interval"
	"github.com/sadopc/bittimer/internal/store"
)

type settingsModel struct {
	store   *store.Store
	session *interval.Session
	width   int
	height  int

	current    interval.Config
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	work   *string
	rest   *string
	rounds *string
}

func newSettingsModel(s *store.Store, sess *interval.Session) settingsModel {
	w, r, n := "", "", ""
	return settingsModel{
		store:   s,
		session: sess,
		current: sess.Config(),
		work:    &w,
		rest:    &r,
		rounds:  &n,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		return settingsSavedMsg{config: s.session.Config()}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsSavedMsg:
		s.current = msg.config
		return s, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Edit) {
			if s.session.ConfirmLeave() {
				return s, func() tea.Msg {
					return statusMsg{text: "Stop the session to change settings", isError: true}
				}
			}
			return s.showForm()
		}
	}
	return s, nil
}

func validator(l config.Limit) func(string) error {
	return func(v string) error {
		_, err := l.Parse(v)
		return err
	}
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.work = strconv.Itoa(s.current.WorkSeconds)
	*s.rest = strconv.Itoa(s.current.RestSeconds)
	*s.rounds = strconv.Itoa(s.current.TotalRounds)

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title(fmt.Sprintf("Work (seconds, %d-%d)", config.WorkLimit.Min, config.WorkLimit.Max)).
				Value(s.work).
				Validate(validator(config.WorkLimit)),
			huh.NewInput().
				Title(fmt.Sprintf("Rest (seconds, %d-%d)", config.RestLimit.Min, config.RestLimit.Max)).
				Value(s.rest).
				Validate(validator(config.RestLimit)),
			huh.NewInput().
				Title(fmt.Sprintf("Rounds (%d-%d)", config.RoundsLimit.Min, config.RoundsLimit.Max)).
				Value(s.rounds).
				Validate(validator(config.RoundsLimit)),
		).Title("Intervals"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, s.save()
	}

	return s, cmd
}

// save applies the form values to the session and persists them.
func (s settingsModel) save() tea.Cmd {
	work, rest, rounds := *s.work, *s.rest, *s.rounds
	return func() tea.Msg {
		cfg := s.session.Config()
		var err error
		if cfg.WorkSeconds, err = config.WorkLimit.Parse(work); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		if cfg.RestSeconds, err = config.RestLimit.Parse(rest); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		if cfg.TotalRounds, err = config.RoundsLimit.Parse(rounds); err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		if err := s.session.Configure(cfg); err != nil {
			return statusMsg{text: fmt.Sprintf("Settings not applied: %v", err), isError: true}
		}
		if err := config.SaveDurations(s.store, cfg); err != nil {
			return statusMsg{text: fmt.Sprintf("Settings not saved: %v", err), isError: true}
		}
		return settingsSavedMsg{config: cfg}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	hint := mutedStyle.Render("Press enter to edit settings")
	if s.session.ConfirmLeave() {
		hint = warningStyle.Render("Settings are locked while a session runs")
	}

	rows := []string{title, ""}
	values := []struct {
		label string
		value string
	}{
		{"Work", fmt.Sprintf("%d sec", s.current.WorkSeconds)},
		{"Rest", fmt.Sprintf("%d sec", s.current.RestSeconds)},
		{"Rounds", strconv.Itoa(s.current.TotalRounds)},
		{"Warm-up", fmt.Sprintf("%d sec", s.current.WarmupSeconds)},
		{"Total", formatClock(s.current.TotalSeconds())},
	}
	for _, v := range values {
		label := lipgloss.NewStyle().Width(24).Render(v.label)
		rows = append(rows, fmt.Sprintf("  %s %s", label, highlightStyle.Render(v.value)))
	}

	rows = append(rows, "", hint)
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}
