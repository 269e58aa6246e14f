package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"
	"github.com/sadopc/bittimer/internal/config"
	"github.com/sadopc/bittimer/internal/device"
	"github.com/sadopc/bittimer/internal/interval"
	"github.com/sadopc/bittimer/internal/journal"
	"github.com/sadopc/bittimer/internal/logging"
	"github.com/sadopc/bittimer/internal/store"
	"github.com/sadopc/bittimer/internal/tui"
)

func main() {
	dbPath := flag.String("db", "", "database path (default ~/.config/bittimer/bittimer.db)")
	policyPath := flag.String("config", "", "policy file (default ~/.config/bittimer/config.yaml)")
	logPath := flag.String("log", "", "log file (default ~/.config/bittimer/bittimer.log)")
	debug := flag.Bool("debug", false, "log at debug level")
	writeConfig := flag.Bool("write-config", false, "write the effective policy file and exit")
	flag.Parse()

	if err := run(*dbPath, *policyPath, *logPath, *debug, *writeConfig); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(dbPath, policyPath, logPath string, debug, writeConfig bool) error {
	var err error
	if policyPath == "" {
		if policyPath, err = config.DefaultPolicyPath(); err != nil {
			return err
		}
	}
	policy, err := config.LoadPolicy(policyPath)
	if err != nil {
		return err
	}
	if writeConfig {
		if err := config.SavePolicy(policyPath, policy); err != nil {
			return err
		}
		fmt.Println("wrote", policyPath)
		return nil
	}

	if logPath == "" {
		if logPath, err = config.DefaultLogPath(); err != nil {
			return err
		}
	}
	log, closeLog, err := logging.New(logPath, debug)
	if err != nil {
		return err
	}
	defer closeLog()

	if dbPath == "" {
		if dbPath, err = store.DefaultDBPath(); err != nil {
			return err
		}
	}
	s, err := store.New(dbPath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer s.Close()

	cfg, fallbacks := config.LoadDurations(s, policy.Defaults)
	if len(fallbacks) > 0 {
		log.Debug().Strs("keys", fallbacks).Msg("using default durations")
	}

	opts, closeDevices := sessionOptions(policy, log)
	defer closeDevices()
	sess, err := interval.New(cfg, opts)
	if err != nil {
		return err
	}

	app := tui.NewApp(s, sess)
	p := tea.NewProgram(app, tea.WithAltScreen())

	// The recorder drains its subscription until Close shuts it.
	rec := journal.NewRecorder(s, log)
	rec.OnRecorded = func(ev interval.Event) {
		p.Send(tui.RunRecordedMsg{RunID: ev.Snapshot.RunID})
	}
	events := sess.Subscribe(256)
	recorded := make(chan struct{})
	go func() {
		rec.Run(context.Background(), events)
		close(recorded)
	}()

	log.Info().Str("db", dbPath).Str("config", policyPath).Msg("bittimer started")

	_, runErr := p.Run()

	sess.Close()
	<-recorded
	log.Info().Msg("bittimer exited")
	return runErr
}

func sessionOptions(policy config.Policy, log zerolog.Logger) (interval.Options, func()) {
	engine := policy.Engine
	opts := interval.Options{
		Policy: &engine,
		Logger: log,
	}
	closeDevices := func() {}

	switch policy.Player {
	case config.PlayerCommand:
		opts.Player = device.NewCommandPlayer(policy.Command, policy.Sounds, log)
	case config.PlayerBell:
		bell, err := device.NewTerminalBellPlayer()
		if err != nil {
			log.Warn().Err(err).Msg("terminal bell unavailable")
			break
		}
		opts.Player = bell
		closeDevices = func() { bell.Close() }
	}
	if policy.WakeLock {
		opts.WakeLock = device.NewInhibitor(log)
	}
	if policy.OrientationLock {
		opts.Orientation = device.NewTerminalOrientation(log)
	}
	return opts, closeDevices
}
