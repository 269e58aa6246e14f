// Package device provides the host-side collaborators of a session: cue
// players, the idle inhibitor and the orientation lock.
package device

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/sadopc/bittimer/internal/interval"
)

var (
	ErrUnsupported = errors.New("not supported on this host")
	ErrNoCommand   = errors.New("no audio command configured")
)

// bells is how many BEL characters each cue rings.
var bells = map[interval.Cue]int{
	interval.CueCountdown:       1,
	interval.CueWorkStart:       2,
	interval.CueRoundEnd:        1,
	interval.CueSessionComplete: 3,
}

// ttyPath is the controlling terminal.
var ttyPath = "/dev/tty"

// BellPlayer rings the terminal bell.
type BellPlayer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewBellPlayer(w io.Writer) *BellPlayer {
	return &BellPlayer{w: w}
}

// NewTerminalBellPlayer rings the bell on the controlling terminal instead
// of stdout, which belongs to the TUI renderer.
func NewTerminalBellPlayer() (*BellPlayer, error) {
	f, err := os.OpenFile(ttyPath, os.O_WRONLY, 0)
	if err != nil {
		return nil, fmt.Errorf("open terminal: %w", err)
	}
	return &BellPlayer{w: f, closer: f}, nil
}

// Close releases the terminal opened by NewTerminalBellPlayer.
func (p *BellPlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closer == nil {
		return nil
	}
	err := p.closer.Close()
	p.closer = nil
	return err
}

func (p *BellPlayer) Prepare(context.Context) error { return nil }

func (p *BellPlayer) Play(cue interval.Cue) error {
	n, ok := bells[cue]
	if !ok {
		return fmt.Errorf("unknown cue %q", cue)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, strings.Repeat("\a", n))
	return err
}

// CommandPlayer plays one sound file per cue through an external program
// such as paplay or afplay. Each Play starts a new process, so cues may
// overlap.
type CommandPlayer struct {
	command []string
	sounds  map[interval.Cue]string
	log     zerolog.Logger

	lookPath func(string) (string, error)
	start    func(name string, args ...string) (wait func() error, err error)
}

func NewCommandPlayer(command []string, sounds map[interval.Cue]string, log zerolog.Logger) *CommandPlayer {
	return &CommandPlayer{
		command:  command,
		sounds:   sounds,
		log:      log.With().Str("component", "audio").Logger(),
		lookPath: exec.LookPath,
		start:    startProcess,
	}
}

// Prepare checks that the program exists and every sound file is readable.
func (p *CommandPlayer) Prepare(ctx context.Context) error {
	if len(p.command) == 0 {
		return ErrNoCommand
	}
	if _, err := p.lookPath(p.command[0]); err != nil {
		return fmt.Errorf("audio command: %w", err)
	}
	var errs []error
	for cue, path := range p.sounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := os.Open(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("sound %s: %w", cue, err))
			continue
		}
		f.Close()
	}
	return errors.Join(errs...)
}

// Play starts the command for cue and returns without waiting for it.
// Cues without a sound are silent.
func (p *CommandPlayer) Play(cue interval.Cue) error {
	path, ok := p.sounds[cue]
	if !ok || path == "" {
		return nil
	}
	if len(p.command) == 0 {
		return ErrNoCommand
	}
	args := append(append([]string{}, p.command[1:]...), path)
	wait, err := p.start(p.command[0], args...)
	if err != nil {
		return fmt.Errorf("start %s: %w", p.command[0], err)
	}
	go func() {
		if err := wait(); err != nil {
			p.log.Debug().Err(err).Str("cue", string(cue)).Msg("audio command exited")
		}
	}()
	return nil
}

func startProcess(name string, args ...string) (func() error, error) {
	cmd := exec.Command(name, args...)
	if err := cmd.Start(); err != nil {
		return nil, err
	}
	return cmd.Wait, nil
}
