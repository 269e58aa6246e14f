package device

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/sadopc/bittimer/internal/interval"
)

// ============================================================
// BellPlayer
// ============================================================

func TestBellPlayerRingsPerCue(t *testing.T) {
	tests := []struct {
		cue  interval.Cue
		want string
	}{
		{interval.CueCountdown, "\a"},
		{interval.CueWorkStart, "\a\a"},
		{interval.CueRoundEnd, "\a"},
		{interval.CueSessionComplete, "\a\a\a"},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		p := NewBellPlayer(&buf)
		if err := p.Play(tt.cue); err != nil {
			t.Fatalf("Play(%s): %v", tt.cue, err)
		}
		if buf.String() != tt.want {
			t.Errorf("Play(%s) wrote %q, want %q", tt.cue, buf.String(), tt.want)
		}
	}
}

func TestTerminalBellPlayerWritesToTerminal(t *testing.T) {
	tty := filepath.Join(t.TempDir(), "tty")
	if err := os.WriteFile(tty, nil, 0o600); err != nil {
		t.Fatal(err)
	}
	prev := ttyPath
	ttyPath = tty
	t.Cleanup(func() { ttyPath = prev })

	p, err := NewTerminalBellPlayer()
	if err != nil {
		t.Fatal(err)
	}
	if err := p.Play(interval.CueSessionComplete); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatal(err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}

	data, err := os.ReadFile(tty)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "\a\a\a" {
		t.Fatalf("terminal got %q, want three bells", data)
	}
}

func TestTerminalBellPlayerNoTerminal(t *testing.T) {
	prev := ttyPath
	ttyPath = filepath.Join(t.TempDir(), "missing", "tty")
	t.Cleanup(func() { ttyPath = prev })

	if _, err := NewTerminalBellPlayer(); err == nil {
		t.Fatal("expected error without a terminal")
	}
}

func TestBellPlayerUnknownCue(t *testing.T) {
	var buf bytes.Buffer
	if err := NewBellPlayer(&buf).Play("trumpet"); err == nil {
		t.Fatal("expected error for unknown cue")
	}
	if buf.Len() != 0 {
		t.Fatal("nothing should be written for an unknown cue")
	}
}

func TestBellPlayerConcurrentPlay(t *testing.T) {
	var buf bytes.Buffer
	p := NewBellPlayer(&buf)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Play(interval.CueCountdown)
		}()
	}
	wg.Wait()
	if buf.Len() != 20 {
		t.Fatalf("expected 20 bells, got %d", buf.Len())
	}
}

// ============================================================
// CommandPlayer
// ============================================================

type started struct {
	name string
	args []string
}

func newTestPlayer(t *testing.T, sounds map[interval.Cue]string) (*CommandPlayer, chan started) {
	t.Helper()
	calls := make(chan started, 10)
	p := NewCommandPlayer([]string{"paplay", "--volume=40000"}, sounds, zerolog.Nop())
	p.lookPath = func(name string) (string, error) { return "/usr/bin/" + name, nil }
	p.start = func(name string, args ...string) (func() error, error) {
		calls <- started{name: name, args: args}
		return func() error { return nil }, nil
	}
	return p, calls
}

func TestCommandPlayerPlaysSoundFile(t *testing.T) {
	p, calls := newTestPlayer(t, map[interval.Cue]string{interval.CueWorkStart: "/s/go.wav"})
	if err := p.Play(interval.CueWorkStart); err != nil {
		t.Fatal(err)
	}
	got := <-calls
	if got.name != "paplay" || len(got.args) != 2 || got.args[0] != "--volume=40000" || got.args[1] != "/s/go.wav" {
		t.Fatalf("unexpected command: %+v", got)
	}
}

func TestCommandPlayerSilentCue(t *testing.T) {
	p, calls := newTestPlayer(t, map[interval.Cue]string{})
	if err := p.Play(interval.CueCountdown); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-calls:
		t.Fatalf("unexpected command %+v", c)
	default:
	}
}

func TestCommandPlayerStartError(t *testing.T) {
	p, _ := newTestPlayer(t, map[interval.Cue]string{interval.CueRoundEnd: "/s/r.wav"})
	p.start = func(string, ...string) (func() error, error) { return nil, exec.ErrNotFound }
	if err := p.Play(interval.CueRoundEnd); !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestCommandPlayerPrepare(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "beep.wav")
	if err := os.WriteFile(good, []byte("RIFF"), 0o644); err != nil {
		t.Fatal(err)
	}

	p, _ := newTestPlayer(t, map[interval.Cue]string{interval.CueCountdown: good})
	if err := p.Prepare(context.Background()); err != nil {
		t.Fatalf("prepare: %v", err)
	}

	p, _ = newTestPlayer(t, map[interval.Cue]string{
		interval.CueCountdown: good,
		interval.CueRoundEnd:  filepath.Join(dir, "missing.wav"),
	})
	err := p.Prepare(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected missing file error, got %v", err)
	}
}

func TestCommandPlayerPrepareMissingProgram(t *testing.T) {
	p, _ := newTestPlayer(t, nil)
	p.lookPath = func(string) (string, error) { return "", exec.ErrNotFound }
	if err := p.Prepare(context.Background()); !errors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	empty := NewCommandPlayer(nil, nil, zerolog.Nop())
	if err := empty.Prepare(context.Background()); !errors.Is(err, ErrNoCommand) {
		t.Fatalf("expected ErrNoCommand, got %v", err)
	}
}

// ============================================================
// Inhibitor
// ============================================================

func sleeper(t *testing.T) func() (*exec.Cmd, error) {
	t.Helper()
	path, err := exec.LookPath("sleep")
	if err != nil {
		t.Skip("sleep not available")
	}
	return func() (*exec.Cmd, error) { return exec.Command(path, "30"), nil }
}

func TestInhibitorAcquireRelease(t *testing.T) {
	i := NewInhibitor(zerolog.Nop())
	i.newCmd = sleeper(t)

	if err := i.Acquire(); err != nil {
		t.Fatal(err)
	}
	if !i.Held() {
		t.Fatal("lock should be held")
	}
	// Second acquire keeps the same process.
	pid := i.cmd.Process.Pid
	if err := i.Acquire(); err != nil {
		t.Fatal(err)
	}
	if i.cmd.Process.Pid != pid {
		t.Fatal("acquire should be idempotent")
	}

	done := make(chan error, 1)
	go func() { done <- i.Release() }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatal(err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("release hung")
	}
	if i.Held() {
		t.Fatal("lock should be released")
	}
	if err := i.Release(); err != nil {
		t.Fatalf("second release: %v", err)
	}
}

func TestInhibitorUnsupported(t *testing.T) {
	i := NewInhibitor(zerolog.Nop())
	i.newCmd = func() (*exec.Cmd, error) { return nil, ErrUnsupported }
	if err := i.Acquire(); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("expected ErrUnsupported, got %v", err)
	}
	if err := i.Release(); err != nil {
		t.Fatalf("release without lock: %v", err)
	}
}

// ============================================================
// Orientation
// ============================================================

func TestTerminalOrientationIdempotent(t *testing.T) {
	o := NewTerminalOrientation(zerolog.Nop())
	for i := 0; i < 2; i++ {
		if err := o.Lock(); err != nil {
			t.Fatal(err)
		}
	}
	if !o.Locked() {
		t.Fatal("expected locked")
	}
	for i := 0; i < 2; i++ {
		if err := o.Unlock(); err != nil {
			t.Fatal(err)
		}
	}
	if o.Locked() {
		t.Fatal("expected unlocked")
	}
}

func TestCollaboratorsSatisfyInterfaces(t *testing.T) {
	var _ interval.CuePlayer = NewBellPlayer(&bytes.Buffer{})
	var _ interval.CuePlayer = NewCommandPlayer(nil, nil, zerolog.Nop())
	var _ interval.WakeLock = NewInhibitor(zerolog.Nop())
	var _ interval.OrientationLock = NewTerminalOrientation(zerolog.Nop())
}
