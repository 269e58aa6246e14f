package device

import (
	"fmt"
	"os/exec"
	"sync"

	"github.com/rs/zerolog"
)

// Inhibitor keeps the machine awake by holding a systemd-inhibit lock for
// as long as a child process lives.
type Inhibitor struct {
	mu   sync.Mutex
	cmd  *exec.Cmd
	done chan struct{}
	log  zerolog.Logger

	newCmd func() (*exec.Cmd, error)
}

func NewInhibitor(log zerolog.Logger) *Inhibitor {
	return &Inhibitor{
		log:    log.With().Str("component", "wakelock").Logger(),
		newCmd: systemdInhibit,
	}
}

func systemdInhibit() (*exec.Cmd, error) {
	path, err := exec.LookPath("systemd-inhibit")
	if err != nil {
		return nil, ErrUnsupported
	}
	return exec.Command(path,
		"--what=idle:sleep",
		"--who=bittimer",
		"--why=Interval session running",
		"--mode=block",
		"sleep", "infinity",
	), nil
}

// Acquire is a no-op while a lock is already held.
func (i *Inhibitor) Acquire() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cmd != nil {
		return nil
	}
	cmd, err := i.newCmd()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start inhibitor: %w", err)
	}
	done := make(chan struct{})
	go func() {
		cmd.Wait()
		close(done)
	}()
	i.cmd = cmd
	i.done = done
	i.log.Debug().Int("pid", cmd.Process.Pid).Msg("wake lock acquired")
	return nil
}

// Release is a no-op when no lock is held.
func (i *Inhibitor) Release() error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cmd == nil {
		return nil
	}
	cmd, done := i.cmd, i.done
	i.cmd, i.done = nil, nil

	select {
	case <-done:
		return nil
	default:
	}
	if err := cmd.Process.Kill(); err != nil {
		return fmt.Errorf("stop inhibitor: %w", err)
	}
	<-done
	i.log.Debug().Msg("wake lock released")
	return nil
}

// Held reports whether a lock process is running.
func (i *Inhibitor) Held() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.cmd == nil {
		return false
	}
	select {
	case <-i.done:
		return false
	default:
		return true
	}
}
