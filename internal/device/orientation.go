package device

import (
	"sync"

	"github.com/rs/zerolog"
)

// TerminalOrientation stands in for a screen orientation lock. A terminal
// cannot rotate, so it only tracks and logs the requested state.
type TerminalOrientation struct {
	mu     sync.Mutex
	locked bool
	log    zerolog.Logger
}

func NewTerminalOrientation(log zerolog.Logger) *TerminalOrientation {
	return &TerminalOrientation{log: log.With().Str("component", "orientation").Logger()}
}

func (o *TerminalOrientation) Lock() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if !o.locked {
		o.locked = true
		o.log.Debug().Msg("orientation locked")
	}
	return nil
}

func (o *TerminalOrientation) Unlock() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.locked {
		o.locked = false
		o.log.Debug().Msg("orientation unlocked")
	}
	return nil
}

func (o *TerminalOrientation) Locked() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.locked
}
