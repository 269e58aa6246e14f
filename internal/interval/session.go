// Package interval implements the warm-up / work / rest state machine that
// drives an interval-training session.
package interval

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Options contains collaborators and runtime knobs for a Session.
type Options struct {
	// Policy defaults to DefaultPolicy when nil.
	Policy       *Policy
	Clock        Clock
	TickInterval time.Duration

	Player      CuePlayer
	WakeLock    WakeLock
	Orientation OrientationLock

	Logger zerolog.Logger

	// Dispatch runs cue playback. The default starts a goroutine so a slow
	// player never delays the tick.
	Dispatch func(func())
	// NewRunID names each run. Defaults to uuid.NewString.
	NewRunID func() string
}

// Session is an interval-training session.
type Session struct {
	mu sync.Mutex
	// devMu orders collaborator acquire and release. It is never taken
	// while mu is held.
	devMu  sync.Mutex
	config Config
	policy Policy
	opts   Options
	log    zerolog.Logger

	runID     string
	phase     Phase
	remaining int
	round     int
	running   bool
	preparing bool
	closed    bool
	gen       uint64

	ticker Ticker
	stopCh chan struct{}
	events []chan Event
}

// New creates an idle session.
func New(config Config, options Options) (*Session, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	policy := DefaultPolicy()
	if options.Policy != nil {
		policy = *options.Policy
	}
	if options.Clock == nil {
		options.Clock = SystemClock
	}
	if options.TickInterval <= 0 {
		options.TickInterval = time.Second
	}
	if options.Player == nil {
		options.Player = nopPlayer{}
	}
	if options.WakeLock == nil {
		options.WakeLock = nopWakeLock{}
	}
	if options.Orientation == nil {
		options.Orientation = nopOrientation{}
	}
	if options.NewRunID == nil {
		options.NewRunID = uuid.NewString
	}

	s := &Session{
		config: config,
		policy: policy,
		opts:   options,
		log:    options.Logger.With().Str("component", "session").Logger(),
		phase:  PhaseIdle,
		round:  policy.IdleRound,
	}
	if s.opts.Dispatch == nil {
		s.opts.Dispatch = s.goDispatch
	}
	return s, nil
}

// Subscribe registers a new observer channel. Events are dropped for
// subscribers that fall behind.
func (s *Session) Subscribe(buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 1
	}
	ch := make(chan Event, buffer)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		close(ch)
		return ch
	}
	s.events = append(s.events, ch)
	return ch
}

// Config returns the current configuration.
func (s *Session) Config() Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.config
}

// Configure replaces the configuration. It fails while a run is active.
func (s *Session) Configure(config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running || s.preparing {
		return ErrRunning
	}
	s.config = config
	return nil
}

// Snapshot returns a copy of the runtime state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// ConfirmLeave reports whether the host should ask before tearing the
// session down.
func (s *Session) ConfirmLeave() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running || s.preparing
}

// Start prepares the collaborators and begins the warm-up. It is a no-op if
// the session is already running or preparing. Start blocks until
// preparation finishes; if Stop is called in the meantime the scheduler is
// never armed and ErrStartCancelled is returned.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.running || s.preparing {
		s.mu.Unlock()
		return nil
	}
	s.preparing = true
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	s.prepare(ctx)

	s.mu.Lock()
	if s.gen != gen || !s.preparing {
		idle := !s.running && !s.preparing
		current := s.gen
		s.mu.Unlock()
		if idle {
			s.release(current)
		}
		return ErrStartCancelled
	}
	s.preparing = false
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		s.release(gen)
		return fmt.Errorf("prepare session: %w", err)
	}

	s.runID = s.opts.NewRunID()
	s.phase = PhaseWarmup
	s.remaining = s.config.WarmupSeconds
	s.round = 1
	s.running = true
	s.log.Info().
		Str("run", s.runID).
		Int("work", s.config.WorkSeconds).
		Int("rest", s.config.RestSeconds).
		Int("rounds", s.config.TotalRounds).
		Msg("session started")
	s.emitLocked(EventPhaseEntered, "")
	s.armLocked(gen)
	s.mu.Unlock()
	return nil
}

// Stop returns the session to idle from any state. Stopping a session that
// is still preparing leaves the release to the interrupted Start.
func (s *Session) Stop() {
	s.mu.Lock()
	wasRunning := s.running
	wasPreparing := s.preparing
	s.gen++
	gen := s.gen
	s.preparing = false
	s.disarmLocked()
	s.running = false
	s.phase = PhaseIdle
	s.remaining = 0
	if wasRunning {
		s.emitLocked(EventStopped, "")
		s.log.Info().Str("run", s.runID).Msg("session stopped")
	}
	s.round = s.policy.IdleRound
	s.runID = ""
	s.mu.Unlock()

	if !wasPreparing {
		s.release(gen)
	}
}

// Reset is an alias for Stop.
func (s *Session) Reset() {
	s.Stop()
}

// Close stops the session and closes all subscriber channels.
func (s *Session) Close() {
	s.Stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	events := s.events
	s.events = nil
	s.mu.Unlock()

	for _, ch := range events {
		close(ch)
	}
}

func (s *Session) prepare(ctx context.Context) {
	s.devMu.Lock()
	defer s.devMu.Unlock()

	if err := s.opts.WakeLock.Acquire(); err != nil {
		s.log.Warn().Err(err).Msg("acquire wake lock")
	}
	if err := s.opts.Orientation.Lock(); err != nil {
		s.log.Warn().Err(err).Msg("lock orientation")
	}
	if err := s.opts.Player.Prepare(ctx); err != nil {
		s.log.Warn().Err(err).Msg("prepare audio")
	}
}

// release frees the collaborators acquired for run generation gen. It is
// skipped once a newer Start or Stop has taken over.
func (s *Session) release(gen uint64) {
	s.devMu.Lock()
	defer s.devMu.Unlock()

	s.mu.Lock()
	stale := s.gen != gen
	s.mu.Unlock()
	if stale {
		return
	}

	if err := s.opts.WakeLock.Release(); err != nil {
		s.log.Warn().Err(err).Msg("release wake lock")
	}
	if err := s.opts.Orientation.Unlock(); err != nil {
		s.log.Warn().Err(err).Msg("unlock orientation")
	}
}

func (s *Session) armLocked(gen uint64) {
	s.disarmLocked()
	ticker := s.opts.Clock.NewTicker(s.opts.TickInterval)
	stopCh := make(chan struct{})
	s.ticker = ticker
	s.stopCh = stopCh
	go s.run(ticker, stopCh, gen)
}

func (s *Session) disarmLocked() {
	if s.ticker == nil {
		return
	}
	s.ticker.Stop()
	close(s.stopCh)
	s.ticker = nil
	s.stopCh = nil
}

func (s *Session) run(ticker Ticker, stopCh <-chan struct{}, gen uint64) {
	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C():
			s.tick(gen)
		}
	}
}

// tick advances the session by one second. Ticks from a previous run are
// ignored.
func (s *Session) tick(gen uint64) {
	s.mu.Lock()
	if !s.running || s.gen != gen {
		s.mu.Unlock()
		return
	}
	finished := s.advanceLocked()
	s.mu.Unlock()

	if finished {
		s.release(gen)
	}
}

func (s *Session) advanceLocked() bool {
	if (s.phase == PhaseWarmup || s.phase == PhaseRest) &&
		s.remaining > 0 && s.remaining <= s.policy.CountdownSeconds {
		s.cueLocked(CueCountdown)
	}

	if s.remaining > 0 {
		s.remaining--
		if s.remaining > 0 {
			s.emitLocked(EventTick, "")
			return false
		}
	}
	return s.transitionLocked()
}

// transitionLocked moves to the next phase in the same tick that observed
// the end of the current one, so every phase lasts exactly its configured
// number of ticks.
func (s *Session) transitionLocked() bool {
	switch s.phase {
	case PhaseWarmup:
		s.phase = PhaseWork
		s.remaining = s.config.WorkSeconds
		if s.policy.WorkStartCue {
			s.cueLocked(CueWorkStart)
		}

	case PhaseWork:
		if s.round >= s.config.TotalRounds {
			s.phase = PhaseFinished
			s.remaining = 0
			s.running = false
			s.disarmLocked()
			s.cueLocked(CueSessionComplete)
			s.emitLocked(EventPhaseEntered, "")
			s.log.Info().Str("run", s.runID).Msg("session complete")
			return true
		}
		s.round++
		s.phase = PhaseRest
		s.remaining = s.config.RestSeconds
		if s.policy.RoundEndCue {
			s.cueLocked(CueRoundEnd)
		}

	case PhaseRest:
		s.phase = PhaseWork
		s.remaining = s.config.WorkSeconds
		if s.policy.WorkStartCue {
			s.cueLocked(CueWorkStart)
		}

	default:
		return false
	}

	s.emitLocked(EventPhaseEntered, "")
	return false
}

func (s *Session) cueLocked(cue Cue) {
	s.emitLocked(EventCue, cue)
	player := s.opts.Player
	log := s.log
	s.opts.Dispatch(func() {
		if err := player.Play(cue); err != nil {
			log.Warn().Err(err).Str("cue", string(cue)).Msg("play cue")
		}
	})
}

func (s *Session) goDispatch(fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error().Interface("panic", r).Str("stack", string(debug.Stack())).Msg("cue player panic")
			}
		}()
		fn()
	}()
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		RunID:       s.runID,
		Phase:       s.phase,
		Remaining:   s.remaining,
		Round:       s.round,
		TotalRounds: s.config.TotalRounds,
		Running:     s.running,
		Config:      s.config,
	}
}

func (s *Session) emitLocked(eventType EventType, cue Cue) {
	event := Event{
		Type:     eventType,
		Phase:    s.phase,
		Cue:      cue,
		Snapshot: s.snapshotLocked(),
		At:       s.opts.Clock.Now(),
	}
	for _, ch := range s.events {
		select {
		case ch <- event:
		default:
		}
	}
}
