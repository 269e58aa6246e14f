package interval

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidConfig reports a configuration the engine cannot run.
	ErrInvalidConfig = errors.New("invalid interval config")
	// ErrRunning is returned when configuration changes while a session runs.
	ErrRunning = errors.New("session is running")
	// ErrStartCancelled is returned by Start when Stop won the race against preparation.
	ErrStartCancelled = errors.New("start cancelled")
	// ErrClosed is returned by Start after Close.
	ErrClosed = errors.New("session closed")
)

// Phase is the current stage of a session.
type Phase string

const (
	PhaseIdle     Phase = "idle"
	PhaseWarmup   Phase = "warmup"
	PhaseWork     Phase = "work"
	PhaseRest     Phase = "rest"
	PhaseFinished Phase = "finished"
)

// Cue is a notification meant to trigger an audible signal.
type Cue string

const (
	CueCountdown       Cue = "countdown"
	CueWorkStart       Cue = "work_start"
	CueRoundEnd        Cue = "round_end"
	CueSessionComplete Cue = "session_complete"
)

// EventType defines the type of session event.
type EventType string

const (
	EventPhaseEntered EventType = "phase_entered"
	EventCue          EventType = "cue"
	EventTick         EventType = "tick"
	EventStopped      EventType = "stopped"
)

// Event is delivered to subscribers.
type Event struct {
	Type     EventType
	Phase    Phase
	Cue      Cue
	Snapshot Snapshot
	At       time.Time
}

// Snapshot is a read-only copy of the runtime state.
type Snapshot struct {
	RunID       string
	Phase       Phase
	Remaining   int
	Round       int
	TotalRounds int
	Running     bool
	Config      Config
}

// Config is fixed for the duration of a run.
type Config struct {
	WorkSeconds   int
	RestSeconds   int
	TotalRounds   int
	WarmupSeconds int
}

// DefaultConfig returns 30s work, 15s rest, 12 rounds and a 10s warm-up.
func DefaultConfig() Config {
	return Config{
		WorkSeconds:   30,
		RestSeconds:   15,
		TotalRounds:   12,
		WarmupSeconds: 10,
	}
}

// Validate checks the engine's own contract. User-facing range limits
// (durations of at least one second) are enforced by the config package.
func (c Config) Validate() error {
	if c.TotalRounds < 1 {
		return fmt.Errorf("%w: total rounds %d < 1", ErrInvalidConfig, c.TotalRounds)
	}
	if c.WorkSeconds < 0 || c.RestSeconds < 0 || c.WarmupSeconds < 0 {
		return fmt.Errorf("%w: negative duration", ErrInvalidConfig)
	}
	return nil
}

// TotalSeconds is the number of ticks a full run takes. A zero-length phase
// still takes the one tick that leaves it.
func (c Config) TotalSeconds() int {
	return phaseTicks(c.WarmupSeconds) + c.TotalRounds*phaseTicks(c.WorkSeconds) + (c.TotalRounds-1)*phaseTicks(c.RestSeconds)
}

func phaseTicks(seconds int) int {
	return max(seconds, 1)
}

// Policy holds the tunable cue and idle-display choices.
type Policy struct {
	// CountdownSeconds is how many seconds before the end of a warm-up or
	// rest phase the countdown cue starts.
	CountdownSeconds int
	// IdleRound is the round value reported while idle (0 or 1).
	IdleRound int
	// WorkStartCue plays a cue when a work interval begins.
	WorkStartCue bool
	// RoundEndCue plays a cue when a non-final work interval ends.
	RoundEndCue bool
}

// DefaultPolicy returns a three second countdown, idle round 1, and both
// work-start and round-end cues enabled.
func DefaultPolicy() Policy {
	return Policy{
		CountdownSeconds: 3,
		IdleRound:        1,
		WorkStartCue:     true,
		RoundEndCue:      true,
	}
}
