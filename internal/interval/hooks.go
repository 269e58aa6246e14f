package interval

import "context"

// CuePlayer plays audible cues. Play must be safe to call rapidly and
// concurrently.
type CuePlayer interface {
	Prepare(ctx context.Context) error
	Play(cue Cue) error
}

// WakeLock keeps the device awake while a session runs. Both calls must be
// idempotent.
type WakeLock interface {
	Acquire() error
	Release() error
}

// OrientationLock pins the display orientation while a session runs. Both
// calls must be idempotent.
type OrientationLock interface {
	Lock() error
	Unlock() error
}

type nopPlayer struct{}

func (nopPlayer) Prepare(context.Context) error { return nil }
func (nopPlayer) Play(Cue) error                { return nil }

type nopWakeLock struct{}

func (nopWakeLock) Acquire() error { return nil }
func (nopWakeLock) Release() error { return nil }

type nopOrientation struct{}

func (nopOrientation) Lock() error   { return nil }
func (nopOrientation) Unlock() error { return nil }
