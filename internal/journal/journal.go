// Package journal records session lifecycle events as run history.
package journal

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/sadopc/bittimer/internal/interval"
	"github.com/sadopc/bittimer/internal/store"
)

// RunStore is the part of the store the recorder writes to.
type RunStore interface {
	StartRun(runID string, workSeconds, restSeconds, totalRounds, warmupSeconds int) (*store.Run, error)
	IncrementRun(runID string) error
	CompleteRun(runID string) error
	CancelRun(runID string) error
}

// Recorder turns session events into run rows.
type Recorder struct {
	store RunStore
	log   zerolog.Logger

	// OnRecorded, when set, is called after an event has been written.
	OnRecorded func(interval.Event)
}

func NewRecorder(s RunStore, log zerolog.Logger) *Recorder {
	return &Recorder{
		store: s,
		log:   log.With().Str("component", "journal").Logger(),
	}
}

// Run consumes events until the channel is closed or ctx is done.
func (r *Recorder) Run(ctx context.Context, events <-chan interval.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := r.Handle(ev); err != nil {
				r.log.Warn().Err(err).Str("run", ev.Snapshot.RunID).Str("event", string(ev.Type)).Msg("record run")
				continue
			}
			if r.OnRecorded != nil && Writes(ev) {
				r.OnRecorded(ev)
			}
		}
	}
}

// Writes reports whether Handle stores anything for ev.
func Writes(ev interval.Event) bool {
	if ev.Snapshot.RunID == "" {
		return false
	}
	switch ev.Type {
	case interval.EventStopped:
		return true
	case interval.EventPhaseEntered:
		switch ev.Phase {
		case interval.PhaseWarmup, interval.PhaseRest, interval.PhaseFinished:
			return true
		}
	}
	return false
}

// Handle applies a single event. Events that carry no run are ignored.
func (r *Recorder) Handle(ev interval.Event) error {
	runID := ev.Snapshot.RunID
	if runID == "" {
		return nil
	}

	switch ev.Type {
	case interval.EventPhaseEntered:
		switch ev.Phase {
		case interval.PhaseWarmup:
			cfg := ev.Snapshot.Config
			_, err := r.store.StartRun(runID, cfg.WorkSeconds, cfg.RestSeconds, cfg.TotalRounds, cfg.WarmupSeconds)
			return err
		case interval.PhaseRest:
			return r.store.IncrementRun(runID)
		case interval.PhaseFinished:
			return r.store.CompleteRun(runID)
		}
	case interval.EventStopped:
		return r.store.CancelRun(runID)
	}
	return nil
}
