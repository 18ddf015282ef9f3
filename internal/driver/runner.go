package driver

import (
	"context"
	"log/slog"
	"time"

	"autobattler/internal/combat"
)

// Steppable is the slice of *combat.Match the runner drives.
type Steppable interface {
	AdvanceTick() (combat.TickRecord, bool)
	StartBattle() bool
	Summary() combat.Summary
}

// Runner paces ticks on the wall clock. The core only advances when asked;
// everything time-related lives here.
type Runner struct {
	Match    Steppable
	Interval time.Duration
	// AutoNextRound starts the next battle as soon as a round ends instead
	// of waiting in placement.
	AutoNextRound bool
	OnTick        func(combat.TickRecord)
	Logger        *slog.Logger
}

// Run ticks until the match finishes, the match idles in placement, or ctx
// is cancelled. Cancellation stops before the next pending tick.
func (r *Runner) Run(ctx context.Context) error {
	log := r.Logger
	if log == nil {
		log = slog.Default()
	}
	iv := r.Interval
	if iv <= 0 {
		iv = 500 * time.Millisecond
	}
	ticker := time.NewTicker(iv)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Debug("runner cancelled", "err", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		switch s := r.Match.Summary(); s.Phase {
		case combat.PhaseFinished:
			return nil
		case combat.PhasePlacement:
			if !r.AutoNextRound || !r.Match.StartBattle() {
				log.Debug("runner idle in placement", "round", s.Round)
				return nil
			}
			continue
		}
		rec, ok := r.Match.AdvanceTick()
		if !ok {
			continue
		}
		if r.OnTick != nil {
			r.OnTick(rec)
		}
	}
}
