package combat

import (
	"io"
	"log/slog"
	"sort"
	"time"
)

// Clock supplies the time used for attack cooldowns.
type Clock interface {
	Now() time.Duration
}

type ClockFunc func() time.Duration

func (f ClockFunc) Now() time.Duration { return f() }

type BattleOptions struct {
	TickInterval  time.Duration // logical length of one tick, drives the default clock
	LockTicks     int           // how long a target lock survives without progress
	MaxTicks      int           // stalemate guard, 0 disables
	MoveLockTicks int           // extra ticks a unit stays put after moving
	Clock         Clock
	Logger        *slog.Logger
}

// Battle is one round of simulation: the unit arena, fairness state and
// tick history. It is not safe for concurrent use; Match serialises access.
type Battle struct {
	grid  Grid
	units map[UnitID]*Unit
	order []UnitID // live ids, ascending

	tick          int
	interval      time.Duration
	lockTicks     int
	maxTicks      int
	moveLockTicks int
	clock         Clock

	fair    *Fairness
	history []TickRecord
	log     *slog.Logger

	occ map[Pos]UnitID // start-of-tick occupancy
}

func NewBattle(grid Grid, units []*Unit, opts BattleOptions) *Battle {
	b := &Battle{
		grid:          grid,
		units:         make(map[UnitID]*Unit, len(units)),
		interval:      opts.TickInterval,
		lockTicks:     opts.LockTicks,
		maxTicks:      opts.MaxTicks,
		moveLockTicks: opts.MoveLockTicks,
		clock:         opts.Clock,
		fair:          NewFairness(),
		log:           opts.Logger,
	}
	if b.interval <= 0 {
		b.interval = 500 * time.Millisecond
	}
	if b.log == nil {
		b.log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if b.clock == nil {
		b.clock = ClockFunc(func() time.Duration { return time.Duration(b.tick) * b.interval })
	}
	taken := map[Pos]bool{}
	for _, u := range units {
		if u == nil || !u.Alive() || !grid.InBounds(u.Pos) || taken[u.Pos] {
			continue
		}
		if _, dup := b.units[u.ID]; dup {
			continue
		}
		taken[u.Pos] = true
		cp := u.clone()
		if cp.HP > cp.MaxHP {
			cp.HP = cp.MaxHP
		}
		b.units[cp.ID] = cp
		b.order = append(b.order, cp.ID)
	}
	sort.Slice(b.order, func(i, j int) bool { return b.order[i] < b.order[j] })
	b.occ = b.occupancy()
	return b
}

func (b *Battle) Grid() Grid { return b.grid }

func (b *Battle) Tick() int { return b.tick }

func (b *Battle) Fairness() *Fairness { return b.fair }

// occupancy is derived from live positions, never stored between ticks.
func (b *Battle) occupancy() map[Pos]UnitID {
	occ := make(map[Pos]UnitID, len(b.order))
	for _, id := range b.order {
		occ[b.units[id].Pos] = id
	}
	return occ
}

// Unit returns a copy of a live unit.
func (b *Battle) Unit(id UnitID) (Unit, bool) {
	u := b.units[id]
	if u == nil {
		return Unit{}, false
	}
	return *u, true
}

func (b *Battle) Units() []UnitSnapshot { return b.snapshot() }

func (b *Battle) History() []TickRecord {
	return append([]TickRecord(nil), b.history...)
}

// SelectTarget previews u's pick for the coming tick without touching its
// lock state. Invisibility and lock age are judged as of that tick.
func (b *Battle) SelectTarget(id UnitID) (Unit, bool) {
	u := b.units[id]
	if u == nil {
		return Unit{}, false
	}
	b.tick++
	defer func() { b.tick-- }()
	b.occ = b.occupancy()
	t := b.selectTarget(u.clone())
	if t == nil {
		return Unit{}, false
	}
	return *t, true
}

func (b *Battle) CanAttack(attacker, target UnitID) bool {
	return CanAttack(b.units[attacker], b.units[target])
}

// SetUnitState records what the presentation layer is doing with a unit.
// Anything other than StateIdle keeps the unit out of the next tick.
func (b *Battle) SetUnitState(id UnitID, st UnitState) bool {
	u := b.units[id]
	if u == nil {
		return false
	}
	u.State = st
	return true
}

type Outcome struct {
	Over   bool
	Draw   bool
	Winner Team
}

func (b *Battle) Outcome() Outcome {
	var alive [2]int
	for _, id := range b.order {
		alive[b.units[id].Team]++
	}
	switch {
	case alive[TeamA] == 0 && alive[TeamB] == 0:
		return Outcome{Over: true, Draw: true}
	case alive[TeamA] == 0:
		return Outcome{Over: true, Winner: TeamB}
	case alive[TeamB] == 0:
		return Outcome{Over: true, Winner: TeamA}
	case b.maxTicks > 0 && b.tick >= b.maxTicks:
		return Outcome{Over: true, Draw: true}
	}
	return Outcome{}
}

// AdvanceTick runs exactly one resolution cycle: targets and intents from
// the start-of-tick snapshot, move resolution, attacks then moves, history.
func (b *Battle) AdvanceTick() TickRecord {
	b.tick++
	now := b.clock.Now()
	b.occ = b.occupancy()

	var planned []plannedAttack
	var intents []*MoveIntent
	for _, id := range b.order {
		u := b.units[id]
		if u.State != StateIdle {
			continue
		}
		t := b.selectTarget(u)
		if t == nil {
			continue
		}
		if u.canAttackFrom(u.Pos, t.Pos) {
			if u.ready(now) {
				planned = append(planned, plannedAttack{attacker: u.ID, target: t.ID})
			}
			continue
		}
		if !u.ready(now) || b.tick < u.MoveLockUntil {
			continue
		}
		if in := b.buildIntent(u, t); in != nil {
			intents = append(intents, in)
		}
	}

	moves := b.resolve(intents)
	rec := b.execute(planned, moves, now)
	b.history = append(b.history, rec)
	return rec
}
