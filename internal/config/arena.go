package config

import (
	"errors"
	"fmt"
	"time"
)

type Arena struct {
	Board Board     `yaml:"board" json:"board"`
	Rules Rules     `yaml:"rules" json:"rules"`
	Units []UnitDef `yaml:"units" json:"units"`
	Teams Teams     `yaml:"teams" json:"teams"`
}

type Board struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

type Rules struct {
	Rounds        int      `yaml:"rounds" json:"rounds"`
	TickInterval  Duration `yaml:"tick_interval" json:"tick_interval"`
	LockTicks     int      `yaml:"lock_ticks" json:"lock_ticks"`
	MaxTicks      int      `yaml:"max_ticks" json:"max_ticks"`
	MoveLockTicks int      `yaml:"move_lock_ticks" json:"move_lock_ticks"`
}

type Teams struct {
	A TeamDef `yaml:"a" json:"a"`
	B TeamDef `yaml:"b" json:"b"`
}

type TeamDef struct {
	Bench      []string       `yaml:"bench" json:"bench"` // unit ids, one slot each
	Placements []PlacementDef `yaml:"placements" json:"placements"`
}

type PlacementDef struct {
	Slot int    `yaml:"slot" json:"slot"`
	At   [2]int `yaml:"at" json:"at"` // x, y
}

const (
	DefaultWidth        = 5
	DefaultHeight       = 8
	DefaultRounds       = 3
	DefaultTickInterval = 500 * time.Millisecond
	DefaultLockTicks    = 4
	DefaultMaxTicks     = 300
	DefaultMaxHP        = 100
	DefaultPower        = 10
	DefaultCooldown     = time.Second
)

// ApplyDefaults fills zero values the way an empty section is meant to read.
func (a *Arena) ApplyDefaults() {
	if a.Board.Width == 0 {
		a.Board.Width = DefaultWidth
	}
	if a.Board.Height == 0 {
		a.Board.Height = DefaultHeight
	}
	if a.Rules.Rounds == 0 {
		a.Rules.Rounds = DefaultRounds
	}
	if a.Rules.TickInterval == 0 {
		a.Rules.TickInterval = Duration(DefaultTickInterval)
	}
	if a.Rules.LockTicks == 0 {
		a.Rules.LockTicks = DefaultLockTicks
	}
	if a.Rules.MaxTicks == 0 {
		a.Rules.MaxTicks = DefaultMaxTicks
	}
	for i := range a.Units {
		u := &a.Units[i]
		if u.Name == "" {
			u.Name = u.ID
		}
		if u.Archetype == "" {
			u.Archetype = "melee"
		}
		if u.MaxHP == 0 {
			u.MaxHP = DefaultMaxHP
		}
		if u.Power == 0 {
			u.Power = DefaultPower
		}
		if u.Range == 0 {
			u.Range = 1
		}
		if u.Cooldown == 0 {
			u.Cooldown = Duration(DefaultCooldown)
		}
	}
}

func (a *Arena) Unit(id string) (UnitDef, bool) {
	for _, u := range a.Units {
		if u.ID == id {
			return u, true
		}
	}
	return UnitDef{}, false
}

// Validate rejects arenas the simulation must never be handed. Zone and
// duplicate-cell rules are checked later by placement itself.
func (a *Arena) Validate() error {
	var errs []error
	if a.Board.Width <= 0 || a.Board.Height < 2 {
		errs = append(errs, fmt.Errorf("board %dx%d too small", a.Board.Width, a.Board.Height))
	}
	if a.Rules.Rounds < 1 {
		errs = append(errs, fmt.Errorf("rounds must be positive, got %d", a.Rules.Rounds))
	}
	seen := map[string]bool{}
	for _, u := range a.Units {
		if u.ID == "" {
			errs = append(errs, errors.New("unit without id"))
			continue
		}
		if seen[u.ID] {
			errs = append(errs, fmt.Errorf("duplicate unit id %q", u.ID))
		}
		seen[u.ID] = true
		if u.Archetype != "melee" && u.Archetype != "ranged" {
			errs = append(errs, fmt.Errorf("unit %q: unknown archetype %q", u.ID, u.Archetype))
		}
		if u.MaxHP <= 0 || u.Power < 0 || u.Range < 1 {
			errs = append(errs, fmt.Errorf("unit %q: invalid stats", u.ID))
		}
	}
	for name, td := range map[string]TeamDef{"a": a.Teams.A, "b": a.Teams.B} {
		for _, id := range td.Bench {
			if !seen[id] {
				errs = append(errs, fmt.Errorf("team %s: bench references unknown unit %q", name, id))
			}
		}
		for _, p := range td.Placements {
			if p.Slot < 0 || p.Slot >= len(td.Bench) {
				errs = append(errs, fmt.Errorf("team %s: placement slot %d out of range", name, p.Slot))
			}
		}
	}
	return errors.Join(errs...)
}
