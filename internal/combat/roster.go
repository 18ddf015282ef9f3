package combat

import (
	"fmt"
	"time"

	"autobattler/internal/config"
)

// UnitSpec is a unit kind from the arena catalog. Benches hold specs; live
// units are stamped out of them when a battle starts.
type UnitSpec struct {
	Key            string        `json:"key"`
	Name           string        `json:"name"`
	Archetype      Archetype     `json:"archetype"`
	MaxHP          int           `json:"max_hp"`
	Power          int           `json:"power"`
	Range          int           `json:"range"`
	Cooldown       time.Duration `json:"cooldown"`
	Taunt          bool          `json:"taunt,omitempty"`
	InvisibleTicks int           `json:"invisible_ticks,omitempty"`
}

// Instantiate builds a fresh live unit at p facing the enemy baseline.
func (s UnitSpec) Instantiate(id UnitID, team Team, p Pos) *Unit {
	u := &Unit{
		ID:        id,
		Name:      s.Name,
		Team:      team,
		Archetype: s.Archetype,
		Pos:       p,
		Facing:    FacingDown,
		HP:        s.MaxHP,
		MaxHP:     s.MaxHP,
		Power:     s.Power,
		Range:     s.Range,
		Taunt:     s.Taunt,
		Cooldown:  s.Cooldown,
	}
	if team == TeamB {
		u.Facing = FacingUp
	}
	if s.InvisibleTicks > 0 {
		u.InvisibleUntil = s.InvisibleTicks + 1
	}
	return u
}

type UnitBook struct {
	byKey map[string]UnitSpec
}

func NewUnitBook(defs []config.UnitDef) (*UnitBook, error) {
	ub := &UnitBook{byKey: make(map[string]UnitSpec, len(defs))}
	for _, d := range defs {
		var arch Archetype
		if err := arch.UnmarshalText([]byte(d.Archetype)); err != nil {
			return nil, fmt.Errorf("unit %q: %w", d.ID, err)
		}
		name := d.Name
		if name == "" {
			name = d.ID
		}
		ub.byKey[d.ID] = UnitSpec{
			Key:            d.ID,
			Name:           name,
			Archetype:      arch,
			MaxHP:          d.MaxHP,
			Power:          d.Power,
			Range:          d.Range,
			Cooldown:       d.Cooldown.Std(),
			Taunt:          d.Taunt,
			InvisibleTicks: d.InvisibleTicks,
		}
	}
	return ub, nil
}

func (ub *UnitBook) Spec(key string) (UnitSpec, bool) {
	if ub == nil {
		return UnitSpec{}, false
	}
	s, ok := ub.byKey[key]
	return s, ok
}

func (ub *UnitBook) Bench(team Team, grid Grid, keys []string) (*Bench, error) {
	specs := make([]UnitSpec, 0, len(keys))
	for _, k := range keys {
		s, ok := ub.Spec(k)
		if !ok {
			return nil, fmt.Errorf("team %s: unknown unit %q", team, k)
		}
		specs = append(specs, s)
	}
	return NewBench(team, grid, specs), nil
}

// NewMatchFromConfig builds a match in placement phase with the arena's
// pre-set placements applied.
func NewMatchFromConfig(a *config.Arena, emit func(Event), opts BattleOptions) (*Match, error) {
	book, err := NewUnitBook(a.Units)
	if err != nil {
		return nil, err
	}
	grid := Grid{Width: a.Board.Width, Height: a.Board.Height}
	opts.TickInterval = a.Rules.TickInterval.Std()
	opts.LockTicks = a.Rules.LockTicks
	opts.MaxTicks = a.Rules.MaxTicks
	opts.MoveLockTicks = a.Rules.MoveLockTicks

	m := NewMatch(grid, a.Rules.Rounds, opts, emit)
	for _, side := range []struct {
		team Team
		def  config.TeamDef
	}{{TeamA, a.Teams.A}, {TeamB, a.Teams.B}} {
		bench, err := book.Bench(side.team, grid, side.def.Bench)
		if err != nil {
			return nil, err
		}
		m.benches[side.team] = bench
		for _, p := range side.def.Placements {
			at := Pos{X: p.At[0], Y: p.At[1]}
			if !m.Place(side.team, p.Slot, at) {
				return nil, fmt.Errorf("team %s: cannot place slot %d at %s", side.team, p.Slot, at)
			}
		}
	}
	return m, nil
}
