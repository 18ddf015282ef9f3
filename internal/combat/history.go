package combat

import (
	"encoding/json"
	"fmt"
)

type UnitSnapshot struct {
	ID        UnitID    `json:"id"`
	Name      string    `json:"name"`
	Team      Team      `json:"team"`
	Archetype Archetype `json:"archetype"`
	Pos       Pos       `json:"pos"`
	Facing    Facing    `json:"facing"`
	HP        int       `json:"hp"`
	MaxHP     int       `json:"max_hp"`
}

// TickRecord is self-contained: the post-tick roster plus the moves and
// attacks that produced it. Records are never mutated after append.
type TickRecord struct {
	Tick    int            `json:"tick"`
	Moves   []Move         `json:"moves"`
	Attacks []Attack       `json:"attacks"`
	Units   []UnitSnapshot `json:"units"`
}

func snapshotOf(u *Unit) UnitSnapshot {
	return UnitSnapshot{
		ID: u.ID, Name: u.Name, Team: u.Team, Archetype: u.Archetype,
		Pos: u.Pos, Facing: u.Facing, HP: u.HP, MaxHP: u.MaxHP,
	}
}

func (b *Battle) snapshot() []UnitSnapshot {
	out := make([]UnitSnapshot, 0, len(b.order))
	for _, id := range b.order {
		out = append(out, snapshotOf(b.units[id]))
	}
	return out
}

// Board rebuilds the occupancy of a record without touching the simulation.
func (r TickRecord) Board() map[Pos]UnitSnapshot {
	out := make(map[Pos]UnitSnapshot, len(r.Units))
	for _, u := range r.Units {
		out[u.Pos] = u
	}
	return out
}

// RoundLog is one finished battle as written by simsvc.
type RoundLog struct {
	Round   int            `json:"round"`
	Winner  string         `json:"winner"` // "A", "B" or "Draw"
	Init    []UnitSnapshot `json:"init"`
	History []TickRecord   `json:"history"`
}

// Replay is the file format shared by simsvc and the replay viewer.
type Replay struct {
	Grid    Grid       `json:"grid"`
	Rounds  []RoundLog `json:"rounds"`
	Summary Summary    `json:"summary"`
}

func (p Pos) String() string { return fmt.Sprintf("(%d,%d)", p.X, p.Y) }

func MarshalPretty(v any) []byte {
	b, _ := json.MarshalIndent(v, "", "  ")
	return b
}
