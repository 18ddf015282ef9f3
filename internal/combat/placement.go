package combat

import "sort"

// Bench is one team's pre-battle roster: a fixed list of unit slots and the
// cells the player has dropped them on.
type Bench struct {
	Team  Team
	grid  Grid
	Slots []UnitSpec
	at    map[int]Pos // slot -> cell
}

type Placement struct {
	Slot int      `json:"slot"`
	Pos  Pos      `json:"pos"`
	Unit UnitSpec `json:"unit"`
}

func NewBench(team Team, grid Grid, slots []UnitSpec) *Bench {
	return &Bench{Team: team, grid: grid, Slots: slots, at: map[int]Pos{}}
}

func (b *Bench) slotAt(p Pos) (int, bool) {
	for s, q := range b.at {
		if q == p {
			return s, true
		}
	}
	return 0, false
}

// Place drops slot on p. It fails outside the team's zone, on a taken
// cell, or for a slot that is unknown or already on the board.
func (b *Bench) Place(slot int, p Pos) bool {
	if slot < 0 || slot >= len(b.Slots) {
		return false
	}
	if _, used := b.at[slot]; used {
		return false
	}
	if !b.grid.InBounds(p) || b.grid.ZoneOf(p.Y) != b.Team {
		return false
	}
	if _, taken := b.slotAt(p); taken {
		return false
	}
	b.at[slot] = p
	return true
}

// Unplace returns whatever stands on p to the bench.
func (b *Bench) Unplace(p Pos) bool {
	s, ok := b.slotAt(p)
	if !ok {
		return false
	}
	delete(b.at, s)
	return true
}

// Remaining is the number of slots still waiting on the bench.
func (b *Bench) Remaining() int { return len(b.Slots) - len(b.at) }

// Placements lists placed units in slot order.
func (b *Bench) Placements() []Placement {
	out := make([]Placement, 0, len(b.at))
	for s, p := range b.at {
		out = append(out, Placement{Slot: s, Pos: p, Unit: b.Slots[s]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Slot < out[j].Slot })
	return out
}

func (b *Bench) Clear() { b.at = map[int]Pos{} }
