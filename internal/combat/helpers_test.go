package combat

import "testing"

var board58 = Grid{Width: 5, Height: 8}

func melee(id UnitID, team Team, x, y int) *Unit {
	return &Unit{
		ID: id, Name: "melee", Team: team, Archetype: Melee,
		Pos: Pos{x, y}, HP: 100, MaxHP: 100, Power: 10, Range: 1,
	}
}

func ranged(id UnitID, team Team, x, y, rng int) *Unit {
	return &Unit{
		ID: id, Name: "ranged", Team: team, Archetype: Ranged,
		Pos: Pos{x, y}, HP: 100, MaxHP: 100, Power: 10, Range: rng,
	}
}

// pinned keeps u from ever building a move intent.
func pinned(u *Unit) *Unit {
	u.MoveLockUntil = 1 << 20
	return u
}

func newTestBattle(t *testing.T, units ...*Unit) *Battle {
	t.Helper()
	return NewBattle(board58, units, BattleOptions{LockTicks: 4, MaxTicks: 300})
}

// prime prepares b for calling per-unit helpers directly, as AdvanceTick
// would at the start of tick.
func prime(b *Battle, tick int) {
	b.tick = tick
	b.occ = b.occupancy()
}
