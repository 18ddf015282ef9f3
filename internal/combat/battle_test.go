package combat

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func attacksBy(rec TickRecord, id UnitID) []Attack {
	var out []Attack
	for _, a := range rec.Attacks {
		if a.Attacker == id {
			out = append(out, a)
		}
	}
	return out
}

func TestAdvanceTowardLoneEnemyThenAttack(t *testing.T) {
	enemy := pinned(melee(2, TeamB, 3, 0))
	enemy.Power = 5
	b := newTestBattle(t, melee(1, TeamA, 0, 0), enemy)

	rec := b.AdvanceTick()
	assert.Equal(t, []Move{{Unit: 1, From: Pos{0, 0}, To: Pos{1, 0}}}, rec.Moves)
	assert.Empty(t, rec.Attacks)

	rec = b.AdvanceTick()
	assert.Equal(t, []Move{{Unit: 1, From: Pos{1, 0}, To: Pos{2, 0}}}, rec.Moves)
	assert.Empty(t, rec.Attacks)

	rec = b.AdvanceTick()
	assert.Empty(t, rec.Moves)
	require.Len(t, rec.Attacks, 2)
	assert.Equal(t, Attack{Attacker: 1, Target: 2, Damage: 10, TargetHP: 90}, rec.Attacks[0])
	assert.Equal(t, Attack{Attacker: 2, Target: 1, Damage: 5, TargetHP: 95}, rec.Attacks[1])

	assert.Equal(t, 3, rec.Tick)
	assert.Len(t, b.History(), 3)
	assert.False(t, b.Outcome().Over)
}

func TestDuelOnlyOneSideSteps(t *testing.T) {
	b := newTestBattle(t, melee(1, TeamA, 2, 2), melee(2, TeamB, 2, 5))

	// tick 1 is odd: team B has the initiative
	rec := b.AdvanceTick()
	assert.Equal(t, []Move{{Unit: 2, From: Pos{2, 5}, To: Pos{2, 4}}}, rec.Moves)
	assert.Equal(t, 1, b.Fairness().Streak(1))

	// the denied unit now outranks the other for the shared cell, and
	// cannot be pushed off it onto a worse one
	rec = b.AdvanceTick()
	assert.Contains(t, rec.Moves, Move{Unit: 1, From: Pos{2, 2}, To: Pos{2, 3}})
	assert.Equal(t, 0, b.Fairness().Streak(1))
	for _, mv := range rec.Moves {
		if mv.Unit == 2 {
			assert.NotEqual(t, Pos{2, 3}, mv.To)
		}
	}
}

func TestAttackCooldown(t *testing.T) {
	a := melee(1, TeamA, 2, 2)
	a.Cooldown = time.Second
	dummy := pinned(melee(2, TeamB, 2, 3))
	dummy.Power = 0
	b := newTestBattle(t, a, dummy)

	var landed []int
	for i := 0; i < 5; i++ {
		rec := b.AdvanceTick()
		if len(attacksBy(rec, 1)) > 0 {
			landed = append(landed, rec.Tick)
		}
		assert.Empty(t, rec.Moves, "waiting on cooldown never moves a unit in range")
	}
	assert.Equal(t, []int{1, 3, 5}, landed)

	got, ok := b.Unit(2)
	require.True(t, ok)
	assert.Equal(t, 70, got.HP)
}

func TestCustomClock(t *testing.T) {
	a := melee(1, TeamA, 2, 2)
	a.Cooldown = time.Second
	dummy := pinned(melee(2, TeamB, 2, 3))
	dummy.Power = 0
	b := NewBattle(board58, []*Unit{a, dummy}, BattleOptions{
		Clock: ClockFunc(func() time.Duration { return 0 }),
	})

	assert.Len(t, attacksBy(b.AdvanceTick(), 1), 1)
	assert.Empty(t, attacksBy(b.AdvanceTick(), 1), "frozen clock never clears the cooldown")
}

func TestBusyUnitSitsOut(t *testing.T) {
	dummy := pinned(melee(2, TeamB, 2, 3))
	dummy.Power = 0
	b := newTestBattle(t, melee(1, TeamA, 2, 2), dummy)

	require.True(t, b.SetUnitState(1, StateAttacking))
	rec := b.AdvanceTick()
	assert.Empty(t, attacksBy(rec, 1))
	assert.Len(t, attacksBy(rec, 2), 1)

	require.True(t, b.SetUnitState(1, StateIdle))
	rec = b.AdvanceTick()
	assert.Len(t, attacksBy(rec, 1), 1)

	assert.False(t, b.SetUnitState(42, StateIdle))
}

func TestSimultaneousAttacksAndDeath(t *testing.T) {
	a := melee(1, TeamA, 2, 2)
	a.Power = 100
	b := newTestBattle(t, a, melee(2, TeamB, 2, 3))

	rec := b.AdvanceTick()
	require.Len(t, rec.Attacks, 2)
	assert.True(t, rec.Attacks[0].Killed)
	assert.Equal(t, Attack{Attacker: 2, Target: 1, Damage: 10, TargetHP: 90}, rec.Attacks[1],
		"a unit killed this tick still lands its hit")

	require.Len(t, rec.Units, 1)
	assert.Equal(t, UnitID(1), rec.Units[0].ID)
	_, ok := b.Unit(2)
	assert.False(t, ok)

	u := b.units[1]
	assert.Zero(t, u.LockTarget, "locks on removed units are cleared")
	assert.Equal(t, Outcome{Over: true, Winner: TeamA}, b.Outcome())
}

func TestMutualKillIsDraw(t *testing.T) {
	a := melee(1, TeamA, 2, 2)
	a.Power = 100
	e := melee(2, TeamB, 2, 3)
	e.Power = 100
	b := newTestBattle(t, a, e)

	rec := b.AdvanceTick()
	assert.Empty(t, rec.Units)
	assert.Equal(t, Outcome{Over: true, Draw: true}, b.Outcome())
}

func TestDeadUnitsDoNotMove(t *testing.T) {
	archer := pinned(ranged(2, TeamB, 0, 4, 3))
	archer.Power = 100
	b := newTestBattle(t, melee(1, TeamA, 0, 1), archer)

	rec := b.AdvanceTick()
	assert.Empty(t, rec.Moves)
	require.Len(t, rec.Attacks, 1)
	assert.True(t, rec.Attacks[0].Killed)
	assert.Len(t, rec.Units, 1)
}

func TestMaxTicksDraw(t *testing.T) {
	a := pinned(melee(1, TeamA, 0, 0))
	e := pinned(melee(2, TeamB, 4, 7))
	b := NewBattle(board58, []*Unit{a, e}, BattleOptions{MaxTicks: 3})

	for i := 0; i < 2; i++ {
		b.AdvanceTick()
		assert.False(t, b.Outcome().Over)
	}
	b.AdvanceTick()
	assert.Equal(t, Outcome{Over: true, Draw: true}, b.Outcome())
}

func TestMoveLockTicks(t *testing.T) {
	enemy := pinned(melee(2, TeamB, 4, 0))
	b := NewBattle(board58, []*Unit{melee(1, TeamA, 0, 0), enemy}, BattleOptions{MoveLockTicks: 1})

	assert.Len(t, b.AdvanceTick().Moves, 1)
	assert.Empty(t, b.AdvanceTick().Moves, "locked for one tick after moving")
	assert.Len(t, b.AdvanceTick().Moves, 1)
}

func TestNewBattleSkipsInvalidUnits(t *testing.T) {
	dead := melee(3, TeamB, 1, 1)
	dead.HP = 0
	over := melee(5, TeamB, 4, 7)
	over.HP = 500

	b := NewBattle(board58, []*Unit{
		melee(2, TeamA, 0, 0),
		nil,
		dead,
		melee(4, TeamB, 0, 0), // cell taken
		melee(2, TeamB, 3, 3), // id taken
		melee(6, TeamB, 9, 9), // off board
		over,
	}, BattleOptions{})

	units := b.Units()
	require.Len(t, units, 2)
	assert.Equal(t, UnitID(2), units[0].ID)
	assert.Equal(t, UnitID(5), units[1].ID)
	assert.Equal(t, 100, units[1].HP)
}

func TestNewBattleCopiesUnits(t *testing.T) {
	a := melee(1, TeamA, 0, 0)
	b := newTestBattle(t, a, pinned(melee(2, TeamB, 3, 0)))
	b.AdvanceTick()
	assert.Equal(t, Pos{0, 0}, a.Pos)
	got, _ := b.Unit(1)
	assert.Equal(t, Pos{1, 0}, got.Pos)
}

func TestSelectTargetPreviewLeavesLock(t *testing.T) {
	b := newTestBattle(t, melee(1, TeamA, 2, 2), melee(2, TeamB, 2, 5))
	got, ok := b.SelectTarget(1)
	require.True(t, ok)
	assert.Equal(t, UnitID(2), got.ID)
	assert.Zero(t, b.units[1].LockTarget)

	_, ok = b.SelectTarget(9)
	assert.False(t, ok)

	assert.False(t, b.CanAttack(1, 2))
	assert.False(t, b.CanAttack(1, 9))
}

func TestSelectTargetPreviewsNextTick(t *testing.T) {
	hidden := pinned(melee(2, TeamB, 2, 5))
	hidden.InvisibleUntil = 1
	b := newTestBattle(t, melee(1, TeamA, 2, 2), hidden)

	got, ok := b.SelectTarget(1)
	require.True(t, ok, "visible again on the tick the preview is for")
	assert.Equal(t, UnitID(2), got.ID)
	assert.Zero(t, b.Tick())

	rec := b.AdvanceTick()
	assert.Equal(t, []Move{{Unit: 1, From: Pos{2, 2}, To: Pos{2, 3}}}, rec.Moves)
}

func TestHistoryRecordsAreIndependent(t *testing.T) {
	b := newTestBattle(t, melee(1, TeamA, 0, 0), pinned(melee(2, TeamB, 3, 0)))
	first := b.AdvanceTick()
	b.AdvanceTick()

	h := b.History()
	require.Len(t, h, 2)
	assert.Equal(t, first, h[0])
	assert.Equal(t, Pos{1, 0}, h[0].Board()[Pos{1, 0}].Pos)
	assert.Equal(t, Pos{2, 0}, h[1].Units[0].Pos)
}
