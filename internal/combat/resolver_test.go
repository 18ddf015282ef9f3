package combat

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

// testMover wants to leave from for any of to, each improving by one.
func testMover(id UnitID, team Team, from Pos, streak int, to ...Pos) *mover {
	u := melee(id, team, from.X, from.Y)
	in := &MoveIntent{Unit: id, From: from, Proposal: -1}
	for _, p := range to {
		in.Candidates = append(in.Candidates, Candidate{To: p, Delta: 1})
	}
	return &mover{intent: in, unit: u, edges: edgesFor(in), streak: streak}
}

func occupancyOf(ms []*mover, still ...Pos) map[Pos]UnitID {
	occ := map[Pos]UnitID{}
	for _, m := range ms {
		occ[m.intent.From] = m.unit.ID
	}
	for i, p := range still {
		occ[p] = UnitID(100 + i)
	}
	return occ
}

func runResolver(ms []*mover, still ...Pos) []Move {
	ordered := append([]*mover(nil), ms...)
	orderMovers(ordered)
	return newResolver(ms, occupancyOf(ms, still...)).run(ordered)
}

func TestResolverChainFollows(t *testing.T) {
	// 1 steps into 2's cell while 2 steps forward
	ms := []*mover{
		testMover(1, TeamA, Pos{0, 0}, 0, Pos{0, 1}),
		testMover(2, TeamA, Pos{0, 1}, 0, Pos{0, 2}),
	}
	moves := runResolver(ms)
	assert.Equal(t, []Move{
		{Unit: 1, From: Pos{0, 0}, To: Pos{0, 1}},
		{Unit: 2, From: Pos{0, 1}, To: Pos{0, 2}},
	}, moves)
}

func TestResolverNoDirectSwap(t *testing.T) {
	ms := []*mover{
		testMover(1, TeamA, Pos{0, 0}, 0, Pos{0, 1}),
		testMover(2, TeamA, Pos{0, 1}, 0, Pos{0, 0}),
	}
	assert.Empty(t, runResolver(ms))
}

func TestResolverNoSwapWhenOtherRouteExists(t *testing.T) {
	// 2 could swap with 1 or go sideways; the swap is never taken
	ms := []*mover{
		testMover(1, TeamA, Pos{0, 0}, 0, Pos{0, 1}),
		testMover(2, TeamA, Pos{0, 1}, 0, Pos{0, 0}, Pos{1, 1}),
	}
	moves := runResolver(ms)
	for _, a := range moves {
		for _, b := range moves {
			assert.False(t, a.From == b.To && a.To == b.From, "swap %v %v", a, b)
		}
	}
	assert.Contains(t, moves, Move{Unit: 2, From: Pos{0, 1}, To: Pos{1, 1}})
	assert.Contains(t, moves, Move{Unit: 1, From: Pos{0, 0}, To: Pos{0, 1}})
}

func TestResolverStationaryBlocks(t *testing.T) {
	ms := []*mover{testMover(1, TeamA, Pos{0, 0}, 0, Pos{0, 1})}
	assert.Empty(t, runResolver(ms, Pos{0, 1}))
}

func TestResolverAugmentsForPriority(t *testing.T) {
	// 1 goes first and grabs (1,1); 2 can only use (1,1), so 1 is
	// pushed onto its second choice.
	ms := []*mover{
		testMover(1, TeamA, Pos{1, 0}, 0, Pos{1, 1}, Pos{2, 0}),
		testMover(2, TeamA, Pos{0, 1}, 0, Pos{1, 1}),
	}
	moves := runResolver(ms)
	assert.Equal(t, []Move{
		{Unit: 1, From: Pos{1, 0}, To: Pos{2, 0}},
		{Unit: 2, From: Pos{0, 1}, To: Pos{1, 1}},
	}, moves)
}

func TestResolverKeepsHolderOnItsGain(t *testing.T) {
	// 2 holds (1,1); 1 could only take it by pushing 2 onto a losing cell
	hold := testMover(2, TeamA, Pos{0, 1}, 5, Pos{1, 1}, Pos{0, 0})
	hold.intent.Candidates[0].Free = true
	hold.intent.Candidates[1].Free = true
	hold.intent.Candidates[1].Delta = -1
	hold.edges = edgesFor(hold.intent)
	ms := []*mover{testMover(1, TeamA, Pos{1, 0}, 0, Pos{1, 1}), hold}

	moves := runResolver(ms)
	assert.Equal(t, []Move{{Unit: 2, From: Pos{0, 1}, To: Pos{1, 1}}}, moves)
}

func TestResolverContestGoesToHigherStreak(t *testing.T) {
	ms := []*mover{
		testMover(1, TeamA, Pos{1, 0}, 0, Pos{1, 1}),
		testMover(2, TeamA, Pos{0, 1}, 3, Pos{1, 1}),
	}
	moves := runResolver(ms)
	assert.Equal(t, []Move{{Unit: 2, From: Pos{0, 1}, To: Pos{1, 1}}}, moves)
}

func TestOrderMoversFairness(t *testing.T) {
	ms := []*mover{
		testMover(1, TeamA, Pos{0, 0}, 0, Pos{0, 1}),
		testMover(2, TeamA, Pos{1, 0}, 2, Pos{1, 1}),
		testMover(3, TeamA, Pos{2, 0}, 5, Pos{2, 1}),
		testMover(4, TeamA, Pos{3, 0}, 2, Pos{3, 1}),
	}
	ms[0].edges[0].Delta = 3
	orderMovers(ms)

	var ids []UnitID
	for _, m := range ms {
		ids = append(ids, m.unit.ID)
	}
	assert.Equal(t, []UnitID{3, 2, 4, 1}, ids, "streak beats any delta, id breaks ties")
}

func TestEdgesForOrdering(t *testing.T) {
	in := &MoveIntent{Candidates: []Candidate{
		{To: Pos{0, 0}, Delta: 1},
		{To: Pos{0, 1}, Delta: -1},
		{To: Pos{0, 2}, Delta: 0, Free: true},
		{To: Pos{0, 3}, Delta: -1, Proposed: true},
		{To: Pos{0, 4}, Delta: 1, AttackNext: true},
		{To: Pos{0, 5}, Delta: 1, Free: true, Backtrack: true},
	}}
	var got []Pos
	for _, e := range edgesFor(in) {
		got = append(got, e.To)
	}
	assert.Equal(t, []Pos{{0, 4}, {0, 2}, {0, 5}, {0, 3}, {0, 0}, {0, 1}}, got,
		"losing cells stay as last resorts")
}

func TestDuelWinner(t *testing.T) {
	a := testMover(1, TeamA, Pos{2, 2}, 0, Pos{2, 3})
	b := testMover(2, TeamB, Pos{2, 5}, 0, Pos{2, 4})

	assert.Same(t, a, duelWinner(board58, 2, a, b), "even tick: team A initiative")
	assert.Same(t, b, duelWinner(board58, 3, a, b), "odd tick: team B initiative")

	b.streak = 1
	assert.Same(t, b, duelWinner(board58, 2, a, b))

	b.streak = 0
	a.intent.From = Pos{2, 1}
	assert.Same(t, a, duelWinner(board58, 3, a, b), "less advanced unit moves")
}

func TestArbitrateDuelsExactlyOneKeepsEdges(t *testing.T) {
	a := testMover(1, TeamA, Pos{2, 2}, 0, Pos{2, 3})
	b := testMover(2, TeamB, Pos{2, 5}, 0, Pos{2, 4})
	require.True(t, mutuallyClosing(a, b))

	arbitrateDuels(board58, 4, []*mover{a, b}, quiet)
	assert.True(t, (len(a.edges) == 0) != (len(b.edges) == 0))
	assert.NotEmpty(t, a.edges)
}

func TestArbitrateDuelsIgnoresAllies(t *testing.T) {
	a := testMover(1, TeamA, Pos{2, 2}, 0, Pos{2, 3})
	b := testMover(2, TeamA, Pos{2, 5}, 0, Pos{2, 4})
	arbitrateDuels(board58, 4, []*mover{a, b}, quiet)
	assert.NotEmpty(t, a.edges)
	assert.NotEmpty(t, b.edges)
}

func TestResolveUpdatesFairness(t *testing.T) {
	b := newTestBattle(t,
		melee(1, TeamA, 1, 0),
		melee(2, TeamA, 0, 1),
		pinned(melee(3, TeamB, 4, 7)),
	)
	prime(b, 1)
	// both only want (1,1)
	in1 := &MoveIntent{Unit: 1, From: Pos{1, 0}, Target: 3, Proposal: 0,
		Candidates: []Candidate{{To: Pos{1, 1}, Free: true, Delta: 1, Proposed: true}}}
	in2 := &MoveIntent{Unit: 2, From: Pos{0, 1}, Target: 3, Proposal: 0,
		Candidates: []Candidate{{To: Pos{1, 1}, Free: true, Delta: 1, Proposed: true}}}

	moves := b.resolve([]*MoveIntent{in1, in2})
	assert.Equal(t, []Move{{Unit: 1, From: Pos{1, 0}, To: Pos{1, 1}}}, moves)
	assert.Equal(t, 0, b.fair.Streak(1))
	assert.Equal(t, 1, b.fair.Streak(2))
	last, ok := b.fair.LastPos(1)
	require.True(t, ok)
	assert.Equal(t, Pos{1, 0}, last)

	// next time the denied unit goes first
	moves = b.resolve([]*MoveIntent{in1, in2})
	assert.Equal(t, []Move{{Unit: 2, From: Pos{0, 1}, To: Pos{1, 1}}}, moves)
	assert.Equal(t, 0, b.fair.Streak(2))
	assert.Equal(t, 1, b.fair.Streak(1))
}

func TestResolveLoserSideSteps(t *testing.T) {
	b := newTestBattle(t,
		melee(1, TeamA, 2, 2),
		melee(2, TeamA, 1, 3),
		pinned(melee(3, TeamB, 2, 7)),
	)
	prime(b, 1)
	b.fair.denied[2] = 3

	inX := b.buildIntent(b.units[1], b.units[3])
	require.NotNil(t, inX)
	want, ok := inX.Proposed()
	require.True(t, ok)
	require.Equal(t, Pos{2, 3}, want.To)
	inY := &MoveIntent{Unit: 2, From: Pos{1, 3}, Target: 3, Proposal: 0,
		Candidates: []Candidate{{To: Pos{2, 3}, Free: true, Delta: 1, Proposed: true}}}

	moves := b.resolve([]*MoveIntent{inX, inY})
	require.Len(t, moves, 2)
	assert.Equal(t, Move{Unit: 2, From: Pos{1, 3}, To: Pos{2, 3}}, moves[1], "the starved unit gets the contested cell")
	assert.Equal(t, Pos{2, 2}, moves[0].From)
	assert.Contains(t, []Pos{{1, 2}, {3, 2}, {2, 1}}, moves[0].To)
	assert.Zero(t, b.fair.Streak(1), "a free side step is still a granted move")
}

func TestRetargetOnStallSwitchesTarget(t *testing.T) {
	b := newTestBattle(t,
		melee(1, TeamA, 2, 2),
		pinned(melee(2, TeamB, 2, 6)),
		pinned(melee(3, TeamA, 2, 3)),
		pinned(melee(4, TeamB, 0, 4)),
	)
	prime(b, 1)
	u := b.units[1]
	u.LockTarget, u.LockSetAt = 2, 1

	in := b.buildIntent(u, b.units[2])
	require.NotNil(t, in)
	gain, ok := in.freeGain()
	require.True(t, ok)
	require.Negative(t, gain, "the only closing cell is held by an ally")

	moves := b.resolve([]*MoveIntent{in})
	assert.Equal(t, []Move{{Unit: 1, From: Pos{2, 2}, To: Pos{1, 2}}}, moves)
	assert.Zero(t, u.LockTarget, "lock on the stalled target is released")
}

func TestRetargetOnStallKeepsSameTarget(t *testing.T) {
	b := newTestBattle(t,
		melee(1, TeamA, 2, 2),
		pinned(melee(2, TeamB, 2, 6)),
		pinned(melee(3, TeamA, 2, 3)),
	)
	prime(b, 1)
	u := b.units[1]
	u.LockTarget, u.LockSetAt = 2, 1

	in := b.buildIntent(u, b.units[2])
	require.NotNil(t, in)
	moves := b.resolve([]*MoveIntent{in})
	require.Len(t, moves, 1)
	assert.NotEqual(t, Pos{2, 3}, moves[0].To)
	assert.Equal(t, UnitID(2), u.LockTarget, "no better target, lock kept")
}
