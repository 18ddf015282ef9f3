package combat

import (
	"log/slog"
	"sort"
)

type Move struct {
	Unit UnitID `json:"unit"`
	From Pos    `json:"from"`
	To   Pos    `json:"to"`
}

type mover struct {
	intent *MoveIntent
	unit   *Unit
	edges  []Candidate
	streak int

	assigned bool
	dest     Pos
	gain     int // Delta of dest
}

func (m *mover) bestDelta() int {
	best := -1 << 30
	for _, e := range m.edges {
		if e.Delta > best {
			best = e.Delta
		}
	}
	return best
}

// edgesFor orders every candidate for the augmenting search, losing cells
// included.
func edgesFor(in *MoveIntent) []Candidate {
	edges := append([]Candidate(nil), in.Candidates...)
	sort.SliceStable(edges, func(i, j int) bool {
		a, b := edges[i], edges[j]
		if a.AttackNext != b.AttackNext {
			return a.AttackNext
		}
		if a.Free != b.Free {
			return a.Free
		}
		if a.Backtrack != b.Backtrack {
			return !a.Backtrack
		}
		if a.Proposed != b.Proposed {
			return a.Proposed
		}
		if a.Delta != b.Delta {
			return a.Delta > b.Delta
		}
		return a.Forward && !b.Forward
	})
	return edges
}

// orderMovers sorts by denied streak, then the best improvement on offer,
// then id.
func orderMovers(ms []*mover) {
	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.streak != b.streak {
			return a.streak > b.streak
		}
		if da, db := a.bestDelta(), b.bestDelta(); da != db {
			return da > db
		}
		return a.unit.ID < b.unit.ID
	})
}

// duelWinner decides which of two mutually closing movers may step. The
// other holds its ground this tick.
func duelWinner(grid Grid, tick int, a, b *mover) *mover {
	if a.streak != b.streak {
		if a.streak > b.streak {
			return a
		}
		return b
	}
	ra, rb := grid.advanceRemaining(a.unit.Team, a.intent.From), grid.advanceRemaining(b.unit.Team, b.intent.From)
	if ra != rb {
		// the less advanced unit moves
		if ra > rb {
			return a
		}
		return b
	}
	initiative := TeamA
	if tick%2 == 1 {
		initiative = TeamB
	}
	if a.unit.Team != b.unit.Team {
		if a.unit.Team == initiative {
			return a
		}
		return b
	}
	if a.unit.ID < b.unit.ID {
		return a
	}
	return b
}

// mutuallyClosing reports whether a and b each have an edge that would put
// the other in range once both steps land.
func mutuallyClosing(a, b *mover) bool {
	for _, ea := range a.edges {
		for _, eb := range b.edges {
			if ea.To == eb.To {
				continue
			}
			if a.unit.canAttackFrom(ea.To, eb.To) && b.unit.canAttackFrom(eb.To, ea.To) {
				return true
			}
		}
	}
	return false
}

// arbitrateDuels empties the edge list of the loser of every mutually
// closing pair of opposing movers. ms must be in id order.
func arbitrateDuels(grid Grid, tick int, ms []*mover, log *slog.Logger) {
	for i := 0; i < len(ms); i++ {
		for j := i + 1; j < len(ms); j++ {
			a, b := ms[i], ms[j]
			if a.unit.Team == b.unit.Team || len(a.edges) == 0 || len(b.edges) == 0 {
				continue
			}
			if !mutuallyClosing(a, b) {
				continue
			}
			w := duelWinner(grid, tick, a, b)
			loser := a
			if w == a {
				loser = b
			}
			loser.edges = nil
			log.Debug("duel arbitrated", "tick", tick, "winner", w.unit.ID, "holder", loser.unit.ID)
		}
	}
}

// resolver is the bipartite matching of movers to destination cells.
type resolver struct {
	movers   map[UnitID]*mover
	occupant map[Pos]UnitID // start-of-tick occupancy
	claim    map[Pos]*mover
}

func newResolver(ms []*mover, occ map[Pos]UnitID) *resolver {
	r := &resolver{
		movers:   make(map[UnitID]*mover, len(ms)),
		occupant: occ,
		claim:    map[Pos]*mover{},
	}
	for _, m := range ms {
		r.movers[m.unit.ID] = m
	}
	return r
}

func (r *resolver) take(m *mover, e Candidate) {
	if m.assigned {
		delete(r.claim, m.dest)
	}
	m.assigned, m.dest, m.gain = true, e.To, e.Delta
	r.claim[e.To] = m
}

// assign runs one augmenting search for m. seen holds the cells already
// tried in this search, stack the units whose reassignment is in progress.
// A mover that already holds a cell is only rerouted to one gaining as much.
func (r *resolver) assign(m *mover, seen map[Pos]bool, stack map[UnitID]bool) bool {
	stack[m.unit.ID] = true
	defer delete(stack, m.unit.ID)

	for _, e := range m.edges {
		if m.assigned && (e.To == m.dest || e.Delta < m.gain) {
			continue
		}
		if seen[e.To] {
			continue
		}
		seen[e.To] = true

		if occID, ok := r.occupant[e.To]; ok {
			om := r.movers[occID]
			if om == nil || stack[occID] {
				continue // stationary occupant, or part of the current chain
			}
			if om.assigned && om.dest == m.intent.From {
				continue // direct swap
			}
			if !om.assigned && !r.assign(om, seen, stack) {
				continue
			}
		}
		if h := r.claim[e.To]; h != nil {
			if stack[h.unit.ID] || !r.assign(h, seen, stack) {
				continue
			}
		}
		r.take(m, e)
		return true
	}
	return false
}

func (r *resolver) run(ordered []*mover) []Move {
	for _, m := range ordered {
		if m.assigned || len(m.edges) == 0 {
			continue
		}
		r.assign(m, map[Pos]bool{}, map[UnitID]bool{})
	}
	var moves []Move
	for _, m := range ordered {
		if m.assigned {
			moves = append(moves, Move{Unit: m.unit.ID, From: m.intent.From, To: m.dest})
		}
	}
	sort.Slice(moves, func(i, j int) bool { return moves[i].Unit < moves[j].Unit })
	return moves
}

// resolve turns this tick's intents into a collision-free move list and
// updates the fairness state.
func (b *Battle) resolve(intents []*MoveIntent) []Move {
	if len(intents) == 0 {
		return nil
	}
	ms := make([]*mover, 0, len(intents))
	for _, in := range intents {
		u := b.units[in.Unit]
		if u == nil {
			continue
		}
		if gain, ok := in.freeGain(); !ok || gain <= 0 {
			in = b.retargetOnStall(u, in)
		}
		ms = append(ms, &mover{intent: in, unit: u, edges: edgesFor(in), streak: b.fair.Streak(u.ID)})
	}
	sort.Slice(ms, func(i, j int) bool { return ms[i].unit.ID < ms[j].unit.ID })

	arbitrateDuels(b.grid, b.tick, ms, b.log)

	ordered := append([]*mover(nil), ms...)
	orderMovers(ordered)
	moves := newResolver(ms, b.occ).run(ordered)

	for _, m := range ms {
		if m.assigned {
			b.fair.granted(m.unit.ID, m.intent.From)
			continue
		}
		b.fair.refused(m.unit.ID)
		b.log.Debug("move denied", "tick", b.tick, "unit", m.unit.ID, "streak", b.fair.Streak(m.unit.ID))
	}
	return moves
}

// retargetOnStall gives a unit with no free cell closer to its target one
// fresh selection before its edges are finalised. The switch only happens
// when the new target offers a free closing cell.
func (b *Battle) retargetOnStall(u *Unit, in *MoveIntent) *MoveIntent {
	alt := b.selectFresh(u)
	if alt == nil || alt.ID == in.Target || u.canAttackFrom(u.Pos, alt.Pos) {
		return in
	}
	next := b.buildIntent(u, alt)
	if next == nil {
		return in
	}
	if gain, ok := next.freeGain(); !ok || gain <= 0 {
		return in
	}
	b.log.Debug("retarget on stall", "tick", b.tick, "unit", u.ID, "from", in.Target, "to", alt.ID)
	if u.LockTarget == in.Target {
		u.LockTarget = 0
	}
	return next
}
