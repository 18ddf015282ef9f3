package combat

// targetScore orders melee candidates lexicographically, smallest wins.
type targetScore struct {
	attackNext int // 0 when a free neighbour lets u attack next tick
	step       int // distance after the best single step
	dist       int // current distance
}

func (s targetScore) less(o targetScore) bool {
	if s.attackNext != o.attackNext {
		return s.attackNext < o.attackNext
	}
	if s.step != o.step {
		return s.step < o.step
	}
	return s.dist < o.dist
}

// stepScore peeks one step ahead. Free neighbours that reduce distance are
// tried first; only when none exists does it ask the pathfinder for its
// reducing step, then for its attack-position step.
func (b *Battle) stepScore(u, t *Unit) targetScore {
	cur := Manhattan(u.Pos, t.Pos)
	s := targetScore{attackNext: 1, step: cur, dist: cur}
	reduced := false
	for _, n := range b.grid.Neighbors(u.Pos) {
		if !b.free(n) {
			continue
		}
		if u.canAttackFrom(n, t.Pos) {
			s.attackNext = 0
		}
		if d := Manhattan(n, t.Pos); d < cur {
			reduced = true
			if d < s.step {
				s.step = d
			}
		}
	}
	if reduced {
		return s
	}
	if step, ok := b.grid.ReducingStep(u.Pos, t.Pos, b.occupied); ok {
		s.step = Manhattan(step, t.Pos)
	} else if step, ok := b.grid.NextStep(u, t.Pos, b.occupied); ok {
		s.step = Manhattan(step, t.Pos)
	}
	return s
}

func (b *Battle) enemiesOf(u *Unit) []*Unit {
	var out []*Unit
	for _, id := range b.order {
		e := b.units[id]
		if e == nil || !e.Alive() || e.Team == u.Team || e.Invisible(b.tick) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func taunters(units []*Unit) []*Unit {
	var out []*Unit
	for _, e := range units {
		if e.Taunt {
			out = append(out, e)
		}
	}
	return out
}

// furthest and closest keep the first encountered unit on ties.
func furthest(u *Unit, units []*Unit) *Unit {
	var best *Unit
	bestD := -1
	for _, e := range units {
		if d := Manhattan(u.Pos, e.Pos); d > bestD {
			best, bestD = e, d
		}
	}
	return best
}

func closest(u *Unit, units []*Unit) *Unit {
	var best *Unit
	bestD := 0
	for _, e := range units {
		if d := Manhattan(u.Pos, e.Pos); best == nil || d < bestD {
			best, bestD = e, d
		}
	}
	return best
}

// selectTarget honours u's lock when it is still worth keeping and falls
// back to a fresh pick otherwise. Stale locks are cleared here.
func (b *Battle) selectTarget(u *Unit) *Unit {
	if u.LockTarget != 0 {
		t := b.units[u.LockTarget]
		switch {
		case t == nil || !t.Alive() || t.Team == u.Team:
			u.LockTarget = 0
		case t.Invisible(b.tick):
			// keep the lock, it becomes valid again once t reappears
		default:
			if kept := b.keepLock(u, t); kept != nil {
				return kept
			}
		}
	}
	return b.selectFresh(u)
}

// keepLock returns the unit u should engage while locked on t, or nil when
// the lock has been dropped.
func (b *Battle) keepLock(u, t *Unit) *Unit {
	if u.canAttackFrom(u.Pos, t.Pos) || b.twoStepProgress(u, t) {
		return t
	}
	expired := b.tick-u.LockSetAt >= b.lockTicks
	if expired {
		b.log.Debug("lock expired without progress", "unit", u.ID, "target", t.ID, "tick", b.tick)
		u.LockTarget = 0
		return nil
	}
	alt := b.selectFresh(u)
	if alt != nil && alt.ID != t.ID && b.stepScore(u, alt).less(b.stepScore(u, t)) {
		b.log.Debug("lock broken for better target", "unit", u.ID, "from", t.ID, "to", alt.ID, "tick", b.tick)
		u.LockTarget = 0
		return alt
	}
	return t
}

// selectFresh picks a target ignoring any lock.
func (b *Battle) selectFresh(u *Unit) *Unit {
	enemies := b.enemiesOf(u)
	if len(enemies) == 0 {
		return nil
	}

	var inRange []*Unit
	for _, e := range enemies {
		if u.canAttackFrom(u.Pos, e.Pos) {
			inRange = append(inRange, e)
		}
	}
	if len(inRange) > 0 {
		pool := inRange
		if tt := taunters(inRange); len(tt) > 0 {
			pool = tt
		}
		if u.Archetype == Ranged {
			return furthest(u, pool)
		}
		return closest(u, pool)
	}

	var considered []*Unit
	for _, e := range enemies {
		if b.twoStepProgress(u, e) {
			considered = append(considered, e)
		}
	}
	if len(considered) == 0 {
		considered = enemies
	}

	// Ranged units kite: furthest reachable candidate, taunt not applied.
	if u.Archetype == Ranged {
		return furthest(u, considered)
	}

	if tt := taunters(considered); len(tt) > 0 {
		considered = tt
	}
	var best *Unit
	var bestScore targetScore
	for _, e := range considered {
		s := b.stepScore(u, e)
		if best == nil || s.less(bestScore) {
			best, bestScore = e, s
		}
	}
	return best
}
