package combat

type Candidate struct {
	To         Pos  `json:"to"`
	Free       bool `json:"free"`        // unoccupied at start of tick
	Delta      int  `json:"delta"`       // Manhattan improvement toward the target
	AttackNext bool `json:"attack_next"` // standing here would put the target in range
	Forward    bool `json:"forward"`     // advances toward the enemy baseline
	Backtrack  bool `json:"backtrack"`   // returns to the previous cell
	Proposed   bool `json:"proposed"`    // the builder's own pick
}

type MoveIntent struct {
	Unit       UnitID      `json:"unit"`
	From       Pos         `json:"from"`
	Target     UnitID      `json:"target"`
	Candidates []Candidate `json:"candidates"`
	Proposal   int         `json:"proposal"` // index into Candidates, -1 when none
}

func (in *MoveIntent) Proposed() (Candidate, bool) {
	if in == nil || in.Proposal < 0 || in.Proposal >= len(in.Candidates) {
		return Candidate{}, false
	}
	return in.Candidates[in.Proposal], true
}

// freeGain is the largest improvement offered by a cell that was free at
// the start of the tick.
func (in *MoveIntent) freeGain() (int, bool) {
	best, ok := 0, false
	for _, c := range in.Candidates {
		if !c.Free {
			continue
		}
		if !ok || c.Delta > best {
			best, ok = c.Delta, true
		}
	}
	return best, ok
}

// candidateRank is the builder's tie-break cascade: attack next tick, then
// smallest resulting distance, then the axis with the larger remaining
// delta, then forward. Earlier neighbours win full ties.
type candidateRank struct {
	from, target Pos
}

func (r candidateRank) majorAxis(c Candidate) bool {
	d := r.target.Sub(r.from)
	horizontal := c.To.X != r.from.X
	switch {
	case abs(d.X) > abs(d.Y):
		return horizontal
	case abs(d.Y) > abs(d.X):
		return !horizontal
	}
	return false
}

func (r candidateRank) better(a, b Candidate) bool {
	if a.AttackNext != b.AttackNext {
		return a.AttackNext
	}
	da, db := Manhattan(a.To, r.target), Manhattan(b.To, r.target)
	if da != db {
		return da < db
	}
	if ma, mb := r.majorAxis(a), r.majorAxis(b); ma != mb {
		return ma
	}
	if a.Forward != b.Forward {
		return a.Forward
	}
	return false
}

func (r candidateRank) pick(cands []Candidate, keep func(Candidate) bool) int {
	best := -1
	for i, c := range cands {
		if keep != nil && !keep(c) {
			continue
		}
		if best < 0 || r.better(c, cands[best]) {
			best = i
		}
	}
	return best
}

// buildIntent proposes ranked destinations for a unit that cannot attack t
// yet. The proposal is only a wish; the resolver decides legality.
func (b *Battle) buildIntent(u, t *Unit) *MoveIntent {
	cur := Manhattan(u.Pos, t.Pos)
	last, hasLast := b.fair.LastPos(u.ID)
	fdy := forwardDY(u.Team)

	var all []Candidate
	for _, n := range b.grid.Neighbors(u.Pos) {
		all = append(all, Candidate{
			To:         n,
			Free:       b.free(n),
			Delta:      cur - Manhattan(n, t.Pos),
			AttackNext: u.canAttackFrom(n, t.Pos),
			Forward:    n.Y-u.Pos.Y == fdy,
			Backtrack:  hasLast && n == last,
		})
	}
	if len(all) == 0 {
		return nil
	}
	cands := all[:0:0]
	for _, c := range all {
		if !c.Backtrack {
			cands = append(cands, c)
		}
	}
	if len(cands) == 0 {
		cands = all
	}

	in := &MoveIntent{Unit: u.ID, From: u.Pos, Target: t.ID, Candidates: cands, Proposal: -1}
	rank := candidateRank{from: u.Pos, target: t.Pos}

	// 1. free and strictly closer
	in.Proposal = rank.pick(cands, func(c Candidate) bool { return c.Free && c.Delta > 0 })

	// 2. pathfinder hint
	if in.Proposal < 0 {
		hint, ok := b.grid.ReducingStep(u.Pos, t.Pos, b.occupied)
		if !ok {
			hint, ok = b.grid.NextStep(u, t.Pos, b.occupied)
		}
		if ok {
			idx := indexOf(cands, hint)
			if idx < 0 || (hasLast && hint == last) {
				alt := -1
				for i, c := range cands {
					if !c.Free || (hasLast && c.To == last) {
						continue
					}
					if alt < 0 || betterAlternative(c, cands[alt], t.Pos) {
						alt = i
					}
				}
				if alt >= 0 {
					idx = alt
				}
			}
			in.Proposal = idx
		}
	}

	// 3. anything, even occupied or sideways
	if in.Proposal < 0 {
		in.Proposal = rank.pick(cands, nil)
	}
	if in.Proposal >= 0 {
		in.Candidates[in.Proposal].Proposed = true
	}
	return in
}

func betterAlternative(a, b Candidate, target Pos) bool {
	if a.AttackNext != b.AttackNext {
		return a.AttackNext
	}
	return Manhattan(a.To, target) < Manhattan(b.To, target)
}

func indexOf(cands []Candidate, p Pos) int {
	for i, c := range cands {
		if c.To == p {
			return i
		}
	}
	return -1
}
