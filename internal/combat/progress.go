package combat

func (b *Battle) occupied(p Pos) bool {
	_, ok := b.occ[p]
	return ok
}

func (b *Battle) free(p Pos) bool { return b.grid.InBounds(p) && !b.occupied(p) }

// twoStepProgress reports whether u can make real headway toward t this
// tick: some free neighbour strictly closer to t either already lets u
// attack, or offers a second free step (not back onto u's own cell) that is
// closer still. Units boxed in by allies fail this and look elsewhere.
func (b *Battle) twoStepProgress(u, t *Unit) bool {
	cur := Manhattan(u.Pos, t.Pos)
	for _, n := range b.grid.Neighbors(u.Pos) {
		d1 := Manhattan(n, t.Pos)
		if !b.free(n) || d1 >= cur {
			continue
		}
		if u.canAttackFrom(n, t.Pos) {
			return true
		}
		for _, m := range b.grid.Neighbors(n) {
			if m == u.Pos || !b.free(m) {
				continue
			}
			if Manhattan(m, t.Pos) < d1 {
				return true
			}
		}
	}
	return false
}
