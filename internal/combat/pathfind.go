package combat

// --- Open list for A* ---

type openNode struct {
	pos Pos
	g   int // steps from start
	h   int // heuristic to goal
	seq int // insertion order, last tie-break
}

func (a openNode) less(b openNode) bool {
	fa, fb := a.g+a.h, b.g+b.h
	if fa != fb {
		return fa < fb
	}
	if a.h != b.h {
		return a.h < b.h
	}
	return a.seq < b.seq
}

type openList []openNode

func (o *openList) push(n openNode) {
	*o = append(*o, n)
	i := len(*o) - 1
	for i > 0 {
		parent := (i - 1) / 2
		if !(*o)[i].less((*o)[parent]) {
			break
		}
		(*o)[parent], (*o)[i] = (*o)[i], (*o)[parent]
		i = parent
	}
}

func (o *openList) pop() openNode {
	old := *o
	n := len(old)
	top := old[0]
	old[0] = old[n-1]
	*o = old[:n-1]

	i := 0
	for {
		left := 2*i + 1
		if left >= len(*o) {
			break
		}
		smallest := left
		if right := left + 1; right < len(*o) && (*o)[right].less((*o)[left]) {
			smallest = right
		}
		if !(*o)[smallest].less((*o)[i]) {
			break
		}
		(*o)[i], (*o)[smallest] = (*o)[smallest], (*o)[i]
		i = smallest
	}
	return top
}

type searchSpec struct {
	start    Pos
	isGoal   func(Pos) bool
	h        func(Pos) int
	passable func(from, to Pos) bool
}

// search is A* over the 4-connected grid with unit step cost. It returns the
// path from start to the first goal popped, or nil when none is reachable.
func (g Grid) search(s searchSpec) []Pos {
	if !g.InBounds(s.start) {
		return nil
	}
	if s.isGoal(s.start) {
		return []Pos{s.start}
	}
	prev := map[Pos]Pos{}
	best := map[Pos]int{s.start: 0}
	closed := map[Pos]bool{}
	seq := 0
	open := openList{{pos: s.start, g: 0, h: s.h(s.start), seq: seq}}

	for len(open) > 0 {
		cur := open.pop()
		if closed[cur.pos] {
			continue
		}
		if s.isGoal(cur.pos) {
			return unwind(prev, s.start, cur.pos)
		}
		closed[cur.pos] = true
		for _, np := range g.Neighbors(cur.pos) {
			if closed[np] || !s.passable(cur.pos, np) {
				continue
			}
			ng := cur.g + 1
			if old, ok := best[np]; ok && old <= ng {
				continue
			}
			best[np] = ng
			prev[np] = cur.pos
			seq++
			open.push(openNode{pos: np, g: ng, h: s.h(np), seq: seq})
		}
	}
	return nil
}

func unwind(prev map[Pos]Pos, start, goal Pos) []Pos {
	path := []Pos{goal}
	for cur := goal; cur != start; {
		cur = prev[cur]
		path = append(path, cur)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

// FindPath returns the full path from start to goal, inclusive. The goal is
// always enterable even when blocked reports it occupied; every other
// blocked cell is impassable. A nil result means the start is enclosed.
func (g Grid) FindPath(start, goal Pos, blocked func(Pos) bool) []Pos {
	if !g.InBounds(goal) {
		return nil
	}
	return g.search(searchSpec{
		start:  start,
		isGoal: func(p Pos) bool { return p == goal },
		h:      func(p Pos) int { return Manhattan(p, goal) },
		passable: func(_, to Pos) bool {
			return to == goal || blocked == nil || !blocked(to)
		},
	})
}

// firstStepRule lets the planner walk through occupied cells, which may be
// vacated this tick, but never take an occupied cell as the very first step.
func firstStepRule(start, target Pos, occupied func(Pos) bool) func(from, to Pos) bool {
	return func(from, to Pos) bool {
		if to == target {
			return false
		}
		if from == start && occupied(to) {
			return false
		}
		return true
	}
}

// NextStep is the attack-position hint: the first step toward the nearest
// cell from which u could attack a unit standing at target.
func (g Grid) NextStep(u *Unit, target Pos, occupied func(Pos) bool) (Pos, bool) {
	slack := u.reach()
	if u.Archetype == Melee {
		slack *= 2
	}
	path := g.search(searchSpec{
		start:  u.Pos,
		isGoal: func(p Pos) bool { return u.canAttackFrom(p, target) },
		h: func(p Pos) int {
			if d := Manhattan(p, target) - slack; d > 0 {
				return d
			}
			return 0
		},
		passable: firstStepRule(u.Pos, target, occupied),
	})
	if len(path) < 2 {
		return Pos{}, false
	}
	return path[1], true
}

// ReducingStep is the first step of a path toward target's own cell, only
// reported when it strictly shortens the Manhattan distance.
func (g Grid) ReducingStep(start, target Pos, occupied func(Pos) bool) (Pos, bool) {
	rule := firstStepRule(start, target, occupied)
	path := g.search(searchSpec{
		start:  start,
		isGoal: func(p Pos) bool { return p == target },
		h:      func(p Pos) int { return Manhattan(p, target) },
		passable: func(from, to Pos) bool {
			if to == target {
				return true
			}
			return rule(from, to)
		},
	})
	if len(path) < 3 {
		return Pos{}, false
	}
	step := path[1]
	if Manhattan(step, target) >= Manhattan(start, target) {
		return Pos{}, false
	}
	return step, true
}
