package combat

// Fairness holds the per-battle bookkeeping the resolver uses to keep any
// one unit from being starved of movement and to damp back-and-forth steps.
type Fairness struct {
	denied map[UnitID]int
	last   map[UnitID]Pos
}

func NewFairness() *Fairness {
	return &Fairness{denied: map[UnitID]int{}, last: map[UnitID]Pos{}}
}

// Streak is the number of consecutive ticks id wanted to move and got no cell.
func (f *Fairness) Streak(id UnitID) int { return f.denied[id] }

// LastPos is the cell id stood on before its most recent move.
func (f *Fairness) LastPos(id UnitID) (Pos, bool) {
	p, ok := f.last[id]
	return p, ok
}

func (f *Fairness) Reset() {
	f.denied = map[UnitID]int{}
	f.last = map[UnitID]Pos{}
}

func (f *Fairness) forget(id UnitID) {
	delete(f.denied, id)
	delete(f.last, id)
}

func (f *Fairness) granted(id UnitID, from Pos) {
	f.denied[id] = 0
	f.last[id] = from
}

func (f *Fairness) refused(id UnitID) { f.denied[id]++ }
