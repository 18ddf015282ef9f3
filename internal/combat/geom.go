package combat

type Pos struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (a Pos) Add(b Pos) Pos { return Pos{a.X + b.X, a.Y + b.Y} }
func (a Pos) Sub(b Pos) Pos { return Pos{a.X - b.X, a.Y - b.Y} }

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func Manhattan(a, b Pos) int { return abs(a.X-b.X) + abs(a.Y-b.Y) }

// Chebyshev is the king-move distance; melee reach covers all 8 surrounding cells.
func Chebyshev(a, b Pos) int {
	dx, dy := abs(a.X-b.X), abs(a.Y-b.Y)
	if dx > dy {
		return dx
	}
	return dy
}

// dirs is the fixed neighbour order: up, down, left, right.
var dirs = [4]Pos{{0, -1}, {0, 1}, {-1, 0}, {1, 0}}

type Grid struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

func (g Grid) InBounds(p Pos) bool {
	return p.X >= 0 && p.X < g.Width && p.Y >= 0 && p.Y < g.Height
}

// Neighbors returns the in-bounds 4-connected neighbours of p.
func (g Grid) Neighbors(p Pos) []Pos {
	out := make([]Pos, 0, 4)
	for _, d := range dirs {
		if np := p.Add(d); g.InBounds(np) {
			out = append(out, np)
		}
	}
	return out
}

// ZoneOf reports which team owns row y for placement. Team A holds the top
// half of the board, Team B the bottom half.
func (g Grid) ZoneOf(y int) Team {
	if y < g.Height/2 {
		return TeamA
	}
	return TeamB
}

// Baseline is the enemy back row a team advances toward.
func (g Grid) Baseline(t Team) int {
	if t == TeamA {
		return g.Height - 1
	}
	return 0
}

// forwardDY is the row direction that counts as advancing for t.
func forwardDY(t Team) int {
	if t == TeamA {
		return 1
	}
	return -1
}

// advanceRemaining is how many rows separate p from t's enemy baseline.
func (g Grid) advanceRemaining(t Team, p Pos) int {
	return abs(g.Baseline(t) - p.Y)
}

// ZoneCells lists t's placement cells in row-major order.
func (g Grid) ZoneCells(t Team) []Pos {
	var out []Pos
	for y := 0; y < g.Height; y++ {
		if g.ZoneOf(y) != t {
			continue
		}
		for x := 0; x < g.Width; x++ {
			out = append(out, Pos{X: x, Y: y})
		}
	}
	return out
}
