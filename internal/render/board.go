package render

import (
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"

	"autobattler/internal/combat"
)

const CellSize = 64

var (
	BgColor     = ParseHexColor("#ECF0F1")
	GridColor   = ParseHexColor("#34495E")
	ZoneAColor  = ParseHexColor("#D6EAF8")
	ZoneBColor  = ParseHexColor("#FADBD8")
	TeamAColor  = ParseHexColor("#3498DB")
	TeamBColor  = ParseHexColor("#E74C3C")
	MoveColor   = ParseHexColor("#7F8C8D")
	AttackColor = ParseHexColor("#F39C12")
	HPBackColor = ParseHexColor("#2C3E50")
	HPColor     = ParseHexColor("#2ECC71")
)

// ParseHexColor converts "#rrggbb" or "#rrggbbaa" to color.RGBA.
func ParseHexColor(s string) color.RGBA {
	c := color.RGBA{0, 0, 0, 255}
	switch len(s) {
	case 7:
		fmt.Sscanf(s, "#%02x%02x%02x", &c.R, &c.G, &c.B)
	case 9:
		fmt.Sscanf(s, "#%02x%02x%02x%02x", &c.R, &c.G, &c.B, &c.A)
	}
	return c
}

func center(p combat.Pos) (float64, float64) {
	return float64(p.X)*CellSize + CellSize/2, float64(p.Y)*CellSize + CellSize/2
}

// Board draws one tick record at CellSize pixels per cell: zones, grid,
// the tick's moves and attacks, then every surviving unit with its HP bar.
func Board(grid combat.Grid, rec combat.TickRecord) image.Image {
	w, h := grid.Width*CellSize, grid.Height*CellSize
	dc := gg.NewContext(w, h)
	dc.SetColor(BgColor)
	dc.Clear()

	// 1. Zones
	for y := 0; y < grid.Height; y++ {
		if grid.ZoneOf(y) == combat.TeamA {
			dc.SetColor(ZoneAColor)
		} else {
			dc.SetColor(ZoneBColor)
		}
		dc.DrawRectangle(0, float64(y*CellSize), float64(w), CellSize)
		dc.Fill()
	}

	// 2. Grid
	dc.SetColor(GridColor)
	dc.SetLineWidth(2)
	for x := 1; x < grid.Width; x++ {
		dc.DrawLine(float64(x*CellSize), 0, float64(x*CellSize), float64(h))
	}
	for y := 1; y < grid.Height; y++ {
		dc.DrawLine(0, float64(y*CellSize), float64(w), float64(y*CellSize))
	}
	dc.Stroke()

	// 3. Moves
	dc.SetColor(MoveColor)
	dc.SetLineWidth(3)
	for _, mv := range rec.Moves {
		fx, fy := center(mv.From)
		tx, ty := center(mv.To)
		dc.DrawLine(fx, fy, tx, ty)
		dc.Stroke()
	}

	board := rec.Board()
	pos := make(map[combat.UnitID]combat.Pos, len(rec.Units))
	for p, u := range board {
		pos[u.ID] = p
	}

	// 4. Units
	radius := CellSize * 0.32
	for _, u := range rec.Units {
		cx, cy := center(u.Pos)
		if u.Team == combat.TeamA {
			dc.SetColor(TeamAColor)
		} else {
			dc.SetColor(TeamBColor)
		}
		if u.Archetype == combat.Ranged {
			dc.DrawRegularPolygon(3, cx, cy, radius, 0)
		} else {
			dc.DrawCircle(cx, cy, radius)
		}
		dc.Fill()

		barW := float64(CellSize) * 0.8
		bx, by := cx-barW/2, float64(u.Pos.Y*CellSize)+4
		dc.SetColor(HPBackColor)
		dc.DrawRectangle(bx, by, barW, 5)
		dc.Fill()
		if u.MaxHP > 0 {
			dc.SetColor(HPColor)
			dc.DrawRectangle(bx, by, barW*float64(u.HP)/float64(u.MaxHP), 5)
			dc.Fill()
		}
		dc.SetColor(color.White)
		dc.DrawStringAnchored(fmt.Sprint(u.ID), cx, cy, 0.5, 0.5)
	}

	// 5. Attacks, drawn last so they sit on top. Killed targets are gone
	// from the record, so only lines between survivors are drawn.
	dc.SetColor(AttackColor)
	dc.SetLineWidth(4)
	for _, at := range rec.Attacks {
		from, ok1 := pos[at.Attacker]
		to, ok2 := pos[at.Target]
		if !ok1 || !ok2 {
			continue
		}
		ax, ay := center(from)
		tx, ty := center(to)
		dc.DrawLine(ax, ay, tx, ty)
		dc.Stroke()
	}
	return dc.Image()
}

// Scale resizes a board image so that each cell is cell pixels wide.
func Scale(img image.Image, cell int) image.Image {
	if cell <= 0 || cell == CellSize {
		return img
	}
	b := img.Bounds()
	return imaging.Resize(img, b.Dx()*cell/CellSize, b.Dy()*cell/CellSize, imaging.NearestNeighbor)
}

// EncodePNG writes img as PNG.
func EncodePNG(w io.Writer, img image.Image) error {
	return imaging.Encode(w, img, imaging.PNG)
}
