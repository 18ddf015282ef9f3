package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	"autobattler/internal/combat"
)

type frame struct {
	round int
	rec   combat.TickRecord
}

// frames flattens a replay into one frame per tick, each round opening
// with its starting roster.
func frames(rp combat.Replay) []frame {
	var out []frame
	for _, r := range rp.Rounds {
		out = append(out, frame{round: r.Round, rec: combat.TickRecord{Units: r.Init}})
		for _, rec := range r.History {
			out = append(out, frame{round: r.Round, rec: rec})
		}
	}
	return out
}

type viewer struct {
	screen tcell.Screen
	replay combat.Replay
	frames []frame
	idx    int
	paused bool
	cue    *cue
}

var (
	styleA     = tcell.StyleDefault.Foreground(tcell.ColorBlue).Bold(true)
	styleB     = tcell.StyleDefault.Foreground(tcell.ColorRed).Bold(true)
	styleEmpty = tcell.StyleDefault.Foreground(tcell.ColorGray)
	styleText  = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

func (v *viewer) text(x, y int, s string, st tcell.Style) {
	for i, r := range s {
		v.screen.SetContent(x+i, y, r, nil, st)
	}
}

func glyph(u combat.UnitSnapshot) rune {
	if u.Archetype == combat.Ranged {
		if u.Team == combat.TeamA {
			return 'r'
		}
		return 'R'
	}
	if u.Team == combat.TeamA {
		return 'm'
	}
	return 'M'
}

// draw renders the current frame: a header line, the grid with two
// columns per cell, then the unit list.
func (v *viewer) draw() {
	v.screen.Clear()
	if len(v.frames) == 0 {
		v.text(0, 0, "empty replay", styleText)
		v.screen.Show()
		return
	}
	f := v.frames[v.idx]
	state := ""
	if v.paused {
		state = " [paused]"
	}
	v.text(0, 0, fmt.Sprintf("round %d  tick %d  frame %d/%d%s", f.round, f.rec.Tick, v.idx+1, len(v.frames), state), styleText)

	board := f.rec.Board()
	g := v.replay.Grid
	for y := 0; y < g.Height; y++ {
		for x := 0; x < g.Width; x++ {
			sx, sy := x*2, y+2
			u, ok := board[combat.Pos{X: x, Y: y}]
			if !ok {
				v.screen.SetContent(sx, sy, '.', nil, styleEmpty)
				continue
			}
			st := styleA
			if u.Team == combat.TeamB {
				st = styleB
			}
			v.screen.SetContent(sx, sy, glyph(u), nil, st)
		}
	}
	row := g.Height + 3
	for _, u := range f.rec.Units {
		v.text(0, row, fmt.Sprintf("#%-3d %-10s %s hp %3d/%-3d at %s", u.ID, u.Name, u.Team, u.HP, u.MaxHP, u.Pos), styleText)
		row++
	}
	v.text(0, row+1, "space pause  </> step  n next round  q quit", styleEmpty)
	v.screen.Show()
}

func (v *viewer) step(d int) {
	next := v.idx + d
	if next < 0 || next >= len(v.frames) {
		return
	}
	v.idx = next
	attacks := v.frames[v.idx].rec.Attacks
	if d < 0 || len(attacks) == 0 {
		return
	}
	kill := false
	for _, a := range attacks {
		kill = kill || a.Killed
	}
	v.cue.hit(kill)
}

func (v *viewer) nextRound() {
	cur := v.frames[v.idx].round
	for i := v.idx + 1; i < len(v.frames); i++ {
		if v.frames[i].round != cur {
			v.idx = i
			return
		}
	}
}

// handle returns false when the viewer should quit.
func (v *viewer) handle(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		switch {
		case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC:
			return false
		case ev.Key() == tcell.KeyRight:
			v.step(1)
		case ev.Key() == tcell.KeyLeft:
			v.step(-1)
		case ev.Key() == tcell.KeyRune:
			switch ev.Rune() {
			case 'q':
				return false
			case ' ':
				v.paused = !v.paused
			case 'n':
				if len(v.frames) > 0 {
					v.nextRound()
				}
			}
		}
	case *tcell.EventResize:
		v.screen.Sync()
	}
	return true
}

func (v *viewer) run(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	events := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := v.screen.PollEvent()
			if ev == nil {
				return
			}
			events <- ev
		}
	}()

	v.draw()
	for {
		select {
		case ev := <-events:
			if !v.handle(ev) {
				return
			}
		case <-ticker.C:
			if !v.paused {
				v.step(1)
			}
		}
		v.draw()
	}
}

func main() {
	var in string
	var sound bool
	var interval time.Duration
	flag.StringVar(&in, "in", "out.json", "replay file written by simsvc")
	flag.BoolVar(&sound, "sound", false, "play a cue on every attack frame")
	flag.DurationVar(&interval, "interval", 300*time.Millisecond, "time per frame")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stderr, nil))

	b, err := os.ReadFile(in)
	if err != nil {
		log.Error("read replay", "err", err)
		os.Exit(1)
	}
	var rp combat.Replay
	if err := json.Unmarshal(b, &rp); err != nil {
		log.Error("decode replay", "file", in, "err", err)
		os.Exit(1)
	}

	c, err := newCue(sound)
	if err != nil {
		log.Warn("audio disabled", "err", err)
	}
	defer c.close()

	screen, err := tcell.NewScreen()
	if err != nil {
		log.Error("open terminal", "err", err)
		os.Exit(1)
	}
	if err := screen.Init(); err != nil {
		log.Error("init terminal", "err", err)
		os.Exit(1)
	}
	defer screen.Fini()

	v := &viewer{screen: screen, replay: rp, frames: frames(rp), cue: c}
	v.run(interval)
}
