package combat

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"autobattler/internal/config"
)

type Phase int

const (
	PhasePlacement Phase = iota
	PhaseBattle
	PhaseFinished
)

func (p Phase) String() string {
	switch p {
	case PhaseBattle:
		return "battle"
	case PhaseFinished:
		return "finished"
	}
	return "placement"
}

func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *Phase) UnmarshalText(b []byte) error {
	switch string(b) {
	case "placement":
		*p = PhasePlacement
	case "battle":
		*p = PhaseBattle
	case "finished":
		*p = PhaseFinished
	default:
		return fmt.Errorf("unknown phase %q", b)
	}
	return nil
}

type Summary struct {
	Round     int    `json:"round"`
	MaxRounds int    `json:"max_rounds"`
	Wins      [2]int `json:"wins"`
	Draws     int    `json:"draws"`
	Phase     Phase  `json:"phase"`
	Tick      int    `json:"tick"`
	Winner    string `json:"winner,omitempty"`
}

// Match runs a best-of-N series of battles between two benches. All methods
// are safe for concurrent use; a tick never observes a half-reset match.
type Match struct {
	mu sync.Mutex

	grid    Grid
	rounds  int
	opts    BattleOptions
	benches [2]*Bench

	phase  Phase
	round  int
	wins   [2]int
	draws  int
	battle *Battle
	logs   []RoundLog

	emit    func(Event)
	pending []Event
	log     *slog.Logger
}

func NewMatch(grid Grid, rounds int, opts BattleOptions, emit func(Event)) *Match {
	if rounds < 1 {
		rounds = 1
	}
	if opts.MaxTicks <= 0 {
		opts.MaxTicks = config.DefaultMaxTicks
	}
	if opts.LockTicks <= 0 {
		opts.LockTicks = config.DefaultLockTicks
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if emit == nil {
		emit = func(Event) {}
	}
	return &Match{
		grid:    grid,
		rounds:  rounds,
		opts:    opts,
		benches: [2]*Bench{NewBench(TeamA, grid, nil), NewBench(TeamB, grid, nil)},
		round:   1,
		emit:    emit,
		log:     opts.Logger,
	}
}

// unlock releases the mutex and then delivers events queued while it was held.
func (m *Match) unlock() {
	evs := m.pending
	m.pending = nil
	m.mu.Unlock()
	for _, ev := range evs {
		m.emit(ev)
	}
}

func (m *Match) queue(tick int, typ string, payload map[string]any) {
	m.pending = append(m.pending, Event{Tick: tick, Type: typ, Payload: payload})
}

func (m *Match) Grid() Grid { return m.grid }

// Remaining is how many of t's bench slots are not on the board.
func (m *Match) Remaining(t Team) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.benches[t].Remaining()
}

// Slots is the size of t's bench.
func (m *Match) Slots(t Team) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.benches[t].Slots)
}

// ClearPlacements sends every placed unit of t back to the bench.
func (m *Match) ClearPlacements(t Team) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlacement {
		return false
	}
	m.benches[t].Clear()
	return true
}

func (m *Match) Place(t Team, slot int, p Pos) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlacement {
		return false
	}
	if _, taken := m.benches[t.Opponent()].slotAt(p); taken {
		return false
	}
	return m.benches[t].Place(slot, p)
}

func (m *Match) Unplace(t Team, p Pos) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.phase != PhasePlacement {
		return false
	}
	return m.benches[t].Unplace(p)
}

// StartBattle stamps live units out of both benches and enters the battle
// phase. Both teams need at least one placed unit.
func (m *Match) StartBattle() bool {
	m.mu.Lock()
	defer m.unlock()
	if m.phase != PhasePlacement {
		return false
	}
	var units []*Unit
	id := UnitID(1)
	for _, t := range []Team{TeamA, TeamB} {
		ps := m.benches[t].Placements()
		if len(ps) == 0 {
			return false
		}
		for _, p := range ps {
			units = append(units, p.Unit.Instantiate(id, t, p.Pos))
			id++
		}
	}
	m.battle = NewBattle(m.grid, units, m.opts)
	m.phase = PhaseBattle
	m.logs = append(m.logs, RoundLog{Round: m.round, Init: m.battle.Units()})
	m.log.Info("battle started", "round", m.round, "units", len(units))
	m.queue(0, "BattleStart", map[string]any{"round": m.round, "units": m.battle.Units()})
	return true
}

// AdvanceTick runs one tick of the current battle. It returns false when no
// battle is in progress.
func (m *Match) AdvanceTick() (TickRecord, bool) {
	m.mu.Lock()
	defer m.unlock()
	if m.phase != PhaseBattle || m.battle == nil {
		return TickRecord{}, false
	}
	rec := m.battle.AdvanceTick()
	cur := &m.logs[len(m.logs)-1]
	cur.History = append(cur.History, rec)
	m.queue(rec.Tick, "Tick", map[string]any{"record": rec})
	if out := m.battle.Outcome(); out.Over {
		m.endRound(out)
	}
	return rec, true
}

func (m *Match) endRound(out Outcome) {
	winner := "Draw"
	if out.Draw {
		m.draws++
	} else {
		m.wins[out.Winner]++
		winner = out.Winner.String()
	}
	m.logs[len(m.logs)-1].Winner = winner
	tick := m.battle.Tick()
	m.log.Info("round over", "round", m.round, "winner", winner, "tick", tick)
	m.queue(tick, "RoundEnd", map[string]any{"round": m.round, "winner": winner, "wins": m.wins})

	played := m.wins[TeamA] + m.wins[TeamB] + m.draws
	if m.wins[TeamA] > m.rounds/2 || m.wins[TeamB] > m.rounds/2 || played >= m.rounds {
		m.phase = PhaseFinished
		w := m.matchWinner()
		m.log.Info("match over", "winner", w, "wins_a", m.wins[TeamA], "wins_b", m.wins[TeamB])
		m.queue(tick, "MatchEnd", map[string]any{"winner": w, "wins": m.wins})
		return
	}
	m.round++
	m.phase = PhasePlacement
}

func (m *Match) matchWinner() string {
	switch {
	case m.phase != PhaseFinished:
		return ""
	case m.wins[TeamA] > m.wins[TeamB]:
		return TeamA.String()
	case m.wins[TeamB] > m.wins[TeamA]:
		return TeamB.String()
	}
	return "Draw"
}

// EnterPlacement abandons the battle in progress without crediting anyone.
// Placements are kept.
func (m *Match) EnterPlacement() {
	m.mu.Lock()
	defer m.unlock()
	if m.phase == PhaseBattle {
		m.logs = m.logs[:len(m.logs)-1]
	}
	m.battle = nil
	if m.phase != PhaseFinished {
		m.phase = PhasePlacement
	}
}

// Reset returns the match to round one of placement. Scores, history,
// locks and fairness state are dropped together with the battle.
func (m *Match) Reset() {
	m.mu.Lock()
	defer m.unlock()
	m.battle = nil
	m.phase = PhasePlacement
	m.round = 1
	m.wins = [2]int{}
	m.draws = 0
	m.logs = nil
	m.queue(0, "Reset", nil)
}

// Units is the live roster during a battle and the placed roster otherwise.
func (m *Match) Units() []UnitSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.battle != nil && m.phase == PhaseBattle {
		return m.battle.Units()
	}
	var out []UnitSnapshot
	id := UnitID(1)
	for _, t := range []Team{TeamA, TeamB} {
		for _, p := range m.benches[t].Placements() {
			out = append(out, snapshotOf(p.Unit.Instantiate(id, t, p.Pos)))
			id++
		}
	}
	return out
}

// History is the current (or last finished) battle's tick log.
func (m *Match) History() []TickRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.battle == nil {
		return nil
	}
	return m.battle.History()
}

// Record returns the record for tick of the current (or last finished)
// battle. Tick 0 is the roster the battle started from; outside a battle
// it is the placed roster.
func (m *Match) Record(tick int) (TickRecord, bool) {
	if tick == 0 {
		m.mu.Lock()
		if m.battle != nil && len(m.logs) > 0 {
			first := m.logs[len(m.logs)-1].Init
			m.mu.Unlock()
			return TickRecord{Units: first}, true
		}
		m.mu.Unlock()
		return TickRecord{Units: m.Units()}, true
	}
	for _, r := range m.History() {
		if r.Tick == tick {
			return r, true
		}
	}
	return TickRecord{}, false
}

func (m *Match) TickInterval() time.Duration {
	if m.opts.TickInterval <= 0 {
		return 500 * time.Millisecond
	}
	return m.opts.TickInterval
}

func (m *Match) SelectTarget(id UnitID) (Unit, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.battle == nil {
		return Unit{}, false
	}
	return m.battle.SelectTarget(id)
}

func (m *Match) CanAttack(attacker, target UnitID) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.battle != nil && m.battle.CanAttack(attacker, target)
}

func (m *Match) SetUnitState(id UnitID, st UnitState) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.battle != nil && m.phase == PhaseBattle && m.battle.SetUnitState(id, st)
}

func (m *Match) Summary() Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := Summary{
		Round:     m.round,
		MaxRounds: m.rounds,
		Wins:      m.wins,
		Draws:     m.draws,
		Phase:     m.phase,
		Winner:    m.matchWinner(),
	}
	if m.battle != nil {
		s.Tick = m.battle.Tick()
	}
	return s
}

func (m *Match) Replay() Replay {
	m.mu.Lock()
	logs := append([]RoundLog(nil), m.logs...)
	m.mu.Unlock()
	return Replay{Grid: m.grid, Rounds: logs, Summary: m.Summary()}
}

// Play runs the whole series with the current placements, returning the
// final summary. Each battle is bounded by MaxTicks.
func (m *Match) Play() (Summary, error) {
	for {
		switch m.Summary().Phase {
		case PhaseFinished:
			return m.Summary(), nil
		case PhasePlacement:
			if !m.StartBattle() {
				return m.Summary(), fmt.Errorf("round %d: both teams need placed units", m.Summary().Round)
			}
		}
		if _, ok := m.AdvanceTick(); !ok {
			return m.Summary(), fmt.Errorf("match stalled in %s phase", m.Summary().Phase)
		}
	}
}
