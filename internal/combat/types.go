package combat

import (
	"fmt"
	"time"
)

type Event struct {
	Tick    int            `json:"tick"`
	Type    string         `json:"type"`
	Payload map[string]any `json:"payload,omitempty"`
}

type UnitID int

type Team int

const (
	TeamA Team = iota
	TeamB
)

func (t Team) Opponent() Team { return 1 - t }

func (t Team) String() string {
	if t == TeamA {
		return "A"
	}
	return "B"
}

func (t Team) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *Team) UnmarshalText(b []byte) error {
	switch string(b) {
	case "A", "a":
		*t = TeamA
	case "B", "b":
		*t = TeamB
	default:
		return fmt.Errorf("unknown team %q", b)
	}
	return nil
}

type Archetype int

const (
	Melee Archetype = iota
	Ranged
)

func (a Archetype) String() string {
	if a == Ranged {
		return "ranged"
	}
	return "melee"
}

func (a Archetype) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

func (a *Archetype) UnmarshalText(b []byte) error {
	switch string(b) {
	case "melee":
		*a = Melee
	case "ranged":
		*a = Ranged
	default:
		return fmt.Errorf("unknown archetype %q", b)
	}
	return nil
}

type Facing int

const (
	FacingUp Facing = iota
	FacingDown
	FacingLeft
	FacingRight
)

// facingToward picks the dominant axis of the step from a to b. Equal
// components keep the vertical facing.
func facingToward(a, b Pos, fallback Facing) Facing {
	d := b.Sub(a)
	switch {
	case d.X == 0 && d.Y == 0:
		return fallback
	case abs(d.X) > abs(d.Y) && d.X > 0:
		return FacingRight
	case abs(d.X) > abs(d.Y):
		return FacingLeft
	case d.Y > 0:
		return FacingDown
	default:
		return FacingUp
	}
}

// UnitState is reported by the presentation layer. Units that are mid
// transition sit out the tick.
type UnitState int

const (
	StateIdle UnitState = iota
	StateMoving
	StateAttacking
)

type Unit struct {
	ID        UnitID
	Name      string
	Team      Team
	Archetype Archetype

	Pos    Pos
	Facing Facing

	HP    int
	MaxHP int
	Power int
	Range int

	Taunt          bool
	InvisibleUntil int

	Cooldown     time.Duration
	LastAttackAt time.Duration
	hasAttacked  bool

	LockTarget UnitID
	LockSetAt  int

	MoveLockUntil int

	State UnitState
}

func (u *Unit) Alive() bool { return u.HP > 0 }

func (u *Unit) Invisible(tick int) bool { return tick < u.InvisibleUntil }

// reach normalises Range so that every unit can at least hit adjacent cells.
func (u *Unit) reach() int {
	if u.Range < 1 {
		return 1
	}
	return u.Range
}

// canAttackFrom evaluates the attack predicate as if u stood at from.
func (u *Unit) canAttackFrom(from, target Pos) bool {
	if from == target {
		return false
	}
	if u.Archetype == Ranged {
		return Manhattan(from, target) <= u.reach()
	}
	return Chebyshev(from, target) <= u.reach()
}

// CanAttack reports whether target is inside u's attack range right now.
// Cooldown is not considered.
func CanAttack(u, target *Unit) bool {
	if u == nil || target == nil || !target.Alive() {
		return false
	}
	return u.canAttackFrom(u.Pos, target.Pos)
}

func (u *Unit) ready(now time.Duration) bool {
	return !u.hasAttacked || now-u.LastAttackAt >= u.Cooldown
}

func (u *Unit) clone() *Unit {
	cp := *u
	return &cp
}
