package combat

import "time"

type Attack struct {
	Attacker UnitID `json:"attacker"`
	Target   UnitID `json:"target"`
	Damage   int    `json:"damage"`
	TargetHP int    `json:"target_hp"`
	Killed   bool   `json:"killed,omitempty"`
}

type plannedAttack struct {
	attacker, target UnitID
}

// execute applies this tick's attacks, then its moves, removes the dead and
// returns the history record. Attacks were all chosen against the
// start-of-tick roster, so a unit killed this tick still lands its own hit.
func (b *Battle) execute(planned []plannedAttack, moves []Move, now time.Duration) TickRecord {
	attacks := make([]Attack, 0, len(planned))
	for _, pa := range planned {
		a, t := b.units[pa.attacker], b.units[pa.target]
		if a == nil || t == nil {
			continue
		}
		t.HP -= a.Power
		if t.HP < 0 {
			t.HP = 0
		}
		a.LastAttackAt = now
		a.hasAttacked = true
		if a.LockTarget == 0 {
			a.LockTarget = t.ID
			a.LockSetAt = b.tick
		}
		a.Facing = facingToward(a.Pos, t.Pos, a.Facing)
		attacks = append(attacks, Attack{
			Attacker: a.ID, Target: t.ID, Damage: a.Power, TargetHP: t.HP, Killed: !t.Alive(),
		})
	}

	applied := make([]Move, 0, len(moves))
	for _, mv := range moves {
		u := b.units[mv.Unit]
		if u == nil || !u.Alive() {
			continue
		}
		u.Facing = facingToward(mv.From, mv.To, u.Facing)
		u.Pos = mv.To
		if b.moveLockTicks > 0 {
			u.MoveLockUntil = b.tick + 1 + b.moveLockTicks
		}
		applied = append(applied, mv)
	}

	b.removeDead()

	return TickRecord{Tick: b.tick, Moves: applied, Attacks: attacks, Units: b.snapshot()}
}

func (b *Battle) removeDead() {
	alive := b.order[:0]
	var dead []UnitID
	for _, id := range b.order {
		if u := b.units[id]; u != nil && u.Alive() {
			alive = append(alive, id)
			continue
		}
		dead = append(dead, id)
	}
	b.order = alive
	for _, id := range dead {
		delete(b.units, id)
		b.fair.forget(id)
		b.log.Debug("unit removed", "tick", b.tick, "unit", id)
	}
	if len(dead) == 0 {
		return
	}
	for _, id := range b.order {
		u := b.units[id]
		if _, ok := b.units[u.LockTarget]; u.LockTarget != 0 && !ok {
			u.LockTarget = 0
		}
	}
}
