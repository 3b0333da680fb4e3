package testutils

import (
	"fmt"

	"github.com/KirkDiggler/rpg-toolkit/dice"
)

// ScriptedRoller returns rolls from a fixed script, in order. It makes
// combat and loot fully deterministic: the test writes down every die the
// code will ask for.
type ScriptedRoller struct {
	rolls []int
	next  int
}

// NewScriptedRoller creates a roller that replays the given values
func NewScriptedRoller(rolls ...int) *ScriptedRoller {
	return &ScriptedRoller{rolls: rolls}
}

var _ dice.Roller = (*ScriptedRoller)(nil)

// Roll returns the next scripted value
func (r *ScriptedRoller) Roll(_ int) (int, error) {
	if r.next >= len(r.rolls) {
		return 0, fmt.Errorf("scripted roller exhausted after %d rolls", len(r.rolls))
	}
	v := r.rolls[r.next]
	r.next++
	return v, nil
}

// RollN returns the next count scripted values
func (r *ScriptedRoller) RollN(count, size int) ([]int, error) {
	out := make([]int, 0, count)
	for i := 0; i < count; i++ {
		v, err := r.Roll(size)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Remaining reports how many scripted values are left unconsumed
func (r *ScriptedRoller) Remaining() int {
	return len(r.rolls) - r.next
}
