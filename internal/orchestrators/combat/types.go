package combat

import (
	"github.com/KirkDiggler/rpg-toolkit/core"

	"github.com/fableforge/rules-api/internal/entities"
)

// StartEncounterInput defines the input for starting an encounter
type StartEncounterInput struct {
	// EnemyNames are the hostiles the narration introduced. Names missing
	// from the bestiary spawn with the conservative default stat block.
	EnemyNames []string
}

// StartEncounterOutput defines the output for starting an encounter
type StartEncounterOutput struct {
	Encounter *entities.CombatEncounter
}

// ResolveRoundInput defines the input for resolving one combat round
type ResolveRoundInput struct {
	Character *entities.Character
	Encounter *entities.CombatEncounter
}

// ResolveRoundOutput is the mechanical truth of one resolved round
type ResolveRoundOutput struct {
	Round     int32
	Outcomes  []entities.AttackOutcome
	Victory   bool
	Defeat    bool
	XPAwarded int32
}

// combatant is one participant in an attack: a toolkit entity plus the
// stats the resolver reads and the HP pool it damages. Both sides of a
// fight go through the same attack path; the entity type tells the
// resolver which side just died.
type combatant struct {
	core.Entity

	name        string
	attackBonus int32
	damageDice  string
	armorClass  int32
	hp          *int32
}

func characterCombatant(c *entities.Character) *combatant {
	return &combatant{
		Entity:      c,
		name:        c.Name,
		attackBonus: c.AttackBonus,
		damageDice:  c.DamageDice,
		armorClass:  c.ArmorClass,
		hp:          &c.CurrentHP,
	}
}

func enemyCombatant(e *entities.Enemy) *combatant {
	return &combatant{
		Entity:      e,
		name:        e.Name,
		attackBonus: e.AttackBonus,
		damageDice:  e.DamageDice,
		armorClass:  e.ArmorClass,
		hp:          &e.CurrentHP,
	}
}
