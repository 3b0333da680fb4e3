// Package combat implements the deterministic combat resolver. It is the
// single authority on hits, damage, and death; the narrator only describes
// what this package already decided.
package combat

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/pkg/idgen"
	"github.com/fableforge/rules-api/internal/pkg/notation"
)

// Tie-break policies for equal initiative rolls. The observed behavior of
// the original game never exercised a tie, so the policy is an explicit
// configuration choice rather than an accident of iteration order.
const (
	TieBreakPlayer = "player"
	TieBreakEnemy  = "enemy"
)

const (
	d20Size        = 20
	initiativeSize = 6

	naturalFumble = 1
	naturalCrit   = 20

	// Fail-closed values for malformed dice notation
	fallbackDamage = 1
	fallbackHP     = 4
)

// Default stat block for enemies the narrator invented that are not in
// the bestiary. Deliberately weak: unknown input never spawns a monster
// stronger than the bestiary would allow.
var defaultStatBlock = catalog.StatBlock{
	HPDice:      "1d8",
	ArmorClass:  10,
	AttackBonus: 1,
	DamageDice:  "1d4",
	XPValue:     10,
	LootTable:   catalog.FallbackLootTable,
}

// Service defines the interface for combat operations
type Service interface {
	// StartEncounter spawns enemies and rolls initiative once per side
	StartEncounter(ctx context.Context, input *StartEncounterInput) (*StartEncounterOutput, error)

	// ResolveRound resolves exactly one combat round, mutating character
	// and enemy HP in place
	ResolveRound(ctx context.Context, input *ResolveRoundInput) (*ResolveRoundOutput, error)
}

// Config holds the dependencies for the combat orchestrator
type Config struct {
	DiceRoller  dice.Roller
	Catalog     *catalog.Catalog
	IDGenerator idgen.Generator

	// TieBreak decides who acts first when initiative rolls are equal.
	// Defaults to TieBreakPlayer.
	TieBreak string
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DiceRoller == nil {
		vb.RequiredField("DiceRoller")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}
	if c.TieBreak != "" && c.TieBreak != TieBreakPlayer && c.TieBreak != TieBreakEnemy {
		vb.Fieldf("TieBreak", "must be %q or %q", TieBreakPlayer, TieBreakEnemy)
	}

	return vb.Build()
}

type orchestrator struct {
	roller   dice.Roller
	catalog  *catalog.Catalog
	idGen    idgen.Generator
	tieBreak string
}

// NewOrchestrator creates a new combat orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	tieBreak := cfg.TieBreak
	if tieBreak == "" {
		tieBreak = TieBreakPlayer
	}

	return &orchestrator{
		roller:   cfg.DiceRoller,
		catalog:  cfg.Catalog,
		idGen:    cfg.IDGenerator,
		tieBreak: tieBreak,
	}, nil
}

var _ Service = (*orchestrator)(nil)

// StartEncounter spawns one enemy instance per name and rolls 1d6
// initiative for each side
func (o *orchestrator) StartEncounter(_ context.Context, input *StartEncounterInput) (*StartEncounterOutput, error) {
	if len(input.EnemyNames) == 0 {
		return nil, errors.InvalidArgument("at least one enemy name is required")
	}

	enemies := make([]*entities.Enemy, 0, len(input.EnemyNames))
	for _, name := range input.EnemyNames {
		enemies = append(enemies, o.spawnEnemy(name))
	}

	encounter := &entities.CombatEncounter{
		Active: true,
		Round:  0,
		Initiative: entities.Initiative{
			Player: o.rollDie(initiativeSize),
			Enemy:  o.rollDie(initiativeSize),
		},
		Enemies: enemies,
	}

	slog.Info("encounter started",
		"enemies", len(enemies),
		"player_initiative", encounter.Initiative.Player,
		"enemy_initiative", encounter.Initiative.Enemy,
	)

	return &StartEncounterOutput{Encounter: encounter}, nil
}

// spawnEnemy builds an enemy instance from the bestiary, or from the
// conservative default block when the narrator invented the name
func (o *orchestrator) spawnEnemy(name string) *entities.Enemy {
	block, ok := o.catalog.StatBlock(name)
	if !ok {
		block = defaultStatBlock
		slog.Warn("enemy not in bestiary, using default stat block", "name", name)
	}

	displayName := block.Name
	if displayName == "" {
		displayName = name
	}

	lootTable := block.LootTable
	if lootTable == "" {
		lootTable = catalog.NormalizeKey(name)
	}

	maxHP := o.rollNotation(block.HPDice, fallbackHP)

	return &entities.Enemy{
		ID:          o.idGen.Generate(),
		Name:        displayName,
		CurrentHP:   maxHP,
		MaxHP:       maxHP,
		ArmorClass:  block.ArmorClass,
		AttackBonus: block.AttackBonus,
		DamageDice:  block.DamageDice,
		XPValue:     block.XPValue,
		LootTable:   lootTable,
	}
}

// ResolveRound resolves exactly one round. Attack order is fixed by the
// initiative rolled at encounter start.
func (o *orchestrator) ResolveRound(_ context.Context, input *ResolveRoundInput) (*ResolveRoundOutput, error) {
	if input.Character == nil {
		return nil, errors.InvalidArgument("character is required")
	}
	if input.Encounter == nil || !input.Encounter.Active {
		return nil, errors.FailedPrecondition("no active encounter to resolve")
	}

	character := input.Character
	encounter := input.Encounter
	encounter.Round++

	result := &ResolveRoundOutput{Round: encounter.Round}

	if o.playerActsFirst(encounter.Initiative) {
		o.playerTurn(character, encounter, result)
		if !result.Victory {
			o.enemyTurn(character, encounter, result)
		}
	} else {
		o.enemyTurn(character, encounter, result)
		if !result.Defeat {
			o.playerTurn(character, encounter, result)
		}
	}

	if result.Victory || result.Defeat {
		encounter.Active = false
	}

	slog.Info("combat round resolved",
		"round", encounter.Round,
		"attacks", len(result.Outcomes),
		"victory", result.Victory,
		"defeat", result.Defeat,
	)

	return result, nil
}

func (o *orchestrator) playerActsFirst(initiative entities.Initiative) bool {
	if initiative.Player == initiative.Enemy {
		return o.tieBreak == TieBreakPlayer
	}
	return initiative.Player > initiative.Enemy
}

// playerTurn attacks the first living enemy
func (o *orchestrator) playerTurn(character *entities.Character, encounter *entities.CombatEncounter, result *ResolveRoundOutput) {
	living := encounter.LivingEnemies()
	if len(living) == 0 {
		result.Victory = true
		return
	}

	target := living[0]
	outcome := o.resolveAttack(characterCombatant(character), enemyCombatant(target), result)
	result.Outcomes = append(result.Outcomes, outcome)

	if outcome.TargetDead {
		result.XPAwarded += target.XPValue
	}
	if encounter.AllDefeated() {
		result.Victory = true
	}
}

// enemyTurn has every living enemy attack the character, stopping early if
// the character drops
func (o *orchestrator) enemyTurn(character *entities.Character, encounter *entities.CombatEncounter, result *ResolveRoundOutput) {
	defender := characterCombatant(character)
	for _, enemy := range encounter.LivingEnemies() {
		outcome := o.resolveAttack(enemyCombatant(enemy), defender, result)
		result.Outcomes = append(result.Outcomes, outcome)

		if result.Defeat {
			return
		}
	}
}

// resolveAttack rolls one attack between two combatants. A natural 1
// always misses and a natural 20 always hits, regardless of the target's
// armor class. Damage is floored at 1 and defender HP is clamped at 0.
// A dead defender of the character entity type marks the round a defeat.
func (o *orchestrator) resolveAttack(attacker, defender *combatant, result *ResolveRoundOutput) entities.AttackOutcome {
	roll := o.rollDie(d20Size)
	total := roll + attacker.attackBonus

	outcome := entities.AttackOutcome{
		Attacker: attacker.name,
		Defender: defender.name,
		Roll:     roll,
		Bonus:    attacker.attackBonus,
		Total:    total,
		TargetAC: defender.armorClass,
		HPBefore: *defender.hp,
		HPAfter:  *defender.hp,
	}

	switch {
	case roll == naturalFumble:
		outcome.IsFumble = true
	case roll == naturalCrit:
		outcome.IsCritical = true
		outcome.IsHit = true
	default:
		outcome.IsHit = total >= defender.armorClass
	}

	if !outcome.IsHit {
		return outcome
	}

	damage := o.rollNotation(attacker.damageDice, fallbackDamage)
	if damage < 1 {
		damage = 1
	}

	hpAfter := *defender.hp - damage
	if hpAfter < 0 {
		hpAfter = 0
	}
	*defender.hp = hpAfter

	outcome.Damage = damage
	outcome.HPAfter = hpAfter
	outcome.TargetDead = hpAfter == 0

	if outcome.TargetDead {
		if defender.GetType() == entities.EntityTypeCharacter {
			result.Defeat = true
		}
		slog.Debug("combatant down",
			"attacker_id", attacker.GetID(),
			"attacker_type", attacker.GetType(),
			"defender_id", defender.GetID(),
			"defender_type", defender.GetType(),
		)
	}

	return outcome
}

func (o *orchestrator) rollDie(size int) int32 {
	return notation.RollDie(o.roller, size)
}

func (o *orchestrator) rollNotation(s string, fallback int32) int32 {
	return notation.RollOr(o.roller, s, fallback)
}
