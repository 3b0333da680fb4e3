package testutils

import (
	"github.com/fableforge/rules-api/internal/entities"
)

// Default fixture IDs
const (
	TestCharacterID = "char-test-001"
	TestSessionID   = "sess-test-001"
	TestPlayerID    = "player-test-001"
)

// CreateTestCharacter creates a level-1 fighter with a modest purse
func CreateTestCharacter() *entities.Character {
	return &entities.Character{
		ID:          TestCharacterID,
		PlayerID:    TestPlayerID,
		SessionID:   TestSessionID,
		Name:        "Brannok",
		Level:       1,
		XP:          0,
		MaxHP:       10,
		CurrentHP:   10,
		ArmorClass:  11,
		AttackBonus: 2,
		DamageDice:  "1d6",
		Gold:        10,
	}
}

// CreateTestSession creates an active session bound to the test character
func CreateTestSession() *entities.Session {
	return &entities.Session{
		ID:          TestSessionID,
		CharacterID: TestCharacterID,
		State:       entities.SessionStateActive,
		Location:    "a roadside village",
	}
}

// CreateTestGoblin creates a goblin at full health, matching the bestiary
// stat block with HP already rolled
func CreateTestGoblin(hp int32) *entities.Enemy {
	return &entities.Enemy{
		ID:          "enemy-goblin-001",
		Name:        "Goblin",
		CurrentHP:   hp,
		MaxHP:       hp,
		ArmorClass:  12,
		AttackBonus: 2,
		DamageDice:  "1d4",
		XPValue:     50,
		LootTable:   "goblin",
	}
}

// CreateTestEncounter wraps the given enemies in an active encounter with
// the player acting first
func CreateTestEncounter(enemies ...*entities.Enemy) *entities.CombatEncounter {
	return &entities.CombatEncounter{
		Active: true,
		Round:  0,
		Initiative: entities.Initiative{
			Player: 6,
			Enemy:  1,
		},
		Enemies: enemies,
	}
}
