package loot

import (
	"github.com/fableforge/rules-api/internal/entities"
)

// RollForVictoryInput defines the input for rolling loot after a won encounter
type RollForVictoryInput struct {
	// Defeated are the enemies downed in the encounter
	Defeated []*entities.Enemy

	// Source tags the resulting pending loot, e.g. "combat:goblin"
	Source string
}

// RollForVictoryOutput carries the aggregated pending loot
type RollForVictoryOutput struct {
	Loot *entities.PendingLoot
}

// ClaimInput defines the input for claiming the pending-loot slot
type ClaimInput struct {
	Character *entities.Character
	Session   *entities.Session
}

// ClaimedItem is one granted item with its resolved display name
type ClaimedItem struct {
	ItemID string
	Name   string
}

// ClaimOutput reports what the claim granted. Claimed is false when the
// slot was already empty.
type ClaimOutput struct {
	Claimed bool
	Gold    int32
	Items   []ClaimedItem
}
