// Package narrator defines the boundary with the external text-generation
// service. The narrator produces prose and proposes state changes; nothing
// it returns is trusted until the economy gate has inspected it.
package narrator

//go:generate mockgen -destination=mock/mock_client.go -package=narratormock github.com/fableforge/rules-api/internal/clients/narrator Client

import (
	"context"

	"github.com/fableforge/rules-api/internal/entities"
)

// Request carries the mechanical ground truth the narrator must narrate,
// plus the player's action text and a context snapshot
type Request struct {
	ActionText string

	Character  *entities.Character
	Location   string
	WorldState map[string]interface{}

	// Resolved mechanics, already persisted before this call
	Outcomes         []entities.AttackOutcome
	EncounterVictory bool
	EncounterDefeat  bool

	// Loot already granted by a claim; the narrator describes it and
	// cannot change the amounts
	ClaimedGold  int32
	ClaimedItems []string
}

// TokenUsage is the actual cost of one narrator call
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
}

// Narration is the narrator's reply: prose plus the untrusted proposal.
// EncounterEnemies is the one narrative authority the narrator keeps: it
// may introduce hostiles, which the combat resolver then spawns from the
// bestiary on its own terms.
type Narration struct {
	Text             string
	Proposed         entities.ProposedStateChanges
	EncounterEnemies []string
	Usage            TokenUsage
}

// Client is the single operation the core needs from the narrator
type Client interface {
	Narrate(ctx context.Context, req *Request) (*Narration, error)
}
