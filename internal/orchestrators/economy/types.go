package economy

import (
	"github.com/fableforge/rules-api/internal/entities"
)

// ApplyInput defines the input for gating one proposed change set
type ApplyInput struct {
	Character *entities.Character
	Session   *entities.Session

	// Proposed is the narrator's untrusted change record
	Proposed entities.ProposedStateChanges

	// ActionText is the player's phrasing, used for the commerce
	// compatibility fallback
	ActionText string
}

// ApplyOutput reports what the gate actually executed
type ApplyOutput struct {
	Executed *entities.ExecutedChanges
}

// commerceIntent is the transaction the gate decided to run, either from
// the typed fields or recovered from blocked generic fields
type commerceIntent struct {
	sellItem string
	buyItem  string
	buyPrice int32

	// catalogPriced marks a fallback buy, priced from the catalog because
	// the narrator never proposed a typed price
	catalogPriced bool

	// consumedGoldDelta and consumedAdd/consumedRemove mark generic fields
	// the fallback absorbed so they are not applied twice
	consumedGoldDelta bool
	consumedAdd       string
	consumedRemove    string
}
