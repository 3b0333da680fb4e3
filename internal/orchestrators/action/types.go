package action

import (
	"github.com/fableforge/rules-api/internal/entities"
)

// HandleActionInput defines the input for processing one player action
type HandleActionInput struct {
	SessionID string

	// ActionID is a client-generated idempotency key. Retrying a failed
	// narrator call with the same ActionID replays the already-persisted
	// mechanics instead of re-resolving combat.
	ActionID string

	// Text is the player's free-form action phrasing
	Text string
}

// HandleActionOutput is the full result of one processed action
type HandleActionOutput struct {
	Narration    string
	Executed     *entities.ExecutedChanges
	Outcomes     []entities.AttackOutcome
	Character    *entities.Character
	SessionEnded bool

	// Blocked is set when the cost guard refused the narrator call;
	// Narration then carries the in-fiction message and nothing mutated
	Blocked     bool
	BlockReason string
}

// CreateCharacterInput defines the input for creating a character
type CreateCharacterInput struct {
	PlayerID string
	Name     string
}

// CreateCharacterOutput defines the output for creating a character
type CreateCharacterOutput struct {
	Character *entities.Character
}

// GetCharacterInput defines the input for fetching a character
type GetCharacterInput struct {
	ID string
}

// GetCharacterOutput defines the output for fetching a character
type GetCharacterOutput struct {
	Character *entities.Character
}

// CreateSessionInput defines the input for starting a session
type CreateSessionInput struct {
	CharacterID string
	Location    string
}

// CreateSessionOutput defines the output for starting a session
type CreateSessionOutput struct {
	Session *entities.Session
}

// GetSessionInput defines the input for fetching a session
type GetSessionInput struct {
	ID string
}

// GetSessionOutput defines the output for fetching a session
type GetSessionOutput struct {
	Session *entities.Session
}
