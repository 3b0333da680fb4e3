package entities

// Session states
const (
	SessionStateActive = "active"
	SessionStateEnded  = "ended"
)

// PendingLoot is the single-slot unclaimed reward awaiting an explicit
// player search action. Starting a new encounter overwrites it.
type PendingLoot struct {
	Gold   int32    `json:"gold"`
	Items  []string `json:"items"`
	Source string   `json:"source"`
}

// ResolvedAction is the persisted mechanical result of one player action.
// It is written before the narrator is called so that a retry of the same
// action replays the stored mechanics instead of re-resolving combat.
type ResolvedAction struct {
	ActionID  string          `json:"action_id"`
	Outcomes  []AttackOutcome `json:"outcomes,omitempty"`
	Victory   bool            `json:"victory"`
	Defeat    bool            `json:"defeat"`
	XPAwarded int32           `json:"xp_awarded"`

	// Claim results, kept so a replayed action narrates the loot the
	// original attempt already granted
	ClaimedGold  int32    `json:"claimed_gold,omitempty"`
	ClaimedItems []string `json:"claimed_items,omitempty"`
}

// Session is one player's narrative session. It owns the active encounter,
// the pending-loot slot, and the world state the narrator may patch.
type Session struct {
	ID          string                 `json:"id"`
	CharacterID string                 `json:"character_id"`
	State       string                 `json:"state"`
	Location    string                 `json:"location"`
	WorldState  map[string]interface{} `json:"world_state,omitempty"`
	Encounter   *CombatEncounter       `json:"encounter,omitempty"`
	PendingLoot *PendingLoot           `json:"pending_loot,omitempty"`
	LastAction  *ResolvedAction        `json:"last_action,omitempty"`
	Version     int64                  `json:"version"`
	CreatedAt   int64                  `json:"created_at"`
	UpdatedAt   int64                  `json:"updated_at"`
}

// IsEnded reports whether the session no longer accepts actions
func (s *Session) IsEnded() bool { return s.State == SessionStateEnded }

// InCombat reports whether an encounter is active
func (s *Session) InCombat() bool {
	return s.Encounter != nil && s.Encounter.Active
}
