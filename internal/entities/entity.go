package entities

import "github.com/KirkDiggler/rpg-toolkit/core"

// Combatants are toolkit entities so combat code can treat both sides
// uniformly.
var (
	_ core.Entity = (*Character)(nil)
	_ core.Entity = (*Enemy)(nil)
)
