package combat

import "regexp"

// Flee phrasings end the encounter without resolving a round. The enemies
// stay alive; there is no victory and no loot.
var fleeActionRegex = regexp.MustCompile(`(?i)\b(flee|flees|run\s+away|runs\s+away|retreat|retreats|escape|escapes)\b`)

// IsFleeAction classifies free-form player text as a flee attempt
func IsFleeAction(text string) bool {
	return fleeActionRegex.MatchString(text)
}
