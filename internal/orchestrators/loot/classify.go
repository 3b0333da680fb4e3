package loot

import "regexp"

// Search-style phrasings that trigger a pending-loot claim. The player has
// to actually look for the reward; walking away forfeits it when the next
// encounter starts.
var searchActionRegex = regexp.MustCompile(
	`(?i)\b(search|loot|rummage|scavenge|plunder|frisk|take|grab|collect|gather)\b|\bpick(s|ed)?\s+up\b|\bcheck(s|ed)?\s+(the\s+)?(body|bodies|corpse|corpses|remains)\b`,
)

// IsSearchAction classifies free-form player text as a loot search
func IsSearchAction(text string) bool {
	return searchActionRegex.MatchString(text)
}
