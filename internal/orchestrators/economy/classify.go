package economy

import "regexp"

// Commerce phrasings recognized by the compatibility fallback. The narrator
// sometimes ignores the typed commerce fields and emits the blocked generic
// ones instead; when the player's own words clearly describe a trade, the
// gate re-executes it through the authorized path.
var (
	buyActionRegex  = regexp.MustCompile(`(?i)\b(buy|buys|purchase|purchases|pay(s)?\s+for|haggle(s)?\s+for|barter(s)?\s+for)\b`)
	sellActionRegex = regexp.MustCompile(`(?i)\b(sell|sells|pawn|pawns|hawk|hawks)\b|\btrade(s)?\s+(away|in)\b|\boffer(s)?\s+to\s+sell\b`)
)

// IsBuyAction classifies free-form player text as a purchase attempt
func IsBuyAction(text string) bool {
	return buyActionRegex.MatchString(text)
}

// IsSellAction classifies free-form player text as a sale attempt
func IsSellAction(text string) bool {
	return sellActionRegex.MatchString(text)
}
