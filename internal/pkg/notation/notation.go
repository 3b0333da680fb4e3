// Package notation parses and rolls dice notation like "2d6" or "1d8+2".
package notation

import (
	"regexp"
	"strconv"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/fableforge/rules-api/internal/errors"
)

// Regex for dice notation like "2d6", "1d20", "3d8+2", "1d4-1"
var diceNotationRegex = regexp.MustCompile(`^(\d+)d(\d+)([+-]\d+)?$`)

// Parse splits dice notation into count, die size, and flat modifier
func Parse(s string) (count, size, modifier int, err error) {
	matches := diceNotationRegex.FindStringSubmatch(s)
	if len(matches) != 4 {
		return 0, 0, 0, errors.InvalidArgumentf("invalid dice notation: %s (expected format: XdY or XdY+Z)", s)
	}

	count, err = strconv.Atoi(matches[1])
	if err != nil {
		return 0, 0, 0, errors.InvalidArgumentf("invalid dice count in notation: %s", s)
	}

	size, err = strconv.Atoi(matches[2])
	if err != nil {
		return 0, 0, 0, errors.InvalidArgumentf("invalid die size in notation: %s", s)
	}

	if matches[3] != "" {
		modifier, err = strconv.Atoi(matches[3])
		if err != nil {
			return 0, 0, 0, errors.InvalidArgumentf("invalid modifier in notation: %s", s)
		}
	}

	if count <= 0 || size <= 0 {
		return 0, 0, 0, errors.InvalidArgumentf("dice count and size must be positive: %s", s)
	}

	return count, size, modifier, nil
}

// Roll parses and rolls the notation with the given roller
func Roll(roller dice.Roller, s string) (int32, error) {
	count, size, modifier, err := Parse(s)
	if err != nil {
		return 0, err
	}

	rolls, err := roller.RollN(count, size)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to roll %s", s)
	}

	total := modifier
	for _, r := range rolls {
		total += r
	}

	return int32(total), nil // nolint:gosec // dice totals are small
}

// RollOr rolls the notation, failing closed to the fallback value on
// malformed notation or roller failure. Callers in the combat and loot
// paths must never propagate a dice error to the player.
func RollOr(roller dice.Roller, s string, fallback int32) int32 {
	total, err := Roll(roller, s)
	if err != nil {
		return fallback
	}
	return total
}

// RollDie rolls a single die of the given size, failing closed to 1
func RollDie(roller dice.Roller, size int) int32 {
	v, err := roller.Roll(size)
	if err != nil {
		return 1
	}
	return int32(v) // nolint:gosec // die faces are small
}
