// Package catalog holds the static game content: the item catalog, the
// bestiary, and the loot tables. All three are flat keyed tables loaded
// from embedded YAML; enemy and item types are data, not code.
package catalog

import (
	"strings"

	"github.com/fableforge/rules-api/internal/errors"
)

// Item categories
const (
	CategoryWeapon     = "weapon"
	CategoryArmor      = "armor"
	CategoryConsumable = "consumable"
	CategoryQuest      = "quest"
	CategoryMisc       = "misc"
)

// ItemDefinition is one catalog row
type ItemDefinition struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Category   string `yaml:"category"`
	DamageDice string `yaml:"damage_dice,omitempty"`
	ArmorBonus int32  `yaml:"armor_bonus,omitempty"`
	Healing    int32  `yaml:"healing,omitempty"`
	Value      int32  `yaml:"value"`
}

// StatBlock is one bestiary row. MaxHP is rolled from HPDice at spawn.
type StatBlock struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	HPDice      string `yaml:"hp_dice"`
	ArmorClass  int32  `yaml:"armor_class"`
	AttackBonus int32  `yaml:"attack_bonus"`
	DamageDice  string `yaml:"damage_dice"`
	XPValue     int32  `yaml:"xp_value"`
	LootTable   string `yaml:"loot_table"`
}

// LootSlot is one weighted draw entry. An empty item is an explicit
// "nothing" outcome.
type LootSlot struct {
	Item   string `yaml:"item,omitempty"`
	Weight int32  `yaml:"weight"`
}

// LootTable is one weighted drop table. Rolls is the number of independent
// item draws; GoldDice is rolled once.
type LootTable struct {
	GoldDice string     `yaml:"gold_dice"`
	Rolls    int32      `yaml:"rolls"`
	Slots    []LootSlot `yaml:"slots"`
}

// TotalWeight returns the sum of slot weights. It is constant per table
// for the lifetime of the process.
func (t *LootTable) TotalWeight() int32 {
	var total int32
	for _, slot := range t.Slots {
		total += slot.Weight
	}
	return total
}

// FallbackLootTable is the universal table used when no key matches
const FallbackLootTable = "default"

// Catalog indexes the loaded content by string key
type Catalog struct {
	items       map[string]ItemDefinition
	itemsByName map[string]string
	bestiary    map[string]StatBlock
	lootTables  map[string]LootTable
}

// NormalizeKey canonicalizes a display name into a table key: lowercase
// with spaces collapsed to underscores ("Drunken Man" -> "drunken_man").
func NormalizeKey(name string) string {
	key := strings.ToLower(strings.TrimSpace(name))
	return strings.Join(strings.Fields(key), "_")
}

// Item returns the catalog row for an item ID
func (c *Catalog) Item(id string) (ItemDefinition, bool) {
	item, ok := c.items[NormalizeKey(id)]
	return item, ok
}

// ResolveItem finds an item by ID or display name, case-insensitively
func (c *Catalog) ResolveItem(nameOrID string) (ItemDefinition, bool) {
	key := NormalizeKey(nameOrID)
	if item, ok := c.items[key]; ok {
		return item, true
	}
	if id, ok := c.itemsByName[key]; ok {
		return c.items[id], true
	}
	return ItemDefinition{}, false
}

// StatBlock looks up a bestiary entry by enemy name. Lookup is by
// normalized key only; unknown enemies are the combat resolver's problem.
func (c *Catalog) StatBlock(name string) (StatBlock, bool) {
	block, ok := c.bestiary[NormalizeKey(name)]
	return block, ok
}

// LootTableFor resolves a loot-table key: exact normalized match first,
// then the first word of the name, then the universal fallback. Returns
// the resolved key alongside the table so callers can log which one won.
func (c *Catalog) LootTableFor(key string) (LootTable, string) {
	normalized := NormalizeKey(key)
	if table, ok := c.lootTables[normalized]; ok {
		return table, normalized
	}
	if i := strings.IndexByte(normalized, '_'); i > 0 {
		first := normalized[:i]
		if table, ok := c.lootTables[first]; ok {
			return table, first
		}
	}
	return c.lootTables[FallbackLootTable], FallbackLootTable
}

// validate checks referential integrity after load
func (c *Catalog) validate() error {
	if _, ok := c.lootTables[FallbackLootTable]; !ok {
		return errors.Internal("loot tables missing the universal fallback table")
	}
	for key, table := range c.lootTables {
		if table.TotalWeight() <= 0 {
			return errors.Internalf("loot table %q has non-positive total weight", key)
		}
		for _, slot := range table.Slots {
			if slot.Item == "" {
				continue
			}
			if _, ok := c.items[NormalizeKey(slot.Item)]; !ok {
				return errors.Internalf("loot table %q references unknown item %q", key, slot.Item)
			}
		}
	}
	for key, block := range c.bestiary {
		if block.LootTable == "" {
			return errors.Internalf("bestiary entry %q has no loot table key", key)
		}
	}
	return nil
}
