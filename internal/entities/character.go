// Package entities defines the domain records the rules core reads and
// writes. Entities are plain data; the orchestrators own all game logic.
package entities

import "strings"

// EntityTypeCharacter is the core.Entity type tag for player characters
const EntityTypeCharacter = "character"

// Character is the player character record. HP, gold, XP, and inventory are
// authoritative here; the narrator only proposes changes to them.
type Character struct {
	ID          string           `json:"id"`
	PlayerID    string           `json:"player_id"`
	SessionID   string           `json:"session_id"`
	Name        string           `json:"name"`
	Level       int32            `json:"level"`
	XP          int32            `json:"xp"`
	MaxHP       int32            `json:"max_hp"`
	CurrentHP   int32            `json:"current_hp"`
	ArmorClass  int32            `json:"armor_class"`
	AttackBonus int32            `json:"attack_bonus"`
	DamageDice  string           `json:"damage_dice"`
	Gold        int32            `json:"gold"`
	Inventory   []InventoryEntry `json:"inventory"`
	Version     int64            `json:"version"`
	CreatedAt   int64            `json:"created_at"`
	UpdatedAt   int64            `json:"updated_at"`
}

// GetID implements core.Entity
func (c *Character) GetID() string { return c.ID }

// GetType implements core.Entity
func (c *Character) GetType() string { return EntityTypeCharacter }

// InventoryEntry is one owned item stack. Quantity is always >= 1; the
// entry is removed when the last unit goes.
type InventoryEntry struct {
	ItemID   string `json:"item_id"`
	Name     string `json:"name"`
	Quantity int32  `json:"quantity"`
	Category string `json:"category"`
}

// FindInventory returns the index of the inventory entry matching the given
// name or item ID, case-insensitively, or -1 if none matches.
func (c *Character) FindInventory(nameOrID string) int {
	needle := strings.ToLower(strings.TrimSpace(nameOrID))
	if needle == "" {
		return -1
	}
	for i, entry := range c.Inventory {
		if strings.ToLower(entry.ItemID) == needle || strings.ToLower(entry.Name) == needle {
			return i
		}
	}
	return -1
}

// AddItem adds one unit of an item, incrementing the stack if already owned.
func (c *Character) AddItem(itemID, name, category string) {
	if i := c.FindInventory(itemID); i >= 0 {
		c.Inventory[i].Quantity++
		return
	}
	c.Inventory = append(c.Inventory, InventoryEntry{
		ItemID:   itemID,
		Name:     name,
		Quantity: 1,
		Category: category,
	})
}

// RemoveItem removes one unit of the entry at index i, dropping the entry
// when the stack empties.
func (c *Character) RemoveItem(i int) {
	if i < 0 || i >= len(c.Inventory) {
		return
	}
	if c.Inventory[i].Quantity > 1 {
		c.Inventory[i].Quantity--
		return
	}
	c.Inventory = append(c.Inventory[:i], c.Inventory[i+1:]...)
}

// ClampHP forces CurrentHP back into [0, MaxHP]
func (c *Character) ClampHP() {
	if c.CurrentHP < 0 {
		c.CurrentHP = 0
	}
	if c.CurrentHP > c.MaxHP {
		c.CurrentHP = c.MaxHP
	}
}

// IsDead reports whether the character has dropped to 0 HP
func (c *Character) IsDead() bool { return c.CurrentHP <= 0 }
