// Package economy implements the authority gate: the single point through
// which every state change proposed by the narrator is validated, rejected,
// or executed. Items and currency enter the game only through a loot claim
// or a commerce transaction; everything else the narrator proposes in the
// generic grant fields is coerced to a no-op and logged.
package economy

import (
	"context"
	"log/slog"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
)

// Service defines the interface for the economy authority gate
type Service interface {
	// Apply validates and executes one proposed change set against the
	// character and session, mutating both in place. Rejections degrade
	// to no-ops; Apply only errors on missing input.
	Apply(ctx context.Context, input *ApplyInput) (*ApplyOutput, error)
}

// Config holds the dependencies for the economy gate
type Config struct {
	Catalog *catalog.Catalog
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}

	return vb.Build()
}

type orchestrator struct {
	catalog *catalog.Catalog
}

// NewOrchestrator creates a new economy gate with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{catalog: cfg.Catalog}, nil
}

var _ Service = (*orchestrator)(nil)

// XP thresholds: 1000 XP per level, +5 max HP per level gained
const (
	xpPerLevel    = 1000
	hpPerLevel    = 5
	minSellPrice  = 1
	sellValueHalf = 2
)

// Apply inspects the proposal field by field and executes only what the
// rules allow
func (o *orchestrator) Apply(_ context.Context, input *ApplyInput) (*ApplyOutput, error) {
	if input.Character == nil {
		return nil, errors.InvalidArgument("character is required")
	}
	if input.Session == nil {
		return nil, errors.InvalidArgument("session is required")
	}

	character := input.Character
	session := input.Session
	proposed := input.Proposed
	executed := &entities.ExecutedChanges{}

	intent := o.resolveCommerceIntent(character, proposed, input.ActionText)

	o.applyGoldDelta(character, proposed, intent, executed)
	o.applyHPDelta(character, proposed.HPDelta, executed)
	o.applyXPDelta(character, proposed.XPDelta, executed)
	o.applyInventoryAdds(character, proposed.InventoryAdd, intent, executed)
	o.applyInventoryRemoves(character, proposed.InventoryRemove, intent, executed)
	o.applyItemUsed(character, proposed.ItemUsed, executed)
	o.executeCommerce(character, intent, executed)

	if proposed.Location != "" {
		session.Location = proposed.Location
		executed.Location = proposed.Location
	}
	if len(proposed.WorldState) > 0 {
		if session.WorldState == nil {
			session.WorldState = make(map[string]interface{}, len(proposed.WorldState))
		}
		for k, v := range proposed.WorldState {
			session.WorldState[k] = v
		}
	}

	return &ApplyOutput{Executed: executed}, nil
}

// resolveCommerceIntent prefers the typed commerce fields. When those are
// absent but the narrator emitted now-blocked generic grants while the
// player's phrasing clearly describes a trade, the equivalent transaction
// is recovered and re-executed on the authorized path.
func (o *orchestrator) resolveCommerceIntent(character *entities.Character, proposed entities.ProposedStateChanges, actionText string) commerceIntent {
	var intent commerceIntent

	if proposed.CommerceSell != "" {
		intent.sellItem = proposed.CommerceSell
	}
	if proposed.CommerceBuy != nil && proposed.CommerceBuy.Item != "" {
		intent.buyItem = proposed.CommerceBuy.Item
		intent.buyPrice = proposed.CommerceBuy.Price
	}
	if intent.sellItem != "" || intent.buyItem != "" {
		return intent
	}

	// Fallback sell: positive gold delta (blocked) + one generic removal +
	// sell phrasing. Price comes from the catalog, not the narrator.
	if proposed.GoldDelta > 0 && len(proposed.InventoryRemove) == 1 && IsSellAction(actionText) {
		intent.sellItem = proposed.InventoryRemove[0]
		intent.consumedGoldDelta = true
		intent.consumedRemove = proposed.InventoryRemove[0]
		slog.Info("recovered sell from blocked generic fields",
			"character_id", character.ID,
			"item", intent.sellItem,
		)
		return intent
	}

	// Fallback buy: one generic add (blocked) + buy phrasing. Catalog
	// priced; the narrator's gold delta, if any, is absorbed so the
	// character is not charged twice.
	if len(proposed.InventoryAdd) == 1 && IsBuyAction(actionText) {
		intent.buyItem = proposed.InventoryAdd[0]
		intent.catalogPriced = true
		intent.consumedAdd = proposed.InventoryAdd[0]
		intent.consumedGoldDelta = proposed.GoldDelta < 0
		slog.Info("recovered buy from blocked generic fields",
			"character_id", character.ID,
			"item", intent.buyItem,
		)
	}

	return intent
}

// applyGoldDelta blocks positive grants outright and trusts spending,
// clamped so gold never goes negative
func (o *orchestrator) applyGoldDelta(character *entities.Character, proposed entities.ProposedStateChanges, intent commerceIntent, executed *entities.ExecutedChanges) {
	delta := proposed.GoldDelta
	if delta == 0 || intent.consumedGoldDelta {
		return
	}

	if delta > 0 {
		executed.BlockedGold = delta
		slog.Warn("blocked narrator gold grant",
			"character_id", character.ID,
			"gold_delta", delta,
		)
		return
	}

	before := character.Gold
	character.Gold += delta
	if character.Gold < 0 {
		character.Gold = 0
	}
	executed.GoldDelta = character.Gold - before
}

// applyHPDelta trusts the delta and clamps the result into [0, max]
func (o *orchestrator) applyHPDelta(character *entities.Character, delta int32, executed *entities.ExecutedChanges) {
	if delta == 0 {
		return
	}

	before := character.CurrentHP
	character.CurrentHP += delta
	character.ClampHP()
	executed.HPDelta = character.CurrentHP - before
}

// applyXPDelta trusts the delta, keeps XP non-negative, and applies level
// thresholds
func (o *orchestrator) applyXPDelta(character *entities.Character, delta int32, executed *entities.ExecutedChanges) {
	if delta == 0 {
		return
	}

	applied, gained := ApplyXP(character, delta)
	executed.XPDelta = applied
	executed.LevelsGained = gained
}

// ApplyXP adds experience, keeps the total non-negative, and applies level
// thresholds, growing max and current HP with each level gained. Combat
// awards go through here too so every XP source levels the same way.
func ApplyXP(character *entities.Character, delta int32) (applied, levelsGained int32) {
	before := character.XP
	character.XP += delta
	if character.XP < 0 {
		character.XP = 0
	}
	applied = character.XP - before

	newLevel := 1 + character.XP/xpPerLevel
	if newLevel > character.Level {
		levelsGained = newLevel - character.Level
		character.Level = newLevel
		character.MaxHP += levelsGained * hpPerLevel
		character.CurrentHP += levelsGained * hpPerLevel
		character.ClampHP()

		slog.Info("character leveled up",
			"character_id", character.ID,
			"level", character.Level,
			"levels_gained", levelsGained,
		)
	}

	return applied, levelsGained
}

// applyInventoryAdds rejects every generic item grant
func (o *orchestrator) applyInventoryAdds(character *entities.Character, adds []string, intent commerceIntent, executed *entities.ExecutedChanges) {
	for _, item := range adds {
		if item == intent.consumedAdd {
			continue
		}
		executed.BlockedItems = append(executed.BlockedItems, item)
		slog.Warn("blocked narrator item grant",
			"character_id", character.ID,
			"item", item,
		)
	}
}

// applyInventoryRemoves trusts removals that match the inventory; unmatched
// requests are logged and ignored, never surfaced as errors
func (o *orchestrator) applyInventoryRemoves(character *entities.Character, removes []string, intent commerceIntent, executed *entities.ExecutedChanges) {
	for _, name := range removes {
		if name == intent.consumedRemove {
			continue
		}

		i := character.FindInventory(name)
		if i < 0 {
			slog.Info("ignored removal of item not in inventory",
				"character_id", character.ID,
				"item", name,
			)
			continue
		}

		removed := character.Inventory[i].Name
		character.RemoveItem(i)
		executed.ItemsRemoved = append(executed.ItemsRemoved, removed)
	}
}

// applyItemUsed consumes one unit of a consumable the narrator reports the
// player used, applying its healing. Non-consumables are left alone.
func (o *orchestrator) applyItemUsed(character *entities.Character, itemUsed string, executed *entities.ExecutedChanges) {
	if itemUsed == "" {
		return
	}

	i := character.FindInventory(itemUsed)
	if i < 0 {
		slog.Info("ignored use of item not in inventory",
			"character_id", character.ID,
			"item", itemUsed,
		)
		return
	}

	entry := character.Inventory[i]
	item, ok := o.catalog.Item(entry.ItemID)
	if !ok || item.Category != catalog.CategoryConsumable {
		return
	}

	character.RemoveItem(i)
	executed.ItemsRemoved = append(executed.ItemsRemoved, entry.Name)

	if item.Healing > 0 {
		before := character.CurrentHP
		character.CurrentHP += item.Healing
		character.ClampHP()
		executed.HPDelta += character.CurrentHP - before
	}
}

// executeCommerce runs at most one sell and one buy, each all-or-nothing
func (o *orchestrator) executeCommerce(character *entities.Character, intent commerceIntent, executed *entities.ExecutedChanges) {
	if intent.sellItem != "" {
		o.executeSell(character, intent.sellItem, executed)
	}
	if intent.buyItem != "" {
		o.executeBuy(character, intent, executed)
	}
}

// executeSell removes one unit and credits half the catalog value, floored
// at one gold. An item not in inventory rejects the whole transaction.
func (o *orchestrator) executeSell(character *entities.Character, itemName string, executed *entities.ExecutedChanges) {
	i := character.FindInventory(itemName)
	if i < 0 {
		executed.CommerceDenied = true
		slog.Warn("sell rejected: item not in inventory",
			"character_id", character.ID,
			"item", itemName,
		)
		return
	}

	entry := character.Inventory[i]
	price := int32(minSellPrice)
	if item, ok := o.catalog.Item(entry.ItemID); ok {
		price = item.Value / sellValueHalf
		if price < minSellPrice {
			price = minSellPrice
		}
	}

	character.RemoveItem(i)
	character.Gold += price

	executed.CommerceSell = entry.ItemID
	executed.CommercePrice = price
	executed.GoldDelta += price

	slog.Info("sell executed",
		"character_id", character.ID,
		"item", entry.ItemID,
		"price", price,
	)
}

// executeBuy debits the price and adds one unit, or rejects with no
// partial effect. Items absent from the catalog always reject.
func (o *orchestrator) executeBuy(character *entities.Character, intent commerceIntent, executed *entities.ExecutedChanges) {
	item, ok := o.catalog.ResolveItem(intent.buyItem)
	if !ok {
		executed.CommerceDenied = true
		slog.Warn("buy rejected: item not in catalog",
			"character_id", character.ID,
			"item", intent.buyItem,
		)
		return
	}

	price := intent.buyPrice
	if intent.catalogPriced {
		price = item.Value
	}
	if price < 1 {
		executed.CommerceDenied = true
		slog.Warn("buy rejected: non-positive price",
			"character_id", character.ID,
			"item", item.ID,
			"price", price,
		)
		return
	}

	if character.Gold < price {
		executed.CommerceDenied = true
		slog.Warn("buy rejected: insufficient gold",
			"character_id", character.ID,
			"item", item.ID,
			"price", price,
			"gold", character.Gold,
		)
		return
	}

	character.Gold -= price
	character.AddItem(item.ID, item.Name, item.Category)

	executed.CommerceBuy = item.ID
	executed.CommercePrice = price
	executed.GoldDelta -= price

	slog.Info("buy executed",
		"character_id", character.ID,
		"item", item.ID,
		"price", price,
	)
}
