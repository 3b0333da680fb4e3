// Package loot implements the loot engine: weighted drop tables keyed by
// enemy type, and the single-slot pending-loot claim lifecycle. Loot enters
// the game only through this package or a commerce transaction; the
// narrator never grants anything directly.
package loot

import (
	"context"
	"log/slog"

	"github.com/KirkDiggler/rpg-toolkit/dice"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/pkg/notation"
)

// Gold dice fail closed to a single coin rather than erroring out of a
// won fight
const fallbackGold = 1

// Service defines the interface for loot operations
type Service interface {
	// RollForVictory rolls every defeated enemy's table and aggregates the
	// result into one pending loot record
	RollForVictory(ctx context.Context, input *RollForVictoryInput) (*RollForVictoryOutput, error)

	// Claim grants the session's pending loot to the character and clears
	// the slot. A second claim finds the slot empty and grants nothing.
	Claim(ctx context.Context, input *ClaimInput) (*ClaimOutput, error)
}

// Config holds the dependencies for the loot orchestrator
type Config struct {
	DiceRoller dice.Roller
	Catalog    *catalog.Catalog
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.DiceRoller == nil {
		vb.RequiredField("DiceRoller")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}

	return vb.Build()
}

type orchestrator struct {
	roller  dice.Roller
	catalog *catalog.Catalog
}

// NewOrchestrator creates a new loot orchestrator with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		roller:  cfg.DiceRoller,
		catalog: cfg.Catalog,
	}, nil
}

var _ Service = (*orchestrator)(nil)

// RollForVictory resolves each defeated enemy's loot table and rolls it
func (o *orchestrator) RollForVictory(_ context.Context, input *RollForVictoryInput) (*RollForVictoryOutput, error) {
	if len(input.Defeated) == 0 {
		return nil, errors.InvalidArgument("at least one defeated enemy is required")
	}

	pending := &entities.PendingLoot{Source: input.Source}

	for _, enemy := range input.Defeated {
		key := enemy.LootTable
		if key == "" {
			key = enemy.Name
		}

		table, resolved := o.catalog.LootTableFor(key)
		pending.Gold += notation.RollOr(o.roller, table.GoldDice, fallbackGold)

		for i := int32(0); i < table.Rolls; i++ {
			if itemID := o.drawSlot(&table); itemID != "" {
				pending.Items = append(pending.Items, itemID)
			}
		}

		slog.Info("loot rolled",
			"enemy", enemy.Name,
			"table", resolved,
			"gold_so_far", pending.Gold,
			"items_so_far", len(pending.Items),
		)
	}

	return &RollForVictoryOutput{Loot: pending}, nil
}

// drawSlot makes one weighted draw from the table. Returns "" for the
// explicit nothing outcome.
func (o *orchestrator) drawSlot(table *catalog.LootTable) string {
	total := table.TotalWeight()
	if total <= 0 {
		return ""
	}

	pick := notation.RollDie(o.roller, int(total))
	for _, slot := range table.Slots {
		pick -= slot.Weight
		if pick <= 0 {
			return slot.Item
		}
	}
	return ""
}

// Claim grants the pending loot directly to the character, before the
// narrator ever sees the action. The narrator is later told what was found
// only so it can narrate it.
func (o *orchestrator) Claim(_ context.Context, input *ClaimInput) (*ClaimOutput, error) {
	if input.Character == nil {
		return nil, errors.InvalidArgument("character is required")
	}
	if input.Session == nil {
		return nil, errors.InvalidArgument("session is required")
	}

	pending := input.Session.PendingLoot
	if pending == nil {
		return &ClaimOutput{Claimed: false}, nil
	}

	out := &ClaimOutput{
		Claimed: true,
		Gold:    pending.Gold,
	}

	input.Character.Gold += pending.Gold
	for _, itemID := range pending.Items {
		item, ok := o.catalog.Item(itemID)
		if !ok {
			// Table validation makes this unreachable, but a stale
			// pending record must not break the claim.
			slog.Warn("pending loot references unknown item, skipping", "item_id", itemID)
			continue
		}
		input.Character.AddItem(item.ID, item.Name, item.Category)
		out.Items = append(out.Items, ClaimedItem{ItemID: item.ID, Name: item.Name})
	}

	input.Session.PendingLoot = nil

	slog.Info("pending loot claimed",
		"session_id", input.Session.ID,
		"gold", out.Gold,
		"items", len(out.Items),
		"source", pending.Source,
	)

	return out, nil
}
