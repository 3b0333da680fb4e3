// Package action implements the per-action pipeline: cost guard, combat
// resolution, loot claim, narrator call, and the economy gate, in that
// order. Mechanics are computed and persisted before the narrator is
// consulted, so a narrator failure or retry never re-fights a round.
package action

//go:generate mockgen -destination=mock/mock_service.go -package=actionmock github.com/fableforge/rules-api/internal/orchestrators/action Service

import (
	"context"
	"log/slog"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/clients/narrator"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/orchestrators/combat"
	"github.com/fableforge/rules-api/internal/orchestrators/economy"
	"github.com/fableforge/rules-api/internal/orchestrators/loot"
	"github.com/fableforge/rules-api/internal/orchestrators/usage"
	"github.com/fableforge/rules-api/internal/pkg/idgen"
	characterrepo "github.com/fableforge/rules-api/internal/repositories/character"
	sessionrepo "github.com/fableforge/rules-api/internal/repositories/session"
)

// New characters start with a fighting chance and nothing worth stealing
const (
	startingLevel       = 1
	startingMaxHP       = 10
	startingArmorClass  = 11
	startingAttackBonus = 2
	startingDamageDice  = "1d6"
	startingGold        = 10

	defaultLocation = "a roadside village"
)

// Service defines the interface for the action pipeline and the session
// lifecycle around it
type Service interface {
	// HandleAction processes one player action end to end
	HandleAction(ctx context.Context, input *HandleActionInput) (*HandleActionOutput, error)

	// CreateCharacter creates a fresh level-1 character
	CreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CreateCharacterOutput, error)

	// GetCharacter fetches a character snapshot
	GetCharacter(ctx context.Context, input *GetCharacterInput) (*GetCharacterOutput, error)

	// CreateSession starts a narrative session for a character
	CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error)

	// GetSession fetches a session snapshot
	GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error)
}

// Config holds the dependencies for the action pipeline
type Config struct {
	CharacterRepo characterrepo.Repository
	SessionRepo   sessionrepo.Repository
	CombatService combat.Service
	LootService   loot.Service
	EconomyGate   economy.Service
	CostGuard     usage.Service
	Narrator      narrator.Client
	Catalog       *catalog.Catalog
	IDGenerator   idgen.Generator
}

// Validate ensures all required dependencies are provided
func (c *Config) Validate() error {
	vb := errors.NewValidationBuilder()

	if c.CharacterRepo == nil {
		vb.RequiredField("CharacterRepo")
	}
	if c.SessionRepo == nil {
		vb.RequiredField("SessionRepo")
	}
	if c.CombatService == nil {
		vb.RequiredField("CombatService")
	}
	if c.LootService == nil {
		vb.RequiredField("LootService")
	}
	if c.EconomyGate == nil {
		vb.RequiredField("EconomyGate")
	}
	if c.CostGuard == nil {
		vb.RequiredField("CostGuard")
	}
	if c.Narrator == nil {
		vb.RequiredField("Narrator")
	}
	if c.Catalog == nil {
		vb.RequiredField("Catalog")
	}
	if c.IDGenerator == nil {
		vb.RequiredField("IDGenerator")
	}

	return vb.Build()
}

type orchestrator struct {
	characterRepo characterrepo.Repository
	sessionRepo   sessionrepo.Repository
	combatSvc     combat.Service
	lootSvc       loot.Service
	economyGate   economy.Service
	costGuard     usage.Service
	narrator      narrator.Client
	catalog       *catalog.Catalog
	idGen         idgen.Generator
}

// NewOrchestrator creates a new action pipeline with the provided dependencies
func NewOrchestrator(cfg *Config) (Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}

	return &orchestrator{
		characterRepo: cfg.CharacterRepo,
		sessionRepo:   cfg.SessionRepo,
		combatSvc:     cfg.CombatService,
		lootSvc:       cfg.LootService,
		economyGate:   cfg.EconomyGate,
		costGuard:     cfg.CostGuard,
		narrator:      cfg.Narrator,
		catalog:       cfg.Catalog,
		idGen:         cfg.IDGenerator,
	}, nil
}

var _ Service = (*orchestrator)(nil)

// HandleAction runs the full pipeline for one player action
func (o *orchestrator) HandleAction(ctx context.Context, input *HandleActionInput) (*HandleActionOutput, error) {
	if input.SessionID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}
	if input.Text == "" {
		return nil, errors.InvalidArgument("action text is required")
	}

	sessOut, err := o.sessionRepo.Get(ctx, sessionrepo.GetInput{ID: input.SessionID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load session")
	}
	sess := sessOut.Session

	if sess.IsEnded() {
		return nil, errors.FailedPrecondition("session has ended")
	}

	charOut, err := o.characterRepo.Get(ctx, characterrepo.GetInput{ID: sess.CharacterID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load character")
	}
	character := charOut.Character

	// Budget gate runs before anything costs tokens or mutates state
	check, err := o.costGuard.Check(ctx, &usage.CheckInput{SessionID: sess.ID})
	if err != nil {
		return nil, errors.Wrap(err, "cost guard check failed")
	}
	if !check.Allowed {
		return &HandleActionOutput{
			Narration:   check.Message,
			Executed:    &entities.ExecutedChanges{},
			Character:   character,
			Blocked:     true,
			BlockReason: check.Reason,
		}, nil
	}

	facts := &narrator.Request{
		ActionText: input.Text,
		Character:  character,
		Location:   sess.Location,
		WorldState: sess.WorldState,
	}

	replay := input.ActionID != "" && sess.LastAction != nil && sess.LastAction.ActionID == input.ActionID
	if replay {
		// Mechanics for this action are already persisted; narrate them
		// again without rolling anything.
		slog.Info("replaying persisted mechanics for retried action",
			"session_id", sess.ID,
			"action_id", input.ActionID,
		)
		facts.Outcomes = sess.LastAction.Outcomes
		facts.EncounterVictory = sess.LastAction.Victory
		facts.EncounterDefeat = sess.LastAction.Defeat
		facts.ClaimedGold = sess.LastAction.ClaimedGold
		facts.ClaimedItems = sess.LastAction.ClaimedItems
	} else {
		if err := o.resolveMechanics(ctx, input, character, sess, facts); err != nil {
			return nil, err
		}

		// Replay-safe boundary: mechanics persist before the narrator is
		// consulted.
		if err := o.persist(ctx, character, sess); err != nil {
			return nil, err
		}
	}

	narration, narratorErr := o.narrator.Narrate(ctx, facts)
	if narratorErr != nil {
		// Already-resolved mechanics stand; degrade to a templated
		// description of the facts.
		slog.Warn("narrator call failed, falling back to templated narration",
			"session_id", sess.ID,
			"error", narratorErr,
		)
		narration = &narrator.Narration{Text: fallbackNarration(facts)}
	}

	gateOut, err := o.economyGate.Apply(ctx, &economy.ApplyInput{
		Character:  character,
		Session:    sess,
		Proposed:   narration.Proposed,
		ActionText: input.Text,
	})
	if err != nil {
		return nil, errors.Wrap(err, "economy gate failed")
	}

	if character.IsDead() {
		sess.State = entities.SessionStateEnded
	}

	// The narrator may introduce hostiles; the resolver spawns them on
	// its own terms. An unclaimed reward is forfeit once a new fight
	// starts.
	if len(narration.EncounterEnemies) > 0 && !sess.InCombat() && !sess.IsEnded() {
		if sess.PendingLoot != nil {
			slog.Info("discarding unclaimed pending loot: new encounter started",
				"session_id", sess.ID,
				"gold", sess.PendingLoot.Gold,
				"items", len(sess.PendingLoot.Items),
			)
			sess.PendingLoot = nil
		}
		encOut, err := o.combatSvc.StartEncounter(ctx, &combat.StartEncounterInput{
			EnemyNames: narration.EncounterEnemies,
		})
		if err != nil {
			slog.Warn("failed to start encounter from narration", "error", err)
		} else {
			sess.Encounter = encOut.Encounter
		}
	}

	if err := o.persist(ctx, character, sess); err != nil {
		return nil, err
	}

	if narratorErr == nil {
		if _, err := o.costGuard.Record(ctx, &usage.RecordInput{
			SessionID:    sess.ID,
			InputTokens:  narration.Usage.InputTokens,
			OutputTokens: narration.Usage.OutputTokens,
		}); err != nil {
			// Losing one increment skews the budget, not the game state
			slog.Error("failed to record narrator token usage",
				"session_id", sess.ID,
				"error", err,
			)
		}
	}

	return &HandleActionOutput{
		Narration:    narration.Text,
		Executed:     gateOut.Executed,
		Outcomes:     facts.Outcomes,
		Character:    character,
		SessionEnded: sess.IsEnded(),
	}, nil
}

// resolveMechanics runs the server-authoritative part of the action: loot
// claim, flee, and one combat round, mutating character and session
func (o *orchestrator) resolveMechanics(ctx context.Context, input *HandleActionInput, character *entities.Character, sess *entities.Session, facts *narrator.Request) error {
	resolved := &entities.ResolvedAction{ActionID: input.ActionID}

	// Loot claim settles before the narrator ever sees the action
	if sess.PendingLoot != nil && loot.IsSearchAction(input.Text) {
		claimOut, err := o.lootSvc.Claim(ctx, &loot.ClaimInput{
			Character: character,
			Session:   sess,
		})
		if err != nil {
			return errors.Wrap(err, "loot claim failed")
		}
		if claimOut.Claimed {
			facts.ClaimedGold = claimOut.Gold
			for _, item := range claimOut.Items {
				facts.ClaimedItems = append(facts.ClaimedItems, item.Name)
			}
			resolved.ClaimedGold = facts.ClaimedGold
			resolved.ClaimedItems = facts.ClaimedItems
		}
	}

	if sess.InCombat() {
		if combat.IsFleeAction(input.Text) {
			slog.Info("player fled the encounter",
				"session_id", sess.ID,
				"round", sess.Encounter.Round,
			)
			sess.Encounter.Active = false
		} else {
			roundOut, err := o.combatSvc.ResolveRound(ctx, &combat.ResolveRoundInput{
				Character: character,
				Encounter: sess.Encounter,
			})
			if err != nil {
				return errors.Wrap(err, "combat resolution failed")
			}

			resolved.Outcomes = roundOut.Outcomes
			resolved.Victory = roundOut.Victory
			resolved.Defeat = roundOut.Defeat
			resolved.XPAwarded = roundOut.XPAwarded

			facts.Outcomes = roundOut.Outcomes
			facts.EncounterVictory = roundOut.Victory
			facts.EncounterDefeat = roundOut.Defeat

			if roundOut.XPAwarded > 0 {
				economy.ApplyXP(character, roundOut.XPAwarded)
			}

			if roundOut.Victory {
				o.rollVictoryLoot(ctx, sess)
			}
			if roundOut.Defeat {
				sess.State = entities.SessionStateEnded
			}
		}
	}

	sess.LastAction = resolved
	return nil
}

// rollVictoryLoot fills the pending-loot slot from the defeated enemies
func (o *orchestrator) rollVictoryLoot(ctx context.Context, sess *entities.Session) {
	var defeated []*entities.Enemy
	var source string
	for _, enemy := range sess.Encounter.Enemies {
		if enemy.IsDead() {
			defeated = append(defeated, enemy)
			if source == "" {
				source = "combat:" + enemy.LootTable
			}
		}
	}
	if len(defeated) == 0 {
		return
	}

	lootOut, err := o.lootSvc.RollForVictory(ctx, &loot.RollForVictoryInput{
		Defeated: defeated,
		Source:   source,
	})
	if err != nil {
		slog.Error("loot roll failed after victory", "session_id", sess.ID, "error", err)
		return
	}

	sess.PendingLoot = lootOut.Loot
}

// persist writes character and session back with their version checks
func (o *orchestrator) persist(ctx context.Context, character *entities.Character, sess *entities.Session) error {
	if _, err := o.characterRepo.Update(ctx, characterrepo.UpdateInput{Character: character}); err != nil {
		return errors.Wrap(err, "failed to persist character")
	}
	if _, err := o.sessionRepo.Update(ctx, sessionrepo.UpdateInput{Session: sess}); err != nil {
		return errors.Wrap(err, "failed to persist session")
	}
	return nil
}

// CreateCharacter creates a fresh level-1 character with the starting kit
func (o *orchestrator) CreateCharacter(ctx context.Context, input *CreateCharacterInput) (*CreateCharacterOutput, error) {
	if input.Name == "" {
		return nil, errors.InvalidArgument("character name is required")
	}

	character := &entities.Character{
		ID:          o.idGen.Generate(),
		PlayerID:    input.PlayerID,
		Name:        input.Name,
		Level:       startingLevel,
		MaxHP:       startingMaxHP,
		CurrentHP:   startingMaxHP,
		ArmorClass:  startingArmorClass,
		AttackBonus: startingAttackBonus,
		DamageDice:  startingDamageDice,
		Gold:        startingGold,
	}

	for _, itemID := range []string{"torch", "bread"} {
		if item, ok := o.catalog.Item(itemID); ok {
			character.AddItem(item.ID, item.Name, item.Category)
		}
	}

	out, err := o.characterRepo.Create(ctx, characterrepo.CreateInput{Character: character})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create character")
	}

	slog.Info("character created", "character_id", out.Character.ID, "name", out.Character.Name)

	return &CreateCharacterOutput{Character: out.Character}, nil
}

// GetCharacter fetches a character snapshot
func (o *orchestrator) GetCharacter(ctx context.Context, input *GetCharacterInput) (*GetCharacterOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("character ID is required")
	}

	out, err := o.characterRepo.Get(ctx, characterrepo.GetInput{ID: input.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get character")
	}

	return &GetCharacterOutput{Character: out.Character}, nil
}

// CreateSession starts a narrative session for a character
func (o *orchestrator) CreateSession(ctx context.Context, input *CreateSessionInput) (*CreateSessionOutput, error) {
	if input.CharacterID == "" {
		return nil, errors.InvalidArgument("character ID is required")
	}

	if _, err := o.characterRepo.Get(ctx, characterrepo.GetInput{ID: input.CharacterID}); err != nil {
		return nil, errors.Wrap(err, "failed to load character for session")
	}

	location := input.Location
	if location == "" {
		location = defaultLocation
	}

	sess := &entities.Session{
		ID:          o.idGen.Generate(),
		CharacterID: input.CharacterID,
		State:       entities.SessionStateActive,
		Location:    location,
	}

	out, err := o.sessionRepo.Create(ctx, sessionrepo.CreateInput{Session: sess})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session")
	}

	slog.Info("session created", "session_id", out.Session.ID, "character_id", input.CharacterID)

	return &CreateSessionOutput{Session: out.Session}, nil
}

// GetSession fetches a session snapshot
func (o *orchestrator) GetSession(ctx context.Context, input *GetSessionInput) (*GetSessionOutput, error) {
	if input.ID == "" {
		return nil, errors.InvalidArgument("session ID is required")
	}

	out, err := o.sessionRepo.Get(ctx, sessionrepo.GetInput{ID: input.ID})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get session")
	}

	return &GetSessionOutput{Session: out.Session}, nil
}
