package combat_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/orchestrators/combat"
	"github.com/fableforge/rules-api/internal/pkg/idgen"
	"github.com/fableforge/rules-api/internal/testutils"
)

type OrchestratorTestSuite struct {
	suite.Suite
	ctx     context.Context
	catalog *catalog.Catalog
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctx = context.Background()

	cat, err := catalog.New()
	s.Require().NoError(err)
	s.catalog = cat
}

// newService builds an orchestrator whose every die is scripted
func (s *OrchestratorTestSuite) newService(rolls ...int) combat.Service {
	svc, err := combat.NewOrchestrator(&combat.Config{
		DiceRoller:  testutils.NewScriptedRoller(rolls...),
		Catalog:     s.catalog,
		IDGenerator: idgen.NewSequential("enemy"),
	})
	s.Require().NoError(err)
	return svc
}

func (s *OrchestratorTestSuite) TestStartEncounter() {
	s.Run("spawns bestiary enemy and rolls initiative", func() {
		// goblin hp 1d6+1 -> 3+1=4, then initiative 5 vs 2
		svc := s.newService(3, 5, 2)

		out, err := svc.StartEncounter(s.ctx, &combat.StartEncounterInput{
			EnemyNames: []string{"Goblin"},
		})
		s.Require().NoError(err)

		enc := out.Encounter
		s.True(enc.Active)
		s.Equal(int32(0), enc.Round)
		s.Equal(int32(5), enc.Initiative.Player)
		s.Equal(int32(2), enc.Initiative.Enemy)

		s.Require().Len(enc.Enemies, 1)
		goblin := enc.Enemies[0]
		s.Equal("Goblin", goblin.Name)
		s.Equal(int32(4), goblin.MaxHP)
		s.Equal(int32(4), goblin.CurrentHP)
		s.Equal(int32(12), goblin.ArmorClass)
		s.Equal(int32(50), goblin.XPValue)
		s.Equal("goblin", goblin.LootTable)
	})

	s.Run("unknown name falls back to the default stat block", func() {
		// default hp 1d8 -> 6, initiative 4 vs 4
		svc := s.newService(6, 4, 4)

		out, err := svc.StartEncounter(s.ctx, &combat.StartEncounterInput{
			EnemyNames: []string{"Shadow Fiend"},
		})
		s.Require().NoError(err)

		fiend := out.Encounter.Enemies[0]
		s.Equal("Shadow Fiend", fiend.Name)
		s.Equal(int32(6), fiend.MaxHP)
		s.Equal(int32(10), fiend.ArmorClass)
		s.Equal(int32(10), fiend.XPValue)
	})

	s.Run("requires at least one enemy", func() {
		svc := s.newService()

		_, err := svc.StartEncounter(s.ctx, &combat.StartEncounterInput{})
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})
}

func (s *OrchestratorTestSuite) TestResolveRound() {
	s.Run("player drops the goblin before it acts", func() {
		// d20 roll 15 (+2 = 17 vs AC 12, hit), damage 1d6 -> 6
		svc := s.newService(15, 6)

		character := testutils.CreateTestCharacter()
		encounter := testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		s.Equal(int32(1), out.Round)
		s.True(out.Victory)
		s.False(out.Defeat)
		s.Equal(int32(50), out.XPAwarded)
		s.False(encounter.Active)

		s.Require().Len(out.Outcomes, 1)
		attack := out.Outcomes[0]
		s.Equal(int32(15), attack.Roll)
		s.Equal(int32(17), attack.Total)
		s.True(attack.IsHit)
		s.False(attack.IsCritical)
		s.Equal(int32(6), attack.Damage)
		s.Equal(int32(5), attack.HPBefore)
		s.Equal(int32(0), attack.HPAfter)
		s.True(attack.TargetDead)
	})

	s.Run("natural 1 misses even with a huge bonus", func() {
		// player d20 1 (fumble, no damage roll), goblin d20 3 (miss)
		svc := s.newService(1, 3)

		character := testutils.CreateTestCharacter()
		character.AttackBonus = 100
		encounter := testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		s.Require().Len(out.Outcomes, 2)
		s.True(out.Outcomes[0].IsFumble)
		s.False(out.Outcomes[0].IsHit)
		s.Equal(int32(0), out.Outcomes[0].Damage)
		s.Equal(int32(5), encounter.Enemies[0].CurrentHP)
	})

	s.Run("natural 20 hits any armor class", func() {
		// player d20 20 (crit), damage 2; goblin d20 2 (miss)
		svc := s.newService(20, 2, 2)

		character := testutils.CreateTestCharacter()
		goblin := testutils.CreateTestGoblin(5)
		goblin.ArmorClass = 99
		encounter := testutils.CreateTestEncounter(goblin)

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		s.Require().NotEmpty(out.Outcomes)
		attack := out.Outcomes[0]
		s.True(attack.IsHit)
		s.True(attack.IsCritical)
		s.Equal(int32(2), attack.Damage)
		s.Equal(int32(3), goblin.CurrentHP)
	})

	s.Run("damage never drops below one", func() {
		// player hits with 1d4-1 rolling 1 -> 0, floored to 1
		svc := s.newService(15, 1, 2)

		character := testutils.CreateTestCharacter()
		character.DamageDice = "1d4-1"
		goblin := testutils.CreateTestGoblin(5)
		encounter := testutils.CreateTestEncounter(goblin)

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		s.Equal(int32(1), out.Outcomes[0].Damage)
		s.Equal(int32(4), goblin.CurrentHP)
	})

	s.Run("defeat ends the round before the player acts", func() {
		// enemy acts first and drops the character: d20 18, damage 3
		svc := s.newService(18, 3)

		character := testutils.CreateTestCharacter()
		character.CurrentHP = 2
		encounter := testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
		encounter.Initiative = entities.Initiative{Player: 1, Enemy: 6}

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		s.True(out.Defeat)
		s.False(out.Victory)
		s.False(encounter.Active)
		s.Equal(int32(0), character.CurrentHP)
		s.Require().Len(out.Outcomes, 1)
		s.Equal(character.Name, out.Outcomes[0].Defender)
	})

	s.Run("every living enemy gets an attack", func() {
		// player kills goblin one: 15, 6; goblin two attacks: 14 (+2 = 16
		// vs AC 11, hit), damage 2
		svc := s.newService(15, 6, 14, 2)

		character := testutils.CreateTestCharacter()
		encounter := testutils.CreateTestEncounter(
			testutils.CreateTestGoblin(5),
			testutils.CreateTestGoblin(5),
		)

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		s.False(out.Victory)
		s.False(out.Defeat)
		s.Equal(int32(50), out.XPAwarded)
		s.Require().Len(out.Outcomes, 2)
		s.Equal(int32(8), character.CurrentHP)
		s.True(encounter.Active)
	})

	s.Run("rejects an inactive encounter", func() {
		svc := s.newService()

		encounter := testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
		encounter.Active = false

		_, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: testutils.CreateTestCharacter(),
			Encounter: encounter,
		})
		s.Require().Error(err)
		s.True(errors.IsFailedPrecondition(err))
	})
}

func (s *OrchestratorTestSuite) TestInitiativeTieBreak() {
	s.Run("tie goes to the player by default", func() {
		// player acts first and kills: 15, 6
		svc := s.newService(15, 6)

		encounter := testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
		encounter.Initiative = entities.Initiative{Player: 3, Enemy: 3}

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: testutils.CreateTestCharacter(),
			Encounter: encounter,
		})
		s.Require().NoError(err)
		s.True(out.Victory)
	})

	s.Run("tie goes to the enemy when configured", func() {
		svc, err := combat.NewOrchestrator(&combat.Config{
			DiceRoller:  testutils.NewScriptedRoller(18, 3, 15, 6),
			Catalog:     s.catalog,
			IDGenerator: idgen.NewSequential("enemy"),
			TieBreak:    combat.TieBreakEnemy,
		})
		s.Require().NoError(err)

		character := testutils.CreateTestCharacter()
		encounter := testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
		encounter.Initiative = entities.Initiative{Player: 3, Enemy: 3}

		out, err := svc.ResolveRound(s.ctx, &combat.ResolveRoundInput{
			Character: character,
			Encounter: encounter,
		})
		s.Require().NoError(err)

		// Enemy attack landed first, then the player's killing blow
		s.Require().Len(out.Outcomes, 2)
		s.Equal(character.Name, out.Outcomes[0].Defender)
		s.True(out.Victory)
	})
}

func (s *OrchestratorTestSuite) TestConfigValidation() {
	_, err := combat.NewOrchestrator(&combat.Config{})
	s.Require().Error(err)
	s.True(errors.IsInvalidArgument(err))
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}
