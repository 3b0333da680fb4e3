package loot_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/orchestrators/loot"
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

func (s *OrchestratorTestSuite) newService(rolls ...int) loot.Service {
	svc, err := loot.NewOrchestrator(&loot.Config{
		DiceRoller: testutils.NewScriptedRoller(rolls...),
		Catalog:    s.catalog,
	})
	s.Require().NoError(err)
	return svc
}

func (s *OrchestratorTestSuite) TestRollForVictory() {
	s.Run("rolls the goblin table", func() {
		// gold 2d4 -> 3+2, then two weighted draws: 60 lands on the
		// dagger slot, 100 on the bone charm
		svc := s.newService(3, 2, 60, 100)

		out, err := svc.RollForVictory(s.ctx, &loot.RollForVictoryInput{
			Defeated: []*entities.Enemy{testutils.CreateTestGoblin(0)},
			Source:   "combat:goblin",
		})
		s.Require().NoError(err)

		s.Equal(int32(5), out.Loot.Gold)
		s.Equal([]string{"dagger", "bone_charm"}, out.Loot.Items)
		s.Equal("combat:goblin", out.Loot.Source)
	})

	s.Run("explicit nothing slot grants no item", func() {
		// gold 1+1, draws 50 and 1 both land in the nothing slot
		svc := s.newService(1, 1, 50, 1)

		out, err := svc.RollForVictory(s.ctx, &loot.RollForVictoryInput{
			Defeated: []*entities.Enemy{testutils.CreateTestGoblin(0)},
			Source:   "combat:goblin",
		})
		s.Require().NoError(err)

		s.Equal(int32(2), out.Loot.Gold)
		s.Empty(out.Loot.Items)
	})

	s.Run("unknown enemy uses the default table", func() {
		// default table: gold 1d4 -> 2, one draw: 80 lands on the torch
		svc := s.newService(2, 80)

		shade := &entities.Enemy{Name: "Gloom Shade", LootTable: "gloom_shade"}
		out, err := svc.RollForVictory(s.ctx, &loot.RollForVictoryInput{
			Defeated: []*entities.Enemy{shade},
			Source:   "combat:gloom_shade",
		})
		s.Require().NoError(err)

		s.Equal(int32(2), out.Loot.Gold)
		s.Equal([]string{"torch"}, out.Loot.Items)
	})

	s.Run("same script yields the same loot", func() {
		roll := func() *entities.PendingLoot {
			svc := s.newService(3, 2, 60, 100)
			out, err := svc.RollForVictory(s.ctx, &loot.RollForVictoryInput{
				Defeated: []*entities.Enemy{testutils.CreateTestGoblin(0)},
				Source:   "combat:goblin",
			})
			s.Require().NoError(err)
			return out.Loot
		}

		s.Equal(roll(), roll())
	})

	s.Run("aggregates multiple defeated enemies", func() {
		// two goblins: gold 2d4 twice, two draws each, all nothing
		svc := s.newService(1, 1, 50, 50, 2, 2, 50, 50)

		out, err := svc.RollForVictory(s.ctx, &loot.RollForVictoryInput{
			Defeated: []*entities.Enemy{
				testutils.CreateTestGoblin(0),
				testutils.CreateTestGoblin(0),
			},
			Source: "combat:goblin",
		})
		s.Require().NoError(err)

		s.Equal(int32(6), out.Loot.Gold)
		s.Empty(out.Loot.Items)
	})

	s.Run("requires defeated enemies", func() {
		svc := s.newService()

		_, err := svc.RollForVictory(s.ctx, &loot.RollForVictoryInput{})
		s.Require().Error(err)
		s.True(errors.IsInvalidArgument(err))
	})
}

func (s *OrchestratorTestSuite) TestClaim() {
	s.Run("grants gold and items then clears the slot", func() {
		svc := s.newService()

		character := testutils.CreateTestCharacter()
		session := testutils.CreateTestSession()
		session.PendingLoot = &entities.PendingLoot{
			Gold:   7,
			Items:  []string{"dagger", "torch"},
			Source: "combat:goblin",
		}

		out, err := svc.Claim(s.ctx, &loot.ClaimInput{
			Character: character,
			Session:   session,
		})
		s.Require().NoError(err)

		s.True(out.Claimed)
		s.Equal(int32(7), out.Gold)
		s.Require().Len(out.Items, 2)
		s.Equal("Dagger", out.Items[0].Name)

		s.Equal(int32(17), character.Gold)
		s.GreaterOrEqual(character.FindInventory("dagger"), 0)
		s.GreaterOrEqual(character.FindInventory("torch"), 0)
		s.Nil(session.PendingLoot)
	})

	s.Run("second claim finds the slot empty", func() {
		svc := s.newService()

		character := testutils.CreateTestCharacter()
		session := testutils.CreateTestSession()
		session.PendingLoot = &entities.PendingLoot{Gold: 3}

		first, err := svc.Claim(s.ctx, &loot.ClaimInput{Character: character, Session: session})
		s.Require().NoError(err)
		s.True(first.Claimed)

		second, err := svc.Claim(s.ctx, &loot.ClaimInput{Character: character, Session: session})
		s.Require().NoError(err)
		s.False(second.Claimed)
		s.Equal(int32(13), character.Gold)
	})
}

func TestIsSearchAction(t *testing.T) {
	searches := []string{
		"I search the body",
		"loot the corpse",
		"rummage through their pockets",
		"I check the bodies for anything useful",
		"pick up the sword",
	}
	for _, text := range searches {
		if !loot.IsSearchAction(text) {
			t.Errorf("expected search action: %q", text)
		}
	}

	others := []string{
		"I attack the goblin",
		"walk north along the road",
		"ask the innkeeper about rumors",
	}
	for _, text := range others {
		if loot.IsSearchAction(text) {
			t.Errorf("did not expect search action: %q", text)
		}
	}
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}
