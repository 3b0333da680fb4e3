package action_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/clients/narrator"
	narratormock "github.com/fableforge/rules-api/internal/clients/narrator/mock"
	"github.com/fableforge/rules-api/internal/entities"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/orchestrators/action"
	"github.com/fableforge/rules-api/internal/orchestrators/combat"
	"github.com/fableforge/rules-api/internal/orchestrators/economy"
	"github.com/fableforge/rules-api/internal/orchestrators/loot"
	"github.com/fableforge/rules-api/internal/orchestrators/usage"
	"github.com/fableforge/rules-api/internal/pkg/clock"
	"github.com/fableforge/rules-api/internal/pkg/idgen"
	characterrepo "github.com/fableforge/rules-api/internal/repositories/character"
	sessionrepo "github.com/fableforge/rules-api/internal/repositories/session"
	usagerepo "github.com/fableforge/rules-api/internal/repositories/usage"
	"github.com/fableforge/rules-api/internal/testutils"
)

const sessionTokenLimit = 100

// quietNarration is a narrator reply that proposes nothing
func quietNarration(text string) *narrator.Narration {
	return &narrator.Narration{
		Text:  text,
		Usage: narrator.TokenUsage{InputTokens: 40, OutputTokens: 10},
	}
}

type OrchestratorTestSuite struct {
	suite.Suite
	ctx      context.Context
	ctrl     *gomock.Controller
	narrator *narratormock.MockClient

	catalog  *catalog.Catalog
	charRepo characterrepo.Repository
	sessRepo sessionrepo.Repository
	guard    usage.Service
	cleanup  func()
}

func (s *OrchestratorTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.ctrl = gomock.NewController(s.T())
	s.narrator = narratormock.NewMockClient(s.ctrl)

	cat, err := catalog.New()
	s.Require().NoError(err)
	s.catalog = cat

	client, cleanup := testutils.CreateTestRedisClient(s.T())
	s.cleanup = cleanup

	clk := &clock.Fixed{T: time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)}

	s.charRepo, err = characterrepo.NewRedisRepository(&characterrepo.Config{Client: client, Clock: clk})
	s.Require().NoError(err)
	s.sessRepo, err = sessionrepo.NewRedisRepository(&sessionrepo.Config{Client: client, Clock: clk})
	s.Require().NoError(err)

	usageRepo, err := usagerepo.NewRedisRepository(&usagerepo.Config{Client: client})
	s.Require().NoError(err)

	s.guard, err = usage.NewOrchestrator(&usage.Config{
		UsageRepo:         usageRepo,
		Clock:             clk,
		GlobalDailyLimit:  1000,
		SessionDailyLimit: sessionTokenLimit,
	})
	s.Require().NoError(err)
}

func (s *OrchestratorTestSuite) TearDownTest() {
	s.cleanup()
	s.ctrl.Finish()
}

// newService assembles the pipeline with every die scripted. Combat
// consumes rolls first, then loot.
func (s *OrchestratorTestSuite) newService(rolls ...int) action.Service {
	roller := testutils.NewScriptedRoller(rolls...)

	combatSvc, err := combat.NewOrchestrator(&combat.Config{
		DiceRoller:  roller,
		Catalog:     s.catalog,
		IDGenerator: idgen.NewSequential("enemy"),
	})
	s.Require().NoError(err)

	lootSvc, err := loot.NewOrchestrator(&loot.Config{
		DiceRoller: roller,
		Catalog:    s.catalog,
	})
	s.Require().NoError(err)

	economyGate, err := economy.NewOrchestrator(&economy.Config{Catalog: s.catalog})
	s.Require().NoError(err)

	svc, err := action.NewOrchestrator(&action.Config{
		CharacterRepo: s.charRepo,
		SessionRepo:   s.sessRepo,
		CombatService: combatSvc,
		LootService:   lootSvc,
		EconomyGate:   economyGate,
		CostGuard:     s.guard,
		Narrator:      s.narrator,
		Catalog:       s.catalog,
		IDGenerator:   idgen.NewSequential("id"),
	})
	s.Require().NoError(err)
	return svc
}

// seed persists a character and its session
func (s *OrchestratorTestSuite) seed(char *entities.Character, sess *entities.Session) {
	_, err := s.charRepo.Create(s.ctx, characterrepo.CreateInput{Character: char})
	s.Require().NoError(err)
	_, err = s.sessRepo.Create(s.ctx, sessionrepo.CreateInput{Session: sess})
	s.Require().NoError(err)
}

func (s *OrchestratorTestSuite) loadSession(id string) *entities.Session {
	out, err := s.sessRepo.Get(s.ctx, sessionrepo.GetInput{ID: id})
	s.Require().NoError(err)
	return out.Session
}

func (s *OrchestratorTestSuite) loadCharacter(id string) *entities.Character {
	out, err := s.charRepo.Get(s.ctx, characterrepo.GetInput{ID: id})
	s.Require().NoError(err)
	return out.Character
}

func (s *OrchestratorTestSuite) TestCreateCharacter() {
	svc := s.newService()

	out, err := svc.CreateCharacter(s.ctx, &action.CreateCharacterInput{
		PlayerID: "player-1",
		Name:     "Mirela",
	})
	s.Require().NoError(err)

	char := out.Character
	s.Equal("Mirela", char.Name)
	s.Equal(int32(1), char.Level)
	s.Equal(int32(10), char.MaxHP)
	s.Equal(int32(10), char.Gold)
	s.GreaterOrEqual(char.FindInventory("torch"), 0)
	s.GreaterOrEqual(char.FindInventory("bread"), 0)

	stored := s.loadCharacter(char.ID)
	s.Equal("Mirela", stored.Name)

	_, err = svc.CreateCharacter(s.ctx, &action.CreateCharacterInput{PlayerID: "player-1"})
	s.True(errors.IsInvalidArgument(err))
}

func (s *OrchestratorTestSuite) TestCreateSession() {
	svc := s.newService()

	char := testutils.CreateTestCharacter()
	_, err := s.charRepo.Create(s.ctx, characterrepo.CreateInput{Character: char})
	s.Require().NoError(err)

	out, err := svc.CreateSession(s.ctx, &action.CreateSessionInput{CharacterID: char.ID})
	s.Require().NoError(err)
	s.Equal(entities.SessionStateActive, out.Session.State)
	s.NotEmpty(out.Session.Location)

	_, err = svc.CreateSession(s.ctx, &action.CreateSessionInput{CharacterID: "char-missing"})
	s.True(errors.IsNotFound(err))
}

func (s *OrchestratorTestSuite) TestHandleActionNarrated() {
	svc := s.newService()
	s.seed(testutils.CreateTestCharacter(), testutils.CreateTestSession())

	reply := quietNarration("You wander into the market square.")
	reply.Proposed = entities.ProposedStateChanges{
		GoldDelta: 25,
		Location:  "the market square",
	}
	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).Return(reply, nil)

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I head to the market",
	})
	s.Require().NoError(err)

	s.Equal("You wander into the market square.", out.Narration)
	s.False(out.Blocked)
	s.False(out.SessionEnded)

	// The gold grant was coerced to nothing, the move was honored
	s.Equal(int32(25), out.Executed.BlockedGold)
	s.Equal(int32(10), out.Character.Gold)
	s.Equal("the market square", s.loadSession(testutils.TestSessionID).Location)

	// Actual token usage landed on the session counter
	snap, err := s.guard.Snapshot(s.ctx, &usage.SnapshotInput{SessionID: testutils.TestSessionID})
	s.Require().NoError(err)
	s.Equal(int64(50), snap.TotalTokens)
}

func (s *OrchestratorTestSuite) TestHandleActionCombatRound() {
	// Combat: d20 15 hits, damage 6 kills. Loot: gold 2d4 -> 1+1, two
	// draws land on nothing.
	svc := s.newService(15, 6, 1, 1, 50, 50)

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.Encounter = testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
	s.seed(char, sess)

	var facts *narrator.Request
	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *narrator.Request) (*narrator.Narration, error) {
			facts = req
			return quietNarration("The goblin drops."), nil
		})

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		ActionID:  "act-1",
		Text:      "I swing my sword at the goblin",
	})
	s.Require().NoError(err)

	s.Require().Len(out.Outcomes, 1)
	s.True(out.Outcomes[0].TargetDead)
	s.False(out.SessionEnded)

	// The narrator saw the resolved mechanics, not the raw action alone
	s.Require().NotNil(facts)
	s.Require().Len(facts.Outcomes, 1)
	s.True(facts.EncounterVictory)

	s.Equal(int32(50), out.Character.XP)

	stored := s.loadSession(testutils.TestSessionID)
	s.False(stored.InCombat())
	s.Require().NotNil(stored.PendingLoot)
	s.Equal(int32(2), stored.PendingLoot.Gold)
	s.Require().NotNil(stored.LastAction)
	s.Equal("act-1", stored.LastAction.ActionID)
	s.True(stored.LastAction.Victory)
}

func (s *OrchestratorTestSuite) TestHandleActionReplay() {
	svc := s.newService(15, 6, 1, 1, 50, 50)

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.Encounter = testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
	s.seed(char, sess)

	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		Return(quietNarration("The goblin drops."), nil).Times(2)

	first, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		ActionID:  "act-1",
		Text:      "I swing my sword at the goblin",
	})
	s.Require().NoError(err)
	s.Require().Len(first.Outcomes, 1)

	// Same action ID again: stored mechanics are narrated, nothing is
	// re-rolled and no XP is granted twice
	second, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		ActionID:  "act-1",
		Text:      "I swing my sword at the goblin",
	})
	s.Require().NoError(err)

	s.Equal(first.Outcomes, second.Outcomes)
	s.Equal(int32(50), s.loadCharacter(testutils.TestCharacterID).XP)
}

func (s *OrchestratorTestSuite) TestHandleActionBlocked() {
	svc := s.newService()
	s.seed(testutils.CreateTestCharacter(), testutils.CreateTestSession())

	// Exhaust the session budget; the narrator must never be called
	_, err := s.guard.Record(s.ctx, &usage.RecordInput{
		SessionID:    testutils.TestSessionID,
		InputTokens:  sessionTokenLimit,
		OutputTokens: 0,
	})
	s.Require().NoError(err)

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I do something expensive",
	})
	s.Require().NoError(err)

	s.True(out.Blocked)
	s.Equal(usage.BlockReasonSessionLimit, out.BlockReason)
	s.NotEmpty(out.Narration)

	// Zero mutation: the session was never written
	s.Equal(int64(1), s.loadSession(testutils.TestSessionID).Version)
}

func (s *OrchestratorTestSuite) TestHandleActionNarratorFailure() {
	svc := s.newService(15, 6, 1, 1, 50, 50)

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.Encounter = testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
	s.seed(char, sess)

	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		Return(nil, errors.Unavailable("narrator is down"))

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		ActionID:  "act-1",
		Text:      "I swing my sword at the goblin",
	})
	s.Require().NoError(err)

	// Mechanics stand, prose degrades to the templated fallback
	s.Require().Len(out.Outcomes, 1)
	s.Contains(out.Narration, "Goblin")
	s.True(s.loadSession(testutils.TestSessionID).LastAction.Victory)

	// Failed calls cost nothing
	snap, err := s.guard.Snapshot(s.ctx, &usage.SnapshotInput{SessionID: testutils.TestSessionID})
	s.Require().NoError(err)
	s.Equal(int64(0), snap.TotalTokens)
}

func (s *OrchestratorTestSuite) TestHandleActionDefeat() {
	// Enemy acts first: d20 18 hits, damage 3 drops the character
	svc := s.newService(18, 3)

	char := testutils.CreateTestCharacter()
	char.CurrentHP = 2
	sess := testutils.CreateTestSession()
	sess.Encounter = testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
	sess.Encounter.Initiative = entities.Initiative{Player: 1, Enemy: 6}
	s.seed(char, sess)

	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		Return(quietNarration("Darkness takes you."), nil)

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I fight on",
	})
	s.Require().NoError(err)

	s.True(out.SessionEnded)
	s.Equal(int32(0), out.Character.CurrentHP)
	s.True(s.loadSession(testutils.TestSessionID).IsEnded())

	// An ended session accepts no further actions
	_, err = svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I get up",
	})
	s.True(errors.IsFailedPrecondition(err))
}

func (s *OrchestratorTestSuite) TestHandleActionFlee() {
	svc := s.newService()

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.Encounter = testutils.CreateTestEncounter(testutils.CreateTestGoblin(5))
	s.seed(char, sess)

	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		Return(quietNarration("You crash through the underbrush."), nil)

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I flee into the woods",
	})
	s.Require().NoError(err)

	s.Empty(out.Outcomes)

	stored := s.loadSession(testutils.TestSessionID)
	s.False(stored.InCombat())
	s.Nil(stored.PendingLoot)
}

func (s *OrchestratorTestSuite) TestHandleActionLootClaim() {
	svc := s.newService()

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.PendingLoot = &entities.PendingLoot{
		Gold:   5,
		Items:  []string{"dagger"},
		Source: "combat:goblin",
	}
	s.seed(char, sess)

	var facts *narrator.Request
	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *narrator.Request) (*narrator.Narration, error) {
			facts = req
			return quietNarration("You pocket the goblin's meagre hoard."), nil
		})

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I search the goblin's body",
	})
	s.Require().NoError(err)

	s.Equal(int32(15), out.Character.Gold)
	s.GreaterOrEqual(out.Character.FindInventory("dagger"), 0)
	s.Nil(s.loadSession(testutils.TestSessionID).PendingLoot)

	// The narrator was told exactly what was granted
	s.Require().NotNil(facts)
	s.Equal(int32(5), facts.ClaimedGold)
	s.Equal([]string{"Dagger"}, facts.ClaimedItems)
}

func (s *OrchestratorTestSuite) TestHandleActionReplayNarratesClaim() {
	svc := s.newService()

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.PendingLoot = &entities.PendingLoot{
		Gold:   5,
		Items:  []string{"dagger"},
		Source: "combat:goblin",
	}
	s.seed(char, sess)

	var lastFacts *narrator.Request
	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *narrator.Request) (*narrator.Narration, error) {
			lastFacts = req
			return quietNarration("You pocket the goblin's meagre hoard."), nil
		}).Times(2)

	input := &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		ActionID:  "act-7",
		Text:      "I search the goblin's body",
	}

	_, err := svc.HandleAction(s.ctx, input)
	s.Require().NoError(err)

	// The retry narrates the loot the original attempt granted without
	// granting it again
	second, err := svc.HandleAction(s.ctx, input)
	s.Require().NoError(err)

	s.Require().NotNil(lastFacts)
	s.Equal(int32(5), lastFacts.ClaimedGold)
	s.Equal([]string{"Dagger"}, lastFacts.ClaimedItems)
	s.Equal(int32(15), second.Character.Gold)
}

func (s *OrchestratorTestSuite) TestHandleActionStartsEncounter() {
	// StartEncounter rolls: goblin hp 1d6+1 -> 4+1, initiative 3 vs 2
	svc := s.newService(4, 3, 2)

	char := testutils.CreateTestCharacter()
	sess := testutils.CreateTestSession()
	sess.PendingLoot = &entities.PendingLoot{Gold: 9, Source: "combat:wolf"}
	s.seed(char, sess)

	reply := quietNarration("A goblin leaps from the rocks!")
	reply.EncounterEnemies = []string{"Goblin"}
	s.narrator.EXPECT().Narrate(gomock.Any(), gomock.Any()).Return(reply, nil)

	out, err := svc.HandleAction(s.ctx, &action.HandleActionInput{
		SessionID: testutils.TestSessionID,
		Text:      "I climb the ridge",
	})
	s.Require().NoError(err)
	s.False(out.SessionEnded)

	stored := s.loadSession(testutils.TestSessionID)
	s.True(stored.InCombat())
	s.Require().Len(stored.Encounter.Enemies, 1)
	s.Equal(int32(5), stored.Encounter.Enemies[0].MaxHP)

	// Unclaimed loot is forfeit once a new fight starts
	s.Nil(stored.PendingLoot)
}

func TestOrchestratorTestSuite(t *testing.T) {
	suite.Run(t, new(OrchestratorTestSuite))
}
