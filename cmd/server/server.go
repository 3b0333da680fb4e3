package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fableforge/rules-api/internal/catalog"
	"github.com/fableforge/rules-api/internal/clients/narrator"
	"github.com/fableforge/rules-api/internal/config"
	"github.com/fableforge/rules-api/internal/errors"
	"github.com/fableforge/rules-api/internal/handlers/httpapi"
	"github.com/fableforge/rules-api/internal/orchestrators/action"
	"github.com/fableforge/rules-api/internal/orchestrators/combat"
	"github.com/fableforge/rules-api/internal/orchestrators/economy"
	"github.com/fableforge/rules-api/internal/orchestrators/loot"
	"github.com/fableforge/rules-api/internal/orchestrators/usage"
	"github.com/fableforge/rules-api/internal/pkg/clock"
	"github.com/fableforge/rules-api/internal/pkg/idgen"
	"github.com/fableforge/rules-api/internal/redis"
	characterrepo "github.com/fableforge/rules-api/internal/repositories/character"
	sessionrepo "github.com/fableforge/rules-api/internal/repositories/session"
	usagerepo "github.com/fableforge/rules-api/internal/repositories/usage"

	"github.com/KirkDiggler/rpg-toolkit/dice"
)

const shutdownTimeout = 30 * time.Second

var listenAddr string

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the HTTP server",
	Long:  `Start the rules API server with all configured services.`,
	RunE:  runServer,
}

func init() {
	serverCmd.Flags().StringVar(&listenAddr, "listen", "", "listen address, overrides LISTEN_ADDR")
}

func runServer(cmd *cobra.Command, _ []string) error {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "failed to load config")
	}
	if listenAddr != "" {
		cfg.ListenAddr = listenAddr
	}

	handler, err := buildHandler(cfg)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- errors.Wrap(err, "server failed")
		}
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Warn("graceful shutdown failed, closing", "error", err)
			return srv.Close()
		}

		slog.Info("server stopped gracefully")
		return nil
	case err := <-errChan:
		return err
	}
}

// buildHandler wires the full dependency graph from configuration
func buildHandler(cfg *config.Config) (*httpapi.Handler, error) {
	redisClient, err := redis.NewClient(cfg.RedisAddr, &redis.Options{
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create redis client")
	}

	cat, err := catalog.New()
	if err != nil {
		return nil, errors.Wrap(err, "failed to load catalog")
	}

	clk := clock.New()

	characterRepo, err := characterrepo.NewRedisRepository(&characterrepo.Config{
		Client: redisClient,
		Clock:  clk,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create character repository")
	}

	sessionRepo, err := sessionrepo.NewRedisRepository(&sessionrepo.Config{
		Client: redisClient,
		Clock:  clk,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create session repository")
	}

	usageRepo, err := usagerepo.NewRedisRepository(&usagerepo.Config{
		Client:    redisClient,
		Retention: cfg.UsageRetention,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create usage repository")
	}

	combatSvc, err := combat.NewOrchestrator(&combat.Config{
		DiceRoller:  dice.DefaultRoller,
		Catalog:     cat,
		IDGenerator: idgen.NewUUID("enemy"),
		TieBreak:    cfg.CombatTieBreak,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create combat service")
	}

	lootSvc, err := loot.NewOrchestrator(&loot.Config{
		DiceRoller: dice.DefaultRoller,
		Catalog:    cat,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create loot service")
	}

	economyGate, err := economy.NewOrchestrator(&economy.Config{
		Catalog: cat,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create economy gate")
	}

	costGuard, err := usage.NewOrchestrator(&usage.Config{
		UsageRepo:         usageRepo,
		Clock:             clk,
		GlobalDailyLimit:  cfg.GlobalDailyTokenLimit,
		SessionDailyLimit: cfg.SessionDailyTokenLimit,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create cost guard")
	}

	narratorClient, err := narrator.NewOpenAIClient(&narrator.OpenAIConfig{
		BaseURL: cfg.NarratorBaseURL,
		APIKey:  cfg.NarratorAPIKey,
		Model:   cfg.NarratorModel,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create narrator client")
	}

	actionSvc, err := action.NewOrchestrator(&action.Config{
		CharacterRepo: characterRepo,
		SessionRepo:   sessionRepo,
		CombatService: combatSvc,
		LootService:   lootSvc,
		EconomyGate:   economyGate,
		CostGuard:     costGuard,
		Narrator:      narratorClient,
		Catalog:       cat,
		IDGenerator:   idgen.NewUUID(""),
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create action service")
	}

	return httpapi.NewHandler(&httpapi.Config{
		ActionService: actionSvc,
		UsageService:  costGuard,
	})
}
