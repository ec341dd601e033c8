// Command farmsim runs the Farmshare resource allocation experiment.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/talgya/farmshare/internal/agents"
	"github.com/talgya/farmshare/internal/api"
	"github.com/talgya/farmshare/internal/config"
	"github.com/talgya/farmshare/internal/engine"
	"github.com/talgya/farmshare/internal/entropy"
	"github.com/talgya/farmshare/internal/oracle"
	"github.com/talgya/farmshare/internal/persistence"
	"github.com/talgya/farmshare/internal/weather"
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	slog.Info("Farmshare — Resource Allocation Experiment")

	cfg, err := config.Load(os.Getenv("FARMSHARE_CONFIG"))
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if dbPath := os.Getenv("FARMSHARE_DB"); dbPath != "" {
		cfg.DBPath = dbPath
	}

	// ── Community ─────────────────────────────────────────────────────
	var registry *agents.Registry
	if cfg.AgentsFile != "" {
		registry, err = agents.LoadFile(cfg.AgentsFile)
		if err != nil {
			slog.Error("failed to load community", "path", cfg.AgentsFile, "error", err)
			os.Exit(1)
		}
		slog.Info("community loaded", "path", cfg.AgentsFile, "families", registry.Len())
	} else {
		registry, err = agents.NewRegistry(agents.SampleCommunity())
		if err != nil {
			slog.Error("invalid sample community", "error", err)
			os.Exit(1)
		}
		slog.Info("using sample community", "families", registry.Len())
	}
	for _, f := range registry.All() {
		slog.Info("family",
			"name", f.FamilyName,
			"values", f.ValueType,
			"members", f.Members,
			"labor", f.LaborForce,
			"need", f.SurvivalNeed(),
		)
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database opened", "path", cfg.DBPath)

	if err := db.SaveFamilies(registry.All()); err != nil {
		slog.Error("failed to save community", "error", err)
		os.Exit(1)
	}

	// ── Oracle ────────────────────────────────────────────────────────
	anthropicKey := os.Getenv("ANTHROPIC_API_KEY")
	client := oracle.NewClient(anthropicKey)
	var judge oracle.Oracle
	if client != nil {
		judge = &oracle.Judge{Client: client}
		slog.Info("oracle enabled (Haiku)")
	} else {
		slog.Warn("ANTHROPIC_API_KEY not set — families answer with value-type defaults")
	}
	boundary := oracle.NewBoundary(judge, oracle.RetryPolicy{
		MaxAttempts: cfg.Oracle.MaxAttempts,
		Backoff:     time.Duration(cfg.Oracle.Backoff),
	}, logger)

	// ── Simulation ────────────────────────────────────────────────────
	seed := cfg.Seed
	if seed == 0 {
		seed = entropy.Seed(entropy.NewClient(os.Getenv("RANDOM_ORG_KEY")))
		slog.Info("seed drawn", "seed", seed)
	}

	sim, err := engine.NewSimulation(registry, cfg.Method, boundary, cfg.Negotiation, cfg.InitialResource, seed, logger)
	if err != nil {
		slog.Error("failed to build simulation", "error", err)
		os.Exit(1)
	}
	sim.Weather = weather.NewClient(os.Getenv("WEATHER_API_KEY"), os.Getenv("WEATHER_LOCATION"))
	if sim.Weather != nil {
		slog.Info("weather overlay enabled")
	}
	if err := db.SaveMeta("experiment_id", sim.ExperimentID); err != nil {
		slog.Error("failed to save metadata", "error", err)
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	adminKey := os.Getenv("FARMSHARE_ADMIN_KEY")
	if adminKey == "" {
		slog.Warn("FARMSHARE_ADMIN_KEY not set — admin POST endpoints will be disabled")
	}
	apiServer := &api.Server{
		Sim:             sim,
		DB:              db,
		Port:            cfg.APIPort,
		AdminKey:        adminKey,
		InitialResource: cfg.InitialResource,
	}
	apiServer.Start()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		slog.Info("received signal, shutting down", "signal", sig)
		cancel()
	}()

	fmt.Printf("\nFarmshare: %d families sharing %.0f grain over %d rounds (%s).\n",
		registry.Len(), cfg.InitialResource, cfg.Rounds, cfg.Method)
	fmt.Printf("API: http://localhost:%d/api/v1/status\n", cfg.APIPort)

	// ── Round loop ────────────────────────────────────────────────────
	for round := 1; round <= cfg.Rounds; round++ {
		if ctx.Err() != nil {
			slog.Info("stopping early", "completed_rounds", round-1)
			break
		}

		result, err := sim.RunRound(ctx)
		if err != nil {
			slog.Error("round failed", "round", round, "error", err)
			os.Exit(1)
		}
		if err := db.SaveRound(result.ExperimentID, result); err != nil {
			slog.Error("failed to save round", "round", round, "error", err)
		}
	}

	// ── Summary ───────────────────────────────────────────────────────
	if snap := sim.Snapshot(); snap.Last != nil {
		last := snap.Last
		fmt.Printf("\nExperiment %s complete: %d rounds.\n", snap.ExperimentID, snap.Rounds)
		fmt.Printf("Final pool: %.1f grain (sustainability %.2f)\n", last.NextPoolTotal, last.SustainabilityIndex)
		fmt.Printf("Final gini: allocation %.3f, effective input %.3f, outcome %.3f\n",
			last.Report.Allocation.Gini, last.Report.EffectiveInput.Gini, last.Report.Outcome.Gini)
		fmt.Printf("Average satisfaction: %.2f / 5\n", last.AverageSatisfaction)
	}
}
