package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/stepflow/stepflow/pkg/clockrng"
	"github.com/stepflow/stepflow/pkg/engine"
	"github.com/stepflow/stepflow/pkg/workflowregistry"
)

// newRunCommand builds the `stepflow run` command (also the root
// command's own RunE, so a bare `stepflow` behaves like `stepflow run`).
func newRunCommand(cfg *config) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Discover and run every workflow under --dir",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), cfg)
		},
	}
}

// runOnce discovers the registry, builds an Engine, runs it once (or, if
// cfg.Watch is set, repeatedly on every detected change), and returns a
// non-nil error whenever the process should exit non-zero (spec.md
// §6.6): either a discovery/engine-construction error, or result.Failed().
func runOnce(ctx context.Context, cfg *config) error {
	if cfg.Watch {
		return watchAndRun(ctx, cfg)
	}
	return runAndReport(ctx, cfg)
}

func runAndReport(ctx context.Context, cfg *config) error {
	dir := resolveWorkflowsDir(cfg)
	reg, err := workflowregistry.Discover(dir)
	if err != nil {
		return fmt.Errorf("discovering workflows under %q: %w", dir, err)
	}

	e := engine.New(reg)
	e.Log = newLogger()

	env, err := loadEnv(cfg)
	if err != nil {
		return fmt.Errorf("loading env file %q: %w", cfg.EnvFile, err)
	}
	e.Env = env

	seed, err := resolveSeed(cfg)
	if err != nil {
		return fmt.Errorf("resolving rng seed: %w", err)
	}
	e.Rng = clockrng.WithSeed(seed)
	e.Log.WithField("seed", seed).Debug("deterministic rng seeded")

	result, err := e.Run(ctx)
	if err != nil {
		return fmt.Errorf("running workflows: %w", err)
	}
	if result.Failed() {
		return fmt.Errorf("one or more jobs failed (session %s)", result.SessionID)
	}
	return nil
}

// resolveSeed honors an explicit --seed, otherwise reads the
// last-persisted seed from the XDG cache file so repeated bare
// invocations stay reproducible, and falls back to deriving a fresh
// seed from the current time when no cache entry exists yet.
func resolveSeed(cfg *config) (uint64, error) {
	if cfg.Seed != 0 {
		return cfg.Seed, persistSeed(cfg.Seed)
	}

	path, err := seedCacheFile()
	if err != nil {
		return 0, err
	}
	if raw, err := os.ReadFile(path); err == nil {
		if seed, err := strconv.ParseUint(strings.TrimSpace(string(raw)), 10, 64); err == nil {
			return seed, nil
		}
	}

	seed := clockrng.SeedFromName(time.Now().String())
	return seed, persistSeed(seed)
}

func persistSeed(seed uint64) error {
	path, err := seedCacheFile()
	if err != nil {
		return err
	}
	return os.WriteFile(path, []byte(strconv.FormatUint(seed, 10)), 0o644)
}
