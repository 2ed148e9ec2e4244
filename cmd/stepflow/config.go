package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
)

// config is the CLI's own small settings struct: a workflows directory,
// a working directory, an optional dotenv file, an RNG seed, and a
// watch flag. It carries no platform/runs-on field: stepflow never
// schedules onto a runner OS, only a placeholder container endpoint
// (pkg/container).
type config struct {
	WorkflowsDir string
	Workdir      string
	EnvFile      string
	Seed         uint64
	Watch        bool
}

// defaultWorkflowsDir is "./.workflows" unless overridden by --dir.
const defaultWorkflowsDir = ".workflows"

// resolveWorkflowsDir returns cfg.WorkflowsDir made absolute against
// cfg.Workdir, so `--dir` and `--workdir` compose the way a relative
// `--dir` would against any other working-directory-scoped tool.
func resolveWorkflowsDir(cfg *config) string {
	if filepath.IsAbs(cfg.WorkflowsDir) {
		return cfg.WorkflowsDir
	}
	return filepath.Join(cfg.Workdir, cfg.WorkflowsDir)
}

// seedCacheFile returns the path stepflow persists its last-used
// deterministic RNG seed to, under the user's XDG cache directory
// (xdg.CacheFile creates the parent directories), so that `--seed`
// omitted on a later invocation can still be reported for
// reproducibility rather than silently defaulting to zero every time.
func seedCacheFile() (string, error) {
	return xdg.CacheFile(filepath.Join("stepflow", "seed"))
}

// loadEnv builds the base environment layer an Engine run starts from:
// the process's own environment, overlaid with cfg.EnvFile's contents
// when one is configured (godotenv.Read never touches os.Environ
// itself, so a stepflow run never leaks a workflow's .env into the
// invoking shell).
func loadEnv(cfg *config) (map[string]string, error) {
	env := map[string]string{}
	for _, kv := range os.Environ() {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}
	if cfg.EnvFile == "" {
		return env, nil
	}
	fileEnv, err := godotenv.Read(cfg.EnvFile)
	if err != nil {
		return nil, err
	}
	for k, v := range fileEnv {
		env[k] = v
	}
	return env, nil
}
