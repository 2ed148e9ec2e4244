package main

import (
	"context"

	fswatch "github.com/andreaskoch/go-fswatch"
)

// watchAndRun runs the workflow suite once, then re-runs it every time a
// workflow file under cfg.WorkflowsDir changes, until ctx is cancelled.
// Grounded on go-fswatch's folder-watcher shape: a FolderWatcher started
// once, its Modified channel driving the re-run loop (spec.md's
// `--watch` flag, component L).
func watchAndRun(ctx context.Context, cfg *config) error {
	if err := runAndReport(ctx, cfg); err != nil {
		logRunError(cfg, err)
	}

	watcher := fswatch.NewFolderWatcher(resolveWorkflowsDir(cfg), true, nil, nil)
	watcher.Start()
	defer watcher.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-watcher.Modified():
			if err := runAndReport(ctx, cfg); err != nil {
				logRunError(cfg, err)
			}
		}
	}
}

func logRunError(cfg *config, err error) {
	newLogger().WithField("dir", cfg.WorkflowsDir).Errorf("run failed: %v", err)
}
