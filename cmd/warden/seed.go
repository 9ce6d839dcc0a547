package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/basket/go-warden/internal/config"
)

func runSeedCommand(ctx context.Context, a *app, args []string) int {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	configPath := fs.String("config", "", "workflow definition file (default: $WARDEN_HOME/workflow.yaml)")
	watch := fs.Bool("watch", false, "stay running and re-apply on file change")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "usage: warden seed [-config <file>] [-watch]")
		return 2
	}

	path := *configPath
	if path == "" {
		path = filepath.Join(homeDir(), "workflow.yaml")
	}

	if err := applyWorkflow(ctx, a, path); err != nil {
		a.logger.Error("apply workflow failed", "path", path, "error", err)
		return 1
	}

	if !*watch {
		return 0
	}

	watcher := config.NewWatcher(path, a.logger)
	if err := watcher.Start(ctx); err != nil {
		a.logger.Error("start watcher failed", "path", path, "error", err)
		return 1
	}
	a.logger.Info("watching workflow file", "path", path)

	for {
		select {
		case <-ctx.Done():
			return 0
		case _, ok := <-watcher.Events():
			if !ok {
				return 0
			}
			// A bad edit must not poison the store: load errors keep the
			// previously applied rules active.
			if err := applyWorkflow(ctx, a, path); err != nil {
				a.logger.Error("re-apply workflow failed", "path", path, "error", err)
			}
		}
	}
}

func applyWorkflow(ctx context.Context, a *app, path string) error {
	ctx, span := a.tracer.Start(ctx, "warden.seed")
	defer span.End()

	wf, err := config.Load(path)
	if err != nil {
		return err
	}
	return config.Apply(ctx, wf, a.store, a.logger)
}
