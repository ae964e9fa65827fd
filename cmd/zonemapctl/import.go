package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/google/uuid"
	"go.temporal.io/sdk/client"

	"github.com/samirrijal/zonemap/internal/pkg/config"
	"github.com/samirrijal/zonemap/internal/workflows"
)

type importCommand struct {
	Version string `short:"v" long:"version" description:"Version label (generated when empty)"`
	Wait    bool   `short:"w" long:"wait"    description:"Wait for the workflow to finish"`

	Args struct {
		Path string `positional-arg-name:"file" description:"Gazetteer YAML readable by the worker (embedded dataset when omitted)"`
	} `positional-args:"yes"`
}

func (c *importCommand) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	version := c.Version
	if version == "" {
		version = uuid.NewString()
	}
	path := c.Args.Path
	if path != "" {
		if path, err = filepath.Abs(path); err != nil {
			return err
		}
	}

	tc, err := dialTemporal(cfg)
	if err != nil {
		return err
	}
	defer tc.Close()

	ctx := context.Background()
	run, err := tc.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
		ID:        "gazetteer-import-" + version,
		TaskQueue: cfg.Temporal.TaskQueue,
	}, workflows.GazetteerImportWorkflow, workflows.ImportInput{Version: version, Path: path})
	if err != nil {
		return fmt.Errorf("start import: %w", err)
	}
	slog.Info("gazetteer import started", "workflow_id", run.GetID(), "run_id", run.GetRunID(), "version", version)

	if !c.Wait {
		return nil
	}
	var res workflows.ImportResult
	if err := run.Get(ctx, &res); err != nil {
		return fmt.Errorf("import %s: %w", version, err)
	}
	slog.Info("gazetteer import finished", "version", res.Version, "entries", res.Entries, "published", res.Published)
	return nil
}

func dialTemporal(cfg *config.Config) (client.Client, error) {
	tc, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return nil, fmt.Errorf("temporal client: %w", err)
	}
	return tc, nil
}
