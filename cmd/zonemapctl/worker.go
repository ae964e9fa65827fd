package main

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/worker"

	natsadapter "github.com/samirrijal/zonemap/internal/adapters/nats"
	"github.com/samirrijal/zonemap/internal/adapters/postgres"
	"github.com/samirrijal/zonemap/internal/bootstrap"
	"github.com/samirrijal/zonemap/internal/workflows"
)

type workerCommand struct{}

func (c *workerCommand) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	activities := &workflows.ImportActivities{
		Store: postgres.NewGazetteerRepo(db),
		Zooms: bootstrap.Zooms(cfg),
	}
	if cfg.NATS.URL != "" {
		pub, err := natsadapter.NewPublisher(cfg.NATS.URL)
		if err != nil {
			return fmt.Errorf("nats: %w", err)
		}
		defer pub.Close()
		activities.Events = pub
	} else {
		slog.Warn("nats not configured, imports will not be announced")
	}

	tc, err := dialTemporal(cfg)
	if err != nil {
		return err
	}
	defer tc.Close()

	w := worker.New(tc, cfg.Temporal.TaskQueue, worker.Options{})
	w.RegisterWorkflow(workflows.GazetteerImportWorkflow)
	w.RegisterActivity(activities)

	slog.Info("import worker started", "task_queue", cfg.Temporal.TaskQueue)
	return w.Run(worker.InterruptCh())
}
