package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/samirrijal/zonemap/internal/adapters/postgres"
)

type versionsCommand struct{}

func (c *versionsCommand) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := cfg.ValidateDatabase(); err != nil {
		return err
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
	if err != nil {
		return err
	}
	defer db.Close()

	versions, err := postgres.NewGazetteerRepo(db).ListVersions(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "VERSION\tSTATUS\tENTRIES\tCREATED")
	for _, v := range versions {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", v.Version, v.Status, v.Entries, v.CreatedAt.Format(time.RFC3339))
	}
	return w.Flush()
}
