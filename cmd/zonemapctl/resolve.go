package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"

	"github.com/samirrijal/zonemap/internal/bootstrap"
	"github.com/samirrijal/zonemap/internal/core/usecases"
)

type resolveCommand struct {
	Lang string `short:"l" long:"lang" description:"BCP 47 language hint of the query"`

	Args struct {
		Query []string `positional-arg-name:"query" required:"1"`
	} `positional-args:"yes"`
}

func (c *resolveCommand) Execute(_ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx := context.Background()
	resolver, db, err := bootstrap.Resolver(ctx, cfg)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	svc := usecases.NewLocationService(resolver, nil)
	loc, err := svc.Resolve(ctx, strings.Join(c.Args.Query, " "), c.Lang)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(loc); err != nil {
		return err
	}
	if !loc.Found() {
		return errors.New("no match")
	}
	return nil
}
