package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/samirrijal/zonemap/internal/adapters/postgres"
	"github.com/samirrijal/zonemap/internal/pkg/config"
	"github.com/samirrijal/zonemap/migrations"
)

func main() {
	if len(os.Args) < 2 {
		log.Fatal("usage: migrate <up|down>")
	}

	var dir postgres.Direction
	switch os.Args[1] {
	case "up":
		dir = postgres.Up
	case "down":
		dir = postgres.Down
	default:
		log.Fatalf("unknown command: %s", os.Args[1])
	}

	cfg, err := config.Load("zonemap-migrate")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if err := cfg.ValidateDatabase(); err != nil {
		log.Fatalf("config: %v", err)
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.DSN(), 1)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer db.Close()

	files, err := postgres.Migrate(ctx, db, migrations.FS, dir)
	for _, f := range files {
		fmt.Printf("OK  %s\n", f)
	}
	if err != nil {
		db.Close()
		log.Fatalf("migrate %s: %v", dir, err)
	}
	if len(files) == 0 {
		fmt.Println("nothing to do")
	}
}
