// Package bootstrap builds the in-memory resolver from configuration. It is
// shared by the API server and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/text/language"

	"github.com/samirrijal/zonemap/internal/adapters/gazetteerfile"
	"github.com/samirrijal/zonemap/internal/adapters/postgres"
	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/gazetteer"
	"github.com/samirrijal/zonemap/internal/core/ports"
	"github.com/samirrijal/zonemap/internal/pkg/config"
)

// Zooms returns the configured default zoom levels.
func Zooms(cfg *config.Config) gazetteer.ZoomDefaults {
	return gazetteer.ZoomDefaults{Country: cfg.Resolver.CountryZoom, City: cfg.Resolver.CityZoom}
}

// ResolverOptions returns the configured matching policy.
func ResolverOptions(cfg *config.Config) gazetteer.Options {
	r := cfg.Resolver
	return gazetteer.Options{
		ShortInputMaxLen: r.ShortInputLen,
		ShortMaxDistance: r.ShortMaxDistance,
		LongMaxDistance:  r.LongMaxDistance,
		PreferCountries:  r.PreferCountries,
		// Validate already parsed the tag once.
		PrimaryLanguage: language.Make(r.PrimaryLanguage),
	}
}

// Resolver loads the configured gazetteer source and builds a resolver. For
// the postgres source the opened pool is returned too; the caller closes it.
func Resolver(ctx context.Context, cfg *config.Config) (*gazetteer.Resolver, *postgres.DB, error) {
	var (
		src ports.GazetteerSource
		db  *postgres.DB
	)
	switch cfg.Gazetteer.Source {
	case config.SourceFile:
		src = gazetteerfile.New(cfg.Gazetteer.Path)
	case config.SourcePostgres:
		var err error
		db, err = postgres.New(ctx, cfg.Database.DSN(), cfg.Database.MaxConns)
		if err != nil {
			return nil, nil, fmt.Errorf("database: %w", err)
		}
		src = postgres.NewGazetteerRepo(db)
	default:
		src = gazetteerfile.Embedded()
	}

	entries, err := src.Load(ctx)
	if err != nil {
		closeDB(db)
		return nil, nil, fmt.Errorf("load gazetteer from %s: %w", cfg.Gazetteer.Source, err)
	}
	g, err := gazetteer.New(entries, Zooms(cfg))
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}

	slog.Info("gazetteer loaded",
		"source", cfg.Gazetteer.Source,
		"countries", g.Len(domain.KindCountry),
		"cities", g.Len(domain.KindCity),
	)
	return gazetteer.NewResolver(g, ResolverOptions(cfg)), db, nil
}

func closeDB(db *postgres.DB) {
	if db != nil {
		db.Close()
	}
}
