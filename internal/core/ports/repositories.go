package ports

import (
	"context"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// GazetteerSource loads the reference table once at startup.
type GazetteerSource interface {
	Load(ctx context.Context) ([]domain.GazetteerEntry, error)
}

// GazetteerStore persists versioned gazetteer snapshots.
type GazetteerStore interface {
	GazetteerSource
	StageVersion(ctx context.Context, version string, entries []domain.GazetteerEntry) error
	ActivateVersion(ctx context.Context, version string) error
	DeleteVersion(ctx context.Context, version string) error
	ListVersions(ctx context.Context) ([]domain.GazetteerVersion, error)
}
