package workflows

import (
	"context"
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/temporal"

	"github.com/samirrijal/zonemap/internal/adapters/gazetteerfile"
	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/gazetteer"
	"github.com/samirrijal/zonemap/internal/core/ports"
	"github.com/samirrijal/zonemap/internal/pkg/metrics"
)

// Activity names, as registered from ImportActivities.
const (
	ActivityReadAndValidate = "ReadAndValidate"
	ActivityStageEntries    = "StageEntries"
	ActivityActivateVersion = "ActivateVersion"
	ActivityPublishUpdated  = "PublishGazetteerUpdated"
	ActivityDeleteVersion   = "DeleteVersion"
)

const errTypeInvalidGazetteer = "InvalidGazetteer"

// ImportActivities holds the activity implementations for the import
// workflow. Events may be nil when no broker is configured.
type ImportActivities struct {
	Store  ports.GazetteerStore
	Events ports.EventPublisher
	Zooms  gazetteer.ZoomDefaults
}

// ReadAndValidate parses the document at path (the embedded dataset when
// path is empty) and checks it would build a gazetteer. Invalid data is
// not retried.
func (a *ImportActivities) ReadAndValidate(ctx context.Context, path string) (int, error) {
	entries, err := a.read(ctx, path)
	if err != nil {
		return 0, err
	}
	if _, err := gazetteer.New(entries, a.Zooms); err != nil {
		return 0, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidGazetteer, err)
	}
	return len(entries), nil
}

// StageEntries re-reads the document and stores it as a staged version.
// Entries are read on the worker so they never go through workflow history.
func (a *ImportActivities) StageEntries(ctx context.Context, version, path string) (int, error) {
	entries, err := a.read(ctx, path)
	if err != nil {
		return 0, err
	}
	if err := a.Store.StageVersion(ctx, version, entries); err != nil {
		return 0, fmt.Errorf("stage %s: %w", version, err)
	}
	slog.InfoContext(ctx, "gazetteer version staged", "version", version, "entries", len(entries))
	return len(entries), nil
}

// ActivateVersion makes version the one served to new instances.
func (a *ImportActivities) ActivateVersion(ctx context.Context, version string) error {
	if err := a.Store.ActivateVersion(ctx, version); err != nil {
		return fmt.Errorf("activate %s: %w", version, err)
	}
	metrics.GazetteerImports.WithLabelValues("activated").Inc()
	slog.InfoContext(ctx, "gazetteer version activated", "version", version)
	return nil
}

// PublishGazetteerUpdated tells running instances that a new version is live.
func (a *ImportActivities) PublishGazetteerUpdated(ctx context.Context, evt domain.GazetteerUpdated) error {
	if a.Events == nil {
		slog.InfoContext(ctx, "no event publisher, skipping gazetteer update event", "version", evt.Version)
		return nil
	}
	return a.Events.PublishGazetteerUpdated(ctx, &evt)
}

// DeleteVersion removes a staged version (saga compensation).
func (a *ImportActivities) DeleteVersion(ctx context.Context, version string) error {
	if err := a.Store.DeleteVersion(ctx, version); err != nil {
		return fmt.Errorf("delete %s: %w", version, err)
	}
	metrics.GazetteerImports.WithLabelValues("rolled_back").Inc()
	slog.WarnContext(ctx, "gazetteer version rolled back", "version", version)
	return nil
}

func (a *ImportActivities) read(ctx context.Context, path string) ([]domain.GazetteerEntry, error) {
	src := gazetteerfile.Embedded()
	if path != "" {
		src = gazetteerfile.New(path)
	}
	entries, err := src.Load(ctx)
	if err != nil {
		return nil, temporal.NewNonRetryableApplicationError(err.Error(), errTypeInvalidGazetteer, err)
	}
	return entries, nil
}
