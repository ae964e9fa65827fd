package workflows

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// ImportInput is the input of GazetteerImportWorkflow. An empty Path
// imports the dataset embedded in the worker binary.
type ImportInput struct {
	Version string
	Path    string
}

// ImportResult reports what an import did.
type ImportResult struct {
	Version   string
	Entries   int
	Published bool
}

// GazetteerImportWorkflow validates a gazetteer document, stages it as a
// new version and activates it, then announces the new version. If staging
// or activation fails the staged version is deleted (saga compensation).
// A failed announcement does not undo the activation; instances pick the
// version up on their next start.
func GazetteerImportWorkflow(ctx workflow.Context, input ImportInput) (ImportResult, error) {
	logger := workflow.GetLogger(ctx)
	logger.Info("Starting gazetteer import", "version", input.Version)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 2 * time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 3,
		},
	})

	result := ImportResult{Version: input.Version}

	var count int
	if err := workflow.ExecuteActivity(ctx, ActivityReadAndValidate, input.Path).Get(ctx, &count); err != nil {
		return result, err
	}

	if err := workflow.ExecuteActivity(ctx, ActivityStageEntries, input.Version, input.Path).Get(ctx, &result.Entries); err != nil {
		logger.Warn("staging failed, compensating", "error", err)
		compensate(ctx, input.Version)
		return result, err
	}

	if err := workflow.ExecuteActivity(ctx, ActivityActivateVersion, input.Version).Get(ctx, nil); err != nil {
		logger.Warn("activation failed, compensating", "error", err)
		compensate(ctx, input.Version)
		return result, err
	}

	evt := domain.GazetteerUpdated{
		Version:     input.Version,
		Entries:     result.Entries,
		ActivatedAt: workflow.Now(ctx),
	}
	if err := workflow.ExecuteActivity(ctx, ActivityPublishUpdated, evt).Get(ctx, nil); err != nil {
		logger.Warn("gazetteer update event not published", "error", err)
		return result, nil
	}
	result.Published = true

	logger.Info("Gazetteer import finished", "version", input.Version, "entries", result.Entries)
	return result, nil
}

func compensate(ctx workflow.Context, version string) {
	if err := workflow.ExecuteActivity(ctx, ActivityDeleteVersion, version).Get(ctx, nil); err != nil {
		workflow.GetLogger(ctx).Error("compensation failed", "version", version, "error", err)
	}
}
