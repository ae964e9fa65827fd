package workflows_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/gazetteer"
	"github.com/samirrijal/zonemap/internal/workflows"
)

func newEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *workflows.ImportActivities) {
	t.Helper()
	var suite testsuite.WorkflowTestSuite
	env := suite.NewTestWorkflowEnvironment()
	a := &workflows.ImportActivities{}
	env.RegisterWorkflow(workflows.GazetteerImportWorkflow)
	env.RegisterActivity(a)
	return env, a
}

func TestImportWorkflow_Success(t *testing.T) {
	env, a := newEnv(t)

	env.OnActivity(a.ReadAndValidate, mock.Anything, "/data/g.yaml").Return(131, nil).Once()
	env.OnActivity(a.StageEntries, mock.Anything, "v2", "/data/g.yaml").Return(131, nil).Once()
	env.OnActivity(a.ActivateVersion, mock.Anything, "v2").Return(nil).Once()
	env.OnActivity(a.PublishGazetteerUpdated, mock.Anything, mock.MatchedBy(func(evt domain.GazetteerUpdated) bool {
		return evt.Version == "v2" && evt.Entries == 131
	})).Return(nil).Once()

	env.ExecuteWorkflow(workflows.GazetteerImportWorkflow, workflows.ImportInput{Version: "v2", Path: "/data/g.yaml"})

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var res workflows.ImportResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.Equal(t, workflows.ImportResult{Version: "v2", Entries: 131, Published: true}, res)
	env.AssertExpectations(t)
	env.AssertNotCalled(t, workflows.ActivityDeleteVersion, mock.Anything, mock.Anything)
}

func TestImportWorkflow_InvalidDocumentStopsEarly(t *testing.T) {
	env, a := newEnv(t)

	env.OnActivity(a.ReadAndValidate, mock.Anything, "").
		Return(0, temporal.NewNonRetryableApplicationError("duplicate name", "InvalidGazetteer", nil)).Once()

	env.ExecuteWorkflow(workflows.GazetteerImportWorkflow, workflows.ImportInput{Version: "v3"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
	env.AssertNotCalled(t, workflows.ActivityStageEntries, mock.Anything, mock.Anything, mock.Anything)
	env.AssertNotCalled(t, workflows.ActivityDeleteVersion, mock.Anything, mock.Anything)
}

func TestImportWorkflow_ActivationFailureRollsBack(t *testing.T) {
	env, a := newEnv(t)

	env.OnActivity(a.ReadAndValidate, mock.Anything, "").Return(10, nil)
	env.OnActivity(a.StageEntries, mock.Anything, "v4", "").Return(10, nil)
	env.OnActivity(a.ActivateVersion, mock.Anything, "v4").
		Return(temporal.NewNonRetryableApplicationError("version not found", "NotFound", nil)).Once()
	env.OnActivity(a.DeleteVersion, mock.Anything, "v4").Return(nil).Once()

	env.ExecuteWorkflow(workflows.GazetteerImportWorkflow, workflows.ImportInput{Version: "v4"})

	require.True(t, env.IsWorkflowCompleted())
	require.Error(t, env.GetWorkflowError())
	env.AssertExpectations(t)
	env.AssertNotCalled(t, workflows.ActivityPublishUpdated, mock.Anything, mock.Anything)
}

func TestImportWorkflow_PublishFailureKeepsActivation(t *testing.T) {
	env, a := newEnv(t)

	env.OnActivity(a.ReadAndValidate, mock.Anything, "").Return(10, nil)
	env.OnActivity(a.StageEntries, mock.Anything, "v5", "").Return(10, nil)
	env.OnActivity(a.ActivateVersion, mock.Anything, "v5").Return(nil)
	env.OnActivity(a.PublishGazetteerUpdated, mock.Anything, mock.Anything).
		Return(temporal.NewNonRetryableApplicationError("nats: no responders", "Publish", nil))

	env.ExecuteWorkflow(workflows.GazetteerImportWorkflow, workflows.ImportInput{Version: "v5"})

	require.NoError(t, env.GetWorkflowError())
	var res workflows.ImportResult
	require.NoError(t, env.GetWorkflowResult(&res))
	require.False(t, res.Published)
	env.AssertNotCalled(t, workflows.ActivityDeleteVersion, mock.Anything, mock.Anything)
}

// ---- Activities ----

type mockStore struct {
	staged    map[string][]domain.GazetteerEntry
	stageFn   func(ctx context.Context, version string, entries []domain.GazetteerEntry) error
	activated []string
	deleted   []string
}

func (m *mockStore) Load(ctx context.Context) ([]domain.GazetteerEntry, error) { return nil, nil }
func (m *mockStore) StageVersion(ctx context.Context, version string, entries []domain.GazetteerEntry) error {
	if m.stageFn != nil {
		return m.stageFn(ctx, version, entries)
	}
	if m.staged == nil {
		m.staged = map[string][]domain.GazetteerEntry{}
	}
	m.staged[version] = entries
	return nil
}
func (m *mockStore) ActivateVersion(ctx context.Context, version string) error {
	m.activated = append(m.activated, version)
	return nil
}
func (m *mockStore) DeleteVersion(ctx context.Context, version string) error {
	m.deleted = append(m.deleted, version)
	return nil
}
func (m *mockStore) ListVersions(ctx context.Context) ([]domain.GazetteerVersion, error) {
	return nil, nil
}

type mockEvents struct {
	published []domain.GazetteerUpdated
}

func (m *mockEvents) PublishGazetteerUpdated(ctx context.Context, evt *domain.GazetteerUpdated) error {
	m.published = append(m.published, *evt)
	return nil
}
func (m *mockEvents) PublishHighlight(ctx context.Context, viewportID string, h *domain.ExternalHighlight) error {
	return nil
}

func TestActivities_EmbeddedDataset(t *testing.T) {
	store := &mockStore{}
	a := &workflows.ImportActivities{Store: store, Zooms: gazetteer.DefaultZooms}
	ctx := context.Background()

	n, err := a.ReadAndValidate(ctx, "")
	require.NoError(t, err)
	require.Equal(t, 131, n)

	staged, err := a.StageEntries(ctx, "v1", "")
	require.NoError(t, err)
	require.Equal(t, n, staged)
	require.Len(t, store.staged["v1"], n)

	require.NoError(t, a.ActivateVersion(ctx, "v1"))
	require.Equal(t, []string{"v1"}, store.activated)
}

func TestActivities_RejectsInvalidDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dup.yaml")
	doc := `entries:
  - names: {primary: "Egypt"}
    kind: country
    lat: 26.8
    lng: 30.8
  - names: {primary: "egypt"}
    kind: country
    lat: 1
    lng: 1
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	a := &workflows.ImportActivities{Store: &mockStore{}, Zooms: gazetteer.DefaultZooms}
	_, err := a.ReadAndValidate(context.Background(), path)
	require.Error(t, err)

	var appErr *temporal.ApplicationError
	require.True(t, errors.As(err, &appErr))
	require.True(t, appErr.NonRetryable())
	require.ErrorIs(t, err, gazetteer.ErrDuplicateName)
}

func TestActivities_StageErrorIsWrapped(t *testing.T) {
	boom := errors.New("copy failed")
	a := &workflows.ImportActivities{
		Store: &mockStore{stageFn: func(ctx context.Context, version string, entries []domain.GazetteerEntry) error { return boom }},
	}
	_, err := a.StageEntries(context.Background(), "v9", "")
	require.ErrorIs(t, err, boom)
}

func TestActivities_PublishAndDelete(t *testing.T) {
	store := &mockStore{}
	events := &mockEvents{}
	a := &workflows.ImportActivities{Store: store, Events: events}
	ctx := context.Background()

	require.NoError(t, a.PublishGazetteerUpdated(ctx, domain.GazetteerUpdated{Version: "v1", Entries: 3}))
	require.Len(t, events.published, 1)
	require.Equal(t, "v1", events.published[0].Version)

	require.NoError(t, (&workflows.ImportActivities{Store: store}).PublishGazetteerUpdated(ctx, domain.GazetteerUpdated{Version: "v2"}))

	require.NoError(t, a.DeleteVersion(ctx, "v1"))
	require.Equal(t, []string{"v1"}, store.deleted)
}
