package viewport_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/viewport"
)

// widget mimics a map widget: a new command interrupts the running
// animation and the camera rests wherever the last command pointed.
type widget struct {
	mu       sync.Mutex
	commands []domain.CameraCommand
	err      error
}

func (w *widget) SetCamera(_ context.Context, cmd domain.CameraCommand) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.commands = append(w.commands, cmd)
	return nil
}

func (w *widget) resting() domain.CameraCommand {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.commands[len(w.commands)-1]
}

func (w *widget) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.commands)
}

var (
	france  = domain.ResolvedLocation{Lat: 46.2276, Lng: 2.2137, Zoom: 6, Label: "France", MatchKind: domain.MatchExact, Kind: domain.KindCountry}
	germany = domain.ResolvedLocation{Lat: 51.1657, Lng: 10.4515, Zoom: 6, Label: "Germany", MatchKind: domain.MatchExact, Kind: domain.KindCountry}
)

func TestSetTarget_IssuesAnimatedCommand(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{ViewportID: "v1"})

	out, err := c.SetTarget(context.Background(), france)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeMoved, out)

	cmd := w.resting()
	require.Equal(t, "v1", cmd.ViewportID)
	require.Equal(t, uint64(1), cmd.Seq)
	require.True(t, cmd.Animated)
	require.Equal(t, 1.5, cmd.DurationSeconds)
	require.Equal(t, france.Lat, cmd.Lat)
	require.Equal(t, france.Zoom, cmd.Zoom)

	snap := c.Snapshot()
	require.Equal(t, viewport.PhaseAnimating, snap.Phase)
	require.NotNil(t, snap.State)
	require.Equal(t, domain.ViewportState{Lat: france.Lat, Lng: france.Lng, Zoom: 6}, *snap.State)
}

func TestSetTarget_Idempotent(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{})
	ctx := context.Background()

	_, err := c.SetTarget(ctx, france)
	require.NoError(t, err)
	out, err := c.SetTarget(ctx, france)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeUnchanged, out)

	// A sub-epsilon drift is still the same view.
	nudged := france
	nudged.Lat += 5e-5
	out, err = c.SetTarget(ctx, nudged)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeUnchanged, out)

	require.Equal(t, 1, w.count())

	// Zoom must match exactly.
	closer := france
	closer.Zoom = 7
	out, err = c.SetTarget(ctx, closer)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeMoved, out)
	require.Equal(t, 2, w.count())
}

func TestSetTarget_LatestPreempts(t *testing.T) {
	w := &widget{}
	start := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	now := start
	c := viewport.New(w, viewport.Options{Now: func() time.Time { return now }})
	ctx := context.Background()

	_, err := c.SetTarget(ctx, france)
	require.NoError(t, err)
	now = now.Add(150 * time.Millisecond)
	_, err = c.SetTarget(ctx, germany)
	require.NoError(t, err)

	rest := w.resting()
	require.Equal(t, germany.Lat, rest.Lat)
	require.Equal(t, germany.Lng, rest.Lng)
	require.Less(t, rest.IssuedAt.Sub(start), 200*time.Millisecond)

	// France's completion arrives late and must not settle the view.
	require.False(t, c.AnimationComplete(1))
	require.Equal(t, viewport.PhaseAnimating, c.Snapshot().Phase)

	require.True(t, c.AnimationComplete(2))
	snap := c.Snapshot()
	require.Equal(t, viewport.PhaseIdle, snap.Phase)
	require.Equal(t, germany.Lat, snap.State.Lat)
	require.Equal(t, "Germany", snap.Label)
}

func TestSetTarget_BackToPreviousViewAfterPreemption(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{})
	ctx := context.Background()

	_, _ = c.SetTarget(ctx, france)
	_, _ = c.SetTarget(ctx, germany)
	out, err := c.SetTarget(ctx, france)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeMoved, out)
	require.Equal(t, 3, w.count())
	require.Equal(t, france.Lat, w.resting().Lat)
}

func TestSetTarget_NotFoundKeepsView(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{})
	ctx := context.Background()

	_, _ = c.SetTarget(ctx, france)
	out, err := c.SetTarget(ctx, domain.NotFound())
	require.ErrorIs(t, err, domain.ErrLocationNotFound)
	require.Equal(t, viewport.OutcomeNotFound, out)
	require.Equal(t, 1, w.count())
	require.Equal(t, france.Lat, c.Snapshot().State.Lat)
}

func TestSetTarget_Malformed(t *testing.T) {
	c := viewport.New(&widget{}, viewport.Options{})

	bad := []domain.ResolvedLocation{
		{Lat: math.NaN(), Lng: 1, Zoom: 3, MatchKind: domain.MatchExact},
		{Lat: 91, Lng: 1, Zoom: 3, MatchKind: domain.MatchFuzzy},
		{Lat: 1, Lng: 1, Zoom: -1, MatchKind: domain.MatchExact},
	}
	for _, loc := range bad {
		_, err := c.SetTarget(context.Background(), loc)
		require.ErrorIs(t, err, viewport.ErrMalformedTarget)
	}
	require.Nil(t, c.Snapshot().State)
}

func TestSetTarget_CameraErrorLeavesState(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{})
	ctx := context.Background()

	_, _ = c.SetTarget(ctx, france)
	c.AnimationComplete(1)

	w.err = errors.New("socket closed")
	_, err := c.SetTarget(ctx, germany)
	require.Error(t, err)

	snap := c.Snapshot()
	require.Equal(t, france.Lat, snap.State.Lat)
	require.Equal(t, uint64(1), snap.Seq)
	require.Equal(t, viewport.PhaseIdle, snap.Phase)

	// The failed move is retried on the next request instead of being deduplicated.
	w.err = nil
	out, err := c.SetTarget(ctx, germany)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeMoved, out)
	require.Equal(t, uint64(2), w.resting().Seq)
}

func TestTeardown_IsTerminalNoOp(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{})
	ctx := context.Background()

	_, _ = c.SetTarget(ctx, france)
	c.Teardown()
	c.Teardown()

	out, err := c.SetTarget(ctx, germany)
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeIgnored, out)

	out, err = c.SetTarget(ctx, domain.NotFound())
	require.NoError(t, err)
	require.Equal(t, viewport.OutcomeIgnored, out)

	require.False(t, c.AnimationComplete(1))
	require.Equal(t, 1, w.count())
	require.Equal(t, viewport.PhaseTornDown, c.Snapshot().Phase)
}

func TestSetTarget_ConcurrentCallersSettleOnLastCommand(t *testing.T) {
	w := &widget{}
	c := viewport.New(w, viewport.Options{})

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc := france
			loc.Lng += float64(i)
			_, _ = c.SetTarget(context.Background(), loc)
		}(i)
	}
	wg.Wait()

	snap := c.Snapshot()
	rest := w.resting()
	require.Equal(t, uint64(w.count()), snap.Seq)
	require.Equal(t, rest.Seq, snap.Seq)
	require.Equal(t, rest.Lng, snap.State.Lng)
}

func TestCameraFunc(t *testing.T) {
	var got domain.CameraCommand
	c := viewport.New(viewport.CameraFunc(func(_ context.Context, cmd domain.CameraCommand) error {
		got = cmd
		return nil
	}), viewport.Options{Duration: 2 * time.Second})

	_, err := c.SetTarget(context.Background(), germany)
	require.NoError(t, err)
	require.Equal(t, 2.0, got.DurationSeconds)
	require.Equal(t, "Germany", got.Label)
}
