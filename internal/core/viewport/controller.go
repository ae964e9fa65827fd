// Package viewport drives a map widget's camera from a stream of resolved
// locations. A Controller suppresses no-op moves, lets the newest target
// preempt an in-flight animation and becomes inert after teardown.
package viewport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/pkg/geospatial"
)

// ErrMalformedTarget is returned for a found target without a usable
// coordinate or zoom. It signals a caller bug, not bad user input.
var ErrMalformedTarget = errors.New("viewport: malformed target")

const (
	DefaultEpsilon  = 1e-4
	DefaultDuration = 1500 * time.Millisecond
)

// Camera is the map widget boundary.
type Camera interface {
	SetCamera(ctx context.Context, cmd domain.CameraCommand) error
}

// CameraFunc adapts a function to Camera.
type CameraFunc func(ctx context.Context, cmd domain.CameraCommand) error

func (f CameraFunc) SetCamera(ctx context.Context, cmd domain.CameraCommand) error {
	return f(ctx, cmd)
}

// Outcome describes what SetTarget did.
type Outcome string

const (
	OutcomeMoved     Outcome = "moved"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeNotFound  Outcome = "not_found"
	OutcomeIgnored   Outcome = "ignored"
)

// Phase is the controller's animation state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseAnimating Phase = "animating"
	PhaseTornDown  Phase = "torn_down"
)

// Options configure a Controller. Zero values take the package defaults.
type Options struct {
	ViewportID string
	Epsilon    float64
	Duration   time.Duration
	Logger     *slog.Logger
	Now        func() time.Time
}

// Snapshot is a point-in-time view of a controller.
type Snapshot struct {
	ViewportID string                `json:"id"`
	State      *domain.ViewportState `json:"state,omitempty"`
	Phase      Phase                 `json:"phase"`
	Seq        uint64                `json:"seq"`
	Label      string                `json:"label,omitempty"`
}

// Controller owns the camera of one viewport. All methods are safe for
// concurrent use; events are applied one at a time in arrival order.
type Controller struct {
	mu     sync.Mutex
	camera Camera
	opts   Options
	log    *slog.Logger

	state    domain.ViewportState
	hasState bool
	label    string
	phase    Phase
	seq      uint64
}

// New creates an idle controller commanding camera.
func New(camera Camera, opts Options) *Controller {
	if opts.Epsilon <= 0 {
		opts.Epsilon = DefaultEpsilon
	}
	if opts.Duration <= 0 {
		opts.Duration = DefaultDuration
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Controller{
		camera: camera,
		opts:   opts,
		log:    log.With("viewport_id", opts.ViewportID),
		phase:  PhaseIdle,
	}
}

// SetTarget moves the camera to loc unless it is already there. The state
// is updated as soon as the camera accepts the command; completion of the
// animation is reported separately through AnimationComplete.
func (c *Controller) SetTarget(ctx context.Context, loc domain.ResolvedLocation) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseTornDown {
		return OutcomeIgnored, nil
	}
	if !loc.Found() {
		return OutcomeNotFound, domain.ErrLocationNotFound
	}
	if !loc.Point().Valid() || loc.Zoom < 0 {
		return "", fmt.Errorf("%w: (%v, %v) zoom %d", ErrMalformedTarget, loc.Lat, loc.Lng, loc.Zoom)
	}

	if c.hasState && c.same(loc) {
		return OutcomeUnchanged, nil
	}

	cmd := domain.CameraCommand{
		ViewportID:      c.opts.ViewportID,
		Seq:             c.seq + 1,
		Lat:             loc.Lat,
		Lng:             loc.Lng,
		Zoom:            loc.Zoom,
		Animated:        true,
		DurationSeconds: c.opts.Duration.Seconds(),
		Label:           loc.Label,
		IssuedAt:        c.opts.Now(),
	}
	if err := c.camera.SetCamera(ctx, cmd); err != nil {
		return "", fmt.Errorf("set camera: %w", err)
	}

	if c.phase == PhaseAnimating {
		c.log.Debug("animation preempted", "abandoned_seq", c.seq, "seq", cmd.Seq)
	}
	if c.hasState {
		c.log.Debug("camera moved",
			"seq", cmd.Seq,
			"label", loc.Label,
			"distance_m", geospatial.Haversine(c.state.Lat, c.state.Lng, loc.Lat, loc.Lng),
		)
	}

	c.seq = cmd.Seq
	c.state = domain.ViewportState{Lat: loc.Lat, Lng: loc.Lng, Zoom: loc.Zoom}
	c.hasState = true
	c.label = loc.Label
	c.phase = PhaseAnimating
	return OutcomeMoved, nil
}

// AnimationComplete settles the controller when seq is the latest command.
// Completions of preempted animations are ignored. It reports whether the
// notification was applied.
func (c *Controller) AnimationComplete(seq uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseAnimating || seq != c.seq {
		return false
	}
	c.phase = PhaseIdle
	return true
}

// Teardown releases the camera. Later calls to SetTarget are no-ops.
func (c *Controller) Teardown() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseTornDown {
		return
	}
	c.phase = PhaseTornDown
	c.camera = nil
}

// Snapshot returns the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{ViewportID: c.opts.ViewportID, Phase: c.phase, Seq: c.seq, Label: c.label}
	if c.hasState {
		st := c.state
		s.State = &st
	}
	return s
}

func (c *Controller) same(loc domain.ResolvedLocation) bool {
	return loc.Zoom == c.state.Zoom &&
		geospatial.SameCenter(c.state.Lat, c.state.Lng, loc.Lat, loc.Lng, c.opts.Epsilon)
}
