package usecases

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/ports"
	"github.com/samirrijal/zonemap/internal/core/viewport"
	"github.com/samirrijal/zonemap/internal/pkg/metrics"
	"github.com/samirrijal/zonemap/internal/pkg/telemetry"
)

var (
	// ErrViewportNotFound is returned for ids that were never opened or are closed.
	ErrViewportNotFound = errors.New("viewport not found")
	// ErrInvalidViewportID is returned by Open for ids that cannot be used
	// as a message subject token.
	ErrInvalidViewportID = errors.New("invalid viewport id")
)

// ViewportOptions configure the controllers created by ViewportService.
type ViewportOptions struct {
	Epsilon  float64
	Duration time.Duration
}

// ViewportService keeps one controller per open map view. Opening a view
// starts its session and closing it tears the controller down.
type ViewportService struct {
	locations *LocationService
	sink      ports.CameraSink
	opts      ViewportOptions

	mu       sync.RWMutex
	views    map[string]*viewport.Controller
	attached map[string]*attachment
}

// attachment counts the live connections bound to a viewport. transient
// views were opened by the first connection and close with the last one.
type attachment struct {
	conns     int
	transient bool
}

// NewViewportService creates a new ViewportService publishing camera
// commands to sink.
func NewViewportService(locations *LocationService, sink ports.CameraSink, opts ViewportOptions) *ViewportService {
	return &ViewportService{
		locations: locations,
		sink:      sink,
		opts:      opts,
		views:     make(map[string]*viewport.Controller),
		attached:  make(map[string]*attachment),
	}
}

// Open registers a viewport. An empty id gets a generated one; opening an
// id that is already open returns the existing view.
func (s *ViewportService) Open(ctx context.Context, id string) (viewport.Snapshot, error) {
	if id == "" {
		id = uuid.NewString()
	} else if !validViewportID(id) {
		return viewport.Snapshot{}, fmt.Errorf("%w: %q", ErrInvalidViewportID, id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.openLocked(ctx, id).Snapshot(), nil
}

func (s *ViewportService) openLocked(ctx context.Context, id string) *viewport.Controller {
	if c, ok := s.views[id]; ok {
		return c
	}
	c := viewport.New(viewport.CameraFunc(s.sink.PublishCamera), viewport.Options{
		ViewportID: id,
		Epsilon:    s.opts.Epsilon,
		Duration:   s.opts.Duration,
		Logger:     slog.Default(),
	})
	s.views[id] = c
	metrics.ActiveViewports.Inc()
	slog.InfoContext(ctx, "viewport opened", "viewport_id", id)
	return c
}

// Attach binds a long-lived connection to a viewport, opening it when
// needed. The returned release func must be called when the connection
// ends; repeated calls are ignored. A viewport opened by Attach is closed when its last
// connection is released; one opened with Open stays until Close.
func (s *ViewportService) Attach(ctx context.Context, id string) (viewport.Snapshot, func(), error) {
	if !validViewportID(id) {
		return viewport.Snapshot{}, nil, fmt.Errorf("%w: %q", ErrInvalidViewportID, id)
	}

	s.mu.Lock()
	a, ok := s.attached[id]
	if !ok {
		_, exists := s.views[id]
		a = &attachment{transient: !exists}
		s.attached[id] = a
	}
	a.conns++
	snap := s.openLocked(ctx, id).Snapshot()
	s.mu.Unlock()

	var once sync.Once
	release := func() {
		once.Do(func() { s.release(id, a) })
	}
	return snap, release, nil
}

func (s *ViewportService) release(id string, a *attachment) {
	s.mu.Lock()
	if s.attached[id] != a {
		// Closed explicitly in the meantime; a later attach may own the id.
		s.mu.Unlock()
		return
	}
	a.conns--
	if a.conns > 0 {
		s.mu.Unlock()
		return
	}
	delete(s.attached, id)
	if !a.transient {
		s.mu.Unlock()
		return
	}
	c, ok := s.views[id]
	delete(s.views, id)
	s.mu.Unlock()

	if ok {
		c.Teardown()
		metrics.ActiveViewports.Dec()
		slog.Info("viewport closed", "viewport_id", id, "reason", "last connection left")
	}
}

// Close tears the viewport down and forgets it.
func (s *ViewportService) Close(id string) error {
	s.mu.Lock()
	c, ok := s.views[id]
	delete(s.views, id)
	delete(s.attached, id)
	s.mu.Unlock()

	if !ok {
		return ErrViewportNotFound
	}
	c.Teardown()
	metrics.ActiveViewports.Dec()
	slog.Info("viewport closed", "viewport_id", id)
	return nil
}

// CloseAll tears down every open viewport.
func (s *ViewportService) CloseAll() {
	s.mu.Lock()
	views := s.views
	s.views = make(map[string]*viewport.Controller)
	s.attached = make(map[string]*attachment)
	s.mu.Unlock()

	for _, c := range views {
		c.Teardown()
		metrics.ActiveViewports.Dec()
	}
}

// SetTarget moves a viewport to an already resolved location, e.g. a
// marker click.
func (s *ViewportService) SetTarget(ctx context.Context, id string, loc domain.ResolvedLocation) (viewport.Outcome, error) {
	c, err := s.get(id)
	if err != nil {
		return "", err
	}
	return s.apply(ctx, id, c, loc)
}

// Search resolves text and moves the viewport there. The resolved location
// is returned even when it is not_found so the caller can show the miss.
func (s *ViewportService) Search(ctx context.Context, id, text, lang string) (domain.ResolvedLocation, viewport.Outcome, error) {
	c, err := s.get(id)
	if err != nil {
		return domain.ResolvedLocation{}, "", err
	}
	loc, err := s.locations.Resolve(ctx, text, lang)
	if err != nil {
		return domain.ResolvedLocation{}, "", err
	}
	out, err := s.apply(ctx, id, c, loc)
	return loc, out, err
}

// HighlightCountry moves the viewport to a country requested by another
// part of the application.
func (s *ViewportService) HighlightCountry(ctx context.Context, id string, h *domain.ExternalHighlight) (domain.ResolvedLocation, viewport.Outcome, error) {
	c, err := s.get(id)
	if err != nil {
		return domain.ResolvedLocation{}, "", err
	}
	loc, err := s.locations.Country(ctx, h.Country)
	if err != nil {
		metrics.CameraCommands.WithLabelValues(string(viewport.OutcomeNotFound)).Inc()
		return loc, viewport.OutcomeNotFound, err
	}
	out, err := s.apply(ctx, id, c, loc)
	return loc, out, err
}

// AnimationComplete forwards the widget's completion notification.
func (s *ViewportService) AnimationComplete(id string, seq uint64) (bool, error) {
	c, err := s.get(id)
	if err != nil {
		return false, err
	}
	return c.AnimationComplete(seq), nil
}

// Snapshot returns the state of one viewport.
func (s *ViewportService) Snapshot(id string) (viewport.Snapshot, error) {
	c, err := s.get(id)
	if err != nil {
		return viewport.Snapshot{}, err
	}
	return c.Snapshot(), nil
}

// Count returns the number of open viewports.
func (s *ViewportService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.views)
}

func (s *ViewportService) get(id string) (*viewport.Controller, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.views[id]
	if !ok {
		return nil, ErrViewportNotFound
	}
	return c, nil
}

func (s *ViewportService) apply(ctx context.Context, id string, c *viewport.Controller, loc domain.ResolvedLocation) (viewport.Outcome, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "ViewportService.SetTarget",
		trace.WithAttributes(telemetry.AttrViewportID.String(id)))
	defer span.End()

	out, err := c.SetTarget(ctx, loc)
	span.SetAttributes(telemetry.AttrOutcome.String(string(out)))
	if err != nil && !errors.Is(err, domain.ErrLocationNotFound) {
		span.RecordError(err)
		slog.WarnContext(ctx, "camera command failed", "error", err)
		metrics.CameraCommands.WithLabelValues("error").Inc()
		return out, err
	}
	metrics.CameraCommands.WithLabelValues(string(out)).Inc()
	return out, err
}

// validViewportID accepts 1-64 ASCII letters, digits, '-' and '_'.
func validViewportID(id string) bool {
	if id == "" || len(id) > 64 {
		return false
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
		default:
			return false
		}
	}
	return true
}
