package http

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/zonemap/internal/core/ports"
	"github.com/samirrijal/zonemap/internal/core/usecases"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Dependencies holds all services needed by HTTP handlers.
type Dependencies struct {
	Locations *usecases.LocationService
	Viewports *usecases.ViewportService
	Feed      ports.CameraFeed

	// Optional, reported by /v1/ready.
	NATS  *nats.Conn
	DB    Pinger
	Cache Pinger
}
