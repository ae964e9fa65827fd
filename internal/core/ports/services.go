package ports

import (
	"context"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// CameraSink delivers camera commands to the map widget of a viewport.
type CameraSink interface {
	PublishCamera(ctx context.Context, cmd domain.CameraCommand) error
}

// CameraFeed lets a map widget connection receive the commands addressed to
// its viewport. The returned func cancels the subscription.
type CameraFeed interface {
	SubscribeCamera(viewportID string, handler func(data []byte)) (func(), error)
}

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishGazetteerUpdated(ctx context.Context, evt *domain.GazetteerUpdated) error
	PublishHighlight(ctx context.Context, viewportID string, h *domain.ExternalHighlight) error
}

// EventSubscriber subscribes to domain events from a message broker.
type EventSubscriber interface {
	SubscribeHighlights(ctx context.Context, handler func(ctx context.Context, viewportID string, h *domain.ExternalHighlight) error) error
	SubscribeGazetteerUpdates(ctx context.Context, handler func(ctx context.Context, evt *domain.GazetteerUpdated) error) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
