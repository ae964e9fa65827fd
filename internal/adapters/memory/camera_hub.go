// Package memory provides in-process adapters used when no message broker
// is configured, e.g. a single API instance in development.
package memory

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// DefaultQueueSize is the number of commands buffered per subscriber.
const DefaultQueueSize = 16

// CameraHub implements ports.CameraSink and ports.CameraFeed for the
// subscribers of the same process. Every subscriber has its own queue
// drained by its own goroutine, so a slow handler never blocks the
// publisher. When a queue is full the oldest command is dropped: only the
// latest camera target matters.
type CameraHub struct {
	queueSize int

	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]*subscriber
}

type subscriber struct {
	queue chan []byte
	done  chan struct{}
}

// NewCameraHub creates an empty hub with DefaultQueueSize.
func NewCameraHub() *CameraHub {
	return NewCameraHubSize(DefaultQueueSize)
}

// NewCameraHubSize creates an empty hub buffering size commands per
// subscriber.
func NewCameraHubSize(size int) *CameraHub {
	if size < 1 {
		size = 1
	}
	return &CameraHub{queueSize: size, subs: make(map[string]map[int]*subscriber)}
}

// PublishCamera queues cmd for every subscriber of its viewport. Commands
// for viewports without a connected widget are dropped.
func (h *CameraHub) PublishCamera(ctx context.Context, cmd domain.CameraCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, s := range h.subs[cmd.ViewportID] {
		s.offer(data)
	}
	return nil
}

func (s *subscriber) offer(data []byte) {
	for {
		select {
		case s.queue <- data:
			return
		default:
		}
		select {
		case <-s.queue:
		default:
		}
	}
}

func (s *subscriber) run(handler func([]byte)) {
	for {
		select {
		case <-s.done:
			return
		case data := <-s.queue:
			handler(data)
		}
	}
}

// SubscribeCamera registers handler for viewportID. Commands reach the
// handler in publish order on a dedicated goroutine.
func (h *CameraHub) SubscribeCamera(viewportID string, handler func([]byte)) (func(), error) {
	s := &subscriber{
		queue: make(chan []byte, h.queueSize),
		done:  make(chan struct{}),
	}

	h.mu.Lock()
	id := h.nextID
	h.nextID++
	if h.subs[viewportID] == nil {
		h.subs[viewportID] = make(map[int]*subscriber)
	}
	h.subs[viewportID][id] = s
	h.mu.Unlock()

	go s.run(handler)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs[viewportID], id)
			if len(h.subs[viewportID]) == 0 {
				delete(h.subs, viewportID)
			}
			h.mu.Unlock()
			close(s.done)
		})
	}, nil
}

// Subscribers returns the number of handlers registered for viewportID.
func (h *CameraHub) Subscribers(viewportID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[viewportID])
}
