package natsadapter

import (
	"fmt"

	"github.com/nats-io/nats.go"
)

// CameraFeed implements ports.CameraFeed over core NATS subscriptions, so a
// widget can be connected to any instance behind the load balancer.
type CameraFeed struct {
	conn *nats.Conn
}

// NewCameraFeed wraps an existing connection.
func NewCameraFeed(conn *nats.Conn) *CameraFeed {
	return &CameraFeed{conn: conn}
}

// SubscribeCamera delivers the commands addressed to viewportID.
func (f *CameraFeed) SubscribeCamera(viewportID string, handler func(data []byte)) (func(), error) {
	sub, err := f.conn.Subscribe(cameraSubjectPrefix+viewportID, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe camera %s: %w", viewportID, err)
	}
	return func() { _ = sub.Unsubscribe() }, nil
}
