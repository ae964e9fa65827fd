package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// Subjects. Camera commands use core NATS: they are only useful to a widget
// that is connected right now. Highlights and gazetteer events go through
// JetStream so a short broker restart does not lose them.
const (
	cameraSubjectPrefix    = "zonemap.camera."
	highlightSubjectPrefix = "zonemap.highlight."
	gazetteerUpdatedSubj   = "zonemap.gazetteer.updated"
)

// Publisher implements ports.EventPublisher and ports.CameraSink.
type Publisher struct {
	conn *nats.Conn
	js   nats.JetStreamContext
}

// NewPublisher connects to NATS and makes sure the streams exist.
func NewPublisher(url string) (*Publisher, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	streams := []nats.StreamConfig{
		{
			Name:      "ZONEMAP_HIGHLIGHTS",
			Subjects:  []string{highlightSubjectPrefix + ">"},
			Retention: nats.LimitsPolicy,
			MaxAge:    5 * time.Minute,
			Storage:   nats.FileStorage,
		},
		{
			Name:      "ZONEMAP_GAZETTEER",
			Subjects:  []string{"zonemap.gazetteer.>"},
			Retention: nats.LimitsPolicy,
			MaxAge:    7 * 24 * time.Hour,
			Storage:   nats.FileStorage,
		},
	}

	for _, cfg := range streams {
		if _, err := js.AddStream(&cfg); err != nil {
			// Stream may already exist, try update
			if _, err := js.UpdateStream(&cfg); err != nil {
				conn.Close()
				return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
			}
		}
	}

	return &Publisher{conn: conn, js: js}, nil
}

// PublishCamera sends a camera command to the widget of cmd.ViewportID.
func (p *Publisher) PublishCamera(ctx context.Context, cmd domain.CameraCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return p.conn.Publish(cameraSubjectPrefix+cmd.ViewportID, data)
}

// PublishHighlight asks whichever instance owns viewportID to show a country.
func (p *Publisher) PublishHighlight(ctx context.Context, viewportID string, h *domain.ExternalHighlight) error {
	data, err := json.Marshal(h)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(highlightSubjectPrefix+viewportID, data, nats.Context(ctx))
	return err
}

// PublishGazetteerUpdated announces a newly activated gazetteer version.
func (p *Publisher) PublishGazetteerUpdated(ctx context.Context, evt *domain.GazetteerUpdated) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	_, err = p.js.Publish(gazetteerUpdatedSubj, data, nats.Context(ctx))
	return err
}

// Conn exposes the connection for camera feeds.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	_ = p.conn.Drain()
}

func connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("zonemap"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
