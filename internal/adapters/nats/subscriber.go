package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/zonemap/internal/core/domain"
)

// Subscriber implements ports.EventSubscriber using NATS JetStream.
//
// Viewports live in the memory of one API instance, so every instance gets
// its own ephemeral consumer and handles only the messages for views it owns.
type Subscriber struct {
	conn *nats.Conn
	js   nats.JetStreamContext
	subs []*nats.Subscription
}

// NewSubscriber creates a subscriber with its own connection.
func NewSubscriber(url string) (*Subscriber, error) {
	conn, err := connect(url)
	if err != nil {
		return nil, err
	}
	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	return &Subscriber{conn: conn, js: js}, nil
}

func (s *Subscriber) SubscribeHighlights(ctx context.Context, handler func(ctx context.Context, viewportID string, h *domain.ExternalHighlight) error) error {
	sub, err := s.js.Subscribe(highlightSubjectPrefix+">", func(msg *nats.Msg) {
		viewportID := strings.TrimPrefix(msg.Subject, highlightSubjectPrefix)
		var h domain.ExternalHighlight
		if err := json.Unmarshal(msg.Data, &h); err != nil {
			slog.Warn("dropping malformed highlight", "subject", msg.Subject, "error", err)
			_ = msg.Term()
			return
		}
		if err := handler(ctx, viewportID, &h); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

func (s *Subscriber) SubscribeGazetteerUpdates(ctx context.Context, handler func(ctx context.Context, evt *domain.GazetteerUpdated) error) error {
	sub, err := s.js.Subscribe(gazetteerUpdatedSubj, func(msg *nats.Msg) {
		var evt domain.GazetteerUpdated
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			_ = msg.Term()
			return
		}
		if err := handler(ctx, &evt); err != nil {
			_ = msg.Nak()
			return
		}
		_ = msg.Ack()
	},
		nats.DeliverNew(),
		nats.ManualAck(),
		nats.MaxDeliver(3),
	)
	if err != nil {
		return err
	}
	s.subs = append(s.subs, sub)
	return nil
}

// Close unsubscribes and drains.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
	_ = s.conn.Drain()
}
