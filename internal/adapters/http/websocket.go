package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/pkg/metrics"
)

const pingInterval = 30 * time.Second

// wsMessage is sent by the map widget. Type is one of "search",
// "highlight", "target" or "animation_complete".
type wsMessage struct {
	Type    string   `json:"type"`
	Query   string   `json:"query,omitempty"`
	Lang    string   `json:"lang,omitempty"`
	Country string   `json:"country,omitempty"`
	Lat     *float64 `json:"lat,omitempty"`
	Lng     *float64 `json:"lng,omitempty"`
	Zoom    int      `json:"zoom,omitempty"`
	Label   string   `json:"label,omitempty"`
	Seq     uint64   `json:"seq,omitempty"`
}

// wsReply answers a client message. Camera commands are relayed as they
// are published and carry no type field.
type wsReply struct {
	Type     string                   `json:"type"` // result | error
	Outcome  string                   `json:"outcome,omitempty"`
	Location *domain.ResolvedLocation `json:"location,omitempty"`
	Applied  *bool                    `json:"applied,omitempty"`
	Code     string                   `json:"code,omitempty"`
	Message  string                   `json:"message,omitempty"`
}

// ViewportSocketHandler binds a websocket to one viewport. The viewport is
// opened on connect if needed and camera commands for it are pushed to the
// client. A viewport the sockets opened is torn down when the last of them
// closes.
func ViewportSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		id := c.Params("id")
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		logger := slog.Default().With("viewport_id", id, "remote", c.RemoteAddr().String())

		var mu sync.Mutex
		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			return writeRaw(&mu, c, data)
		}

		_, release, err := deps.Viewports.Attach(ctx, id)
		if err != nil {
			_ = writeJSON(wsReply{Type: "error", Code: "bad_request", Message: err.Error()})
			return
		}
		defer release()

		unsubscribe, err := deps.Feed.SubscribeCamera(id, func(data []byte) {
			_ = writeRaw(&mu, c, data)
		})
		if err != nil {
			logger.Error("subscribe camera feed", "error", err)
			_ = writeJSON(wsReply{Type: "error", Code: "internal_error", Message: "camera feed unavailable"})
			return
		}
		defer unsubscribe()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()
		logger.Info("ws client connected")

		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-ctx.Done():
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				_ = writeJSON(wsReply{Type: "error", Code: "bad_request", Message: "invalid JSON"})
				continue
			}
			_ = writeJSON(handleSocketMessage(ctx, deps, id, &m))
		}

		logger.Info("ws client disconnected")
	}
}

func handleSocketMessage(ctx context.Context, deps *Dependencies, id string, m *wsMessage) wsReply {
	switch m.Type {
	case "search":
		if len(m.Query) > maxQueryLen {
			return wsReply{Type: "error", Code: "bad_request", Message: "query too long (max 200 characters)"}
		}
		loc, out, err := deps.Viewports.Search(ctx, id, m.Query, m.Lang)
		if err != nil && !errors.Is(err, domain.ErrLocationNotFound) {
			return socketError(err)
		}
		return wsReply{Type: "result", Outcome: string(out), Location: &loc}

	case "highlight":
		if m.Country == "" {
			return wsReply{Type: "error", Code: "bad_request", Message: "country is required"}
		}
		loc, out, err := deps.Viewports.HighlightCountry(ctx, id, &domain.ExternalHighlight{Country: m.Country})
		if err != nil && !errors.Is(err, domain.ErrLocationNotFound) {
			return socketError(err)
		}
		return wsReply{Type: "result", Outcome: string(out), Location: &loc}

	case "target":
		if m.Lat == nil || m.Lng == nil {
			return wsReply{Type: "error", Code: "bad_request", Message: "lat and lng are required"}
		}
		loc := domain.ResolvedLocation{Lat: *m.Lat, Lng: *m.Lng, Zoom: m.Zoom, Label: m.Label, MatchKind: domain.MatchExact}
		out, err := deps.Viewports.SetTarget(ctx, id, loc)
		if err != nil {
			return socketError(err)
		}
		return wsReply{Type: "result", Outcome: string(out)}

	case "animation_complete":
		applied, err := deps.Viewports.AnimationComplete(id, m.Seq)
		if err != nil {
			return socketError(err)
		}
		return wsReply{Type: "result", Applied: &applied}

	default:
		return wsReply{Type: "error", Code: "bad_request", Message: "unknown message type: " + m.Type}
	}
}

func socketError(err error) wsReply {
	_, code := classify(err)
	return wsReply{Type: "error", Code: code, Message: err.Error()}
}

func writeRaw(mu *sync.Mutex, c *websocket.Conn, data []byte) error {
	mu.Lock()
	defer mu.Unlock()
	return c.WriteMessage(websocket.TextMessage, data)
}
