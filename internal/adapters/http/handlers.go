package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/viewport"
)

const maxQueryLen = 200

// ResolveHandler resolves free text to a map target. A miss is still a 200
// with match_kind "not_found" so the client can show an inline message.
func ResolveHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		query := c.Query("q")
		if len(query) > maxQueryLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		loc, err := deps.Locations.Resolve(c.UserContext(), query, c.Query("lang"))
		if err != nil {
			return errFromDomain(c, err)
		}

		return c.JSON(loc)
	}
}

// ListPlacesHandler pages through the gazetteer entries of one kind.
func ListPlacesHandler(deps *Dependencies, kind domain.PlaceKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		offset := c.QueryInt("offset", 0)
		limit := c.QueryInt("limit", 50)
		if offset < 0 {
			offset = 0
		}
		if limit <= 0 || limit > 100 {
			limit = 50
		}

		entries, total := deps.Locations.List(kind, offset, limit)

		pg := Pagination{Offset: offset, Limit: limit, Total: total}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: entries, Pagination: pg})
	}
}

type openViewportRequest struct {
	ID string `json:"id"`
}

// OpenViewportHandler starts a viewport session.
func OpenViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req openViewportRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return errBadRequest(c, "invalid JSON body")
			}
		}

		snap, err := deps.Viewports.Open(c.UserContext(), req.ID)
		if err != nil {
			return errFromDomain(c, err)
		}

		c.Location("/v1/viewports/" + snap.ViewportID)
		return c.Status(fiber.StatusCreated).JSON(snap)
	}
}

// GetViewportHandler returns the state of a viewport.
func GetViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		snap, err := deps.Viewports.Snapshot(c.Params("id"))
		if err != nil {
			return errFromDomain(c, err)
		}
		c.Set("Cache-Control", "no-store")
		return c.JSON(snap)
	}
}

// CloseViewportHandler tears a viewport down.
func CloseViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := deps.Viewports.Close(c.Params("id")); err != nil {
			return errFromDomain(c, err)
		}
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// MoveResponse reports what a viewport did with a target.
type MoveResponse struct {
	Outcome  viewport.Outcome         `json:"outcome"`
	Location *domain.ResolvedLocation `json:"location,omitempty"`
	Viewport viewport.Snapshot        `json:"viewport"`
}

type searchRequest struct {
	Query string `json:"query"`
	Lang  string `json:"lang"`
}

// SearchViewportHandler resolves text and moves the viewport there.
func SearchViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req searchRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if len(req.Query) > maxQueryLen {
			return errBadRequest(c, "query too long (max 200 characters)")
		}

		id := c.Params("id")
		loc, out, err := deps.Viewports.Search(c.UserContext(), id, req.Query, req.Lang)
		return moveResponse(c, deps, id, &loc, out, err)
	}
}

// HighlightViewportHandler shows a country by name, alias or ISO code.
func HighlightViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var h domain.ExternalHighlight
		if err := c.BodyParser(&h); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if h.Country == "" {
			return errBadRequest(c, "country is required")
		}

		id := c.Params("id")
		loc, out, err := deps.Viewports.HighlightCountry(c.UserContext(), id, &h)
		return moveResponse(c, deps, id, &loc, out, err)
	}
}

type targetRequest struct {
	Lat   *float64 `json:"lat"`
	Lng   *float64 `json:"lng"`
	Zoom  int      `json:"zoom"`
	Label string   `json:"label"`
}

// TargetViewportHandler moves the viewport to explicit coordinates, e.g. a
// marker click.
func TargetViewportHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req targetRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}
		if req.Lat == nil || req.Lng == nil {
			return errBadRequest(c, "lat and lng are required")
		}

		loc := domain.ResolvedLocation{
			Lat:       *req.Lat,
			Lng:       *req.Lng,
			Zoom:      req.Zoom,
			Label:     req.Label,
			MatchKind: domain.MatchExact,
		}
		id := c.Params("id")
		out, err := deps.Viewports.SetTarget(c.UserContext(), id, loc)
		return moveResponse(c, deps, id, nil, out, err)
	}
}

type animationCompleteRequest struct {
	Seq uint64 `json:"seq"`
}

// AnimationCompleteHandler receives the widget's completion callback.
func AnimationCompleteHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req animationCompleteRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid JSON body")
		}

		id := c.Params("id")
		applied, err := deps.Viewports.AnimationComplete(id, req.Seq)
		if err != nil {
			return errFromDomain(c, err)
		}
		snap, err := deps.Viewports.Snapshot(id)
		if err != nil {
			return errFromDomain(c, err)
		}
		return c.JSON(fiber.Map{"applied": applied, "viewport": snap})
	}
}

func moveResponse(c *fiber.Ctx, deps *Dependencies, id string, loc *domain.ResolvedLocation, out viewport.Outcome, err error) error {
	if err != nil {
		// A miss is a 404 location_not_found; the view stays where it was.
		return errFromDomain(c, err)
	}

	snap, serr := deps.Viewports.Snapshot(id)
	if serr != nil {
		return errFromDomain(c, serr)
	}
	return c.JSON(MoveResponse{Outcome: out, Location: loc, Viewport: snap})
}
