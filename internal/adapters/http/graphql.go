package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/zonemap/internal/core/domain"
	"github.com/samirrijal/zonemap/internal/core/viewport"
)

// buildSchema creates the GraphQL schema wired to our services.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	locationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Location",
		Fields: graphql.Fields{
			"lat":        &graphql.Field{Type: graphql.Float},
			"lng":        &graphql.Field{Type: graphql.Float},
			"zoom":       &graphql.Field{Type: graphql.Int},
			"label":      &graphql.Field{Type: graphql.String},
			"match_kind": &graphql.Field{Type: graphql.String},
			"kind":       &graphql.Field{Type: graphql.String},
			"code":       &graphql.Field{Type: graphql.String},
			"distance":   &graphql.Field{Type: graphql.Int},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"name": &graphql.Field{
				Type: graphql.String,
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(domain.GazetteerEntry).Names.Primary, nil
				},
			},
			"aliases": &graphql.Field{
				Type: graphql.NewList(graphql.String),
				Resolve: func(p graphql.ResolveParams) (any, error) {
					return p.Source.(domain.GazetteerEntry).Names.Aliases, nil
				},
			},
			"kind":         &graphql.Field{Type: graphql.String},
			"lat":          &graphql.Field{Type: graphql.Float},
			"lng":          &graphql.Field{Type: graphql.Float},
			"default_zoom": &graphql.Field{Type: graphql.Int},
			"code":         &graphql.Field{Type: graphql.String},
		},
	})

	snapshotField := func(typ graphql.Output, get func(viewport.Snapshot) any) *graphql.Field {
		return &graphql.Field{
			Type: typ,
			Resolve: func(p graphql.ResolveParams) (any, error) {
				return get(p.Source.(viewport.Snapshot)), nil
			},
		}
	}
	viewportType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Viewport",
		Fields: graphql.Fields{
			"id":    snapshotField(graphql.String, func(s viewport.Snapshot) any { return s.ViewportID }),
			"phase": snapshotField(graphql.String, func(s viewport.Snapshot) any { return string(s.Phase) }),
			"seq":   snapshotField(graphql.Int, func(s viewport.Snapshot) any { return int(s.Seq) }),
			"label": snapshotField(graphql.String, func(s viewport.Snapshot) any { return s.Label }),
			"lat": snapshotField(graphql.Float, func(s viewport.Snapshot) any {
				if s.State == nil {
					return nil
				}
				return s.State.Lat
			}),
			"lng": snapshotField(graphql.Float, func(s viewport.Snapshot) any {
				if s.State == nil {
					return nil
				}
				return s.State.Lng
			}),
			"zoom": snapshotField(graphql.Int, func(s viewport.Snapshot) any {
				if s.State == nil {
					return nil
				}
				return s.State.Zoom
			}),
		},
	})

	moveType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Move",
		Fields: graphql.Fields{
			"outcome":  &graphql.Field{Type: graphql.String},
			"location": &graphql.Field{Type: locationType},
			"viewport": &graphql.Field{Type: viewportType},
		},
	})

	pageArgs := graphql.FieldConfigArgument{
		"offset": &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 0},
		"limit":  &graphql.ArgumentConfig{Type: graphql.Int, DefaultValue: 50},
	}
	listPlaces := func(kind domain.PlaceKind) graphql.FieldResolveFn {
		return func(p graphql.ResolveParams) (any, error) {
			offset, _ := p.Args["offset"].(int)
			limit, _ := p.Args["limit"].(int)
			entries, _ := deps.Locations.List(kind, max(offset, 0), limit)
			return entries, nil
		}
	}

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"resolve": &graphql.Field{
				Type:        locationType,
				Description: "Resolve free text to a map target; misses have match_kind not_found",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lang":  &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					query, _ := p.Args["query"].(string)
					lang, _ := p.Args["lang"].(string)
					if len(query) > maxQueryLen {
						return nil, errors.New("query too long (max 200 characters)")
					}
					return deps.Locations.Resolve(p.Context, query, lang)
				},
			},
			"countries": &graphql.Field{
				Type:    graphql.NewList(placeType),
				Args:    pageArgs,
				Resolve: listPlaces(domain.KindCountry),
			},
			"cities": &graphql.Field{
				Type:    graphql.NewList(placeType),
				Args:    pageArgs,
				Resolve: listPlaces(domain.KindCity),
			},
			"viewport": &graphql.Field{
				Type: viewportType,
				Args: graphql.FieldConfigArgument{
					"id": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["id"].(string)
					return deps.Viewports.Snapshot(id)
				},
			},
		},
	})

	move := func(id string, loc domain.ResolvedLocation, out viewport.Outcome, err error) (any, error) {
		if err != nil && !errors.Is(err, domain.ErrLocationNotFound) {
			return nil, err
		}
		snap, serr := deps.Viewports.Snapshot(id)
		if serr != nil {
			return nil, serr
		}
		return map[string]any{"outcome": string(out), "location": loc, "viewport": snap}, nil
	}

	mutationType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Mutation",
		Fields: graphql.Fields{
			"search": &graphql.Field{
				Type: moveType,
				Args: graphql.FieldConfigArgument{
					"viewport": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"query":    &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"lang":     &graphql.ArgumentConfig{Type: graphql.String},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["viewport"].(string)
					query, _ := p.Args["query"].(string)
					lang, _ := p.Args["lang"].(string)
					loc, out, err := deps.Viewports.Search(p.Context, id, query, lang)
					return move(id, loc, out, err)
				},
			},
			"highlight": &graphql.Field{
				Type: moveType,
				Args: graphql.FieldConfigArgument{
					"viewport": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"country":  &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (any, error) {
					id, _ := p.Args["viewport"].(string)
					country, _ := p.Args["country"].(string)
					loc, out, err := deps.Viewports.HighlightCountry(p.Context, id, &domain.ExternalHighlight{Country: country})
					return move(id, loc, out, err)
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query:    queryType,
		Mutation: mutationType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string         `json:"query"`
		OperationName string         `json:"operationName"`
		Variables     map[string]any `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
