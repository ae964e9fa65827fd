package http_test

import (
	"context"
	"regexp"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/samirrijal/zonemap/api"
)

func loadOpenAPI(t *testing.T) *openapi3.T {
	t.Helper()
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(api.OpenAPI)
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	return doc
}

// TestOpenAPISpec validates the document and checks the key schemas.
func TestOpenAPISpec(t *testing.T) {
	doc := loadOpenAPI(t)

	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	for _, schema := range []string{"Error", "ResolvedLocation", "Place", "PlacePage", "Viewport", "Move", "CameraCommand"} {
		if doc.Components.Schemas[schema] == nil {
			t.Errorf("expected schema %s not found", schema)
		}
	}

	if doc.Info.Title != "Zonemap API" || doc.Info.Version != "1.0.0" {
		t.Errorf("unexpected info %q %q", doc.Info.Title, doc.Info.Version)
	}
	if len(doc.Servers) == 0 {
		t.Error("expected at least one server")
	}
}

var routeParam = regexp.MustCompile(`:([A-Za-z]+)`)

// TestOpenAPICoversRoutes fails when a public REST route is registered
// without being documented.
func TestOpenAPICoversRoutes(t *testing.T) {
	doc := loadOpenAPI(t)
	deps, _ := makeDeps(t)
	app := setupApp(deps)

	seen := map[string]bool{}
	for _, r := range app.GetRoutes(true) {
		if r.Method == "HEAD" || r.Method == "USE" || !(strings.HasPrefix(r.Path, "/v1/") || r.Path == "/graphql") {
			continue
		}
		path := routeParam.ReplaceAllString(r.Path, "{$1}")
		key := r.Method + " " + path
		if seen[key] {
			continue
		}
		seen[key] = true

		item := doc.Paths.Find(path)
		if item == nil {
			t.Errorf("route %s is not documented", key)
			continue
		}
		if item.GetOperation(r.Method) == nil {
			t.Errorf("route %s has no documented operation", key)
		}
	}
	if len(seen) < 10 {
		t.Errorf("expected the REST routes to be registered, saw %d", len(seen))
	}
}
