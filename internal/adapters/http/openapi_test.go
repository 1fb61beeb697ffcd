package http_test

import (
	"context"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"

	handler "github.com/samirrijal/aoiexplorer/internal/adapters/http"
)

func TestOpenAPISpec(t *testing.T) {
	loader := &openapi3.Loader{IsExternalRefsAllowed: false}
	doc, err := loader.LoadFromData(handler.OpenAPISpec())
	if err != nil {
		t.Fatalf("failed to parse OpenAPI document: %v", err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		t.Fatalf("OpenAPI validation failed: %v", err)
	}

	expected := map[string][]string{
		"/v1/health":            {"GET"},
		"/v1/ready":             {"GET"},
		"/v1/state":             {"GET"},
		"/v1/endpoints":         {"GET"},
		"/v1/map":               {"GET"},
		"/v1/drawing/start":     {"POST"},
		"/v1/drawing/stop":      {"POST"},
		"/v1/aoi":               {"POST"},
		"/v1/endpoint":          {"PUT"},
		"/v1/query/clear-error": {"POST"},
		"/v1/ping":              {"POST"},
		"/v1/queries/recent":    {"GET"},
	}
	for path, methods := range expected {
		item := doc.Paths.Find(path)
		if item == nil {
			t.Errorf("path %s missing", path)
			continue
		}
		for _, m := range methods {
			if item.GetOperation(m) == nil {
				t.Errorf("%s %s missing", m, path)
			}
		}
	}

	for _, name := range []string{"Snapshot", "QueryLogEntry", "APIError"} {
		if _, ok := doc.Components.Schemas[name]; !ok {
			t.Errorf("schema %s missing", name)
		}
	}
}
