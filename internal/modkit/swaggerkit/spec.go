package swaggerkit

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ditsyandrea22/celo-identity/internal/platform/config"
)

// defaultErrors are attached to every operation that does not document them itself
var defaultErrors = map[string]map[string]any{
	"400": {"status_code": 400, "status": "Bad Request", "code": "Validation", "field": "profile_url", "error": "profile_url must be a valid url"},
	"429": {"status_code": 429, "status": "Too Many Requests", "code": "TooManyRequests", "error": "rate limit exceeded"},
	"500": {"status_code": 500, "status": "Internal Server Error", "code": "Panic", "error": "panic recovered"},
}

func serveDocJSON() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		out, err := normalize(docReader(), config.New().Prefix("CORE_API_").MayString("DOCS_TITLE_SUFFIX", ""))
		if err != nil {
			http.Error(w, "spec parse error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(out)
	}
}

// normalize pins the document to OAS 3.0.3 for the UI, points it at /api/v1
// and documents the error envelope every handler writes
func normalize(raw, titleSuffix string) ([]byte, error) {
	var spec map[string]any
	if err := json.Unmarshal([]byte(raw), &spec); err != nil {
		return nil, err
	}
	delete(spec, "swagger")
	if v, _ := spec["openapi"].(string); !strings.HasPrefix(v, "3.0") {
		spec["openapi"] = "3.0.3"
	}
	if _, ok := spec["servers"]; !ok {
		spec["servers"] = []any{map[string]any{"url": "/api/v1"}}
	}
	if info, ok := spec["info"].(map[string]any); ok && titleSuffix != "" {
		if title, ok := info["title"].(string); ok {
			info["title"] = title + " " + titleSuffix
		}
	}

	schemas := child(child(spec, "components"), "schemas")
	if _, ok := schemas["ErrorResponse"]; !ok {
		str := map[string]any{"type": "string"}
		schemas["ErrorResponse"] = map[string]any{
			"type": "object",
			"properties": map[string]any{
				"status_code": map[string]any{"type": "integer"},
				"status":      str,
				"code":        str,
				"error":       str,
				"field":       str,
				"op":          str,
				"request_id":  str,
			},
			"required": []any{"status_code", "status", "code"},
		}
	}

	paths, _ := spec["paths"].(map[string]any)
	for _, p := range paths {
		ops, _ := p.(map[string]any)
		for _, o := range ops {
			op, ok := o.(map[string]any)
			if !ok {
				continue
			}
			resps := child(op, "responses")
			for status, example := range defaultErrors {
				if _, ok := resps[status]; ok {
					continue
				}
				resps[status] = map[string]any{
					"description": example["status"],
					"content": map[string]any{"application/json": map[string]any{
						"schema":  map[string]any{"$ref": "#/components/schemas/ErrorResponse"},
						"example": example,
					}},
				}
			}
		}
	}
	return json.Marshal(spec)
}

// child returns m[key] as an object, creating it when absent
func child(m map[string]any, key string) map[string]any {
	c, ok := m[key].(map[string]any)
	if !ok {
		c = map[string]any{}
		m[key] = c
	}
	return c
}
