package handler

import (
	"log/slog"
	"net/http"
	"sync"

	"sigs.k8s.io/yaml"

	"github.com/rentdesk/rentdesk/internal/api/middleware"
	"github.com/rentdesk/rentdesk/internal/api/response"
)

// OpenAPIHandler serves the API description as JSON or as the original YAML.
type OpenAPIHandler struct {
	rawYAML []byte

	once     sync.Once
	jsonSpec []byte
	jsonErr  error
}

// NewOpenAPIHandler creates a handler for the given YAML document. The JSON
// form is produced on first request.
func NewOpenAPIHandler(yamlSpec []byte) *OpenAPIHandler {
	return &OpenAPIHandler{rawYAML: yamlSpec}
}

// ServeJSON handles GET /openapi.json.
func (h *OpenAPIHandler) ServeJSON(w http.ResponseWriter, r *http.Request) {
	h.once.Do(func() {
		h.jsonSpec, h.jsonErr = yaml.YAMLToJSON(h.rawYAML)
	})

	if h.jsonErr != nil {
		slog.Error("failed to convert OpenAPI spec to JSON", "error", h.jsonErr)
		response.Err(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to convert OpenAPI spec", middleware.GetRequestID(r.Context()))
		return
	}

	h.write(w, "application/json", h.jsonSpec)
}

// ServeYAML handles GET /openapi.yaml.
func (h *OpenAPIHandler) ServeYAML(w http.ResponseWriter, r *http.Request) {
	h.write(w, "application/yaml", h.rawYAML)
}

func (h *OpenAPIHandler) write(w http.ResponseWriter, contentType string, body []byte) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		slog.Error("failed to write OpenAPI spec response", "error", err)
	}
}
