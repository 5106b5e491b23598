package handler

import (
	"net/http"

	"github.com/palacemc/palace-web/internal/api/response"
	"github.com/palacemc/palace-web/internal/storage"
)

// MetaHandler answers version and health checks
type MetaHandler struct {
	version string
	storage storage.Storage
}

// NewMetaHandler creates a new meta handler
func NewMetaHandler(version string, storage storage.Storage) *MetaHandler {
	return &MetaHandler{
		version: version,
		storage: storage,
	}
}

// Version handles GET|POST /api
func (h *MetaHandler) Version(w http.ResponseWriter, _ *http.Request) {
	response.OKJSON(w, response.Version{Version: h.version})
}

// Health handles GET /health
func (h *MetaHandler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.storage.Ping(r.Context()); err != nil {
		response.JSON(w, http.StatusServiceUnavailable, response.Health{Status: "unavailable"})
		return
	}
	response.OKJSON(w, response.Health{Status: "ok"})
}
