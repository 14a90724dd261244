package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vctodwn/internal/dwn/models"
	"vctodwn/internal/protocol"
	"vctodwn/pkg/platform/httputil"
)

// Handler serves the active protocol definition.
type Handler struct {
	rendered []byte
	logger   *slog.Logger
}

// New renders the definition once; it is immutable for the life of the process.
func New(definition models.ProtocolDefinition, logger *slog.Logger) (*Handler, error) {
	rendered, err := protocol.Render(definition)
	if err != nil {
		return nil, err
	}
	return &Handler{rendered: rendered, logger: logger}, nil
}

// Register mounts protocol endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/vc-protocol", h.HandleDefinition)
}

// HandleDefinition handles GET /vc-protocol.
func (h *Handler) HandleDefinition(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteIndentedJSON(w, http.StatusOK, h.rendered)
}
