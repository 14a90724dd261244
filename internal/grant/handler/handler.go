package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"vctodwn/internal/grant"
	"vctodwn/internal/platform/middleware"
	"vctodwn/pkg/platform/httputil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

// Service grants issuers the right to write credentials to the customer's DWN.
type Service interface {
	Authorize(ctx context.Context, requester string) (*grant.Result, error)
}

// Handler serves the issuer authorization endpoint.
type Handler struct {
	grants Service
	logger *slog.Logger
}

func New(grants Service, logger *slog.Logger) *Handler {
	return &Handler{grants: grants, logger: logger}
}

// Register mounts grant endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/authorize", h.HandleAuthorize)
}

// HandleAuthorize implements GET /authorize?issuerDid=<did>.
//
// Output: { "message": "...", "status": {...}, "customer": {...} }
func (h *Handler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.BindAndPrepare[AuthorizeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.grants.Authorize(ctx, req.IssuerDID)
	if err != nil {
		h.logger.ErrorContext(ctx, "authorize issuer failed",
			"error", err,
			"issuer", req.IssuerDID,
			"request_id", requestID,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toResponse(result))
}
