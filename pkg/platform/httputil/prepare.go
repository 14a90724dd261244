package httputil

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	dErrors "vctodwn/pkg/domain-errors"
)

// QueryBindable is implemented by request types populated from the URL query.
type QueryBindable interface {
	BindQuery(values url.Values)
}

// Validatable is implemented by request types that support validation.
type Validatable interface {
	Validate() error
}

// Normalizable is implemented by request types that support normalization.
type Normalizable interface {
	Normalize()
}

// PrepareRequest normalizes and validates a request.
func PrepareRequest(req any) error {
	if n, ok := req.(Normalizable); ok {
		n.Normalize()
	}
	if v, ok := req.(Validatable); ok {
		return v.Validate()
	}
	return nil
}

// BindAndPrepare fills T from the query string, then calls Normalize() and Validate()
// if T implements them. On failure it writes the error response and returns nil, false.
//
// Usage:
//
//	req, ok := httputil.BindAndPrepare[AuthorizeRequest](w, r, h.logger, ctx, requestID)
//	if !ok {
//	    return
//	}
func BindAndPrepare[T any, PT interface {
	*T
	QueryBindable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := PT(new(T))
	req.BindQuery(r.URL.Query())

	if err := PrepareRequest(req); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"error", err,
			"request_id", requestID,
		)
		// Preserve original error code if it's already a domain error
		var domainErr *dErrors.Error
		if errors.As(err, &domainErr) {
			WriteError(w, err)
		} else {
			WriteError(w, dErrors.New(dErrors.CodeValidation, err.Error()))
		}
		return nil, false
	}

	return (*T)(req), true
}
