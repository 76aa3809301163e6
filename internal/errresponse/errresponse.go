package errresponse

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/SergeyParamoshkin/issueblog/internal/aggregate"
	"github.com/SergeyParamoshkin/issueblog/internal/logctx"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

//--
// Error response payloads & renderers
//--

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	AppCode    int64  `json:"code,omitempty"`  // application-specific error code
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)

	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnprocessableEntity,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

// ErrUpstream reports a failure of the issue tracker. The upstream message
// is not echoed back.
func ErrUpstream(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadGateway,
		StatusText:     "Upstream request failed.",
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

// FromError maps a service error onto its response.
func FromError(err error) render.Renderer {
	switch {
	case errors.Is(err, source.ErrNotFound):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusNotFound, StatusText: ErrNotFound.StatusText}
	case errors.Is(err, source.ErrRateLimited):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusServiceUnavailable, StatusText: "Upstream rate limit reached."}
	case errors.Is(err, aggregate.ErrLimitExceeded):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusBadGateway, StatusText: "Upstream listing too large."}
	case errors.Is(err, context.DeadlineExceeded):
		return &ErrResponse{Err: err, HTTPStatusCode: http.StatusGatewayTimeout, StatusText: "Upstream request timed out."}
	default:
		return ErrUpstream(err)
	}
}

// Respond logs error payloads through the request logger before writing
// them. Bare errors are never written out as-is.
func Respond(w http.ResponseWriter, r *http.Request, v interface{}) {
	switch e := v.(type) {
	case *ErrResponse:
		if e.Err != nil {
			logctx.From(r.Context()).Warnw("request failed",
				"path", r.URL.Path,
				"status", e.HTTPStatusCode,
				"error", e.Err,
			)
		}
	case error:
		// We set a default error status response code if one hasn't been set.
		if _, ok := r.Context().Value(render.StatusCtxKey).(int); !ok {
			w.WriteHeader(http.StatusBadRequest)
		}
		logctx.From(r.Context()).Errorw("responding with error", "path", r.URL.Path, "error", e)
		render.DefaultResponder(w, r, render.M{"status": "error"})

		return
	}

	render.DefaultResponder(w, r, v)
}

func init() {
	render.Respond = Respond
}
