package errresponse

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SergeyParamoshkin/issueblog/internal/aggregate"
	"github.com/SergeyParamoshkin/issueblog/internal/source"
)

func TestFromError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"not found", fmt.Errorf("get: %w", source.ErrNotFound), http.StatusNotFound},
		{"status 404", &source.StatusError{StatusCode: http.StatusNotFound}, http.StatusNotFound},
		{"rate limited", fmt.Errorf("list: %w", source.ErrRateLimited), http.StatusServiceUnavailable},
		{"limit", aggregate.ErrLimitExceeded, http.StatusBadGateway},
		{"timeout", context.DeadlineExceeded, http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, ok := FromError(tt.err).(*ErrResponse)
			require.True(t, ok)
			assert.Equal(t, tt.status, resp.HTTPStatusCode)
			assert.ErrorIs(t, resp.Err, tt.err)
		})
	}
}

func TestRenderWritesStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/articles/9", nil)

	require.NoError(t, render.Render(rec, req, FromError(source.ErrNotFound)))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Resource not found.", body["status"])
	assert.NotContains(t, body, "error")
}

func TestUpstreamHidesMessage(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/articles", nil)

	require.NoError(t, render.Render(rec, req, ErrUpstream(errors.New("token ghp_secret rejected"))))

	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.NotContains(t, rec.Body.String(), "ghp_secret")
}

func TestRespondMasksBareErrors(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	render.Respond(rec, req, errors.New("internal detail"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"status":"error"}`, rec.Body.String())
}
