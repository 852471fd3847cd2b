package server

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vault-rag/internal/apperr"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{"validation", apperr.Validation("bad input"), http.StatusBadRequest},
		{"not found", apperr.NotFound("missing"), http.StatusNotFound},
		{"upstream", apperr.Upstream("embedding", errors.New("conn refused")), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, tc.err)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), "detail")
		})
	}
}

func TestWriteErrorUnwrapsWrappedTaxonomy(t *testing.T) {
	wrapped := errors.Join(errors.New("context"), apperr.NotFound("gone"))
	rec := httptest.NewRecorder()
	writeError(rec, wrapped)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUserIDHeader(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/vault/files", nil)
	r.Header.Set("X-User-ID", "42")
	id, err := userID(r)
	require.NoError(t, err)
	assert.Equal(t, int64(42), id)

	for _, bad := range []string{"", "0", "-5", "abc"} {
		r := httptest.NewRequest(http.MethodGet, "/vault/files", nil)
		r.Header.Set("X-User-ID", bad)
		_, err := userID(r)
		var verr *apperr.ValidationError
		require.ErrorAs(t, err, &verr, "header %q", bad)
	}
}

func TestHealthNeedsNoUser(t *testing.T) {
	srv := New(nil, nil, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "ok")
}
