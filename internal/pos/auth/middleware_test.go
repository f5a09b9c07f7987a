package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPMiddleware(t *testing.T) {
	const secret = "test-secret"
	token, err := GenerateToken("user-1", secret)
	require.NoError(t, err)

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	handler := HTTPMiddleware(next, secret)

	tests := []struct {
		name     string
		path     string
		header   string
		wantCode int
		wantUser string
	}{
		{name: "valid token", path: "/v1/sales", header: "Bearer " + token, wantCode: http.StatusNoContent, wantUser: "user-1"},
		{name: "missing header", path: "/v1/sales", wantCode: http.StatusUnauthorized},
		{name: "wrong scheme", path: "/v1/sales", header: "Basic " + token, wantCode: http.StatusUnauthorized},
		{name: "bad token", path: "/v1/sales", header: "Bearer nope", wantCode: http.StatusUnauthorized},
		{name: "unprotected path", path: "/healthz", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantUser, seen)
		})
	}
}
