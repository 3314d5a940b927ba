package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(GetUserFromContext(r.Context())))
	})
}

func TestAPIKeyAuth(t *testing.T) {
	h := APIKeyAuth(map[string]string{"user-1": "key-one", "user-2": "key-two"})(echoUser())

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"bearer key", "/v1/rules", "Bearer key-two", http.StatusOK, "user-2"},
		{"raw key", "/v1/rules", "key-one", http.StatusOK, "user-1"},
		{"missing header", "/v1/rules", "", http.StatusUnauthorized, ""},
		{"empty bearer", "/v1/rules", "Bearer ", http.StatusUnauthorized, ""},
		{"unknown key", "/v1/rules", "Bearer nope", http.StatusUnauthorized, ""},
		{"public path", "/healthz", "", http.StatusOK, ""},
		{"metrics public", "/metrics", "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			if tt.status == http.StatusOK {
				assert.Equal(t, tt.body, rec.Body.String())
			} else {
				assert.Contains(t, rec.Body.String(), `"error"`)
			}
		})
	}
}

func TestAPIKeyAuthRejectsMalformedUserID(t *testing.T) {
	h := APIKeyAuth(map[string]string{"bad user!": "key"})(echoUser())
	req := httptest.NewRequest(http.MethodGet, "/v1/rules", nil)
	req.Header.Set("Authorization", "key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
