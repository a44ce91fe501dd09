package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func authProbe(apiKey string, decorate func(*http.Request)) *httptest.ResponseRecorder {
	handler := Auth(apiKey)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	if decorate != nil {
		decorate(r)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, r)
	return w
}

func TestAuth_DisabledWhenNoKey(t *testing.T) {
	w := authProbe("", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuth_BearerToken(t *testing.T) {
	w := authProbe("sekrit", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer sekrit")
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuth_APIKeyHeader(t *testing.T) {
	w := authProbe("sekrit", func(r *http.Request) {
		r.Header.Set("X-API-Key", "sekrit")
	})
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestAuth_MissingToken(t *testing.T) {
	w := authProbe("sekrit", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "missing")
}

func TestAuth_WrongToken(t *testing.T) {
	w := authProbe("sekrit", func(r *http.Request) {
		r.Header.Set("Authorization", "Bearer wrong")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "invalid")
}

func TestAuth_MalformedAuthorizationScheme(t *testing.T) {
	w := authProbe("sekrit", func(r *http.Request) {
		r.Header.Set("Authorization", "Basic sekrit")
	})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
