package routes

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGatewayCallbackBypassesAuth(t *testing.T) {
	router := RegisterRoutes()

	// No bearer token; the callback authenticates with the HMAC signature.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/gateway/callback", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code == http.StatusUnauthorized {
		t.Fatal("gateway callback rejected for missing bearer token")
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("malformed callback body returned %d, expected %d", rec.Code, http.StatusBadRequest)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	router := RegisterRoutes()

	endpoints := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/v1/inventory/low-stock"},
		{http.MethodGet, "/api/v1/inventory/transactions"},
		{http.MethodPost, "/api/v1/payments"},
		{http.MethodPost, "/api/v1/jobs"},
	}

	for _, ep := range endpoints {
		req := httptest.NewRequest(ep.method, ep.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s without token returned %d, expected %d",
				ep.method, ep.path, rec.Code, http.StatusUnauthorized)
		}
	}
}
