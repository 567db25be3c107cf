package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"dress-rental/internal/handlers"
	"dress-rental/internal/middleware"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
)

func testRouter() *mux.Router {
	return NewRouter(Handlers{
		Auth:      &handlers.AuthHandler{},
		Users:     &handlers.UserHandler{},
		Customers: &handlers.CustomerHandler{},
		Dresses:   &handlers.DressHandler{},
		Rentals:   &handlers.RentalHandler{},
		Payments:  &handlers.PaymentHandler{},
		Reports:   &handlers.ReportHandler{},
		Settings:  &handlers.SystemSettingHandler{},
		Activity:  &handlers.ActivityLogHandler{},
		Health:    &handlers.HealthHandler{},
	}, middleware.NewAuthMiddleware(nil, nil))
}

func TestLateFeeRoutes(t *testing.T) {
	r := testRouter()

	testCases := []struct {
		method  string
		matched bool
	}{
		{"GET", true},
		{"POST", true},
		{"PUT", false},
		{"DELETE", false},
	}
	for _, tt := range testCases {
		var match mux.RouteMatch
		ok := r.Match(httptest.NewRequest(tt.method, "/api/rentals/4/late-fee", nil), &match)
		if !tt.matched {
			assert.ErrorIs(t, match.MatchErr, mux.ErrMethodMismatch, tt.method)
			continue
		}
		assert.True(t, ok, tt.method)
		methods, err := match.Route.GetMethods()
		assert.NoError(t, err)
		assert.Equal(t, []string{tt.method}, methods)
	}
}

func TestAPIRequiresSession(t *testing.T) {
	r := testRouter()
	for _, path := range []string{"/api/rentals/4/late-fee", "/api/customers", "/auth/me"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}
