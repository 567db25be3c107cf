package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dress-rental/internal/health"
	"dress-rental/internal/models"
	"dress-rental/internal/repositories"
	"dress-rental/internal/services"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type settingsStub struct {
	values map[string]string
}

func (s *settingsStub) Get(_ context.Context, key string) (*models.SystemSetting, error) {
	v, ok := s.values[key]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &models.SystemSetting{SettingKey: key, SettingValue: v}, nil
}

func (s *settingsStub) List(context.Context) ([]*models.SystemSetting, error) {
	var out []*models.SystemSetting
	for k, v := range s.values {
		out = append(out, &models.SystemSetting{SettingKey: k, SettingValue: v})
	}
	return out, nil
}

func (s *settingsStub) Values(context.Context) (map[string]string, error) { return s.values, nil }

func (s *settingsStub) Upsert(_ context.Context, key, value, _ string, _ int) error {
	s.values[key] = value
	return nil
}

func settingsRouter() (*mux.Router, *settingsStub) {
	stub := &settingsStub{values: map[string]string{models.SettingMaxRentalDays: "14"}}
	h := NewSystemSettingHandler(services.NewSystemSettingService(stub, models.DefaultRentalRules(), nil))
	r := mux.NewRouter()
	r.HandleFunc("/api/settings/rules", h.Rules).Methods("GET")
	r.HandleFunc("/api/settings/{key}", h.GetSetting).Methods("GET")
	r.HandleFunc("/api/settings/{key}", h.UpdateSetting).Methods("PUT")
	return r, stub
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestSettingHandlers(t *testing.T) {
	r, stub := settingsRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/settings/max_rental_days", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "14", decodeBody(t, rec)["setting_value"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/settings/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "SETTING_NOT_FOUND", decodeBody(t, rec)["code"])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/settings/max_rental_days", strings.NewReader(`{"setting_value":"7"}`)))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "7", stub.values[models.SettingMaxRentalDays])

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/settings/rules", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	var rules models.RentalRules
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rules))
	assert.Equal(t, 7, rules.MaxDurationDays)
}

func TestSettingHandlerRejectsBadValue(t *testing.T) {
	r, stub := settingsRouter()

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/settings/max_rental_days", strings.NewReader(`{"setting_value":"-1"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "14", stub.values[models.SettingMaxRentalDays])

	// unknown fields are refused before the service runs
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest("PUT", "/api/settings/max_rental_days", strings.NewReader(`{"value":"9"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "INVALID_INPUT", decodeBody(t, rec)["code"])
}

func TestInvalidPathIDNeverReachesService(t *testing.T) {
	// a nil service would panic if it were called
	h := NewCustomerHandler(nil)
	r := mux.NewRouter()
	r.HandleFunc("/api/customers/{id}", h.GetCustomer)

	for _, id := range []string{"abc", "0", "-4"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest("GET", "/api/customers/"+id, nil))
		assert.Equal(t, http.StatusBadRequest, rec.Code, id)
		assert.Equal(t, "INVALID_INPUT", decodeBody(t, rec)["code"], id)
	}
}

func TestReportParams(t *testing.T) {
	req := httptest.NewRequest("GET", "/api/reports/income-statement?from=2024-03-01&to=2024-03-31&limit=5&year=2024", nil)
	p, err := reportParams(req)
	require.NoError(t, err)
	assert.Equal(t, 2024, p.Year)
	assert.Equal(t, 5, p.Limit)
	assert.Equal(t, 1, p.From.Day())
	assert.Equal(t, 31, p.To.Day())

	_, err = reportParams(httptest.NewRequest("GET", "/api/reports/x?from=01-03-2024", nil))
	assert.Error(t, err)
	_, err = reportParams(httptest.NewRequest("GET", "/api/reports/x?limit=ten", nil))
	assert.Error(t, err)

	assert.Equal(t, "csv", reportFormat(httptest.NewRequest("GET", "/x?format=CSV", nil), "json"))
	assert.Equal(t, "json", reportFormat(httptest.NewRequest("GET", "/x", nil), "json"))
}

func TestAttachment(t *testing.T) {
	rec := httptest.NewRecorder()
	attachment(rec, "text/csv", "low-stock.csv", []byte("a,b\n"))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="low-stock.csv"`, rec.Header().Get("Content-Disposition"))
	assert.Equal(t, "4", rec.Header().Get("Content-Length"))
	assert.Equal(t, "a,b\n", rec.Body.String())
}

type checkerStub struct {
	status string
}

func (c checkerStub) CheckBasic(context.Context) health.HealthStatus {
	return health.HealthStatus{Status: c.status}
}

func (c checkerStub) CheckDetailed(context.Context) health.DetailedStatus {
	return health.DetailedStatus{HealthStatus: health.HealthStatus{Status: c.status}, Goroutines: 3}
}

func TestHealthHandlers(t *testing.T) {
	up := NewHealthHandler(checkerStub{status: health.StatusHealthy})
	down := NewHealthHandler(checkerStub{status: health.StatusUnhealthy})

	testCases := []struct {
		name    string
		handler http.HandlerFunc
		code    int
	}{
		{"liveness ignores dependencies", down.BasicHealth, http.StatusOK},
		{"ready", up.ReadinessHealth, http.StatusOK},
		{"not ready", down.ReadinessHealth, http.StatusServiceUnavailable},
		{"detailed", up.DetailedHealth, http.StatusOK},
		{"detailed down", down.DetailedHealth, http.StatusServiceUnavailable},
	}
	for _, tt := range testCases {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler(rec, httptest.NewRequest("GET", "/health", nil))
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}
