package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"futmap/internal/catalog"
	"futmap/internal/config"
	"futmap/internal/domain"
	"futmap/internal/export"
	"futmap/internal/ledger"
	"futmap/internal/models"
	"futmap/internal/seed"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type testEnv struct {
	server  *HTTPServer
	ts      *httptest.Server
	catalog *catalog.Catalog
	ledger  *ledger.Ledger
}

func newTestEnv(t *testing.T, cfg config.APIConfig) *testEnv {
	t.Helper()

	cat, err := catalog.New(seed.DemoFields())
	require.NoError(t, err)
	led := ledger.New(ledger.NewMemoryStore(), cat, ledger.WithLocation(time.UTC))
	exp := export.NewExporter(led, t.TempDir(), nil)

	logger := zerolog.New(io.Discard)
	srv := NewHTTPServer(cfg, cat, led, exp, &logger)
	srv.now = func() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return &testEnv{server: srv, ts: ts, catalog: cat, ledger: led}
}

func openConfig() config.APIConfig {
	return config.APIConfig{
		Enabled: true,
		HTTP:    config.APIHTTPConfig{Enabled: true, Port: 0},
	}
}

func (e *testEnv) get(t *testing.T, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(e.ts.URL + path)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) post(t *testing.T, path string, body any) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	resp, err := http.Post(e.ts.URL+path, "application/json", &buf)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode[T any](t *testing.T, resp *http.Response) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&v))
	return v
}

type fieldsBody struct {
	Fields []models.Field `json:"fields"`
}

func fieldIDs(fields []models.Field) []string {
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, openConfig())
	resp := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("X-Request-Id"))
}

func TestListFields(t *testing.T) {
	env := newTestEnv(t, openConfig())

	tests := []struct {
		name   string
		query  string
		status int
		want   []string
	}{
		{"All", "", http.StatusOK, []string{"1", "2", "3"}},
		{"Search", "?q=paulista", http.StatusOK, []string{"2"}},
		{"SearchNoMatch", "?q=rio", http.StatusOK, []string{}},
		{"Type", "?type=indoor", http.StatusOK, []string{"3"}},
		{"TypesUnion", "?type=indoor,grass", http.StatusOK, []string{"2", "3"}},
		{"RatingAndAmenity", "?rating=4.2&amenities=Parking", http.StatusOK, []string{"1", "2"}},
		{"PriceRange", "?min_price=100&max_price=150", http.StatusOK, []string{"1"}},
		{"SearchWithFacets", "?q=arena&type=grass", http.StatusOK, []string{}},
		{"Window", "?date=2024-01-15&start=18:00&end=20:00", http.StatusOK, []string{"1", "3"}},
		{"UnknownType", "?type=beach", http.StatusBadRequest, nil},
		{"UnknownSize", "?size=3v3", http.StatusBadRequest, nil},
		{"BadPrice", "?min_price=cheap", http.StatusBadRequest, nil},
		{"StartWithoutDate", "?start=18:00", http.StatusBadRequest, nil},
		{"BadWindowTime", "?date=2024-01-15&start=6pm", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := env.get(t, "/api/v1/fields"+tt.query)
			require.Equal(t, tt.status, resp.StatusCode)
			if tt.want == nil {
				return
			}
			body := decode[fieldsBody](t, resp)
			assert.Equal(t, tt.want, fieldIDs(body.Fields))
		})
	}
}

func TestGetField(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.get(t, "/api/v1/fields/1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	field := decode[models.Field](t, resp)
	assert.Equal(t, "Arena Sports Complex", field.Name)

	resp = env.get(t, "/api/v1/fields/99")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestFieldAvailability(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.get(t, "/api/v1/fields/1/availability?date=2024-01-15")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode[struct {
		Slots []models.TimeSlot `json:"slots"`
	}](t, resp)
	require.Len(t, body.Slots, 2)
	assert.Equal(t, "19:00", body.Slots[0].StartTime)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/fields/1/availability").StatusCode)
	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/fields/1/availability?date=15-01-2024").StatusCode)
	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/v1/fields/99/availability?date=2024-01-15").StatusCode)
}

func bookingDraft(fieldID, start, end string) models.BookingDraft {
	return models.BookingDraft{
		FieldID:     fieldID,
		UserID:      "user-1",
		Date:        "2024-01-15",
		StartTime:   start,
		EndTime:     end,
		TotalPrice:  80,
		PlayerCount: 10,
	}
}

func TestCreateBooking(t *testing.T) {
	env := newTestEnv(t, openConfig())

	resp := env.post(t, "/api/v1/bookings", bookingDraft("3", "18:00", "19:00"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	booking := decode[models.Booking](t, resp)
	assert.Equal(t, models.StatusConfirmed, booking.Status)
	assert.Equal(t, "Quadra Coberta Central", booking.FieldName)

	t.Run("SlotTaken", func(t *testing.T) {
		resp := env.post(t, "/api/v1/bookings", bookingDraft("3", "18:00", "19:00"))
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("UnknownSlot", func(t *testing.T) {
		resp := env.post(t, "/api/v1/bookings", bookingDraft("1", "10:00", "11:00"))
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Validation", func(t *testing.T) {
		d := bookingDraft("3", "21:00", "22:00")
		d.UserID = ""
		resp := env.post(t, "/api/v1/bookings", d)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("InvalidJSON", func(t *testing.T) {
		resp := env.post(t, "/api/v1/bookings", `{"field_id":`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("UnknownJSONField", func(t *testing.T) {
		resp := env.post(t, "/api/v1/bookings", `{"field_id":"3","court":"a"}`)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("MethodNotAllowed", func(t *testing.T) {
		req, err := http.NewRequest(http.MethodDelete, env.ts.URL+"/api/v1/bookings", http.NoBody)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
	})
}

func TestBookingLifecycle(t *testing.T) {
	env := newTestEnv(t, openConfig())

	created := decode[models.Booking](t, env.post(t, "/api/v1/bookings", bookingDraft("1", "19:00", "20:00")))

	resp := env.get(t, "/api/v1/bookings/"+created.ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.ID, decode[models.Booking](t, resp).ID)

	assert.Equal(t, http.StatusNotFound, env.get(t, "/api/v1/bookings/booking-missing").StatusCode)

	type cancelBody struct {
		ID        string `json:"id"`
		Cancelled bool   `json:"cancelled"`
	}
	resp = env.post(t, "/api/v1/bookings/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, decode[cancelBody](t, resp).Cancelled)

	resp = env.post(t, "/api/v1/bookings/"+created.ID+"/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[cancelBody](t, resp).Cancelled)

	resp = env.post(t, "/api/v1/bookings/booking-missing/cancel", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.False(t, decode[cancelBody](t, resp).Cancelled)
}

func TestUserBookings(t *testing.T) {
	env := newTestEnv(t, openConfig())

	first := decode[models.Booking](t, env.post(t, "/api/v1/bookings", bookingDraft("3", "18:00", "19:00")))
	second := decode[models.Booking](t, env.post(t, "/api/v1/bookings", bookingDraft("3", "21:00", "22:00")))
	_ = env.post(t, "/api/v1/bookings/"+first.ID+"/cancel", nil)

	type listBody struct {
		Bookings []models.Booking `json:"bookings"`
	}

	resp := env.get(t, "/api/v1/users/user-1/bookings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	all := decode[listBody](t, resp).Bookings
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)

	resp = env.get(t, "/api/v1/users/user-1/bookings?status=cancelled")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cancelled := decode[listBody](t, resp).Bookings
	require.Len(t, cancelled, 1)
	assert.Equal(t, first.ID, cancelled[0].ID)

	assert.Equal(t, http.StatusBadRequest, env.get(t, "/api/v1/users/user-1/bookings?status=done").StatusCode)

	resp = env.get(t, "/api/v1/users/user-1/upcoming")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	upcoming := decode[listBody](t, resp).Bookings
	require.Len(t, upcoming, 1)
	assert.Equal(t, second.ID, upcoming[0].ID)

	resp = env.get(t, "/api/v1/users/user-1/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	stats := decode[models.BookingStats](t, resp)
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 1, stats.Confirmed)
	assert.Equal(t, 1, stats.Cancelled)
	assert.InDelta(t, 80.0, stats.TotalSpent, 0.001)

	resp = env.get(t, "/api/v1/users/nobody/bookings")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, decode[listBody](t, resp).Bookings)
}

func TestExport(t *testing.T) {
	env := newTestEnv(t, openConfig())
	_ = env.post(t, "/api/v1/bookings", bookingDraft("3", "18:00", "19:00"))

	resp := env.get(t, "/api/v1/users/user-1/export")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, xlsxContentType, resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "bookings_user-1.xlsx")

	f, err := excelize.OpenReader(resp.Body)
	require.NoError(t, err)
	defer f.Close()
	assert.Contains(t, f.GetSheetList(), "Bookings")
}

func TestExportDisabled(t *testing.T) {
	cat, err := catalog.New(seed.DemoFields())
	require.NoError(t, err)
	led := ledger.New(ledger.NewMemoryStore(), cat)
	srv := NewHTTPServer(openConfig(), cat, led, nil, nil)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/users/user-1/export", http.NoBody))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestWriteDomainError(t *testing.T) {
	srv := NewHTTPServer(openConfig(), nil, nil, nil, nil)

	tests := []struct {
		err  error
		want int
	}{
		{domain.ErrInvalidCredentials, http.StatusUnauthorized},
		{fmt.Errorf("get booking: %w", domain.ErrNotFound), http.StatusNotFound},
		{domain.Validation("bad %s", "input"), http.StatusBadRequest},
		{domain.ErrSlotUnavailable, http.StatusConflict},
		{domain.Transient("insert booking", context.DeadlineExceeded), http.StatusServiceUnavailable},
		{context.DeadlineExceeded, http.StatusServiceUnavailable},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		w := httptest.NewRecorder()
		srv.writeDomainError(w, tt.err)
		assert.Equal(t, tt.want, w.Code, tt.err.Error())
	}
}

func TestAuth(t *testing.T) {
	cfg := openConfig()
	cfg.Auth = config.APIAuthConfig{
		Enabled:      true,
		HeaderAPIKey: "x-api-key",
		APIKeys: []config.APIClientKey{
			{Key: "reader", Name: "web", Permissions: []string{"read:fields"}},
		},
	}
	env := newTestEnv(t, cfg)

	assert.Equal(t, http.StatusOK, env.get(t, "/healthz").StatusCode)
	assert.Equal(t, http.StatusUnauthorized, env.get(t, "/api/v1/fields").StatusCode)

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/fields", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("x-api-key", "reader")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, env.ts.URL+"/api/v1/users/user-1/stats", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("x-api-key", "reader")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp2.StatusCode)
}

func TestRateLimit(t *testing.T) {
	cfg := openConfig()
	cfg.RateLimit = config.APIRateLimitConfig{RPS: 1, Burst: 1}
	env := newTestEnv(t, cfg)

	assert.Equal(t, http.StatusOK, env.get(t, "/api/v1/fields").StatusCode)
	assert.Equal(t, http.StatusTooManyRequests, env.get(t, "/api/v1/fields").StatusCode)
	// /healthz не лимитируется
	assert.Equal(t, http.StatusOK, env.get(t, "/healthz").StatusCode)
}

func TestCORS(t *testing.T) {
	env := newTestEnv(t, openConfig())

	req, err := http.NewRequest(http.MethodOptions, env.ts.URL+"/api/v1/fields", http.NoBody)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodGet)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, openConfig())
	assert.Equal(t, http.StatusOK, env.get(t, "/metrics").StatusCode)
}

func TestHTTPServer_ShutdownUnstarted(t *testing.T) {
	srv := NewHTTPServer(openConfig(), nil, nil, nil, nil)
	assert.NoError(t, srv.Shutdown(context.Background()))
}
