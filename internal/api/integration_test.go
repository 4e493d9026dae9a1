package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randytsao24/gigsahead/internal/alerts"
	"github.com/randytsao24/gigsahead/internal/api"
	"github.com/randytsao24/gigsahead/internal/config"
	"github.com/randytsao24/gigsahead/internal/logging"
	"github.com/randytsao24/gigsahead/internal/models"
	"github.com/randytsao24/gigsahead/internal/pipeline"
)

// ---------------------------------------------------------------------------
// Mock providers
// ---------------------------------------------------------------------------

type mockCatalog struct {
	routes []models.Route
	err    error
}

func (m *mockCatalog) RouteTypes(ctx context.Context) ([]models.RouteTypeInfo, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.RouteTypeInfo{
		{Type: models.RouteTypeTrain, Name: "Train"},
		{Type: models.RouteTypeTram, Name: "Tram"},
	}, nil
}

func (m *mockCatalog) RoutesByType(ctx context.Context, rt models.RouteType) ([]models.Route, error) {
	return m.routes, m.err
}

type mockPlanner struct {
	err error

	mu       sync.Mutex
	gotAhead pipeline.GigsAheadRequest
}

func (m *mockPlanner) lastAhead() pipeline.GigsAheadRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gotAhead
}

func (m *mockPlanner) RouteStops(ctx context.Context, routeID int, rt models.RouteType) (*pipeline.RouteStopsResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.RouteStopsResult{RouteID: routeID, RouteName: "Route 96", RouteType: rt}, nil
}

func (m *mockPlanner) NearbyGigs(ctx context.Context, routeID int, rt models.RouteType) (*pipeline.NearbyGigsResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.NearbyGigsResult{RouteID: routeID, RouteName: "Route 96", RouteType: rt}, nil
}

func (m *mockPlanner) GigsAhead(ctx context.Context, req pipeline.GigsAheadRequest) (*pipeline.GigsAheadResult, error) {
	m.mu.Lock()
	m.gotAhead = req
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return &pipeline.GigsAheadResult{
		RouteID:              req.RouteID,
		RouteType:            req.RouteType,
		RequestedDirectionID: req.DirectionID,
		ActualDirectionID:    req.DirectionID + 1,
		CurrentStop:          models.OrderedStop{Stop: models.Stop{ID: req.StopID, Name: "Bourke St"}},
		StopsAhead:           4,
		Events: []models.ReachableEvent{{
			ProximityMatch: models.ProximityMatch{
				Event:          models.Event{ID: "g1", Name: "Late Show", Date: "2026-10-15", StartTime: "21:00"},
				Stop:           models.Stop{ID: 2, Name: "Lygon St"},
				DistanceMeters: 120,
			},
			TravelTimeMinutes: 12,
			TravelTimeSource:  models.TravelTimeJourney,
			IsReachable:       true,
		}},
	}, nil
}

func (m *mockPlanner) TodaysGigs(ctx context.Context) ([]models.Event, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.Event{{ID: "g1", Name: "Late Show", Date: "2026-10-15"}}, nil
}

type mockAlerts struct {
	err     error
	noFeeds map[models.RouteType]bool

	mu        sync.Mutex
	calls     int
	gotType   models.RouteType
	gotRoutes []string
}

func (m *mockAlerts) HasFeed(rt models.RouteType) bool {
	return !m.noFeeds[rt]
}

func (m *mockAlerts) Alerts(ctx context.Context, rt models.RouteType, routes []string) ([]alerts.Alert, error) {
	m.mu.Lock()
	m.calls++
	m.gotType, m.gotRoutes = rt, routes
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return []alerts.Alert{{ID: "a1", RouteType: rt, Header: "Buses replace trains"}}, nil
}

type mockLogs struct{}

func (mockLogs) Entries() []logging.Entry {
	return []logging.Entry{{Level: "info", Message: "started"}}
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

type testDeps struct {
	catalog *mockCatalog
	planner *mockPlanner
	alerts  *mockAlerts
}

func defaultDeps() *testDeps {
	return &testDeps{
		catalog: &mockCatalog{routes: []models.Route{{ID: 1, Name: "Alamein", Type: models.RouteTypeTrain}}},
		planner: &mockPlanner{},
		alerts:  &mockAlerts{},
	}
}

func newTestServer(t *testing.T, deps *testDeps) *httptest.Server {
	t.Helper()

	cfg := config.Defaults()
	cfg.PTV.RelayURL = "https://relay.example.com"
	cfg.HTTPTimeoutSeconds = 5

	router := api.NewRouter(cfg, api.Services{
		Catalog: deps.catalog,
		Planner: deps.planner,
		Alerts:  deps.alerts,
		Logs:    mockLogs{},
	}, logging.Nop())

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, server *httptest.Server, path string) *http.Response {
	t.Helper()
	resp, err := http.Get(server.URL + path)
	require.NoError(t, err, "GET %s", path)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var m map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	return m
}

// ---------------------------------------------------------------------------
// Health & root
// ---------------------------------------------------------------------------

func TestHealth(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/health")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "relay", body["transit_mode"])
	assert.Contains(t, body, "uptime")
}

func TestAPIRoot(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	for _, path := range []string{"/", "/api"} {
		resp := get(t, srv, path)
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)

		body := decodeBody(t, resp)
		assert.Equal(t, "gigsahead", body["name"])
		assert.NotEmpty(t, body["endpoints"])
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	for _, path := range []string{"/nope", "/api/nope"} {
		resp := get(t, srv, path)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
		body := decodeBody(t, resp)
		assert.Equal(t, "Route not found", body["error"])
	}
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/health")
	resp.Body.Close()
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestCORSHeaders(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/route-types", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

type panickingPlanner struct{ mockPlanner }

func (p *panickingPlanner) TodaysGigs(ctx context.Context) ([]models.Event, error) {
	panic("boom")
}

func TestRecoveryFromPanic(t *testing.T) {
	cfg := config.Defaults()
	cfg.PTV.RelayURL = "https://relay.example.com"
	srv := httptest.NewServer(api.NewRouter(cfg, api.Services{
		Catalog: &mockCatalog{},
		Planner: &panickingPlanner{},
		Alerts:  &mockAlerts{},
		Logs:    mockLogs{},
	}, logging.Nop()))
	defer srv.Close()

	resp := get(t, srv, "/api/gigs")
	resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// Catalog endpoints
// ---------------------------------------------------------------------------

func TestRouteTypes(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/api/route-types")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.EqualValues(t, 2, body["count"])
}

func TestRoutesByType(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	tests := []struct {
		name   string
		path   string
		status int
	}{
		{"train", "/api/routes?route_type=0", http.StatusOK},
		{"airport coach", "/api/routes?route_type=5", http.StatusOK},
		{"missing type", "/api/routes", http.StatusBadRequest},
		{"letters", "/api/routes?route_type=tram", http.StatusBadRequest},
		{"undefined mode", "/api/routes?route_type=9", http.StatusBadRequest},
		{"negative", "/api/routes?route_type=-1", http.StatusBadRequest},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := get(t, srv, tc.path)
			resp.Body.Close()
			assert.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

// ---------------------------------------------------------------------------
// Route views
// ---------------------------------------------------------------------------

func TestRouteStops(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/api/routes/96/1/stops")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	route, ok := body["route"].(map[string]any)
	require.True(t, ok, "route should be an object")
	assert.EqualValues(t, 96, route["route_id"])
	assert.Equal(t, "Route 96", route["route_name"])
}

func TestRouteStopsBadParams(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	for _, path := range []string{
		"/api/routes/abc/1/stops",
		"/api/routes/96/x/stops",
		"/api/routes/96/7/stops",
	} {
		resp := get(t, srv, path)
		body := decodeBody(t, resp)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
		assert.Equal(t, "Invalid request", body["error"])
	}
}

func TestNearbyGigs(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/api/routes/96/1/nearby-gigs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Route 96", body["route"])
	assert.Contains(t, body, "gig_count")
}

// ---------------------------------------------------------------------------
// Gigs
// ---------------------------------------------------------------------------

func TestTodaysGigs(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/api/gigs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["count"])
}

func TestGigsAhead(t *testing.T) {
	deps := defaultDeps()
	srv := newTestServer(t, deps)

	resp := get(t, srv, "/api/gigs-ahead/96/1/2500/3")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, pipeline.GigsAheadRequest{
		RouteID:     96,
		RouteType:   models.RouteTypeTram,
		StopID:      2500,
		DirectionID: 3,
	}, deps.planner.lastAhead())

	body := decodeBody(t, resp)
	assert.EqualValues(t, 3, body["requested_direction_id"])
	assert.EqualValues(t, 4, body["actual_direction_id"])
	assert.Equal(t, true, body["direction_substituted"])
	assert.EqualValues(t, 1, body["count"])

	events, ok := body["events"].([]any)
	require.True(t, ok)
	require.Len(t, events, 1)
	ev := events[0].(map[string]any)
	assert.Equal(t, true, ev["is_reachable"])
	assert.Equal(t, "journey", ev["travel_time_source"])
}

func TestGigsAheadBadParams(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	for _, path := range []string{
		"/api/gigs-ahead/x/1/2500/3",
		"/api/gigs-ahead/96/1/x/3",
		"/api/gigs-ahead/96/1/2500/x",
		"/api/gigs-ahead/96/12/2500/3",
	} {
		resp := get(t, srv, path)
		resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode, path)
	}
}

// ---------------------------------------------------------------------------
// Error mapping
// ---------------------------------------------------------------------------

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"invalid input", &models.InvalidInputError{Field: "stop id", Value: 0}, http.StatusBadRequest},
		{"stop missing", &models.NotFoundError{Resource: "stop", ID: 1}, http.StatusNotFound},
		{"upstream down", &models.UpstreamError{Service: "ptv", Op: "stops", Err: errors.New("refused")}, http.StatusBadGateway},
		{"wrapped upstream", fmt.Errorf("fetching gigs: %w", &models.UpstreamError{Service: "lml", Op: "gigs", StatusCode: 503}), http.StatusBadGateway},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			deps := defaultDeps()
			deps.planner.err = tc.err
			srv := newTestServer(t, deps)

			resp := get(t, srv, "/api/gigs-ahead/96/1/2500/0")
			body := decodeBody(t, resp)
			assert.Equal(t, tc.status, resp.StatusCode)
			assert.Contains(t, body, "error")
			assert.Contains(t, body, "message")
		})
	}
}

func TestCatalogUpstreamFailure(t *testing.T) {
	deps := defaultDeps()
	deps.catalog.err = &models.UpstreamError{Service: "ptv", Op: "route types", Err: context.DeadlineExceeded}
	srv := newTestServer(t, deps)

	resp := get(t, srv, "/api/route-types")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}

// ---------------------------------------------------------------------------
// Alerts & logs
// ---------------------------------------------------------------------------

func TestServiceAlerts(t *testing.T) {
	deps := defaultDeps()
	srv := newTestServer(t, deps)

	resp := get(t, srv, "/api/alerts?route_type=0&routes=1,%202,,3")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	deps.alerts.mu.Lock()
	assert.Equal(t, models.RouteTypeTrain, deps.alerts.gotType)
	assert.Equal(t, []string{"1", "2", "3"}, deps.alerts.gotRoutes)
	deps.alerts.mu.Unlock()

	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["count"])
}

func TestServiceAlertsModeWithoutFeed(t *testing.T) {
	deps := defaultDeps()
	deps.alerts.noFeeds = map[models.RouteType]bool{models.RouteTypeBus: true}
	srv := newTestServer(t, deps)

	resp := get(t, srv, "/api/alerts?route_type=2")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Not found", body["error"])

	deps.alerts.mu.Lock()
	assert.Zero(t, deps.alerts.calls, "feed is not queried")
	deps.alerts.mu.Unlock()

	resp = get(t, srv, "/api/alerts?route_type=0")
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceAlertsRequiresType(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/api/alerts")
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestLogs(t *testing.T) {
	srv := newTestServer(t, defaultDeps())

	resp := get(t, srv, "/api/logs")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	body := decodeBody(t, resp)
	assert.EqualValues(t, 1, body["count"])
}

func TestSlowHandlerTimesOut(t *testing.T) {
	cfg := config.Defaults()
	cfg.PTV.RelayURL = "https://relay.example.com"
	cfg.HTTPTimeoutSeconds = 1

	srv := httptest.NewServer(api.NewRouter(cfg, api.Services{
		Catalog: &slowCatalog{delay: 10 * time.Second},
		Planner: &mockPlanner{},
		Alerts:  &mockAlerts{},
		Logs:    mockLogs{},
	}, logging.Nop()))
	defer srv.Close()

	resp := get(t, srv, "/api/route-types")
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

type slowCatalog struct {
	mockCatalog
	delay time.Duration
}

func (s *slowCatalog) RouteTypes(ctx context.Context) ([]models.RouteTypeInfo, error) {
	select {
	case <-time.After(s.delay):
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
