package restapi

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"tripsearch.onebusaway.org/internal/app"
	"tripsearch.onebusaway.org/internal/appconf"
	"tripsearch.onebusaway.org/internal/clock"
	"tripsearch.onebusaway.org/internal/metrics"
	"tripsearch.onebusaway.org/internal/network"
	"tripsearch.onebusaway.org/internal/planner"
)

var testNow = time.Date(2025, 3, 10, 8, 30, 0, 0, time.UTC)

func testNetwork() ([]network.Stop, []network.Line) {
	stops := []network.Stop{
		{ID: "S1", Code: "PA101", Name: "Plaza Norte", Location: network.Coordinate{Lat: 0, Lon: 0}, Accessible: true},
		{ID: "S2", Code: "PA102", Name: "Mercado", Location: network.Coordinate{Lat: 0, Lon: 0.01}, Accessible: true},
		{ID: "T1", Code: "PA103", Name: "Terminal", Location: network.Coordinate{Lat: 0, Lon: 0.02}, Accessible: true},
	}
	lines := []network.Line{{
		ID: "L1", Code: "101", Name: "Troncal", Accessible: true,
		Stops: []network.LineStop{{StopID: "S1", Sequence: 1}, {StopID: "S2", Sequence: 2}, {StopID: "T1", Sequence: 3}},
	}}
	return stops, lines
}

func newTestApplication(t *testing.T, repo planner.Repository) *app.Application {
	t.Helper()
	if repo == nil {
		repo = network.NewStaticRepository(testNetwork())
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := clock.NewMockClock(testNow)
	m := metrics.New()
	return &app.Application{
		Config: appconf.Config{
			Env:       appconf.Test,
			ApiKeys:   []string{"TEST"},
			RateLimit: 100,
		},
		Logger:     logger,
		Repository: repo,
		Planner: planner.New(repo, planner.DefaultConfig(),
			planner.WithLogger(logger), planner.WithClock(c), planner.WithRecorder(m)),
		Clock:   c,
		Metrics: m,
	}
}

func createTestApi(t *testing.T) *RestAPI {
	t.Helper()
	return createTestApiFor(t, newTestApplication(t, nil))
}

func createTestApiFor(t *testing.T, application *app.Application) *RestAPI {
	t.Helper()
	api := NewRestAPI(application)
	t.Cleanup(api.Shutdown)
	return api
}

func serve(t *testing.T, api *RestAPI) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	api.SetRoutes(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func decodeEnvelope(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	var envelope map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}
