package restapi

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"tripsearch.onebusaway.org/internal/gtfs"
)

const directSearchBody = `{"origin":{"lat":0,"lng":-0.002,"name":"Casa"},"destination":{"lat":0,"lng":0.022,"name":"Oficina"}}`

func TestTripSearchHandlerDirect(t *testing.T) {
	server := serve(t, createTestApi(t))

	resp := postJSON(t, server.URL+"/api/trip-search?key=TEST", directSearchBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
	assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

	envelope := decodeEnvelope(t, resp)
	assert.EqualValues(t, 200, envelope["code"])
	assert.EqualValues(t, testNow.UnixMilli(), envelope["currentTime"])

	data := envelope["data"].(map[string]interface{})
	assert.EqualValues(t, 1, data["total"])
	assert.Equal(t, false, data["timedOut"])
	assert.NotContains(t, data, "fallbackReason")

	itineraries := data["itineraries"].([]interface{})
	require.Len(t, itineraries, 1)
	first := itineraries[0].(map[string]interface{})
	assert.Equal(t, "direct", first["kind"])
	assert.Equal(t, true, first["isRecommended"])
	assert.EqualValues(t, 21, first["totalMinutes"])
	assert.EqualValues(t, 4.5, first["totalFareAmount"])
	assert.Equal(t, "101", first["summary"])

	legs := first["legs"].([]interface{})
	require.Len(t, legs, 3)
	ride := legs[1].(map[string]interface{})
	assert.Equal(t, "ride", ride["type"])
	assert.NotEmpty(t, ride["polyline"])
	assert.Equal(t, "L1", ride["line"].(map[string]interface{})["id"])
}

func TestTripSearchHandlerWalkOnlyFallback(t *testing.T) {
	server := serve(t, createTestApi(t))

	body := `{"origin":{"lat":10,"lng":10},"destination":{"lat":10,"lng":10.005}}`
	resp := postJSON(t, server.URL+"/api/trip-search?key=TEST", body)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	data := decodeEnvelope(t, resp)["data"].(map[string]interface{})
	assert.Equal(t, "no_nearby_service", data["fallbackReason"])
	first := data["itineraries"].([]interface{})[0].(map[string]interface{})
	assert.Equal(t, "walk_only", first["kind"])
	assert.Contains(t, first["message"], "walk")
}

func TestTripSearchHandlerRejectsBadRequests(t *testing.T) {
	server := serve(t, createTestApi(t))

	tests := []struct {
		name     string
		body     string
		wantText string
	}{
		{"malformed JSON", `{"origin":`, "invalid request body"},
		{"unknown field", `{"origin":{"lat":0,"lng":0},"destination":{"lat":0,"lng":1},"mode":"bus"}`, "invalid request body"},
		{"missing destination", `{"origin":{"lat":0,"lng":0}}`, "destination.lat is required"},
		{"latitude out of range", `{"origin":{"lat":-91,"lng":0},"destination":{"lat":0,"lng":1}}`, "origin.lat is out of range"},
		{"negative maxResults", `{"origin":{"lat":0,"lng":0},"destination":{"lat":0,"lng":1},"maxResults":-2}`, "maxResults is out of range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server.URL+"/api/trip-search?key=TEST", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.Equal(t, "no-cache, no-store, must-revalidate", resp.Header.Get("Cache-Control"))

			envelope := decodeEnvelope(t, resp)
			assert.EqualValues(t, 400, envelope["code"])
			assert.Contains(t, envelope["text"], tt.wantText)
		})
	}
}

func TestTripSearchHandlerRejectsOversizedBody(t *testing.T) {
	server := serve(t, createTestApi(t))

	body := `{"origin":{"lat":0,"lng":0,"name":"` + strings.Repeat("x", maxSearchBodyBytes) + `"},"destination":{"lat":0,"lng":1}}`
	resp := postJSON(t, server.URL+"/api/trip-search?key=TEST", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestTripSearchHandlerRequiresAPIKey(t *testing.T) {
	server := serve(t, createTestApi(t))

	for _, url := range []string{"/api/trip-search", "/api/trip-search?key=wrong"} {
		resp := postJSON(t, server.URL+url, directSearchBody)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, url)
		assert.Equal(t, "permission denied", decodeEnvelope(t, resp)["text"])
	}
}

func TestTripSearchHandlerMethodNotAllowed(t *testing.T) {
	server := serve(t, createTestApi(t))

	resp, err := http.Get(server.URL + "/api/trip-search?key=TEST")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTripSearchHandlerNetworkNotReady(t *testing.T) {
	application := newTestApplication(t, &gtfs.Manager{})
	server := serve(t, createTestApiFor(t, application))

	resp := postJSON(t, server.URL+"/api/trip-search?key=TEST", directSearchBody)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "network data unavailable", decodeEnvelope(t, resp)["text"])
}

func TestTripSearchHandlerRecordsMetrics(t *testing.T) {
	api := createTestApi(t)
	server := serve(t, api)

	resp := postJSON(t, server.URL+"/api/trip-search?key=TEST", directSearchBody)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	metricsResp, err := http.Get(server.URL + "/metrics")
	require.NoError(t, err)
	defer func() { _ = metricsResp.Body.Close() }()
	body, err := io.ReadAll(metricsResp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), `tripsearch_searches_total{outcome="direct"} 1`)
	assert.Contains(t, string(body), `tripsearch_search_candidates_total{stage="direct"}`)
}
