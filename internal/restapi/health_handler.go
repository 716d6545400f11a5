package restapi

import (
	"encoding/json"
	"net/http"

	"tripsearch.onebusaway.org/internal/logging"
)

// HealthResponse represents the JSON response from the health endpoint.
type HealthResponse struct {
	Status string `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func writeHealth(w http.ResponseWriter, code int, resp HealthResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(resp)
}

// healthHandler answers 503 until a network is loaded and, when a database
// backs the network, while it cannot be pinged.
func (api *RestAPI) healthHandler(w http.ResponseWriter, r *http.Request) {
	if api.Application == nil || api.Planner == nil {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Detail: "planner not initialized",
		})
		return
	}

	if api.GtfsManager != nil && !api.GtfsManager.IsReady() {
		writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "starting",
			Detail: "GTFS network is being loaded",
		})
		return
	}

	if api.NetworkDB != nil {
		if err := api.NetworkDB.DB().PingContext(r.Context()); err != nil {
			logging.LogError(api.Logger, "network DB ping failed", err)
			writeHealth(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "unavailable",
				Detail: "database connection failed",
			})
			return
		}
	}

	if api.GtfsManager != nil && !api.GtfsManager.IsHealthy() {
		writeHealth(w, http.StatusOK, HealthResponse{
			Status: "degraded",
			Detail: "last GTFS reload failed, serving previous network",
		})
		return
	}

	writeHealth(w, http.StatusOK, HealthResponse{Status: "ok"})
}
