package restapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"tripsearch.onebusaway.org/internal/gtfs"
	"tripsearch.onebusaway.org/internal/logging"
	"tripsearch.onebusaway.org/internal/models"
	"tripsearch.onebusaway.org/internal/network"
	"tripsearch.onebusaway.org/networkdb"
)

const maxSearchBodyBytes = 16 * 1024

func (api *RestAPI) tripSearchHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxSearchBodyBytes)

	var req models.TripSearchRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&req); err != nil {
		api.sendError(w, r, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		api.sendError(w, r, http.StatusBadRequest, err.Error())
		return
	}

	result, err := api.Planner.Search(r.Context(), req.ToPlannerRequest())
	if err != nil {
		switch {
		case r.Context().Err() != nil:
			logging.LogOperation(api.Logger, "trip_search_abandoned_by_client",
				slog.String("request_id", GetRequestID(r.Context())))
		case errors.Is(err, gtfs.ErrNotReady), errors.Is(err, networkdb.ErrNoSnapshot),
			errors.Is(err, network.ErrInvalidSnapshot):
			logging.LogError(api.Logger, "network data unavailable", err,
				slog.String("request_id", GetRequestID(r.Context())))
			api.sendError(w, r, http.StatusServiceUnavailable, "network data unavailable")
		default:
			api.serverErrorResponse(w, r, err)
		}
		return
	}

	api.sendResponse(w, r, models.NewOKResponse(models.NewTripSearchResponse(result), api.Clock))
}
