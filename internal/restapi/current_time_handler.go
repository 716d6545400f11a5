package restapi

import (
	"net/http"

	"tripsearch.onebusaway.org/internal/models"
)

func (api *RestAPI) currentTimeHandler(w http.ResponseWriter, r *http.Request) {
	now := api.Clock.Now()
	data := models.CurrentTimeData{
		ReadableTime: now.Format("2006-01-02T15:04:05-07:00"),
		Time:         now.UnixMilli(),
	}
	api.sendResponse(w, r, models.NewOKResponse(data, api.Clock))
}
