// Package webui serves developer pages that are not part of the public API.
package webui

import (
	"net/http"

	"tripsearch.onebusaway.org/internal/app"
)

type WebUI struct {
	*app.Application
}

func (webUI *WebUI) SetWebUIRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /debug/", webUI.debugIndexHandler)
}
