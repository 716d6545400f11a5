package webui

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"

	"github.com/davecgh/go-spew/spew"
	"tripsearch.onebusaway.org/internal/appconf"
	"tripsearch.onebusaway.org/internal/logging"
)

//go:embed debug_index.html
var templateFS embed.FS

var debugTemplate = template.Must(template.ParseFS(templateFS, "debug_index.html"))

type debugData struct {
	Title string
	Pre   string
}

// networkStats is shown when the network does not come from a GTFS manager.
type networkStats struct {
	Stops int
	Lines int
}

func writeDebugData(w http.ResponseWriter, title string, data interface{}) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := debugTemplate.Execute(w, debugData{Title: title, Pre: spew.Sdump(data)})
	if err != nil {
		slog.Error("failed to execute debug template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// debugIndexHandler dumps the loaded network. It does not exist in production.
func (webUI *WebUI) debugIndexHandler(w http.ResponseWriter, r *http.Request) {
	if webUI.Config.Env == appconf.Production {
		http.NotFound(w, r)
		return
	}

	ctx := r.Context()
	var (
		data  interface{}
		title string
		err   error
	)

	switch r.URL.Query().Get("dataType") {
	case "stops":
		title = "Network - Stops"
		data, err = webUI.Repository.GetStopsSnapshot(ctx)
	case "lines":
		title = "Network - Lines"
		data, err = webUI.Repository.GetLinesSnapshot(ctx)
	case "stats":
		title = "Network - Stats"
		data, err = webUI.stats(r)
	case "config":
		title = "Planner - Configuration"
		data = webUI.Planner.Config()
	default:
		title = "Choose a data type"
		data = map[string]string{
			"error": "Please use one of the following: stops, lines, stats, config.",
		}
	}

	if err != nil {
		logging.LogError(webUI.Logger, "debug page could not read the network", err)
		http.Error(w, "Service Unavailable: "+err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeDebugData(w, title, data)
}

func (webUI *WebUI) stats(r *http.Request) (interface{}, error) {
	if webUI.GtfsManager != nil {
		return webUI.GtfsManager.Stats(), nil
	}
	stops, lines, err := webUI.Repository.Snapshot(r.Context())
	if err != nil {
		return nil, err
	}
	return networkStats{Stops: len(stops), Lines: len(lines)}, nil
}
