package app

import (
	"log/slog"

	"tripsearch.onebusaway.org/internal/appconf"
	"tripsearch.onebusaway.org/internal/clock"
	"tripsearch.onebusaway.org/internal/gtfs"
	"tripsearch.onebusaway.org/internal/metrics"
	"tripsearch.onebusaway.org/internal/planner"
	"tripsearch.onebusaway.org/networkdb"
)

// Application holds the dependencies shared by the HTTP handlers and
// middleware. GtfsManager and NetworkDB are nil when the network comes from
// another source; Repository is always the one the Planner reads.
type Application struct {
	Config      appconf.Config
	GtfsConfig  gtfs.Config
	Logger      *slog.Logger
	Planner     *planner.Planner
	Repository  planner.Repository
	GtfsManager *gtfs.Manager
	NetworkDB   *networkdb.Client
	Clock       clock.Clock
	Metrics     *metrics.Metrics
}
