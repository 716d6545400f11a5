package gtfs

import (
	"strings"
	"time"

	"tripsearch.onebusaway.org/internal/appconf"
)

// Config holds GTFS configuration for the manager.
type Config struct {
	GtfsURL               string
	StaticAuthHeaderKey   string
	StaticAuthHeaderValue string
	Env                   appconf.Environment
	Verbose               bool
	// RefreshInterval of zero disables periodic reloads. Local files are never reloaded.
	RefreshInterval time.Duration
}

func (config Config) isLocalFile() bool {
	return !strings.HasPrefix(config.GtfsURL, "http://") && !strings.HasPrefix(config.GtfsURL, "https://")
}
