package networkdb

import (
	"tripsearch.onebusaway.org/internal/appconf"
)

// Config configures a Client.
type Config struct {
	// DBPath is a SQLite file path or ":memory:".
	DBPath  string
	Env     appconf.Environment
	verbose bool
}

// NewConfig returns a Config.
func NewConfig(dbPath string, env appconf.Environment, verbose bool) Config {
	return Config{DBPath: dbPath, Env: env, verbose: verbose}
}
