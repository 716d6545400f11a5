package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"tripsearch.onebusaway.org/internal/app"
	"tripsearch.onebusaway.org/internal/appconf"
	"tripsearch.onebusaway.org/internal/clock"
	"tripsearch.onebusaway.org/internal/gtfs"
	"tripsearch.onebusaway.org/internal/logging"
	"tripsearch.onebusaway.org/internal/metrics"
	"tripsearch.onebusaway.org/internal/planner"
	"tripsearch.onebusaway.org/internal/restapi"
	"tripsearch.onebusaway.org/internal/webui"
	"tripsearch.onebusaway.org/networkdb"
)

const dbStatsInterval = 15 * time.Second

// ParseAPIKeys splits a comma separated key list, trimming each key.
func ParseAPIKeys(apiKeysFlag string) []string {
	if apiKeysFlag == "" {
		return []string{}
	}
	keys := strings.Split(apiKeysFlag, ",")
	for i, key := range keys {
		keys[i] = strings.TrimSpace(key)
	}
	return keys
}

// BuildApplication wires the network source, planner and metrics. With a GTFS
// URL the feed is the source and dataPath, if set, mirrors it; without one the
// database at dataPath must already hold a snapshot.
func BuildApplication(cfg appconf.Config, gtfsCfg gtfs.Config, plannerCfg planner.Config, dataPath string) (*app.Application, error) {
	level := slog.LevelInfo
	if cfg.Verbose {
		level = slog.LevelDebug
	}
	logger := logging.NewLogger(os.Stdout, level, cfg.Env == appconf.Production)

	coreApp := &app.Application{
		Config:     cfg,
		GtfsConfig: gtfsCfg,
		Logger:     logger,
		Clock:      clock.RealClock{},
		Metrics:    metrics.NewWithLogger(logger),
	}

	if err := attachNetwork(coreApp, dataPath); err != nil {
		shutdownApplication(coreApp)
		return nil, err
	}

	coreApp.Planner = planner.New(coreApp.Repository, plannerCfg,
		planner.WithLogger(logger),
		planner.WithClock(coreApp.Clock),
		planner.WithRecorder(coreApp.Metrics))

	return coreApp, nil
}

func attachNetwork(coreApp *app.Application, dataPath string) error {
	if dataPath != "" {
		db, err := networkdb.NewClient(networkdb.NewConfig(dataPath, coreApp.Config.Env, coreApp.Config.Verbose))
		if err != nil {
			return fmt.Errorf("failed to open network database: %w", err)
		}
		coreApp.NetworkDB = db
		coreApp.Metrics.StartDBStatsCollector(db.DB(), dbStatsInterval)
	}

	if coreApp.GtfsConfig.GtfsURL != "" {
		opts := []gtfs.ManagerOption{gtfs.WithObserver(coreApp.Metrics), gtfs.WithClock(coreApp.Clock)}
		if coreApp.NetworkDB != nil {
			opts = append(opts, gtfs.WithStore(coreApp.NetworkDB))
		}
		manager, err := gtfs.InitGTFSManager(coreApp.GtfsConfig, opts...)
		if err != nil {
			return fmt.Errorf("failed to initialize GTFS manager: %w", err)
		}
		coreApp.GtfsManager = manager
		coreApp.Repository = manager
		return nil
	}

	if coreApp.NetworkDB == nil {
		return errors.New("no network source configured: set a GTFS URL or a data path")
	}

	ctx := context.Background()
	meta, err := coreApp.NetworkDB.LastImport(ctx)
	if err != nil {
		return fmt.Errorf("network database %s is not usable: %w", dataPath, err)
	}
	counts, err := coreApp.NetworkDB.TableCounts(ctx)
	if err != nil {
		return fmt.Errorf("network database %s is not usable: %w", dataPath, err)
	}
	coreApp.Metrics.RecordNetworkLoad(counts["stops"], counts["lines"], time.Unix(meta.ImportTime, 0))
	coreApp.Repository = coreApp.NetworkDB

	logging.LogOperation(coreApp.Logger, "network_loaded_from_database",
		slog.String("path", dataPath),
		slog.String("source", meta.Source),
		slog.Int("stops", counts["stops"]),
		slog.Int("lines", counts["lines"]))
	return nil
}

// CreateServer builds the HTTP server. The returned RestAPI must be shut down
// with the server.
func CreateServer(coreApp *app.Application, cfg appconf.Config) (*http.Server, *restapi.RestAPI) {
	mux := http.NewServeMux()

	api := restapi.NewRestAPI(coreApp)
	api.SetRoutes(mux)

	webUI := &webui.WebUI{Application: coreApp}
	webUI.SetWebUIRoutes(mux)

	handler := restapi.RequestIDMiddleware(
		restapi.NewRequestLoggingMiddleware(coreApp.Logger)(
			restapi.MetricsHandler(coreApp.Metrics)(mux)))

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		IdleTimeout:  time.Minute,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		ErrorLog:     slog.NewLogLogger(coreApp.Logger.Handler(), slog.LevelError),
	}

	return srv, api
}

// Run serves until ctx is done or the listener fails, then drains in-flight
// requests and releases every application resource.
func Run(ctx context.Context, srv *http.Server, coreApp *app.Application, api *restapi.RestAPI) error {
	logger := coreApp.Logger.With(slog.String("component", "server"))

	serveErr := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server",
			slog.String("addr", srv.Addr),
			slog.String("env", coreApp.Config.Env.String()))
		serveErr <- srv.ListenAndServe()
	}()

	var err error
	select {
	case err = <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
	case <-ctx.Done():
		logging.LogOperation(logger, "shutting_down_server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if shutdownErr := srv.Shutdown(shutdownCtx); shutdownErr != nil {
			logging.LogError(logger, "server forced to shutdown", shutdownErr)
			err = shutdownErr
		}
	}

	api.Shutdown()
	shutdownApplication(coreApp)
	logging.LogOperation(logger, "server_exited")
	return err
}

func shutdownApplication(coreApp *app.Application) {
	if coreApp.GtfsManager != nil {
		coreApp.GtfsManager.Shutdown()
	}
	if coreApp.Metrics != nil {
		coreApp.Metrics.Shutdown()
	}
	if coreApp.NetworkDB != nil {
		logging.SafeCloseWithLogging(coreApp.NetworkDB, coreApp.Logger, "network_db")
	}
}
