package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"tripsearch.onebusaway.org/internal/appconf"
	"tripsearch.onebusaway.org/internal/gtfs"
	"tripsearch.onebusaway.org/internal/planner"
)

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

type options struct {
	app      appconf.Config
	gtfs     gtfs.Config
	planner  planner.Config
	dataPath string
}

func parseOptions(args []string) (options, error) {
	fs := flag.NewFlagSet("tripsearch", flag.ContinueOnError)

	var (
		cfg         appconf.Config
		gtfsCfg     gtfs.Config
		env         string
		apiKeys     string
		configPath  string
		plannerPath string
		dataPath    string
	)

	fs.StringVar(&configPath, "config", envOr("CONFIG_FILE", ""), "YAML configuration file; replaces every other flag")
	fs.IntVar(&cfg.Port, "port", envIntOr("PORT", 4000), "API server port")
	fs.StringVar(&env, "env", envOr("ENV", "development"), "Environment (development|test|production)")
	fs.StringVar(&apiKeys, "api-keys", envOr("API_KEYS", "test"), "Comma separated API keys")
	fs.IntVar(&cfg.RateLimit, "rate-limit", envIntOr("RATE_LIMIT", 100), "Requests per second per API key")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Enable debug logging")
	fs.StringVar(&gtfsCfg.GtfsURL, "gtfs-url", envOr("GTFS_URL", ""), "GTFS static feed URL or local zip path")
	fs.StringVar(&gtfsCfg.StaticAuthHeaderKey, "gtfs-auth-header-name", envOr("GTFS_AUTH_HEADER_NAME", ""), "Auth header name for the GTFS feed")
	fs.StringVar(&gtfsCfg.StaticAuthHeaderValue, "gtfs-auth-header-value", envOr("GTFS_AUTH_HEADER_VALUE", ""), "Auth header value for the GTFS feed")
	fs.DurationVar(&gtfsCfg.RefreshInterval, "refresh-interval", envDurationOr("GTFS_REFRESH_INTERVAL", 24*time.Hour), "Reload interval for remote feeds, 0 disables")
	fs.StringVar(&dataPath, "data-path", envOr("DATA_PATH", ""), "SQLite network database path")
	fs.StringVar(&plannerPath, "planner-config", envOr("PLANNER_CONFIG", ""), "YAML file with planner tuning")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	if configPath != "" {
		fileCfg, err := appconf.LoadFromFile(configPath)
		if err != nil {
			return options{}, err
		}
		appCfg := fileCfg.ToAppConfig()
		return options{
			app: appCfg,
			gtfs: gtfs.Config{
				GtfsURL:               fileCfg.Network.GtfsURL,
				StaticAuthHeaderKey:   fileCfg.Network.AuthHeaderKey,
				StaticAuthHeaderValue: fileCfg.Network.AuthHeaderValue,
				RefreshInterval:       fileCfg.Network.RefreshInterval,
				Env:                   appCfg.Env,
				Verbose:               appCfg.Verbose,
			},
			planner:  fileCfg.Planner,
			dataPath: fileCfg.Network.DataPath,
		}, nil
	}

	plannerCfg, err := appconf.LoadPlannerConfig(plannerPath)
	if err != nil {
		return options{}, err
	}

	cfg.Env = appconf.EnvFlagToEnvironment(env)
	cfg.ApiKeys = ParseAPIKeys(apiKeys)
	gtfsCfg.Env = cfg.Env
	gtfsCfg.Verbose = cfg.Verbose

	return options{app: cfg, gtfs: gtfsCfg, planner: plannerCfg, dataPath: dataPath}, nil
}

func main() {
	// a missing .env is normal outside development
	_ = godotenv.Load()

	opts, err := parseOptions(os.Args[1:])
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(2)
	}

	coreApp, err := BuildApplication(opts.app, opts.gtfs, opts.planner, opts.dataPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build application: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, api := CreateServer(coreApp, opts.app)
	if err := Run(ctx, srv, coreApp, api); err != nil {
		coreApp.Logger.Error("server stopped with error", "error", err)
		os.Exit(1)
	}
}
