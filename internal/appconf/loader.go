package appconf

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
	"tripsearch.onebusaway.org/internal/planner"
)

// ServerSection is the server part of a configuration file.
type ServerSection struct {
	Port      int      `yaml:"port" validate:"gte=0,lte=65535"`
	Env       string   `yaml:"env" validate:"omitempty,oneof=development test production"`
	ApiKeys   []string `yaml:"api-keys" validate:"dive,required"`
	Verbose   bool     `yaml:"verbose"`
	RateLimit int      `yaml:"rate-limit" validate:"gte=0"`
}

// NetworkSection says where the transit network comes from.
type NetworkSection struct {
	GtfsURL         string        `yaml:"gtfs-url"`
	AuthHeaderKey   string        `yaml:"auth-header-name" validate:"required_with=AuthHeaderValue"`
	AuthHeaderValue string        `yaml:"auth-header-value"`
	DataPath        string        `yaml:"data-path"`
	RefreshInterval time.Duration `yaml:"refresh-interval" validate:"gte=0"`
}

// FileConfig is the layout of a YAML configuration file. Missing planner settings
// keep their defaults.
type FileConfig struct {
	Server  ServerSection  `yaml:"server"`
	Network NetworkSection `yaml:"network"`
	Planner planner.Config `yaml:"planner"`
}

var validate = validator.New()

// LoadFromFile reads and validates a configuration file.
func LoadFromFile(path string) (*FileConfig, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates configuration file contents.
func Parse(data []byte) (*FileConfig, error) {
	cfg := FileConfig{
		Server:  ServerSection{Port: 4000, RateLimit: 100},
		Planner: planner.DefaultConfig(),
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML config: %w", err)
	}
	if err := ValidatePlanner(cfg.Planner); err != nil {
		return nil, err
	}
	if err := validate.Struct(cfg.Server); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if err := validate.Struct(cfg.Network); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// ValidatePlanner checks planner tuning values.
func ValidatePlanner(cfg planner.Config) error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			return fmt.Errorf("invalid configuration: planner %s fails %q", fieldErrs[0].Namespace(), fieldErrs[0].Tag())
		}
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// LoadPlannerConfig reads only the planner section of a configuration file. An
// empty path yields the defaults.
func LoadPlannerConfig(path string) (planner.Config, error) {
	if path == "" {
		return planner.DefaultConfig(), nil
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		return planner.Config{}, err
	}
	return cfg.Planner, nil
}

// ToAppConfig converts the server section.
func (c *FileConfig) ToAppConfig() Config {
	keys := c.Server.ApiKeys
	if keys == nil {
		keys = []string{}
	}
	return Config{
		Port:      c.Server.Port,
		Env:       EnvFlagToEnvironment(c.Server.Env),
		ApiKeys:   keys,
		Verbose:   c.Server.Verbose,
		RateLimit: c.Server.RateLimit,
	}
}
