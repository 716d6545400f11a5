package planner

import (
	"time"
)

// SpeedParams are the travel-time and fare constants used to build itineraries.
type SpeedParams struct {
	WalkSpeedMetersPerMinute float64 `yaml:"walkSpeedMetersPerMinute" validate:"gt=0"`
	BusSpeedMetersPerMinute  float64 `yaml:"busSpeedMetersPerMinute" validate:"gt=0"`
	WaitMinutes              int     `yaml:"waitMinutes" validate:"gte=0"`
	TransferMinutes          int     `yaml:"transferMinutes" validate:"gte=0"`
	BoardingFare             float64 `yaml:"boardingFare" validate:"gte=0"`
	// TransferFare is the total fare of a two-boarding trip. It is configured on its
	// own rather than derived from BoardingFare, and may not undercut it.
	TransferFare float64 `yaml:"transferFare" validate:"gte=0,gtefield=BoardingFare"`
}

// SearchBounds limit how much of the network a single search explores.
type SearchBounds struct {
	StopSearchRadiusMeters   float64       `yaml:"stopSearchRadiusMeters" validate:"gt=0"`
	MaxCandidateStopsPerSide int           `yaml:"maxCandidateStopsPerSide" validate:"gt=0"`
	TransferStopsPerSide     int           `yaml:"transferStopsPerSide" validate:"gt=0"`
	MaxTransferCandidates    int           `yaml:"maxTransferCandidates" validate:"gt=0"`
	MaxResults               int           `yaml:"maxResults" validate:"gt=0"`
	MaxResultsCap            int           `yaml:"maxResultsCap" validate:"gtefield=MaxResults"`
	PerCallTimeout           time.Duration `yaml:"perCallTimeout" validate:"gte=0"`
	Workers                  int           `yaml:"workers" validate:"gt=0"`
	WalkOnlyMaxMeters        float64       `yaml:"walkOnlyMaxMeters" validate:"gte=0"`
	WalkOnlyShortMeters      float64       `yaml:"walkOnlyShortMeters" validate:"gte=0,ltefield=WalkOnlyMaxMeters"`
}

// Config is the complete planner configuration.
type Config struct {
	Speed  SpeedParams  `yaml:"speed"`
	Bounds SearchBounds `yaml:"bounds"`
}

// DefaultSpeedParams returns the stock travel constants.
func DefaultSpeedParams() SpeedParams {
	return SpeedParams{
		WalkSpeedMetersPerMinute: 80,
		BusSpeedMetersPerMinute:  300,
		WaitMinutes:              8,
		TransferMinutes:          5,
		BoardingFare:             4.50,
		TransferFare:             9.00,
	}
}

// DefaultSearchBounds returns the stock search limits.
func DefaultSearchBounds() SearchBounds {
	return SearchBounds{
		StopSearchRadiusMeters:   800,
		MaxCandidateStopsPerSide: 10,
		TransferStopsPerSide:     3,
		MaxTransferCandidates:    5,
		MaxResults:               5,
		MaxResultsCap:            20,
		PerCallTimeout:           2 * time.Second,
		Workers:                  8,
		WalkOnlyMaxMeters:        2000,
		WalkOnlyShortMeters:      1000,
	}
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() Config {
	return Config{
		Speed:  DefaultSpeedParams(),
		Bounds: DefaultSearchBounds(),
	}
}
