package weather

import (
	"fmt"
	"time"
)

// Coordinates is a device position in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"lat" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"lon" validate:"gte=-180,lte=180"`
}

// Key returns a canonical string key for logging and caching.
func (c Coordinates) Key() string {
	return fmt.Sprintf("%.4f,%.4f", c.Latitude, c.Longitude)
}

// Reading is a single provider response before display normalization.
type Reading struct {
	ProviderName string
	Timestamp    time.Time

	TemperatureC float64
	Description  string
}

// Snapshot is the display-ready weather of one update cycle. It is never persisted.
type Snapshot struct {
	Provider     string    `json:"provider"`
	Timestamp    time.Time `json:"timestamp"` // always UTC
	TemperatureC int       `json:"temperatureC"`
	Description  string    `json:"description"`
}
