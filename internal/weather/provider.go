package weather

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrMalformedResponse is returned when a provider answers 2xx with a body we cannot use.
	ErrMalformedResponse = errors.New("malformed weather response")
	// ErrNotConfigured is returned when a provider is missing its credentials.
	ErrNotConfigured = errors.New("weather provider not configured")
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, WeatherAPI, Open-Meteo).
type Provider interface {
	Name() string
	Fetch(ctx context.Context, coords Coordinates) (Reading, error)
}

// FetchError carries the raw payload of a non-success provider response.
type FetchError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s responded %d: %s", e.Provider, e.StatusCode, e.Body)
}
