// Package geocode names the place a widget is showing weather for.
package geocode

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"github.com/kelvins/geocoder"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// ErrNoAddress is returned when reverse geocoding finds nothing usable.
var ErrNoAddress = errors.New("no address for coordinates")

// ReverseFunc resolves a position to addresses.
type ReverseFunc func(geocoder.Location) ([]geocoder.Address, error)

// Labeler reverse-geocodes coordinates into a short place name. Results are
// cached per grid cell of two decimal places (about 1km).
type Labeler struct {
	reverse ReverseFunc

	mu    sync.Mutex
	cache map[string]string
}

// NewLabeler returns a Labeler backed by the Google geocoding API. The key is
// read from the package-level geocoder.ApiKey, which callers set beforehand.
func NewLabeler() *Labeler {
	return NewLabelerWith(geocoder.GeocodingReverse)
}

// NewLabelerWith returns a Labeler backed by reverse.
func NewLabelerWith(reverse ReverseFunc) *Labeler {
	return &Labeler{
		reverse: reverse,
		cache:   make(map[string]string),
	}
}

// Label returns the locality at coords.
func (l *Labeler) Label(ctx context.Context, coords weather.Coordinates) (string, error) {
	key := cell(coords)

	l.mu.Lock()
	label, ok := l.cache[key]
	l.mu.Unlock()
	if ok {
		return label, nil
	}

	if err := ctx.Err(); err != nil {
		return "", err
	}

	addresses, err := l.reverse(geocoder.Location{
		Latitude:  coords.Latitude,
		Longitude: coords.Longitude,
	})
	if err != nil {
		return "", fmt.Errorf("reverse geocode %s: %w", coords.Key(), err)
	}

	label = pick(addresses)
	if label == "" {
		return "", ErrNoAddress
	}

	l.mu.Lock()
	l.cache[key] = label
	l.mu.Unlock()
	return label, nil
}

func pick(addresses []geocoder.Address) string {
	for _, a := range addresses {
		switch {
		case a.City != "":
			return a.City
		case a.County != "":
			return a.County
		case a.State != "":
			return a.State
		}
	}
	return ""
}

func cell(c weather.Coordinates) string {
	return fmt.Sprintf("%.2f,%.2f", math.Round(c.Latitude*100)/100, math.Round(c.Longitude*100)/100)
}
