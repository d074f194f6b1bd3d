package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/store"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// Preference keys of the last known fix. Values are decimal strings.
const (
	KeyLatitude  = "LOCATION_LATITUDE"
	KeyLongitude = "LOCATION_LONGITUDE"
)

// Cache is the persisted last-known position.
type Cache struct {
	prefs store.Preferences
}

// NewCache creates a Cache over prefs.
func NewCache(prefs store.Preferences) *Cache {
	return &Cache{prefs: prefs}
}

// Read returns the cached coordinates. ok is false when nothing usable has been
// stored yet; a value that does not parse as a coordinate counts as absent.
func (c *Cache) Read(ctx context.Context) (weather.Coordinates, bool, error) {
	lat, err := c.prefs.GetString(ctx, KeyLatitude)
	if err != nil {
		return weather.Coordinates{}, false, ignoreNotFound(err)
	}
	lon, err := c.prefs.GetString(ctx, KeyLongitude)
	if err != nil {
		return weather.Coordinates{}, false, ignoreNotFound(err)
	}

	coords, err := parseCoordinates(lat, lon)
	if err != nil {
		return weather.Coordinates{}, false, err
	}
	return coords, true, nil
}

// Write overwrites the cached coordinates unconditionally.
func (c *Cache) Write(ctx context.Context, coords weather.Coordinates) error {
	return c.prefs.PutStrings(ctx, map[string]string{
		KeyLatitude:  strconv.FormatFloat(coords.Latitude, 'f', -1, 64),
		KeyLongitude: strconv.FormatFloat(coords.Longitude, 'f', -1, 64),
	})
}

func parseCoordinates(lat, lon string) (weather.Coordinates, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("cached latitude %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return weather.Coordinates{}, fmt.Errorf("cached longitude %q: %w", lon, err)
	}
	if la < -90 || la > 90 || lo < -180 || lo > 180 {
		return weather.Coordinates{}, fmt.Errorf("cached coordinates %s,%s out of range", lat, lon)
	}
	return weather.Coordinates{Latitude: la, Longitude: lo}, nil
}

func ignoreNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	return err
}
