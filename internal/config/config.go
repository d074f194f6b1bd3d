package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

var validate = validator.New()

type AppConfig struct {
	// Weather provider selection and credentials.
	WeatherProvider   string `validate:"oneof=openweather openmeteo weatherapi"`
	OpenWeatherAPIKey string
	WeatherAPIKey     string
	WeatherBaseURL    string `validate:"omitempty,url"`
	WeatherMaxRetries int    `validate:"gte=0,lte=5"`

	// HTTPTimeout of zero keeps the http.Client default.
	HTTPTimeout time.Duration `validate:"gte=0"`

	// RefreshInterval controls how long after each cycle the next one fires.
	RefreshInterval time.Duration `validate:"gt=0"`

	// Location fix requests.
	LocationProvider        string        `validate:"required"`
	LocationMinInterval     time.Duration `validate:"gte=0"`
	LocationMinDisplacement float64       `validate:"gte=0"`
	LocationFixTimeout      time.Duration `validate:"gt=0"`
	// StaticLocation, when set, answers every fix request.
	StaticLocation *weather.Coordinates

	// Preference storage.
	PrefsBackend    string `validate:"oneof=memory sqlite valkey"`
	PrefsSQLitePath string `validate:"required_if=PrefsBackend sqlite"`
	PrefsValkeyAddr string `validate:"required_if=PrefsBackend valkey"`
	PrefsNamespace  string `validate:"required"`

	GeocoderAPIKey string

	// WidgetIDs are the instances placed at startup.
	WidgetIDs []int

	Port     string `validate:"required,numeric"`
	LogLevel string
}

// Load reads configuration from environment with sensible defaults.
// Callers load any .env file beforehand.
func Load() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.WeatherProvider = getenvDefault("WEATHER_PROVIDER", "openweather")
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.WeatherAPIKey = os.Getenv("WEATHERAPI_API_KEY")
	cfg.WeatherBaseURL = os.Getenv("WEATHER_BASE_URL")
	cfg.WeatherMaxRetries = getenvInt("WEATHER_MAX_RETRIES", 0)

	if cfg.HTTPTimeout, err = getenvDuration("HTTP_TIMEOUT", "0s"); err != nil {
		return nil, err
	}
	// Refresh interval: default 30 minutes.
	if cfg.RefreshInterval, err = getenvDuration("REFRESH_INTERVAL", "30m"); err != nil {
		return nil, err
	}

	cfg.LocationProvider = getenvDefault("LOCATION_PROVIDER", "gps")
	if cfg.LocationMinInterval, err = getenvDuration("LOCATION_MIN_INTERVAL", "2s"); err != nil {
		return nil, err
	}
	if cfg.LocationMinDisplacement, err = getenvFloat("LOCATION_MIN_DISPLACEMENT_M", 10); err != nil {
		return nil, err
	}
	if cfg.LocationFixTimeout, err = getenvDuration("LOCATION_FIX_TIMEOUT", "1m"); err != nil {
		return nil, err
	}
	if cfg.StaticLocation, err = loadStaticLocation(); err != nil {
		return nil, err
	}

	cfg.PrefsBackend = getenvDefault("PREFS_BACKEND", "memory")
	cfg.PrefsSQLitePath = getenvDefault("PREFS_SQLITE_PATH", "widget.db")
	cfg.PrefsValkeyAddr = getenvDefault("PREFS_VALKEY_ADDR", "localhost:6379")
	cfg.PrefsNamespace = getenvDefault("PREFS_NAMESPACE", "location_preference")

	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")

	if cfg.WidgetIDs, err = loadWidgetIDs(); err != nil {
		return nil, err
	}

	cfg.Port = getenvDefault("PORT", "8080")
	cfg.LogLevel = getenvDefault("LOG_LEVEL", "info")

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func loadStaticLocation() (*weather.Coordinates, error) {
	lat := os.Getenv("LOCATION_STATIC_LAT")
	lon := os.Getenv("LOCATION_STATIC_LON")
	if lat == "" && lon == "" {
		return nil, nil
	}
	if lat == "" || lon == "" {
		return nil, fmt.Errorf("LOCATION_STATIC_LAT and LOCATION_STATIC_LON must be set together")
	}

	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCATION_STATIC_LAT: %w", err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid LOCATION_STATIC_LON: %w", err)
	}
	return &weather.Coordinates{Latitude: la, Longitude: lo}, nil
}

func loadWidgetIDs() ([]int, error) {
	raw := os.Getenv("WIDGET_IDS")
	if raw == "" {
		return nil, nil
	}

	var ids []int
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid WIDGET_IDS entry %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) (float64, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}

func getenvDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(getenvDefault(key, def))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
