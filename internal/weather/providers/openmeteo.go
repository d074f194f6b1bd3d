package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

const openMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoProvider implements the weather.Provider interface for Open-Meteo.
// It needs no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client, opts Options) *OpenMeteoProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = openMeteoURL
	}

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: newHTTPConfig(client, opts.MaxRetries),
		circuit: newCircuit("openmeteo"),
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) Fetch(ctx context.Context, coords weather.Coordinates) (weather.Reading, error) {
	values := url.Values{}
	values.Set("latitude", formatCoord(coords.Latitude))
	values.Set("longitude", formatCoord(coords.Longitude))
	values.Set("current_weather", "true")

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildGet(p.baseURL, values))
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		CurrentWeather *struct {
			Temperature float64 `json:"temperature"`
			Time        string  `json:"time"`
			WeatherCode int     `json:"weathercode"`
		} `json:"current_weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}
	if payload.CurrentWeather == nil {
		return weather.Reading{}, fmt.Errorf("%w: missing current_weather", weather.ErrMalformedResponse)
	}

	// Open-Meteo reports local ISO time without zone unless asked otherwise.
	ts, err := time.Parse("2006-01-02T15:04", payload.CurrentWeather.Time)
	if err != nil {
		ts = time.Now().UTC()
	}

	return weather.Reading{
		ProviderName: p.name,
		Timestamp:    ts.UTC(),
		TemperatureC: payload.CurrentWeather.Temperature,
		Description:  describeWMOCode(payload.CurrentWeather.WeatherCode),
	}, nil
}

// describeWMOCode maps WMO weather interpretation codes to short text.
func describeWMOCode(code int) string {
	switch code {
	case 0:
		return "clear sky"
	case 1:
		return "mainly clear"
	case 2:
		return "partly cloudy"
	case 3:
		return "overcast"
	case 45, 48:
		return "fog"
	case 51, 53, 55:
		return "drizzle"
	case 56, 57:
		return "freezing drizzle"
	case 61:
		return "light rain"
	case 63:
		return "moderate rain"
	case 65:
		return "heavy rain"
	case 66, 67:
		return "freezing rain"
	case 71:
		return "light snow"
	case 73:
		return "moderate snow"
	case 75:
		return "heavy snow"
	case 77:
		return "snow grains"
	case 80, 81, 82:
		return "rain showers"
	case 85, 86:
		return "snow showers"
	case 95:
		return "thunderstorm"
	case 96, 99:
		return "thunderstorm with hail"
	default:
		return "unknown"
	}
}
