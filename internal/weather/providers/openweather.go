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

const openWeatherURL = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeatherProvider implements the weather.Provider interface for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, opts Options) *OpenWeatherProvider {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = openWeatherURL
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  opts.APIKey,
		baseURL: baseURL,
		httpCfg: newHTTPConfig(client, opts.MaxRetries),
		circuit: newCircuit("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Fetch(ctx context.Context, coords weather.Coordinates) (weather.Reading, error) {
	if p.apiKey == "" {
		return weather.Reading{}, fmt.Errorf("openweather api key: %w", weather.ErrNotConfigured)
	}

	values := url.Values{}
	values.Set("lat", formatCoord(coords.Latitude))
	values.Set("lon", formatCoord(coords.Longitude))
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")

	resp, err := doRequestWithResilience(ctx, p.name, p.httpCfg, p.circuit, buildGet(p.baseURL, values))
	if err != nil {
		return weather.Reading{}, err
	}
	defer resp.Body.Close()

	var payload struct {
		Dt   int64 `json:"dt"`
		Main struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
		Weather []struct {
			Main        string `json:"main"`
			Description string `json:"description"`
		} `json:"weather"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Reading{}, fmt.Errorf("%w: %v", weather.ErrMalformedResponse, err)
	}
	if payload.Main.Temp == nil {
		return weather.Reading{}, fmt.Errorf("%w: missing main.temp", weather.ErrMalformedResponse)
	}
	if len(payload.Weather) == 0 {
		return weather.Reading{}, fmt.Errorf("%w: empty weather list", weather.ErrMalformedResponse)
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	desc := payload.Weather[0].Description
	if desc == "" {
		desc = payload.Weather[0].Main
	}

	return weather.Reading{
		ProviderName: p.name,
		Timestamp:    ts,
		TemperatureC: *payload.Main.Temp,
		Description:  desc,
	}, nil
}
