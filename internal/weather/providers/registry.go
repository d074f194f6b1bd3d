package providers

import (
	"fmt"
	"net/http"

	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
)

// Names of the supported providers, as accepted by New.
const (
	OpenWeather = "openweather"
	OpenMeteo   = "openmeteo"
	WeatherAPI  = "weatherapi"
)

// New builds the provider registered under name.
func New(name string, client *http.Client, opts Options) (weather.Provider, error) {
	switch name {
	case OpenWeather, "":
		return NewOpenWeatherProvider(client, opts), nil
	case OpenMeteo:
		return NewOpenMeteoProvider(client, opts), nil
	case WeatherAPI:
		return NewWeatherAPIProvider(client, opts), nil
	default:
		return nil, fmt.Errorf("unknown weather provider %q", name)
	}
}
