package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/joho/godotenv"
	"github.com/kelvins/geocoder"

	httpapi "github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/api/http"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/config"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/geocode"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/location"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/logging"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/scheduler"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/store"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/weather/providers"
	"github.com/PsiSigmaCyber/OnePlus-Weather-Widget/internal/widget"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	lg := logging.New("weather-widget", cfg.LogLevel)
	slog.SetDefault(lg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Persisted last-known location.
	prefs, err := openPreferences(ctx, cfg, lg)
	if err != nil {
		log.Fatalf("failed to open preferences: %v", err)
	}
	defer prefs.Close()
	cache := location.NewCache(prefs)

	slot := location.NewSlot(cache, lg)
	go slot.Run(ctx)

	// Location source: fixed coordinates when configured, device pushes otherwise.
	var (
		locProvider location.Provider
		fixes       httpapi.FixSink
	)
	if cfg.StaticLocation != nil {
		locProvider = location.NewStaticProvider(*cfg.StaticLocation)
		lg.Info("using static location", "coords", cfg.StaticLocation.Key())
	} else {
		push := location.NewPushProvider()
		locProvider, fixes = push, push
	}
	refresher := location.NewRefresher(locProvider, slot, location.FixRequest{
		Provider:         cfg.LocationProvider,
		MinInterval:      cfg.LocationMinInterval,
		MinDisplacementM: cfg.LocationMinDisplacement,
	}, cfg.LocationFixTimeout, lg)

	// Single outbound weather provider. A zero timeout keeps the client default.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	apiKey := cfg.OpenWeatherAPIKey
	if cfg.WeatherProvider == providers.WeatherAPI {
		apiKey = cfg.WeatherAPIKey
	}
	prov, err := providers.New(cfg.WeatherProvider, httpClient, providers.Options{
		APIKey:     apiKey,
		BaseURL:    cfg.WeatherBaseURL,
		MaxRetries: cfg.WeatherMaxRetries,
	})
	if err != nil {
		log.Fatalf("failed to build weather provider: %v", err)
	}
	fetcher := weather.NewFetcher(prov, lg)

	var labeler widget.PlaceLabeler
	if cfg.GeocoderAPIKey != "" {
		geocoder.ApiKey = cfg.GeocoderAPIKey
		labeler = geocode.NewLabeler()
	}

	// Per-instance refresh alarm.
	sched := scheduler.New(cfg.RefreshInterval)
	sched.Start()
	defer sched.Stop()

	surface := widget.NewMemorySurface()

	loop, err := widget.NewLoop(widget.Deps{
		Cache:     cache,
		Refresher: refresher,
		Fetcher:   fetcher,
		Labeler:   labeler,
		Surface:   surface,
		Alarm:     sched,
		Logger:    lg,
	})
	if err != nil {
		log.Fatalf("failed to build update loop: %v", err)
	}
	defer loop.Close()

	app := fiber.New(fiber.Config{
		AppName:               "weather-widget",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-widget",
			"widgets": loop.Active(),
		})
	})

	httpapi.RegisterRoutes(app, httpapi.Deps{
		Host:    loop,
		Surface: surface,
		Fixes:   fixes,
		Cache:   cache,
	})

	if len(cfg.WidgetIDs) > 0 {
		ids := make([]widget.InstanceID, 0, len(cfg.WidgetIDs))
		for _, id := range cfg.WidgetIDs {
			ids = append(ids, widget.InstanceID(id))
		}
		loop.OnPlacementBatchUpdate(ctx, ids)
	}

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}

func openPreferences(ctx context.Context, cfg *config.AppConfig, lg *slog.Logger) (store.Preferences, error) {
	switch cfg.PrefsBackend {
	case "sqlite":
		lg.Info("preferences stored in sqlite", "path", cfg.PrefsSQLitePath)
		return store.NewSQLiteStore(cfg.PrefsSQLitePath, cfg.PrefsNamespace)
	case "valkey":
		client, err := store.DialValkey(cfg.PrefsValkeyAddr)
		if err != nil {
			return nil, err
		}
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := client.Do(pingCtx, client.B().Ping().Build()).Error(); err != nil {
			client.Close()
			return nil, err
		}
		lg.Info("preferences stored in valkey", "addr", cfg.PrefsValkeyAddr)
		return store.NewValkeyStore(client, cfg.PrefsNamespace), nil
	default:
		return store.NewMemoryStore(cfg.PrefsNamespace), nil
	}
}
