package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"codeberg.org/mutker/pidashd/internal/api"
	"codeberg.org/mutker/pidashd/internal/config"
	"codeberg.org/mutker/pidashd/internal/containers"
	"codeberg.org/mutker/pidashd/internal/logger"
	"codeberg.org/mutker/pidashd/internal/metrics"
	"codeberg.org/mutker/pidashd/internal/notes"
	"codeberg.org/mutker/pidashd/internal/pid"
	"codeberg.org/mutker/pidashd/internal/telemetry"
	"codeberg.org/mutker/pidashd/internal/weather"
)

const shutdownTimeout = 10 * time.Second

var cfg *config.Config

func init() {
	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.LogLevel, logger.IsService()); err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logger.Debug().Msg("Config loaded")
}

func main() {
	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx); err != nil {
		logger.Error().Err(err).Msg("error in main loop")
	}
	logger.Info().Msg("Exiting...")
}

func run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	noteStore, err := notes.NewStore(cfg.Server.DataDir)
	if err != nil {
		return err
	}

	telemetryCfg := telemetry.DefaultConfig()
	telemetryCfg.Enabled = cfg.Telemetry.Enabled
	telemetryCfg.DBPath = cfg.Telemetry.Database

	recorder, err := telemetry.NewService(telemetryCfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := recorder.Close(); err != nil {
			logger.Error().Err(err).Msg("failed to close telemetry recorder")
		}
	}()

	collector := metrics.NewSystemCollector()
	history := metrics.NewHistory()
	sampler := metrics.NewSampler(
		collector,
		history,
		recorder,
		time.Duration(cfg.Metrics.CollectionInterval)*time.Second,
		int64(cfg.Metrics.MaxHistoryDuration),
	)

	server := api.NewServer(
		api.Config{
			Host:               cfg.Server.Host,
			Port:               cfg.Server.Port,
			APIKey:             cfg.Server.APIKey,
			MaxHistoryDuration: cfg.Metrics.MaxHistoryDuration,
		},
		api.Deps{
			System:  collector,
			History: history,
			Notes:   noteStore,
			Weather: weather.NewClient(weather.Config{
				Latitude:      cfg.Weather.Latitude,
				Longitude:     cfg.Weather.Longitude,
				LocationName:  cfg.Weather.LocationName,
				ForecastHours: cfg.Weather.ForecastHours,
			}),
			Containers: containers.NewManager(containers.Config{
				Enabled:     cfg.Containers.Enabled,
				StopTimeout: cfg.Containers.StopTimeout,
			}),
		},
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		sampler.Run(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		cancel()
		wg.Wait()
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancelShutdown()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shut down HTTP server")
	}

	wg.Wait()
	return <-serveErr
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
