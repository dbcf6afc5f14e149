package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"codeberg.org/mutker/powerwatch/internal/collector"
	"codeberg.org/mutker/powerwatch/internal/config"
	"codeberg.org/mutker/powerwatch/internal/errors"
	"codeberg.org/mutker/powerwatch/internal/logger"
	"codeberg.org/mutker/powerwatch/internal/nvml"
	"codeberg.org/mutker/powerwatch/internal/pid"
	"codeberg.org/mutker/powerwatch/internal/rapl"
	"codeberg.org/mutker/powerwatch/internal/sensor"
	"codeberg.org/mutker/powerwatch/internal/sink"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const metricsReadTimeout = 5 * time.Second

var cfg *config.Config

func main() {
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

	sensors, cleanup := attachSensors()
	defer cleanup()

	if len(sensors) == 0 {
		logger.Fatal().Msg("No usable sensors found")
	}

	if cfg.Dump {
		dump(sensors)
		return
	}

	if err := pid.Write(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to write PID file")
	}
	defer func() {
		if err := pid.Remove(); err != nil {
			logger.Error().Err(err).Msg("Failed to remove PID file")
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if cfg.MetricsListen != "" {
		go serveMetrics(cfg.MetricsListen)
	}

	if err := collect(ctx, sensors); err != nil {
		logger.Error().Err(err).Msg("Error while collecting")
	}
	logger.Info().Msg("Exiting...")
}

func attachSensors() ([]sensor.Sensor, func()) {
	var sensors []sensor.Sensor
	var gpus []*nvml.PowerSensor

	if cfg.NVML {
		var err error
		gpus, err = nvml.ForAll()
		if err != nil {
			logger.Warn().Err(err).Msg("NVML unavailable; skipping GPU sensors")
		}
		for _, g := range gpus {
			sensors = append(sensors, g)
		}
	}

	if cfg.RAPL {
		zones, err := rapl.ForAll()
		if err != nil {
			logger.Warn().Err(err).Msg("Powercap unavailable; skipping RAPL sensors")
		}
		for _, z := range zones {
			sensors = append(sensors, z)
		}
	}

	logger.Info().Int("sensors", len(sensors)).Msg("Sensors attached")

	return sensors, func() {
		for _, g := range gpus {
			if err := g.Close(); err != nil {
				logger.Error().Err(err).Str("sensor", g.Name()).Msg("Failed to close sensor")
			}
		}
	}
}

// dump samples every sensor once and logs the readings.
func dump(sensors []sensor.Sensor) {
	resolution := cfg.TimestampResolution()

	for _, s := range sensors {
		m, err := s.Sample(resolution)
		if err != nil {
			logger.Error().Err(err).Str("sensor", s.Name()).Msg("Sample failed")
			continue
		}

		logger.Info().
			Str("sensor", m.Sensor).
			Int64("timestamp", m.Timestamp.Value).
			Float64("voltage", m.Voltage).
			Float64("current", m.Current).
			Float64("power", m.Power).
			Msg("")
	}
}

func collect(ctx context.Context, sensors []sensor.Sensor) error {
	snk, err := newSink()
	if err != nil {
		return err
	}

	col, err := collector.New(collector.Config{
		Interval:      cfg.SamplingInterval(),
		Resolution:    cfg.TimestampResolution(),
		RequireMarker: cfg.RequireMarker,
	}, snk, sensors...)
	if err != nil {
		snk.Close()
		return err
	}

	if cfg.Marker != "" {
		if err := col.Marker(cfg.Marker); err != nil {
			snk.Close()
			return err
		}
	}

	if err := col.Start(); err != nil {
		snk.Close()
		return err
	}
	logger.Info().
		Str("output", cfg.Output).
		Str("format", cfg.Format).
		Int("sensors", col.Size()).
		Msg("Collection started")

	<-ctx.Done()

	stopErr := col.Stop()
	if err := snk.Close(); err != nil {
		logger.Error().Err(err).Msg("Failed to close output sink")
	}

	return stopErr
}

func newSink() (sink.Sink, error) {
	errFactory := errors.New()

	switch cfg.Format {
	case config.FormatCSV:
		return sink.NewCSV(cfg.Output)
	case config.FormatSQLite:
		return sink.NewSQLite(cfg.Output)
	default:
		return nil, errFactory.WithData(errors.ErrInvalidConfig, cfg.Format)
	}
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:        addr,
		Handler:     mux,
		ReadTimeout: metricsReadTimeout,
	}

	logger.Info().Str("addr", addr).Msg("Serving Prometheus metrics")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Metrics listener failed")
	}
}

func handleSignals(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	<-sigs
	logger.Info().Msg("Received termination signal.")
	cancel()
}
