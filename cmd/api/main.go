package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/api"
	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/db"
	"github.com/urmzd/hearth/pkg/ingest/mqtt"
	"github.com/urmzd/hearth/pkg/metrics"
)

// @title           Hearth API
// @version         1.0
// @description     REST API for building sensor telemetry and actuator control

// @host      localhost:8080
// @BasePath  /api/v1
// @schemes   http https

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/hearth/hearth.db)")
	configPath := flag.String("config", "", "Path to YAML config overlay (default: $HEARTH_CONFIG)")
	serialPort := flag.String("serial", "", "Actuator bus serial port (default: loopback)")
	broker := flag.String("mqtt", "", "MQTT broker URL for telemetry ingest")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
	}
	if *broker != "" {
		cfg.MQTT.Broker = *broker
	}

	database, err := db.OpenAndMigrate(ctx, *dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()
	log.Info().Str("path", database.Path()).Msg("Database opened")

	metrics.Init(database.DB)

	profile, err := database.ActiveProfile(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load profile")
	}
	log.Info().
		Str("profile", profile.Name).
		Str("timezone", profile.Timezone).
		Str("api_address", profile.Address()).
		Msg("Configuration loaded")

	driver := actuator.OpenDriver(cfg.Serial)
	defer func() {
		if err := driver.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close actuator driver")
		}
	}()

	svc, err := automation.Build(ctx, cfg, database, driver, clock.System{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build automation service")
	}

	var sub *mqtt.Subscriber
	if cfg.MQTT.Broker != "" {
		sub = mqtt.New(cfg.MQTT, svc)
		if err := sub.Start(ctx); err != nil {
			log.Warn().Err(err).Str("broker", cfg.MQTT.Broker).Msg("MQTT ingest unavailable")
			sub = nil
		}
	}

	router := api.NewRouter(svc)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Info().Msg("Shutting down...")
		cancel()
		if sub != nil {
			sub.Stop()
		}
		if err := driver.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close actuator driver")
		}
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
		os.Exit(0)
	}()

	addr := profile.Address()
	log.Info().Str("address", addr).Msg("Starting API server")

	if err := router.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Server failed")
	}
}
