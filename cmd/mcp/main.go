package main

import (
	"context"
	"flag"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/urmzd/hearth/pkg/actuator"
	"github.com/urmzd/hearth/pkg/automation"
	"github.com/urmzd/hearth/pkg/clock"
	"github.com/urmzd/hearth/pkg/config"
	"github.com/urmzd/hearth/pkg/db"
	hearthmcp "github.com/urmzd/hearth/pkg/mcp"
)

var version = "dev"

func main() {
	// stdout is the MCP transport
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	dbPath := flag.String("db", "", "Path to database file (default: ~/.config/hearth/hearth.db)")
	configPath := flag.String("config", "", "Path to YAML config overlay (default: $HEARTH_CONFIG)")
	serialPort := flag.String("serial", "", "Actuator bus serial port (default: loopback)")
	flag.Parse()

	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *serialPort != "" {
		cfg.Serial.Port = *serialPort
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

	driver := actuator.OpenDriver(cfg.Serial)
	defer func() { _ = driver.Close() }()

	svc, err := automation.Build(ctx, cfg, database, driver, clock.System{})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build automation service")
	}

	mcpServer := hearthmcp.NewServer(svc, version)

	log.Info().Msg("Starting MCP server on stdio")

	if err := mcpServer.ServeStdio(); err != nil {
		log.Fatal().Err(err).Msg("MCP server failed")
	}
}
