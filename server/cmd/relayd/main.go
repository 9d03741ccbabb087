package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/config"
	"github.com/automoto/stardrift-mp/server/core"
)

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	port := flag.Uint("port", settings.Relay.ListenPort, "Relay listen port")
	name := flag.String("name", settings.Relay.SessionName, "Session display name")
	version := flag.String("version", "", "Required client version (empty = accept any)")
	sweepRate := flag.Int("sweeprate", settings.Relay.SweepRate, "Seconds between stale client sweeps")
	masterURL := flag.String("master", settings.Master.URL, "Master directory URL (empty = no registration)")
	address := flag.String("address", settings.Relay.Address, "Public address advertised to the master")
	maxPlayers := flag.Int("maxplayers", 16, "Advertised player capacity")
	region := flag.String("region", "", "Advertised region")
	flag.Parse()

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	server := core.NewServer(*name, *version, *sweepRate, log)

	var registration *core.Registration
	if *masterURL != "" {
		registration = core.NewRegistration(*masterURL, *name, *address, *version, *region, *maxPlayers, server, log)
		registration.Start()
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info().Msg("shutting down")
		if registration != nil {
			registration.Stop()
		}
		server.Stop()
		os.Exit(0)
	}()

	log.Info().
		Str("name", *name).
		Uint("port", *port).
		Str("version", *version).
		Msg("starting relay")
	if err := server.Start(*port); err != nil {
		log.Fatal().Err(err).Msg("relay failed")
	}
}
