package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/config"
	"github.com/automoto/stardrift-mp/relay"
	"github.com/automoto/stardrift-mp/session"
	"github.com/automoto/stardrift-mp/shared/spatial"
)

// Version is the client protocol version sent in the join handshake.
const Version = "0.1.0"

// wanderer is a headless transform source: it drifts around the deck so the
// client exercises the full replication path without a renderer attached.
type wanderer struct {
	mu      sync.Mutex
	pos     spatial.Vec3
	heading float64
	speed   float64
	rng     *rand.Rand
}

func newWanderer(start spatial.Vec3) *wanderer {
	return &wanderer{
		pos:   start,
		speed: 2,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (w *wanderer) Step(dt float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.heading += (w.rng.Float64() - 0.5) * dt
	w.pos = w.pos.Add(spatial.V3(
		math.Sin(w.heading)*w.speed*dt,
		0,
		math.Cos(w.heading)*w.speed*dt,
	))
}

func (w *wanderer) Teleport(pos spatial.Vec3) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pos = pos
}

func (w *wanderer) Transform() (spatial.Vec3, float64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.pos, w.heading
}

func main() {
	settings, err := config.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load settings: %v\n", err)
		os.Exit(1)
	}

	address := flag.String("address", settings.Relay.Address, "Relay address (host:port)")
	nickname := flag.String("nickname", settings.Client.Nickname, "Player nickname")
	tickRate := flag.Int("tickrate", settings.Client.TickRate, "Client updates per second")
	flag.Parse()

	level, err := zerolog.ParseLevel(settings.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()

	if err := session.InitPersistence(log); err == nil {
		if profile, err := session.LoadProfile(log); err == nil && profile != nil {
			session.ApplyProfile(profile)
			if *nickname == "" {
				*nickname = profile.Nickname
			}
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	client, err := relay.Dial(ctx, *address, Version, *nickname, log)
	cancel()
	if err != nil {
		log.Fatal().Err(err).Str("address", *address).Msg("could not join relay")
	}

	s := session.New(client, log)
	defer s.Close()

	bot := newWanderer(spatial.FromArray(config.World.SpawnDeck))
	s.SetTransformSource(bot)
	s.Spawn()
	if p, ok := s.Store.Get(s.LocalId()); ok {
		bot.Teleport(p.Position)
	}

	log.Info().
		Str("userId", s.LocalId()).
		Str("session", client.SessionName()).
		Msg("joined session")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	interval := time.Second / time.Duration(*tickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-sigChan:
			log.Info().Msg("shutting down")
			_ = session.SaveProfile(log, session.SnapshotProfile(client.Nickname()))
			_ = client.Close()
			return
		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now
			bot.Step(dt)
			s.Update(dt)
		}
	}
}
