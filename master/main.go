package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
)

func main() {
	port := flag.Int("port", 8080, "HTTP listen port")
	ttl := flag.Duration("ttl", 90*time.Second, "Session TTL before expiry")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		With().Timestamp().Str("component", "master").Logger()

	reg := NewRegistry(*ttl, log)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /sessions", ListSessions(reg, log))
	mux.HandleFunc("POST /sessions/register", RegisterSession(reg, log))
	mux.HandleFunc("POST /sessions/heartbeat", Heartbeat(reg))
	mux.HandleFunc("GET /health", Health())

	addr := fmt.Sprintf(":%d", *port)
	log.Info().Str("addr", addr).Dur("ttl", *ttl).Msg("starting")
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatal().Err(err).Msg("listen failed")
	}
}
