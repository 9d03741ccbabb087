package core

import (
	"time"

	"github.com/automoto/stardrift-mp/shared/wire"
)

// staleCutoff is how long a client may stay silent before the sweeper drops
// it. Clients heartbeat every 10 seconds.
const staleCutoff = 30 * time.Second

// Sweeper periodically evicts clients that stopped heartbeating, so a dead
// connection cannot hold its avatar keys forever.
type Sweeper struct {
	server   *Server
	interval time.Duration
	stopChan chan struct{}
}

// NewSweeper creates a sweeper running every rate seconds.
func NewSweeper(server *Server, rate int) *Sweeper {
	if rate <= 0 {
		rate = 2
	}
	return &Sweeper{
		server:   server,
		interval: time.Duration(rate) * time.Second,
		stopChan: make(chan struct{}),
	}
}

func (s *Sweeper) Run() {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.server.log.Info().Dur("interval", s.interval).Msg("sweep loop started")

	for {
		select {
		case <-s.stopChan:
			s.server.log.Info().Msg("sweep loop stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

func (s *Sweeper) Stop() {
	close(s.stopChan)
}

func (s *Sweeper) sweep() {
	stale := s.server.staleClients(staleCutoff)
	if len(stale) == 0 {
		return
	}

	srv := s.server
	srv.mu.Lock()
	dropped := 0
	for _, client := range stale {
		info, ok := srv.clients[client]
		if !ok {
			continue
		}
		delete(srv.clients, client)
		dropped++
		if !info.joined {
			continue
		}
		for key := range srv.values {
			if _, owner := wire.KindOf(key); owner == info.userId {
				delete(srv.values, key)
			}
		}
		srv.log.Info().Str("userId", info.userId).Msg("stale client evicted")
	}
	srv.mu.Unlock()

	if dropped > 0 {
		srv.broadcastRoster()
	}
}
