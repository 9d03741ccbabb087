package main

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SessionInfo describes a relay session visible to clients.
type SessionInfo struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Address    string `json:"address"`
	Players    int    `json:"players"`
	MaxPlayers int    `json:"maxPlayers"`
	Version    string `json:"version"`
	Region     string `json:"region"`
}

type sessionRecord struct {
	SessionInfo
	LastSeen time.Time
}

// Registry is an in-memory store of active relay sessions with TTL-based
// expiry.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*sessionRecord
	ttl      time.Duration
	log      zerolog.Logger
	stopCh   chan struct{}
}

func NewRegistry(ttl time.Duration, log zerolog.Logger) *Registry {
	r := &Registry{
		sessions: make(map[string]*sessionRecord),
		ttl:      ttl,
		log:      log,
		stopCh:   make(chan struct{}),
	}
	go r.cleanupLoop()
	return r
}

func (r *Registry) Stop() {
	close(r.stopCh)
}

func (r *Registry) Register(info SessionInfo) string {
	id := uuid.NewString()
	info.ID = id

	r.mu.Lock()
	r.sessions[id] = &sessionRecord{
		SessionInfo: info,
		LastSeen:    time.Now(),
	}
	r.mu.Unlock()

	return id
}

func (r *Registry) Heartbeat(id string, players int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.sessions[id]
	if !ok {
		return false
	}
	rec.LastSeen = time.Now()
	rec.Players = players
	return true
}

func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]SessionInfo, 0, len(r.sessions))
	for _, rec := range r.sessions {
		result = append(result, rec.SessionInfo)
	}
	return result
}

func (r *Registry) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ticker.C:
			r.mu.Lock()
			now := time.Now()
			for id, rec := range r.sessions {
				if now.Sub(rec.LastSeen) >= r.ttl {
					r.log.Info().
						Str("name", rec.Name).
						Str("sessionId", id).
						Dur("silent", now.Sub(rec.LastSeen).Round(time.Second)).
						Msg("session expired")
					delete(r.sessions, id)
				}
			}
			r.mu.Unlock()
		}
	}
}
