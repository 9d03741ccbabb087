// Package world holds the canonical in-process tables of players and
// vehicles. It is pure data plus narrow mutators; it never touches the
// network. The sync bridge and the local input loop are its only writers.
package world

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/shared/spatial"
)

// Store is the player entity table, keyed by user id and ordered by roster
// arrival. All methods are safe for concurrent use: relay callbacks arrive
// on transport goroutines while the frame loop reads.
type Store struct {
	mu      sync.RWMutex
	order   []string
	players map[string]*Player
	spawner SpawnPointProvider
	log     zerolog.Logger
}

// NewStore builds an empty player table. The spawner supplies positions for
// spawns that do not name one.
func NewStore(spawner SpawnPointProvider, log zerolog.Logger) *Store {
	return &Store{
		players: make(map[string]*Player),
		spawner: spawner,
		log:     log.With().Str("component", "world.store").Logger(),
	}
}

// UpsertRoster reconciles the table against the connected-user roster: new
// ids get default entries, departed ids are dropped, nicknames refresh.
// The roster arrives at high frequency from the transport layer, so the
// call compares by value first and reports false without touching the table
// when nothing changed.
func (s *Store) UpsertRoster(userIds []string, nicknames map[string]string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.rosterChanged(userIds, nicknames) {
		return false
	}

	next := make(map[string]*Player, len(userIds))
	order := make([]string, 0, len(userIds))
	for _, id := range userIds {
		if p, ok := s.players[id]; ok {
			// A roster without a name for a known id keeps the current one.
			if nn := nicknames[id]; nn != "" {
				p.Nickname = nn
			}
			next[id] = p
		} else {
			next[id] = &Player{
				UserId:   id,
				Nickname: nicknames[id],
			}
			s.log.Debug().Str("userId", id).Msg("player joined roster")
		}
		order = append(order, id)
	}
	for id := range s.players {
		if _, ok := next[id]; !ok {
			s.log.Debug().Str("userId", id).Msg("player left roster")
		}
	}

	s.players = next
	s.order = order
	return true
}

func (s *Store) rosterChanged(userIds []string, nicknames map[string]string) bool {
	if len(userIds) != len(s.order) {
		return true
	}
	for i, id := range userIds {
		if s.order[i] != id {
			return true
		}
		p, ok := s.players[id]
		if !ok {
			return true
		}
		if nn := nicknames[id]; nn != "" && p.Nickname != nn {
			return true
		}
	}
	return false
}

// SpawnPlayer marks the player spawned at a position from the spawn-point
// provider. Unknown ids are a no-op: the id may have disconnected mid-flight.
func (s *Store) SpawnPlayer(userId string) {
	s.SpawnPlayerAt(userId, s.spawner.SpawnPoint())
}

// SpawnPlayerAt marks the player spawned at an explicit position.
func (s *Store) SpawnPlayerAt(userId string, pos spatial.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.players[userId]
	if !ok {
		return
	}
	p.IsSpawned = true
	p.Position = pos
}

// SetSpawned overwrites the spawn flag without touching the position. The
// sync path uses it: a replicated spawn must keep the replicated position,
// not roll a fresh spawn point.
func (s *Store) SetSpawned(userId string, spawned bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[userId]; ok {
		p.IsSpawned = spawned
	}
}

// DespawnPlayer clears the spawn flag without deleting the entity; the
// player keeps existing while piloting a vehicle.
func (s *Store) DespawnPlayer(userId string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[userId]; ok {
		p.IsSpawned = false
	}
}

// SetPosition overwrites the player's world position.
func (s *Store) SetPosition(userId string, pos spatial.Vec3) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[userId]; ok {
		p.Position = pos
	}
}

// SetRotation overwrites the player's rotation.
func (s *Store) SetRotation(userId string, rot spatial.Euler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[userId]; ok {
		p.Rotation = rot
	}
}

// SetController assigns the local-input flag. Setting it on one player
// clears it on every other entry in the same call, so at most one entry
// carries the flag regardless of caller discipline.
func (s *Store) SetController(userId string, isController bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.players {
		p.IsController = id == userId && isController
	}
}

// SetCameraOwner assigns the camera-owner flag on one player. Unlike the
// controller flag it is not exclusive.
func (s *Store) SetCameraOwner(userId string, isOwner bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p, ok := s.players[userId]; ok {
		p.IsCameraOwner = isOwner
	}
}

// Get returns a copy of the player, so callers cannot alias store state.
func (s *Store) Get(userId string) (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[userId]
	if !ok {
		return Player{}, false
	}
	return *p, true
}

// IsCameraOwner reports whether the named player currently owns the camera.
func (s *Store) IsCameraOwner(userId string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.players[userId]
	return ok && p.IsCameraOwner
}

// AllSpawned returns copies of every spawned player in roster order.
func (s *Store) AllSpawned() []Player {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Player, 0, len(s.order))
	for _, id := range s.order {
		if p := s.players[id]; p.IsSpawned {
			out = append(out, *p)
		}
	}
	return out
}

// Controller returns the player carrying the local-input flag, if any.
func (s *Store) Controller() (Player, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.players {
		if p.IsController {
			return *p, true
		}
	}
	return Player{}, false
}

// Roster returns the current user ids in roster order.
func (s *Store) Roster() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Len returns the number of tracked players.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.players)
}

// Clear drops every player; used when leaving a session.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players = make(map[string]*Player)
	s.order = nil
}
