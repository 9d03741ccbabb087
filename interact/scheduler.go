package interact

import (
	"strings"
	"sync"

	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/automoto/stardrift-mp/world"
	"github.com/rs/zerolog"
)

// pair is one player standing inside one object's radius.
type pair struct {
	playerId string
	objectId string
}

// Stats summarizes the scheduler state for diagnostics overlays.
type Stats struct {
	Objects     int
	ActivePairs int
}

// Scheduler runs the per-frame proximity sweep over spawned players and
// enabled objects, firing enter and exit callbacks on set transitions and
// interact callbacks on key activation. Callbacks run outside the scheduler
// lock, so they may re-enter the registry.
type Scheduler struct {
	mu sync.Mutex

	registry *Registry
	store    *world.Store
	log      zerolog.Logger

	active map[pair]Interaction
}

func NewScheduler(registry *Registry, store *world.Store, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		registry: registry,
		store:    store,
		log:      log.With().Str("component", "interact-scheduler").Logger(),
		active:   make(map[pair]Interaction),
	}
}

// Tick recomputes the active pair set and fires OnEnter for pairs that came
// into range and OnExit for pairs that left. A pair exactly on the radius
// counts as in range. Prompts follow the enter and exit transitions.
func (s *Scheduler) Tick() {
	ids, objects := s.registry.snapshot()
	players := s.store.AllSpawned()

	next := make(map[pair]Interaction)
	for _, player := range players {
		for _, objectId := range ids {
			cfg := objects[objectId]
			if cfg.Disabled {
				continue
			}
			dist := spatial.Distance(player.Position, cfg.Position)
			if dist > cfg.Radius {
				continue
			}
			next[pair{player.UserId, objectId}] = Interaction{
				PlayerId:       player.UserId,
				ObjectId:       objectId,
				Distance:       dist,
				PlayerPosition: player.Position,
				Config:         cfg,
			}
		}
	}

	s.mu.Lock()
	prev := s.active
	s.active = next
	s.mu.Unlock()

	var entered, exited []Interaction
	for p, in := range next {
		if _, was := prev[p]; !was {
			entered = append(entered, in)
		}
	}
	for p, in := range prev {
		if _, still := next[p]; !still {
			exited = append(exited, in)
		}
	}

	for _, in := range entered {
		if in.Config.Renderer != nil && !in.Config.HidePrompt && in.Config.Prompt != "" {
			in.Config.Renderer.ShowPrompt(in.ObjectId, in.Config.Prompt)
		}
		if in.Config.OnEnter != nil {
			in.Config.OnEnter(in)
		}
	}
	for _, in := range exited {
		if in.Config.Renderer != nil {
			in.Config.Renderer.HidePrompt(in.ObjectId)
		}
		if in.Config.OnExit != nil {
			in.Config.OnExit(in)
		}
	}
}

// Trigger fires OnInteract for every active pair of playerId whose object
// key matches, case-insensitively. It reports whether anything fired.
func (s *Scheduler) Trigger(playerId, key string) bool {
	s.mu.Lock()
	var matches []Interaction
	for p, in := range s.active {
		if p.playerId != playerId {
			continue
		}
		if !strings.EqualFold(in.Config.Key, key) {
			continue
		}
		matches = append(matches, in)
	}
	s.mu.Unlock()

	fired := false
	for _, in := range matches {
		// Re-read: the callback set may have changed since the last Tick.
		cfg, ok := s.registry.Get(in.ObjectId)
		if !ok || cfg.Disabled {
			continue
		}
		if cfg.OnInteract != nil {
			in.Config = cfg
			cfg.OnInteract(in)
			fired = true
		}
	}
	return fired
}

// ForPlayer returns the object ids the player is currently in range of.
func (s *Scheduler) ForPlayer(playerId string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for p := range s.active {
		if p.playerId == playerId {
			out = append(out, p.objectId)
		}
	}
	return out
}

// ForObject returns the player ids currently in range of the object.
func (s *Scheduler) ForObject(objectId string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for p := range s.active {
		if p.objectId == objectId {
			out = append(out, p.playerId)
		}
	}
	return out
}

// Stats reports registry and active pair counts.
func (s *Scheduler) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Objects:     s.registry.Len(),
		ActivePairs: len(s.active),
	}
}

// ClearActive drops all active pairs without firing exits. Used when the
// local world resets, such as on disconnect.
func (s *Scheduler) ClearActive() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = make(map[pair]Interaction)
}
