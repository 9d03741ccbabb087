// Package interact tracks proximity-triggered objects: registration, radial
// range checks against spawned players, and keyed activation.
package interact

import (
	"sync"

	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/rs/zerolog"
)

// PromptRenderer presents and clears interaction prompts. A nil renderer on
// an object means no prompt is shown for it.
type PromptRenderer interface {
	ShowPrompt(objectId, prompt string)
	HidePrompt(objectId string)
}

// Interaction is the payload handed to object callbacks.
type Interaction struct {
	PlayerId       string
	ObjectId       string
	Distance       float64
	PlayerPosition spatial.Vec3
	Config         ObjectConfig
}

// ObjectConfig describes one interactable object. Zero-valued fields are
// filled with defaults at registration; prompts show and objects are enabled
// unless opted out.
type ObjectConfig struct {
	Type       string
	Position   spatial.Vec3
	Radius     float64
	Key        string
	Prompt     string
	HidePrompt bool
	Disabled   bool
	VehicleId  string

	OnEnter    func(Interaction)
	OnExit     func(Interaction)
	OnInteract func(Interaction)

	Renderer PromptRenderer
}

const (
	defaultRadius = 1.0
	defaultKey    = "e"
)

// Registry holds the interactable objects keyed by id.
type Registry struct {
	mu      sync.Mutex
	objects map[string]ObjectConfig
	order   []string
	log     zerolog.Logger
}

func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{
		objects: make(map[string]ObjectConfig),
		log:     log.With().Str("component", "interact").Logger(),
	}
}

// Register adds an object under id, applying defaults for radius and key.
// Registering an existing id replaces its config but keeps its slot in
// iteration order.
func (r *Registry) Register(id string, cfg ObjectConfig) {
	if cfg.Radius <= 0 {
		cfg.Radius = defaultRadius
	}
	if cfg.Key == "" {
		cfg.Key = defaultKey
	}

	r.mu.Lock()
	if _, exists := r.objects[id]; !exists {
		r.order = append(r.order, id)
	}
	r.objects[id] = cfg
	r.mu.Unlock()

	r.log.Debug().Str("objectId", id).Str("type", cfg.Type).Msg("object registered")
}

// Unregister removes an object. Unknown ids are no-ops.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.objects[id]; !exists {
		return
	}
	delete(r.objects, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Update mutates an object's config in place. Unknown ids are no-ops.
func (r *Registry) Update(id string, fn func(*ObjectConfig)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.objects[id]
	if !ok {
		return
	}
	fn(&cfg)
	r.objects[id] = cfg
}

// Enable marks an object active for range checks and triggering.
func (r *Registry) Enable(id string) {
	r.Update(id, func(cfg *ObjectConfig) { cfg.Disabled = false })
}

// Disable removes an object from range checks without unregistering it.
func (r *Registry) Disable(id string) {
	r.Update(id, func(cfg *ObjectConfig) { cfg.Disabled = true })
}

// SetPrompt replaces an object's prompt text.
func (r *Registry) SetPrompt(id, prompt string) {
	r.Update(id, func(cfg *ObjectConfig) { cfg.Prompt = prompt })
}

// Move relocates an object's trigger position.
func (r *Registry) Move(id string, pos spatial.Vec3) {
	r.Update(id, func(cfg *ObjectConfig) { cfg.Position = pos })
}

// Get returns a copy of an object's config.
func (r *Registry) Get(id string) (ObjectConfig, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cfg, ok := r.objects[id]
	return cfg, ok
}

// All returns the registered object ids in registration order.
func (r *Registry) All() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.order...)
}

// Len reports the number of registered objects.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.objects)
}

func (r *Registry) snapshot() ([]string, map[string]ObjectConfig) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := append([]string(nil), r.order...)
	objects := make(map[string]ObjectConfig, len(r.objects))
	for id, cfg := range r.objects {
		objects[id] = cfg
	}
	return ids, objects
}
