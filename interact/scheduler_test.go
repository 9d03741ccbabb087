package interact

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/automoto/stardrift-mp/world"
)

type fakeRenderer struct {
	shown  map[string]string
	hidden []string
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{shown: make(map[string]string)}
}

func (r *fakeRenderer) ShowPrompt(objectId, prompt string) { r.shown[objectId] = prompt }
func (r *fakeRenderer) HidePrompt(objectId string)         { r.hidden = append(r.hidden, objectId) }

func newTestWorld(t *testing.T) (*Registry, *Scheduler, *world.Store) {
	t.Helper()
	store := world.NewStore(world.FixedSpawner{}, zerolog.Nop())
	store.UpsertRoster([]string{"p1"}, map[string]string{"p1": "One"})
	registry := NewRegistry(zerolog.Nop())
	return registry, NewScheduler(registry, store, zerolog.Nop()), store
}

func TestRegistry_Defaults(t *testing.T) {
	registry := NewRegistry(zerolog.Nop())
	registry.Register("obj", ObjectConfig{})

	cfg, ok := registry.Get("obj")
	require.True(t, ok)
	assert.Equal(t, 1.0, cfg.Radius)
	assert.Equal(t, "e", cfg.Key)
	assert.False(t, cfg.Disabled)
	assert.False(t, cfg.HidePrompt)
}

func TestScheduler_EnterFiresOncePerRun(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	enters, exits := 0, 0
	registry.Register("obj", ObjectConfig{
		Position: spatial.V3(0, 0, 0),
		Radius:   2,
		OnEnter:  func(Interaction) { enters++ },
		OnExit:   func(Interaction) { exits++ },
	})

	store.SpawnPlayerAt("p1", spatial.V3(1, 0, 0))
	sched.Tick()
	sched.Tick()
	sched.Tick()
	assert.Equal(t, 1, enters, "enter fires once per contiguous in-range run")
	assert.Equal(t, 0, exits)

	store.SetPosition("p1", spatial.V3(10, 0, 0))
	sched.Tick()
	assert.Equal(t, 1, exits)

	store.SetPosition("p1", spatial.V3(0, 0, 1))
	sched.Tick()
	assert.Equal(t, 2, enters)
}

func TestScheduler_BoundaryIsInRange(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	enters := 0
	registry.Register("obj", ObjectConfig{
		Position: spatial.V3(0, 0, 0),
		Radius:   2,
		OnEnter:  func(Interaction) { enters++ },
	})

	store.SpawnPlayerAt("p1", spatial.V3(2, 0, 0))
	sched.Tick()
	assert.Equal(t, 1, enters, "distance exactly equal to the radius counts as in range")
}

func TestScheduler_DespawnedPlayersIgnored(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	enters := 0
	registry.Register("obj", ObjectConfig{
		Position: spatial.V3(0, 0, 0),
		Radius:   5,
		OnEnter:  func(Interaction) { enters++ },
	})

	store.SetPosition("p1", spatial.V3(0, 0, 0))
	sched.Tick()
	assert.Equal(t, 0, enters, "unspawned players do not interact")

	store.SpawnPlayerAt("p1", spatial.V3(0, 0, 0))
	sched.Tick()
	assert.Equal(t, 1, enters)
}

func TestScheduler_DisabledObjectSkipped(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	registry.Register("obj", ObjectConfig{Position: spatial.V3(0, 0, 0), Radius: 5})
	registry.Disable("obj")

	store.SpawnPlayerAt("p1", spatial.V3(0, 0, 0))
	sched.Tick()
	assert.Empty(t, sched.ForPlayer("p1"))

	registry.Enable("obj")
	sched.Tick()
	assert.Equal(t, []string{"obj"}, sched.ForPlayer("p1"))
}

func TestScheduler_Trigger(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	fired := 0
	var got Interaction
	registry.Register("obj", ObjectConfig{
		Position: spatial.V3(0, 0, 0),
		Radius:   2,
		Key:      "e",
		OnInteract: func(in Interaction) {
			fired++
			got = in
		},
	})

	store.SpawnPlayerAt("p1", spatial.V3(1, 0, 0))
	sched.Tick()

	assert.False(t, sched.Trigger("p1", "x"), "wrong key must not fire")
	assert.True(t, sched.Trigger("p1", "E"), "key match is case-insensitive")
	assert.Equal(t, 1, fired)
	assert.Equal(t, "p1", got.PlayerId)
	assert.Equal(t, "obj", got.ObjectId)
	assert.InDelta(t, 1.0, got.Distance, 1e-9)

	store.SetPosition("p1", spatial.V3(10, 0, 0))
	sched.Tick()
	assert.False(t, sched.Trigger("p1", "e"), "out of range must not fire")
	assert.Equal(t, 1, fired)
}

func TestScheduler_Prompts(t *testing.T) {
	registry, sched, store := newTestWorld(t)
	renderer := newFakeRenderer()

	registry.Register("obj", ObjectConfig{
		Position: spatial.V3(0, 0, 0),
		Radius:   2,
		Prompt:   "Press E",
		Renderer: renderer,
	})

	store.SpawnPlayerAt("p1", spatial.V3(0, 0, 0))
	sched.Tick()
	assert.Equal(t, "Press E", renderer.shown["obj"])

	store.SetPosition("p1", spatial.V3(10, 0, 0))
	sched.Tick()
	assert.Equal(t, []string{"obj"}, renderer.hidden)
}

func TestScheduler_HiddenPromptNotShown(t *testing.T) {
	registry, sched, store := newTestWorld(t)
	renderer := newFakeRenderer()

	registry.Register("obj", ObjectConfig{
		Position:   spatial.V3(0, 0, 0),
		Radius:     2,
		Prompt:     "secret",
		HidePrompt: true,
		Renderer:   renderer,
	})

	store.SpawnPlayerAt("p1", spatial.V3(0, 0, 0))
	sched.Tick()
	assert.Empty(t, renderer.shown)
}

func TestScheduler_Stats(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	registry.Register("near", ObjectConfig{Position: spatial.V3(0, 0, 0), Radius: 2})
	registry.Register("far", ObjectConfig{Position: spatial.V3(100, 0, 0), Radius: 2})

	store.SpawnPlayerAt("p1", spatial.V3(0, 0, 0))
	sched.Tick()

	stats := sched.Stats()
	assert.Equal(t, 2, stats.Objects)
	assert.Equal(t, 1, stats.ActivePairs)
	assert.Equal(t, []string{"p1"}, sched.ForObject("near"))
}

func TestScheduler_MoveFollowsObject(t *testing.T) {
	registry, sched, store := newTestWorld(t)

	registry.Register("obj", ObjectConfig{Position: spatial.V3(0, 0, 0), Radius: 2})
	store.SpawnPlayerAt("p1", spatial.V3(0, 0, 0))
	sched.Tick()
	require.Len(t, sched.ForPlayer("p1"), 1)

	registry.Move("obj", spatial.V3(50, 0, 0))
	sched.Tick()
	assert.Empty(t, sched.ForPlayer("p1"))
}
