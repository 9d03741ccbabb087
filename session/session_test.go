package session

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automoto/stardrift-mp/camera"
	"github.com/automoto/stardrift-mp/config"
	"github.com/automoto/stardrift-mp/relay"
	"github.com/automoto/stardrift-mp/shared/spatial"
)

type fixedSource struct {
	pos spatial.Vec3
	yaw float64
}

func (f *fixedSource) Transform() (spatial.Vec3, float64) { return f.pos, f.yaw }

func newPair(t *testing.T) (*relay.Hub, *Session, *Session) {
	t.Helper()
	hub := relay.NewHub()
	clientA := hub.JoinAs("a", "Alice")
	clientB := hub.JoinAs("b", "Bob")
	sessA := New(clientA, zerolog.Nop())
	sessB := New(clientB, zerolog.Nop())
	t.Cleanup(func() {
		sessA.Close()
		sessB.Close()
	})
	return hub, sessA, sessB
}

func TestSession_SpawnReplicates(t *testing.T) {
	_, sessA, sessB := newPair(t)

	sessA.Spawn()

	pLocal, ok := sessA.Store.Get("a")
	require.True(t, ok)
	assert.True(t, pLocal.IsSpawned)

	pRemote, ok := sessB.Store.Get("a")
	require.True(t, ok)
	assert.True(t, pRemote.IsSpawned)
	assert.Equal(t, pLocal.Position, pRemote.Position)
}

func TestSession_SpawnMakesLocalPlayerController(t *testing.T) {
	_, sessA, _ := newPair(t)

	sessA.Spawn()

	c, ok := sessA.Store.Controller()
	require.True(t, ok)
	assert.Equal(t, "a", c.UserId)

	v := sessA.SpawnVehicle()
	require.True(t, sessA.EnterVehicle(v.Id))
	c, ok = sessA.Store.Controller()
	require.True(t, ok)
	assert.Equal(t, "a", c.UserId)

	require.True(t, sessA.ExitVehicle())
	c, ok = sessA.Store.Controller()
	require.True(t, ok)
	assert.Equal(t, "a", c.UserId)
}

func TestSession_TransformReplicatesOnUpdate(t *testing.T) {
	_, sessA, sessB := newPair(t)
	sessA.Spawn()

	src := &fixedSource{pos: spatial.V3(3, 0, 4), yaw: 1.5}
	sessA.SetTransformSource(src)
	sessA.Update(0.016)

	p, ok := sessB.Store.Get("a")
	require.True(t, ok)
	assert.Equal(t, spatial.V3(3, 0, 4), p.Position)
	assert.InDelta(t, 1.5, p.Rotation.Y, 1e-9)
}

func TestSession_SpawnVehicleReplicates(t *testing.T) {
	_, sessA, sessB := newPair(t)

	v := sessA.SpawnVehicle()

	got, ok := sessB.Vehicles.Get(v.Id)
	require.True(t, ok)
	assert.Empty(t, got.ControlledBy)
	assert.InDelta(t, config.World.SpawnerHeight, got.Position.Y(), 1e-9)
}

func TestSession_EnterExitVehicleFlow(t *testing.T) {
	_, sessA, sessB := newPair(t)
	sessA.Spawn()
	v := sessA.SpawnVehicle()

	require.True(t, sessA.EnterVehicle(v.Id))

	t.Run("pilot despawns and controls", func(t *testing.T) {
		p, _ := sessA.Store.Get("a")
		assert.False(t, p.IsSpawned)
		assert.True(t, p.IsController)
		assert.Equal(t, camera.ModeVehicle, sessA.Camera.Mode())
	})

	t.Run("claim replicates", func(t *testing.T) {
		got, _ := sessB.Vehicles.Get(v.Id)
		assert.Equal(t, "a", got.ControlledBy)
		p, _ := sessB.Store.Get("a")
		assert.False(t, p.IsSpawned)
	})

	t.Run("second claim refused", func(t *testing.T) {
		assert.False(t, sessB.EnterVehicle(v.Id))
	})

	sessA.Vehicles.SetPosition(v.Id, spatial.V3(30, 10, 30))
	require.True(t, sessA.ExitVehicle())

	t.Run("avatar reappears above the vehicle", func(t *testing.T) {
		p, _ := sessA.Store.Get("a")
		assert.True(t, p.IsSpawned)
		assert.Equal(t, spatial.V3(30, 10+config.World.VehicleExitLift, 30), p.Position)
		assert.True(t, p.IsController)
		assert.Equal(t, camera.ModePlayer, sessA.Camera.Mode())
		assert.True(t, sessA.Camera.InTransition())
	})

	t.Run("release replicates", func(t *testing.T) {
		got, _ := sessB.Vehicles.Get(v.Id)
		assert.Empty(t, got.ControlledBy)
		p, _ := sessB.Store.Get("a")
		assert.True(t, p.IsSpawned)
	})

	t.Run("vehicle is claimable again", func(t *testing.T) {
		assert.True(t, sessB.EnterVehicle(v.Id))
	})
}

func TestSession_ExitWithoutVehicle(t *testing.T) {
	_, sessA, _ := newPair(t)
	sessA.Spawn()

	assert.False(t, sessA.ExitVehicle())
}

func TestSession_PilotedVehicleFollowsTransform(t *testing.T) {
	_, sessA, sessB := newPair(t)
	sessA.Spawn()
	v := sessA.SpawnVehicle()
	require.True(t, sessA.EnterVehicle(v.Id))

	src := &fixedSource{pos: spatial.V3(40, 5, 40), yaw: 0.7}
	sessA.SetTransformSource(src)
	sessA.Update(0.016)

	got, _ := sessB.Vehicles.Get(v.Id)
	assert.Equal(t, spatial.V3(40, 5, 40), got.Position)
	assert.InDelta(t, 0.7, got.Rotation.Y, 1e-9)
}

func TestSession_DisconnectReleasesVehicle(t *testing.T) {
	hub := relay.NewHub()
	clientA := hub.JoinAs("a", "Alice")
	clientB := hub.JoinAs("b", "Bob")
	sessA := New(clientA, zerolog.Nop())
	sessB := New(clientB, zerolog.Nop())
	defer sessB.Close()

	sessA.Spawn()
	v := sessA.SpawnVehicle()
	require.True(t, sessA.EnterVehicle(v.Id))

	sessA.Close()
	require.NoError(t, clientA.Close())

	got, ok := sessB.Vehicles.Get(v.Id)
	require.True(t, ok, "the vehicle itself stays in the world")
	assert.Empty(t, got.ControlledBy, "the departed pilot's claim is released")
	_, ok = sessB.Store.Get("a")
	assert.False(t, ok, "the departed player leaves the store")
}

func TestSession_SpawnerInteractable(t *testing.T) {
	_, sessA, _ := newPair(t)

	pad := spatial.FromArray(config.World.SpawnerPad)
	sessA.Store.SpawnPlayerAt("a", pad)
	sessA.Update(0.016)

	key := config.Input.KeyFor(config.ActionSpawnVehicle)
	sessA.KeyDown(key)

	assert.Equal(t, 1, sessA.Vehicles.Len(), "pressing the spawn key on the pad creates a vehicle")
}

func TestSession_EnterViaInteraction(t *testing.T) {
	_, sessA, _ := newPair(t)
	v := sessA.SpawnVehicle()
	sessA.Store.SpawnPlayerAt("a", v.Position.Add(spatial.V3(1, 0, 0)))

	sessA.Update(0.016)
	sessA.KeyDown(config.Input.KeyFor(config.ActionInteract))

	got, _ := sessA.Vehicles.ControlledBy("a")
	assert.Equal(t, v.Id, got.Id)
}

func TestSession_ExitViaKey(t *testing.T) {
	_, sessA, _ := newPair(t)
	sessA.Spawn()
	v := sessA.SpawnVehicle()
	require.True(t, sessA.EnterVehicle(v.Id))

	sessA.KeyDown(config.Input.KeyFor(config.ActionExitVehicle))

	_, piloting := sessA.Vehicles.ControlledBy("a")
	assert.False(t, piloting)
	p, _ := sessA.Store.Get("a")
	assert.True(t, p.IsSpawned)
}

func TestSession_OrbitToggle(t *testing.T) {
	_, sessA, _ := newPair(t)
	sessA.Spawn()

	sessA.KeyDown(config.Input.KeyFor(config.ActionToggleOrbit))
	assert.Equal(t, camera.ModeOrbit, sessA.Camera.Mode())

	sessA.KeyDown(config.Input.KeyFor(config.ActionToggleOrbit))
	assert.Equal(t, camera.ModePlayer, sessA.Camera.Mode())
}

func TestSession_Chat(t *testing.T) {
	_, sessA, sessB := newPair(t)

	sessA.Chat.Send("o7")

	msgs := sessB.Chat.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "a", msgs[0].SenderId)
	assert.Equal(t, "Alice", msgs[0].Nickname)
	assert.Equal(t, "o7", msgs[0].Text)

	local := sessA.Chat.Messages()
	require.Len(t, local, 1, "the sender sees the message via the relay echo")
}
