package netsync

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automoto/stardrift-mp/relay"
	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/automoto/stardrift-mp/shared/wire"
	"github.com/automoto/stardrift-mp/world"
)

const testEps = 0.001

func newSyncedStores(t *testing.T, hub *relay.Hub) (*world.Store, *world.Store) {
	t.Helper()
	a := world.NewStore(world.FixedSpawner{}, zerolog.Nop())
	b := world.NewStore(world.FixedSpawner{}, zerolog.Nop())
	roster := []string{"a", "b"}
	nicks := map[string]string{"a": "Alice", "b": "Bob"}
	a.UpsertRoster(roster, nicks)
	b.UpsertRoster(roster, nicks)
	return a, b
}

func TestPlayerBridge_PropagatesTransform(t *testing.T) {
	hub := relay.NewHub()
	storeA, storeB := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")
	clientB := hub.JoinAs("b", "Bob")

	bridgeA := NewPlayerBridge("a", clientA, storeA, testEps, zerolog.Nop())
	defer bridgeA.Close()
	bridgeRemote := NewPlayerBridge("a", clientB, storeB, testEps, zerolog.Nop())
	defer bridgeRemote.Close()

	bridgeA.PublishTransform(spatial.V3(1, 2, 3), 0.5)

	p, ok := storeB.Get("a")
	require.True(t, ok)
	assert.Equal(t, spatial.V3(1, 2, 3), p.Position)
	assert.InDelta(t, 0.5, p.Rotation.Y, 1e-9)
}

func TestPlayerBridge_EpsilonSuppressesRepublish(t *testing.T) {
	hub := relay.NewHub()
	storeA, _ := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")
	observer := hub.JoinAs("o", "Observer")

	writes := 0
	observer.Subscribe(func(u relay.Update) {
		if u.Key == wire.PlayerPositionKey("a") {
			writes++
		}
	})

	bridge := NewPlayerBridge("a", clientA, storeA, testEps, zerolog.Nop())
	defer bridge.Close()

	bridge.PublishTransform(spatial.V3(1, 0, 0), 0)
	bridge.PublishTransform(spatial.V3(1, 0, 0.0001), 0)
	bridge.PublishTransform(spatial.V3(1, 0, 0), 0)

	assert.Equal(t, 1, writes, "sub-epsilon movement must not hit the relay")

	bridge.PublishTransform(spatial.V3(1, 0, 1), 0)
	assert.Equal(t, 2, writes)
}

func TestPlayerBridge_EchoDoesNotRepublish(t *testing.T) {
	hub := relay.NewHub()
	storeA, _ := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")
	observer := hub.JoinAs("o", "Observer")

	updates := 0
	observer.Subscribe(func(relay.Update) { updates++ })

	bridge := NewPlayerBridge("a", clientA, storeA, testEps, zerolog.Nop())
	defer bridge.Close()

	bridge.PublishTransform(spatial.V3(1, 2, 3), 0.5)

	// One position write and one rotation write; the echoes the bridge
	// receives back must not produce further writes.
	assert.Equal(t, 2, updates)
}

func TestPlayerBridge_AppliesOwnOriginWhenValueDiffers(t *testing.T) {
	hub := relay.NewHub()
	storeA, _ := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")

	bridge := NewPlayerBridge("a", clientA, storeA, testEps, zerolog.Nop())
	defer bridge.Close()

	bridge.PublishTransform(spatial.V3(1, 0, 0), 0)

	// A second write under our own identity that does not match the last
	// seen value is not an echo of applied state; the replica must follow
	// what the relay settled on.
	payload, err := wire.EncodePosition(spatial.V3(9, 9, 9))
	require.NoError(t, err)
	clientA.Set(wire.PlayerPositionKey("a"), payload)

	p, _ := storeA.Get("a")
	assert.Equal(t, spatial.V3(9, 9, 9), p.Position)
}

func TestPlayerBridge_SpawnFlag(t *testing.T) {
	hub := relay.NewHub()
	storeA, storeB := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")
	clientB := hub.JoinAs("b", "Bob")

	bridgeA := NewPlayerBridge("a", clientA, storeA, testEps, zerolog.Nop())
	defer bridgeA.Close()
	bridgeRemote := NewPlayerBridge("a", clientB, storeB, testEps, zerolog.Nop())
	defer bridgeRemote.Close()

	bridgeA.PublishSpawned(true)
	p, _ := storeB.Get("a")
	assert.True(t, p.IsSpawned)

	bridgeA.PublishSpawned(false)
	p, _ = storeB.Get("a")
	assert.False(t, p.IsSpawned)
}

func TestPlayerBridge_MalformedPayloadDiscarded(t *testing.T) {
	hub := relay.NewHub()
	_, storeB := newSyncedStores(t, hub)
	clientB := hub.JoinAs("b", "Bob")
	intruder := hub.JoinAs("x", "X")

	bridge := NewPlayerBridge("a", clientB, storeB, testEps, zerolog.Nop())
	defer bridge.Close()

	before, _ := storeB.Get("a")
	intruder.Set(wire.PlayerPositionKey("a"), []byte{0xc1})
	intruder.Set(wire.PlayerRotationKey("a"), []byte{0xc1})
	intruder.Set(wire.PlayerSpawnedKey("a"), []byte{0xc1})

	after, _ := storeB.Get("a")
	assert.Equal(t, before, after, "malformed payloads must leave the store untouched")
}

func TestPlayerBridge_IgnoresOtherPlayersKeys(t *testing.T) {
	hub := relay.NewHub()
	storeA, _ := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")
	intruder := hub.JoinAs("x", "X")

	bridge := NewPlayerBridge("a", clientA, storeA, testEps, zerolog.Nop())
	defer bridge.Close()

	payload, err := wire.EncodePosition(spatial.V3(5, 5, 5))
	require.NoError(t, err)
	intruder.Set(wire.PlayerPositionKey("b"), payload)

	p, _ := storeA.Get("a")
	assert.NotEqual(t, spatial.V3(5, 5, 5), p.Position)
}

func TestPlayerBridge_SeedsFromExistingState(t *testing.T) {
	hub := relay.NewHub()
	_, storeB := newSyncedStores(t, hub)
	clientA := hub.JoinAs("a", "Alice")

	payload, err := wire.EncodePosition(spatial.V3(4, 0, 4))
	require.NoError(t, err)
	clientA.Set(wire.PlayerPositionKey("a"), payload)
	spawned, err := wire.EncodeSpawned(true)
	require.NoError(t, err)
	clientA.Set(wire.PlayerSpawnedKey("a"), spawned)

	// A bridge attached after the writes picks the values up from the
	// replicated key table.
	clientB := hub.JoinAs("b", "Bob")
	bridge := NewPlayerBridge("a", clientB, storeB, testEps, zerolog.Nop())
	defer bridge.Close()

	p, ok := storeB.Get("a")
	require.True(t, ok)
	assert.True(t, p.IsSpawned)
	assert.Equal(t, spatial.V3(4, 0, 4), p.Position)
}
