package netsync

import (
	"sync"

	"github.com/automoto/stardrift-mp/relay"
	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/automoto/stardrift-mp/shared/wire"
	"github.com/automoto/stardrift-mp/world"
	"github.com/rs/zerolog"
)

// PlayerBridge synchronizes one player's transform and spawn flag between the
// local Store and the shared relay state. A bridge exists per roster member;
// only the local player's bridge publishes, every bridge applies.
//
// Inbound updates are value-diffed against the last payload this bridge has
// seen for each key. An update that matches the last-seen value within the
// epsilon is an echo of state already applied and is dropped, whoever wrote
// it. An update that differs is applied even when this client wrote it: after
// an interleaved remote write, our own echo is the value the relay settled on
// and every replica must converge to it. The inbound path never republishes,
// so applying an update can never generate another one.
type PlayerBridge struct {
	mu sync.Mutex

	userId string
	client relay.Client
	store  *world.Store
	eps    float64
	log    zerolog.Logger

	lastPos     spatial.Vec3
	hasPos      bool
	lastYaw     float64
	hasYaw      bool
	lastSpawned bool
	hasSpawned  bool

	cancel func()
}

// NewPlayerBridge wires a bridge for userId and subscribes it to the relay.
func NewPlayerBridge(userId string, client relay.Client, store *world.Store, eps float64, log zerolog.Logger) *PlayerBridge {
	b := &PlayerBridge{
		userId: userId,
		client: client,
		store:  store,
		eps:    eps,
		log: log.With().
			Str("component", "player-bridge").
			Str("userId", userId).
			Logger(),
	}
	b.cancel = client.Subscribe(b.apply)
	b.seed()
	return b
}

// seed replays values already present in the shared state, so a bridge
// created after its player wrote picks up the current transform.
func (b *PlayerBridge) seed() {
	if payload, ok := b.client.Get(wire.PlayerPositionKey(b.userId)); ok {
		b.apply(relay.Update{Key: wire.PlayerPositionKey(b.userId), Payload: payload})
	}
	if payload, ok := b.client.Get(wire.PlayerRotationKey(b.userId)); ok {
		b.apply(relay.Update{Key: wire.PlayerRotationKey(b.userId), Payload: payload})
	}
	if payload, ok := b.client.Get(wire.PlayerSpawnedKey(b.userId)); ok {
		b.apply(relay.Update{Key: wire.PlayerSpawnedKey(b.userId), Payload: payload})
	}
}

// PublishTransform writes position and yaw to the shared state when they
// moved past the epsilon since the last publish.
func (b *PlayerBridge) PublishTransform(pos spatial.Vec3, yaw float64) {
	b.mu.Lock()

	posChanged := !b.hasPos || !spatial.ApproxEqual(pos, b.lastPos, b.eps)
	yawChanged := !b.hasYaw || absDiff(yaw, b.lastYaw) > b.eps

	if posChanged {
		b.lastPos = pos
		b.hasPos = true
	}
	if yawChanged {
		b.lastYaw = yaw
		b.hasYaw = true
	}
	b.mu.Unlock()

	if posChanged {
		payload, err := wire.EncodePosition(pos)
		if err != nil {
			b.log.Error().Err(err).Msg("position encode failed")
		} else {
			b.client.Set(wire.PlayerPositionKey(b.userId), payload)
		}
	}
	if yawChanged {
		payload, err := wire.EncodeYaw(yaw)
		if err != nil {
			b.log.Error().Err(err).Msg("rotation encode failed")
		} else {
			b.client.Set(wire.PlayerRotationKey(b.userId), payload)
		}
	}
}

// PublishSpawned writes the spawn flag to the shared state.
func (b *PlayerBridge) PublishSpawned(spawned bool) {
	b.mu.Lock()
	changed := !b.hasSpawned || spawned != b.lastSpawned
	if changed {
		b.lastSpawned = spawned
		b.hasSpawned = true
	}
	b.mu.Unlock()

	if !changed {
		return
	}
	payload, err := wire.EncodeSpawned(spawned)
	if err != nil {
		b.log.Error().Err(err).Msg("spawn flag encode failed")
		return
	}
	b.client.Set(wire.PlayerSpawnedKey(b.userId), payload)
}

func (b *PlayerBridge) apply(u relay.Update) {
	kind, userId := wire.KindOf(u.Key)
	if userId != b.userId {
		return
	}

	switch kind {
	case wire.KindPlayerPosition:
		pos, err := wire.DecodePosition(u.Payload)
		if err != nil {
			b.log.Warn().Err(err).Str("key", u.Key).Msg("malformed position discarded")
			return
		}

		b.mu.Lock()
		if b.hasPos && spatial.ApproxEqual(pos, b.lastPos, b.eps) {
			b.mu.Unlock()
			return
		}
		ownEcho := u.Origin == b.userId
		b.lastPos = pos
		b.hasPos = true
		b.mu.Unlock()

		if ownEcho {
			b.log.Debug().Str("key", u.Key).Msg("own echo diverged, applying relay value")
		}
		b.store.SetPosition(b.userId, pos)

	case wire.KindPlayerRotation:
		yaw, err := wire.DecodeYaw(u.Payload)
		if err != nil {
			b.log.Warn().Err(err).Str("key", u.Key).Msg("malformed rotation discarded")
			return
		}

		b.mu.Lock()
		if b.hasYaw && absDiff(yaw, b.lastYaw) <= b.eps {
			b.mu.Unlock()
			return
		}
		b.lastYaw = yaw
		b.hasYaw = true
		b.mu.Unlock()

		b.store.SetRotation(b.userId, spatial.Euler{Y: yaw})

	case wire.KindPlayerSpawned:
		spawned, err := wire.DecodeSpawned(u.Payload)
		if err != nil {
			b.log.Warn().Err(err).Str("key", u.Key).Msg("malformed spawn flag discarded")
			return
		}

		b.mu.Lock()
		if b.hasSpawned && spawned == b.lastSpawned {
			b.mu.Unlock()
			return
		}
		b.lastSpawned = spawned
		b.hasSpawned = true
		b.mu.Unlock()

		b.store.SetSpawned(b.userId, spawned)
	}
}

// Close detaches the bridge from the relay.
func (b *PlayerBridge) Close() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func absDiff(a, b float64) float64 {
	d := a - b
	if d < 0 {
		return -d
	}
	return d
}
