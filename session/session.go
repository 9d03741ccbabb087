// Package session ties the engine together for one connected player: world
// stores, sync bridges, interactions, camera and chat, driven by a frame
// loop.
package session

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/camera"
	"github.com/automoto/stardrift-mp/config"
	"github.com/automoto/stardrift-mp/interact"
	"github.com/automoto/stardrift-mp/netsync"
	"github.com/automoto/stardrift-mp/relay"
	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/automoto/stardrift-mp/world"
)

// TransformSource yields the locally simulated transform each frame. The
// session replicates it for the avatar, or for the piloted vehicle while one
// is controlled.
type TransformSource interface {
	Transform() (pos spatial.Vec3, yaw float64)
}

const spawnerObjectId = "vehicle_spawner"

// Session owns the per-connection engine state. One bridge exists per roster
// member; only the local player's bridge is published to.
type Session struct {
	mu sync.Mutex

	client relay.Client
	log    zerolog.Logger

	localId string
	source  TransformSource
	rng     *rand.Rand

	Store    *world.Store
	Vehicles *world.VehicleTable
	Registry *interact.Registry
	Sched    *interact.Scheduler
	Camera   *camera.State
	Chat     *Chat

	bridges       map[string]*netsync.PlayerBridge
	vehicleBridge *netsync.VehicleBridge
	vehicleObjs   map[string]struct{}

	cancelRoster func()
	cancelChat   func()
}

// New assembles a session over an already joined relay client.
func New(client relay.Client, log zerolog.Logger) *Session {
	log = log.With().Str("component", "session").Logger()

	spawner := world.NewDeckSpawner(
		spatial.FromArray(config.World.SpawnDeck),
		config.World.SpawnSpread,
		config.World.SpawnLift,
		time.Now().UnixNano(),
	)
	store := world.NewStore(spawner, log)
	table := world.NewVehicleTable(log)
	registry := interact.NewRegistry(log)

	s := &Session{
		client:      client,
		log:         log,
		localId:     client.Id(),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		Store:       store,
		Vehicles:    table,
		Registry:    registry,
		Sched:       interact.NewScheduler(registry, store, log),
		Camera:      camera.NewState(),
		Chat:        NewChat(client, defaultChatLimit),
		bridges:     make(map[string]*netsync.PlayerBridge),
		vehicleObjs: make(map[string]struct{}),
	}

	s.vehicleBridge = netsync.NewVehicleBridge(client, table, log)
	s.cancelRoster = client.OnRoster(s.handleRoster)
	s.cancelChat = client.OnChat(s.Chat.append)
	s.registerSpawner()
	s.handleRoster(client.Roster(), client.Nicknames())
	return s
}

// SetTransformSource installs the local movement provider.
func (s *Session) SetTransformSource(src TransformSource) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.source = src
}

// LocalId returns the local player's user id.
func (s *Session) LocalId() string {
	return s.localId
}

// handleRoster reconciles the player store and the per-player bridges with
// the connected set, and releases vehicles whose pilot disconnected.
func (s *Session) handleRoster(userIds []string, nicknames map[string]string) {
	changed := s.Store.UpsertRoster(userIds, nicknames)

	s.mu.Lock()
	present := make(map[string]struct{}, len(userIds))
	for _, id := range userIds {
		present[id] = struct{}{}
		if _, ok := s.bridges[id]; !ok {
			s.bridges[id] = netsync.NewPlayerBridge(id, s.client, s.Store, config.World.SyncEpsilon, s.log)
		}
	}
	var stale []*netsync.PlayerBridge
	for id, b := range s.bridges {
		if _, ok := present[id]; !ok {
			stale = append(stale, b)
			delete(s.bridges, id)
		}
	}
	s.mu.Unlock()

	for _, b := range stale {
		b.Close()
	}

	released := s.Vehicles.ReleaseOrphans(userIds)
	if len(released) > 0 {
		s.log.Info().Strs("vehicles", released).Msg("released vehicles of disconnected pilots")
		s.vehicleBridge.Publish()
	}

	if changed {
		s.log.Debug().Int("players", len(userIds)).Msg("roster updated")
	}
}

// Spawn places the local avatar on the deck and replicates it.
func (s *Session) Spawn() {
	s.Store.SpawnPlayer(s.localId)
	s.Store.SetController(s.localId, true)
	s.Store.SetCameraOwner(s.localId, true)

	p, ok := s.Store.Get(s.localId)
	if !ok {
		return
	}
	b := s.localBridge()
	if b == nil {
		return
	}
	b.PublishTransform(p.Position, p.Rotation.Y)
	b.PublishSpawned(true)
	s.followAvatar(p.Position)
}

// Update runs one frame: replicate the local transform, reconcile vehicle
// interactables, sweep interactions and advance the camera.
func (s *Session) Update(dt float64) {
	s.mu.Lock()
	src := s.source
	s.mu.Unlock()

	piloted, piloting := s.Vehicles.ControlledBy(s.localId)

	if src != nil {
		pos, yaw := src.Transform()
		if piloting {
			s.Vehicles.SetPosition(piloted.Id, pos)
			s.Vehicles.SetRotation(piloted.Id, spatial.Yaw(yaw))
			s.vehicleBridge.Publish()
		} else {
			s.Store.SetPosition(s.localId, pos)
			s.Store.SetRotation(s.localId, spatial.Yaw(yaw))
			if b := s.localBridge(); b != nil {
				b.PublishTransform(pos, yaw)
			}
		}
	}

	s.syncVehicleObjects()
	s.Sched.Tick()
	s.updateCameraTargets()
	s.Camera.Update(dt)
}

// KeyDown routes a key press: interaction triggers first, then the direct
// actions that work while the avatar is despawned inside a vehicle.
func (s *Session) KeyDown(key string) {
	s.Sched.Trigger(s.localId, key)

	switch config.Input.ActionFor(key) {
	case config.ActionExitVehicle:
		if _, piloting := s.Vehicles.ControlledBy(s.localId); piloting {
			s.ExitVehicle()
		}
	case config.ActionToggleOrbit:
		s.toggleOrbit()
	}
}

// EnterVehicle claims the vehicle for the local player. It fails when the
// vehicle is piloted or the player already pilots another one.
func (s *Session) EnterVehicle(vehicleId string) bool {
	if !s.Vehicles.Control(vehicleId, s.localId) {
		return false
	}
	s.Store.DespawnPlayer(s.localId)

	if b := s.localBridge(); b != nil {
		b.PublishSpawned(false)
	}
	s.vehicleBridge.Publish()
	s.Camera.SetMode(camera.ModeVehicle)

	s.log.Info().Str("vehicleId", vehicleId).Msg("vehicle entered")
	return true
}

// ExitVehicle releases the piloted vehicle and respawns the avatar above it,
// easing the camera to a viewpoint behind the avatar.
func (s *Session) ExitVehicle() bool {
	v, ok := s.Vehicles.ControlledBy(s.localId)
	if !ok {
		return false
	}
	s.Vehicles.Release(v.Id)
	s.vehicleBridge.Publish()

	exitPos := v.Position.Add(spatial.V3(0, config.World.VehicleExitLift, 0))
	s.Store.SpawnPlayerAt(s.localId, exitPos)
	s.Store.SetRotation(s.localId, v.Rotation)
	s.Store.SetCameraOwner(s.localId, true)

	if b := s.localBridge(); b != nil {
		b.PublishTransform(exitPos, v.Rotation.Y)
		b.PublishSpawned(true)
	}

	s.Camera.SetMode(camera.ModePlayer)
	s.Camera.Transition(
		exitPos.Add(spatial.FromArray(config.Camera.ExitFollowOffset)),
		exitPos.Add(spatial.V3(0, config.Camera.ExitLookAtLift, 0)),
	)

	s.log.Info().Str("vehicleId", v.Id).Msg("vehicle exited")
	return true
}

// SpawnVehicle creates an unpiloted vehicle scattered around the spawner pad
// and replicates the new list.
func (s *Session) SpawnVehicle() world.Vehicle {
	pad := spatial.FromArray(config.World.SpawnerPad)

	s.mu.Lock()
	offX := (s.rng.Float64()*2 - 1) * config.World.SpawnerSpread
	offZ := (s.rng.Float64()*2 - 1) * config.World.SpawnerSpread
	yaw := s.rng.Float64() * 2 * math.Pi
	s.mu.Unlock()

	v := world.Vehicle{
		Id:       world.NewVehicleId(),
		Position: spatial.V3(pad.X()+offX, config.World.SpawnerHeight, pad.Z()+offZ),
		Rotation: spatial.Yaw(yaw),
	}
	if !s.Vehicles.Add(v) {
		return v
	}
	s.vehicleBridge.Publish()
	s.log.Info().Str("vehicleId", v.Id).Msg("vehicle spawned")
	return v
}

func (s *Session) toggleOrbit() {
	if s.Camera.Mode() == camera.ModeOrbit {
		if _, piloting := s.Vehicles.ControlledBy(s.localId); piloting {
			s.Camera.SetMode(camera.ModeVehicle)
		} else {
			s.Camera.SetMode(camera.ModePlayer)
		}
		return
	}
	s.Camera.SetMode(camera.ModeOrbit)
}

func (s *Session) registerSpawner() {
	s.Registry.Register(spawnerObjectId, interact.ObjectConfig{
		Type:     "spawner",
		Position: spatial.FromArray(config.World.SpawnerPad),
		Radius:   config.World.VehicleSpawnerRadius,
		Key:      config.Input.KeyFor(config.ActionSpawnVehicle),
		Prompt:   "Spawn ship",
		OnInteract: func(interact.Interaction) {
			s.SpawnVehicle()
		},
	})
}

// syncVehicleObjects keeps one enter interactable per vehicle registered and
// positioned. Enter objects are disabled while the vehicle is piloted.
func (s *Session) syncVehicleObjects() {
	vehicles := s.Vehicles.All()

	s.mu.Lock()
	seen := make(map[string]struct{}, len(vehicles))
	var added, removed []string
	for _, v := range vehicles {
		seen[v.Id] = struct{}{}
		if _, ok := s.vehicleObjs[v.Id]; !ok {
			s.vehicleObjs[v.Id] = struct{}{}
			added = append(added, v.Id)
		}
	}
	for id := range s.vehicleObjs {
		if _, ok := seen[id]; !ok {
			delete(s.vehicleObjs, id)
			removed = append(removed, id)
		}
	}
	s.mu.Unlock()

	for _, id := range added {
		vehicleId := id
		s.Registry.Register(enterObjectId(vehicleId), interact.ObjectConfig{
			Type:      "vehicle-enter",
			Radius:    config.World.VehicleEnterRadius,
			Key:       config.Input.KeyFor(config.ActionInteract),
			Prompt:    "Enter ship",
			VehicleId: vehicleId,
			OnInteract: func(interact.Interaction) {
				s.EnterVehicle(vehicleId)
			},
		})
	}
	for _, id := range removed {
		s.Registry.Unregister(enterObjectId(id))
	}

	for _, v := range vehicles {
		s.Registry.Move(enterObjectId(v.Id), v.Position)
		if v.ControlledBy == "" {
			s.Registry.Enable(enterObjectId(v.Id))
		} else {
			s.Registry.Disable(enterObjectId(v.Id))
		}
	}
}

func (s *Session) updateCameraTargets() {
	switch s.Camera.Mode() {
	case camera.ModePlayer:
		if p, ok := s.Store.Get(s.localId); ok && p.IsSpawned {
			s.followAvatar(p.Position)
		}
	case camera.ModeVehicle:
		if v, ok := s.Vehicles.ControlledBy(s.localId); ok {
			s.Camera.SetTargets(
				v.Position.Add(spatial.FromArray(config.Camera.ExitFollowOffset)),
				v.Position,
			)
		}
	}
}

func (s *Session) followAvatar(pos spatial.Vec3) {
	s.Camera.SetTargets(
		pos.Add(spatial.FromArray(config.Camera.ExitFollowOffset)),
		pos.Add(spatial.V3(0, config.Camera.ExitLookAtLift, 0)),
	)
}

func (s *Session) localBridge() *netsync.PlayerBridge {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bridges[s.localId]
}

// Close detaches every bridge and subscription. The relay client is left to
// the caller.
func (s *Session) Close() {
	if s.cancelRoster != nil {
		s.cancelRoster()
	}
	if s.cancelChat != nil {
		s.cancelChat()
	}
	s.vehicleBridge.Close()

	s.mu.Lock()
	bridges := make([]*netsync.PlayerBridge, 0, len(s.bridges))
	for _, b := range s.bridges {
		bridges = append(bridges, b)
	}
	s.bridges = make(map[string]*netsync.PlayerBridge)
	s.mu.Unlock()

	for _, b := range bridges {
		b.Close()
	}
	s.Sched.ClearActive()
	s.Store.Clear()
}

func enterObjectId(vehicleId string) string {
	return "enter_" + vehicleId
}
