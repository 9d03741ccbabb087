package world

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/automoto/stardrift-mp/shared/spatial"
	"github.com/automoto/stardrift-mp/shared/wire"
)

// Vehicle is a pilotable ship shared through the relay's ships list.
// ControlledBy is empty while unpiloted; a vehicle outlives its pilot and is
// removed only by explicit deletion.
type Vehicle struct {
	Id           string
	Position     spatial.Vec3
	Rotation     spatial.Euler
	ControlledBy string
}

// NewVehicleId mints a caller-assigned vehicle id; the timestamp keeps ids
// readable in logs, the uuid suffix keeps simultaneous spawns distinct.
func NewVehicleId() string {
	return fmt.Sprintf("ship_%d_%s", time.Now().UnixMilli(), uuid.NewString()[:8])
}

// VehicleTable is the vehicle entity table plus the ownership protocol. The
// table is intentionally small; linear scans are fine at sandbox scale.
type VehicleTable struct {
	mu       sync.RWMutex
	order    []string
	vehicles map[string]*Vehicle
	log      zerolog.Logger
}

// NewVehicleTable builds an empty vehicle table.
func NewVehicleTable(log zerolog.Logger) *VehicleTable {
	return &VehicleTable{
		vehicles: make(map[string]*Vehicle),
		log:      log.With().Str("component", "world.vehicles").Logger(),
	}
}

// Add inserts a vehicle. Duplicate ids are rejected.
func (t *VehicleTable) Add(v Vehicle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.vehicles[v.Id]; ok {
		return false
	}
	stored := v
	t.vehicles[v.Id] = &stored
	t.order = append(t.order, v.Id)
	t.log.Debug().Str("vehicleId", v.Id).Msg("vehicle added")
	return true
}

// Remove deletes a vehicle. Unknown ids are a no-op.
func (t *VehicleTable) Remove(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.vehicles[id]; !ok {
		return
	}
	delete(t.vehicles, id)
	for i, oid := range t.order {
		if oid == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
}

// SetPosition overwrites a vehicle's position.
func (t *VehicleTable) SetPosition(id string, pos spatial.Vec3) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.vehicles[id]; ok {
		v.Position = pos
	}
}

// SetRotation overwrites a vehicle's rotation.
func (t *VehicleTable) SetRotation(id string, rot spatial.Euler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if v, ok := t.vehicles[id]; ok {
		v.Rotation = rot
	}
}

// Get returns a copy of the vehicle.
func (t *VehicleTable) Get(id string) (Vehicle, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vehicles[id]
	if !ok {
		return Vehicle{}, false
	}
	return *v, true
}

// All returns copies of every vehicle in insertion order.
func (t *VehicleTable) All() []Vehicle {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Vehicle, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, *t.vehicles[id])
	}
	return out
}

// Len returns the number of vehicles.
func (t *VehicleTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.vehicles)
}

// Control claims exclusive pilotage. The claim is refused when the vehicle
// is unknown, already piloted, or the user already pilots another vehicle.
// Callers must treat false as "re-check state", not as an error: under the
// relay's last-write-wins semantics a racing peer may still steal the claim
// until propagation settles.
func (t *VehicleTable) Control(vehicleId, userId string) bool {
	if userId == "" {
		return false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vehicles[vehicleId]
	if !ok || v.ControlledBy != "" {
		return false
	}
	for _, other := range t.vehicles {
		if other.ControlledBy == userId {
			return false
		}
	}
	v.ControlledBy = userId
	t.log.Info().Str("vehicleId", vehicleId).Str("userId", userId).Msg("vehicle control taken")
	return true
}

// Release clears the pilot unconditionally; releasing an unpiloted or
// unknown vehicle is a no-op, so the call is idempotent.
func (t *VehicleTable) Release(vehicleId string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.vehicles[vehicleId]
	if !ok || v.ControlledBy == "" {
		return
	}
	t.log.Info().Str("vehicleId", vehicleId).Str("userId", v.ControlledBy).Msg("vehicle control released")
	v.ControlledBy = ""
}

// ReleaseOrphans releases every vehicle whose pilot is no longer in the
// connected roster. This is the only automatic release path; the vehicle
// itself stays in the world. Returns the released vehicle ids.
func (t *VehicleTable) ReleaseOrphans(connectedUserIds []string) []string {
	connected := make(map[string]struct{}, len(connectedUserIds))
	for _, id := range connectedUserIds {
		connected[id] = struct{}{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	var released []string
	for _, id := range t.order {
		v := t.vehicles[id]
		if v.ControlledBy == "" {
			continue
		}
		if _, ok := connected[v.ControlledBy]; !ok {
			t.log.Info().Str("vehicleId", id).Str("userId", v.ControlledBy).Msg("released orphaned vehicle")
			v.ControlledBy = ""
			released = append(released, id)
		}
	}
	return released
}

// ControlledBy returns the vehicle a user currently pilots, if any.
func (t *VehicleTable) ControlledBy(userId string) (Vehicle, bool) {
	if userId == "" {
		return Vehicle{}, false
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		if v := t.vehicles[id]; v.ControlledBy == userId {
			return *v, true
		}
	}
	return Vehicle{}, false
}

// Snapshot serializes the table into the shared ships list form.
func (t *VehicleTable) Snapshot() []wire.ShipRecord {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]wire.ShipRecord, 0, len(t.order))
	for _, id := range t.order {
		v := t.vehicles[id]
		out = append(out, wire.ShipRecord{
			Id:           v.Id,
			Position:     spatial.ToArray(v.Position),
			Rotation:     v.Rotation.Array(),
			ControlledBy: v.ControlledBy,
		})
	}
	return out
}

// ApplySnapshot reconciles the table against a remote ships list: records
// are upserted in list order and vehicles absent from the list are removed.
// Reports whether anything actually changed, so redundant relay deliveries
// stay cheap no-ops.
func (t *VehicleTable) ApplySnapshot(records []wire.ShipRecord) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	changed := len(records) != len(t.order)
	next := make(map[string]*Vehicle, len(records))
	order := make([]string, 0, len(records))

	for i, rec := range records {
		if !changed && t.order[i] != rec.Id {
			changed = true
		}
		v, ok := t.vehicles[rec.Id]
		if !ok {
			v = &Vehicle{Id: rec.Id}
			changed = true
		}
		pos := spatial.FromArray(rec.Position)
		rot := spatial.EulerFromArray(rec.Rotation)
		if v.Position != pos || v.Rotation != rot || v.ControlledBy != rec.ControlledBy {
			changed = true
		}
		v.Position = pos
		v.Rotation = rot
		v.ControlledBy = rec.ControlledBy
		next[rec.Id] = v
		order = append(order, rec.Id)
	}

	if !changed {
		return false
	}
	t.vehicles = next
	t.order = order
	return true
}
