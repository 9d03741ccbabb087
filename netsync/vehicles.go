package netsync

import (
	"sync"

	"github.com/automoto/stardrift-mp/relay"
	"github.com/automoto/stardrift-mp/shared/wire"
	"github.com/automoto/stardrift-mp/world"
	"github.com/rs/zerolog"
)

// VehicleBridge synchronizes the whole vehicle table through the single
// shared ships key. Unlike player keys the ships list has many writers, so
// the bridge relies on the same value-diff rule as PlayerBridge: an inbound
// list identical to the last one seen is an echo and is dropped, any other
// list is applied verbatim. Whoever wrote last at the relay wins, and the
// losing writer is corrected by the winner's list when it arrives.
type VehicleBridge struct {
	mu sync.Mutex

	client relay.Client
	table  *world.VehicleTable
	log    zerolog.Logger

	lastSnapshot []wire.ShipRecord
	hasSnapshot  bool

	cancel func()
}

// NewVehicleBridge wires a bridge and subscribes it to the relay.
func NewVehicleBridge(client relay.Client, table *world.VehicleTable, log zerolog.Logger) *VehicleBridge {
	b := &VehicleBridge{
		client: client,
		table:  table,
		log:    log.With().Str("component", "vehicle-bridge").Logger(),
	}
	b.cancel = client.Subscribe(b.apply)
	if payload, ok := client.Get(wire.ShipsKey); ok {
		b.apply(relay.Update{Key: wire.ShipsKey, Payload: payload})
	}
	return b
}

// Publish writes the local vehicle table to the shared state when it changed
// since the last publish or apply.
func (b *VehicleBridge) Publish() {
	snapshot := b.table.Snapshot()

	b.mu.Lock()
	if b.hasSnapshot && snapshotsEqual(snapshot, b.lastSnapshot) {
		b.mu.Unlock()
		return
	}
	b.lastSnapshot = snapshot
	b.hasSnapshot = true
	b.mu.Unlock()

	payload, err := wire.EncodeShips(snapshot)
	if err != nil {
		b.log.Error().Err(err).Msg("ships encode failed")
		return
	}
	b.client.Set(wire.ShipsKey, payload)
}

func (b *VehicleBridge) apply(u relay.Update) {
	if kind, _ := wire.KindOf(u.Key); kind != wire.KindShips {
		return
	}

	records, err := wire.DecodeShips(u.Payload)
	if err != nil {
		b.log.Warn().Err(err).Msg("malformed ships list discarded")
		return
	}

	b.mu.Lock()
	if b.hasSnapshot && snapshotsEqual(records, b.lastSnapshot) {
		b.mu.Unlock()
		return
	}
	b.lastSnapshot = records
	b.hasSnapshot = true
	b.mu.Unlock()

	if b.table.ApplySnapshot(records) {
		b.log.Debug().Int("ships", len(records)).Msg("vehicle table reconciled")
	}
}

// Close detaches the bridge from the relay.
func (b *VehicleBridge) Close() {
	if b.cancel != nil {
		b.cancel()
		b.cancel = nil
	}
}

func snapshotsEqual(a, b []wire.ShipRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
