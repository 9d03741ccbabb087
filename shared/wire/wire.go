// Package wire defines the relay key layout and the payload codecs for every
// replicated value. Both the engine and the reference relay server depend on
// it; it must have zero dependencies on the transport.
//
// Key layout:
//
//	player_<userId>          -> [x, y, z]
//	player_rotation_<userId> -> yaw (radians)
//	player_spawned_<userId>  -> bool
//	ships                    -> []ShipRecord
package wire

import (
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/automoto/stardrift-mp/shared/spatial"
)

// ShipsKey is the single shared key holding the whole vehicle list.
const ShipsKey = "ships"

const (
	playerPositionPrefix = "player_"
	playerRotationPrefix = "player_rotation_"
	playerSpawnedPrefix  = "player_spawned_"
)

// Kind identifies which replicated field a relay key addresses.
type Kind int

const (
	KindUnknown Kind = iota
	KindPlayerPosition
	KindPlayerRotation
	KindPlayerSpawned
	KindShips
)

// PlayerPositionKey returns the relay key for a player's position tuple.
func PlayerPositionKey(userId string) string {
	return playerPositionPrefix + userId
}

// PlayerRotationKey returns the relay key for a player's yaw.
func PlayerRotationKey(userId string) string {
	return playerRotationPrefix + userId
}

// PlayerSpawnedKey returns the relay key for a player's spawn flag.
func PlayerSpawnedKey(userId string) string {
	return playerSpawnedPrefix + userId
}

// KindOf parses a relay key back into its kind and owning user id. The user
// id is empty for non-player keys. Order matters: the rotation and spawned
// prefixes both start with the bare position prefix.
func KindOf(key string) (Kind, string) {
	switch {
	case key == ShipsKey:
		return KindShips, ""
	case strings.HasPrefix(key, playerRotationPrefix):
		return KindPlayerRotation, key[len(playerRotationPrefix):]
	case strings.HasPrefix(key, playerSpawnedPrefix):
		return KindPlayerSpawned, key[len(playerSpawnedPrefix):]
	case strings.HasPrefix(key, playerPositionPrefix):
		return KindPlayerPosition, key[len(playerPositionPrefix):]
	default:
		return KindUnknown, ""
	}
}

// ShipRecord is the serialized form of one vehicle in the shared ships list.
// ControlledBy is empty when the vehicle is unpiloted.
type ShipRecord struct {
	Id           string     `msgpack:"id"`
	Position     [3]float64 `msgpack:"position"`
	Rotation     [3]float64 `msgpack:"rotation"`
	ControlledBy string     `msgpack:"isControlled"`
}

// EncodePosition serializes a position tuple.
func EncodePosition(v spatial.Vec3) ([]byte, error) {
	return msgpack.Marshal(spatial.ToArray(v))
}

// DecodePosition deserializes a position tuple, rejecting payloads that are
// not exactly three numbers.
func DecodePosition(payload []byte) (spatial.Vec3, error) {
	var raw []float64
	if err := msgpack.Unmarshal(payload, &raw); err != nil {
		return spatial.Vec3{}, fmt.Errorf("decode position: %w", err)
	}
	if len(raw) != 3 {
		return spatial.Vec3{}, fmt.Errorf("decode position: want 3 components, got %d", len(raw))
	}
	return spatial.V3(raw[0], raw[1], raw[2]), nil
}

// EncodeYaw serializes a player's yaw.
func EncodeYaw(yaw float64) ([]byte, error) {
	return msgpack.Marshal(yaw)
}

// DecodeYaw deserializes a player's yaw.
func DecodeYaw(payload []byte) (float64, error) {
	var yaw float64
	if err := msgpack.Unmarshal(payload, &yaw); err != nil {
		return 0, fmt.Errorf("decode yaw: %w", err)
	}
	return yaw, nil
}

// EncodeSpawned serializes a player's spawn flag.
func EncodeSpawned(spawned bool) ([]byte, error) {
	return msgpack.Marshal(spawned)
}

// DecodeSpawned deserializes a player's spawn flag.
func DecodeSpawned(payload []byte) (bool, error) {
	var spawned bool
	if err := msgpack.Unmarshal(payload, &spawned); err != nil {
		return false, fmt.Errorf("decode spawned: %w", err)
	}
	return spawned, nil
}

// EncodeShips serializes the shared vehicle list.
func EncodeShips(ships []ShipRecord) ([]byte, error) {
	return msgpack.Marshal(ships)
}

// DecodeShips deserializes the shared vehicle list, rejecting records with a
// missing id so a malformed write cannot seed phantom vehicles.
func DecodeShips(payload []byte) ([]ShipRecord, error) {
	var ships []ShipRecord
	if err := msgpack.Unmarshal(payload, &ships); err != nil {
		return nil, fmt.Errorf("decode ships: %w", err)
	}
	for i, s := range ships {
		if s.Id == "" {
			return nil, fmt.Errorf("decode ships: record %d has empty id", i)
		}
	}
	return ships, nil
}
