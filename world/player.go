package world

import "github.com/automoto/stardrift-mp/shared/spatial"

// Player is one connected user's avatar entity. Exactly one player per
// client process carries IsController; IsCameraOwner is independent of it.
type Player struct {
	UserId        string
	Nickname      string
	Position      spatial.Vec3
	Rotation      spatial.Euler
	IsSpawned     bool
	IsController  bool
	IsCameraOwner bool
}
