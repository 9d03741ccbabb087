// Package spatial defines the world-space math types shared between the
// entity store, the sync bridge and the interaction scheduler. It must have
// zero dependencies on any transport or rendering library.
package spatial

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Vec3 is the world-space position type used across the engine.
type Vec3 = mgl64.Vec3

// DefaultEpsilon is the per-axis change threshold below which float updates
// are treated as simulation jitter and not worth replicating.
const DefaultEpsilon = 0.001

// V3 builds a Vec3 from its components.
func V3(x, y, z float64) Vec3 {
	return Vec3{x, y, z}
}

// FromArray converts the wire tuple form into a Vec3.
func FromArray(a [3]float64) Vec3 {
	return Vec3{a[0], a[1], a[2]}
}

// ToArray converts a Vec3 into the wire tuple form.
func ToArray(v Vec3) [3]float64 {
	return [3]float64{v.X(), v.Y(), v.Z()}
}

// Distance returns the Euclidean distance between two points.
func Distance(a, b Vec3) float64 {
	return a.Sub(b).Len()
}

// Lerp interpolates between a and b by t in [0, 1].
func Lerp(a, b Vec3, t float64) Vec3 {
	return a.Add(b.Sub(a).Mul(t))
}

// ApproxEqual reports whether two vectors differ by less than eps on every axis.
func ApproxEqual(a, b Vec3, eps float64) bool {
	return math.Abs(a.X()-b.X()) < eps &&
		math.Abs(a.Y()-b.Y()) < eps &&
		math.Abs(a.Z()-b.Z()) < eps
}

// Euler is an XYZ rotation in radians.
type Euler struct {
	X, Y, Z float64
}

// Yaw builds an Euler rotating only around the vertical axis. Player
// avatars replicate yaw alone; the full triple is reserved for vehicles.
func Yaw(rad float64) Euler {
	return Euler{Y: rad}
}

// EulerFromArray converts the wire tuple form into an Euler.
func EulerFromArray(a [3]float64) Euler {
	return Euler{X: a[0], Y: a[1], Z: a[2]}
}

// Array converts an Euler into the wire tuple form.
func (e Euler) Array() [3]float64 {
	return [3]float64{e.X, e.Y, e.Z}
}

// ApproxEqual reports whether two rotations differ by less than eps on every axis.
func (e Euler) ApproxEqual(other Euler, eps float64) bool {
	return math.Abs(e.X-other.X) < eps &&
		math.Abs(e.Y-other.Y) < eps &&
		math.Abs(e.Z-other.Z) < eps
}
