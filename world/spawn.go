package world

import (
	"math/rand"

	"github.com/automoto/stardrift-mp/shared/spatial"
)

// SpawnPointProvider supplies world positions for avatar spawns that do not
// name an explicit position.
type SpawnPointProvider interface {
	SpawnPoint() spatial.Vec3
}

// DeckSpawner scatters spawns across the spacecraft deck: a random X/Z
// offset within ±Spread around Deck, lifted by Lift so avatars drop onto
// the hull instead of clipping through it.
type DeckSpawner struct {
	Deck   spatial.Vec3
	Spread float64
	Lift   float64

	rng *rand.Rand
}

// NewDeckSpawner builds a deck spawner with its own random source.
func NewDeckSpawner(deck spatial.Vec3, spread, lift float64, seed int64) *DeckSpawner {
	return &DeckSpawner{
		Deck:   deck,
		Spread: spread,
		Lift:   lift,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// SpawnPoint implements SpawnPointProvider.
func (d *DeckSpawner) SpawnPoint() spatial.Vec3 {
	offset := spatial.V3(
		(d.rng.Float64()-0.5)*2*d.Spread,
		d.Lift,
		(d.rng.Float64()-0.5)*2*d.Spread,
	)
	return d.Deck.Add(offset)
}

// FixedSpawner always returns the same point; handy for tests and bots.
type FixedSpawner struct {
	Point spatial.Vec3
}

// SpawnPoint implements SpawnPointProvider.
func (f FixedSpawner) SpawnPoint() spatial.Vec3 {
	return f.Point
}
