package config

// WorldConfig contains the sandbox world tuning values.
type WorldConfig struct {
	// Avatar spawns land on the spacecraft deck, scattered so players do
	// not stack on one point.
	SpawnDeck   [3]float64
	SpawnSpread float64
	SpawnLift   float64

	// Interaction radii for the built-in vehicle flows. Exit has no radius:
	// it is key-driven while piloting.
	VehicleEnterRadius   float64
	VehicleSpawnerRadius float64

	// Where the vehicle spawner pad sits and how far spawned vehicles
	// scatter around it.
	SpawnerPad    [3]float64
	SpawnerSpread float64
	SpawnerHeight float64

	// Exit placement: the avatar reappears this far above the vehicle.
	VehicleExitLift float64

	// Change threshold below which transform updates are not replicated.
	SyncEpsilon float64
}

// CameraConfig contains camera coordination tuning values.
type CameraConfig struct {
	// Seconds a mode transition takes before render code stops blending.
	TransitionSeconds float64

	// Resting target used before any entity owns the camera.
	DefaultPosition [3]float64
	DefaultLookAt   [3]float64

	// Offset from the avatar to the follow target after leaving a vehicle.
	ExitFollowOffset [3]float64
	ExitLookAtLift   float64
}

// World is the global world configuration.
var World WorldConfig

// Camera is the global camera configuration.
var Camera CameraConfig

func init() {
	World = WorldConfig{
		SpawnDeck:   [3]float64{-17, 0.1, 75},
		SpawnSpread: 5,
		SpawnLift:   2,

		VehicleEnterRadius:   6,
		VehicleSpawnerRadius: 3,

		SpawnerPad:    [3]float64{10, 0, 10},
		SpawnerSpread: 10,
		SpawnerHeight: 2,

		VehicleExitLift: 3,

		SyncEpsilon: 0.001,
	}

	Camera = CameraConfig{
		TransitionSeconds: 0.5,
		DefaultPosition:   [3]float64{0, 5, -10},
		DefaultLookAt:     [3]float64{0, 0, 0},
		ExitFollowOffset:  [3]float64{0, 4, -8},
		ExitLookAtLift:    1.5,
	}
}
